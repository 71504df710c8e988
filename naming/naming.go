// Package naming translates between the delimiter-separated key convention used by
// incoming data (snake_case) and the camelCase convention used for field names.
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// splitName splits a string on underscores and hyphens.
func splitName(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
}

// upperFirst upper-cases the first rune of s and leaves the rest untouched.
func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return cases.Upper(language.Und).String(string(r)) + s[size:]
}

// lowerFirst lower-cases the first rune of s and leaves the rest untouched.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return cases.Lower(language.Und).String(string(r)) + s[size:]
}

// ToPascal transforms a snake_case or kebab-case key into PascalCase.
// Segments keep their own casing apart from the first rune, so "foo_barBaz"
// becomes "FooBarBaz".
func ToPascal(name string) string {
	var b strings.Builder
	for _, part := range splitName(name) {
		b.WriteString(upperFirst(part))
	}
	return b.String()
}

// ToInternal transforms a snake_case data key into a camelCase field name
// (e.g. "created_at" → "createdAt").
func ToInternal(name string) string {
	return lowerFirst(ToPascal(name))
}

// ToExternal transforms a camelCase or PascalCase field name into a snake_case
// data key (e.g. "createdAt" → "created_at"). Leading and trailing underscores
// are trimmed.
func ToExternal(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteString(cases.Lower(language.Und).String(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "_")
}

// SetterName returns the name of the setter method for a key or field name
// (e.g. "created_at" → "SetCreatedAt").
func SetterName(name string) string {
	return "Set" + ToPascal(name)
}
