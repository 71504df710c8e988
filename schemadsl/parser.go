package schemadsl

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// --- Participle grammar structs ---

// definitionFile is the top-level grammar: define followed by entities.
type definitionFile struct {
	Define   string      `parser:"'define'"`
	Entities []entityDef `parser:"@@*"`
}

// entityDef parses: entity name [@cloneable] [,] clause [, clause]* ;
type entityDef struct {
	Pos       lexer.Position
	Name      string         `parser:"'entity' @Ident"`
	Cloneable bool           `parser:"@'@cloneable'?"`
	Comma     string         `parser:"','?"`
	Clauses   []entityClause `parser:"( @@ ( ',' @@ )* )? ';'"`
}

// entityClause is one of: field, one or many.
type entityClause struct {
	Field *fieldDef       `parser:"  @@"`
	One   *associationDef `parser:"| 'one' @@"`
	Many  *associationDef `parser:"| 'many' @@"`
}

// fieldDef parses: field name type [@id] [@generated]
type fieldDef struct {
	Name      string       `parser:"'field' @Ident"`
	ValueType string       `parser:"@Ident"`
	Annots    []annotation `parser:"@@*"`
}

// associationDef parses the tail of a one or many clause: name target
type associationDef struct {
	Name   string `parser:"@Ident"`
	Target string `parser:"@Ident"`
}

// annotation parses: @id or @generated
type annotation struct {
	ID        bool `parser:"  @'@id'"`
	Generated bool `parser:"| @'@generated'"`
}

// Keywords lex as Ident and are matched by literal value in the grammar, so
// hyphenated names such as one-off stay a single token. Reserved words used as
// names are rejected by Validate.
var definitionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "Annot", Pattern: `@[a-zA-Z_][a-zA-Z0-9_-]*`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_-]*`},
	{Name: "Punct", Pattern: `[;,]`},
})

var definitionParser = participle.MustBuild[definitionFile](
	participle.Lexer(definitionLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.UseLookahead(2),
)

// ParseSchema parses definition text. The result is not validated; call
// Validate or Build for that.
func ParseSchema(input string) (*ParsedSchema, error) {
	return parse("schema.hyd", input)
}

// ParseSchemaFile reads and parses the definition file at path.
func ParseSchemaFile(path string) (*ParsedSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return parse(path, string(data))
}

func parse(filename, input string) (*ParsedSchema, error) {
	ast, err := definitionParser.ParseString(filename, input)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return convertAST(ast), nil
}

// convertAST converts the participle AST to the definition model.
func convertAST(file *definitionFile) *ParsedSchema {
	s := &ParsedSchema{}
	for _, def := range file.Entities {
		s.Entities = append(s.Entities, convertEntity(def))
	}
	return s
}

func convertEntity(e entityDef) EntitySpec {
	es := EntitySpec{
		Name:      e.Name,
		Cloneable: e.Cloneable,
		Line:      e.Pos.Line,
	}
	for _, c := range e.Clauses {
		switch {
		case c.Field != nil:
			fs := FieldSpec{Name: c.Field.Name, ValueType: c.Field.ValueType}
			for _, ann := range c.Field.Annots {
				fs.ID = fs.ID || ann.ID
				fs.Generated = fs.Generated || ann.Generated
			}
			es.Fields = append(es.Fields, fs)
		case c.One != nil:
			es.Associations = append(es.Associations, AssociationSpec{Name: c.One.Name, Target: c.One.Target})
		case c.Many != nil:
			es.Associations = append(es.Associations, AssociationSpec{Name: c.Many.Name, Target: c.Many.Target, Many: true})
		}
	}
	return es
}
