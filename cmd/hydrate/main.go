// hydrate builds or updates an entity from a JSON or msgpack document against
// a schema definition file and a SQLite-backed session.
//
// Usage:
//
//	hydrate -schema defs.hyd -type widget [-data in.json] [-format json|msgpack] [-clone] [-persist]
//
// The document is read from stdin when -data is omitted or "-". Settings that
// outlive a single invocation come from the environment:
//
//	HYDRATE_DB         sqlite data source (default file::memory:)
//	HYDRATE_LOG_LEVEL  logrus level (default warn)
//	HYDRATE_LOG_JSON   log as JSON (default false)
//	HYDRATE_MAX_DEPTH  nesting limit (default 10)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/CaliLuke/go-hydrate/hydrate"
	"github.com/CaliLuke/go-hydrate/schema"
	"github.com/CaliLuke/go-hydrate/schemadsl"
	"github.com/CaliLuke/go-hydrate/sqlstore"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], env.ToMap(os.Environ()), os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	schemaFile string
	typeName   string
	dataFile   string
	format     string
	clone      bool
	persist    bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("hydrate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.schemaFile, "schema", "", "Path to entity definition file (required)")
	fs.StringVar(&o.typeName, "type", "", "Entity type to hydrate (required)")
	fs.StringVar(&o.dataFile, "data", "-", "Input document (default: stdin)")
	fs.StringVar(&o.format, "format", "json", "Input format: json or msgpack")
	fs.BoolVar(&o.clone, "clone", false, "Duplicate instances found by identifier")
	fs.BoolVar(&o.persist, "persist", false, "Persist the result and flush the session")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.version {
		return o, nil
	}
	if o.schemaFile == "" || o.typeName == "" {
		fs.Usage()
		return nil, errors.New("-schema and -type flags are required")
	}
	if o.format != "json" && o.format != "msgpack" {
		return nil, fmt.Errorf("unknown format %q", o.format)
	}
	return o, nil
}

func run(ctx context.Context, args []string, environ map[string]string, stdin io.Reader, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintf(stdout, "hydrate %s\n", version)
		return nil
	}

	cfg, err := loadConfig(environ)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}

	catalog := schema.NewCatalog()
	if _, err := schemadsl.LoadFile(o.schemaFile, catalog); err != nil {
		return err
	}
	data, err := readDocument(o, stdin)
	if err != nil {
		return err
	}

	store, err := sqlstore.Open(ctx, cfg.DB, catalog, sqlstore.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	h := hydrate.New(catalog, store,
		hydrate.WithMaxDepth(cfg.MaxDepth),
		hydrate.WithLogger(log),
	)
	root, err := h.Hydrate(ctx, o.typeName, data, o.clone)
	if err != nil {
		return err
	}

	for _, c := range store.Changes() {
		log.WithFields(logrus.Fields{
			"instance": describe(catalog, c.Instance),
			"field":    c.Field,
			"old":      c.Old,
			"new":      c.New,
		}).Info("changed")
	}

	if o.persist {
		if err := store.Persist(ctx, root); err != nil {
			return err
		}
		if err := store.Flush(ctx); err != nil {
			return err
		}
	}
	return writeInstance(stdout, catalog, root)
}

func readDocument(o *options, stdin io.Reader) (*hydrate.Mapping, error) {
	r := stdin
	if o.dataFile != "-" {
		f, err := os.Open(o.dataFile)
		if err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	if o.format == "msgpack" {
		return hydrate.DecodeMsgpack(r)
	}
	return hydrate.DecodeJSON(r)
}
