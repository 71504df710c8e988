// Package sqlstore is a hydrate.Session backed by a SQLite database.
//
// A Store is a unit of work: it keeps an identity map of the instances it has
// loaded or been asked to persist, marks instances dirty when the Hydrator
// reports changes, and writes everything out in one transaction on Flush.
// Association targets of loaded rows start out as placeholders carrying only
// their identifier; they are read from the database on first Find or ForceLoad.
//
// Each row stores one instance as a msgpack map of field values, with
// associations reduced to target identifiers.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/CaliLuke/go-hydrate/hydrate"
	"github.com/CaliLuke/go-hydrate/schema"
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("sqlstore: store is closed")

// ErrMissingRow is returned when a placeholder's row no longer exists.
var ErrMissingRow = errors.New("sqlstore: row not found")

const ddl = `
CREATE TABLE IF NOT EXISTS entities (
	type TEXT NOT NULL,
	id   TEXT NOT NULL,
	body BLOB NOT NULL,
	PRIMARY KEY (type, id)
);
CREATE TABLE IF NOT EXISTS sequences (
	type TEXT PRIMARY KEY,
	last_id INTEGER NOT NULL
);`

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type removal struct {
	typeName string
	id       string
}

// Store is a SQLite-backed hydrate.Session. It is safe for concurrent use, but
// like any unit of work it is meant to serve one logical operation at a time.
type Store struct {
	db      *sql.DB
	catalog *schema.Catalog
	log     logrus.FieldLogger

	mu       sync.Mutex
	closed   bool
	identity map[string]any
	lazy     map[any]bool
	pending  []any
	queued   map[any]bool
	removed  []removal
	changes  []hydrate.Change
}

var _ hydrate.Session = (*Store)(nil)

// Open opens (creating if needed) the SQLite database at dsn and prepares its
// tables. dsn is any data source name accepted by modernc.org/sqlite, e.g. a
// file path or "file::memory:".
func Open(ctx context.Context, dsn string, catalog *schema.Catalog, opts ...Option) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open: context cancelled: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	// a single connection keeps in-memory databases alive and serialises writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	s := &Store{
		db:       db,
		catalog:  catalog,
		log:      logrus.StandardLogger(),
		identity: make(map[string]any),
		lazy:     make(map[any]bool),
		queued:   make(map[any]bool),
	}
	for _, o := range opts {
		o(s)
	}
	s.log.WithField("dsn", dsn).Debug("store opened")
	return s, nil
}

// Close releases the database. Unflushed work is discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if n := len(s.pending) + len(s.removed); n > 0 {
		s.log.WithField("pending", n).Warn("closing store with unflushed changes")
	}
	return s.db.Close()
}

// Count returns the number of stored rows of typeName.
func (s *Store) Count(ctx context.Context, typeName string) (int, error) {
	if err := s.check(ctx, "count"); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE type = ?`, typeName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", typeName, err)
	}
	return n, nil
}

// check reports a cancelled context or a closed store.
func (s *Store) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: context cancelled: %w", op, err)
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return nil
}

func (s *Store) readBody(ctx context.Context, q querier, typeName, id string) ([]byte, error) {
	var body []byte
	err := q.QueryRowContext(ctx, `SELECT body FROM entities WHERE type = ? AND id = ?`, typeName, id).Scan(&body)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Store) rowExists(ctx context.Context, q querier, typeName, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM entities WHERE type = ? AND id = ?`, typeName, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// nextSequence advances and returns the identifier sequence of typeName.
func (s *Store) nextSequence(ctx context.Context, q querier, typeName string) (int64, error) {
	var next int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO sequences (type, last_id) VALUES (?, 1)
		ON CONFLICT (type) DO UPDATE SET last_id = last_id + 1
		RETURNING last_id`, typeName).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("advance %s sequence: %w", typeName, err)
	}
	return next, nil
}
