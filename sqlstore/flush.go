package sqlstore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/CaliLuke/go-hydrate/schema"
)

// Flush writes every pending instance and deletion in a single transaction.
// Association targets that are not yet managed, such as instances created by
// nested hydration, are persisted first. On error nothing is written and the
// work stays pending.
func (s *Store) Flush(ctx context.Context) error {
	if err := s.check(ctx, "flush"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 && len(s.removed) == 0 {
		return nil
	}

	// placeholders must be read before the transaction takes the connection
	for _, instance := range s.pending {
		td, err := s.describeInstance(instance)
		if err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		if err := s.load(ctx, td, instance); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("flush: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// cascade; persist appends to s.pending while we walk it
	for i := 0; i < len(s.pending); i++ {
		if err := s.cascade(ctx, tx, s.pending[i]); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}

	for _, r := range s.removed {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE type = ? AND id = ?`, r.typeName, r.id); err != nil {
			return fmt.Errorf("flush: delete %s %s: %w", r.typeName, r.id, err)
		}
	}
	for _, instance := range s.pending {
		td, err := s.describeInstance(instance)
		if err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		body, err := s.encode(td, instance)
		if err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		id := idText(td.IdentifierValue(instance))
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entities (type, id, body) VALUES (?, ?, ?)
			ON CONFLICT (type, id) DO UPDATE SET body = excluded.body`, td.Name, id, body)
		if err != nil {
			return fmt.Errorf("flush: write %s %s: %w", td.Name, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("flush: commit: %w", err)
	}
	s.log.WithFields(logrus.Fields{"written": len(s.pending), "deleted": len(s.removed)}).Debug("flushed")
	s.pending = nil
	s.queued = make(map[any]bool)
	s.removed = nil
	return nil
}

// cascade persists the unmanaged association targets of instance.
func (s *Store) cascade(ctx context.Context, q querier, instance any) error {
	td, err := s.describeInstance(instance)
	if err != nil {
		return err
	}
	for _, ad := range td.Associations {
		target, err := s.describe(ad.Target)
		if err != nil {
			return err
		}
		var members []any
		if ad.Cardinality == schema.ToOne {
			if m := ad.One.Get(instance); m != nil {
				members = []any{m}
			}
		} else {
			members = ad.Many.Members(instance)
		}
		for _, m := range members {
			if s.managed(m) {
				continue
			}
			if err := s.persist(ctx, q, target, m); err != nil {
				return fmt.Errorf("%s.%s: %w", td.Name, ad.Name, err)
			}
		}
	}
	return nil
}
