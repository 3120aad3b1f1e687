// Package store persists leads, users, integration logs and sync
// configuration through ent's SQL builder. Every statement commits on its
// own unless a method documents otherwise.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/leadsync/pkg/database"
)

// Store is the persistence gateway used by every service
type Store struct {
	drv dialect.Driver
	now func() time.Time
}

// New creates a store on top of an opened database client
func New(client *database.Client) *Store {
	return &Store{drv: client.Driver, now: time.Now}
}

// NewWithDriver creates a store on any ent driver. Used by tests that
// inject a clock.
func NewWithDriver(drv dialect.Driver, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{drv: drv, now: now}
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

type querier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

func exec(ctx context.Context, q querier, query string, args []any) (int64, error) {
	var res sql.Result
	if err := q.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// queryAll runs a select and hands every row to scan. Rows are closed before
// it returns, so callers may issue new statements from the results.
func queryAll(ctx context.Context, q querier, query string, args []any, scan func(*entsql.Rows) error) error {
	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) withTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rerr)
		}
		return err
	}
	return tx.Commit()
}

func encodeList(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}
