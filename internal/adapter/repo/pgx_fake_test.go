package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fundraiser/internal/infra"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

func valuesRow(values ...any) simpleRow {
	return simpleRow{scan: func(dest ...any) error { return assign(dest, values) }}
}

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

type sliceRows struct {
	testRowsBase
	data [][]any
	idx  int
}

func (r *sliceRows) Close() {}

func (r *sliceRows) Err() error { return nil }

func (r *sliceRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *sliceRows) Scan(dest ...any) error {
	return assign(dest, r.data[r.idx-1])
}

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *uuid.UUID:
			*d = v.(uuid.UUID)
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		case *int:
			*d = v.(int)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

type execCall struct {
	query string
	args  []any
}

// fakeDB records statements and answers queries by their text. Statements
// executed inside a failed InTx are discarded, mimicking a rollback.
type fakeDB struct {
	rows      map[string]func(args []any) pgx.Row
	queries   map[string]func(args []any) (pgx.Rows, error)
	execErr   map[string]error
	execs     []execCall
	commits   int
	rollbacks int
}

var _ infra.TxRunner = (*fakeDB)(nil)

func newFakeDB() *fakeDB {
	return &fakeDB{
		rows:    map[string]func(args []any) pgx.Row{},
		queries: map[string]func(args []any) (pgx.Rows, error){},
		execErr: map[string]error{},
	}
}

func (d *fakeDB) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if err := d.execErr[query]; err != nil {
		return pgconn.CommandTag{}, err
	}
	d.execs = append(d.execs, execCall{query: query, args: args})
	return pgconn.NewCommandTag("OK"), nil
}

func (d *fakeDB) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if fn, ok := d.rows[query]; ok {
		return fn(args)
	}
	return simpleRow{}
}

func (d *fakeDB) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	if fn, ok := d.queries[query]; ok {
		return fn(args)
	}
	return &sliceRows{}, nil
}

func (d *fakeDB) InTx(_ context.Context, fn func(q infra.SQLExecutor) error) error {
	mark := len(d.execs)
	if err := fn(d); err != nil {
		d.execs = d.execs[:mark]
		d.rollbacks++
		return err
	}
	d.commits++
	return nil
}
