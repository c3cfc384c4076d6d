// Package store implements the Remote Store: a PostgreSQL-backed,
// table-oriented gateway offering ordered select, insert-returning-id,
// update-by-id and delete-by-id. One generic Table handles every entity
// type; per-entity knowledge lives in a TableSpec.
//
// Any database failure is returned as *common.RemoteError so callers can
// surface the message verbatim without caring which backend call failed.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"context"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/dbx"
)

// RowScanner is the subset of *sql.Rows / *sql.Row used by spec scan funcs.
type RowScanner interface {
	Scan(dest ...any) error
}

// TableSpec describes how one entity type maps onto its table.
//
// Columns excludes the id column; Args must produce values for Columns in
// the same order. ScanRow scans id followed by Columns. SortBy is the
// server-side default ordering (always ascending).
type TableSpec[E any] struct {
	Table   string
	Columns []string
	SortBy  string
	ScanRow func(rs RowScanner) (E, error)
	Args    func(e E) []any
	ID      func(e E) string
	SetID   func(e E, id string) E
}

// Table is a Remote Store gateway for one entity type.
type Table[E any] struct {
	db   dbx.DBTX
	spec TableSpec[E]
}

// NewTable binds spec to the given DBTX.
func NewTable[E any](db dbx.DBTX, spec TableSpec[E]) *Table[E] {
	return &Table[E]{db: db, spec: spec}
}

// Spec returns the table spec the gateway was built with.
func (t *Table[E]) Spec() TableSpec[E] { return t.spec }

func (t *Table[E]) remote(op string, err error) error {
	return common.NewRemoteError(fmt.Sprintf("%s %s: %v", op, t.spec.Table, err), err)
}

// Select returns all rows ordered by the spec's sort field, ascending.
func (t *Table[E]) Select(ctx context.Context) ([]E, error) {
	query := fmt.Sprintf(`SELECT id, %s FROM %s ORDER BY %s ASC`,
		strings.Join(t.spec.Columns, ", "), t.spec.Table, t.spec.SortBy)

	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, t.remote("select", err)
	}
	defer rows.Close()

	var result []E
	for rows.Next() {
		item, err := t.spec.ScanRow(rows)
		if err != nil {
			return nil, t.remote("select", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, t.remote("select", err)
	}
	return result, nil
}

// Insert persists a draft (ID ignored) and returns the entity with the
// store-assigned id filled in.
func (t *Table[E]) Insert(ctx context.Context, draft E) (E, error) {
	placeholders := make([]string, len(t.spec.Columns))
	for i := range t.spec.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		t.spec.Table, strings.Join(t.spec.Columns, ", "), strings.Join(placeholders, ", "))

	var id string
	if err := t.db.QueryRowContext(ctx, query, t.spec.Args(draft)...).Scan(&id); err != nil {
		var zero E
		return zero, t.remote("insert", err)
	}
	return t.spec.SetID(draft, id), nil
}

// Update rewrites all columns of the row matching entity's id. A missing
// row yields a RemoteError wrapping common.ErrNotFound.
func (t *Table[E]) Update(ctx context.Context, entity E) error {
	assignments := make([]string, len(t.spec.Columns))
	for i, col := range t.spec.Columns {
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`,
		t.spec.Table, strings.Join(assignments, ", "), len(t.spec.Columns)+1)

	args := append(t.spec.Args(entity), t.spec.ID(entity))
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return t.remote("update", err)
	}
	return t.checkAffected("update", res)
}

// Delete removes the row with the given id. A missing row yields a
// RemoteError wrapping common.ErrNotFound.
func (t *Table[E]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.spec.Table)
	res, err := t.db.ExecContext(ctx, query, id)
	if err != nil {
		return t.remote("delete", err)
	}
	return t.checkAffected("delete", res)
}

func (t *Table[E]) checkAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return t.remote(op, err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return t.remote(op, common.ErrNotFound)
	default:
		return t.remote(op, fmt.Errorf("unexpected rows affected: %d", n))
	}
}

// IsNotFound reports whether err is a missing-row failure from Update or
// Delete.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
