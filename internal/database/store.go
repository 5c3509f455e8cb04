package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/jmoiron/sqlx"
)

// Fields maps column names to values for inserts and updates.
type Fields map[string]any

// Where is a parameterized condition. Clause uses ? placeholders; slice
// arguments are expanded by sqlx.In, so In/NotIn take a slice.
type Where struct {
	Clause string
	Args   []any
}

func Eq(column string, value any) Where {
	return Where{Clause: column + " = ?", Args: []any{value}}
}

func In(column string, values any) Where {
	return Where{Clause: column + " IN (?)", Args: []any{values}}
}

func NotIn(column string, values any) Where {
	return Where{Clause: column + " NOT IN (?)", Args: []any{values}}
}

// Present matches rows where column is neither NULL nor empty.
func Present(column string) Where {
	return Where{Clause: fmt.Sprintf("%s IS NOT NULL AND %s <> ''", column, column)}
}

func Raw(clause string, args ...any) Where {
	return Where{Clause: clause, Args: args}
}

// Differs matches rows where at least one column holds a value other than the
// one in fields. NULL columns count as different from any non-nil value.
func Differs(fields Fields) Where {
	var parts []string
	var args []any
	for _, c := range sortedColumns(fields) {
		v := fields[c]
		if isNil(v) {
			parts = append(parts, c+" IS NOT NULL")
			continue
		}
		parts = append(parts, fmt.Sprintf("(%s IS NULL OR %s <> ?)", c, c))
		args = append(args, v)
	}
	return Where{Clause: strings.Join(parts, " OR "), Args: args}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// And joins conditions with AND, parenthesizing each side.
func (w Where) And(others ...Where) Where {
	parts := []string{"(" + w.Clause + ")"}
	args := append([]any{}, w.Args...)
	for _, o := range others {
		parts = append(parts, "("+o.Clause+")")
		args = append(args, o.Args...)
	}
	return Where{Clause: strings.Join(parts, " AND "), Args: args}
}

type QueryOptions struct {
	OrderBy string
	Limit   int
}

// Store provides the getOne/getAll/insert/update/upsert primitives the
// reconcilers write through. Every statement is parameterized; each write is
// its own autocommitted statement.
type Store struct {
	DB  *sqlx.DB
	Now func() time.Time
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{DB: db, Now: time.Now}
}

// Ping verifies the connection, returning model.ErrConnection on failure.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConnection, err)
	}
	return nil
}

func (s *Store) GetOne(ctx context.Context, dest any, table string, columns []string, where Where) (bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", strings.Join(columns, ", "), table, where.Clause)
	q, args, err := s.bind(query, where.Args)
	if err != nil {
		return false, err
	}

	err = s.DB.GetContext(ctx, dest, q, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get %s: %w", table, err)
	}
	return true, nil
}

func (s *Store) GetAll(ctx context.Context, dest any, table string, columns []string, where Where, opts QueryOptions) error {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table)
	if where.Clause != "" {
		query += " WHERE " + where.Clause
	}
	if opts.OrderBy != "" {
		query += " ORDER BY " + opts.OrderBy
	}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	q, args, err := s.bind(query, where.Args)
	if err != nil {
		return err
	}
	if err := s.DB.SelectContext(ctx, dest, q, args...); err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	return nil
}

// Insert writes one row, stamping created_at and updated_at.
func (s *Store) Insert(ctx context.Context, table string, fields Fields) error {
	now := s.Now().UTC()
	row := Fields{"created_at": now, "updated_at": now}
	for k, v := range fields {
		row[k] = v
	}

	cols := sortedColumns(row)
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		marks[i] = "?"
		args[i] = row[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := s.DB.ExecContext(ctx, s.DB.Rebind(query), args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// Update sets fields on every row matching where, stamping updated_at, and
// returns the affected row count. Some drivers (mysql) report only rows whose
// values actually changed.
func (s *Store) Update(ctx context.Context, table string, where Where, fields Fields) (int64, error) {
	row := Fields{"updated_at": s.Now().UTC()}
	for k, v := range fields {
		row[k] = v
	}

	cols := sortedColumns(row)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(where.Args))
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, row[c])
	}
	args = append(args, where.Args...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where.Clause)
	q, bound, err := s.bind(query, args)
	if err != nil {
		return 0, err
	}

	res, err := s.DB.ExecContext(ctx, q, bound...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: rows affected: %w", table, err)
	}
	return n, nil
}

// Upsert inserts insertFields when no row matches where, otherwise applies
// updateFields to the matching rows that differ from them. The resulting row is
// read back into dest. found is false when the read-back returned nothing.
func (s *Store) Upsert(ctx context.Context, dest any, table string, columns []string, insertFields, updateFields Fields, where Where) (inserted, found bool, err error) {
	exists, err := s.GetOne(ctx, dest, table, columns, where)
	if err != nil {
		return false, false, err
	}

	if !exists {
		if err := s.Insert(ctx, table, insertFields); err != nil {
			return false, false, err
		}
		inserted = true
	} else if len(updateFields) > 0 {
		if _, err := s.Update(ctx, table, where.And(Differs(updateFields)), updateFields); err != nil {
			return false, false, err
		}
	}

	found, err = s.GetOne(ctx, dest, table, columns, where)
	if err != nil {
		return inserted, false, err
	}
	return inserted, found, nil
}

func (s *Store) bind(query string, args []any) (string, []any, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("bind %q: %w", query, err)
	}
	return s.DB.Rebind(q), a, nil
}

func sortedColumns(f Fields) []string {
	cols := make([]string, 0, len(f))
	for k := range f {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
