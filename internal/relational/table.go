package relational

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Table is a typed handle on one relational table. T is a struct whose
// exported fields map to columns via `db` tags (field name lowercased when
// untagged).
type Table[T any] struct {
	db      *DB
	name    string
	pk      string
	columns []string
}

// NewTable creates a table handle. pk is the primary key column name.
func NewTable[T any](db *DB, name, pk string) (*Table[T], error) {
	cols, err := columnsOf[T]()
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", name, err)
	}
	return &Table[T]{db: db, name: name, pk: pk, columns: cols}, nil
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// PK returns the primary key column name.
func (t *Table[T]) PK() string { return t.pk }

// Page returns up to limit rows starting at offset, ordered by primary key
// so that repeated paging traverses the table in a stable total order.
// limit < 0 returns everything from offset on.
func (t *Table[T]) Page(ctx context.Context, offset, limit int) ([]T, error) {
	sql := fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY %s LIMIT $1 OFFSET $2",
		strings.Join(t.columns, ", "), t.name, t.pk,
	)
	var lim any
	if limit >= 0 {
		lim = limit
	}
	rows, err := t.db.pool.Query(ctx, sql, lim, offset)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", t.name, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[T])
	if err != nil {
		return nil, fmt.Errorf("page %s: scan: %w", t.name, err)
	}
	return out, nil
}

// Count returns the total number of rows.
func (t *Table[T]) Count(ctx context.Context) (int, error) {
	var n int
	sql := fmt.Sprintf("SELECT count(*) FROM %s", t.name)
	if err := t.db.pool.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

// ByPKs builds a lazy query scoped to the given primary keys. When keepOrder
// is set the rows come back in the order of pks, via a single CASE expression
// mapping each key to its position; otherwise in the backend's natural order.
func (t *Table[T]) ByPKs(pks []string, keepOrder bool) *Query[T] {
	var b strings.Builder
	args := make([]any, 0, len(pks)+1)

	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s::text = ANY($1)",
		strings.Join(t.columns, ", "), t.name, t.pk)
	args = append(args, pks)

	if keepOrder && len(pks) > 0 {
		fmt.Fprintf(&b, " ORDER BY CASE %s::text", t.pk)
		for pos, pk := range pks {
			args = append(args, pk)
			fmt.Fprintf(&b, " WHEN $%d THEN %d", len(args), pos)
		}
		b.WriteString(" END")
	}

	return &Query[T]{table: t, sql: b.String(), args: args}
}

// Query is a lazily executed row query.
type Query[T any] struct {
	table *Table[T]
	sql   string
	args  []any
}

// SQL returns the query text and arguments.
func (q *Query[T]) SQL() (string, []any) {
	return q.sql, q.args
}

// Fetch executes the query and scans all rows.
func (q *Query[T]) Fetch(ctx context.Context) ([]T, error) {
	rows, err := q.table.db.pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", q.table.name, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[T])
	if err != nil {
		return nil, fmt.Errorf("fetch %s: scan: %w", q.table.name, err)
	}
	return out, nil
}

// columnsOf derives column names from T's exported fields.
func columnsOf[T any]() ([]string, error) {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", rt)
	}

	var cols []string
	for i := range rt.NumField() {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("db")
		switch tag {
		case "-":
			continue
		case "":
			cols = append(cols, strings.ToLower(f.Name))
		default:
			cols = append(cols, strings.SplitN(tag, ",", 2)[0])
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("type %s has no mappable columns", rt)
	}
	return cols, nil
}
