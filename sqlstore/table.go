// Package sqlstore backs serializers with a database/sql table. A Table is a shape.Queryset
// for related-field lookups and uniqueness checks, and a shape.Persister and shape.Deleter
// for Save and bulk updates. Rows are returned as *shape.OrderedMap in column order.
//
//	db, _ := sql.Open("sqlite3", "app.db")
//	artists, err := sqlstore.NewTable(db, "artists", []string{"id", "name", "slug"})
//	schema := dsl.Serializer("Artist").
//		Field("name", dsl.Char(dsl.Validators(validators.Unique(artists, "name")))).
//		Persister(artists).
//		MustBuild()
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	shape "github.com/reoring/shape"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrUnknownColumn is returned when a lookup or write names a column the table was not
// declared with.
var ErrUnknownColumn = errors.New("sqlstore: unknown column")

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Question renders "?" parameters (SQLite, MySQL).
func Question(int) string { return "?" }

// Dollar renders "$n" parameters (PostgreSQL).
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

type Option func(*Table)

// PrimaryKey names the identity column. Defaults to "id".
func PrimaryKey(col string) Option { return func(t *Table) { t.pk = col } }

// Placeholders selects the bind parameter syntax. Defaults to Question.
func Placeholders(p Placeholder) Option { return func(t *Table) { t.ph = p } }

// Table is a view over one SQL table with a fixed column list.
type Table struct {
	db      *sql.DB
	name    string
	columns []string
	known   map[string]bool
	pk      string
	ph      Placeholder
}

// NewTable validates the table and column identifiers; they are interpolated into SQL.
func NewTable(db *sql.DB, name string, columns []string, opts ...Option) (*Table, error) {
	t := &Table{db: db, name: name, columns: columns, known: make(map[string]bool, len(columns)), pk: "id", ph: Question}
	for _, opt := range opts {
		opt(t)
	}
	if !identifier.MatchString(name) {
		return nil, fmt.Errorf("sqlstore: invalid table name %q", name)
	}
	for _, c := range columns {
		if !identifier.MatchString(c) {
			return nil, fmt.Errorf("sqlstore: invalid column name %q", c)
		}
		t.known[c] = true
	}
	if !t.known[t.pk] {
		return nil, fmt.Errorf("%w: primary key %q", ErrUnknownColumn, t.pk)
	}
	return t, nil
}

func (t *Table) Name() string { return t.name }

// Get returns the single row whose column field equals value.
func (t *Table) Get(ctx context.Context, field string, value any) (any, error) {
	if !t.known[field] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, field)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s LIMIT 2", t.selectList(), t.name, field, t.ph(1))
	rows, err := t.query(ctx, q, value)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, shape.ErrNotFound
	case 1:
		return rows[0], nil
	default:
		return nil, shape.ErrMultipleFound
	}
}

// All returns every row ordered by primary key.
func (t *Table) All(ctx context.Context) ([]any, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", t.selectList(), t.name, t.pk)
	rows, err := t.query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

// Create inserts data and returns the stored row. Without a primary key in data the
// driver's last insert id is used to read the row back.
func (t *Table) Create(ctx context.Context, data map[string]any) (any, error) {
	cols, args, err := t.assignments(data)
	if err != nil {
		return nil, err
	}
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = t.ph(i + 1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(cols, ", "), strings.Join(marks, ", "))
	res, err := t.exec(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	id, ok := data[t.pk]
	if !ok {
		if id, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("sqlstore: %s: last insert id: %w", t.name, err)
		}
	}
	return t.Get(ctx, t.pk, id)
}

// Update writes data to the row identified by the primary key of instance and returns the
// stored row.
func (t *Table) Update(ctx context.Context, instance any, data map[string]any) (any, error) {
	id, err := t.identity(instance)
	if err != nil {
		return nil, err
	}
	cols, args, err := t.assignments(data)
	if err != nil {
		return nil, err
	}
	if len(cols) > 0 {
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = c + " = " + t.ph(i+1)
		}
		q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", t.name, strings.Join(sets, ", "), t.pk, t.ph(len(cols)+1))
		if _, err := t.exec(ctx, q, append(args, id)...); err != nil {
			return nil, err
		}
		if v, ok := data[t.pk]; ok {
			id = v
		}
	}
	return t.Get(ctx, t.pk, id)
}

// Delete removes the row identified by the primary key of instance.
func (t *Table) Delete(ctx context.Context, instance any) error {
	id, err := t.identity(instance)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", t.name, t.pk, t.ph(1))
	res, err := t.exec(ctx, q, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return shape.ErrNotFound
	}
	return nil
}

func (t *Table) identity(instance any) (any, error) {
	id, res, err := shape.ParsePath(t.pk).Resolve(instance)
	if err != nil {
		return nil, err
	}
	if res != shape.Found || id == nil {
		return nil, fmt.Errorf("sqlstore: %s: instance has no %q", t.name, t.pk)
	}
	return id, nil
}

// assignments orders the columns of data by declaration.
func (t *Table) assignments(data map[string]any) ([]string, []any, error) {
	for k := range data {
		if !t.known[k] {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownColumn, k)
		}
	}
	var cols []string
	var args []any
	for _, c := range t.columns {
		v, ok := data[c]
		if !ok {
			continue
		}
		switch v.(type) {
		case map[string]any, []any, *shape.OrderedMap:
			return nil, nil, fmt.Errorf("sqlstore: %s.%s: nested value of type %T", t.name, c, v)
		}
		cols = append(cols, c)
		args = append(args, v)
	}
	return cols, args, nil
}

func (t *Table) selectList() string { return strings.Join(t.columns, ", ") }

func (t *Table) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	zerolog.Ctx(ctx).Debug().Str("table", t.name).Str("sql", q).Msg("exec")
	res, err := t.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %s: %w", t.name, err)
	}
	return res, nil
}

func (t *Table) query(ctx context.Context, q string, args ...any) ([]*shape.OrderedMap, error) {
	zerolog.Ctx(ctx).Debug().Str("table", t.name).Str("sql", q).Msg("query")
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []*shape.OrderedMap
	for rows.Next() {
		vals := make([]any, len(t.columns))
		ptrs := make([]any, len(t.columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlstore: %s: scan: %w", t.name, err)
		}
		row := shape.NewOrderedMap(len(t.columns))
		for i, c := range t.columns {
			if b, ok := vals[i].([]byte); ok {
				vals[i] = string(b)
			}
			row.Set(c, vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: %s: %w", t.name, err)
	}
	return out, nil
}
