package store

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func init() {
	// modernc.org/sqlite registers itself as "sqlite", which sqlx does not
	// know about.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLGateway implements Gateway over a sqlx connection pool. Postgres is the
// production backend; sqlite is used for local runs and tests and has no
// remote procedures.
type SQLGateway struct {
	db       *sqlx.DB
	postgres bool
}

func NewSQLGateway(db *sqlx.DB) *SQLGateway {
	driver := db.DriverName()
	return &SQLGateway{
		// the store owns the schema; columns we do not map are ignored
		db:       db.Unsafe(),
		postgres: driver == "postgres" || driver == "pgx",
	}
}

func checkIdent(names ...string) error {
	for _, n := range names {
		if !identRe.MatchString(n) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, n)
		}
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// where builds the WHERE clause with "?" placeholders. expand reports
// whether an IN filter needs sqlx.In.
func where(filters []Filter) (clause string, args []any, expand bool, err error) {
	if len(filters) == 0 {
		return "", nil, false, nil
	}

	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		if err := checkIdent(f.Column); err != nil {
			return "", nil, false, err
		}
		switch f.Op {
		case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
			parts = append(parts, fmt.Sprintf("%s %s ?", f.Column, f.Op))
			args = append(args, f.Value)
		case OpContains:
			parts = append(parts, fmt.Sprintf(`LOWER(%s) LIKE LOWER(?) ESCAPE '\'`, f.Column))
			args = append(args, "%"+escapeLike(fmt.Sprint(f.Value))+"%")
		case OpIn:
			v := reflect.ValueOf(f.Value)
			if v.Kind() != reflect.Slice {
				return "", nil, false, fmt.Errorf("in filter on %s needs a slice, got %T", f.Column, f.Value)
			}
			if v.Len() == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			parts = append(parts, fmt.Sprintf("%s IN (?)", f.Column))
			args = append(args, f.Value)
			expand = true
		case OpIsNull, OpNotNull:
			parts = append(parts, fmt.Sprintf("%s %s", f.Column, strings.ToUpper(string(f.Op))))
		default:
			return "", nil, false, fmt.Errorf("unknown filter operator %q", f.Op)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, expand, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (g *SQLGateway) prepare(query string, args []any, expand bool) (string, []any, error) {
	if expand {
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return "", nil, err
		}
	}
	return g.db.Rebind(query), args, nil
}

func (g *SQLGateway) Select(ctx context.Context, q Query, dest any) error {
	if err := checkIdent(q.Table); err != nil {
		return remoteError("select", q.Table, err)
	}

	cols := "*"
	if len(q.Columns) > 0 {
		if err := checkIdent(q.Columns...); err != nil {
			return remoteError("select", q.Table, err)
		}
		cols = strings.Join(q.Columns, ", ")
	}

	clause, args, expand, err := where(q.Filters)
	if err != nil {
		return remoteError("select", q.Table, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", cols, q.Table, clause)

	if len(q.Order) > 0 {
		orders := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			if err := checkIdent(o.Column); err != nil {
				return remoteError("select", q.Table, err)
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			orders = append(orders, o.Column+" "+dir)
		}
		sb.WriteString(" ORDER BY " + strings.Join(orders, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	query, args, err := g.prepare(sb.String(), args, expand)
	if err != nil {
		return remoteError("select", q.Table, err)
	}

	return remoteError("select", q.Table, g.db.SelectContext(ctx, dest, query, args...))
}

// Insert returns the generated id first and then reads the row back, so
// defaults filled in by the store reach dest with their declared types.
func (g *SQLGateway) Insert(ctx context.Context, table string, values map[string]any, dest any) error {
	if err := checkIdent(table); err != nil {
		return remoteError("insert", table, err)
	}
	if len(values) == 0 {
		return remoteError("insert", table, fmt.Errorf("no values"))
	}

	keys := sortedKeys(values)
	if err := checkIdent(keys...); err != nil {
		return remoteError("insert", table, err)
	}

	args := make([]any, len(keys))
	marks := make([]string, len(keys))
	for i, k := range keys {
		args[i] = values[k]
		marks[i] = "?"
	}

	query := g.db.Rebind(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(keys, ", "), strings.Join(marks, ", "),
	))

	var id int64
	if err := g.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return remoteError("insert", table, err)
	}

	if dest == nil {
		return nil
	}

	readBack := g.db.Rebind(fmt.Sprintf("SELECT * FROM %s WHERE id = ?", table))
	return remoteError("insert", table, g.db.GetContext(ctx, dest, readBack, id))
}

func (g *SQLGateway) Update(ctx context.Context, table string, patch map[string]any, filters ...Filter) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, remoteError("update", table, err)
	}
	if len(filters) == 0 {
		return 0, remoteError("update", table, ErrUnfilteredWrite)
	}
	if len(patch) == 0 {
		return 0, remoteError("update", table, fmt.Errorf("empty patch"))
	}

	keys := sortedKeys(patch)
	if err := checkIdent(keys...); err != nil {
		return 0, remoteError("update", table, err)
	}

	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(filters))
	for i, k := range keys {
		sets[i] = k + " = ?"
		args = append(args, patch[k])
	}

	clause, whereArgs, expand, err := where(filters)
	if err != nil {
		return 0, remoteError("update", table, err)
	}
	args = append(args, whereArgs...)

	query, args, err := g.prepare(fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), clause), args, expand)
	if err != nil {
		return 0, remoteError("update", table, err)
	}

	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, remoteError("update", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (g *SQLGateway) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, remoteError("delete", table, err)
	}
	if len(filters) == 0 {
		return 0, remoteError("delete", table, ErrUnfilteredWrite)
	}

	clause, args, expand, err := where(filters)
	if err != nil {
		return 0, remoteError("delete", table, err)
	}

	query, args, err := g.prepare("DELETE FROM "+table+clause, args, expand)
	if err != nil {
		return 0, remoteError("delete", table, err)
	}

	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, remoteError("delete", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Call uses Postgres named notation: SELECT * FROM proc(arg => $1, ...).
func (g *SQLGateway) Call(ctx context.Context, procedure string, args map[string]any, dest any) error {
	if !g.postgres {
		return remoteError("call", procedure, ErrUnsupported)
	}
	if err := checkIdent(procedure); err != nil {
		return remoteError("call", procedure, err)
	}

	keys := sortedKeys(args)
	if err := checkIdent(keys...); err != nil {
		return remoteError("call", procedure, err)
	}

	params := make([]string, len(keys))
	values := make([]any, len(keys))
	for i, k := range keys {
		params[i] = k + " => ?"
		values[i] = pgValue(args[k])
	}

	query := g.db.Rebind(fmt.Sprintf("SELECT * FROM %s(%s)", procedure, strings.Join(params, ", ")))
	return remoteError("call", procedure, g.db.SelectContext(ctx, dest, query, values...))
}

// pgValue wraps slices so lib/pq sends them as Postgres arrays.
func pgValue(v any) any {
	switch s := v.(type) {
	case []int64, []string, []float64, []bool:
		return pq.Array(s)
	}
	return v
}
