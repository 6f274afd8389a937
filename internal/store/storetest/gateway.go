// Package storetest provides an in-memory store.Gateway that records every
// call, for tests of code built on the gateway contract.
package storetest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/farxc/presupuestos-estudio/internal/store"
	"github.com/shopspring/decimal"
)

type Row map[string]any

// Call is one recorded gateway invocation.
type Call struct {
	Op      string
	Target  string
	Values  map[string]any
	Filters []store.Filter
}

// Procedure answers a Call. The returned value is JSON-encoded into dest.
type Procedure func(args map[string]any) (any, error)

type cascade struct {
	child  string
	column string
}

type failure struct {
	err  error
	once bool
}

// Gateway keeps rows as JSON-normalized maps. Every row gets an "id" and a
// strictly increasing "created_at" unless the inserted values set them.
type Gateway struct {
	mu         sync.Mutex
	tables     map[string][]Row
	nextID     map[string]int64
	clock      time.Time
	calls      []Call
	procedures map[string]Procedure
	cascades   map[string][]cascade
	failures   map[string]failure

	// BeforeWrite, when set, runs before every update, insert and delete
	// without the lock held.
	BeforeWrite func(op, table string)
}

func New() *Gateway {
	return &Gateway{
		tables:     make(map[string][]Row),
		nextID:     make(map[string]int64),
		clock:      time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		procedures: make(map[string]Procedure),
		cascades:   make(map[string][]cascade),
		failures:   make(map[string]failure),
	}
}

var _ store.Gateway = (*Gateway)(nil)

func key(op, target string) string { return op + ":" + target }

// Fail makes every op on target fail with err until Clear is called.
func (g *Gateway) Fail(op, target string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[key(op, target)] = failure{err: err}
}

// FailOnce makes the next op on target fail with err.
func (g *Gateway) FailOnce(op, target string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[key(op, target)] = failure{err: err, once: true}
}

func (g *Gateway) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = make(map[string]failure)
}

// Handle registers a remote procedure.
func (g *Gateway) Handle(name string, p Procedure) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.procedures[name] = p
}

// Cascade emulates ON DELETE CASCADE from parent.id to child.column.
func (g *Gateway) Cascade(parent, child, column string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cascades[parent] = append(g.cascades[parent], cascade{child: child, column: column})
}

// Seed inserts rows without recording calls and returns their ids.
func (g *Gateway) Seed(table string, rows ...map[string]any) []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, g.insertLocked(table, r))
	}
	return ids
}

// Rows returns a copy of the stored rows of table.
func (g *Gateway) Rows(table string) []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Row, 0, len(g.tables[table]))
	for _, r := range g.tables[table] {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// CallsTo counts recorded calls with the given op ("select", "insert",
// "update", "delete", "call") on target. An empty target matches any.
func (g *Gateway) CallsTo(op, target string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Op == op && (target == "" || c.Target == target) {
			n++
		}
	}
	return n
}

func (g *Gateway) ResetCalls() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}

func (g *Gateway) record(op, target string, values map[string]any, filters []store.Filter) error {
	g.calls = append(g.calls, Call{Op: op, Target: target, Values: values, Filters: filters})
	k := key(op, target)
	if f, ok := g.failures[k]; ok {
		if f.once {
			delete(g.failures, k)
		}
		return &store.RemoteError{Op: op, Target: target, Code: store.CodeTransport, Message: f.err.Error(), Err: f.err}
	}
	return nil
}

func (g *Gateway) beforeWrite(op, table string) {
	if g.BeforeWrite != nil {
		g.BeforeWrite(op, table)
	}
}

func (g *Gateway) Select(ctx context.Context, q store.Query, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	if err := g.record("select", q.Table, nil, q.Filters); err != nil {
		g.mu.Unlock()
		return err
	}

	var matched []Row
	for _, r := range g.tables[q.Table] {
		ok, err := matchAll(r, q.Filters)
		if err != nil {
			g.mu.Unlock()
			return err
		}
		if ok {
			matched = append(matched, r)
		}
	}
	g.mu.Unlock()

	if len(q.Order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.Order {
				c := compare(matched[i][o.Column], matched[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	if matched == nil {
		matched = []Row{}
	}
	return decode(matched, dest)
}

func (g *Gateway) Insert(ctx context.Context, table string, values map[string]any, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.beforeWrite("insert", table)

	g.mu.Lock()
	if err := g.record("insert", table, values, nil); err != nil {
		g.mu.Unlock()
		return err
	}
	id := g.insertLocked(table, values)
	var row Row
	for _, r := range g.tables[table] {
		if compare(r["id"], id) == 0 {
			row = r
		}
	}
	g.mu.Unlock()

	if dest == nil {
		return nil
	}
	return decode(row, dest)
}

func (g *Gateway) insertLocked(table string, values map[string]any) int64 {
	row := normalizeRow(values)
	if _, ok := row["id"]; !ok {
		g.nextID[table]++
		row["id"] = json.Number(fmt.Sprint(g.nextID[table]))
	} else if n, err := decimal.NewFromString(fmt.Sprint(row["id"])); err == nil && n.IntPart() > g.nextID[table] {
		g.nextID[table] = n.IntPart()
	}
	if _, ok := row["created_at"]; !ok {
		g.clock = g.clock.Add(time.Second)
		row["created_at"] = g.clock.Format(time.RFC3339Nano)
	}
	g.tables[table] = append(g.tables[table], row)

	id, _ := decimal.NewFromString(fmt.Sprint(row["id"]))
	return id.IntPart()
}

func (g *Gateway) Update(ctx context.Context, table string, patch map[string]any, filters ...store.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.beforeWrite("update", table)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("update", table, patch, filters); err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, &store.RemoteError{Op: "update", Target: table, Message: store.ErrUnfilteredWrite.Error(), Err: store.ErrUnfilteredWrite}
	}

	norm := normalizeRow(patch)
	var n int64
	for _, r := range g.tables[table] {
		ok, err := matchAll(r, filters)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		for k, v := range norm {
			r[k] = v
		}
		n++
	}
	return n, nil
}

func (g *Gateway) Delete(ctx context.Context, table string, filters ...store.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.beforeWrite("delete", table)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("delete", table, nil, filters); err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, &store.RemoteError{Op: "delete", Target: table, Message: store.ErrUnfilteredWrite.Error(), Err: store.ErrUnfilteredWrite}
	}
	return g.deleteLocked(table, filters)
}

func (g *Gateway) deleteLocked(table string, filters []store.Filter) (int64, error) {
	var kept []Row
	var removed []any
	for _, r := range g.tables[table] {
		ok, err := matchAll(r, filters)
		if err != nil {
			return 0, err
		}
		if ok {
			removed = append(removed, r["id"])
			continue
		}
		kept = append(kept, r)
	}
	g.tables[table] = kept

	for _, id := range removed {
		for _, c := range g.cascades[table] {
			if _, err := g.deleteLocked(c.child, []store.Filter{store.Eq(c.column, id)}); err != nil {
				return 0, err
			}
		}
	}
	return int64(len(removed)), nil
}

func (g *Gateway) Call(ctx context.Context, procedure string, args map[string]any, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	if err := g.record("call", procedure, args, nil); err != nil {
		g.mu.Unlock()
		return err
	}
	p, ok := g.procedures[procedure]
	g.mu.Unlock()

	if !ok {
		return &store.RemoteError{Op: "call", Target: procedure, Code: store.CodeUnsupported, Message: "procedure not found", Err: store.ErrUnsupported}
	}
	out, err := p(args)
	if err != nil {
		return &store.RemoteError{Op: "call", Target: procedure, Code: store.CodeTransport, Message: err.Error(), Err: err}
	}
	return decode(out, dest)
}

func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return fmt.Sprint(v)
	}
	return out
}

func normalizeRow(values map[string]any) Row {
	row := make(Row, len(values))
	for k, v := range values {
		row[k] = normalize(v)
	}
	return row
}

func decode(src any, dest any) error {
	if dest == nil {
		return nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

func matchAll(r Row, filters []store.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := match(r, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(r Row, f store.Filter) (bool, error) {
	v, present := r[f.Column]
	if !present {
		v = nil
	}
	switch f.Op {
	case store.OpIsNull:
		return v == nil, nil
	case store.OpNotNull:
		return v != nil, nil
	case store.OpContains:
		if v == nil {
			return false, nil
		}
		return strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(fmt.Sprint(f.Value))), nil
	case store.OpIn:
		rv := reflect.ValueOf(f.Value)
		if rv.Kind() != reflect.Slice {
			return false, fmt.Errorf("in filter on %s needs a slice, got %T", f.Column, f.Value)
		}
		for i := 0; i < rv.Len(); i++ {
			if v != nil && compare(v, normalize(rv.Index(i).Interface())) == 0 {
				return true, nil
			}
		}
		return false, nil
	}

	want := normalize(f.Value)
	if v == nil || want == nil {
		// SQL comparisons with NULL never match
		return false, nil
	}
	c := compare(v, want)
	switch f.Op {
	case store.OpEq:
		return c == 0, nil
	case store.OpNeq:
		return c != 0, nil
	case store.OpGt:
		return c > 0, nil
	case store.OpGte:
		return c >= 0, nil
	case store.OpLt:
		return c < 0, nil
	case store.OpLte:
		return c <= 0, nil
	}
	return false, fmt.Errorf("unknown filter operator %q", f.Op)
}

// compare orders numbers numerically, timestamps chronologically and
// everything else as strings. nil sorts first.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	if da, err := decimal.NewFromString(as); err == nil {
		if db, err := decimal.NewFromString(bs); err == nil {
			return da.Cmp(db)
		}
	}
	if ta, err := time.Parse(time.RFC3339Nano, as); err == nil {
		if tb, err := time.Parse(time.RFC3339Nano, bs); err == nil {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(as, bs)
}
