package store

import (
	"context"
)

// Gateway is the row-level contract with the hosted relational store. Table
// and column names are plain identifiers; values travel as driver values.
type Gateway interface {
	// Select loads the rows matching q into dest, a pointer to a slice.
	Select(ctx context.Context, q Query, dest any) error
	// Insert writes one row and, when dest is not nil, loads the stored row
	// (with generated id and defaults) into dest.
	Insert(ctx context.Context, table string, values map[string]any, dest any) error
	// Update applies patch to every row matching filters and reports how many
	// rows changed. At least one filter is required.
	Update(ctx context.Context, table string, patch map[string]any, filters ...Filter) (int64, error)
	// Delete removes every row matching filters. At least one filter is required.
	Delete(ctx context.Context, table string, filters ...Filter) (int64, error)
	// Call invokes a remote procedure with named arguments and loads its
	// result set into dest, a pointer to a slice.
	Call(ctx context.Context, procedure string, args map[string]any, dest any) error
}

type Op string

const (
	OpEq       Op = "="
	OpNeq      Op = "<>"
	OpGt       Op = ">"
	OpGte      Op = ">="
	OpLt       Op = "<"
	OpLte      Op = "<="
	OpContains Op = "contains"
	OpIn       Op = "in"
	OpIsNull   Op = "is null"
	OpNotNull  Op = "is not null"
)

type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter  { return Filter{Column: column, Op: OpEq, Value: value} }
func Neq(column string, value any) Filter { return Filter{Column: column, Op: OpNeq, Value: value} }
func Gte(column string, value any) Filter { return Filter{Column: column, Op: OpGte, Value: value} }
func Lte(column string, value any) Filter { return Filter{Column: column, Op: OpLte, Value: value} }

// Contains is a case-insensitive substring match.
func Contains(column, substr string) Filter {
	return Filter{Column: column, Op: OpContains, Value: substr}
}

// In matches any of values, which must be a slice.
func In(column string, values any) Filter { return Filter{Column: column, Op: OpIn, Value: values} }

func IsNull(column string) Filter  { return Filter{Column: column, Op: OpIsNull} }
func NotNull(column string) Filter { return Filter{Column: column, Op: OpNotNull} }

type Order struct {
	Column string
	Desc   bool
}

type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
}
