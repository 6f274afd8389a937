package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type BudgetStatus string

const (
	StatusQuoted     BudgetStatus = "presupuestado"
	StatusInProgress BudgetStatus = "en curso"
	StatusFinished   BudgetStatus = "finalizado"
	StatusRejected   BudgetStatus = "no aceptado"
	StatusCancelled  BudgetStatus = "cancelado"
)

// DefaultMargin is the margin every new budget starts with.
var DefaultMargin = decimal.NewFromInt(15)

type BudgetFilter struct {
	From   *time.Time
	To     *time.Time
	Status BudgetStatus
}

type BudgetStore struct {
	gw Gateway
}

// List returns budgets newest first, the order the tree builder expects.
func (s *BudgetStore) List(ctx context.Context, f BudgetFilter) ([]Budget, error) {
	q := Query{
		Table: TableBudgets,
		Order: []Order{{Column: "created_at", Desc: true}, {Column: "id", Desc: true}},
	}
	if f.From != nil {
		q.Filters = append(q.Filters, Gte("fecha", *f.From))
	}
	if f.To != nil {
		q.Filters = append(q.Filters, Lte("fecha", *f.To))
	}
	if f.Status != "" {
		q.Filters = append(q.Filters, Eq("estado", f.Status))
	}

	var out []Budget
	if err := s.gw.Select(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BudgetStore) Get(ctx context.Context, id int64) (*Budget, error) {
	var out []Budget
	err := s.gw.Select(ctx, Query{
		Table:   TableBudgets,
		Filters: []Filter{Eq("id", id)},
		Limit:   1,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (s *BudgetStore) Children(ctx context.Context, parentID int64) ([]Budget, error) {
	var out []Budget
	err := s.gw.Select(ctx, Query{
		Table:   TableBudgets,
		Filters: []Filter{Eq("presupuesto_padre_id", parentID)},
		Order:   []Order{{Column: "created_at", Desc: true}, {Column: "id", Desc: true}},
	}, &out)
	return out, err
}

// Create inserts b and replaces it with the stored row.
func (s *BudgetStore) Create(ctx context.Context, b *Budget) error {
	values := map[string]any{
		"cliente":         b.Client,
		"descripcion":     b.Description,
		"telefono":        b.Phone,
		"mail":            b.Email,
		"direccion":       b.Address,
		"margen_ganancia": b.Margin,
		"estado":          string(b.Status),
		"fecha":           b.Date,
	}
	if b.ParentID != nil {
		values["presupuesto_padre_id"] = *b.ParentID
	}
	return s.gw.Insert(ctx, TableBudgets, values, b)
}

func (s *BudgetStore) update(ctx context.Context, id int64, patch map[string]any) error {
	n, err := s.gw.Update(ctx, TableBudgets, patch, Eq("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BudgetStore) UpdateStatus(ctx context.Context, id int64, status BudgetStatus) error {
	return s.update(ctx, id, map[string]any{"estado": string(status)})
}

func (s *BudgetStore) UpdateMargin(ctx context.Context, id int64, margin decimal.Decimal) error {
	return s.update(ctx, id, map[string]any{"margen_ganancia": margin})
}

func (s *BudgetStore) UpdateProgress(ctx context.Context, id int64, progress int) error {
	return s.update(ctx, id, map[string]any{"avance_manual": progress})
}

// Delete removes the budget row only. Items, movements and additionals are
// removed by the store's ON DELETE CASCADE constraints.
func (s *BudgetStore) Delete(ctx context.Context, id int64) error {
	n, err := s.gw.Delete(ctx, TableBudgets, Eq("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
