package store

import (
	"context"
)

type ItemStore struct {
	gw Gateway
}

func (s *ItemStore) ListByBudget(ctx context.Context, budgetID int64) ([]Item, error) {
	var out []Item
	err := s.gw.Select(ctx, Query{
		Table:   TableItems,
		Filters: []Filter{Eq("presupuesto_id", budgetID)},
		Order:   []Order{{Column: "created_at"}, {Column: "id"}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ItemStore) Get(ctx context.Context, id int64) (*Item, error) {
	var out []Item
	err := s.gw.Select(ctx, Query{Table: TableItems, Filters: []Filter{Eq("id", id)}, Limit: 1}, &out)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (s *ItemStore) Create(ctx context.Context, item *Item) error {
	values := map[string]any{
		"presupuesto_id":      item.BudgetID,
		"descripcion":         item.Description,
		"categoria":           item.Category,
		"costo":               item.Cost,
		"moneda":              string(item.Currency),
		"descripcion_cliente": item.ClientDescription,
	}
	return s.gw.Insert(ctx, TableItems, values, item)
}

// SetClientDescription touches only descripcion_cliente.
func (s *ItemStore) SetClientDescription(ctx context.Context, id int64, text *string) error {
	n, err := s.gw.Update(ctx, TableItems, map[string]any{"descripcion_cliente": text}, Eq("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
