package store

import (
	"context"
)

type MovementStore struct {
	gw Gateway
}

func (s *MovementStore) Collections(ctx context.Context, budgetID int64) ([]Collection, error) {
	var out []Collection
	err := s.gw.Select(ctx, Query{
		Table:   TableCollections,
		Filters: []Filter{Eq("presupuesto_id", budgetID)},
		Order:   []Order{{Column: "fecha", Desc: true}, {Column: "id", Desc: true}},
	}, &out)
	return out, err
}

func (s *MovementStore) AddCollection(ctx context.Context, c *Collection) error {
	return s.gw.Insert(ctx, TableCollections, map[string]any{
		"presupuesto_id": c.BudgetID,
		"descripcion":    c.Description,
		"monto":          c.Amount,
		"fecha":          c.Date,
	}, c)
}

func (s *MovementStore) DeleteCollection(ctx context.Context, id int64) error {
	return deleteByID(ctx, s.gw, TableCollections, id)
}

func (s *MovementStore) Expenses(ctx context.Context, budgetID int64) ([]Expense, error) {
	var out []Expense
	err := s.gw.Select(ctx, Query{
		Table:   TableExpenses,
		Filters: []Filter{Eq("presupuesto_id", budgetID)},
		Order:   []Order{{Column: "fecha", Desc: true}, {Column: "id", Desc: true}},
	}, &out)
	return out, err
}

func (s *MovementStore) AddExpense(ctx context.Context, e *Expense) error {
	return s.gw.Insert(ctx, TableExpenses, map[string]any{
		"presupuesto_id": e.BudgetID,
		"categoria":      e.Category,
		"descripcion":    e.Description,
		"monto":          e.Amount,
		"fecha":          e.Date,
	}, e)
}

func (s *MovementStore) DeleteExpense(ctx context.Context, id int64) error {
	return deleteByID(ctx, s.gw, TableExpenses, id)
}

func deleteByID(ctx context.Context, gw Gateway, table string, id int64) error {
	n, err := gw.Delete(ctx, table, Eq("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
