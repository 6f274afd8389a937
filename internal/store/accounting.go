package store

import (
	"context"

	"github.com/shopspring/decimal"
)

type AccountingStore struct {
	gw Gateway
}

func (s *AccountingStore) ActiveFixedExpenses(ctx context.Context) ([]FixedExpense, error) {
	var out []FixedExpense
	err := s.gw.Select(ctx, Query{
		Table:   TableFixedExpenses,
		Filters: []Filter{Eq("activo", true)},
		Order:   []Order{{Column: "nombre"}},
	}, &out)
	return out, err
}

func (s *AccountingStore) Payments(ctx context.Context, month, year int) ([]FixedExpensePayment, error) {
	var out []FixedExpensePayment
	err := s.gw.Select(ctx, Query{
		Table:   TablePayments,
		Filters: []Filter{Eq("mes", month), Eq("anio", year)},
		Order:   []Order{{Column: "fecha_pago"}},
	}, &out)
	return out, err
}

func (s *AccountingStore) AddPayment(ctx context.Context, p *FixedExpensePayment) error {
	return s.gw.Insert(ctx, TablePayments, map[string]any{
		"gasto_fijo_id":         p.FixedExpenseID,
		"monto_pagado":          p.Amount,
		"fecha_pago":            p.PaidAt,
		"mes":                   p.Month,
		"anio":                  p.Year,
		"descripcion_adicional": p.Note,
	}, p)
}

// UpdatePayment rewrites the amount, date, period and note of payment p.ID.
func (s *AccountingStore) UpdatePayment(ctx context.Context, p *FixedExpensePayment) error {
	n, err := s.gw.Update(ctx, TablePayments, map[string]any{
		"monto_pagado":          p.Amount,
		"fecha_pago":            p.PaidAt,
		"mes":                   p.Month,
		"anio":                  p.Year,
		"descripcion_adicional": p.Note,
	}, Eq("id", p.ID))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AccountingStore) DeletePayment(ctx context.Context, id int64) error {
	return deleteByID(ctx, s.gw, TablePayments, id)
}

// CashBalance calls calcular_saldo_caja_actual, which returns a single numeric.
func (s *AccountingStore) CashBalance(ctx context.Context) (decimal.Decimal, error) {
	var out []decimal.NullDecimal
	if err := s.gw.Call(ctx, ProcCashBalance, nil, &out); err != nil {
		return decimal.Zero, err
	}
	if len(out) == 0 || !out[0].Valid {
		return decimal.Zero, nil
	}
	return out[0].Decimal, nil
}

func (s *AccountingStore) ProjectBalances(ctx context.Context) (ProjectBalances, error) {
	var out []ProjectBalances
	if err := s.gw.Call(ctx, ProcProjectBalances, nil, &out); err != nil {
		return ProjectBalances{}, err
	}
	if len(out) == 0 {
		return ProjectBalances{}, nil
	}
	return out[0], nil
}

func (s *AccountingStore) FixedSpendHistory(ctx context.Context) ([]MonthlyFixedSpend, error) {
	var out []MonthlyFixedSpend
	err := s.gw.Call(ctx, ProcFixedSpendHistory, nil, &out)
	return out, err
}
