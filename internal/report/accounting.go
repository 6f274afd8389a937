package report

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/farxc/presupuestos-estudio/internal/auth"
	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/store"
	"github.com/farxc/presupuestos-estudio/internal/validation"
)

// Overview sections, used as keys of Overview.Errors.
const (
	SectionCash          = "saldo_caja"
	SectionBalances      = "saldos_proyectos"
	SectionFixedExpenses = "gastos_fijos"
	SectionPayments      = "pagos"
	SectionHistory       = "historial"
)

type Period struct {
	Month int `json:"mes"`
	Year  int `json:"anio"`
}

// ParsePeriod reads mes and anio query values. Blank values default to the
// month of now.
func ParsePeriod(month, year string, now time.Time) (Period, error) {
	p := Period{Month: int(now.Month()), Year: now.Year()}

	if s := strings.TrimSpace(month); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			return p, &budget.ValidationError{Field: "mes", Message: "must be between 1 and 12"}
		}
		p.Month = m
	}
	if s := strings.TrimSpace(year); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 2000 || y > 9999 {
			return p, &budget.ValidationError{Field: "anio", Message: "must be a four digit year"}
		}
		p.Year = y
	}
	return p, nil
}

// FixedExpenseView is an active fixed expense with its payments of the period.
type FixedExpenseView struct {
	store.FixedExpense
	Payments []store.FixedExpensePayment `json:"pagos"`
	Paid     decimal.Decimal             `json:"total_pagado"`
}

// Overview is the accounting page. A section that could not be loaded is
// left empty and its error is reported under Errors.
type Overview struct {
	Period        Period                      `json:"periodo"`
	CashBalance   decimal.Decimal             `json:"saldo_caja"`
	Balances      store.ProjectBalances       `json:"saldos_proyectos"`
	History       []store.MonthlyFixedSpend   `json:"historial"`
	FixedExpenses []FixedExpenseView          `json:"gastos_fijos"`
	Other         []store.FixedExpensePayment `json:"otros_pagos"`
	PaidInPeriod  decimal.Decimal             `json:"total_pagado_periodo"`
	Errors        map[string]string           `json:"errores,omitempty"`
}

type Accounting struct {
	store   *store.Storage
	log     *logger.Logger
	now     func() time.Time
	changed func()
}

func NewAccounting(s *store.Storage, log *logger.Logger) *Accounting {
	return &Accounting{store: s, log: log, now: time.Now, changed: func() {}}
}

// OnChange sets the callback run after each successful payment write.
func (a *Accounting) OnChange(fn func()) { a.changed = fn }

// Overview fetches every section of the period in parallel.
func (a *Accounting) Overview(ctx context.Context, sess auth.Session, p Period) (*Overview, error) {
	const component = "Accounting"

	if err := auth.Require(sess, auth.PermViewAccounting); err != nil {
		return nil, err
	}

	ov := &Overview{
		Period:        p,
		CashBalance:   decimal.Zero,
		Balances:      store.ProjectBalances{TotalReceivable: decimal.Zero, TotalPayable: decimal.Zero},
		History:       []store.MonthlyFixedSpend{},
		FixedExpenses: []FixedExpenseView{},
		Other:         []store.FixedExpensePayment{},
		PaidInPeriod:  decimal.Zero,
	}

	var (
		mu       sync.Mutex
		fixed    []store.FixedExpense
		payments []store.FixedExpensePayment
	)
	fail := func(section string, err error) error {
		// cancellation is not a section failure
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		a.log.Warn(component, "Section %s unavailable: %v", section, err)
		mu.Lock()
		defer mu.Unlock()
		if ov.Errors == nil {
			ov.Errors = make(map[string]string)
		}
		ov.Errors[section] = err.Error()
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := a.store.Accounting.CashBalance(gctx)
		if err != nil {
			return fail(SectionCash, err)
		}
		ov.CashBalance = v
		return nil
	})
	g.Go(func() error {
		v, err := a.store.Accounting.ProjectBalances(gctx)
		if err != nil {
			return fail(SectionBalances, err)
		}
		ov.Balances = v
		return nil
	})
	g.Go(func() error {
		v, err := a.store.Accounting.FixedSpendHistory(gctx)
		if err != nil {
			return fail(SectionHistory, err)
		}
		if v != nil {
			ov.History = v
		}
		return nil
	})
	g.Go(func() error {
		v, err := a.store.Accounting.ActiveFixedExpenses(gctx)
		if err != nil {
			return fail(SectionFixedExpenses, err)
		}
		fixed = v
		return nil
	})
	g.Go(func() error {
		v, err := a.store.Accounting.Payments(gctx, p.Month, p.Year)
		if err != nil {
			return fail(SectionPayments, err)
		}
		payments = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byExpense := make(map[int64][]store.FixedExpensePayment)
	for _, pay := range payments {
		byExpense[pay.FixedExpenseID] = append(byExpense[pay.FixedExpenseID], pay)
		ov.PaidInPeriod = ov.PaidInPeriod.Add(pay.Amount)
	}
	for _, fe := range fixed {
		view := FixedExpenseView{FixedExpense: fe, Payments: byExpense[fe.ID], Paid: decimal.Zero}
		if view.Payments == nil {
			view.Payments = []store.FixedExpensePayment{}
		}
		for _, pay := range view.Payments {
			view.Paid = view.Paid.Add(pay.Amount)
		}
		delete(byExpense, fe.ID)
		ov.FixedExpenses = append(ov.FixedExpenses, view)
	}
	for _, pay := range payments {
		if _, ok := byExpense[pay.FixedExpenseID]; ok {
			ov.Other = append(ov.Other, pay)
		}
	}
	return ov, nil
}

type PaymentInput struct {
	FixedExpenseID int64
	Amount         decimal.Decimal
	// PaidAt defaults to today. Its month and year file the payment.
	PaidAt *time.Time
	Note   string
}

func (a *Accounting) payment(in PaymentInput) (*store.FixedExpensePayment, error) {
	if !in.Amount.IsPositive() {
		return nil, &budget.ValidationError{Field: "monto_pagado", Message: "must be greater than zero"}
	}
	paid := store.Today(a.now())
	if in.PaidAt != nil {
		paid = store.Today(*in.PaidAt)
	}
	return &store.FixedExpensePayment{
		FixedExpenseID: in.FixedExpenseID,
		Amount:         in.Amount,
		PaidAt:         paid,
		Month:          int(paid.Month()),
		Year:           paid.Year(),
		Note:           validation.OptionalText(in.Note),
	}, nil
}

func (a *Accounting) RegisterPayment(ctx context.Context, sess auth.Session, in PaymentInput) (*store.FixedExpensePayment, error) {
	const component = "Accounting"

	if err := auth.Require(sess, auth.PermViewAccounting); err != nil {
		return nil, err
	}
	if in.FixedExpenseID <= 0 {
		return nil, &budget.ValidationError{Field: "gasto_fijo_id", Message: "is required"}
	}
	p, err := a.payment(in)
	if err != nil {
		return nil, err
	}
	if err := a.store.Accounting.AddPayment(ctx, p); err != nil {
		a.log.Error(component, "Failed to register payment for fixed expense %d: %v", in.FixedExpenseID, err)
		return nil, err
	}
	a.log.Info(component, "Registered payment %d of %s for %02d/%d", p.ID, p.Amount, p.Month, p.Year)
	a.changed()
	return p, nil
}

func (a *Accounting) UpdatePayment(ctx context.Context, sess auth.Session, id int64, in PaymentInput) (*store.FixedExpensePayment, error) {
	if err := auth.Require(sess, auth.PermViewAccounting); err != nil {
		return nil, err
	}
	p, err := a.payment(in)
	if err != nil {
		return nil, err
	}
	p.ID = id
	if err := a.store.Accounting.UpdatePayment(ctx, p); err != nil {
		if store.IsNotFound(err) {
			return nil, &budget.NotFoundError{Entity: "payment", ID: id}
		}
		return nil, err
	}
	a.changed()
	return p, nil
}

func (a *Accounting) DeletePayment(ctx context.Context, sess auth.Session, id int64) error {
	if err := auth.Require(sess, auth.PermViewAccounting); err != nil {
		return err
	}
	if err := a.store.Accounting.DeletePayment(ctx, id); err != nil {
		if store.IsNotFound(err) {
			return &budget.NotFoundError{Entity: "payment", ID: id}
		}
		return err
	}
	a.changed()
	return nil
}
