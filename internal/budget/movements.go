package budget

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farxc/presupuestos-estudio/internal/auth"
	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/farxc/presupuestos-estudio/internal/store"
	"github.com/farxc/presupuestos-estudio/internal/validation"
)

// ProjectSummary is the money picture of one project: what was quoted,
// collected from the client and spent. Balance is price minus spent.
type ProjectSummary struct {
	Budget      store.Budget       `json:"presupuesto"`
	Price       decimal.Decimal    `json:"precio"`
	Collected   decimal.Decimal    `json:"total_cobrado"`
	Spent       decimal.Decimal    `json:"total_gastado"`
	Balance     decimal.Decimal    `json:"saldo"`
	Extras      []store.Expense    `json:"gastos_adicionales"`
	Collections []store.Collection `json:"cobros"`
	Expenses    []store.Expense    `json:"gastos"`
}

// Movements records money received and spent per project.
type Movements struct {
	store   *store.Storage
	conv    *money.Converter
	log     *logger.Logger
	changed *observers
	now     func() time.Time
}

func NewMovements(s *store.Storage, conv *money.Converter, log *logger.Logger) *Movements {
	return &Movements{store: s, conv: conv, log: log, changed: &observers{}, now: time.Now}
}

func (m *Movements) Summary(ctx context.Context, budgetID int64) (*ProjectSummary, error) {
	b, err := m.store.Budgets.Get(ctx, budgetID)
	if err != nil {
		return nil, notFound("budget", budgetID, err)
	}
	return m.summarize(ctx, b)
}

func (m *Movements) summarize(ctx context.Context, b *store.Budget) (*ProjectSummary, error) {
	items, err := m.store.Items.ListByBudget(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	collections, err := m.store.Movements.Collections(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	expenses, err := m.store.Movements.Expenses(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	sum, err := Summarize(b, items, m.conv)
	if err != nil {
		return nil, err
	}

	ps := &ProjectSummary{
		Budget:      *b,
		Price:       sum.Price,
		Collected:   decimal.Zero,
		Spent:       decimal.Zero,
		Extras:      []store.Expense{},
		Collections: collections,
		Expenses:    expenses,
	}
	if ps.Collections == nil {
		ps.Collections = []store.Collection{}
	}
	if ps.Expenses == nil {
		ps.Expenses = []store.Expense{}
	}
	for _, c := range collections {
		ps.Collected = ps.Collected.Add(c.Amount)
	}
	for _, e := range expenses {
		ps.Spent = ps.Spent.Add(e.Amount)
		if e.Category != store.ExpenseCategoryBudgeted {
			ps.Extras = append(ps.Extras, e)
		}
	}
	ps.Balance = ps.Price.Sub(ps.Spent)
	return ps, nil
}

type NewMovement struct {
	BudgetID    int64
	Description string
	// Category applies to expenses only; blank means the quoted budget.
	Category string
	Amount   decimal.Decimal
	Date     *time.Time
}

func (m *Movements) validate(in NewMovement) (NewMovement, error) {
	in.Description = validation.SanitizeText(in.Description)
	in.Category = validation.SanitizeText(in.Category)
	if !in.Amount.IsPositive() {
		return in, invalid("monto", "must be greater than zero")
	}
	return in, nil
}

func (m *Movements) date(in NewMovement) time.Time {
	if in.Date != nil {
		return store.Today(*in.Date)
	}
	return store.Today(m.now())
}

func (m *Movements) AddCollection(ctx context.Context, in NewMovement) (*store.Collection, error) {
	const component = "Movements"

	in, err := m.validate(in)
	if err != nil {
		return nil, err
	}
	if _, err := m.store.Budgets.Get(ctx, in.BudgetID); err != nil {
		return nil, notFound("budget", in.BudgetID, err)
	}

	c := &store.Collection{
		BudgetID:    in.BudgetID,
		Description: optional(in.Description),
		Amount:      in.Amount,
		Date:        m.date(in),
	}
	if err := m.store.Movements.AddCollection(ctx, c); err != nil {
		m.log.Error(component, "Failed to register collection for budget %d: %v", in.BudgetID, err)
		return nil, err
	}
	m.log.Info(component, "Registered collection %d of %s for budget %d", c.ID, c.Amount, in.BudgetID)
	m.changed.fire()
	return c, nil
}

func (m *Movements) AddExpense(ctx context.Context, in NewMovement) (*store.Expense, error) {
	const component = "Movements"

	in, err := m.validate(in)
	if err != nil {
		return nil, err
	}
	if in.Category == "" {
		in.Category = store.ExpenseCategoryBudgeted
	}
	if _, err := m.store.Budgets.Get(ctx, in.BudgetID); err != nil {
		return nil, notFound("budget", in.BudgetID, err)
	}

	e := &store.Expense{
		BudgetID:    in.BudgetID,
		Category:    in.Category,
		Description: optional(in.Description),
		Amount:      in.Amount,
		Date:        m.date(in),
	}
	if err := m.store.Movements.AddExpense(ctx, e); err != nil {
		m.log.Error(component, "Failed to register expense for budget %d: %v", in.BudgetID, err)
		return nil, err
	}
	m.log.Info(component, "Registered expense %d of %s (%s) for budget %d", e.ID, e.Amount, e.Category, in.BudgetID)
	m.changed.fire()
	return e, nil
}

func (m *Movements) DeleteCollection(ctx context.Context, sess auth.Session, id int64) error {
	if err := auth.Require(sess, auth.PermManageBudgets); err != nil {
		return err
	}
	if err := m.store.Movements.DeleteCollection(ctx, id); err != nil {
		return notFound("collection", id, err)
	}
	m.changed.fire()
	return nil
}

func (m *Movements) DeleteExpense(ctx context.Context, sess auth.Session, id int64) error {
	if err := auth.Require(sess, auth.PermManageBudgets); err != nil {
		return err
	}
	if err := m.store.Movements.DeleteExpense(ctx, id); err != nil {
		return notFound("expense", id, err)
	}
	m.changed.fire()
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
