package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Storage struct {
	Budgets interface {
		List(ctx context.Context, f BudgetFilter) ([]Budget, error)
		Get(ctx context.Context, id int64) (*Budget, error)
		Children(ctx context.Context, parentID int64) ([]Budget, error)
		Create(ctx context.Context, b *Budget) error
		UpdateStatus(ctx context.Context, id int64, status BudgetStatus) error
		UpdateMargin(ctx context.Context, id int64, margin decimal.Decimal) error
		UpdateProgress(ctx context.Context, id int64, progress int) error
		Delete(ctx context.Context, id int64) error
	}

	Items interface {
		ListByBudget(ctx context.Context, budgetID int64) ([]Item, error)
		Get(ctx context.Context, id int64) (*Item, error)
		Create(ctx context.Context, item *Item) error
		SetClientDescription(ctx context.Context, id int64, text *string) error
	}

	Movements interface {
		Collections(ctx context.Context, budgetID int64) ([]Collection, error)
		AddCollection(ctx context.Context, c *Collection) error
		DeleteCollection(ctx context.Context, id int64) error
		Expenses(ctx context.Context, budgetID int64) ([]Expense, error)
		AddExpense(ctx context.Context, e *Expense) error
		DeleteExpense(ctx context.Context, id int64) error
	}

	Accounting interface {
		ActiveFixedExpenses(ctx context.Context) ([]FixedExpense, error)
		Payments(ctx context.Context, month, year int) ([]FixedExpensePayment, error)
		AddPayment(ctx context.Context, p *FixedExpensePayment) error
		UpdatePayment(ctx context.Context, p *FixedExpensePayment) error
		DeletePayment(ctx context.Context, id int64) error
		CashBalance(ctx context.Context) (decimal.Decimal, error)
		ProjectBalances(ctx context.Context) (ProjectBalances, error)
		FixedSpendHistory(ctx context.Context) ([]MonthlyFixedSpend, error)
	}

	Dashboard interface {
		GroupedByClient(ctx context.Context) ([]ClientGroup, error)
	}

	Permissions interface {
		ForUser(ctx context.Context, userID string) ([]string, error)
	}
}

func NewStorage(gw Gateway) *Storage {
	return &Storage{
		Budgets:     &BudgetStore{gw: gw},
		Items:       &ItemStore{gw: gw},
		Movements:   &MovementStore{gw: gw},
		Accounting:  &AccountingStore{gw: gw},
		Dashboard:   &DashboardStore{gw: gw},
		Permissions: &PermissionStore{gw: gw},
	}
}

// Today truncates now to a date, the granularity of every fecha column.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
