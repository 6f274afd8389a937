package budget

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/farxc/presupuestos-estudio/internal/store"
	"github.com/farxc/presupuestos-estudio/internal/validation"
)

// Categories is the fixed vocabulary offered for item descriptions; "otros"
// means the description is free text.
var Categories = []string{
	"carpintería",
	"herrería",
	"electricidad",
	"flete",
	"instalaciones",
	"herrajes",
	"comisiones",
	"otros",
}

var hundred = decimal.NewFromInt(100)

// ComputeTotal sums item costs normalized to the primary currency. The sum
// is recomputed from the items on every call and does not depend on their
// order.
func ComputeTotal(items []store.Item, conv *money.Converter) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, it := range items {
		v, err := conv.ToPrimary(it.Cost, it.Currency)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(v)
	}
	return total, nil
}

// ComputePrice applies margin (a percentage) to total.
func ComputePrice(total, margin decimal.Decimal) decimal.Decimal {
	return total.Mul(decimal.NewFromInt(1).Add(margin.Div(hundred)))
}

// Summary is the derived financial state of one budget.
type Summary struct {
	BudgetID int64           `json:"presupuesto_id"`
	Items    []store.Item    `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Margin   decimal.Decimal `json:"margen_ganancia"`
	Price    decimal.Decimal `json:"precio"`
}

func Summarize(b *store.Budget, items []store.Item, conv *money.Converter) (*Summary, error) {
	total, err := ComputeTotal(items, conv)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.Item{}
	}
	return &Summary{
		BudgetID: b.ID,
		Items:    items,
		Total:    total,
		Margin:   b.Margin,
		Price:    ComputePrice(total, b.Margin),
	}, nil
}

type NewItem struct {
	BudgetID          int64
	Description       string
	Category          string
	Cost              decimal.Decimal
	Currency          money.Currency
	ClientDescription string
}

// Ledger manages the cost items of budgets.
type Ledger struct {
	store   *store.Storage
	conv    *money.Converter
	log     *logger.Logger
	changed *observers
}

func NewLedger(s *store.Storage, conv *money.Converter, log *logger.Logger) *Ledger {
	return &Ledger{store: s, conv: conv, log: log, changed: &observers{}}
}

// Validate checks in without touching the store and returns it cleaned.
func (l *Ledger) Validate(in NewItem) (NewItem, error) {
	in.Description = validation.SanitizeText(in.Description)
	in.Category = validation.SanitizeText(in.Category)
	in.ClientDescription = validation.SanitizeText(in.ClientDescription)

	if in.Description == "" {
		return in, invalid("descripcion", "must not be empty")
	}
	if !in.Cost.IsPositive() {
		return in, invalid("costo", "must be greater than zero")
	}
	cur, err := money.ParseCurrency(string(in.Currency))
	if err != nil {
		return in, invalid("moneda", "%v", err)
	}
	in.Currency = cur
	return in, nil
}

// AddItem validates in, stores it and returns the budget's refreshed
// summary.
func (l *Ledger) AddItem(ctx context.Context, in NewItem) (*Summary, error) {
	const component = "Ledger"

	in, err := l.Validate(in)
	if err != nil {
		return nil, err
	}

	if _, err := l.store.Budgets.Get(ctx, in.BudgetID); err != nil {
		return nil, notFound("budget", in.BudgetID, err)
	}

	item := &store.Item{
		BudgetID:    in.BudgetID,
		Description: in.Description,
		Cost:        in.Cost,
		Currency:    in.Currency,
	}
	if in.Category != "" {
		item.Category = &in.Category
	}
	if in.ClientDescription != "" {
		item.ClientDescription = &in.ClientDescription
	}

	if err := l.store.Items.Create(ctx, item); err != nil {
		l.log.Error(component, "Failed to add item to budget %d: %v", in.BudgetID, err)
		return nil, err
	}
	l.log.Info(component, "Added item %d to budget %d: %s %s", item.ID, in.BudgetID, in.Currency, in.Cost)
	l.changed.fire()

	return l.Summary(ctx, in.BudgetID)
}

// Summary refetches the budget and its items.
func (l *Ledger) Summary(ctx context.Context, budgetID int64) (*Summary, error) {
	b, err := l.store.Budgets.Get(ctx, budgetID)
	if err != nil {
		return nil, notFound("budget", budgetID, err)
	}
	items, err := l.store.Items.ListByBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	return Summarize(b, items, l.conv)
}

// SetClientDescription replaces only the client-facing text of an item.
// Blank text clears it.
func (l *Ledger) SetClientDescription(ctx context.Context, itemID int64, text string) (*store.Item, error) {
	var value *string
	if t := validation.SanitizeText(text); t != "" {
		value = &t
	}

	if err := l.store.Items.SetClientDescription(ctx, itemID, value); err != nil {
		return nil, notFound("item", itemID, err)
	}
	item, err := l.store.Items.Get(ctx, itemID)
	if err != nil {
		return nil, notFound("item", itemID, err)
	}
	return item, nil
}

// ClientLines returns the client-facing descriptions of items in order.
// Items without one stay internal and are left out.
func ClientLines(items []store.Item) []string {
	lines := []string{}
	for _, it := range items {
		if it.ClientDescription == nil {
			continue
		}
		if t := strings.TrimSpace(*it.ClientDescription); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}
