package budget

import (
	"context"
	"strings"
	"sync"

	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

// Statuses lists every lifecycle state in display order.
var Statuses = []store.BudgetStatus{
	store.StatusQuoted,
	store.StatusInProgress,
	store.StatusFinished,
	store.StatusRejected,
	store.StatusCancelled,
}

func ParseStatus(raw string) (store.BudgetStatus, error) {
	s := store.BudgetStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Statuses {
		if s == known {
			return s, nil
		}
	}
	return "", invalid("estado", "unknown status %q", raw)
}

// TransitionTable lists the allowed targets per state. States without an
// entry are terminal.
type TransitionTable map[store.BudgetStatus][]store.BudgetStatus

// StrictTransitions follows the lifecycle: quoted work may start, be
// rejected or be cancelled; work in progress may finish or be cancelled.
var StrictTransitions = TransitionTable{
	store.StatusQuoted:     {store.StatusInProgress, store.StatusRejected, store.StatusCancelled},
	store.StatusInProgress: {store.StatusFinished, store.StatusRejected, store.StatusCancelled},
}

func (t TransitionTable) Allows(from, to store.BudgetStatus) bool {
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusController persists lifecycle transitions. With a nil table every
// named status may move to any other.
type StatusController struct {
	store   *store.Storage
	table   TransitionTable
	log     *logger.Logger
	changed *observers
}

func NewStatusController(s *store.Storage, table TransitionTable, log *logger.Logger) *StatusController {
	return &StatusController{store: s, table: table, log: log, changed: &observers{}}
}

// Transition moves budgetID to target and returns the budget with the new
// status applied locally. Moving to the current status writes nothing.
func (c *StatusController) Transition(ctx context.Context, budgetID int64, target store.BudgetStatus) (*store.Budget, error) {
	const component = "StatusController"

	target, err := ParseStatus(string(target))
	if err != nil {
		return nil, err
	}

	b, err := c.store.Budgets.Get(ctx, budgetID)
	if err != nil {
		return nil, notFound("budget", budgetID, err)
	}
	if b.Status == target {
		return b, nil
	}
	if c.table != nil && !c.table.Allows(b.Status, target) {
		return nil, &TransitionError{From: b.Status, To: target}
	}

	if err := c.store.Budgets.UpdateStatus(ctx, budgetID, target); err != nil {
		c.log.Error(component, "Failed to move budget %d from %q to %q: %v", budgetID, b.Status, target, err)
		return nil, notFound("budget", budgetID, err)
	}
	c.log.Info(component, "Budget %d moved from %q to %q", budgetID, b.Status, target)

	b.Status = target
	c.changed.fire()
	return b, nil
}

// observers fans a write notification out to the registered callbacks.
type observers struct {
	mu  sync.RWMutex
	fns []func()
}

func (o *observers) add(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fns = append(o.fns, fn)
}

func (o *observers) fire() {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, fn := range o.fns {
		fn()
	}
}
