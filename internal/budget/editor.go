package budget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farxc/presupuestos-estudio/internal/auth"
	"github.com/farxc/presupuestos-estudio/internal/debounce"
	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/farxc/presupuestos-estudio/internal/notify"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

const (
	DefaultQuiescence     = time.Second
	DefaultReconcileDelay = 5 * time.Second
)

// Notifier delivers a transient message to one user.
type Notifier interface {
	Notify(userID string, kind notify.Kind, message string)
}

// SyncState tags a locally edited value with what the store is known to
// hold.
type SyncState string

const (
	StatePending     SyncState = "pending"
	StateConfirmed   SyncState = "confirmed"
	StateUnconfirmed SyncState = "unconfirmed"
)

// LocalValue is the value the user last entered for a field and its
// reconciliation state.
type LocalValue[V any] struct {
	Value     V         `json:"value"`
	State     SyncState `json:"state"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	seq uint64
}

type EditorOptions struct {
	// Quiescence is how long a field must stay untouched before it is
	// written.
	Quiescence time.Duration
	// ReconcileDelay is how long after a failed write the stored value is
	// read back.
	ReconcileDelay time.Duration
}

func (o EditorOptions) withDefaults() EditorOptions {
	if o.Quiescence <= 0 {
		o.Quiescence = DefaultQuiescence
	}
	if o.ReconcileDelay <= 0 {
		o.ReconcileDelay = DefaultReconcileDelay
	}
	return o
}

type write[V any] struct {
	value  V
	userID string
	seq    uint64
}

// Editor reflects input for one budget field immediately and writes it
// once input stops. Bursts of input collapse into a single write of the
// last value; the last writer wins across sessions. A failed write leaves
// the local value in place, tags it unconfirmed and schedules a read-back.
type Editor[V any] struct {
	label     string
	component string
	persist   func(ctx context.Context, id int64, v V) error
	reload    func(ctx context.Context, id int64) (V, error)
	notifier  Notifier
	log       *logger.Logger
	changed   *observers
	now       func() time.Time

	writes  *debounce.Coalescer[int64, write[V]]
	refetch *debounce.Coalescer[int64, uint64]

	mu    sync.Mutex
	local map[int64]*LocalValue[V]
	seq   uint64
}

func newEditor[V any](
	label, component string,
	persist func(ctx context.Context, id int64, v V) error,
	reload func(ctx context.Context, id int64) (V, error),
	notifier Notifier,
	log *logger.Logger,
	opts EditorOptions,
) *Editor[V] {
	opts = opts.withDefaults()
	e := &Editor[V]{
		label:     label,
		component: component,
		persist:   persist,
		reload:    reload,
		notifier:  notifier,
		log:       log,
		changed:   &observers{},
		now:       time.Now,
		local:     make(map[int64]*LocalValue[V]),
	}
	e.writes = debounce.New[int64, write[V]](opts.Quiescence, e.flush)
	e.refetch = debounce.New[int64, uint64](opts.ReconcileDelay, e.reconcile)
	return e
}

// Set records v as the local value of budgetID and schedules its write.
func (e *Editor[V]) Set(s auth.Session, budgetID int64, v V) (LocalValue[V], error) {
	e.mu.Lock()
	e.seq++
	lv := &LocalValue[V]{Value: v, State: StatePending, UpdatedAt: e.now(), seq: e.seq}
	e.local[budgetID] = lv
	out := *lv
	e.mu.Unlock()

	userID := ""
	if s != nil {
		userID = s.UserID()
	}

	// newer input makes a scheduled read-back pointless
	e.refetch.Cancel(budgetID)
	if err := e.writes.Push(budgetID, write[V]{value: v, userID: userID, seq: out.seq}); err != nil {
		e.mu.Lock()
		lv.State = StateUnconfirmed
		lv.Error = err.Error()
		e.mu.Unlock()
		return out, err
	}
	return out, nil
}

// Get returns the local value of budgetID, if the editor holds one.
func (e *Editor[V]) Get(budgetID int64) (LocalValue[V], bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lv, ok := e.local[budgetID]
	if !ok {
		return LocalValue[V]{}, false
	}
	return *lv, true
}

// Forget drops everything held for budgetID, including a pending write.
func (e *Editor[V]) Forget(budgetID int64) {
	e.writes.Cancel(budgetID)
	e.refetch.Cancel(budgetID)
	e.mu.Lock()
	delete(e.local, budgetID)
	e.mu.Unlock()
}

// Close writes every pending value and waits for in-flight writes.
func (e *Editor[V]) Close(ctx context.Context) error {
	err := e.writes.Close(ctx)
	return errors.Join(err, e.refetch.Close(ctx))
}

func (e *Editor[V]) flush(ctx context.Context, budgetID int64, w write[V]) {
	err := e.persist(ctx, budgetID, w.value)

	e.mu.Lock()
	lv := e.local[budgetID]
	current := lv != nil && lv.seq == w.seq

	switch {
	case err == nil:
		if current {
			lv.State = StateConfirmed
			lv.Error = ""
		}
		e.mu.Unlock()
		e.log.Info(e.component, "Saved %s of budget %d: %v", e.label, budgetID, w.value)
		e.changed.fire()

	case store.IsNotFound(err):
		delete(e.local, budgetID)
		e.mu.Unlock()
		e.log.Warn(e.component, "Budget %d no longer exists, dropping %s", budgetID, e.label)
		e.notify(w.userID, notify.KindError, fmt.Sprintf("El presupuesto %d ya no existe.", budgetID))

	default:
		if current {
			lv.State = StateUnconfirmed
			lv.Error = userMessage(err)
		}
		e.mu.Unlock()
		e.log.Error(e.component, "Failed to save %s of budget %d: %v", e.label, budgetID, err)
		e.notify(w.userID, notify.KindError, fmt.Sprintf("No se pudo guardar %s del presupuesto %d: %s", e.label, budgetID, userMessage(err)))
		if perr := e.refetch.Push(budgetID, w.seq); perr != nil {
			e.log.Warn(e.component, "Read-back of budget %d not scheduled: %v", budgetID, perr)
		}
	}
}

// reconcile replaces an unconfirmed local value with the stored one unless
// the user has typed something newer in the meantime.
func (e *Editor[V]) reconcile(ctx context.Context, budgetID int64, seq uint64) {
	const component = "Reconciler"

	stored, err := e.reload(ctx, budgetID)
	if err != nil {
		if store.IsNotFound(err) {
			e.mu.Lock()
			delete(e.local, budgetID)
			e.mu.Unlock()
			return
		}
		e.log.Warn(component, "Could not read back %s of budget %d: %v", e.label, budgetID, err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	lv, ok := e.local[budgetID]
	if !ok || lv.seq != seq {
		return
	}
	lv.Value = stored
	lv.State = StateConfirmed
	lv.Error = ""
	lv.UpdatedAt = e.now()
	e.log.Info(component, "Restored stored %s of budget %d: %v", e.label, budgetID, stored)
}

func (e *Editor[V]) notify(userID string, kind notify.Kind, msg string) {
	if e.notifier != nil && userID != "" {
		e.notifier.Notify(userID, kind, msg)
	}
}

func userMessage(err error) string {
	var re *store.RemoteError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}

// MarginEditor edits margen_ganancia.
type MarginEditor struct {
	*Editor[decimal.Decimal]
}

func NewMarginEditor(s *store.Storage, notifier Notifier, log *logger.Logger, opts EditorOptions) *MarginEditor {
	return &MarginEditor{newEditor(
		"el margen", "MarginEditor",
		s.Budgets.UpdateMargin,
		func(ctx context.Context, id int64) (decimal.Decimal, error) {
			b, err := s.Budgets.Get(ctx, id)
			if err != nil {
				return decimal.Zero, err
			}
			return b.Margin, nil
		},
		notifier, log, opts,
	)}
}

// ParseMargin reads a margin percentage typed as "15", "12,5" or "12.5".
func ParseMargin(raw string) (decimal.Decimal, error) {
	m, err := money.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, invalid("margen_ganancia", "%q is not a number", raw)
	}
	if m.IsNegative() {
		return decimal.Zero, invalid("margen_ganancia", "must not be negative")
	}
	return m, nil
}

// Input parses raw and behaves like Set.
func (m *MarginEditor) Input(s auth.Session, budgetID int64, raw string) (LocalValue[decimal.Decimal], error) {
	v, err := ParseMargin(raw)
	if err != nil {
		return LocalValue[decimal.Decimal]{}, err
	}
	return m.Set(s, budgetID, v)
}

// ProgressEditor edits avance_manual.
type ProgressEditor struct {
	*Editor[int]
}

func NewProgressEditor(s *store.Storage, notifier Notifier, log *logger.Logger, opts EditorOptions) *ProgressEditor {
	return &ProgressEditor{newEditor(
		"el avance", "ProgressEditor",
		s.Budgets.UpdateProgress,
		func(ctx context.Context, id int64) (int, error) {
			b, err := s.Budgets.Get(ctx, id)
			if err != nil {
				return 0, err
			}
			if b.Progress == nil {
				return 0, nil
			}
			return *b.Progress, nil
		},
		notifier, log, opts,
	)}
}

// ParseProgress reads a percentage and clamps it to 0..100.
func ParseProgress(raw string) (int, error) {
	p, err := money.ParseAmount(raw)
	if err != nil {
		return 0, invalid("avance_manual", "%q is not a number", raw)
	}
	v := int(p.Round(0).IntPart())
	switch {
	case v < 0:
		v = 0
	case v > 100:
		v = 100
	}
	return v, nil
}

func (p *ProgressEditor) Input(s auth.Session, budgetID int64, raw string) (LocalValue[int], error) {
	v, err := ParseProgress(raw)
	if err != nil {
		return LocalValue[int]{}, err
	}
	return p.Set(s, budgetID, v)
}
