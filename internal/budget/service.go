package budget

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farxc/presupuestos-estudio/internal/auth"
	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/farxc/presupuestos-estudio/internal/store"
	"github.com/farxc/presupuestos-estudio/internal/validation"
)

// DefaultAdditionalDescription prefixes the description of new additionals
// when none is given.
const DefaultAdditionalDescription = "Adicional: "

type Config struct {
	USDFactor         decimal.Decimal
	Editor            EditorOptions
	StrictTransitions bool
}

// Service ties the budget components to one store and exposes the
// operations of the budgets area.
type Service struct {
	store *store.Storage
	conv  *money.Converter
	log   *logger.Logger
	now   func() time.Time

	Ledger    *Ledger
	Status    *StatusController
	Margin    *MarginEditor
	Progress  *ProgressEditor
	Movements *Movements

	changed *observers
}

func NewService(s *store.Storage, notifier Notifier, log *logger.Logger, cfg Config) *Service {
	conv := money.NewConverter(cfg.USDFactor)

	var table TransitionTable
	if cfg.StrictTransitions {
		table = StrictTransitions
	}

	changed := &observers{}
	svc := &Service{
		store:     s,
		conv:      conv,
		log:       log,
		now:       time.Now,
		Ledger:    NewLedger(s, conv, log),
		Status:    NewStatusController(s, table, log),
		Margin:    NewMarginEditor(s, notifier, log, cfg.Editor),
		Progress:  NewProgressEditor(s, notifier, log, cfg.Editor),
		Movements: NewMovements(s, conv, log),
		changed:   changed,
	}
	svc.Ledger.changed = changed
	svc.Status.changed = changed
	svc.Margin.changed = changed
	svc.Progress.changed = changed
	svc.Movements.changed = changed
	return svc
}

// OnChange registers fn to run after every successful write.
func (s *Service) OnChange(fn func()) { s.changed.add(fn) }

func (s *Service) Converter() *money.Converter { return s.conv }

type ListFilter struct {
	Query string
	From  *time.Time
	To    *time.Time
}

// List fetches budgets newest first and returns them as a tree, with the
// text filter applied to principals.
func (s *Service) List(ctx context.Context, f ListFilter) (Tree, error) {
	budgets, err := s.store.Budgets.List(ctx, store.BudgetFilter{From: f.From, To: f.To})
	if err != nil {
		return Tree{}, err
	}
	return FilterPrincipals(BuildTree(budgets), f.Query), nil
}

// Detail is one budget as shown on its page.
type Detail struct {
	Budget      store.Budget                 `json:"presupuesto"`
	Summary     *Summary                     `json:"resumen"`
	Additionals []store.Budget               `json:"adicionales"`
	Margin      *LocalValue[decimal.Decimal] `json:"margen_local,omitempty"`
	Progress    *LocalValue[int]             `json:"avance_local,omitempty"`
}

// Get loads a budget with its items and totals. A margin that is still
// being edited is reported next to the stored one, and the price follows
// the edited value.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	b, err := s.store.Budgets.Get(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			s.Margin.Forget(id)
			s.Progress.Forget(id)
		}
		return nil, notFound("budget", id, err)
	}

	items, err := s.store.Items.ListByBudget(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Detail{Budget: *b, Additionals: []store.Budget{}}
	if lv, ok := s.Margin.Get(id); ok {
		d.Margin = &lv
		b.Margin = lv.Value
	}
	if lv, ok := s.Progress.Get(id); ok {
		d.Progress = &lv
	}

	if d.Summary, err = Summarize(b, items, s.conv); err != nil {
		return nil, err
	}

	if b.IsPrincipal() {
		children, err := s.store.Budgets.Children(ctx, id)
		if err != nil {
			return nil, err
		}
		d.Additionals = append(d.Additionals, children...)
	}
	return d, nil
}

type NewBudget struct {
	Client      string
	Description string
	Phone       string
	Email       string
	Address     string
}

// CreatePrincipal stores a new top-level project in the initial status
// with the default margin.
func (s *Service) CreatePrincipal(ctx context.Context, in NewBudget) (*store.Budget, error) {
	const component = "Budgets"

	client := validation.SanitizeText(in.Client)
	if client == "" {
		return nil, invalid("cliente", "must not be empty")
	}

	b := &store.Budget{
		Client:      client,
		Description: validation.OptionalText(in.Description),
		Phone:       validation.OptionalText(in.Phone),
		Email:       validation.OptionalText(in.Email),
		Address:     validation.OptionalText(in.Address),
		Margin:      store.DefaultMargin,
		Status:      store.StatusQuoted,
		Date:        store.Today(s.now()),
	}
	if err := s.store.Budgets.Create(ctx, b); err != nil {
		s.log.Error(component, "Failed to create budget for %s: %v", client, err)
		return nil, err
	}
	s.log.Info(component, "Created budget %d for %s", b.ID, b.Client)
	s.changed.fire()
	return b, nil
}

// CreateAdditional stores extra work under principal parentID, copying the
// client's contact details from it. Additionals are one level deep.
func (s *Service) CreateAdditional(ctx context.Context, parentID int64, description string) (*store.Budget, error) {
	const component = "Budgets"

	parent, err := s.store.Budgets.Get(ctx, parentID)
	if err != nil {
		return nil, notFound("budget", parentID, err)
	}
	if !parent.IsPrincipal() {
		return nil, invalid("presupuesto_padre_id", "budget %d is an additional; additionals hang from principals only", parentID)
	}

	desc := validation.SanitizeText(description)
	if desc == "" {
		desc = DefaultAdditionalDescription
	}

	b := &store.Budget{
		Client:      parent.Client,
		Description: &desc,
		Phone:       parent.Phone,
		Email:       parent.Email,
		Address:     parent.Address,
		Margin:      store.DefaultMargin,
		Status:      store.StatusQuoted,
		ParentID:    &parent.ID,
		Date:        store.Today(s.now()),
	}
	if err := s.store.Budgets.Create(ctx, b); err != nil {
		s.log.Error(component, "Failed to create additional under %d: %v", parentID, err)
		return nil, err
	}
	s.log.Info(component, "Created additional %d under budget %d", b.ID, parentID)
	s.changed.fire()
	return b, nil
}

// Delete removes a budget with a single delete call. Items, movements and
// additionals go with it through the store's cascade rules.
func (s *Service) Delete(ctx context.Context, sess auth.Session, id int64) error {
	const component = "Budgets"

	if err := auth.Require(sess, auth.PermManageBudgets); err != nil {
		return err
	}
	if err := s.store.Budgets.Delete(ctx, id); err != nil {
		return notFound("budget", id, err)
	}

	s.Margin.Forget(id)
	s.Progress.Forget(id)
	s.log.Info(component, "Deleted budget %d (requested by %s)", id, sess.UserID())
	s.changed.fire()
	return nil
}

// Project is the money summary of budget id.
func (s *Service) Project(ctx context.Context, id int64) (*ProjectSummary, error) {
	return s.Movements.Summary(ctx, id)
}

// InProgress lists the projects currently being built with their
// financial summaries.
func (s *Service) InProgress(ctx context.Context) ([]ProjectSummary, error) {
	budgets, err := s.store.Budgets.List(ctx, store.BudgetFilter{Status: store.StatusInProgress})
	if err != nil {
		return nil, err
	}
	out := make([]ProjectSummary, 0, len(budgets))
	for i := range budgets {
		ps, err := s.Movements.summarize(ctx, &budgets[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *ps)
	}
	return out, nil
}

// Close writes pending edits and waits for them.
func (s *Service) Close(ctx context.Context) error {
	return errors.Join(s.Margin.Close(ctx), s.Progress.Close(ctx))
}
