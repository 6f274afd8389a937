// Package report builds the read-mostly views of the studio: the dashboard
// grouped by client and the monthly accounting overview.
package report

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

const (
	DefaultDashboardTTL   = 2 * time.Minute
	dashboardKey          = "dashboard/por-cliente"
	dashboardFetchTimeout = 30 * time.Second
)

// Group is one client's principal project with its additionals. Pending is
// what is still to be received once the pending payments are made.
type Group struct {
	store.ClientGroup
	Pending decimal.Decimal `json:"pendiente_de_ingreso"`
}

type Totals struct {
	Price      decimal.Decimal `json:"precio_total"`
	Collected  decimal.Decimal `json:"cobrado_total"`
	Spent      decimal.Decimal `json:"gastado_total"`
	Receivable decimal.Decimal `json:"saldo_a_cobrar"`
	Payable    decimal.Decimal `json:"saldo_a_pagar"`
}

func Sum(groups []Group) Totals {
	t := Totals{
		Price:      decimal.Zero,
		Collected:  decimal.Zero,
		Spent:      decimal.Zero,
		Receivable: decimal.Zero,
		Payable:    decimal.Zero,
	}
	for _, g := range groups {
		t.Price = t.Price.Add(g.TotalPrice)
		t.Collected = t.Collected.Add(g.TotalCollected)
		t.Spent = t.Spent.Add(g.TotalSpent)
		t.Receivable = t.Receivable.Add(g.Receivable)
		t.Payable = t.Payable.Add(g.Payable)
	}
	return t
}

// Dashboard serves the grouped view from a cache. Concurrent misses share a
// single procedure call, and Invalidate discards both the cached value and
// any fetch already in flight.
type Dashboard struct {
	store  *store.Storage
	cache  *cache.Cache
	ttl    time.Duration
	log    *logger.Logger
	flight singleflight.Group
	gen    atomic.Uint64
}

func NewDashboard(s *store.Storage, c *cache.Cache, ttl time.Duration, log *logger.Logger) *Dashboard {
	if ttl <= 0 {
		ttl = DefaultDashboardTTL
	}
	return &Dashboard{store: s, cache: c, ttl: ttl, log: log}
}

func (d *Dashboard) Groups(ctx context.Context) ([]Group, error) {
	const component = "Dashboard"

	if cached, ok := d.cache.Get(dashboardKey); ok {
		return cached.([]Group), nil
	}

	// The fetch outlives any single caller: a caller that gives up stops
	// waiting, the others keep sharing the result.
	ch := d.flight.DoChan(dashboardKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dashboardFetchTimeout)
		defer cancel()

		gen := d.gen.Load()
		rows, err := d.store.Dashboard.GroupedByClient(fetchCtx)
		if err != nil {
			return nil, err
		}

		groups := make([]Group, 0, len(rows))
		for _, r := range rows {
			if r.SubProjects == nil {
				r.SubProjects = store.SubProjects{}
			}
			groups = append(groups, Group{ClientGroup: r, Pending: r.Receivable.Sub(r.Payable)})
		}

		if d.gen.Load() == gen {
			d.cache.Set(dashboardKey, groups, d.ttl)
		}
		d.log.Debug(component, "Loaded %d client groups", len(groups))
		return groups, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			d.log.Error(component, "Failed to load dashboard: %v", res.Err)
			return nil, res.Err
		}
		return res.Val.([]Group), nil
	}
}

// Invalidate is registered as a change observer of the budget service.
func (d *Dashboard) Invalidate() {
	d.gen.Add(1)
	d.cache.Delete(dashboardKey)
	d.flight.Forget(dashboardKey)
}
