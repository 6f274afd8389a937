package report

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/presupuestos-estudio/internal/auth"
	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/store"
	"github.com/farxc/presupuestos-estudio/internal/store/storetest"
)

func groupsProcedure(calls *atomic.Int32) storetest.Procedure {
	return func(map[string]any) (any, error) {
		calls.Add(1)
		return []map[string]any{
			{
				"cliente":               "Garcia",
				"proyecto_principal_id": 1,
				"precio_total":          "115000",
				"cobrado_total":         "50000",
				"gastado_total":         "30000",
				"avance_manual":         40,
				"saldo_a_cobrar":        "65000",
				"saldo_a_pagar":         "20000",
				"sub_proyectos": []map[string]any{
					{"id": 2, "descripcion": "Adicional: estante", "precio": "5000", "estado": "en curso"},
				},
			},
			{
				"cliente":               "Lopez",
				"proyecto_principal_id": 3,
				"precio_total":          "10000",
				"cobrado_total":         "0",
				"gastado_total":         "0",
				"saldo_a_cobrar":        "10000",
				"saldo_a_pagar":         "0",
			},
		}, nil
	}
}

func TestDashboardCachesUntilInvalidated(t *testing.T) {
	gw := storetest.New()
	var calls atomic.Int32
	gw.Handle(store.ProcDashboardByClient, groupsProcedure(&calls))
	d := NewDashboard(store.NewStorage(gw), cache.New(time.Minute, time.Minute), time.Minute, logger.Discard())

	groups, err := d.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Garcia", groups[0].Client)
	assert.True(t, groups[0].Pending.Equal(decimal.NewFromInt(45000)))
	require.Len(t, groups[0].SubProjects, 1)
	assert.Equal(t, store.StatusInProgress, groups[0].SubProjects[0].Status)
	assert.NotNil(t, groups[1].SubProjects)
	assert.Nil(t, groups[1].Progress)

	_, err = d.Groups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	d.Invalidate()
	_, err = d.Groups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	tot := Sum(groups)
	assert.True(t, tot.Price.Equal(decimal.NewFromInt(125000)))
	assert.True(t, tot.Receivable.Equal(decimal.NewFromInt(75000)))
}

func TestDashboardConcurrentMissesShareOneCall(t *testing.T) {
	gw := storetest.New()
	var calls atomic.Int32
	release := make(chan struct{})
	inner := groupsProcedure(&calls)
	gw.Handle(store.ProcDashboardByClient, func(args map[string]any) (any, error) {
		<-release
		return inner(args)
	})
	d := NewDashboard(store.NewStorage(gw), cache.New(time.Minute, time.Minute), time.Minute, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Groups(context.Background())
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestDashboardFetchSurvivesCallerCancellation(t *testing.T) {
	gw := storetest.New()
	var calls atomic.Int32
	release := make(chan struct{})
	inner := groupsProcedure(&calls)
	gw.Handle(store.ProcDashboardByClient, func(args map[string]any) (any, error) {
		<-release
		return inner(args)
	})
	d := NewDashboard(store.NewStorage(gw), cache.New(time.Minute, time.Minute), time.Minute, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Groups(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	done := make(chan []Group)
	go func() {
		groups, err := d.Groups(context.Background())
		assert.NoError(t, err)
		done <- groups
	}()
	close(release)

	select {
	case groups := <-done:
		assert.Len(t, groups, 2)
	case <-time.After(time.Second):
		t.Fatal("dashboard did not load")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestDashboardErrorIsNotCached(t *testing.T) {
	gw := storetest.New()
	var calls atomic.Int32
	gw.Handle(store.ProcDashboardByClient, groupsProcedure(&calls))
	gw.FailOnce("call", store.ProcDashboardByClient, errors.New("timeout"))
	d := NewDashboard(store.NewStorage(gw), cache.New(time.Minute, time.Minute), 0, logger.Discard())

	_, err := d.Groups(context.Background())
	assert.True(t, store.IsRemote(err))

	groups, err := d.Groups(context.Background())
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestDashboardFollowsBudgetWrites(t *testing.T) {
	gw := storetest.New()
	var calls atomic.Int32
	gw.Handle(store.ProcDashboardByClient, groupsProcedure(&calls))
	s := store.NewStorage(gw)
	d := NewDashboard(s, cache.New(time.Minute, time.Minute), time.Minute, logger.Discard())

	svc := budget.NewService(s, nil, logger.Discard(), budget.Config{USDFactor: decimal.NewFromInt(1000)})
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	svc.OnChange(d.Invalidate)

	_, err := d.Groups(context.Background())
	require.NoError(t, err)
	_, err = svc.CreatePrincipal(context.Background(), budget.NewBudget{Client: "Perez"})
	require.NoError(t, err)
	_, err = d.Groups(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func seedAccounting(gw *storetest.Gateway) {
	gw.Seed(store.TableFixedExpenses,
		map[string]any{"id": 1, "nombre": "Alquiler", "activo": true},
		map[string]any{"id": 2, "nombre": "Luz", "activo": true},
		map[string]any{"id": 3, "nombre": "Seguro viejo", "activo": false},
	)
	gw.Seed(store.TablePayments,
		map[string]any{"gasto_fijo_id": 1, "monto_pagado": "300000", "fecha_pago": "2025-06-05T00:00:00Z", "mes": 6, "anio": 2025},
		map[string]any{"gasto_fijo_id": 1, "monto_pagado": "20000", "fecha_pago": "2025-06-20T00:00:00Z", "mes": 6, "anio": 2025},
		map[string]any{"gasto_fijo_id": 3, "monto_pagado": "1000", "fecha_pago": "2025-06-21T00:00:00Z", "mes": 6, "anio": 2025},
		map[string]any{"gasto_fijo_id": 2, "monto_pagado": "45000", "fecha_pago": "2025-05-10T00:00:00Z", "mes": 5, "anio": 2025},
	)
	gw.Handle(store.ProcCashBalance, func(map[string]any) (any, error) {
		return []any{"125000.50"}, nil
	})
	gw.Handle(store.ProcProjectBalances, func(map[string]any) (any, error) {
		return []map[string]any{{"total_saldo_a_cobrar": "75000", "total_saldo_a_pagar": "20000"}}, nil
	})
	gw.Handle(store.ProcFixedSpendHistory, func(map[string]any) (any, error) {
		return []map[string]any{
			{"mes_formateado": "2025-05", "total_gastado": "45000"},
			{"mes_formateado": "2025-06", "total_gastado": "321000"},
		}, nil
	})
}

var accountant = auth.NewSession("contador", auth.PermViewAccounting)

func TestAccountingOverview(t *testing.T) {
	gw := storetest.New()
	seedAccounting(gw)
	a := NewAccounting(store.NewStorage(gw), logger.Discard())

	ov, err := a.Overview(context.Background(), accountant, Period{Month: 6, Year: 2025})
	require.NoError(t, err)

	assert.Empty(t, ov.Errors)
	assert.True(t, ov.CashBalance.Equal(decimal.RequireFromString("125000.50")))
	assert.True(t, ov.Balances.TotalReceivable.Equal(decimal.NewFromInt(75000)))
	assert.Len(t, ov.History, 2)

	require.Len(t, ov.FixedExpenses, 2)
	assert.Equal(t, "Alquiler", ov.FixedExpenses[0].Name)
	assert.Len(t, ov.FixedExpenses[0].Payments, 2)
	assert.True(t, ov.FixedExpenses[0].Paid.Equal(decimal.NewFromInt(320000)))
	assert.Empty(t, ov.FixedExpenses[1].Payments)

	require.Len(t, ov.Other, 1)
	assert.Equal(t, int64(3), ov.Other[0].FixedExpenseID)
	assert.True(t, ov.PaidInPeriod.Equal(decimal.NewFromInt(321000)))
}

func TestAccountingSectionsDegradeIndependently(t *testing.T) {
	gw := storetest.New()
	seedAccounting(gw)
	gw.Fail("call", store.ProcCashBalance, errors.New("function does not exist"))
	gw.Fail("select", store.TablePayments, errors.New("timeout"))
	a := NewAccounting(store.NewStorage(gw), logger.Discard())

	ov, err := a.Overview(context.Background(), accountant, Period{Month: 6, Year: 2025})
	require.NoError(t, err)

	assert.Contains(t, ov.Errors, SectionCash)
	assert.Contains(t, ov.Errors, SectionPayments)
	assert.Len(t, ov.Errors, 2)
	assert.True(t, ov.CashBalance.IsZero())
	assert.True(t, ov.PaidInPeriod.IsZero())
	require.Len(t, ov.FixedExpenses, 2)
	assert.True(t, ov.Balances.TotalPayable.Equal(decimal.NewFromInt(20000)))
}

func TestAccountingRequiresPermission(t *testing.T) {
	gw := storetest.New()
	a := NewAccounting(store.NewStorage(gw), logger.Discard())
	viewer := auth.NewSession("ana", auth.PermManageBudgets)

	_, err := a.Overview(context.Background(), viewer, Period{Month: 1, Year: 2025})
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)
	_, err = a.RegisterPayment(context.Background(), nil, PaymentInput{FixedExpenseID: 1, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)
	assert.ErrorIs(t, a.DeletePayment(context.Background(), viewer, 1), auth.ErrPermissionDenied)
	assert.Empty(t, gw.Calls())
}

func TestPaymentLifecycle(t *testing.T) {
	gw := storetest.New()
	seedAccounting(gw)
	a := NewAccounting(store.NewStorage(gw), logger.Discard())
	a.now = func() time.Time { return time.Date(2025, 7, 3, 18, 0, 0, 0, time.UTC) }
	changes := 0
	a.OnChange(func() { changes++ })
	ctx := context.Background()

	_, err := a.RegisterPayment(ctx, accountant, PaymentInput{FixedExpenseID: 2, Amount: decimal.Zero})
	assert.True(t, budget.IsValidation(err))
	_, err = a.RegisterPayment(ctx, accountant, PaymentInput{Amount: decimal.NewFromInt(5)})
	assert.True(t, budget.IsValidation(err))
	assert.Zero(t, gw.CallsTo("insert", ""))

	p, err := a.RegisterPayment(ctx, accountant, PaymentInput{FixedExpenseID: 2, Amount: decimal.NewFromInt(51000), Note: " julio "})
	require.NoError(t, err)
	assert.Equal(t, 7, p.Month)
	assert.Equal(t, 2025, p.Year)
	assert.Equal(t, "julio", *p.Note)

	june := time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC)
	p, err = a.UpdatePayment(ctx, accountant, p.ID, PaymentInput{FixedExpenseID: 2, Amount: decimal.NewFromInt(52000), PaidAt: &june})
	require.NoError(t, err)
	assert.Equal(t, 6, p.Month)

	ov, err := a.Overview(ctx, accountant, Period{Month: 6, Year: 2025})
	require.NoError(t, err)
	assert.True(t, ov.FixedExpenses[1].Paid.Equal(decimal.NewFromInt(52000)))

	require.NoError(t, a.DeletePayment(ctx, accountant, p.ID))
	err = a.DeletePayment(ctx, accountant, p.ID)
	assert.True(t, budget.IsNotFound(err))
	_, err = a.UpdatePayment(ctx, accountant, 999, PaymentInput{Amount: decimal.NewFromInt(1)})
	assert.True(t, budget.IsNotFound(err))

	assert.Equal(t, 3, changes)
}

func TestParsePeriod(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	p, err := ParsePeriod("", "", now)
	require.NoError(t, err)
	assert.Equal(t, Period{Month: 3, Year: 2025}, p)

	p, err = ParsePeriod("11", "2024", now)
	require.NoError(t, err)
	assert.Equal(t, Period{Month: 11, Year: 2024}, p)

	for _, c := range [][2]string{{"13", ""}, {"0", ""}, {"x", ""}, {"", "24"}} {
		_, err := ParsePeriod(c[0], c[1], now)
		assert.True(t, budget.IsValidation(err), c)
	}
}
