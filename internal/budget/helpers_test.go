package budget

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/notify"
	"github.com/farxc/presupuestos-estudio/internal/store"
	"github.com/farxc/presupuestos-estudio/internal/store/storetest"
)

type notice struct {
	userID  string
	kind    notify.Kind
	message string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (f *fakeNotifier) Notify(userID string, kind notify.Kind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice{userID, kind, message})
}

func (f *fakeNotifier) all() []notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notice(nil), f.notices...)
}

func newGateway() *storetest.Gateway {
	gw := storetest.New()
	gw.Cascade(store.TableBudgets, store.TableBudgets, "presupuesto_padre_id")
	gw.Cascade(store.TableBudgets, store.TableItems, "presupuesto_id")
	gw.Cascade(store.TableBudgets, store.TableCollections, "presupuesto_id")
	gw.Cascade(store.TableBudgets, store.TableExpenses, "presupuesto_id")
	return gw
}

func newTestService(t *testing.T) (*Service, *storetest.Gateway, *fakeNotifier) {
	t.Helper()
	gw := newGateway()
	n := &fakeNotifier{}
	svc := NewService(store.NewStorage(gw), n, logger.Discard(), Config{
		USDFactor: decimal.NewFromInt(1000),
		Editor: EditorOptions{
			Quiescence:     30 * time.Millisecond,
			ReconcileDelay: 30 * time.Millisecond,
		},
	})
	svc.now = func() time.Time { return time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc, gw, n
}

func seedBudget(gw *storetest.Gateway, client string, parent *int64, status store.BudgetStatus) int64 {
	row := map[string]any{
		"cliente":         client,
		"direccion":       "Calle " + client + " 100",
		"telefono":        "11-5555-0000",
		"margen_ganancia": 15,
		"estado":          string(status),
		"fecha":           "2025-03-01T00:00:00Z",
	}
	if parent != nil {
		row["presupuesto_padre_id"] = *parent
	}
	return gw.Seed(store.TableBudgets, row)[0]
}

func seedItem(gw *storetest.Gateway, budgetID int64, desc string, cost int64, cur string) int64 {
	return gw.Seed(store.TableItems, map[string]any{
		"presupuesto_id": budgetID,
		"descripcion":    desc,
		"costo":          cost,
		"moneda":         cur,
	})[0]
}

func budgetRow(t *testing.T, gw *storetest.Gateway, id int64) storetest.Row {
	t.Helper()
	for _, r := range gw.Rows(store.TableBudgets) {
		if fmt.Sprint(r["id"]) == strconv.FormatInt(id, 10) {
			return r
		}
	}
	t.Fatalf("budget %d not stored", id)
	return nil
}

func ptr[T any](v T) *T { return &v }
