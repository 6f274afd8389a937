package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/notify"
	"github.com/farxc/presupuestos-estudio/internal/report"
	"github.com/farxc/presupuestos-estudio/internal/response"
	"github.com/farxc/presupuestos-estudio/internal/store"
	"github.com/farxc/presupuestos-estudio/internal/store/storetest"
)

type testServer struct {
	t      *testing.T
	app    *application
	gw     *storetest.Gateway
	mux    http.Handler
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	gw := storetest.New()
	gw.Cascade(store.TableBudgets, store.TableBudgets, "presupuesto_padre_id")
	gw.Cascade(store.TableBudgets, store.TableItems, "presupuesto_id")
	gw.Cascade(store.TableBudgets, store.TableCollections, "presupuesto_id")
	gw.Cascade(store.TableBudgets, store.TableExpenses, "presupuesto_id")

	gw.Seed(store.TableProfiles,
		map[string]any{"id": "admin", "rol_id": 1},
		map[string]any{"id": "taller", "rol_id": 2},
	)
	gw.Seed(store.TableRolePermissions,
		map[string]any{"rol_id": 1, "permiso": "manage_presupuestos"},
		map[string]any{"rol_id": 1, "permiso": "view_control_cuentas"},
	)

	cfg := config{
		auth: authConfig{secret: "test-secret"},
		budget: budgetConfig{
			usdToARS:       1000,
			marginDebounce: 20 * time.Millisecond,
			reconcileDelay: 20 * time.Millisecond,
		},
		cache: cacheConfig{
			dashboardTTL:    time.Minute,
			permissionTTL:   time.Minute,
			notificationTTL: time.Minute,
		},
	}
	app := newApplication(cfg, store.NewStorage(gw), logger.Discard())
	t.Cleanup(func() { _ = app.budgets.Close(context.Background()) })

	ts := &testServer{t: t, app: app, gw: gw, mux: app.mount(), tokens: map[string]string{}}
	for _, user := range []string{"admin", "taller"} {
		tok, err := app.verifier.Issue(user, time.Hour)
		require.NoError(t, err)
		ts.tokens[user] = tok
	}
	return ts
}

func (ts *testServer) do(user, method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()

	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(ts.t, err)
		rd = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, rd)
	if tok, ok := ts.tokens[user]; ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	ts.mux.ServeHTTP(rr, req)
	return rr
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func decodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var res response.APIResponse[T]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res), rr.Body.String())
	return res.Data
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var res response.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res), rr.Body.String())
	return res
}

func (ts *testServer) seedBudget(client string) int64 {
	return ts.gw.Seed(store.TableBudgets, map[string]any{
		"cliente": client, "margen_ganancia": 15, "estado": "presupuestado", "fecha": "2025-06-01T00:00:00Z",
	})[0]
}

func TestHealthIsPublic(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do("", http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "available", body["status"])
	assert.Equal(t, version, body["version"])
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do("", http.MethodGet, "/v1/budgets", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, codeUnauthorized, decodeError(t, rr).Code)

	ts.tokens["intruso"] = "not-a-jwt"
	rr = ts.do("intruso", http.MethodGet, "/v1/budgets", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.do("admin", http.MethodGet, "/v1/budgets", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBudgetLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do("taller", http.MethodPost, "/v1/budgets", map[string]any{
		"cliente": "  Garcia ", "descripcion": "Cocina", "direccion": "Av. Cabildo 1200",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeData[*store.Budget](t, rr)
	assert.Equal(t, "Garcia", created.Client)
	assert.Equal(t, store.StatusQuoted, created.Status)
	id := created.ID

	rr = ts.do("taller", http.MethodPost, "/v1/budgets/"+itoa(id)+"/items", map[string]any{
		"descripcion": "placas", "costo": "1.000,00", "descripcion_cliente": "Bajo mesada",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = ts.do("taller", http.MethodPost, "/v1/budgets/"+itoa(id)+"/items", map[string]any{
		"descripcion": "herrajes", "costo": 2, "moneda": "USD",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sum := decodeData[*budget.Summary](t, rr)
	assert.True(t, sum.Total.Equal(decimal.NewFromInt(3000)), sum.Total.String())
	assert.True(t, sum.Price.Equal(decimal.NewFromInt(3450)), sum.Price.String())

	rr = ts.do("taller", http.MethodPost, "/v1/budgets/"+itoa(id)+"/additionals", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	additional := decodeData[*store.Budget](t, rr)
	assert.Equal(t, budget.DefaultAdditionalDescription, *additional.Description)
	assert.Equal(t, "Av. Cabildo 1200", *additional.Address)

	rr = ts.do("taller", http.MethodPost, "/v1/budgets/"+itoa(additional.ID)+"/additionals", map[string]any{"descripcion": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do("taller", http.MethodGet, "/v1/budgets/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	detail := decodeData[*budget.Detail](t, rr)
	assert.Len(t, detail.Summary.Items, 2)
	assert.Len(t, detail.Additionals, 1)

	rr = ts.do("taller", http.MethodGet, "/v1/budgets?q=garc", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	tree := decodeData[[]budgetNode](t, rr)
	require.Len(t, tree, 1)
	assert.Len(t, tree[0].Additionals, 1)

	rr = ts.do("taller", http.MethodPatch, "/v1/budgets/"+itoa(id)+"/status", map[string]any{"estado": "en curso"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, store.StatusInProgress, decodeData[*store.Budget](t, rr).Status)

	rr = ts.do("taller", http.MethodPatch, "/v1/budgets/"+itoa(id)+"/status", map[string]any{"estado": "cancelado"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do("taller", http.MethodGet, "/v1/projects/in-progress", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeData[[]budget.ProjectSummary](t, rr), 1)

	rr = ts.do("taller", http.MethodDelete, "/v1/budgets/"+itoa(id), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, codeForbidden, decodeError(t, rr).Code)
	assert.Zero(t, ts.gw.CallsTo("delete", store.TableBudgets))

	rr = ts.do("admin", http.MethodDelete, "/v1/budgets/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, ts.gw.CallsTo("delete", store.TableBudgets))

	rr = ts.do("admin", http.MethodGet, "/v1/budgets/"+itoa(id), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, codeNotFound, decodeError(t, rr).Code)
	assert.Empty(t, ts.gw.Rows(store.TableBudgets))
}

func TestRequestErrors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedBudget("Garcia")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"blank client", http.MethodPost, "/v1/budgets", map[string]any{"cliente": "  "}, http.StatusUnprocessableEntity, codeValidation},
		{"unknown field", http.MethodPost, "/v1/budgets", map[string]any{"client": "x"}, http.StatusBadRequest, codeBadRequest},
		{"malformed json", http.MethodPost, "/v1/budgets", `{"cliente":`, http.StatusBadRequest, codeBadRequest},
		{"bad id", http.MethodGet, "/v1/budgets/abc", nil, http.StatusUnprocessableEntity, codeValidation},
		{"missing budget", http.MethodGet, "/v1/budgets/999", nil, http.StatusNotFound, codeNotFound},
		{"zero cost", http.MethodPost, "/v1/budgets/" + itoa(id) + "/items", map[string]any{"descripcion": "x", "costo": "0"}, http.StatusUnprocessableEntity, codeValidation},
		{"unparsable cost", http.MethodPost, "/v1/budgets/" + itoa(id) + "/items", map[string]any{"descripcion": "x", "costo": "mucho"}, http.StatusUnprocessableEntity, codeValidation},
		{"unknown currency", http.MethodPost, "/v1/budgets/" + itoa(id) + "/items", map[string]any{"descripcion": "x", "costo": "1", "moneda": "EUR"}, http.StatusUnprocessableEntity, codeValidation},
		{"bad date", http.MethodGet, "/v1/budgets?desde=ayer", nil, http.StatusUnprocessableEntity, codeValidation},
		{"negative margin", http.MethodPatch, "/v1/budgets/" + itoa(id) + "/margin", map[string]any{"margen_ganancia": "-5"}, http.StatusUnprocessableEntity, codeValidation},
		{"unsupported export", http.MethodGet, "/v1/budgets/" + itoa(id) + "/export.docx", nil, http.StatusBadRequest, codeBadRequest},
		{"bad period", http.MethodGet, "/v1/accounting?mes=13", nil, http.StatusUnprocessableEntity, codeValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := ts.do("admin", tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
			assert.Equal(t, tc.code, decodeError(t, rr).Code)
		})
	}
	assert.Zero(t, ts.gw.CallsTo("insert", ""))
}

func TestStoreFailures(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedBudget("Garcia")

	// list endpoints answer with an empty result and the reason
	ts.gw.FailOnce("select", store.TableBudgets, errors.New("connection refused"))
	rr := ts.do("admin", http.MethodGet, "/v1/budgets", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var res struct {
		Success bool         `json:"success"`
		Message string       `json:"message"`
		Code    string       `json:"code"`
		Data    []budgetNode `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, "connection refused", res.Message)
	assert.Equal(t, store.CodeTransport, res.Code)
	assert.Empty(t, res.Data)

	// writes report the store's message with 502
	ts.gw.FailOnce("insert", store.TableCollections, errors.New("violates check constraint"))
	rr = ts.do("admin", http.MethodPost, "/v1/budgets/"+itoa(id)+"/collections", map[string]any{"monto": 100})
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "violates check constraint", decodeError(t, rr).Error)
}

func TestMarginEditNotifiesFailure(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedBudget("Garcia")

	rr := ts.do("taller", http.MethodPatch, "/v1/budgets/"+itoa(id)+"/margin", map[string]any{"margen_ganancia": "12,5"})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	lv := decodeData[budget.LocalValue[decimal.Decimal]](t, rr)
	assert.Equal(t, budget.StatePending, lv.State)

	require.Eventually(t, func() bool {
		d := decodeData[*budget.Detail](t, ts.do("taller", http.MethodGet, "/v1/budgets/"+itoa(id), nil))
		return d.Budget.Margin.Equal(decimal.RequireFromString("12.5")) && d.Margin != nil && d.Margin.State == budget.StateConfirmed
	}, time.Second, 10*time.Millisecond)

	ts.gw.FailOnce("update", store.TableBudgets, errors.New("timeout"))
	rr = ts.do("taller", http.MethodPatch, "/v1/budgets/"+itoa(id)+"/progress", map[string]any{"avance_manual": 150})
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, 100, decodeData[budget.LocalValue[int]](t, rr).Value)

	var notices []notify.Notice
	require.Eventually(t, func() bool {
		notices = append(notices, decodeData[[]notify.Notice](t, ts.do("taller", http.MethodGet, "/v1/notifications", nil))...)
		return len(notices) > 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, notify.KindError, notices[0].Kind)
	assert.Contains(t, notices[0].Message, "timeout")

	// notices belong to the user who typed the value
	assert.Empty(t, decodeData[[]notify.Notice](t, ts.do("admin", http.MethodGet, "/v1/notifications", nil)))
}

func TestMovementsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedBudget("Garcia")
	ts.gw.Seed(store.TableItems, map[string]any{"presupuesto_id": id, "descripcion": "placas", "costo": 10000, "moneda": "ARS"})

	rr := ts.do("taller", http.MethodPost, "/v1/budgets/"+itoa(id)+"/collections", map[string]any{"monto": "5.000", "fecha": "02/06/2025"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = ts.do("taller", http.MethodPost, "/v1/budgets/"+itoa(id)+"/expenses", map[string]any{"monto": 4000})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = ts.do("taller", http.MethodPost, "/v1/budgets/"+itoa(id)+"/expenses", map[string]any{"monto": 1500, "categoria": "flete", "descripcion": "Envío"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	extra := decodeData[*store.Expense](t, rr)

	rr = ts.do("taller", http.MethodGet, "/v1/budgets/"+itoa(id)+"/movements", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	ps := decodeData[*budget.ProjectSummary](t, rr)
	assert.True(t, ps.Price.Equal(decimal.NewFromInt(11500)), ps.Price.String())
	assert.True(t, ps.Collected.Equal(decimal.NewFromInt(5000)))
	assert.True(t, ps.Spent.Equal(decimal.NewFromInt(5500)))
	assert.True(t, ps.Balance.Equal(decimal.NewFromInt(6000)))
	require.Len(t, ps.Extras, 1)

	rr = ts.do("taller", http.MethodPost, "/v1/budgets/"+itoa(id)+"/collections", map[string]any{"monto": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do("taller", http.MethodDelete, "/v1/expenses/"+itoa(extra.ID), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = ts.do("admin", http.MethodDelete, "/v1/expenses/"+itoa(extra.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do("admin", http.MethodDelete, "/v1/expenses/"+itoa(extra.ID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestItemsImportAndClientDescription(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedBudget("Garcia")

	csv := "descripcion;costo;descripcion_cliente\nplacas;1.000,00;Bajo mesada\nflete;abc;\n"
	rr := ts.do("taller", http.MethodPost, "/v1/budgets/"+itoa(id)+"/items/import", csv)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res struct {
		Data struct {
			Imported int `json:"importados"`
			Rejected []struct {
				Row   int    `json:"fila"`
				Error string `json:"error"`
			} `json:"rechazados"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Data.Imported)
	require.Len(t, res.Data.Rejected, 1)
	assert.Equal(t, 3, res.Data.Rejected[0].Row)
	assert.Contains(t, res.Data.Rejected[0].Error, "invalid amount")
	assert.Contains(t, res.Data.Rejected[0].Error, "abc")

	rr = ts.do("taller", http.MethodPost, "/v1/budgets/"+itoa(id)+"/items/import", "descripcion;costo\n")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do("taller", http.MethodGet, "/v1/budgets/"+itoa(id)+"/items", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sum := decodeData[*budget.Summary](t, rr)
	require.Len(t, sum.Items, 1)

	rr = ts.do("taller", http.MethodPatch, "/v1/items/"+itoa(sum.Items[0].ID)+"/client-description", map[string]any{"descripcion_cliente": "Mueble de cocina"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Mueble de cocina", *decodeData[*store.Item](t, rr).ClientDescription)

	rr = ts.do("taller", http.MethodPatch, "/v1/items/999/client-description", map[string]any{"descripcion_cliente": "x"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestExports(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedBudget("Garcia e Hijos")
	ts.gw.Seed(store.TableItems, map[string]any{"presupuesto_id": id, "descripcion": "placas", "costo": 1000, "moneda": "ARS", "descripcion_cliente": "Bajo mesada"})

	rr := ts.do("taller", http.MethodGet, "/v1/budgets/"+itoa(id)+"/export.pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Presupuesto-Garcia-e-Hijos.pdf"`, rr.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))

	rr = ts.do("taller", http.MethodGet, "/v1/budgets/"+itoa(id)+"/export.csv", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "descripcion,categoria,costo"))

	rr = ts.do("taller", http.MethodGet, "/v1/budgets/"+itoa(id)+"/summary.xlsx", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Resumen-Garcia-e-Hijos.xlsx")

	rr = ts.do("taller", http.MethodGet, "/v1/budgets/"+itoa(id)+"/summary.csv", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do("taller", http.MethodGet, "/v1/budgets/999/export.pdf", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func dashboardRows(calls *int) storetest.Procedure {
	return func(map[string]any) (any, error) {
		*calls++
		return []map[string]any{{
			"cliente":               "Garcia",
			"proyecto_principal_id": 1,
			"precio_total":          "115000",
			"cobrado_total":         "50000",
			"gastado_total":         "30000",
			"saldo_a_cobrar":        "65000",
			"saldo_a_pagar":         "20000",
		}}, nil
	}
}

func TestDashboardCachedUntilWrite(t *testing.T) {
	ts := newTestServer(t)
	calls := 0
	ts.gw.Handle(store.ProcDashboardByClient, dashboardRows(&calls))

	rr := ts.do("taller", http.MethodGet, "/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	view := decodeData[dashboardView](t, rr)
	require.Len(t, view.Groups, 1)
	assert.True(t, view.Totals.Receivable.Equal(decimal.NewFromInt(65000)))
	assert.True(t, view.Groups[0].Pending.Equal(decimal.NewFromInt(45000)))

	ts.do("taller", http.MethodGet, "/v1/dashboard", nil)
	assert.Equal(t, 1, calls)

	rr = ts.do("taller", http.MethodPost, "/v1/budgets", map[string]any{"cliente": "Perez"})
	require.Equal(t, http.StatusCreated, rr.Code)
	ts.do("taller", http.MethodGet, "/v1/dashboard", nil)
	assert.Equal(t, 2, calls)

	rr = ts.do("taller", http.MethodGet, "/v1/dashboard/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, calls)

	rr = ts.do("taller", http.MethodGet, "/v1/dashboard/export.csv", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAccountingEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.gw.Handle(store.ProcCashBalance, func(map[string]any) (any, error) {
		return []any{"125000"}, nil
	})
	fixed := ts.gw.Seed(store.TableFixedExpenses, map[string]any{"nombre": "Alquiler", "activo": true})[0]

	rr := ts.do("taller", http.MethodGet, "/v1/accounting", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do("admin", http.MethodPost, "/v1/accounting/payments", map[string]any{
		"gasto_fijo_id": fixed, "monto_pagado": "80.000", "fecha_pago": "2025-06-05",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	p := decodeData[*store.FixedExpensePayment](t, rr)
	assert.Equal(t, 6, p.Month)
	assert.Equal(t, 2025, p.Year)

	rr = ts.do("admin", http.MethodGet, "/v1/accounting?mes=6&anio=2025", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	ov := decodeData[*report.Overview](t, rr)
	assert.Equal(t, report.Period{Month: 6, Year: 2025}, ov.Period)
	require.Len(t, ov.FixedExpenses, 1)
	assert.True(t, ov.FixedExpenses[0].Paid.Equal(decimal.NewFromInt(80000)))

	rr = ts.do("admin", http.MethodPatch, "/v1/accounting/payments/"+itoa(p.ID), map[string]any{"monto_pagado": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	rr = ts.do("admin", http.MethodPatch, "/v1/accounting/payments/999", map[string]any{"monto_pagado": 10})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do("admin", http.MethodDelete, "/v1/accounting/payments/"+itoa(p.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, ts.gw.Rows(store.TablePayments))
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t)
	ts.app.limiter = newLimiter(1, 2)

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, ts.do("", http.MethodGet, "/v1/health", nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
