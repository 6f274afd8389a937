package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/farxc/presupuestos-estudio/internal/report"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

func ptr[T any](v T) *T { return &v }

func newTestExporter(opts ...Option) *Exporter {
	e := New(money.NewConverter(decimal.NewFromInt(1000)), logger.Discard(), opts...)
	e.compress = false
	e.now = func() time.Time { return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) }
	return e
}

func fixture(t *testing.T) (*store.Budget, *budget.Summary) {
	t.Helper()
	b := &store.Budget{
		ID:          7,
		Client:      "Garcia",
		Description: ptr("Cocina integral"),
		Address:     ptr("Av. Cabildo 1200"),
		Margin:      decimal.NewFromInt(15),
		Status:      store.StatusQuoted,
		Date:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	items := []store.Item{
		{ID: 1, BudgetID: 7, Description: "placas melamina", Category: ptr("Aserradero Norte"), Cost: decimal.NewFromInt(1000), Currency: money.ARS, ClientDescription: ptr("Muebles bajo mesada en melamina blanca")},
		{ID: 2, BudgetID: 7, Description: "=HYPERLINK(\"x\")", Cost: decimal.NewFromInt(2), Currency: money.USD},
	}
	sum, err := budget.Summarize(b, items, money.NewConverter(decimal.NewFromInt(1000)))
	require.NoError(t, err)
	return b, sum
}

func TestBudgetPDFShowsClientLinesAndPrice(t *testing.T) {
	b, sum := fixture(t)
	var buf bytes.Buffer

	require.NoError(t, newTestExporter().BudgetPDF(&buf, b, sum))

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Contains(t, string(out), "Presupuesto")
	assert.Contains(t, string(out), "Cliente: Garcia")
	assert.Contains(t, string(out), "Proyecto: Cocina integral")
	assert.Contains(t, string(out), "Fecha: 10/06/2025")
	assert.Contains(t, string(out), "Muebles bajo mesada en melamina blanca")
	assert.Contains(t, string(out), "Total Presupuestado:")
	assert.Contains(t, string(out), "$ 3.450,00")
	assert.Contains(t, string(out), "Presupuesto v\xe1lido por 15 d\xedas. No incluye IVA")
	// internal descriptions stay out of the client document
	assert.NotContains(t, string(out), "placas melamina")
	assert.NotContains(t, string(out), "HYPERLINK")
}

func TestBudgetPDFWithoutUsableLogo(t *testing.T) {
	b, sum := fixture(t)
	dir := t.TempDir()
	broken := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(broken, []byte("not a png"), 0o644))

	for _, path := range []string{filepath.Join(dir, "missing.png"), broken, filepath.Join(dir, "logo.webp")} {
		var buf bytes.Buffer
		require.NoError(t, newTestExporter(WithLogo(path)).BudgetPDF(&buf, b, sum), path)
		assert.Contains(t, buf.String(), "Total Presupuestado:", path)
	}
}

func projectFixture() *budget.ProjectSummary {
	return &budget.ProjectSummary{
		Budget:    store.Budget{ID: 7, Client: "Garcia", Address: ptr("Av. Cabildo 1200")},
		Price:     decimal.NewFromInt(11500),
		Collected: decimal.NewFromInt(5000),
		Spent:     decimal.NewFromInt(5500),
		Balance:   decimal.NewFromInt(6000),
		Extras: []store.Expense{
			{ID: 3, Category: "flete", Description: ptr("Envío extra"), Amount: decimal.NewFromInt(1500), Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestProjectPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter().ProjectPDF(&buf, projectFixture()))

	out := buf.String()
	assert.Contains(t, out, "Resumen de Proyecto - Garcia")
	assert.Contains(t, out, "$ 6.000,00")
	assert.Contains(t, out, "Gastos adicionales no presupuestados:")

	ps := projectFixture()
	ps.Extras = nil
	buf.Reset()
	require.NoError(t, newTestExporter().ProjectPDF(&buf, ps))
	assert.NotContains(t, buf.String(), "Gastos adicionales")
}

func dashboardFixture() []report.Group {
	return []report.Group{
		{
			ClientGroup: store.ClientGroup{
				Client:               "Garcia",
				PrincipalID:          1,
				PrincipalDescription: ptr("Cocina"),
				TotalPrice:           decimal.NewFromInt(115000),
				TotalCollected:       decimal.NewFromInt(50000),
				TotalSpent:           decimal.NewFromInt(30000),
				Progress:             ptr(40),
				Receivable:           decimal.NewFromInt(65000),
				Payable:              decimal.NewFromInt(20000),
				SubProjects: store.SubProjects{
					{ID: 2, Description: "Adicional: estante", Price: decimal.NewFromInt(5000), Status: store.StatusInProgress},
				},
			},
			Pending: decimal.NewFromInt(45000),
		},
	}
}

func TestDashboardPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter().DashboardPDF(&buf, dashboardFixture()))
	assert.Contains(t, buf.String(), "40%")
	assert.Contains(t, buf.String(), "Saldo a cobrar: $ 65.000,00")
}

func TestBudgetXLSX(t *testing.T) {
	b, sum := fixture(t)
	var buf bytes.Buffer
	require.NoError(t, newTestExporter().BudgetXLSX(&buf, b, sum))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetBudget)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cliente", "Garcia"}, rows[0])
	assert.Equal(t, "Descripción", rows[5][0])
	assert.Equal(t, "placas melamina", rows[6][0])
	assert.Equal(t, "'=HYPERLINK(\"x\")", rows[7][0])
	assert.Equal(t, "2000", rows[7][4])

	last := rows[len(rows)-1]
	assert.Equal(t, "Precio final", last[0])
	assert.Equal(t, "3450", last[4])
}

func TestProjectXLSXSheets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter().ProjectXLSX(&buf, projectFixture()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetExtras}, f.GetSheetList())
	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Monto presupuestado", "11500"},
		{"Total cobrado", "5000"},
		{"Total gastos", "5500"},
		{"Saldo", "6000"},
	}, rows)

	extras, err := f.GetRows(SheetExtras)
	require.NoError(t, err)
	require.Len(t, extras, 2)
	assert.Equal(t, "flete", extras[1][1])

	ps := projectFixture()
	ps.Extras = nil
	buf.Reset()
	require.NoError(t, newTestExporter().ProjectXLSX(&buf, ps))
	f2, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f2.Close()
	assert.Equal(t, []string{SheetSummary}, f2.GetSheetList())
}

func TestDashboardXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter().DashboardXLSX(&buf, dashboardFixture()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetProjects)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Garcia", rows[1][0])
	assert.Equal(t, "40%", rows[1][5])
	assert.Equal(t, "↳ Adicional: estante", rows[2][1])
}

func TestBudgetCSV(t *testing.T) {
	b, sum := fixture(t)
	sum.Items[0].ClientDescription = ptr("Estructura metálica")

	var buf bytes.Buffer
	require.NoError(t, newTestExporter().BudgetCSV(&buf, b, sum))
	out := buf.String()
	assert.Contains(t, out, "descripcion,categoria,costo,moneda,costo_ars,descripcion_cliente\n")
	assert.Contains(t, out, `placas melamina,Aserradero Norte,"1.000,00",ARS,"1.000,00",Estructura metálica`)
	assert.Contains(t, out, `'=HYPERLINK`)

	buf.Reset()
	require.NoError(t, newTestExporter(WithWindows1252CSV()).BudgetCSV(&buf, b, sum))
	assert.Contains(t, buf.String(), "Estructura met\xe1lica")

	buf.Reset()
	sum.Items = nil
	require.NoError(t, newTestExporter().BudgetCSV(&buf, b, sum))
	assert.Equal(t, "descripcion,categoria,costo,moneda,costo_ars,descripcion_cliente\n", buf.String())
}

func TestFormatHelpers(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)
	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.Equal(t, "application/pdf", PDF.ContentType())
	assert.Equal(t, "Presupuesto-Garcia-e-Hijos.pdf", Filename("Presupuesto", "Garcia e Hijos", PDF))
	assert.Equal(t, "Resumen-sin-cliente.xlsx", Filename("Resumen", " / ", XLSX))

	err = newTestExporter().Project(&bytes.Buffer{}, CSV, projectFixture())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
