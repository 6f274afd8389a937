package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/farxc/presupuestos-estudio/internal/report"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

const (
	SheetBudget   = "Presupuesto"
	SheetSummary  = "Resumen"
	SheetExtras   = "Extras"
	SheetProjects = "Proyectos"
)

// workbook starts a file whose first sheet is renamed to name.
func workbook(name string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// writeRows fills sheet from A1. Strings are guarded against formula
// injection; numbers are written as numbers.
func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if s, ok := v.(string); ok {
				v = cell(s)
			}
			if err := f.SetCellValue(sheet, name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeWorkbook(w io.Writer, f *excelize.File) error {
	defer f.Close()
	_, err := f.WriteTo(w)
	return err
}

// BudgetXLSX writes the internal detail of a budget: every item with its
// cost and its value in the primary currency, then the totals.
func (e *Exporter) BudgetXLSX(w io.Writer, b *store.Budget, sum *budget.Summary) error {
	f, err := workbook(SheetBudget)
	if err != nil {
		return err
	}

	rows := [][]any{
		{"Cliente", b.Client},
		{"Proyecto", text(b.Description)},
		{"Fecha", money.FormatDate(b.Date)},
		{"Estado", string(b.Status)},
		{},
		{"Descripción", "Categoría", "Costo", "Moneda", "Costo ARS", "Descripción cliente"},
	}
	for _, it := range sum.Items {
		ars, err := e.conv.ToPrimary(it.Cost, it.Currency)
		if err != nil {
			f.Close()
			return err
		}
		rows = append(rows, []any{
			it.Description,
			text(it.Category),
			it.Cost.InexactFloat64(),
			string(it.Currency),
			ars.Round(2).InexactFloat64(),
			text(it.ClientDescription),
		})
	}
	rows = append(rows,
		[]any{},
		[]any{"Total costos", "", "", "", sum.Total.Round(2).InexactFloat64()},
		[]any{"Margen", "", "", "", money.FormatPercent(sum.Margin)},
		[]any{"Precio final", "", "", "", sum.Price.Round(2).InexactFloat64()},
	)

	if err := writeRows(f, SheetBudget, rows); err != nil {
		f.Close()
		return err
	}
	return writeWorkbook(w, f)
}

// ProjectXLSX writes the Resumen sheet and, when there are any, the extras.
func (e *Exporter) ProjectXLSX(w io.Writer, ps *budget.ProjectSummary) error {
	f, err := workbook(SheetSummary)
	if err != nil {
		return err
	}

	err = writeRows(f, SheetSummary, [][]any{
		{"Monto presupuestado", ps.Price.Round(2).InexactFloat64()},
		{"Total cobrado", ps.Collected.Round(2).InexactFloat64()},
		{"Total gastos", ps.Spent.Round(2).InexactFloat64()},
		{"Saldo", ps.Balance.Round(2).InexactFloat64()},
	})
	if err != nil {
		f.Close()
		return err
	}

	if len(ps.Extras) > 0 {
		if _, err := f.NewSheet(SheetExtras); err != nil {
			f.Close()
			return err
		}
		rows := [][]any{{"id", "categoria", "descripcion", "monto", "fecha"}}
		for _, x := range ps.Extras {
			rows = append(rows, []any{x.ID, x.Category, text(x.Description), x.Amount.InexactFloat64(), money.FormatDate(x.Date)})
		}
		if err := writeRows(f, SheetExtras, rows); err != nil {
			f.Close()
			return err
		}
	}
	return writeWorkbook(w, f)
}

func (e *Exporter) DashboardXLSX(w io.Writer, groups []report.Group) error {
	f, err := workbook(SheetProjects)
	if err != nil {
		return err
	}

	rows := [][]any{{"Cliente", "Descripción", "Precio", "Cobrado", "Gastado", "Avance", "Saldo a cobrar", "Saldo a pagar"}}
	for _, g := range groups {
		rows = append(rows, []any{
			g.Client,
			text(g.PrincipalDescription),
			g.TotalPrice.InexactFloat64(),
			g.TotalCollected.InexactFloat64(),
			g.TotalSpent.InexactFloat64(),
			progress(g.Progress),
			g.Receivable.InexactFloat64(),
			g.Payable.InexactFloat64(),
		})
		for _, sp := range g.SubProjects {
			rows = append(rows, []any{"", fmt.Sprintf("↳ %s", sp.Description), sp.Price.InexactFloat64(), "", "", string(sp.Status)})
		}
	}
	if err := writeRows(f, SheetProjects, rows); err != nil {
		f.Close()
		return err
	}
	return writeWorkbook(w, f)
}
