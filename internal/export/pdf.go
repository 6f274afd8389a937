package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/farxc/presupuestos-estudio/internal/report"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

const (
	pageLeft   = 15.0
	pageRight  = 195.0
	pageWidth  = pageRight - pageLeft
	rowHeight  = 7.0
	logoWidth  = 50.0
	logoImage  = "logo"
	fontFamily = "Helvetica"
)

// document wraps a page and the translator from UTF-8 to the cp1252 core
// fonts.
type document struct {
	*fpdf.Fpdf
	tr func(string) string
}

func (e *Exporter) newDocument(title string) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(e.compress)
	pdf.SetCreationDate(e.now())
	pdf.SetTitle(title, true)
	pdf.SetCreator("presupuestos-estudio", true)
	pdf.SetMargins(pageLeft, pageLeft, pageLeft)
	pdf.AddPage()
	return &document{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) textAt(x, y, size float64, s string) {
	d.SetFont(fontFamily, "", size)
	d.Text(x, y, d.tr(s))
}

// rightAt writes s so that it ends at x, with y as the baseline.
func (d *document) rightAt(x, y, size float64, s string) {
	d.SetFont(fontFamily, "", size)
	s = d.tr(s)
	d.Text(x-d.GetStringWidth(s), y, s)
}

// fit cuts s until it fits in a cell of width w.
func (d *document) fit(s string, w float64) string {
	for s != "" && d.GetStringWidth(s) > w-2 {
		s = s[:len(s)-1]
	}
	return s
}

func (d *document) table(startY float64, widths []float64, aligns []string, head []string, rows [][]string) {
	d.SetY(startY)

	d.SetFont(fontFamily, "B", 10)
	d.SetFillColor(34, 34, 34)
	d.SetTextColor(255, 255, 255)
	for i, h := range head {
		d.CellFormat(widths[i], rowHeight, d.fit(d.tr(h), widths[i]), "", 0, aligns[i], true, 0, "")
	}
	d.Ln(-1)

	d.SetFont(fontFamily, "", 10)
	d.SetTextColor(0, 0, 0)
	d.SetFillColor(242, 242, 242)
	for r, row := range rows {
		for i, v := range row {
			d.CellFormat(widths[i], rowHeight, d.fit(d.tr(v), widths[i]), "", 0, aligns[i], r%2 == 1, 0, "")
		}
		d.Ln(-1)
	}
}

func (e *Exporter) drawLogo(d *document) {
	const component = "Exporter"

	if e.logoPath == "" {
		return
	}
	f, err := os.Open(e.logoPath)
	if err != nil {
		e.log.Warn(component, "Logo not available, leaving it out: %v", err)
		return
	}
	defer f.Close()

	opts := fpdf.ImageOptions{ImageType: imageType(e.logoPath), ReadDpi: true}
	info := d.RegisterImageOptionsReader(logoImage, opts, f)
	if d.Err() || info == nil || info.Width() == 0 {
		e.log.Warn(component, "Logo %s is unreadable, leaving it out: %v", e.logoPath, d.Error())
		d.ClearError()
		return
	}
	d.ImageOptions(logoImage, 145, 8, logoWidth, logoWidth*info.Height()/info.Width(), false, opts, 0, "")
}

func imageType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPG"
	case ".gif":
		return "GIF"
	}
	return ""
}

// BudgetPDF renders the client document. Only items with a client-facing
// description are listed, and only the final price is shown.
func (e *Exporter) BudgetPDF(w io.Writer, b *store.Budget, sum *budget.Summary) error {
	d := e.newDocument("Presupuesto " + b.Client)
	e.drawLogo(d)

	d.rightAt(pageRight, 42, 10, StudioTagline)
	d.textAt(pageLeft, 50, 14, "Presupuesto")
	d.textAt(pageLeft, 60, 11, "Cliente: "+b.Client)
	d.textAt(pageLeft, 66, 11, "Proyecto: "+text(b.Description))
	d.rightAt(pageRight, 60, 11, "Fecha: "+money.FormatDate(e.now()))

	lines := budget.ClientLines(sum.Items)
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{l})
	}
	d.table(75, []float64{pageWidth}, []string{"L"}, []string{"Descripción Detallada"}, rows)

	finalY := d.GetY()
	d.rightAt(140, finalY+15, 14, "Total Presupuestado:")
	d.rightAt(pageRight, finalY+15, 14, money.FormatARS(sum.Price))
	d.textAt(pageLeft, finalY+30, 9, ValidityNote)

	return d.Output(w)
}

// ProjectPDF renders the money summary of one project and the expenses
// that were not part of the quote.
func (e *Exporter) ProjectPDF(w io.Writer, ps *budget.ProjectSummary) error {
	d := e.newDocument("Resumen " + ps.Budget.Client)

	d.textAt(pageLeft, 20, 14, "Resumen de Proyecto - "+ps.Budget.Client)
	d.textAt(pageLeft, 28, 10, "Dirección: "+text(ps.Budget.Address))
	d.rightAt(pageRight, 28, 10, "Fecha: "+money.FormatDate(e.now()))

	quarter := pageWidth / 4
	d.table(35,
		[]float64{quarter, quarter, quarter, quarter},
		[]string{"R", "R", "R", "R"},
		[]string{"Monto presupuestado", "Total cobrado", "Total gastos", "Saldo"},
		[][]string{{
			money.FormatARS(ps.Price),
			money.FormatARS(ps.Collected),
			money.FormatARS(ps.Spent),
			money.FormatARS(ps.Balance),
		}},
	)

	if len(ps.Extras) > 0 {
		y := d.GetY()
		d.textAt(pageLeft, y+10, 10, "Gastos adicionales no presupuestados:")
		rows := make([][]string, 0, len(ps.Extras))
		for _, x := range ps.Extras {
			rows = append(rows, []string{x.Category, text(x.Description), money.FormatARS(x.Amount)})
		}
		d.table(y+15, []float64{45, 95, 40}, []string{"L", "L", "R"}, []string{"Categoría", "Descripción", "Monto"}, rows)
	}

	return d.Output(w)
}

// DashboardPDF lists the grouped projects with their progress.
func (e *Exporter) DashboardPDF(w io.Writer, groups []report.Group) error {
	d := e.newDocument("Resumen de Proyectos en Ejecución")
	d.textAt(pageLeft, 20, 18, "Resumen de Proyectos en Ejecución")

	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			g.Client,
			text(g.PrincipalDescription),
			money.FormatARS(g.TotalPrice),
			money.FormatARS(g.TotalCollected),
			money.FormatARS(g.TotalSpent),
			progress(g.Progress),
		})
	}
	d.table(30,
		[]float64{36, 48, 26, 26, 26, 18},
		[]string{"L", "L", "R", "R", "R", "R"},
		[]string{"Cliente", "Descripción", "Precio", "Cobrado", "Gastado", "Avance"},
		rows,
	)

	t := report.Sum(groups)
	y := d.GetY() + 10
	d.textAt(pageLeft, y, 10, fmt.Sprintf("Saldo a cobrar: %s", money.FormatARS(t.Receivable)))
	d.textAt(pageLeft, y+6, 10, fmt.Sprintf("Saldo a pagar: %s", money.FormatARS(t.Payable)))

	return d.Output(w)
}

func progress(p *int) string {
	if p == nil {
		return "0%"
	}
	return fmt.Sprintf("%d%%", *p)
}
