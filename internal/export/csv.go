package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

// ItemColumns is the header shared by the CSV export and the item import.
var ItemColumns = []string{"descripcion", "categoria", "costo", "moneda", "costo_ars", "descripcion_cliente"}

// BudgetCSV writes one row per item. Amounts use the es-AR format, so the
// file opens cleanly in a local spreadsheet and can be imported back.
func (e *Exporter) BudgetCSV(w io.Writer, b *store.Budget, sum *budget.Summary) error {
	records := [][]string{ItemColumns}
	for _, it := range sum.Items {
		ars, err := e.conv.ToPrimary(it.Cost, it.Currency)
		if err != nil {
			return err
		}
		records = append(records, []string{
			cell(it.Description),
			cell(text(it.Category)),
			money.FormatNumber(it.Cost, 2),
			string(it.Currency),
			money.FormatNumber(ars, 2),
			cell(text(it.ClientDescription)),
		})
	}

	out := w
	var flush io.Closer
	if e.csvCharset != nil {
		enc := encoding.ReplaceUnsupported(e.csvCharset.NewEncoder()).Writer(w)
		flush, _ = enc.(io.Closer)
		out = enc
	}

	if err := writeFrame(out, records); err != nil {
		return fmt.Errorf("error writing items of budget %d: %w", b.ID, err)
	}
	if flush != nil {
		return flush.Close()
	}
	return nil
}

// writeFrame writes records, header first, through a string-typed frame.
func writeFrame(w io.Writer, records [][]string) error {
	if len(records) < 2 {
		// a frame without rows writes nothing, keep the header
		_, err := fmt.Fprintln(w, strings.Join(records[0], ","))
		return err
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if err := df.Error(); err != nil {
		return err
	}
	return df.WriteCSV(w)
}
