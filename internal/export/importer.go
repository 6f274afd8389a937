package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/charmap"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/money"
)

var (
	ErrEmptyFile     = errors.New("file has no rows")
	ErrMalformedFile = errors.New("malformed file")
)

type ImportOptions struct {
	// Windows1252 decodes files saved by spreadsheet programs in that charset.
	Windows1252 bool
	// Delimiter is detected from the header line when zero.
	Delimiter rune
}

// RowError is a rejected line of the file. Row counts the header as 1.
type RowError struct {
	Row int   `json:"fila"`
	Err error `json:"-"`
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// MarshalJSON sends the rejection reason along with the row number.
func (e RowError) MarshalJSON() ([]byte, error) {
	var msg string
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Row   int    `json:"fila"`
		Error string `json:"error"`
	}{e.Row, msg})
}

type ImportResult struct {
	Imported int             `json:"importados"`
	Rejected []RowError      `json:"rechazados"`
	Summary  *budget.Summary `json:"resumen"`
}

// Importer loads cost items from CSV files through the ledger, so every row
// is validated the same way as an item typed by hand.
type Importer struct {
	ledger *budget.Ledger
	log    *logger.Logger
}

func NewImporter(ledger *budget.Ledger, log *logger.Logger) *Importer {
	return &Importer{ledger: ledger, log: log}
}

var headerReplacer = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", " ", "_")

func normalizeHeader(h string) string {
	return headerReplacer.Replace(strings.ToLower(strings.TrimSpace(h)))
}

func detectDelimiter(data []byte) rune {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// getStr reads a cell by normalized column name. Missing columns read as
// empty.
func getStr(df *dataframe.DataFrame, columns map[string]string, col string, row int) string {
	name, ok := columns[col]
	if !ok {
		return ""
	}
	v := df.Col(name).Elem(row)
	if v.IsNA() {
		return ""
	}
	return strings.TrimSpace(v.String())
}

// Import adds one item per row to budgetID. Rows that fail validation are
// reported and skipped; a missing budget or a store failure stops the
// import.
func (im *Importer) Import(ctx context.Context, budgetID int64, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	const component = "Importer"

	if opts.Windows1252 {
		r = charmap.Windows1252.NewDecoder().Reader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	if lines := bytes.Count(bytes.TrimSpace(data), []byte("\n")); lines < 1 {
		return nil, ErrEmptyFile
	}
	delim := opts.Delimiter
	if delim == 0 {
		delim = detectDelimiter(data)
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.WithDelimiter(delim),
		dataframe.WithLazyQuotes(true),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if err := df.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	if df.Nrow() == 0 {
		return nil, ErrEmptyFile
	}

	columns := make(map[string]string, df.Ncol())
	for _, name := range df.Names() {
		columns[normalizeHeader(name)] = name
	}
	for _, required := range []string{"descripcion", "costo"} {
		if _, ok := columns[required]; !ok {
			return nil, &budget.ValidationError{Field: required, Message: "missing column"}
		}
	}

	res := &ImportResult{Rejected: []RowError{}}
	for i := 0; i < df.Nrow(); i++ {
		row := i + 2

		cost, err := money.ParseAmount(getStr(&df, columns, "costo", i))
		if err != nil {
			res.Rejected = append(res.Rejected, RowError{Row: row, Err: err})
			continue
		}
		currency := money.Currency(getStr(&df, columns, "moneda", i))
		if currency == "" {
			currency = money.ARS
		}

		sum, err := im.ledger.AddItem(ctx, budget.NewItem{
			BudgetID:          budgetID,
			Description:       getStr(&df, columns, "descripcion", i),
			Category:          getStr(&df, columns, "categoria", i),
			Cost:              cost,
			Currency:          currency,
			ClientDescription: getStr(&df, columns, "descripcion_cliente", i),
		})
		switch {
		case err == nil:
			res.Imported++
			res.Summary = sum
		case budget.IsValidation(err):
			res.Rejected = append(res.Rejected, RowError{Row: row, Err: err})
		default:
			im.log.Error(component, "Import into budget %d stopped at row %d: %v", budgetID, row, err)
			return res, err
		}
	}

	for _, re := range res.Rejected {
		im.log.Warn(component, "Budget %d: %v", budgetID, re)
	}
	im.log.Info(component, "Imported %d items into budget %d (%d rejected)", res.Imported, budgetID, len(res.Rejected))
	return res, nil
}
