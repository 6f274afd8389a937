// Package export renders budgets, project summaries and the dashboard as
// PDF, XLSX and CSV documents.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/farxc/presupuestos-estudio/internal/store"
	"github.com/farxc/presupuestos-estudio/internal/validation"
)

type Format string

var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	PDF  Format = "pdf"
	XLSX Format = "xlsx"
	CSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case PDF, XLSX, CSV:
		return f, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case PDF:
		return "application/pdf"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case CSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

const (
	StudioTagline = "Diseño y Producción de Mobiliario"
	ValidityNote  = "Presupuesto válido por 15 días. No incluye IVA (21%)."
)

type Option func(*Exporter)

// WithLogo sets a PNG or JPEG drawn on the budget PDF header. A missing or
// unreadable file is logged and left out.
func WithLogo(path string) Option {
	return func(e *Exporter) { e.logoPath = path }
}

// WithWindows1252CSV encodes CSV output for spreadsheet programs that do not
// read UTF-8.
func WithWindows1252CSV() Option {
	return func(e *Exporter) { e.csvCharset = charmap.Windows1252 }
}

type Exporter struct {
	conv       *money.Converter
	log        *logger.Logger
	logoPath   string
	csvCharset encoding.Encoding
	compress   bool
	now        func() time.Time
}

func New(conv *money.Converter, log *logger.Logger, opts ...Option) *Exporter {
	e := &Exporter{conv: conv, log: log, compress: true, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Budget writes the document of one budget. PDF is the client document;
// the spreadsheets carry the internal cost detail.
func (e *Exporter) Budget(w io.Writer, f Format, b *store.Budget, sum *budget.Summary) error {
	switch f {
	case PDF:
		return e.BudgetPDF(w, b, sum)
	case XLSX:
		return e.BudgetXLSX(w, b, sum)
	case CSV:
		return e.BudgetCSV(w, b, sum)
	}
	return fmt.Errorf("%w %q", ErrUnsupportedFormat, f)
}

// Project writes a project summary. CSV is not offered for it.
func (e *Exporter) Project(w io.Writer, f Format, ps *budget.ProjectSummary) error {
	switch f {
	case PDF:
		return e.ProjectPDF(w, ps)
	case XLSX:
		return e.ProjectXLSX(w, ps)
	}
	return fmt.Errorf("%w %q for project summaries", ErrUnsupportedFormat, f)
}

// Filename builds a download name such as "Presupuesto-Garcia.pdf".
func Filename(prefix, client string, f Format) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t':
			return -1
		}
		return r
	}, validation.SanitizeText(client))
	name = strings.Join(strings.Fields(name), "-")
	if name == "" {
		name = "sin-cliente"
	}
	return fmt.Sprintf("%s-%s.%s", prefix, name, f)
}

func text(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// cell guards text that ends up in a spreadsheet cell.
func cell(s string) string {
	return validation.SanitizeForFormulaInjection(s)
}
