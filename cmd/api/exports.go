package main

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/farxc/presupuestos-estudio/internal/export"
)

// writeDocument sends a rendered document as an attachment.
func writeDocument(w http.ResponseWriter, f export.Format, filename string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// @Summary		Export budget
// @Description	PDF for the client (client descriptions and price only), XLSX or CSV with the internal cost detail.
// @Tags			Exports
// @Produce		application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,text/csv
// @Param			id		path	int		true	"Budget ID"
// @Param			format	path	string	true	"pdf, xlsx or csv"
// @Success		200
// @Failure		400	{object}	response.ErrorResponse	"Unsupported format"
// @Failure		404	{object}	response.ErrorResponse
// @Router			/budgets/{id}/export.{format} [get]
func (app *application) handleExportBudget(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	f, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	d, err := app.budgets.Get(r.Context(), id)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := app.exporter.Budget(&buf, f, &d.Budget, d.Summary); err != nil {
		app.writeError(w, r, err)
		return
	}

	writeDocument(w, f, export.Filename("Presupuesto", d.Budget.Client, f), &buf)
}

// @Summary		Export project summary
// @Description	Collected, spent, balance and extras of a project as PDF or XLSX.
// @Tags			Exports
// @Produce		application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param			id		path	int		true	"Budget ID"
// @Param			format	path	string	true	"pdf or xlsx"
// @Success		200
// @Failure		400	{object}	response.ErrorResponse	"Unsupported format"
// @Failure		404	{object}	response.ErrorResponse
// @Router			/budgets/{id}/summary.{format} [get]
func (app *application) handleExportProject(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	f, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	ps, err := app.budgets.Project(r.Context(), id)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := app.exporter.Project(&buf, f, ps); err != nil {
		app.writeError(w, r, err)
		return
	}

	writeDocument(w, f, export.Filename("Resumen", ps.Budget.Client, f), &buf)
}

// @Summary		Export dashboard
// @Description	Projects grouped by client as PDF or XLSX.
// @Tags			Exports
// @Produce		application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param			format	path	string	true	"pdf or xlsx"
// @Success		200
// @Failure		400	{object}	response.ErrorResponse	"Unsupported format"
// @Failure		502	{object}	response.ErrorResponse
// @Router			/dashboard/export.{format} [get]
func (app *application) handleExportDashboard(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	groups, err := app.dashboard.Groups(r.Context())
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	switch f {
	case export.PDF:
		err = app.exporter.DashboardPDF(&buf, groups)
	case export.XLSX:
		err = app.exporter.DashboardXLSX(&buf, groups)
	default:
		err = fmt.Errorf("%w: dashboard as %s", export.ErrUnsupportedFormat, f)
	}
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	writeDocument(w, f, fmt.Sprintf("Dashboard-%s.%s", time.Now().Format(time.DateOnly), f), &buf)
}
