package main

import (
	"net/http"
	"strings"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/export"
	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/farxc/presupuestos-estudio/internal/response"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

type SummaryResponse = response.APIResponse[*budget.Summary]
type ItemResponse = response.APIResponse[*store.Item]
type ImportResponse = response.APIResponse[*export.ImportResult]

const maxImportBytes = 5 << 20

// @Summary		List items
// @Description	Items of a budget with total, margin and price.
// @Tags			Items
// @Produce		json
// @Param			id	path		int	true	"Budget ID"
// @Success		200	{object}	SummaryResponse
// @Failure		404	{object}	response.ErrorResponse
// @Router			/budgets/{id}/items [get]
func (app *application) handleListItems(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	sum, err := app.budgets.Ledger.Summary(r.Context(), id)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Successfully retrieved items", sum)
}

// @Summary		Add item
// @Description	Adds a cost item and returns the refreshed totals.
// @Tags			Items
// @Accept			json
// @Produce		json
// @Param			id		path		int																						true	"Budget ID"
// @Param			item	body		object{descripcion:string,categoria:string,costo:string,moneda:string,descripcion_cliente:string}	true	"Item"
// @Success		201		{object}	SummaryResponse
// @Failure		404		{object}	response.ErrorResponse
// @Failure		422		{object}	response.ErrorResponse
// @Router			/budgets/{id}/items [post]
func (app *application) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var input struct {
		Description       string     `json:"descripcion"`
		Category          string     `json:"categoria"`
		Cost              flexString `json:"costo"`
		Currency          string     `json:"moneda"`
		ClientDescription string     `json:"descripcion_cliente"`
	}
	if err := readJSON(w, r, &input); err != nil {
		app.writeError(w, r, err)
		return
	}

	cost, err := parseAmount("costo", string(input.Cost))
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	currency := money.Currency(input.Currency)
	if strings.TrimSpace(input.Currency) == "" {
		currency = money.Primary
	}

	sum, err := app.budgets.Ledger.AddItem(r.Context(), budget.NewItem{
		BudgetID:          id,
		Description:       input.Description,
		Category:          input.Category,
		Cost:              cost,
		Currency:          currency,
		ClientDescription: input.ClientDescription,
	})
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, "Item added", sum)
}

// @Summary		Import items
// @Description	Adds one item per CSV row (descripcion, categoria, costo, moneda, descripcion_cliente). Rows that fail validation are reported and skipped.
// @Tags			Items
// @Accept			text/csv
// @Produce		json
// @Param			id			path		int		true	"Budget ID"
// @Param			charset		query		string	false	"windows-1252 for files saved by spreadsheet programs"
// @Param			delimiter	query		string	false	"Column delimiter, detected when empty"
// @Success		200			{object}	ImportResponse
// @Failure		400			{object}	response.ErrorResponse
// @Failure		404			{object}	response.ErrorResponse
// @Router			/budgets/{id}/items/import [post]
func (app *application) handleImportItems(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var opts export.ImportOptions
	switch strings.ToLower(r.URL.Query().Get("charset")) {
	case "windows-1252", "cp1252", "latin1":
		opts.Windows1252 = true
	}
	if d := []rune(r.URL.Query().Get("delimiter")); len(d) == 1 {
		opts.Delimiter = d[0]
	}

	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	res, err := app.importer.Import(r.Context(), id, body, opts)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Items imported", res)
}

// @Summary		Set client description
// @Description	Replaces the client-facing text of an item. Blank text removes the item from the client document.
// @Tags			Items
// @Accept			json
// @Produce		json
// @Param			id		path		int								true	"Item ID"
// @Param			text	body		object{descripcion_cliente:string}	true	"Text"
// @Success		200		{object}	ItemResponse
// @Failure		404		{object}	response.ErrorResponse
// @Router			/items/{id}/client-description [patch]
func (app *application) handleSetClientDescription(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var input struct {
		Text string `json:"descripcion_cliente"`
	}
	if err := readJSON(w, r, &input); err != nil {
		app.writeError(w, r, err)
		return
	}

	item, err := app.budgets.Ledger.SetClientDescription(r.Context(), id, input.Text)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Client description updated", item)
}
