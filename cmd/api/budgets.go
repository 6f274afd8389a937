package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/response"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

// budgetNode is a principal with its additionals.
type budgetNode struct {
	store.Budget
	Additionals []store.Budget `json:"adicionales"`
}

type ListBudgetsResponse = response.APIResponse[[]budgetNode]
type BudgetResponse = response.APIResponse[*store.Budget]
type BudgetDetailResponse = response.APIResponse[*budget.Detail]
type MarginResponse = response.APIResponse[budget.LocalValue[decimal.Decimal]]
type ProgressResponse = response.APIResponse[budget.LocalValue[int]]

func treeView(t budget.Tree) []budgetNode {
	out := make([]budgetNode, 0, len(t.Principals))
	for _, p := range t.Principals {
		children := t.Additionals(p.ID)
		if children == nil {
			children = []store.Budget{}
		}
		out = append(out, budgetNode{Budget: p, Additionals: children})
	}
	return out
}

// @Summary		List budgets
// @Description	Lists principals newest first, each with its additionals. q filters principals by client or address.
// @Tags			Budgets
// @Produce		json
// @Param			q		query		string				false	"Text filter"
// @Param			desde	query		string				false	"From date (dd/mm/yyyy or yyyy-mm-dd)"
// @Param			hasta	query		string				false	"To date (dd/mm/yyyy or yyyy-mm-dd)"
// @Success		200		{object}	ListBudgetsResponse	"Budget tree"
// @Failure		422		{object}	response.ErrorResponse	"Invalid date"
// @Router			/budgets [get]
func (app *application) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := parseDate("desde", q.Get("desde"))
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	to, err := parseDate("hasta", q.Get("hasta"))
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	tree, err := app.budgets.List(r.Context(), budget.ListFilter{Query: q.Get("q"), From: from, To: to})
	if err != nil {
		degrade(app, w, r, err, []budgetNode{})
		return
	}

	respond(w, http.StatusOK, "Successfully retrieved budgets", treeView(tree))
}

// @Summary		Create budget
// @Description	Creates a principal project in status "presupuestado" with the default margin.
// @Tags			Budgets
// @Accept			json
// @Produce		json
// @Param			budget	body		object{cliente:string,descripcion:string,telefono:string,mail:string,direccion:string}	true	"Budget"
// @Success		201		{object}	BudgetResponse
// @Failure		400		{object}	response.ErrorResponse
// @Failure		422		{object}	response.ErrorResponse
// @Router			/budgets [post]
func (app *application) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Client      string `json:"cliente"`
		Description string `json:"descripcion"`
		Phone       string `json:"telefono"`
		Email       string `json:"mail"`
		Address     string `json:"direccion"`
	}
	if err := readJSON(w, r, &input); err != nil {
		app.writeError(w, r, err)
		return
	}

	b, err := app.budgets.CreatePrincipal(r.Context(), budget.NewBudget{
		Client:      input.Client,
		Description: input.Description,
		Phone:       input.Phone,
		Email:       input.Email,
		Address:     input.Address,
	})
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, "Budget created", b)
}

// @Summary		Get budget
// @Description	Budget with items, totals, additionals and any margin or progress still being written.
// @Tags			Budgets
// @Produce		json
// @Param			id	path		int	true	"Budget ID"
// @Success		200	{object}	BudgetDetailResponse
// @Failure		404	{object}	response.ErrorResponse
// @Router			/budgets/{id} [get]
func (app *application) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	d, err := app.budgets.Get(r.Context(), id)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Successfully retrieved budget", d)
}

// @Summary		Delete budget
// @Description	Deletes a budget with its items, movements and additionals. Requires manage_presupuestos.
// @Tags			Budgets
// @Produce		json
// @Param			id	path		int	true	"Budget ID"
// @Success		200	{object}	response.APIResponse[int64]
// @Failure		403	{object}	response.ErrorResponse
// @Failure		404	{object}	response.ErrorResponse
// @Router			/budgets/{id} [delete]
func (app *application) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	if err := app.budgets.Delete(r.Context(), session(r), id); err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Budget deleted", id)
}

// @Summary		Create additional
// @Description	Creates extra work under a principal, copying its client details. The body is optional.
// @Tags			Budgets
// @Accept			json
// @Produce		json
// @Param			id			path		int						true	"Principal budget ID"
// @Param			additional	body		object{descripcion:string}	false	"Additional"
// @Success		201			{object}	BudgetResponse
// @Failure		404			{object}	response.ErrorResponse
// @Failure		422			{object}	response.ErrorResponse	"Parent is itself an additional"
// @Router			/budgets/{id}/additionals [post]
func (app *application) handleCreateAdditional(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var input struct {
		Description string `json:"descripcion"`
	}
	if err := readJSON(w, r, &input); err != nil && !errors.Is(err, io.EOF) {
		app.writeError(w, r, err)
		return
	}

	b, err := app.budgets.CreateAdditional(r.Context(), id, input.Description)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, "Additional created", b)
}

// @Summary		Change status
// @Description	Moves a budget to presupuestado, en curso, finalizado, no aceptado or cancelado.
// @Tags			Budgets
// @Accept			json
// @Produce		json
// @Param			id		path		int					true	"Budget ID"
// @Param			status	body		object{estado:string}	true	"Target status"
// @Success		200		{object}	BudgetResponse
// @Failure		404		{object}	response.ErrorResponse
// @Failure		409		{object}	response.ErrorResponse	"Transition not allowed"
// @Failure		422		{object}	response.ErrorResponse
// @Router			/budgets/{id}/status [patch]
func (app *application) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var input struct {
		Status string `json:"estado"`
	}
	if err := readJSON(w, r, &input); err != nil {
		app.writeError(w, r, err)
		return
	}

	b, err := app.budgets.Status.Transition(r.Context(), id, store.BudgetStatus(input.Status))
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Status updated", b)
}

// @Summary		Edit margin
// @Description	Records the margin immediately and writes it once input stops. The outcome of the write arrives in /notifications.
// @Tags			Budgets
// @Accept			json
// @Produce		json
// @Param			id		path		int								true	"Budget ID"
// @Param			margin	body		object{margen_ganancia:string}	true	"Margin percentage, e.g. 15 or 12,5"
// @Success		202		{object}	MarginResponse
// @Failure		422		{object}	response.ErrorResponse
// @Router			/budgets/{id}/margin [patch]
func (app *application) handleUpdateMargin(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var input struct {
		Margin flexString `json:"margen_ganancia"`
	}
	if err := readJSON(w, r, &input); err != nil {
		app.writeError(w, r, err)
		return
	}

	lv, err := app.budgets.Margin.Input(session(r), id, string(input.Margin))
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusAccepted, "Margin will be saved shortly", lv)
}

// @Summary		Edit progress
// @Description	Records the manual progress (0 to 100) immediately and writes it once input stops.
// @Tags			Budgets
// @Accept			json
// @Produce		json
// @Param			id			path		int							true	"Budget ID"
// @Param			progress	body		object{avance_manual:string}	true	"Progress percentage"
// @Success		202			{object}	ProgressResponse
// @Failure		422			{object}	response.ErrorResponse
// @Router			/budgets/{id}/progress [patch]
func (app *application) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var input struct {
		Progress flexString `json:"avance_manual"`
	}
	if err := readJSON(w, r, &input); err != nil {
		app.writeError(w, r, err)
		return
	}

	lv, err := app.budgets.Progress.Input(session(r), id, string(input.Progress))
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusAccepted, "Progress will be saved shortly", lv)
}
