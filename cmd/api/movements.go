package main

import (
	"net/http"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/response"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

type ProjectSummaryResponse = response.APIResponse[*budget.ProjectSummary]
type InProgressResponse = response.APIResponse[[]budget.ProjectSummary]
type CollectionResponse = response.APIResponse[*store.Collection]
type ExpenseResponse = response.APIResponse[*store.Expense]

type movementInput struct {
	Description string     `json:"descripcion"`
	Category    string     `json:"categoria"`
	Amount      flexString `json:"monto"`
	Date        string     `json:"fecha"`
}

func (in movementInput) toMovement(budgetID int64) (budget.NewMovement, error) {
	amount, err := parseAmount("monto", string(in.Amount))
	if err != nil {
		return budget.NewMovement{}, err
	}
	date, err := parseDate("fecha", in.Date)
	if err != nil {
		return budget.NewMovement{}, err
	}
	return budget.NewMovement{
		BudgetID:    budgetID,
		Description: in.Description,
		Category:    in.Category,
		Amount:      amount,
		Date:        date,
	}, nil
}

// @Summary		Project movements
// @Description	Collections, expenses and the money summary of a project. Extras are expenses outside the quoted budget.
// @Tags			Movements
// @Produce		json
// @Param			id	path		int	true	"Budget ID"
// @Success		200	{object}	ProjectSummaryResponse
// @Failure		404	{object}	response.ErrorResponse
// @Router			/budgets/{id}/movements [get]
func (app *application) handleGetMovements(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	ps, err := app.budgets.Project(r.Context(), id)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Successfully retrieved movements", ps)
}

// @Summary		Register collection
// @Tags			Movements
// @Accept			json
// @Produce		json
// @Param			id			path		int										true	"Budget ID"
// @Param			collection	body		object{descripcion:string,monto:string,fecha:string}	true	"Collection"
// @Success		201			{object}	CollectionResponse
// @Failure		404			{object}	response.ErrorResponse
// @Failure		422			{object}	response.ErrorResponse
// @Router			/budgets/{id}/collections [post]
func (app *application) handleAddCollection(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var input movementInput
	if err := readJSON(w, r, &input); err != nil {
		app.writeError(w, r, err)
		return
	}
	m, err := input.toMovement(id)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	c, err := app.budgets.Movements.AddCollection(r.Context(), m)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, "Collection registered", c)
}

// @Summary		Register expense
// @Description	Registers an expense. A blank category books it against the quoted budget.
// @Tags			Movements
// @Accept			json
// @Produce		json
// @Param			id		path		int														true	"Budget ID"
// @Param			expense	body		object{descripcion:string,categoria:string,monto:string,fecha:string}	true	"Expense"
// @Success		201		{object}	ExpenseResponse
// @Failure		404		{object}	response.ErrorResponse
// @Failure		422		{object}	response.ErrorResponse
// @Router			/budgets/{id}/expenses [post]
func (app *application) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var input movementInput
	if err := readJSON(w, r, &input); err != nil {
		app.writeError(w, r, err)
		return
	}
	m, err := input.toMovement(id)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	e, err := app.budgets.Movements.AddExpense(r.Context(), m)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, "Expense registered", e)
}

// @Summary		Delete collection
// @Description	Requires manage_presupuestos.
// @Tags			Movements
// @Produce		json
// @Param			id	path		int	true	"Collection ID"
// @Success		200	{object}	response.APIResponse[int64]
// @Failure		403	{object}	response.ErrorResponse
// @Failure		404	{object}	response.ErrorResponse
// @Router			/collections/{id} [delete]
func (app *application) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	if err := app.budgets.Movements.DeleteCollection(r.Context(), session(r), id); err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Collection deleted", id)
}

// @Summary		Delete expense
// @Description	Requires manage_presupuestos.
// @Tags			Movements
// @Produce		json
// @Param			id	path		int	true	"Expense ID"
// @Success		200	{object}	response.APIResponse[int64]
// @Failure		403	{object}	response.ErrorResponse
// @Failure		404	{object}	response.ErrorResponse
// @Router			/expenses/{id} [delete]
func (app *application) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	if err := app.budgets.Movements.DeleteExpense(r.Context(), session(r), id); err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Expense deleted", id)
}

// @Summary		Projects in progress
// @Description	Budgets in status "en curso" with their money summaries.
// @Tags			Movements
// @Produce		json
// @Success		200	{object}	InProgressResponse
// @Router			/projects/in-progress [get]
func (app *application) handleGetInProgress(w http.ResponseWriter, r *http.Request) {
	projects, err := app.budgets.InProgress(r.Context())
	if err != nil {
		degrade(app, w, r, err, []budget.ProjectSummary{})
		return
	}

	respond(w, http.StatusOK, "Successfully retrieved projects in progress", projects)
}
