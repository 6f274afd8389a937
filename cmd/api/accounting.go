package main

import (
	"net/http"
	"time"

	"github.com/farxc/presupuestos-estudio/internal/report"
	"github.com/farxc/presupuestos-estudio/internal/response"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

type AccountingResponse = response.APIResponse[*report.Overview]
type PaymentResponse = response.APIResponse[*store.FixedExpensePayment]

type paymentInput struct {
	FixedExpenseID int64      `json:"gasto_fijo_id"`
	Amount         flexString `json:"monto_pagado"`
	PaidAt         string     `json:"fecha_pago"`
	Note           string     `json:"descripcion_adicional"`
}

func (in paymentInput) toPayment() (report.PaymentInput, error) {
	amount, err := parseAmount("monto_pagado", string(in.Amount))
	if err != nil {
		return report.PaymentInput{}, err
	}
	paid, err := parseDate("fecha_pago", in.PaidAt)
	if err != nil {
		return report.PaymentInput{}, err
	}
	return report.PaymentInput{
		FixedExpenseID: in.FixedExpenseID,
		Amount:         amount,
		PaidAt:         paid,
		Note:           in.Note,
	}, nil
}

// @Summary		Accounting overview
// @Description	Cash balance, project balances, fixed expenses with the period's payments and the last twelve months of fixed spend. Sections that fail are listed under errores. Requires view_control_cuentas.
// @Tags			Accounting
// @Produce		json
// @Param			mes		query		int	false	"Month (1-12), defaults to the current one"
// @Param			anio	query		int	false	"Year, defaults to the current one"
// @Success		200		{object}	AccountingResponse
// @Failure		403		{object}	response.ErrorResponse
// @Failure		422		{object}	response.ErrorResponse
// @Router			/accounting [get]
func (app *application) handleGetAccounting(w http.ResponseWriter, r *http.Request) {
	p, err := report.ParsePeriod(r.URL.Query().Get("mes"), r.URL.Query().Get("anio"), time.Now())
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	ov, err := app.accounting.Overview(r.Context(), session(r), p)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	msg := "Successfully retrieved accounting overview"
	if len(ov.Errors) > 0 {
		msg = "Some sections could not be loaded"
	}
	respond(w, http.StatusOK, msg, ov)
}

// @Summary		Register fixed expense payment
// @Tags			Accounting
// @Accept			json
// @Produce		json
// @Param			payment	body		object{gasto_fijo_id:int,monto_pagado:string,fecha_pago:string,descripcion_adicional:string}	true	"Payment"
// @Success		201		{object}	PaymentResponse
// @Failure		403		{object}	response.ErrorResponse
// @Failure		422		{object}	response.ErrorResponse
// @Router			/accounting/payments [post]
func (app *application) handleRegisterPayment(w http.ResponseWriter, r *http.Request) {
	var input paymentInput
	if err := readJSON(w, r, &input); err != nil {
		app.writeError(w, r, err)
		return
	}
	in, err := input.toPayment()
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	p, err := app.accounting.RegisterPayment(r.Context(), session(r), in)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, "Payment registered", p)
}

// @Summary		Update fixed expense payment
// @Tags			Accounting
// @Accept			json
// @Produce		json
// @Param			id		path		int																			true	"Payment ID"
// @Param			payment	body		object{monto_pagado:string,fecha_pago:string,descripcion_adicional:string}	true	"Payment"
// @Success		200		{object}	PaymentResponse
// @Failure		403		{object}	response.ErrorResponse
// @Failure		404		{object}	response.ErrorResponse
// @Router			/accounting/payments/{id} [patch]
func (app *application) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var input paymentInput
	if err := readJSON(w, r, &input); err != nil {
		app.writeError(w, r, err)
		return
	}
	in, err := input.toPayment()
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	p, err := app.accounting.UpdatePayment(r.Context(), session(r), id, in)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Payment updated", p)
}

// @Summary		Delete fixed expense payment
// @Tags			Accounting
// @Produce		json
// @Param			id	path		int	true	"Payment ID"
// @Success		200	{object}	response.APIResponse[int64]
// @Failure		403	{object}	response.ErrorResponse
// @Failure		404	{object}	response.ErrorResponse
// @Router			/accounting/payments/{id} [delete]
func (app *application) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := paramID(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	if err := app.accounting.DeletePayment(r.Context(), session(r), id); err != nil {
		app.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Payment deleted", id)
}
