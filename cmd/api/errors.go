package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/farxc/presupuestos-estudio/internal/auth"
	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/export"
	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

const (
	codeBadRequest   = "bad_request"
	codeValidation   = "validation"
	codeNotFound     = "not_found"
	codeForbidden    = "permission_denied"
	codeUnauthorized = "unauthorized"
	codeConflict     = "transition_not_allowed"
	codeTimeout      = "timeout"
	codeRateLimited  = "rate_limited"
	codeInternal     = "internal"
)

// statusOf maps a domain error to its HTTP status and error code.
func statusOf(err error) (int, string) {
	var (
		ve *budget.ValidationError
		nf *budget.NotFoundError
		te *budget.TransitionError
		re *store.RemoteError
	)
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, export.ErrEmptyFile),
		errors.Is(err, export.ErrMalformedFile),
		errors.Is(err, money.ErrInvalidAmount):
		return http.StatusBadRequest, codeBadRequest
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, codeValidation
	case errors.As(err, &nf), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, auth.ErrPermissionDenied):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.As(err, &te):
		return http.StatusConflict, codeConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeTimeout
	case errors.As(err, &re):
		return http.StatusBadGateway, re.Code
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// writeError logs err and writes it as an ErrorResponse. Store failures
// carry their message, which is safe to show; unexpected errors do not.
func (app *application) writeError(w http.ResponseWriter, r *http.Request, err error) {
	const component = "API"

	status, code := statusOf(err)
	msg := err.Error()

	var re *store.RemoteError
	switch {
	case status == http.StatusInternalServerError:
		app.logger.Error(component, "%s %s: %v", r.Method, r.URL.Path, err)
		msg = "the server encountered a problem and could not process your request"
	case errors.As(err, &re):
		app.logger.Error(component, "%s %s: %v", r.Method, r.URL.Path, err)
		msg = re.Message
	default:
		app.logger.Debug(component, "%s %s: %v", r.Method, r.URL.Path, err)
	}

	writeJSONErrorCode(w, status, msg, code)
}

// degrade answers a failed read of a list endpoint with an empty result and
// the reason instead of an error status. Anything but a store failure is
// still written as an error.
func degrade[T any](app *application, w http.ResponseWriter, r *http.Request, err error, empty T) {
	const component = "API"

	var re *store.RemoteError
	if !errors.As(err, &re) {
		app.writeError(w, r, err)
		return
	}
	app.logger.Warn(component, "%s %s degraded to empty result: %v", r.Method, r.URL.Path, err)
	res := struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Code    string `json:"code"`
		Data    T      `json:"data"`
	}{Message: re.Message, Code: re.Code, Data: empty}
	if err := writeJSON(w, http.StatusOK, res); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
