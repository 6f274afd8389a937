package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/money"
)

// paramID reads the {id} route parameter.
func paramID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &budget.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}

// parseDate reads an optional date query or body value. Blank is nil.
func parseDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := money.ParseDate(raw)
	if err != nil {
		return nil, &budget.ValidationError{Field: field, Message: "expected dd/mm/yyyy or yyyy-mm-dd"}
	}
	return &t, nil
}

// parseAmount reads an amount typed by a user, e.g. "1.234,56".
func parseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := money.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, &budget.ValidationError{Field: field, Message: err.Error()}
	}
	return d, nil
}

// flexString accepts a JSON string or number, so amounts can be sent as
// typed ("1.234,56") or as plain numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
