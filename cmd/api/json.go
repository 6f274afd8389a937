package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/farxc/presupuestos-estudio/internal/response"
)

var errBadRequest = errors.New("invalid request payload")

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) error {
	return writeJSON(w, status, &response.ErrorResponse{Error: message})
}

func writeJSONErrorCode(w http.ResponseWriter, status int, message, code string) error {
	return writeJSON(w, status, &response.ErrorResponse{Error: message, Code: code})
}

// readJSON decodes a single JSON object of at most 1 MB. Unknown fields are
// rejected.
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(data); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

// respond writes data wrapped in an APIResponse.
func respond[T any](w http.ResponseWriter, status int, message string, data T) {
	res := &response.APIResponse[T]{
		Success: true,
		Message: message,
		Data:    data,
	}
	if err := writeJSON(w, status, res); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
