package response

type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	// Code is a machine readable reason, e.g. "validation" or a store code
	// such as "foreign_key_violation".
	Code string `json:"code,omitempty"`
}
