package budget

import (
	"errors"
	"fmt"

	"github.com/farxc/presupuestos-estudio/internal/auth"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

// ValidationError reports malformed input. It is always returned before any
// gateway call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a budget or item that no longer exists.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }

var (
	ErrPermissionDenied     = auth.ErrPermissionDenied
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
)

// TransitionError is returned by strict status controllers.
type TransitionError struct {
	From store.BudgetStatus
	To   store.BudgetStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %q -> %q", ErrTransitionNotAllowed, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrTransitionNotAllowed }

// notFound turns store.ErrNotFound into a NotFoundError and passes any
// other error through.
func notFound(entity string, id int64, err error) error {
	if store.IsNotFound(err) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
