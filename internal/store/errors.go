package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrUnsupported       = errors.New("operation not supported by this backend")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrUnfilteredWrite   = errors.New("update and delete require at least one filter")
)

const (
	CodeForeignKey  = "foreign_key_violation"
	CodeUnique      = "unique_violation"
	CodeCheck       = "check_violation"
	CodeNotNull     = "not_null_violation"
	CodeUnsupported = "unsupported"
	CodeTransport   = "transport"
)

// RemoteError is returned for every failed gateway call. Message is safe to
// show to users.
type RemoteError struct {
	Op      string
	Target  string
	Code    string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("store: %s %s: %s", e.Op, e.Target, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsRemote reports whether err carries a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

func remoteError(op, target string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}

	out := &RemoteError{Op: op, Target: target, Code: CodeTransport, Message: err.Error(), Err: err}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		out.Code = pqErr.Code.Name()
		out.Message = pqErr.Message
		if pqErr.Detail != "" {
			out.Message += ": " + pqErr.Detail
		}
		return out
	}

	msg := err.Error()
	switch {
	case errors.Is(err, ErrUnsupported):
		out.Code = CodeUnsupported
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		out.Code = CodeForeignKey
	case strings.Contains(msg, "UNIQUE constraint failed"):
		out.Code = CodeUnique
	case strings.Contains(msg, "CHECK constraint failed"):
		out.Code = CodeCheck
	case strings.Contains(msg, "NOT NULL constraint failed"):
		out.Code = CodeNotNull
	}
	return out
}
