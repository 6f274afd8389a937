// Package auth turns a verified bearer token into a Session capability that
// is passed explicitly to every operation that checks permissions.
package auth

import (
	"context"
	"errors"
	"fmt"
)

const (
	PermManageBudgets  = "manage_presupuestos"
	PermViewAccounting = "view_control_cuentas"
	PermViewAdmin      = "view_administracion"
)

var ErrPermissionDenied = errors.New("permission denied")

// Session is the identity of the caller and its permission predicate.
type Session interface {
	UserID() string
	HasPermission(name string) bool
}

type session struct {
	userID string
	perms  map[string]struct{}
}

// NewSession builds a Session for userID holding perms.
func NewSession(userID string, perms ...string) Session {
	s := &session{userID: userID, perms: make(map[string]struct{}, len(perms))}
	for _, p := range perms {
		s.perms[p] = struct{}{}
	}
	return s
}

func (s *session) UserID() string { return s.userID }

func (s *session) HasPermission(name string) bool {
	_, ok := s.perms[name]
	return ok
}

// Require fails with ErrPermissionDenied unless s holds perm. A nil session
// holds nothing.
func Require(s Session, perm string) error {
	if s == nil || !s.HasPermission(perm) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, perm)
	}
	return nil
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
