package auth

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/farxc/presupuestos-estudio/internal/logger"
)

// PermissionLookup returns the permission names granted to userID.
type PermissionLookup interface {
	ForUser(ctx context.Context, userID string) ([]string, error)
}

// Resolver builds sessions from user ids, caching each user's permission
// list for ttl.
type Resolver struct {
	lookup PermissionLookup
	cache  *cache.Cache
	log    *logger.Logger
}

func NewResolver(lookup PermissionLookup, ttl time.Duration, log *logger.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		cache:  cache.New(ttl, 2*ttl),
		log:    log,
	}
}

func (r *Resolver) Session(ctx context.Context, userID string) (Session, error) {
	const component = "Permissions"

	if cached, ok := r.cache.Get(userID); ok {
		return NewSession(userID, cached.([]string)...), nil
	}

	perms, err := r.lookup.ForUser(ctx, userID)
	if err != nil {
		r.log.Error(component, "Failed to resolve permissions for user %s: %v", userID, err)
		return nil, err
	}
	r.cache.SetDefault(userID, perms)
	r.log.Debug(component, "Resolved %d permissions for user %s", len(perms), userID)
	return NewSession(userID, perms...), nil
}

// Forget drops the cached permissions of userID.
func (r *Resolver) Forget(userID string) {
	r.cache.Delete(userID)
}
