// Package notify keeps short-lived per-user notices about work that
// finished after the request that started it had already returned.
package notify

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

type Notice struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Feed stores notices per user. Each notice expires after the feed's ttl
// whether or not it was read.
type Feed struct {
	mu    sync.Mutex
	items *cache.Cache
	now   func() time.Time
}

func NewFeed(ttl time.Duration) *Feed {
	return &Feed{
		items: cache.New(ttl, ttl),
		now:   time.Now,
	}
}

func userPrefix(userID string) string { return userID + "/" }

// Notify records a notice for userID.
func (f *Feed) Notify(userID string, kind Kind, message string) {
	if userID == "" {
		return
	}
	n := Notice{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: f.now(),
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items.SetDefault(userPrefix(userID)+n.ID, n)
}

// Drain returns the live notices of userID, oldest first, and removes them.
func (f *Feed) Drain(userID string) []Notice {
	prefix := userPrefix(userID)

	f.mu.Lock()
	defer f.mu.Unlock()

	out := []Notice{}
	for k, item := range f.items.Items() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		out = append(out, item.Object.(Notice))
		f.items.Delete(k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
