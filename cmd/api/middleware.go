package main

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/farxc/presupuestos-estudio/internal/auth"
)

// limiter hands out one token bucket per client address. Buckets of
// clients that stay quiet for ten minutes are dropped.
type limiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	clients *cache.Cache
}

func newLimiter(rps float64, burst int) *limiter {
	if burst < 1 {
		burst = 1
	}
	return &limiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: cache.New(10*time.Minute, 10*time.Minute),
	}
}

func (l *limiter) allow(client string) bool {
	if l.rps <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var lim *rate.Limiter
	if v, ok := l.clients.Get(client); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(l.rps, l.burst)
	}
	l.clients.SetDefault(client, lim)
	return lim.Allow()
}

// clientAddr is the request's remote address without the port. RealIP has
// already replaced it with the forwarded address when there is one.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (app *application) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.limiter.allow(clientAddr(r)) {
			w.Header().Set("Retry-After", "1")
			writeJSONErrorCode(w, http.StatusTooManyRequests, "rate limit exceeded", codeRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate verifies the bearer token and puts the caller's session,
// with its permissions, on the request context.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSONErrorCode(w, http.StatusUnauthorized, "missing bearer token", codeUnauthorized)
			return
		}

		userID, err := app.verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSONErrorCode(w, http.StatusUnauthorized, "invalid or expired token", codeUnauthorized)
			return
		}

		sess, err := app.sessions.Session(r.Context(), userID)
		if err != nil {
			app.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	})
}

// session returns the caller of an authenticated route.
func session(r *http.Request) auth.Session {
	s, _ := auth.FromContext(r.Context())
	return s
}
