package api

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nuwe/site-forms/internal/pkg/httputil"
	"github.com/nuwe/site-forms/internal/pkg/logger"
)

// RateLimiter limits form submissions per client IP.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	rpm       int
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	metrics   *Metrics
	now       func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing rpm requests per minute per IP
// with the given burst. It returns nil when rpm is not positive, and a nil
// limiter lets everything through.
func NewRateLimiter(rpm, burst int, metrics *Metrics) *RateLimiter {
	if rpm <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = rpm
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		rpm:     rpm,
		burst:   burst,
		idleTTL: 10 * time.Minute,
		metrics: metrics,
		now:     time.Now,
	}
}

// Allow reports whether the client at ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.idleTTL {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > rl.idleTTL {
				delete(rl.clients, k)
			}
		}
		rl.lastSweep = now
	}

	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(rl.rpm)/60, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Middleware rejects over-limit POST requests with a 429 envelope. Other
// methods pass through untouched and spend no tokens, so they always reach
// the handler's 405.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && !rl.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			httputil.Fail(w, r, http.StatusTooManyRequests, msgRateLimited)
			rl.metrics.observeSubmission(flowFromPath(r.URL.Path), outcomeRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP expects middleware.RealIP to have run already.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func flowFromPath(p string) string {
	switch p {
	case "/contact", "/api/contact":
		return "contact"
	case "/newsletter", "/api/newsletter":
		return "newsletter"
	}
	return "unknown"
}

// recoverer turns a handler panic into the 500 envelope so every request
// gets a response.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error("handler panic",
				"path", r.URL.Path,
				"request_id", requestID(r),
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			httputil.Fail(w, r, http.StatusInternalServerError, msgInternal)
		}()
		next.ServeHTTP(w, r)
	})
}
