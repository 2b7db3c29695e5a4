package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hongminglow/expense-tracker-be/internal/http/respond"
	"github.com/hongminglow/expense-tracker-be/internal/log"
)

// RateLimiter counts requests per key in fixed one-minute windows.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
	logger  *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	start    time.Time
	requests int
}

// NewRateLimiter allows limit requests per minute for each key and starts a
// background sweep of idle keys. Call Stop to end it.
func NewRateLimiter(limit int, logger *slog.Logger) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	rl := &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  time.Minute,
		now:     time.Now,
		logger:  log.Component(logger, log.ComponentRateLimit),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop(5 * time.Minute)
	return rl
}

// Allow records a request for key and reports whether it fits the window,
// together with the time until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) >= rl.period {
		rl.clients[key] = &window{start: now, requests: 1}
		return true, 0
	}
	w.requests++
	if w.requests > rl.limit {
		return false, w.start.Add(rl.period).Sub(now)
	}
	return true, 0
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the background sweep.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, w := range rl.clients {
		if now.Sub(w.start) >= rl.period {
			delete(rl.clients, key)
		}
	}
}

// Middleware limits requests by authenticated user, falling back to client IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := UserID(r.Context())
		if !ok {
			key = "ip:" + ClientIP(r)
		}

		allowed, retryAfter := rl.Allow(key)
		if !allowed {
			seconds := int(retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			rl.logger.Warn("rate limit exceeded", log.FieldUserID, key, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			respond.Error(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
