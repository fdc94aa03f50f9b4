package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client so a single misbehaving device
// cannot hammer the economy endpoints. Limiters are created lazily and
// dropped again after an idle window.
type RateLimiter struct {
	perSecond rate.Limit
	burst     int
	logger    *slog.Logger

	mu       sync.Mutex
	visitors map[string]*rate.Limiter
}

func NewRateLimiter(requestsPerMinute float64, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	perSecond := requestsPerMinute / 60.0
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		logger:    logger,
		visitors:  make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := clientID(r)
		if !rl.obtain(id).Allow() {
			rl.logger.Debug("request throttled", "client", id, "path", r.URL.Path)
			respondWithError(w, http.StatusTooManyRequests,
				"Too many requests", r.Method, r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) obtain(id string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, ok := rl.visitors[id]
	if ok {
		return limiter
	}
	limiter = rate.NewLimiter(rl.perSecond, rl.burst)
	rl.visitors[id] = limiter
	go rl.evict(id)
	return limiter
}

func (rl *RateLimiter) evict(id string) {
	time.Sleep(10 * time.Minute)
	rl.mu.Lock()
	delete(rl.visitors, id)
	rl.mu.Unlock()
}

func clientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
