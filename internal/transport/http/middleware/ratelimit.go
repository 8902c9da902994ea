package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redisinfra "github.com/go-waitlist-api/internal/infrastructure/redis"
	"golang.org/x/time/rate"
)

const tooManyRequests = "Too many requests. Please wait 1 minute."

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token-bucket rate limiter with automatic stale-entry cleanup.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	r        rate.Limit
	burst    int
}

// NewRateLimiter creates a per-IP limiter: r requests/second, burst up to
// burst requests. The cleanup goroutine stops when ctx is done.
func NewRateLimiter(ctx context.Context, r rate.Limit, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		r:        r,
		burst:    burst,
	}
	go rl.cleanup(ctx)
	return rl
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.limiters[ip]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.limiters[ip] = &ipLimiter{limiter: l, lastSeen: time.Now()}
	return l
}

// cleanup removes stale entries every 5 minutes.
func (rl *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for ip, v := range rl.limiters {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(rl.limiters, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Limit is the middleware handler that enforces the rate limit per client IP.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := rl.get(realIP(r)).Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			writeRetryAfter(w, delay)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WindowLimiter is a shared sliding-window counter.
type WindowLimiter interface {
	Allow(ctx context.Context, key string) (redisinfra.Decision, error)
}

// SlidingWindow limits requests per client IP through l. A limiter that
// errors or takes longer than timeout lets the request through.
func SlidingWindow(l WindowLimiter, timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			d, err := l.Allow(ctx, realIP(r))
			cancel()
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				writeRetryAfter(w, d.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StreamLimiter caps how many long-lived requests one client IP may hold open
// at the same time.
type StreamLimiter struct {
	mu     sync.Mutex
	open   map[string]int
	perIP  int
	window time.Duration
}

// NewStreamLimiter allows perIP concurrent streams per IP. Denied clients are
// told to retry after window.
func NewStreamLimiter(perIP int, window time.Duration) *StreamLimiter {
	return &StreamLimiter{open: make(map[string]int), perIP: perIP, window: window}
}

func (sl *StreamLimiter) acquire(ip string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.open[ip] >= sl.perIP {
		return false
	}
	sl.open[ip]++
	return true
}

func (sl *StreamLimiter) release(ip string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.open[ip]--
	if sl.open[ip] <= 0 {
		delete(sl.open, ip)
	}
}

func (sl *StreamLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := realIP(r)
		if !sl.acquire(ip) {
			writeRetryAfter(w, sl.window)
			return
		}
		defer sl.release(ip)
		next.ServeHTTP(w, r)
	})
}

func writeRetryAfter(w http.ResponseWriter, retry time.Duration) {
	secs := int(math.Ceil(retry.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":      tooManyRequests,
		"retryAfter": secs,
	})
}

// realIP returns the first X-Forwarded-For hop, then X-Real-Ip, then the
// remote address host.
func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xr != "" {
		return xr
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "127.0.0.1"
}
