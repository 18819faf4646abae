package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kevinaaaquil/bookswap/logger"
	"github.com/kevinaaaquil/bookswap/utils"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether another request for key fits in the current window.
// When it does not, retryAfter says how long the caller should wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimit applies limiter per client IP. Limiter failures let the request through.
func RateLimit(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.Log.Errorw("rate limiter failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				utils.Fail(w, http.StatusTooManyRequests, utils.CodeRateLimited, "too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP expects chi's RealIP to have rewritten RemoteAddr already.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// MemoryLimiter is a per-process fixed-window counter per key: at most limit requests
// per window, the budget restored in full when the window ends. Suitable for a single instance.
type MemoryLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	windows   map[string]*clientWindow
	lastSweep time.Time
	now       func() time.Time
}

// clientWindow holds one key's budget. The limiter never refills (rate 0), so its burst
// is exactly what is left of the window.
type clientWindow struct {
	lim   *rate.Limiter
	start time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*clientWindow),
		now:     time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	cw, ok := m.windows[key]
	if !ok || now.Sub(cw.start) >= m.window {
		cw = &clientWindow{lim: rate.NewLimiter(0, m.limit), start: now}
		m.windows[key] = cw
	}
	if cw.lim.AllowN(now, 1) {
		return true, 0, nil
	}
	return false, cw.start.Add(m.window).Sub(now), nil
}

// sweep drops windows that have ended; the next request would start a fresh one anyway.
func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.window {
		return
	}
	m.lastSweep = now
	for k, cw := range m.windows {
		if now.Sub(cw.start) >= m.window {
			delete(m.windows, k)
		}
	}
}

// RedisLimiter is a fixed-window counter shared by every instance using the same Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: "ratelimit:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return false, 0, err
		}
	}
	if n <= int64(l.limit) {
		return true, 0, nil
	}
	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		// Counter lost its expiry; start a fresh window.
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return false, 0, err
		}
		ttl = l.window
	}
	return false, ttl, nil
}
