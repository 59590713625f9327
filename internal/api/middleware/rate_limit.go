package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"passrelay/internal/pkg/errors"
)

// RateLimiter is a per-key token bucket refilled over one minute.
type RateLimiter struct {
	store sync.Map // map[string]*bucket
	limit int
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type bucket struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// NewRateLimiter allows perMinute requests per key. Close stops the cleanup loop.
func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{
		limit: perMinute,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			now := rl.now()
			rl.store.Range(func(key, value interface{}) bool {
				b := value.(*bucket)
				b.mu.Lock()
				if now.Sub(b.lastAccess) > 10*time.Minute {
					rl.store.Delete(key)
				}
				b.mu.Unlock()
				return true
			})
		}
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}
	now := rl.now()

	val, _ := rl.store.LoadOrStore(key, &bucket{
		tokens:     rl.limit,
		lastRefill: now,
		lastAccess: now,
	})

	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now

	refillRate := float64(rl.limit) / 60.0
	refillTokens := int(now.Sub(b.lastRefill).Seconds() * refillRate)
	if refillTokens > 0 {
		b.tokens = min(b.tokens+refillTokens, rl.limit)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Handle limits requests per client IP.
func (rl *RateLimiter) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(60))
			errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimited, "Rate limit exceeded", nil)
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
