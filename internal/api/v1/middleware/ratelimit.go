package middleware

import (
	"fmt"
	"sync"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/flatironinstitute/runpack/pkg/types"
)

// RateLimitWindow is the fixed window over which requests are counted.
const RateLimitWindow = 60 * time.Second

// Default per-window budgets by endpoint class.
const (
	// SubmitRateLimit applies to submit and check, per client IP
	SubmitRateLimit = 10
	// StatusRateLimit applies to status polling, per client IP
	StatusRateLimit = 60
	// RunnerRateLimit applies to the per-job runner endpoints (available,
	// claim, heartbeat, complete, error), per runner id
	RunnerRateLimit = 120
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a process-local fixed-window counter keyed by caller
// identity. State is intentionally not shared between coordinator instances
// and may be reset on restart without affecting correctness.
type RateLimiter struct {
	mu      sync.Mutex
	max     int
	span    time.Duration
	entries map[string]*window
}

// NewRateLimiter creates a limiter allowing max requests per window.
func NewRateLimiter(max int) *RateLimiter {
	return &RateLimiter{
		max:     max,
		span:    RateLimitWindow,
		entries: make(map[string]*window),
	}
}

// Allow counts one request for the key. It returns whether the request is
// within budget and when the current window resets.
func (l *RateLimiter) Allow(key string) (bool, time.Time) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = &window{resetAt: now.Add(l.span)}
		l.entries[key] = entry
	}

	if entry.count >= l.max {
		return false, entry.resetAt
	}
	entry.count++
	return true, entry.resetAt
}

// keyFunc derives the identity a request is counted under.
type keyFunc func(c *fiber.Ctx) string

// ByClientIP counts requests per client IP.
func ByClientIP(c *fiber.Ctx) string {
	return c.IP()
}

// ByRunnerID counts requests per X-Runner-ID, falling back to the client IP
// when the header is absent.
func ByRunnerID(c *fiber.Ctx) string {
	if id := c.Get(HeaderRunnerID); id != "" {
		return id
	}
	return c.IP()
}

// RateLimit returns a middleware enforcing the limiter for the derived key.
func RateLimit(limiter *RateLimiter, key keyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, resetAt := limiter.Allow(key(c))
		if !ok {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(types.ErrorResponse{
				Error:   "rate limit exceeded",
				Details: fmt.Sprintf("window resets at %s", resetAt.UTC().Format(time.RFC3339)),
			})
		}
		return c.Next()
	}
}
