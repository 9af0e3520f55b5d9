package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"crm-service/internal/auth"
	"crm-service/internal/domain/apikey"
	"crm-service/internal/rbac"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	headerRateLimit          = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRetryAfter         = "Retry-After"
	msgRateLimitExceeded     = "rate limit exceeded"
)

// RateLimiter implements token bucket rate limiting per identity
type RateLimiter struct {
	limiters sync.Map // key -> *rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
// requestsPerSecond: number of requests allowed per second
// burst: maximum burst size
func NewRateLimiter(requestsPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return limiter.(*rate.Limiter)
}

// Allow checks if a request should be allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware returns an Echo middleware function for rate limiting
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := rl.getLimiter(identityKey(c))

			if !limiter.Allow() {
				c.Response().Header().Set(headerRateLimit, fmt.Sprintf("%d", rl.burst))
				c.Response().Header().Set(headerRateLimitRemaining, "0")
				c.Response().Header().Set(headerRetryAfter, "1")

				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": msgRateLimitExceeded,
				})
			}

			tokens := int(limiter.Tokens())
			c.Response().Header().Set(headerRateLimit, fmt.Sprintf("%d", rl.burst))
			c.Response().Header().Set(headerRateLimitRemaining, fmt.Sprintf("%d", tokens))

			return next(c)
		}
	}
}

// identityKey buckets authenticated requests by user or key and everything
// else by client address.
func identityKey(c echo.Context) string {
	switch auth.GetAuthType(c) {
	case rbac.AuthTypeSession:
		if userID, err := auth.GetUserID(c); err == nil {
			return "user:" + userID.String()
		}
	case rbac.AuthTypeAPIKey:
		if key, err := auth.GetAPIKey(c); err == nil {
			return "apikey:" + key.ID.String()
		}
	}
	return "ip:" + c.RealIP()
}

// NewStrictRateLimiter creates a strict rate limiter for sensitive operations
func NewStrictRateLimiter() *RateLimiter {
	return NewRateLimiter(5, 10)
}

// NewGlobalRateLimiter creates a lenient limiter for general API usage
func NewGlobalRateLimiter() *RateLimiter {
	return NewRateLimiter(100, 200)
}

type keyBucket struct {
	perMinute int
	limiter   *rate.Limiter
}

// KeyRateLimiter enforces the per-minute request budget configured on each
// API key. Keys without a budget are not limited. A changed budget replaces
// the key's bucket.
type KeyRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*keyBucket
}

func NewKeyRateLimiter() *KeyRateLimiter {
	return &KeyRateLimiter{buckets: make(map[string]*keyBucket)}
}

// Allow consumes one token from the key's bucket
func (kl *KeyRateLimiter) Allow(key *apikey.APIKey) bool {
	if key == nil || key.RateLimit == nil || *key.RateLimit <= 0 {
		return true
	}
	perMinute := *key.RateLimit
	id := key.ID.String()

	kl.mu.Lock()
	bucket, ok := kl.buckets[id]
	if !ok || bucket.perMinute != perMinute {
		bucket = &keyBucket{
			perMinute: perMinute,
			limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		}
		kl.buckets[id] = bucket
	}
	kl.mu.Unlock()

	return bucket.limiter.Allow()
}

// Forget drops the bucket of a deleted key
func (kl *KeyRateLimiter) Forget(id string) {
	kl.mu.Lock()
	delete(kl.buckets, id)
	kl.mu.Unlock()
}
