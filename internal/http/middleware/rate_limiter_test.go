package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"crm-service/internal/auth"
	"crm-service/internal/domain/apikey"
	"crm-service/internal/rbac"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, 2)

	assert.True(t, rl.Allow("test-key"))
	assert.True(t, rl.Allow("test-key"))
	assert.False(t, rl.Allow("test-key"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(2, 2)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	mw := rl.Middleware()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		assert.NoError(t, mw(handler)(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, mw(handler)(c))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_DifferentKeys(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	assert.True(t, rl.Allow("key1"))
	assert.True(t, rl.Allow("key2"))

	assert.False(t, rl.Allow("key1"))
	assert.False(t, rl.Allow("key2"))
}

func TestIdentityKey(t *testing.T) {
	e := echo.New()
	newCtx := func() echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXRealIP, "198.51.100.7")
		return e.NewContext(req, httptest.NewRecorder())
	}

	c := newCtx()
	assert.Equal(t, "ip:198.51.100.7", identityKey(c))

	userID := uuid.New()
	c = newCtx()
	c.Set(auth.ContextKeyAuthType, rbac.AuthTypeSession)
	c.Set(auth.ContextKeyUserID, userID)
	assert.Equal(t, "user:"+userID.String(), identityKey(c))

	key := &apikey.APIKey{ID: uuid.New()}
	c = newCtx()
	c.Set(auth.ContextKeyAuthType, rbac.AuthTypeAPIKey)
	c.Set(auth.ContextKeyAPIKey, key)
	assert.Equal(t, "apikey:"+key.ID.String(), identityKey(c))
}

// ============================================================================
// Per-Key Limiter Tests
// ============================================================================

func intPtr(v int) *int { return &v }

func TestKeyRateLimiter_BurstOfRateLimit(t *testing.T) {
	kl := NewKeyRateLimiter()
	key := &apikey.APIKey{ID: uuid.New(), RateLimit: intPtr(3)}

	for i := 0; i < 3; i++ {
		assert.True(t, kl.Allow(key), "request %d", i+1)
	}
	assert.False(t, kl.Allow(key))
}

func TestKeyRateLimiter_UnlimitedKeys(t *testing.T) {
	kl := NewKeyRateLimiter()
	key := &apikey.APIKey{ID: uuid.New()}

	for i := 0; i < 1000; i++ {
		assert.True(t, kl.Allow(key))
	}
	assert.True(t, kl.Allow(nil))
}

func TestKeyRateLimiter_KeysAreIndependent(t *testing.T) {
	kl := NewKeyRateLimiter()
	a := &apikey.APIKey{ID: uuid.New(), RateLimit: intPtr(1)}
	b := &apikey.APIKey{ID: uuid.New(), RateLimit: intPtr(1)}

	assert.True(t, kl.Allow(a))
	assert.True(t, kl.Allow(b))
	assert.False(t, kl.Allow(a))
	assert.False(t, kl.Allow(b))
}

func TestKeyRateLimiter_ChangedBudgetResetsBucket(t *testing.T) {
	kl := NewKeyRateLimiter()
	key := &apikey.APIKey{ID: uuid.New(), RateLimit: intPtr(1)}

	assert.True(t, kl.Allow(key))
	assert.False(t, kl.Allow(key))

	key.RateLimit = intPtr(2)
	assert.True(t, kl.Allow(key))
	assert.True(t, kl.Allow(key))
	assert.False(t, kl.Allow(key))

	kl.Forget(key.ID.String())
	assert.True(t, kl.Allow(key))
}
