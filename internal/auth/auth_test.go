package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"crm-service/internal/audit"
	"crm-service/internal/auth"
	"crm-service/internal/domain/apikey"
	"crm-service/internal/domain/user"
	"crm-service/internal/kvstore"
	"crm-service/internal/rbac"
	"crm-service/internal/rbac/presets"
	"crm-service/internal/repository/kv"
	"crm-service/internal/session"
	apperrors "crm-service/pkg/errors"
	"crm-service/pkg/password"
	"crm-service/pkg/token"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "Vb7xQ2mN9pL4kR8tW1yZ5cF3hJ6sD0gA"

type mapCache struct {
	mu      sync.Mutex
	entries map[string]uuid.UUID
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string]uuid.UUID)} }

func (c *mapCache) Get(hash string) (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.entries[hash]
	return id, ok
}

func (c *mapCache) Set(hash string, id uuid.UUID) {
	c.mu.Lock()
	c.entries[hash] = id
	c.mu.Unlock()
}

func (c *mapCache) Delete(hash string) error {
	c.mu.Lock()
	delete(c.entries, hash)
	c.mu.Unlock()
	return nil
}

type denyLimiter struct{ calls int }

func (l *denyLimiter) Allow(*apikey.APIKey) bool {
	l.calls++
	return false
}

type fixture struct {
	store    kvstore.Store
	keys     *auth.APIKeyService
	keyRepo  *kv.APIKeyRepository
	users    *kv.UserRepository
	sessions *session.Manager
	cache    *mapCache
	checker  *rbac.Checker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kvstore.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	keyRepo := kv.NewAPIKeyRepository(store)
	users := kv.NewUserRepository(store)
	cache := newMapCache()
	sessions, err := session.NewManager(testSecret, kv.NewSessionRepository(store), users)
	require.NoError(t, err)

	return &fixture{
		store:    store,
		keys:     auth.NewAPIKeyService(keyRepo, auth.NewKeyHasher(""), auth.WithKeyCache(cache)),
		keyRepo:  keyRepo,
		users:    users,
		sessions: sessions,
		cache:    cache,
		checker:  rbac.MustNew(presets.CRM()),
	}
}

func (f *fixture) createKey(t *testing.T, mutate func(in *apikey.CreateAPIKeyInput)) *auth.IssuedKey {
	t.Helper()
	in := apikey.CreateAPIKeyInput{
		Name:        "integration",
		Permissions: []apikey.Permission{apikey.PermissionRead},
		CreatedBy:   uuid.New(),
	}
	if mutate != nil {
		mutate(&in)
	}
	issued, err := f.keys.Create(context.Background(), in)
	require.NoError(t, err)
	return issued
}

func (f *fixture) createUser(t *testing.T, email, pw string, role rbac.Role) *user.User {
	t.Helper()
	hash, err := password.HashWithCost(pw, bcrypt.MinCost)
	require.NoError(t, err)
	u, err := f.users.Create(context.Background(), user.CreateUserInput{Email: email, Name: "Test User", PasswordHash: hash, Role: role})
	require.NoError(t, err)
	return u
}

func newContext(method, target string, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(called *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*called = true
		return c.NoContent(http.StatusNoContent)
	}
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	return he.Code
}

// ============================================================================
// Key Hasher Tests
// ============================================================================

func TestKeyHasher(t *testing.T) {
	h := auth.NewKeyHasher("pepper")

	a := h.Hash("ck_abc")
	assert.Equal(t, a, h.Hash("ck_abc"))
	assert.NotEqual(t, a, h.Hash("ck_abd"))
	assert.NotEqual(t, a, auth.NewKeyHasher("other").Hash("ck_abc"))
	assert.Len(t, a, 64)

	assert.True(t, h.Verify("ck_abc", a))
	assert.False(t, h.Verify("ck_abd", a))
	assert.False(t, h.Verify("ck_abc", ""))
}

func TestConstantTimeCompareHashes(t *testing.T) {
	assert.True(t, auth.ConstantTimeCompareHashes("abcd", "abcd"))
	assert.False(t, auth.ConstantTimeCompareHashes("abcd", "abce"))
	assert.False(t, auth.ConstantTimeCompareHashes("abcd", "abc"))
	assert.False(t, auth.ConstantTimeCompareHashes("", "abc"))
}

// ============================================================================
// API Key Service Tests
// ============================================================================

func TestAPIKeyService_CreateStoresHashOnly(t *testing.T) {
	f := newFixture(t)
	issued := f.createKey(t, nil)

	assert.True(t, token.LooksLikeAPIKey(issued.Secret))
	assert.True(t, strings.HasPrefix(issued.Secret, issued.Key.KeyPrefix))
	assert.Len(t, issued.Key.KeyPrefix, token.DisplayPrefixLength)
	assert.NotEqual(t, issued.Secret, issued.Key.KeyHash)
	assert.NotContains(t, issued.Key.KeyHash, issued.Secret)
	assert.True(t, issued.Key.Active)

	raw, err := f.store.Get(context.Background(), "api-keys")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), issued.Secret)
}

func TestAPIKeyService_CreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.keys.Create(context.Background(), apikey.CreateAPIKeyInput{Name: "empty grant"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAPIKeyService_Resolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued := f.createKey(t, nil)

	t.Run("known secret", func(t *testing.T) {
		key, err := f.keys.Resolve(ctx, issued.Secret)
		require.NoError(t, err)
		assert.Equal(t, issued.Key.ID, key.ID)
	})

	t.Run("unknown secret", func(t *testing.T) {
		other, err := token.GenerateAPIKey()
		require.NoError(t, err)
		_, err = f.keys.Resolve(ctx, other)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("malformed secret", func(t *testing.T) {
		_, err := f.keys.Resolve(ctx, "not-a-key")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("works without cache entry", func(t *testing.T) {
		require.NoError(t, f.cache.Delete(issued.Key.KeyHash))
		key, err := f.keys.Resolve(ctx, issued.Secret)
		require.NoError(t, err)
		assert.Equal(t, issued.Key.ID, key.ID)

		cached, ok := f.cache.Get(issued.Key.KeyHash)
		assert.True(t, ok)
		assert.Equal(t, issued.Key.ID, cached)
	})
}

func TestAPIKeyService_ResolveReturnsRevokedKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued := f.createKey(t, nil)

	_, err := f.keys.Revoke(ctx, issued.Key.ID, uuid.New())
	require.NoError(t, err)

	key, err := f.keys.Resolve(ctx, issued.Secret)
	require.NoError(t, err)
	assert.False(t, key.Active)
	assert.NotNil(t, key.RevokedAt)
}

func TestAPIKeyService_DeleteForgetsKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued := f.createKey(t, nil)

	deleted, err := f.keys.Delete(ctx, issued.Key.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.Key.ID, deleted.ID)

	_, ok := f.cache.Get(issued.Key.KeyHash)
	assert.False(t, ok)

	_, err = f.keys.Resolve(ctx, issued.Secret)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.keys.Delete(ctx, issued.Key.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAPIKeyService_StaleCacheEntryFallsBackToHashLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued := f.createKey(t, nil)

	f.cache.Set(issued.Key.KeyHash, uuid.New())

	key, err := f.keys.Resolve(ctx, issued.Secret)
	require.NoError(t, err)
	assert.Equal(t, issued.Key.ID, key.ID)

	cached, ok := f.cache.Get(issued.Key.KeyHash)
	require.True(t, ok)
	assert.Equal(t, issued.Key.ID, cached)
}

// ============================================================================
// Session Middleware Tests
// ============================================================================

func TestRequireSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.createUser(t, "owner@crm.io", "correct horse", presets.RoleManager)
	valid, err := f.sessions.Issue(ctx, u.ID.String(), presets.RoleManager)
	require.NoError(t, err)

	mw := auth.NewMiddleware(f.sessions, f.keys).RequireSession()

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			c, _ := newContext(http.MethodGet, "/auth/session", headers)
			called := false
			err := mw(okHandler(&called))(c)
			assert.Equal(t, tt.status, httpStatus(t, err))
			assert.False(t, called)
		})
	}

	t.Run("valid token", func(t *testing.T) {
		c, _ := newContext(http.MethodGet, "/auth/session", map[string]string{"Authorization": "Bearer " + valid})
		called := false
		require.NoError(t, mw(okHandler(&called))(c))
		assert.True(t, called)

		identity, err := auth.GetIdentity(c)
		require.NoError(t, err)
		assert.Equal(t, presets.RoleManager, identity.Role)

		userID, err := auth.GetUserID(c)
		require.NoError(t, err)
		assert.Equal(t, u.ID, userID)
		assert.Equal(t, rbac.AuthTypeSession, auth.GetAuthType(c))
	})

	t.Run("logged out token", func(t *testing.T) {
		require.NoError(t, f.sessions.Invalidate(ctx, u.ID.String()))
		c, _ := newContext(http.MethodGet, "/auth/session", map[string]string{"Authorization": "Bearer " + valid})
		called := false
		err := mw(okHandler(&called))(c)
		assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
		assert.False(t, called)
	})
}

func TestContextGetters_Unauthenticated(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", nil)

	_, err := auth.GetIdentity(c)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = auth.GetUserID(c)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = auth.GetAPIKey(c)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, rbac.AuthType(""), auth.GetAuthType(c))
}

// ============================================================================
// API Key Middleware Tests
// ============================================================================

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireAPIKey_Rejections(t *testing.T) {
	f := newFixture(t)
	restricted := f.createKey(t, func(in *apikey.CreateAPIKeyInput) {
		in.AllowedIPs = []string{"10.1.0.0/16"}
	})
	unknown, err := token.GenerateAPIKey()
	require.NoError(t, err)

	mw := auth.NewMiddleware(f.sessions, f.keys).RequireAPIKey()

	tests := []struct {
		name    string
		headers map[string]string
		status  int
		outcome string
	}{
		{"missing key", nil, http.StatusUnauthorized, "unauthorized"},
		{"unknown key", map[string]string{"X-API-Key": unknown}, http.StatusUnauthorized, "unauthorized"},
		{"malformed key", map[string]string{"X-API-Key": "Bearer xyz"}, http.StatusUnauthorized, "unauthorized"},
		{"address outside allow-list", map[string]string{"X-API-Key": restricted.Secret, "X-Real-IP": "192.168.1.4"}, http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/v1/contacts", tt.headers)
			called := false
			require.NoError(t, mw(okHandler(&called))(c))
			assert.False(t, called)
			assert.Equal(t, tt.status, rec.Code)

			body := decodeBody(t, rec)
			assert.Equal(t, float64(tt.status), body["status"])
			assert.Equal(t, tt.outcome, body["outcome"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRequireAPIKey_AllowsListedAddress(t *testing.T) {
	f := newFixture(t)
	restricted := f.createKey(t, func(in *apikey.CreateAPIKeyInput) {
		in.AllowedIPs = []string{"10.1.0.0/16", "203.0.113.9"}
	})
	mw := auth.NewMiddleware(f.sessions, f.keys).RequireAPIKey()

	for _, ip := range []string{"10.1.44.2", "203.0.113.9"} {
		c, _ := newContext(http.MethodGet, "/v1/contacts", map[string]string{"X-API-Key": restricted.Secret, "X-Real-IP": ip})
		called := false
		require.NoError(t, mw(okHandler(&called))(c))
		assert.True(t, called, ip)
	}
}

func TestRequireAPIKey_RateLimited(t *testing.T) {
	f := newFixture(t)
	issued := f.createKey(t, nil)
	limiter := &denyLimiter{}
	mw := auth.NewMiddleware(f.sessions, f.keys, auth.WithKeyLimiter(limiter)).RequireAPIKey()

	c, rec := newContext(http.MethodGet, "/v1/contacts", map[string]string{"X-API-Key": issued.Secret})
	called := false
	require.NoError(t, mw(okHandler(&called))(c))

	assert.False(t, called)
	assert.Equal(t, 1, limiter.calls)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decodeBody(t, rec)["outcome"])
}

func TestRequireAPIKey_SetsContextAndRecordsUsage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued := f.createKey(t, nil)
	mw := auth.NewMiddleware(f.sessions, f.keys).RequireAPIKey()

	c, _ := newContext(http.MethodGet, "/v1/contacts", map[string]string{"X-API-Key": issued.Secret})
	called := false
	require.NoError(t, mw(okHandler(&called))(c))
	assert.True(t, called)

	key, err := auth.GetAPIKey(c)
	require.NoError(t, err)
	assert.Equal(t, issued.Key.ID, key.ID)
	assert.Equal(t, issued.Key.ID, c.Get(auth.ContextKeyAPIKeyID))
	assert.Equal(t, rbac.AuthTypeAPIKey, auth.GetAuthType(c))

	stored, err := f.keyRepo.GetByID(ctx, issued.Key.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.UsageCount)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestRequireAPIKey_UnusableKeyIsUnauthorized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	revoked := f.createKey(t, nil)
	_, err := f.keys.Revoke(ctx, revoked.Key.ID, uuid.New())
	require.NoError(t, err)

	expiry := time.Now().Add(time.Hour)
	expiring := f.createKey(t, func(in *apikey.CreateAPIKeyInput) { in.ExpiresAt = &expiry })
	later := auth.NewAPIKeyService(f.keyRepo, auth.NewKeyHasher(""),
		auth.WithKeyServiceClock(func() time.Time { return expiry.Add(time.Minute) }))

	tests := []struct {
		name   string
		keys   *auth.APIKeyService
		issued *auth.IssuedKey
	}{
		{"revoked", f.keys, revoked},
		{"expired", later, expiring},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := auth.NewMiddleware(f.sessions, tt.keys).RequireAPIKey()
			c, rec := newContext(http.MethodGet, "/v1/contacts", map[string]string{"X-API-Key": tt.issued.Secret})
			called := false
			require.NoError(t, mw(okHandler(&called))(c))
			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", decodeBody(t, rec)["outcome"])

			stored, err := f.keyRepo.GetByID(ctx, tt.issued.Key.ID)
			require.NoError(t, err)
			assert.EqualValues(t, 0, stored.UsageCount)
		})
	}
}

func TestRequireAPIKey_RevokedKeyCheckedBeforeAddressAndLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued := f.createKey(t, func(in *apikey.CreateAPIKeyInput) {
		in.AllowedIPs = []string{"10.1.0.0/16"}
	})
	_, err := f.keys.Revoke(ctx, issued.Key.ID, uuid.New())
	require.NoError(t, err)

	limiter := &denyLimiter{}
	mw := auth.NewMiddleware(f.sessions, f.keys, auth.WithKeyLimiter(limiter)).RequireAPIKey()

	c, rec := newContext(http.MethodGet, "/v1/contacts", map[string]string{
		"X-API-Key": issued.Secret,
		"X-Real-IP": "192.168.1.4",
	})
	called := false
	require.NoError(t, mw(okHandler(&called))(c))

	assert.False(t, called)
	assert.Zero(t, limiter.calls)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
	assert.Equal(t, "unauthorized", body["outcome"])
}

// ============================================================================
// RBAC Middleware Tests
// ============================================================================

type captureRecorder struct {
	events chan *audit.Event
}

func (r *captureRecorder) Record(_ context.Context, e *audit.Event) error {
	r.events <- e
	return nil
}

func withIdentity(c echo.Context, role rbac.Role) {
	c.Set(auth.ContextKeyIdentity, &session.Identity{UserID: uuid.NewString(), Role: role})
}

func TestRequirePermission(t *testing.T) {
	checker := rbac.MustNew(presets.CRM())
	mw := auth.NewRBACMiddleware(checker, nil)

	tests := []struct {
		name     string
		role     rbac.Role
		resource rbac.Resource
		action   rbac.Action
		allowed  bool
	}{
		{"admin creates keys", presets.RoleAdmin, presets.ResourceAPI, presets.ActionCreateKeys, true},
		{"manager cannot create keys", presets.RoleManager, presets.ResourceAPI, presets.ActionCreateKeys, false},
		{"sales views team", presets.RoleSales, presets.ResourceTeam, presets.ActionView, true},
		{"sales cannot invite", presets.RoleSales, presets.ResourceTeam, presets.ActionInvite, false},
		{"unknown role", rbac.Role("intern"), presets.ResourceContacts, presets.ActionView, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(http.MethodGet, "/api/x", nil)
			withIdentity(c, tt.role)
			called := false
			err := mw.RequirePermission(tt.resource, tt.action)(okHandler(&called))(c)
			if tt.allowed {
				require.NoError(t, err)
				assert.True(t, called)
				return
			}
			assert.Equal(t, http.StatusForbidden, httpStatus(t, err))
			assert.False(t, called)
		})
	}

	t.Run("no session", func(t *testing.T) {
		c, _ := newContext(http.MethodGet, "/api/x", nil)
		called := false
		err := mw.RequirePermission(presets.ResourceTeam, presets.ActionView)(okHandler(&called))(c)
		assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
	})
}

func TestRequirePermission_AuditsDenial(t *testing.T) {
	rec := &captureRecorder{events: make(chan *audit.Event, 1)}
	mw := auth.NewRBACMiddleware(rbac.MustNew(presets.CRM()), audit.NewLogger(rec, nil))

	c, _ := newContext(http.MethodDelete, "/api/api-keys/1", nil)
	withIdentity(c, presets.RoleSales)
	called := false
	err := mw.RequirePermission(presets.ResourceAPI, presets.ActionRevokeKeys)(okHandler(&called))(c)
	assert.Equal(t, http.StatusForbidden, httpStatus(t, err))

	select {
	case e := <-rec.events:
		assert.Equal(t, audit.StatusDenied, e.Status)
		assert.Equal(t, audit.ActionAccess, e.Action)
		assert.Equal(t, "revokeKeys", e.Metadata["action"])
		assert.Equal(t, "sales", e.Metadata["role"])
	case <-time.After(2 * time.Second):
		t.Fatal("denial was not audited")
	}
}

func TestRequireRole(t *testing.T) {
	mw := auth.NewRBACMiddleware(rbac.MustNew(presets.CRM()), nil)

	for role, allowed := range map[rbac.Role]bool{
		presets.RoleAdmin:   true,
		presets.RoleManager: true,
		presets.RoleSales:   false,
	} {
		c, _ := newContext(http.MethodGet, "/", nil)
		withIdentity(c, role)
		called := false
		err := mw.RequireRole(presets.RoleManager)(okHandler(&called))(c)
		if allowed {
			assert.NoError(t, err, role)
		} else {
			assert.Equal(t, http.StatusForbidden, httpStatus(t, err), role)
		}
		assert.Equal(t, allowed, called, role)
	}
}

// ============================================================================
// Authenticator Tests
// ============================================================================

func TestAuthenticator_Login(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.createUser(t, "ada@crm.io", "correct horse", presets.RoleAdmin)
	a := auth.NewAuthenticator(f.users, f.sessions)

	t.Run("valid credentials", func(t *testing.T) {
		res, err := a.Login(ctx, "  ADA@crm.io ", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, u.ID, res.User.ID)
		assert.True(t, res.ExpiresAt.After(time.Now()))

		identity, err := a.ValidateSession(ctx, res.Token)
		require.NoError(t, err)
		assert.Equal(t, u.ID.String(), identity.UserID)
		assert.Equal(t, presets.RoleAdmin, identity.Role)
	})

	failures := []struct {
		name, email, password string
	}{
		{"wrong password", "ada@crm.io", "battery staple"},
		{"unknown email", "nobody@crm.io", "correct horse"},
		{"empty password", "ada@crm.io", ""},
		{"empty email", "", "correct horse"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Login(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
		})
	}
}

func TestAuthenticator_LogoutInvalidatesToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t, "grace@crm.io", "correct horse", presets.RoleSales)
	a := auth.NewAuthenticator(f.users, f.sessions)

	res, err := a.Login(ctx, "grace@crm.io", "correct horse")
	require.NoError(t, err)
	require.NoError(t, a.Logout(ctx, res.User.ID.String()))

	_, err = a.ValidateSession(ctx, res.Token)
	assert.ErrorIs(t, err, session.ErrSessionInvalid)
}
