package session_test

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"

	"crm-service/internal/domain/user"
	"crm-service/internal/kvstore"
	"crm-service/internal/rbac"
	"crm-service/internal/rbac/presets"
	"crm-service/internal/repository/kv"
	"crm-service/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "k8Qz1vN4pX7rT2mW9yB3cF6hJ0sD5gL8"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	manager *session.Manager
	users   *kv.UserRepository
	store   kvstore.Store
	clock   *clock
}

func newFixture(t *testing.T, opts ...session.Option) *fixture {
	t.Helper()
	store := kvstore.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	c := &clock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	users := kv.NewUserRepository(store)
	all := append([]session.Option{session.WithClock(c.Now)}, opts...)
	m, err := session.NewManager(testSecret, kv.NewSessionRepository(store), users, all...)
	require.NoError(t, err)

	return &fixture{manager: m, users: users, store: store, clock: c}
}

func (f *fixture) newUser(t *testing.T, email string, role rbac.Role) *user.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), user.CreateUserInput{Email: email, Name: email, PasswordHash: "x", Role: role})
	require.NoError(t, err)
	return u
}

// ============================================================================
// Issue / Verify Tests
// ============================================================================

func TestManager_IssueThenVerify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.newUser(t, "ada@crm.io", presets.RoleManager)

	token, err := f.manager.Issue(ctx, u.ID.String(), presets.RoleManager)
	require.NoError(t, err)

	id, err := f.manager.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), id.UserID)
	assert.Equal(t, presets.RoleManager, id.Role)
}

func TestManager_TokenPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.newUser(t, "p@crm.io", presets.RoleSales)

	token, err := f.manager.Issue(ctx, u.ID.String(), presets.RoleSales)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"userId":"`+u.ID.String()+`"`)
	assert.Contains(t, string(payload), `"role":"sales"`)
	assert.Contains(t, string(payload), `"exp":`)
}

func TestManager_Expiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, session.WithTTL(time.Hour))
	u := f.newUser(t, "e@crm.io", presets.RoleSales)

	token, err := f.manager.Issue(ctx, u.ID.String(), presets.RoleSales)
	require.NoError(t, err)

	f.clock.Advance(59 * time.Minute)
	_, err = f.manager.Verify(ctx, token)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.manager.Verify(ctx, token)
	assert.ErrorIs(t, err, session.ErrSessionExpired)
}

func TestManager_ZeroTTLIsImmediatelyExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, session.WithTTL(0))
	u := f.newUser(t, "z@crm.io", presets.RoleAdmin)

	token, err := f.manager.Issue(ctx, u.ID.String(), presets.RoleAdmin)
	require.NoError(t, err)

	_, err = f.manager.Verify(ctx, token)
	assert.ErrorIs(t, err, session.ErrSessionExpired)
}

func TestManager_InvalidTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.newUser(t, "i@crm.io", presets.RoleSales)

	valid, err := f.manager.Issue(ctx, u.ID.String(), presets.RoleSales)
	require.NoError(t, err)

	otherKey := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		UserID:           u.ID.String(),
		Role:             presets.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ID: "x", ExpiresAt: jwt.NewNumericDate(f.clock.Now().Add(time.Hour))},
	})
	forged, err := otherKey.SignedString([]byte("a-completely-different-secret-value"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, session.Claims{UserID: u.ID.String()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"truncated", valid[:len(valid)-4]},
		{"wrong secret", forged},
		{"alg none", unsigned},
		{"undecodable payload", "eyJhbGciOiJIUzI1NiJ9.%%%.sig"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.manager.Verify(ctx, tt.token)
			assert.ErrorIs(t, err, session.ErrSessionInvalid)
		})
	}
}

// ============================================================================
// Invalidate Tests
// ============================================================================

func TestManager_InvalidateRevokesToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.newUser(t, "l@crm.io", presets.RoleSales)

	token, err := f.manager.Issue(ctx, u.ID.String(), presets.RoleSales)
	require.NoError(t, err)

	require.NoError(t, f.manager.Invalidate(ctx, u.ID.String()))
	_, err = f.manager.Verify(ctx, token)
	assert.ErrorIs(t, err, session.ErrSessionInvalid)

	_, err = f.store.Get(ctx, "auth-session-"+u.ID.String())
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	// idempotent
	assert.NoError(t, f.manager.Invalidate(ctx, u.ID.String()))
}

func TestManager_NewLoginSupersedesOldToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.newUser(t, "n@crm.io", presets.RoleSales)

	first, err := f.manager.Issue(ctx, u.ID.String(), presets.RoleSales)
	require.NoError(t, err)
	second, err := f.manager.Issue(ctx, u.ID.String(), presets.RoleSales)
	require.NoError(t, err)

	_, err = f.manager.Verify(ctx, first)
	assert.ErrorIs(t, err, session.ErrSessionInvalid)
	_, err = f.manager.Verify(ctx, second)
	assert.NoError(t, err)
}

func TestManager_DeletedUserIsInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.newUser(t, "d@crm.io", presets.RoleSales)

	token, err := f.manager.Issue(ctx, u.ID.String(), presets.RoleSales)
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(ctx, u.ID))
	_, err = f.manager.Verify(ctx, token)
	assert.ErrorIs(t, err, session.ErrSessionInvalid)
}

func TestManager_CorruptSessionRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.newUser(t, "c@crm.io", presets.RoleSales)

	token, err := f.manager.Issue(ctx, u.ID.String(), presets.RoleSales)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(ctx, "auth-session-"+u.ID.String(), []byte("{")))

	_, err = f.manager.Verify(ctx, token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrSessionExpired)
}

func TestManager_ConcurrentIssueKeepsOneSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.newUser(t, "r@crm.io", presets.RoleSales)

	const logins = 16
	tokens := make([]string, logins)
	var wg sync.WaitGroup
	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := f.manager.Issue(ctx, u.ID.String(), presets.RoleSales)
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	valid := 0
	for _, tok := range tokens {
		if _, err := f.manager.Verify(ctx, tok); err == nil {
			valid++
		}
	}
	assert.Equal(t, 1, valid)
}

// ============================================================================
// Construction Tests
// ============================================================================

func TestNewManager_Validation(t *testing.T) {
	store := kvstore.NewMemoryStore()
	sessions := kv.NewSessionRepository(store)
	users := kv.NewUserRepository(store)

	_, err := session.NewManager("", sessions, users)
	assert.Error(t, err)

	_, err = session.NewManager(testSecret, sessions, users, session.WithTTL(-time.Second))
	assert.Error(t, err)

	m, err := session.NewManager(testSecret, sessions, users)
	require.NoError(t, err)
	assert.Equal(t, session.DefaultTTL, m.TTL())

	_, err = m.Issue(context.Background(), "", presets.RoleSales)
	assert.Error(t, err)
}
