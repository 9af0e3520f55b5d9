// Package session issues and verifies login sessions. A session is a signed
// HS256 token carrying the user id, role and expiry, backed by a per-user
// record in the store. Tokens whose record is gone (logout, newer login,
// deleted user) no longer verify.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm-service/internal/domain/user"
	"crm-service/internal/rbac"
	"crm-service/internal/repository"
	apperrors "crm-service/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTTL = 24 * time.Hour

var (
	ErrSessionInvalid = errors.New("session invalid")
	ErrSessionExpired = errors.New("session expired")
)

const (
	errSecretRequired      = "session: signing secret must not be empty"
	errNegativeTTLFmt      = "session: ttl must not be negative, got %s"
	errUserIDRequired      = "session: user id must not be empty"
	errSignTokenFmt        = "session: sign token: %w"
	errStoreSessionFmt     = "session: store record for %s: %w"
	errLoadSessionFmt      = "session: load record for %s: %w"
	errDeleteSessionFmt    = "session: delete record for %s: %w"
	errLookupUserFmt       = "session: look up user %s: %w"
	errUnexpectedMethodFmt = "unexpected signing method: %v"
)

// Identity is what a verified token asserts about its bearer
type Identity struct {
	UserID string    `json:"userId"`
	Role   rbac.Role `json:"role"`
}

// Claims is the signed token payload
type Claims struct {
	UserID string    `json:"userId"`
	Role   rbac.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserDirectory answers whether a user still exists
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

type Manager struct {
	secret   []byte
	ttl      time.Duration
	sessions repository.SessionRepository
	users    UserDirectory
	now      func() time.Time
	locks    *keyedMutex
	logger   *zap.Logger
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func NewManager(secret string, sessions repository.SessionRepository, users UserDirectory, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, errors.New(errSecretRequired)
	}
	m := &Manager{
		secret:   []byte(secret),
		ttl:      DefaultTTL,
		sessions: sessions,
		users:    users,
		now:      time.Now,
		locks:    newKeyedMutex(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ttl < 0 {
		return nil, fmt.Errorf(errNegativeTTLFmt, m.ttl)
	}
	return m, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for userID and records it as the user's current
// session, replacing any earlier one.
func (m *Manager) Issue(ctx context.Context, userID string, role rbac.Role) (string, error) {
	if userID == "" {
		return "", errors.New(errUserIDRequired)
	}

	now := m.now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf(errSignTokenFmt, err)
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	record := user.Session{
		UserID:    userID,
		Role:      role,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if err := m.sessions.Put(ctx, record); err != nil {
		return "", fmt.Errorf(errStoreSessionFmt, userID, err)
	}

	m.logger.Debug("session issued",
		zap.String("user_id", userID),
		zap.String("role", string(role)),
		zap.Time("expires_at", record.ExpiresAt))
	return signed, nil
}

// Verify checks the signature, then expiry, then that the user and the
// session record still exist. Store failures other than a missing record
// are returned as-is.
func (m *Manager) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if claims.ExpiresAt == nil || claims.UserID == "" || claims.ID == "" {
		return nil, ErrSessionInvalid
	}
	if !m.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrSessionExpired
	}

	exists, err := m.users.UserExists(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf(errLookupUserFmt, claims.UserID, err)
	}
	if !exists {
		return nil, ErrSessionInvalid
	}

	record, err := m.sessions.Get(ctx, claims.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf(errLoadSessionFmt, claims.UserID, err)
	}
	if record.TokenID != claims.ID {
		return nil, ErrSessionInvalid
	}

	return &Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// Invalidate drops the session record of userID. It is a no-op when the
// user has no session.
func (m *Manager) Invalidate(ctx context.Context, userID string) error {
	unlock := m.locks.Lock(userID)
	defer unlock()

	if err := m.sessions.Delete(ctx, userID); err != nil {
		return fmt.Errorf(errDeleteSessionFmt, userID, err)
	}
	m.logger.Debug("session invalidated", zap.String("user_id", userID))
	return nil
}

func (m *Manager) parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf(errUnexpectedMethodFmt, t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}
