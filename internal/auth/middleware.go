package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"crm-service/internal/authz"
	"crm-service/internal/domain/apikey"
	"crm-service/internal/rbac"
	"crm-service/internal/session"
	apperrors "crm-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SessionVerifier checks a session token
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*session.Identity, error)
}

// KeyLimiter decides whether a key may make another request now
type KeyLimiter interface {
	Allow(key *apikey.APIKey) bool
}

type Middleware struct {
	sessions SessionVerifier
	keys     *APIKeyService
	limiter  KeyLimiter
	log      *zap.Logger
}

type MiddlewareOption func(*Middleware)

func WithKeyLimiter(l KeyLimiter) MiddlewareOption {
	return func(m *Middleware) { m.limiter = l }
}

func WithMiddlewareLogger(log *zap.Logger) MiddlewareOption {
	return func(m *Middleware) { m.log = log }
}

func NewMiddleware(sessions SessionVerifier, keys *APIKeyService, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{sessions: sessions, keys: keys, log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RequireSession admits requests carrying a valid bearer session token
func (m *Middleware) RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" {
				return respondError(c, http.StatusUnauthorized, msgMissingAuthorization)
			}

			identity, err := m.sessions.Verify(c.Request().Context(), token)
			switch {
			case errors.Is(err, session.ErrSessionExpired):
				return respondError(c, http.StatusUnauthorized, msgSessionExpired)
			case errors.Is(err, session.ErrSessionInvalid):
				return respondError(c, http.StatusUnauthorized, msgInvalidSession)
			case err != nil:
				m.log.Warn("session verification failed", zap.Error(err))
				return respondError(c, http.StatusUnauthorized, msgInvalidSession)
			}

			userID, err := uuid.Parse(identity.UserID)
			if err != nil {
				return respondError(c, http.StatusUnauthorized, msgInvalidSession)
			}

			c.Set(ContextKeyIdentity, identity)
			c.Set(ContextKeyUserID, userID)
			c.Set(ContextKeyAuthType, rbac.AuthTypeSession)

			return next(c)
		}
	}
}

// RequireAPIKey resolves the X-API-Key header to a key record. Revoked and
// expired keys are answered as unauthorized before the IP allow-list and the
// rate limiter run. Usable keys then have their usage recorded; permissions
// are decided later by the executor.
func (m *Middleware) RequireAPIKey() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			secret := extractAPIKey(c)
			if secret == "" {
				return respondOutcome(c, authz.OutcomeUnauthorized, msgMissingAPIKey)
			}

			key, err := m.keys.Resolve(c.Request().Context(), secret)
			if err != nil {
				if !errors.Is(err, apperrors.ErrUnauthorized) {
					m.log.Warn("API key lookup failed", zap.Error(err))
				}
				return respondOutcome(c, authz.OutcomeUnauthorized, msgInvalidAPIKey)
			}

			c.Set(ContextKeyAPIKey, key)
			c.Set(ContextKeyAPIKeyID, key.ID)
			c.Set(ContextKeyAuthType, rbac.AuthTypeAPIKey)

			if !key.IsUsable(m.keys.now()) {
				return respondOutcome(c, authz.OutcomeUnauthorized, msgAPIKeyNotUsable)
			}

			if !key.AllowsIP(c.RealIP()) {
				return respondOutcome(c, authz.OutcomeForbidden, msgIPNotAllowed)
			}

			if m.limiter != nil && !m.limiter.Allow(key) {
				return respondRateLimited(c)
			}

			ctx, cancel := context.WithTimeout(context.Background(), apiKeyUsageTimeout)
			m.keys.RecordUsage(ctx, key.ID)
			cancel()

			return next(c)
		}
	}
}

func extractBearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(headerAuthorization)
	if authHeader == "" {
		return ""
	}

	parts := strings.Fields(authHeader)
	if len(parts) != authHeaderParts || strings.ToLower(parts[0]) != bearerScheme {
		return ""
	}

	return parts[1]
}

func extractAPIKey(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(HeaderAPIKey))
}

// GetIdentity returns the session identity set by RequireSession
func GetIdentity(c echo.Context) (*session.Identity, error) {
	identity, ok := c.Get(ContextKeyIdentity).(*session.Identity)
	if !ok || identity == nil {
		return nil, apperrors.Unauthorized(msgUserNotAuthenticated)
	}
	return identity, nil
}

func GetUserID(c echo.Context) (uuid.UUID, error) {
	userID := c.Get(ContextKeyUserID)
	if userID == nil {
		return uuid.Nil, apperrors.Unauthorized(msgUserNotAuthenticated)
	}

	id, ok := userID.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.InternalServer(msgInvalidUserIDCtx, nil)
	}

	return id, nil
}

func GetAPIKey(c echo.Context) (*apikey.APIKey, error) {
	key, ok := c.Get(ContextKeyAPIKey).(*apikey.APIKey)
	if !ok || key == nil {
		return nil, apperrors.Unauthorized(msgAPIKeyNotInContext)
	}
	return key, nil
}

func GetAuthType(c echo.Context) rbac.AuthType {
	authType := c.Get(ContextKeyAuthType)
	if authType == nil {
		return ""
	}

	t, ok := authType.(rbac.AuthType)
	if !ok {
		return ""
	}

	return t
}

// Subject builds the RBAC subject of a session-authenticated request
func Subject(c echo.Context) (*rbac.AuthSubject, error) {
	identity, err := GetIdentity(c)
	if err != nil {
		return nil, err
	}
	return &rbac.AuthSubject{
		Type:     rbac.AuthTypeSession,
		UserID:   identity.UserID,
		UserRole: identity.Role,
	}, nil
}
