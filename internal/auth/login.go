package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"crm-service/internal/domain/user"
	"crm-service/internal/rbac"
	"crm-service/internal/session"
	apperrors "crm-service/pkg/errors"
	"crm-service/pkg/password"
)

// UserLookup finds accounts of the auth directory
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// SessionManager issues, verifies and drops sessions
type SessionManager interface {
	Issue(ctx context.Context, userID string, role rbac.Role) (string, error)
	Verify(ctx context.Context, token string) (*session.Identity, error)
	Invalidate(ctx context.Context, userID string) error
	TTL() time.Duration
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *user.User
}

// Authenticator implements login, logout and session validation on top of
// the user directory and the session manager.
type Authenticator struct {
	users    UserLookup
	sessions SessionManager
	now      func() time.Time
}

func NewAuthenticator(users UserLookup, sessions SessionManager) *Authenticator {
	return &Authenticator{users: users, sessions: sessions, now: time.Now}
}

// Login checks the password and issues a session. Unknown emails and wrong
// passwords fail identically.
func (a *Authenticator) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || pw == "" {
		password.Verify(pw, password.DummyHash)
		return nil, apperrors.InvalidCredentials()
	}

	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		password.Verify(pw, password.DummyHash)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidCredentials()
		}
		return nil, err
	}

	if !password.Verify(pw, u.PasswordHash) {
		return nil, apperrors.InvalidCredentials()
	}

	issuedAt := a.now()
	token, err := a.sessions.Issue(ctx, u.ID.String(), u.Role)
	if err != nil {
		return nil, apperrors.InternalServer("failed to start session", err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: issuedAt.Add(a.sessions.TTL()).UTC(),
		User:      u,
	}, nil
}

// Logout drops the user's session record
func (a *Authenticator) Logout(ctx context.Context, userID string) error {
	return a.sessions.Invalidate(ctx, userID)
}

// ValidateSession verifies token and returns the identity it carries
func (a *Authenticator) ValidateSession(ctx context.Context, token string) (*session.Identity, error) {
	return a.sessions.Verify(ctx, token)
}
