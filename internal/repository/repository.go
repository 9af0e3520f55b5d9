package repository

import (
	"context"
	"time"

	"crm-service/internal/domain/apikey"
	"crm-service/internal/domain/user"
	"crm-service/internal/rbac"

	"github.com/google/uuid"
)

// Store keys of the persisted collections
const (
	KeyAPIKeys       = "api-keys"
	KeyTeamMembers   = "team-members"
	KeyAuthUsers     = "auth-users"
	SessionKeyPrefix = "auth-session-"
)

// SessionKey returns the store key holding the session record of userID
func SessionKey(userID string) string {
	return SessionKeyPrefix + userID
}

// APIKeyRepository defines API key data access operations
type APIKeyRepository interface {
	Create(ctx context.Context, input apikey.CreateAPIKeyInput) (*apikey.APIKey, error)
	GetByID(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error)
	GetByHash(ctx context.Context, keyHash string) (*apikey.APIKey, error)
	List(ctx context.Context) ([]*apikey.APIKey, error)
	Revoke(ctx context.Context, input apikey.RevokeAPIKeyInput) (*apikey.APIKey, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordUsage(ctx context.Context, id uuid.UUID, at time.Time) error
}

// UserRepository defines auth directory operations
type UserRepository interface {
	Create(ctx context.Context, input user.CreateUserInput) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role rbac.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	UserExists(ctx context.Context, userID string) (bool, error)
}

// MemberRepository defines team directory operations
type MemberRepository interface {
	Invite(ctx context.Context, input user.InviteMemberInput) (*user.Member, error)
	Add(ctx context.Context, member user.Member) (*user.Member, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.Member, error)
	List(ctx context.Context) ([]*user.Member, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role rbac.Role) (*user.Member, error)
	Remove(ctx context.Context, id uuid.UUID) (*user.Member, error)
}

// SessionRepository defines session record operations
type SessionRepository interface {
	Get(ctx context.Context, userID string) (*user.Session, error)
	Put(ctx context.Context, s user.Session) error
	Delete(ctx context.Context, userID string) error
}
