package handler

import (
	"context"

	"crm-service/internal/audit"
	"crm-service/internal/auth"
	"crm-service/internal/authz"
	"crm-service/internal/domain/apikey"
	"crm-service/internal/domain/user"
	"crm-service/internal/executor"
	"crm-service/internal/rbac"
	"crm-service/internal/session"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Consumer-side interfaces defined by handlers
// Each interface contains only the methods needed by the specific handler

// AuthHandler interfaces
type LoginService interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	Logout(ctx context.Context, userID string) error
}

type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// APIKeyHandler interfaces
type APIKeyManager interface {
	Create(ctx context.Context, input apikey.CreateAPIKeyInput) (*auth.IssuedKey, error)
	List(ctx context.Context) ([]*apikey.APIKey, error)
	Get(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error)
	Revoke(ctx context.Context, id, revokedBy uuid.UUID) (*apikey.APIKey, error)
	Delete(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error)
}

type SuiteRunner interface {
	Run(ctx context.Context, key *apikey.APIKey, scenarios []authz.Scenario) (*executor.Report, error)
}

// KeyForgetter drops per-key state kept outside the store
type KeyForgetter interface {
	Forget(id string)
}

// SimulateHandler interfaces
type RequestExecutor interface {
	Execute(ctx context.Context, key *apikey.APIKey, scenario authz.Scenario) (executor.Response, error)
}

// TeamHandler interfaces
type MemberRepository interface {
	Invite(ctx context.Context, input user.InviteMemberInput) (*user.Member, error)
	Add(ctx context.Context, m user.Member) (*user.Member, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.Member, error)
	List(ctx context.Context) ([]*user.Member, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role rbac.Role) (*user.Member, error)
	Remove(ctx context.Context, id uuid.UUID) (*user.Member, error)
}

type UserRepository interface {
	Create(ctx context.Context, input user.CreateUserInput) (*user.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role rbac.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type SessionInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// AuditLogger records security relevant events (used by multiple handlers)
type AuditLogger interface {
	LogFromContext(c echo.Context, resourceType audit.ResourceType, resourceID *uuid.UUID, action audit.Action, status audit.Status, metadata map[string]any)
	LogError(c echo.Context, resourceType audit.ResourceType, resourceID *uuid.UUID, action audit.Action, err error)
}

var _ SessionInvalidator = (*session.Manager)(nil)
