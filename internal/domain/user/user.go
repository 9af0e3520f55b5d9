package user

import (
	"time"

	"crm-service/internal/rbac"

	"github.com/google/uuid"
)

// User is an account in the auth directory ("auth-users")
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	Role         rbac.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CreateUserInput struct {
	Email        string
	Name         string
	PasswordHash string
	Role         rbac.Role
}

// MemberStatus tracks whether an invited member has joined
type MemberStatus string

const (
	MemberInvited MemberStatus = "invited"
	MemberActive  MemberStatus = "active"
)

// Member is an entry of the team directory ("team-members")
type Member struct {
	ID        uuid.UUID    `json:"id"`
	UserID    *uuid.UUID   `json:"userId,omitempty"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Role      rbac.Role    `json:"role"`
	Status    MemberStatus `json:"status"`
	InvitedBy *uuid.UUID   `json:"invitedBy,omitempty"`
	InvitedAt time.Time    `json:"invitedAt"`
}

type InviteMemberInput struct {
	Name      string
	Email     string
	Role      rbac.Role
	InvitedBy uuid.UUID
}

// Session is the server-side record of the most recent login of a user,
// stored under "auth-session-<userId>". A token is only honoured while the
// record holding its token id exists.
type Session struct {
	UserID    string    `json:"userId"`
	Role      rbac.Role `json:"role"`
	TokenID   string    `json:"tokenId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
