package apikey

import (
	"errors"
	"fmt"
	"net"
	"time"

	"crm-service/internal/rbac"

	"github.com/google/uuid"
)

type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionWrite  Permission = "write"
	PermissionDelete Permission = "delete"
	PermissionAdmin  Permission = "admin"
)

const (
	errInvalidPermissionFmt       = "invalid permission: %s"
	errResourcePermissionFmt      = "permission %s cannot be granted per resource"
	errNameRequired               = "name is required"
	errGrantRequired              = "at least one permission or resource permission is required"
	errResourceRequired           = "resource permission must name a resource"
	errDuplicateResourceFmt       = "duplicate resource permission for %s"
	errResourceActionsRequiredFmt = "resource permission for %s grants nothing"
	errRateLimitFmt               = "rate limit must be positive, got %d"
	errInvalidAllowedIPFmt        = "invalid allowed ip: %s"
	errInvalidExpiryFmt           = "invalid expiry %q: expected YYYY-MM-DD or RFC 3339"
	dateLayout                    = "2006-01-02"
)

// Validate validates the permission against the flat grant vocabulary
func (p Permission) Validate() error {
	switch p {
	case PermissionRead, PermissionWrite, PermissionDelete, PermissionAdmin:
		return nil
	default:
		return fmt.Errorf(errInvalidPermissionFmt, p)
	}
}

// ValidateScoped validates the permission for use inside a per-resource grant
func (p Permission) ValidateScoped() error {
	switch p {
	case PermissionRead, PermissionWrite, PermissionDelete:
		return nil
	case PermissionAdmin:
		return fmt.Errorf(errResourcePermissionFmt, p)
	default:
		return fmt.Errorf(errInvalidPermissionFmt, p)
	}
}

// ResourcePermission grants a subset of read/write/delete on one resource
type ResourcePermission struct {
	Resource rbac.Resource `json:"resource"`
	Actions  []Permission  `json:"actions"`
}

type APIKey struct {
	ID                  uuid.UUID            `json:"id"`
	Name                string               `json:"name"`
	KeyHash             string               `json:"keyHash"`
	KeyPrefix           string               `json:"keyPrefix"`
	Active              bool                 `json:"isActive"`
	Permissions         []Permission         `json:"permissions"`
	ResourcePermissions []ResourcePermission `json:"resourcePermissions,omitempty"`
	ExpiresAt           *time.Time           `json:"expiresAt,omitempty"`
	RateLimit           *int                 `json:"rateLimit,omitempty"`
	AllowedIPs          []string             `json:"allowedIps,omitempty"`
	CreatedBy           uuid.UUID            `json:"createdBy"`
	CreatedAt           time.Time            `json:"createdAt"`
	LastUsedAt          *time.Time           `json:"lastUsedAt,omitempty"`
	UsageCount          int64                `json:"usageCount"`
	RevokedAt           *time.Time           `json:"revokedAt,omitempty"`
	RevokedBy           *uuid.UUID           `json:"revokedBy,omitempty"`
}

// Status is the validity state of a key at a given instant
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// Status reports the validity of the key at now. Revocation is checked
// before expiry so a revoked key always reports revoked.
func (k *APIKey) Status(now time.Time) Status {
	if !k.Active {
		return StatusRevoked
	}
	if k.ExpiresAt != nil && k.ExpiresAt.Before(now) {
		return StatusExpired
	}
	return StatusActive
}

// IsUsable returns true if the key is active and not expired at now
func (k *APIKey) IsUsable(now time.Time) bool {
	return k.Status(now) == StatusActive
}

// HasPermission reports whether the key grants perm on resource.
// Non-empty resource grants take precedence and the flat list is then ignored.
func (k *APIKey) HasPermission(resource rbac.Resource, perm Permission) bool {
	if len(k.ResourcePermissions) > 0 {
		for _, rp := range k.ResourcePermissions {
			if rp.Resource == resource {
				return containsPermission(rp.Actions, perm)
			}
		}
		return false
	}
	return containsPermission(k.Permissions, perm)
}

// AllowsIP reports whether ip may use the key. An empty allow-list admits any address.
func (k *APIKey) AllowsIP(ip string) bool {
	if len(k.AllowedIPs) == 0 {
		return true
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	for _, entry := range k.AllowedIPs {
		if _, network, err := net.ParseCIDR(entry); err == nil {
			if network.Contains(addr) {
				return true
			}
			continue
		}
		if allowed := net.ParseIP(entry); allowed != nil && allowed.Equal(addr) {
			return true
		}
	}
	return false
}

func containsPermission(perms []Permission, perm Permission) bool {
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

type CreateAPIKeyInput struct {
	Name                string
	KeyHash             string
	KeyPrefix           string
	Permissions         []Permission
	ResourcePermissions []ResourcePermission
	ExpiresAt           *time.Time
	RateLimit           *int
	AllowedIPs          []string
	CreatedBy           uuid.UUID
}

// Validate checks the shape of the grant. Resource names are checked
// against the permission table by the caller.
func (in *CreateAPIKeyInput) Validate() error {
	if in.Name == "" {
		return errors.New(errNameRequired)
	}
	if len(in.Permissions) == 0 && len(in.ResourcePermissions) == 0 {
		return errors.New(errGrantRequired)
	}
	for _, p := range in.Permissions {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	seen := make(map[rbac.Resource]bool, len(in.ResourcePermissions))
	for _, rp := range in.ResourcePermissions {
		if rp.Resource == "" {
			return errors.New(errResourceRequired)
		}
		if seen[rp.Resource] {
			return fmt.Errorf(errDuplicateResourceFmt, rp.Resource)
		}
		seen[rp.Resource] = true
		if len(rp.Actions) == 0 {
			return fmt.Errorf(errResourceActionsRequiredFmt, rp.Resource)
		}
		for _, p := range rp.Actions {
			if err := p.ValidateScoped(); err != nil {
				return err
			}
		}
	}
	if in.RateLimit != nil && *in.RateLimit <= 0 {
		return fmt.Errorf(errRateLimitFmt, *in.RateLimit)
	}
	for _, entry := range in.AllowedIPs {
		if _, _, err := net.ParseCIDR(entry); err == nil {
			continue
		}
		if net.ParseIP(entry) == nil {
			return fmt.Errorf(errInvalidAllowedIPFmt, entry)
		}
	}
	return nil
}

type RevokeAPIKeyInput struct {
	ID        uuid.UUID
	RevokedBy uuid.UUID
}

// ParseExpiry parses a calendar date (midnight UTC) or an RFC 3339 timestamp.
// An empty string means the key never expires.
func ParseExpiry(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf(errInvalidExpiryFmt, s)
	}
	return &t, nil
}
