package app

import (
	"context"
	"errors"
	"fmt"

	"crm-service/internal/config"
	"crm-service/internal/domain/user"
	"crm-service/internal/rbac/presets"
	apperrors "crm-service/pkg/errors"
	"crm-service/pkg/password"
	"crm-service/pkg/validator"

	"go.uber.org/zap"
)

const (
	errBootstrapLookupFmt  = "bootstrap admin: lookup: %w"
	errBootstrapInvalidFmt = "bootstrap admin: %w"
	errBootstrapHashFmt    = "bootstrap admin: hash password: %w"
	errBootstrapCreateFmt  = "bootstrap admin: create user: %w"
	errBootstrapMemberFmt  = "bootstrap admin: add member: %w"
)

type bootstrapUsers interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Create(ctx context.Context, input user.CreateUserInput) (*user.User, error)
}

type bootstrapMembers interface {
	Add(ctx context.Context, m user.Member) (*user.Member, error)
}

// ensureBootstrapAdmin creates the configured admin account and its team
// entry unless a user with that email already exists.
func ensureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig, users bootstrapUsers, members bootstrapMembers, log *zap.Logger) error {
	if cfg.Email == "" {
		return nil
	}

	existing, err := users.GetByEmail(ctx, cfg.Email)
	if err == nil {
		log.Debug("bootstrap admin already present", zap.String("user_id", existing.ID.String()))
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf(errBootstrapLookupFmt, err)
	}

	if err := validator.Email(cfg.Email); err != nil {
		return fmt.Errorf(errBootstrapInvalidFmt, err)
	}
	if err := validator.Password(cfg.Password); err != nil {
		return fmt.Errorf(errBootstrapInvalidFmt, err)
	}

	hash, err := password.Hash(cfg.Password)
	if err != nil {
		return fmt.Errorf(errBootstrapHashFmt, err)
	}

	u, err := users.Create(ctx, user.CreateUserInput{
		Email:        cfg.Email,
		Name:         cfg.Name,
		PasswordHash: hash,
		Role:         presets.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf(errBootstrapCreateFmt, err)
	}

	userID := u.ID
	_, err = members.Add(ctx, user.Member{
		UserID: &userID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   presets.RoleAdmin,
		Status: user.MemberActive,
	})
	if err != nil && !errors.Is(err, apperrors.ErrConflict) {
		return fmt.Errorf(errBootstrapMemberFmt, err)
	}

	log.Info("bootstrap admin created", zap.String("user_id", u.ID.String()), zap.String("email", u.Email))
	return nil
}
