package kv

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"crm-service/internal/domain/user"
	"crm-service/internal/kvstore"
	"crm-service/internal/rbac"
	"crm-service/internal/repository"
	apperrors "crm-service/pkg/errors"

	"github.com/google/uuid"
)

// UserRepository keeps the auth directory under "auth-users"
type UserRepository struct {
	store kvstore.Store
	now   func() time.Time
}

func NewUserRepository(store kvstore.Store) *UserRepository {
	return &UserRepository{store: store, now: time.Now}
}

func (r *UserRepository) load(ctx context.Context) ([]user.User, error) {
	users, err := kvstore.GetJSON(ctx, r.store, repository.KeyAuthUsers, []user.User{})
	if err != nil {
		return nil, errFailedLoad(repository.KeyAuthUsers, err)
	}
	return users, nil
}

func (r *UserRepository) update(ctx context.Context, fn func([]user.User) ([]user.User, error)) error {
	err := kvstore.UpdateJSON(ctx, r.store, repository.KeyAuthUsers, []user.User{}, fn)
	if err == nil || errors.Is(err, apperrors.ErrEmailExists) {
		return err
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return errFailedUpdate(repository.KeyAuthUsers, err)
}

func (r *UserRepository) Create(ctx context.Context, input user.CreateUserInput) (*user.User, error) {
	now := r.now().UTC()
	u := user.User{
		ID:           uuid.New(),
		Email:        normalizeEmail(input.Email),
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := r.update(ctx, func(users []user.User) ([]user.User, error) {
		for _, existing := range users {
			if existing.Email == u.Email {
				return nil, apperrors.ErrEmailExists
			}
		}
		return append(users, u), nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.find(ctx, func(u *user.User) bool { return u.ID == id })
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	email = normalizeEmail(email)
	return r.find(ctx, func(u *user.User) bool { return u.Email == email })
}

func (r *UserRepository) find(ctx context.Context, match func(*user.User) bool) (*user.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if match(&users[i]) {
			u := users[i]
			return &u, nil
		}
	}
	return nil, apperrors.NotFound(errUserNotFound)
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*user.User, 0, len(users))
	for i := range users {
		out = append(out, &users[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role rbac.Role) error {
	return r.update(ctx, func(users []user.User) ([]user.User, error) {
		for i := range users {
			if users[i].ID == id {
				users[i].Role = role
				users[i].UpdatedAt = r.now().UTC()
				return users, nil
			}
		}
		return nil, apperrors.NotFound(errUserNotFound)
	})
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, func(users []user.User) ([]user.User, error) {
		for i := range users {
			if users[i].ID == id {
				return append(users[:i], users[i+1:]...), nil
			}
		}
		return nil, apperrors.NotFound(errUserNotFound)
	})
}

// UserExists reports whether userID names a user of the directory.
// Malformed ids simply do not exist.
func (r *UserRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}
	_, err = r.GetByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
