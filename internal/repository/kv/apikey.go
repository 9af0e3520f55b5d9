package kv

import (
	"context"
	"errors"
	"sort"
	"time"

	"crm-service/internal/domain/apikey"
	"crm-service/internal/kvstore"
	"crm-service/internal/repository"
	apperrors "crm-service/pkg/errors"

	"github.com/google/uuid"
)

// APIKeyRepository keeps every key in one JSON array under "api-keys"
type APIKeyRepository struct {
	store kvstore.Store
	now   func() time.Time
}

func NewAPIKeyRepository(store kvstore.Store) *APIKeyRepository {
	return &APIKeyRepository{store: store, now: time.Now}
}

func (r *APIKeyRepository) load(ctx context.Context) ([]apikey.APIKey, error) {
	keys, err := kvstore.GetJSON(ctx, r.store, repository.KeyAPIKeys, []apikey.APIKey{})
	if err != nil {
		return nil, errFailedLoad(repository.KeyAPIKeys, err)
	}
	return keys, nil
}

func (r *APIKeyRepository) update(ctx context.Context, fn func([]apikey.APIKey) ([]apikey.APIKey, error)) error {
	err := kvstore.UpdateJSON(ctx, r.store, repository.KeyAPIKeys, []apikey.APIKey{}, fn)
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return errFailedUpdate(repository.KeyAPIKeys, err)
}

func (r *APIKeyRepository) Create(ctx context.Context, input apikey.CreateAPIKeyInput) (*apikey.APIKey, error) {
	k := apikey.APIKey{
		ID:                  uuid.New(),
		Name:                input.Name,
		KeyHash:             input.KeyHash,
		KeyPrefix:           input.KeyPrefix,
		Active:              true,
		Permissions:         input.Permissions,
		ResourcePermissions: input.ResourcePermissions,
		ExpiresAt:           input.ExpiresAt,
		RateLimit:           input.RateLimit,
		AllowedIPs:          input.AllowedIPs,
		CreatedBy:           input.CreatedBy,
		CreatedAt:           r.now().UTC(),
	}
	if k.Permissions == nil {
		k.Permissions = []apikey.Permission{}
	}

	err := r.update(ctx, func(keys []apikey.APIKey) ([]apikey.APIKey, error) {
		for _, existing := range keys {
			if existing.KeyHash == k.KeyHash {
				return nil, apperrors.Conflict(errAPIKeyConflict)
			}
		}
		return append(keys, k), nil
	})
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	return r.find(ctx, func(k *apikey.APIKey) bool { return k.ID == id })
}

func (r *APIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*apikey.APIKey, error) {
	return r.find(ctx, func(k *apikey.APIKey) bool { return k.KeyHash == keyHash })
}

func (r *APIKeyRepository) find(ctx context.Context, match func(*apikey.APIKey) bool) (*apikey.APIKey, error) {
	keys, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		if match(&keys[i]) {
			k := keys[i]
			return &k, nil
		}
	}
	return nil, apperrors.NotFound(errAPIKeyNotFound)
}

// List returns every key, newest first
func (r *APIKeyRepository) List(ctx context.Context) ([]*apikey.APIKey, error) {
	keys, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*apikey.APIKey, 0, len(keys))
	for i := range keys {
		out = append(out, &keys[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Revoke deactivates a key. Revoking an already revoked key keeps the
// original revocation details.
func (r *APIKeyRepository) Revoke(ctx context.Context, input apikey.RevokeAPIKeyInput) (*apikey.APIKey, error) {
	var revoked apikey.APIKey
	err := r.update(ctx, func(keys []apikey.APIKey) ([]apikey.APIKey, error) {
		for i := range keys {
			if keys[i].ID != input.ID {
				continue
			}
			if keys[i].Active {
				at := r.now().UTC()
				by := input.RevokedBy
				keys[i].Active = false
				keys[i].RevokedAt = &at
				keys[i].RevokedBy = &by
			}
			revoked = keys[i]
			return keys, nil
		}
		return nil, apperrors.NotFound(errAPIKeyNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &revoked, nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, func(keys []apikey.APIKey) ([]apikey.APIKey, error) {
		for i := range keys {
			if keys[i].ID == id {
				return append(keys[:i], keys[i+1:]...), nil
			}
		}
		return nil, apperrors.NotFound(errAPIKeyNotFound)
	})
}

func (r *APIKeyRepository) RecordUsage(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, func(keys []apikey.APIKey) ([]apikey.APIKey, error) {
		for i := range keys {
			if keys[i].ID == id {
				used := at.UTC()
				keys[i].LastUsedAt = &used
				keys[i].UsageCount++
				return keys, nil
			}
		}
		return nil, apperrors.NotFound(errAPIKeyNotFound)
	})
}
