package kv

import (
	"context"
	"errors"

	"crm-service/internal/domain/user"
	"crm-service/internal/kvstore"
	"crm-service/internal/repository"
	apperrors "crm-service/pkg/errors"
)

// SessionRepository stores one session record per user under "auth-session-<userId>"
type SessionRepository struct {
	store kvstore.Store
}

func NewSessionRepository(store kvstore.Store) *SessionRepository {
	return &SessionRepository{store: store}
}

func (r *SessionRepository) Get(ctx context.Context, userID string) (*user.Session, error) {
	key := repository.SessionKey(userID)
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, apperrors.NotFound(errSessionNotFound)
	}
	if err != nil {
		return nil, errFailedLoad(key, err)
	}
	s, err := decodeSession(raw)
	if err != nil {
		return nil, errFailedLoad(key, err)
	}
	return s, nil
}

func (r *SessionRepository) Put(ctx context.Context, s user.Session) error {
	key := repository.SessionKey(s.UserID)
	if err := kvstore.SetJSON(ctx, r.store, key, s); err != nil {
		return errFailedUpdate(key, err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, userID string) error {
	key := repository.SessionKey(userID)
	if err := r.store.Delete(ctx, key); err != nil {
		return errFailedUpdate(key, err)
	}
	return nil
}
