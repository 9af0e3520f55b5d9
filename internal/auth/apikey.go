package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm-service/internal/domain/apikey"
	"crm-service/internal/repository"
	apperrors "crm-service/pkg/errors"
	"crm-service/pkg/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KeyIDCache remembers which key id a secret hash belongs to
type KeyIDCache interface {
	Get(hash string) (uuid.UUID, bool)
	Set(hash string, id uuid.UUID)
	Delete(hash string) error
}

// APIKeyService owns the key lifecycle: issuing secrets, resolving a
// presented secret to its key record, revocation and deletion.
type APIKeyService struct {
	repo   repository.APIKeyRepository
	hasher *KeyHasher
	cache  KeyIDCache
	log    *zap.Logger
	now    func() time.Time
}

type APIKeyServiceOption func(*APIKeyService)

func WithKeyCache(cache KeyIDCache) APIKeyServiceOption {
	return func(s *APIKeyService) { s.cache = cache }
}

func WithKeyServiceLogger(log *zap.Logger) APIKeyServiceOption {
	return func(s *APIKeyService) { s.log = log }
}

func WithKeyServiceClock(now func() time.Time) APIKeyServiceOption {
	return func(s *APIKeyService) { s.now = now }
}

func NewAPIKeyService(repo repository.APIKeyRepository, hasher *KeyHasher, opts ...APIKeyServiceOption) *APIKeyService {
	s := &APIKeyService{
		repo:   repo,
		hasher: hasher,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssuedKey is a freshly created key together with its secret. The secret
// is not stored and cannot be shown again.
type IssuedKey struct {
	Key    *apikey.APIKey
	Secret string
}

// Create generates a secret, stores its hash and returns both. KeyHash and
// KeyPrefix of input are overwritten.
func (s *APIKeyService) Create(ctx context.Context, input apikey.CreateAPIKeyInput) (*IssuedKey, error) {
	secret, err := token.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf(errGenerateKeyFmt, err)
	}
	input.KeyHash = s.hasher.Hash(secret)
	input.KeyPrefix = token.ExtractPrefix(secret, token.DisplayPrefixLength)

	if err := input.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	key, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, fmt.Errorf(errCreateKeyFmt, err)
	}
	if s.cache != nil {
		s.cache.Set(key.KeyHash, key.ID)
	}
	return &IssuedKey{Key: key, Secret: secret}, nil
}

// Resolve maps a presented secret to its key record. Unknown or malformed
// secrets yield an Unauthorized error; validity (revoked, expired) is left
// to the caller.
func (s *APIKeyService) Resolve(ctx context.Context, secret string) (*apikey.APIKey, error) {
	if !token.LooksLikeAPIKey(secret) {
		s.hasher.Verify(secret, "")
		return nil, apperrors.Unauthorized(msgInvalidAPIKey)
	}

	hash := s.hasher.Hash(secret)
	if s.cache != nil {
		if id, ok := s.cache.Get(hash); ok {
			key, err := s.repo.GetByID(ctx, id)
			if err == nil && ConstantTimeCompareHashes(key.KeyHash, hash) {
				return key, nil
			}
			if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf(errResolveKeyFmt, err)
			}
			_ = s.cache.Delete(hash)
		}
	}

	key, err := s.repo.GetByHash(ctx, hash)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthorized(msgInvalidAPIKey)
	}
	if err != nil {
		return nil, fmt.Errorf(errResolveKeyFmt, err)
	}
	if s.cache != nil {
		s.cache.Set(hash, key.ID)
	}
	return key, nil
}

func (s *APIKeyService) List(ctx context.Context) ([]*apikey.APIKey, error) {
	return s.repo.List(ctx)
}

func (s *APIKeyService) Get(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	return s.repo.GetByID(ctx, id)
}

// Revoke deactivates a key permanently
func (s *APIKeyService) Revoke(ctx context.Context, id, revokedBy uuid.UUID) (*apikey.APIKey, error) {
	return s.repo.Revoke(ctx, apikey.RevokeAPIKeyInput{ID: id, RevokedBy: revokedBy})
}

// Delete removes the key and forgets its cached hash
func (s *APIKeyService) Delete(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	key, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Delete(key.KeyHash); err != nil {
			return nil, fmt.Errorf(errDeleteKeyFmt, err)
		}
	}
	return key, nil
}

// RecordUsage stamps the key as used now. Failures are logged, not returned.
func (s *APIKeyService) RecordUsage(ctx context.Context, id uuid.UUID) {
	if err := s.repo.RecordUsage(ctx, id, s.now()); err != nil {
		s.log.Warn("failed to record API key usage",
			zap.String("api_key_id", id.String()),
			zap.Error(err))
	}
}
