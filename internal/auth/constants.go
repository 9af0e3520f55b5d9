package auth

import (
	"time"

	"crm-service/internal/audit"
)

const (
	ContextKeyUserID   = audit.ContextKeyUserID
	ContextKeyAPIKeyID = audit.ContextKeyAPIKeyID
	ContextKeyIdentity = "identity"
	ContextKeyAuthType = "auth_type"
	ContextKeyAPIKey   = "api_key"

	headerAuthorization = "Authorization"
	HeaderAPIKey        = "X-API-Key"

	bearerScheme    = "bearer"
	authHeaderParts = 2

	jsonKeyStatus  = "status"
	jsonKeyOutcome = "outcome"
	jsonKeyError   = "error"

	outcomeRateLimited = "rate_limited"

	apiKeyUsageTimeout = 500 * time.Millisecond
)

const (
	msgMissingAuthorization = "missing authorization token"
	msgInvalidSession       = "invalid session"
	msgSessionExpired       = "session expired"
	msgMissingAPIKey        = "missing API key"
	msgInvalidAPIKey        = "invalid API key"
	msgAPIKeyNotUsable      = "API key revoked or expired"
	msgIPNotAllowed         = "client address not allowed for this API key"
	msgUserNotAuthenticated = "user not authenticated"
	msgAPIKeyNotInContext   = "API key not found in request"
	msgInvalidUserIDCtx     = "invalid user ID in context"
	msgPermissionDenied     = "insufficient permissions"
	msgRateLimited          = "rate limit exceeded for this API key"

	errResolveKeyFmt  = "failed to resolve API key: %w"
	errCreateKeyFmt   = "failed to create API key: %w"
	errGenerateKeyFmt = "failed to generate API key: %w"
	errDeleteKeyFmt   = "failed to delete API key: %w"
)
