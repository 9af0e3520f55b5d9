package authz

import (
	"time"

	"crm-service/internal/domain/apikey"
	"crm-service/internal/rbac"
)

// Engine computes the authorization outcome of a request made with an API key.
// It holds no mutable state; the clock is the only input besides its arguments.
type Engine struct {
	now func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the wall clock used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckKey validates the key itself. Validity is always decided before any
// permission check.
func (e *Engine) CheckKey(key *apikey.APIKey) Decision {
	if key == nil {
		return Decision{Outcome: OutcomeUnauthorized, Reason: ReasonMissingKey}
	}
	switch key.Status(e.now()) {
	case apikey.StatusRevoked:
		return Decision{Outcome: OutcomeUnauthorized, Reason: ReasonKeyInactive}
	case apikey.StatusExpired:
		return Decision{Outcome: OutcomeUnauthorized, Reason: ReasonKeyExpired}
	default:
		return Decision{Outcome: OutcomeSuccess, Reason: ReasonGranted}
	}
}

// HasKeyPermission reports whether the key grants perm on resource
func (e *Engine) HasKeyPermission(key *apikey.APIKey, resource rbac.Resource, perm apikey.Permission) bool {
	if key == nil {
		return false
	}
	return key.HasPermission(resource, perm)
}

// Decide runs the validity check followed by the permission check
func (e *Engine) Decide(key *apikey.APIKey, resource rbac.Resource, perm apikey.Permission) Decision {
	if d := e.CheckKey(key); !d.Allowed() {
		return d
	}
	if e.HasKeyPermission(key, resource, perm) {
		return Decision{Outcome: OutcomeSuccess, Reason: ReasonGranted}
	}
	if len(key.ResourcePermissions) > 0 && !grantsResource(key, resource) {
		return Decision{Outcome: OutcomeForbidden, Reason: ReasonResourceNotGranted}
	}
	return Decision{Outcome: OutcomeForbidden, Reason: ReasonPermissionMissing}
}

// ExpectedOutcome is the outcome a correct backend must produce for scenario
func (e *Engine) ExpectedOutcome(key *apikey.APIKey, scenario Scenario) Outcome {
	return e.Decide(key, scenario.Resource, scenario.RequiredPermission).Outcome
}

func grantsResource(key *apikey.APIKey, resource rbac.Resource) bool {
	for _, rp := range key.ResourcePermissions {
		if rp.Resource == resource {
			return true
		}
	}
	return false
}
