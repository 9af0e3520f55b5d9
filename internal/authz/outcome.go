package authz

import "net/http"

// Outcome is the result class of an API request against a key
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeForbidden    Outcome = "forbidden"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeError        Outcome = "error"
)

// IsPolicy reports whether the outcome is one the authorization decision can
// produce. OutcomeError only comes from the execution path.
func (o Outcome) IsPolicy() bool {
	switch o {
	case OutcomeSuccess, OutcomeForbidden, OutcomeUnauthorized:
		return true
	default:
		return false
	}
}

// StatusCode returns the HTTP status a backend answers with for the outcome
func (o Outcome) StatusCode() int {
	switch o {
	case OutcomeSuccess:
		return http.StatusOK
	case OutcomeForbidden:
		return http.StatusForbidden
	case OutcomeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Reason explains a decision
type Reason string

const (
	ReasonGranted            Reason = "granted"
	ReasonMissingKey         Reason = "key_missing"
	ReasonKeyInactive        Reason = "key_inactive"
	ReasonKeyExpired         Reason = "key_expired"
	ReasonResourceNotGranted Reason = "resource_not_granted"
	ReasonPermissionMissing  Reason = "permission_missing"
)

// Decision is an authorization outcome together with the reason for it
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Reason  Reason  `json:"reason"`
}

// Allowed reports whether the decision permits the request
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeSuccess
}
