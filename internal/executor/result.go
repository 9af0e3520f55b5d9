package executor

import (
	"time"

	"crm-service/internal/authz"

	"github.com/google/uuid"
)

// Verdict compares an actual outcome against the expected one. Success is the
// plain equality; the two other signals separate policy regressions from
// backend flakiness.
type Verdict struct {
	Success               bool `json:"success"`
	AuthorizationMismatch bool `json:"authorizationMismatch"`
	TransientFailure      bool `json:"transientFailure"`
}

// Compare builds the verdict for one execution
func Compare(expected, actual authz.Outcome) Verdict {
	return Verdict{
		Success:               actual == expected,
		AuthorizationMismatch: actual.IsPolicy() && actual != expected,
		TransientFailure:      actual == authz.OutcomeError,
	}
}

// TestResult pairs a scenario run with its expectation
type TestResult struct {
	ScenarioID   string        `json:"scenarioId"`
	ScenarioName string        `json:"scenarioName"`
	Method       string        `json:"method"`
	Endpoint     string        `json:"endpoint"`
	KeyID        uuid.UUID     `json:"keyId"`
	KeyName      string        `json:"keyName"`
	Expected     authz.Outcome `json:"expectedOutcome"`
	Actual       authz.Outcome `json:"actualOutcome"`
	StatusCode   int           `json:"statusCode"`
	Verdict
	Duration   time.Duration `json:"durationNs"`
	ExecutedAt time.Time     `json:"executedAt"`
}

// Report summarises a suite run. Authorization correctness and execution
// reliability are reported independently.
type Report struct {
	KeyID                   uuid.UUID    `json:"keyId"`
	KeyName                 string       `json:"keyName"`
	Total                   int          `json:"total"`
	Passed                  int          `json:"passed"`
	AuthorizationMismatches int          `json:"authorizationMismatches"`
	TransientFailures       int          `json:"transientFailures"`
	ErrorRate               float64      `json:"errorRate"`
	StartedAt               time.Time    `json:"startedAt"`
	FinishedAt              time.Time    `json:"finishedAt"`
	Results                 []TestResult `json:"results"`
}

// AuthorizationCorrect reports whether no result disagreed on policy
func (r *Report) AuthorizationCorrect() bool {
	return r.AuthorizationMismatches == 0
}

func summarize(r *Report) {
	r.Total = len(r.Results)
	r.Passed, r.AuthorizationMismatches, r.TransientFailures = 0, 0, 0
	for _, res := range r.Results {
		if res.Success {
			r.Passed++
		}
		if res.AuthorizationMismatch {
			r.AuthorizationMismatches++
		}
		if res.TransientFailure {
			r.TransientFailures++
		}
	}
	r.ErrorRate = 0
	if r.Total > 0 {
		r.ErrorRate = float64(r.TransientFailures) / float64(r.Total)
	}
}
