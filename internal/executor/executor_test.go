package executor_test

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	"crm-service/internal/authz"
	"crm-service/internal/domain/apikey"
	"crm-service/internal/executor"
	"crm-service/internal/rbac/presets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newEngine() *authz.Engine {
	return authz.NewEngine(authz.WithClock(func() time.Time { return fixedNow }))
}

func sampleKeys() map[string]*apikey.APIKey {
	past := fixedNow.AddDate(-1, 0, 0)
	future := fixedNow.AddDate(1, 0, 0)
	all := []apikey.Permission{apikey.PermissionRead, apikey.PermissionWrite, apikey.PermissionDelete, apikey.PermissionAdmin}

	return map[string]*apikey.APIKey{
		"full":          {Active: true, Permissions: all},
		"read-only":     {Active: true, Permissions: []apikey.Permission{apikey.PermissionRead}},
		"future-expiry": {Active: true, ExpiresAt: &future, Permissions: all},
		"expired":       {Active: true, ExpiresAt: &past, Permissions: all},
		"revoked":       {Active: false, Permissions: all},
		"scoped-deals": {Active: true, Permissions: all, ResourcePermissions: []apikey.ResourcePermission{
			{Resource: presets.ResourceDeals, Actions: []apikey.Permission{apikey.PermissionRead, apikey.PermissionWrite}},
		}},
		"no-grants": {Active: true},
	}
}

type outcomeCounter struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *outcomeCounter) ObserveOutcome(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = make(map[string]int)
	}
	c.outcomes[outcome]++
}

// ============================================================================
// Execute Tests
// ============================================================================

func TestExecute_AgreesWithEngineWithoutFaults(t *testing.T) {
	engine := newEngine()
	x := executor.New(engine, executor.WithFailureRate(0))

	for name, key := range sampleKeys() {
		for _, sc := range authz.Scenarios() {
			resp, err := x.Execute(context.Background(), key, sc)
			require.NoError(t, err)

			expected := engine.ExpectedOutcome(key, sc)
			assert.Equal(t, expected, resp.Outcome, "%s / %s", name, sc.ID)
			assert.Equal(t, expected.StatusCode(), resp.StatusCode, "%s / %s", name, sc.ID)
		}
	}
}

func TestExecute_StatusCodes(t *testing.T) {
	x := executor.New(newEngine(), executor.WithFailureRate(0))
	keys := sampleKeys()
	list, _ := authz.ScenarioByID("list-contacts")
	create, _ := authz.ScenarioByID("create-contact")

	tests := []struct {
		name     string
		key      *apikey.APIKey
		scenario authz.Scenario
		status   int
		outcome  authz.Outcome
	}{
		{"revoked key", keys["revoked"], list, http.StatusUnauthorized, authz.OutcomeUnauthorized},
		{"expired key", keys["expired"], list, http.StatusUnauthorized, authz.OutcomeUnauthorized},
		{"nil key", nil, list, http.StatusUnauthorized, authz.OutcomeUnauthorized},
		{"missing permission", keys["read-only"], create, http.StatusForbidden, authz.OutcomeForbidden},
		{"scoped key outside scope", keys["scoped-deals"], list, http.StatusForbidden, authz.OutcomeForbidden},
		{"granted", keys["full"], create, http.StatusOK, authz.OutcomeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := x.Execute(context.Background(), tt.key, tt.scenario)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.outcome, resp.Outcome)
		})
	}
}

func TestExecute_FaultsOnlyAfterPolicyChecks(t *testing.T) {
	engine := newEngine()
	x := executor.New(engine, executor.WithFailureRate(1))

	for name, key := range sampleKeys() {
		for _, sc := range authz.Scenarios() {
			resp, err := x.Execute(context.Background(), key, sc)
			require.NoError(t, err)

			expected := engine.ExpectedOutcome(key, sc)
			if expected == authz.OutcomeSuccess {
				assert.Equal(t, authz.OutcomeError, resp.Outcome, "%s / %s", name, sc.ID)
				assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			} else {
				assert.Equal(t, expected, resp.Outcome, "%s / %s", name, sc.ID)
			}
		}
	}
}

func TestExecute_FaultRateIsApproximatelyHonoured(t *testing.T) {
	x := executor.New(newEngine(),
		executor.WithFailureRate(executor.DefaultFailureRate),
		executor.WithRandSource(rand.NewSource(42)),
	)
	key := sampleKeys()["full"]
	sc, _ := authz.ScenarioByID("list-deals")

	const runs = 2000
	faults := 0
	for i := 0; i < runs; i++ {
		resp, err := x.Execute(context.Background(), key, sc)
		require.NoError(t, err)
		if resp.Outcome == authz.OutcomeError {
			faults++
		}
	}

	assert.Greater(t, faults, 40)
	assert.Less(t, faults, 160)
}

func TestExecute_CancelledDuringLatency(t *testing.T) {
	x := executor.New(newEngine(), executor.WithLatency(time.Hour, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := x.Execute(ctx, sampleKeys()["full"], authz.Scenarios()[0])
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after cancellation")
	}
}

func TestExecute_WaitsForLatency(t *testing.T) {
	x := executor.New(newEngine(), executor.WithFailureRate(0), executor.WithLatency(20*time.Millisecond, 20*time.Millisecond))

	start := time.Now()
	_, err := x.Execute(context.Background(), sampleKeys()["full"], authz.Scenarios()[0])
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestExecute_ReportsToObserver(t *testing.T) {
	counter := &outcomeCounter{}
	x := executor.New(newEngine(), executor.WithFailureRate(0), executor.WithObserver(counter))
	keys := sampleKeys()
	sc, _ := authz.ScenarioByID("list-contacts")

	_, _ = x.Execute(context.Background(), keys["full"], sc)
	_, _ = x.Execute(context.Background(), keys["revoked"], sc)
	_, _ = x.Execute(context.Background(), keys["scoped-deals"], sc)

	assert.Equal(t, 1, counter.outcomes["success"])
	assert.Equal(t, 1, counter.outcomes["unauthorized"])
	assert.Equal(t, 1, counter.outcomes["forbidden"])
}

func TestExecute_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	x := executor.New(newEngine(), executor.WithFailureRate(0), executor.WithTracerProvider(tp))
	sc, _ := authz.ScenarioByID("delete-deal")

	_, err := x.Execute(context.Background(), sampleKeys()["read-only"], sc)
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "executor.Execute", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("outcome", "forbidden"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("scenario.id", "delete-deal"))
}

// ============================================================================
// Comparison Tests
// ============================================================================

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		expected authz.Outcome
		actual   authz.Outcome
		want     executor.Verdict
	}{
		{"match success", authz.OutcomeSuccess, authz.OutcomeSuccess, executor.Verdict{Success: true}},
		{"match forbidden", authz.OutcomeForbidden, authz.OutcomeForbidden, executor.Verdict{Success: true}},
		{"transient fault", authz.OutcomeSuccess, authz.OutcomeError, executor.Verdict{TransientFailure: true}},
		{"policy regression", authz.OutcomeForbidden, authz.OutcomeSuccess, executor.Verdict{AuthorizationMismatch: true}},
		{"auth confusion", authz.OutcomeUnauthorized, authz.OutcomeForbidden, executor.Verdict{AuthorizationMismatch: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, executor.Compare(tt.expected, tt.actual))
		})
	}
}
