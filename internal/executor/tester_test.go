package executor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"crm-service/internal/authz"
	"crm-service/internal/executor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type comparisonCounter struct {
	mu         sync.Mutex
	mismatches int
	transient  int
	total      int
}

func (c *comparisonCounter) ObserveComparison(mismatch, transient bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	if mismatch {
		c.mismatches++
	}
	if transient {
		c.transient++
	}
}

func TestTester_RunWithoutFaults(t *testing.T) {
	engine := newEngine()
	x := executor.New(engine, executor.WithFailureRate(0))
	tester := executor.NewTester(engine, x, executor.WithConcurrency(3))
	scenarios := authz.Scenarios()

	key := sampleKeys()["read-only"]
	report, err := tester.Run(context.Background(), key, scenarios)
	require.NoError(t, err)

	assert.Equal(t, len(scenarios), report.Total)
	assert.Equal(t, len(scenarios), report.Passed)
	assert.Zero(t, report.AuthorizationMismatches)
	assert.Zero(t, report.TransientFailures)
	assert.Zero(t, report.ErrorRate)
	assert.True(t, report.AuthorizationCorrect())

	for i, res := range report.Results {
		assert.Equal(t, scenarios[i].ID, res.ScenarioID, "results keep scenario order")
		assert.Equal(t, engine.ExpectedOutcome(key, scenarios[i]), res.Expected)
		assert.True(t, res.Success)
	}
}

func TestTester_TransientFaultsAreNotAuthorizationMismatches(t *testing.T) {
	engine := newEngine()
	x := executor.New(engine, executor.WithFailureRate(1))
	counter := &comparisonCounter{}
	tester := executor.NewTester(engine, x, executor.WithComparisonObserver(counter))
	scenarios := authz.Scenarios()

	report, err := tester.Run(context.Background(), sampleKeys()["full"], scenarios)
	require.NoError(t, err)

	assert.Equal(t, len(scenarios), report.TransientFailures)
	assert.Zero(t, report.AuthorizationMismatches)
	assert.Zero(t, report.Passed)
	assert.InDelta(t, 1.0, report.ErrorRate, 1e-9)
	assert.True(t, report.AuthorizationCorrect())

	assert.Equal(t, len(scenarios), counter.total)
	assert.Equal(t, len(scenarios), counter.transient)
	assert.Zero(t, counter.mismatches)
}

func TestTester_RevokedKeyNeverFlakes(t *testing.T) {
	engine := newEngine()
	x := executor.New(engine, executor.WithFailureRate(1))
	tester := executor.NewTester(engine, x)

	report, err := tester.Run(context.Background(), sampleKeys()["revoked"], authz.Scenarios())
	require.NoError(t, err)

	assert.Equal(t, report.Total, report.Passed)
	assert.Zero(t, report.TransientFailures)
	for _, res := range report.Results {
		assert.Equal(t, authz.OutcomeUnauthorized, res.Actual)
	}
}

func TestTester_CancelledRun(t *testing.T) {
	engine := newEngine()
	x := executor.New(engine, executor.WithLatency(time.Hour, time.Hour))
	tester := executor.NewTester(engine, x)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := tester.Run(ctx, sampleKeys()["full"], authz.Scenarios())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTester_RunScenarioCarriesKeyIdentity(t *testing.T) {
	engine := newEngine()
	x := executor.New(engine, executor.WithFailureRate(0))
	tester := executor.NewTester(engine, x, executor.WithTesterClock(func() time.Time { return fixedNow }))

	key := sampleKeys()["full"]
	key.Name = "zapier"
	res, err := tester.RunScenario(context.Background(), key, authz.Scenarios()[0])
	require.NoError(t, err)

	assert.Equal(t, "zapier", res.KeyName)
	assert.Equal(t, fixedNow, res.ExecutedAt)
	assert.Zero(t, res.Duration)
}
