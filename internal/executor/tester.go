package executor

import (
	"context"
	"fmt"
	"time"

	"crm-service/internal/authz"
	"crm-service/internal/domain/apikey"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 4
	errRunScenarioFmt  = "run scenario %s: %w"
)

// ComparisonObserver receives every verdict a Tester produces
type ComparisonObserver interface {
	ObserveComparison(authorizationMismatch, transientFailure bool)
}

// Tester runs scenarios against the executor and compares each answer with
// the engine's expected outcome.
type Tester struct {
	engine      *authz.Engine
	executor    *Executor
	concurrency int
	now         func() time.Time
	observer    ComparisonObserver
	logger      *zap.Logger
}

// TesterOption configures a Tester
type TesterOption func(*Tester)

func WithConcurrency(n int) TesterOption {
	return func(t *Tester) {
		if n > 0 {
			t.concurrency = n
		}
	}
}

func WithTesterClock(now func() time.Time) TesterOption {
	return func(t *Tester) {
		t.now = now
	}
}

func WithComparisonObserver(o ComparisonObserver) TesterOption {
	return func(t *Tester) {
		t.observer = o
	}
}

func WithTesterLogger(l *zap.Logger) TesterOption {
	return func(t *Tester) {
		t.logger = l
	}
}

func NewTester(engine *authz.Engine, executor *Executor, opts ...TesterOption) *Tester {
	t := &Tester{
		engine:      engine,
		executor:    executor,
		concurrency: defaultConcurrency,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RunScenario executes one scenario and compares it with the expectation
func (t *Tester) RunScenario(ctx context.Context, key *apikey.APIKey, scenario authz.Scenario) (TestResult, error) {
	expected := t.engine.ExpectedOutcome(key, scenario)

	started := t.now()
	resp, err := t.executor.Execute(ctx, key, scenario)
	if err != nil {
		return TestResult{}, fmt.Errorf(errRunScenarioFmt, scenario.ID, err)
	}

	result := TestResult{
		ScenarioID:   scenario.ID,
		ScenarioName: scenario.Name,
		Method:       scenario.Method,
		Endpoint:     scenario.Endpoint,
		Expected:     expected,
		Actual:       resp.Outcome,
		StatusCode:   resp.StatusCode,
		Verdict:      Compare(expected, resp.Outcome),
		Duration:     t.now().Sub(started),
		ExecutedAt:   started,
	}
	if key != nil {
		result.KeyID = key.ID
		result.KeyName = key.Name
	}

	if t.observer != nil {
		t.observer.ObserveComparison(result.AuthorizationMismatch, result.TransientFailure)
	}
	if result.AuthorizationMismatch {
		t.logger.Warn("authorization mismatch",
			zap.String("scenario", scenario.ID),
			zap.String("expected", string(expected)),
			zap.String("actual", string(resp.Outcome)),
		)
	}
	return result, nil
}

// Run executes every scenario concurrently and returns the results in
// scenario order. A cancelled context aborts the run.
func (t *Tester) Run(ctx context.Context, key *apikey.APIKey, scenarios []authz.Scenario) (*Report, error) {
	report := &Report{
		StartedAt: t.now(),
		Results:   make([]TestResult, len(scenarios)),
	}
	if key != nil {
		report.KeyID = key.ID
		report.KeyName = key.Name
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			res, err := t.RunScenario(gctx, key, sc)
			if err != nil {
				return err
			}
			report.Results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.FinishedAt = t.now()
	summarize(report)
	return report, nil
}
