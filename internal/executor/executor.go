package executor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"crm-service/internal/authz"
	"crm-service/internal/domain/apikey"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultFailureRate is the probability of an injected backend fault
	DefaultFailureRate = 0.05

	tracerName = "crm-service/executor"
	spanName   = "executor.Execute"
)

// Response is what the simulated backend answers
type Response struct {
	StatusCode int           `json:"statusCode"`
	Outcome    authz.Outcome `json:"outcome"`
}

// Observer receives every outcome the executor produces
type Observer interface {
	ObserveOutcome(outcome string)
}

// Executor answers requests the way a real backend would: key validity,
// then permission, then a random transient fault. The first two steps are the
// engine's own decision so the executor can never disagree with it on policy.
type Executor struct {
	engine      *authz.Engine
	failureRate float64
	minLatency  time.Duration
	maxLatency  time.Duration

	mu  sync.Mutex
	rng *rand.Rand

	tracer   trace.Tracer
	observer Observer
	logger   *zap.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithFailureRate sets the injected fault probability, clamped to [0, 1]
func WithFailureRate(rate float64) Option {
	return func(x *Executor) {
		switch {
		case rate < 0:
			rate = 0
		case rate > 1:
			rate = 1
		}
		x.failureRate = rate
	}
}

// WithLatency sets the simulated network delay range
func WithLatency(lo, hi time.Duration) Option {
	return func(x *Executor) {
		if hi < lo {
			hi = lo
		}
		x.minLatency = lo
		x.maxLatency = hi
	}
}

// WithRandSource replaces the random source used for latency and fault draws
func WithRandSource(src rand.Source) Option {
	return func(x *Executor) {
		x.rng = rand.New(src)
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(x *Executor) {
		x.tracer = tp.Tracer(tracerName)
	}
}

func WithObserver(o Observer) Option {
	return func(x *Executor) {
		x.observer = o
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(x *Executor) {
		x.logger = l
	}
}

func New(engine *authz.Engine, opts ...Option) *Executor {
	x := &Executor{
		engine:      engine,
		failureRate: DefaultFailureRate,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		tracer:      otel.Tracer(tracerName),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Execute simulates scenario against the backend using key. The only error
// returned is the context's, when the caller stops waiting during the
// simulated latency; nothing needs to be cleaned up in that case.
func (x *Executor) Execute(ctx context.Context, key *apikey.APIKey, scenario authz.Scenario) (Response, error) {
	ctx, span := x.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("scenario.id", scenario.ID),
		attribute.String("scenario.resource", string(scenario.Resource)),
		attribute.String("scenario.permission", string(scenario.RequiredPermission)),
	))
	defer span.End()

	if err := wait(ctx, x.latency()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}

	resp := x.respond(key, scenario)

	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.String("outcome", string(resp.Outcome)),
	)
	if resp.Outcome == authz.OutcomeError {
		span.SetStatus(codes.Error, "injected transient fault")
	}
	if x.observer != nil {
		x.observer.ObserveOutcome(string(resp.Outcome))
	}
	x.logger.Debug("simulated request",
		zap.String("scenario", scenario.ID),
		zap.String("outcome", string(resp.Outcome)),
		zap.Int("status", resp.StatusCode),
	)
	return resp, nil
}

func (x *Executor) respond(key *apikey.APIKey, scenario authz.Scenario) Response {
	if d := x.engine.Decide(key, scenario.Resource, scenario.RequiredPermission); !d.Allowed() {
		return Response{StatusCode: d.Outcome.StatusCode(), Outcome: d.Outcome}
	}
	if x.draw() < x.failureRate {
		return Response{StatusCode: authz.OutcomeError.StatusCode(), Outcome: authz.OutcomeError}
	}
	return Response{StatusCode: authz.OutcomeSuccess.StatusCode(), Outcome: authz.OutcomeSuccess}
}

func (x *Executor) draw() float64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.rng.Float64()
}

func (x *Executor) latency() time.Duration {
	spread := x.maxLatency - x.minLatency
	if spread <= 0 {
		return x.minLatency
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.minLatency + time.Duration(x.rng.Int63n(int64(spread)+1))
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
