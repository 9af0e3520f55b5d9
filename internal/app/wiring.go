package app

import (
	"context"
	"fmt"

	"crm-service/internal/audit"
	"crm-service/internal/auth"
	"crm-service/internal/authz"
	"crm-service/internal/config"
	"crm-service/internal/executor"
	apphttp "crm-service/internal/http"
	"crm-service/internal/http/middleware"
	"crm-service/internal/infra/cache"
	"crm-service/internal/infra/postgres"
	"crm-service/internal/rbac"
	"crm-service/internal/rbac/presets"
	"crm-service/internal/repository/kv"
	"crm-service/internal/session"
	"crm-service/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	errRBACFmt        = "failed to build permission table: %w"
	errKeyCacheFmt    = "failed to create key cache: %w"
	errSessionsFmt    = "failed to create session manager: %w"
	errAuditPoolFmt   = "failed to open audit database: %w"
	errAuditSchemaFmt = "failed to prepare audit recorder: %w"
	errBootstrapFmt   = "failed to bootstrap admin: %w"
)

// New wires every component of the service from cfg. Resources opened here
// are released by Shutdown, or immediately when wiring fails.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (svc *Service, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{config: cfg, log: log}
	defer func() {
		if err != nil {
			s.closeResources()
		}
	}()

	checker, err := rbac.New(presets.CRM())
	if err != nil {
		return nil, fmt.Errorf(errRBACFmt, err)
	}

	store, storePool, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if storePool != nil {
		s.addCloser(closePool(storePool))
	}
	s.store = store
	s.addCloser(store.Close)

	userRepo := kv.NewUserRepository(store)
	memberRepo := kv.NewMemberRepository(store)
	keyRepo := kv.NewAPIKeyRepository(store)
	sessionRepo := kv.NewSessionRepository(store)

	recorder, err := s.auditRecorder(ctx, storePool)
	if err != nil {
		return nil, err
	}
	auditLogger := audit.NewLogger(recorder, log.Named("audit"))

	keyCache, err := cache.NewKeyCache(ctx, cfg.APIKeys.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf(errKeyCacheFmt, err)
	}
	s.keyCache = keyCache
	s.addCloser(keyCache.Close)

	sessions, err := session.NewManager(cfg.Session.Secret, sessionRepo, userRepo,
		session.WithTTL(cfg.Session.TTL),
		session.WithLogger(log.Named("session")),
	)
	if err != nil {
		return nil, fmt.Errorf(errSessionsFmt, err)
	}

	s.metrics = metrics.New()

	engine := authz.NewEngine()
	exec := executor.New(engine,
		executor.WithFailureRate(cfg.Simulator.FailureRate),
		executor.WithLatency(cfg.Simulator.LatencyMin, cfg.Simulator.LatencyMax),
		executor.WithObserver(s.metrics),
		executor.WithLogger(log.Named("executor")),
	)
	tester := executor.NewTester(engine, exec,
		executor.WithConcurrency(cfg.Simulator.Concurrency),
		executor.WithComparisonObserver(s.metrics),
		executor.WithTesterLogger(log.Named("tester")),
	)

	keyService := auth.NewAPIKeyService(keyRepo, auth.NewKeyHasher(cfg.APIKeys.Salt),
		auth.WithKeyCache(keyCache),
		auth.WithKeyServiceLogger(log.Named("apikeys")),
	)
	keyLimiter := middleware.NewKeyRateLimiter()
	authenticator := auth.NewAuthenticator(userRepo, sessions)

	if err := ensureBootstrapAdmin(ctx, cfg.Bootstrap, userRepo, memberRepo, log); err != nil {
		return nil, fmt.Errorf(errBootstrapFmt, err)
	}

	s.server = apphttp.NewServer(&apphttp.ServerDependencies{
		Config:     cfg,
		Logger:     log.Named("http"),
		Checker:    checker,
		Logins:     authenticator,
		Users:      userRepo,
		UserStore:  userRepo,
		Members:    memberRepo,
		Sessions:   sessions,
		APIKeys:    keyService,
		Tester:     tester,
		Executor:   exec,
		KeyLimiter: keyLimiter,
		AuthMiddleware: auth.NewMiddleware(sessions, keyService,
			auth.WithKeyLimiter(keyLimiter),
			auth.WithMiddlewareLogger(log.Named("auth")),
		),
		RBACMiddleware: auth.NewRBACMiddleware(checker, auditLogger),
		AuditLogger:    auditLogger,
		Metrics:        s.metrics,
	})

	return s, nil
}

// auditRecorder persists audit events to postgres when a database is
// available and falls back to the structured log otherwise.
func (s *Service) auditRecorder(ctx context.Context, storePool *pgxpool.Pool) (audit.Recorder, error) {
	pool := storePool
	if url := s.config.App.AuditDatabaseURL; url != "" {
		p, err := postgres.NewPool(ctx, postgres.Config{URL: url, MaxConns: s.config.Store.MaxConns})
		if err != nil {
			return nil, fmt.Errorf(errAuditPoolFmt, err)
		}
		s.addCloser(closePool(p))
		pool = p
	}
	if pool == nil {
		return audit.NewLogRecorder(s.log.Named("audit")), nil
	}

	recorder, err := audit.NewPostgresRecorder(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf(errAuditSchemaFmt, err)
	}
	return recorder, nil
}

func closePool(pool *pgxpool.Pool) func() error {
	return func() error {
		pool.Close()
		return nil
	}
}
