package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"sync"
	"time"

	"crm-service/internal/config"
	apphttp "crm-service/internal/http"
	"crm-service/internal/infra/cache"
	"crm-service/internal/kvstore"
	"crm-service/pkg/metrics"

	"go.uber.org/zap"
)

// Service is the running CRM access service
type Service struct {
	config   *config.Config
	log      *zap.Logger
	store    kvstore.Store
	keyCache *cache.KeyCache
	metrics  *metrics.Metrics
	server   *apphttp.Server

	closers   []func() error
	closeOnce sync.Once

	mu              sync.Mutex
	stopMaintenance context.CancelFunc
	maintenanceDone chan struct{}
}

// Start runs the maintenance loop and serves HTTP until Shutdown
func (s *Service) Start() error {
	s.startMaintenance(s.config.App.MaintenanceInterval)

	addr := s.config.Server.Address()
	s.log.Info("starting CRM service", zap.String("address", addr), zap.String("store", s.config.Store.Backend))
	if err := s.server.Start(addr); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler exposes the HTTP router without listening
func (s *Service) Handler() stdhttp.Handler {
	return s.server.Handler()
}

// Shutdown stops the server, the maintenance loop and releases every resource
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)

	s.mu.Lock()
	stop, done := s.stopMaintenance, s.maintenanceDone
	s.stopMaintenance = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}

	s.closeResources()
	return err
}

func (s *Service) startMaintenance(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopMaintenance != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopMaintenance = cancel
	s.maintenanceDone = make(chan struct{})
	go s.runMaintenance(ctx, interval, s.maintenanceDone)
}

// runMaintenance periodically reports request and executor counters along
// with the size of the key lookup cache.
func (s *Service) runMaintenance(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reportStats()
		}
	}
}

func (s *Service) reportStats() {
	snap := s.metrics.Snapshot()
	s.log.Info("service stats",
		zap.Int64("requests", snap.TotalRequests),
		zap.Float64("error_rate_pct", snap.ErrorRate),
		zap.Float64("avg_latency_ms", snap.AvgLatencyMs),
		zap.Int64("comparisons", snap.Comparisons),
		zap.Int64("authorization_mismatches", snap.AuthorizationMismatches),
		zap.Int64("transient_failures", snap.TransientFailures),
		zap.Any("simulated_outcomes", snap.Outcomes),
		zap.Int("cached_keys", s.keyCache.Len()),
	)
}

func (s *Service) addCloser(fn func() error) {
	s.closers = append(s.closers, fn)
}

// closeResources releases resources in reverse order of acquisition
func (s *Service) closeResources() {
	s.closeOnce.Do(func() {
		for i := len(s.closers) - 1; i >= 0; i-- {
			if err := s.closers[i](); err != nil {
				s.log.Warn("failed to release resource", zap.Error(err))
			}
		}
	})
}
