package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// Metrics holds request counters plus simulated-API outcome counters.
// Thread-safe via atomics and mutex.
type Metrics struct {
	TotalRequests     int64
	ActiveRequests    int64
	TotalErrors       int64
	TotalLatencyMs    int64
	MaxLatencyMs      int64
	StartTime         time.Time
	EndpointCounts    map[string]int64
	EndpointLatencies map[string]int64
	StatusCodes       map[int]int64

	// outcome counters of the simulated executor, keyed by outcome name
	Outcomes map[string]int64
	// authorization mismatches and transient faults seen by the tester
	AuthorizationMismatches int64
	TransientFailures       int64
	Comparisons             int64

	now func() time.Time
	mu  sync.Mutex
}

func New() *Metrics {
	m := &Metrics{now: time.Now}
	m.reset()
	return m
}

func (m *Metrics) reset() {
	atomic.StoreInt64(&m.TotalRequests, 0)
	atomic.StoreInt64(&m.ActiveRequests, 0)
	atomic.StoreInt64(&m.TotalErrors, 0)
	atomic.StoreInt64(&m.TotalLatencyMs, 0)
	atomic.StoreInt64(&m.MaxLatencyMs, 0)
	atomic.StoreInt64(&m.AuthorizationMismatches, 0)
	atomic.StoreInt64(&m.TransientFailures, 0)
	atomic.StoreInt64(&m.Comparisons, 0)
	m.mu.Lock()
	m.EndpointCounts = make(map[string]int64)
	m.EndpointLatencies = make(map[string]int64)
	m.StatusCodes = make(map[int]int64)
	m.Outcomes = make(map[string]int64)
	m.StartTime = m.now()
	m.mu.Unlock()
}

// ObserveOutcome counts one executor response
func (m *Metrics) ObserveOutcome(outcome string) {
	m.mu.Lock()
	m.Outcomes[outcome]++
	m.mu.Unlock()
}

// ObserveComparison counts one expected/actual comparison. Authorization
// mismatches and transient faults are tracked apart.
func (m *Metrics) ObserveComparison(mismatch, transient bool) {
	atomic.AddInt64(&m.Comparisons, 1)
	if mismatch {
		atomic.AddInt64(&m.AuthorizationMismatches, 1)
	}
	if transient {
		atomic.AddInt64(&m.TransientFailures, 1)
	}
}

// Middleware tracks request count, latency, active connections, and error rates
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&m.ActiveRequests, 1)
			start := time.Now()

			err := next(c)
			if err != nil {
				// let the error handler write the response so the status is known
				c.Error(err)
			}

			latencyMs := time.Since(start).Milliseconds()
			atomic.AddInt64(&m.ActiveRequests, -1)
			atomic.AddInt64(&m.TotalRequests, 1)
			atomic.AddInt64(&m.TotalLatencyMs, latencyMs)

			for {
				current := atomic.LoadInt64(&m.MaxLatencyMs)
				if latencyMs <= current {
					break
				}
				if atomic.CompareAndSwapInt64(&m.MaxLatencyMs, current, latencyMs) {
					break
				}
			}

			statusCode := c.Response().Status
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			endpoint := fmt.Sprintf("%s %s", c.Request().Method, path)

			m.mu.Lock()
			m.EndpointCounts[endpoint]++
			m.EndpointLatencies[endpoint] += latencyMs
			m.StatusCodes[statusCode]++
			m.mu.Unlock()
			if statusCode >= 400 {
				atomic.AddInt64(&m.TotalErrors, 1)
			}

			return nil
		}
	}
}

// Snapshot is a point-in-time view of the counters
type Snapshot struct {
	TotalRequests           int64            `json:"total_requests"`
	ActiveRequests          int64            `json:"active_requests"`
	TotalErrors             int64            `json:"total_errors"`
	ErrorRate               float64          `json:"error_rate_pct"`
	AvgLatencyMs            float64          `json:"avg_latency_ms"`
	MaxLatencyMs            int64            `json:"max_latency_ms"`
	RequestsPerSec          float64          `json:"requests_per_sec"`
	UptimeSeconds           float64          `json:"uptime_seconds"`
	EndpointCounts          map[string]int64 `json:"endpoint_counts"`
	EndpointAvgMs           map[string]int64 `json:"endpoint_avg_latency_ms"`
	StatusCodes             map[int]int64    `json:"status_codes"`
	Outcomes                map[string]int64 `json:"simulated_outcomes"`
	Comparisons             int64            `json:"comparisons"`
	AuthorizationMismatches int64            `json:"authorization_mismatches"`
	TransientFailures       int64            `json:"transient_failures"`
}

func (m *Metrics) Snapshot() Snapshot {
	total := atomic.LoadInt64(&m.TotalRequests)
	errors := atomic.LoadInt64(&m.TotalErrors)
	totalLatency := atomic.LoadInt64(&m.TotalLatencyMs)

	m.mu.Lock()
	uptime := m.now().Sub(m.StartTime).Seconds()
	endpointCounts := make(map[string]int64, len(m.EndpointCounts))
	endpointAvg := make(map[string]int64, len(m.EndpointLatencies))
	for k, v := range m.EndpointCounts {
		endpointCounts[k] = v
		if v > 0 {
			endpointAvg[k] = m.EndpointLatencies[k] / v
		}
	}
	statusCodes := make(map[int]int64, len(m.StatusCodes))
	for k, v := range m.StatusCodes {
		statusCodes[k] = v
	}
	outcomes := make(map[string]int64, len(m.Outcomes))
	for k, v := range m.Outcomes {
		outcomes[k] = v
	}
	m.mu.Unlock()

	s := Snapshot{
		TotalRequests:           total,
		ActiveRequests:          atomic.LoadInt64(&m.ActiveRequests),
		TotalErrors:             errors,
		MaxLatencyMs:            atomic.LoadInt64(&m.MaxLatencyMs),
		UptimeSeconds:           uptime,
		EndpointCounts:          endpointCounts,
		EndpointAvgMs:           endpointAvg,
		StatusCodes:             statusCodes,
		Outcomes:                outcomes,
		Comparisons:             atomic.LoadInt64(&m.Comparisons),
		AuthorizationMismatches: atomic.LoadInt64(&m.AuthorizationMismatches),
		TransientFailures:       atomic.LoadInt64(&m.TransientFailures),
	}
	if total > 0 {
		s.AvgLatencyMs = float64(totalLatency) / float64(total)
		s.ErrorRate = float64(errors) / float64(total) * 100
	}
	if uptime > 0 {
		s.RequestsPerSec = float64(total) / uptime
	}
	return s
}

// RegisterRoutes adds GET /metrics/requests and POST /metrics/reset
func (m *Metrics) RegisterRoutes(e *echo.Echo) {
	e.GET("/metrics/requests", func(c echo.Context) error {
		return c.JSON(http.StatusOK, m.Snapshot())
	})

	// Reset metrics endpoint (useful between test runs)
	e.POST("/metrics/reset", func(c echo.Context) error {
		m.reset()
		return c.JSON(http.StatusOK, map[string]string{"status": "metrics_reset"})
	})
}
