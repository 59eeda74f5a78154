// Package probe implements the availability check for the generation
// backend. The prober's result is advisory only: callers may attempt
// generation regardless, and nothing in the pipeline gates on it. A
// background monitor keeps a rolling health state so the gateway can report
// channel health without probing on every request.
package probe

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Availability is the advisory reachability signal exposed to callers.
type Availability struct {
	Available bool   `json:"available"`
	Method    string `json:"method"`
}

const (
	methodRemoteFunction = "remote-function"
	methodNone           = "none"
)

// SessionChecker validates the ambient credential/session against the
// backend with no request body.
type SessionChecker interface {
	Check(ctx context.Context) error
}

// Prober performs one lightweight "who am I" call per Check. Concurrent
// checks are coalesced into a single upstream call.
type Prober struct {
	session SessionChecker
	group   singleflight.Group
	logger  *zap.Logger
}

// NewProber creates a prober over the given session client.
func NewProber(session SessionChecker, logger *zap.Logger) *Prober {
	return &Prober{
		session: session,
		logger:  logger,
	}
}

// Check reports whether the remote function path is reachable. It never
// returns an error: any failure is Availability{false, "none"}.
func (p *Prober) Check(ctx context.Context) Availability {
	v, _, shared := p.group.Do("session", func() (interface{}, error) {
		if err := p.session.Check(ctx); err != nil {
			p.logger.Debug("availability probe failed", zap.Error(err))
			return Availability{Available: false, Method: methodNone}, nil
		}
		return Availability{Available: true, Method: methodRemoteFunction}, nil
	})
	if shared {
		p.logger.Debug("availability probe coalesced")
	}
	return v.(Availability)
}

// Monitor periodically probes the backend and tracks its health through a
// circuit breaker. The breaker state is observability only — it never blocks
// a dispatch, preserving the "both channels tried exactly once" contract.
type Monitor struct {
	prober   *Prober
	breaker  *gobreaker.CircuitBreaker
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	probeDuration prometheus.Histogram
	probeFailures prometheus.Counter
}

// MonitorConfig carries monitor settings.
type MonitorConfig struct {
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// NewMonitor creates a health monitor. The registry may be nil to skip
// metric registration (tests).
func NewMonitor(prober *Prober, cfg MonitorConfig, logger *zap.Logger, registry *prometheus.Registry) *Monitor {
	interval := cfg.Interval
	if interval == 0 {
		interval = time.Minute
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}

	m := &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}

	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "backend-session",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		Timeout: interval,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("backend health state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	m.probeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "copysmith_probe_duration_seconds",
		Help: "Duration of backend availability probes",
	})
	m.probeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "copysmith_probe_failures_total",
		Help: "Number of failed backend availability probes",
	})

	if registry != nil {
		registry.MustRegister(m.probeDuration)
		registry.MustRegister(m.probeFailures)
	}

	return m
}

// Start begins periodic probing until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probeOnce(ctx)
		}
	}
}

func (m *Monitor) probeOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	_, err := m.breaker.Execute(func() (interface{}, error) {
		avail := m.prober.Check(probeCtx)
		if !avail.Available {
			return nil, errUnavailable
		}
		return avail, nil
	})
	m.probeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		m.probeFailures.Inc()
		m.logger.Warn("backend availability probe failed",
			zap.Error(err),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Healthy reports the monitor's rolling view of the backend.
func (m *Monitor) Healthy() bool {
	return m.breaker.State() == gobreaker.StateClosed
}

// State exposes the raw breaker state for the availability endpoint.
func (m *Monitor) State() string {
	return m.breaker.State().String()
}

// errUnavailable marks a failed probe inside the breaker.
var errUnavailable = &probeError{}

type probeError struct{}

func (*probeError) Error() string { return "backend unavailable" }
