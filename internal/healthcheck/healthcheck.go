package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/tcplb/internal/backend"
	"github.com/angeloszaimis/tcplb/internal/metrics"
)

// Monitor periodically probes every configured target and commits each tick's
// results to the health registry as one atomic update. A single hung target
// cannot stall the tick: probes fan out concurrently and each carries its own
// timeout via the HTTP client.
type Monitor struct {
	targets   []backend.Backend
	registry  *backend.Registry
	collector *metrics.Collector
	client    *http.Client
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewMonitor creates a monitor probing targets every interval, allowing each
// probe at most timeout to complete. The clock is injectable so tests can
// drive ticks without sleeping; production callers pass clockwork.NewRealClock().
// A nil collector disables metrics emission.
func NewMonitor(
	targets []backend.Backend,
	registry *backend.Registry,
	collector *metrics.Collector,
	interval time.Duration,
	timeout time.Duration,
	clock clockwork.Clock,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		targets:   targets,
		registry:  registry,
		collector: collector,
		client:    &http.Client{Timeout: timeout},
		interval:  interval,
		clock:     clock,
		logger:    logger,
	}
}

// Run executes probe ticks until the context is cancelled. Probe failures
// mark targets unhealthy but never terminate the loop.
func (m *Monitor) Run(ctx context.Context) {
	// Seed the metrics pipeline with the registry's current judgments so
	// targets that never flip still report a status.
	for id, healthy := range m.registry.Snapshot() {
		m.collector.Emit(metrics.Event{
			Type:      metrics.EventHealthChanged,
			Timestamp: m.clock.Now(),
			Target:    m.targets[id].Address,
			Healthy:   healthy,
		})
	}

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Health monitor stopped")
			return

		case <-ticker.Chan():
			m.tick(ctx)
		}
	}
}

// tick probes all targets concurrently, joins the results, then commits the
// whole tick so readers never observe it partially applied.
func (m *Monitor) tick(ctx context.Context) {
	statuses := make([]bool, len(m.targets))

	group, probeCtx := errgroup.WithContext(ctx)
	for i, target := range m.targets {
		i, target := i, target
		group.Go(func() error {
			statuses[i] = m.probe(probeCtx, target)
			return nil
		})
	}
	// Probes report through statuses, never through errors; Wait is only the
	// join barrier before the commit.
	_ = group.Wait()

	changed := m.registry.Commit(statuses)
	for _, id := range changed {
		if statuses[id] {
			m.logger.Info("Target is back up",
				slog.String("target", m.targets[id].Address))
		} else {
			m.logger.Warn("Target is down",
				slog.String("target", m.targets[id].Address))
		}

		m.collector.Emit(metrics.Event{
			Type:      metrics.EventHealthChanged,
			Timestamp: m.clock.Now(),
			Target:    m.targets[id].Address,
			Healthy:   statuses[id],
		})
	}

	m.logger.Debug("Health tick complete",
		slog.Int("healthy", m.registry.HealthyCount()),
		slog.Int("targets", len(m.targets)))
}

// probe issues one GET against the target's health endpoint. Any 2xx response
// is healthy; every other outcome (non-2xx, refusal, timeout, DNS failure) is
// unhealthy, with no distinction made between causes.
func (m *Monitor) probe(ctx context.Context, target backend.Backend) bool {
	healthURL := "http://" + target.Address + target.HealthCheckPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return false
	}

	res, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	return res.StatusCode >= 200 && res.StatusCode < 300
}
