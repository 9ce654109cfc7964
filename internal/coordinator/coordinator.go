package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/nholik/restart-sentinel/internal/actuator"
	"github.com/nholik/restart-sentinel/internal/config"
	"github.com/nholik/restart-sentinel/internal/display"
	"github.com/nholik/restart-sentinel/internal/healthcheck"
	"github.com/nholik/restart-sentinel/internal/metrics"
	"github.com/nholik/restart-sentinel/internal/notify"
	"github.com/nholik/restart-sentinel/internal/runner"
	"github.com/nholik/restart-sentinel/internal/schedule"
	"github.com/nholik/restart-sentinel/internal/timesource"
	"github.com/rs/zerolog"
)

// Coordinator manages multiple Runner instances, one per watched server.
// It spawns runners in parallel and waits for context cancellation.
type Coordinator struct {
	logger       zerolog.Logger
	cfg          config.Config
	servers      []config.Server
	timeSource   timesource.Source
	notifier     notify.Notifier
	collector    *metrics.Metrics
	tracker      *healthcheck.Tracker
	runners      map[string]*runner.Runner
	runnerErrors map[string]error
	mu           sync.RWMutex
}

// New constructs a Coordinator for the given configuration and server entries.
func New(logger zerolog.Logger, cfg config.Config, servers []config.Server, timeSource timesource.Source, notifier notify.Notifier, collector *metrics.Metrics, tracker *healthcheck.Tracker) *Coordinator {
	return &Coordinator{
		logger:       logger,
		cfg:          cfg,
		servers:      servers,
		timeSource:   timeSource,
		notifier:     notifier,
		collector:    collector,
		tracker:      tracker,
		runners:      make(map[string]*runner.Runner),
		runnerErrors: make(map[string]error),
	}
}

// Run starts all runners in parallel and blocks until context is canceled.
// Returns nil on clean shutdown; logs any per-runner errors internally.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info().
		Int("servers", len(c.servers)).
		Msg("starting coordinator")

	// Spawn all runners in parallel
	var wg sync.WaitGroup
	for _, server := range c.servers {
		wg.Add(1)
		go c.spawnRunner(ctx, &wg, server)
	}

	// Wait for all runners to exit (via context cancellation or error)
	wg.Wait()
	c.logger.Info().Msg("all runners stopped")

	// Report any errors
	c.mu.RLock()
	defer c.mu.RUnlock()
	for server, err := range c.runnerErrors {
		if err != nil {
			c.logger.Error().Err(err).Str("server", server).Msg("runner error")
		}
	}

	return nil
}

// spawnRunner creates and runs a single Runner for the given server entry.
func (c *Coordinator) spawnRunner(ctx context.Context, wg *sync.WaitGroup, server config.Server) {
	defer wg.Done()

	serverLogger := c.logger.With().Str("server", server.Name).Logger()

	scheduler, err := schedule.New(server.Schedule)
	if err != nil {
		serverLogger.Error().Err(err).Msg("failed to initialize scheduler")
		c.recordError(server.Name, err)
		return
	}

	controller, err := c.buildController(serverLogger, server)
	if err != nil {
		serverLogger.Error().Err(err).Msg("failed to initialize actuator")
		c.recordError(server.Name, err)
		return
	}

	// Determine poll interval: per-server override or global default
	pollInterval := c.cfg.PollInterval
	if server.PollSeconds > 0 {
		pollInterval = time.Duration(server.PollSeconds) * time.Second
	}

	r := runner.New(
		serverLogger,
		pollInterval,
		runner.WithServerName(server.Name),
		runner.WithTimeSource(c.timeSource),
		runner.WithScheduler(scheduler),
		runner.WithActuator(controller),
		runner.WithDisplay(display.NewLog(serverLogger)),
		runner.WithNotifier(c.notifier),
		runner.WithMetrics(c.collector),
		runner.WithTracker(c.tracker),
	)

	c.mu.Lock()
	c.runners[server.Name] = r
	c.mu.Unlock()

	serverLogger.Info().Msg("runner started")

	// Run until context is canceled or error occurs
	if err := r.Run(ctx); err != nil {
		serverLogger.Error().Err(err).Msg("runner exited with error")
		c.recordError(server.Name, err)
	} else {
		serverLogger.Info().Msg("runner exited cleanly")
	}
}

// buildController wires the server's signal device, falling back to a no-op
// when no endpoint is configured anywhere.
func (c *Coordinator) buildController(logger zerolog.Logger, server config.Server) (*actuator.Controller, error) {
	url := server.ActuatorURL
	if url == "" {
		url = c.cfg.ActuatorURL
	}
	if url == "" {
		device := actuator.NewNoop(logger, "no actuator endpoint configured; toggles disabled")
		return actuator.NewController(logger, device), nil
	}

	device, err := actuator.NewHTTPActuator(url, c.cfg.ActuatorTimeout, server.BundledChannel)
	if err != nil {
		return nil, err
	}
	return actuator.NewController(logger, device), nil
}

// recordError records a per-server error for later reporting.
func (c *Coordinator) recordError(serverName string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runnerErrors[serverName] = err
}

// GetRunners returns a copy of the runners map for testing.
func (c *Coordinator) GetRunners() map[string]*runner.Runner {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*runner.Runner, len(c.runners))
	for k, v := range c.runners {
		result[k] = v
	}
	return result
}
