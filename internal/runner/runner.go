package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nholik/restart-sentinel/internal/actuator"
	"github.com/nholik/restart-sentinel/internal/display"
	"github.com/nholik/restart-sentinel/internal/healthcheck"
	"github.com/nholik/restart-sentinel/internal/metrics"
	"github.com/nholik/restart-sentinel/internal/notify"
	"github.com/nholik/restart-sentinel/internal/schedule"
	"github.com/nholik/restart-sentinel/internal/timesource"
	"github.com/rs/zerolog"
)

// Ticker is the minimal interface needed for driving the runner loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

// Runner drives the poll loop for a single server: fetch time, evaluate the
// schedule, render status, dispatch events, reconcile the actuator.
type Runner struct {
	logger        zerolog.Logger
	pollInterval  time.Duration
	tickerFactory func(time.Duration) Ticker
	runOnce       func(context.Context) error
	serverName    string
	timeSource    timesource.Source
	scheduler     *schedule.Scheduler
	controller    *actuator.Controller
	disp          display.Display
	notifier      notify.Notifier
	collector     *metrics.Metrics
	tracker       *healthcheck.Tracker
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(r *Runner) {
		r.tickerFactory = factory
	}
}

// WithRunOnce overrides the single-cycle execution step.
func WithRunOnce(runOnce func(context.Context) error) Option {
	return func(r *Runner) {
		r.runOnce = runOnce
	}
}

// WithTimeSource sets the time source used by the default RunOnce.
func WithTimeSource(source timesource.Source) Option {
	return func(r *Runner) {
		r.timeSource = source
	}
}

// WithScheduler sets the restart scheduler used by the default RunOnce.
func WithScheduler(scheduler *schedule.Scheduler) Option {
	return func(r *Runner) {
		r.scheduler = scheduler
	}
}

// WithActuator sets the actuator controller driven by the schedule policy.
func WithActuator(controller *actuator.Controller) Option {
	return func(r *Runner) {
		r.controller = controller
	}
}

// WithDisplay sets the status display.
func WithDisplay(d display.Display) Option {
	return func(r *Runner) {
		r.disp = d
	}
}

// WithNotifier sets the event notifier.
func WithNotifier(notifier notify.Notifier) Option {
	return func(r *Runner) {
		r.notifier = notifier
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector *metrics.Metrics) Option {
	return func(r *Runner) {
		r.collector = collector
	}
}

// WithTracker sets the healthcheck tracker updated after successful cycles.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(r *Runner) {
		r.tracker = tracker
	}
}

// WithServerName scopes log fields and metrics to a server name.
func WithServerName(name string) Option {
	return func(r *Runner) {
		r.serverName = name
	}
}

// New constructs a Runner with the given logger and poll interval.
func New(logger zerolog.Logger, pollInterval time.Duration, opts ...Option) *Runner {
	r := &Runner{
		logger:       logger,
		pollInterval: pollInterval,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
		disp: display.Noop{},
	}
	r.runOnce = r.defaultRunOnce

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run starts the poll loop and blocks until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if r.pollInterval <= 0 {
		return errors.New("poll interval must be greater than zero")
	}

	// Run immediately on startup
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("initial run cycle failed")
	}

	ticker := r.tickerFactory(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("runner stopped")
			return nil
		case <-ticker.C():
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("run cycle failed")
			}
		}
	}
}

// RunOnce executes a single cycle of the runner.
func (r *Runner) RunOnce(ctx context.Context) error {
	return r.runOnce(ctx)
}

func (r *Runner) defaultRunOnce(ctx context.Context) error {
	if r.timeSource == nil || r.scheduler == nil {
		return nil
	}

	started := time.Now()

	// A failed time fetch leaves all scheduling state untouched; the next
	// tick simply tries again.
	now, err := r.timeSource.Now(ctx)
	if err != nil {
		r.collector.IncTimeFetchErrors()
		r.disp.Write("time unavailable")
		return wrapRuntime("fetch time", err)
	}

	eval, err := r.scheduler.Evaluate(now)
	if err != nil {
		r.disp.Write("no restart schedule")
		return wrapRuntime("evaluate schedule", err)
	}

	r.disp.Write(fmt.Sprintf("next restart %s (in %s)",
		eval.Target.Format("15:04 MST"), eval.Countdown()))
	r.collector.SetSecondsUntilRestart(r.serverName, eval.SecondsLeft)

	for _, event := range eval.Events {
		switch event.Kind {
		case schedule.KindArrival:
			r.logger.Warn().
				Time("target", event.Target).
				Msg("restart arrived")
		default:
			r.logger.Info().
				Int("lead_time", event.LeadTime).
				Int64("seconds_left", event.SecondsLeft).
				Time("target", event.Target).
				Msg("restart warning")
			r.collector.IncWarningsTotal(r.serverName, event.LeadTime)
		}
	}

	// Delivery is best-effort: the scheduler has already marked these
	// events fired, so a notifier outage never replays warnings.
	if len(eval.Events) > 0 && r.notifier != nil {
		if err := r.notifier.Notify(ctx, r.serverName, eval.Events); err != nil {
			r.logger.Error().Err(err).Msg("notification delivery failed")
		}
	}

	if r.controller != nil {
		previous, acknowledged := r.controller.Known()
		if err := r.controller.Apply(ctx, eval.ActuatorActive); err != nil {
			return wrapRuntime("apply actuator", err)
		}
		if !acknowledged || previous != eval.ActuatorActive {
			r.collector.IncActuatorToggles(r.serverName, eval.ActuatorActive)
		}
	}

	duration := time.Since(started)
	r.collector.ObserveCycleDuration(duration)
	r.collector.SetLastSuccessfulCycleTimestamp(time.Now().UTC())
	r.tracker.RecordCycle(duration, 1)

	return nil
}
