package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nholik/restart-sentinel/internal/config"
	"github.com/nholik/restart-sentinel/internal/coordinator"
	"github.com/nholik/restart-sentinel/internal/healthcheck"
	"github.com/nholik/restart-sentinel/internal/logging"
	"github.com/nholik/restart-sentinel/internal/metrics"
	"github.com/nholik/restart-sentinel/internal/notify"
	"github.com/nholik/restart-sentinel/internal/server"
	"github.com/nholik/restart-sentinel/internal/timesource"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New()
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.NewWithLevel(cfg.LogLevel)
	logger.Info().Msg("restart-sentinel starting")

	servers, err := config.LoadScheduleFile(cfg.ScheduleFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ScheduleFile).Msg("failed to load schedule file")
	}

	source := buildTimeSource(logger, cfg)
	notifier := buildNotifier(logger, cfg)
	collector := metrics.New()
	tracker := healthcheck.NewTracker()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.Start(ctx, logger, cfg.PollInterval, tracker, collector, cfg.HealthPort, cfg.MetricsPort)

	coord := coordinator.New(logger, cfg, servers, source, notifier, collector, tracker)
	if err := coord.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("coordinator exited with error")
	}

	logger.Info().Msg("restart-sentinel stopped")
}

func buildTimeSource(logger zerolog.Logger, cfg config.Config) timesource.Source {
	if cfg.TimeAPIURL == "" {
		logger.Info().Msg("no time api configured; using system clock")
		return timesource.System{}
	}

	source, err := timesource.NewHTTPSource(cfg.TimeAPIURL, cfg.FetchTimeout,
		timesource.WithRetryPolicy(cfg.FetchAttempts, time.Second, cfg.FetchTimeout))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize time source")
	}
	return source
}

func buildNotifier(logger zerolog.Logger, cfg config.Config) notify.Notifier {
	slackNotifier := notify.NewSlackNotifier(logger, cfg.SlackWebhookURL)

	webhookNotifier, err := notify.NewWebhookNotifier(logger, cfg.WebhookURL, cfg.WebhookTemplate)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid webhook template")
	}

	var combined notify.Notifier = notify.NewMultiNotifier(slackNotifier, webhookNotifier)
	if cfg.DryRun {
		combined = notify.NewDryRunNotifier(logger, combined)
	}
	return combined
}
