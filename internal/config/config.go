package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envPollInterval    = "RS_POLL_INTERVAL"
	envTimeAPIURL      = "RS_TIME_API_URL"
	envUseSystemClock  = "RS_USE_SYSTEM_CLOCK"
	envFetchTimeout    = "RS_FETCH_TIMEOUT"
	envFetchAttempts   = "RS_FETCH_ATTEMPTS"
	envScheduleFile    = "RS_SCHEDULE_FILE"
	envActuatorURL     = "RS_ACTUATOR_URL"
	envActuatorTimeout = "RS_ACTUATOR_TIMEOUT"
	envSlackWebhookURL = "RS_SLACK_WEBHOOK_URL"
	envWebhookURL      = "RS_WEBHOOK_URL"
	envWebhookTemplate = "RS_WEBHOOK_TEMPLATE"
	envHealthPort      = "RS_HEALTH_PORT"
	envMetricsPort     = "RS_METRICS_PORT"
	envDryRun          = "RS_DRY_RUN"
	envLogLevel        = "RS_LOG_LEVEL"
)

const (
	defaultPollInterval    = 5 * time.Second
	defaultFetchTimeout    = 10 * time.Second
	defaultFetchAttempts   = 1
	defaultActuatorTimeout = 5 * time.Second
	defaultScheduleFile    = "schedule.yaml"
)

// Config describes runtime configuration loaded from the environment.
// Restart schedules themselves live in the schedule file; everything here is
// deployment wiring.
type Config struct {
	PollInterval    time.Duration
	TimeAPIURL      string
	UseSystemClock  bool
	FetchTimeout    time.Duration
	FetchAttempts   int
	ScheduleFile    string
	ActuatorURL     string
	ActuatorTimeout time.Duration
	SlackWebhookURL string
	WebhookURL      string
	WebhookTemplate string
	HealthPort      int
	MetricsPort     int
	DryRun          bool
	LogLevel        string
}

// Load reads configuration from environment variables and a local .env file if present.
// Existing environment variables take precedence over values in .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		PollInterval:    defaultPollInterval,
		FetchTimeout:    defaultFetchTimeout,
		FetchAttempts:   defaultFetchAttempts,
		ScheduleFile:    defaultScheduleFile,
		ActuatorTimeout: defaultActuatorTimeout,
	}

	if value, ok := lookupTrimmed(envPollInterval); ok {
		interval, err := parsePositiveDuration(value, envPollInterval)
		if err != nil {
			return Config{}, err
		}
		cfg.PollInterval = interval
	}

	if value, ok := lookupTrimmed(envTimeAPIURL); ok {
		cfg.TimeAPIURL = value
	}

	if value, ok := lookupTrimmed(envUseSystemClock); ok {
		flag, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envUseSystemClock, err)
		}
		cfg.UseSystemClock = flag
	}

	if value, ok := lookupTrimmed(envFetchTimeout); ok {
		timeout, err := parsePositiveDuration(value, envFetchTimeout)
		if err != nil {
			return Config{}, err
		}
		cfg.FetchTimeout = timeout
	}

	if value, ok := lookupTrimmed(envFetchAttempts); ok {
		attempts, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envFetchAttempts, err)
		}
		if attempts < 1 {
			return Config{}, fmt.Errorf("%s must be at least 1", envFetchAttempts)
		}
		cfg.FetchAttempts = attempts
	}

	if value, ok := lookupTrimmed(envScheduleFile); ok {
		cfg.ScheduleFile = value
	}

	if value, ok := lookupTrimmed(envActuatorURL); ok {
		cfg.ActuatorURL = value
	}

	if value, ok := lookupTrimmed(envActuatorTimeout); ok {
		timeout, err := parsePositiveDuration(value, envActuatorTimeout)
		if err != nil {
			return Config{}, err
		}
		cfg.ActuatorTimeout = timeout
	}

	if value, ok := lookupTrimmed(envSlackWebhookURL); ok {
		cfg.SlackWebhookURL = value
	}

	if value, ok := lookupTrimmed(envWebhookURL); ok {
		cfg.WebhookURL = value
	}

	if value, ok := lookupTrimmed(envWebhookTemplate); ok {
		cfg.WebhookTemplate = value
	}

	if value, ok := lookupTrimmed(envHealthPort); ok {
		port, err := parsePort(value, envHealthPort)
		if err != nil {
			return Config{}, err
		}
		cfg.HealthPort = port
	}

	if value, ok := lookupTrimmed(envMetricsPort); ok {
		port, err := parsePort(value, envMetricsPort)
		if err != nil {
			return Config{}, err
		}
		cfg.MetricsPort = port
	}

	if value, ok := lookupTrimmed(envDryRun); ok {
		flag, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envDryRun, err)
		}
		cfg.DryRun = flag
	}

	if value, ok := lookupTrimmed(envLogLevel); ok {
		cfg.LogLevel = value
	}

	// Without either a time API or an explicitly allowed local clock there
	// is nothing to schedule against, so startup aborts.
	if cfg.TimeAPIURL == "" && !cfg.UseSystemClock {
		return Config{}, fmt.Errorf("%s is required unless %s is set", envTimeAPIURL, envUseSystemClock)
	}

	if cfg.TimeAPIURL != "" {
		if err := validateURL(cfg.TimeAPIURL, envTimeAPIURL); err != nil {
			return Config{}, err
		}
	}
	if cfg.ActuatorURL != "" {
		if err := validateURL(cfg.ActuatorURL, envActuatorURL); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func parsePositiveDuration(value, name string) (time.Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero", name)
	}
	return parsed, nil
}

func parsePort(value, name string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%s must be within [0,65535]", name)
	}
	return port, nil
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
