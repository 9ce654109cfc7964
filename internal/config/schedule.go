package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nholik/restart-sentinel/internal/schedule"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Server is a single watched game server and its restart schedule.
type Server struct {
	Name     string          `yaml:"name"`
	Schedule schedule.Config `yaml:",inline"`
	// PollSeconds overrides the global poll interval for this server.
	PollSeconds int `yaml:"poll_seconds,omitempty"`
	// ActuatorURL overrides the global actuator endpoint.
	ActuatorURL string `yaml:"actuator_url,omitempty"`
	// BundledChannel selects a bundled-cable channel on wireless devices.
	BundledChannel int `yaml:"bundled_channel,omitempty"`
}

// ScheduleFile is the parsed YAML structure of the schedule file:
// servers: [{name, hours, minute, utc_offset, warn_before, turn_off_before, ...}]
type ScheduleFile struct {
	Servers []Server `yaml:"servers"`
}

// DefaultScheduleFile returns the embedded fallback schedule.
func DefaultScheduleFile() ScheduleFile {
	return ScheduleFile{
		Servers: []Server{{
			Name: "default",
			Schedule: schedule.Config{
				Hours:         []int{4, 12, 18},
				Minute:        0,
				UTCOffset:     0,
				WarnBefore:    []int{900, 300, 60},
				TurnOffBefore: 300,
			},
		}},
	}
}

// LoadScheduleFile reads the schedule file at path. An absent or malformed
// file is replaced by the embedded defaults, which are persisted back so the
// operator has something to edit.
func LoadScheduleFile(path string, logger zerolog.Logger) ([]Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("path", path).Msg("schedule file missing, writing defaults")
			return persistDefaults(path)
		}
		return nil, fmt.Errorf("read schedule file: %w", err)
	}

	var parsed ScheduleFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("schedule file malformed, writing defaults")
		return persistDefaults(path)
	}

	if err := validateServers(parsed.Servers); err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("schedule file invalid, writing defaults")
		return persistDefaults(path)
	}

	return parsed.Servers, nil
}

// SaveScheduleFile writes the schedule file atomically.
func SaveScheduleFile(path string, file ScheduleFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal schedule file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, ".schedule-*.yaml")
	if err != nil {
		return err
	}

	cleanup := func() {
		_ = os.Remove(tempFile.Name())
	}

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		cleanup()
		return err
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		cleanup()
		return err
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return err
	}

	if err := os.Rename(tempFile.Name(), path); err != nil {
		cleanup()
		return err
	}

	return nil
}

func persistDefaults(path string) ([]Server, error) {
	defaults := DefaultScheduleFile()
	if err := SaveScheduleFile(path, defaults); err != nil {
		return nil, fmt.Errorf("persist default schedule: %w", err)
	}
	return defaults.Servers, nil
}

func validateServers(servers []Server) error {
	if len(servers) == 0 {
		return fmt.Errorf("schedule file contains no servers")
	}

	seen := make(map[string]bool)
	for i, server := range servers {
		if server.Name == "" {
			return fmt.Errorf("server %d: name is required", i)
		}
		if seen[server.Name] {
			return fmt.Errorf("server %q: duplicate name", server.Name)
		}
		seen[server.Name] = true

		if len(server.Schedule.Hours) == 0 {
			return fmt.Errorf("server %q: at least one restart hour is required", server.Name)
		}
		if err := server.Schedule.Validate(); err != nil {
			return fmt.Errorf("server %q: %w", server.Name, err)
		}
		if server.PollSeconds < 0 {
			return fmt.Errorf("server %q: poll_seconds must not be negative", server.Name)
		}
		if server.ActuatorURL != "" {
			if err := validateURL(server.ActuatorURL, "actuator_url"); err != nil {
				return fmt.Errorf("server %q: %w", server.Name, err)
			}
		}
		if server.BundledChannel < 0 {
			return fmt.Errorf("server %q: bundled_channel must not be negative", server.Name)
		}
	}
	return nil
}
