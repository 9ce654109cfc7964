package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadScheduleFile_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	content := `servers:
  - name: main
    hours: [4, 12, 18]
    minute: 30
    utc_offset: 2
    warn_before: [900, 300, 60]
    turn_off_before: 300
    poll_seconds: 5
    actuator_url: http://device.local/relay
    bundled_channel: 3
  - name: backup
    hours: [6]
    warn_before: [60]
    turn_off_before: 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write schedule file: %v", err)
	}

	servers, err := LoadScheduleFile(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadScheduleFile returned error: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}

	main := servers[0]
	if main.Name != "main" {
		t.Fatalf("unexpected name %s", main.Name)
	}
	if len(main.Schedule.Hours) != 3 || main.Schedule.Hours[2] != 18 {
		t.Fatalf("unexpected hours %v", main.Schedule.Hours)
	}
	if main.Schedule.Minute != 30 || main.Schedule.UTCOffset != 2 {
		t.Fatalf("unexpected minute/offset %d/%d", main.Schedule.Minute, main.Schedule.UTCOffset)
	}
	if main.Schedule.TurnOffBefore != 300 {
		t.Fatalf("unexpected turn_off_before %d", main.Schedule.TurnOffBefore)
	}
	if main.PollSeconds != 5 || main.BundledChannel != 3 {
		t.Fatalf("unexpected overrides %+v", main)
	}
}

func TestLoadScheduleFile_MissingWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.yaml")

	servers, err := LoadScheduleFile(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadScheduleFile returned error: %v", err)
	}

	defaults := DefaultScheduleFile().Servers
	if len(servers) != len(defaults) || servers[0].Name != defaults[0].Name {
		t.Fatalf("expected default servers, got %+v", servers)
	}

	// The defaults must have been persisted for the operator to edit.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected schedule file to be written: %v", err)
	}

	again, err := LoadScheduleFile(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	if len(again) != len(defaults) {
		t.Fatalf("persisted defaults do not round-trip: %+v", again)
	}
}

func TestLoadScheduleFile_MalformedWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	if err := os.WriteFile(path, []byte("servers: [unclosed"), 0o644); err != nil {
		t.Fatalf("write schedule file: %v", err)
	}

	servers, err := LoadScheduleFile(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadScheduleFile returned error: %v", err)
	}
	if servers[0].Name != "default" {
		t.Fatalf("expected defaults for malformed file, got %+v", servers)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rewritten file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected rewritten file to contain defaults")
	}
}

func TestLoadScheduleFile_InvalidEntriesWriteDefaults(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no servers", "servers: []\n"},
		{"missing name", "servers:\n  - hours: [4]\n"},
		{"duplicate name", "servers:\n  - name: a\n    hours: [4]\n  - name: a\n    hours: [6]\n"},
		{"no hours", "servers:\n  - name: a\n    hours: []\n"},
		{"hour out of range", "servers:\n  - name: a\n    hours: [25]\n"},
		{"negative channel", "servers:\n  - name: a\n    hours: [4]\n    bundled_channel: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "schedule.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write schedule file: %v", err)
			}

			servers, err := LoadScheduleFile(path, zerolog.Nop())
			if err != nil {
				t.Fatalf("LoadScheduleFile returned error: %v", err)
			}
			if servers[0].Name != "default" {
				t.Fatalf("expected defaults, got %+v", servers)
			}
		})
	}
}

func TestSaveScheduleFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.d", "schedule.yaml")

	if err := SaveScheduleFile(path, DefaultScheduleFile()); err != nil {
		t.Fatalf("SaveScheduleFile returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}
