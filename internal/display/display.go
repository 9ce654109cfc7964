package display

import "github.com/rs/zerolog"

// Display renders status text for operators. Writes are best-effort; a
// failing or absent display never affects scheduling.
type Display interface {
	Write(text string)
	Clear()
}

// Noop drops all output.
type Noop struct{}

func (Noop) Write(string) {}
func (Noop) Clear()       {}

// Log writes status lines through the structured logger. Countdown updates
// arrive every cycle, so they go out at debug level.
type Log struct {
	logger zerolog.Logger
}

// NewLog returns a log-backed display.
func NewLog(logger zerolog.Logger) Log {
	return Log{logger: logger}
}

// Write implements Display.
func (d Log) Write(text string) {
	d.logger.Debug().Str("status", text).Msg("display")
}

// Clear implements Display.
func (d Log) Clear() {}
