package notify

import (
	"context"

	"github.com/nholik/restart-sentinel/internal/schedule"
	"github.com/rs/zerolog"
)

// DryRunNotifier logs events without sending notifications.
type DryRunNotifier struct {
	logger zerolog.Logger
	inner  Notifier
}

// NewDryRunNotifier returns a notifier that suppresses delivery and logs instead.
func NewDryRunNotifier(logger zerolog.Logger, inner Notifier) *DryRunNotifier {
	return &DryRunNotifier{logger: logger, inner: inner}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, server string, events []schedule.Event) error {
	for _, event := range events {
		n.logger.Info().
			Str("server", server).
			Str("kind", string(event.Kind)).
			Int("lead_time", event.LeadTime).
			Int64("seconds_left", event.SecondsLeft).
			Time("target", event.Target).
			Msg("[DRY-RUN] Would notify")
	}
	return nil
}
