package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nholik/restart-sentinel/internal/schedule"
)

// Notifier delivers restart warnings and arrivals to external systems.
type Notifier interface {
	Notify(ctx context.Context, server string, events []schedule.Event) error
}

// describeEvent renders an event as a short human sentence.
func describeEvent(event schedule.Event) string {
	switch event.Kind {
	case schedule.KindArrival:
		return "restart in progress"
	default:
		remaining := time.Duration(event.SecondsLeft) * time.Second
		return fmt.Sprintf("restart in %s", remaining)
	}
}
