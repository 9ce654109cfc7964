package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/nholik/restart-sentinel/internal/schedule"
	"github.com/rs/zerolog"
)

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) Notify(context.Context, string, []schedule.Event) error {
	n.calls++
	return n.err
}

func TestDryRunNotifierSuppressesDelivery(t *testing.T) {
	inner := &countingNotifier{}
	dryRun := NewDryRunNotifier(zerolog.Nop(), inner)

	events := []schedule.Event{warningEvent(60, 45)}

	if err := dryRun.Notify(context.Background(), "main", events); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if inner.calls != 0 {
		t.Fatalf("expected no notifier calls, got %d", inner.calls)
	}
}

func TestMultiNotifierFansOut(t *testing.T) {
	first := &countingNotifier{}
	second := &countingNotifier{err: errors.New("down")}
	third := &countingNotifier{}

	multi := NewMultiNotifier(first, nil, second, third)

	err := multi.Notify(context.Background(), "main", []schedule.Event{warningEvent(60, 45)})
	if err == nil || err.Error() != "down" {
		t.Fatalf("expected first error to propagate, got %v", err)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Fatalf("expected all notifiers called, got %d/%d/%d", first.calls, second.calls, third.calls)
	}
}
