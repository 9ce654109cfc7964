package actuator

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeDevice struct {
	calls []bool
	fail  bool
}

func (f *fakeDevice) Capability() Capability { return CapabilityBasic }

func (f *fakeDevice) Set(_ context.Context, active bool) error {
	f.calls = append(f.calls, active)
	if f.fail {
		return errors.New("device offline")
	}
	return nil
}

func TestController_FirstApplyCallsDevice(t *testing.T) {
	device := &fakeDevice{}
	c := NewController(zerolog.Nop(), device)

	if err := c.Apply(context.Background(), true); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(device.calls) != 1 || device.calls[0] != true {
		t.Fatalf("expected single activate call, got %v", device.calls)
	}
	if known, ok := c.Known(); !ok || !known {
		t.Fatalf("expected known state true, got %v ok=%v", known, ok)
	}
}

func TestController_EdgeTriggered(t *testing.T) {
	device := &fakeDevice{}
	c := NewController(zerolog.Nop(), device)

	// Holding the same desired value across cycles issues exactly one call.
	for i := 0; i < 5; i++ {
		if err := c.Apply(context.Background(), false); err != nil {
			t.Fatalf("Apply returned error: %v", err)
		}
	}
	if len(device.calls) != 1 {
		t.Fatalf("expected one device call, got %d", len(device.calls))
	}

	if err := c.Apply(context.Background(), true); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(device.calls) != 2 {
		t.Fatalf("expected second call on transition, got %d", len(device.calls))
	}
}

func TestController_FailedCallRetriesNextCycle(t *testing.T) {
	device := &fakeDevice{fail: true}
	c := NewController(zerolog.Nop(), device)

	if err := c.Apply(context.Background(), true); err == nil {
		t.Fatalf("expected device error")
	}
	if _, ok := c.Known(); ok {
		t.Fatalf("known state must not advance on failure")
	}

	// Same policy value next cycle attempts the toggle again.
	device.fail = false
	if err := c.Apply(context.Background(), true); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(device.calls) != 2 {
		t.Fatalf("expected retry call, got %d calls", len(device.calls))
	}
	if known, ok := c.Known(); !ok || !known {
		t.Fatalf("expected known state true after success")
	}
}
