package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Capability describes what a signal device supports. It is resolved once at
// construction rather than probed per call.
type Capability string

const (
	// CapabilityBasic is a plain single-line output device.
	CapabilityBasic Capability = "basic"
	// CapabilityWirelessBundled supports bundled-channel addressing.
	CapabilityWirelessBundled Capability = "wireless-bundled"
)

// Actuator drives a binary output line.
type Actuator interface {
	Capability() Capability
	Set(ctx context.Context, active bool) error
}

// Noop is used when no device is configured; the feature degrades to a no-op.
type Noop struct{}

// Capability implements Actuator.
func (Noop) Capability() Capability { return CapabilityBasic }

// Set implements Actuator.
func (Noop) Set(_ context.Context, _ bool) error { return nil }

// NewNoop returns a Noop actuator, logging the reason once.
func NewNoop(logger zerolog.Logger, reason string) Noop {
	if reason != "" {
		logger.Info().Msg(reason)
	}
	return Noop{}
}

type setRequest struct {
	Active  bool `json:"active"`
	Channel int  `json:"channel,omitempty"`
}

// HTTPActuator toggles a signal line exposed over HTTP. A bundled channel
// greater than zero implies a wireless/bundled device and is sent with every
// call.
type HTTPActuator struct {
	url     string
	channel int
	client  *retryablehttp.Client
}

// NewHTTPActuator constructs an HTTPActuator for the given device endpoint.
func NewHTTPActuator(url string, timeout time.Duration, bundledChannel int) (*HTTPActuator, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("actuator url must not be empty")
	}
	if timeout <= 0 {
		return nil, errors.New("timeout must be greater than zero")
	}
	if bundledChannel < 0 {
		return nil, errors.New("bundled channel must not be negative")
	}

	// Each cycle retries failed device calls itself, so the client performs
	// exactly one attempt.
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = func(_ context.Context, _ *http.Response, _ error) (bool, error) {
		return false, nil
	}
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: timeout}

	return &HTTPActuator{url: url, channel: bundledChannel, client: client}, nil
}

// Capability implements Actuator.
func (a *HTTPActuator) Capability() Capability {
	if a.channel > 0 {
		return CapabilityWirelessBundled
	}
	return CapabilityBasic
}

// Set implements Actuator. Any non-2xx response counts as a failed call.
func (a *HTTPActuator) Set(ctx context.Context, active bool) error {
	payload, err := json.Marshal(setRequest{Active: active, Channel: a.channel})
	if err != nil {
		return fmt.Errorf("marshal actuator payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build actuator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("actuator request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("actuator request failed: %s", resp.Status)
	}
	return nil
}
