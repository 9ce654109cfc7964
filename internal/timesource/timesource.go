package timesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const maxResponseBytes int64 = 64 << 10

// Source provides the current real-world time for a cycle.
type Source interface {
	Now(ctx context.Context) (time.Time, error)
}

// System reads the local clock. Used when no time API is reachable from the
// deployment environment.
type System struct{}

// Now implements Source.
func (System) Now(_ context.Context) (time.Time, error) {
	return time.Now().UTC(), nil
}

// HTTPSource fetches epoch seconds from a JSON time API
// (worldtimeapi-style responses carrying a "unixtime" field).
type HTTPSource struct {
	url    string
	client *retryablehttp.Client
}

// Option customizes HTTPSource behavior.
type Option func(*HTTPSource)

// WithRetryPolicy sets how many attempts a single cycle may spend on the
// time API and the backoff bounds between them. attempts of 1 means one try
// per cycle; the loop itself retries every cycle regardless.
func WithRetryPolicy(attempts int, waitMin, waitMax time.Duration) Option {
	return func(s *HTTPSource) {
		if attempts < 1 {
			attempts = 1
		}
		s.client.RetryMax = attempts - 1
		s.client.RetryWaitMin = waitMin
		s.client.RetryWaitMax = waitMax
	}
}

// NewHTTPSource constructs an HTTPSource for the given API URL.
func NewHTTPSource(url string, timeout time.Duration, opts ...Option) (*HTTPSource, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("time api url must not be empty")
	}
	if timeout <= 0 {
		return nil, errors.New("timeout must be greater than zero")
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: timeout}

	source := &HTTPSource{url: url, client: client}
	for _, opt := range opts {
		opt(source)
	}
	return source, nil
}

type timeResponse struct {
	UnixTime *int64 `json:"unixtime"`
}

// Now fetches the current time from the API.
func (s *HTTPSource) Now(ctx context.Context) (time.Time, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch time: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return time.Time{}, fmt.Errorf("read time response: %w", err)
	}

	var parsed timeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return time.Time{}, fmt.Errorf("decode time response: %w", err)
	}
	if parsed.UnixTime == nil {
		return time.Time{}, errors.New("time response missing unixtime field")
	}

	return time.Unix(*parsed.UnixTime, 0).UTC(), nil
}
