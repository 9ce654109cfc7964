package timesource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPSource_Now(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"unixtime":1700000000,"timezone":"Etc/UTC"}`))
	}))
	defer server.Close()

	source, err := NewHTTPSource(server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPSource returned error: %v", err)
	}

	now, err := source.Now(context.Background())
	if err != nil {
		t.Fatalf("Now returned error: %v", err)
	}
	if now.Unix() != 1700000000 {
		t.Fatalf("expected unix 1700000000, got %d", now.Unix())
	}
}

func TestHTTPSource_Now_MissingField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"datetime":"2023-11-14T22:13:20Z"}`))
	}))
	defer server.Close()

	source, err := NewHTTPSource(server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPSource returned error: %v", err)
	}

	if _, err := source.Now(context.Background()); err == nil {
		t.Fatalf("expected error for response without unixtime")
	}
}

func TestHTTPSource_Now_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	source, err := NewHTTPSource(server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPSource returned error: %v", err)
	}

	if _, err := source.Now(context.Background()); err == nil {
		t.Fatalf("expected error for 502 response")
	}
}

func TestHTTPSource_RetryPolicyRetriesWithinCycle(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"unixtime":42}`))
	}))
	defer server.Close()

	source, err := NewHTTPSource(server.URL, time.Second,
		WithRetryPolicy(3, time.Millisecond, 5*time.Millisecond))
	if err != nil {
		t.Fatalf("NewHTTPSource returned error: %v", err)
	}

	now, err := source.Now(context.Background())
	if err != nil {
		t.Fatalf("Now returned error after retries: %v", err)
	}
	if now.Unix() != 42 {
		t.Fatalf("expected unix 42, got %d", now.Unix())
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestNewHTTPSource_Validation(t *testing.T) {
	if _, err := NewHTTPSource("", time.Second); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := NewHTTPSource("http://example.com", 0); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}

func TestSystem_Now(t *testing.T) {
	now, err := System{}.Now(context.Background())
	if err != nil {
		t.Fatalf("Now returned error: %v", err)
	}
	if time.Since(now) > time.Minute {
		t.Fatalf("system time too far in the past: %v", now)
	}
}
