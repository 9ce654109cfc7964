package healthcheck

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReadyHandler_NotReadyBeforeFirstCycle(t *testing.T) {
	tracker := NewTracker()
	recorder := httptest.NewRecorder()

	ReadyHandler(tracker)(recorder, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first cycle, got %d", recorder.Code)
	}
}

func TestReadyHandler_ReadyAfterCycle(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordCycle(50*time.Millisecond, 2)
	recorder := httptest.NewRecorder()

	ReadyHandler(tracker)(recorder, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 after cycle, got %d", recorder.Code)
	}

	var snapshot Snapshot
	if err := json.NewDecoder(recorder.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.ServersTracked != 2 {
		t.Fatalf("expected 2 servers tracked, got %d", snapshot.ServersTracked)
	}
	if snapshot.LastCycleTime == nil {
		t.Fatalf("expected last cycle time to be set")
	}
}

func TestHealthHandler_StaleCycleIsUnhealthy(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordCycle(time.Millisecond, 1)

	// A poll interval far smaller than the elapsed time makes the last
	// cycle stale immediately.
	tracker.mu.Lock()
	tracker.lastCycle = time.Now().UTC().Add(-time.Hour)
	tracker.mu.Unlock()

	recorder := httptest.NewRecorder()
	HealthHandler(tracker, time.Second)(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for stale cycle, got %d", recorder.Code)
	}
}

func TestHealthHandler_FreshCycleIsHealthy(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordCycle(time.Millisecond, 1)

	recorder := httptest.NewRecorder()
	HealthHandler(tracker, time.Minute)(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for fresh cycle, got %d", recorder.Code)
	}
}

func TestNilTracker(t *testing.T) {
	var tracker *Tracker

	if tracker.Ready() {
		t.Fatalf("nil tracker must not be ready")
	}
	if tracker.Healthy(time.Now(), time.Second) {
		t.Fatalf("nil tracker must not be healthy")
	}
	tracker.RecordCycle(time.Second, 1)
}
