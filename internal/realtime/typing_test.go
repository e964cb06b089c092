package realtime

import (
	"sync"
	"testing"
	"time"
)

type stopRecorder struct {
	mu    sync.Mutex
	stops []typingKey
}

func (s *stopRecorder) record(roomID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops = append(s.stops, typingKey{roomID: roomID, userID: userID})
}

func (s *stopRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stops)
}

func TestTypingTrackerExplicitStop(t *testing.T) {
	rec := &stopRecorder{}
	tracker := NewTypingTracker(time.Minute, rec.record)

	tracker.Start("room-1", "alice")
	if !tracker.Active("room-1", "alice") {
		t.Fatal("alice should be typing after Start")
	}

	tracker.Stop("room-1", "alice")
	if tracker.Active("room-1", "alice") {
		t.Fatal("alice should not be typing after Stop")
	}
	if rec.count() != 1 {
		t.Fatalf("expected one stop callback, got %d", rec.count())
	}

	// Stopping an inactive indicator fires nothing.
	tracker.Stop("room-1", "alice")
	if rec.count() != 1 {
		t.Fatalf("expected no callback for an inactive indicator, got %d", rec.count())
	}
}

func TestTypingTrackerAutoExpiry(t *testing.T) {
	rec := &stopRecorder{}
	tracker := NewTypingTracker(20*time.Millisecond, rec.record)

	tracker.Start("room-1", "alice")

	deadline := time.Now().Add(time.Second)
	for tracker.Active("room-1", "alice") {
		if time.Now().After(deadline) {
			t.Fatal("indicator never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if rec.count() != 1 {
		t.Fatalf("expected one expiry callback, got %d", rec.count())
	}
}

func TestTypingTrackerRestartRearms(t *testing.T) {
	rec := &stopRecorder{}
	tracker := NewTypingTracker(50*time.Millisecond, rec.record)

	tracker.Start("room-1", "alice")
	time.Sleep(30 * time.Millisecond)
	tracker.Start("room-1", "alice")
	time.Sleep(30 * time.Millisecond)

	// 60ms after the first start but only 30ms after the re-arm.
	if !tracker.Active("room-1", "alice") {
		t.Fatal("a repeated start should extend the expiry")
	}

	tracker.Stop("room-1", "alice")
}

func TestTypingTrackerStopAll(t *testing.T) {
	rec := &stopRecorder{}
	tracker := NewTypingTracker(time.Minute, rec.record)

	tracker.Start("room-1", "alice")
	tracker.Start("room-2", "alice")
	tracker.Start("room-1", "bob")

	tracker.StopAll("alice")

	if tracker.Active("room-1", "alice") || tracker.Active("room-2", "alice") {
		t.Fatal("all of alice's indicators should be cleared")
	}
	if !tracker.Active("room-1", "bob") {
		t.Fatal("bob's indicator must survive")
	}
	if rec.count() != 2 {
		t.Fatalf("expected two stop callbacks, got %d", rec.count())
	}
}
