package state

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/doridoridoriand/fastping/internal/event"
)

func withRun(e event.Event, run uuid.UUID) event.Event {
	e.RunID = run
	return e
}

func TestStoreLatencySuccessAndTimeout(t *testing.T) {
	store := NewStore([]string{"example"})
	run := uuid.New()

	store.Publish(withRun(event.Timeout("example"), run))
	status, ok := store.TargetStatus("example")
	if !ok {
		t.Fatalf("expected target status")
	}
	if status.Status != StatusWarn {
		t.Fatalf("expected WARN after first timeout, got %s", status.Status)
	}
	if status.ConsecutiveNG != 1 || !status.LastTimeout {
		t.Fatalf("unexpected timeout bookkeeping: %+v", status)
	}

	store.Publish(withRun(event.Timeout("example"), run))
	store.Publish(withRun(event.Timeout("example"), run))
	status, _ = store.TargetStatus("example")
	if status.Status != StatusDown {
		t.Fatalf("expected DOWN after threshold, got %s", status.Status)
	}

	store.Publish(withRun(event.Latency("example", 12.5), run))
	status, _ = store.TargetStatus("example")
	if status.Status != StatusOK {
		t.Fatalf("expected OK after success, got %s", status.Status)
	}
	if status.ConsecutiveNG != 0 || status.ConsecutiveOK != 1 {
		t.Fatalf("unexpected counters: ok=%d ng=%d", status.ConsecutiveOK, status.ConsecutiveNG)
	}
	if status.LastLatency != 12.5 || status.LastTimeout {
		t.Fatalf("unexpected last latency: %+v", status)
	}
	if status.TotalSuccess != 1 || status.TotalFailure != 3 {
		t.Fatalf("unexpected totals: %d/%d", status.TotalSuccess, status.TotalFailure)
	}
	if len(status.History) != 1 {
		t.Fatalf("expected history length 1, got %d", len(status.History))
	}
}

func TestStoreSummariesAndStop(t *testing.T) {
	store := NewStore([]string{"a"})
	run := uuid.New()

	store.Publish(withRun(event.Latency("a", 5), run))
	store.Publish(withRun(event.PacketLoss("a", 25), run))
	store.Publish(withRun(event.AverageLatency("a", 5.5), run))

	status, _ := store.TargetStatus("a")
	if !status.HasLoss || status.LossPercent != 25 {
		t.Fatalf("expected loss 25, got %+v", status)
	}
	if !status.HasAverage || status.AverageLatency != 5.5 {
		t.Fatalf("expected average 5.5, got %+v", status)
	}
	if status.Status != StatusWarn {
		t.Fatalf("expected heavy loss to degrade to WARN, got %s", status.Status)
	}

	store.Publish(withRun(event.WorkerStopped("a", event.ReasonProcessExited), run))
	status, _ = store.TargetStatus("a")
	if status.Status != StatusStopped || status.StopReason != event.ReasonProcessExited {
		t.Fatalf("expected STOPPED/process-exited, got %s/%s", status.Status, status.StopReason)
	}
}

func TestStoreHistorySize(t *testing.T) {
	store := NewStore([]string{"example"})
	store.historySize = 2

	store.Publish(event.Latency("example", 10))
	store.Publish(event.Latency("example", 11))
	store.Publish(event.Latency("example", 12))

	status, _ := store.TargetStatus("example")
	if len(status.History) != 2 {
		t.Fatalf("expected history size 2, got %d", len(status.History))
	}
	if status.History[0].Latency != 11 || status.History[1].Latency != 12 {
		t.Fatalf("unexpected history values: %+v", status.History)
	}
}

func TestStoreSetTargetsKeepsHistoryAndOrder(t *testing.T) {
	store := NewStore([]string{"example"})
	store.Publish(event.Latency("example", 10))

	store.SetTargets([]string{"new", "example"})

	snap := store.Snapshot()
	if len(snap) != 2 || snap[0].Name != "new" || snap[1].Name != "example" {
		t.Fatalf("unexpected snapshot order: %+v", snap)
	}
	if len(snap[1].History) != 1 {
		t.Fatalf("expected history preserved, got %d", len(snap[1].History))
	}
	if snap[0].Status != StatusUnknown {
		t.Fatalf("expected new target UNKNOWN, got %s", snap[0].Status)
	}
}

func TestStoreIgnoresLateEventsOfRemovedTarget(t *testing.T) {
	store := NewStore([]string{"gone", "kept"})
	run := uuid.New()
	store.Publish(withRun(event.Latency("gone", 1), run))

	store.SetTargets([]string{"kept"})
	store.Publish(withRun(event.WorkerStopped("gone", event.ReasonCancelled), run))

	if _, ok := store.TargetStatus("gone"); ok {
		t.Fatalf("late event resurrected a removed target")
	}

	// Re-adding starts a fresh run that is accepted.
	store.SetTargets([]string{"kept", "gone"})
	store.Publish(withRun(event.Latency("gone", 2), uuid.New()))
	status, ok := store.TargetStatus("gone")
	if !ok || status.LastLatency != 2 {
		t.Fatalf("expected new run accepted, got %+v", status)
	}
}

func TestStoreIgnoresStopOfRemovedTargetWithUnseenRun(t *testing.T) {
	store := NewStore([]string{"a", "x"})
	store.SetTargets([]string{"a"})
	store.Publish(withRun(event.WorkerStopped("x", event.ReasonCancelled), uuid.New()))

	snap := store.Snapshot()
	if len(snap) != 1 || snap[0].Name != "a" {
		t.Fatalf("expected only a in snapshot, got %+v", snap)
	}
	if _, ok := store.TargetStatus("x"); ok {
		t.Fatalf("removed target x came back")
	}
}

func TestStoreIgnoresUnknownTargets(t *testing.T) {
	store := NewStore([]string{"a"})
	store.Publish(event.Latency("stranger", 3))

	if _, ok := store.TargetStatus("stranger"); ok {
		t.Fatalf("event for an untracked target created an entry")
	}
	if n := len(store.Snapshot()); n != 1 {
		t.Fatalf("expected 1 target, got %d", n)
	}
}

func TestStoreNewRunResetsStatus(t *testing.T) {
	store := NewStore([]string{"a"})
	first := uuid.New()
	store.Publish(withRun(event.Timeout("a"), first))
	store.Publish(withRun(event.WorkerStopped("a", event.ReasonProcessExited), first))

	store.Publish(withRun(event.Latency("a", 3), uuid.New()))
	status, _ := store.TargetStatus("a")
	if status.TotalFailure != 0 || status.StopReason != "" || status.Status != StatusOK {
		t.Fatalf("expected reset on new run, got %+v", status)
	}
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	store := NewStore([]string{"a"})
	store.Publish(event.Latency("a", 1))
	snap := store.Snapshot()
	snap[0].History[0].Latency = 99

	status, _ := store.TargetStatus("a")
	if status.History[0].Latency != 1 {
		t.Fatalf("snapshot shares history with the store")
	}
}

func TestStoreRunDrainsSubscription(t *testing.T) {
	bus := event.NewBus(nil)
	sub := bus.Subscribe("state", 8)
	store := NewStore([]string{"x"})

	done := make(chan struct{})
	go func() {
		store.Run(context.Background(), sub)
		close(done)
	}()

	bus.Publish(event.Latency("x", 4))
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after bus close")
	}
	status, ok := store.TargetStatus("x")
	if !ok || status.LastLatency != 4 {
		t.Fatalf("expected event applied before close, got %+v", status)
	}
}
