package flowtrack

import (
	"context"
	"testing"
	"time"
)

func TestObserveFirstSightIsZero(t *testing.T) {
	tbl := New(16, time.Minute)
	if got := tbl.Observe(42, 1000); got != 0 {
		t.Fatalf("first observe = %d, want 0", got)
	}
	if tbl.Len() != 1 {
		t.Fatalf("len = %d, want 1", tbl.Len())
	}
}

func TestObserveComputesInterArrival(t *testing.T) {
	tbl := New(16, time.Minute)
	tbl.Observe(42, 1_000_000) // t=1ms
	got := tbl.Observe(42, 6_000_000) // t=6ms, delta 5ms = 5000us
	if got != 5000 {
		t.Fatalf("inter_arrival = %d, want 5000", got)
	}
}

func TestLRUEviction(t *testing.T) {
	tbl := New(2, time.Hour)
	tbl.Observe(1, 0)
	tbl.Observe(2, 1)
	tbl.Observe(3, 2) // evicts flow 1 (least recently used)

	if tbl.Len() != 2 {
		t.Fatalf("len = %d, want 2", tbl.Len())
	}
	if got := tbl.Observe(1, 3); got != 0 {
		t.Errorf("flow 1 should have been evicted and re-inserted fresh, got inter_arrival=%d", got)
	}
}

func TestSweepEvictsExpired(t *testing.T) {
	tbl := New(16, 10*time.Millisecond)
	tbl.Observe(1, 0)
	tbl.Observe(2, int64(5*time.Millisecond))

	evicted := tbl.Sweep(int64(20 * time.Millisecond))
	if evicted != 2 {
		t.Fatalf("evicted = %d, want 2", evicted)
	}
	if tbl.Len() != 0 {
		t.Fatalf("len after sweep = %d, want 0", tbl.Len())
	}
}

func TestNilTableIsSafe(t *testing.T) {
	var tbl *Table
	if got := tbl.Observe(1, 0); got != 0 {
		t.Fatal("nil table Observe should be a no-op returning 0")
	}
	if tbl.Len() != 0 {
		t.Fatal("nil table Len should be 0")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	tbl := New(16, time.Millisecond)
	tbl.Observe(1, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		tbl.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Run did not return after context cancellation")
	}
}
