package logging

import (
	"testing"
	"time"
)

func TestEventBufferAddAndLatest(t *testing.T) {
	eb := NewEventBuffer(3)
	for i := 0; i < 5; i++ {
		eb.Add(EventRecord{Type: "STEERED", QueueID: uint32(i)})
	}

	latest := eb.Latest(3)
	if len(latest) != 3 {
		t.Fatalf("Latest(3) returned %d records, want 3", len(latest))
	}
	// newest first; buffer of size 3 should have overwritten 0 and 1
	want := []uint32{4, 3, 2}
	for i, rec := range latest {
		if rec.QueueID != want[i] {
			t.Errorf("Latest()[%d].QueueID = %d, want %d", i, rec.QueueID, want[i])
		}
	}
}

func TestEventBufferSubscribeAndClose(t *testing.T) {
	eb := NewEventBuffer(10)
	sub := eb.Subscribe(4)

	eb.Add(EventRecord{Type: "STEERED", QueueID: 1})

	select {
	case rec := <-sub.C:
		if rec.QueueID != 1 {
			t.Errorf("QueueID = %d, want 1", rec.QueueID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for subscribed event")
	}

	sub.Close()
	eb.Add(EventRecord{Type: "STEERED", QueueID: 2})
	select {
	case <-sub.C:
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventFilterMatches(t *testing.T) {
	tests := []struct {
		name string
		f    EventFilter
		rec  EventRecord
		want bool
	}{
		{
			name: "empty filter matches anything",
			f:    EventFilter{},
			rec:  EventRecord{QueueID: 7, Protocol: "TCP", Type: "STEERED"},
			want: true,
		},
		{
			name: "queue id mismatch",
			f:    EventFilter{QueueID: 1},
			rec:  EventRecord{QueueID: 2},
			want: false,
		},
		{
			name: "protocol substring, case-insensitive",
			f:    EventFilter{Protocol: "tcp"},
			rec:  EventRecord{Protocol: "TCP"},
			want: true,
		},
		{
			name: "type substring mismatch",
			f:    EventFilter{Type: "anomaly"},
			rec:  EventRecord{Type: "STEERED"},
			want: false,
		},
		{
			name: "all criteria satisfied",
			f:    EventFilter{QueueID: 3, Protocol: "udp", Type: "steered"},
			rec:  EventRecord{QueueID: 3, Protocol: "UDP", Type: "STEERED"},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Matches(tt.rec); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventFilterIsEmpty(t *testing.T) {
	var empty EventFilter
	if !empty.IsEmpty() {
		t.Error("zero-value filter should be empty")
	}
	withQueue := EventFilter{QueueID: 1}
	if withQueue.IsEmpty() {
		t.Error("filter with QueueID set should not be empty")
	}
}

func TestLatestFiltered(t *testing.T) {
	eb := NewEventBuffer(10)
	eb.Add(EventRecord{Type: "STEERED", Protocol: "TCP"})
	eb.Add(EventRecord{Type: "ANOMALY_SIGNAL", Protocol: "UDP"})
	eb.Add(EventRecord{Type: "STEERED", Protocol: "UDP"})

	got := eb.LatestFiltered(10, EventFilter{Type: "anomaly"})
	if len(got) != 1 {
		t.Fatalf("LatestFiltered returned %d records, want 1", len(got))
	}
	if got[0].Type != "ANOMALY_SIGNAL" {
		t.Errorf("got %q, want ANOMALY_SIGNAL", got[0].Type)
	}
}
