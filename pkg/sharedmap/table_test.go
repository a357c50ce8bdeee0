package sharedmap

import (
	"sync"
	"testing"
)

func TestConfigSlotAtomicSwap(t *testing.T) {
	slot := NewConfigSlot(DefaultConfig())
	if got := slot.Load().SamplingStride; got != 1 {
		t.Fatalf("default stride = %d, want 1", got)
	}
	slot.Store(Config{SamplingStride: 100, RingCapacity: 4096, FrameSize: 2048, PoolFrames: 4096, BatchSize: 64})
	if got := slot.Load().SamplingStride; got != 100 {
		t.Fatalf("stride after store = %d, want 100", got)
	}
}

func TestConfigSlotNeverTorn(t *testing.T) {
	slot := NewConfigSlot(DefaultConfig())
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint32(1); ; i++ {
			select {
			case <-stop:
				return
			default:
				c := DefaultConfig()
				c.SamplingStride = i
				slot.Store(c)
			}
		}
	}()
	for i := 0; i < 10000; i++ {
		cfg := slot.Load()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("observed torn/invalid config: %v / %+v", err, cfg)
		}
	}
	close(stop)
	wg.Wait()
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", DefaultConfig(), true},
		{"zero stride", Config{SamplingStride: 0, RingCapacity: 4, FrameSize: 2048, PoolFrames: 1, BatchSize: 1}, false},
		{"non-pow2 ring", Config{SamplingStride: 1, RingCapacity: 100, FrameSize: 2048, PoolFrames: 1, BatchSize: 1}, false},
		{"tiny frame", Config{SamplingStride: 1, RingCapacity: 4, FrameSize: 8, PoolFrames: 1, BatchSize: 1}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("%s: Validate() err=%v, want ok=%v", tc.name, err, tc.ok)
		}
	}
}

func TestStatsMonotonic(t *testing.T) {
	s := &Stats{}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.Add(StatTotalPackets, 1)
			}
		}()
	}
	var last uint64
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	for {
		cur := s.Read(StatTotalPackets)
		if cur < last {
			t.Fatalf("counter went backwards: %d -> %d", last, cur)
		}
		last = cur
		select {
		case <-done:
			if s.Read(StatTotalPackets) != 16000 {
				t.Fatalf("final count = %d, want 16000", s.Read(StatTotalPackets))
			}
			return
		default:
		}
	}
}

func TestSteerTable(t *testing.T) {
	st := NewSteerTable()
	st.Set(0, "ring-0")
	st.Set(1, "ring-1")
	if h, ok := st.Get(0); !ok || h != "ring-0" {
		t.Fatalf("Get(0) = %v, %v", h, ok)
	}
	st.Unset(0)
	if _, ok := st.Get(0); ok {
		t.Fatal("expected queue 0 to be unset")
	}
	ids := st.QueueIDs()
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("QueueIDs() = %v, want [1]", ids)
	}
}
