// Package sharedmap implements the typed, concurrently-safe tables shared
// between the classifier fast path and the control surface: a statistics
// counter array, a double-buffered configuration slot, and a queue-steering
// table. The in-process Table here backs the pure-Go classifier and every
// test in this module; pkg/dataplane provides an eBPF-map-backed
// implementation of the same contract for the kernel classifier.
package sharedmap

import "sync/atomic"

// ProtocolFilter is a bitset over {TCP, UDP, ICMP, OTHER}.
type ProtocolFilter uint8

const (
	FilterTCP   ProtocolFilter = 1 << 0
	FilterUDP   ProtocolFilter = 1 << 1
	FilterICMP  ProtocolFilter = 1 << 2
	FilterOther ProtocolFilter = 1 << 3

	FilterAll ProtocolFilter = FilterTCP | FilterUDP | FilterICMP | FilterOther
)

// Config is the single configuration slot read once per packet by the
// classifier and replaceable atomically at any time by the control surface.
type Config struct {
	SamplingStride     uint32
	MaxUserRate        uint64
	ProtocolFilterMask ProtocolFilter
	SteerQueueID       uint32
	BatchSize          uint32
	RingCapacity       uint32
	FrameSize          uint32
	PoolFrames         uint32
	ZeroCopyMode       bool
}

// DefaultConfig returns the configuration recommended by the design notes:
// a generously oversized ring so undersizing cannot reintroduce the loss
// pattern the spec calls out.
func DefaultConfig() Config {
	return Config{
		SamplingStride:     1,
		MaxUserRate:        0,
		ProtocolFilterMask: FilterAll,
		SteerQueueID:       0,
		BatchSize:          64,
		RingCapacity:       4096,
		FrameSize:          2048,
		PoolFrames:         4096,
		ZeroCopyMode:       true,
	}
}

// Validate checks the invariants the control surface must enforce before
// install: non-zero stride, power-of-two ring capacity, a frame size of at
// least 256 bytes, and non-zero pool_frames and batch_size. The frame size
// is not compared against the interface MTU.
func (c Config) Validate() error {
	if c.SamplingStride == 0 {
		return errInvalidArgument("sampling_stride must be >= 1")
	}
	if c.RingCapacity == 0 || c.RingCapacity&(c.RingCapacity-1) != 0 {
		return errInvalidArgument("ring_capacity must be a power of two")
	}
	if c.FrameSize < 256 {
		return errInvalidArgument("frame_size too small")
	}
	if c.PoolFrames == 0 {
		return errInvalidArgument("pool_frames must be >= 1")
	}
	if c.BatchSize == 0 {
		return errInvalidArgument("batch_size must be >= 1")
	}
	return nil
}

func errInvalidArgument(msg string) error { return configError(msg) }

type configError string

func (e configError) Error() string { return string(e) }

// ConfigSlot is a double-buffered atomic-pointer configuration cell:
// readers always observe a complete snapshot, never a torn value, and
// writers install a new snapshot with a single atomic pointer swap —
// the lock-free pattern spec §5 requires on the data path.
type ConfigSlot struct {
	cur atomic.Pointer[Config]
}

// NewConfigSlot creates a slot pre-loaded with the given configuration.
func NewConfigSlot(initial Config) *ConfigSlot {
	s := &ConfigSlot{}
	s.Store(initial)
	return s
}

// Load returns the current configuration snapshot. Safe for concurrent use
// from the classifier fast path; never blocks.
func (s *ConfigSlot) Load() Config {
	return *s.cur.Load()
}

// Store installs a new configuration snapshot atomically.
func (s *ConfigSlot) Store(cfg Config) {
	c := cfg
	s.cur.Store(&c)
}
