package sharedmap

import "sync/atomic"

// StatIndex names a slot in the statistics counter array.
type StatIndex int

const (
	StatTotalPackets StatIndex = iota
	StatFilteredPackets
	StatSampledPackets
	StatSteeredPackets
	StatDroppedPackets
	StatTCPPackets
	StatUDPPackets
	StatOtherPackets
	StatTotalBytes
	StatClassifierCPUNanos
	StatAnomalySignals
	numStats
)

var statNames = map[StatIndex]string{
	StatTotalPackets:       "total_packets",
	StatFilteredPackets:    "filtered_packets",
	StatSampledPackets:     "sampled_packets",
	StatSteeredPackets:     "steered_packets",
	StatDroppedPackets:     "dropped_packets",
	StatTCPPackets:         "tcp_packets",
	StatUDPPackets:         "udp_packets",
	StatOtherPackets:       "other_packets",
	StatTotalBytes:         "total_bytes",
	StatClassifierCPUNanos: "classifier_cpu_ns",
	StatAnomalySignals:     "anomaly_signals",
}

// String returns the spec's field name for this index.
func (i StatIndex) String() string {
	if n, ok := statNames[i]; ok {
		return n
	}
	return "unknown"
}

// Stats is the monotonic, saturating counter array. Every counter is a
// plain atomic.Uint64; wraparound is accepted per spec §3 and callers must
// tolerate unsigned wrap rather than treat it as corruption.
type Stats struct {
	counters [numStats]atomic.Uint64
}

// Add performs a lock-free fetch-add, safe to call concurrently from every
// CPU executing the classifier.
func (s *Stats) Add(idx StatIndex, delta uint64) {
	s.counters[idx].Add(delta)
}

// Read returns the current value of a counter. Non-blocking, eventually
// consistent with concurrent writers per spec §4.1.
func (s *Stats) Read(idx StatIndex) uint64 {
	return s.counters[idx].Load()
}

// Snapshot captures every counter at once for reporting. The snapshot
// itself is not atomic across fields — per spec §5, "readers may observe
// one counter advance before another" — only each individual field is
// consistent.
type Snapshot struct {
	TotalPackets    uint64
	FilteredPackets uint64
	SampledPackets  uint64
	SteeredPackets  uint64
	DroppedPackets  uint64
	TCPPackets      uint64
	UDPPackets      uint64
	OtherPackets    uint64
	TotalBytes      uint64
	ClassifierCPUNs uint64
	AnomalySignals  uint64
}

// Snapshot reads every counter into a Snapshot struct.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		TotalPackets:    s.Read(StatTotalPackets),
		FilteredPackets: s.Read(StatFilteredPackets),
		SampledPackets:  s.Read(StatSampledPackets),
		SteeredPackets:  s.Read(StatSteeredPackets),
		DroppedPackets:  s.Read(StatDroppedPackets),
		TCPPackets:      s.Read(StatTCPPackets),
		UDPPackets:      s.Read(StatUDPPackets),
		OtherPackets:    s.Read(StatOtherPackets),
		TotalBytes:      s.Read(StatTotalBytes),
		ClassifierCPUNs: s.Read(StatClassifierCPUNanos),
		AnomalySignals:  s.Read(StatAnomalySignals),
	}
}
