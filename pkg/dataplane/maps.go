package dataplane

import (
	"fmt"

	"github.com/cilium/ebpf"

	"github.com/xdpfeat/preprocessor/pkg/sharedmap"
)

// wireConfig mirrors the C struct classifier_config byte-for-byte.
type wireConfig struct {
	SamplingStride     uint32
	_                  [4]byte // alignment padding before the uint64
	MaxUserRate        uint64
	ProtocolFilterMask uint8
	_                  [3]byte
	SteerQueueID       uint32
}

// ReadStatCounter sums a per-CPU statistics counter across all CPUs,
// the same pattern the teacher's ReadInterfaceCounters uses in
// pkg/dataplane/maps.go for per-CPU interface/zone/policy counters.
func (m *Manager) ReadStatCounter(idx sharedmap.StatIndex) (uint64, error) {
	var perCPU []uint64
	key := uint32(idx)
	if err := m.objs.StatsMap.Lookup(&key, &perCPU); err != nil {
		return 0, fmt.Errorf("dataplane: read stat %s: %w", idx, err)
	}
	var total uint64
	for _, v := range perCPU {
		total += v
	}
	return total, nil
}

// WriteConfig installs a new configuration snapshot into the single-slot
// config map — the kernel-side half of the double-buffered swap spec §4.1
// requires; the BPF_MAP_TYPE_ARRAY update is itself atomic per-entry from
// the verifier's perspective.
func (m *Manager) WriteConfig(cfg sharedmap.Config) error {
	wc := wireConfig{
		SamplingStride:     cfg.SamplingStride,
		MaxUserRate:        cfg.MaxUserRate,
		ProtocolFilterMask: uint8(cfg.ProtocolFilterMask),
		SteerQueueID:       cfg.SteerQueueID,
	}
	key := uint32(0)
	if err := m.objs.ConfigMap.Update(&key, &wc, ebpf.UpdateAny); err != nil {
		return fmt.Errorf("dataplane: write config: %w", err)
	}
	return nil
}

// SteerSet registers an AF_XDP socket file descriptor for a queue id in
// the xsks_map, so bpf_redirect_map in the kernel program can deliver
// steered frames to that socket.
func (m *Manager) SteerSet(queueID uint32, xskFD int) error {
	key := queueID
	fd := uint32(xskFD)
	if err := m.objs.XsksMap.Update(&key, &fd, ebpf.UpdateAny); err != nil {
		return fmt.Errorf("dataplane: steer_set queue %d: %w", queueID, err)
	}
	return nil
}

// SteerUnset removes a queue's AF_XDP socket registration.
func (m *Manager) SteerUnset(queueID uint32) error {
	key := queueID
	if err := m.objs.XsksMap.Delete(&key); err != nil {
		return fmt.Errorf("dataplane: steer_unset queue %d: %w", queueID, err)
	}
	return nil
}
