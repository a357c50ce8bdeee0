// Package classifier implements the in-kernel fast path of spec §4.2 as a
// pure Go function: parse L2-L4, update counters, sample, classify, steer.
// It is allocation-free and safe to invoke concurrently from every CPU,
// matching the "classifier must not allocate" and "must be safe to
// execute concurrently on all CPU cores" requirements of spec §4.2 and §5.
//
// This is the reference/portable implementation; bpf/xdp/xdp_classifier.c
// plus pkg/dataplane implement the identical verdict contract attached to
// the NIC receive hook via XDP for hosts that support it.
package classifier

import (
	"encoding/binary"
	"time"

	"github.com/xdpfeat/preprocessor/pkg/sharedmap"
)

// Verdict is the classifier's per-packet decision.
type Verdict struct {
	Action  Action
	QueueID uint32 // valid only when Action == Steer
}

// Action enumerates the three verdicts spec §2 names.
type Action int

const (
	Pass Action = iota
	Drop
	Steer
)

// TrafficClass is the coarse tag the classifier attaches in step 5.
type TrafficClass uint8

const (
	Normal TrafficClass = iota
	Suspicious
	Priority
)

func (c TrafficClass) String() string {
	switch c {
	case Priority:
		return "PRIORITY"
	case Suspicious:
		return "SUSPICIOUS"
	default:
		return "NORMAL"
	}
}

const (
	etherTypeIPv4 = 0x0800
	ethHeaderLen  = 14
	ipProtoTCP    = 6
	ipProtoUDP    = 17
)

var servicePorts = map[uint16]bool{22: true, 53: true, 80: true, 443: true}

// Parsed holds every field the classifier extracts while walking the
// frame, used both to decide the verdict and, on steer, as the basis for
// the counters the drainer needs no second parse to confirm.
type Parsed struct {
	Protocol   uint8
	SrcIP      uint32
	DstIP      uint32
	SrcPort    uint16
	DstPort    uint16
	TCPFlags   uint8
	WindowSize uint16
	TTL        uint8
	PktLen     uint16
	Class      TrafficClass
}

// PerCPUState is the classifier's mutable, CPU-local state: the sampling
// counter from spec §4.2 step 6, kept per-CPU specifically to avoid the
// data race the design notes flag in one of the original sources.
type PerCPUState struct {
	sampleCounter uint64
}

// Classify implements spec §4.2's nine-step algorithm. cpu identifies the
// calling core's PerCPUState; frame is the raw Ethernet frame bytes.
func Classify(frame []byte, cfg sharedmap.Config, cpu *PerCPUState, stats *sharedmap.Stats) Verdict {
	start := time.Now()
	defer func() {
		stats.Add(sharedmap.StatClassifierCPUNanos, uint64(time.Since(start).Nanoseconds()))
	}()

	// Step 1: bounds-check Ethernet header.
	if len(frame) < ethHeaderLen {
		stats.Add(sharedmap.StatTotalPackets, 1)
		return Verdict{Action: Pass}
	}
	etherType := binary.BigEndian.Uint16(frame[12:14])
	stats.Add(sharedmap.StatTotalPackets, 1)
	if etherType != etherTypeIPv4 {
		return Verdict{Action: Pass}
	}

	// Step 2: bounds-check IPv4 header.
	l3 := frame[ethHeaderLen:]
	if len(l3) < 20 {
		stats.Add(sharedmap.StatDroppedPackets, 1)
		return Verdict{Action: Pass}
	}
	verIHL := l3[0]
	version := verIHL >> 4
	ihl := int(verIHL&0x0f) * 4
	if version != 4 || ihl < 20 || len(l3) < ihl {
		stats.Add(sharedmap.StatDroppedPackets, 1)
		return Verdict{Action: Pass}
	}

	p := Parsed{}
	p.PktLen = binary.BigEndian.Uint16(l3[2:4])
	p.TTL = l3[8]
	p.Protocol = l3[9]
	p.SrcIP = binary.BigEndian.Uint32(l3[12:16])
	p.DstIP = binary.BigEndian.Uint32(l3[16:20])

	stats.Add(sharedmap.StatTotalBytes, uint64(len(frame)))

	// Step 3: protocol counter + filter.
	var filterBit sharedmap.ProtocolFilter
	switch p.Protocol {
	case ipProtoTCP:
		stats.Add(sharedmap.StatTCPPackets, 1)
		filterBit = sharedmap.FilterTCP
	case ipProtoUDP:
		stats.Add(sharedmap.StatUDPPackets, 1)
		filterBit = sharedmap.FilterUDP
	case 1: // ICMP
		stats.Add(sharedmap.StatOtherPackets, 1)
		filterBit = sharedmap.FilterICMP
	default:
		stats.Add(sharedmap.StatOtherPackets, 1)
		filterBit = sharedmap.FilterOther
	}
	if cfg.ProtocolFilterMask&filterBit == 0 {
		return Verdict{Action: Pass}
	}
	stats.Add(sharedmap.StatFilteredPackets, 1)

	// Step 4: bounds-check L4 header.
	l4 := l3[ihl:]
	switch p.Protocol {
	case ipProtoTCP:
		if len(l4) < 20 {
			stats.Add(sharedmap.StatDroppedPackets, 1)
			return Verdict{Action: Pass}
		}
		p.SrcPort = binary.BigEndian.Uint16(l4[0:2])
		p.DstPort = binary.BigEndian.Uint16(l4[2:4])
		p.TCPFlags = l4[13]
		p.WindowSize = binary.BigEndian.Uint16(l4[14:16])
	case ipProtoUDP:
		if len(l4) < 8 {
			stats.Add(sharedmap.StatDroppedPackets, 1)
			return Verdict{Action: Pass}
		}
		p.SrcPort = binary.BigEndian.Uint16(l4[0:2])
		p.DstPort = binary.BigEndian.Uint16(l4[2:4])
	default:
		// ICMP and others: no ports.
	}

	// Step 5: classification tag.
	p.Class = classify5Tuple(p.Protocol, p.SrcPort, p.DstPort)

	// Step 6: sampling decision, per-CPU counter, no cross-CPU serialization.
	cpu.sampleCounter++
	stride := uint64(cfg.SamplingStride)
	if stride == 0 {
		stride = 1
	}
	sampled := cpu.sampleCounter%stride == 0
	if !sampled {
		return Verdict{Action: Pass}
	}
	stats.Add(sharedmap.StatSampledPackets, 1)

	// Step 8: steer.
	return Verdict{Action: Steer, QueueID: cfg.SteerQueueID}
}

// ClassifyTag applies the step-5 tagging rule on its own, for callers that
// only have a 5-tuple and not a full frame — the drainer's re-parse path
// (pkg/feature.Extractor) needs it because only offset+length cross the
// RX ring, not the classifier's in-flight Parsed.Class.
func ClassifyTag(protocol uint8, srcPort, dstPort uint16) TrafficClass {
	return classify5Tuple(protocol, srcPort, dstPort)
}

func classify5Tuple(protocol uint8, srcPort, dstPort uint16) TrafficClass {
	if servicePorts[srcPort] || servicePorts[dstPort] {
		return Priority
	}
	if protocol != ipProtoTCP && protocol != ipProtoUDP {
		return Suspicious
	}
	if srcPort > 49151 && dstPort > 49151 {
		return Suspicious
	}
	return Normal
}
