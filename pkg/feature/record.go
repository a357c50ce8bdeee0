// Package feature computes the FeatureRecord spec §3 defines: the
// drainer's re-parse of a steered frame plus the derived entropy,
// flow-hash, inter-arrival-time, and direction fields.
package feature

import "github.com/xdpfeat/preprocessor/pkg/classifier"

// Direction is the coarse flow direction the drainer assigns in §4.4 step d.
type Direction uint8

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "OUTBOUND"
	}
	return "INBOUND"
}

// Record is the fixed-shape FeatureRecord of spec §3. It is constructed on
// the drainer's stack and borrowed read-only by the callback; callers must
// not retain it past the callback call per spec §3's ownership summary.
type Record struct {
	SrcIP             uint32
	DstIP             uint32
	SrcPort           uint16
	DstPort           uint16
	Protocol          uint8
	PktLen            uint16
	PayloadLen        uint16
	TCPFlags          uint8
	WindowSize        uint16
	TTL               uint8
	FlowHash          uint64
	TimestampNanos    int64
	PacketEntropy     uint8
	InterArrivalMicro uint32
	TrafficClass      classifier.TrafficClass
	Direction         Direction
}
