package feature

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/xdpfeat/preprocessor/pkg/classifier"
)

// Extractor re-parses a steered frame into a Record. It uses gopacket,
// which allocates per call — acceptable here because the drainer's
// re-parse runs entirely in user space off the classifier's hot path, as
// spec §4.4 step 3a sanctions ("the drainer re-parses for simplicity").
// The classifier's own parse (pkg/classifier) stays allocation-free.
type Extractor struct {
	Direction DirectionPolicy
}

// NewExtractor creates an Extractor using the default direction policy.
func NewExtractor() *Extractor {
	return &Extractor{Direction: DefaultDirectionPolicy}
}

// Extract parses frame and fills every field of Record except FlowHash,
// TimestampNanos, InterArrivalMicro and PacketEntropy, which the caller
// (the drainer) fills in from the flow table, clock, and payload
// separately, since those require state the extractor does not own.
func (e *Extractor) Extract(frame []byte, class classifier.TrafficClass) (Record, []byte, bool) {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: false,
	})

	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return Record{}, nil, false
	}
	ip4, ok := ipLayer.(*layers.IPv4)
	if !ok {
		return Record{}, nil, false
	}

	rec := Record{
		SrcIP:        ipv4ToUint32(ip4.SrcIP),
		DstIP:        ipv4ToUint32(ip4.DstIP),
		Protocol:     uint8(ip4.Protocol),
		PktLen:       ip4.Length,
		TTL:          ip4.TTL,
		TrafficClass: class,
	}

	var payload []byte
	headerLen := uint16(len(ip4.Contents))

	if tcpLayer := pkt.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp := tcpLayer.(*layers.TCP)
		rec.SrcPort = uint16(tcp.SrcPort)
		rec.DstPort = uint16(tcp.DstPort)
		rec.WindowSize = tcp.Window
		rec.TCPFlags = tcpFlagByte(tcp)
		headerLen += uint16(len(tcp.Contents))
		payload = tcp.Payload
	} else if udpLayer := pkt.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp := udpLayer.(*layers.UDP)
		rec.SrcPort = uint16(udp.SrcPort)
		rec.DstPort = uint16(udp.DstPort)
		headerLen += uint16(len(udp.Contents))
		payload = udp.Payload
	}

	if rec.PktLen >= headerLen {
		rec.PayloadLen = rec.PktLen - headerLen
	}
	rec.Direction = e.Direction(rec.SrcPort, rec.DstPort)

	return rec, payload, true
}

func ipv4ToUint32(ip []byte) uint32 {
	if len(ip) < 4 {
		return 0
	}
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func tcpFlagByte(tcp *layers.TCP) uint8 {
	var f uint8
	if tcp.FIN {
		f |= 0x01
	}
	if tcp.SYN {
		f |= 0x02
	}
	if tcp.RST {
		f |= 0x04
	}
	if tcp.PSH {
		f |= 0x08
	}
	if tcp.ACK {
		f |= 0x10
	}
	if tcp.URG {
		f |= 0x20
	}
	if tcp.ECE {
		f |= 0x40
	}
	if tcp.CWR {
		f |= 0x80
	}
	return f
}
