package feature

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// FlowHash computes a stable 64-bit hash over the 5-tuple
// (protocol, src_ip, dst_ip, src_port, dst_port) as spec §3 requires.
//
// Canonicalization policy (spec §9 open question, resolved here): the two
// endpoints are ordered by (ip, port) pair so that hash(p) == hash(reverse(p)).
// This is the "document the choice" resolution DESIGN.md records.
func FlowHash(protocol uint8, srcIP, dstIP uint32, srcPort, dstPort uint16) uint64 {
	aIP, aPort, bIP, bPort := srcIP, srcPort, dstIP, dstPort
	if bIP < aIP || (bIP == aIP && bPort < aPort) {
		aIP, aPort, bIP, bPort = bIP, bPort, aIP, aPort
	}

	var buf [13]byte
	buf[0] = protocol
	binary.BigEndian.PutUint32(buf[1:5], aIP)
	binary.BigEndian.PutUint32(buf[5:9], bIP)
	binary.BigEndian.PutUint16(buf[9:11], aPort)
	binary.BigEndian.PutUint16(buf[11:13], bPort)
	return xxhash.Sum64(buf[:])
}
