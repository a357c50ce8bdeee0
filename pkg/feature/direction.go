package feature

// DirectionPolicy decides a record's Direction from its parsed ports.
// Spec §4.4 step d names the default and allows an installable override
// ("implementers may override with a subnet map").
type DirectionPolicy func(srcPort, dstPort uint16) Direction

// DefaultDirectionPolicy implements spec §4.4's default rule:
// src_port > dst_port => OUTBOUND.
func DefaultDirectionPolicy(srcPort, dstPort uint16) Direction {
	if srcPort > dstPort {
		return Outbound
	}
	return Inbound
}
