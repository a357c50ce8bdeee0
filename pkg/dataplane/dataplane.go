// Package dataplane loads and attaches the XDP classifier
// (bpf/xdp/xdp_classifier.c) and exposes its shared maps — statistics,
// configuration, and the XSK steering map — to the control surface. It is
// the eBPF-backed implementation of the pkg/sharedmap contract, used when
// the host supports XDP; pkg/classifier's pure-Go path and an AF_PACKET
// fallback source serve hosts that don't.
package dataplane

import "fmt"

// AttachMode selects how the classifier program is bound to the NIC.
type AttachMode int

const (
	// ModeXDPGeneric uses the generic (non-driver) XDP hook, available on
	// any NIC driver at some throughput cost.
	ModeXDPGeneric AttachMode = iota
	// ModeXDPDriver uses the native driver XDP hook for full performance.
	ModeXDPDriver
)

// Error wraps a platform-level attach/load failure with the interface and
// underlying cause, so callers can map it to the §7 taxonomy
// (AttachFailed, PermissionDenied, InterfaceNotFound) without string
// matching.
type Error struct {
	Op    string
	Iface string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dataplane: %s %s: %v", e.Op, e.Iface, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
