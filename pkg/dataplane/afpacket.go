package dataplane

import (
	"fmt"
	"net"

	"github.com/mdlayher/packet"
	"github.com/vishvananda/netlink"
)

// FrameSource is the minimal boundary pkg/engine needs to pull raw frames
// off a NIC, independent of whether delivery is the real zero-copy AF_XDP
// path or the copy-based fallback.
type FrameSource interface {
	ReadFrame(buf []byte) (n int, err error)
	Close() error
}

// AFPacketSource reads raw Ethernet frames from a raw AF_PACKET socket via
// github.com/mdlayher/packet. This is the copy-based delivery path spec
// §6 requires when zero_copy_mode is false, and is also this module's
// portable default: hand-rolling the kernel AF_XDP umem mmap/socket
// registration sequence is out of scope for a module whose classifier
// fast path already runs for real inside bpf/xdp/xdp_classifier.c — the
// Go-side socket here only needs to deliver bytes into pkg/xskring's
// pool/ring discipline, which it does by copy.
type AFPacketSource struct {
	conn *packet.Conn
}

// NewAFPacketSource opens a raw socket bound to the named interface.
func NewAFPacketSource(ifaceName string) (*AFPacketSource, error) {
	link_, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return nil, &Error{Op: "open", Iface: ifaceName, Err: fmt.Errorf("interface not found: %w", err)}
	}
	ifi := &net.Interface{
		Index:        link_.Attrs().Index,
		MTU:          link_.Attrs().MTU,
		Name:         link_.Attrs().Name,
		HardwareAddr: link_.Attrs().HardwareAddr,
	}

	conn, err := packet.Listen(ifi, packet.Raw, 0, nil)
	if err != nil {
		return nil, &Error{Op: "listen", Iface: ifaceName, Err: err}
	}
	return &AFPacketSource{conn: conn}, nil
}

// ReadFrame reads the next raw frame into buf.
func (s *AFPacketSource) ReadFrame(buf []byte) (int, error) {
	n, _, err := s.conn.ReadFrom(buf)
	return n, err
}

// Close releases the underlying socket.
func (s *AFPacketSource) Close() error {
	return s.conn.Close()
}
