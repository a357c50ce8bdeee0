package engine

import (
	"errors"
	"log/slog"
	"os"
	"syscall"

	"github.com/xdpfeat/preprocessor/pkg/dataplane"
)

// openSource resolves the interface and opens a frame source for the
// classifier pump. When zero_copy_mode is requested, it first attempts to
// load and attach the real in-kernel XDP classifier (exercising
// pkg/dataplane's attach lifecycle and shared maps on hosts that support
// it); the Go-side classify+drain pipeline runs unconditionally over the
// AF_PACKET copy-based source so the control surface and feature
// extraction are always exercised end-to-end regardless of which kernel
// path, if any, is also active.
func (e *Engine) openSource() (dataplane.FrameSource, *dataplane.Manager, error) {
	var kernelMgr *dataplane.Manager
	if e.cfg.Config.ZeroCopyMode {
		mgr, err := dataplane.New()
		if err != nil {
			slog.Warn("xdp classifier unavailable, continuing without kernel fast path", "err", err)
		} else if err := mgr.AttachXDP(e.cfg.Interface, dataplane.ModeXDPGeneric); err != nil {
			slog.Warn("xdp attach failed, continuing without kernel fast path", "interface", e.cfg.Interface, "err", err)
			mgr.Close()
		} else {
			if werr := mgr.WriteConfig(e.cfg.Config); werr != nil {
				slog.Warn("failed to sync initial config into kernel map", "err", werr)
			}
			kernelMgr = mgr
		}
	}

	source, err := dataplane.NewAFPacketSource(e.cfg.Interface)
	if err != nil {
		if kernelMgr != nil {
			kernelMgr.Close()
		}
		if de, ok := err.(*dataplane.Error); ok {
			return nil, nil, classifyOpenErr(de)
		}
		return nil, nil, newErr(AttachFailed, "start", err)
	}
	return source, kernelMgr, nil
}

func classifyOpenErr(de *dataplane.Error) error {
	switch de.Op {
	case "open":
		return newErr(InterfaceNotFound, "start", de)
	case "listen":
		if isPermissionError(de.Err) {
			return newErr(PermissionDenied, "start", de)
		}
		return newErr(AttachFailed, "start", de)
	default:
		return newErr(AttachFailed, "start", de)
	}
}

// isPermissionError reports whether err is the kind of EACCES/EPERM
// failure packet.Listen returns when the process lacks CAP_NET_RAW.
func isPermissionError(err error) bool {
	return errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM)
}
