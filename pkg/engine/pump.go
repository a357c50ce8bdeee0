package engine

import (
	"context"

	"github.com/xdpfeat/preprocessor/pkg/classifier"
	"github.com/xdpfeat/preprocessor/pkg/sharedmap"
)

// classifyPump is the Go-side equivalent of the in-kernel classifier's per
// packet invocation (spec §4.2): read a frame, classify it, and on Steer
// hand it to the target queue's ring. Runs until ctx is cancelled, at
// which point the owning Engine closes the frame source to unblock the
// pending read.
func (e *Engine) classifyPump(ctx context.Context, cpu *classifier.PerCPUState) error {
	buf := make([]byte, e.cfg.Config.FrameSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := e.source.ReadFrame(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			continue
		}
		if n == 0 {
			continue
		}

		cfg := e.table.ConfigLoad()
		verdict := classifier.Classify(buf[:n], cfg, cpu, e.table.Stats)
		if verdict.Action != classifier.Steer {
			continue
		}

		q, ok := e.queues[verdict.QueueID]
		if !ok {
			e.table.StatsAdd(sharedmap.StatDroppedPackets, 1)
			continue
		}

		if q.RX.Full() {
			// RX-ring full: count the drop before taking a frame off the
			// fill ring, so the drainer stays the fill ring's only
			// producer. The pump is the RX ring's only producer, so once
			// this check passes the Publish below has room.
			e.table.StatsAdd(sharedmap.StatDroppedPackets, 1)
			continue
		}

		offset, ok := q.Reserve()
		if !ok {
			// Fill-ring starvation: drainer can't keep up.
			e.table.StatsAdd(sharedmap.StatDroppedPackets, 1)
			continue
		}
		frameBuf := q.Pool.Frame(offset)
		copy(frameBuf, buf[:n])

		if !q.Publish(offset, uint16(n)) {
			// RX-ring full: return the frame and count the drop,
			// never DROP real traffic for ring pressure.
			q.Release(offset)
			e.table.StatsAdd(sharedmap.StatDroppedPackets, 1)
			continue
		}
		e.table.StatsAdd(sharedmap.StatSteeredPackets, 1)
	}
}
