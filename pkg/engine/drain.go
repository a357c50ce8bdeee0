package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xdpfeat/preprocessor/pkg/classifier"
	"github.com/xdpfeat/preprocessor/pkg/feature"
	"github.com/xdpfeat/preprocessor/pkg/logging"
	"github.com/xdpfeat/preprocessor/pkg/sharedmap"
	"github.com/xdpfeat/preprocessor/pkg/xskring"
)

func protoName(p uint8) string {
	switch p {
	case 6:
		return "TCP"
	case 17:
		return "UDP"
	case 1:
		return "ICMP"
	default:
		return "OTHER"
	}
}

func addrString(ip uint32, port uint16) string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip), port)
}

// drainBatchWait bounds how long drainLoop blocks between non-empty polls
// of the RX ring before re-checking ctx, so Stop's cancellation is
// observed promptly even under no traffic.
const drainBatchWait = 10 * time.Millisecond

// drainLoop implements spec §4.4's batch loop for one steered queue: pop up
// to batch_size descriptors, re-parse each into a Record, invoke the
// callback, and release the frame back to the fill ring. On ctx
// cancellation it drains whatever is already on the RX ring before
// returning, per the shutdown paragraph of spec §4.4.
func (e *Engine) drainLoop(ctx context.Context, qid uint32, q *xskring.Queue) error {
	for {
		cfg := e.table.ConfigLoad()
		batch := q.RX.PopBatch(int(cfg.BatchSize))

		for _, d := range batch {
			e.processFrame(qid, q, d)
		}

		if len(batch) > 0 {
			continue // keep draining while the ring has work queued
		}

		select {
		case <-ctx.Done():
			// Final best-effort drain of whatever arrived between the
			// last empty poll and cancellation.
			for {
				rest := q.RX.PopBatch(int(cfg.BatchSize))
				if len(rest) == 0 {
					return nil
				}
				for _, d := range rest {
					e.processFrame(qid, q, d)
				}
			}
		case <-time.After(drainBatchWait):
		}
	}
}

func (e *Engine) processFrame(qid uint32, q *xskring.Queue, d xskring.Descriptor) {
	defer q.Release(d.Offset())

	frame := q.Pool.Frame(d.Offset())
	if frame == nil {
		return
	}
	n := int(d.Length())
	if n > len(frame) {
		n = len(frame)
	}

	e.mu.Lock()
	limiter := e.rateLimiter
	tag := classifier.ClassifyTag
	if e.classPolicy != nil {
		tag = e.classPolicy
	}
	flowTab := e.flowTabs[qid]
	captureSink := e.captureSink
	e.mu.Unlock()
	if limiter != nil && !limiter.Allow() {
		e.table.StatsAdd(sharedmap.StatDroppedPackets, 1)
		return
	}

	rec, payload, ok := e.extractor.Extract(frame[:n], classifier.Normal)
	if !ok {
		return
	}
	rec.TrafficClass = tag(rec.Protocol, rec.SrcPort, rec.DstPort)
	rec.TimestampNanos = time.Since(e.startTime).Nanoseconds()
	rec.PacketEntropy = feature.ShannonEntropy(payload)
	rec.FlowHash = feature.FlowHash(rec.Protocol, rec.SrcIP, rec.DstIP, rec.SrcPort, rec.DstPort)
	// flowtrack.Table.Run sweeps against time.Now().UnixNano(), so observe
	// on that clock (anchored to startTime's monotonic reading).
	rec.InterArrivalMicro = flowTab.Observe(rec.FlowHash, e.startTime.UnixNano()+rec.TimestampNanos)

	if captureSink != nil {
		captureSink.Write(frame[:n], time.Now())
	}

	code, failed := e.invokeCallback(&rec)

	evType := "STEERED"
	if failed {
		evType = "CALLBACK_FAILED"
		e.table.StatsAdd(sharedmap.StatAnomalySignals, 1)
	} else if code != 0 {
		evType = "ANOMALY_SIGNAL"
		e.table.StatsAdd(sharedmap.StatAnomalySignals, 1)
	}
	evRec := logging.EventRecord{
		Time:         time.Now(),
		Type:         evType,
		SrcAddr:      addrString(rec.SrcIP, rec.SrcPort),
		DstAddr:      addrString(rec.DstIP, rec.DstPort),
		Protocol:     protoName(rec.Protocol),
		TrafficClass: rec.TrafficClass.String(),
		Direction:    rec.Direction.String(),
		QueueID:      qid,
		FlowHash:     rec.FlowHash,
		PktLen:       rec.PktLen,
		CallbackCode: code,
	}
	e.events.Add(evRec)

	e.mu.Lock()
	lw := e.localLog
	e.mu.Unlock()
	if lw != nil {
		lw.Send(severityForEvent(evType), formatLocalLogLine(evRec))
	}
}

func severityForEvent(evType string) int {
	switch evType {
	case "CALLBACK_FAILED":
		return logging.SyslogError
	case "ANOMALY_SIGNAL":
		return logging.SyslogWarning
	default:
		return logging.SyslogInfo
	}
}

func formatLocalLogLine(ev logging.EventRecord) string {
	return fmt.Sprintf("%s queue=%d src=%s dst=%s proto=%s class=%s dir=%s flow=%d code=%d",
		ev.Type, ev.QueueID, ev.SrcAddr, ev.DstAddr, ev.Protocol, ev.TrafficClass, ev.Direction, ev.FlowHash, ev.CallbackCode)
}

// invokeCallback calls the user callback with panic recovery: a panicking
// callback is reported as a CallbackFailed signal rather than taking down
// the drainer goroutine, per spec §7's propagation policy for callback
// errors.
func (e *Engine) invokeCallback(rec *feature.Record) (code int, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("analysis callback panicked", "recover", r, "flow_hash", rec.FlowHash)
			failed = true
		}
	}()
	code = e.callback(rec)
	return code, false
}
