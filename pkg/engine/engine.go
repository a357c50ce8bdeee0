// Package engine implements the Control & Telemetry Surface of spec §4.5:
// init/start/stop/destroy, get_stats, update_config, set_classifier,
// enable_capture, enable_flow_tracking, over the classifier + zero-copy
// transport + drainer stack.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xdpfeat/preprocessor/pkg/capture"
	"github.com/xdpfeat/preprocessor/pkg/classifier"
	"github.com/xdpfeat/preprocessor/pkg/config"
	"github.com/xdpfeat/preprocessor/pkg/dataplane"
	"github.com/xdpfeat/preprocessor/pkg/feature"
	"github.com/xdpfeat/preprocessor/pkg/flowtrack"
	"github.com/xdpfeat/preprocessor/pkg/logging"
	"github.com/xdpfeat/preprocessor/pkg/sharedmap"
	"github.com/xdpfeat/preprocessor/pkg/xskring"
)

// eventBufferSize bounds the in-memory ring of recent drainer events the
// SSE surface (pkg/api) replays to newly connecting clients.
const eventBufferSize = 1024

// Callback is the analysis callback of spec §4.4/§9: synchronous,
// reentrant across drainer goroutines, must not retain the record past
// return. Its return value is opaque to the drainer and only counted into
// anomaly_signals.
type Callback func(rec *feature.Record) int

type runState int

const (
	stateNotInitialized runState = iota
	stateInitialized
	stateRunning
	stateStopped
)

// Engine is the handle spec §4.5's init/start/stop/destroy operate on —
// the Go equivalent of the original C API's opaque ml_packet_processor_t*.
type Engine struct {
	mu    sync.Mutex
	state runState

	cfg       config.Config
	callback  Callback
	startTime time.Time // monotonic reference point for rec.TimestampNanos

	table     *sharedmap.Table
	queues    map[uint32]*xskring.Queue
	flowTabs  map[uint32]*flowtrack.Table
	extractor *feature.Extractor

	source    dataplane.FrameSource
	kernelMgr *dataplane.Manager

	captureSink *capture.Sink
	events      *logging.EventBuffer
	localLog    *logging.LocalLogWriter

	classPolicy func(protocol uint8, srcPort, dstPort uint16) classifier.TrafficClass
	rateLimiter *rate.Limiter // nil when max_user_rate is unlimited

	cancel           context.CancelFunc
	eg               *errgroup.Group
	runCtx           context.Context // supervised context live goroutines (flow sweeps) attach to
	flowTrackTimeout time.Duration
}

// Init validates cfg and allocates the per-queue rings and frame pools,
// without starting any goroutine. Flow tables are not created here; they
// are installed by EnableFlowTracking.
func Init(cfg config.Config, cb Callback) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, newErr(InvalidArgument, "init", err)
	}
	if cb == nil {
		return nil, newErr(InvalidArgument, "init", fmt.Errorf("callback is required"))
	}

	e := &Engine{
		cfg:       cfg,
		callback:  cb,
		startTime: time.Now(),
		table:     sharedmap.New(cfg.Config),
		queues:    make(map[uint32]*xskring.Queue),
		flowTabs:  make(map[uint32]*flowtrack.Table),
		extractor: feature.NewExtractor(),
		events:    logging.NewEventBuffer(eventBufferSize),
	}

	for _, qid := range cfg.QueueIDs {
		q, err := xskring.NewQueue(cfg.Config.FrameSize, cfg.Config.PoolFrames, cfg.Config.RingCapacity)
		if err != nil {
			return nil, newErr(ResourceExhausted, "init", err)
		}
		e.queues[qid] = q
		e.table.SteerSet(qid, q)
	}

	if cfg.MaxUserRate > 0 {
		e.rateLimiter = rate.NewLimiter(rate.Limit(cfg.MaxUserRate), int(cfg.BatchSize))
	}

	e.state = stateInitialized
	return e, nil
}

// Start opens the frame source (always the AF_PACKET copy-based path; when
// zero_copy_mode is set it also attempts, non-fatally, to attach the
// kernel XDP program alongside it) and launches one classifier pump plus one
// drainer goroutine per steered queue, supervised by an errgroup so the
// first failure is observable from Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateRunning {
		return newErr(AlreadyRunning, "start", nil)
	}
	if e.state != stateInitialized && e.state != stateStopped {
		return newErr(NotInitialized, "start", nil)
	}

	source, kernelMgr, err := e.openSource()
	if err != nil {
		return err
	}
	e.source = source
	e.kernelMgr = kernelMgr

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	eg, egCtx := errgroup.WithContext(runCtx)
	e.eg = eg
	e.runCtx = egCtx

	cpu := &classifier.PerCPUState{}
	eg.Go(func() error { return e.classifyPump(egCtx, cpu) })

	for qid, q := range e.queues {
		qid, q := qid, q
		eg.Go(func() error { return e.drainLoop(egCtx, qid, q) })
	}

	sweepInterval := flowSweepInterval(e.flowTrackTimeout)
	for _, tab := range e.flowTabs {
		tab := tab
		eg.Go(func() error { tab.Run(egCtx, sweepInterval); return nil })
	}

	e.state = stateRunning
	return nil
}

// Stop signals every goroutine to exit and blocks until all drainers have
// observed the stop signal and returned, per spec §5's control-surface
// suspension point.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cancel := e.cancel
	eg := e.eg
	source := e.source
	kernelMgr := e.kernelMgr
	e.mu.Unlock()

	if cancel == nil {
		return newErr(NotInitialized, "stop", nil)
	}
	cancel()
	if source != nil {
		source.Close()
	}
	var err error
	if eg != nil {
		err = eg.Wait()
	}
	if kernelMgr != nil {
		kernelMgr.Close()
	}

	e.mu.Lock()
	e.state = stateStopped
	e.mu.Unlock()

	if err != nil {
		return newErr(CallbackFailed, "stop", err)
	}
	return nil
}

// Destroy releases every resource held by the engine. The engine handle
// must not be used afterward.
func (e *Engine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.captureSink != nil {
		e.captureSink.Close()
	}
	if e.localLog != nil {
		e.localLog.Close()
	}
	e.state = stateNotInitialized
	return nil
}

// GetStats returns a point-in-time statistics snapshot, with the derived
// rates (spec §4.5) computed from the raw counters and the time elapsed
// since Init.
func (e *Engine) GetStats() Snapshot {
	raw := e.table.Stats.Snapshot()
	elapsed := time.Since(e.startTime).Seconds()

	snap := Snapshot{Snapshot: raw}
	if elapsed > 0 {
		snap.PacketsPerSecond = float64(raw.TotalPackets) / elapsed
	}
	if raw.TotalPackets > 0 {
		snap.AvgProcessingTimeUs = float64(raw.ClassifierCPUNs) / float64(raw.TotalPackets) / 1000
	}
	snap.CPUUsagePercent = cpuUsagePercent(raw.ClassifierCPUNs, elapsed)
	return snap
}

// CurrentConfig returns the live configuration snapshot, for callers (the
// HTTP control surface) that need to patch individual fields before
// calling UpdateConfig.
func (e *Engine) CurrentConfig() sharedmap.Config {
	return e.table.ConfigLoad()
}

// Events exposes the recent-event ring buffer the SSE surface subscribes
// to; nil only before Init completes.
func (e *Engine) Events() *logging.EventBuffer {
	return e.events
}

// Running reports whether Start has completed and Stop has not yet been
// called, for control surfaces (the gRPC health service) that mirror the
// engine's lifecycle rather than driving it.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateRunning
}

// UpdateConfig installs a new configuration snapshot live, taking effect
// on the classifier's next packet per spec §4.1's atomic-swap contract.
func (e *Engine) UpdateConfig(cfg sharedmap.Config) error {
	if err := cfg.Validate(); err != nil {
		return newErr(InvalidArgument, "update_config", err)
	}
	e.table.ConfigStore(cfg)
	if e.kernelMgr != nil {
		if err := e.kernelMgr.WriteConfig(cfg); err != nil {
			return newErr(AttachFailed, "update_config", err)
		}
	}

	e.mu.Lock()
	if cfg.MaxUserRate > 0 {
		e.rateLimiter = rate.NewLimiter(rate.Limit(cfg.MaxUserRate), int(cfg.BatchSize))
	} else {
		e.rateLimiter = nil
	}
	e.mu.Unlock()
	return nil
}

// SetLocalLog installs a local file sink that mirrors every drainer event
// alongside the in-memory EventBuffer the SSE surface reads from — the
// same "event" log mode the teacher's security daemon offers as an
// alternative to streaming straight to remote syslog. Pass nil to disable.
func (e *Engine) SetLocalLog(lw *logging.LocalLogWriter) {
	e.mu.Lock()
	e.localLog = lw
	e.mu.Unlock()
}

// EnableCapture turns on the PCAP tee for every steered frame, replacing
// whatever capture sink (if any) was previously installed. Passing a sink
// that doesn't implement io.Closer is fine — it is wrapped so Destroy can
// still call Close uniformly. maxFrames caps the capture at that many
// frames (0 = unlimited), per the enable_capture(handle, sink, max)
// operation.
func (e *Engine) EnableCapture(sink io.Writer, maxFrames int) error {
	wc, ok := sink.(io.WriteCloser)
	if !ok {
		wc = nopWriteCloser{sink}
	}
	s, err := capture.New(wc, e.cfg.Config.FrameSize, maxFrames)
	if err != nil {
		return newErr(ResourceExhausted, "enable_capture", err)
	}

	e.mu.Lock()
	old := e.captureSink
	e.captureSink = s
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// EnableFlowTracking installs a fresh per-queue FlowTable sized for
// maxEntries with the given idle timeout, per the
// enable_flow_tracking(handle, n, t) operation. It replaces any tables
// already in use; drainers pick up the new tables on their next frame. If
// the engine is already running, a sweep goroutine per table is started
// immediately under the engine's run context so idle flows evict by
// timeout rather than only by LRU-on-insert; otherwise the tables are
// swept starting from Start.
func (e *Engine) EnableFlowTracking(maxEntries int, timeout time.Duration) error {
	if maxEntries <= 0 {
		return newErr(InvalidArgument, "enable_flow_tracking", fmt.Errorf("max entries must be positive"))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.flowTrackTimeout = timeout
	interval := flowSweepInterval(timeout)
	for qid := range e.queues {
		tab := flowtrack.New(maxEntries, timeout)
		e.flowTabs[qid] = tab
		if e.eg != nil && e.runCtx != nil {
			runCtx := e.runCtx
			e.eg.Go(func() error { tab.Run(runCtx, interval); return nil })
		}
	}
	return nil
}

// flowSweepIntervalFloor and flowSweepIntervalCeil bound how often a flow
// table's idle-timeout sweep runs, independent of how long the timeout
// itself is, the same separation the session garbage collector draws
// between its own sweep cadence and each session's timeout.
const (
	flowSweepIntervalFloor = time.Second
	flowSweepIntervalCeil  = time.Minute
)

// flowSweepInterval picks a sweep cadence proportional to the idle
// timeout, so short timeouts are swept responsively and long ones don't
// burn CPU sweeping tables that rarely have anything to evict.
func flowSweepInterval(timeout time.Duration) time.Duration {
	interval := timeout / 4
	if interval < flowSweepIntervalFloor {
		interval = flowSweepIntervalFloor
	}
	if interval > flowSweepIntervalCeil {
		interval = flowSweepIntervalCeil
	}
	return interval
}

// nopWriteCloser adapts an io.Writer without a Close method into an
// io.WriteCloser whose Close is a no-op, so EnableCapture's caller isn't
// forced to hand over ownership of a sink it wants to keep open itself.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// SetClassifier replaces the tag policy used in classifier step 5.
func (e *Engine) SetClassifier(policy func(protocol uint8, srcPort, dstPort uint16) classifier.TrafficClass) {
	e.mu.Lock()
	e.classPolicy = policy
	e.mu.Unlock()
}
