package engine

import (
	"runtime"

	"github.com/xdpfeat/preprocessor/pkg/sharedmap"
)

// Snapshot extends the raw counter snapshot with the derived rates spec
// §4.5's get_stats operation promises on top of sharedmap's shared atomic
// counters: average per-packet classifier time, throughput, and aggregate
// CPU utilization. The raw fields are embedded so callers that only want
// the counters can keep treating a Snapshot like a sharedmap.Snapshot.
type Snapshot struct {
	sharedmap.Snapshot

	AvgProcessingTimeUs float64
	PacketsPerSecond    float64
	CPUUsagePercent     float64
}

// cpuUsagePercent expresses classifier CPU time as a percentage of the
// wall-clock capacity available across every logical CPU, capped at 100
// since a slow host reporting >100% is more confusing than informative.
func cpuUsagePercent(classifierCPUNs uint64, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	capacityNs := elapsedSeconds * 1e9 * float64(runtime.NumCPU())
	if capacityNs <= 0 {
		return 0
	}
	pct := float64(classifierCPUNs) / capacityNs * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
