// Package api implements the HTTP control and telemetry surface described
// informally in spec §4.5: JSON endpoints over GetStats/UpdateConfig, an
// SSE event stream over the engine's recent-event buffer, and a
// Prometheus /metrics endpoint — the same shape the teacher's pkg/api
// exposes for the firewall domain, retargeted at feature-record telemetry.
package api

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every JSON endpoint replies with.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// StatsResponse mirrors engine.Snapshot for the wire, keeping the JSON
// field names stable independent of the Go struct's field names.
type StatsResponse struct {
	TotalPackets    uint64 `json:"total_packets"`
	FilteredPackets uint64 `json:"filtered_packets"`
	SampledPackets  uint64 `json:"sampled_packets"`
	SteeredPackets  uint64 `json:"steered_packets"`
	DroppedPackets  uint64 `json:"dropped_packets"`
	TCPPackets      uint64 `json:"tcp_packets"`
	UDPPackets      uint64 `json:"udp_packets"`
	OtherPackets    uint64 `json:"other_packets"`
	TotalBytes      uint64 `json:"total_bytes"`
	ClassifierCPUNs uint64 `json:"classifier_cpu_ns"`
	AnomalySignals  uint64 `json:"anomaly_signals"`

	AvgProcessingTimeUs float64 `json:"avg_processing_time_us"`
	PacketsPerSecond    float64 `json:"packets_per_second"`
	CPUUsagePercent     float64 `json:"cpu_usage_percent"`
}

// ConfigRequest is the body of POST /api/v1/config.
type ConfigRequest struct {
	SamplingStride      uint32 `json:"sampling_stride"`
	MaxUserRate         uint64 `json:"max_user_rate"`
	ProtocolFilterMask  uint8  `json:"protocol_filter_mask"`
	SteerQueueID        uint32 `json:"steer_queue_id"`
	BatchSize           uint32 `json:"batch_size"`
}
