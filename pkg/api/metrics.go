package api

import "github.com/prometheus/client_golang/prometheus"

// collector adapts the engine's Snapshot into Prometheus metrics, the same
// isolated-registry pattern the teacher's pkg/api/metrics.go uses.
type collector struct {
	s *Server
}

func newCollector(s *Server) *collector { return &collector{s: s} }

var descs = map[string]*prometheus.Desc{
	"total_packets":     prometheus.NewDesc("xdppreproc_total_packets", "Total packets observed by the classifier.", nil, nil),
	"filtered_packets":  prometheus.NewDesc("xdppreproc_filtered_packets", "Packets passing the protocol filter.", nil, nil),
	"sampled_packets":   prometheus.NewDesc("xdppreproc_sampled_packets", "Packets selected by the sampling stride.", nil, nil),
	"steered_packets":   prometheus.NewDesc("xdppreproc_steered_packets", "Packets steered to a drainer queue.", nil, nil),
	"dropped_packets":   prometheus.NewDesc("xdppreproc_dropped_packets", "Packets dropped for malformed headers or ring pressure.", nil, nil),
	"tcp_packets":       prometheus.NewDesc("xdppreproc_tcp_packets", "TCP packets observed.", nil, nil),
	"udp_packets":       prometheus.NewDesc("xdppreproc_udp_packets", "UDP packets observed.", nil, nil),
	"other_packets":     prometheus.NewDesc("xdppreproc_other_packets", "Non-TCP/UDP packets observed.", nil, nil),
	"total_bytes":       prometheus.NewDesc("xdppreproc_total_bytes", "Total bytes observed.", nil, nil),
	"classifier_cpu_ns": prometheus.NewDesc("xdppreproc_classifier_cpu_nanoseconds_total", "Cumulative classifier CPU time.", nil, nil),
	"anomaly_signals":   prometheus.NewDesc("xdppreproc_anomaly_signals_total", "Non-zero or failed analysis callback returns.", nil, nil),

	"avg_processing_time_us": prometheus.NewDesc("xdppreproc_avg_processing_time_microseconds", "Average classifier time per packet.", nil, nil),
	"packets_per_second":     prometheus.NewDesc("xdppreproc_packets_per_second", "Packet throughput since start.", nil, nil),
	"cpu_usage_percent":      prometheus.NewDesc("xdppreproc_cpu_usage_percent", "Classifier CPU usage as a percent of available capacity.", nil, nil),
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descs {
		ch <- d
	}
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.s.eng.GetStats()
	emit := func(key string, v uint64) {
		ch <- prometheus.MustNewConstMetric(descs[key], prometheus.CounterValue, float64(v))
	}
	gauge := func(key string, v float64) {
		ch <- prometheus.MustNewConstMetric(descs[key], prometheus.GaugeValue, v)
	}
	emit("total_packets", snap.TotalPackets)
	emit("filtered_packets", snap.FilteredPackets)
	emit("sampled_packets", snap.SampledPackets)
	emit("steered_packets", snap.SteeredPackets)
	emit("dropped_packets", snap.DroppedPackets)
	emit("tcp_packets", snap.TCPPackets)
	emit("udp_packets", snap.UDPPackets)
	emit("other_packets", snap.OtherPackets)
	emit("total_bytes", snap.TotalBytes)
	emit("classifier_cpu_ns", snap.ClassifierCPUNs)
	emit("anomaly_signals", snap.AnomalySignals)

	gauge("avg_processing_time_us", snap.AvgProcessingTimeUs)
	gauge("packets_per_second", snap.PacketsPerSecond)
	gauge("cpu_usage_percent", snap.CPUUsagePercent)
}
