package api

import (
	"net/http"
	"time"

	"github.com/xdpfeat/preprocessor/pkg/sharedmap"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]any{
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	}})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.eng.GetStats()
	writeJSON(w, http.StatusOK, Response{Success: true, Data: StatsResponse{
		TotalPackets:    snap.TotalPackets,
		FilteredPackets: snap.FilteredPackets,
		SampledPackets:  snap.SampledPackets,
		SteeredPackets:  snap.SteeredPackets,
		DroppedPackets:  snap.DroppedPackets,
		TCPPackets:      snap.TCPPackets,
		UDPPackets:      snap.UDPPackets,
		OtherPackets:    snap.OtherPackets,
		TotalBytes:      snap.TotalBytes,
		ClassifierCPUNs: snap.ClassifierCPUNs,
		AnomalySignals:  snap.AnomalySignals,

		AvgProcessingTimeUs: snap.AvgProcessingTimeUs,
		PacketsPerSecond:    snap.PacketsPerSecond,
		CPUUsagePercent:     snap.CPUUsagePercent,
	}})
}

func (s *Server) configGetHandler(w http.ResponseWriter, r *http.Request) {
	cfg := s.eng.CurrentConfig()
	writeJSON(w, http.StatusOK, Response{Success: true, Data: ConfigRequest{
		SamplingStride:     cfg.SamplingStride,
		MaxUserRate:        cfg.MaxUserRate,
		ProtocolFilterMask: uint8(cfg.ProtocolFilterMask),
		SteerQueueID:       cfg.SteerQueueID,
		BatchSize:          cfg.BatchSize,
	}})
}

func (s *Server) configUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	cfg := s.eng.CurrentConfig()
	cfg.SamplingStride = req.SamplingStride
	cfg.MaxUserRate = req.MaxUserRate
	cfg.ProtocolFilterMask = sharedmap.ProtocolFilter(req.ProtocolFilterMask)
	cfg.SteerQueueID = req.SteerQueueID
	cfg.BatchSize = req.BatchSize

	if err := s.eng.UpdateConfig(cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true})
}
