package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/xdpfeat/preprocessor/pkg/logging"
)

// setSSEHeaders and writeSSEEvent are adapted verbatim from the teacher's
// pkg/api/sse.go — the SSE wire mechanics are domain-independent.
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func writeSSEEvent(w http.ResponseWriter, data string) {
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func parseEventFilter(q url.Values) logging.EventFilter {
	var f logging.EventFilter
	if qid := q.Get("queue_id"); qid != "" {
		if n, err := strconv.ParseUint(qid, 10, 32); err == nil {
			f.QueueID = uint32(n)
		}
	}
	f.Protocol = q.Get("protocol")
	f.Type = q.Get("type")
	return f
}

// eventStreamHandler streams the engine's recent-event buffer, replaying
// backlog on connect then tailing new events until the client disconnects.
func (s *Server) eventStreamHandler(w http.ResponseWriter, r *http.Request) {
	eb := s.eng.Events()
	if eb == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	setSSEHeaders(w)

	filter := parseEventFilter(r.URL.Query())
	for _, ev := range eb.LatestFiltered(50, filter) {
		writeSSEEvent(w, formatEvent(ev))
	}

	sub := eb.Subscribe(64)
	defer sub.Close()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-sub.C:
			if filter.IsEmpty() || filter.Matches(ev) {
				writeSSEEvent(w, formatEvent(ev))
			}
		}
	}
}

func formatEvent(ev logging.EventRecord) string {
	return fmt.Sprintf(
		`{"time":%q,"type":%q,"src":%q,"dst":%q,"protocol":%q,"traffic_class":%q,"direction":%q,"queue_id":%d,"flow_hash":%d,"pkt_len":%d,"callback_code":%d}`,
		ev.Time.Format("2006-01-02T15:04:05.000Z07:00"), ev.Type, ev.SrcAddr, ev.DstAddr,
		ev.Protocol, ev.TrafficClass, ev.Direction, ev.QueueID, ev.FlowHash, ev.PktLen, ev.CallbackCode,
	)
}
