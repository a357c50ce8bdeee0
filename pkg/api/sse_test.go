package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/xdpfeat/preprocessor/pkg/engine"
	"github.com/xdpfeat/preprocessor/pkg/logging"
)

func TestSetSSEHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	setSSEHeaders(w)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}
}

func TestWriteSSEEvent(t *testing.T) {
	w := httptest.NewRecorder()
	writeSSEEvent(w, `{"key":"value"}`)

	body := w.Body.String()
	if !strings.HasPrefix(body, "data: {\"key\":\"value\"}\n") {
		t.Errorf("unexpected body: %q", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Errorf("SSE event should end with double newline, got %q", body)
	}
}

func TestParseEventFilter(t *testing.T) {
	q, _ := url.ParseQuery("queue_id=2&protocol=tcp&type=anomaly")
	f := parseEventFilter(q)
	if f.QueueID != 2 || f.Protocol != "tcp" || f.Type != "anomaly" {
		t.Errorf("unexpected filter: %+v", f)
	}
}

func TestEventStreamHandler(t *testing.T) {
	eng := newTestEngine(t)
	s := &Server{eng: eng}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/events/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.eventStreamHandler(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	eng.Events().Add(logging.EventRecord{
		Time:     time.Now(),
		Type:     "STEERED",
		SrcAddr:  "10.0.1.5:51413",
		DstAddr:  "10.0.2.1:443",
		Protocol: "TCP",
	})

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "STEERED") {
		t.Errorf("expected STEERED event in body, got %q", body)
	}
	if !strings.Contains(body, "10.0.1.5:51413") {
		t.Errorf("expected source addr in body, got %q", body)
	}
}

func TestEventStreamHandlerFiltersByType(t *testing.T) {
	eng := newTestEngine(t)
	s := &Server{eng: eng}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/events/stream?type=anomaly", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.eventStreamHandler(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	eng.Events().Add(logging.EventRecord{Time: time.Now(), Type: "STEERED", Protocol: "TCP"})
	eng.Events().Add(logging.EventRecord{Time: time.Now(), Type: "ANOMALY_SIGNAL", Protocol: "TCP"})

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if strings.Contains(body, `"type":"STEERED"`) {
		t.Errorf("STEERED event should have been filtered out, got %q", body)
	}
	if !strings.Contains(body, "ANOMALY_SIGNAL") {
		t.Errorf("expected ANOMALY_SIGNAL event in body, got %q", body)
	}
}

func TestEventStreamHandlerNoBuffer(t *testing.T) {
	s := &Server{eng: &engine.Engine{}} // zero-value engine: Events() returns nil
	req := httptest.NewRequest("GET", "/api/v1/events/stream", nil)
	w := httptest.NewRecorder()

	s.eventStreamHandler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
