package capture

import (
	"bytes"
	"testing"
	"time"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestSinkCapsAtMaxFrames(t *testing.T) {
	buf := &bytes.Buffer{}
	sink, err := New(nopCloser{buf}, 2048, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	frame := make([]byte, 64)
	for i := 0; i < 5; i++ {
		ok, err := sink.Write(frame, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if i < 2 && !ok {
			t.Fatalf("write %d should have succeeded", i)
		}
		if i >= 2 && ok {
			t.Fatalf("write %d should have been capped", i)
		}
	}
	if sink.Written() != 2 {
		t.Fatalf("written = %d, want 2", sink.Written())
	}
	if buf.Len() == 0 {
		t.Fatal("expected pcap bytes to be written")
	}
}
