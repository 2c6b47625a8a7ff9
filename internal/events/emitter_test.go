package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// errorWriter is a writer that always returns an error.
type errorWriter struct{}

func (e *errorWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write failed")
}

// countingWriter records how many Write calls it received.
type countingWriter struct {
	mu    sync.Mutex
	calls int
	buf   bytes.Buffer
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.buf.Write(p)
}

func decodeLines(t *testing.T, data string) []Event {
	t.Helper()
	var out []Event
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		var evt Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", line, err)
		}
		out = append(out, evt)
	}
	return out
}

func TestEmitAssignsTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		check func(t *testing.T, evt Event)
	}{
		{
			name:  "zero timestamp gets assigned",
			event: Event{Type: TypeScanStart},
			check: func(t *testing.T, evt Event) {
				if time.Since(evt.Timestamp) > time.Minute || evt.Timestamp.IsZero() {
					t.Errorf("expected a recent timestamp, got %v", evt.Timestamp)
				}
			},
		},
		{
			name:  "non-zero timestamp is preserved",
			event: Event{Type: TypeScanStart, Timestamp: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)},
			check: func(t *testing.T, evt Event) {
				if !evt.Timestamp.Equal(time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)) {
					t.Errorf("timestamp changed: %v", evt.Timestamp)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := NewEmitter(buf).Emit(tt.event); err != nil {
				t.Fatalf("Emit() error = %v", err)
			}
			events := decodeLines(t, buf.String())
			if len(events) != 1 {
				t.Fatalf("expected 1 line, got %d", len(events))
			}
			tt.check(t, events[0])
		})
	}
}

func TestScanEmitterStampsScanID(t *testing.T) {
	buf := &bytes.Buffer{}
	emitter := NewScanEmitter(buf, "scan-123")

	if err := emitter.Emit(Event{Type: TypeDetection, Fields: map[string]interface{}{"target": "./plugin"}}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := emitter.Emit(Event{Type: TypeScanFinished, ScanID: "explicit"}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	events := decodeLines(t, buf.String())
	if events[0].ScanID != "scan-123" {
		t.Fatalf("expected scan id to be stamped, got %q", events[0].ScanID)
	}
	if events[1].ScanID != "explicit" {
		t.Fatalf("explicit scan id must win, got %q", events[1].ScanID)
	}
}

func TestEmitWritesOncePerEvent(t *testing.T) {
	w := &countingWriter{}
	emitter := NewEmitter(w)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := emitter.Emit(Event{Type: TypeDetection, Fields: map[string]interface{}{"n": i}}); err != nil {
				t.Errorf("emit: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if w.calls != 20 {
		t.Fatalf("expected 20 writes, got %d", w.calls)
	}
	if got := len(decodeLines(t, w.buf.String())); got != 20 {
		t.Fatalf("expected 20 lines, got %d", got)
	}
}

func TestEmitErrors(t *testing.T) {
	if err := NewEmitter(&errorWriter{}).Emit(Event{Type: TypeReport}); err == nil {
		t.Fatal("expected write error")
	}

	bad := Event{Type: TypeReport, Fields: map[string]interface{}{"ch": make(chan int)}}
	if err := NewEmitter(io.Discard).Emit(bad); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestNATSWriterWithoutConnection(t *testing.T) {
	var w *NATSWriter
	if _, err := w.Write([]byte("{}\n")); !errors.Is(err, errNoConnection) {
		t.Fatalf("expected errNoConnection, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close on nil writer: %v", err)
	}

	if _, err := NewNATSWriter(nil, "secmeta.events").Write([]byte("{}")); !errors.Is(err, errNoConnection) {
		t.Fatalf("expected errNoConnection, got %v", err)
	}
}

func TestConnectNATSUnreachable(t *testing.T) {
	if _, err := ConnectNATS("nats://127.0.0.1:1"); err == nil {
		t.Fatal("expected connection error")
	}
}
