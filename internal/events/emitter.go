package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event types emitted by the scan pipeline.
const (
	TypeScanStart       = "scan-start"
	TypeDetection       = "detection"
	TypeArtifactWritten = "artifact-written"
	TypeScanFinished    = "scan-finished"
	TypeReport          = "report"
)

// Event represents a single NDJSON record for CI-friendly logs.
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	ScanID    string                 `json:"scanId,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emitter writes NDJSON events to an io.Writer safely across goroutines.
// Each event is written with a single Write call.
type Emitter struct {
	writer io.Writer
	scanID string
	mu     sync.Mutex
}

// NewEmitter returns a new NDJSON emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{writer: w}
}

// NewScanEmitter returns an emitter that stamps every event with scanID.
func NewScanEmitter(w io.Writer, scanID string) *Emitter {
	return &Emitter{writer: w, scanID: scanID}
}

// Emit serializes the event to JSON and appends a newline.
func (e *Emitter) Emit(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.ScanID == "" {
		evt.ScanID = e.scanID
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.writer.Write(append(payload, '\n')); err != nil {
		return err
	}

	return nil
}
