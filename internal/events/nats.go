package events

import (
	"bytes"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/example/wp-secmeta/internal/logging"
)

var errNoConnection = errors.New("nats connection not initialized")

// NATSWriter publishes every Write as one message on a subject. Pair it with an
// Emitter to fan NDJSON events out to a message bus.
type NATSWriter struct {
	conn    *nats.Conn
	subject string
}

// ConnectNATS dials the NATS server at url.
func ConnectNATS(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("wp-secmeta"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn("events", "disconnected from NATS", "error", err)
			}
		}),
	)
}

// NewNATSWriter returns a writer that publishes to subject over conn.
func NewNATSWriter(conn *nats.Conn, subject string) *NATSWriter {
	return &NATSWriter{conn: conn, subject: subject}
}

// Write publishes p without its trailing newline.
func (w *NATSWriter) Write(p []byte) (int, error) {
	if w == nil || w.conn == nil {
		return 0, errNoConnection
	}
	if err := w.conn.Publish(w.subject, bytes.TrimRight(p, "\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close flushes pending messages and closes the connection.
func (w *NATSWriter) Close() error {
	if w == nil || w.conn == nil {
		return nil
	}
	err := w.conn.Flush()
	w.conn.Close()
	return err
}
