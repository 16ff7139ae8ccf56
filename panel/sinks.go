package panel

import (
	"io"
	"log/slog"

	"github.com/hazyhaar/dominspect/internal/sink"
)

// Sink re-exports the event sink interface for host applications.
type Sink = sink.Sink

// EventFunc re-exports the in-process callback signature.
type EventFunc = sink.EventFunc

// EventHub re-exports the WebSocket broadcast hub.
type EventHub = sink.WebSocketHub

// NewStdoutSink creates a JSON-lines sink (nil writer = os.Stdout).
func NewStdoutSink(w io.Writer) Sink { return sink.NewStdout(w) }

// NewCallbackSink creates an in-process callback sink.
func NewCallbackSink(fn EventFunc) Sink { return sink.NewCallback(fn) }

// NewWebhookSink creates a webhook sink POSTing each event to url.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewEventHub creates a WebSocket hub that is both a Sink and an HTTP
// handler for the control API's events route.
func NewEventHub(logger *slog.Logger) *EventHub { return sink.NewWebSocketHub(logger) }

// SQLiteSink re-exports the persistent event log sink.
type SQLiteSink = sink.SQLite

// OpenSQLiteSink opens (or creates) an event log database at path.
func OpenSQLiteSink(path string) (*SQLiteSink, error) { return sink.OpenSQLite(path) }
