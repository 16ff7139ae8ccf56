// Package sink defines output backends for inspector events.
package sink

import (
	"context"

	"github.com/hazyhaar/dominspect/inspect"
)

// Sink is the output interface. Implementations deliver state-change and
// selection events to different backends (stdout, webhook, WebSocket,
// in-process callback).
type Sink interface {
	Send(ctx context.Context, ev inspect.Event) error
	Close() error
}
