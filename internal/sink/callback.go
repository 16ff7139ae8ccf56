package sink

import (
	"context"

	"github.com/hazyhaar/dominspect/inspect"
)

// EventFunc is called for each event (in-process, zero serialisation).
type EventFunc func(ctx context.Context, ev inspect.Event) error

// Callback delivers events via a Go function call. When the host embeds the
// inspector in the same binary, events arrive as in-memory calls with zero
// serialisation overhead.
type Callback struct {
	fn EventFunc
}

// NewCallback creates a Callback sink. A nil handler drops events.
func NewCallback(fn EventFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, ev inspect.Event) error {
	if c.fn != nil {
		return c.fn(ctx, ev)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
