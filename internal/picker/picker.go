// Package picker implements point-and-click element selection: an injected
// capture-phase handler set that reports hovered and clicked elements back
// to Go over a CDP binding, with Escape cancelling the session.
package picker

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

//go:embed picker.js
var startJS string

//go:embed stop.js
var stopJS string

const bindingName = "__dominspect_picker"

// Event is one report from the injected page script. ID is the element's
// stable ID, minted page-side when the element does not have one yet.
type Event struct {
	Type string `json:"type"` // hover | select | cancel
	ID   string `json:"id"`
	Tag  string `json:"tag"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// Callbacks receive picker events. Any handler may be nil.
type Callbacks struct {
	OnHover  func(Event)
	OnSelect func(Event)
	OnCancel func()
}

// Picker runs at most one pick session on a page. Selecting an element or
// pressing Escape ends the session; the injected handlers are removed
// either way.
type Picker struct {
	logger *slog.Logger
	page   *rod.Page
	cb     Callbacks

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
}

// New creates a picker for one page.
func New(page *rod.Page, cb Callbacks, logger *slog.Logger) *Picker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Picker{logger: logger, page: page, cb: cb}
}

// Active reports whether a pick session is running.
func (p *Picker) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Start injects the capture-phase handlers and begins relaying events.
// Starting an active picker is a no-op.
func (p *Picker) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	p.active = true
	p.cancel = cancel
	p.mu.Unlock()

	err := proto.RuntimeAddBinding{Name: bindingName}.Call(p.page)
	if err != nil {
		p.logger.Warn("picker: addBinding failed (may already exist)", "error", err)
	}

	go p.listen(ctx)

	if _, err := p.page.Eval(startJS); err != nil {
		p.Stop()
		return fmt.Errorf("picker: inject: %w", err)
	}
	p.logger.Debug("picker: started")
	return nil
}

// Stop removes the injected handlers and stops relaying. Idempotent.
func (p *Picker) Stop() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if _, err := p.page.Eval(stopJS); err != nil {
		p.logger.Warn("picker: remove handlers failed", "error", err)
	}
	p.logger.Debug("picker: stopped")
}

func (p *Picker) listen(ctx context.Context) {
	p.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		p.handlePayload(e.Payload)
	})()
}

// handlePayload decodes one binding payload and dispatches it. A select or
// cancel ends the session before the callback runs, so callbacks observe
// the picker already stopped.
func (p *Picker) handlePayload(payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		p.logger.Warn("picker: parse payload", "error", err)
		return
	}

	switch ev.Type {
	case "hover":
		if p.cb.OnHover != nil {
			p.cb.OnHover(ev)
		}
	case "select":
		p.Stop()
		if p.cb.OnSelect != nil {
			p.cb.OnSelect(ev)
		}
	case "cancel":
		p.Stop()
		if p.cb.OnCancel != nil {
			p.cb.OnCancel()
		}
	default:
		p.logger.Warn("picker: unknown event type", "type", ev.Type)
	}
}
