// Package overlay draws the selection highlight in the live page. The
// overlay nodes carry a marker attribute so the mirror and the tree skip
// them, and they never intercept pointer events.
package overlay

import (
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/dominspect/inspect"
)

//go:embed overlay.js
var applyJS string

//go:embed clear.js
var clearJS string

// Evaluator runs a JS function expression in the page. *rod.Page satisfies
// it.
type Evaluator interface {
	Eval(js string, jsArgs ...any) (*proto.RuntimeRemoteObject, error)
}

// Overlay manages the highlight for at most one selected element.
type Overlay struct {
	logger *slog.Logger

	mu     sync.Mutex
	page   Evaluator
	active bool
}

// New creates an overlay bound to one page.
func New(page Evaluator, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Overlay{page: page, logger: logger}
}

// Apply highlights the element with the given stable ID according to h.
// Mode none clears instead. Re-applying replaces the previous highlight, so
// the overlay tracks element moves on every refresh.
func (o *Overlay) Apply(stableID string, h inspect.Highlight) error {
	if h.Mode == inspect.HighlightNone || stableID == "" {
		return o.Clear()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.page.Eval(applyJS, stableID, string(h.Mode), h.Color, h.ZIndex)
	if err != nil {
		return fmt.Errorf("overlay: apply: %w", err)
	}
	o.active = true
	return nil
}

// Clear removes any highlight. Idempotent: clearing an already clear page
// does not touch the browser.
func (o *Overlay) Clear() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active {
		return nil
	}
	if _, err := o.page.Eval(clearJS); err != nil {
		return fmt.Errorf("overlay: clear: %w", err)
	}
	o.active = false
	return nil
}

// Active reports whether a highlight is currently drawn.
func (o *Overlay) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}
