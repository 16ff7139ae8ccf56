package panel

import (
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/dominspect/internal/picker"
	"github.com/hazyhaar/dominspect/internal/state"
)

// Persister re-exports the state persistence interface.
type Persister = state.Persister

// OpenSQLitePersister opens (creating if needed) a state database at path.
func OpenSQLitePersister(path string) (Persister, error) {
	return state.OpenSQLite(path)
}

// StateOption re-exports state manager options.
type StateOption = state.Option

// WithPersistDelay debounces state persistence.
func WithPersistDelay(d time.Duration) StateOption {
	return state.WithPersistDelay(d)
}

// Picker re-exports the point-and-click selection session.
type Picker = picker.Picker

// NewPicker builds a picker for a real browser page, wired to a panel via
// Panel.PickerCallbacks.
func NewPicker(page *rod.Page, cb picker.Callbacks, logger *slog.Logger) *Picker {
	return picker.New(page, cb, logger)
}

// PickerEvents re-exports the picker callback set.
type PickerEvents = picker.Callbacks
