package inspect

import "encoding/json"

// Event names republished by the state manager. One per top-level state
// field, plus the aggregate stateChanged and the runtime-only
// selectedElementChanged.
const (
	EventVisibility        = "visibilityChanged"
	EventPosition          = "positionChanged"
	EventSize              = "sizeChanged"
	EventSplitPosition     = "splitPositionChanged"
	EventHighlight         = "highlightChanged"
	EventSelectorHistory   = "selectorHistoryChanged"
	EventCollapsedSections = "collapsedSectionsChanged"
	EventTreeState         = "treeStateChanged"
	EventStateChanged      = "stateChanged"

	// EventSelectedElement is emitted synchronously on selection. The
	// payload is the element's stable ID, not the element itself — live
	// nodes never enter serialisable state.
	EventSelectedElement = "selectedElementChanged"
)

// Event is one state-change notification as routed to sinks. In-process
// listeners receive the typed old/new values directly; sinks receive this
// serialised form.
type Event struct {
	Name      string `json:"name"`
	New       any    `json:"new,omitempty"`
	Old       any    `json:"old,omitempty"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// MarshalEvent serialises an Event to JSON.
func MarshalEvent(e *Event) ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent deserialises an Event from JSON.
func UnmarshalEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// MarshalState serialises a State to JSON.
func MarshalState(s *State) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState deserialises a State from JSON.
func UnmarshalState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
