package controller

import (
	"time"

	"github.com/cjeanneret/DualCam/internal/hw/camera"
)

// SlotState is a read-only view of one slot.
type SlotState struct {
	Index      int    `json:"index"`
	Label      string `json:"label"`
	Name       string `json:"name"`
	Exposure   int    `json:"exposure"`
	Brightness int    `json:"brightness"`
	Available  bool   `json:"available"`
	Fault      string `json:"fault,omitempty"`
}

// State is a read-only copy of the runtime state and parameters.
type State struct {
	ActiveSlot     int               `json:"active_slot"`
	PreviewEnabled bool              `json:"preview_enabled"`
	Resolution     camera.Resolution `json:"resolution"`
	Slots          []SlotState       `json:"slots"`
}

// EventKind classifies controller events.
type EventKind int

const (
	EventState    EventKind = iota // runtime state or parameters changed
	EventSnapshot                  // a snapshot was written
	EventError                     // an operation failed and was reported
)

func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "snapshot"
	case EventError:
		return "error"
	default:
		return "state"
	}
}

// Event is delivered to observers on the loop goroutine.
type Event struct {
	Kind  EventKind
	Time  time.Time
	State State
	Slot  int    // EventSnapshot, EventError (-1 when not slot specific)
	Path  string // EventSnapshot
	Err   error  // EventError
}

// Observer receives controller events. Observe runs on the control loop
// and must not block.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
