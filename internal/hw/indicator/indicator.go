// Package indicator drives one status LED per camera slot. The LED of the
// active slot is lit; a slot lost during reconfiguration stays dark.
package indicator

import (
	"fmt"

	"github.com/cjeanneret/DualCam/internal/debug"
	"github.com/cjeanneret/DualCam/internal/hw/gpio"
	"github.com/cjeanneret/DualCam/internal/logic/controller"
)

// LEDs lights the LED bound to the active slot.
type LEDs struct {
	gpio gpio.Driver
	pins []int // indexed by slot
	lit  int   // slot currently lit, -1 for none
}

// NewLEDs configures pins as outputs (index = slot) and turns them off.
func NewLEDs(g gpio.Driver, pins []int) (*LEDs, error) {
	for _, pin := range pins {
		if err := g.SetupPin(pin, gpio.Output); err != nil {
			return nil, fmt.Errorf("setup LED pin %d: %w", pin, err)
		}
		if err := g.WritePin(pin, gpio.Low); err != nil {
			return nil, fmt.Errorf("clear LED pin %d: %w", pin, err)
		}
	}
	return &LEDs{gpio: g, pins: pins, lit: -1}, nil
}

// Observe implements controller.Observer.
func (l *LEDs) Observe(e controller.Event) {
	if e.Kind != controller.EventState {
		return
	}
	want := e.State.ActiveSlot
	if want >= 0 && want < len(e.State.Slots) && !e.State.Slots[want].Available {
		want = -1
	}
	if want == l.lit {
		return
	}
	for slot, pin := range l.pins {
		level := gpio.Level(slot == want)
		if err := l.gpio.WritePin(pin, level); err != nil {
			debug.Error(fmt.Errorf("LED pin %d: %w", pin, err))
		}
	}
	l.lit = want
}

// Off turns every LED off.
func (l *LEDs) Off() {
	for _, pin := range l.pins {
		_ = l.gpio.WritePin(pin, gpio.Low)
	}
	l.lit = -1
}
