package input

import (
	"sort"
	"time"

	"github.com/cjeanneret/DualCam/internal/debug"
	"github.com/cjeanneret/DualCam/internal/hw/gpio"
)

// Buttons turns active-LOW push buttons on GPIO pins into keys.
// A key is reported once per press (on the HIGH to LOW edge).
type Buttons struct {
	gpio    gpio.Driver
	pins    []int
	keys    map[int]Key
	pressed map[int]bool
}

// NewButtons configures each pin as a pulled-up input mapped to its key.
func NewButtons(g gpio.Driver, keys map[int]Key) (*Buttons, error) {
	b := &Buttons{
		gpio:    g,
		keys:    make(map[int]Key, len(keys)),
		pressed: make(map[int]bool, len(keys)),
	}
	for pin, key := range keys {
		if err := g.SetupPin(pin, gpio.InputPullUp); err != nil {
			return nil, err
		}
		b.keys[pin] = key
		b.pins = append(b.pins, pin)
	}
	sort.Ints(b.pins)
	return b, nil
}

// Poll reads every button once. If none was newly pressed it sleeps for
// timeout and reports nothing.
func (b *Buttons) Poll(timeout time.Duration) (Key, bool) {
	if k, ok := b.scan(); ok {
		return k, true
	}
	if timeout > 0 {
		time.Sleep(timeout)
	}
	return 0, false
}

func (b *Buttons) scan() (Key, bool) {
	var (
		found bool
		key   Key
	)
	for _, pin := range b.pins {
		level, err := b.gpio.ReadPin(pin)
		if err != nil {
			debug.Error(err)
			continue
		}
		down := level == gpio.Low
		if down && !b.pressed[pin] && !found {
			found = true
			key = b.keys[pin]
			debug.GPIO("ButtonPressed", pin, key)
		}
		b.pressed[pin] = down
	}
	return key, found
}
