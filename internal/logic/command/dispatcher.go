package command

import (
	"fmt"
	"sort"

	"github.com/cjeanneret/DualCam/internal/debug"
	"github.com/cjeanneret/DualCam/internal/input"
	"github.com/cjeanneret/DualCam/internal/logic/params"
)

// Command is one operator action.
type Command int

const (
	None Command = iota
	SelectSlot1
	SelectSlot2
	SaveActive
	SaveAll
	CycleResolution
	ExposureUp
	ExposureDown
	BrightnessUp
	BrightnessDown
	TogglePreview
	Quit
)

var names = map[Command]string{
	SelectSlot1:     "select-camera-1",
	SelectSlot2:     "select-camera-2",
	SaveActive:      "save-active",
	SaveAll:         "save-all",
	CycleResolution: "cycle-resolution",
	ExposureUp:      "exposure-up",
	ExposureDown:    "exposure-down",
	BrightnessUp:    "brightness-up",
	BrightnessDown:  "brightness-down",
	TogglePreview:   "toggle-preview",
	Quit:            "quit",
}

var descriptions = map[Command]string{
	SelectSlot1:     "Select camera 1",
	SelectSlot2:     "Select camera 2",
	SaveActive:      "Save image from active camera",
	SaveAll:         "Save images from both cameras",
	CycleResolution: "Change resolution",
	ExposureUp:      "Increase exposure of active camera",
	ExposureDown:    "Decrease exposure of active camera",
	BrightnessUp:    "Increase brightness of active camera",
	BrightnessDown:  "Decrease brightness of active camera",
	TogglePreview:   "Pause/resume preview",
	Quit:            "Quit application",
}

func (c Command) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "none"
}

// Parse returns the command with the given name.
func Parse(name string) (Command, error) {
	for c, n := range names {
		if n == name {
			return c, nil
		}
	}
	return None, fmt.Errorf("unknown command %q", name)
}

// DefaultBindings returns the standard keyboard layout.
func DefaultBindings() map[input.Key]Command {
	return map[input.Key]Command{
		'1': SelectSlot1,
		'2': SelectSlot2,
		's': SaveActive,
		'd': SaveAll,
		'r': CycleResolution,
		'e': ExposureUp,
		'c': ExposureDown,
		'b': BrightnessUp,
		'v': BrightnessDown,
		'p': TogglePreview,
		'q': Quit,
	}
}

// Bindings returns DefaultBindings with overrides applied. Each override
// maps a command name to a single-character key; the key is moved to that
// command and the command's default key is dropped.
func Bindings(overrides map[string]string) (map[input.Key]Command, error) {
	b := DefaultBindings()
	order := make([]string, 0, len(overrides))
	for name := range overrides {
		order = append(order, name)
	}
	sort.Strings(order)

	for _, name := range order {
		cmd, err := Parse(name)
		if err != nil {
			return nil, err
		}
		r := []rune(overrides[name])
		if len(r) != 1 {
			return nil, fmt.Errorf("%s: key %q must be a single character", name, overrides[name])
		}
		for k, c := range b {
			if c == cmd {
				delete(b, k)
			}
		}
		b[input.Key(r[0])] = cmd
	}
	return b, nil
}

// Target is what commands act on.
type Target interface {
	SelectSlot(slot int)
	SaveActive()
	SaveAll()
	ChangeResolution()
	AdjustExposure(dir params.Direction)
	AdjustBrightness(dir params.Direction)
	TogglePreview()
}

// Dispatcher maps one key to one command.
type Dispatcher struct {
	bindings map[input.Key]Command
}

// NewDispatcher creates a dispatcher with the given bindings.
func NewDispatcher(bindings map[input.Key]Command) *Dispatcher {
	b := make(map[input.Key]Command, len(bindings))
	for k, c := range bindings {
		b[k] = c
	}
	return &Dispatcher{bindings: b}
}

// Lookup returns the command bound to key, or None.
func (d *Dispatcher) Lookup(key input.Key) Command {
	return d.bindings[key]
}

// Dispatch runs the command bound to key on t and returns it.
// Unbound keys do nothing and return None. Quit is returned to the
// caller without touching t.
func (d *Dispatcher) Dispatch(key input.Key, t Target) Command {
	cmd := d.bindings[key]
	if cmd == None {
		return None
	}
	debug.Command(rune(key), cmd.String())

	switch cmd {
	case SelectSlot1:
		t.SelectSlot(0)
	case SelectSlot2:
		t.SelectSlot(1)
	case SaveActive:
		t.SaveActive()
	case SaveAll:
		t.SaveAll()
	case CycleResolution:
		t.ChangeResolution()
	case ExposureUp:
		t.AdjustExposure(params.Up)
	case ExposureDown:
		t.AdjustExposure(params.Down)
	case BrightnessUp:
		t.AdjustBrightness(params.Up)
	case BrightnessDown:
		t.AdjustBrightness(params.Down)
	case TogglePreview:
		t.TogglePreview()
	}
	return cmd
}

// Help returns one line per binding, ordered by command.
func (d *Dispatcher) Help() []string {
	type entry struct {
		key input.Key
		cmd Command
	}
	entries := make([]entry, 0, len(d.bindings))
	for k, c := range d.bindings {
		entries = append(entries, entry{k, c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].cmd != entries[j].cmd {
			return entries[i].cmd < entries[j].cmd
		}
		return entries[i].key < entries[j].key
	})

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("  %-4s - %s", e.key, descriptions[e.cmd]))
	}
	return lines
}
