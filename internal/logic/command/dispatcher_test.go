package command

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cjeanneret/DualCam/internal/input"
	"github.com/cjeanneret/DualCam/internal/logic/params"
)

// recordingTarget records every operation invoked on it.
type recordingTarget struct {
	calls []string
}

func (r *recordingTarget) SelectSlot(slot int) {
	r.calls = append(r.calls, fmt.Sprintf("select %d", slot))
}
func (r *recordingTarget) SaveActive()       { r.calls = append(r.calls, "save-active") }
func (r *recordingTarget) SaveAll()          { r.calls = append(r.calls, "save-all") }
func (r *recordingTarget) ChangeResolution() { r.calls = append(r.calls, "resolution") }
func (r *recordingTarget) TogglePreview()    { r.calls = append(r.calls, "preview") }
func (r *recordingTarget) AdjustExposure(d params.Direction) {
	r.calls = append(r.calls, "exposure "+d.String())
}
func (r *recordingTarget) AdjustBrightness(d params.Direction) {
	r.calls = append(r.calls, "brightness "+d.String())
}

func TestDispatch_DefaultBindings(t *testing.T) {
	cases := []struct {
		key  input.Key
		cmd  Command
		call string
	}{
		{'1', SelectSlot1, "select 0"},
		{'2', SelectSlot2, "select 1"},
		{'s', SaveActive, "save-active"},
		{'d', SaveAll, "save-all"},
		{'r', CycleResolution, "resolution"},
		{'e', ExposureUp, "exposure up"},
		{'c', ExposureDown, "exposure down"},
		{'b', BrightnessUp, "brightness up"},
		{'v', BrightnessDown, "brightness down"},
		{'p', TogglePreview, "preview"},
	}
	d := NewDispatcher(DefaultBindings())
	for _, tc := range cases {
		t.Run(tc.key.String(), func(t *testing.T) {
			target := &recordingTarget{}
			if got := d.Dispatch(tc.key, target); got != tc.cmd {
				t.Errorf("Dispatch(%q) = %v, want %v", tc.key, got, tc.cmd)
			}
			if len(target.calls) != 1 || target.calls[0] != tc.call {
				t.Errorf("calls = %v, want [%s]", target.calls, tc.call)
			}
		})
	}
}

func TestDispatch_QuitTouchesNothing(t *testing.T) {
	d := NewDispatcher(DefaultBindings())
	target := &recordingTarget{}
	if got := d.Dispatch('q', target); got != Quit {
		t.Errorf("Dispatch('q') = %v, want Quit", got)
	}
	if len(target.calls) != 0 {
		t.Errorf("quit invoked %v", target.calls)
	}
}

func TestDispatch_UnknownKeyIgnored(t *testing.T) {
	d := NewDispatcher(DefaultBindings())
	target := &recordingTarget{}
	for _, k := range []input.Key{'x', 'Q', ' ', 0, 255} {
		if got := d.Dispatch(k, target); got != None {
			t.Errorf("Dispatch(%q) = %v, want None", k, got)
		}
	}
	if len(target.calls) != 0 {
		t.Errorf("unknown keys invoked %v", target.calls)
	}
}

func TestNewDispatcher_CopiesBindings(t *testing.T) {
	b := map[input.Key]Command{'x': Quit}
	d := NewDispatcher(b)
	b['x'] = SaveAll
	if d.Lookup('x') != Quit {
		t.Error("dispatcher shares the caller's map")
	}
}

func TestParse(t *testing.T) {
	for c, name := range names {
		got, err := Parse(name)
		if err != nil || got != c {
			t.Errorf("Parse(%q) = %v, %v; want %v", name, got, err, c)
		}
	}
	if _, err := Parse("self-destruct"); err == nil {
		t.Error("expected error for unknown command name")
	}
}

func TestHelp_ListsEveryBinding(t *testing.T) {
	d := NewDispatcher(DefaultBindings())
	lines := d.Help()
	if len(lines) != len(DefaultBindings()) {
		t.Fatalf("help has %d lines, want %d", len(lines), len(DefaultBindings()))
	}
	if !strings.Contains(lines[0], "1") || !strings.Contains(lines[0], "Select camera 1") {
		t.Errorf("first line = %q, want camera 1 selection", lines[0])
	}
	if !strings.Contains(lines[len(lines)-1], "Quit") {
		t.Errorf("last line = %q, want quit", lines[len(lines)-1])
	}
}

func TestBindings_Overrides(t *testing.T) {
	b, err := Bindings(map[string]string{"save-all": "a", "quit": "x"})
	if err != nil {
		t.Fatalf("Bindings: %v", err)
	}
	if b['a'] != SaveAll || b['x'] != Quit {
		t.Errorf("overrides not bound: a=%v x=%v", b['a'], b['x'])
	}
	if _, ok := b['d']; ok {
		t.Error("default save-all key still bound")
	}
	if _, ok := b['q']; ok {
		t.Error("default quit key still bound")
	}
	if b['s'] != SaveActive {
		t.Error("untouched default lost")
	}
}

func TestBindings_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown command": {"self-destruct": "x"},
		"multi-char key":  {"quit": "qq"},
		"empty key":       {"quit": ""},
	}
	for name, o := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Bindings(o); err == nil {
				t.Error("expected error")
			}
		})
	}
}
