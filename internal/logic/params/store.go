package params

import (
	"fmt"

	"github.com/cjeanneret/DualCam/internal/hw/camera"
)

// Bounds and step sizes for operator adjustments.
const (
	ExposureMin  = -8
	ExposureMax  = 8
	ExposureStep = 1

	BrightnessMin  = -100
	BrightnessMax  = 100
	BrightnessStep = 5
)

// Direction is the sign of an adjustment step.
type Direction int

const (
	Down Direction = -1
	Up   Direction = 1
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Control is the part of a sensor the store writes exposure to.
type Control interface {
	SetControl(name string, value float64) error
}

type slotParams struct {
	exposure   int
	brightness int
}

// Store holds per-slot exposure and brightness and the shared resolution
// index. Values always stay inside their bounds.
type Store struct {
	controls    []Control
	slots       []slotParams
	resolutions []camera.Resolution
	index       int
}

// NewStore creates a store for one slot per control, all values at 0.
// resolutions must not be empty; index is wrapped into range.
func NewStore(controls []Control, resolutions []camera.Resolution, index int) (*Store, error) {
	if len(resolutions) == 0 {
		return nil, fmt.Errorf("params: at least one resolution is required")
	}
	res := make([]camera.Resolution, len(resolutions))
	copy(res, resolutions)
	return &Store{
		controls:    controls,
		slots:       make([]slotParams, len(controls)),
		resolutions: res,
		index:       wrap(index, len(res)),
	}, nil
}

// SetExposure steps the slot's exposure by one in dir, clamps it and
// applies it to the device. At a bound it does nothing. If the device
// rejects the value the previous one is kept and the error returned.
func (s *Store) SetExposure(slot int, dir Direction) (int, error) {
	p := &s.slots[slot]
	next := clamp(p.exposure+int(dir)*ExposureStep, ExposureMin, ExposureMax)
	if next == p.exposure {
		return p.exposure, nil
	}
	if err := s.controls[slot].SetControl(camera.ControlExposure, float64(next)); err != nil {
		return p.exposure, fmt.Errorf("apply exposure %d: %w", next, err)
	}
	p.exposure = next
	return next, nil
}

// SetBrightness steps the slot's brightness by five in dir and clamps it.
// Brightness is applied in post-processing, never on the device.
func (s *Store) SetBrightness(slot int, dir Direction) int {
	p := &s.slots[slot]
	p.brightness = clamp(p.brightness+int(dir)*BrightnessStep, BrightnessMin, BrightnessMax)
	return p.brightness
}

// CycleResolution advances the shared resolution index and returns the
// new resolution.
func (s *Store) CycleResolution() camera.Resolution {
	s.index = wrap(s.index+1, len(s.resolutions))
	return s.resolutions[s.index]
}

// ApplyExposure writes the slot's current exposure to its device again,
// e.g. after the device was restarted.
func (s *Store) ApplyExposure(slot int) error {
	return s.controls[slot].SetControl(camera.ControlExposure, float64(s.slots[slot].exposure))
}

func (s *Store) Exposure(slot int) int   { return s.slots[slot].exposure }
func (s *Store) Brightness(slot int) int { return s.slots[slot].brightness }

// Resolution returns the active resolution.
func (s *Store) Resolution() camera.Resolution { return s.resolutions[s.index] }

// ResolutionIndex returns the index of the active resolution.
func (s *Store) ResolutionIndex() int { return s.index }

// Resolutions returns a copy of the resolution options.
func (s *Store) Resolutions() []camera.Resolution {
	res := make([]camera.Resolution, len(s.resolutions))
	copy(res, s.resolutions)
	return res
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
