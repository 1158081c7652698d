package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cjeanneret/DualCam/internal/debug"
	"github.com/cjeanneret/DualCam/internal/hw/camera"
	"github.com/cjeanneret/DualCam/internal/input"
	"github.com/cjeanneret/DualCam/internal/logic/command"
	"github.com/cjeanneret/DualCam/internal/logic/params"
	"github.com/cjeanneret/DualCam/internal/logic/pipeline"
	"gocv.io/x/gocv"
)

// SlotCount is the number of sensors the controller drives.
const SlotCount = 2

// DefaultPollInterval matches a 1 ms key wait.
const DefaultPollInterval = time.Millisecond

// Display presents the composed preview surface.
type Display interface {
	Show(frame gocv.Mat) error
	Close() error
}

// SnapshotWriter persists a clean frame and returns its path.
type SnapshotWriter interface {
	Save(label string, frame gocv.Mat) (string, error)
}

// SlotOptions binds a slot to a device.
type SlotOptions struct {
	Device int    // device index passed to the Opener
	Label  string // file name prefix, e.g. "camera1"
}

// Options configures a Controller.
type Options struct {
	Slots           []SlotOptions // defaults to devices 0 and 1
	Resolutions     []camera.Resolution
	ResolutionIndex int
	Display         Display
	Input           input.Source
	Snapshots       SnapshotWriter
	Bindings        map[input.Key]command.Command // defaults to command.DefaultBindings
	PollInterval    time.Duration
	Observers       []Observer
}

// Slot is one sensor and its identity. Its parameters live in the store.
type Slot struct {
	Index  int
	Label  string
	Name   string
	sensor camera.Sensor

	fault     error // set when the sensor was lost during reconfiguration
	capFailed bool  // last capture failed, used to log transitions only
}

// Controller owns both sensors, the parameter store and the runtime
// state, and runs the capture/process/display/input loop.
// It is not safe for concurrent use; everything runs on the loop goroutine.
type Controller struct {
	slots      []*Slot
	store      *params.Store
	active     int
	preview    bool
	display    Display
	input      input.Source
	snapshots  SnapshotWriter
	dispatcher *command.Dispatcher
	observers  []Observer
	poll       time.Duration
	surface    gocv.Mat
	now        func() time.Time
}

// Open opens, configures and starts slot 0 then slot 1, and writes each
// slot's initial exposure so the device matches the store from the first
// frame. A device failure stops the sensors already started and returns a
// *camera.DeviceInitError.
func Open(open camera.Opener, opts Options) (*Controller, error) {
	if opts.Display == nil || opts.Input == nil || opts.Snapshots == nil {
		return nil, fmt.Errorf("controller: display, input and snapshots are required")
	}
	if len(opts.Slots) == 0 {
		opts.Slots = []SlotOptions{{Device: 0, Label: "camera1"}, {Device: 1, Label: "camera2"}}
	}
	if len(opts.Slots) != SlotCount {
		return nil, fmt.Errorf("controller: %d slots configured, want %d", len(opts.Slots), SlotCount)
	}
	if opts.Bindings == nil {
		opts.Bindings = command.DefaultBindings()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	c := &Controller{
		preview:    true,
		display:    opts.Display,
		input:      opts.Input,
		snapshots:  opts.Snapshots,
		dispatcher: command.NewDispatcher(opts.Bindings),
		observers:  opts.Observers,
		poll:       opts.PollInterval,
		surface:    gocv.NewMat(),
		now:        time.Now,
	}

	controls := make([]params.Control, 0, SlotCount)
	for i, so := range opts.Slots {
		debug.Step(i+1, fmt.Sprintf("Opening camera %d (device %d)", i+1, so.Device))
		s, err := open(so.Device)
		if err != nil {
			c.release()
			return nil, &camera.DeviceInitError{Slot: i, Err: err}
		}
		label := so.Label
		if label == "" {
			label = fmt.Sprintf("camera%d", i+1)
		}
		c.slots = append(c.slots, &Slot{Index: i, Label: label, Name: fmt.Sprintf("Camera %d", i+1), sensor: s})
		controls = append(controls, s)
	}

	store, err := params.NewStore(controls, opts.Resolutions, opts.ResolutionIndex)
	if err != nil {
		c.release()
		return nil, fmt.Errorf("controller: %w", err)
	}
	c.store = store

	res := store.Resolution()
	for i, s := range c.slots {
		if err := s.sensor.Configure(res); err != nil {
			c.release()
			return nil, &camera.DeviceInitError{Slot: i, Err: fmt.Errorf("configure %s: %w", res, err)}
		}
		if err := s.sensor.Start(); err != nil {
			c.release()
			return nil, &camera.DeviceInitError{Slot: i, Err: fmt.Errorf("start: %w", err)}
		}
		if err := store.ApplyExposure(i); err != nil {
			c.release()
			return nil, &camera.DeviceInitError{Slot: i, Err: fmt.Errorf("initial exposure: %w", err)}
		}
	}

	debug.Info("Both cameras initialized successfully (%s)", res)
	return c, nil
}

// Help returns the key binding lines for the startup banner.
func (c *Controller) Help() []string {
	return c.dispatcher.Help()
}

// Run repeats capture, display and input handling until a quit command
// or until ctx is done, then stops every sensor in order and releases
// the display.
func (c *Controller) Run(ctx context.Context) error {
	defer c.shutdown()

	c.notify(Event{Kind: EventState})
	for {
		select {
		case <-ctx.Done():
			debug.Info("Interrupted, stopping")
			return nil
		default:
		}

		c.renderFrames()

		key, ok := c.input.Poll(c.poll)
		if !ok {
			continue
		}
		if c.Dispatch(key) == command.Quit {
			debug.Info("Quit requested")
			return nil
		}
	}
}

// Dispatch runs the command bound to key. Unbound keys are ignored.
func (c *Controller) Dispatch(key input.Key) command.Command {
	cmd := c.dispatcher.Dispatch(key, operator{c})
	if cmd != command.None && cmd != command.Quit {
		c.notify(Event{Kind: EventState})
	}
	return cmd
}

func (c *Controller) renderFrames() {
	frames := make([]gocv.Mat, len(c.slots))
	for i := range c.slots {
		frame, err := c.ProcessFrame(i)
		c.trackCapture(i, err)
		frames[i] = frame
	}
	defer func() {
		for i := range frames {
			frames[i].Close()
		}
	}()

	if !c.preview {
		return
	}
	if !pipeline.Compose(frames, &c.surface) {
		return
	}
	if err := c.display.Show(c.surface); err != nil {
		c.report(-1, fmt.Errorf("display: %w", err))
	}
}

// trackCapture logs a slot's capture failure once, when it starts, and
// its recovery. Frames are skipped in between. A slot lost during
// reconfiguration was already reported by ChangeResolution.
func (c *Controller) trackCapture(slot int, err error) {
	s := c.slots[slot]
	if s.fault != nil {
		return
	}
	switch {
	case err != nil && !s.capFailed:
		s.capFailed = true
		c.report(slot, err)
	case err != nil:
		debug.Trace("%s: frame skipped: %v", s.Name, err)
	case s.capFailed:
		s.capFailed = false
		debug.Info("%s: capture recovered", s.Name)
	}
}

// ProcessFrame returns the slot's next preview frame: brightness applied
// and overlay drawn. On failure the returned Mat is empty.
func (c *Controller) ProcessFrame(slot int) (gocv.Mat, error) {
	s, err := c.usable(slot)
	if err != nil {
		return gocv.NewMat(), err
	}
	return pipeline.Process(s.sensor, pipeline.Params{
		Slot:       slot,
		Brightness: c.store.Brightness(slot),
		Overlay: &pipeline.Overlay{
			Label:      s.Name,
			Active:     slot == c.active,
			Time:       c.now(),
			Exposure:   c.store.Exposure(slot),
			Brightness: c.store.Brightness(slot),
		},
	})
}

// SelectSlot makes slot the active slot. Out-of-range values are ignored.
func (c *Controller) SelectSlot(slot int) {
	if slot < 0 || slot >= len(c.slots) {
		return
	}
	c.active = slot
}

// ActiveSlot returns the active slot index.
func (c *Controller) ActiveSlot() int { return c.active }

// PreviewEnabled reports whether the preview is shown.
func (c *Controller) PreviewEnabled() bool { return c.preview }

// TogglePreview flips the preview flag and returns the new value.
func (c *Controller) TogglePreview() bool {
	c.preview = !c.preview
	return c.preview
}

// SaveSnapshot writes one clean frame (brightness applied, no overlay)
// from slot and returns the file path.
func (c *Controller) SaveSnapshot(slot int) (string, error) {
	s, err := c.usable(slot)
	if err != nil {
		return "", err
	}
	frame, err := pipeline.Process(s.sensor, pipeline.Params{
		Slot:       slot,
		Brightness: c.store.Brightness(slot),
	})
	if err != nil {
		frame.Close()
		return "", err
	}
	defer frame.Close()

	path, err := c.snapshots.Save(s.Label, frame)
	if err != nil {
		return "", err
	}
	debug.Snapshot(s.Name, path)
	c.notify(Event{Kind: EventSnapshot, Slot: slot, Path: path})
	return path, nil
}

// SaveAllSnapshots saves every slot in index order. A failure on one slot
// does not prevent the others; both results are indexed by slot.
func (c *Controller) SaveAllSnapshots() (paths []string, errs []error) {
	paths = make([]string, len(c.slots))
	errs = make([]error, len(c.slots))
	for i := range c.slots {
		paths[i], errs[i] = c.SaveSnapshot(i)
	}
	return paths, errs
}

// ChangeResolution advances the shared resolution and reconfigures each
// slot in order: stop, configure, start, restore exposure. A slot that
// fails is lost until restart; the other slot is still reconfigured.
func (c *Controller) ChangeResolution() error {
	res := c.store.CycleResolution()

	var errs []error
	for i, s := range c.slots {
		if s.fault != nil {
			errs = append(errs, fmt.Errorf("%s not reconfigured: %w", s.Name, s.fault))
			continue
		}
		if err := c.reconfigure(i, res); err != nil {
			s.fault = &camera.ReconfigurationError{Slot: i, Resolution: res, Err: err}
			errs = append(errs, s.fault)
		}
	}

	debug.Info("Resolution changed to %s", res)
	return errors.Join(errs...)
}

func (c *Controller) reconfigure(slot int, res camera.Resolution) error {
	s := c.slots[slot].sensor
	debug.Verbose("Camera %d: stop, configure %s, start", slot+1, res)
	if err := s.Stop(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := s.Configure(res); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if err := s.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := c.store.ApplyExposure(slot); err != nil {
		return fmt.Errorf("restore exposure: %w", err)
	}
	return nil
}

// AdjustExposure steps the active slot's exposure compensation.
func (c *Controller) AdjustExposure(dir params.Direction) (int, error) {
	s, err := c.usable(c.active)
	if err != nil {
		return 0, err
	}
	v, err := c.store.SetExposure(s.Index, dir)
	if err != nil {
		return v, fmt.Errorf("%s: %w", s.Name, err)
	}
	debug.Control(s.Name, "exposure compensation", v)
	return v, nil
}

// AdjustBrightness steps the active slot's brightness.
func (c *Controller) AdjustBrightness(dir params.Direction) (int, error) {
	s, err := c.usable(c.active)
	if err != nil {
		return 0, err
	}
	v := c.store.SetBrightness(s.Index, dir)
	debug.Control(s.Name, "brightness", v)
	return v, nil
}

// State returns a copy of the runtime state and slot parameters.
func (c *Controller) State() State {
	st := State{
		ActiveSlot:     c.active,
		PreviewEnabled: c.preview,
		Resolution:     c.store.Resolution(),
		Slots:          make([]SlotState, len(c.slots)),
	}
	for i, s := range c.slots {
		ss := SlotState{
			Index:      i,
			Label:      s.Label,
			Name:       s.Name,
			Exposure:   c.store.Exposure(i),
			Brightness: c.store.Brightness(i),
			Available:  s.fault == nil,
		}
		if s.fault != nil {
			ss.Fault = s.fault.Error()
		}
		st.Slots[i] = ss
	}
	return st
}

func (c *Controller) usable(slot int) (*Slot, error) {
	if slot < 0 || slot >= len(c.slots) {
		return nil, fmt.Errorf("no camera %d", slot+1)
	}
	s := c.slots[slot]
	if s.fault != nil {
		return nil, s.fault
	}
	return s, nil
}

// report shows an in-loop failure to the operator and observers.
func (c *Controller) report(slot int, err error) {
	log.Printf("ERROR: %v", err)
	c.notify(Event{Kind: EventError, Slot: slot, Err: err})
}

func (c *Controller) notify(e Event) {
	if len(c.observers) == 0 {
		return
	}
	e.Time = c.now()
	e.State = c.State()
	for _, o := range c.observers {
		o.Observe(e)
	}
}

// shutdown stops every sensor in index order and releases the display.
func (c *Controller) shutdown() {
	for _, s := range c.slots {
		if err := s.sensor.Stop(); err != nil {
			log.Printf("stopping %s failed: %v", s.Name, err)
		}
	}
	if err := c.display.Close(); err != nil {
		log.Printf("closing display failed: %v", err)
	}
	c.surface.Close()
	debug.Info("Application terminated")
}

// release stops sensors opened so far after a failed Open.
func (c *Controller) release() {
	for _, s := range c.slots {
		_ = s.sensor.Stop()
	}
	c.surface.Close()
}

// operator adapts the controller to command.Target, reporting failures
// instead of returning them.
type operator struct{ c *Controller }

func (o operator) SelectSlot(slot int) {
	o.c.SelectSlot(slot)
	debug.Live("Camera %d selected", o.c.active+1)
}

func (o operator) SaveActive() {
	if _, err := o.c.SaveSnapshot(o.c.active); err != nil {
		o.c.report(o.c.active, err)
	}
}

func (o operator) SaveAll() {
	_, errs := o.c.SaveAllSnapshots()
	for i, err := range errs {
		if err != nil {
			o.c.report(i, err)
		}
	}
}

func (o operator) ChangeResolution() {
	if err := o.c.ChangeResolution(); err != nil {
		o.c.report(-1, err)
	}
}

func (o operator) AdjustExposure(dir params.Direction) {
	if _, err := o.c.AdjustExposure(dir); err != nil {
		o.c.report(o.c.active, err)
	}
}

func (o operator) AdjustBrightness(dir params.Direction) {
	if _, err := o.c.AdjustBrightness(dir); err != nil {
		o.c.report(o.c.active, err)
	}
}

func (o operator) TogglePreview() {
	if o.c.TogglePreview() {
		debug.Live("Preview resumed")
	} else {
		debug.Live("Preview paused")
	}
}
