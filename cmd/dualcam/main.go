package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/cjeanneret/DualCam/internal/config"
	"github.com/cjeanneret/DualCam/internal/debug"
	"github.com/cjeanneret/DualCam/internal/hw/camera"
	"github.com/cjeanneret/DualCam/internal/hw/display"
	"github.com/cjeanneret/DualCam/internal/hw/gpio"
	"github.com/cjeanneret/DualCam/internal/hw/indicator"
	"github.com/cjeanneret/DualCam/internal/input"
	"github.com/cjeanneret/DualCam/internal/logic/command"
	"github.com/cjeanneret/DualCam/internal/logic/controller"
	"github.com/cjeanneret/DualCam/internal/notify"
	"github.com/cjeanneret/DualCam/internal/storage/snapshot"
	"github.com/cjeanneret/DualCam/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start read-only status page on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	captureDir := flag.String("capture_dir", "", "override snapshot directory")
	resolution := flag.Int("resolution", -1, "override initial resolution index")
	flag.Parse()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Validate CLI overrides (-1 and "" mean "use config default")
	if err := validateCLIOverrides(*resolution, len(cfg.Resolutions), *captureDir); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, *resolution, *captureDir)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Mock cameras", cfg.Defaults.MockCamera)
	debug.Value("Capture directory", cfg.Capture.Directory)
	debug.PrintStruct("Cameras", cfg.Cameras)

	bindings, err := command.Bindings(cfg.Controls)
	if err != nil {
		log.Fatalf("invalid controls: %v", err)
	}

	// Display and keyboard
	debug.Step(1, "Initializing display")
	var disp controller.Display
	var sources input.Multi
	if cfg.Display.Headless {
		disp = &display.Headless{}
	} else {
		win := display.NewWindow(cfg.Display.WindowTitle)
		disp = win
		sources = append(sources, win)
	}

	var observers []controller.Observer

	// Optional GPIO buttons and LEDs
	if cfg.GPIO.Enabled {
		debug.Step(2, "Initializing GPIO")
		gpioDriver, err := gpio.NewDriver(cfg.GPIO.Mock)
		if err != nil {
			log.Fatalf("init GPIO failed: %v", err)
		}
		defer func() {
			if err := gpioDriver.Close(); err != nil {
				log.Printf("closing GPIO driver failed: %v", err)
			}
		}()

		if len(cfg.GPIO.Buttons) > 0 {
			buttons, err := input.NewButtons(gpioDriver, buttonKeys(cfg.GPIO.Buttons))
			if err != nil {
				log.Fatalf("init buttons failed: %v", err)
			}
			sources = append(sources, buttons)
		}
		if len(cfg.GPIO.ActiveLEDs) > 0 {
			leds, err := indicator.NewLEDs(gpioDriver, cfg.GPIO.ActiveLEDs)
			if err != nil {
				log.Fatalf("init LEDs failed: %v", err)
			}
			defer leds.Off()
			observers = append(observers, leds)
		}
	}
	if len(sources) == 0 {
		log.Fatalf("no input: a headless display needs gpio buttons")
	}

	// Optional status page
	if port := webPort.port(); port > 0 {
		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
		log.SetOutput(io.MultiWriter(os.Stderr, web.BroadcastWriter(broadcaster)))
		observers = append(observers, broadcaster)

		srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, cfg.Capture.Directory)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("web server: %v", err)
			}
		}()
	}

	// Optional MQTT notifications
	if cfg.MQTT.Enabled {
		opts := notify.Options{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			TopicPrefix:    cfg.MQTT.TopicPrefix,
			QoS:            byte(cfg.MQTT.QoS),
			Thumbnail:      cfg.MQTT.Thumbnail,
			ThumbnailWidth: cfg.MQTT.ThumbnailWidth,
		}
		client, err := notify.Connect(opts)
		if err != nil {
			log.Printf("MQTT notifications disabled: %v", err)
		} else {
			defer notify.Disconnect(client, opts)
			notifier := notify.NewNotifier(client, opts)
			defer notifier.Close()
			observers = append(observers, notifier)
		}
	}

	// Cameras
	debug.Step(3, "Initializing cameras")
	var opener camera.Opener = camera.OpenVideo
	if cfg.Defaults.MockCamera {
		opener = camera.OpenMock
	}
	slots := make([]controller.SlotOptions, len(cfg.Cameras))
	for i, c := range cfg.Cameras {
		slots[i] = controller.SlotOptions{Device: c.Device, Label: c.Label}
	}

	ctrl, err := controller.Open(opener, controller.Options{
		Slots:           slots,
		Resolutions:     cfg.Resolutions,
		ResolutionIndex: cfg.Defaults.InitialResolution,
		Display:         disp,
		Input:           sources,
		Snapshots:       snapshot.NewWriter(cfg.Capture.Directory, cfg.Capture.Extension),
		Bindings:        bindings,
		PollInterval:    cfg.PollInterval(),
		Observers:       observers,
	})
	if err != nil {
		disp.Close()
		log.Fatalf("init cameras failed: %v", err)
	}

	printBanner(os.Stdout, ctrl.Help())

	// The control loop owns the window and must stay on the main goroutine.
	if err := ctrl.Run(ctx); err != nil {
		log.Printf("control loop: %v", err)
	}
}

// validateCLIOverrides checks the overrides against the loaded config.
// resolution -1 and an empty captureDir mean "use config default".
func validateCLIOverrides(resolution, resolutionCount int, captureDir string) error {
	if resolution != -1 {
		if resolution < 0 || resolution >= resolutionCount {
			return fmt.Errorf("resolution must be between 0 and %d, got %d", resolutionCount-1, resolution)
		}
	}
	if captureDir != "" && strings.TrimSpace(captureDir) == "" {
		return fmt.Errorf("capture_dir must not be blank")
	}
	return nil
}

// applyOverrides mutates cfg with the validated overrides.
func applyOverrides(cfg *config.Config, resolution int, captureDir string) {
	if resolution >= 0 {
		cfg.Defaults.InitialResolution = resolution
	}
	if captureDir != "" {
		cfg.Capture.Directory = captureDir
	}
}

// buttonKeys converts configured pin bindings to input keys.
func buttonKeys(buttons map[int]string) map[int]input.Key {
	keys := make(map[int]input.Key, len(buttons))
	for pin, s := range buttons {
		r := []rune(s)
		if len(r) == 1 {
			keys[pin] = input.Key(r[0])
		}
	}
	return keys
}

// printBanner lists the controls at startup.
func printBanner(w io.Writer, help []string) {
	fmt.Fprintln(w, "Dual Camera Control")
	fmt.Fprintln(w, "Controls:")
	for _, line := range help {
		fmt.Fprintln(w, line)
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
