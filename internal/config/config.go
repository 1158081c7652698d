package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/DualCam/internal/hw/camera"
)

// MaxConfigFileBytes bounds the size of a configuration file.
const MaxConfigFileBytes = 64 << 10

// SnapshotExtensions are the file formats the image encoder accepts.
var SnapshotExtensions = []string{"jpg", "jpeg", "png", "bmp", "tiff", "webp"}

// CameraConfig binds one slot to a video device.
type CameraConfig struct {
	Device int    `yaml:"device"` // video device index, e.g. 0 for /dev/video0
	Label  string `yaml:"label"`  // snapshot file prefix, e.g. "camera1"
}

// CaptureConfig describes where snapshots go.
type CaptureConfig struct {
	Directory string `yaml:"directory"` // created on first save
	Extension string `yaml:"extension"` // jpg, png, ...
}

// DisplayConfig describes the preview window.
type DisplayConfig struct {
	WindowTitle    string `yaml:"window_title"`
	PollIntervalMs int    `yaml:"poll_interval_ms"` // key wait per loop iteration
	Headless       bool   `yaml:"headless"`         // no window; keys from GPIO buttons only
}

// GPIOConfig is optional: physical buttons and one LED per slot.
type GPIOConfig struct {
	Enabled    bool           `yaml:"enabled"`
	Mock       bool           `yaml:"mock"`        // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	Buttons    map[int]string `yaml:"buttons"`     // BCM pin -> key, active LOW with pull-up
	ActiveLEDs []int          `yaml:"active_leds"` // BCM pin per slot, lit when that slot is active
}

// MQTTConfig is optional: event notifications to a broker.
type MQTTConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Broker         string `yaml:"broker"` // e.g. tcp://localhost:1883
	ClientID       string `yaml:"client_id"`
	TopicPrefix    string `yaml:"topic_prefix"`
	QoS            int    `yaml:"qos"`
	Thumbnail      bool   `yaml:"thumbnail"` // attach a base64 JPEG to snapshot events
	ThumbnailWidth int    `yaml:"thumbnail_width"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	InitialResolution int  `yaml:"initial_resolution"` // index into resolutions
	DebugLevel        int  `yaml:"debug_level"`        // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockCamera        bool `yaml:"mock_camera"`        // synthetic sensors instead of video devices
}

// Config aggregates all application configuration.
type Config struct {
	Cameras     []CameraConfig      `yaml:"cameras"`
	Resolutions []camera.Resolution `yaml:"resolutions"`
	Capture     CaptureConfig       `yaml:"capture"`
	Display     DisplayConfig       `yaml:"display"`
	Controls    map[string]string   `yaml:"controls"` // command name -> key
	GPIO        GPIOConfig          `yaml:"gpio"`
	MQTT        MQTTConfig          `yaml:"mqtt"`
	Defaults    DefaultsConfig      `yaml:"defaults"`
}

// DefaultResolutions is the cycle used when the file lists none.
var DefaultResolutions = []camera.Resolution{
	{Width: 640, Height: 480},
	{Width: 1280, Height: 720},
	{Width: 1920, Height: 1080},
	{Width: 2592, Height: 1944},
}

// ValidateConfigPath accepts only .yaml files whose parent directory is
// named "configs".
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file larger than %d bytes", MaxConfigFileBytes)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	// Cameras
	if len(c.Cameras) == 0 {
		c.Cameras = []CameraConfig{{Device: 0}, {Device: 1}}
	}
	if len(c.Cameras) != 2 {
		return fmt.Errorf("cameras: exactly 2 entries required, got %d", len(c.Cameras))
	}
	for i := range c.Cameras {
		if c.Cameras[i].Device < 0 {
			return fmt.Errorf("cameras[%d].device must be >= 0, got %d", i, c.Cameras[i].Device)
		}
		if c.Cameras[i].Label == "" {
			c.Cameras[i].Label = fmt.Sprintf("camera%d", i+1)
		}
		if strings.ContainsAny(c.Cameras[i].Label, `/\`) {
			return fmt.Errorf("cameras[%d].label %q must not contain path separators", i, c.Cameras[i].Label)
		}
	}
	if c.Cameras[0].Label == c.Cameras[1].Label {
		return fmt.Errorf("cameras: labels must differ, both are %q", c.Cameras[0].Label)
	}

	// Resolutions
	if len(c.Resolutions) == 0 {
		c.Resolutions = append([]camera.Resolution(nil), DefaultResolutions...)
	}
	for i, r := range c.Resolutions {
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("resolutions[%d] = %s: width and height must be > 0", i, r)
		}
	}
	if c.Defaults.InitialResolution < 0 || c.Defaults.InitialResolution >= len(c.Resolutions) {
		return fmt.Errorf("defaults.initial_resolution must be between 0 and %d, got %d",
			len(c.Resolutions)-1, c.Defaults.InitialResolution)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}

	// Capture
	if c.Capture.Directory == "" {
		c.Capture.Directory = "camera_captures"
	}
	ext := strings.ToLower(strings.TrimPrefix(c.Capture.Extension, "."))
	if ext == "" {
		ext = "jpg"
	}
	if !validExtension(ext) {
		return fmt.Errorf("capture.extension %q not supported (use one of %s)",
			c.Capture.Extension, strings.Join(SnapshotExtensions, ", "))
	}
	c.Capture.Extension = ext

	// Display
	if c.Display.WindowTitle == "" {
		c.Display.WindowTitle = "Dual Camera Preview"
	}
	if c.Display.PollIntervalMs <= 0 {
		c.Display.PollIntervalMs = 1
	}

	// Controls: every key must be a single character, keys must be unique.
	seen := make(map[string]string, len(c.Controls))
	for name, key := range c.Controls {
		if len([]rune(key)) != 1 {
			return fmt.Errorf("controls.%s: key %q must be a single character", name, key)
		}
		if other, ok := seen[key]; ok {
			return fmt.Errorf("controls: key %q bound to both %s and %s", key, other, name)
		}
		seen[key] = name
	}

	// GPIO
	if c.GPIO.Enabled {
		for pin, key := range c.GPIO.Buttons {
			if pin < 0 {
				return fmt.Errorf("gpio.buttons: invalid pin %d", pin)
			}
			if len([]rune(key)) != 1 {
				return fmt.Errorf("gpio.buttons.%d: key %q must be a single character", pin, key)
			}
		}
		if n := len(c.GPIO.ActiveLEDs); n != 0 && n != len(c.Cameras) {
			return fmt.Errorf("gpio.active_leds: %d pins for %d cameras", n, len(c.Cameras))
		}
	}

	// MQTT
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
		if c.MQTT.ClientID == "" {
			c.MQTT.ClientID = "dualcam"
		}
		if c.MQTT.TopicPrefix == "" {
			c.MQTT.TopicPrefix = "dualcam"
		}
		if c.MQTT.ThumbnailWidth <= 0 {
			c.MQTT.ThumbnailWidth = 320
		}
	}
	return nil
}

func validExtension(ext string) bool {
	for _, e := range SnapshotExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// PollInterval returns the key wait per loop iteration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Display.PollIntervalMs) * time.Millisecond
}
