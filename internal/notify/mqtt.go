// Package notify publishes controller events to an MQTT broker:
// retained state, snapshot notices with an optional JPEG thumbnail, and
// errors. Publishing never blocks the control loop.
package notify

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"gocv.io/x/gocv"

	"github.com/cjeanneret/DualCam/internal/debug"
	"github.com/cjeanneret/DualCam/internal/logic/controller"
)

// Topic suffixes under the configured prefix.
const (
	TopicStatus    = "status"    // "online"/"offline", retained, last will
	TopicState     = "state"     // controller.State JSON, retained
	TopicSnapshots = "snapshots" // SnapshotMessage JSON
	TopicErrors    = "errors"    // ErrorMessage JSON
)

// Options configures the MQTT connection and payloads.
type Options struct {
	Broker         string // e.g. tcp://localhost:1883
	ClientID       string
	TopicPrefix    string
	QoS            byte
	Thumbnail      bool
	ThumbnailWidth int
}

// Publisher is the subset of mqtt.Client used here.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// SnapshotMessage announces a saved snapshot.
type SnapshotMessage struct {
	Time      string `json:"time"`
	Slot      int    `json:"slot"`
	Label     string `json:"label"`
	File      string `json:"file"`
	Path      string `json:"path"`
	Thumbnail string `json:"thumbnail,omitempty"` // base64 JPEG
}

// ErrorMessage reports a failure shown to the operator.
type ErrorMessage struct {
	Time  string `json:"time"`
	Slot  *int   `json:"slot,omitempty"`
	Error string `json:"error"`
}

// Notifier is a controller.Observer publishing to MQTT.
type Notifier struct {
	pub   Publisher
	opts  Options
	wait  time.Duration
	thumb func(path string, width int) (string, error)

	pending sync.WaitGroup // snapshot publishes still encoding a thumbnail
}

// NewNotifier wraps an already connected publisher.
func NewNotifier(pub Publisher, opts Options) *Notifier {
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = 320
	}
	return &Notifier{pub: pub, opts: opts, wait: 5 * time.Second, thumb: Thumbnail}
}

// Close waits for snapshot messages still being prepared.
func (n *Notifier) Close() {
	n.pending.Wait()
}

// Topic returns the full topic for suffix.
func (n *Notifier) Topic(suffix string) string {
	return topic(n.opts.TopicPrefix, suffix)
}

func topic(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

// Observe implements controller.Observer.
func (n *Notifier) Observe(e controller.Event) {
	ts := e.Time.Format(time.RFC3339)
	switch e.Kind {
	case controller.EventState:
		n.publishJSON(TopicState, true, e.State)
	case controller.EventSnapshot:
		msg := SnapshotMessage{
			Time: ts,
			Slot: e.Slot,
			File: filepath.Base(e.Path),
			Path: e.Path,
		}
		if e.Slot >= 0 && e.Slot < len(e.State.Slots) {
			msg.Label = e.State.Slots[e.Slot].Label
		}
		if !n.opts.Thumbnail {
			n.publishJSON(TopicSnapshots, false, msg)
			return
		}
		n.pending.Add(1)
		go func() {
			defer n.pending.Done()
			thumb, err := n.thumb(msg.Path, n.opts.ThumbnailWidth)
			if err != nil {
				debug.Error(fmt.Errorf("mqtt thumbnail: %w", err))
			} else {
				msg.Thumbnail = thumb
			}
			n.publishJSON(TopicSnapshots, false, msg)
		}()
	case controller.EventError:
		msg := ErrorMessage{Time: ts}
		if e.Slot >= 0 {
			slot := e.Slot
			msg.Slot = &slot
		}
		if e.Err != nil {
			msg.Error = e.Err.Error()
		}
		n.publishJSON(TopicErrors, false, msg)
	}
}

func (n *Notifier) publishJSON(suffix string, retained bool, obj interface{}) {
	payload, err := json.Marshal(obj)
	if err != nil {
		debug.Error(fmt.Errorf("mqtt %s: %w", suffix, err))
		return
	}
	t := n.Topic(suffix)
	debug.Trace("MQTT publish %s (%d bytes)", t, len(payload))
	n.watch(t, n.pub.Publish(t, n.opts.QoS, retained, payload))
}

// watch logs a failed publish without holding up the caller.
func (n *Notifier) watch(t string, token mqtt.Token) {
	go func() {
		if !token.WaitTimeout(n.wait) {
			debug.Verbose("MQTT publish %s: no ack after %s", t, n.wait)
			return
		}
		if err := token.Error(); err != nil {
			debug.Error(fmt.Errorf("mqtt publish %s: %w", t, err))
		}
	}()
}

// Thumbnail reads the image at path, scales it to width keeping the aspect
// ratio and returns it as base64 JPEG.
func Thumbnail(path string, width int) (string, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return "", fmt.Errorf("read %s: no image", path)
	}

	small := gocv.NewMat()
	defer small.Close()
	if img.Cols() > width {
		height := img.Rows() * width / img.Cols()
		if height < 1 {
			height = 1
		}
		gocv.Resize(img, &small, image.Pt(width, height), 0, 0, gocv.InterpolationArea)
	} else {
		img.CopyTo(&small)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, small)
	if err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	defer buf.Close()
	return base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}

// Connect opens an MQTT client with a retained "offline" last will and
// announces "online".
func Connect(opts Options) (mqtt.Client, error) {
	status := topic(opts.TopicPrefix, TopicStatus)

	co := mqtt.NewClientOptions().AddBroker(opts.Broker).SetClientID(opts.ClientID)
	co.SetKeepAlive(10 * time.Second)
	co.SetPingTimeout(2 * time.Second)
	co.SetConnectTimeout(5 * time.Second)
	co.SetAutoReconnect(true)
	co.SetWill(status, "offline", opts.QoS, true)
	co.SetOnConnectHandler(func(c mqtt.Client) {
		debug.Info("MQTT connected to %s", opts.Broker)
		c.Publish(status, opts.QoS, true, "online")
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		debug.Error(fmt.Errorf("mqtt connection lost: %w", err))
	})

	c := mqtt.NewClient(co)
	token := c.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", opts.Broker, err)
	}
	return c, nil
}

// Disconnect publishes "offline" and closes the client.
func Disconnect(c mqtt.Client, opts Options) {
	status := topic(opts.TopicPrefix, TopicStatus)
	c.Publish(status, opts.QoS, true, "offline").WaitTimeout(time.Second)
	c.Disconnect(250)
}
