package web

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cjeanneret/DualCam/internal/hw/camera"
	"github.com/cjeanneret/DualCam/internal/logic/controller"
)

func sampleState() controller.State {
	return controller.State{
		ActiveSlot:     1,
		PreviewEnabled: true,
		Resolution:     camera.Resolution{Width: 640, Height: 480},
		Slots: []controller.SlotState{
			{Index: 0, Label: "camera1", Name: "Camera 1", Available: true},
			{Index: 1, Label: "camera2", Name: "Camera 2", Exposure: 2, Brightness: -5, Available: true},
		},
	}
}

func receive(t *testing.T, ch <-chan string) StatusEvent {
	t.Helper()
	select {
	case msg := <-ch:
		var evt StatusEvent
		if err := json.Unmarshal([]byte(msg), &evt); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
	}
	return StatusEvent{}
}

func TestBroadcaster_SubscribeAndReceive(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Broadcast("info", "hello")

	evt := receive(t, ch)
	if evt.Msg != "hello" {
		t.Errorf("msg = %q, want \"hello\"", evt.Msg)
	}
	if evt.Level != "info" || evt.Kind != "log" {
		t.Errorf("level/kind = %q/%q, want info/log", evt.Level, evt.Kind)
	}
	if evt.Time == "" {
		t.Error("event should have a timestamp")
	}
}

func TestBroadcaster_MultipleSubscribers(t *testing.T) {
	b := NewStatusBroadcaster()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Broadcast("info", "multi")

	for _, ch := range []<-chan string{ch1, ch2} {
		if evt := receive(t, ch); evt.Msg != "multi" {
			t.Errorf("msg = %q, want \"multi\"", evt.Msg)
		}
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	// Broadcasting after unsubscribe should not panic
	b.Broadcast("info", "after unsub")
}

func TestBroadcaster_FullChannelDropsMessage(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < 64; i++ {
		b.Broadcast("info", "fill")
	}
	// Must not block.
	b.Broadcast("info", "overflow")

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			goto done
		}
	}
done:
	if count != 64 {
		t.Errorf("expected 64 buffered messages, got %d", count)
	}
}

func TestBroadcaster_ObserveStoresLatest(t *testing.T) {
	b := NewStatusBroadcaster()
	if _, ok := b.Latest(); ok {
		t.Fatal("Latest reported data before any event")
	}
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Observe(controller.Event{Kind: controller.EventState, Time: time.Now(), State: sampleState()})

	st, ok := b.Latest()
	if !ok || st.ActiveSlot != 1 || st.Slots[1].Exposure != 2 {
		t.Errorf("Latest = %+v,%v", st, ok)
	}
	evt := receive(t, ch)
	if evt.Kind != "state" || evt.State == nil || evt.State.Slots[1].Brightness != -5 {
		t.Errorf("event = %+v", evt)
	}
}

func TestBroadcaster_ObserveSnapshotAndError(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Observe(controller.Event{Kind: controller.EventSnapshot, Time: time.Now(), State: sampleState(), Slot: 1, Path: "out/camera2_x.jpg"})
	evt := receive(t, ch)
	if evt.Kind != "snapshot" || evt.Path != "out/camera2_x.jpg" || evt.Slot == nil || *evt.Slot != 1 {
		t.Errorf("snapshot event = %+v", evt)
	}

	b.Observe(controller.Event{Kind: controller.EventError, Time: time.Now(), State: sampleState(), Slot: -1, Err: errors.New("boom")})
	evt = receive(t, ch)
	if evt.Kind != "error" || evt.Level != "error" || evt.Msg != "boom" || evt.Slot != nil {
		t.Errorf("error event = %+v", evt)
	}
}

func TestBroadcastWriter_Write(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	w := BroadcastWriter(b)
	n, err := w.Write([]byte("  trimmed message  \n"))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len("  trimmed message  \n") {
		t.Errorf("n = %d, want %d", n, len("  trimmed message  \n"))
	}
	if evt := receive(t, ch); evt.Msg != "trimmed message" || evt.Level != "info" {
		t.Errorf("event = %+v", evt)
	}

	w.Write([]byte("ERROR: camera 1: capture failed\n"))
	if evt := receive(t, ch); evt.Level != "error" {
		t.Errorf("level = %q, want error", evt.Level)
	}
}

func TestBroadcastWriter_EmptyWriteIgnored(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	BroadcastWriter(b).Write([]byte("   \n"))

	select {
	case <-ch:
		t.Error("expected no message for whitespace-only write")
	case <-time.After(50 * time.Millisecond):
	}
}
