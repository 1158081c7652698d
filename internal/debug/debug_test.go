package debug

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(lvl)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Init(LevelOff)
	})
	return &buf
}

func TestLevels(t *testing.T) {
	cases := []struct {
		level int
		want  []string
		skip  []string
	}{
		{LevelOff, nil, []string{"info-msg", "live-msg", "verbose-msg"}},
		{LevelInfo, []string{"info-msg"}, []string{"live-msg", "verbose-msg"}},
		{LevelLive, []string{"info-msg", "live-msg"}, []string{"verbose-msg"}},
		{LevelVerbose, []string{"info-msg", "live-msg", "verbose-msg"}, []string{"trace-msg"}},
		{LevelTrace, []string{"info-msg", "live-msg", "verbose-msg", "trace-msg"}, nil},
	}
	for _, tc := range cases {
		buf := capture(t, tc.level)
		Info("info-msg")
		Live("live-msg")
		Verbose("verbose-msg")
		Trace("trace-msg")

		out := buf.String()
		for _, w := range tc.want {
			if !strings.Contains(out, w) {
				t.Errorf("level %d: missing %q in %q", tc.level, w, out)
			}
		}
		for _, s := range tc.skip {
			if strings.Contains(out, s) {
				t.Errorf("level %d: unexpected %q", tc.level, s)
			}
		}
	}
}

func TestOperatorMessages(t *testing.T) {
	buf := capture(t, LevelLive)
	Command('s', "save-active")
	Control("Camera 2", "exposure compensation", 3)
	Snapshot("Camera 1", "camera_captures/camera1_20260101_120000.jpg")

	out := buf.String()
	for _, want := range []string{
		`Key 's' -> save-active`,
		"Camera 2 exposure compensation: 3",
		"Camera 1: image saved as camera_captures/camera1_20260101_120000.jpg",
		"[DualCam] ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestSetOutputAfterInit(t *testing.T) {
	capture(t, LevelInfo)
	var second bytes.Buffer
	SetOutput(&second)
	Info("redirected")
	if !strings.Contains(second.String(), "redirected") {
		t.Error("SetOutput did not redirect an initialized logger")
	}
}
