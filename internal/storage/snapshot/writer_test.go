package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func testFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), 48, 64, gocv.MatTypeCV8UC3)
}

func TestFileName(t *testing.T) {
	ts := time.Date(2026, 3, 7, 9, 5, 2, 0, time.Local)
	got := FileName("camera2", ts, "jpg")
	if got != "camera2_20260307_090502.jpg" {
		t.Errorf("FileName = %q, want %q", got, "camera2_20260307_090502.jpg")
	}
}

func TestNewWriter_Extension(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "jpg"},
		{"png", "png"},
		{".png", "png"},
	}
	for _, tc := range cases {
		if w := NewWriter("x", tc.in); w.ext != tc.want {
			t.Errorf("NewWriter(ext=%q).ext = %q, want %q", tc.in, w.ext, tc.want)
		}
	}
}

func TestSave_WritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures") // created on demand
	w := NewWriter(dir, "jpg")
	fixed := time.Date(2026, 10, 15, 14, 30, 0, 0, time.Local)
	w.now = func() time.Time { return fixed }

	frame := testFrame()
	defer frame.Close()

	path, err := w.Save("camera1", frame)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "camera1_20261015_143000.jpg" {
		t.Errorf("file = %q", filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("file is empty")
	}
}

func TestSave_TimestampMatchesCallTime(t *testing.T) {
	w := NewWriter(t.TempDir(), "png")
	frame := testFrame()
	defer frame.Close()

	before := time.Now().Truncate(time.Second)
	path, err := w.Save("camera2", frame)
	after := time.Now()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), ".png")
	if !strings.HasPrefix(base, "camera2_") {
		t.Fatalf("file %q lacks slot label", base)
	}
	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimPrefix(base, "camera2_"), time.Local)
	if err != nil {
		t.Fatalf("parse timestamp: %v", err)
	}
	if ts.Before(before) || ts.After(after) {
		t.Errorf("timestamp %v not within [%v, %v]", ts, before, after)
	}
}

func TestSave_UnwritableDirectory(t *testing.T) {
	// A regular file where the directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := NewWriter(filepath.Join(blocker, "captures"), "jpg")
	frame := testFrame()
	defer frame.Close()

	_, err := w.Save("camera1", frame)
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *PersistenceError", err)
	}
}

func TestSave_EmptyFrame(t *testing.T) {
	w := NewWriter(t.TempDir(), "jpg")
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := w.Save("camera1", empty)
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *PersistenceError", err)
	}
}
