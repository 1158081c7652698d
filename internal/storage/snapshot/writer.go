package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cjeanneret/DualCam/internal/debug"
	"gocv.io/x/gocv"
)

// TimestampLayout is the second-resolution timestamp used in file names.
const TimestampLayout = "20060102_150405"

// DefaultExtension is used when no extension is configured.
const DefaultExtension = "jpg"

var errEncode = errors.New("encoder rejected image")

// PersistenceError reports a snapshot that could not be written.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save snapshot %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Writer stores frames as image files in a directory. The encoding is
// chosen by OpenCV from the file extension.
type Writer struct {
	dir string
	ext string
	now func() time.Time
}

// NewWriter creates a writer for dir. The directory is created on first save.
func NewWriter(dir, ext string) *Writer {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultExtension
	}
	return &Writer{dir: dir, ext: ext, now: time.Now}
}

// Dir returns the target directory.
func (w *Writer) Dir() string { return w.dir }

// FileName returns "<label>_<YYYYMMDD_HHMMSS>.<ext>".
func FileName(label string, t time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", label, t.Format(TimestampLayout), ext)
}

// Save encodes frame to a new file named after label and the current
// time, and returns its path. A second save within the same second
// overwrites the first.
func (w *Writer) Save(label string, frame gocv.Mat) (string, error) {
	path := filepath.Join(w.dir, FileName(label, w.now(), w.ext))

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", &PersistenceError{Path: path, Err: fmt.Errorf("create directory: %w", err)}
	}
	if frame.Empty() {
		return "", &PersistenceError{Path: path, Err: fmt.Errorf("empty frame")}
	}
	if ok := gocv.IMWrite(path, frame); !ok {
		return "", &PersistenceError{Path: path, Err: errEncode}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}
	if info.Size() == 0 {
		return "", &PersistenceError{Path: path, Err: fmt.Errorf("empty file written")}
	}

	debug.Verbose("Snapshot: %d bytes written to %s", info.Size(), path)
	return path, nil
}
