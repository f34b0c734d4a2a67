package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ScreenshotWriter persists checkpoint screenshots to a local directory.
// Files are named {kind}_{sessionID}.png for one-off checkpoints and
// {kind}_{sessionID}_{n}.png when the same kind repeats within a task,
// where the suffix increases monotonically per kind.
type ScreenshotWriter struct {
	mu        sync.Mutex
	dir       string
	sessionID string
	counts    map[string]int
}

// NewScreenshotWriter creates a writer rooted at dir. The directory is
// created if it does not exist. The session ID is a timestamp shared by
// all screenshots of one task, matching the audit-file naming the chat
// front end expects.
func NewScreenshotWriter(dir string) (*ScreenshotWriter, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	return &ScreenshotWriter{
		dir:       dir,
		sessionID: time.Now().Format("20060102_150405"),
		counts:    make(map[string]int),
	}, nil
}

// ResetTask starts a fresh naming session for a new task: a new timestamp
// ID and zeroed per-kind counters.
func (w *ScreenshotWriter) ResetTask() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sessionID = time.Now().Format("20060102_150405")
	w.counts = make(map[string]int)
}

// Write stores image bytes under the given checkpoint kind and returns
// the path written.
func (w *ScreenshotWriter) Write(kind string, image []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.counts[kind]++
	name := fmt.Sprintf("%s_%s.png", kind, w.sessionID)
	if w.counts[kind] > 1 {
		name = fmt.Sprintf("%s_%s_%d.png", kind, w.sessionID, w.counts[kind])
	}

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, image, 0600); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}

// Dir returns the directory screenshots are written to.
func (w *ScreenshotWriter) Dir() string {
	return w.dir
}
