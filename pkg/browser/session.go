package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/imann24/ai-browser-agent/pkg/logging"
)

// DefaultSettleDelay is how long Navigate waits after a successful goto
// for the page to settle before content is considered readable.
const DefaultSettleDelay = 2 * time.Second

// Session owns at most one live browser driver. The driver is created
// lazily by the factory on the first operation and reused across tasks;
// only the session's owner may close it. A Session is not safe for
// concurrent use by multiple tasks; callers serialize task execution.
type Session struct {
	mu          sync.Mutex
	factory     DriverFactory
	driver      Driver
	closed      bool
	settleDelay time.Duration
	screenshots *ScreenshotWriter
	log         *logging.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSettleDelay overrides the post-navigation settle delay.
func WithSettleDelay(d time.Duration) SessionOption {
	return func(s *Session) {
		s.settleDelay = d
	}
}

// WithScreenshotWriter sets the writer used for file-based screenshots.
func WithScreenshotWriter(w *ScreenshotWriter) SessionOption {
	return func(s *Session) {
		s.screenshots = w
	}
}

// NewSession creates a session whose driver will be built by factory on
// first use.
func NewSession(factory DriverFactory, opts ...SessionOption) *Session {
	log, err := logging.NewLogger("browser")
	if err != nil {
		log.Warnf("browser logger fell back to stderr: %v", err)
	}

	s := &Session{
		factory:     factory,
		settleDelay: DefaultSettleDelay,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ensureDriver lazily creates the driver. Must be called with s.mu held.
func (s *Session) ensureDriver() (Driver, error) {
	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}
	if s.driver != nil {
		return s.driver, nil
	}

	s.log.Debugf("creating browser driver")
	driver, err := s.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser driver: %w", err)
	}
	s.driver = driver
	return driver, nil
}

// Navigate opens the URL and waits the settle delay. It reports success
// as a boolean and never surfaces an error to the caller; failures are
// logged and the session stays usable for the next task.
func (s *Session) Navigate(ctx context.Context, url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	driver, err := s.ensureDriver()
	if err != nil {
		s.log.Errorf("navigate %s: %v", url, err)
		return false
	}

	if err := driver.Navigate(ctx, url); err != nil {
		s.log.Errorf("navigate %s: %v", url, err)
		return false
	}

	// Give the page a moment to load, but wake early on cancellation.
	select {
	case <-time.After(s.settleDelay):
	case <-ctx.Done():
	}

	s.log.Debugf("navigated to %s, current URL %s", url, driver.URL())
	return true
}

// Content returns the readable text of the current page, extracted from
// its HTML. Failures return an empty string rather than an error.
func (s *Session) Content(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	driver, err := s.ensureDriver()
	if err != nil {
		s.log.Errorf("content: %v", err)
		return ""
	}

	html, err := driver.Content(ctx)
	if err != nil {
		s.log.Errorf("content: %v", err)
		return ""
	}

	text, err := ExtractText(html)
	if err != nil {
		s.log.Errorf("content: text extraction: %v", err)
		return ""
	}
	return text
}

// Screenshot captures the current page as PNG bytes for streaming to
// callers. Failures return nil, never an error.
func (s *Session) Screenshot(ctx context.Context) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	driver, err := s.ensureDriver()
	if err != nil {
		s.log.Errorf("screenshot: %v", err)
		return nil
	}

	image, err := driver.Screenshot(ctx)
	if err != nil {
		s.log.Errorf("screenshot: %v", err)
		return nil
	}
	return image
}

// ScreenshotToFile captures the page and writes it to the screenshot
// directory under the given checkpoint name. Returns the written path,
// or an empty string on failure.
func (s *Session) ScreenshotToFile(ctx context.Context, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.screenshots == nil {
		return ""
	}

	driver, err := s.ensureDriver()
	if err != nil {
		s.log.Errorf("screenshot to file: %v", err)
		return ""
	}

	image, err := driver.Screenshot(ctx)
	if err != nil {
		s.log.Errorf("screenshot to file: %v", err)
		return ""
	}

	path, err := s.screenshots.Write(name, image)
	if err != nil {
		s.log.Errorf("screenshot to file: %v", err)
		return ""
	}
	return path
}

// Screenshots returns the session's screenshot writer, or nil when
// file-based screenshots are not configured.
func (s *Session) Screenshots() *ScreenshotWriter {
	return s.screenshots
}

// CurrentURL returns the URL of the current page, or an empty string if
// no driver exists yet.
func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver == nil {
		return ""
	}
	return s.driver.URL()
}

// Close shuts down the driver. Safe to call repeatedly; calls after the
// first are no-ops. Teardown failures are logged and swallowed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.driver != nil {
		if err := s.driver.Close(); err != nil {
			s.log.Errorf("close: %v", err)
		}
		s.driver = nil
	}
	s.log.Debugf("session closed")
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
