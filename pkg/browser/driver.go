// Package browser owns the long-lived browser automation session used by
// the agent. A Session wraps exactly one Driver, created lazily on first
// use and reused across tasks until the owner closes it.
package browser

import (
	"context"
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// Driver is the polymorphic browser automation interface. One concrete
// adapter exists per automation engine; call sites never inspect the
// underlying handle.
type Driver interface {
	// Navigate opens the URL and waits for the page to load.
	Navigate(ctx context.Context, url string) error

	// Content returns the current page's HTML.
	Content(ctx context.Context) (string, error)

	// Screenshot captures the current page as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// URL returns the current page URL.
	URL() string

	// Close releases the underlying browser process.
	Close() error
}

// DriverFactory creates a Driver on demand, enabling lazy session startup.
type DriverFactory func() (Driver, error)

// chromiumArgs mirror the launch flags the agent has always run with:
// containers and CI hosts need the sandbox and GPU paths disabled.
var chromiumArgs = []string{
	"--disable-gpu",
	"--disable-dev-shm-usage",
	"--no-sandbox",
	"--disable-software-rasterizer",
	"--disable-gpu-sandbox",
}

// playwrightDriver adapts Playwright's Chromium to the Driver interface.
type playwrightDriver struct {
	pw             *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
}

// NewPlaywrightDriver launches a Chromium instance via Playwright and
// returns it behind the Driver interface. Playwright's own output is
// discarded so it cannot interleave with caller-facing progress lines.
func NewPlaywrightDriver(headless bool) (Driver, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
		Args:     chromiumArgs,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserContext, err := browser.NewContext()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := browserContext.NewPage()
	if err != nil {
		browserContext.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &playwrightDriver{
		pw:             pw,
		browser:        browser,
		browserContext: browserContext,
		page:           page,
	}, nil
}

// ensurePage recreates the page from the browser process if the previous
// one was closed out from under us.
func (d *playwrightDriver) ensurePage() error {
	if d.page != nil && !d.page.IsClosed() {
		return nil
	}

	page, err := d.browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	d.page = page
	return nil
}

func (d *playwrightDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.ensurePage(); err != nil {
		return err
	}

	if _, err := d.page.Goto(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (d *playwrightDriver) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := d.ensurePage(); err != nil {
		return "", err
	}

	content, err := d.page.Content()
	if err != nil {
		return "", fmt.Errorf("content extraction failed: %w", err)
	}
	return content, nil
}

func (d *playwrightDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.ensurePage(); err != nil {
		return nil, err
	}

	image, err := d.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return image, nil
}

func (d *playwrightDriver) URL() string {
	if d.page == nil {
		return ""
	}
	return d.page.URL()
}

func (d *playwrightDriver) Close() error {
	// Ignore per-resource errors and continue cleanup so a dead page
	// cannot leak the browser process.
	if d.page != nil {
		_ = d.page.Close()
	}
	if d.browserContext != nil {
		_ = d.browserContext.Close()
	}
	if d.browser != nil {
		_ = d.browser.Close()
	}
	if d.pw != nil {
		if err := d.pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
	}
	return nil
}
