// Package browser implements the UI driver on top of playwright-go, attached
// over CDP to a browser started by the profile control API.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/atotto/clipboard"
	"github.com/playwright-community/playwright-go"

	"NotebookSync/internal/ports"
)

// maskWebdriverScript hides navigator.webdriver from page scripts.
const maskWebdriverScript = `
Object.defineProperty(window, 'navigator', {
    value: new Proxy(navigator, {
        has: (target, key) => key === 'webdriver' ? false : key in target,
        get: (target, key) =>
            key === 'webdriver' ? undefined : typeof target[key] === 'function' ? target[key].bind(target) : target[key]
    })
});`

const (
	viewportScript  = `() => ({ width: window.innerWidth || document.documentElement.clientWidth, height: window.innerHeight || document.documentElement.clientHeight })`
	clipboardScript = `() => navigator.clipboard.readText()`
	scrollEndScript = `el => { el.scrollTop = el.scrollHeight }`
)

// Options configures the CDP connection.
type Options struct {
	SlowMoMin               time.Duration
	SlowMoMax               time.Duration
	NavigationTimeout       time.Duration
	SystemClipboardFallback bool
}

// Connector starts playwright and attaches to a remote browser.
type Connector struct {
	opts   Options
	logger *slog.Logger
}

var _ ports.DriverConnector = (*Connector)(nil)

// NewConnector builds a connector.
func NewConnector(opts Options, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{opts: opts, logger: logger}
}

// Connect attaches to the browser behind endpoint and opens a fresh page.
func (c *Connector) Connect(ctx context.Context, endpoint string) (ports.UIDriver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := &playwright.RunOptions{
		SkipInstallBrowsers: true,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("install playwright driver: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	slowMo := slowMoBetween(c.opts.SlowMoMin, c.opts.SlowMoMax)
	browser, err := pw.Chromium.ConnectOverCDP(endpoint, playwright.BrowserTypeConnectOverCDPOptions{
		SlowMo: playwright.Float(float64(slowMo.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("connect over cdp: %w", err)
	}

	var bctx playwright.BrowserContext
	if contexts := browser.Contexts(); len(contexts) > 0 {
		bctx = contexts[0]
	} else if bctx, err = browser.NewContext(); err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("create context: %w", err)
	}

	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(maskWebdriverScript)}); err != nil {
		c.logger.Warn("init script not installed", "error", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("create page: %w", err)
	}
	if c.opts.NavigationTimeout > 0 {
		page.SetDefaultNavigationTimeout(float64(c.opts.NavigationTimeout.Milliseconds()))
	}

	c.logger.Debug("attached to browser", "slow_mo", slowMo)
	return &Driver{
		pw:                pw,
		browser:           browser,
		context:           bctx,
		page:              page,
		clipboardFallback: c.opts.SystemClipboardFallback,
		logger:            c.logger,
	}, nil
}

func slowMoBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(hi-lo)+1))
}

// Driver is a ports.UIDriver backed by a single playwright page.
type Driver struct {
	pw                *playwright.Playwright
	browser           playwright.Browser
	context           playwright.BrowserContext
	page              playwright.Page
	clipboardFallback bool
	logger            *slog.Logger
}

var _ ports.UIDriver = (*Driver)(nil)

// Open navigates to url and waits for the load event.
func (d *Driver) Open(url string) error {
	if _, err := d.page.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad}); err != nil {
		return mapErr(fmt.Errorf("open %s: %w", url, err))
	}
	return nil
}

// Locate returns the first element matching selector.
func (d *Driver) Locate(selector string) ports.Element {
	return &element{loc: d.page.Locator(selector).First()}
}

// FindAll returns every element matching selector in document order.
func (d *Driver) FindAll(selector string) ([]ports.Element, error) {
	locs, err := d.page.Locator(selector).All()
	if err != nil {
		return nil, mapErr(fmt.Errorf("find %s: %w", selector, err))
	}
	out := make([]ports.Element, 0, len(locs))
	for _, loc := range locs {
		out = append(out, &element{loc: loc})
	}
	return out, nil
}

// Count returns the number of attached elements matching selector.
func (d *Driver) Count(selector string) (int, error) {
	n, err := d.page.Locator(selector).Count()
	if err != nil {
		return 0, mapErr(fmt.Errorf("count %s: %w", selector, err))
	}
	return n, nil
}

// Viewport reads the window's inner size from the page.
func (d *Driver) Viewport() (ports.Viewport, error) {
	raw, err := d.page.Evaluate(viewportScript)
	if err != nil {
		return ports.Viewport{}, mapErr(fmt.Errorf("read viewport: %w", err))
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return ports.Viewport{}, fmt.Errorf("read viewport: unexpected result %T", raw)
	}
	w, wOK := toFloat(m["width"])
	h, hOK := toFloat(m["height"])
	if !wOK || !hOK {
		return ports.Viewport{}, fmt.Errorf("read viewport: unexpected result %v", m)
	}
	return ports.Viewport{Width: w, Height: h}, nil
}

// Focus brings the page to front and clicks the body so clipboard access is allowed.
func (d *Driver) Focus() error {
	if err := d.page.BringToFront(); err != nil {
		return mapErr(fmt.Errorf("bring to front: %w", err))
	}
	if err := d.page.Locator("body").Click(); err != nil {
		return mapErr(fmt.Errorf("click body: %w", err))
	}
	return nil
}

// GrantClipboardAccess allows the page to read and write the clipboard.
func (d *Driver) GrantClipboardAccess() error {
	if err := d.context.GrantPermissions([]string{"clipboard-read", "clipboard-write"}); err != nil {
		return mapErr(fmt.Errorf("grant clipboard permissions: %w", err))
	}
	return nil
}

// ReadClipboard reads text through the page's clipboard API, falling back to
// the system clipboard when configured.
func (d *Driver) ReadClipboard() (string, error) {
	raw, err := d.page.Evaluate(clipboardScript)
	if err == nil {
		text, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("read clipboard: unexpected result %T", raw)
		}
		return text, nil
	}

	err = mapErr(fmt.Errorf("read clipboard: %w", err))
	if !d.clipboardFallback || errors.Is(err, ports.ErrDriverClosed) {
		return "", err
	}

	d.logger.Warn("page clipboard read failed, using system clipboard", "error", err)
	text, sysErr := clipboard.ReadAll()
	if sysErr != nil {
		return "", fmt.Errorf("read system clipboard: %w", sysErr)
	}
	return text, nil
}

// Close detaches from the browser and stops playwright.
func (d *Driver) Close() error {
	var errs []error
	if d.page != nil {
		if err := d.page.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if d.pw != nil {
		if err := d.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

type element struct {
	loc playwright.Locator
}

func (e *element) Text() (string, error) {
	text, err := e.loc.InnerText()
	return text, mapErr(err)
}

func (e *element) Enabled() (bool, error) {
	ok, err := e.loc.IsEnabled()
	return ok, mapErr(err)
}

func (e *element) WaitFor(state ports.ElementState, timeout time.Duration) error {
	pwState := playwright.WaitForSelectorState(state)
	opts := playwright.LocatorWaitForOptions{State: &pwState}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}
	return mapErr(e.loc.WaitFor(opts))
}

func (e *element) BoundingBox() (*ports.Rect, error) {
	box, err := e.loc.BoundingBox()
	if err != nil {
		return nil, mapErr(err)
	}
	if box == nil {
		return nil, nil
	}
	return &ports.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *element) ClickAt(x, y float64) error {
	return mapErr(e.loc.Click(playwright.LocatorClickOptions{
		Position: &playwright.Position{X: x, Y: y},
	}))
}

func (e *element) Fill(text string) error {
	return mapErr(e.loc.Fill(text))
}

func (e *element) Find(selector string) ports.Element {
	return &element{loc: e.loc.Locator(selector).First()}
}

func (e *element) ScrollToEnd() error {
	_, err := e.loc.Evaluate(scrollEndScript, nil)
	return mapErr(err)
}

// mapErr marks errors caused by a closed page or browser as ports.ErrDriverClosed.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTargetClosed) && !errors.Is(err, ports.ErrDriverClosed) {
		return fmt.Errorf("%w: %w", ports.ErrDriverClosed, err)
	}
	return err
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
