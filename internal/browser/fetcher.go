// Package browser wraps the headless-browser engine behind a small fetch
// contract: give it a URL, get back the rendered HTML and the page's
// hydration payload. Everything site-specific stays out of this package.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Page is the outcome of rendering one URL.
type Page struct {
	// URL is the final URL after redirects.
	URL string

	// HTML is the rendered document, post-JavaScript.
	HTML string

	// Hydration is the structured-data blob the site's framework embedded in
	// the page (window.__NUXT__ and friends). Nil when the page has none.
	Hydration map[string]any
}

// Fetcher renders listing pages.
type Fetcher interface {
	Render(ctx context.Context, url string) (*Page, error)
}

// hydrationJS serializes the first framework state global found on the page.
// Returns null when none exists or the blob is not serializable.
const hydrationJS = `() => {
	const globals = [window.__NUXT__, window.__INITIAL_STATE__, window.__NEXT_DATA__];
	for (const g of globals) {
		if (g && typeof g === "object") {
			try { return JSON.stringify(g); } catch (e) {}
		}
	}
	return null;
}`

// Options configures the rod-backed fetcher.
type Options struct {
	// ControlURL is a remote devtools endpoint. Empty launches a local
	// headless browser.
	ControlURL string

	// RenderTimeout is the hard cap for one Render call.
	RenderTimeout time.Duration

	// NetworkSettle is how long the network must be quiet before the page
	// counts as settled.
	NetworkSettle time.Duration

	Logger *slog.Logger
}

// Rod drives a Chromium instance over the DevTools protocol.
type Rod struct {
	browser *rod.Browser
	opts    Options
	logger  *slog.Logger
}

// NewRod connects to (or launches) a browser. Close releases it.
func NewRod(opts Options) (*Rod, error) {
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = 60 * time.Second
	}
	if opts.NetworkSettle <= 0 {
		opts.NetworkSettle = 2 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	controlURL := opts.ControlURL
	if controlURL == "" {
		u, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	log.Info("browser connected", "control_url", controlURL)
	return &Rod{browser: b, opts: opts, logger: log}, nil
}

// Close shuts the browser connection down.
func (r *Rod) Close() error {
	return r.browser.Close()
}

// Render navigates to url, waits for load plus a quiet network, and returns
// the rendered page. The whole call is bounded by RenderTimeout.
func (r *Rod) Render(ctx context.Context, url string) (*Page, error) {
	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx).Timeout(r.opts.RenderTimeout)

	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load %s: %w", url, err)
	}

	// Settle: no outstanding requests for the configured window. Listing
	// galleries lazy-load, so load alone is not enough.
	wait := page.WaitRequestIdle(r.opts.NetworkSettle, nil, nil, nil)
	wait()

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read html %s: %w", url, err)
	}

	info, err := page.Info()
	finalURL := url
	if err == nil && info.URL != "" {
		finalURL = info.URL
	}

	out := &Page{URL: finalURL, HTML: html}

	// Hydration payload is best-effort; a site without one is fine.
	if obj, err := page.Eval(hydrationJS); err == nil && obj != nil && !obj.Value.Nil() {
		var blob map[string]any
		if jerr := json.Unmarshal([]byte(obj.Value.Str()), &blob); jerr == nil {
			out.Hydration = blob
		} else {
			r.logger.Debug("hydration payload not parseable", "url", url, "error", jerr)
		}
	}

	return out, nil
}
