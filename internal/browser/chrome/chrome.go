// Package chrome drives a real chromium instance through the devtools
// protocol (chromedp).
package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"utrhistory/internal/browser"
	"utrhistory/internal/components/assert"
	"utrhistory/internal/components/telemetry"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

const (
	report_launcher_launch = "launcher.launch"
	report_page_close      = "page.close"
	report_page_log        = "page.log"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

	pollInterval = 100 * time.Millisecond
)

type Options struct {
	Headless bool
	// StoragePath is a previously saved session, loaded into every new
	// page when the file exists.
	StoragePath       string
	DefaultTimeout    time.Duration
	NavigationTimeout time.Duration
}

type Launcher struct {
	opts Options
	tel  telemetry.API
}

func NewLauncher(opts Options, tel telemetry.API) Launcher {
	assert.NotNil(tel)
	if opts.DefaultTimeout == 0 {
		opts.DefaultTimeout = 15 * time.Second
	}
	if opts.NavigationTimeout == 0 {
		opts.NavigationTimeout = 20 * time.Second
	}
	return Launcher{
		opts: opts,
		tel:  telemetry.NewScopedAPI("chrome", tel),
	}
}

func (l Launcher) Launch(ctx context.Context) (browser.Page, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1366, 900),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(
		allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			l.tel.ReportDebug(report_page_log, fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			l.tel.ReportWarning(report_page_log, fmt.Sprintf(format, args...))
		}),
	)

	// the first Run starts the browser process
	err := chromedp.Run(tabCtx)
	if err != nil {
		cancelTab()
		cancelAlloc()
		l.tel.ReportBroken(report_launcher_launch, err)
		return nil, fmt.Errorf("chrome: launch: %w", err)
	}

	p := &Page{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		opts:        l.opts,
		tel:         l.tel,
	}

	if l.opts.StoragePath != "" {
		_, statErr := os.Stat(l.opts.StoragePath)
		if statErr == nil {
			err = p.loadSession(ctx, l.opts.StoragePath)
			if err != nil {
				l.tel.ReportWarning(report_page_load_session, err, l.opts.StoragePath)
			}
		}
	}

	return p, nil
}

// Page is a single chromium tab in its own browser process.
type Page struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	opts        Options
	tel         telemetry.API
}

// run executes actions on the tab, bounded by timeout and abandoned early
// if the caller's ctx ends.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *Page) nodes(ctx context.Context, q browser.Query, from *cdp.Node) ([]browser.Element, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if from != nil {
		opts = append(opts, chromedp.FromNode(from))
	}

	var found []*cdp.Node
	err := p.run(ctx, p.opts.DefaultTimeout, chromedp.Nodes(q.Selector, &found, opts...))
	if err != nil {
		return nil, fmt.Errorf("chrome: locate %s: %w", q, err)
	}

	var out []browser.Element
	for _, n := range found {
		el := &Element{page: p, node: n}
		if q.Text != nil {
			text, err := el.text(ctx)
			if err != nil || !q.Accepts(text) {
				continue
			}
		}
		out = append(out, el)
	}
	return out, nil
}

func (p *Page) Locate(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	return p.nodes(ctx, q, nil)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	err := p.run(ctx, p.opts.NavigationTimeout, chromedp.Navigate(url))
	if err != nil {
		return fmt.Errorf("chrome: navigate %s: %w", url, err)
	}
	return nil
}

func (p *Page) Frames(ctx context.Context) ([]browser.Surface, error) {
	var iframes []*cdp.Node
	err := p.run(ctx, p.opts.DefaultTimeout, chromedp.Nodes(
		"iframe, frame", &iframes,
		chromedp.ByQueryAll, chromedp.AtLeast(0),
	))
	if err != nil {
		return nil, fmt.Errorf("chrome: list frames: %w", err)
	}

	out := make([]browser.Surface, len(iframes))
	for i, n := range iframes {
		out[i] = frame{page: p, node: n}
	}
	return out, nil
}

func (p *Page) WaitLoad(ctx context.Context, state browser.LoadState, timeout time.Duration) error {
	switch state {
	case browser.LoadDOMContentLoaded:
		return p.WaitFor(ctx, func(ctx context.Context) (bool, error) {
			var ready bool
			err := p.run(ctx, p.opts.DefaultTimeout, chromedp.Evaluate(`document.readyState !== "loading"`, &ready))
			return ready, err
		}, timeout)
	case browser.LoadNetworkIdle:
		return p.WaitFor(ctx, p.networkIdle(), timeout)
	}
	return fmt.Errorf("chrome: unknown load state %d", state)
}

// networkIdle treats the page as idle once the document finished loading
// and no new resource was fetched for half a second.
func (p *Page) networkIdle() browser.Condition {
	const quiet = 500 * time.Millisecond
	last := -1
	stableSince := time.Now()

	return func(ctx context.Context) (bool, error) {
		var state struct {
			Ready     string `json:"ready"`
			Resources int    `json:"resources"`
		}
		err := p.run(ctx, p.opts.DefaultTimeout, chromedp.Evaluate(
			`({ready: document.readyState, resources: performance.getEntriesByType("resource").length})`,
			&state,
		))
		if err != nil {
			return false, err
		}

		now := time.Now()
		if state.Ready != "complete" || state.Resources != last {
			last = state.Resources
			stableSince = now
			return false, nil
		}
		return now.Sub(stableSince) >= quiet, nil
	}
}

func (p *Page) WaitFor(ctx context.Context, cond browser.Condition, timeout time.Duration) error {
	return browser.Poll(ctx, cond, timeout, pollInterval)
}

func (p *Page) Markup(ctx context.Context) (string, error) {
	var markup string
	err := p.run(ctx, p.opts.DefaultTimeout, chromedp.OuterHTML("html", &markup, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("chrome: read markup: %w", err)
	}
	return markup, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, p.opts.DefaultTimeout, chromedp.Title(&title))
	if err != nil {
		return "", fmt.Errorf("chrome: read title: %w", err)
	}
	return title, nil
}

// Close shuts the browser down, it is safe to call more than once.
func (p *Page) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancelTab()
	p.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		p.tel.ReportWarning(report_page_close, err)
		return fmt.Errorf("chrome: close: %w", err)
	}
	return nil
}

// frame is an iframe of a Page, queries are rooted at its content document.
type frame struct {
	page *Page
	node *cdp.Node
}

func (f frame) Locate(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	return f.page.nodes(ctx, q, f.node)
}
