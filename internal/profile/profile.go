// Package profile turns a player id into their rating history, either by
// driving a browser through the live site or by parsing a saved page.
package profile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"utrhistory/internal/browser"
	"utrhistory/internal/components/assert"
	"utrhistory/internal/components/chrono"
	"utrhistory/internal/components/telemetry"
	"utrhistory/internal/history"
	"utrhistory/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("utrhistory/internal/profile")
var meter = otel.Meter("utrhistory/internal/profile")
var samplesCounter, _ = meter.Int64Counter(
	"profile.samples",
	metric.WithDescription("rating history samples extracted per run"),
	metric.WithUnit("{sample}"),
)

const (
	report_fetcher_fetch        = "fetcher.fetch"
	report_fetcher_close        = "fetcher.close"
	report_fetcher_diagnostics  = "fetcher.diagnostics"
	report_fetcher_save_session = "fetcher.save-session"
	report_fetcher_wait_header  = "fetcher.wait-header"
	report_fetcher_show_all     = "fetcher.show-all"
	report_history_extract      = "history.extract"
)

const DefaultBaseURL = "https://app.utrsports.net"

// ErrUnreachable means the profile site could not be reached at all. It
// is the only failure of a live fetch besides the browser not starting.
var ErrUnreachable = errors.New("profile: target unreachable")

// Result is everything a run produces for one player.
type Result struct {
	UserID     int
	PlayerName string
	Samples    []history.Sample
}

// URL is the rating history tab of a player's profile.
func URL(baseURL string, userID int) string {
	return fmt.Sprintf("%s/profiles/%d?t=6", strings.TrimRight(baseURL, "/"), userID)
}

// ParseDocument extracts a Result from a saved profile page, the player
// name comes from the page's <title>.
func ParseDocument(userID int, markup string) Result {
	return Result{
		UserID:     userID,
		PlayerName: history.PlayerName(history.TitleFromMarkup(markup)),
		Samples:    history.Extract(markup),
	}
}

type Timeouts struct {
	Load           time.Duration
	Header         time.Duration
	HeaderFallback time.Duration
	ShowAll        time.Duration
	ShowAllGrace   time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Load:           20 * time.Second,
		Header:         8 * time.Second,
		HeaderFallback: 5 * time.Second,
		ShowAll:        8 * time.Second,
		ShowAllGrace:   150 * time.Millisecond,
	}
}

type Options struct {
	BaseURL     string
	Credentials session.Credentials
	// SaveSessionPath receives the browser's session after a login
	// attempt, when set.
	SaveSessionPath string
	// DiagnosticsDir receives a screenshot after every step, when set.
	DiagnosticsDir string
	Timeouts       Timeouts
	Session        session.Timeouts
}

type Fetcher struct {
	launcher browser.Launcher
	prober   Prober
	acquirer session.Acquirer
	clock    chrono.API
	tel      telemetry.API
	opts     Options
}

// NewFetcher creates a Fetcher, prober may be nil to skip the
// reachability check.
func NewFetcher(launcher browser.Launcher, prober Prober, clock chrono.API, tel telemetry.API, opts Options) Fetcher {
	assert.NotNil(launcher)
	assert.NotNil(clock)
	assert.NotNil(tel)

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	return Fetcher{
		launcher: launcher,
		prober:   prober,
		acquirer: session.NewAcquirer(tel, clock, opts.Session),
		clock:    clock,
		tel:      telemetry.NewScopedAPI("profile", tel),
		opts:     opts,
	}
}

// Fetch loads the player's profile in a fresh browser, logs in if it has
// credentials and the page asks for it, expands the full rating history
// and extracts it.
func (f Fetcher) Fetch(ctx context.Context, userID int) (Result, error) {
	ctx, span := tracer.Start(ctx, "fetcher:Fetch")
	defer span.End()
	span.SetAttributes(attribute.Int("user_id", userID))

	result, err := f.fetch(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		f.tel.ReportBroken(report_fetcher_fetch, err, userID)
		return Result{}, err
	}

	f.tel.ReportCount(report_history_extract, int64(len(result.Samples)))
	samplesCounter.Add(ctx, int64(len(result.Samples)))
	return result, nil
}

func (f Fetcher) fetch(ctx context.Context, userID int) (Result, error) {
	target := URL(f.opts.BaseURL, userID)

	if f.prober != nil {
		err := f.prober.Probe(ctx, target)
		if err != nil {
			return Result{}, err
		}
	}

	page, err := f.launcher.Launch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("profile: launch browser: %w", err)
	}
	defer func() {
		closeErr := page.Close()
		if closeErr != nil {
			f.tel.ReportWarning(report_fetcher_close, closeErr)
		}
	}()

	err = f.navigate(ctx, page, target)
	if err != nil {
		return Result{}, err
	}
	f.snapshot(ctx, page, "01_after_profile_nav")

	if f.opts.Credentials.Present() && !session.LooksAuthenticated(ctx, page) {
		err = f.login(ctx, page, target)
		if err != nil {
			return Result{}, err
		}
	}

	f.waitForHeader(ctx, page)
	f.snapshot(ctx, page, "06_after_wait_history_header")

	if f.expandShowAll(ctx, page) {
		f.snapshot(ctx, page, "07_after_click_show_all")
	}

	markup, err := page.Markup(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("profile: capture document: %w", err)
	}
	title, err := page.Title(ctx)
	if err != nil {
		f.tel.ReportWarning(report_fetcher_fetch, "read title", err)
		title = ""
	}

	return Result{
		UserID:     userID,
		PlayerName: history.PlayerName(title),
		Samples:    history.Extract(markup),
	}, nil
}

func (f Fetcher) navigate(ctx context.Context, page browser.Page, target string) error {
	err := page.Navigate(ctx, target)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	err = page.WaitLoad(ctx, browser.LoadDOMContentLoaded, f.opts.Timeouts.Load)
	if err != nil {
		f.tel.ReportDebug(report_fetcher_fetch, "dom content never loaded", target, err)
	}
	return nil
}

// login runs the session state machine and reloads the profile if
// credentials were submitted. Login trouble only degrades the run.
func (f Fetcher) login(ctx context.Context, page browser.Page, target string) error {
	f.acquirer.ClickOverlaySignIn(ctx, page)
	f.snapshot(ctx, page, "02_after_click_overlay_sign_in")

	f.acquirer.WaitForLoginForm(ctx, page)
	f.snapshot(ctx, page, "03_login_form_visible")

	out, err := f.acquirer.Acquire(ctx, page, f.opts.Credentials)
	if err != nil {
		return err
	}
	f.snapshot(ctx, page, "04_after_login_submit")
	f.tel.ReportDebug(report_fetcher_fetch, "login finished", out.State.String(), out.Location)

	if out.Submitted() {
		err = f.navigate(ctx, page, target)
		if err != nil {
			return err
		}
		f.snapshot(ctx, page, "05_after_reload_profile")
	}

	f.saveSession(ctx, page)
	return nil
}

func (f Fetcher) saveSession(ctx context.Context, page browser.Page) {
	if f.opts.SaveSessionPath == "" {
		return
	}
	persister, ok := page.(browser.SessionPersister)
	if !ok {
		f.tel.ReportWarning(report_fetcher_save_session, "browser cannot persist sessions")
		return
	}
	err := persister.SaveSession(ctx, f.opts.SaveSessionPath)
	if err != nil {
		f.tel.ReportWarning(report_fetcher_save_session, err, f.opts.SaveSessionPath)
		return
	}
	f.tel.ReportDebug(report_fetcher_save_session, "saved session", f.opts.SaveSessionPath)
}

func (f Fetcher) snapshot(ctx context.Context, page browser.Page, step string) {
	if f.opts.DiagnosticsDir == "" {
		return
	}
	shooter, ok := page.(browser.Screenshotter)
	if !ok {
		return
	}
	path := filepath.Join(f.opts.DiagnosticsDir, step+".png")
	err := shooter.Screenshot(ctx, path)
	if err != nil {
		f.tel.ReportWarning(report_fetcher_diagnostics, err, step)
	}
}
