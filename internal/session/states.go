package session

import (
	"context"
	"fmt"
	"utrhistory/internal/browser"
)

type State int

const (
	StateUnauthenticated State = iota
	StateOverlayCheck
	StateFrameCheck
	StateLoginLocated
	StateCredentialsSubmitted
	StateAuthenticated
	StateLoginUnavailable
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateOverlayCheck:
		return "overlay-check"
	case StateFrameCheck:
		return "frame-check"
	case StateLoginLocated:
		return "login-located"
	case StateCredentialsSubmitted:
		return "credentials-submitted"
	case StateAuthenticated:
		return "authenticated"
	case StateLoginUnavailable:
		return "login-unavailable"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal states end Acquire.
func (s State) Terminal() bool {
	return s == StateAuthenticated || s == StateLoginUnavailable
}

type event int

const (
	eventLocated event = iota
	eventNotLocated
	eventSubmitted
	// a failed fill or submit is raised as the failure of the location the
	// form was found in, so the machine can move on to the next one
	eventInlineFailed
	eventOverlayFailed
	eventFrameFailed
	eventSettled
)

func (e event) String() string {
	switch e {
	case eventLocated:
		return "located"
	case eventNotLocated:
		return "not-located"
	case eventSubmitted:
		return "submitted"
	case eventInlineFailed:
		return "inline-failed"
	case eventOverlayFailed:
		return "overlay-failed"
	case eventFrameFailed:
		return "frame-failed"
	case eventSettled:
		return "settled"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

var transitions = map[State]map[event]State{
	StateUnauthenticated: {
		eventLocated:    StateLoginLocated,
		eventNotLocated: StateOverlayCheck,
	},
	StateOverlayCheck: {
		eventLocated:    StateLoginLocated,
		eventNotLocated: StateFrameCheck,
	},
	StateFrameCheck: {
		eventLocated:    StateLoginLocated,
		eventNotLocated: StateLoginUnavailable,
	},
	StateLoginLocated: {
		eventSubmitted:     StateCredentialsSubmitted,
		eventInlineFailed:  StateOverlayCheck,
		eventOverlayFailed: StateFrameCheck,
		eventFrameFailed:   StateFrameCheck,
	},
	StateCredentialsSubmitted: {
		eventSettled: StateAuthenticated,
	},
}

// failures maps the state that located the form to the event a failed
// submit raises.
var failures = map[State]event{
	StateUnauthenticated: eventInlineFailed,
	StateOverlayCheck:    eventOverlayFailed,
	StateFrameCheck:      eventFrameFailed,
}

// steps holds the work done in each non-terminal state, the returned event
// picks the transition.
var steps = map[State]func(a Acquirer, ctx context.Context, at *attempt) event{
	StateUnauthenticated:      Acquirer.probeInline,
	StateOverlayCheck:         Acquirer.probeOverlay,
	StateFrameCheck:           Acquirer.probeFrames,
	StateLoginLocated:         Acquirer.submit,
	StateCredentialsSubmitted: Acquirer.settle,
}

var (
	overlayQuery = browser.CSS("div[class*='popup__overlay']")

	overlaySignInQueries = []browser.Query{
		browser.CSS("button.btn.btn-primary-inv").HasText("Sign In"),
		browser.CSS("button").HasText("Sign In", "Sign in", "Sign-In"),
	}

	loginMarkerQuery  = browser.CSS("#emailInput, #passwordInput")
	signInButtonQuery = browser.CSS("button").HasText("SIGN IN")

	emailQuery    = browser.CSS("#emailInput, input[name='email'], input[type='email']")
	passwordQuery = browser.CSS("#passwordInput, input[name='password'], input[type='password']")

	looseLoginFormQuery = browser.CSS("input#emailInput, input#passwordInput, input[type='email'], input[type='password']")

	submitQueries = []browser.Query{
		browser.CSS("form button[type='submit']").HasText("SIGN IN"),
		browser.CSS("button").HasText("sign in"),
	}
)

func (a Acquirer) probeInline(ctx context.Context, at *attempt) event {
	return a.locateFields(ctx, at, at.page, StateUnauthenticated, "inline")
}

func (a Acquirer) probeOverlay(ctx context.Context, at *attempt) event {
	if !a.ClickOverlaySignIn(ctx, at.page) {
		return eventNotLocated
	}
	a.WaitForLoginForm(ctx, at.page)
	return a.locateFields(ctx, at, at.page, StateOverlayCheck, "overlay")
}

func (a Acquirer) probeFrames(ctx context.Context, at *attempt) event {
	frames, err := at.page.Frames(ctx)
	if err != nil {
		a.tel.ReportDebug(report_acquirer_acquire, "list frames", err)
		return eventNotLocated
	}
	// frames before nextFrame already had a form that could not be submitted
	for i := at.nextFrame; i < len(frames); i++ {
		if a.locateFields(ctx, at, frames[i], StateFrameCheck, fmt.Sprintf("frame %d", i)) == eventLocated {
			at.nextFrame = i + 1
			return eventLocated
		}
	}
	return eventNotLocated
}

// locateFields commits to s when it has a visible email and password field.
func (a Acquirer) locateFields(ctx context.Context, at *attempt, s browser.Surface, from State, location string) event {
	email := a.firstVisible(ctx, s, emailQuery)
	if email == nil {
		return eventNotLocated
	}
	password := a.firstVisible(ctx, s, passwordQuery)
	if password == nil {
		return eventNotLocated
	}

	at.surface = s
	at.email = email
	at.password = password
	at.from = from
	at.location = location
	return eventLocated
}

func (a Acquirer) firstVisible(ctx context.Context, s browser.Surface, q browser.Query) browser.Element {
	found, err := s.Locate(ctx, q)
	if err != nil || len(found) == 0 {
		return nil
	}
	if err := found[0].WaitVisible(ctx, a.timeouts.Field); err != nil {
		return nil
	}
	return found[0]
}

func (a Acquirer) submit(ctx context.Context, at *attempt) event {
	err := at.email.Fill(ctx, at.creds.Email)
	if err != nil {
		a.tel.ReportWarning(report_acquirer_submit, "fill email", at.location, err)
		return at.failed()
	}
	err = at.password.Fill(ctx, at.creds.Password)
	if err != nil {
		a.tel.ReportWarning(report_acquirer_submit, "fill password", at.location, err)
		return at.failed()
	}

	button := a.findSubmit(ctx, at.surface)
	if button == nil {
		err = at.password.Press(ctx, "Enter")
	} else {
		if waitErr := button.WaitEnabled(ctx, a.timeouts.SubmitEnabled); waitErr != nil {
			a.tel.ReportDebug(report_acquirer_submit, "submit button never enabled", waitErr)
		}
		err = button.Click(ctx)
	}
	if err != nil {
		a.tel.ReportWarning(report_acquirer_submit, "submit", at.location, err)
		return at.failed()
	}
	return eventSubmitted
}

func (a Acquirer) findSubmit(ctx context.Context, s browser.Surface) browser.Element {
	for _, q := range submitQueries {
		found, err := s.Locate(ctx, q)
		if err == nil && len(found) > 0 {
			return found[0]
		}
	}
	return nil
}

func (a Acquirer) settle(ctx context.Context, at *attempt) event {
	err := at.page.WaitLoad(ctx, browser.LoadNetworkIdle, a.timeouts.NetworkIdle)
	if err != nil {
		a.tel.ReportDebug(report_acquirer_settle, "network never went idle", err)
		_ = a.clock.Sleep(ctx, a.timeouts.IdleGrace)
	}
	return eventSettled
}

// ClickOverlaySignIn clicks the sign in button of the popup overlay,
// giving the overlay a moment to render if it isn't there yet. It reports
// whether anything was clicked.
func (a Acquirer) ClickOverlaySignIn(ctx context.Context, page browser.Page) bool {
	overlays, err := page.Locate(ctx, overlayQuery)
	if err != nil {
		return false
	}
	if len(overlays) == 0 {
		err = page.WaitFor(ctx, browser.Present(page, overlayQuery), a.timeouts.OverlayAppear)
		if err != nil {
			return false
		}
		overlays, err = page.Locate(ctx, overlayQuery)
		if err != nil || len(overlays) == 0 {
			return false
		}
	}

	var button browser.Element
	for _, q := range overlaySignInQueries {
		found, err := overlays[0].Locate(ctx, q)
		if err == nil && len(found) > 0 {
			button = found[0]
			break
		}
	}
	if button == nil {
		a.tel.ReportDebug(report_acquirer_open_login_surface, "overlay has no sign in button")
		return false
	}

	err = button.Click(ctx)
	if err != nil {
		a.tel.ReportWarning(report_acquirer_open_login_surface, "click overlay sign in", err)
		return false
	}
	err = page.WaitLoad(ctx, browser.LoadDOMContentLoaded, a.timeouts.LoadState)
	if err != nil {
		_ = a.clock.Sleep(ctx, a.timeouts.OverlayGrace)
	}
	return true
}

// WaitForLoginForm waits for the credential fields to render, best effort.
func (a Acquirer) WaitForLoginForm(ctx context.Context, page browser.Page) bool {
	primary := browser.AnyPresent(page, browser.CSS("#emailInput"), browser.CSS("#passwordInput"))
	if page.WaitFor(ctx, primary, a.timeouts.LoginForm) == nil {
		return true
	}
	if page.WaitFor(ctx, browser.Present(page, looseLoginFormQuery), a.timeouts.LoginFormFallback) == nil {
		return true
	}
	a.tel.ReportDebug(report_acquirer_open_login_surface, "login form did not appear")
	return false
}
