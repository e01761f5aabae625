// Package session gets a browsing page past the profile site's login.
//
// The login form has been seen in three places: inline on the page, behind
// a "Sign In" button on a popup overlay, and inside an iframe. The
// Acquirer tries them in that order as an explicit state machine and
// commits to the first place that has both credential fields.
package session

import (
	"context"
	"fmt"
	"time"
	"utrhistory/internal/browser"
	"utrhistory/internal/components/assert"
	"utrhistory/internal/components/chrono"
	"utrhistory/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("utrhistory/internal/session")

const (
	report_acquirer_acquire            = "acquirer.acquire"
	report_acquirer_open_login_surface = "acquirer.open-login-surface"
	report_acquirer_submit             = "acquirer.submit"
	report_acquirer_settle             = "acquirer.settle"
)

type Credentials struct {
	Email    string
	Password string
}

// Present is false when either half is missing, in which case no login is
// attempted at all.
func (c Credentials) Present() bool {
	return c.Email != "" && c.Password != ""
}

type Timeouts struct {
	// how long to wait for an overlay that isn't rendered yet
	OverlayAppear time.Duration
	// load state wait after clicking the overlay's sign in button
	LoadState    time.Duration
	OverlayGrace time.Duration

	LoginForm         time.Duration
	LoginFormFallback time.Duration

	Field         time.Duration
	SubmitEnabled time.Duration

	NetworkIdle time.Duration
	IdleGrace   time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		OverlayAppear:     1500 * time.Millisecond,
		LoadState:         8 * time.Second,
		OverlayGrace:      300 * time.Millisecond,
		LoginForm:         8 * time.Second,
		LoginFormFallback: 2 * time.Second,
		Field:             6 * time.Second,
		SubmitEnabled:     3 * time.Second,
		NetworkIdle:       8 * time.Second,
		IdleGrace:         800 * time.Millisecond,
	}
}

// Outcome is where the state machine stopped and how it got there.
type Outcome struct {
	State State
	// Trace lists every state visited, the first and final one included.
	Trace []State
	// Location names where the login form was found ("inline", "overlay",
	// "frame <n>"), empty if it never was.
	Location string
}

// Submitted reports whether credentials were sent to the site.
func (o Outcome) Submitted() bool {
	return o.State == StateAuthenticated
}

type Acquirer struct {
	tel      telemetry.API
	clock    chrono.API
	timeouts Timeouts
}

func NewAcquirer(tel telemetry.API, clock chrono.API, timeouts Timeouts) Acquirer {
	assert.NotNil(tel)
	assert.NotNil(clock)

	return Acquirer{
		tel:      telemetry.NewScopedAPI("session", tel),
		clock:    clock,
		timeouts: timeouts,
	}
}

// attempt is the mutable state carried between steps of one Acquire.
type attempt struct {
	page  browser.Page
	creds Credentials

	surface  browser.Surface
	email    browser.Element
	password browser.Element
	location string
	// from is the probe state that found the current form
	from State
	// nextFrame is where the frame probe resumes after a frame's form failed
	nextFrame int
}

// failed forgets the current form and returns the event that moves on to
// the location after it.
func (at *attempt) failed() event {
	ev := failures[at.from]
	at.surface, at.email, at.password = nil, nil, nil
	at.location = ""
	return ev
}

// Acquire runs the login state machine on page until it reaches
// StateAuthenticated or StateLoginUnavailable. Failures along the way are
// reported and degrade to the next fallback, only a cancelled ctx is
// returned as an error.
func (a Acquirer) Acquire(ctx context.Context, page browser.Page, creds Credentials) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "acquirer:Acquire")
	defer span.End()

	state := StateUnauthenticated
	out := Outcome{State: state, Trace: []State{state}}
	if !creds.Present() {
		return out, nil
	}

	at := &attempt{page: page, creds: creds}
	for !state.Terminal() {
		if err := ctx.Err(); err != nil {
			out.State = state
			return out, err
		}

		ev := steps[state](a, ctx, at)
		next, ok := transitions[state][ev]
		if !ok {
			panic(fmt.Sprintf("session: no transition from %s on %s", state, ev))
		}
		a.tel.ReportDebug(report_acquirer_acquire, state.String(), ev.String(), next.String())
		state = next
		out.Trace = append(out.Trace, state)
	}

	out.State = state
	out.Location = at.location
	span.SetAttributes(
		attribute.String("final_state", state.String()),
		attribute.String("location", at.location),
	)

	if state == StateLoginUnavailable {
		a.tel.ReportWarning(report_acquirer_acquire, "no usable login form found")
	}
	return out, nil
}

// LooksAuthenticated is a purely negative heuristic: the page counts as
// logged in when it shows neither the overlay nor any login control. A
// lookup failure counts as not logged in.
func LooksAuthenticated(ctx context.Context, s browser.Surface) bool {
	for _, q := range []browser.Query{overlayQuery, loginMarkerQuery, signInButtonQuery} {
		found, err := s.Locate(ctx, q)
		if err != nil || len(found) > 0 {
			return false
		}
	}
	return true
}
