// Package browser describes the rendering engine the scraper drives. The
// login state machine and the profile fetcher only ever talk to these
// interfaces, the engine itself lives in the chrome (live) and memory
// (fixtures) subpackages.
package browser

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrTimeout  = errors.New("browser: timed out")
	ErrNotFound = errors.New("browser: element not found")
)

type LoadState int

const (
	LoadDOMContentLoaded LoadState = iota
	LoadNetworkIdle
)

func (s LoadState) String() string {
	switch s {
	case LoadDOMContentLoaded:
		return "domcontentloaded"
	case LoadNetworkIdle:
		return "networkidle"
	}
	return "unknown"
}

// Query selects elements: a CSS selector, optionally narrowed to the
// elements whose trimmed text matches Text.
type Query struct {
	Selector string
	Text     *regexp.Regexp
}

func CSS(selector string) Query {
	return Query{Selector: selector}
}

// HasText narrows q to elements whose text contains any of the given
// phrases, case-insensitively.
func (q Query) HasText(phrases ...string) Query {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	q.Text = regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
	return q
}

// MatchingText narrows q to elements whose trimmed text matches re.
func (q Query) MatchingText(re *regexp.Regexp) Query {
	q.Text = re
	return q
}

// Accepts reports whether an element's text satisfies the text filter.
func (q Query) Accepts(text string) bool {
	if q.Text == nil {
		return true
	}
	return q.Text.MatchString(strings.TrimSpace(text))
}

func (q Query) String() string {
	if q.Text == nil {
		return q.Selector
	}
	return q.Selector + " /" + q.Text.String() + "/"
}

// Surface is anything elements can be looked up in: a page, a nested
// frame or an element.
type Surface interface {
	// Locate returns the matching elements in document order, an empty
	// result is not an error.
	Locate(ctx context.Context, q Query) ([]Element, error)
}

type Element interface {
	Surface
	Click(ctx context.Context) error
	// Fill clears the current value, focuses the element and types value.
	Fill(ctx context.Context, value string) error
	Press(ctx context.Context, key string) error
	WaitVisible(ctx context.Context, timeout time.Duration) error
	WaitEnabled(ctx context.Context, timeout time.Duration) error
}

// Page is one browsing tab. A Page must be closed on every exit path.
type Page interface {
	Surface
	Navigate(ctx context.Context, url string) error
	// Frames returns the nested frames of the page in document order, the
	// main frame excluded.
	Frames(ctx context.Context) ([]Surface, error)
	WaitLoad(ctx context.Context, state LoadState, timeout time.Duration) error
	WaitFor(ctx context.Context, cond Condition, timeout time.Duration) error
	Markup(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Close() error
}

// SessionPersister is implemented by pages whose authentication state can
// be written out for reuse by a later run.
type SessionPersister interface {
	SaveSession(ctx context.Context, path string) error
}

// Screenshotter is implemented by pages that can capture diagnostics.
type Screenshotter interface {
	Screenshot(ctx context.Context, path string) error
}

// Launcher hands out a fresh Page, typically backed by a new browser
// context that is torn down when the page is closed.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}
