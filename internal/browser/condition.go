package browser

import (
	"context"
	"strings"
	"time"
	"utrhistory/pkg/htmlutil"
)

// Condition is polled by Page.WaitFor until it reports true.
type Condition func(ctx context.Context) (bool, error)

// Present is satisfied once q matches at least one element of s.
func Present(s Surface, q Query) Condition {
	return func(ctx context.Context) (bool, error) {
		found, err := s.Locate(ctx, q)
		if err != nil {
			return false, err
		}
		return len(found) > 0, nil
	}
}

// AnyPresent is satisfied once any of the queries matches.
func AnyPresent(s Surface, queries ...Query) Condition {
	return func(ctx context.Context) (bool, error) {
		for _, q := range queries {
			ok, err := Present(s, q)(ctx)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
}

// TextPresent is satisfied once the page renders a text node for which
// match returns true.
func TextPresent(p Page, match func(text string) bool) Condition {
	return func(ctx context.Context) (bool, error) {
		markup, err := p.Markup(ctx)
		if err != nil {
			return false, err
		}
		root := htmlutil.Parse(markup)
		return root.Contains(htmlutil.TextMatches(match)), nil
	}
}

// BodyTextAbsent is satisfied once the visible body text stops matching.
func BodyTextAbsent(p Page, match func(text string) bool) Condition {
	return func(ctx context.Context) (bool, error) {
		markup, err := p.Markup(ctx)
		if err != nil {
			return false, err
		}
		root := htmlutil.Parse(markup)
		body := root.FindFirst(htmlutil.Tag("body"))
		if body == nil {
			body = root
		}
		return !match(body.StrippedText(" ")), nil
	}
}

// ExactText matches text nodes equal to s once surrounding whitespace is
// trimmed.
func ExactText(s string) func(string) bool {
	return func(text string) bool {
		return strings.TrimSpace(text) == s
	}
}

// Poll evaluates cond every interval until it is satisfied, ctx is done
// or timeout elapses. Errors from cond count as "not yet".
func Poll(ctx context.Context, cond Condition, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ok, err := cond(ctx)
		if err == nil && ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrTimeout
		case <-ticker.C:
		}
	}
}
