package profile

import (
	"context"
	"regexp"
	"strings"
	"utrhistory/internal/browser"
	"utrhistory/internal/history"
)

var (
	showAllExact = regexp.MustCompile(`(?i)^\s*show all\s*$`)
	showAllLoose = regexp.MustCompile(`(?i)\bShow\s+all\b`)

	showAllQueries = []browser.Query{
		browser.CSS("button").MatchingText(showAllExact),
		browser.CSS("a").MatchingText(showAllExact),
		browser.CSS("button").HasText("Show all"),
		browser.CSS("a").HasText("Show all"),
		browser.CSS("[role='button']").MatchingText(showAllExact),
		browser.CSS("[role='link']").MatchingText(showAllExact),
		// last resort, the text filter runs on every element of the page
		browser.CSS("body *").MatchingText(showAllExact),
	}
)

// waitForHeader gives the history section a chance to render. Not
// finding it is fine, extraction copes with whatever is on the page.
func (f Fetcher) waitForHeader(ctx context.Context, page browser.Page) {
	for _, variant := range history.HeaderVariants {
		err := page.WaitFor(ctx, browser.TextPresent(page, browser.ExactText(variant)), f.opts.Timeouts.Header)
		if err == nil {
			return
		}
	}

	loose := func(text string) bool {
		return strings.Contains(strings.ToLower(text), "full rating")
	}
	err := page.WaitFor(ctx, browser.TextPresent(page, loose), f.opts.Timeouts.HeaderFallback)
	if err != nil {
		f.tel.ReportDebug(report_fetcher_wait_header, "history header never appeared")
	}
}

// expandShowAll clicks the first "show all" control and waits for the
// list to finish expanding. It reports whether a control was clicked.
func (f Fetcher) expandShowAll(ctx context.Context, page browser.Page) bool {
	for _, q := range showAllQueries {
		found, err := page.Locate(ctx, q)
		if err != nil || len(found) == 0 {
			continue
		}

		err = found[0].Click(ctx)
		if err != nil {
			f.tel.ReportDebug(report_fetcher_show_all, "click", q.String(), err)
			continue
		}

		_ = f.clock.Sleep(ctx, f.opts.Timeouts.ShowAllGrace)
		err = page.WaitFor(ctx, browser.BodyTextAbsent(page, showAllLoose.MatchString), f.opts.Timeouts.ShowAll)
		if err != nil {
			f.tel.ReportDebug(report_fetcher_show_all, "list still shows a show all control", err)
		}
		return true
	}
	return false
}
