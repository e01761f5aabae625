package memory

import (
	"context"
	"fmt"
	"strings"
	"time"
	"utrhistory/internal/browser"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

func locate(p *Page, root *goquery.Selection, q browser.Query) ([]browser.Element, error) {
	matcher, err := cascadia.Compile(q.Selector)
	if err != nil {
		return nil, fmt.Errorf("memory page: selector %q: %w", q.Selector, err)
	}

	var out []browser.Element
	root.FindMatcher(matcher).Each(func(_ int, s *goquery.Selection) {
		if q.Accepts(s.Text()) {
			out = append(out, &Element{page: p, sel: s})
		}
	})
	return out, nil
}

type Element struct {
	page *Page
	sel  *goquery.Selection
}

func (e *Element) Locate(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	return locate(e.page, e.sel, q)
}

func (e *Element) describe() string {
	name := goquery.NodeName(e.sel)
	if id, ok := e.sel.Attr("id"); ok {
		return name + "#" + id
	}
	if n, ok := e.sel.Attr("name"); ok {
		return fmt.Sprintf("%s[name=%s]", name, n)
	}
	if text := strings.TrimSpace(e.sel.Text()); text != "" {
		return fmt.Sprintf("%s(%s)", name, text)
	}
	return name
}

func (e *Element) visible() bool {
	for s := e.sel; s.Length() > 0; s = s.Parent() {
		if _, hidden := s.Attr("hidden"); hidden {
			return false
		}
		style := strings.ReplaceAll(s.AttrOr("style", ""), " ", "")
		if strings.Contains(style, "display:none") {
			return false
		}
	}
	return true
}

func (e *Element) Click(ctx context.Context) error {
	if !e.visible() {
		return fmt.Errorf("memory page: click %s: %w", e.describe(), browser.ErrNotFound)
	}
	e.page.record("click %s", e.describe())
	for _, h := range e.page.clicks {
		if e.sel.IsMatcher(h.matcher) {
			h.fn(e.page)
			return nil
		}
	}
	return nil
}

func (e *Element) Fill(ctx context.Context, value string) error {
	if _, disabled := e.sel.Attr("disabled"); disabled {
		return fmt.Errorf("memory page: fill %s: element is disabled", e.describe())
	}
	e.sel.SetAttr("value", value)
	e.page.record("fill %s=%s", e.describe(), value)
	return nil
}

func (e *Element) Press(ctx context.Context, key string) error {
	e.page.record("press %s %s", e.describe(), key)
	for _, h := range e.page.presses {
		if h.key == key && e.sel.IsMatcher(h.matcher) {
			h.fn(e.page)
			return nil
		}
	}
	return nil
}

func (e *Element) WaitVisible(ctx context.Context, timeout time.Duration) error {
	if !e.visible() {
		return browser.ErrTimeout
	}
	return nil
}

func (e *Element) WaitEnabled(ctx context.Context, timeout time.Duration) error {
	if _, disabled := e.sel.Attr("disabled"); disabled {
		return browser.ErrTimeout
	}
	return nil
}
