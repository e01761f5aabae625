// Package memory implements the browser interfaces over static goquery
// documents. Pages never change on their own: scripted click and key
// handlers stand in for the site's javascript, and every wait resolves
// immediately, either satisfied or timed out.
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

type handler struct {
	matcher cascadia.Selector
	key     string
	fn      func(p *Page)
}

type Page struct {
	doc    *goquery.Document
	frames []*Frame
	routes map[string]string

	clicks  []handler
	presses []handler

	loadErrs    map[browser.LoadState]error
	NavigateErr error
	SaveErr     error
	ShotErr     error

	// Actions is a log of every interaction, in order.
	Actions []string
	Visited []string
	Saved   []string
	Shots   []string
	Closed  bool
}

func NewPage(markup string) *Page {
	p := &Page{
		routes:   map[string]string{},
		loadErrs: map[browser.LoadState]error{},
	}
	p.SetMarkup(markup)
	return p
}

// SetMarkup replaces the rendered document and drops every frame.
func (p *Page) SetMarkup(markup string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		panic(fmt.Sprintf("memory page: parse markup: %v", err))
	}
	p.doc = doc
	p.frames = nil
}

// Route makes Navigate(url) render markup.
func (p *Page) Route(url, markup string) {
	p.routes[url] = markup
}

func (p *Page) AddFrame(markup string) *Frame {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		panic(fmt.Sprintf("memory frame: parse markup: %v", err))
	}
	f := &Frame{page: p, doc: doc}
	p.frames = append(p.frames, f)
	return f
}

// OnClick runs fn whenever an element matching selector is clicked.
func (p *Page) OnClick(selector string, fn func(p *Page)) {
	p.clicks = append(p.clicks, handler{matcher: cascadia.MustCompile(selector), fn: fn})
}

// OnPress runs fn whenever key is pressed on an element matching selector.
func (p *Page) OnPress(selector, key string, fn func(p *Page)) {
	p.presses = append(p.presses, handler{matcher: cascadia.MustCompile(selector), key: key, fn: fn})
}

// FailLoad makes WaitLoad(state) return err.
func (p *Page) FailLoad(state browser.LoadState, err error) {
	p.loadErrs[state] = err
}

func (p *Page) record(format string, args ...any) {
	p.Actions = append(p.Actions, fmt.Sprintf(format, args...))
}

func (p *Page) Locate(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	return locate(p, p.doc.Selection, q)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.Visited = append(p.Visited, url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	markup, ok := p.routes[url]
	if !ok {
		return fmt.Errorf("memory page: no route for %s", url)
	}
	p.SetMarkup(markup)
	return nil
}

func (p *Page) Frames(ctx context.Context) ([]browser.Surface, error) {
	out := make([]browser.Surface, len(p.frames))
	for i, f := range p.frames {
		out[i] = f
	}
	return out, nil
}

func (p *Page) WaitLoad(ctx context.Context, state browser.LoadState, timeout time.Duration) error {
	return p.loadErrs[state]
}

func (p *Page) WaitFor(ctx context.Context, cond browser.Condition, timeout time.Duration) error {
	ok, err := cond(ctx)
	if err != nil || !ok {
		return browser.ErrTimeout
	}
	return nil
}

func (p *Page) Markup(ctx context.Context) (string, error) {
	return p.doc.Html()
}

func (p *Page) Title(ctx context.Context) (string, error) {
	return p.doc.Find("title").First().Text(), nil
}

func (p *Page) Close() error {
	p.Closed = true
	return nil
}

func (p *Page) SaveSession(ctx context.Context, path string) error {
	if p.SaveErr != nil {
		return p.SaveErr
	}
	p.Saved = append(p.Saved, path)
	return nil
}

func (p *Page) Screenshot(ctx context.Context, path string) error {
	if p.ShotErr != nil {
		return p.ShotErr
	}
	p.Shots = append(p.Shots, path)
	return nil
}

// Frame is a nested document of a Page.
type Frame struct {
	page *Page
	doc  *goquery.Document
}

func (f *Frame) Locate(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	return locate(f.page, f.doc.Selection, q)
}

// Launcher hands out the same page on every launch.
type Launcher struct {
	Page *Page
	Err  error
}

func (l Launcher) Launch(ctx context.Context) (browser.Page, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Page, nil
}
