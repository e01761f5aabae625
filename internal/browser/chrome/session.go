package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

const (
	report_page_load_session = "page.load-session"
	report_page_save_session = "page.save-session"
	report_page_screenshot   = "page.screenshot"
)

// storageState is the on-disk session. Only cookies are kept, local
// storage does not survive a run.
type storageState struct {
	Cookies []storedCookie `json:"cookies"`
}

type storedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

func (p *Page) loadSession(ctx context.Context, path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	var state storageState
	err = json.Unmarshal(contents, &state)
	if err != nil {
		return fmt.Errorf("parse session: %w", err)
	}

	params := make([]*network.CookieParam, 0, len(state.Cookies))
	for _, c := range state.Cookies {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.SameSite != "" {
			param.SameSite = network.CookieSameSite(c.SameSite)
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param.Expires = &expires
		}
		params = append(params, param)
	}

	err = p.run(ctx, p.opts.DefaultTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	p.tel.ReportDebug(report_page_load_session, path, len(params))
	return nil
}

// SaveSession writes the cookies of the browser to path.
func (p *Page) SaveSession(ctx context.Context, path string) error {
	var cookies []*network.Cookie
	err := p.run(ctx, p.opts.DefaultTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("chrome: get cookies: %w", err)
	}

	state := storageState{Cookies: make([]storedCookie, 0, len(cookies))}
	for _, c := range cookies {
		expires := c.Expires
		if c.Session {
			expires = -1
		}
		state.Cookies = append(state.Cookies, storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}

	contents, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("chrome: encode session: %w", err)
	}
	err = writeFile(path, contents)
	if err != nil {
		return fmt.Errorf("chrome: write session: %w", err)
	}
	p.tel.ReportDebug(report_page_save_session, path, len(state.Cookies))
	return nil
}

// Screenshot captures the whole page as a png.
func (p *Page) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	err := p.run(ctx, p.opts.DefaultTimeout, chromedp.FullScreenshot(&buf, 100))
	if err != nil {
		return fmt.Errorf("chrome: screenshot: %w", err)
	}
	err = writeFile(path, buf)
	if err != nil {
		return fmt.Errorf("chrome: write screenshot: %w", err)
	}
	p.tel.ReportDebug(report_page_screenshot, path)
	return nil
}

func writeFile(path string, contents []byte) error {
	err := os.MkdirAll(filepath.Dir(path), 0777)
	if err != nil {
		return err
	}
	return os.WriteFile(path, contents, 0600)
}
