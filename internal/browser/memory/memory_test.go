package memory

import (
	"context"
	"errors"
	"testing"
	"utrhistory/internal/browser"

	"github.com/stretchr/testify/require"
)

func TestLocateFiltersByText(t *testing.T) {
	p := NewPage(`<html><body>
		<button id="a">Cancel</button>
		<button id="b"> SIGN IN </button>
		<a>sign in</a>
	</body></html>`)

	found, err := p.Locate(context.Background(), browser.CSS("button").HasText("sign in"))
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, found[0].Click(context.Background()))
	require.Equal(t, []string{"click button#b"}, p.Actions)

	all, err := p.Locate(context.Background(), browser.CSS("button, a"))
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestLocateInvalidSelector(t *testing.T) {
	p := NewPage(`<html><body></body></html>`)
	_, err := p.Locate(context.Background(), browser.CSS("div[["))
	require.Error(t, err)
}

func TestClickRunsHandler(t *testing.T) {
	p := NewPage(`<html><body><button class="open">Open</button></body></html>`)
	p.OnClick("button.open", func(p *Page) {
		p.SetMarkup(`<html><body><p id="opened">hi</p></body></html>`)
	})

	found, err := p.Locate(context.Background(), browser.CSS("button"))
	require.NoError(t, err)
	require.NoError(t, found[0].Click(context.Background()))

	opened, err := p.Locate(context.Background(), browser.CSS("#opened"))
	require.NoError(t, err)
	require.Len(t, opened, 1)
}

func TestHiddenElements(t *testing.T) {
	p := NewPage(`<html><body>
		<div style="display: none"><input id="inner"></div>
		<input id="flagged" hidden>
		<input id="shown" disabled>
	</body></html>`)
	ctx := context.Background()

	for _, id := range []string{"#inner", "#flagged"} {
		found, err := p.Locate(ctx, browser.CSS(id))
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.ErrorIs(t, found[0].WaitVisible(ctx, 0), browser.ErrTimeout, id)
		require.ErrorIs(t, found[0].Click(ctx), browser.ErrNotFound, id)
	}

	shown, err := p.Locate(ctx, browser.CSS("#shown"))
	require.NoError(t, err)
	require.NoError(t, shown[0].WaitVisible(ctx, 0))
	require.ErrorIs(t, shown[0].WaitEnabled(ctx, 0), browser.ErrTimeout)
	require.Error(t, shown[0].Fill(ctx, "x"))
}

func TestFillAndPress(t *testing.T) {
	p := NewPage(`<html><body><input name="q" value="old"></body></html>`)
	pressed := false
	p.OnPress("input[name='q']", "Enter", func(*Page) { pressed = true })
	ctx := context.Background()

	found, err := p.Locate(ctx, browser.CSS("input"))
	require.NoError(t, err)
	require.NoError(t, found[0].Fill(ctx, "new"))
	require.NoError(t, found[0].Press(ctx, "Tab"))
	require.False(t, pressed)
	require.NoError(t, found[0].Press(ctx, "Enter"))
	require.True(t, pressed)

	require.Equal(t, []string{
		"fill input[name=q]=new",
		"press input[name=q] Tab",
		"press input[name=q] Enter",
	}, p.Actions)

	markup, err := p.Markup(ctx)
	require.NoError(t, err)
	require.Contains(t, markup, `value="new"`)
}

func TestFramesAndNavigation(t *testing.T) {
	p := NewPage(`<html><body></body></html>`)
	p.AddFrame(`<html><body><input id="emailInput"></body></html>`)
	p.Route("https://example.test/a", `<html><head><title>A | Site</title></head><body></body></html>`)
	ctx := context.Background()

	frames, err := p.Frames(ctx)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	found, err := frames[0].Locate(ctx, browser.CSS("#emailInput"))
	require.NoError(t, err)
	require.Len(t, found, 1)

	// elements of a frame are not visible from the page itself
	found, err = p.Locate(ctx, browser.CSS("#emailInput"))
	require.NoError(t, err)
	require.Empty(t, found)

	require.NoError(t, p.Navigate(ctx, "https://example.test/a"))
	title, err := p.Title(ctx)
	require.NoError(t, err)
	require.Equal(t, "A | Site", title)

	frames, err = p.Frames(ctx)
	require.NoError(t, err)
	require.Empty(t, frames)

	require.Error(t, p.Navigate(ctx, "https://example.test/missing"))
	require.Equal(t, []string{"https://example.test/a", "https://example.test/missing"}, p.Visited)
}

func TestWaits(t *testing.T) {
	p := NewPage(`<html><body><p>ready</p></body></html>`)
	ctx := context.Background()
	idle := errors.New("still loading")
	p.FailLoad(browser.LoadNetworkIdle, idle)

	require.NoError(t, p.WaitLoad(ctx, browser.LoadDOMContentLoaded, 0))
	require.ErrorIs(t, p.WaitLoad(ctx, browser.LoadNetworkIdle, 0), idle)

	require.NoError(t, p.WaitFor(ctx, browser.Present(p, browser.CSS("p")), 0))
	require.ErrorIs(t, p.WaitFor(ctx, browser.Present(p, browser.CSS("table")), 0), browser.ErrTimeout)
	require.NoError(t, p.WaitFor(ctx, browser.TextPresent(p, browser.ExactText("ready")), 0))
}

func TestLauncher(t *testing.T) {
	p := NewPage(`<html></html>`)
	got, err := Launcher{Page: p}.Launch(context.Background())
	require.NoError(t, err)
	require.NoError(t, got.Close())
	require.True(t, p.Closed)

	_, err = Launcher{Err: errors.New("no chromium")}.Launch(context.Background())
	require.Error(t, err)
}
