package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"utrhistory/internal/browser"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	jsText    = `function() { return (this.innerText || this.textContent || "").trim(); }`
	jsClear   = `function() { this.value = ""; this.dispatchEvent(new Event("input", {bubbles: true})); }`
	jsEnabled = `function() { return !this.disabled; }`
	jsVisible = `function() {
	const rect = this.getBoundingClientRect();
	const style = window.getComputedStyle(this);
	return rect.width > 0 && rect.height > 0 && style.visibility !== "hidden" && style.display !== "none";
}`
)

type Element struct {
	page *Page
	node *cdp.Node
}

// call runs fn with `this` bound to the element and decodes its return
// value into out (when non-nil).
func (e *Element) call(ctx context.Context, fn string, out any) error {
	return e.page.run(ctx, e.page.opts.DefaultTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		res, exception, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exception != nil {
			return fmt.Errorf("script exception: %s", exception.Text)
		}
		if out == nil || res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal(res.Value, out)
	}))
}

func (e *Element) text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, jsText, &text)
	return text, err
}

func (e *Element) Locate(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	return e.page.nodes(ctx, q, e.node)
}

func (e *Element) Click(ctx context.Context) error {
	err := e.page.run(ctx, e.page.opts.DefaultTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(ctx)
		}),
		chromedp.MouseClickNode(e.node),
	)
	if err != nil {
		return fmt.Errorf("chrome: click %s: %w", e.node.LocalName, err)
	}
	return nil
}

func (e *Element) Fill(ctx context.Context, value string) error {
	err := e.call(ctx, jsClear, nil)
	if err != nil {
		return fmt.Errorf("chrome: clear %s: %w", e.node.LocalName, err)
	}
	err = e.page.run(ctx, e.page.opts.DefaultTimeout,
		chromedp.MouseClickNode(e.node),
		chromedp.KeyEventNode(e.node, value),
	)
	if err != nil {
		return fmt.Errorf("chrome: type into %s: %w", e.node.LocalName, err)
	}
	return nil
}

var namedKeys = map[string]string{
	"Enter":     kb.Enter,
	"Tab":       kb.Tab,
	"Escape":    kb.Escape,
	"Backspace": kb.Backspace,
}

func (e *Element) Press(ctx context.Context, key string) error {
	if named, ok := namedKeys[key]; ok {
		key = named
	}
	err := e.page.run(ctx, e.page.opts.DefaultTimeout, chromedp.KeyEventNode(e.node, key))
	if err != nil {
		return fmt.Errorf("chrome: press on %s: %w", e.node.LocalName, err)
	}
	return nil
}

func (e *Element) predicate(fn string) browser.Condition {
	return func(ctx context.Context) (bool, error) {
		var ok bool
		err := e.call(ctx, fn, &ok)
		return ok, err
	}
}

func (e *Element) WaitVisible(ctx context.Context, timeout time.Duration) error {
	return browser.Poll(ctx, e.predicate(jsVisible), timeout, pollInterval)
}

func (e *Element) WaitEnabled(ctx context.Context, timeout time.Duration) error {
	return browser.Poll(ctx, e.predicate(jsEnabled), timeout, pollInterval)
}
