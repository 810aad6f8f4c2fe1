package driver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Element-scoped scripts. Each is a function declaration invoked with the
// element bound as `this` via Runtime.callFunctionOn.
const (
	jsIsDisplayed = `function() {
		const rect = this.getBoundingClientRect();
		const style = window.getComputedStyle(this);
		return rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' && style.display !== 'none';
	}`
	jsIsEnabled = `function() { return !this.disabled; }`
	jsTagName   = `function() { return this.tagName.toLowerCase(); }`
	jsText      = `function() { return this.innerText; }`
	jsAttribute = `function(name) { const v = this.getAttribute(name); return v === null ? '' : v; }`
	jsStyle     = `function(name) { return window.getComputedStyle(this).getPropertyValue(name); }`
	jsClear     = `function() {
		this.value = '';
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`
)

// cdpHandle is a resolved element reference inside one Session. The wrapped
// node belongs to the document snapshot it was located in; once that node is
// detached every operation reports ErrStale.
type cdpHandle struct {
	s    *Session
	node *cdp.Node
}

// callOn invokes fnDecl with this element bound as `this`. jsonArgs are
// pre-serialized values forwarded verbatim as the function's arguments.
func (h *cdpHandle) callOn(ctx context.Context, fnDecl string, out any, jsonArgs ...string) error {
	args := make([]any, len(jsonArgs))
	for i, a := range jsonArgs {
		args[i] = json.RawMessage(a)
	}
	err := h.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(h.node.BackendNodeID).Do(ctx)
		if err != nil {
			return err
		}
		return chromedp.CallFunctionOn(fnDecl, out,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			args...).Do(ctx)
	}))
	return classify(err)
}

func (h *cdpHandle) IsDisplayed(ctx context.Context) (bool, error) {
	var displayed bool
	err := h.callOn(ctx, jsIsDisplayed, &displayed)
	return displayed, err
}

func (h *cdpHandle) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := h.callOn(ctx, jsIsEnabled, &enabled)
	return enabled, err
}

func (h *cdpHandle) TagName(ctx context.Context) (string, error) {
	var tag string
	err := h.callOn(ctx, jsTagName, &tag)
	return tag, err
}

func (h *cdpHandle) Text(ctx context.Context) (string, error) {
	var text string
	err := h.callOn(ctx, jsText, &text)
	return text, err
}

func (h *cdpHandle) Attribute(ctx context.Context, name string) (string, error) {
	arg, err := json.Marshal(name)
	if err != nil {
		return "", err
	}
	var value string
	err = h.callOn(ctx, jsAttribute, &value, string(arg))
	return value, err
}

func (h *cdpHandle) Style(ctx context.Context, name string) (string, error) {
	arg, err := json.Marshal(name)
	if err != nil {
		return "", err
	}
	var value string
	err = h.callOn(ctx, jsStyle, &value, string(arg))
	return value, err
}

func (h *cdpHandle) Click(ctx context.Context) error {
	err := h.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		x, y, err := nodeCenter(ctx, h.node)
		if err != nil {
			return err
		}
		if err := chromedp.MouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
			return err
		}
		if err := chromedp.MouseEvent(input.MousePressed, x, y,
			chromedp.Button("left"), chromedp.ClickCount(1)).Do(ctx); err != nil {
			return err
		}
		return chromedp.MouseEvent(input.MouseReleased, x, y,
			chromedp.Button("left"), chromedp.ClickCount(1)).Do(ctx)
	}))
	return classify(err)
}

func (h *cdpHandle) SendKeys(ctx context.Context, text string) error {
	err := h.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.Focus().WithBackendNodeID(h.node.BackendNodeID).Do(ctx); err != nil {
			return err
		}
		return chromedp.KeyEvent(text).Do(ctx)
	}))
	return classify(err)
}

func (h *cdpHandle) Clear(ctx context.Context) error {
	return h.callOn(ctx, jsClear, nil)
}

// nodeCenter computes the centroid of a node's content box. Content is laid
// out [x0, y0, x1, y1, x2, y2, x3, y3].
func nodeCenter(ctx context.Context, node *cdp.Node) (float64, float64, error) {
	box, err := dom.GetBoxModel().WithBackendNodeID(node.BackendNodeID).Do(ctx)
	if err != nil {
		return 0, 0, err
	}
	if box == nil || len(box.Content) < 8 {
		return 0, 0, fmt.Errorf("driver: element has no geometric representation")
	}
	x := (box.Content[0] + box.Content[2] + box.Content[4] + box.Content[6]) / 4
	y := (box.Content[1] + box.Content[3] + box.Content[5] + box.Content[7]) / 4
	return x, y, nil
}
