package actions

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagewright/pkg/driver"
)

// Browser-native invocations. Each declaration takes an optional options
// argument: called with no arguments it falls back to the zero-argument DOM
// form.
const (
	jsScrollIntoView = `function(opts) {
		if (opts === undefined) { this.scrollIntoView(); } else { this.scrollIntoView(opts); }
	}`
	jsFocus = `function(opts) {
		if (opts === undefined) { this.focus(); } else { this.focus(opts); }
	}`
	jsBlur = `function() { this.blur(); }`
)

// ScrollIntoViewOptions mirrors the DOM scrollIntoView options dictionary.
type ScrollIntoViewOptions struct {
	Behavior string `json:"behavior,omitempty"`
	Block    string `json:"block,omitempty"`
	Inline   string `json:"inline,omitempty"`
}

func (o *ScrollIntoViewOptions) validate() error {
	if !oneOf(o.Behavior, "", "auto", "smooth", "instant") {
		return invalidOptions("scroll behavior %q", o.Behavior)
	}
	for _, align := range []string{o.Block, o.Inline} {
		if !oneOf(align, "", "start", "center", "end", "nearest") {
			return invalidOptions("scroll alignment %q", align)
		}
	}
	return nil
}

// FocusOptions mirrors the DOM focus options dictionary.
type FocusOptions struct {
	PreventScroll bool `json:"preventScroll,omitempty"`
}

// ScrollIntoView scrolls the element into the viewport. A nil o uses the
// browser-native zero-argument invocation; otherwise o is serialized and
// passed through.
func (a *Actions[T]) ScrollIntoView(ctx context.Context, o *ScrollIntoViewOptions, opts ...Option) (T, error) {
	var serialized []byte
	if o != nil {
		if err := o.validate(); err != nil {
			var zero T
			return zero, err
		}
		b, err := json.Marshal(o)
		if err != nil {
			var zero T
			return zero, invalidOptions("serializing scroll options: %v", err)
		}
		serialized = b
	}
	return a.invoke(ctx, "scroll into view", jsScrollIntoView, serialized, opts)
}

// Focus gives the element input focus. A nil o uses the zero-argument
// invocation.
func (a *Actions[T]) Focus(ctx context.Context, o *FocusOptions, opts ...Option) (T, error) {
	var serialized []byte
	if o != nil {
		b, err := json.Marshal(o)
		if err != nil {
			var zero T
			return zero, invalidOptions("serializing focus options: %v", err)
		}
		serialized = b
	}
	return a.invoke(ctx, "focus", jsFocus, serialized, opts)
}

// Blur removes input focus from the element.
func (a *Actions[T]) Blur(ctx context.Context, opts ...Option) (T, error) {
	return a.invoke(ctx, "blur", jsBlur, nil, opts)
}

// invoke runs a browser-native element method, passing serialized options
// when present.
func (a *Actions[T]) invoke(ctx context.Context, name, fnDecl string, serialized []byte, opts []Option) (T, error) {
	return a.perform(ctx, name, optionFields(serialized), opts, func(ctx context.Context, ref driver.Handle) error {
		if serialized == nil {
			_, err := a.drv.CallOn(ctx, ref, fnDecl)
			return err
		}
		_, err := a.drv.CallOn(ctx, ref, fnDecl, string(serialized))
		return err
	})
}

func optionFields(serialized []byte) []zap.Field {
	if serialized == nil {
		return nil
	}
	return []zap.Field{zap.ByteString("options", serialized)}
}

func oneOf(s string, allowed ...string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
