// Package actions is the interaction layer: every operation resolves its
// element through the staleness-recovering handle, optionally gated by a
// precondition evaluated against the condition engine, and returns the
// owning component so calls chain naturally.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagewright/pkg/conditions"
	"github.com/xkilldash9x/pagewright/pkg/driver"
	"github.com/xkilldash9x/pagewright/pkg/element"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidOptions reports an options argument an action cannot serialize
// or whose fields are outside the browser-accepted values.
var ErrInvalidOptions = errors.New("actions: invalid options")

// Precondition gates an action on a condition, e.g. the target being
// displayed, before the primitive runs.
type Precondition func(ctx context.Context, c *conditions.Conditions) error

type callOpts struct {
	when Precondition
}

// Option configures a single action call.
type Option func(*callOpts)

// When gates the action behind pre; the action runs only after pre succeeds.
func When(pre Precondition) Option {
	return func(o *callOpts) { o.when = pre }
}

// Actions performs interactions for one component. The type parameter is the
// owning component's kind, so chained calls keep their concrete type.
type Actions[T any] struct {
	owner  T
	handle *element.Handle
	drv    driver.Driver
	cond   *conditions.Conditions
	logger *zap.Logger
}

// New creates the action surface for a component.
func New[T any](owner T, h *element.Handle, drv driver.Driver, cond *conditions.Conditions, logger *zap.Logger) *Actions[T] {
	return &Actions[T]{
		owner:  owner,
		handle: h,
		drv:    drv,
		cond:   cond,
		logger: logger.Named("action"),
	}
}

// perform runs the shared action shape: precondition gate, then the
// primitive with the handle's single staleness retry. Failures propagate the
// underlying error unchanged so callers can distinguish "still not found
// after retry" from other faults.
func (a *Actions[T]) perform(ctx context.Context, name string, fields []zap.Field, opts []Option, op func(ctx context.Context, ref driver.Handle) error) (T, error) {
	var o callOpts
	for _, apply := range opts {
		apply(&o)
	}

	meta := a.handle.Metadata()
	log := a.logger.With(
		zap.String("component", meta.Name),
		zap.String("locator", meta.Locator.String()),
	)

	if o.when != nil {
		if err := o.when(ctx, a.cond); err != nil {
			var zero T
			return zero, err
		}
	}

	log.Debug(name, fields...)
	if err := a.handle.Do(ctx, op); err != nil {
		var zero T
		return zero, err
	}
	return a.owner, nil
}

// Click clicks the element's center.
func (a *Actions[T]) Click(ctx context.Context, opts ...Option) (T, error) {
	return a.perform(ctx, "click", nil, opts, func(ctx context.Context, ref driver.Handle) error {
		return ref.Click(ctx)
	})
}

// ClickAt clicks at an offset from the element's center.
func (a *Actions[T]) ClickAt(ctx context.Context, dx, dy float64, opts ...Option) (T, error) {
	fields := []zap.Field{zap.Float64("dx", dx), zap.Float64("dy", dy)}
	return a.perform(ctx, "click at offset", fields, opts, func(ctx context.Context, ref driver.Handle) error {
		return a.drv.Gesture().MoveTo(ref).MoveBy(dx, dy).Click(1).Perform(ctx)
	})
}

// DoubleClick double-clicks the element's center.
func (a *Actions[T]) DoubleClick(ctx context.Context, opts ...Option) (T, error) {
	return a.perform(ctx, "double click", nil, opts, func(ctx context.Context, ref driver.Handle) error {
		return a.drv.Gesture().MoveTo(ref).Click(2).Perform(ctx)
	})
}

// ContextClick right-clicks the element's center.
func (a *Actions[T]) ContextClick(ctx context.Context, opts ...Option) (T, error) {
	return a.perform(ctx, "context click", nil, opts, func(ctx context.Context, ref driver.Handle) error {
		return a.drv.Gesture().MoveTo(ref).ContextClick().Perform(ctx)
	})
}

// Hover moves the pointer onto the element.
func (a *Actions[T]) Hover(ctx context.Context, opts ...Option) (T, error) {
	return a.perform(ctx, "hover", nil, opts, func(ctx context.Context, ref driver.Handle) error {
		return a.drv.Gesture().MoveTo(ref).Perform(ctx)
	})
}

// HoverAt moves the pointer to an offset from the element's center.
func (a *Actions[T]) HoverAt(ctx context.Context, dx, dy float64, opts ...Option) (T, error) {
	fields := []zap.Field{zap.Float64("dx", dx), zap.Float64("dy", dy)}
	return a.perform(ctx, "hover at offset", fields, opts, func(ctx context.Context, ref driver.Handle) error {
		return a.drv.Gesture().MoveTo(ref).MoveBy(dx, dy).Perform(ctx)
	})
}

// Type sends text to the element. When the component's name marks it as a
// secret field the diagnostic value is masked with asterisks of equal
// length; the typed text itself is unaffected.
func (a *Actions[T]) Type(ctx context.Context, text string, opts ...Option) (T, error) {
	fields := []zap.Field{zap.String("text", redact(a.handle.Metadata().Name, text))}
	return a.perform(ctx, "type", fields, opts, func(ctx context.Context, ref driver.Handle) error {
		return ref.SendKeys(ctx, text)
	})
}

// Clear empties the element's value.
func (a *Actions[T]) Clear(ctx context.Context, opts ...Option) (T, error) {
	return a.perform(ctx, "clear", nil, opts, func(ctx context.Context, ref driver.Handle) error {
		return ref.Clear(ctx)
	})
}

// DragAndDrop presses on this element, moves to target, and releases. Both
// handles are resolved before the compound gesture executes.
func (a *Actions[T]) DragAndDrop(ctx context.Context, target *element.Handle, opts ...Option) (T, error) {
	fields := []zap.Field{zap.String("target", target.Metadata().Name)}
	return a.perform(ctx, "drag and drop", fields, opts, func(ctx context.Context, src driver.Handle) error {
		tgt, err := target.Locate(ctx)
		if err != nil {
			return err
		}
		return a.drv.Gesture().
			MoveTo(src).
			Press(driver.ButtonLeft).
			MoveTo(tgt).
			Release(driver.ButtonLeft).
			Perform(ctx)
	})
}

// secretMarkers flag component names whose typed values must never reach
// diagnostics in the clear. Markers match whole words of the name, so
// "Spinner" and "ShippingAddress" are not masked while "UserPIN" is.
var secretMarkers = []string{"password", "secret", "token", "passphrase", "pin"}

func redact(componentName, text string) string {
	for _, word := range nameWords(componentName) {
		for _, marker := range secretMarkers {
			if word == marker {
				return strings.Repeat("*", utf8.RuneCountInString(text))
			}
		}
	}
	return text
}

// nameWords splits a component name into lowercased words on case, digit, and
// separator boundaries: "UserPIN" is [user pin], "pin-code" is [pin code].
func nameWords(name string) []string {
	runes := []rune(name)
	var words []string
	start := 0
	flush := func(end int) {
		if end > start {
			words = append(words, strings.ToLower(string(runes[start:end])))
		}
		start = end
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			start = i + 1
			continue
		}
		if i == start {
			continue
		}
		prev := runes[i-1]
		boundary := (unicode.IsUpper(r) && unicode.IsLower(prev)) ||
			(unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])) ||
			(unicode.IsDigit(r) != unicode.IsDigit(prev))
		if boundary {
			flush(i)
		}
	}
	flush(len(runes))
	return words
}

func invalidOptions(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOptions, fmt.Sprintf(format, args...))
}
