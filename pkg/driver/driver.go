// Package driver defines the browser capability surface the runtime consumes:
// element location, per-element state queries and primitives, script
// execution, and a compound gesture builder. The rest of the system never
// issues transport calls of its own; it only requires these interfaces.
//
// The chromedp-backed implementation lives in session.go. Tests use the
// scriptable fake in the drivertest subpackage.
package driver

import (
	"context"
	"errors"

	"github.com/xkilldash9x/pagewright/pkg/locator"
)

var (
	// ErrNotFound reports that a locator matched nothing in the current
	// document.
	ErrNotFound = errors.New("driver: element not found")
	// ErrStale reports that a previously resolved element reference is no
	// longer attached to the document.
	ErrStale = errors.New("driver: stale element reference")
)

// Handle is a resolved reference to one DOM element. All operations against
// a Handle may fail with ErrStale once the underlying node has been detached
// or replaced; callers recover by re-locating.
type Handle interface {
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	TagName(ctx context.Context) (string, error)
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	Style(ctx context.Context, name string) (string, error)

	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Clear(ctx context.Context) error
}

// Driver is the capability a browser session exposes to the runtime.
type Driver interface {
	// LocateOne resolves loc to a single element. A nil scope searches the
	// whole document; a non-nil scope restricts the search to that element's
	// subtree. Returns ErrNotFound when nothing matches.
	LocateOne(ctx context.Context, scope Handle, loc locator.Spec) (Handle, error)

	// LocateAll resolves loc to every matching element, in document order.
	// An empty result is not an error.
	LocateAll(ctx context.Context, scope Handle, loc locator.Spec) ([]Handle, error)

	// CallOn invokes a JavaScript function declaration with the target
	// element bound as `this`. Arguments are pre-serialized JSON values.
	// The function's return value is handed back JSON-serialized.
	CallOn(ctx context.Context, target Handle, fnDecl string, jsonArgs ...string) (string, error)

	// Gesture starts a compound pointer gesture (move/press/release
	// sequences) that is dispatched only when Perform is called.
	Gesture() Gesture
}

// Gesture builds a compound pointer interaction. Builder calls record steps;
// Perform dispatches them in order against the live page.
type Gesture interface {
	// MoveTo moves the pointer to the center of the target element.
	MoveTo(target Handle) Gesture
	// MoveBy offsets the pointer from its current position.
	MoveBy(dx, dy float64) Gesture
	// Press pushes the given button down at the current position.
	Press(button Button) Gesture
	// Release lets the given button up at the current position.
	Release(button Button) Gesture
	// Click is Press+Release of the left button with the given click count
	// (1 for single, 2 for double).
	Click(count int) Gesture
	// ContextClick is Press+Release of the right button.
	ContextClick() Gesture
	// Perform dispatches the recorded steps. The gesture must not be reused
	// after Perform returns.
	Perform(ctx context.Context) error
}

// Button identifies a pointer button in gesture steps.
type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)
