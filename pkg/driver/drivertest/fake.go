// Package drivertest provides a scriptable in-memory Driver for tests. Each
// locator expression is stubbed with a queue of results; the last entry is
// sticky, so a stub of [NotFound, found] models an element that appears after
// one failed poll.
package drivertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/xkilldash9x/pagewright/pkg/driver"
	"github.com/xkilldash9x/pagewright/pkg/locator"
)

// Result is one scripted answer to a locate call.
type Result struct {
	Elements []*Element
	Err      error
}

// Found is shorthand for a successful single-element result.
func Found(e *Element) Result { return Result{Elements: []*Element{e}} }

// Fail is shorthand for an error result.
func Fail(err error) Result { return Result{Err: err} }

// Call records one CallOn invocation.
type Call struct {
	Target *Element
	FnDecl string
	Args   []string
}

// Fake implements driver.Driver with scripted behavior.
type Fake struct {
	mu sync.Mutex

	stubs       map[string][]Result
	locateCalls map[string]int

	// CallOnResult is returned by CallOn when CallOnErr is nil.
	CallOnResult string
	CallOnErr    error
	Calls        []Call

	// Gestures collects every gesture the driver handed out.
	Gestures []*Gesture
}

// New creates an empty fake driver.
func New() *Fake {
	return &Fake{
		stubs:       make(map[string][]Result),
		locateCalls: make(map[string]int),
	}
}

// Stub scripts the results for expr, in order. The final result repeats
// forever.
func (f *Fake) Stub(expr string, results ...Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs[expr] = results
}

// LocateCalls reports how many times expr has been resolved.
func (f *Fake) LocateCalls(expr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locateCalls[expr]
}

func (f *Fake) next(expr string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locateCalls[expr]++
	queue, ok := f.stubs[expr]
	if !ok || len(queue) == 0 {
		return Result{}, fmt.Errorf("drivertest: no stub for locator %q", expr)
	}
	res := queue[0]
	if len(queue) > 1 {
		f.stubs[expr] = queue[1:]
	}
	return res, nil
}

// staleScope reports whether scope is a detached element; locating under a
// detached scope fails with driver.ErrStale before consuming any stub.
func staleScope(scope driver.Handle) bool {
	el, ok := scope.(*Element)
	return ok && el.isDetached()
}

// LocateOne implements driver.Driver.
func (f *Fake) LocateOne(ctx context.Context, scope driver.Handle, loc locator.Spec) (driver.Handle, error) {
	if staleScope(scope) {
		return nil, driver.ErrStale
	}
	res, err := f.next(loc.Expression)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if len(res.Elements) == 0 {
		return nil, driver.ErrNotFound
	}
	return res.Elements[0], nil
}

// LocateAll implements driver.Driver.
func (f *Fake) LocateAll(ctx context.Context, scope driver.Handle, loc locator.Spec) ([]driver.Handle, error) {
	if staleScope(scope) {
		return nil, driver.ErrStale
	}
	res, err := f.next(loc.Expression)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	handles := make([]driver.Handle, len(res.Elements))
	for i, e := range res.Elements {
		handles[i] = e
	}
	return handles, nil
}

// CallOn implements driver.Driver.
func (f *Fake) CallOn(ctx context.Context, target driver.Handle, fnDecl string, jsonArgs ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, _ := target.(*Element)
	f.Calls = append(f.Calls, Call{Target: el, FnDecl: fnDecl, Args: jsonArgs})
	if f.CallOnErr != nil {
		return "", f.CallOnErr
	}
	return f.CallOnResult, nil
}

// Gesture implements driver.Driver.
func (f *Fake) Gesture() driver.Gesture {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &Gesture{}
	f.Gestures = append(f.Gestures, g)
	return g
}

// Element implements driver.Handle with scripted state. The zero value is a
// hidden, disabled element; use NewElement for a visible, enabled one.
type Element struct {
	mu sync.Mutex

	ID         string
	Displayed  bool
	Enabled    bool
	Tag        string
	TextValue  string
	Attributes map[string]string
	Styles     map[string]string

	// Detached marks the element as removed from the document; locate calls
	// scoped to it fail with driver.ErrStale.
	Detached bool

	// FailWith, when set, makes every operation fail with it.
	FailWith error
	// failNext is a queue of one-shot errors consumed before normal behavior.
	failNext []error

	Clicks  int
	Typed   []string
	Cleared int
}

// NewElement creates a visible, enabled element with the given identity.
func NewElement(id string) *Element {
	return &Element{
		ID:         id,
		Displayed:  true,
		Enabled:    true,
		Tag:        "div",
		Attributes: make(map[string]string),
		Styles:     make(map[string]string),
	}
}

// FailNextWith queues errors returned by the next operations, one each.
func (e *Element) FailNextWith(errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failNext = append(e.failNext, errs...)
}

func (e *Element) isDetached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Detached
}

func (e *Element) op() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.failNext) > 0 {
		err := e.failNext[0]
		e.failNext = e.failNext[1:]
		return err
	}
	return e.FailWith
}

// Set mutates element state under the lock, for tests that flip visibility
// or enablement mid-wait.
func (e *Element) Set(mutate func(e *Element)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	mutate(e)
}

func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	if err := e.op(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Displayed, nil
}

func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	if err := e.op(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Enabled, nil
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	if err := e.op(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Tag, nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.op(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.TextValue, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	if err := e.op(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Attributes[name], nil
}

func (e *Element) Style(ctx context.Context, name string) (string, error) {
	if err := e.op(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Styles[name], nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := e.op(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Clicks++
	return nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := e.op(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Typed = append(e.Typed, text)
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	if err := e.op(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Cleared++
	return nil
}

// Gesture implements driver.Gesture by recording its steps.
type Gesture struct {
	mu         sync.Mutex
	Steps      []string
	Performed  int
	PerformErr error
}

func (g *Gesture) record(step string) *Gesture {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Steps = append(g.Steps, step)
	return g
}

func (g *Gesture) MoveTo(target driver.Handle) driver.Gesture {
	id := "?"
	if el, ok := target.(*Element); ok {
		id = el.ID
	}
	return g.record("moveto:" + id)
}

func (g *Gesture) MoveBy(dx, dy float64) driver.Gesture {
	return g.record(fmt.Sprintf("moveby:%g,%g", dx, dy))
}

func (g *Gesture) Press(button driver.Button) driver.Gesture {
	return g.record("press:" + string(button))
}

func (g *Gesture) Release(button driver.Button) driver.Gesture {
	return g.record("release:" + string(button))
}

func (g *Gesture) Click(count int) driver.Gesture {
	return g.record(fmt.Sprintf("click:%d", count))
}

func (g *Gesture) ContextClick() driver.Gesture {
	return g.record("contextclick")
}

func (g *Gesture) Perform(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Performed++
	return g.PerformErr
}
