// Package component is the runtime face of a compiled page: it binds the
// accessor graph to a live driver session and hands out typed components
// whose elements resolve lazily, wait through the condition engine, and act
// through the interaction layer.
package component

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagewright/pkg/actions"
	"github.com/xkilldash9x/pagewright/pkg/compiler"
	"github.com/xkilldash9x/pagewright/pkg/conditions"
	"github.com/xkilldash9x/pagewright/pkg/driver"
	"github.com/xkilldash9x/pagewright/pkg/element"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// Options tunes the page's condition engine and diagnostics.
type Options struct {
	// Timeout bounds each condition wait.
	Timeout time.Duration
	// Interval is the polling cadence within a wait.
	Interval time.Duration
	Logger   *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Page binds a compiled graph to a driver session.
type Page struct {
	drv   driver.Driver
	graph *compiler.Graph
	opts  Options
}

// NewPage creates the runtime page for a compiled graph.
func NewPage(drv driver.Driver, graph *compiler.Graph, opts Options) *Page {
	return &Page{drv: drv, graph: graph, opts: opts.withDefaults()}
}

// Name returns the page's declared name.
func (p *Page) Name() string { return p.graph.Page }

// Component returns the named top-level singular component.
func (p *Page) Component(name string) (*Component, error) {
	a, err := find(p.graph.Accessors, name, p.graph.Page)
	if err != nil {
		return nil, err
	}
	if a.Plural {
		return nil, fmt.Errorf("component: %q on page %q is a collection, use Collection", name, p.graph.Page)
	}
	return newComponent(p.drv, a, nil, p.opts), nil
}

// Collection returns the named top-level plural component.
func (p *Page) Collection(name string) (*Collection, error) {
	a, err := find(p.graph.Accessors, name, p.graph.Page)
	if err != nil {
		return nil, err
	}
	if !a.Plural {
		return nil, fmt.Errorf("component: %q on page %q is singular, use Component", name, p.graph.Page)
	}
	return newCollection(p.drv, a, nil, p.opts), nil
}

func find(accessors []*compiler.Accessor, name, owner string) (*compiler.Accessor, error) {
	for _, a := range accessors {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("component: %q has no component named %q", owner, name)
}

// Component is one live component instance. Its element resolves on first
// use and recovers from staleness; Expect and Do expose the condition and
// interaction surfaces.
type Component struct {
	drv      driver.Driver
	accessor *compiler.Accessor
	handle   *element.Handle
	opts     Options
}

func newComponent(drv driver.Driver, a *compiler.Accessor, parent *element.Handle, opts Options) *Component {
	meta := element.Metadata{Name: a.Qualified, Locator: a.Locator}
	h := element.New(drv, a.Locator, meta, opts.Logger)
	if parent != nil {
		h.WithParent(parent)
	}
	return &Component{drv: drv, accessor: a, handle: h, opts: opts}
}

func newIndexedComponent(drv driver.Driver, a *compiler.Accessor, parent *element.Handle, index int, opts Options) *Component {
	meta := element.Metadata{
		Name:    fmt.Sprintf("%s[%d]", a.Qualified, index),
		Locator: a.Locator,
	}
	h := element.NewIndexed(drv, a.Locator, index, meta, opts.Logger)
	if parent != nil {
		h.WithParent(parent)
	}
	return &Component{drv: drv, accessor: a, handle: h, opts: opts}
}

// Name returns the component's qualified name.
func (c *Component) Name() string { return c.accessor.Qualified }

// Type returns the compiled type identifier.
func (c *Component) Type() compiler.TypeIdentifier { return c.accessor.Type }

// Handle exposes the underlying element handle, e.g. as a drag target.
func (c *Component) Handle() *element.Handle { return c.handle }

// Expect returns the condition surface for this component.
func (c *Component) Expect() *conditions.Conditions {
	return conditions.New(c.handle, c.opts.Logger, c.opts.Timeout, c.opts.Interval)
}

// Do returns the interaction surface. Actions chain back to this component.
func (c *Component) Do() *actions.Actions[*Component] {
	return actions.New(c, c.handle, c.drv, c.Expect(), c.opts.Logger)
}

// Component returns the named nested singular component, scoped to this
// component's subtree.
func (c *Component) Component(name string) (*Component, error) {
	a, err := find(c.accessor.Children, name, c.accessor.Qualified)
	if err != nil {
		return nil, err
	}
	if a.Plural {
		return nil, fmt.Errorf("component: %q in %q is a collection, use Collection", name, c.accessor.Qualified)
	}
	return newComponent(c.drv, a, c.handle, c.opts), nil
}

// Collection returns the named nested plural component.
func (c *Component) Collection(name string) (*Collection, error) {
	a, err := find(c.accessor.Children, name, c.accessor.Qualified)
	if err != nil {
		return nil, err
	}
	if !a.Plural {
		return nil, fmt.Errorf("component: %q in %q is singular, use Component", name, c.accessor.Qualified)
	}
	return newCollection(c.drv, a, c.handle, c.opts), nil
}

// Collection is a live plural component. Size is never cached: every Count
// and All reflects the page at the moment of the call.
type Collection struct {
	drv      driver.Driver
	accessor *compiler.Accessor
	parent   *element.Handle
	opts     Options
}

func newCollection(drv driver.Driver, a *compiler.Accessor, parent *element.Handle, opts Options) *Collection {
	return &Collection{drv: drv, accessor: a, parent: parent, opts: opts}
}

// Name returns the collection's qualified name.
func (l *Collection) Name() string { return l.accessor.Qualified }

// Count resolves the locator afresh and reports how many elements match
// right now. Zero matches is a valid count, not an error.
func (l *Collection) Count(ctx context.Context) (int, error) {
	refs, err := l.locateAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(refs), nil
}

// At returns the member at index. Resolution is deferred: the index is
// checked against the live page when the member's element is first used.
func (l *Collection) At(index int) *Component {
	return newIndexedComponent(l.drv, l.accessor, l.parent, index, l.opts)
}

// All snapshots the current members as indexed components. Each member still
// resolves lazily, so a member may fail with a not-found error if the page
// shrinks between the snapshot and its use.
func (l *Collection) All(ctx context.Context) ([]*Component, error) {
	refs, err := l.locateAll(ctx)
	if err != nil {
		return nil, err
	}
	members := make([]*Component, len(refs))
	for i := range refs {
		members[i] = l.At(i)
	}
	return members, nil
}

func (l *Collection) locateAll(ctx context.Context) ([]driver.Handle, error) {
	var scope driver.Handle
	if l.parent != nil {
		s, err := l.parent.Locate(ctx)
		if err != nil {
			return nil, err
		}
		scope = s
	}
	return l.drv.LocateAll(ctx, scope, l.accessor.Locator)
}
