// Package element implements lazy element resolution with staleness
// recovery. A Handle wraps a locator plus a cached driver reference whose
// lifetime is shorter than the handle's own: the cache is discarded on
// invalidation and transparently re-acquired on the next locate.
//
// A Handle is owned by the component instance that created it and is not
// safe for concurrent use; the cached reference and its validity flag are
// unsynchronized by design of the single-flow session model.
package element

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagewright/pkg/driver"
	"github.com/xkilldash9x/pagewright/pkg/locator"
)

// Metadata identifies the owning component in diagnostics and failures.
type Metadata struct {
	Name    string
	Locator locator.Spec
}

// Handle lazily resolves one element through the driver.
type Handle struct {
	drv    driver.Driver
	parent *Handle
	loc    locator.Spec
	meta   Metadata
	logger *zap.Logger

	// index selects the n-th match when >= 0; -1 means single-element.
	index int

	cached  driver.Handle
	invalid bool
}

// New creates a handle for the single element matching loc.
func New(drv driver.Driver, loc locator.Spec, meta Metadata, logger *zap.Logger) *Handle {
	return &Handle{drv: drv, loc: loc, meta: meta, logger: logger, index: -1}
}

// NewIndexed creates a handle for the index-th element matching loc, for
// plural components. Locating fails with ErrNotFound when fewer than index+1
// elements match at resolution time.
func NewIndexed(drv driver.Driver, loc locator.Spec, index int, meta Metadata, logger *zap.Logger) *Handle {
	return &Handle{drv: drv, loc: loc, meta: meta, logger: logger, index: index}
}

// WithParent restricts resolution to parent's subtree. The parent element is
// resolved lazily at lookup time, so an unresolved or invalidated parent
// re-acquires its reference before the child does.
func (h *Handle) WithParent(parent *Handle) *Handle {
	h.parent = parent
	return h
}

// Metadata returns the owning component's identity.
func (h *Handle) Metadata() Metadata { return h.meta }

// Locator returns the locator this handle resolves.
func (h *Handle) Locator() locator.Spec { return h.loc }

// Locate returns the cached reference when present and valid; otherwise it
// performs a fresh lookup and caches the result. After Invalidate the next
// call never returns the discarded reference.
func (h *Handle) Locate(ctx context.Context) (driver.Handle, error) {
	if h.cached != nil && !h.invalid {
		return h.cached, nil
	}

	ref, err := h.resolve(ctx)
	if err != nil {
		return nil, err
	}
	h.cached = ref
	h.invalid = false
	return ref, nil
}

func (h *Handle) resolve(ctx context.Context) (driver.Handle, error) {
	ref, err := h.resolveScoped(ctx)
	if err != nil && h.parent != nil && errors.Is(err, driver.ErrStale) {
		// A stale failure under a scope means an ancestor's cached
		// reference is detached, not this element. Discard the chain and
		// retry once under freshly resolved scopes.
		h.parent.invalidateChain()
		ref, err = h.resolveScoped(ctx)
	}
	return ref, err
}

func (h *Handle) resolveScoped(ctx context.Context) (driver.Handle, error) {
	var scope driver.Handle
	if h.parent != nil {
		s, err := h.parent.Locate(ctx)
		if err != nil {
			return nil, err
		}
		scope = s
	}
	if h.index < 0 {
		return h.drv.LocateOne(ctx, scope, h.loc)
	}
	all, err := h.drv.LocateAll(ctx, scope, h.loc)
	if err != nil {
		return nil, err
	}
	if h.index >= len(all) {
		return nil, driver.ErrNotFound
	}
	return all[h.index], nil
}

// invalidateChain discards this handle's cached reference and every
// ancestor's, so the next locate re-acquires the full chain.
func (h *Handle) invalidateChain() {
	h.Invalidate()
	if h.parent != nil {
		h.parent.invalidateChain()
	}
}

// Invalidate discards the cached reference. The next Locate performs a fresh
// resolution.
func (h *Handle) Invalidate() {
	h.cached = nil
	h.invalid = true
}

// Do resolves the element and runs op against it. When op fails because the
// reference went stale, the handle is invalidated and locate-then-op is
// retried exactly once; a second failure propagates unchanged. The single
// retry bounds amplification while covering one intervening re-render.
func (h *Handle) Do(ctx context.Context, op func(ctx context.Context, ref driver.Handle) error) error {
	ref, err := h.Locate(ctx)
	if err != nil {
		return err
	}

	err = op(ctx, ref)
	if !errors.Is(err, driver.ErrStale) {
		return err
	}

	h.logger.Debug("stale reference, relocating once",
		zap.String("component", h.meta.Name),
		zap.String("locator", h.loc.String()))
	h.Invalidate()

	ref, lerr := h.Locate(ctx)
	if lerr != nil {
		return lerr
	}
	return op(ctx, ref)
}
