// Package conditions implements the composable, pollable predicates about a
// component's state: displayed, existing, enabled, and the text, attribute
// and style value conditions. Every condition is a probe plugged into the
// wait package, with a per-condition table of which driver failures count as
// "not yet satisfied", which count as success, and which are fatal.
package conditions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagewright/pkg/driver"
	"github.com/xkilldash9x/pagewright/pkg/element"
	"github.com/xkilldash9x/pagewright/pkg/locator"
	"github.com/xkilldash9x/pagewright/pkg/wait"
)

// ExpectError reports a condition that was still unsatisfied when its
// deadline elapsed. It carries the component identity so a test failure
// names the offending element, not just "timeout".
type ExpectError struct {
	Component string
	Locator   locator.Spec
	Condition string
	Timeout   time.Duration
}

func (e *ExpectError) Error() string {
	return fmt.Sprintf("expect %s %s: unsatisfied after %s (locator %s)",
		e.Component, e.Condition, e.Timeout, e.Locator)
}

// Conditions builds and evaluates conditions for one component. Values are
// cheap and scoped to the owning component; per-call timeout and interval
// never leak between calls.
type Conditions struct {
	handle   *element.Handle
	logger   *zap.Logger
	timeout  time.Duration
	interval time.Duration
}

// New creates the condition surface for a component. timeout and interval
// are the owner-configured defaults; individual calls may override them.
func New(h *element.Handle, logger *zap.Logger, timeout, interval time.Duration) *Conditions {
	return &Conditions{
		handle:   h,
		logger:   logger.Named("expect"),
		timeout:  timeout,
		interval: interval,
	}
}

type callOpts struct {
	timeout  time.Duration
	interval time.Duration
}

// Option overrides polling parameters for a single condition call.
type Option func(*callOpts)

// WithTimeout overrides the wait deadline for this call only.
func WithTimeout(d time.Duration) Option {
	return func(o *callOpts) { o.timeout = d }
}

// WithInterval overrides the polling cadence for this call only.
func WithInterval(d time.Duration) Option {
	return func(o *callOpts) { o.interval = d }
}

func (c *Conditions) options(opts []Option) callOpts {
	o := callOpts{timeout: c.timeout, interval: c.interval}
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// await runs probe under the per-call polling parameters inside a named
// diagnostic scope, and converts a deadline miss into an ExpectError
// carrying the component identity.
func (c *Conditions) await(ctx context.Context, condition string, probe wait.Probe, opts []Option) error {
	o := c.options(opts)
	meta := c.handle.Metadata()
	description := fmt.Sprintf("Expect %s %s", meta.Name, condition)

	log := c.logger.With(
		zap.String("component", meta.Name),
		zap.String("locator", meta.Locator.String()),
	)
	log.Debug(description)

	err := wait.Until(ctx, probe, wait.Options{
		Timeout:     o.timeout,
		Interval:    o.interval,
		Description: description,
	})

	var te *wait.TimeoutError
	if errors.As(err, &te) {
		log.Debug(description+": timed out", zap.Duration("timeout", o.timeout))
		return &ExpectError{
			Component: meta.Name,
			Locator:   meta.Locator,
			Condition: condition,
			Timeout:   o.timeout,
		}
	}
	if err != nil {
		log.Debug(description+": failed", zap.Error(err))
		return err
	}
	log.Debug(description + ": satisfied")
	return nil
}

// retryable folds the two recoverable failure kinds into "not yet": a
// missing element keeps polling and a stale hit additionally invalidates the
// cached reference. Anything else is fatal.
func (c *Conditions) retryable(err error) wait.Result {
	switch {
	case errors.Is(err, driver.ErrStale):
		c.handle.Invalidate()
		return wait.NotYet()
	case errors.Is(err, driver.ErrNotFound):
		return wait.NotYet()
	default:
		return wait.Fatal(err)
	}
}

// absent treats the same two failure kinds as proof of the negative: an
// element that cannot be found or has been detached is not displayed.
func (c *Conditions) absent(err error) wait.Result {
	switch {
	case errors.Is(err, driver.ErrStale):
		c.handle.Invalidate()
		return wait.Satisfied()
	case errors.Is(err, driver.ErrNotFound):
		return wait.Satisfied()
	default:
		return wait.Fatal(err)
	}
}

// IsDisplayed waits until the component is present and visible.
func (c *Conditions) IsDisplayed(ctx context.Context, opts ...Option) error {
	return c.await(ctx, "is displayed", func(ctx context.Context) wait.Result {
		ref, err := c.handle.Locate(ctx)
		if err != nil {
			return c.retryable(err)
		}
		displayed, err := ref.IsDisplayed(ctx)
		if err != nil {
			return c.retryable(err)
		}
		if displayed {
			return wait.Satisfied()
		}
		return wait.NotYet()
	}, opts)
}

// IsNotDisplayed waits until the component is hidden or gone. Absence
// satisfies the condition immediately; it is not a retry trigger.
func (c *Conditions) IsNotDisplayed(ctx context.Context, opts ...Option) error {
	return c.await(ctx, "is not displayed", func(ctx context.Context) wait.Result {
		ref, err := c.handle.Locate(ctx)
		if err != nil {
			return c.absent(err)
		}
		displayed, err := ref.IsDisplayed(ctx)
		if err != nil {
			return c.absent(err)
		}
		if !displayed {
			return wait.Satisfied()
		}
		return wait.NotYet()
	}, opts)
}

// Exists waits until the locator resolves to an element, displayed or not.
func (c *Conditions) Exists(ctx context.Context, opts ...Option) error {
	return c.await(ctx, "exists", func(ctx context.Context) wait.Result {
		if _, err := c.handle.Locate(ctx); err != nil {
			return c.retryable(err)
		}
		return wait.Satisfied()
	}, opts)
}

// DoesNotExist waits until the locator resolves to nothing.
func (c *Conditions) DoesNotExist(ctx context.Context, opts ...Option) error {
	return c.await(ctx, "does not exist", func(ctx context.Context) wait.Result {
		if _, err := c.handle.Locate(ctx); err != nil {
			return c.absent(err)
		}
		// Still there. Force a fresh lookup on the next poll so a removal
		// is observed.
		c.handle.Invalidate()
		return wait.NotYet()
	}, opts)
}

// IsEnabled waits until the component reports enabled. Unlike the display
// and existence conditions, any resolution error is immediately fatal; there
// is deliberately no recoverable set here.
func (c *Conditions) IsEnabled(ctx context.Context, opts ...Option) error {
	return c.await(ctx, "is enabled", func(ctx context.Context) wait.Result {
		ref, err := c.handle.Locate(ctx)
		if err != nil {
			return wait.Fatal(err)
		}
		enabled, err := ref.IsEnabled(ctx)
		if err != nil {
			return wait.Fatal(err)
		}
		if enabled {
			return wait.Satisfied()
		}
		return wait.NotYet()
	}, opts)
}
