// Package wait provides the polling-until-timeout primitive every condition
// in the runtime is built on. A probe reports a tagged outcome instead of
// raising classified errors, which keeps the recoverable/fatal decision with
// the probe author and out of this package.
package wait

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Result is the tagged outcome of one probe evaluation.
type Result struct {
	satisfied bool
	fatal     error
}

// Satisfied reports the condition holds; polling stops successfully.
func Satisfied() Result { return Result{satisfied: true} }

// NotYet reports the condition does not hold yet; polling continues.
func NotYet() Result { return Result{} }

// Fatal aborts the wait immediately with cause.
func Fatal(cause error) Result { return Result{fatal: cause} }

// Probe evaluates a condition once. Probes are expected to fold their own
// recoverable failures ("element not there yet") into NotYet and reserve
// Fatal for errors outside their known-recoverable set.
type Probe func(ctx context.Context) Result

// Options are per-call polling parameters. They are never process-global:
// consecutive Until calls are fully independent.
type Options struct {
	// Timeout is the wall-clock deadline for the whole wait.
	Timeout time.Duration
	// Interval is the cadence probes are evaluated at. Non-positive values
	// are clamped to minInterval.
	Interval time.Duration
	// Description names the awaited condition in failures.
	Description string
}

// minInterval is the floor for the polling cadence.
const minInterval = time.Millisecond

// TimeoutError reports that a wait exceeded its deadline without the probe
// ever being satisfied.
type TimeoutError struct {
	Description string
	Timeout     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("wait: timed out after %s: %s", e.Timeout, e.Description)
}

// Until blocks the calling flow, evaluating probe at opts.Interval cadence
// until it is satisfied, a fatal outcome occurs, the timeout elapses, or ctx
// is cancelled. The first evaluation happens immediately.
func Until(ctx context.Context, probe Probe, opts Options) error {
	deadline := time.Now().Add(opts.Timeout)
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	// rate.Every maps a non-positive interval to an infinite rate, which
	// would spin the loop until the deadline.
	interval := opts.Interval
	if interval < minInterval {
		interval = minInterval
	}

	// A limiter paces the polls; burst 1 makes the first token free so the
	// initial probe runs without delay.
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for {
		if err := limiter.Wait(waitCtx); err != nil {
			// The limiter refuses once the next poll cannot happen before
			// the deadline. Cancellation of the caller's context is not a
			// timeout and propagates as-is.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TimeoutError{Description: opts.Description, Timeout: opts.Timeout}
		}

		res := probe(ctx)
		switch {
		case res.fatal != nil:
			return res.fatal
		case res.satisfied:
			return nil
		}

		if time.Now().After(deadline) {
			return &TimeoutError{Description: opts.Description, Timeout: opts.Timeout}
		}
	}
}
