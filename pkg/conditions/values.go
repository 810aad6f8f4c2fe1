package conditions

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/pagewright/pkg/driver"
	"github.com/xkilldash9x/pagewright/pkg/wait"
)

// Comparison selects how string predicates compare values.
type Comparison int

const (
	// CaseSensitive compares values exactly. The default.
	CaseSensitive Comparison = iota
	// IgnoreCase compares values under simple case folding.
	IgnoreCase
)

// ValueConditions is an immutable condition builder over one string-valued
// aspect of a component (its text, an attribute, a computed style). Builder
// methods return modified copies scoped to the call; nothing is shared or
// mutated.
type ValueConditions struct {
	c      *Conditions
	aspect string
	get    func(ctx context.Context, ref driver.Handle) (string, error)
	mode   Comparison
	negate bool
}

// Text conditions compare the component's visible text.
func (c *Conditions) Text() ValueConditions {
	return ValueConditions{
		c:      c,
		aspect: "text",
		get: func(ctx context.Context, ref driver.Handle) (string, error) {
			return ref.Text(ctx)
		},
	}
}

// Attribute conditions compare the named attribute's value.
func (c *Conditions) Attribute(name string) ValueConditions {
	return ValueConditions{
		c:      c,
		aspect: fmt.Sprintf("attribute %q", name),
		get: func(ctx context.Context, ref driver.Handle) (string, error) {
			return ref.Attribute(ctx, name)
		},
	}
}

// Style conditions compare the named computed style property's value.
func (c *Conditions) Style(name string) ValueConditions {
	return ValueConditions{
		c:      c,
		aspect: fmt.Sprintf("style %q", name),
		get: func(ctx context.Context, ref driver.Handle) (string, error) {
			return ref.Style(ctx, name)
		},
	}
}

// Using returns a copy comparing under the given mode.
func (v ValueConditions) Using(mode Comparison) ValueConditions {
	v.mode = mode
	return v
}

// Not returns the negated counterpart of the builder.
func (v ValueConditions) Not() ValueConditions {
	v.negate = !v.negate
	return v
}

// Equals waits until the value equals want.
func (v ValueConditions) Equals(ctx context.Context, want string, opts ...Option) error {
	return v.check(ctx, fmt.Sprintf("equals %q", want), func(actual string) bool {
		if v.mode == IgnoreCase {
			return strings.EqualFold(actual, want)
		}
		return actual == want
	}, opts)
}

// Contains waits until the value contains want.
func (v ValueConditions) Contains(ctx context.Context, want string, opts ...Option) error {
	return v.check(ctx, fmt.Sprintf("contains %q", want), func(actual string) bool {
		return strings.Contains(v.fold(actual), v.fold(want))
	}, opts)
}

// HasPrefix waits until the value starts with want.
func (v ValueConditions) HasPrefix(ctx context.Context, want string, opts ...Option) error {
	return v.check(ctx, fmt.Sprintf("has prefix %q", want), func(actual string) bool {
		return strings.HasPrefix(v.fold(actual), v.fold(want))
	}, opts)
}

// HasSuffix waits until the value ends with want.
func (v ValueConditions) HasSuffix(ctx context.Context, want string, opts ...Option) error {
	return v.check(ctx, fmt.Sprintf("has suffix %q", want), func(actual string) bool {
		return strings.HasSuffix(v.fold(actual), v.fold(want))
	}, opts)
}

// Matches waits until the value matches the regular expression pattern. An
// invalid pattern fails immediately, before any polling.
func (v ValueConditions) Matches(ctx context.Context, pattern string, opts ...Option) error {
	if v.mode == IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("conditions: invalid pattern %q: %w", pattern, err)
	}
	return v.check(ctx, fmt.Sprintf("matches %q", pattern), re.MatchString, opts)
}

func (v ValueConditions) fold(s string) string {
	if v.mode == IgnoreCase {
		return strings.ToLower(s)
	}
	return s
}

func (v ValueConditions) check(ctx context.Context, predicate string, pred func(string) bool, opts []Option) error {
	condition := fmt.Sprintf("%s %s", v.aspect, predicate)
	if v.negate {
		condition = fmt.Sprintf("%s not %s", v.aspect, predicate)
	}
	return v.c.await(ctx, condition, func(ctx context.Context) wait.Result {
		ref, err := v.c.handle.Locate(ctx)
		if err != nil {
			return v.c.retryable(err)
		}
		actual, err := v.get(ctx, ref)
		if err != nil {
			return v.c.retryable(err)
		}
		ok := pred(actual)
		if v.negate {
			ok = !ok
		}
		if ok {
			return wait.Satisfied()
		}
		return wait.NotYet()
	}, opts)
}
