package conditions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagewright/pkg/driver"
	"github.com/xkilldash9x/pagewright/pkg/driver/drivertest"
)

func stubElement(t *testing.T, expr string, configure func(e *drivertest.Element)) (*drivertest.Fake, *Conditions) {
	t.Helper()
	fake := drivertest.New()
	e := drivertest.NewElement("el")
	if configure != nil {
		configure(e)
	}
	fake.Stub(expr, drivertest.Found(e))
	return fake, newConditions(fake, "Greeting", expr)
}

func TestTextEquals(t *testing.T) {
	_, c := stubElement(t, "#g", func(e *drivertest.Element) { e.TextValue = "Hello, World" })

	require.NoError(t, c.Text().Equals(context.Background(), "Hello, World"))

	err := c.Text().Equals(context.Background(), "hello, world", WithTimeout(20*time.Millisecond))
	var ee *ExpectError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Condition, `equals "hello, world"`)
}

func TestTextEqualsIgnoreCase(t *testing.T) {
	_, c := stubElement(t, "#g", func(e *drivertest.Element) { e.TextValue = "Hello, World" })
	require.NoError(t, c.Text().Using(IgnoreCase).Equals(context.Background(), "HELLO, world"))
}

func TestTextNegation(t *testing.T) {
	_, c := stubElement(t, "#g", func(e *drivertest.Element) { e.TextValue = "Hello" })

	require.NoError(t, c.Text().Not().Equals(context.Background(), "Goodbye"))

	err := c.Text().Not().Equals(context.Background(), "Hello", WithTimeout(20*time.Millisecond))
	var ee *ExpectError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Condition, "not")
}

func TestTextPrefixSuffixContains(t *testing.T) {
	_, c := stubElement(t, "#g", func(e *drivertest.Element) { e.TextValue = "Order #42 confirmed" })
	ctx := context.Background()

	require.NoError(t, c.Text().HasPrefix(ctx, "Order"))
	require.NoError(t, c.Text().HasSuffix(ctx, "confirmed"))
	require.NoError(t, c.Text().Contains(ctx, "#42"))
	require.NoError(t, c.Text().Using(IgnoreCase).Contains(ctx, "ORDER"))
}

func TestTextMatches(t *testing.T) {
	_, c := stubElement(t, "#g", func(e *drivertest.Element) { e.TextValue = "Order #42 confirmed" })
	ctx := context.Background()

	require.NoError(t, c.Text().Matches(ctx, `Order #\d+`))
	require.NoError(t, c.Text().Using(IgnoreCase).Matches(ctx, `ORDER #\d+`))
}

func TestTextMatchesInvalidPatternFailsFast(t *testing.T) {
	_, c := stubElement(t, "#g", nil)
	err := c.Text().Matches(context.Background(), `([unclosed`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestAttributeConditions(t *testing.T) {
	_, c := stubElement(t, "#link", func(e *drivertest.Element) {
		e.Attributes["href"] = "https://example.com/docs"
	})
	ctx := context.Background()

	require.NoError(t, c.Attribute("href").HasPrefix(ctx, "https://"))
	require.NoError(t, c.Attribute("href").Contains(ctx, "example.com"))
	require.NoError(t, c.Attribute("href").Not().Equals(ctx, "about:blank"))
}

func TestStyleConditions(t *testing.T) {
	_, c := stubElement(t, "#box", func(e *drivertest.Element) {
		e.Styles["display"] = "flex"
	})
	require.NoError(t, c.Style("display").Equals(context.Background(), "flex"))
}

// Value conditions share the display conditions' recoverable set: NotFound
// keeps polling instead of failing.
func TestValueConditionsPollThroughNotFound(t *testing.T) {
	fake := drivertest.New()
	e := drivertest.NewElement("el")
	e.TextValue = "ready"
	fake.Stub("#late", drivertest.Fail(driver.ErrNotFound), drivertest.Found(e))
	c := newConditions(fake, "Status", "#late")

	require.NoError(t, c.Text().Equals(context.Background(), "ready"))
	assert.Equal(t, 2, fake.LocateCalls("#late"))
}

// Builders are immutable values: deriving a negated builder must not affect
// the original.
func TestBuilderDerivationDoesNotMutate(t *testing.T) {
	_, c := stubElement(t, "#g", func(e *drivertest.Element) { e.TextValue = "Hello" })

	base := c.Text()
	negated := base.Not()
	_ = negated

	require.NoError(t, base.Equals(context.Background(), "Hello"))
}
