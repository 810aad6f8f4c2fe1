package actions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/pagewright/pkg/conditions"
	"github.com/xkilldash9x/pagewright/pkg/driver"
	"github.com/xkilldash9x/pagewright/pkg/driver/drivertest"
	"github.com/xkilldash9x/pagewright/pkg/element"
	"github.com/xkilldash9x/pagewright/pkg/locator"
)

// page stands in for the owning component in chaining assertions.
type page struct{ name string }

func newActions(fake *drivertest.Fake, componentName, expr string, logger *zap.Logger) (*Actions[*page], *page) {
	loc := locator.Style(expr)
	h := element.New(fake, loc, element.Metadata{Name: componentName, Locator: loc}, zap.NewNop())
	cond := conditions.New(h, zap.NewNop(), 100*time.Millisecond, 5*time.Millisecond)
	owner := &page{name: componentName}
	return New(owner, h, fake, cond, logger), owner
}

func TestClickReturnsOwnerForChaining(t *testing.T) {
	fake := drivertest.New()
	el := drivertest.NewElement("a")
	fake.Stub("#btn", drivertest.Found(el))
	a, owner := newActions(fake, "Submit", "#btn", zap.NewNop())

	got, err := a.Click(context.Background())
	require.NoError(t, err)
	assert.Same(t, owner, got)
	assert.Equal(t, 1, el.Clicks)
}

func TestClickRetriesOnceAcrossStaleness(t *testing.T) {
	fake := drivertest.New()
	a1 := drivertest.NewElement("a")
	a1.FailNextWith(driver.ErrStale)
	a2 := drivertest.NewElement("b")
	fake.Stub("#btn", drivertest.Found(a1), drivertest.Found(a2))
	a, _ := newActions(fake, "Submit", "#btn", zap.NewNop())

	_, err := a.Click(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, a2.Clicks)
}

// After the single retry the underlying failure propagates, not a wrapper.
func TestClickFailureAfterRetryPropagatesUnderlying(t *testing.T) {
	fake := drivertest.New()
	a1 := drivertest.NewElement("a")
	a1.FailNextWith(driver.ErrStale)
	fake.Stub("#btn", drivertest.Found(a1), drivertest.Fail(driver.ErrNotFound))
	a, _ := newActions(fake, "Submit", "#btn", zap.NewNop())

	_, err := a.Click(context.Background())
	assert.ErrorIs(t, err, driver.ErrNotFound)
}

func TestTypeSendsKeys(t *testing.T) {
	fake := drivertest.New()
	el := drivertest.NewElement("a")
	fake.Stub("#user", drivertest.Found(el))
	a, _ := newActions(fake, "UsernameField", "#user", zap.NewNop())

	_, err := a.Type(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, el.Typed)
}

func loggedValues(logs *observer.ObservedLogs) []string {
	var values []string
	for _, entry := range logs.All() {
		values = append(values, entry.Message)
		for _, f := range entry.Context {
			if f.Type == zapcore.StringType {
				values = append(values, f.String)
			}
		}
	}
	return values
}

func TestTypeRedactsSecretFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	fake := drivertest.New()
	el := drivertest.NewElement("a")
	fake.Stub("#pw", drivertest.Found(el))
	a, _ := newActions(fake, "PasswordField", "#pw", zap.New(core))

	_, err := a.Type(context.Background(), "secret123")
	require.NoError(t, err)

	// The element still receives the literal text.
	assert.Equal(t, []string{"secret123"}, el.Typed)

	values := loggedValues(logs)
	assert.Contains(t, values, strings.Repeat("*", len("secret123")))
	for _, v := range values {
		assert.NotContains(t, v, "secret123", "literal secret must never reach diagnostics")
	}
}

func TestTypeDoesNotRedactOrdinaryFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	fake := drivertest.New()
	fake.Stub("#user", drivertest.Found(drivertest.NewElement("a")))
	a, _ := newActions(fake, "UsernameField", "#user", zap.New(core))

	_, err := a.Type(context.Background(), "alice")
	require.NoError(t, err)
	assert.Contains(t, loggedValues(logs), "alice")
}

// Markers match whole words of the component name: "pin" must not mask
// Spinner or ShippingAddress, while real credential fields stay masked.
func TestRedactMatchesWholeWordsOnly(t *testing.T) {
	masked := strings.Repeat("*", len("hello"))
	cases := map[string]string{
		"PasswordField":   masked,
		"UserPIN":         masked,
		"PinEntry":        masked,
		"pin-code":        masked,
		"APIToken":        masked,
		"Spinner":         "hello",
		"ShippingAddress": "hello",
		"TokensRemaining": "hello",
	}
	for name, want := range cases {
		assert.Equal(t, want, redact(name, "hello"), name)
	}
}

func TestWhenGateBlocksAction(t *testing.T) {
	fake := drivertest.New()
	el := drivertest.NewElement("a")
	el.Displayed = false
	fake.Stub("#btn", drivertest.Found(el))
	a, _ := newActions(fake, "Submit", "#btn", zap.NewNop())

	_, err := a.Click(context.Background(), When(func(ctx context.Context, c *conditions.Conditions) error {
		return c.IsDisplayed(ctx, conditions.WithTimeout(20*time.Millisecond))
	}))

	var ee *conditions.ExpectError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 0, el.Clicks, "gated action must not run when the precondition fails")
}

func TestWhenGatePassesThenActs(t *testing.T) {
	fake := drivertest.New()
	el := drivertest.NewElement("a")
	fake.Stub("#btn", drivertest.Found(el))
	a, _ := newActions(fake, "Submit", "#btn", zap.NewNop())

	_, err := a.Click(context.Background(), When(func(ctx context.Context, c *conditions.Conditions) error {
		return c.IsDisplayed(ctx)
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, el.Clicks)
}

func TestClickAtBuildsOffsetGesture(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#map", drivertest.Found(drivertest.NewElement("m")))
	a, _ := newActions(fake, "Map", "#map", zap.NewNop())

	_, err := a.ClickAt(context.Background(), 12, -4)
	require.NoError(t, err)

	require.Len(t, fake.Gestures, 1)
	g := fake.Gestures[0]
	assert.Equal(t, []string{"moveto:m", "moveby:12,-4", "click:1"}, g.Steps)
	assert.Equal(t, 1, g.Performed)
}

func TestDoubleClickGesture(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#f", drivertest.Found(drivertest.NewElement("f")))
	a, _ := newActions(fake, "File", "#f", zap.NewNop())

	_, err := a.DoubleClick(context.Background())
	require.NoError(t, err)
	require.Len(t, fake.Gestures, 1)
	assert.Equal(t, []string{"moveto:f", "click:2"}, fake.Gestures[0].Steps)
}

func TestContextClickGesture(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#f", drivertest.Found(drivertest.NewElement("f")))
	a, _ := newActions(fake, "File", "#f", zap.NewNop())

	_, err := a.ContextClick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"moveto:f", "contextclick"}, fake.Gestures[0].Steps)
}

func TestHoverGestures(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#menu", drivertest.Found(drivertest.NewElement("m")))
	a, _ := newActions(fake, "Menu", "#menu", zap.NewNop())

	_, err := a.Hover(context.Background())
	require.NoError(t, err)
	_, err = a.HoverAt(context.Background(), 3, 7)
	require.NoError(t, err)

	require.Len(t, fake.Gestures, 2)
	assert.Equal(t, []string{"moveto:m"}, fake.Gestures[0].Steps)
	assert.Equal(t, []string{"moveto:m", "moveby:3,7"}, fake.Gestures[1].Steps)
}

func TestDragAndDropResolvesBothBeforeGesture(t *testing.T) {
	fake := drivertest.New()
	src := drivertest.NewElement("src")
	dst := drivertest.NewElement("dst")
	fake.Stub("#card", drivertest.Found(src))
	fake.Stub("#bin", drivertest.Found(dst))
	a, _ := newActions(fake, "Card", "#card", zap.NewNop())

	binLoc := locator.Style("#bin")
	bin := element.New(fake, binLoc, element.Metadata{Name: "Bin", Locator: binLoc}, zap.NewNop())

	_, err := a.DragAndDrop(context.Background(), bin)
	require.NoError(t, err)

	require.Len(t, fake.Gestures, 1)
	assert.Equal(t, []string{"moveto:src", "press:left", "moveto:dst", "release:left"}, fake.Gestures[0].Steps)
}

func TestDragAndDropFailsWhenTargetMissing(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#card", drivertest.Found(drivertest.NewElement("src")))
	fake.Stub("#bin", drivertest.Fail(driver.ErrNotFound))
	a, _ := newActions(fake, "Card", "#card", zap.NewNop())

	binLoc := locator.Style("#bin")
	bin := element.New(fake, binLoc, element.Metadata{Name: "Bin", Locator: binLoc}, zap.NewNop())

	_, err := a.DragAndDrop(context.Background(), bin)
	assert.ErrorIs(t, err, driver.ErrNotFound)
	assert.Empty(t, fake.Gestures, "no gesture may start before both handles resolve")
}

func TestClearAndBlur(t *testing.T) {
	fake := drivertest.New()
	el := drivertest.NewElement("a")
	fake.Stub("#field", drivertest.Found(el))
	a, _ := newActions(fake, "Field", "#field", zap.NewNop())

	_, err := a.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, el.Cleared)

	_, err = a.Blur(context.Background())
	require.NoError(t, err)
	require.Len(t, fake.Calls, 1)
	assert.Contains(t, fake.Calls[0].FnDecl, "this.blur()")
	assert.Empty(t, fake.Calls[0].Args)
}

func TestScrollIntoViewWithoutOptionsUsesZeroArgInvocation(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#sec", drivertest.Found(drivertest.NewElement("s")))
	a, _ := newActions(fake, "Section", "#sec", zap.NewNop())

	_, err := a.ScrollIntoView(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, fake.Calls, 1)
	assert.Empty(t, fake.Calls[0].Args)
}

func TestScrollIntoViewSerializesOptions(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#sec", drivertest.Found(drivertest.NewElement("s")))
	a, _ := newActions(fake, "Section", "#sec", zap.NewNop())

	_, err := a.ScrollIntoView(context.Background(), &ScrollIntoViewOptions{Behavior: "smooth", Block: "center"})
	require.NoError(t, err)
	require.Len(t, fake.Calls, 1)
	require.Len(t, fake.Calls[0].Args, 1)
	assert.JSONEq(t, `{"behavior":"smooth","block":"center"}`, fake.Calls[0].Args[0])
}

func TestScrollIntoViewRejectsInvalidOptions(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#sec", drivertest.Found(drivertest.NewElement("s")))
	a, _ := newActions(fake, "Section", "#sec", zap.NewNop())

	_, err := a.ScrollIntoView(context.Background(), &ScrollIntoViewOptions{Behavior: "bouncy"})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.Empty(t, fake.Calls, "invalid options must fail before any invocation")
}

func TestFocusSerializesOptions(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#in", drivertest.Found(drivertest.NewElement("i")))
	a, _ := newActions(fake, "Input", "#in", zap.NewNop())

	_, err := a.Focus(context.Background(), &FocusOptions{PreventScroll: true})
	require.NoError(t, err)
	require.Len(t, fake.Calls, 1)
	assert.JSONEq(t, `{"preventScroll":true}`, fake.Calls[0].Args[0])
}

func TestFocusWithoutOptions(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#in", drivertest.Found(drivertest.NewElement("i")))
	a, _ := newActions(fake, "Input", "#in", zap.NewNop())

	_, err := a.Focus(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, fake.Calls, 1)
	assert.Empty(t, fake.Calls[0].Args)
}

func TestActionErrorsAreNotWrapped(t *testing.T) {
	boom := errors.New("interceptor rejected input")
	fake := drivertest.New()
	el := drivertest.NewElement("a")
	el.FailWith = boom
	fake.Stub("#btn", drivertest.Found(el))
	a, _ := newActions(fake, "Submit", "#btn", zap.NewNop())

	_, err := a.Click(context.Background())
	assert.Equal(t, boom, err)
}
