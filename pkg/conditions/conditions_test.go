package conditions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagewright/pkg/driver"
	"github.com/xkilldash9x/pagewright/pkg/driver/drivertest"
	"github.com/xkilldash9x/pagewright/pkg/element"
	"github.com/xkilldash9x/pagewright/pkg/locator"
)

const (
	testTimeout  = 250 * time.Millisecond
	testInterval = 5 * time.Millisecond
)

func newConditions(fake *drivertest.Fake, name, expr string) *Conditions {
	loc := locator.Style(expr)
	h := element.New(fake, loc, element.Metadata{Name: name, Locator: loc}, zap.NewNop())
	return New(h, zap.NewNop(), testTimeout, testInterval)
}

func TestIsDisplayedImmediate(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#ok", drivertest.Found(drivertest.NewElement("a")))
	c := newConditions(fake, "Banner", "#ok")

	require.NoError(t, c.IsDisplayed(context.Background()))
}

// "Element not found" is recoverable for IsDisplayed: polling continues
// until the element appears.
func TestIsDisplayedPollsThroughNotFound(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#late",
		drivertest.Fail(driver.ErrNotFound),
		drivertest.Fail(driver.ErrNotFound),
		drivertest.Found(drivertest.NewElement("a")),
	)
	c := newConditions(fake, "Banner", "#late")

	require.NoError(t, c.IsDisplayed(context.Background()))
	assert.Equal(t, 3, fake.LocateCalls("#late"))
}

// When a container re-renders, the nested element's cached reference and the
// container's both go stale. The wait must recover by re-resolving the whole
// chain instead of timing out against the detached container.
func TestIsDisplayedRecoversAfterParentRerender(t *testing.T) {
	fake := drivertest.New()
	oldPanel := drivertest.NewElement("oldPanel")
	newPanel := drivertest.NewElement("newPanel")
	oldRow := drivertest.NewElement("oldRow")
	newRow := drivertest.NewElement("newRow")
	fake.Stub("#panel", drivertest.Found(oldPanel), drivertest.Found(newPanel))
	fake.Stub(".row", drivertest.Found(oldRow), drivertest.Found(newRow))

	panelLoc := locator.Style("#panel")
	panel := element.New(fake, panelLoc, element.Metadata{Name: "Panel", Locator: panelLoc}, zap.NewNop())
	rowLoc := locator.Style(".row")
	row := element.New(fake, rowLoc, element.Metadata{Name: "Panel.Row", Locator: rowLoc}, zap.NewNop()).WithParent(panel)

	_, err := row.Locate(context.Background())
	require.NoError(t, err)

	// Re-render: the old references stay cached but are no longer attached.
	oldRow.Set(func(e *drivertest.Element) { e.FailWith = driver.ErrStale })
	oldPanel.Set(func(e *drivertest.Element) { e.Detached = true })

	c := New(row, zap.NewNop(), testTimeout, testInterval)
	require.NoError(t, c.IsDisplayed(context.Background()))
}

// A stale hit invalidates the cached reference and keeps polling against a
// fresh resolution.
func TestIsDisplayedRecoversFromStaleness(t *testing.T) {
	fake := drivertest.New()
	a := drivertest.NewElement("a")
	a.FailWith = driver.ErrStale
	b := drivertest.NewElement("b")
	fake.Stub("#re", drivertest.Found(a), drivertest.Found(b))
	c := newConditions(fake, "Banner", "#re")

	require.NoError(t, c.IsDisplayed(context.Background()))
	assert.Equal(t, 2, fake.LocateCalls("#re"))
}

func TestIsDisplayedFatalOnUnknownError(t *testing.T) {
	boom := errors.New("session crashed")
	fake := drivertest.New()
	fake.Stub("#x", drivertest.Fail(boom))
	c := newConditions(fake, "Banner", "#x")

	err := c.IsDisplayed(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, fake.LocateCalls("#x"), "fatal errors abort the wait immediately")
}

func TestIsDisplayedTimeoutYieldsExpectError(t *testing.T) {
	hidden := drivertest.NewElement("a")
	hidden.Displayed = false
	fake := drivertest.New()
	fake.Stub("#hidden", drivertest.Found(hidden))
	c := newConditions(fake, "Banner", "#hidden")

	err := c.IsDisplayed(context.Background())
	var ee *ExpectError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "Banner", ee.Component)
	assert.Equal(t, "#hidden", ee.Locator.Expression)
	assert.Equal(t, "is displayed", ee.Condition)
	assert.Equal(t, testTimeout, ee.Timeout)
}

// Absence proves the negative: the first NotFound satisfies IsNotDisplayed
// without any further polling.
func TestIsNotDisplayedSatisfiedByNotFound(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#gone", drivertest.Fail(driver.ErrNotFound))
	c := newConditions(fake, "Spinner", "#gone")

	require.NoError(t, c.IsNotDisplayed(context.Background()))
	assert.Equal(t, 1, fake.LocateCalls("#gone"))
}

func TestIsNotDisplayedSatisfiedByStaleness(t *testing.T) {
	a := drivertest.NewElement("a")
	a.FailWith = driver.ErrStale
	fake := drivertest.New()
	fake.Stub("#stale", drivertest.Found(a))
	c := newConditions(fake, "Spinner", "#stale")

	require.NoError(t, c.IsNotDisplayed(context.Background()))
}

func TestIsNotDisplayedWaitsForHide(t *testing.T) {
	a := drivertest.NewElement("a")
	fake := drivertest.New()
	fake.Stub("#spin", drivertest.Found(a))
	c := newConditions(fake, "Spinner", "#spin")

	go func() {
		time.Sleep(30 * time.Millisecond)
		a.Set(func(e *drivertest.Element) { e.Displayed = false })
	}()
	require.NoError(t, c.IsNotDisplayed(context.Background()))
}

func TestExistsSatisfiedByHiddenElement(t *testing.T) {
	hidden := drivertest.NewElement("a")
	hidden.Displayed = false
	fake := drivertest.New()
	fake.Stub("#h", drivertest.Found(hidden))
	c := newConditions(fake, "Field", "#h")

	require.NoError(t, c.Exists(context.Background()))
}

func TestDoesNotExistSatisfiedImmediately(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#none", drivertest.Fail(driver.ErrNotFound))
	c := newConditions(fake, "Field", "#none")

	require.NoError(t, c.DoesNotExist(context.Background()))
	assert.Equal(t, 1, fake.LocateCalls("#none"))
}

func TestDoesNotExistPollsUntilRemoval(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#tmp",
		drivertest.Found(drivertest.NewElement("a")),
		drivertest.Found(drivertest.NewElement("a")),
		drivertest.Fail(driver.ErrNotFound),
	)
	c := newConditions(fake, "Toast", "#tmp")

	require.NoError(t, c.DoesNotExist(context.Background()))
	assert.Equal(t, 3, fake.LocateCalls("#tmp"))
}

// IsEnabled has no recoverable set: a NotFound that the display conditions
// would poll through aborts it at once.
func TestIsEnabledNotFoundIsFatal(t *testing.T) {
	fake := drivertest.New()
	fake.Stub("#btn", drivertest.Fail(driver.ErrNotFound))
	c := newConditions(fake, "Submit", "#btn")

	err := c.IsEnabled(context.Background())
	require.ErrorIs(t, err, driver.ErrNotFound)
	assert.Equal(t, 1, fake.LocateCalls("#btn"))
}

func TestIsEnabledStaleIsFatal(t *testing.T) {
	a := drivertest.NewElement("a")
	a.FailWith = driver.ErrStale
	fake := drivertest.New()
	fake.Stub("#btn", drivertest.Found(a))
	c := newConditions(fake, "Submit", "#btn")

	err := c.IsEnabled(context.Background())
	require.ErrorIs(t, err, driver.ErrStale)
}

func TestIsEnabledWaitsForEnablement(t *testing.T) {
	a := drivertest.NewElement("a")
	a.Enabled = false
	fake := drivertest.New()
	fake.Stub("#btn", drivertest.Found(a))
	c := newConditions(fake, "Submit", "#btn")

	go func() {
		time.Sleep(30 * time.Millisecond)
		a.Set(func(e *drivertest.Element) { e.Enabled = true })
	}()
	require.NoError(t, c.IsEnabled(context.Background()))
}

func TestPerCallTimeoutOverride(t *testing.T) {
	hidden := drivertest.NewElement("a")
	hidden.Displayed = false
	fake := drivertest.New()
	fake.Stub("#x", drivertest.Found(hidden))
	c := newConditions(fake, "Banner", "#x")

	start := time.Now()
	err := c.IsDisplayed(context.Background(), WithTimeout(20*time.Millisecond))
	elapsed := time.Since(start)

	var ee *ExpectError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 20*time.Millisecond, ee.Timeout)
	assert.Less(t, elapsed, testTimeout)
}
