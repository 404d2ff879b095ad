package conditions

import (
	"context"
	"errors"
	"testing"

	"selene/domain/entities"
	"selene/domain/interfaces"
	"selene/infrastructure/browser/browsertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const body = `
<form>
	<input id="name" class="field required" value="ann">
	<input id="agree" type="checkbox" checked>
	<button id="send" disabled>Send  now</button>
	<span id="tip" style="display:none">tip</span>
</form>
<ul><li>one</li><li>two</li></ul>`

func find(t *testing.T, driver *browsertest.Driver, css string) interfaces.WebElement {
	t.Helper()
	found, err := driver.FindElements(context.Background(), entities.CSS(css))
	require.NoError(t, err)
	require.NotEmpty(t, found, css)
	return found[0]
}

func assertMismatch(t *testing.T, err error, condition, actual string) {
	t.Helper()
	var mismatch *entities.ConditionMismatch
	require.True(t, errors.As(err, &mismatch), "expected mismatch, got %v", err)
	assert.Equal(t, condition, mismatch.Condition)
	assert.Equal(t, actual, mismatch.Actual)
	assert.True(t, entities.IsRetriable(err))
}

func TestElementConditions(t *testing.T) {
	driver := browsertest.NewDriver(browsertest.NewPage().OpenedWithBody(body))
	ctx := context.Background()
	name := find(t, driver, "#name")
	agree := find(t, driver, "#agree")
	send := find(t, driver, "#send")
	tip := find(t, driver, "#tip")

	assert.NoError(t, Present.Match(ctx, tip))
	assert.NoError(t, Visible.Match(ctx, name))
	assertMismatch(t, Visible.Match(ctx, tip), "visible", "displayed=false")
	assert.NoError(t, Hidden.Match(ctx, tip))
	assertMismatch(t, Hidden.Match(ctx, name), "hidden", "displayed=true")

	assert.NoError(t, Enabled.Match(ctx, name))
	assert.NoError(t, Disabled.Match(ctx, send))
	assertMismatch(t, Clickable.Match(ctx, send), "enabled", "enabled=false")
	assert.NoError(t, Selected.Match(ctx, agree))

	assert.NoError(t, Text("now").Match(ctx, send))
	assert.NoError(t, ExactText("Send now").Match(ctx, send))
	assertMismatch(t, ExactText("Send").Match(ctx, send), "has exact text 'Send'", "'Send now'")

	assert.NoError(t, Value("ann").Match(ctx, name))
	assert.NoError(t, Attribute("id", "name").Match(ctx, name))
	assert.NoError(t, CSSClass("required").Match(ctx, name))
	assertMismatch(t, CSSClass("field req").Match(ctx, name), "has css class 'field req'", "'field required'")
}

func TestNotAndAnd(t *testing.T) {
	driver := browsertest.NewDriver(browsertest.NewPage().OpenedWithBody(body))
	ctx := context.Background()
	name := find(t, driver, "#name")

	notVisible := Not(Visible)
	assert.Equal(t, "not visible", notVisible.String())
	assert.True(t, notVisible.MatchMissing())
	assertMismatch(t, notVisible.Match(ctx, name), "not visible", "")
	assert.NoError(t, Not(Hidden).Match(ctx, name))
	assert.False(t, Not(Hidden).MatchMissing())

	assert.Equal(t, "visible and enabled", Clickable.String())
	assert.False(t, Clickable.MatchMissing())
	assert.True(t, And(Hidden, Absent).MatchMissing())
	assert.NoError(t, And().Match(ctx, name))
	assert.False(t, And().MatchMissing())
}

func TestNotKeepsDriverErrors(t *testing.T) {
	page := browsertest.NewPage().OpenedWithBody(body)
	driver := browsertest.NewDriver(page)
	name := find(t, driver, "#name")
	page.SetBody("")

	err := Not(Visible).Match(context.Background(), name)
	assert.True(t, errors.Is(err, entities.ErrStaleElement))
}

func TestCollectionConditions(t *testing.T) {
	driver := browsertest.NewDriver(browsertest.NewPage().OpenedWithBody(body))
	ctx := context.Background()
	items, err := driver.FindElements(ctx, entities.CSS("li"))
	require.NoError(t, err)

	assert.NoError(t, Size(2).Match(ctx, items))
	assertMismatch(t, Size(3).Match(ctx, items), "size 3", "2")
	assert.NoError(t, SizeAtLeast(1).Match(ctx, items))
	assertMismatch(t, Empty.Match(ctx, items), "size 0", "2")
	assert.NoError(t, Empty.Match(ctx, nil))

	assert.NoError(t, Texts("on", "tw").Match(ctx, items))
	assert.NoError(t, ExactTexts("one", "two").Match(ctx, items))
	assertMismatch(t, ExactTexts("one").Match(ctx, items), "has exact texts ['one']", "['one', 'two']")
}

func TestBrowserConditions(t *testing.T) {
	driver := browsertest.NewDriver(browsertest.NewPage().OpenedWithBody(body))
	ctx := context.Background()

	assert.NoError(t, URL(browsertest.BaseURL).Match(ctx, driver))
	assert.NoError(t, URLContaining("selene.test").Match(ctx, driver))
	assertMismatch(t, URLContaining("#second").Match(ctx, driver), "has url containing '#second'", "'"+browsertest.BaseURL+"'")
	assert.NoError(t, Title("Selene Test Page").Match(ctx, driver))
	assert.NoError(t, TitleContaining("Test").Match(ctx, driver))
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		missing bool
	}{
		{input: "visible", want: "visible"},
		{input: " hidden ", want: "hidden", missing: true},
		{input: "not visible", want: "not visible", missing: true},
		{input: "not not present", want: "not not present"},
		{input: "text=Hello world", want: "has text 'Hello world'"},
		{input: "exact_text=a=b", want: "has exact text 'a=b'"},
		{input: "value=42", want: "has value '42'"},
		{input: "class=active", want: "has css class 'active'"},
		{input: "attr:href=#second", want: "has attribute 'href' = '#second'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.String())
			assert.Equal(t, tt.missing, c.MatchMissing())
		})
	}
}

func TestParseUnknown(t *testing.T) {
	for _, input := range []string{"", "shiny", "colour=red", "not "} {
		_, err := Parse(input)
		assert.Error(t, err, input)
	}
}
