package browsertest

import (
	"errors"
	"testing"
	"time"

	"selene/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findOne(t *testing.T, p *Page, parent, css string) string {
	t.Helper()
	ids, err := p.Find(parent, entities.CSS(css))
	require.NoError(t, err)
	require.Len(t, ids, 1, css)
	return ids[0]
}

func TestFindIsScopedToParent(t *testing.T) {
	p := NewPage().OpenedWithBody(`<div id="a"><span>1</span></div><div id="b"><span>2</span><span>3</span></div>`)
	b := findOne(t, p, "", "#b")

	ids, err := p.Find(b, entities.CSS("span"))
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	ids, err = p.Find(b, entities.CSS("div"))
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = p.Find("", entities.CSS("["))
	assert.True(t, errors.Is(err, ErrInvalidSelector))

	_, err = p.Find("", entities.XPath("//span"))
	assert.True(t, errors.Is(err, ErrInvalidSelector))
}

func TestFindByLinkText(t *testing.T) {
	p := NewPage().OpenedWithBody(`<a href="#one">first link</a><a href="#two">second</a>`)

	ids, err := p.Find("", entities.Locator{By: entities.ByLinkText, Value: "second"})
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	ids, err = p.Find("", entities.Locator{By: entities.ByPartialLinkText, Value: "link"})
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestHandlesAreStableAndGoStale(t *testing.T) {
	p := NewPage().OpenedWithBody(`<p>text</p>`)
	first := findOne(t, p, "", "p")
	assert.Equal(t, first, findOne(t, p, "", "p"))

	p.SetBody(`<p>text</p>`)
	_, err := p.Displayed(first)
	assert.True(t, errors.Is(err, entities.ErrStaleElement))
	assert.NotEqual(t, first, findOne(t, p, "", "p"))

	_, err = p.Text("node-999")
	assert.True(t, errors.Is(err, entities.ErrStaleElement))
}

func TestVisibility(t *testing.T) {
	p := NewPage().OpenedWithBody(`
		<div style="display: none"><a id="inner">x</a></div>
		<span id="invisible" style="visibility:hidden">y</span>
		<span id="attr" hidden>z</span>
		<span id="shown">Shown <b>bold</b><i style="display:none">gone</i></span>`)

	for _, css := range []string{"#inner", "#invisible", "#attr", "title"} {
		displayed, err := p.Displayed(findOne(t, p, "", css))
		require.NoError(t, err)
		assert.False(t, displayed, css)
	}

	shown := findOne(t, p, "", "#shown")
	displayed, err := p.Displayed(shown)
	require.NoError(t, err)
	assert.True(t, displayed)
	text, err := p.Text(shown)
	require.NoError(t, err)
	assert.Equal(t, "Shown bold", text)

	text, err = p.Text(findOne(t, p, "", "#inner"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestClick(t *testing.T) {
	p := NewPage().OpenedWithBody(`
		<a id="hidden" href="#second" style="display:none">x</a>
		<a id="frag" href="#second">y</a>
		<input id="box" type="checkbox">
		<a id="away" href="/other.html">z</a>`)

	err := p.Click(findOne(t, p, "", "#hidden"))
	assert.True(t, errors.Is(err, entities.ErrNotInteractable))
	assert.Empty(t, p.Clicked())

	box := findOne(t, p, "", "#box")
	require.NoError(t, p.Click(box))
	selected, err := p.Selected(box)
	require.NoError(t, err)
	assert.True(t, selected)

	require.NoError(t, p.Click(findOne(t, p, "", "#frag")))
	assert.Equal(t, BaseURL+"#second", p.URL())

	away := findOne(t, p, "", "#away")
	require.NoError(t, p.Click(away))
	assert.Equal(t, "http://selene.test/other.html", p.URL())
	_, err = p.Displayed(away)
	assert.True(t, errors.Is(err, entities.ErrStaleElement))
	assert.Equal(t, []string{`<input id="box">`, `<a id="frag" href="#second">`, `<a id="away" href="/other.html">`}, p.Clicked())
}

func TestInputs(t *testing.T) {
	p := NewPage().OpenedWithBody(`<input id="q" value="a" disabled>`)
	q := findOne(t, p, "", "#q")

	require.NoError(t, p.SendKeys(q, "bc"+entities.EnterKey))
	v, ok, err := p.Attribute(q, "value")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	enabled, err := p.Enabled(q)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, p.Clear(q))
	require.NoError(t, p.SetValue(ElementRef{ID: q}, "set"))
	v, _, err = p.Attribute(q, "value")
	require.NoError(t, err)
	assert.Equal(t, "set", v)

	_, ok, err = p.Attribute(q, "placeholder")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScheduledMutations(t *testing.T) {
	p := NewPage().
		OpenedEmpty().
		LoadBodyAfter(20*time.Millisecond, `<p style="display:none">x</p>`).
		SetStyleAfter(40*time.Millisecond, "p", "display:block")
	defer p.Stop()

	assert.Eventually(t, func() bool {
		ids, err := p.Find("", entities.CSS("p"))
		if err != nil || len(ids) == 0 {
			return false
		}
		displayed, err := p.Displayed(ids[0])
		return err == nil && displayed
	}, time.Second, 5*time.Millisecond)
}

func TestStopCancelsMutations(t *testing.T) {
	p := NewPage().OpenedEmpty().LoadBodyAfter(30*time.Millisecond, `<p>x</p>`)
	p.Stop()

	time.Sleep(60 * time.Millisecond)
	ids, err := p.Find("", entities.CSS("p"))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestScripts(t *testing.T) {
	p := NewPage()
	_, err := p.ExecuteScript("return 1", nil)
	assert.True(t, errors.Is(err, ErrUnsupportedScript))

	p.HandleScripts(func(p *Page, script string, args []interface{}) (interface{}, error) {
		return len(args), nil
	})
	result, err := p.ExecuteScript("return arguments.length", []interface{}{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result)
	assert.Equal(t, "", p.Title())
}
