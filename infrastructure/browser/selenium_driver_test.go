package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"selene/domain/entities"
	"selene/infrastructure/browser/browsertest"
	"selene/infrastructure/conditions"
	"selene/infrastructure/selene"
	"selene/infrastructure/wait"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

var testConfig = entities.Config{
	Timeout:      4 * time.Second,
	PollInterval: 50 * time.Millisecond,
	BrowserName:  "chrome",
}

func newLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// connect opens a real tebeka session against a stub server serving page
func connect(t *testing.T, page *browsertest.Page) (*SeleniumDriver, *browsertest.Server) {
	t.Helper()
	server := browsertest.NewServer(page)
	t.Cleanup(server.Close)
	t.Cleanup(page.Stop)

	wd, err := selenium.NewRemote(selenium.Capabilities{"browserName": "fake"}, server.URL)
	require.NoError(t, err)
	return WrapSelenium(wd, testConfig, newLogger()), server
}

func TestSeleniumClickWaitsForParentThenInner(t *testing.T) {
	page := browsertest.NewPage().
		OpenedEmpty().
		LoadBodyAfter(250*time.Millisecond, `<p><h2 id="second">Heading 2</h2></p>`).
		LoadBodyAfter(500*time.Millisecond, `<p><a href="#second" style="display:none">go</a><h2 id="second">Heading 2</h2></p>`).
		SetStyleAfter(750*time.Millisecond, "a", "display:block")
	driver, _ := connect(t, page)
	logger := newLogger()
	b := selene.New(driver, wait.New(logger, wait.WithPollInterval(50*time.Millisecond)), testConfig, logger)

	require.NoError(t, b.Element("p").Element("a").Click(context.Background()))
	url, err := b.CurrentURL(context.Background())
	require.NoError(t, err)
	assert.Contains(t, url, "second")
}

func TestSeleniumClickTimesOut(t *testing.T) {
	page := browsertest.NewPage().
		OpenedWithBody(`<p><a href="#second" style="display:none">go</a><h2 id="second">Heading 2</h2></p>`).
		SetStyleAfter(500*time.Millisecond, "a", "display:block")
	driver, _ := connect(t, page)
	logger := newLogger()
	b := selene.New(driver, wait.New(logger,
		wait.WithTimeout(250*time.Millisecond),
		wait.WithPollInterval(50*time.Millisecond)), testConfig, logger)

	err := b.Element("p").Element("a").Click(context.Background())
	var timeoutErr *entities.TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.NotContains(t, page.URL(), "second")
	assert.Empty(t, page.Clicked())
}

func TestSeleniumDriverTranslatesErrors(t *testing.T) {
	page := browsertest.NewPage().OpenedWithBody(`<a id="hidden" style="display:none">x</a><input id="q">`)
	driver, _ := connect(t, page)
	ctx := context.Background()

	found, err := driver.FindElements(ctx, entities.CSS("nav"))
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = driver.FindElements(ctx, entities.CSS("["))
	require.Error(t, err)
	assert.False(t, entities.IsRetriable(err))

	hidden, err := driver.FindElements(ctx, entities.CSS("#hidden"))
	require.NoError(t, err)
	require.Len(t, hidden, 1)
	assert.True(t, errors.Is(hidden[0].Click(ctx), entities.ErrNotInteractable))

	q, err := driver.FindElements(ctx, entities.CSS("#q"))
	require.NoError(t, err)
	require.Len(t, q, 1)
	value, err := q[0].Attribute(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "", value)

	page.SetBody("")
	_, err = q[0].IsDisplayed(ctx)
	assert.True(t, errors.Is(err, entities.ErrStaleElement))
}

func TestSeleniumDriverElementCommands(t *testing.T) {
	page := browsertest.NewPage().OpenedWithBody(`
		<form id="f">
			<input id="q" class="big" style="color: red">
			<input id="agree" type="checkbox">
			<button disabled>Send</button>
		</form>`)
	driver, _ := connect(t, page)
	ctx := context.Background()

	forms, err := driver.FindElements(ctx, entities.CSS("#f"))
	require.NoError(t, err)
	require.Len(t, forms, 1)
	inputs, err := forms[0].FindElements(ctx, entities.CSS("input"))
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	q, agree := inputs[0], inputs[1]

	require.NoError(t, q.SendKeys(ctx, "hello"+entities.EnterKey))
	assert.NoError(t, conditions.Value("hello").Match(ctx, q))
	require.NoError(t, q.Clear(ctx))
	assert.NoError(t, conditions.Value("").Match(ctx, q))
	assert.NoError(t, conditions.CSSClass("big").Match(ctx, q))

	color, err := q.CSSValue(ctx, "color")
	require.NoError(t, err)
	assert.Equal(t, "red", color)

	tag, err := q.TagName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "input", tag)

	require.NoError(t, agree.Click(ctx))
	assert.NoError(t, conditions.Selected.Match(ctx, agree))

	buttons, err := forms[0].FindElements(ctx, entities.CSS("button"))
	require.NoError(t, err)
	require.Len(t, buttons, 1)
	assert.NoError(t, conditions.And(conditions.Visible, conditions.Disabled, conditions.ExactText("Send")).Match(ctx, buttons[0]))
}

func TestSeleniumDriverPageCommands(t *testing.T) {
	page := browsertest.NewPage().
		HandleScripts(func(p *browsertest.Page, script string, args []interface{}) (interface{}, error) {
			if len(args) == 1 {
				if ref, ok := args[0].(browsertest.ElementRef); ok {
					return "element " + ref.ID, nil
				}
			}
			return script, nil
		})
	driver, server := connect(t, page)
	ctx := context.Background()

	require.NoError(t, driver.Open(ctx, browsertest.BaseURL))
	url, err := driver.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, browsertest.BaseURL, url)

	title, err := driver.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Selene Test Page", title)

	source, err := driver.PageSource(ctx)
	require.NoError(t, err)
	assert.Contains(t, source, "<body>")

	png, err := driver.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	result, err := driver.ExecuteScript(ctx, "return 1")
	require.NoError(t, err)
	assert.Equal(t, "return 1", result)

	body, err := driver.FindElements(ctx, entities.CSS("body"))
	require.NoError(t, err)
	require.Len(t, body, 1)
	result, err = driver.ExecuteScript(ctx, "return arguments[0]", body[0])
	require.NoError(t, err)
	assert.Contains(t, result, "element node-")

	require.NoError(t, driver.Quit())
	assert.False(t, server.SessionOpen())
	assert.Contains(t, server.Requests(), fmt.Sprintf("DELETE /session/%s", browsertest.SessionID))
}

func TestTranslateSeleniumError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "w3c no such element", err: &selenium.Error{Err: "no such element"}, want: entities.ErrNoSuchElement},
		{name: "legacy stale", err: &selenium.Error{LegacyCode: 10}, want: entities.ErrStaleElement},
		{name: "intercepted", err: &selenium.Error{Err: "element click intercepted"}, want: entities.ErrClickIntercepted},
		{name: "legacy not visible", err: &selenium.Error{LegacyCode: 11}, want: entities.ErrNotInteractable},
		{name: "invalid state", err: &selenium.Error{Err: "invalid element state"}, want: entities.ErrNotInteractable},
		{name: "message only", err: errors.New("unknown error: Element is not clickable at point (10, 20)"), want: entities.ErrClickIntercepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateSeleniumError(tt.err)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
			assert.True(t, entities.IsRetriable(got))
		})
	}

	assert.NoError(t, translateSeleniumError(nil))
	fatal := &selenium.Error{Err: "javascript error", Message: "boom"}
	assert.Equal(t, error(fatal), translateSeleniumError(fatal))
	assert.False(t, entities.IsRetriable(translateSeleniumError(fatal)))
}

func TestSeleniumLoadTimeoutFollowsDeadline(t *testing.T) {
	driver := &SeleniumDriver{cfg: testConfig}
	assert.Equal(t, testConfig.Timeout, driver.loadTimeout(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	got := driver.loadTimeout(ctx)
	assert.LessOrEqual(t, got, 300*time.Millisecond)
	assert.Positive(t, got)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	assert.Equal(t, time.Millisecond, driver.loadTimeout(expired))
}

func TestCapabilities(t *testing.T) {
	cfg := testConfig
	cfg.Headless = true
	caps := capabilities(cfg)
	chromeCaps, ok := caps[chrome.CapabilitiesKey].(chrome.Capabilities)
	require.True(t, ok)
	assert.Contains(t, chromeCaps.Args, "--headless=new")

	cfg.BrowserName = "firefox"
	caps = capabilities(cfg)
	assert.Equal(t, "firefox", caps["browserName"])
	assert.NotContains(t, caps, chrome.CapabilitiesKey)
}

func TestFindChromeDriverConfiguredPath(t *testing.T) {
	_, err := findChromeDriver("/nonexistent/chromedriver")
	assert.Error(t, err)

	path := t.TempDir() + "/chromedriver"
	require.NoError(t, os.WriteFile(path, nil, 0755))
	found, err := findChromeDriver(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

// TestRealBrowser runs against a live WebDriver server when SELENE_REMOTE_URL is set
func TestRealBrowser(t *testing.T) {
	remote := os.Getenv("SELENE_REMOTE_URL")
	if remote == "" {
		t.Skip("SELENE_REMOTE_URL not set")
	}
	cfg := testConfig
	cfg.RemoteURL = remote
	cfg.Headless = true
	logger := newLogger()

	driver, err := NewSeleniumDriver(cfg, logger)
	require.NoError(t, err)
	defer driver.Quit()

	b := selene.New(driver, wait.New(logger), cfg, logger)
	ctx := context.Background()
	require.NoError(t, b.Open(ctx, `data:text/html,<p><a href="#second" style="display:none">go</a><h2 id="second">2</h2></p>`))
	_, err = b.ExecuteScript(ctx, `setTimeout(function() { document.getElementsByTagName("a")[0].style = "display:block"; }, 250);`)
	require.NoError(t, err)

	require.NoError(t, b.Element("p").Element("a").Click(ctx))
	require.NoError(t, b.Should(ctx, conditions.URLContaining("second")))
}
