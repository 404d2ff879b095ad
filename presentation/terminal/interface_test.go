package terminal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"selene/application/scenario"
	"selene/domain/entities"
	"selene/infrastructure/browser/browsertest"
	"selene/infrastructure/selene"
	"selene/infrastructure/wait"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTerminal(t *testing.T, page *browsertest.Page, input string) (*TerminalInterface, *bytes.Buffer) {
	t.Helper()
	t.Cleanup(page.Stop)
	logger, _ := test.NewNullLogger()
	waiter := wait.New(logger, wait.WithTimeout(time.Second), wait.WithPollInterval(20*time.Millisecond))
	b := selene.New(browsertest.NewDriver(page), waiter, entities.Config{}, logger)
	out := &bytes.Buffer{}
	runner := scenario.NewRunner(b, nil, logger, out)
	return New(runner, logger, strings.NewReader(input), out), out
}

func TestRunSession(t *testing.T) {
	page := browsertest.NewPage().
		OpenedWithBody(`<p><a href="#second" style="display:none">go</a></p><input id="q">`).
		SetStyleAfter(100*time.Millisecond, "a", "display:block")
	term, out := newTerminal(t, page, strings.Join([]string{
		`click p >> a`,
		`url`,
		`set #q hello world`,
		`should #q value=hello world`,
		`timeout 50ms`,
		`click #missing`,
		`history`,
		`quit`,
		`click p >> a`,
	}, "\n")+"\n")

	require.NoError(t, term.Run())
	text := out.String()
	assert.Contains(t, text, "clicked browser.element('p').element('a')")
	assert.Contains(t, text, browsertest.BaseURL+"#second")
	assert.Contains(t, text, "Timeout set to 50ms")
	assert.Contains(t, text, "Error: timed out after 50ms while waiting for browser.element('#missing').click")
	assert.Contains(t, text, "FAILED: timed out")
	assert.Contains(t, text, "Bye!")
	assert.Len(t, page.Clicked(), 1)
}

func TestRunStopsAtEOF(t *testing.T) {
	term, out := newTerminal(t, browsertest.NewPage(), "help\n")
	require.NoError(t, term.Run())
	assert.Contains(t, out.String(), "Commands:")
	assert.NoError(t, term.Close())
}

func TestRunScenarioFile(t *testing.T) {
	page := browsertest.NewPage().OpenedWithBody(`<button id="b">ok</button>`)
	path := filepath.Join(t.TempDir(), "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "press",
		"actions": [
			{"type": "click", "selector": "#b"},
			{"type": "should", "selector": "#b", "condition": "exact_text=ok"}
		]
	}`), 0644))
	term, out := newTerminal(t, page, "")

	require.NoError(t, term.handle(context.Background(), "run "+path))
	assert.Contains(t, out.String(), "Scenario press completed")
	assert.Error(t, term.handle(context.Background(), "run "+filepath.Join(t.TempDir(), "none.json")))
	assert.Error(t, term.handle(context.Background(), "run"))
}

func TestRunScenarioFileWithActionTimeout(t *testing.T) {
	page := browsertest.NewPage().OpenedWithBody(`<p><a href="#second" style="display:none">go</a></p>`)
	path := filepath.Join(t.TempDir(), "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "hidden",
		"actions": [
			{"type": "wait", "timeout": 10},
			{"type": "click", "selector": "p >> a", "timeout": "100ms"}
		]
	}`), 0644))
	term, _ := newTerminal(t, page, "")

	start := time.Now()
	err := term.handle(context.Background(), "run "+path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2 (click) failed")
	assert.Contains(t, err.Error(), "timed out after 100ms")
	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.Empty(t, page.Clicked())
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		command string
		args    string
		want    entities.Action
	}{
		{"open", "/login", entities.Action{Type: entities.ActionOpen, URL: "/login"}},
		{"click", "p >> a", entities.Action{Type: entities.ActionClick, Selector: "p >> a"}},
		{"dclick", "#b", entities.Action{Type: entities.ActionDoubleClick, Selector: "#b"}},
		{"clear", "#q", entities.Action{Type: entities.ActionClear, Selector: "#q"}},
		{"enter", "#q", entities.Action{Type: entities.ActionPressEnter, Selector: "#q"}},
		{"type", "#q some text", entities.Action{Type: entities.ActionTypeText, Selector: "#q", Text: "some text"}},
		{"set", `"form >> #q" value`, entities.Action{Type: entities.ActionSetValue, Selector: "form >> #q", Text: "value"}},
		{"should", "h1 not visible", entities.Action{Type: entities.ActionShould, Selector: "h1", Condition: "not visible"}},
	}
	for _, tt := range tests {
		got, err := parseAction(tt.command, tt.args)
		require.NoError(t, err, tt.command)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range [][2]string{{"open", ""}, {"click", ""}, {"type", "#q"}, {"set", `"p >> a`}, {"hover", "a"}} {
		_, err := parseAction(bad[0], bad[1])
		assert.Error(t, err, bad[0]+" "+bad[1])
	}
}
