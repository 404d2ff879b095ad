package terminal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"selene/application/scenario"
	"selene/domain/entities"
	"selene/domain/interfaces"
	"selene/infrastructure/browser"
	"selene/infrastructure/config"
	"selene/infrastructure/metrics"
	"selene/infrastructure/selene"
	"selene/infrastructure/storage"
	"selene/infrastructure/wait"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

const helpText = `Commands:
  open <url>                    open a page, relative urls use SELENE_BASE_URL
  click <selector>              click, nested steps separated by " >> "
  dclick <selector>             double click
  type <selector> <text>        append text; quote selectors containing spaces
  set <selector> <text>         replace the value
  clear <selector>
  enter <selector>              press Enter
  should <selector> <condition> visible, hidden, text=..., exact_text=..., value=..., not ...
  timeout <duration>            change the wait timeout, e.g. 250ms
  run <scenario.json>           run a saved scenario
  url | title | history | help | quit`

type TerminalInterface struct {
	runner  *scenario.Runner
	logger  *logrus.Logger
	reader  *bufio.Reader
	out     io.Writer
	closers []func() error
}

// NewTerminalInterface - wires configuration, browser, storage and metrics into a REPL on stdin
func NewTerminalInterface() (*TerminalInterface, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(cfg)

	driver, err := newDriver(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	closers := []func() error{driver.Quit}

	store, err := storage.NewReportStore(cfg.ReportsDir)
	if err != nil {
		driver.Quit()
		return nil, fmt.Errorf("failed to initialize report storage: %w", err)
	}

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		closers = append(closers, serveMetrics(cfg.MetricsAddr, collector, logger))
	}

	waiter := wait.New(logger,
		wait.WithTimeout(cfg.Timeout),
		wait.WithPollInterval(cfg.PollInterval),
		wait.WithObserver(collector),
		wait.WithFailureHook(selene.ReportOnFailure(driver, store, cfg, logger)),
	)
	b := selene.New(driver, waiter, cfg, logger)
	runner := scenario.NewRunner(b, store, logger, os.Stdout)

	t := New(runner, logger, os.Stdin, os.Stdout)
	t.closers = closers
	return t, nil
}

// New - creates a REPL over an existing runner
func New(runner *scenario.Runner, logger *logrus.Logger, in io.Reader, out io.Writer) *TerminalInterface {
	return &TerminalInterface{
		runner: runner,
		logger: logger,
		reader: bufio.NewReader(in),
		out:    out,
	}
}

func newDriver(cfg entities.Config, logger *logrus.Logger) (interfaces.Driver, error) {
	switch cfg.Backend {
	case entities.BackendPlaywright:
		return browser.NewPlaywrightDriver(cfg, logger)
	default:
		return browser.NewSeleniumDriver(cfg, logger)
	}
}

func serveMetrics(addr string, collector *metrics.Collector, logger *logrus.Logger) func() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("Serving metrics on %s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics server stopped")
		}
	}()
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}

// Run - reads commands until quit or end of input
func (t *TerminalInterface) Run() error {
	fmt.Fprintln(t.out, "Selene")
	fmt.Fprintln(t.out, "======")
	fmt.Fprintln(t.out, "Type 'help' for commands, or 'quit' to exit")
	fmt.Fprintln(t.out)

	if previous, err := t.runner.LoadHistory(); err != nil {
		t.logger.WithError(err).Warn("Could not load previous history")
	} else if len(previous) > 0 {
		fmt.Fprintf(t.out, "%d actions recorded in previous sessions\n\n", len(previous))
	}

	for {
		fmt.Fprint(t.out, "> ")
		input, err := t.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" || input == "q" {
			fmt.Fprintln(t.out, "Bye!")
			return nil
		}

		if err := t.handle(context.Background(), input); err != nil {
			fmt.Fprintf(t.out, "Error: %v\n", err)
		}
	}
}

// handle - executes one command line
func (t *TerminalInterface) handle(ctx context.Context, input string) error {
	command, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	switch command {
	case "help":
		fmt.Fprintln(t.out, helpText)
		return nil

	case "url":
		url, err := t.runner.Browser().CurrentURL(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(t.out, url)
		return nil

	case "title":
		title, err := t.runner.Browser().Title(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(t.out, title)
		return nil

	case "history":
		for i, result := range t.runner.History() {
			status := "ok"
			if !result.Success {
				status = "FAILED: " + result.Error
			}
			fmt.Fprintf(t.out, "%3d. %-12s %-40s %8s %s\n", i+1, result.Action.Type, describe(result.Action), result.Elapsed.Round(time.Millisecond), status)
		}
		return nil

	case "timeout":
		timeout, err := time.ParseDuration(args)
		if err != nil || timeout <= 0 {
			return fmt.Errorf("timeout must be a positive duration, e.g. 4s or 250ms")
		}
		t.runner.SetTimeout(timeout)
		fmt.Fprintf(t.out, "Timeout set to %s\n", timeout)
		return nil

	case "run":
		return t.runScenario(ctx, args)
	}

	action, err := parseAction(command, args)
	if err != nil {
		return err
	}
	result := t.runner.Execute(ctx, action)
	if !result.Success {
		return errors.New(result.Error)
	}
	fmt.Fprintf(t.out, "%s (%s)\n", result.Message, result.Elapsed.Round(time.Millisecond))
	return nil
}

func (t *TerminalInterface) runScenario(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("usage: run <scenario.json>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var sc entities.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	sc.Status = entities.ScenarioStatusPending
	if err := t.runner.Run(ctx, &sc); err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Scenario %s %s\n", sc.Name, sc.Status)
	return nil
}

// parseAction - turns an element command into an action
func parseAction(command, args string) (entities.Action, error) {
	var action entities.Action
	switch command {
	case "open":
		if args == "" {
			return action, fmt.Errorf("usage: open <url>")
		}
		return entities.Action{Type: entities.ActionOpen, URL: args}, nil
	case "click":
		action.Type = entities.ActionClick
	case "dclick":
		action.Type = entities.ActionDoubleClick
	case "clear":
		action.Type = entities.ActionClear
	case "enter":
		action.Type = entities.ActionPressEnter
	case "type", "set", "should":
		selector, rest, err := splitSelector(args)
		if err != nil {
			return action, err
		}
		if selector == "" || rest == "" {
			return action, fmt.Errorf("usage: %s <selector> <text>", command)
		}
		action.Selector = selector
		switch command {
		case "type":
			action.Type, action.Text = entities.ActionTypeText, rest
		case "set":
			action.Type, action.Text = entities.ActionSetValue, rest
		default:
			action.Type, action.Condition = entities.ActionShould, rest
		}
		return action, nil
	default:
		return action, fmt.Errorf("unknown command: %s (try 'help')", command)
	}

	if args == "" {
		return action, fmt.Errorf("usage: %s <selector>", command)
	}
	action.Selector = args
	return action, nil
}

// splitSelector - takes a leading selector, double quoted when it contains spaces
func splitSelector(args string) (string, string, error) {
	if strings.HasPrefix(args, `"`) {
		end := strings.Index(args[1:], `"`)
		if end < 0 {
			return "", "", fmt.Errorf("unterminated quote in %q", args)
		}
		return args[1 : end+1], strings.TrimSpace(args[end+2:]), nil
	}
	selector, rest, _ := strings.Cut(args, " ")
	return selector, strings.TrimSpace(rest), nil
}

func describe(action entities.Action) string {
	switch {
	case action.URL != "":
		return action.URL
	case action.Condition != "":
		return action.Selector + " " + action.Condition
	case action.Text != "":
		return action.Selector + " " + action.Text
	}
	return action.Selector
}

// Close - quits the browser and stops the metrics server
func (t *TerminalInterface) Close() error {
	var result *multierror.Error
	for _, closer := range t.closers {
		if err := closer(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	t.closers = nil
	return result.ErrorOrNil()
}
