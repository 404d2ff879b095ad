package scenario

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"selene/domain/entities"
	"selene/domain/interfaces"
	"selene/infrastructure/conditions"
	"selene/infrastructure/selene"
	"selene/infrastructure/wait"

	"github.com/sirupsen/logrus"
)

type Runner struct {
	browser *selene.Browser
	storage interfaces.ReportStorage
	logger  *logrus.Logger
	out     io.Writer
	history []entities.ActionResult
}

// NewRunner - creates a runner executing actions against browser; storage may be nil
func NewRunner(browser *selene.Browser, storage interfaces.ReportStorage, logger *logrus.Logger, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		browser: browser,
		storage: storage,
		logger:  logger,
		out:     out,
		history: make([]entities.ActionResult, 0),
	}
}

// Browser - returns the browser actions run against
func (r *Runner) Browser() *selene.Browser {
	return r.browser
}

// SetTimeout - changes the wait timeout for following actions
func (r *Runner) SetTimeout(timeout time.Duration) {
	r.browser = r.browser.With(wait.WithTimeout(timeout))
}

// Run - executes the scenario's actions in order, stopping at the first failure
func (r *Runner) Run(ctx context.Context, sc *entities.Scenario) error {
	sc.Status = entities.ScenarioStatusInProgress
	fmt.Fprintf(r.out, "Running scenario: %s\n", sc.Name)

	for i, action := range sc.Actions {
		select {
		case <-ctx.Done():
			sc.Status = entities.ScenarioStatusFailed
			return fmt.Errorf("scenario canceled: %w", ctx.Err())
		default:
		}

		result := r.Execute(ctx, action)
		if !result.Success {
			sc.Status = entities.ScenarioStatusFailed
			return fmt.Errorf("step %d (%s) failed: %s", i+1, action.Type, result.Error)
		}
	}

	sc.Status = entities.ScenarioStatusCompleted
	return nil
}

// Execute - performs a single action and records its result
func (r *Runner) Execute(ctx context.Context, action entities.Action) entities.ActionResult {
	start := time.Now()
	message, err := r.executeAction(ctx, action)
	result := entities.ActionResult{
		Action:   action,
		Success:  err == nil,
		Message:  message,
		Elapsed:  time.Since(start),
		PageInfo: r.pageInfo(ctx),
	}
	if err != nil {
		result.Error = err.Error()
		fmt.Fprintf(r.out, "Action failed: %v\n", err)
	}

	r.history = entities.TrimHistory(append(r.history, result))
	if r.storage != nil {
		if err := r.storage.SaveHistory(r.history); err != nil {
			r.logger.WithError(err).Warn("Failed to save history")
		}
	}
	return result
}

// executeAction - dispatches one action to the browser
func (r *Runner) executeAction(ctx context.Context, action entities.Action) (string, error) {
	switch action.Type {
	case entities.ActionOpen:
		if action.URL == "" {
			return "", fmt.Errorf("url is required for open action")
		}
		fmt.Fprintf(r.out, "Opening: %s\n", action.URL)
		if err := r.browser.Open(ctx, action.URL); err != nil {
			return "", err
		}
		return "opened " + action.URL, nil

	case entities.ActionWait:
		if action.Timeout <= 0 {
			return "", fmt.Errorf("timeout is required for wait action")
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(action.Timeout.Std()):
		}
		return fmt.Sprintf("waited %s", action.Timeout), nil
	}

	element, err := r.element(action)
	if err != nil {
		return "", err
	}

	switch action.Type {
	case entities.ActionClick:
		fmt.Fprintf(r.out, "Clicking: %s\n", element)
		return "clicked " + element.String(), element.Click(ctx)

	case entities.ActionDoubleClick:
		fmt.Fprintf(r.out, "Double clicking: %s\n", element)
		return "double clicked " + element.String(), element.DoubleClick(ctx)

	case entities.ActionSetValue:
		fmt.Fprintf(r.out, "Setting value of %s: %s\n", element, action.Text)
		return "set value of " + element.String(), element.SetValue(ctx, action.Text)

	case entities.ActionTypeText:
		fmt.Fprintf(r.out, "Typing into %s: %s\n", element, action.Text)
		return "typed into " + element.String(), element.Type(ctx, action.Text)

	case entities.ActionClear:
		return "cleared " + element.String(), element.Clear(ctx)

	case entities.ActionPressEnter:
		return "pressed enter on " + element.String(), element.PressEnter(ctx)

	case entities.ActionShould:
		condition, err := conditions.Parse(action.Condition)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(r.out, "Checking %s should %s\n", element, condition)
		return fmt.Sprintf("%s is %s", element, condition), element.Should(ctx, condition)

	default:
		return "", fmt.Errorf("unknown action: %s", action.Type)
	}
}

// element - builds the nested element chain for "css >> css >> ..."
func (r *Runner) element(action entities.Action) (*selene.Element, error) {
	steps := strings.Split(action.Selector, entities.SelectorSeparator)
	var element *selene.Element
	for _, step := range steps {
		step = strings.TrimSpace(step)
		if step == "" {
			return nil, fmt.Errorf("selector is required for %s action", action.Type)
		}
		if element == nil {
			element = r.browser.Element(step)
		} else {
			element = element.Element(step)
		}
	}
	if action.Timeout > 0 {
		element = element.With(wait.WithTimeout(action.Timeout.Std()))
	}
	return element, nil
}

func (r *Runner) pageInfo(ctx context.Context) *entities.PageInfo {
	url, err := r.browser.CurrentURL(ctx)
	if err != nil {
		return nil
	}
	title, _ := r.browser.Title(ctx)
	return &entities.PageInfo{URL: url, Title: title}
}

// History - returns results of executed actions
func (r *Runner) History() []entities.ActionResult {
	return r.history
}

// LoadHistory - restores results saved by a previous session
func (r *Runner) LoadHistory() ([]entities.ActionResult, error) {
	if r.storage == nil {
		return nil, nil
	}
	history, err := r.storage.LoadHistory()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	r.history = entities.TrimHistory(append(history, r.history...))
	return history, nil
}
