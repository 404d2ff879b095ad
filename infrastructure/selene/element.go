package selene

import (
	"context"
	"errors"
	"fmt"

	"selene/domain/entities"
	"selene/domain/interfaces"
	"selene/infrastructure/conditions"
	"selene/infrastructure/wait"
)

const setValueScript = `
var element = arguments[0];
element.value = arguments[1];
element.dispatchEvent(new Event('input', {bubbles: true}));
element.dispatchEvent(new Event('change', {bubbles: true}));
`

type locateFunc func(ctx context.Context) (interfaces.WebElement, error)

type locateAllFunc func(ctx context.Context) ([]interfaces.WebElement, error)

func firstOf(scope interfaces.SearchContext, locator entities.Locator) locateFunc {
	return func(ctx context.Context) (interfaces.WebElement, error) {
		found, err := scope.FindElements(ctx, locator)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("%w: %s", entities.ErrNoSuchElement, locator)
		}
		return found[0], nil
	}
}

func allOf(scope interfaces.SearchContext, locator entities.Locator) locateAllFunc {
	return func(ctx context.Context) ([]interfaces.WebElement, error) {
		return scope.FindElements(ctx, locator)
	}
}

// Element - is a lazily located element. Nothing is searched until it is used,
// and every use searches again, starting from the outermost parent.
type Element struct {
	browser *Browser
	waiter  *wait.Waiter
	desc    string
	locate  locateFunc
}

func newElement(b *Browser, w *wait.Waiter, desc string, locate locateFunc) *Element {
	return &Element{browser: b, waiter: w, desc: desc, locate: locate}
}

func (e *Element) String() string {
	return e.desc
}

// With - returns the same element waiting with opts
func (e *Element) With(opts ...wait.Option) *Element {
	return newElement(e.browser, e.waiter.With(opts...), e.desc, e.locate)
}

// Locate - searches the element once, without waiting
func (e *Element) Locate(ctx context.Context) (interfaces.WebElement, error) {
	return e.locate(ctx)
}

// Element - is the first descendant matching a css selector
func (e *Element) Element(css string) *Element {
	return e.ElementBy(entities.CSS(css))
}

// ElementBy - is the first descendant matching locator
func (e *Element) ElementBy(locator entities.Locator) *Element {
	return newElement(e.browser, e.waiter, fmt.Sprintf("%s.element(%s)", e.desc, locator), func(ctx context.Context) (interfaces.WebElement, error) {
		parent, err := e.locate(ctx)
		if err != nil {
			return nil, err
		}
		return firstOf(parent, locator)(ctx)
	})
}

// All - is every descendant matching a css selector
func (e *Element) All(css string) *Collection {
	return e.AllBy(entities.CSS(css))
}

// AllBy - is every descendant matching locator
func (e *Element) AllBy(locator entities.Locator) *Collection {
	return newCollection(e.browser, e.waiter, fmt.Sprintf("%s.all(%s)", e.desc, locator), func(ctx context.Context) ([]interfaces.WebElement, error) {
		parent, err := e.locate(ctx)
		if err != nil {
			return nil, err
		}
		return parent.FindElements(ctx, locator)
	})
}

// visible - locates the element and requires it to be displayed
func (e *Element) visible(ctx context.Context) (interfaces.WebElement, error) {
	we, err := e.locate(ctx)
	if err != nil {
		return nil, err
	}
	if err := conditions.Visible.Match(ctx, we); err != nil {
		return nil, err
	}
	return we, nil
}

// act - waits for the element to be visible and then performs action on it,
// retrying both together
func (e *Element) act(ctx context.Context, operation string, action func(ctx context.Context, we interfaces.WebElement) error) error {
	return e.waiter.Until(ctx, e.desc, operation, func(ctx context.Context) error {
		we, err := e.visible(ctx)
		if err != nil {
			return err
		}
		return action(ctx, we)
	})
}

// Click - waits until the element is visible and clicks it
func (e *Element) Click(ctx context.Context) error {
	return e.act(ctx, "click", func(ctx context.Context, we interfaces.WebElement) error {
		return we.Click(ctx)
	})
}

// DoubleClick - waits until the element is visible and double clicks it
func (e *Element) DoubleClick(ctx context.Context) error {
	return e.act(ctx, "double_click", func(ctx context.Context, we interfaces.WebElement) error {
		return we.DoubleClick(ctx)
	})
}

// SetValue - replaces the element's value
func (e *Element) SetValue(ctx context.Context, value string) error {
	return e.act(ctx, fmt.Sprintf("set_value('%s')", value), func(ctx context.Context, we interfaces.WebElement) error {
		if e.browser.cfg.SetValueByJS {
			_, err := e.browser.driver.ExecuteScript(ctx, setValueScript, we, value)
			return err
		}
		if err := we.Clear(ctx); err != nil {
			return err
		}
		return we.SendKeys(ctx, value)
	})
}

// Type - appends text to the element's value
func (e *Element) Type(ctx context.Context, text string) error {
	return e.act(ctx, fmt.Sprintf("type('%s')", text), func(ctx context.Context, we interfaces.WebElement) error {
		return we.SendKeys(ctx, text)
	})
}

// Clear - waits until the element is visible and empties its value
func (e *Element) Clear(ctx context.Context) error {
	return e.act(ctx, "clear", func(ctx context.Context, we interfaces.WebElement) error {
		return we.Clear(ctx)
	})
}

// PressEnter - waits until the element is visible and sends the Enter key
func (e *Element) PressEnter(ctx context.Context) error {
	return e.act(ctx, "press_enter", func(ctx context.Context, we interfaces.WebElement) error {
		return we.SendKeys(ctx, entities.EnterKey)
	})
}

// Text - waits for the element to be in the DOM and returns its rendered text
func (e *Element) Text(ctx context.Context) (string, error) {
	return wait.Query(ctx, e.waiter, e.desc, "text", func(ctx context.Context) (string, error) {
		we, err := e.locate(ctx)
		if err != nil {
			return "", err
		}
		return we.Text(ctx)
	})
}

// Attribute - waits for the element to be in the DOM and returns an attribute value
func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	return wait.Query(ctx, e.waiter, e.desc, fmt.Sprintf("attribute('%s')", name), func(ctx context.Context) (string, error) {
		we, err := e.locate(ctx)
		if err != nil {
			return "", err
		}
		return we.Attribute(ctx, name)
	})
}

func (e *Element) check(ctx context.Context, condition conditions.Condition) error {
	we, err := e.locate(ctx)
	if err != nil {
		if condition.MatchMissing() && isMissing(err) {
			return nil
		}
		return err
	}
	err = condition.Match(ctx, we)
	if err != nil && condition.MatchMissing() && errors.Is(err, entities.ErrStaleElement) {
		return nil
	}
	return err
}

// Should - waits until the element matches condition
func (e *Element) Should(ctx context.Context, condition conditions.Condition) error {
	return e.waiter.Until(ctx, e.desc, fmt.Sprintf("should(%s)", condition), func(ctx context.Context) error {
		return e.check(ctx, condition)
	})
}

// ShouldNot - waits until the element does not match condition
func (e *Element) ShouldNot(ctx context.Context, condition conditions.Condition) error {
	return e.Should(ctx, conditions.Not(condition))
}

// Matches - checks condition once, without waiting
func (e *Element) Matches(ctx context.Context, condition conditions.Condition) (bool, error) {
	err := e.check(ctx, condition)
	switch {
	case err == nil:
		return true, nil
	case entities.IsRetriable(err):
		return false, nil
	default:
		return false, err
	}
}

// WaitUntil - is Should reporting the outcome as a bool
func (e *Element) WaitUntil(ctx context.Context, condition conditions.Condition) bool {
	return e.Should(ctx, condition) == nil
}

func isMissing(err error) bool {
	return errors.Is(err, entities.ErrNoSuchElement) || errors.Is(err, entities.ErrStaleElement) || errors.Is(err, entities.ErrIndexOutOfRange)
}
