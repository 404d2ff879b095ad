// Package selene wraps a WebDriver session in lazily located elements whose
// every action waits implicitly: the element is searched again on each attempt
// and the action is retried until it succeeds or the timeout passes.
package selene

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"selene/domain/entities"
	"selene/domain/interfaces"
	"selene/infrastructure/conditions"
	"selene/infrastructure/wait"

	"github.com/sirupsen/logrus"
)

const browserName = "browser"

// Browser - is the entry point of the accessor chain
type Browser struct {
	driver interfaces.Driver
	waiter *wait.Waiter
	cfg    entities.Config
	logger *logrus.Logger
}

// New - wraps driver; waits use waiter
func New(driver interfaces.Driver, waiter *wait.Waiter, cfg entities.Config, logger *logrus.Logger) *Browser {
	return &Browser{
		driver: driver,
		waiter: waiter,
		cfg:    cfg,
		logger: logger,
	}
}

// With - returns a Browser sharing the session whose waits use opts
func (b *Browser) With(opts ...wait.Option) *Browser {
	c := *b
	c.waiter = b.waiter.With(opts...)
	return &c
}

// Driver - returns the underlying driver
func (b *Browser) Driver() interfaces.Driver {
	return b.driver
}

// Waiter - returns the waiter used by elements created from b
func (b *Browser) Waiter() *wait.Waiter {
	return b.waiter
}

func (b *Browser) String() string {
	return browserName
}

// Open - navigates to rawURL, resolved against the configured base URL when relative
func (b *Browser) Open(ctx context.Context, rawURL string) error {
	target, err := b.resolve(rawURL)
	if err != nil {
		return err
	}
	b.logger.WithField("url", target).Info("Opening page")
	if timeout := b.waiter.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := b.driver.Open(ctx, target); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}

func (b *Browser) resolve(rawURL string) (string, error) {
	if b.cfg.BaseURL == "" {
		return rawURL, nil
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if ref.IsAbs() {
		return rawURL, nil
	}
	base, err := url.Parse(strings.TrimSuffix(b.cfg.BaseURL, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", b.cfg.BaseURL, err)
	}
	return base.ResolveReference(&url.URL{Path: strings.TrimPrefix(ref.Path, "/"), RawQuery: ref.RawQuery, Fragment: ref.Fragment}).String(), nil
}

// Element - is the first element matching a css selector
func (b *Browser) Element(css string) *Element {
	return b.ElementBy(entities.CSS(css))
}

// ElementBy - is the first element matching locator
func (b *Browser) ElementBy(locator entities.Locator) *Element {
	return newElement(b, b.waiter, fmt.Sprintf("%s.element(%s)", browserName, locator), firstOf(b.driver, locator))
}

// All - is every element matching a css selector
func (b *Browser) All(css string) *Collection {
	return b.AllBy(entities.CSS(css))
}

// AllBy - is every element matching locator
func (b *Browser) AllBy(locator entities.Locator) *Collection {
	return newCollection(b, b.waiter, fmt.Sprintf("%s.all(%s)", browserName, locator), allOf(b.driver, locator))
}

// CurrentURL - returns the page URL without waiting
func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	return b.driver.CurrentURL(ctx)
}

// Title - returns the page title without waiting
func (b *Browser) Title(ctx context.Context) (string, error) {
	return b.driver.Title(ctx)
}

// ExecuteScript - runs JavaScript; Element arguments are located first
func (b *Browser) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	resolved := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if e, ok := arg.(*Element); ok {
			we, err := e.locate(ctx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e, err)
			}
			arg = we
		}
		resolved = append(resolved, arg)
	}
	return b.driver.ExecuteScript(ctx, script, resolved...)
}

// Should - waits until the page matches condition
func (b *Browser) Should(ctx context.Context, condition conditions.BrowserCondition) error {
	return b.waiter.Until(ctx, browserName, fmt.Sprintf("should(%s)", condition), func(ctx context.Context) error {
		return condition.Match(ctx, b.driver)
	})
}

// Quit - ends the session
func (b *Browser) Quit() error {
	b.logger.Debug("Quitting browser")
	return b.driver.Quit()
}
