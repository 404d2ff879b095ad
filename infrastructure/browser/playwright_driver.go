package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"selene/domain/entities"
	"selene/domain/interfaces"

	"github.com/hashicorp/go-multierror"
	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// selenium-style scripts read their parameters from `arguments`
const playwrightScriptShim = `([script, args]) => new Function(script).apply(null, args)`

const defaultActionTimeout = time.Second

// actionTimeout - playwright's own actionability wait, bounded by the caller's deadline.
// Zero means no timeout to playwright, so the result is at least a millisecond.
func actionTimeout(ctx context.Context) *float64 {
	timeout := defaultActionTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	return playwright.Float(float64(max(timeout, time.Millisecond).Milliseconds()))
}

type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	cfg     entities.Config
	logger  *logrus.Logger

	pageMutex sync.Mutex
}

// NewPlaywrightDriver - launches a browser through playwright
func NewPlaywrightDriver(cfg entities.Config, logger *logrus.Logger) (interfaces.Driver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browserType := pw.Chromium
	switch cfg.BrowserName {
	case "firefox":
		browserType = pw.Firefox
	case "webkit", "safari":
		browserType = pw.WebKit
	}

	launchOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}
	if cfg.BrowserBinary != "" && browserType == pw.Chromium {
		launchOptions.ExecutablePath = playwright.String(cfg.BrowserBinary)
	}

	browser, err := browserType.Launch(launchOptions)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 720,
		},
		JavaScriptEnabled: playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	d := &playwrightDriver{
		pw:      pw,
		browser: browser,
		context: context,
		page:    page,
		cfg:     cfg,
		logger:  logger,
	}

	page.OnDialog(func(dialog playwright.Dialog) {
		dialog.Accept()
	})

	context.OnPage(func(newPage playwright.Page) {
		d.pageMutex.Lock()
		defer d.pageMutex.Unlock()
		logger.Debugf("Switching to new page: %s", newPage.URL())
		d.page = newPage
	})

	return d, nil
}

func (d *playwrightDriver) currentPage() playwright.Page {
	d.pageMutex.Lock()
	defer d.pageMutex.Unlock()
	return d.page
}

// Open - navigates to the specified URL
func (d *playwrightDriver) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Debugf("Navigating to: %s", url)
	_, err := d.currentPage().Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(30000),
	})
	return translatePlaywrightError(err)
}

func (d *playwrightDriver) FindElements(ctx context.Context, locator entities.Locator) ([]interfaces.WebElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	selector, err := playwrightSelector(locator)
	if err != nil {
		return nil, err
	}
	handles, err := d.currentPage().QuerySelectorAll(selector)
	return d.wrap(handles, err)
}

func (d *playwrightDriver) wrap(handles []playwright.ElementHandle, err error) ([]interfaces.WebElement, error) {
	if err != nil {
		return nil, translatePlaywrightError(err)
	}
	elements := make([]interfaces.WebElement, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &playwrightElement{driver: d, handle: h})
	}
	return elements, nil
}

func (d *playwrightDriver) CurrentURL(ctx context.Context) (string, error) {
	return d.currentPage().URL(), nil
}

func (d *playwrightDriver) Title(ctx context.Context) (string, error) {
	title, err := d.currentPage().Title()
	return title, translatePlaywrightError(err)
}

func (d *playwrightDriver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	unwrapped := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if e, ok := arg.(*playwrightElement); ok {
			arg = e.handle
		}
		unwrapped = append(unwrapped, arg)
	}
	result, err := d.currentPage().Evaluate(playwrightScriptShim, []interface{}{script, unwrapped})
	return result, translatePlaywrightError(err)
}

func (d *playwrightDriver) Screenshot(ctx context.Context) ([]byte, error) {
	png, err := d.currentPage().Screenshot()
	return png, translatePlaywrightError(err)
}

func (d *playwrightDriver) PageSource(ctx context.Context) (string, error) {
	src, err := d.currentPage().Content()
	return src, translatePlaywrightError(err)
}

// Quit - closes the context, the browser and the playwright driver
func (d *playwrightDriver) Quit() error {
	var result *multierror.Error

	if d.context != nil {
		if err := d.context.Close(); err != nil && !isClosedError(err) {
			result = multierror.Append(result, fmt.Errorf("failed to close context: %w", err))
		}
		d.context = nil
	}

	if d.browser != nil {
		if err := d.browser.Close(); err != nil && !isClosedError(err) {
			result = multierror.Append(result, fmt.Errorf("failed to close browser: %w", err))
		}
		d.browser = nil
	}

	if d.pw != nil {
		if err := d.pw.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to stop playwright: %w", err))
		}
		d.pw = nil
	}

	return result.ErrorOrNil()
}

type playwrightElement struct {
	driver *playwrightDriver
	handle playwright.ElementHandle
}

func (e *playwrightElement) FindElements(ctx context.Context, locator entities.Locator) ([]interfaces.WebElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	selector, err := playwrightSelector(locator)
	if err != nil {
		return nil, err
	}
	handles, err := e.handle.QuerySelectorAll(selector)
	return e.driver.wrap(handles, err)
}

func (e *playwrightElement) Click(ctx context.Context) error {
	return translatePlaywrightError(e.handle.Click(playwright.ElementHandleClickOptions{
		Timeout: actionTimeout(ctx),
	}))
}

func (e *playwrightElement) DoubleClick(ctx context.Context) error {
	return translatePlaywrightError(e.handle.Dblclick(playwright.ElementHandleDblclickOptions{
		Timeout: actionTimeout(ctx),
	}))
}

func (e *playwrightElement) SendKeys(ctx context.Context, keys string) error {
	text, pressEnter := strings.CutSuffix(keys, entities.EnterKey)
	if text != "" {
		if err := e.handle.Type(text); err != nil {
			return translatePlaywrightError(err)
		}
	}
	if pressEnter {
		return translatePlaywrightError(e.handle.Press("Enter"))
	}
	return nil
}

func (e *playwrightElement) Clear(ctx context.Context) error {
	return translatePlaywrightError(e.handle.Fill("", playwright.ElementHandleFillOptions{
		Timeout: actionTimeout(ctx),
	}))
}

func (e *playwrightElement) Text(ctx context.Context) (string, error) {
	visible, err := e.IsDisplayed(ctx)
	if err != nil || !visible {
		return "", err
	}
	text, err := e.handle.InnerText()
	return strings.TrimSpace(text), translatePlaywrightError(err)
}

func (e *playwrightElement) Attribute(ctx context.Context, name string) (string, error) {
	value, err := e.handle.GetAttribute(name)
	return value, translatePlaywrightError(err)
}

func (e *playwrightElement) CSSValue(ctx context.Context, property string) (string, error) {
	value, err := e.handle.Evaluate(`(element, property) => getComputedStyle(element).getPropertyValue(property)`, property)
	if err != nil {
		return "", translatePlaywrightError(err)
	}
	s, _ := value.(string)
	return s, nil
}

func (e *playwrightElement) TagName(ctx context.Context) (string, error) {
	value, err := e.handle.Evaluate(`element => element.tagName.toLowerCase()`)
	if err != nil {
		return "", translatePlaywrightError(err)
	}
	s, _ := value.(string)
	return s, nil
}

func (e *playwrightElement) IsDisplayed(ctx context.Context) (bool, error) {
	if err := e.ensureAttached(); err != nil {
		return false, err
	}
	visible, err := e.handle.IsVisible()
	return visible, translatePlaywrightError(err)
}

func (e *playwrightElement) IsEnabled(ctx context.Context) (bool, error) {
	enabled, err := e.handle.IsEnabled()
	return enabled, translatePlaywrightError(err)
}

func (e *playwrightElement) IsSelected(ctx context.Context) (bool, error) {
	checked, err := e.handle.IsChecked()
	if err != nil && strings.Contains(err.Error(), "Not a checkbox or radio button") {
		return false, nil
	}
	return checked, translatePlaywrightError(err)
}

// ensureAttached - reports detached handles as stale; playwright itself answers
// visibility queries on them with false
func (e *playwrightElement) ensureAttached() error {
	attached, err := e.handle.Evaluate(`element => element.isConnected`)
	if err != nil {
		return translatePlaywrightError(err)
	}
	if connected, _ := attached.(bool); !connected {
		return fmt.Errorf("%w: element is not attached to the DOM", entities.ErrStaleElement)
	}
	return nil
}

func playwrightSelector(locator entities.Locator) (string, error) {
	switch locator.By {
	case entities.ByCSSSelector, entities.ByTagName:
		return "css=" + locator.Value, nil
	case entities.ByXPath:
		return "xpath=" + locator.Value, nil
	case entities.ByLinkText:
		return fmt.Sprintf("a:text-is(%q)", locator.Value), nil
	case entities.ByPartialLinkText:
		return fmt.Sprintf("a:has-text(%q)", locator.Value), nil
	}
	return "", fmt.Errorf("unsupported locator strategy: %s", locator.By)
}

func isClosedError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "closed") || strings.Contains(errStr, "target closed")
}

func translatePlaywrightError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not attached to the DOM"), strings.Contains(msg, "Element is detached"):
		return fmt.Errorf("%w: %s", entities.ErrStaleElement, msg)
	case strings.Contains(msg, "intercepts pointer events"):
		return fmt.Errorf("%w: %s", entities.ErrClickIntercepted, msg)
	case strings.Contains(msg, "element is not visible"), strings.Contains(msg, "Element is not visible"):
		return fmt.Errorf("%w: %s", entities.ErrElementNotVisible, msg)
	case errors.Is(err, playwright.ErrTimeout):
		// playwright's own actionability wait ran out; the outer wait decides
		return fmt.Errorf("%w: %s", entities.ErrNotInteractable, msg)
	}
	return err
}
