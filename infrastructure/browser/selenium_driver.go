package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"selene/domain/entities"
	"selene/domain/interfaces"

	"github.com/hashicorp/go-multierror"
	conditions "github.com/serge1peshcoff/selenium-go-conditions"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

const doubleClickScript = `
var element = arguments[0];
element.dispatchEvent(new MouseEvent('dblclick', {bubbles: true, cancelable: true, view: window}));
`

// SeleniumDriver - drives a browser through a WebDriver server
type SeleniumDriver struct {
	wd      selenium.WebDriver
	service *selenium.Service
	cfg     entities.Config
	logger  *logrus.Logger
}

// findChromeDriver - finds ChromeDriver executable path
func findChromeDriver(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		return "", fmt.Errorf("chromedriver not found at %s", configured)
	}

	commonPaths := []string{
		"/usr/local/bin/chromedriver",
		"/usr/bin/chromedriver",
		"/opt/homebrew/bin/chromedriver",
		filepath.Join(os.Getenv("HOME"), "bin", "chromedriver"),
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := exec.LookPath("chromedriver"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("chromedriver not found. Please install it or set BROWSER_DRIVER_PATH environment variable")
}

// findChromeBinary - finds Chrome/Chromium browser executable path
func findChromeBinary(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	chromePaths := []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	}

	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}

func capabilities(cfg entities.Config) selenium.Capabilities {
	caps := selenium.Capabilities{
		"browserName": cfg.BrowserName,
	}
	if cfg.BrowserName != "chrome" {
		return caps
	}

	chromeCaps := chrome.Capabilities{
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}
	if cfg.Headless {
		chromeCaps.Args = append(chromeCaps.Args, "--headless=new")
	}
	if binary := findChromeBinary(cfg.BrowserBinary); binary != "" {
		chromeCaps.Path = binary
	}
	caps.AddChrome(chromeCaps)
	return caps
}

// NewSeleniumDriver - connects to cfg.RemoteURL, or starts a local chromedriver when it is empty
func NewSeleniumDriver(cfg entities.Config, logger *logrus.Logger) (*SeleniumDriver, error) {
	caps := capabilities(cfg)

	if cfg.RemoteURL != "" {
		logger.Infof("Connecting to WebDriver at: %s", cfg.RemoteURL)
		wd, err := selenium.NewRemote(caps, cfg.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create webdriver: %w", err)
		}
		return &SeleniumDriver{wd: wd, cfg: cfg, logger: logger}, nil
	}

	driverPath, err := findChromeDriver(cfg.DriverPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find chromedriver: %w", err)
	}
	logger.Infof("Using ChromeDriver at: %s", driverPath)

	service, err := selenium.NewChromeDriverService(driverPath, cfg.DriverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d", cfg.DriverPort))
	if err != nil {
		service.Stop()
		if strings.Contains(err.Error(), "cannot find Chrome binary") {
			return nil, fmt.Errorf("failed to create webdriver: Chrome browser not found. Please install Google Chrome or set CHROME_BINARY_PATH environment variable. Error: %w", err)
		}
		return nil, fmt.Errorf("failed to create webdriver: %w", err)
	}

	return &SeleniumDriver{wd: wd, service: service, cfg: cfg, logger: logger}, nil
}

// WrapSelenium - adapts an existing WebDriver session
func WrapSelenium(wd selenium.WebDriver, cfg entities.Config, logger *logrus.Logger) *SeleniumDriver {
	return &SeleniumDriver{wd: wd, cfg: cfg, logger: logger}
}

// WebDriver - returns the wrapped session
func (s *SeleniumDriver) WebDriver() selenium.WebDriver {
	return s.wd
}

// Open - navigates and waits until the document has a body, at most until ctx's deadline
func (s *SeleniumDriver) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Debugf("Navigating to: %s", url)
	if err := s.wd.Get(url); err != nil {
		return translateSeleniumError(err)
	}
	if err := s.wd.WaitWithTimeoutAndInterval(conditions.ElementIsLocated(selenium.ByTagName, "body"), s.loadTimeout(ctx), s.cfg.PollInterval); err != nil {
		return fmt.Errorf("page %s has no body: %w", url, err)
	}
	return nil
}

func (s *SeleniumDriver) loadTimeout(ctx context.Context) time.Duration {
	timeout := s.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return max(timeout, time.Millisecond)
}

// FindElements - finds elements in the whole document
func (s *SeleniumDriver) FindElements(ctx context.Context, locator entities.Locator) ([]interfaces.WebElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := s.wd.FindElements(string(locator.By), locator.Value)
	return wrapSeleniumElements(s.wd, found, err)
}

// CurrentURL - returns current page URL
func (s *SeleniumDriver) CurrentURL(ctx context.Context) (string, error) {
	url, err := s.wd.CurrentURL()
	return url, translateSeleniumError(err)
}

// Title - returns current page title
func (s *SeleniumDriver) Title(ctx context.Context) (string, error) {
	title, err := s.wd.Title()
	return title, translateSeleniumError(err)
}

// ExecuteScript - runs a synchronous script in the page
func (s *SeleniumDriver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	result, err := s.wd.ExecuteScript(script, unwrapSeleniumArgs(args))
	return result, translateSeleniumError(err)
}

// Screenshot - takes screenshot of current page
func (s *SeleniumDriver) Screenshot(ctx context.Context) ([]byte, error) {
	png, err := s.wd.Screenshot()
	return png, translateSeleniumError(err)
}

// PageSource - returns the html of current page
func (s *SeleniumDriver) PageSource(ctx context.Context) (string, error) {
	src, err := s.wd.PageSource()
	return src, translateSeleniumError(err)
}

// Quit - ends the session and stops ChromeDriver service
func (s *SeleniumDriver) Quit() error {
	var result *multierror.Error
	if s.wd != nil {
		if err := s.wd.Quit(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to quit webdriver session: %w", err))
		}
	}
	if s.service != nil {
		if err := s.service.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to stop chromedriver: %w", err))
		}
	}
	return result.ErrorOrNil()
}

type seleniumElement struct {
	wd selenium.WebDriver
	we selenium.WebElement
}

func wrapSeleniumElements(wd selenium.WebDriver, found []selenium.WebElement, err error) ([]interfaces.WebElement, error) {
	if err != nil {
		// some servers still answer an empty search with "no such element"
		if errors.Is(translateSeleniumError(err), entities.ErrNoSuchElement) {
			return nil, nil
		}
		return nil, translateSeleniumError(err)
	}
	elements := make([]interfaces.WebElement, 0, len(found))
	for _, we := range found {
		elements = append(elements, &seleniumElement{wd: wd, we: we})
	}
	return elements, nil
}

func unwrapSeleniumArgs(args []interface{}) []interface{} {
	unwrapped := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if e, ok := arg.(*seleniumElement); ok {
			arg = e.we
		}
		unwrapped = append(unwrapped, arg)
	}
	return unwrapped
}

func (e *seleniumElement) FindElements(ctx context.Context, locator entities.Locator) ([]interfaces.WebElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := e.we.FindElements(string(locator.By), locator.Value)
	return wrapSeleniumElements(e.wd, found, err)
}

func (e *seleniumElement) Click(ctx context.Context) error {
	return translateSeleniumError(e.we.Click())
}

func (e *seleniumElement) DoubleClick(ctx context.Context) error {
	_, err := e.wd.ExecuteScript(doubleClickScript, []interface{}{e.we})
	return translateSeleniumError(err)
}

func (e *seleniumElement) SendKeys(ctx context.Context, keys string) error {
	return translateSeleniumError(e.we.SendKeys(keys))
}

func (e *seleniumElement) Clear(ctx context.Context) error {
	return translateSeleniumError(e.we.Clear())
}

func (e *seleniumElement) Text(ctx context.Context) (string, error) {
	text, err := e.we.Text()
	return text, translateSeleniumError(err)
}

func (e *seleniumElement) Attribute(ctx context.Context, name string) (string, error) {
	value, err := e.we.GetAttribute(name)
	if err != nil && err.Error() == "nil return value" {
		return "", nil
	}
	return value, translateSeleniumError(err)
}

func (e *seleniumElement) CSSValue(ctx context.Context, property string) (string, error) {
	value, err := e.we.CSSProperty(property)
	return value, translateSeleniumError(err)
}

func (e *seleniumElement) TagName(ctx context.Context) (string, error) {
	name, err := e.we.TagName()
	return name, translateSeleniumError(err)
}

func (e *seleniumElement) IsDisplayed(ctx context.Context) (bool, error) {
	displayed, err := e.we.IsDisplayed()
	return displayed, translateSeleniumError(err)
}

func (e *seleniumElement) IsEnabled(ctx context.Context) (bool, error) {
	enabled, err := e.we.IsEnabled()
	return enabled, translateSeleniumError(err)
}

func (e *seleniumElement) IsSelected(ctx context.Context) (bool, error) {
	selected, err := e.we.IsSelected()
	return selected, translateSeleniumError(err)
}

// legacy JSON wire protocol status codes
const (
	legacyNoSuchElement       = 7
	legacyStaleElement        = 10
	legacyElementNotVisible   = 11
	legacyInvalidElementState = 12
)

// translateSeleniumError - maps WebDriver error codes onto the entities sentinels
func translateSeleniumError(err error) error {
	if err == nil {
		return nil
	}

	var serr *selenium.Error
	if errors.As(err, &serr) {
		switch {
		case serr.Err == "no such element" || serr.LegacyCode == legacyNoSuchElement:
			return fmt.Errorf("%w: %s", entities.ErrNoSuchElement, serr.Message)
		case serr.Err == "stale element reference" || serr.LegacyCode == legacyStaleElement:
			return fmt.Errorf("%w: %s", entities.ErrStaleElement, serr.Message)
		case serr.Err == "element click intercepted":
			return fmt.Errorf("%w: %s", entities.ErrClickIntercepted, serr.Message)
		case serr.Err == "element not interactable" || serr.Err == "element not visible" || serr.LegacyCode == legacyElementNotVisible:
			return fmt.Errorf("%w: %s", entities.ErrNotInteractable, serr.Message)
		case serr.Err == "invalid element state" || serr.LegacyCode == legacyInvalidElementState:
			return fmt.Errorf("%w: %s", entities.ErrNotInteractable, serr.Message)
		}
		return err
	}

	// older drivers only put the reason into the message text
	msg := err.Error()
	switch {
	case strings.Contains(msg, "stale element reference"):
		return fmt.Errorf("%w: %s", entities.ErrStaleElement, msg)
	case strings.Contains(msg, "is not clickable at point"):
		return fmt.Errorf("%w: %s", entities.ErrClickIntercepted, msg)
	case strings.Contains(msg, "element not interactable"), strings.Contains(msg, "element not visible"):
		return fmt.Errorf("%w: %s", entities.ErrNotInteractable, msg)
	}
	return err
}

// Ensure SeleniumDriver implements Driver interface
var _ interfaces.Driver = (*SeleniumDriver)(nil)
