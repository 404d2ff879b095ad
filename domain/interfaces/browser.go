package interfaces

import (
	"context"

	"selene/domain/entities"
)

// SearchContext is anything elements can be looked up from
type SearchContext interface {
	// FindElements returns all matches; an empty result is not an error
	FindElements(ctx context.Context, locator entities.Locator) ([]WebElement, error)
}

// WebElement is a handle to a DOM element held by the driver.
// Handles go stale when the page replaces the node; implementations report
// that as entities.ErrStaleElement.
type WebElement interface {
	SearchContext

	Click(ctx context.Context) error
	DoubleClick(ctx context.Context) error
	SendKeys(ctx context.Context, keys string) error
	Clear(ctx context.Context) error

	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	CSSValue(ctx context.Context, property string) (string, error)
	TagName(ctx context.Context) (string, error)

	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	IsSelected(ctx context.Context) (bool, error)
}

// Driver defines the browser session a Browser drives
type Driver interface {
	SearchContext

	// Open navigates to a URL
	Open(ctx context.Context, url string) error

	// CurrentURL returns the current page URL
	CurrentURL(ctx context.Context) (string, error)

	// Title returns the current page title
	Title(ctx context.Context) (string, error)

	// ExecuteScript runs synchronous JavaScript; WebElement args are passed as DOM nodes
	ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error)

	// Screenshot takes a PNG screenshot
	Screenshot(ctx context.Context) ([]byte, error)

	// PageSource returns the serialized DOM
	PageSource(ctx context.Context) (string, error)

	// Quit ends the session and releases the browser
	Quit() error
}
