package conditions

import (
	"context"
	"fmt"
	"strings"

	"selene/domain/interfaces"
)

// BrowserCondition - is a predicate over the page as a whole
type BrowserCondition interface {
	String() string
	Match(ctx context.Context, driver interfaces.Driver) error
}

type browserCondition struct {
	name  string
	match func(ctx context.Context, driver interfaces.Driver) error
}

func (c *browserCondition) String() string {
	return c.name
}

func (c *browserCondition) Match(ctx context.Context, driver interfaces.Driver) error {
	return c.match(ctx, driver)
}

func pageCondition(name string, read func(context.Context, interfaces.Driver) (string, error), accept func(string) bool) BrowserCondition {
	c := &browserCondition{name: name}
	c.match = func(ctx context.Context, driver interfaces.Driver) error {
		got, err := read(ctx, driver)
		if err != nil {
			return err
		}
		if !accept(got) {
			return mismatch(c, fmt.Sprintf("'%s'", got))
		}
		return nil
	}
	return c
}

func readURL(ctx context.Context, d interfaces.Driver) (string, error) {
	return d.CurrentURL(ctx)
}

func readTitle(ctx context.Context, d interfaces.Driver) (string, error) {
	return d.Title(ctx)
}

// URL - holds when the page URL equals url
func URL(url string) BrowserCondition {
	return pageCondition(fmt.Sprintf("has url '%s'", url), readURL, func(got string) bool {
		return got == url
	})
}

// URLContaining - holds when the page URL contains sub
func URLContaining(sub string) BrowserCondition {
	return pageCondition(fmt.Sprintf("has url containing '%s'", sub), readURL, func(got string) bool {
		return strings.Contains(got, sub)
	})
}

// Title - holds when the page title equals title
func Title(title string) BrowserCondition {
	return pageCondition(fmt.Sprintf("has title '%s'", title), readTitle, func(got string) bool {
		return got == title
	})
}

// TitleContaining - holds when the page title contains sub
func TitleContaining(sub string) BrowserCondition {
	return pageCondition(fmt.Sprintf("has title containing '%s'", sub), readTitle, func(got string) bool {
		return strings.Contains(got, sub)
	})
}
