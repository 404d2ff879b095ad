package entities

import "fmt"

// By is a WebDriver locator strategy
type By string

const (
	ByCSSSelector     By = "css selector"
	ByXPath           By = "xpath"
	ByLinkText        By = "link text"
	ByPartialLinkText By = "partial link text"
	ByTagName         By = "tag name"
)

// Locator identifies elements relative to a search context
type Locator struct {
	By    By     `json:"by"`
	Value string `json:"value"`
}

// CSS returns a css selector locator
func CSS(selector string) Locator {
	return Locator{By: ByCSSSelector, Value: selector}
}

// XPath returns an xpath locator
func XPath(expression string) Locator {
	return Locator{By: ByXPath, Value: expression}
}

// String renders the locator the way it appears in element descriptions
func (l Locator) String() string {
	if l.By == ByCSSSelector {
		return fmt.Sprintf("'%s'", l.Value)
	}
	return fmt.Sprintf("by(%s, '%s')", l.By, l.Value)
}
