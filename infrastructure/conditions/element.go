// Package conditions holds the predicates waits poll for. A condition that is
// evaluated but does not hold returns *entities.ConditionMismatch; errors from
// the driver are passed through so the waiter can tell "not yet" from "failed".
package conditions

import (
	"context"
	"fmt"
	"strings"

	"selene/domain/entities"
	"selene/domain/interfaces"
)

// Condition - is a predicate over a single element
type Condition interface {
	String() string
	Match(ctx context.Context, element interfaces.WebElement) error
	// MatchMissing reports whether the condition holds when no element is found
	MatchMissing() bool
}

type elementCondition struct {
	name    string
	missing bool
	match   func(ctx context.Context, element interfaces.WebElement) error
}

func (c *elementCondition) String() string {
	return c.name
}

func (c *elementCondition) Match(ctx context.Context, element interfaces.WebElement) error {
	return c.match(ctx, element)
}

func (c *elementCondition) MatchMissing() bool {
	return c.missing
}

func mismatch(condition fmt.Stringer, actual string) error {
	return &entities.ConditionMismatch{Condition: condition.String(), Actual: actual}
}

func boolCondition(name, property string, missing bool, probe func(context.Context, interfaces.WebElement) (bool, error), want bool) Condition {
	c := &elementCondition{name: name, missing: missing}
	c.match = func(ctx context.Context, element interfaces.WebElement) error {
		got, err := probe(ctx, element)
		if err != nil {
			return err
		}
		if got != want {
			return mismatch(c, fmt.Sprintf("%s=%t", property, got))
		}
		return nil
	}
	return c
}

var (
	// Present - holds for any element found in the DOM
	Present Condition = &elementCondition{
		name:  "present",
		match: func(context.Context, interfaces.WebElement) error { return nil },
	}

	// Absent - holds when nothing is found
	Absent = Not(Present)

	Visible = boolCondition("visible", "displayed", false, func(ctx context.Context, e interfaces.WebElement) (bool, error) {
		return e.IsDisplayed(ctx)
	}, true)

	// Hidden - holds for elements that are not displayed or not in the DOM at all
	Hidden = boolCondition("hidden", "displayed", true, func(ctx context.Context, e interfaces.WebElement) (bool, error) {
		return e.IsDisplayed(ctx)
	}, false)

	Enabled = boolCondition("enabled", "enabled", false, func(ctx context.Context, e interfaces.WebElement) (bool, error) {
		return e.IsEnabled(ctx)
	}, true)

	Disabled = boolCondition("disabled", "enabled", false, func(ctx context.Context, e interfaces.WebElement) (bool, error) {
		return e.IsEnabled(ctx)
	}, false)

	Selected = boolCondition("selected", "selected", false, func(ctx context.Context, e interfaces.WebElement) (bool, error) {
		return e.IsSelected(ctx)
	}, true)

	// Clickable - is visible and enabled
	Clickable = And(Visible, Enabled)
)

func textCondition(name string, read func(context.Context, interfaces.WebElement) (string, error), accept func(string) bool) Condition {
	c := &elementCondition{name: name}
	c.match = func(ctx context.Context, element interfaces.WebElement) error {
		got, err := read(ctx, element)
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

func readText(ctx context.Context, e interfaces.WebElement) (string, error) {
	return e.Text(ctx)
}

// Text - holds when the element's visible text contains sub
func Text(sub string) Condition {
	return textCondition(fmt.Sprintf("has text '%s'", sub), readText, func(got string) bool {
		return strings.Contains(got, sub)
	})
}

// ExactText - holds when the element's visible text equals text
func ExactText(text string) Condition {
	return textCondition(fmt.Sprintf("has exact text '%s'", text), readText, func(got string) bool {
		return got == text
	})
}

// Attribute - holds when the attribute equals value
func Attribute(name, value string) Condition {
	return textCondition(fmt.Sprintf("has attribute '%s' = '%s'", name, value), func(ctx context.Context, e interfaces.WebElement) (string, error) {
		return e.Attribute(ctx, name)
	}, func(got string) bool {
		return got == value
	})
}

// Value - holds when the value attribute equals value
func Value(value string) Condition {
	return textCondition(fmt.Sprintf("has value '%s'", value), func(ctx context.Context, e interfaces.WebElement) (string, error) {
		return e.Attribute(ctx, "value")
	}, func(got string) bool {
		return got == value
	})
}

// CSSClass - holds when name is one of the element's classes
func CSSClass(name string) Condition {
	return textCondition(fmt.Sprintf("has css class '%s'", name), func(ctx context.Context, e interfaces.WebElement) (string, error) {
		return e.Attribute(ctx, "class")
	}, func(got string) bool {
		for _, class := range strings.Fields(got) {
			if class == name {
				return true
			}
		}
		return false
	})
}

// Not - negates c. Driver errors from c are not negated.
func Not(c Condition) Condition {
	n := &elementCondition{name: "not " + c.String(), missing: !c.MatchMissing()}
	n.match = func(ctx context.Context, element interfaces.WebElement) error {
		err := c.Match(ctx, element)
		if err == nil {
			return mismatch(n, "")
		}
		if isMismatch(err) {
			return nil
		}
		return err
	}
	return n
}

// And - holds when every condition holds, checked in order
func And(cs ...Condition) Condition {
	names := make([]string, 0, len(cs))
	missing := len(cs) > 0
	for _, c := range cs {
		names = append(names, c.String())
		missing = missing && c.MatchMissing()
	}
	return &elementCondition{
		name:    strings.Join(names, " and "),
		missing: missing,
		match: func(ctx context.Context, element interfaces.WebElement) error {
			for _, c := range cs {
				if err := c.Match(ctx, element); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
