package conditions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"selene/domain/entities"
	"selene/domain/interfaces"
)

// CollectionCondition - is a predicate over all elements matched by a collection
type CollectionCondition interface {
	String() string
	Match(ctx context.Context, elements []interfaces.WebElement) error
}

type collectionCondition struct {
	name  string
	match func(ctx context.Context, elements []interfaces.WebElement) error
}

func (c *collectionCondition) String() string {
	return c.name
}

func (c *collectionCondition) Match(ctx context.Context, elements []interfaces.WebElement) error {
	return c.match(ctx, elements)
}

// Size - holds when exactly n elements are matched
func Size(n int) CollectionCondition {
	c := &collectionCondition{name: fmt.Sprintf("size %d", n)}
	c.match = func(_ context.Context, elements []interfaces.WebElement) error {
		if len(elements) != n {
			return mismatch(c, fmt.Sprintf("%d", len(elements)))
		}
		return nil
	}
	return c
}

// SizeAtLeast - holds when n or more elements are matched
func SizeAtLeast(n int) CollectionCondition {
	c := &collectionCondition{name: fmt.Sprintf("size >= %d", n)}
	c.match = func(_ context.Context, elements []interfaces.WebElement) error {
		if len(elements) < n {
			return mismatch(c, fmt.Sprintf("%d", len(elements)))
		}
		return nil
	}
	return c
}

// Empty - holds when nothing is matched
var Empty = Size(0)

func textsCondition(name string, expected []string, accept func(got, want string) bool) CollectionCondition {
	c := &collectionCondition{name: fmt.Sprintf("%s %s", name, quoteAll(expected))}
	c.match = func(ctx context.Context, elements []interfaces.WebElement) error {
		actual := make([]string, 0, len(elements))
		for _, e := range elements {
			text, err := e.Text(ctx)
			if err != nil {
				return err
			}
			actual = append(actual, text)
		}
		if len(actual) != len(expected) {
			return mismatch(c, quoteAll(actual))
		}
		for i := range expected {
			if !accept(actual[i], expected[i]) {
				return mismatch(c, quoteAll(actual))
			}
		}
		return nil
	}
	return c
}

// Texts - holds when the collection has one element per text and each contains its text
func Texts(texts ...string) CollectionCondition {
	return textsCondition("has texts", texts, strings.Contains)
}

// ExactTexts - holds when the element texts equal texts in order
func ExactTexts(texts ...string) CollectionCondition {
	return textsCondition("has exact texts", texts, func(got, want string) bool {
		return got == want
	})
}

func quoteAll(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, "'"+v+"'")
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func isMismatch(err error) bool {
	var m *entities.ConditionMismatch
	return errors.As(err, &m)
}
