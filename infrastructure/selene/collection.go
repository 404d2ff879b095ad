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

// Collection - is a lazily located list of elements
type Collection struct {
	browser   *Browser
	waiter    *wait.Waiter
	desc      string
	locateAll locateAllFunc
}

func newCollection(b *Browser, w *wait.Waiter, desc string, locateAll locateAllFunc) *Collection {
	return &Collection{browser: b, waiter: w, desc: desc, locateAll: locateAll}
}

func (c *Collection) String() string {
	return c.desc
}

// With - returns the same collection waiting with opts
func (c *Collection) With(opts ...wait.Option) *Collection {
	return newCollection(c.browser, c.waiter.With(opts...), c.desc, c.locateAll)
}

// Get - is the element at index, which has to exist when the element is used
func (c *Collection) Get(index int) *Element {
	return newElement(c.browser, c.waiter, fmt.Sprintf("%s[%d]", c.desc, index), func(ctx context.Context) (interfaces.WebElement, error) {
		all, err := c.locateAll(ctx)
		if err != nil {
			return nil, err
		}
		if index < 0 || index >= len(all) {
			return nil, fmt.Errorf("%w: %d of %d", entities.ErrIndexOutOfRange, index, len(all))
		}
		return all[index], nil
	})
}

// First - is the element at index 0
func (c *Collection) First() *Element {
	return c.Get(0)
}

// FilteredBy - keeps the elements matching condition
func (c *Collection) FilteredBy(condition conditions.Condition) *Collection {
	return newCollection(c.browser, c.waiter, fmt.Sprintf("%s.filtered_by(%s)", c.desc, condition), func(ctx context.Context) ([]interfaces.WebElement, error) {
		all, err := c.locateAll(ctx)
		if err != nil {
			return nil, err
		}
		matched := make([]interfaces.WebElement, 0, len(all))
		for _, we := range all {
			err := condition.Match(ctx, we)
			if err == nil {
				matched = append(matched, we)
				continue
			}
			if !isMismatch(err) {
				return nil, err
			}
		}
		return matched, nil
	})
}

// ElementBy - is the first element matching condition
func (c *Collection) ElementBy(condition conditions.Condition) *Element {
	return c.FilteredBy(condition).First()
}

// Should - waits until the collection matches condition
func (c *Collection) Should(ctx context.Context, condition conditions.CollectionCondition) error {
	return c.waiter.Until(ctx, c.desc, fmt.Sprintf("should(%s)", condition), func(ctx context.Context) error {
		all, err := c.locateAll(ctx)
		if err != nil {
			return err
		}
		return condition.Match(ctx, all)
	})
}

// Len - counts the matching elements once, without waiting
func (c *Collection) Len(ctx context.Context) (int, error) {
	all, err := c.locateAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// Texts - returns the rendered text of every element once, without waiting
func (c *Collection) Texts(ctx context.Context) ([]string, error) {
	all, err := c.locateAll(ctx)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(all))
	for _, we := range all {
		text, err := we.Text(ctx)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func isMismatch(err error) bool {
	var mismatch *entities.ConditionMismatch
	return errors.As(err, &mismatch)
}
