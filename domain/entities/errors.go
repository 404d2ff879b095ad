package entities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNoSuchElement     = errors.New("no such element")
	ErrStaleElement      = errors.New("stale element reference")
	ErrElementNotVisible = errors.New("element not visible")
	ErrNotInteractable   = errors.New("element not interactable")
	ErrClickIntercepted  = errors.New("element click intercepted")
	ErrIndexOutOfRange   = errors.New("index out of range")
)

// IsRetriable reports whether err means the awaited state is not reached yet
// rather than that the operation failed for good
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return false
	}
	var mismatch *ConditionMismatch
	if errors.As(err, &mismatch) {
		return true
	}
	for _, target := range []error{
		ErrNoSuchElement,
		ErrStaleElement,
		ErrElementNotVisible,
		ErrNotInteractable,
		ErrClickIntercepted,
		ErrIndexOutOfRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ConditionMismatch is returned when a condition is evaluated successfully but does not hold
type ConditionMismatch struct {
	Condition string
	Actual    string
}

func (e *ConditionMismatch) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("condition not matched: %s", e.Condition)
	}
	return fmt.Sprintf("condition not matched: %s, actual: %s", e.Condition, e.Actual)
}

// TimeoutError is returned when a wait deadline passes before its operation succeeded
type TimeoutError struct {
	Entity    string
	Operation string
	Timeout   time.Duration
	// Reason is the last retriable error seen while polling
	Reason     error
	Screenshot string
	PageSource string
}

func (e *TimeoutError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "timed out after %s while waiting for %s.%s", e.Timeout, e.Entity, e.Operation)
	if e.Reason != nil {
		fmt.Fprintf(&b, "\nreason: %v", e.Reason)
	}
	if e.Screenshot != "" {
		fmt.Fprintf(&b, "\nscreenshot: %s", e.Screenshot)
	}
	if e.PageSource != "" {
		fmt.Fprintf(&b, "\npage source: %s", e.PageSource)
	}
	return b.String()
}

func (e *TimeoutError) Unwrap() error {
	return e.Reason
}

// Is makes a TimeoutError match context.DeadlineExceeded
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}
