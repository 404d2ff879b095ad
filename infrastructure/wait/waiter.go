// Package wait implements the implicit wait every element action goes through:
// an operation is retried until it succeeds, fails for good, or the timeout passes.
package wait

import (
	"context"
	"fmt"
	"time"

	"selene/domain/entities"
	"selene/domain/interfaces"

	"github.com/sirupsen/logrus"
	k8swait "k8s.io/apimachinery/pkg/util/wait"
)

const (
	OutcomeSuccess  = "success"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// FailureHook - is called once when a wait times out, before the error is returned.
// It may attach artifacts to the error.
type FailureHook func(ctx context.Context, err *entities.TimeoutError)

// Option - configures a Waiter
type Option func(*Waiter)

// WithTimeout - sets how long operations are retried
func WithTimeout(timeout time.Duration) Option {
	return func(w *Waiter) {
		w.timeout = timeout
	}
}

// WithPollInterval - sets the pause between attempts
func WithPollInterval(interval time.Duration) Option {
	return func(w *Waiter) {
		w.pollInterval = interval
	}
}

// WithObserver - reports every finished wait to o
func WithObserver(o interfaces.WaitObserver) Option {
	return func(w *Waiter) {
		w.observer = o
	}
}

// WithFailureHook - appends a hook run on timeout
func WithFailureHook(hook FailureHook) Option {
	return func(w *Waiter) {
		w.hooks = append(w.hooks, hook)
	}
}

// Waiter - retries operations against a live page
type Waiter struct {
	timeout      time.Duration
	pollInterval time.Duration
	observer     interfaces.WaitObserver
	hooks        []FailureHook
	logger       *logrus.Logger
}

// New - creates a Waiter with default timeout and poll interval
func New(logger *logrus.Logger, opts ...Option) *Waiter {
	w := &Waiter{
		timeout:      entities.DefaultTimeout,
		pollInterval: entities.DefaultPollInterval,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.clampPollInterval()
	return w
}

// With - returns a copy of the Waiter with opts applied
func (w *Waiter) With(opts ...Option) *Waiter {
	c := *w
	c.hooks = append([]FailureHook(nil), w.hooks...)
	for _, opt := range opts {
		opt(&c)
	}
	c.clampPollInterval()
	return &c
}

// a zero interval makes the poll loop spin against the driver
func (w *Waiter) clampPollInterval() {
	if w.pollInterval <= 0 {
		w.pollInterval = entities.DefaultPollInterval
	}
}

// Timeout - returns the configured timeout
func (w *Waiter) Timeout() time.Duration {
	return w.timeout
}

// PollInterval - returns the configured poll interval
func (w *Waiter) PollInterval() time.Duration {
	return w.pollInterval
}

// Until - calls fn right away and then every poll interval until it returns nil.
// A retriable error (see entities.IsRetriable) means "not yet" and is retried;
// any other error is returned immediately. When the timeout passes first, the
// result is a *entities.TimeoutError wrapping the last retriable error.
// Cancelling ctx aborts the wait with the context's error.
func (w *Waiter) Until(ctx context.Context, entity, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	attempts := 0
	var last error

	condition := func(ctx context.Context) (bool, error) {
		attempts++
		err := fn(ctx)
		switch {
		case err == nil:
			return true, nil
		case entities.IsRetriable(err):
			last = err
			return false, nil
		case ctx.Err() != nil:
			// the attempt was cut off by the deadline; let the poll loop report it
			return false, nil
		default:
			return false, err
		}
	}

	var err error
	if w.timeout <= 0 {
		var done bool
		done, err = condition(ctx)
		if err == nil && !done {
			err = context.DeadlineExceeded
		}
	} else {
		err = k8swait.PollUntilContextTimeout(ctx, w.pollInterval, w.timeout, true, condition)
	}

	elapsed := time.Since(start)
	log := w.logger.WithFields(logrus.Fields{
		"entity":    entity,
		"operation": operation,
		"attempts":  attempts,
		"elapsed":   elapsed,
	})

	switch {
	case err == nil:
		log.Debug("wait succeeded")
		w.observe(operation, OutcomeSuccess, elapsed)
		return nil

	case ctx.Err() != nil:
		log.WithError(ctx.Err()).Debug("wait canceled")
		w.observe(operation, OutcomeCanceled, elapsed)
		return fmt.Errorf("%s.%s: %w", entity, operation, ctx.Err())

	case k8swait.Interrupted(err):
		timeoutErr := &entities.TimeoutError{
			Entity:    entity,
			Operation: operation,
			Timeout:   w.timeout,
			Reason:    last,
		}
		for _, hook := range w.hooks {
			hook(ctx, timeoutErr)
		}
		log.WithError(last).Warn("wait timed out")
		w.observe(operation, OutcomeTimeout, elapsed)
		return timeoutErr

	default:
		log.WithError(err).Debug("wait failed")
		w.observe(operation, OutcomeError, elapsed)
		return fmt.Errorf("%s.%s: %w", entity, operation, err)
	}
}

// Query - is Until for operations that produce a value
func Query[T any](ctx context.Context, w *Waiter, entity, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := w.Until(ctx, entity, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func (w *Waiter) observe(operation, outcome string, elapsed time.Duration) {
	if w.observer != nil {
		w.observer.ObserveWait(operation, outcome, elapsed)
	}
}
