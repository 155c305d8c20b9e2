package util

import (
	"context"
	"errors"
	"time"
)

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so that the retry helpers stop immediately and return it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

func unwrapPermanent(err error) error {
	var p *permanentError
	if errors.As(err, &p) {
		return p.err
	}
	return err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Backoff describes the pause between attempts. The delay doubles after every
// failed attempt and is capped at Max. A zero Initial disables waiting.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (b Backoff) delay(attempt int) time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	d := b.Initial << attempt
	if d <= 0 || (b.Max > 0 && d > b.Max) {
		d = b.Max
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryWithBackoff calls fn up to maxTries times until it returns a nil error,
// or until ctx is done, pausing between attempts. If maxTries <= 0, it
// defaults to 1. Returns ctx.Err() if the context is canceled, otherwise the
// last error. Context errors returned by fn and errors marked Permanent end the loop early.
func RetryWithBackoff[T any](ctx context.Context, maxTries int, backoff Backoff, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zero T
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if isContextErr(err) {
			return zero, err
		}
		if IsPermanent(err) {
			return zero, unwrapPermanent(err)
		}
		lastErr = err
		if i < maxTries-1 {
			if err := sleepContext(ctx, backoff.delay(i)); err != nil {
				return zero, err
			}
		}
	}
	return zero, lastErr
}
