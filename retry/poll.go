package retry

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned by Poll when the condition still does not hold after the
// last attempt.
var ErrExhausted = errors.New("retry: condition not met within attempts")

// errNotYet marks a check that reported false, so backoff schedules another one.
var errNotYet = errors.New("retry: condition not met")

// Check reports whether the awaited condition holds.
type Check func(ctx context.Context) (bool, error)

// Poll calls check until it reports true, waiting between calls according to s.
//
// An error from check stops polling and is returned as is. Poll returns ErrExhausted
// once s.MaxAttempts checks all reported false (at least one check is always made), and
// ctx.Err() if ctx is done while waiting.
func Poll(ctx context.Context, s Strategy, check Check) error {
	err := backoff.Retry(func() error {
		ok, err := check(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotYet
		}
		return nil
	}, s.backOff(ctx))
	if errors.Is(err, errNotYet) {
		return ErrExhausted
	}
	return err
}

// backOff builds the wait schedule of s: no jitter, no elapsed-time cap, and
// MaxAttempts-1 waits.
func (s Strategy) backOff(ctx context.Context) backoff.BackOff {
	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = s.BaseDelay
	boff.MaxInterval = s.MaxDelay
	boff.Multiplier = s.ExponentialBase
	boff.RandomizationFactor = 0
	boff.MaxElapsedTime = 0

	if !s.IsRetryable(1) {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	return backoff.WithContext(backoff.WithMaxRetries(boff, uint64(s.MaxAttempts-1)), ctx)
}
