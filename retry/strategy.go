// Package retry provides exponential backoff strategies for callers that wait on
// eventually-consistent state, such as consumers converging on declared offsets.
package retry

import (
	"fmt"
	"math"
	"time"
)

// Strategy defines the polling behavior: how many times to check and how long to wait
// in between. It implements exponential backoff with configurable parameters.
//
// The wait schedule follows: delay = min(BaseDelay * ExponentialBase^attempt, MaxDelay)
//
// Example with defaults (500ms base, 2.0 exponential, 30s max):
//
//	After check 1: 500ms
//	After check 2: 1s
//	After check 3: 2s
//	...
//	After check 7+: 30s
type Strategy struct {
	MaxAttempts     int           // Maximum number of checks before giving up
	BaseDelay       time.Duration // Initial wait (after the first check)
	MaxDelay        time.Duration // Maximum wait cap
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the default convergence polling strategy.
// Configuration: 20 checks, 500ms→30s exponential backoff, roughly 7 minutes in total.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     20,
		BaseDelay:       500 * time.Millisecond,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2.0,
	}
}

// CalculateRetryDelay calculates the wait after a given attempt using exponential backoff.
// Formula: delay = min(BaseDelay * ExponentialBase^attemptNumber, MaxDelay)
func (s Strategy) CalculateRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber <= 0 {
		return s.BaseDelay
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(attemptNumber))

	// Cap at max delay
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}

	return time.Duration(delay)
}

// IsRetryable checks if another attempt is allowed.
// Returns true if the attempt count is below the maximum attempts limit.
func (s Strategy) IsRetryable(attemptCount int) bool {
	return attemptCount < s.MaxAttempts
}

// GetRetrySchedule returns a human-readable description of the wait schedule.
//
// Example output:
//
//	Poll Schedule:
//	  Check 1, then wait 500ms
//	  Check 2, then wait 1s
//	  ...
//	  Check 20, then give up
func (s Strategy) GetRetrySchedule() string {
	schedule := "Poll Schedule:\n"
	for i := 1; i <= s.MaxAttempts; i++ {
		if i == s.MaxAttempts {
			schedule += fmt.Sprintf("  Check %d, then give up\n", i)
			break
		}
		schedule += fmt.Sprintf("  Check %d, then wait %v\n", i, s.CalculateRetryDelay(i-1))
	}
	return schedule
}
