package scraper

import (
	"errors"
	"math/rand"
	"time"
)

// backoffDelay grows exponentially from base, capped at max, with ±20%
// jitter so concurrent workers don't retry in lockstep.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	jitter := time.Duration((rand.Float64() - 0.5) * 0.4 * float64(d))
	return d + jitter
}

// runWithIdentityRetry runs fn up to maxAttempts times, retrying only on
// access denial (the caller is expected to present a fresh identity each
// attempt). It returns the number of attempts consumed and the final error.
func runWithIdentityRetry(maxAttempts int, base, max time.Duration, fn func(attempt int) error) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		if !errors.Is(err, ErrAccessDenied) {
			return attempt, err
		}
		if attempt < maxAttempts {
			time.Sleep(backoffDelay(base, max, attempt-1))
		}
	}
	return maxAttempts, lastErr
}
