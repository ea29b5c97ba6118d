package scraper

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	base := 100 * time.Millisecond
	max := 800 * time.Millisecond

	// Jitter is ±20%, so compare against the pre-jitter value with margin.
	for attempt, want := range []time.Duration{100, 200, 400, 800, 800, 800} {
		d := backoffDelay(base, max, attempt)
		center := want * time.Millisecond
		assert.InDelta(t, float64(center), float64(d), 0.2*float64(center)+1,
			"attempt %d", attempt)
	}
}

func TestRunWithIdentityRetryRecoversFromDenial(t *testing.T) {
	calls := 0
	attempts, err := runWithIdentityRetry(3, time.Millisecond, 2*time.Millisecond, func(attempt int) error {
		calls++
		if attempt == 1 {
			return ErrAccessDenied
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, calls)
}

func TestRunWithIdentityRetryGivesUpAfterMaxAttempts(t *testing.T) {
	attempts, err := runWithIdentityRetry(3, time.Millisecond, 2*time.Millisecond, func(int) error {
		return ErrAccessDenied
	})
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, 3, attempts)
}

func TestRunWithIdentityRetryDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("browser crashed")
	calls := 0
	attempts, err := runWithIdentityRetry(3, time.Millisecond, 2*time.Millisecond, func(int) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}
