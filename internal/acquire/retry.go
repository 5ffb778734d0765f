package acquire

import (
	"math"
	"time"
)

// Default waits between attempts.
const (
	DefaultMetadataBackoff               = 60 * time.Second
	DefaultFailureBackoff  time.Duration = 0
)

// RetryPolicy bounds and spaces attempts for one item.
type RetryPolicy struct {
	// MaxAttempts caps attempts per item; 0 retries until success or cancellation.
	MaxAttempts int

	// MetadataBackoff is the wait after a failed catalog lookup.
	MetadataBackoff time.Duration

	// FailureBackoff is the wait after a failed fetch, conversion or tagging.
	FailureBackoff time.Duration

	// Exponent grows both waits per attempt; values below 1 mean fixed waits.
	Exponent float64
}

// DefaultRetryPolicy retries forever with a fixed metadata backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MetadataBackoff: DefaultMetadataBackoff,
		FailureBackoff:  DefaultFailureBackoff,
		Exponent:        1,
	}
}

// exhausted reports whether attempt (1-based) is beyond the bound.
func (p RetryPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}

// delay scales base for the given 1-based attempt.
func (p RetryPolicy) delay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if p.Exponent <= 1 || attempt <= 1 {
		return base
	}
	return time.Duration(float64(base) * math.Pow(p.Exponent, float64(attempt-1)))
}
