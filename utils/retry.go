package utils

import (
	"fmt"
	"time"
)

// RetryWithBackoff retries fn up to maxRetries times with quadratic
// backoff. The label identifies the operation in logs (a booking's
// location during scrape attempts), since failures from several bookings
// can interleave across a long unattended run.
func RetryWithBackoff(label string, maxRetries int, fn func() error, logger *Logger) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			logger.Warn("%s: retrying (attempt %d/%d) after %v...", label, attempt+1, maxRetries, backoff)
			time.Sleep(backoff)
		}
		if err := fn(); err != nil {
			lastErr = err
			logger.Error("%s: attempt %d failed: %v", label, attempt+1, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("%s: all %d attempts failed, last error: %w", label, maxRetries, lastErr)
}
