package qbo

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"qbridge/internal/domain"
)

// RetryPolicy controls how the client retries transient remote failures.
// The zero value is unusable; construct with DefaultRetryPolicy.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is doubled on each retry: BaseDelay, 2x, 4x, ...
	BaseDelay time.Duration
	// RetryableStatus reports whether an HTTP status warrants a retry.
	RetryableStatus func(status int) bool
	// Sleep waits for the backoff delay; injectable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy retries 429/500/503 three times with 1s/2s/4s delays.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		RetryableStatus: func(status int) bool {
			return status == 429 || status == 500 || status == 503
		},
		Sleep: sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn until it succeeds, fails with a non-retryable status, or the
// retry budget is spent. fn reports the HTTP status it observed (0 for
// transport errors, which are not retried).
func (p RetryPolicy) Do(ctx context.Context, log *logrus.Logger, fn func() (int, error)) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		status, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if p.RetryableStatus == nil || !p.RetryableStatus(status) {
			return err
		}
		if attempt >= p.MaxRetries {
			return fmt.Errorf("%w after %d attempts: %v", domain.ErrRetriesExhausted, attempt+1, lastErr)
		}
		delay := p.BaseDelay << uint(attempt)
		if log != nil {
			log.WithFields(logrus.Fields{
				"status":  status,
				"attempt": attempt + 1,
				"delay":   delay.String(),
			}).Warn("remote query retry")
		}
		if err := p.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}
