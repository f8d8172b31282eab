package qbo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"qbridge/internal/domain"
	"qbridge/internal/qbo"
)

func recordingPolicy(delays *[]time.Duration) qbo.RetryPolicy {
	p := qbo.DefaultRetryPolicy()
	p.Sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return p
}

func TestRetryPolicy_EventualSuccess(t *testing.T) {
	var delays []time.Duration
	p := recordingPolicy(&delays)

	calls := 0
	err := p.Do(context.Background(), nil, func() (int, error) {
		calls++
		if calls <= 2 {
			return 429, errors.New("throttled")
		}
		return 200, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestRetryPolicy_NonRetryableStatus(t *testing.T) {
	var delays []time.Duration
	p := recordingPolicy(&delays)

	calls := 0
	err := p.Do(context.Background(), nil, func() (int, error) {
		calls++
		return 400, errors.New("bad request")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestRetryPolicy_BudgetExhausted(t *testing.T) {
	var delays []time.Duration
	p := recordingPolicy(&delays)

	calls := 0
	err := p.Do(context.Background(), nil, func() (int, error) {
		calls++
		return 503, errors.New("unavailable")
	})

	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)
}

func TestRetryPolicy_TransportErrorNotRetried(t *testing.T) {
	var delays []time.Duration
	p := recordingPolicy(&delays)

	err := p.Do(context.Background(), nil, func() (int, error) {
		return 0, errors.New("connection refused")
	})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.Empty(t, delays)
}
