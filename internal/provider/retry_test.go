package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyvideo-server/shared/models"
)

func recordingPolicy(maxAttempts int, delays *[]time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   100 * time.Millisecond,
		Sleep: func(_ context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		},
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	var delays []time.Duration
	calls := 0
	result, err := Do(context.Background(), recordingPolicy(3, &delays), "test", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestDo_RetriesWithLinearBackoff(t *testing.T) {
	var delays []time.Duration
	calls := 0
	result, err := Do(context.Background(), recordingPolicy(3, &delays), "test", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &models.ProviderError{Kind: models.ProviderErrRateLimited, Message: "slow down"}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
	// линейный рост: base, 2*base
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)
}

func TestDo_AuthErrorNotRetried(t *testing.T) {
	var delays []time.Duration
	calls := 0
	_, err := Do(context.Background(), recordingPolicy(3, &delays), "test", func(context.Context) (int, error) {
		calls++
		return 0, &models.ProviderError{Kind: models.ProviderErrAuthInvalid, Message: "bad key"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)

	var provErr *models.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, models.ProviderErrAuthInvalid, provErr.Kind)
}

func TestDo_SafetyFilteredNotRetried(t *testing.T) {
	var delays []time.Duration
	calls := 0
	_, err := Do(context.Background(), recordingPolicy(3, &delays), "test", func(context.Context) (int, error) {
		calls++
		return 0, &models.ProviderError{Kind: models.ProviderErrSafetyFiltered, Message: "blocked"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	var delays []time.Duration
	calls := 0
	_, err := Do(context.Background(), recordingPolicy(3, &delays), "test", func(context.Context) (int, error) {
		calls++
		return 0, &models.ProviderError{Kind: models.ProviderErrUnavailable, Message: "down"}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)

	var provErr *models.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, models.ProviderErrUnavailable, provErr.Kind)
}

func TestDo_ClassifiesRawErrors(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 1}
	_, err := Do(context.Background(), policy, "test", func(context.Context) (int, error) {
		return 0, errors.New("something odd")
	})
	require.Error(t, err)

	var provErr *models.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, models.ProviderErrUnknown, provErr.Kind)
}

func TestDo_ContextCancelAbortsBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}
	calls := 0
	_, err := Do(ctx, policy, "test", func(context.Context) (int, error) {
		calls++
		return 0, &models.ProviderError{Kind: models.ProviderErrUnavailable, Message: "down"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status  int
		message string
		want    models.ProviderErrorKind
	}{
		{401, "invalid key", models.ProviderErrAuthInvalid},
		{403, "forbidden", models.ProviderErrAuthInvalid},
		{429, "too many requests", models.ProviderErrRateLimited},
		{504, "gateway timeout", models.ProviderErrTimeout},
		{400, "request blocked by safety system", models.ProviderErrSafetyFiltered},
		{503, "overloaded", models.ProviderErrUnavailable},
		{400, "bad field", models.ProviderErrUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyStatus(tc.status, tc.message), "status %d %q", tc.status, tc.message)
	}
}
