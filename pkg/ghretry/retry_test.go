package ghretry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResp(status int, headers map[string]string) *http.Response {
	req, _ := http.NewRequest(http.MethodGet, "https://api.github.com/repos/o/r/tags", nil)
	resp := &http.Response{
		StatusCode: status,
		Request:    req,
		Header:     http.Header{},
	}
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	return resp
}

func primaryLimitErr(remaining int, reset time.Time) *github.RateLimitError {
	return &github.RateLimitError{
		Rate: github.Rate{
			Limit:     5000,
			Remaining: remaining,
			Reset:     github.Timestamp{Time: reset},
		},
		Response: newResp(http.StatusForbidden, map[string]string{
			"X-RateLimit-Resource": "core",
			"X-RateLimit-Limit":    "5000",
			"X-RateLimit-Used":     "5000",
		}),
		Message: "API rate limit exceeded",
	}
}

func notFoundErr() *github.ErrorResponse {
	return &github.ErrorResponse{
		Response: newResp(http.StatusNotFound, nil),
		Message:  "Not Found",
	}
}

// testConfig returns a config with deterministic time, no real sleeping,
// and a recorder for every computed delay.
func testConfig(maxAttempts int, jitter time.Duration, slept *[]time.Duration) Config {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return Config{
		MaxAttempts: maxAttempts,
		BaseDelay:   1 * time.Second,
		now:         func() time.Time { return now },
		jitter:      func() time.Duration { return jitter },
		sleep: func(_ context.Context, d time.Duration) error {
			if slept != nil {
				*slept = append(*slept, d)
			}
			return nil
		},
	}
}

func TestDoReturnsResultOnFirstSuccess(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), testConfig(5, 0, nil), "list tags", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	var slept []time.Duration
	calls := 0
	got, err := Do(context.Background(), testConfig(5, 0, &slept), "list tags", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &github.ErrorResponse{
				Response: newResp(http.StatusForbidden, nil),
				Message:  "API rate limit exceeded for installation",
			}
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
	require.Len(t, slept, 2)
	// Generic transient errors use plain exponential backoff.
	assert.Equal(t, 1*time.Second, slept[0])
	assert.Equal(t, 2*time.Second, slept[1])
}

func TestDoAttemptsExactlyMaxThenExhausted(t *testing.T) {
	var slept []time.Duration
	calls := 0
	_, err := Do(context.Background(), testConfig(5, 0, &slept), "create ref", func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, primaryLimitErr(0, time.Now().Add(time.Minute))
	})
	require.Error(t, err)
	assert.Equal(t, 5, calls)
	// No sleep after the final attempt.
	assert.Len(t, slept, 4)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)
	assert.Equal(t, "core", exhausted.Resource)
	assert.Equal(t, "5000", exhausted.Limit)
	assert.Equal(t, "5000", exhausted.Used)
	assert.ErrorContains(t, err, "retries exhausted")
}

func TestDoDoesNotRetryNotFound(t *testing.T) {
	var slept []time.Duration
	calls := 0
	_, err := Do(context.Background(), testConfig(5, 0, &slept), "get repo", func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, notFoundErr()
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, slept)

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestDelayWaitsUntilPrimaryLimitReset(t *testing.T) {
	cfg := testConfig(5, 0, nil)
	cfg.applyDefaults()

	reset := cfg.now().Add(30 * time.Second)
	cls := classify(primaryLimitErr(0, reset))
	require.Equal(t, kindPrimary, cls.kind)

	// With zero jitter the delay is exactly the time until reset; with the
	// maximum jitter it stays under reset+1s.
	assert.Equal(t, 30*time.Second, cfg.delay(1, cls))

	cfg.jitter = func() time.Duration { return 999 * time.Millisecond }
	d := cfg.delay(1, cls)
	assert.GreaterOrEqual(t, d, 30*time.Second)
	assert.Less(t, d, 31*time.Second)
}

func TestDelayClampsPastResetToZero(t *testing.T) {
	cfg := testConfig(5, 0, nil)
	cfg.applyDefaults()

	cls := classify(primaryLimitErr(0, cfg.now().Add(-10*time.Second)))
	assert.Equal(t, time.Duration(0), cfg.delay(1, cls))
}

func TestDelayHonorsRetryAfter(t *testing.T) {
	cfg := testConfig(5, 0, nil)
	cfg.applyDefaults()

	after := 7 * time.Second
	cls := classify(&github.AbuseRateLimitError{
		Response:   newResp(http.StatusForbidden, nil),
		Message:    "You have exceeded a secondary rate limit",
		RetryAfter: &after,
	})
	require.Equal(t, kindSecondary, cls.kind)
	assert.Equal(t, 7*time.Second, cfg.delay(1, cls))
}

func TestDelayFloorsUnspecifiedSecondaryLimit(t *testing.T) {
	cfg := testConfig(5, 0, nil)
	cfg.applyDefaults()

	cls := classify(&github.AbuseRateLimitError{
		Response: newResp(http.StatusForbidden, nil),
		Message:  "You have exceeded a secondary rate limit",
	})
	assert.Equal(t, 60*time.Second, cfg.delay(1, cls))
	// The floor gives way once exponential backoff exceeds it.
	assert.Equal(t, 128*time.Second, cfg.delay(8, cls))
}

func TestClassifyRateLimitMarkerInPlainError(t *testing.T) {
	cls := classify(errors.New("POST failed: rate limit hit"))
	assert.Equal(t, kindTransient, cls.kind)

	cls = classify(errors.New("connection refused"))
	assert.Equal(t, kindFatal, cls.kind)
}

func TestClassifyStatusCodes(t *testing.T) {
	cls := classify(&github.ErrorResponse{Response: newResp(http.StatusTooManyRequests, nil), Message: "slow down"})
	assert.Equal(t, kindTransient, cls.kind)

	cls = classify(&github.ErrorResponse{Response: newResp(http.StatusForbidden, nil), Message: "forbidden"})
	assert.Equal(t, kindTransient, cls.kind)

	cls = classify(&github.ErrorResponse{Response: newResp(http.StatusUnprocessableEntity, nil), Message: "Validation Failed"})
	assert.Equal(t, kindFatal, cls.kind)
}

func TestDoStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{MaxAttempts: 5, BaseDelay: time.Second}
	calls := 0
	_, err := Do(ctx, cfg, "list tags", func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, primaryLimitErr(0, time.Now().Add(time.Hour))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}
