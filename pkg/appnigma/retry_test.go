package appnigma

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func recordingPolicy(delays *[]time.Duration) RetryPolicy {
	policy := DefaultRetryPolicy()
	policy.Sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return policy
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	calls := 0

	result, err := Retry(context.Background(), recordingPolicy(&delays), func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &APIError{StatusCode: 500, Code: "internal_error", Message: "boom"}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result != "ok" {
		t.Errorf("expected result=ok, got %q", result)
	}

	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}

	if len(delays) != 2 {
		t.Fatalf("expected 2 waits, got %d", len(delays))
	}

	if delays[1] <= delays[0] {
		t.Errorf("expected strictly increasing delays, got %v then %v", delays[0], delays[1])
	}
}

func TestRetry_TerminalNotRetried(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	calls := 0
	terminal := &APIError{StatusCode: 400, Code: "bad_request", Message: "malformed id"}

	_, err := Retry(context.Background(), recordingPolicy(&delays), func(_ context.Context) (string, error) {
		calls++
		return "", terminal
	})

	if !errors.Is(err, terminal) {
		t.Errorf("expected terminal error to surface unchanged, got: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected exactly one attempt for terminal error, got %d", calls)
	}

	if len(delays) != 0 {
		t.Errorf("expected no waits for terminal error, got %v", delays)
	}
}

func TestRetry_InvalidRequestNotRetried(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request should reach the server for an invalid descriptor")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	defer client.Close()

	var delays []time.Duration
	calls := 0

	_, err := Retry(context.Background(), recordingPolicy(&delays), func(ctx context.Context) (json.RawMessage, error) {
		calls++
		return client.Proxy(ctx, "conn-1", ProxyRequest{Method: "TRACE", Path: "/x"})
	})

	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected validation error to surface unchanged, got: %v", err)
	}

	var maxErr *MaxRetriesError
	if errors.As(err, &maxErr) {
		t.Errorf("validation failure must not exhaust the retry budget, got: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls)
	}

	if len(delays) != 0 {
		t.Errorf("expected no waits for a local validation failure, got %v", delays)
	}
}

func TestRetry_MaxRetriesExceeded(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	policy := recordingPolicy(&delays)
	policy.MaxRetries = 2
	calls := 0
	last := &APIError{StatusCode: 503, Code: "unavailable", Message: "down"}

	_, err := Retry(context.Background(), policy, func(_ context.Context) (string, error) {
		calls++
		return "", last
	})

	var maxErr *MaxRetriesError
	if !errors.As(err, &maxErr) {
		t.Fatalf("expected *MaxRetriesError, got: %v", err)
	}

	if maxErr.Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", maxErr.Attempts)
	}

	// Gave up, but the last underlying failure is still reachable.
	if !errors.Is(err, last) {
		t.Errorf("expected wrapped last error, got: %v", err)
	}

	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestRetry_RateLimitedWaitsLonger(t *testing.T) {
	t.Parallel()

	firstDelay := func(status int) time.Duration {
		var delays []time.Duration
		policy := recordingPolicy(&delays)
		calls := 0
		_, err := Retry(context.Background(), policy, func(_ context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", &APIError{StatusCode: status, Code: "err", Message: "err"}
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(delays) != 1 {
			t.Fatalf("expected one wait, got %d", len(delays))
		}
		return delays[0]
	}

	serverErrorDelay := firstDelay(500)
	rateLimitDelay := firstDelay(429)

	if rateLimitDelay <= serverErrorDelay {
		t.Errorf("expected 429 wait (%v) to exceed 5xx wait (%v)", rateLimitDelay, serverErrorDelay)
	}
}

func TestRetry_QuotaExhaustedFloor(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	policy := recordingPolicy(&delays)
	policy.QuotaExhaustedWait = 5 * time.Minute
	calls := 0

	_, err := Retry(context.Background(), policy, func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &APIError{
				StatusCode: 429,
				Code:       "rate_limited",
				Message:    "quota exceeded",
				Details:    &RateLimitDetails{PlanLimit: 1000, CurrentUsage: 1000},
			}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(delays) != 1 || delays[0] != 5*time.Minute {
		t.Errorf("expected wait floored at QuotaExhaustedWait, got %v", delays)
	}
}

func TestRetry_ContextCancelDuringWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	policy := DefaultRetryPolicy()
	policy.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := Retry(ctx, policy, func(_ context.Context) (string, error) {
		return "", &APIError{StatusCode: 500, Code: "internal_error", Message: "boom"}
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}
