package agentic

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func testPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	v, err := RetryWithPolicy(context.Background(), testPolicy(3),
		func(ctx context.Context) (int, error) {
			calls++
			return 42, nil
		},
		ClassifyModelError, nil)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if v != 42 || calls != 1 {
		t.Errorf("v=%d calls=%d, want 42 and 1", v, calls)
	}
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	calls := 0
	var retries []int
	v, err := RetryWithPolicy(context.Background(), testPolicy(3),
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", &ModelClientError{Err: errors.New("overloaded"), HTTPStatus: 503}
			}
			return "ok", nil
		},
		ClassifyModelError,
		func(attempt int, delay time.Duration, err error) {
			retries = append(retries, attempt)
		})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if v != "ok" || calls != 3 {
		t.Errorf("v=%q calls=%d, want ok and 3", v, calls)
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("onRetry attempts = %v, want [1 2]", retries)
	}
}

func TestRetryNonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	_, err := RetryWithPolicy(context.Background(), testPolicy(3),
		func(ctx context.Context) (int, error) {
			calls++
			return 0, &ModelClientError{Err: errors.New("bad key"), HTTPStatus: 401}
		},
		ClassifyModelError, nil)
	if err == nil {
		t.Fatal("want error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if IsRetryExhausted(err) {
		t.Error("non-retryable failure should not be wrapped as exhausted")
	}
}

func TestRetryExhaustion(t *testing.T) {
	calls := 0
	_, err := RetryWithPolicy(context.Background(), testPolicy(2),
		func(ctx context.Context) (int, error) {
			calls++
			return 0, &ModelClientError{Err: errors.New("flappy"), HTTPStatus: 500}
		},
		ClassifyModelError, nil)
	if !IsRetryExhausted(err) {
		t.Fatalf("err = %v, want RetryExhaustedError", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
	// The underlying cause stays reachable.
	var mce *ModelClientError
	if !errors.As(err, &mce) {
		t.Errorf("cause not unwrappable from %v", err)
	}
}

func TestRetryMaybeClassCappedAtTwoRetries(t *testing.T) {
	calls := 0
	_, err := RetryWithPolicy(context.Background(), testPolicy(10),
		func(ctx context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("request timeout")
		},
		ClassifyModelError, nil)
	if !IsRetryExhausted(err) {
		t.Fatalf("err = %v, want RetryExhaustedError", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 despite MaxRetries=10", calls)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := RetryWithPolicy(ctx, testPolicy(5),
		func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, &ModelClientError{Err: errors.New("blip"), HTTPStatus: 500}
		},
		ClassifyModelError, nil)
	if err == nil {
		t.Fatal("want error after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCalculateDelayHonorsRetryAfter(t *testing.T) {
	policy := RetryPolicy{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	err := &ModelClientError{Err: errors.New("slow down"), HTTPStatus: 429, RetryAfter: "3"}
	if d := calculateDelay(policy, 0, err); d != 3*time.Second {
		t.Errorf("delay = %v, want 3s from Retry-After", d)
	}

	// Retry-After beyond MaxDelay is capped.
	err.RetryAfter = "120"
	if d := calculateDelay(policy, 0, err); d != 10*time.Second {
		t.Errorf("delay = %v, want MaxDelay cap", d)
	}
}

func TestCalculateDelayExponentialBackoff(t *testing.T) {
	policy := RetryPolicy{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	plain := errors.New("boom")

	if d := calculateDelay(policy, 0, plain); d != time.Second {
		t.Errorf("attempt 0 delay = %v, want 1s", d)
	}
	if d := calculateDelay(policy, 2, plain); d != 4*time.Second {
		t.Errorf("attempt 2 delay = %v, want 4s", d)
	}
	if d := calculateDelay(policy, 10, plain); d != 30*time.Second {
		t.Errorf("attempt 10 delay = %v, want MaxDelay cap", d)
	}
}
