package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_Concurrency(t *testing.T) {
	mock := NewMockProvider(nil, nil)

	cfg := RateLimiterConfig{
		RequestsPerMinute: 600, // 10/sec
		Burst:             10,
		MaxRetries:        0,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
	}

	rl, err := NewRateLimitedProvider(mock, cfg)
	if err != nil {
		t.Fatalf("NewRateLimitedProvider: %v", err)
	}

	const numRequests = 20
	var wg sync.WaitGroup
	errs := make(chan error, numRequests)

	start := time.Now()
	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := &CompletionRequest{Messages: []Message{{Role: "user", Content: "hello"}}}
			if _, err := rl.Complete(context.Background(), req); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)
	elapsed := time.Since(start)

	for e := range errs {
		t.Errorf("unexpected error: %v", e)
	}

	// First 10 are instant, remaining 10 at 10/sec ≈ 1s.
	if elapsed < 800*time.Millisecond {
		t.Errorf("expected wall-clock >= 800ms (proves rate limiting), got %v", elapsed)
	}
	if got := mock.GetCallCount(); got != numRequests {
		t.Errorf("expected %d calls to mock, got %d", numRequests, got)
	}
}

func TestRateLimiter_RetryOnError(t *testing.T) {
	success := &CompletionResponse{Content: `{"summary": "ok"}`, Model: "mock-model"}
	mock := NewMockProvider(
		[]*CompletionResponse{success},
		[]error{fmt.Errorf("transient error 1"), fmt.Errorf("transient error 2"), nil},
	)

	rl, err := NewRateLimitedProvider(mock, RateLimiterConfig{
		RequestsPerMinute: 600,
		Burst:             10,
		MaxRetries:        3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRateLimitedProvider: %v", err)
	}

	resp, err := rl.Complete(context.Background(), &CompletionRequest{})
	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if resp.Content != success.Content {
		t.Errorf("unexpected response content: %s", resp.Content)
	}
	if got := mock.GetCallCount(); got != 3 {
		t.Errorf("expected 3 calls (2 failures + 1 success), got %d", got)
	}
}

func TestRateLimiter_GivesUp(t *testing.T) {
	permanent := errors.New("permanent")
	mock := NewMockProvider(nil, []error{permanent, permanent, permanent})

	rl, err := NewRateLimitedProvider(mock, RateLimiterConfig{
		RequestsPerMinute: 600,
		Burst:             10,
		MaxRetries:        1,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRateLimitedProvider: %v", err)
	}

	_, err = rl.Complete(context.Background(), &CompletionRequest{})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want wrapped permanent error", err)
	}
	if got := mock.GetCallCount(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestNewRateLimitedProvider_Validation(t *testing.T) {
	if _, err := NewRateLimitedProvider(nil, DefaultRateLimiterConfig); err == nil {
		t.Error("expected error for nil provider")
	}
	if _, err := NewRateLimitedProvider(NewMockProvider(nil, nil), RateLimiterConfig{}); err == nil {
		t.Error("expected error for zero RequestsPerMinute")
	}
}
