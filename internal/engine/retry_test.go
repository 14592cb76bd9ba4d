package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

var fastRetry = RetryConfig{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 10 * time.Millisecond, Multiplier: 2}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", &UpstreamError{Service: "x", Status: 429}, true},
		{"http 502", &UpstreamError{Service: "x", Status: 502}, true},
		{"http 503", &UpstreamError{Service: "x", Status: 503}, true},
		{"http 404", &UpstreamError{Service: "x", Status: 404}, false},
		{"regular error", errors.New("something"), false},
		{"timeout", &net.DNSError{IsTimeout: true}, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryDoSuccess(t *testing.T) {
	calls := 0
	got, err := RetryDo(context.Background(), fastRetry, func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryDoRetryThenSuccess(t *testing.T) {
	calls := 0
	got, err := RetryDo(context.Background(), fastRetry, func() (string, error) {
		calls++
		if calls < 3 {
			return "", &UpstreamError{Service: "x", Status: 503}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryDoExhausted(t *testing.T) {
	rc := fastRetry
	rc.MaxRetries = 2
	calls := 0
	_, err := RetryDo(context.Background(), rc, func() (string, error) {
		calls++
		return "", &UpstreamError{Service: "x", Status: 502}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 { // initial + 2 retries
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryDoNonRetryable(t *testing.T) {
	calls := 0
	_, err := RetryDo(context.Background(), fastRetry, func() (string, error) {
		calls++
		return "", errors.New("permanent error")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retry for non-retryable), got %d", calls)
	}
}

func TestRetryDoContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryDo(ctx, fastRetry, func() (string, error) {
		return "", &UpstreamError{Service: "x", Status: 503}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMetadataRetryConfig(t *testing.T) {
	rc := MetadataRetryConfig
	rc.InitialWait, rc.MaxWait = time.Millisecond, time.Millisecond

	t.Run("two attempts on any error", func(t *testing.T) {
		calls := 0
		_, err := RetryDo(context.Background(), rc, func() (int, error) {
			calls++
			return 0, errors.New("parse failure")
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})

	t.Run("blocked video is not retried", func(t *testing.T) {
		calls := 0
		_, err := RetryDo(context.Background(), rc, func() (int, error) {
			calls++
			return 0, fmt.Errorf("player: %w", ErrPrivateVideo)
		})
		if !errors.Is(err, ErrPrivateVideo) {
			t.Fatalf("expected ErrPrivateVideo, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})
}

func TestWithTimeoutCancelsUnderlyingCall(t *testing.T) {
	stopped := make(chan struct{})
	_, err := WithTimeout(context.Background(), 20*time.Millisecond, "slow op", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		close(stopped)
		return "", ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	select {
	case <-stopped:
	default:
		t.Error("underlying call did not observe cancellation")
	}
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	got, err := WithTimeout(context.Background(), time.Second, "fast op", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("WithTimeout() = %d, %v; want 42, nil", got, err)
	}

	wantErr := errors.New("boom")
	_, err = WithTimeout(context.Background(), time.Second, "failing op", func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected original error, got %v", err)
	}
}
