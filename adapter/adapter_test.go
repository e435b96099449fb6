package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var errPermanent = errors.New("permanent")

func TestRetrier_Do(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		failFirst int
		err       error
		wantCalls int
		wantErr   string
	}{
		{name: "first try", retries: 3, failFirst: 0, wantCalls: 1},
		{name: "succeeds on retry", retries: 3, failFirst: 2, err: errors.New("flaky"), wantCalls: 3},
		{name: "exhausted", retries: 2, failFirst: 10, err: errors.New("down"), wantCalls: 3, wantErr: "failed after 3 attempts"},
		{name: "permanent", retries: 3, failFirst: 10, err: errPermanent, wantCalls: 1, wantErr: "non-retriable"},
		{name: "no retries", retries: 0, failFirst: 10, err: errors.New("down"), wantCalls: 1, wantErr: "failed after 1 attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Retrier{
				Name:      "test",
				Retries:   tt.retries,
				Backoff:   time.Millisecond,
				Permanent: func(err error) bool { return errors.Is(err, errPermanent) },
			}
			calls := 0
			err := r.Do(t.Context(), func(context.Context) error {
				calls++
				if calls <= tt.failFirst {
					return tt.err
				}
				return nil
			})

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("error should wrap the last attempt's error")
			}
		})
	}
}

func TestRetrier_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	r := Retrier{Name: "test", Retries: 3, Backoff: time.Hour}

	calls := 0
	err := r.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
