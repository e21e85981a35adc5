package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
)

func TestForceIPv4(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"localhost rewritten", "ws://localhost:37367/default", "ws://127.0.0.1:37367/default"},
		{"ipv4 unchanged", "ws://127.0.0.1:37367/default", "ws://127.0.0.1:37367/default"},
		{"container name unchanged", "ws://browserd-vnc-abc123:37367/default", "ws://browserd-vnc-abc123:37367/default"},
		{"localhost without port", "ws://localhost/default", "ws://127.0.0.1/default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := forceIPv4(tt.in); got != tt.want {
				t.Errorf("forceIPv4(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConnectWithRetrySucceedsAfterFailures(t *testing.T) {
	var attempts int
	var dialed string
	dial := func(endpoint string) (playwright.Browser, error) {
		attempts++
		dialed = endpoint
		if attempts < 2 {
			return nil, errors.New("connection refused")
		}
		return nil, nil
	}

	_, err := connectWithRetry(context.Background(), dial, "ws://localhost:37367/default", 30*time.Second)
	if err != nil {
		t.Fatalf("connectWithRetry failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 dial attempts, got %d", attempts)
	}
	if dialed != "ws://127.0.0.1:37367/default" {
		t.Errorf("Dial should receive the IPv4-forced endpoint, got %q", dialed)
	}
}

func TestConnectWithRetryTimesOut(t *testing.T) {
	dial := func(endpoint string) (playwright.Browser, error) {
		return nil, errors.New("connection refused")
	}

	port, err := freePort()
	if err != nil {
		t.Fatalf("freePort failed: %v", err)
	}

	start := time.Now()
	endpoint := fmt.Sprintf("ws://127.0.0.1:%d/default", port)
	_, err = connectWithRetry(context.Background(), dial, endpoint, time.Second)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Timed-out connect took too long: %s", elapsed)
	}
}

func TestConnectWithRetryHonorsContext(t *testing.T) {
	dial := func(endpoint string) (playwright.Browser, error) {
		return nil, errors.New("connection refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := connectWithRetry(ctx, dial, "ws://127.0.0.1:37367/default", time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestConnectWithRetryRejectsBadEndpoint(t *testing.T) {
	dial := func(endpoint string) (playwright.Browser, error) {
		t.Fatal("dial should not be called for an invalid endpoint")
		return nil, nil
	}

	if _, err := connectWithRetry(context.Background(), dial, "ws://", time.Second); err == nil {
		t.Error("Expected error for endpoint without host")
	}
}
