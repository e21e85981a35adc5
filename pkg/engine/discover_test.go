package engine

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// devtoolsStub serves a minimal /json/version endpoint on loopback and
// returns the port it listens on.
func devtoolsStub(t *testing.T, handler http.HandlerFunc) int {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return ts.Listener.Addr().(*net.TCPAddr).Port
}

func TestDiscoverControlURL(t *testing.T) {
	port := devtoolsStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"Browser":"Chrome/120.0","webSocketDebuggerUrl":"ws://127.0.0.1:9222/devtools/browser/abc"}`))
	})

	url, err := discoverControlURL(context.Background(), port, 5*time.Second)
	if err != nil {
		t.Fatalf("discoverControlURL failed: %v", err)
	}
	if url != "ws://127.0.0.1:9222/devtools/browser/abc" {
		t.Errorf("Unexpected control url %q", url)
	}
}

func TestDiscoverControlURLRetriesUntilReady(t *testing.T) {
	var calls atomic.Int32
	port := devtoolsStub(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"webSocketDebuggerUrl":"ws://127.0.0.1:9222/devtools/browser/abc"}`))
	})

	url, err := discoverControlURL(context.Background(), port, 10*time.Second)
	if err != nil {
		t.Fatalf("discoverControlURL failed after retries: %v", err)
	}
	if url == "" {
		t.Error("Expected a control url")
	}
	if calls.Load() < 2 {
		t.Errorf("Expected at least 2 attempts, got %d", calls.Load())
	}
}

func TestDiscoverControlURLMissingField(t *testing.T) {
	port := devtoolsStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Browser":"Chrome/120.0"}`))
	})

	_, err := discoverControlURL(context.Background(), port, 2*time.Second)
	if err == nil {
		t.Fatal("Expected error when webSocketDebuggerUrl is absent")
	}
	if !strings.Contains(err.Error(), "webSocketDebuggerUrl") {
		t.Errorf("Error should name the missing field, got %v", err)
	}
}

func TestDiscoverControlURLUnreachable(t *testing.T) {
	// Grab a port and close it so nothing listens there.
	port, err := freePort()
	if err != nil {
		t.Fatalf("freePort failed: %v", err)
	}

	_, err = discoverControlURL(context.Background(), port, 2*time.Second)
	if err == nil {
		t.Fatal("Expected error for unreachable devtools endpoint")
	}
}

func TestProbeTCP(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("Failed to bind listener: %v", err)
		}
		defer ln.Close()

		port := ln.Addr().(*net.TCPAddr).Port
		if err := probeTCP("127.0.0.1", port, time.Second); err != nil {
			t.Errorf("probeTCP failed against live listener: %v", err)
		}
	})

	t.Run("refused", func(t *testing.T) {
		port, err := freePort()
		if err != nil {
			t.Fatalf("freePort failed: %v", err)
		}

		if err := probeTCP("127.0.0.1", port, time.Second); err == nil {
			t.Error("Expected probeTCP to fail against closed port")
		}
	})
}
