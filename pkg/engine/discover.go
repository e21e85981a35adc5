package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

// discoverTimeout bounds how long Start waits for the engine's devtools
// endpoint to come up after the process is spawned.
const discoverTimeout = 30 * time.Second

// versionInfo is the subset of /json/version we need.
type versionInfo struct {
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// probeTCP tests whether host:port accepts TCP connections.
func probeTCP(host string, port int, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return fmt.Errorf("tcp connection to %s:%d failed: %w", host, port, err)
	}
	return conn.Close()
}

// discoverControlURL polls the engine's devtools version endpoint until it
// reports a browser-level websocket debugger URL. The engine needs a moment
// after spawn before the devtools server accepts connections, so failures
// are retried with capped exponential backoff.
func discoverControlURL(ctx context.Context, debugPort int, timeout time.Duration) (string, error) {
	versionURL := fmt.Sprintf("http://127.0.0.1:%d/json/version", debugPort)
	deadline := time.Now().Add(timeout)

	client := &http.Client{Timeout: 3 * time.Second}

	var lastErr error
	for attempt := 0; time.Now().Before(deadline); attempt++ {
		url, err := fetchDebuggerURL(ctx, client, versionURL)
		if err == nil {
			return url, nil
		}
		lastErr = err

		if err := sleepBackoff(ctx, attempt, deadline); err != nil {
			return "", err
		}
	}

	if probeErr := probeTCP("127.0.0.1", debugPort, time.Second); probeErr != nil {
		return "", fmt.Errorf("engine devtools endpoint never became reachable: %w", probeErr)
	}
	return "", fmt.Errorf("engine devtools endpoint did not report a debugger url in %s: %w", timeout, lastErr)
}

func fetchDebuggerURL(ctx context.Context, client *http.Client, versionURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("devtools version endpoint returned %s", resp.Status)
	}

	var info versionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode devtools version response: %w", err)
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("devtools version response has no webSocketDebuggerUrl")
	}

	return info.WebSocketDebuggerURL, nil
}

// sleepBackoff waits 2^attempt seconds capped at 3s, plus jitter, but never
// past the deadline or a cancelled context.
func sleepBackoff(ctx context.Context, attempt int, deadline time.Time) error {
	base := time.Second << uint(min(attempt, 2))
	if base > 3*time.Second {
		base = 3 * time.Second
	}
	delay := base/2 + time.Duration(rand.Int63n(int64(base/2+1)))

	if remaining := time.Until(deadline); delay > remaining {
		delay = remaining
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
