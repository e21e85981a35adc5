package engine

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/playwright-community/playwright-go"
)

// maxConnectRetries caps the number of dial attempts regardless of timeout.
const maxConnectRetries = 15

// dialFunc abstracts the CDP dial for tests.
type dialFunc func(endpoint string) (playwright.Browser, error)

// ConnectWithRetry dials the control endpoint of a running session server
// over CDP, waiting for the endpoint to become reachable. Intended for
// control clients colocated with the server, e.g. an orchestrator that just
// spawned a browserd process and parsed its announce line.
func ConnectWithRetry(ctx context.Context, bt playwright.BrowserType, endpoint string, timeout time.Duration) (playwright.Browser, error) {
	return connectWithRetry(ctx, func(u string) (playwright.Browser, error) {
		return bt.ConnectOverCDP(u)
	}, endpoint, timeout)
}

func connectWithRetry(ctx context.Context, dial dialFunc, endpoint string, timeout time.Duration) (playwright.Browser, error) {
	// Force IPv4 for localhost endpoints to avoid IPv6/IPv4 resolution
	// mismatches between client and listener.
	endpoint = forceIPv4(endpoint)

	host, port, err := endpointHostPort(endpoint)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	maxRetries := int(timeout / (2 * time.Second))
	if maxRetries > maxConnectRetries {
		maxRetries = maxConnectRetries
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries && time.Now().Before(deadline); attempt++ {
		browser, err := dial(endpoint)
		if err == nil {
			return browser, nil
		}
		lastErr = err

		if err := sleepBackoff(ctx, attempt, deadline); err != nil {
			return nil, err
		}
	}

	if probeErr := probeTCP(host, port, time.Second); probeErr != nil {
		return nil, fmt.Errorf("browser endpoint %s did not become available in %s; %v (last dial error: %w)",
			endpoint, timeout, probeErr, lastErr)
	}
	return nil, fmt.Errorf("browser endpoint %s did not become available in %s: %w", endpoint, timeout, lastErr)
}

// forceIPv4 rewrites a localhost endpoint to 127.0.0.1. Named hosts
// (e.g. container DNS names) are left untouched.
func forceIPv4(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() != "localhost" {
		return endpoint
	}

	port := u.Port()
	if port == "" {
		u.Host = "127.0.0.1"
	} else {
		u.Host = "127.0.0.1:" + port
	}
	return u.String()
}

func endpointHostPort(endpoint string) (string, int, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", 0, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	host := u.Hostname()
	if host == "" {
		return "", 0, fmt.Errorf("invalid endpoint %q: no host", endpoint)
	}

	port := 80
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid endpoint %q: bad port: %w", endpoint, err)
		}
	}

	return host, port, nil
}
