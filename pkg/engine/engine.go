package engine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/browserd/pkg/logging"
)

// Engine owns the Chromium child resource. It launches the browser through
// Playwright with the fixed kiosk argument set, discovers the engine's CDP
// control URL, and tears both down on Close. An Engine is exclusively owned
// by one session server; there is no restart across Close.
type Engine struct {
	log *logging.Logger

	mu         sync.Mutex
	pw         *playwright.Playwright
	browser    playwright.Browser
	debugPort  int
	args       []string
	controlURL string
	started    bool
	closed     bool
}

// New creates an unstarted engine.
func New(log *logging.Logger) *Engine {
	return &Engine{log: log}
}

// Start installs (if needed) and runs the Playwright driver, launches a
// headful Chromium with the fixed launch arguments, and resolves the
// engine's CDP websocket URL. Any failure is fatal to the engine: partially
// constructed resources are released before returning.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("engine already started")
	}
	if e.closed {
		return fmt.Errorf("engine already closed")
	}

	debugPort, err := freePort()
	if err != nil {
		return fmt.Errorf("failed to allocate debug port: %w", err)
	}

	// Driver output is discarded so it cannot interleave with the announce
	// line on stdout.
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	args := buildLaunchArgs(debugPort)
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(false),
		Args:     args,
	})
	if err != nil {
		if stopErr := pw.Stop(); stopErr != nil {
			e.log.Warnf("stopping playwright after failed launch: %v", stopErr)
		}
		return fmt.Errorf("failed to launch browser engine: %w", err)
	}

	controlURL, err := discoverControlURL(ctx, debugPort, discoverTimeout)
	if err != nil {
		if closeErr := browser.Close(); closeErr != nil {
			e.log.Warnf("closing browser after failed discovery: %v", closeErr)
		}
		if stopErr := pw.Stop(); stopErr != nil {
			e.log.Warnf("stopping playwright after failed discovery: %v", stopErr)
		}
		return fmt.Errorf("failed to resolve engine control URL: %w", err)
	}

	e.pw = pw
	e.browser = browser
	e.debugPort = debugPort
	e.args = args
	e.controlURL = controlURL
	e.started = true

	e.log.Infof("browser engine up, control url %s", controlURL)
	return nil
}

// ControlURL returns the engine's CDP websocket URL. Empty until Start
// succeeds.
func (e *Engine) ControlURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.controlURL
}

// LaunchArgs returns a copy of the arguments the engine was launched with.
func (e *Engine) LaunchArgs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := make([]string, len(e.args))
	copy(args, e.args)
	return args
}

// Close terminates the browser and stops the Playwright driver, in that
// order. Safe to call multiple times; only the first call does work.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if !e.started {
		return nil
	}

	var firstErr error
	if err := e.browser.Close(); err != nil {
		firstErr = fmt.Errorf("failed to close browser: %w", err)
	}
	if err := e.pw.Stop(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to stop playwright: %w", err)
	}

	return firstErr
}
