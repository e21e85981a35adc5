// Package engine owns the browser engine child resource of a browserd
// process.
//
// The engine is a headful Chromium launched through Playwright with a fixed
// kiosk argument set (pinned window geometry and device-pixel ratio,
// crash/first-run dialogs disabled, sandboxing off for containers). The
// engine exposes its own CDP websocket on an internal loopback port; the
// session server in pkg/server relays the public control endpoint to it.
//
// Lifecycle:
//
//  1. Start: install/run the Playwright driver, launch Chromium, poll the
//     devtools version endpoint until the control URL is known.
//  2. Steady state: the engine handles control traffic itself; this package
//     does no work between Start and Close.
//  3. Close: terminate the browser, then stop the driver. Idempotent.
//
// ConnectWithRetry is the client-side counterpart: it dials an announced
// control endpoint with a TCP preflight, capped exponential backoff, and
// IPv4 forcing for localhost, for orchestrators that spawn a browserd
// process and attach to it.
package engine
