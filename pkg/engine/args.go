package engine

import (
	"fmt"
	"net"
)

// Fixed Chromium launch arguments for headful-but-kiosk operation: fixed
// window geometry and device-pixel ratio, crash/first-run dialogs disabled,
// sandboxing off for containerized execution.
var kioskArgs = []string{
	"--window-position=0,0",
	"--window-size=1440,1440",
	"--disable-session-crashed-bubble",
	"--hide-crash-restore-bubble",
	"--no-first-run",
	"--no-default-browser-check",
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--force-device-scale-factor=1",
}

// buildLaunchArgs returns the full argument list for a launch exposing CDP
// on the given loopback port.
func buildLaunchArgs(debugPort int) []string {
	args := make([]string, 0, len(kioskArgs)+2)
	args = append(args, kioskArgs...)
	args = append(args,
		"--remote-debugging-address=127.0.0.1",
		fmt.Sprintf("--remote-debugging-port=%d", debugPort),
	)
	return args
}

// freePort asks the kernel for an available loopback port.
func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()

	return ln.Addr().(*net.TCPAddr).Port, nil
}
