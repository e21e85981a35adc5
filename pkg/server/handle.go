package server

import (
	"sync/atomic"

	"github.com/entrhq/browserd/pkg/config"
)

// SessionHandle is the live representation of the running browser engine
// plus its network listener. It is created on successful launch, owned
// exclusively by the session server, and destroyed on shutdown; a process
// restart always produces a fresh handle.
type SessionHandle struct {
	host        string
	port        int
	controlPath string
	endpoint    string
	launchArgs  []string
	alive       atomic.Bool
}

func newSessionHandle(cfg config.Config, boundPort int, launchArgs []string) *SessionHandle {
	resolved := cfg
	resolved.Port = boundPort

	h := &SessionHandle{
		host:        resolved.Host,
		port:        boundPort,
		controlPath: resolved.NormalizedPath(),
		endpoint:    resolved.Endpoint(),
		launchArgs:  launchArgs,
	}
	h.alive.Store(true)
	return h
}

// Endpoint returns the fully qualified control endpoint. When the
// configuration requested an ephemeral port, the endpoint reflects the port
// actually bound.
func (h *SessionHandle) Endpoint() string {
	return h.endpoint
}

// Host returns the bind address.
func (h *SessionHandle) Host() string {
	return h.host
}

// Port returns the bound listen port.
func (h *SessionHandle) Port() int {
	return h.port
}

// ControlPath returns the control path segment, without a leading slash.
func (h *SessionHandle) ControlPath() string {
	return h.controlPath
}

// LaunchArgs returns a copy of the engine launch arguments.
func (h *SessionHandle) LaunchArgs() []string {
	args := make([]string, len(h.launchArgs))
	copy(args, h.launchArgs)
	return args
}

// Alive reports whether the handle's engine and listener are still up.
func (h *SessionHandle) Alive() bool {
	return h.alive.Load()
}
