package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/entrhq/browserd/pkg/config"
	"github.com/entrhq/browserd/pkg/logging"
)

// State is the lifecycle state of the session server.
type State int

const (
	// StateStarting is the initial state, before launch completes.
	StateStarting State = iota

	// StateReady means the engine is up and the control endpoint reachable.
	StateReady

	// StateShuttingDown means teardown is in flight.
	StateShuttingDown

	// StateStopped is terminal: the engine is closed and the listener released.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting-down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrLaunch marks fatal launch failures: bind conflicts, engine launch
	// errors, resource exhaustion. There is no retry; the process exits 1.
	ErrLaunch = errors.New("launch failed")

	// ErrStopped is returned by Start when shutdown was requested before
	// the launch began. The process exits 0 in that case: it was asked to
	// stop, it never half-started.
	ErrStopped = errors.New("server stopped before launch")
)

// Engine is the browser engine child resource owned by the server.
type Engine interface {
	// Start launches the engine. It must release any partially constructed
	// resources before returning an error.
	Start(ctx context.Context) error

	// ControlURL returns the engine's internal control websocket URL.
	ControlURL() string

	// LaunchArgs returns the arguments the engine was launched with.
	LaunchArgs() []string

	// Close terminates the engine. Must be idempotent.
	Close() error
}

// Server launches, exposes, and retires a single browser engine instance as
// a network-addressable resource. All state transitions are funneled through
// one mutex so a termination signal arriving during launch is deferred until
// the handle is fully constructed, and a second shutdown is a no-op.
type Server struct {
	cfg      config.Config
	engine   Engine
	log      *logging.Logger
	announce io.Writer

	mu      sync.Mutex
	state   State
	handle  *SessionHandle
	httpSrv *http.Server
	done    chan struct{}

	connActive atomic.Bool
}

// New creates a session server for the given frozen configuration. The
// announce writer receives the single machine-greppable endpoint line;
// everything else goes to the logger.
func New(cfg config.Config, eng Engine, log *logging.Logger, announce io.Writer) *Server {
	return &Server{
		cfg:      cfg,
		engine:   eng,
		log:      log,
		announce: announce,
		state:    StateStarting,
		done:     make(chan struct{}),
	}
}

// Start binds the control listener, launches the browser engine, and
// transitions to Ready. On any failure the server transitions directly to
// Stopped with everything released; launch failure is fatal and must not be
// silently degraded.
func (s *Server) Start(ctx context.Context) (*SessionHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStarting {
		return nil, ErrStopped
	}

	// The control path is registered as a route below; a config that never
	// went through validation must not reach the router.
	if err := s.cfg.Validate(); err != nil {
		s.stopLocked()
		return nil, err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.stopLocked()
		return nil, fmt.Errorf("%w: bind %s: %v", ErrLaunch, addr, err)
	}
	boundPort := ln.Addr().(*net.TCPAddr).Port

	if err := s.engine.Start(ctx); err != nil {
		if closeErr := ln.Close(); closeErr != nil {
			s.log.Warnf("releasing listener after failed launch: %v", closeErr)
		}
		s.stopLocked()
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	s.handle = newSessionHandle(s.cfg, boundPort, s.engine.LaunchArgs())

	router := chi.NewRouter()
	router.Get("/"+s.handle.ControlPath(), s.handleControl)

	s.httpSrv = &http.Server{Handler: router}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("control listener: %v", err)
		}
	}()

	s.state = StateReady
	s.log.Infof("session server ready, state %s", s.state)
	fmt.Fprintf(s.announce, "server running at %s\n", s.handle.Endpoint())

	return s.handle, nil
}

// Shutdown tears the session down: the browser engine is closed before the
// listener is released, so the child resource is never orphaned without an
// owning listener. Close errors are logged, not propagated; the process is
// exiting regardless. Idempotent: concurrent and repeated calls produce
// exactly one teardown. A call that arrives while Start still holds the
// state lock blocks until launch completes, then tears down the fully
// constructed handle.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateShuttingDown, StateStopped:
		return
	case StateStarting:
		// Stop requested before launch began; nothing to tear down.
		s.stopLocked()
		return
	}

	s.state = StateShuttingDown
	s.log.Infof("shutting down session server")

	s.handle.alive.Store(false)

	if err := s.engine.Close(); err != nil {
		s.log.Errorf("closing browser engine: %v", err)
	}
	if err := s.httpSrv.Close(); err != nil {
		s.log.Errorf("releasing control listener: %v", err)
	}

	s.stopLocked()
	s.log.Infof("session server stopped")
}

// stopLocked moves to the terminal state. Caller holds s.mu.
func (s *Server) stopLocked() {
	s.state = StateStopped
	close(s.done)
}

// Done is closed once the server reaches the Stopped state. The idle wait
// between Ready and termination is a receive on this channel.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle returns the session handle, or nil before a successful launch.
func (s *Server) Handle() *SessionHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}
