// Package server implements the browserd session server: a process-level
// component that owns exactly one browser engine instance and arbitrates its
// exposure to external control clients over a persistent websocket endpoint.
//
// # Lifecycle
//
// The server is an explicit state machine:
//
//	Starting → Ready → ShuttingDown → Stopped
//	Starting → Stopped (launch failure or stop-before-launch)
//
// Start binds the control listener, launches the engine, constructs the
// SessionHandle, and announces the endpoint. Shutdown closes the engine
// before releasing the listener and is idempotent; signal handlers reduce to
// thin adapters around it.
//
// # Concurrency
//
// The SessionHandle has a single writer, the shutdown path. Launch
// completion and termination signals are serialized through one mutex: a
// signal arriving mid-launch blocks until the handle is fully constructed,
// and a signal during an in-flight shutdown is a no-op.
//
// # Control endpoint
//
// Exactly one control connection may be active at a time; concurrent
// attempts receive HTTP 409. Frames are relayed verbatim to the engine's
// own control websocket — the wire protocol belongs to the engine, the
// server only guarantees the endpoint is reachable while Ready.
package server
