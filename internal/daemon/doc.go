// Package daemon coordinates the long-running clipperd process.
//
// It wires configuration, job storage, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances,
// and exposes the HTTP API surface backed by the shared api.Service.
//
// Keep orchestration logic here: individual pipeline stages live in their
// respective packages while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
