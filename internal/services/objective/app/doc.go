// Package server composes the objective gRPC entrypoint.
//
// It opens the SQLite journal, verifies the event hash chain, and wires the
// command engine, the view projection and the gRPC services into a runnable
// server.
package server
