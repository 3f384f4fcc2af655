// Package update provides the HTTP handler triggering update runs.
//
// Key components:
//   - Handler: Runs one update per request, refusing requests while a run is in progress.
//   - New: Creates a handler with an update function and the shared run lock.
//
// Usage example:
//
//	handler := update.New(runUpdate, lock)
//	server.RegisterFunc("GET /{$}", server.RequireSecret(handler.Handle))
//
// The run lock is a channel holding a single token; whoever holds the token runs.
package update
