//go:build linux

// Package reactor implements the non-blocking, single-threaded server
// side of streamrpc: one event loop, driven by readiness notifications,
// multiplexing an arbitrary number of client connections without
// spawning a goroutine per connection.
//
// The loop is strictly cooperative. It never runs user code in
// parallel with itself: a Handler invocation blocks the loop until it
// returns, so handlers must be synchronous and bounded. Ordering within
// one connection is exact (frames are handled in arrival order,
// responses are written in return order); ordering across connections
// is not guaranteed, and a slow handler serializes every client.
//
// A Reactor owns its listening socket, a fixed-size table of client
// slots, and a FIFO idle-timeout list. Client structures, which also
// carry the timeout-list links, are drawn from a sync.Pool-backed pool
// and reused across connections.
package reactor
