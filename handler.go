package streamrpc

import "context"

// Exchanger resolves a single JSON-RPC request into a response, or (for a
// notification) has no response to produce.
//
// It is the application-supplied collaborator: streamrpc itself never
// decides what a method does, only how the request reached the handler
// and how the response gets back to the wire.
type Exchanger interface {
	// Call handles a request that expects a response.
	Call(ctx context.Context, req Request) Response

	// Notify handles a request that does not expect a response.
	Notify(ctx context.Context, req Request)
}
