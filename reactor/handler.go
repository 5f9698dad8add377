package reactor

import (
	"context"

	"github.com/dogmatiq/streamrpc"
	"github.com/google/uuid"
)

// ClientID uniquely identifies a connection for the lifetime of the
// process. It has no relationship to the remote address, which may be
// reused across connections.
type ClientID uuid.UUID

// String returns the canonical textual form of id.
func (id ClientID) String() string {
	return uuid.UUID(id).String()
}

// Handler is invoked by the reactor once per readiness event, with every
// frame drained from the triggering client in arrival order.
//
// Returning a nil slice with a nil error indicates "no response owed"
// (every input frame was a notification). Any returned error is fatal to
// the client: the reactor logs it and closes the connection. messages
// and its backing bytes are only valid for the duration of the call.
type Handler func(ctx context.Context, client ClientID, messages streamrpc.BatchOrSingle[streamrpc.Request]) ([]streamrpc.Response, error)

// NewExchangerHandler adapts a streamrpc.Exchanger into a Handler using
// streamrpc.ExchangeMessages, the same dispatch semantics
// streamrpc/rpcclient's peers expect: call-type requests are answered in
// their original order, notifications contribute nothing to the
// response, and a multi-frame batch is fanned out concurrently.
//
// Each message's context carries the connection's ClientID (retrievable
// with ClientIDFromContext), so Exchanger middleware that wants to
// correlate a request with its long-lived connection - streamrpc's
// otelstreamrpc middleware does, for span and metric attributes - can do
// so without Exchanger itself needing a ClientID parameter.
func NewExchangerHandler(e streamrpc.Exchanger, l streamrpc.ExchangeLogger) Handler {
	return func(ctx context.Context, id ClientID, messages streamrpc.BatchOrSingle[streamrpc.Request]) ([]streamrpc.Response, error) {
		ctx = ContextWithClientID(ctx, id)
		return streamrpc.ExchangeMessages(ctx, e, messages, l), nil
	}
}

type clientIDContextKey struct{}

// ContextWithClientID returns a copy of ctx carrying id, retrievable with
// ClientIDFromContext.
func ContextWithClientID(ctx context.Context, id ClientID) context.Context {
	return context.WithValue(ctx, clientIDContextKey{}, id)
}

// ClientIDFromContext returns the ClientID attached to ctx by
// ContextWithClientID, if any.
func ClientIDFromContext(ctx context.Context) (ClientID, bool) {
	id, ok := ctx.Value(clientIDContextKey{}).(ClientID)
	return id, ok
}
