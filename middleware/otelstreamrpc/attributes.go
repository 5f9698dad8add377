package otelstreamrpc

import (
	"context"

	"github.com/dogmatiq/streamrpc"
	"github.com/dogmatiq/streamrpc/reactor"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

// clientIDAttributeKey identifies the reactor connection a request
// arrived on. It has no semconv equivalent: the OpenTelemetry RPC
// conventions model a per-request server, not a persistent per-client
// connection, since that distinction doesn't exist for a one-shot HTTP
// handler the way it does for a long-lived streamrpc/reactor socket.
const clientIDAttributeKey = attribute.Key("streamrpc.client_id")

// clientAttributes returns the attribute identifying the reactor
// connection ctx was dispatched on, if any. A request made through
// streamrpc/rpcclient (or any Exchanger invoked outside of
// reactor.NewExchangerHandler) has no such connection identity, so this
// is empty in that case.
func clientAttributes(ctx context.Context) []attribute.KeyValue {
	id, ok := reactor.ClientIDFromContext(ctx)
	if !ok {
		return nil
	}
	return []attribute.KeyValue{clientIDAttributeKey.String(id.String())}
}

// commonAttributes returns the attributes recorded on every span and
// meter for this exchanger.
func commonAttributes(serviceName string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.RPCSystemKey.String("dogmatiq/streamrpc"),
	}

	if serviceName != "" {
		attrs = append(attrs, semconv.RPCServiceKey.String(serviceName))
	}

	return attrs
}

// requestAttributes returns the attributes recorded for req.
func requestAttributes(req streamrpc.Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.RPCMethodKey.String(req.Method),
		semconv.RPCJsonrpcVersionKey.String(req.Version),
	}
}

// errorResponseAttributes returns the attributes recorded for res.
func errorResponseAttributes(res streamrpc.ErrorResponse) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.RPCJsonrpcErrorCodeKey.Int(int(res.Error.Code)),
		semconv.RPCJsonrpcErrorMessageKey.String(res.Error.Message),
	}
}
