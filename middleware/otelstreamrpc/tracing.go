// Package otelstreamrpc provides OpenTelemetry tracing and metrics
// middleware for streamrpc.Exchanger implementations.
package otelstreamrpc

import (
	"context"
	"strings"
	"sync"

	"github.com/dogmatiq/streamrpc"
	"github.com/dogmatiq/streamrpc/internal/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracing is a streamrpc.Exchanger that records an OpenTelemetry span for
// each JSON-RPC request, following the OpenTelemetry RPC semantic
// conventions.
type Tracing struct {
	// Next is the next exchanger in the middleware stack.
	Next streamrpc.Exchanger

	// TracerProvider supplies the Tracer used to create spans.
	TracerProvider trace.TracerProvider

	// ServiceName is an application-specific name included in span names
	// and attributes. It may be empty.
	ServiceName string

	// CreateNewSpan controls whether a new span is created for each
	// request, or JSON-RPC attributes are added to an existing span. By
	// default it is assumed the transport layer already created the span.
	CreateNewSpan bool

	once           sync.Once
	tracer         trace.Tracer
	spanNamePrefix string
	attributes     []attribute.KeyValue
}

var _ streamrpc.Exchanger = (*Tracing)(nil)

// Call handles a call request and returns its response.
func (t *Tracing) Call(ctx context.Context, req streamrpc.Request) streamrpc.Response {
	var res streamrpc.Response

	t.withSpan(ctx, req, func(ctx context.Context, span trace.Span) {
		res = t.Next.Call(ctx, req)

		if res, ok := res.(streamrpc.ErrorResponse); ok {
			span.SetAttributes(errorResponseAttributes(res)...)
			if res.ServerError == nil {
				span.SetStatus(codes.Error, res.Error.Message)
			} else {
				span.SetStatus(codes.Error, res.ServerError.Error())
				span.RecordError(res.ServerError)
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	})

	return res
}

// Notify handles a notification request.
func (t *Tracing) Notify(ctx context.Context, req streamrpc.Request) {
	t.withSpan(ctx, req, func(ctx context.Context, span trace.Span) {
		t.Next.Notify(ctx, req)
		span.SetStatus(codes.Ok, "")
	})
}

func (t *Tracing) withSpan(
	ctx context.Context,
	req streamrpc.Request,
	fn func(context.Context, trace.Span),
) {
	t.init()

	name := t.spanNamePrefix + sanitizeMethodName(req.Method)
	var span trace.Span

	if t.CreateNewSpan {
		ctx, span = t.tracer.Start(
			ctx,
			name,
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()
	} else {
		span = trace.SpanFromContext(ctx)
		span.SetName(name)
	}

	span.SetAttributes(t.attributes...)
	span.SetAttributes(requestAttributes(req)...)
	span.SetAttributes(clientAttributes(ctx)...)

	if !req.IsNotification() {
		span.SetAttributes(
			semconv.RPCJsonrpcRequestIDKey.String(sanitizeRequestID(req)),
		)
	}

	fn(ctx, span)
}

func (t *Tracing) init() {
	t.once.Do(func() {
		t.tracer = t.TracerProvider.Tracer(
			"github.com/dogmatiq/streamrpc/middleware/otelstreamrpc",
			trace.WithInstrumentationVersion(version.Version),
		)

		t.attributes = commonAttributes(t.ServiceName)
		if t.ServiceName != "" {
			t.spanNamePrefix = t.ServiceName + "/"
		}
	})
}

// sanitizeRequestID returns req's ID in a form suitable for use as a span
// attribute value, per semconv.RPCJsonrpcRequestIDKey (empty for a null
// ID).
func sanitizeRequestID(req streamrpc.Request) string {
	id := string(req.ID)
	if strings.EqualFold(id, "null") {
		return ""
	}
	return strings.Trim(id, `"`)
}

func sanitizeMethodName(n string) string {
	return strings.ReplaceAll(n, "/", "-")
}
