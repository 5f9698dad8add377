package streamrpc

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ZapExchangeLogger is an ExchangeLogger backed by go.uber.org/zap.
type ZapExchangeLogger struct {
	// Target is the destination for log messages.
	Target *zap.Logger
}

var _ ExchangeLogger = ZapExchangeLogger{}

// LogError logs res.
func (l ZapExchangeLogger) LogError(ctx context.Context, res ErrorResponse) {
	fields := []zap.Field{
		zap.Int("error_code", int(res.Error.Code)),
		zap.String("error", res.Error.Code.String()),
	}
	fields = appendTraceField(ctx, fields)

	if res.ServerError != nil {
		fields = append(fields, zap.String("caused_by", res.ServerError.Error()))
	}
	if res.Error.Message != res.Error.Code.String() {
		fields = append(fields, zap.String("responded_with", res.Error.Message))
	}

	l.Target.Error("error", fields...)
}

// LogWriterError logs err.
func (l ZapExchangeLogger) LogWriterError(ctx context.Context, err error) {
	fields := []zap.Field{zap.String("error", err.Error())}
	fields = appendTraceField(ctx, fields)
	l.Target.Error("unable to write JSON-RPC response", fields...)
}

// LogNotification logs req.
func (l ZapExchangeLogger) LogNotification(ctx context.Context, req Request) {
	var w strings.Builder
	w.WriteString("notify ")
	writeMethod(&w, req.Method)

	fields := []zap.Field{zap.Int("param_size", len(req.Parameters))}
	fields = appendTraceField(ctx, fields)

	l.Target.Info(w.String(), fields...)
}

// LogCall logs req and res.
func (l ZapExchangeLogger) LogCall(ctx context.Context, req Request, res Response) {
	var w strings.Builder
	w.WriteString("call ")
	writeMethod(&w, req.Method)

	fields := []zap.Field{zap.Int("param_size", len(req.Parameters))}
	fields = appendTraceField(ctx, fields)

	switch res := res.(type) {
	case SuccessResponse:
		fields = append(fields, zap.Int("result_size", len(res.Result)))
		l.Target.Info(w.String(), fields...)

	case ErrorResponse:
		fields = append(
			fields,
			zap.Int("error_code", int(res.Error.Code)),
			zap.String("error", res.Error.Code.String()),
		)
		if res.ServerError != nil {
			fields = append(fields, zap.String("caused_by", res.ServerError.Error()))
		}
		if res.Error.Message != res.Error.Code.String() {
			fields = append(fields, zap.String("responded_with", res.Error.Message))
		}
		l.Target.Error(w.String(), fields...)
	}
}

// appendTraceField appends the active span's trace ID to fields, if any.
func appendTraceField(ctx context.Context, fields []zap.Field) []zap.Field {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		return append(fields, zap.String("trace_id", span.SpanContext().TraceID().String()))
	}
	return fields
}
