package streamrpc_test

import (
	"bytes"
	"context"
	"errors"
	"io"

	. "github.com/dogmatiq/streamrpc"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ ExchangeLogger = ZapExchangeLogger{}

var _ = Describe("type ZapExchangeLogger", func() {
	var (
		ctx     context.Context
		request Request
		buffer  bytes.Buffer
		logger  ZapExchangeLogger
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		request, err = NewRequest("<method>", []int{1, 2, 3}, 123)
		Expect(err).ShouldNot(HaveOccurred())

		buffer.Reset()
		logger = ZapExchangeLogger{
			Target: zap.New(
				zapcore.NewCore(
					zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
					zapcore.AddSync(&buffer),
					zapcore.DebugLevel,
				),
			),
		}
	})

	Describe("func LogCall()", func() {
		It("logs a successful call at info level", func() {
			res := NewSuccessResponse(request.ID, 123)
			logger.LogCall(ctx, request, res)
			Expect(buffer.String()).To(ContainSubstring("<method>"))
		})

		It("logs a failed call at error level, including the error code", func() {
			res := NewErrorResponse(request.ID, MethodNotFound())
			logger.LogCall(ctx, request, res)
			Expect(buffer.String()).To(ContainSubstring(MethodNotFoundCode.String()))
		})
	})

	Describe("func LogNotification()", func() {
		It("logs the method name", func() {
			logger.LogNotification(ctx, request)
			Expect(buffer.String()).To(ContainSubstring("<method>"))
		})
	})

	Describe("func LogError()", func() {
		It("includes the server-side cause when present", func() {
			res := NewErrorResponse(request.ID, errors.New("<cause>"))
			logger.LogError(ctx, res)
			Expect(buffer.String()).To(ContainSubstring("<cause>"))
		})
	})

	Describe("func LogWriterError()", func() {
		It("logs the error message", func() {
			logger.LogWriterError(ctx, errors.New("<write error>"))
			Expect(buffer.String()).To(ContainSubstring("<write error>"))
		})
	})

	When("the context carries a recording span", func() {
		It("includes the trace ID field", func() {
			exporter, err := stdouttrace.New(stdouttrace.WithWriter(io.Discard))
			Expect(err).ShouldNot(HaveOccurred())

			provider := trace.NewTracerProvider(trace.WithBatcher(exporter))
			defer func() { _ = provider.Shutdown(ctx) }()

			spanCtx, span := provider.Tracer("<tracer>").Start(ctx, "<span>")
			defer span.End()

			logger.LogCall(spanCtx, request, NewSuccessResponse(request.ID, 123))
			Expect(buffer.String()).To(ContainSubstring("trace_id"))
			Expect(buffer.String()).To(ContainSubstring(span.SpanContext().TraceID().String()))
		})
	})
})
