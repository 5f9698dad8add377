package otelstreamrpc

import (
	"context"
	"sync"
	"time"

	"github.com/dogmatiq/streamrpc"
	"github.com/dogmatiq/streamrpc/internal/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/instrument"
	"go.opentelemetry.io/otel/metric/instrument/syncint64"
	"go.opentelemetry.io/otel/metric/unit"
)

// Metrics is a streamrpc.Exchanger that records OpenTelemetry metrics for
// each JSON-RPC request.
type Metrics struct {
	// Next is the next exchanger in the middleware stack.
	Next streamrpc.Exchanger

	// MeterProvider supplies the Meter used to record measurements.
	MeterProvider metric.MeterProvider

	// ServiceName is an application-specific name included in metric
	// attributes. It may be empty.
	ServiceName string

	once          sync.Once
	meter         metric.Meter
	calls         syncint64.Counter
	notifications syncint64.Counter
	errors        syncint64.Counter
	duration      syncint64.Histogram
	attributes    []attribute.KeyValue
}

var _ streamrpc.Exchanger = (*Metrics)(nil)

// Call handles a call request and returns its response.
func (m *Metrics) Call(ctx context.Context, req streamrpc.Request) streamrpc.Response {
	m.init()

	attrs := requestAttributes(req)
	attrs = append(attrs, m.attributes...)
	attrs = append(attrs, clientAttributes(ctx)...)

	m.calls.Add(ctx, 1, attrs...)

	start := time.Now()
	res := m.Next.Call(ctx, req)
	elapsed := time.Since(start)

	m.duration.Record(ctx, durationToMillis(elapsed), attrs...)

	if res, ok := res.(streamrpc.ErrorResponse); ok {
		attrs = append(attrs, errorResponseAttributes(res)...)
		m.errors.Add(ctx, 1, attrs...)
	}

	return res
}

// Notify handles a notification request.
func (m *Metrics) Notify(ctx context.Context, req streamrpc.Request) {
	m.init()

	attrs := requestAttributes(req)
	attrs = append(attrs, m.attributes...)
	attrs = append(attrs, clientAttributes(ctx)...)

	m.notifications.Add(ctx, 1, attrs...)

	start := time.Now()
	m.Next.Notify(ctx, req)
	elapsed := time.Since(start)

	m.duration.Record(ctx, durationToMillis(elapsed), attrs...)
}

func (m *Metrics) init() {
	m.once.Do(func() {
		m.meter = m.MeterProvider.Meter(
			"github.com/dogmatiq/streamrpc/middleware/otelstreamrpc",
			metric.WithInstrumentationVersion(version.Version),
		)

		var err error
		m.calls, err = m.meter.SyncInt64().Counter(
			"rpc.server.calls",
			instrument.WithDescription("The number of JSON-RPC requests that are 'calls'."),
			instrument.WithUnit(unit.Dimensionless),
		)
		if err != nil {
			panic(err)
		}

		m.notifications, err = m.meter.SyncInt64().Counter(
			"rpc.server.notifications",
			instrument.WithDescription("The number of JSON-RPC requests that are notifications."),
			instrument.WithUnit(unit.Dimensionless),
		)
		if err != nil {
			panic(err)
		}

		m.errors, err = m.meter.SyncInt64().Counter(
			"rpc.server.errors",
			instrument.WithDescription("The number of JSON-RPC 'call' requests that result in an error."),
			instrument.WithUnit(unit.Dimensionless),
		)
		if err != nil {
			panic(err)
		}

		m.duration, err = m.meter.SyncInt64().Histogram(
			"rpc.server.duration",
			instrument.WithDescription("The amount of time it takes the handler to process a JSON-RPC request."),
			instrument.WithUnit(unit.Milliseconds),
		)
		if err != nil {
			panic(err)
		}

		m.attributes = commonAttributes(m.ServiceName)
	})
}

func durationToMillis(d time.Duration) int64 {
	return int64(d / time.Millisecond)
}
