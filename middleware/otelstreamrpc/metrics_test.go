package otelstreamrpc_test

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dogmatiq/streamrpc"
	"github.com/dogmatiq/streamrpc/internal/version"
	. "github.com/dogmatiq/streamrpc/middleware/otelstreamrpc"
	"github.com/dogmatiq/streamrpc/reactor"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/export/metric/aggregation"
	"go.opentelemetry.io/otel/sdk/metric/metrictest"
	"go.opentelemetry.io/otel/sdk/metric/number"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

var _ = Describe("type Metrics", func() {
	var (
		request   streamrpc.Request
		response  streamrpc.Response
		exchanger *exchangerStub
		exporter  *metrictest.Exporter
		metrics   *Metrics
	)

	BeforeEach(func() {
		request = streamrpc.Request{
			Version:    "2.0",
			ID:         json.RawMessage(`123`),
			Method:     "<method/name>",
			Parameters: json.RawMessage(`[1, 2, 3]`),
		}

		response = streamrpc.SuccessResponse{
			Version:   "2.0",
			RequestID: request.ID,
			Result:    json.RawMessage(`"<result>"`),
		}

		exchanger = &exchangerStub{
			callFunc: func(context.Context, streamrpc.Request) streamrpc.Response {
				return response
			},
		}

		var provider metric.MeterProvider
		provider, exporter = metrictest.NewTestMeterProvider()

		metrics = &Metrics{
			Next:          exchanger,
			MeterProvider: provider,
			ServiceName:   "package.subpackage.Service",
		}
	})

	libraryName := func() metrictest.Library {
		return metrictest.Library{
			InstrumentationName:    "github.com/dogmatiq/streamrpc/middleware/otelstreamrpc",
			InstrumentationVersion: version.Version,
		}
	}

	Describe("func Call()", func() {
		It("forwards to the next exchanger", func() {
			exchanger.callFunc = func(_ context.Context, req streamrpc.Request) streamrpc.Response {
				Expect(req).To(Equal(request))
				return response
			}

			res := metrics.Call(context.Background(), request)
			Expect(res).To(Equal(response))
		})

		It("increments the call count", func() {
			for i := 0; i < 3; i++ {
				metrics.Call(context.Background(), request)
			}

			Expect(exporter.Collect(context.Background())).To(Succeed())

			rec, err := exporter.GetByName("rpc.server.calls")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(rec.InstrumentationLibrary).To(Equal(libraryName()))
			Expect(rec.Attributes).To(ConsistOf(
				semconv.RPCSystemKey.String("dogmatiq/streamrpc"),
				semconv.RPCServiceKey.String("package.subpackage.Service"),
				semconv.RPCMethodKey.String("<method/name>"),
				semconv.RPCJsonrpcVersionKey.String("2.0"),
			))

			Expect(rec.AggregationKind).To(Equal(aggregation.SumKind))
			Expect(rec.NumberKind).To(Equal(number.Int64Kind))
			Expect(rec.Sum).To(Equal(number.NewInt64Number(3)))
		})

		It("records the duration", func() {
			for i := 0; i < 3; i++ {
				metrics.Call(context.Background(), request)
			}

			Expect(exporter.Collect(context.Background())).To(Succeed())

			rec, err := exporter.GetByName("rpc.server.duration")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(rec.InstrumentationLibrary).To(Equal(libraryName()))
			Expect(rec.AggregationKind).To(Equal(aggregation.HistogramKind))
			Expect(rec.NumberKind).To(Equal(number.Int64Kind))
			Expect(rec.Count).To(BeNumerically("==", 3))
		})

		It("includes the reactor client ID when the request arrived through a reactor connection", func() {
			id := reactor.ClientID(uuid.New())
			ctx := reactor.ContextWithClientID(context.Background(), id)

			metrics.Call(ctx, request)

			Expect(exporter.Collect(context.Background())).To(Succeed())

			rec, err := exporter.GetByName("rpc.server.calls")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(rec.Attributes).To(ContainElement(
				attribute.Key("streamrpc.client_id").String(id.String()),
			))
		})

		It("does not increment the notification count", func() {
			metrics.Call(context.Background(), request)

			Expect(exporter.Collect(context.Background())).To(Succeed())

			_, err := exporter.GetByName("rpc.server.notifications")
			Expect(err).To(MatchError("record not found"))
		})

		When("the call returns a success response", func() {
			It("does not increment the error count", func() {
				metrics.Call(context.Background(), request)

				Expect(exporter.Collect(context.Background())).To(Succeed())

				_, err := exporter.GetByName("rpc.server.errors")
				Expect(err).To(MatchError("record not found"))
			})
		})

		When("the call returns an error response", func() {
			BeforeEach(func() {
				response = streamrpc.ErrorResponse{
					Version:   "2.0",
					RequestID: request.ID,
					Error: streamrpc.ErrorInfo{
						Code:    streamrpc.InternalErrorCode,
						Message: streamrpc.InternalErrorCode.String(),
					},
					ServerError: errors.New("<error>"),
				}
			})

			It("increments the error count", func() {
				for i := 0; i < 3; i++ {
					metrics.Call(context.Background(), request)
				}

				Expect(exporter.Collect(context.Background())).To(Succeed())

				rec, err := exporter.GetByName("rpc.server.errors")
				Expect(err).ShouldNot(HaveOccurred())

				Expect(rec.Attributes).To(ConsistOf(
					semconv.RPCSystemKey.String("dogmatiq/streamrpc"),
					semconv.RPCServiceKey.String("package.subpackage.Service"),
					semconv.RPCMethodKey.String("<method/name>"),
					semconv.RPCJsonrpcVersionKey.String("2.0"),
					semconv.RPCJsonrpcErrorCodeKey.Int(int(streamrpc.InternalErrorCode)),
					semconv.RPCJsonrpcErrorMessageKey.String(streamrpc.InternalErrorCode.String()),
				))

				Expect(rec.AggregationKind).To(Equal(aggregation.SumKind))
				Expect(rec.NumberKind).To(Equal(number.Int64Kind))
				Expect(rec.Sum).To(Equal(number.NewInt64Number(3)))
			})
		})
	})

	Describe("func Notify()", func() {
		BeforeEach(func() {
			request.ID = nil
		})

		It("forwards to the next exchanger", func() {
			called := false
			exchanger.notifyFunc = func(_ context.Context, req streamrpc.Request) {
				called = true
				Expect(req).To(Equal(request))
			}

			metrics.Notify(context.Background(), request)
			Expect(called).To(BeTrue())
		})

		It("increments the notifications count", func() {
			for i := 0; i < 3; i++ {
				metrics.Notify(context.Background(), request)
			}

			Expect(exporter.Collect(context.Background())).To(Succeed())

			rec, err := exporter.GetByName("rpc.server.notifications")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(rec.Attributes).To(ConsistOf(
				semconv.RPCSystemKey.String("dogmatiq/streamrpc"),
				semconv.RPCServiceKey.String("package.subpackage.Service"),
				semconv.RPCMethodKey.String("<method/name>"),
				semconv.RPCJsonrpcVersionKey.String("2.0"),
			))

			Expect(rec.AggregationKind).To(Equal(aggregation.SumKind))
			Expect(rec.NumberKind).To(Equal(number.Int64Kind))
			Expect(rec.Sum).To(Equal(number.NewInt64Number(3)))
		})

		It("records the duration", func() {
			for i := 0; i < 3; i++ {
				metrics.Notify(context.Background(), request)
			}

			Expect(exporter.Collect(context.Background())).To(Succeed())

			rec, err := exporter.GetByName("rpc.server.duration")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(rec.AggregationKind).To(Equal(aggregation.HistogramKind))
			Expect(rec.NumberKind).To(Equal(number.Int64Kind))
			Expect(rec.Count).To(BeNumerically("==", 3))
		})

		It("does not increment the call count", func() {
			metrics.Notify(context.Background(), request)

			Expect(exporter.Collect(context.Background())).To(Succeed())

			_, err := exporter.GetByName("rpc.server.calls")
			Expect(err).To(MatchError("record not found"))
		})

		It("does not increment the error count", func() {
			metrics.Notify(context.Background(), request)

			Expect(exporter.Collect(context.Background())).To(Succeed())

			_, err := exporter.GetByName("rpc.server.errors")
			Expect(err).To(MatchError("record not found"))
		})
	})
})
