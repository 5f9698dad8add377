package streamrpc_test

import (
	"context"
	"encoding/json"

	. "github.com/dogmatiq/streamrpc"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ Exchanger = (*Router)(nil)

var _ = Describe("type Router", func() {
	var r *Router

	BeforeEach(func() {
		r = NewRouter(
			WithRoute(
				"double",
				func(_ context.Context, n []int) (int, error) {
					return n[0] * 2, nil
				},
			),
			WithUntypedRoute(
				"boom",
				func(context.Context, Request) (any, error) {
					return nil, NewError(100, WithMessage("<boom>"))
				},
			),
		)
	})

	Describe("func HasRoute()", func() {
		It("returns true for a registered method", func() {
			Expect(r.HasRoute("double")).To(BeTrue())
		})

		It("returns false for an unregistered method", func() {
			Expect(r.HasRoute("triple")).To(BeFalse())
		})
	})

	Describe("func Call()", func() {
		It("dispatches to the registered handler and marshals its result", func() {
			req, err := NewRequest("double", []int{21}, 1)
			Expect(err).ShouldNot(HaveOccurred())

			res := r.Call(context.Background(), req)
			Expect(res).To(Equal(SuccessResponse{
				Version:   "2.0",
				RequestID: json.RawMessage(`1`),
				Result:    json.RawMessage(`42`),
			}))
		})

		It("returns a method-not-found error for an unregistered method", func() {
			req, err := NewRequest("triple", nil, 1)
			Expect(err).ShouldNot(HaveOccurred())

			res := r.Call(context.Background(), req)
			errRes, ok := res.(ErrorResponse)
			Expect(ok).To(BeTrue())
			Expect(errRes.Error.Code).To(Equal(MethodNotFoundCode))
		})

		It("converts a handler error into an error response", func() {
			req, err := NewRequest("boom", nil, 1)
			Expect(err).ShouldNot(HaveOccurred())

			res := r.Call(context.Background(), req)
			errRes, ok := res.(ErrorResponse)
			Expect(ok).To(BeTrue())
			Expect(errRes.Error.Code).To(Equal(ErrorCode(100)))
			Expect(errRes.Error.Message).To(Equal("<boom>"))
		})
	})

	Describe("func Notify()", func() {
		It("invokes the registered handler and produces no response", func() {
			called := false
			r = NewRouter(
				WithUntypedRoute("ping", func(context.Context, Request) (any, error) {
					called = true
					return nil, nil
				}),
			)

			req, err := NewRequest("ping", nil, nil)
			Expect(err).ShouldNot(HaveOccurred())

			r.Notify(context.Background(), req)
			Expect(called).To(BeTrue())
		})

		It("does nothing for an unregistered method", func() {
			req, err := NewRequest("unregistered", nil, nil)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(func() {
				r.Notify(context.Background(), req)
			}).NotTo(Panic())
		})
	})

	Describe("func WithUntypedRoute()", func() {
		It("panics when the same method is registered twice", func() {
			Expect(func() {
				NewRouter(
					WithUntypedRoute("dup", func(context.Context, Request) (any, error) { return nil, nil }),
					WithUntypedRoute("dup", func(context.Context, Request) (any, error) { return nil, nil }),
				)
			}).To(Panic())
		})
	})
})
