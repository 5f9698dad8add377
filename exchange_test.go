package streamrpc_test

import (
	"context"
	"encoding/json"

	. "github.com/dogmatiq/streamrpc"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// exchangerStub is a minimal Exchanger used to observe what
// ExchangeMessages dispatches.
type exchangerStub struct {
	call   func(context.Context, Request) Response
	notify func(context.Context, Request)
}

func (e *exchangerStub) Call(ctx context.Context, req Request) Response {
	return e.call(ctx, req)
}

func (e *exchangerStub) Notify(ctx context.Context, req Request) {
	if e.notify != nil {
		e.notify(ctx, req)
	}
}

func mustRequest(method string, params, id interface{}) Request {
	req, err := NewRequest(method, params, id)
	Expect(err).ShouldNot(HaveOccurred())
	return req
}

var _ = Describe("func ExchangeMessages()", func() {
	It("returns a single response for a single call request", func() {
		e := &exchangerStub{
			call: func(_ context.Context, req Request) Response {
				return NewSuccessResponse(req.ID, "<result>")
			},
		}

		req := mustRequest("<method>", nil, 1)
		responses := ExchangeMessages(context.Background(), e, One(req), nil)

		Expect(responses).To(HaveLen(1))
		Expect(responses[0]).To(Equal(NewSuccessResponse(json.RawMessage(`1`), "<result>")))
	})

	It("returns no response for a single notification", func() {
		notified := false
		e := &exchangerStub{
			notify: func(context.Context, Request) { notified = true },
		}

		req := mustRequest("<method>", nil, nil)
		responses := ExchangeMessages(context.Background(), e, One(req), nil)

		Expect(responses).To(BeNil())
		Expect(notified).To(BeTrue())
	})

	It("omits notifications from a batch's responses, preserving call order", func() {
		e := &exchangerStub{
			call: func(_ context.Context, req Request) Response {
				return NewSuccessResponse(req.ID, req.Method)
			},
		}

		reqs := Many(
			mustRequest("foo", nil, 1),
			mustRequest("bar", nil, "2"),
			mustRequest("baz", nil, nil), // notification
		)

		responses := ExchangeMessages(context.Background(), e, reqs, nil)
		Expect(responses).To(HaveLen(2))

		ids := make([]string, len(responses))
		for i, r := range responses {
			ids[i] = string(r.(SuccessResponse).RequestID)
		}
		Expect(ids).To(Equal([]string{`1`, `"2"`}))
	})
})
