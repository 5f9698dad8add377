package streamrpc_test

import (
	"context"
	"encoding/json"

	"github.com/dogmatiq/dodeca/logging"
	. "github.com/dogmatiq/streamrpc"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ ExchangeLogger = DefaultExchangeLogger{}

var _ = Describe("type DefaultExchangeLogger", func() {
	var (
		buffer *logging.BufferedLogger
		logger DefaultExchangeLogger
	)

	BeforeEach(func() {
		buffer = &logging.BufferedLogger{}
		logger = DefaultExchangeLogger{Target: buffer}
	})

	Describe("func LogNotification()", func() {
		It("logs the method name and parameter size", func() {
			req, err := NewRequest("<method>", []int{1, 2, 3}, nil)
			Expect(err).ShouldNot(HaveOccurred())

			logger.LogNotification(context.Background(), req)
			Expect(buffer.Messages()).NotTo(BeEmpty())
		})
	})

	Describe("func LogCall()", func() {
		It("logs a successful call", func() {
			req, err := NewRequest("<method>", nil, 1)
			Expect(err).ShouldNot(HaveOccurred())

			res := NewSuccessResponse(req.ID, "<result>")
			logger.LogCall(context.Background(), req, res)

			Expect(buffer.Messages()).NotTo(BeEmpty())
		})

		It("logs a failed call", func() {
			req, err := NewRequest("<method>", nil, 1)
			Expect(err).ShouldNot(HaveOccurred())

			res := NewErrorResponse(req.ID, NewError(100, WithMessage("<error>")))
			logger.LogCall(context.Background(), req, res)

			Expect(buffer.Messages()).NotTo(BeEmpty())
		})
	})

	Describe("func LogError()", func() {
		It("logs the error", func() {
			res := NewErrorResponse(json.RawMessage(`null`), NewError(100, WithMessage("<error>")))
			logger.LogError(context.Background(), res)

			Expect(buffer.Messages()).NotTo(BeEmpty())
		})
	})

	Describe("func LogWriterError()", func() {
		It("logs the error", func() {
			logger.LogWriterError(context.Background(), ErrClosed)
			Expect(buffer.Messages()).NotTo(BeEmpty())
		})
	})
})
