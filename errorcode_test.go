package streamrpc_test

import (
	. "github.com/dogmatiq/streamrpc"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("type ErrorCode", func() {
	Describe("func String()", func() {
		DescribeTable(
			"it returns a description of the error code",
			func(c ErrorCode, d string) {
				Expect(c.String()).To(Equal(d))
			},
			Entry("parse error", ParseErrorCode, "parse error"),
			Entry("invalid request", InvalidRequestCode, "invalid request"),
			Entry("method not found", MethodNotFoundCode, "method not found"),
			Entry("invalid parameters", InvalidParametersCode, "invalid parameters"),
			Entry("internal server error", InternalErrorCode, "internal server error"),
			Entry("server error band", ServerErrorCode(-32050), "server error"),
			Entry("undefined reserved code", ErrorCode(-32700-1), "undefined reserved error"),
			Entry("user-defined error", ErrorCode(100), "unknown error"),
		)
	})

	Describe("func IsReserved()", func() {
		It("returns true for codes in the reserved range", func() {
			Expect(InvalidRequestCode.IsReserved()).To(BeTrue())
		})

		It("returns false for application-defined codes", func() {
			Expect(ErrorCode(100).IsReserved()).To(BeFalse())
		})
	})

	Describe("func IsServerError()", func() {
		It("returns true for codes in the server-error band", func() {
			Expect(ErrorCode(-32050).IsServerError()).To(BeTrue())
		})

		It("returns false for the five predefined codes", func() {
			Expect(MethodNotFoundCode.IsServerError()).To(BeFalse())
		})
	})

	Describe("func Validate()", func() {
		It("returns nil for a predefined code", func() {
			Expect(InternalErrorCode.Validate()).To(BeNil())
		})

		It("returns nil for a server-error band code", func() {
			Expect(ErrorCode(-32050).Validate()).To(BeNil())
		})

		It("returns ErrReservedErrorCode for an undefined reserved code", func() {
			Expect(ErrorCode(-32768).Validate()).To(Equal(ErrReservedErrorCode))
		})

		It("returns ErrInvalidErrorCode for a non-reserved code", func() {
			Expect(ErrorCode(100).Validate()).To(Equal(ErrInvalidErrorCode))
		})
	})

	Describe("func ServerErrorCode()", func() {
		It("returns the code when within the reserved band", func() {
			Expect(ServerErrorCode(-32050)).To(Equal(ErrorCode(-32050)))
		})

		It("panics when outside the reserved band", func() {
			Expect(func() {
				ServerErrorCode(100)
			}).To(Panic())
		})
	})
})
