package streamrpc_test

import (
	"errors"

	. "github.com/dogmatiq/streamrpc"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Error", func() {
	Describe("func NewError()", func() {
		It("returns an error with an application-defined code", func() {
			e := NewError(ErrorCode(100), WithMessage("<message>"))
			Expect(e.Code()).To(Equal(ErrorCode(100)))
			Expect(e.Message()).To(Equal("<message>"))
		})

		It("panics if the code is within the reserved range", func() {
			Expect(func() {
				NewError(InvalidRequestCode)
			}).To(Panic())
		})
	})

	Describe("func NewErrorWithReservedCode()", func() {
		It("returns an error with a reserved code", func() {
			e := NewErrorWithReservedCode(InvalidRequestCode)
			Expect(e.Code()).To(Equal(InvalidRequestCode))
		})

		It("panics if the code is not reserved", func() {
			Expect(func() {
				NewErrorWithReservedCode(ErrorCode(100))
			}).To(Panic())
		})
	})

	Describe("func Message()", func() {
		It("falls back to the code's description when no message was set", func() {
			e := NewErrorWithReservedCode(MethodNotFoundCode)
			Expect(e.Message()).To(Equal(MethodNotFoundCode.String()))
		})

		It("uses the cause's message when WithCause sets no explicit message", func() {
			e := NewError(ErrorCode(100), WithCause(errors.New("<cause>")))
			Expect(e.Message()).To(Equal("<cause>"))
		})

		It("prefers an explicit message over the cause's", func() {
			e := NewError(
				ErrorCode(100),
				WithCause(errors.New("<cause>")),
				WithMessage("<message>"),
			)
			Expect(e.Message()).To(Equal("<message>"))
		})
	})

	Describe("func Data()", func() {
		It("returns the data associated with WithData", func() {
			e := NewError(ErrorCode(100), WithData(map[string]int{"n": 1}))
			Expect(e.Data()).To(Equal(map[string]int{"n": 1}))
		})

		It("returns nil when no data was associated", func() {
			e := NewError(ErrorCode(100))
			Expect(e.Data()).To(BeNil())
		})
	})

	Describe("func Unwrap()", func() {
		It("allows errors.Is to see through to the cause", func() {
			cause := errors.New("<cause>")
			e := NewError(ErrorCode(100), WithCause(cause))
			Expect(errors.Is(e, cause)).To(BeTrue())
		})
	})

	Describe("func MethodNotFound()", func() {
		It("returns an error using MethodNotFoundCode", func() {
			Expect(MethodNotFound().Code()).To(Equal(MethodNotFoundCode))
		})
	})

	Describe("func InvalidParameters()", func() {
		It("returns an error using InvalidParametersCode", func() {
			Expect(InvalidParameters().Code()).To(Equal(InvalidParametersCode))
		})
	})
})
