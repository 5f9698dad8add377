package streamrpc

import "github.com/cockroachdb/errors"

// The sentinel errors below realize the library's error taxonomy. They
// are used internally by request/response parsing, by
// streamrpc/linestream, and by streamrpc/reactor; callers compare
// against them with errors.Is.
//
// They are deliberately plain sentinels (github.com/cockroachdb/errors.New)
// rather than distinct types: nothing downstream needs to carry structured
// per-kind data beyond the message and an optional wrapped cause, and
// errors.Is/errors.As over a wrapped sentinel already gives callers
// everything a caller needs.
var (
	// Protocol (inbound) errors.
	ErrSyntax              = errors.New("streamrpc: malformed JSON")
	ErrInvalidRequest      = errors.New("streamrpc: invalid request")
	ErrMissingMethod       = errors.New("streamrpc: request method is missing")
	ErrInvalidMethod       = errors.New("streamrpc: request method must be a non-empty string")
	ErrInvalidParams       = errors.New("streamrpc: request parameters must be a JSON array or object")
	ErrInvalidID           = errors.New("streamrpc: request ID must be a JSON string, number, or null")
	ErrMissingID           = errors.New("streamrpc: response is missing an ID")
	ErrInvalidResponse     = errors.New("streamrpc: invalid response")
	ErrMissingErrorCode    = errors.New("streamrpc: error response is missing a code")
	ErrInvalidErrorCode    = errors.New("streamrpc: error code is outside the range reserved by the JSON-RPC specification")
	ErrReservedErrorCode   = errors.New("streamrpc: error code is reserved by the JSON-RPC specification but not predefined")
	ErrMissingErrorMessage = errors.New("streamrpc: error response is missing a message")
	ErrInvalidErrorMessage = errors.New("streamrpc: error message must be a string")
	ErrInvalidErrorObject  = errors.New("streamrpc: error field must be a JSON object")

	// Framing errors.
	ErrEmptyInput = errors.New("streamrpc: input contained no JSON-RPC frames")

	// ErrBufferTooSmall is returned by reactor.New, rpcclient.Dial, and
	// rpcclient.DialNonBlocking when Config.ReadBufferSize is configured
	// below MinReadBufferSize.
	ErrBufferTooSmall = errors.New("streamrpc: configured read buffer is below the minimum size")

	// ErrLineTooLong is returned by linestream.Reader.Fill when a single
	// in-flight frame exceeds the read buffer's configured capacity.
	ErrLineTooLong = errors.New("streamrpc: frame exceeds the configured read buffer capacity")

	// I/O errors. ErrWouldBlock signals "no complete frame yet" from a
	// non-blocking read or "not fully flushed yet" from a vectored write;
	// streamrpc/linestream and streamrpc/reactor use it internally and it
	// is never returned to a caller of the client or server surface.
	ErrWouldBlock = errors.New("streamrpc: operation would block")
	ErrClosed     = errors.New("streamrpc: connection closed")
	ErrTimeout    = errors.New("streamrpc: idle timeout")

	// Resource errors.
	ErrOutOfMemory   = errors.New("streamrpc: allocator exhausted")
	ErrSlotTableFull = errors.New("streamrpc: no free client slots")
)
