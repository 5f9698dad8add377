package streamrpc

import "bytes"

// Frame is a JSON-RPC object that can be serialized as a single
// LF-terminated JSON Lines record.
//
// Request, SuccessResponse, and ErrorResponse all satisfy Frame, which
// lets BatchOrSingle stay parametric over "a framed JSON-RPC object"
// without a compile-time predicate restricting it to those specific
// types, and without any runtime type switch.
type Frame interface {
	// AppendLine appends the JSON-RPC wire representation of the frame,
	// including its trailing LF, to buf and returns the extended buffer.
	AppendLine(buf []byte) ([]byte, error)
}

// BatchOrSingle holds one or more JSON-RPC frames parsed from, or destined
// for, a single read or write.
//
// Unlike the JSON-RPC specification's array-based batches, a BatchOrSingle
// is populated from LF-delimited frames: two or more lines in one read
// segment constitute a batch, not a JSON array. See the package docs for
// the rationale.
type BatchOrSingle[T Frame] struct {
	items   []T
	isBatch bool
}

// One returns a BatchOrSingle containing a single element, not marked as a
// batch.
func One[T Frame](v T) BatchOrSingle[T] {
	return BatchOrSingle[T]{items: []T{v}}
}

// Many returns a BatchOrSingle containing the given elements, marked as a
// batch even if it contains only one element.
func Many[T Frame](v ...T) BatchOrSingle[T] {
	return BatchOrSingle[T]{items: v, isBatch: true}
}

// IsBatch returns true if the set is to be treated as a batch, as opposed
// to a single (non-batched) frame. This disambiguates a genuine single
// frame from a batch that happens to contain exactly one element.
func (b BatchOrSingle[T]) IsBatch() bool {
	return b.isBatch
}

// Len returns the number of frames in the set.
func (b BatchOrSingle[T]) Len() int {
	return len(b.items)
}

// Get returns the i'th frame in the set.
func (b BatchOrSingle[T]) Get(i int) T {
	return b.items[i]
}

// All returns the frames in the set, in order. The returned slice must not
// be modified.
func (b BatchOrSingle[T]) All() []T {
	return b.items
}

// AppendLines appends the wire representation of every frame in the set,
// in order, to buf. Each frame already carries its own LF terminator, so
// a batch needs no additional separator.
func (b BatchOrSingle[T]) AppendLines(buf []byte) ([]byte, error) {
	for _, item := range b.items {
		var err error
		buf, err = item.AppendLine(buf)
		if err != nil {
			return buf, err
		}
	}
	return buf, nil
}

// parseLines splits data on LF bytes, parses each non-empty line with
// parseOne, and collects the results into a BatchOrSingle.
//
// It fails with ErrEmptyInput if data contains no non-empty lines. A set
// containing exactly one line is not marked as a batch; two or more are.
//
// On failure, the returned BatchOrSingle still holds whatever parseOne
// itself returned for the offending line (a Request, for example, may
// carry a salvaged id even though it failed validation) so the caller can
// recover it via Get(0) instead of losing it along with the error.
func parseLines[T Frame](data []byte, parseOne func([]byte) (T, error)) (BatchOrSingle[T], error) {
	var items []T

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}

		item, err := parseOne(line)
		if err != nil {
			return BatchOrSingle[T]{items: []T{item}}, err
		}

		items = append(items, item)
	}

	if len(items) == 0 {
		return BatchOrSingle[T]{}, ErrEmptyInput
	}

	return BatchOrSingle[T]{
		items:   items,
		isBatch: len(items) > 1,
	}, nil
}

// ParseRequests parses data as one or more LF-delimited JSON-RPC request
// lines.
func ParseRequests(data []byte) (BatchOrSingle[Request], error) {
	return parseLines(data, ParseRequestLine)
}

// ParseResponses parses data as one or more LF-delimited JSON-RPC response
// lines.
func ParseResponses(data []byte) (BatchOrSingle[Response], error) {
	return parseLines(data, ParseResponseLine)
}
