// Package jsonx centralizes the JSON decode conventions shared by the
// request and response parsers: reject unknown fields by default, and
// classify decode failures as JSON syntax errors versus something else.
package jsonx

import (
	"encoding/json"
	"strings"
)

// IsParseError returns true if err indicates a JSON parse failure, as
// opposed to an I/O error from the underlying reader.
func IsParseError(err error) bool {
	switch err.(type) {
	case nil:
		return false
	case *json.SyntaxError:
		return true
	case *json.UnmarshalTypeError:
		return true
	default:
		// Some JSON errors have no distinct type. For example, a decoder
		// with DisallowUnknownFields() reports an unexpected field as the
		// equivalent of errors.New(`json: unknown field "<name>"`).
		return strings.HasPrefix(err.Error(), "json:")
	}
}
