package streamrpc

import (
	"bytes"
	"encoding/json"

	"github.com/dogmatiq/streamrpc/internal/jsonx"
)

// JSONRPCVersion is the only version string accepted in the "jsonrpc"
// field of a request or response.
const JSONRPCVersion = "2.0"

// Request encapsulates a JSON-RPC request.
type Request struct {
	// Version is the JSON-RPC version. It MUST be exactly "2.0".
	Version string `json:"jsonrpc"`

	// ID uniquely identifies requests that expect a response (calls), as
	// opposed to notifications.
	//
	// It MUST be a JSON string, number, or null. It must not contain a
	// fractional part; non-integer numbers are rejected. If ID is nil the
	// request is a notification.
	ID json.RawMessage `json:"id,omitempty"`

	// Method is the name of the RPC method to invoke. It MUST be
	// non-empty.
	Method string `json:"method"`

	// Parameters holds the parameter values for the method invocation.
	// It MUST be a JSON array or object if present.
	Parameters json.RawMessage `json:"params,omitempty"`
}

// NewRequest returns a new, validated Request.
//
// id may be nil (a notification), or marshal to a JSON string, integer, or
// null. params may be nil, or marshal to a JSON array or object.
func NewRequest(method string, params, id interface{}) (Request, error) {
	req := Request{
		Version: JSONRPCVersion,
		Method:  method,
	}

	if id != nil {
		data, err := json.Marshal(id)
		if err != nil {
			return Request{}, err
		}
		req.ID = data
	}

	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return Request{}, err
		}
		req.Parameters = data
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}

	return req, nil
}

// IsNotification returns true if r is a notification, as opposed to a call
// that expects a response.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Validate checks that r satisfies the invariants of the JSON-RPC
// specification, returning the first violation found.
func (r Request) Validate() error {
	if r.Version != JSONRPCVersion {
		return ErrInvalidRequest
	}

	if r.Method == "" {
		return ErrInvalidMethod
	}

	if r.Parameters != nil {
		if err := validateStructuredValue(r.Parameters); err != nil {
			return ErrInvalidParams
		}
	}

	if r.ID != nil {
		if err := validateRequestID(r.ID); err != nil {
			return err
		}
	}

	return nil
}

// AppendLine appends r's wire representation, including a trailing LF, to
// buf. "jsonrpc" is always emitted first.
func (r Request) AppendLine(buf []byte) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return buf, err
	}
	buf = append(buf, data...)
	buf = append(buf, '\n')
	return buf, nil
}

// ParseRequestLine parses a single JSON-RPC request from one JSON Lines
// record (the trailing LF, if present, is ignored).
//
// It returns ErrSyntax if line is not well-formed JSON, ErrInvalidRequest
// if the root is not an object or the version is wrong, ErrMissingMethod/
// ErrInvalidMethod for a missing or malformed method, and ErrInvalidParams/
// ErrInvalidID for type violations of those fields.
//
// On every failure other than ErrSyntax or ErrInvalidID, the returned
// Request still carries the request's id (if one was present and itself
// well-formed): the id is the first thing validated, before any other
// field, so a caller building an error response can salvage it instead of
// falling back to a null id, per JSON-RPC's "salvage what you can" rule
// for a request that is otherwise malformed.
func ParseRequestLine(line []byte) (Request, error) {
	line = bytes.TrimRight(line, "\r\n")

	var raw struct {
		Version    string          `json:"jsonrpc"`
		ID         json.RawMessage `json:"id"`
		Method     json.RawMessage `json:"method"`
		Parameters json.RawMessage `json:"params"`
	}

	if err := jsonx.Unmarshal(line, &raw); err != nil {
		// A type mismatch means the root is not an object or "jsonrpc" is
		// not a string. Either way raw.Version stays empty, so the version
		// check below reports ErrInvalidRequest, after salvaging any id.
		if _, ok := err.(*json.UnmarshalTypeError); !ok {
			if jsonx.IsParseError(err) {
				return Request{}, ErrSyntax
			}
			return Request{}, err
		}
	}

	var salvaged Request
	if raw.ID != nil {
		if err := validateRequestID(raw.ID); err != nil {
			return Request{}, err
		}
		salvaged.ID = raw.ID
	}

	if raw.Version != JSONRPCVersion {
		return salvaged, ErrInvalidRequest
	}

	if len(raw.Method) == 0 {
		return salvaged, ErrMissingMethod
	}

	var method string
	if err := json.Unmarshal(raw.Method, &method); err != nil {
		return salvaged, ErrInvalidMethod
	}
	if method == "" {
		return salvaged, ErrInvalidMethod
	}

	if raw.Parameters != nil {
		if err := validateStructuredValue(raw.Parameters); err != nil {
			return salvaged, ErrInvalidParams
		}
	}

	return Request{
		Version:    raw.Version,
		ID:         raw.ID,
		Method:     method,
		Parameters: raw.Parameters,
	}, nil
}

// UnmarshalParameters unmarshals r.Parameters into v.
//
// It returns an Error with InvalidParametersCode (carrying the underlying
// decode error as its cause) if r.Parameters cannot be unmarshaled into v.
// If v implements Validatable, Validate() is called after a successful
// unmarshal and any failure is wrapped the same way.
func (r Request) UnmarshalParameters(v interface{}, options ...jsonx.UnmarshalOption) error {
	if err := jsonx.Unmarshal(r.Parameters, v, options...); err != nil {
		return NewErrorWithReservedCode(
			InvalidParametersCode,
			WithCause(err),
		)
	}

	if v, ok := v.(Validatable); ok {
		if err := v.Validate(); err != nil {
			return NewErrorWithReservedCode(
				InvalidParametersCode,
				WithCause(err),
			)
		}
	}

	return nil
}

// Validatable is implemented by parameter types that provide their own
// validation beyond basic JSON structure.
type Validatable interface {
	// Validate returns a non-nil error if the value is invalid. The
	// returned error is always wrapped in a JSON-RPC "invalid parameters"
	// error, so it should not itself be a JSON-RPC Error.
	Validate() error
}

// validateStructuredValue returns a non-nil error if raw does not decode
// to a JSON array or object.
func validateStructuredValue(raw json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}

	switch v.(type) {
	case []interface{}, map[string]interface{}:
		return nil
	default:
		return ErrInvalidParams
	}
}

// validateRequestID returns a non-nil error if id does not decode to a
// JSON string, integer, or null. Non-integer numbers are rejected as
// ErrInvalidID; see the "Open questions" note in the design notes for the
// rationale for this divergence from the permissive reading of the
// specification.
func validateRequestID(id json.RawMessage) error {
	return validateIDValue(id, ErrInvalidID)
}

// validateIDValue is shared between request and response ID validation.
func validateIDValue(id json.RawMessage, invalid error) error {
	trimmed := bytes.TrimSpace(id)

	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return invalid
		}
		return nil
	}

	if isIntegerLiteral(trimmed) {
		return nil
	}

	return invalid
}

// isIntegerLiteral returns true if b is a JSON number literal with no
// fractional or exponent part.
func isIntegerLiteral(b []byte) bool {
	if len(b) == 0 {
		return false
	}

	i := 0
	if b[i] == '-' {
		i++
	}
	if i == len(b) {
		return false
	}

	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}
