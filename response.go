package streamrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dogmatiq/streamrpc/internal/jsonx"
)

// Response is a JSON-RPC response: either a SuccessResponse or an
// ErrorResponse.
type Response interface {
	Frame

	// Validate checks that the response conforms to the JSON-RPC
	// specification. It returns nil if the response is valid.
	Validate() error

	isResponse()
}

// SuccessResponse encapsulates a successful JSON-RPC response.
type SuccessResponse struct {
	// Version is the JSON-RPC version. It MUST be exactly "2.0".
	Version string `json:"jsonrpc"`

	// RequestID is the ID of the request that produced this response. It
	// is never absent.
	RequestID json.RawMessage `json:"id"`

	// Result is the user-defined result value produced by the handler.
	Result json.RawMessage `json:"result"`
}

// NewSuccessResponse returns a new SuccessResponse containing result.
//
// If result cannot be marshaled to JSON, an ErrorResponse describing the
// marshaling failure is returned instead; a server-side marshaling error
// must never propagate out as a panic or bare error.
func NewSuccessResponse(requestID json.RawMessage, result interface{}) Response {
	res := SuccessResponse{
		Version:   JSONRPCVersion,
		RequestID: requestID,
	}

	if result == nil {
		res.Result = json.RawMessage("null")
		return res
	}

	data, err := json.Marshal(result)
	if err != nil {
		return NewErrorResponse(
			requestID,
			fmt.Errorf("could not marshal success result value: %w", err),
		)
	}

	res.Result = data
	return res
}

// Validate checks that r conforms to the JSON-RPC specification.
func (r SuccessResponse) Validate() error {
	if r.Version != JSONRPCVersion {
		return ErrInvalidResponse
	}
	if err := validateIDValue(r.RequestID, ErrInvalidID); err != nil {
		return err
	}
	if len(r.Result) == 0 {
		return ErrInvalidResponse
	}
	return nil
}

func (SuccessResponse) isResponse() {}

// AppendLine appends r's wire representation, including a trailing LF, to
// buf.
func (r SuccessResponse) AppendLine(buf []byte) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return buf, err
	}
	buf = append(buf, data...)
	buf = append(buf, '\n')
	return buf, nil
}

// ErrorResponse encapsulates a failed JSON-RPC response.
type ErrorResponse struct {
	// Version is the JSON-RPC version. It MUST be exactly "2.0".
	Version string `json:"jsonrpc"`

	// RequestID is the ID of the request that produced this response. It
	// is Null if the ID could not be salvaged from a malformed request.
	RequestID json.RawMessage `json:"id"`

	// Error describes the error produced in response to the request.
	Error ErrorInfo `json:"error"`

	// ServerError, if non-nil, is additional server-side context for an
	// internal error. It is never serialized to the wire.
	ServerError error `json:"-"`
}

// NewErrorResponse returns a new ErrorResponse describing err.
//
// If requestID is nil (the ID could not be parsed from the inbound
// request at all), the response's RequestID is the literal JSON null, per
// JSON-RPC's "salvage what you can, else null" convention for an ID that
// could not be recovered.
func NewErrorResponse(requestID json.RawMessage, err error) ErrorResponse {
	if requestID == nil {
		requestID = json.RawMessage("null")
	}

	var nerr Error
	if errors.As(err, &nerr) {
		return newNativeErrorResponse(requestID, nerr)
	}

	if isInternalError(err) {
		return ErrorResponse{
			Version:   JSONRPCVersion,
			RequestID: requestID,
			Error: ErrorInfo{
				Code:    InternalErrorCode,
				Message: InternalErrorCode.String(),
			},
			ServerError: err,
		}
	}

	return ErrorResponse{
		Version:   JSONRPCVersion,
		RequestID: requestID,
		Error: ErrorInfo{
			Code:    InternalErrorCode,
			Message: err.Error(),
		},
	}
}

func newNativeErrorResponse(requestID json.RawMessage, nerr Error) ErrorResponse {
	res := ErrorResponse{
		Version:   JSONRPCVersion,
		RequestID: requestID,
		Error: ErrorInfo{
			Code:    nerr.Code(),
			Message: nerr.Message(),
		},
		ServerError: nerr.cause,
	}

	if data := nerr.Data(); data != nil {
		marshaled, err := json.Marshal(data)
		if err != nil {
			// The user-defined error data didn't marshal; fall back to an
			// internal error rather than risk a client seeing a code that
			// implies data is present when it is not.
			return NewErrorResponse(
				requestID,
				fmt.Errorf("could not marshal error data for %s: %w", nerr, err),
			)
		}
		res.Error.Data = marshaled
	}

	return res
}

// Validate checks that r conforms to the JSON-RPC specification.
func (r ErrorResponse) Validate() error {
	if r.Version != JSONRPCVersion {
		return ErrInvalidResponse
	}
	if err := validateIDValue(r.RequestID, ErrInvalidID); err != nil {
		return err
	}
	return nil
}

func (ErrorResponse) isResponse() {}

// AppendLine appends r's wire representation, including a trailing LF, to
// buf.
func (r ErrorResponse) AppendLine(buf []byte) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return buf, err
	}
	buf = append(buf, data...)
	buf = append(buf, '\n')
	return buf, nil
}

// ErrorInfo describes a JSON-RPC error. It is carried by an ErrorResponse
// but is not itself a Go error.
type ErrorInfo struct {
	Code    ErrorCode       `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e ErrorInfo) String() string {
	return describeError(e.Code, e.Message)
}

// isInternalError returns true if err should be considered internal to
// the server (and hence its message hidden from the client), as opposed
// to a context cancellation that is safe to describe verbatim.
func isInternalError(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// ParseResponseLine parses a single JSON-RPC response from one JSON Lines
// record.
//
// The presence of an "error" field (rather than its absence) determines
// whether the line decodes as an ErrorResponse or a SuccessResponse.
func ParseResponseLine(line []byte) (Response, error) {
	line = bytes.TrimRight(line, "\r\n")

	var raw struct {
		Version   string          `json:"jsonrpc"`
		RequestID json.RawMessage `json:"id"`
		Result    json.RawMessage `json:"result"`
		Error     *rawErrorInfo   `json:"error"`
	}

	if err := jsonx.Unmarshal(line, &raw); err != nil {
		if jsonx.IsParseError(err) {
			return nil, ErrSyntax
		}
		return nil, err
	}

	if raw.Version != JSONRPCVersion {
		return nil, ErrInvalidResponse
	}

	if raw.Error != nil {
		info, err := raw.Error.toErrorInfo()
		if err != nil {
			return nil, err
		}

		if err := validateIDValue(raw.RequestID, ErrInvalidID); err != nil {
			return nil, err
		}

		return ErrorResponse{
			Version:   raw.Version,
			RequestID: raw.RequestID,
			Error:     info,
		}, nil
	}

	if len(raw.RequestID) == 0 {
		return nil, ErrMissingID
	}
	if err := validateIDValue(raw.RequestID, ErrInvalidID); err != nil {
		return nil, err
	}
	if bytes.Equal(bytes.TrimSpace(raw.RequestID), []byte("null")) {
		return nil, ErrMissingID
	}
	if raw.Result == nil {
		return nil, ErrInvalidResponse
	}

	return SuccessResponse{
		Version:   raw.Version,
		RequestID: raw.RequestID,
		Result:    raw.Result,
	}, nil
}

// rawErrorInfo mirrors ErrorInfo but with optional fields so that missing
// code/message can be distinguished from zero values during parsing.
type rawErrorInfo struct {
	Code    *json.RawMessage `json:"code"`
	Message *string          `json:"message"`
	Data    json.RawMessage  `json:"data"`
}

func (r *rawErrorInfo) toErrorInfo() (ErrorInfo, error) {
	if r.Code == nil {
		return ErrorInfo{}, ErrMissingErrorCode
	}

	var code int
	if err := json.Unmarshal(*r.Code, &code); err != nil {
		return ErrorInfo{}, ErrInvalidErrorCode
	}

	ec := ErrorCode(code)
	if err := ec.Validate(); err != nil {
		return ErrorInfo{}, err
	}

	if r.Message == nil {
		return ErrorInfo{}, ErrMissingErrorMessage
	}

	return ErrorInfo{
		Code:    ec,
		Message: *r.Message,
		Data:    r.Data,
	}, nil
}
