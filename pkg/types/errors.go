package types

import "github.com/segmentio/encoding/json"

const (
	ErrParseError     = -32700
	ErrMethodNotFound = -32601
	ErrInvalidVector  = 1001
	ErrNotFound       = 1002
	ErrProviderError  = 2001
	ErrEngineError    = 3001
	ErrTimeout        = 3002
	ErrSessionError   = 3003

	ErrTypeParseError     = "PARSE_ERROR"
	ErrTypeMethodNotFound = "METHOD_NOT_FOUND"
	ErrTypeInvalidVector  = "INVALID_VECTOR"
	ErrTypeNotFound       = "NOT_FOUND"
	ErrTypeProviderError  = "PROVIDER_ERROR"
	ErrTypeEngineError    = "ENGINE_ERROR"
	ErrTypeTimeout        = "TIMEOUT"
	ErrTypeSessionError   = "SESSION_ERROR"
)

// NewRPCError constructs an RPCError with the given fields.
func NewRPCError(code int, message string, errorType string, retryable bool, detail string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
		Data: &ErrorData{
			ErrorType: errorType,
			Retryable: retryable,
			Detail:    detail,
		},
	}
}

// Error implements error so handlers can return an *RPCError through goerr.
func (e *RPCError) Error() string {
	if e.Data != nil && e.Data.Detail != "" {
		return e.Message + ": " + e.Data.Detail
	}
	return e.Message
}

// NewErrorResponse constructs a JSON-RPC error response.
func NewErrorResponse(id int64, err *RPCError) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   err,
	}
}

// NewSuccessResponse constructs a JSON-RPC success response from a result value.
func NewSuccessResponse(id int64, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  raw,
	}, nil
}
