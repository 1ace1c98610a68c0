// Package ops implements the operation registry: named operations with
// declared parameter schemas, validated before dispatch, and the structured
// error model shared by every layer of the bridge.
package ops

import "errors"

// Error kinds carried across the process boundary. Every failure a caller
// ever sees is one of these.
const (
	KindUnknownOperation     = "UNKNOWN_OPERATION"
	KindInvalidParameters    = "INVALID_PARAMETERS"
	KindTargetNotFound       = "TARGET_NOT_FOUND"
	KindIdentifierExhausted  = "IDENTIFIER_EXHAUSTED"
	KindHandlerError         = "HANDLER_ERROR"
	KindExecutionError       = "EXECUTION_ERROR"
	KindMalformedRequest     = "MALFORMED_REQUEST"
	KindTransportUnavailable = "TRANSPORT_UNAVAILABLE"
	KindUnreachable          = "UNREACHABLE"
)

// OpError is a structured operation failure.
type OpError struct {
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *OpError) Error() string {
	return e.Kind + ": " + e.Message
}

// NewOpError creates a new OpError.
func NewOpError(kind, message string) *OpError {
	return &OpError{Kind: kind, Message: message}
}

// AsOpError unwraps err to an *OpError when it carries one.
func AsOpError(err error) (*OpError, bool) {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr, true
	}
	return nil, false
}
