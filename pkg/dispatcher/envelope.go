// Package dispatcher implements the host-side request loop: it deserializes
// bus messages into operation requests, resolves them through the operation
// registry against the currently active document, and serializes the result
// or error back to the requester.
package dispatcher

import "encoding/json"

// OperationRequest is the JSON wire envelope for incoming requests.
// Immutable once constructed; consumed exactly once.
type OperationRequest struct {
	ID     string          `json:"id"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// OperationResponse is the JSON wire envelope for responses. Exactly one of
// Result or Error is populated.
type OperationResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result interface{}  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured failure information.
type ErrorDetail struct {
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
