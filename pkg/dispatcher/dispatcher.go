package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/inkbridge/inkbridge/pkg/busutil"
	"github.com/inkbridge/inkbridge/pkg/document"
	"github.com/inkbridge/inkbridge/pkg/ops"
)

const logPrefix = "dispatcher:dispatch"

// Dispatcher resolves operation requests against the currently active
// document. It holds no cross-request state; the identifier space is
// rescanned inside each operation that needs it.
type Dispatcher struct {
	registry *ops.Registry
	session  *document.Session
}

// NewDispatcher creates a Dispatcher bound to one document session.
func NewDispatcher(registry *ops.Registry, session *document.Session) *Dispatcher {
	return &Dispatcher{registry: registry, session: session}
}

// HandleRaw processes one serialized request and returns the serialized
// response. Undecodable input yields a MALFORMED_REQUEST response rather
// than silence; the requester always gets a reply.
func (d *Dispatcher) HandleRaw(ctx context.Context, data []byte) []byte {
	var req OperationRequest
	if err := busutil.DecodeMessage(data, &req); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
		return encodeResponse(&OperationResponse{
			Ok: false,
			Error: &ErrorDetail{
				Kind:    ops.KindMalformedRequest,
				Message: "failed to decode request",
			},
		})
	}
	return encodeResponse(d.Dispatch(ctx, &req))
}

// Dispatch resolves one request. The session lock is held for the whole
// call: the live document is a shared mutable resource with no internal
// locking, so requests run one at a time to completion.
func (d *Dispatcher) Dispatch(ctx context.Context, req *OperationRequest) *OperationResponse {
	slog.Debug(fmt.Sprintf("%s - op=%s id=%s", logPrefix, req.Op, req.ID))

	params := map[string]interface{}{}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return &OperationResponse{
				ID: req.ID,
				Ok: false,
				Error: &ErrorDetail{
					Kind:    ops.KindInvalidParameters,
					Message: "params must be a JSON object",
				},
			}
		}
	}

	d.session.Lock()
	defer d.session.Unlock()

	result, opErr := d.registry.Dispatch(ctx, d.session, req.Op, params)
	if opErr != nil {
		return &OperationResponse{
			ID: req.ID,
			Ok: false,
			Error: &ErrorDetail{
				Kind:    opErr.Kind,
				Message: opErr.Message,
				Details: opErr.Details,
			},
		}
	}
	return &OperationResponse{ID: req.ID, Ok: true, Result: result}
}

// encodeResponse serializes a response, degrading to a minimal handler-error
// envelope when the result itself cannot be encoded.
func encodeResponse(resp *OperationResponse) []byte {
	data, err := busutil.EncodeMessage(resp)
	if err == nil {
		return data
	}
	slog.Error(fmt.Sprintf("%s - failed to encode response: %v", logPrefix, err))
	fallback := &OperationResponse{
		ID: resp.ID,
		Ok: false,
		Error: &ErrorDetail{
			Kind:    ops.KindHandlerError,
			Message: "result could not be serialized",
		},
	}
	data, _ = busutil.EncodeMessage(fallback)
	return data
}
