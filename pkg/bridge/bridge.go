// Package bridge implements the client-side transport bridge: one request
// serialized, delivered over the bus, and one reply awaited under a bounded
// timeout. It is explicit message passing, not a transparent remote call —
// a timeout means the outcome is unknown, not that nothing happened.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nuid"

	"github.com/inkbridge/inkbridge/pkg/busutil"
	"github.com/inkbridge/inkbridge/pkg/dispatcher"
	"github.com/inkbridge/inkbridge/pkg/ops"
)

const logPrefix = "bridge:send"

// NewRequest builds an operation request with a fresh id. params may be any
// JSON-encodable value, typically a map.
func NewRequest(op string, params interface{}) (*dispatcher.OperationRequest, error) {
	req := &dispatcher.OperationRequest{ID: nuid.Next(), Op: op}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to encode params: %w", logPrefix, err)
		}
		req.Params = data
	}
	return req, nil
}

// Send delivers one request to the host dispatcher's subject and waits for
// the reply. Every outcome is a response value:
//
//   - bus-level failure (host absent, connection closed): TRANSPORT_UNAVAILABLE,
//     returned immediately without retry;
//   - no reply within timeout: UNREACHABLE — the host may still complete the
//     operation, so the caller must treat the outcome as unknown;
//   - an undecodable reply: MALFORMED_REQUEST.
func Send(nc *nats.Conn, subject string, req *dispatcher.OperationRequest, timeout time.Duration) *dispatcher.OperationResponse {
	if req.ID == "" {
		req.ID = nuid.Next()
	}
	data, err := busutil.EncodeMessage(req)
	if err != nil {
		return failure(req.ID, ops.KindMalformedRequest, fmt.Sprintf("failed to encode request: %v", err))
	}

	msg, err := nc.Request(subject, data, timeout)
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) {
			slog.Warn(fmt.Sprintf("%s - no reply for %s within %s, outcome unknown", logPrefix, req.Op, timeout))
			return failure(req.ID, ops.KindUnreachable, fmt.Sprintf("no reply within %s; operation outcome unknown", timeout))
		}
		slog.Warn(fmt.Sprintf("%s - bus send failed for %s: %v", logPrefix, req.Op, err))
		return failure(req.ID, ops.KindTransportUnavailable, fmt.Sprintf("bus unavailable: %v", err))
	}

	var resp dispatcher.OperationResponse
	if err := busutil.DecodeMessage(msg.Data, &resp); err != nil {
		return failure(req.ID, ops.KindMalformedRequest, fmt.Sprintf("failed to decode reply: %v", err))
	}
	return &resp
}

func failure(id, kind, message string) *dispatcher.OperationResponse {
	return &dispatcher.OperationResponse{
		ID: id,
		Ok: false,
		Error: &dispatcher.ErrorDetail{
			Kind:    kind,
			Message: message,
		},
	}
}
