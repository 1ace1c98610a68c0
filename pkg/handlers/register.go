// Package handlers registers the built-in bridge operations against an
// operation registry. Each handler runs under the session lock held by the
// dispatcher and either fully succeeds or returns a single structured error.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkbridge/inkbridge/pkg/document"
	"github.com/inkbridge/inkbridge/pkg/events"
	"github.com/inkbridge/inkbridge/pkg/ops"
	"github.com/inkbridge/inkbridge/pkg/scene"
)

const logPrefix = "handlers:register"

// Operation names on the wire.
const (
	OpCreateElement       = "create-element"
	OpGetDocumentInfo     = "get-document-info"
	OpGetSelectionInfo    = "get-selection-info"
	OpSelectObjects       = "select-objects"
	OpGetObjectInfo       = "get-object-info"
	OpGetObjectProperty   = "get-object-property"
	OpExecuteCode         = "execute-code"
	OpExportViewportImage = "export-viewport-image"
	OpExportDocument      = "export-document"
)

// Deps carries the collaborators the built-in handlers need.
type Deps struct {
	Publisher events.EventPublisher
	// Session names the host session in change events.
	Session string
	// ExecTimeout interrupts runaway sandbox scripts.
	ExecTimeout time.Duration
}

// RegisterAll registers the built-in operation set.
func RegisterAll(reg *ops.Registry, deps Deps) error {
	if deps.Publisher == nil {
		deps.Publisher = &events.NoOpPublisher{}
	}
	operations := []ops.Operation{
		{
			Name:     OpCreateElement,
			Mutating: true,
			Schema: ops.Schema{Fields: []ops.Field{
				{Name: "spec", Type: ops.TypeObject, Required: true},
				{Name: "parent_id", Type: ops.TypeString},
			}},
			Handler: createElementHandler(),
		},
		{
			Name:    OpGetDocumentInfo,
			Handler: getDocumentInfoHandler(),
		},
		{
			Name:    OpGetSelectionInfo,
			Handler: getSelectionInfoHandler(),
		},
		{
			Name:     OpSelectObjects,
			Mutating: true,
			Schema: ops.Schema{Fields: []ops.Field{
				{Name: "ids", Type: ops.TypeArray, Required: true},
			}},
			Handler: selectObjectsHandler(),
		},
		{
			Name: OpGetObjectInfo,
			Schema: ops.Schema{Fields: []ops.Field{
				{Name: "id", Type: ops.TypeString},
				{Name: "label", Type: ops.TypeString},
				{Name: "type", Type: ops.TypeString},
				{Name: "index", Type: ops.TypeNumber},
			}},
			Handler: getObjectInfoHandler(),
		},
		{
			Name: OpGetObjectProperty,
			Schema: ops.Schema{Fields: []ops.Field{
				{Name: "id", Type: ops.TypeString, Required: true},
				{Name: "property", Type: ops.TypeString, Required: true},
			}},
			Handler: getObjectPropertyHandler(),
		},
		{
			Name:     OpExecuteCode,
			Mutating: true,
			Schema: ops.Schema{Fields: []ops.Field{
				{Name: "code", Type: ops.TypeString, Required: true},
				{Name: "variables", Type: ops.TypeObject},
			}},
			Handler: executeCodeHandler(deps),
		},
		{
			Name: OpExportViewportImage,
			Schema: ops.Schema{Fields: []ops.Field{
				{Name: "pretty", Type: ops.TypeBool},
			}},
			Handler: exportViewportImageHandler(),
		},
		{
			Name:     OpExportDocument,
			Mutating: true,
			Schema: ops.Schema{Fields: []ops.Field{
				{Name: "path", Type: ops.TypeString, Required: true},
			}},
			Handler: exportDocumentHandler(),
		},
	}
	for _, op := range operations {
		if op.Mutating {
			op.Handler = withChangeEvent(deps, op.Name, op.Handler)
		}
		if err := reg.Register(op); err != nil {
			return fmt.Errorf("%s - failed to register %s: %w", logPrefix, op.Name, err)
		}
	}
	slog.Info(fmt.Sprintf("%s - Registered %d operations", logPrefix, len(operations)))
	return nil
}

// withChangeEvent wraps a mutating handler so every successful mutation
// emits exactly one change event. Handlers never publish on their own; the
// Mutating flag on the registration is the single source of truth.
func withChangeEvent(deps Deps, op string, h ops.Handler) ops.Handler {
	return func(ctx context.Context, session *document.Session, params map[string]interface{}) (interface{}, error) {
		result, err := h(ctx, session, params)
		if err != nil {
			return nil, err
		}
		var createdIDs []string
		if built, ok := result.(*scene.BuildResult); ok {
			createdIDs = built.CreatedIDs
		}
		publishChanged(ctx, deps, session, op, createdIDs)
		return result, nil
	}
}

// publishChanged emits a change event after a successful mutation. Event
// delivery is best effort; a publish failure never fails the operation.
func publishChanged(ctx context.Context, deps Deps, session *document.Session, op string, createdIDs []string) {
	event := &events.DocumentChangedEvent{
		Op:           op,
		Session:      deps.Session,
		CreatedIDs:   createdIDs,
		ElementCount: session.CountElements(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := deps.Publisher.PublishChanged(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - change event publish failed for %s: %v", logPrefix, op, err))
	}
}
