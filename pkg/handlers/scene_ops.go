package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inkbridge/inkbridge/pkg/document"
	"github.com/inkbridge/inkbridge/pkg/ops"
	"github.com/inkbridge/inkbridge/pkg/scene"
)

// createElementHandler materializes an element spec (and its subtree) into
// the live document.
func createElementHandler() ops.Handler {
	return func(_ context.Context, session *document.Session, params map[string]interface{}) (interface{}, error) {
		spec, err := decodeSpec(params["spec"])
		if err != nil {
			return nil, err
		}
		parentID, _ := params["parent_id"].(string)

		return scene.Build(session, spec, parentID)
	}
}

// decodeSpec re-marshals the raw params value into a typed ElementSpec.
func decodeSpec(raw interface{}) (*scene.ElementSpec, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, ops.NewOpError(ops.KindInvalidParameters, "spec is not a valid element specification")
	}
	var spec scene.ElementSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, ops.NewOpError(ops.KindInvalidParameters,
			fmt.Sprintf("spec is not a valid element specification: %v", err))
	}
	if spec.Tag == "" {
		return nil, &ops.OpError{
			Kind:    ops.KindInvalidParameters,
			Message: "spec requires a tag",
			Details: map[string]interface{}{"fields": []string{"spec.tag: required"}},
		}
	}
	return &spec, nil
}
