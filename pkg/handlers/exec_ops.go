package handlers

import (
	"context"
	"encoding/base64"

	"github.com/inkbridge/inkbridge/pkg/document"
	"github.com/inkbridge/inkbridge/pkg/ops"
	"github.com/inkbridge/inkbridge/pkg/sandbox"
)

func executeCodeHandler(deps Deps) ops.Handler {
	return func(ctx context.Context, session *document.Session, params map[string]interface{}) (interface{}, error) {
		code, _ := params["code"].(string)
		variables, _ := params["variables"].(map[string]interface{})

		return sandbox.Execute(ctx, session, code, variables, deps.ExecTimeout)
	}
}

// ViewportImage is the result of export-viewport-image: the host's rendering
// of the current document, opaque bytes to the bridge.
type ViewportImage struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
	Bytes    int    `json:"bytes"`
}

func exportViewportImageHandler() ops.Handler {
	return func(_ context.Context, session *document.Session, params map[string]interface{}) (interface{}, error) {
		pretty, _ := params["pretty"].(bool)
		data, err := session.Serialize(pretty)
		if err != nil {
			return nil, err
		}
		return &ViewportImage{
			MimeType: "image/svg+xml",
			Data:     base64.StdEncoding.EncodeToString(data),
			Bytes:    len(data),
		}, nil
	}
}

func exportDocumentHandler() ops.Handler {
	return func(_ context.Context, session *document.Session, params map[string]interface{}) (interface{}, error) {
		path, _ := params["path"].(string)
		if err := session.Save(path); err != nil {
			return nil, err
		}
		return map[string]interface{}{"path": path, "saved": true}, nil
	}
}
