package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/inkbridge/inkbridge/pkg/handlers"
)

func (s *Server) registerTools() {
	// TOOL: create_element
	s.mcpServer.AddTool(mcp.NewTool("create_element",
		mcp.WithDescription("Create an SVG element (with optional nested children) in the live document. Returns the assigned element ids."),
		mcp.WithString("spec", mcp.Required(), mcp.Description(`JSON element spec: {"tag": "circle", "attributes": {"cx": "10"}, "children": [...], "idHint": "..."}`)),
		mcp.WithString("parent_id", mcp.Description("ID of an existing element to attach under (default: document root)")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		specStr, _ := args["spec"].(string)
		var spec map[string]interface{}
		if err := json.Unmarshal([]byte(specStr), &spec); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("spec is not valid JSON: %v", err)), nil
		}
		params := map[string]interface{}{"spec": spec}
		if parentID, _ := args["parent_id"].(string); parentID != "" {
			params["parent_id"] = parentID
		}
		return s.call(handlers.OpCreateElement, params)
	})

	// TOOL: get_document_info
	s.mcpServer.AddTool(mcp.NewTool("get_document_info",
		mcp.WithDescription("Get document dimensions and element counts."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.call(handlers.OpGetDocumentInfo, nil)
	})

	// TOOL: get_selection_info
	s.mcpServer.AddTool(mcp.NewTool("get_selection_info",
		mcp.WithDescription("Get detailed info for the currently selected elements."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.call(handlers.OpGetSelectionInfo, nil)
	})

	// TOOL: select_objects
	s.mcpServer.AddTool(mcp.NewTool("select_objects",
		mcp.WithDescription("Replace the current selection with the given element ids."),
		mcp.WithString("ids", mcp.Required(), mcp.Description(`JSON array of element ids, e.g. ["circle-1","rect-2"]`)),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		idsStr, _ := args["ids"].(string)
		var ids []interface{}
		if err := json.Unmarshal([]byte(idsStr), &ids); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ids is not a JSON array: %v", err)), nil
		}
		return s.call(handlers.OpSelectObjects, map[string]interface{}{"ids": ids})
	})

	// TOOL: get_object_info
	s.mcpServer.AddTool(mcp.NewTool("get_object_info",
		mcp.WithDescription("Get detailed info about one element, found by id, label, or type+index."),
		mcp.WithString("id", mcp.Description("Element id")),
		mcp.WithString("label", mcp.Description("Element label (inkscape:label)")),
		mcp.WithString("type", mcp.Description("Element tag name, combined with index")),
		mcp.WithNumber("index", mcp.Description("0-based index among elements of the given type")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		params := map[string]interface{}{}
		for _, key := range []string{"id", "label", "type"} {
			if value, _ := args[key].(string); value != "" {
				params[key] = value
			}
		}
		if index, ok := args["index"].(float64); ok {
			params["index"] = index
		}
		return s.call(handlers.OpGetObjectInfo, params)
	})

	// TOOL: get_object_property
	s.mcpServer.AddTool(mcp.NewTool("get_object_property",
		mcp.WithDescription("Get a single attribute or style property of an element."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Element id")),
		mcp.WithString("property", mcp.Required(), mcp.Description("Attribute or style property name, e.g. fill")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		return s.call(handlers.OpGetObjectProperty, map[string]interface{}{
			"id":       args["id"],
			"property": args["property"],
		})
	})

	// TOOL: execute_code
	s.mcpServer.AddTool(mcp.NewTool("execute_code",
		mcp.WithDescription("Execute a script against the live document. Bindings: doc (query/mutate), createElement(tag, attrs), appendTo(parentId, tag, attrs), log(...). Set a 'result' variable or end with an expression to return a value."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Script source")),
		mcp.WithString("variables", mcp.Description("JSON object of variables to inject into the script scope")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		params := map[string]interface{}{"code": args["code"]}
		if varsStr, _ := args["variables"].(string); varsStr != "" {
			var vars map[string]interface{}
			if err := json.Unmarshal([]byte(varsStr), &vars); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("variables is not a JSON object: %v", err)), nil
			}
			params["variables"] = vars
		}
		return s.call(handlers.OpExecuteCode, params)
	})

	// TOOL: export_viewport_image
	s.mcpServer.AddTool(mcp.NewTool("export_viewport_image",
		mcp.WithDescription("Export a rendered preview of the current document (base64 payload)."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.call(handlers.OpExportViewportImage, nil)
	})

	// TOOL: export_document
	s.mcpServer.AddTool(mcp.NewTool("export_document",
		mcp.WithDescription("Save the current document to a file path on the host."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Destination file path")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		return s.call(handlers.OpExportDocument, map[string]interface{}{"path": args["path"]})
	})
}
