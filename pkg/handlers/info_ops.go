package handlers

import (
	"context"
	"fmt"

	"github.com/beevik/etree"

	"github.com/inkbridge/inkbridge/pkg/document"
	"github.com/inkbridge/inkbridge/pkg/ops"
)

func getDocumentInfoHandler() ops.Handler {
	return func(_ context.Context, session *document.Session, _ map[string]interface{}) (interface{}, error) {
		return session.Info(), nil
	}
}

// SelectionInfo is the result of get-selection-info.
type SelectionInfo struct {
	Count    int                     `json:"count"`
	Selected []*document.ElementInfo `json:"selected"`
}

func getSelectionInfoHandler() ops.Handler {
	return func(_ context.Context, session *document.Session, _ map[string]interface{}) (interface{}, error) {
		info := &SelectionInfo{Selected: []*document.ElementInfo{}}
		for _, id := range session.Selection() {
			// Selected elements can vanish under the user's scissors;
			// stale entries are skipped, not errors.
			if el := session.ElementByID(id); el != nil {
				info.Selected = append(info.Selected, document.Describe(el))
			}
		}
		info.Count = len(info.Selected)
		return info, nil
	}
}

func selectObjectsHandler() ops.Handler {
	return func(_ context.Context, session *document.Session, params map[string]interface{}) (interface{}, error) {
		rawIDs, _ := params["ids"].([]interface{})
		ids := make([]string, 0, len(rawIDs))
		for _, raw := range rawIDs {
			id, ok := raw.(string)
			if !ok {
				return nil, &ops.OpError{
					Kind:    ops.KindInvalidParameters,
					Message: "ids must be an array of strings",
					Details: map[string]interface{}{"fields": []string{"ids: expected array of strings"}},
				}
			}
			ids = append(ids, id)
		}
		if missing := session.SetSelection(ids); len(missing) > 0 {
			return nil, &ops.OpError{
				Kind:    ops.KindTargetNotFound,
				Message: "selection references unknown elements",
				Details: map[string]interface{}{"missing": missing},
			}
		}
		return map[string]interface{}{"selected": ids, "count": len(ids)}, nil
	}
}

func getObjectInfoHandler() ops.Handler {
	return func(_ context.Context, session *document.Session, params map[string]interface{}) (interface{}, error) {
		el, search, err := findObject(session, params)
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, &ops.OpError{
				Kind:    ops.KindTargetNotFound,
				Message: "object not found",
				Details: search,
			}
		}
		return document.Describe(el), nil
	}
}

// findObject resolves the id / label / type+index search forms. The returned
// search map describes which form was used, for error details.
func findObject(session *document.Session, params map[string]interface{}) (*etree.Element, map[string]interface{}, error) {
	if id, _ := params["id"].(string); id != "" {
		return session.ElementByID(id), map[string]interface{}{"searchMethod": "id", "searchValue": id}, nil
	}
	if label, _ := params["label"].(string); label != "" {
		return session.ElementByLabel(label), map[string]interface{}{"searchMethod": "label", "searchValue": label}, nil
	}
	if tag, _ := params["type"].(string); tag != "" {
		index := 0
		if raw, ok := params["index"].(float64); ok {
			index = int(raw)
		}
		search := map[string]interface{}{"searchMethod": "type_index", "searchValue": fmt.Sprintf("%s[%d]", tag, index)}
		matches := session.ElementsByTag(tag)
		if index < 0 || index >= len(matches) {
			return nil, search, nil
		}
		return matches[index], search, nil
	}
	return nil, nil, &ops.OpError{
		Kind:    ops.KindInvalidParameters,
		Message: "one of id, label, or type is required",
		Details: map[string]interface{}{"fields": []string{"id: required (or label, or type)"}},
	}
}

// ObjectProperty is the result of get-object-property.
type ObjectProperty struct {
	ID       string      `json:"id"`
	Property string      `json:"property"`
	Value    interface{} `json:"value"`
	Source   string      `json:"source,omitempty"`
	Found    bool        `json:"found"`
}

func getObjectPropertyHandler() ops.Handler {
	return func(_ context.Context, session *document.Session, params map[string]interface{}) (interface{}, error) {
		id, _ := params["id"].(string)
		property, _ := params["property"].(string)

		el := session.ElementByID(id)
		if el == nil {
			return nil, &ops.OpError{
				Kind:    ops.KindTargetNotFound,
				Message: fmt.Sprintf("element %s not found", id),
				Details: map[string]interface{}{"id": id},
			}
		}

		result := &ObjectProperty{ID: id, Property: property}
		if attr := el.SelectAttr(property); attr != nil {
			result.Value = attr.Value
			result.Source = "attribute"
			result.Found = true
			return result, nil
		}
		// Fall back to the style attribute for presentation properties.
		style := document.ParseStyle(el.SelectAttrValue("style", ""))
		if value, ok := style[property]; ok {
			result.Value = value
			result.Source = "style"
			result.Found = true
		}
		return result, nil
	}
}
