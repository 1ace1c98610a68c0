package document

import (
	"strings"

	"github.com/beevik/etree"
)

// ElementInfo is the introspection record for a single live element.
type ElementInfo struct {
	ID         string            `json:"id"`
	Tag        string            `json:"tag"`
	Label      string            `json:"label,omitempty"`
	ParentID   string            `json:"parentId,omitempty"`
	ChildCount int               `json:"childCount"`
	Attributes map[string]string `json:"attributes"`
	Style      map[string]string `json:"style,omitempty"`
}

// DocumentInfo is the introspection record for the whole document.
type DocumentInfo struct {
	Width         string         `json:"width"`
	Height        string         `json:"height"`
	ViewBox       string         `json:"viewBox,omitempty"`
	ElementCount  int            `json:"elementCount"`
	ElementCounts map[string]int `json:"elementCounts"`
}

// Describe extracts the introspection record of a live element. Namespace
// prefixes are stripped from attribute names except the label attribute,
// which is surfaced through the Label field.
func Describe(el *etree.Element) *ElementInfo {
	info := &ElementInfo{
		ID:         el.SelectAttrValue("id", ""),
		Tag:        el.Tag,
		Label:      el.SelectAttrValue(labelAttr, ""),
		ChildCount: len(el.ChildElements()),
		Attributes: make(map[string]string),
	}
	if parent := el.Parent(); parent != nil && parent.Tag != "" {
		info.ParentID = parent.SelectAttrValue("id", "")
	}
	for _, attr := range el.Attr {
		info.Attributes[attr.Key] = attr.Value
	}
	if style := el.SelectAttrValue("style", ""); style != "" {
		info.Style = ParseStyle(style)
	}
	return info
}

// ParseStyle splits a CSS style attribute into property/value pairs.
func ParseStyle(style string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(style, ";") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}

// Info returns document-level metadata: dimensions and element counts by tag.
func (s *Session) Info() *DocumentInfo {
	root := s.doc.Root()
	info := &DocumentInfo{
		Width:         root.SelectAttrValue("width", "unknown"),
		Height:        root.SelectAttrValue("height", "unknown"),
		ViewBox:       root.SelectAttrValue("viewBox", ""),
		ElementCounts: make(map[string]int),
	}
	s.Walk(func(el *etree.Element) bool {
		info.ElementCount++
		info.ElementCounts[el.Tag]++
		return true
	})
	return info
}
