// Package scene materializes declarative element specifications into live
// document nodes, resolving identifier collisions against the document as it
// exists at build time.
package scene

// ElementSpec describes a not-yet-materialized element and its subtree. The
// id hint may also be supplied as an "id" attribute; either way the assigned
// identifier can differ when the hint is already taken.
type ElementSpec struct {
	Tag        string            `json:"tag"`
	IDHint     string            `json:"idHint,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Children   []ElementSpec     `json:"children,omitempty"`
}

// BuildResult reports the identifiers assigned to one build call.
// IDMapping relates requested id hints to the identifiers actually assigned.
type BuildResult struct {
	RootID     string            `json:"createdId"`
	CreatedIDs []string          `json:"createdIds"`
	IDMapping  map[string]string `json:"idMapping,omitempty"`
}

// defsTags are placed under <defs> when no explicit parent is given.
var defsTags = map[string]bool{
	"linearGradient": true,
	"radialGradient": true,
	"pattern":        true,
	"filter":         true,
	"marker":         true,
	"clipPath":       true,
	"mask":           true,
	"symbol":         true,
}

// knownTags is the accepted element vocabulary. Unknown tags are rejected
// before any mutation happens.
var knownTags = map[string]bool{
	// shapes
	"rect": true, "circle": true, "ellipse": true, "line": true,
	"polygon": true, "polyline": true, "path": true,
	// text
	"text": true, "tspan": true, "textPath": true,
	// structure
	"g": true, "defs": true, "svg": true, "a": true, "switch": true,
	"use": true, "image": true, "symbol": true, "foreignObject": true,
	// paint servers and clipping
	"linearGradient": true, "radialGradient": true, "stop": true,
	"pattern": true, "marker": true, "clipPath": true, "mask": true,
	// filters
	"filter": true, "feGaussianBlur": true, "feOffset": true,
	"feBlend": true, "feColorMatrix": true, "feFlood": true,
	"feComposite": true, "feMerge": true, "feMergeNode": true,
	// misc
	"title": true, "desc": true, "style": true,
}
