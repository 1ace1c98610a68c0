// Package events defines document change events and publisher interfaces.
package events

// DocumentChangedEvent is emitted after a mutating operation completes
// against the live document.
type DocumentChangedEvent struct {
	Op           string   `json:"op"`
	Session      string   `json:"session,omitempty"`
	CreatedIDs   []string `json:"createdIds,omitempty"`
	ElementCount int      `json:"elementCount"`
	Timestamp    string   `json:"timestamp"`
}
