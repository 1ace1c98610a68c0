package events

import (
	"context"
	"testing"
)

func TestNoOpPublisher(t *testing.T) {
	pub := &NoOpPublisher{}
	err := pub.PublishChanged(context.Background(), &DocumentChangedEvent{
		Op:           "create-element",
		ElementCount: 2,
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCallbackPublisher(t *testing.T) {
	var captured *DocumentChangedEvent

	pub := NewCallbackPublisher(func(_ context.Context, event *DocumentChangedEvent) error {
		captured = event
		return nil
	})

	event := &DocumentChangedEvent{
		Op:           "create-element",
		Session:      "studio",
		CreatedIDs:   []string{"rect-1"},
		ElementCount: 3,
		Timestamp:    "2025-01-01T00:00:00Z",
	}

	err := pub.PublishChanged(context.Background(), event)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if captured == nil {
		t.Fatal("expected callback to be called")
	}
	if captured.Op != "create-element" {
		t.Errorf("expected op create-element, got %s", captured.Op)
	}
	if captured.ElementCount != 3 {
		t.Errorf("expected element count 3, got %d", captured.ElementCount)
	}
}
