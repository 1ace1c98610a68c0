package handlers

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/inkbridge/inkbridge/pkg/document"
	"github.com/inkbridge/inkbridge/pkg/events"
	"github.com/inkbridge/inkbridge/pkg/ops"
	"github.com/inkbridge/inkbridge/pkg/sandbox"
	"github.com/inkbridge/inkbridge/pkg/scene"
)

type fixture struct {
	registry *ops.Registry
	session  *document.Session
	events   []*events.DocumentChangedEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		registry: ops.NewRegistry(),
		session:  document.NewSession("400", "300"),
	}
	pub := events.NewCallbackPublisher(func(_ context.Context, e *events.DocumentChangedEvent) error {
		f.events = append(f.events, e)
		return nil
	})
	deps := Deps{Publisher: pub, Session: "test-session", ExecTimeout: time.Second}
	if err := RegisterAll(f.registry, deps); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	return f
}

func (f *fixture) dispatch(t *testing.T, op string, params map[string]interface{}) interface{} {
	t.Helper()
	result, opErr := f.registry.Dispatch(context.Background(), f.session, op, params)
	if opErr != nil {
		t.Fatalf("%s failed: %v", op, opErr)
	}
	return result
}

func (f *fixture) dispatchErr(t *testing.T, op string, params map[string]interface{}) *ops.OpError {
	t.Helper()
	_, opErr := f.registry.Dispatch(context.Background(), f.session, op, params)
	if opErr == nil {
		t.Fatalf("%s succeeded, expected error", op)
	}
	return opErr
}

func TestRegisterAll_OperationSet(t *testing.T) {
	f := newFixture(t)
	want := []string{
		OpCreateElement, OpExecuteCode, OpExportDocument, OpExportViewportImage,
		OpGetDocumentInfo, OpGetObjectInfo, OpGetObjectProperty,
		OpGetSelectionInfo, OpSelectObjects,
	}
	got := f.registry.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %d operations", got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChangeEvents_FollowMutatingFlag(t *testing.T) {
	f := newFixture(t)

	f.dispatch(t, OpGetDocumentInfo, nil)
	if len(f.events) != 0 {
		t.Fatalf("read-only operation published %+v", f.events)
	}

	f.dispatch(t, OpCreateElement, map[string]interface{}{
		"spec": map[string]interface{}{"tag": "rect", "idHint": "a"},
	})
	f.dispatch(t, OpSelectObjects, map[string]interface{}{
		"ids": []interface{}{"a"},
	})

	if len(f.events) != 2 {
		t.Fatalf("events = %+v, want one per mutation", f.events)
	}
	if f.events[0].Op != OpCreateElement || f.events[1].Op != OpSelectObjects {
		t.Errorf("event ops = %q, %q; want %q, %q",
			f.events[0].Op, f.events[1].Op, OpCreateElement, OpSelectObjects)
	}
}

func TestCreateElement_RoundTrip(t *testing.T) {
	f := newFixture(t)
	result := f.dispatch(t, OpCreateElement, map[string]interface{}{
		"spec": map[string]interface{}{
			"tag":        "circle",
			"idHint":     "dot",
			"attributes": map[string]interface{}{"cx": "10", "r": "4"},
		},
	})

	built, ok := result.(*scene.BuildResult)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if built.RootID != "dot" {
		t.Errorf("RootID = %q, want dot", built.RootID)
	}
	el := f.session.ElementByID("dot")
	if el == nil {
		t.Fatal("created element not found")
	}
	if got := el.SelectAttrValue("cx", ""); got != "10" {
		t.Errorf("cx = %q, want 10", got)
	}

	info := f.dispatch(t, OpGetObjectInfo, map[string]interface{}{"id": "dot"}).(*document.ElementInfo)
	if info.Tag != "circle" || info.Attributes["r"] != "4" {
		t.Errorf("info = %+v, want circle with r=4", info)
	}

	if len(f.events) != 1 || f.events[0].Op != OpCreateElement {
		t.Fatalf("events = %+v, want one create-element event", f.events)
	}
	if f.events[0].Session != "test-session" {
		t.Errorf("event session = %q, want test-session", f.events[0].Session)
	}
	if len(f.events[0].CreatedIDs) != 1 || f.events[0].CreatedIDs[0] != "dot" {
		t.Errorf("event createdIds = %v, want [dot]", f.events[0].CreatedIDs)
	}
}

func TestCreateElement_MissingSpec(t *testing.T) {
	f := newFixture(t)
	opErr := f.dispatchErr(t, OpCreateElement, map[string]interface{}{})
	if opErr.Kind != ops.KindInvalidParameters {
		t.Errorf("kind = %s, want %s", opErr.Kind, ops.KindInvalidParameters)
	}
}

func TestCreateElement_StaleParent(t *testing.T) {
	f := newFixture(t)
	opErr := f.dispatchErr(t, OpCreateElement, map[string]interface{}{
		"spec":      map[string]interface{}{"tag": "rect"},
		"parent_id": "layer-deleted",
	})
	if opErr.Kind != ops.KindTargetNotFound {
		t.Errorf("kind = %s, want %s", opErr.Kind, ops.KindTargetNotFound)
	}
	if len(f.events) != 0 {
		t.Errorf("events published on failure: %+v", f.events)
	}
}

func TestGetDocumentInfo(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, OpCreateElement, map[string]interface{}{
		"spec": map[string]interface{}{"tag": "rect"},
	})

	info := f.dispatch(t, OpGetDocumentInfo, nil).(*document.DocumentInfo)
	if info.Width != "400" || info.Height != "300" {
		t.Errorf("size = %sx%s, want 400x300", info.Width, info.Height)
	}
	if info.ElementCounts["rect"] != 1 {
		t.Errorf("ElementCounts = %v, want one rect", info.ElementCounts)
	}
}

func TestSelectionLifecycle(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, OpCreateElement, map[string]interface{}{
		"spec": map[string]interface{}{"tag": "rect", "idHint": "a"},
	})
	f.dispatch(t, OpCreateElement, map[string]interface{}{
		"spec": map[string]interface{}{"tag": "rect", "idHint": "b"},
	})

	f.dispatch(t, OpSelectObjects, map[string]interface{}{
		"ids": []interface{}{"a", "b"},
	})

	info := f.dispatch(t, OpGetSelectionInfo, nil).(*SelectionInfo)
	if info.Count != 2 {
		t.Fatalf("Count = %d, want 2", info.Count)
	}
	if info.Selected[0].ID != "a" || info.Selected[1].ID != "b" {
		t.Errorf("Selected = %+v, want a then b", info.Selected)
	}

	opErr := f.dispatchErr(t, OpSelectObjects, map[string]interface{}{
		"ids": []interface{}{"a", "ghost"},
	})
	if opErr.Kind != ops.KindTargetNotFound {
		t.Errorf("kind = %s, want %s", opErr.Kind, ops.KindTargetNotFound)
	}
	// Failed selection must not clobber the previous one.
	if got := f.session.Selection(); len(got) != 2 {
		t.Errorf("selection after failed select = %v, want [a b]", got)
	}
}

func TestSelectObjects_NonStringIDs(t *testing.T) {
	f := newFixture(t)
	opErr := f.dispatchErr(t, OpSelectObjects, map[string]interface{}{
		"ids": []interface{}{float64(7)},
	})
	if opErr.Kind != ops.KindInvalidParameters {
		t.Errorf("kind = %s, want %s", opErr.Kind, ops.KindInvalidParameters)
	}
}

func TestGetObjectInfo_SearchForms(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, OpCreateElement, map[string]interface{}{
		"spec": map[string]interface{}{
			"tag":        "rect",
			"idHint":     "first",
			"attributes": map[string]interface{}{"inkscape:label": "Background"},
		},
	})
	f.dispatch(t, OpCreateElement, map[string]interface{}{
		"spec": map[string]interface{}{"tag": "rect", "idHint": "second"},
	})

	byLabel := f.dispatch(t, OpGetObjectInfo, map[string]interface{}{"label": "Background"}).(*document.ElementInfo)
	if byLabel.ID != "first" {
		t.Errorf("label lookup = %s, want first", byLabel.ID)
	}

	byIndex := f.dispatch(t, OpGetObjectInfo, map[string]interface{}{
		"type": "rect", "index": float64(1),
	}).(*document.ElementInfo)
	if byIndex.ID != "second" {
		t.Errorf("type[1] lookup = %s, want second", byIndex.ID)
	}

	opErr := f.dispatchErr(t, OpGetObjectInfo, map[string]interface{}{
		"type": "rect", "index": float64(9),
	})
	if opErr.Kind != ops.KindTargetNotFound {
		t.Errorf("kind = %s, want %s", opErr.Kind, ops.KindTargetNotFound)
	}

	opErr = f.dispatchErr(t, OpGetObjectInfo, map[string]interface{}{})
	if opErr.Kind != ops.KindInvalidParameters {
		t.Errorf("kind = %s, want %s for empty search", opErr.Kind, ops.KindInvalidParameters)
	}
}

func TestGetObjectProperty_AttributeAndStyle(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, OpCreateElement, map[string]interface{}{
		"spec": map[string]interface{}{
			"tag":    "rect",
			"idHint": "styled",
			"attributes": map[string]interface{}{
				"width": "20",
				"style": "fill:#ff0000;stroke-width:2",
			},
		},
	})

	attr := f.dispatch(t, OpGetObjectProperty, map[string]interface{}{
		"id": "styled", "property": "width",
	}).(*ObjectProperty)
	if !attr.Found || attr.Source != "attribute" || attr.Value != "20" {
		t.Errorf("width = %+v, want attribute 20", attr)
	}

	style := f.dispatch(t, OpGetObjectProperty, map[string]interface{}{
		"id": "styled", "property": "fill",
	}).(*ObjectProperty)
	if !style.Found || style.Source != "style" || style.Value != "#ff0000" {
		t.Errorf("fill = %+v, want style #ff0000", style)
	}

	absent := f.dispatch(t, OpGetObjectProperty, map[string]interface{}{
		"id": "styled", "property": "opacity",
	}).(*ObjectProperty)
	if absent.Found {
		t.Errorf("opacity = %+v, want not found", absent)
	}

	opErr := f.dispatchErr(t, OpGetObjectProperty, map[string]interface{}{
		"id": "ghost", "property": "fill",
	})
	if opErr.Kind != ops.KindTargetNotFound {
		t.Errorf("kind = %s, want %s", opErr.Kind, ops.KindTargetNotFound)
	}
}

func TestExecuteCode_ThroughRegistry(t *testing.T) {
	f := newFixture(t)
	result := f.dispatch(t, OpExecuteCode, map[string]interface{}{
		"code":      "var id = createElement('circle', {r: radius}); id",
		"variables": map[string]interface{}{"radius": float64(8)},
	})

	res, ok := result.(*sandbox.Result)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	id, ok := res.Variables["id"].(string)
	if !ok || id == "" {
		t.Fatalf("id variable = %v, want assigned identifier", res.Variables["id"])
	}
	if f.session.ElementByID(id) == nil {
		t.Errorf("script-created element %s missing from session", id)
	}
	if got := res.ReturnValue; got != id {
		t.Errorf("ReturnValue = %v, want the created id", got)
	}

	if len(f.events) == 0 || f.events[len(f.events)-1].Op != OpExecuteCode {
		t.Errorf("events = %+v, want execute-code event", f.events)
	}
}

func TestExportViewportImage(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, OpCreateElement, map[string]interface{}{
		"spec": map[string]interface{}{"tag": "circle", "idHint": "target"},
	})

	image := f.dispatch(t, OpExportViewportImage, nil).(*ViewportImage)
	if image.MimeType != "image/svg+xml" {
		t.Errorf("MimeType = %q, want image/svg+xml", image.MimeType)
	}
	raw, err := base64.StdEncoding.DecodeString(image.Data)
	if err != nil {
		t.Fatalf("Data is not base64: %v", err)
	}
	if image.Bytes != len(raw) {
		t.Errorf("Bytes = %d, want %d", image.Bytes, len(raw))
	}
	svg := string(raw)
	if !strings.Contains(svg, "<svg") || !strings.Contains(svg, `id="target"`) {
		t.Errorf("decoded payload is not the document: %.80s", svg)
	}
}

func TestExportDocument(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "out.svg")

	result := f.dispatch(t, OpExportDocument, map[string]interface{}{"path": path}).(map[string]interface{})
	if result["saved"] != true || result["path"] != path {
		t.Errorf("result = %v, want saved at %s", result, path)
	}

	reloaded, err := document.LoadSession(path)
	if err != nil {
		t.Fatalf("exported file does not load: %v", err)
	}
	if reloaded.Info().Width != "400" {
		t.Errorf("reloaded width = %s, want 400", reloaded.Info().Width)
	}
}
