// Package tests contains end-to-end tests for the inkbridge host. These
// tests start an embedded bus server and run the full request/response flow
// through the dispatcher, the way a real bridge client reaches a host.
package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/inkbridge/inkbridge/pkg/bridge"
	"github.com/inkbridge/inkbridge/pkg/busutil"
	"github.com/inkbridge/inkbridge/pkg/dispatcher"
	"github.com/inkbridge/inkbridge/pkg/document"
	"github.com/inkbridge/inkbridge/pkg/events"
	"github.com/inkbridge/inkbridge/pkg/handlers"
	"github.com/inkbridge/inkbridge/pkg/ops"
)

const (
	testSession = "e2e"
	testPort    = 14240
)

// testEnv holds the test environment for E2E tests.
type testEnv struct {
	nc      *nats.Conn
	ns      *natsserver.Server
	session *document.Session
	subject string
}

// setupE2E starts an embedded bus server and wires the full host pipeline:
// registry, dispatcher, bus publisher, and the request subscription.
func setupE2E(t *testing.T) *testEnv {
	t.Helper()

	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   testPort,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("e2e_test - failed to create bus server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("e2e_test - bus server failed to start")
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("e2e_test - failed to connect: %v", err)
	}

	env := &testEnv{
		nc:      nc,
		ns:      ns,
		session: document.NewSession("800", "600"),
		subject: busutil.RequestSubject(testSession),
	}

	reg := ops.NewRegistry()
	err = handlers.RegisterAll(reg, handlers.Deps{
		Publisher:   events.NewBusPublisher(nc, nil),
		Session:     testSession,
		ExecTimeout: 2 * time.Second,
	})
	if err != nil {
		nc.Close()
		ns.Shutdown()
		t.Fatalf("e2e_test - failed to register operations: %v", err)
	}
	disp := dispatcher.NewDispatcher(reg, env.session)

	// Simulates the host server subscription.
	_, err = nc.Subscribe(env.subject, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		msg.Respond(disp.HandleRaw(ctx, msg.Data))
	})
	if err != nil {
		nc.Close()
		ns.Shutdown()
		t.Fatalf("e2e_test - failed to subscribe: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return env
}

// send delivers one operation through the transport bridge.
func (env *testEnv) send(t *testing.T, op string, params interface{}) *dispatcher.OperationResponse {
	t.Helper()
	req, err := bridge.NewRequest(op, params)
	if err != nil {
		t.Fatalf("e2e_test - failed to build request: %v", err)
	}
	return bridge.Send(env.nc, env.subject, req, 10*time.Second)
}

func TestE2E_UnknownOperation(t *testing.T) {
	env := setupE2E(t)

	resp := env.send(t, "nonexistent-op", nil)

	if resp.Ok {
		t.Error("e2e_test - expected Ok=false for unknown operation")
	}
	if resp.Error == nil {
		t.Fatal("e2e_test - expected error, got nil")
	}
	if resp.Error.Kind != ops.KindUnknownOperation {
		t.Errorf("e2e_test - error kind = %q, want %q", resp.Error.Kind, ops.KindUnknownOperation)
	}
}

func TestE2E_CreateAndInspect(t *testing.T) {
	env := setupE2E(t)

	resp := env.send(t, handlers.OpCreateElement, map[string]interface{}{
		"spec": map[string]interface{}{
			"tag":    "g",
			"idHint": "logo",
			"children": []interface{}{
				map[string]interface{}{
					"tag":        "rect",
					"attributes": map[string]interface{}{"width": "40", "height": "20"},
				},
			},
		},
	})
	if !resp.Ok {
		t.Fatalf("e2e_test - create-element failed: %+v", resp.Error)
	}

	result, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("e2e_test - failed to re-marshal result: %v", err)
	}
	var created struct {
		CreatedID  string   `json:"createdId"`
		CreatedIDs []string `json:"createdIds"`
	}
	if err := json.Unmarshal(result, &created); err != nil {
		t.Fatalf("e2e_test - failed to decode result: %v", err)
	}
	if created.CreatedID != "logo" {
		t.Errorf("e2e_test - createdId = %q, want %q", created.CreatedID, "logo")
	}
	if len(created.CreatedIDs) != 2 {
		t.Errorf("e2e_test - createdIds = %v, want 2 entries", created.CreatedIDs)
	}

	resp = env.send(t, handlers.OpGetDocumentInfo, nil)
	if !resp.Ok {
		t.Fatalf("e2e_test - get-document-info failed: %+v", resp.Error)
	}
	info, _ := json.Marshal(resp.Result)
	var docInfo struct {
		Width         string         `json:"width"`
		ElementCounts map[string]int `json:"elementCounts"`
	}
	if err := json.Unmarshal(info, &docInfo); err != nil {
		t.Fatalf("e2e_test - failed to decode document info: %v", err)
	}
	if docInfo.Width != "800" {
		t.Errorf("e2e_test - width = %q, want %q", docInfo.Width, "800")
	}
	if docInfo.ElementCounts["rect"] != 1 {
		t.Errorf("e2e_test - ElementCounts = %v, want one rect", docInfo.ElementCounts)
	}
}

func TestE2E_ChangeEventsOnTheBus(t *testing.T) {
	env := setupE2E(t)

	received := make(chan *events.DocumentChangedEvent, 4)
	sub, err := env.nc.Subscribe(busutil.SubjectChangeEvent, func(msg *nats.Msg) {
		var event events.DocumentChangedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		received <- &event
	})
	if err != nil {
		t.Fatalf("e2e_test - failed to subscribe to change events: %v", err)
	}
	defer sub.Unsubscribe()

	resp := env.send(t, handlers.OpCreateElement, map[string]interface{}{
		"spec": map[string]interface{}{"tag": "circle", "idHint": "evt"},
	})
	if !resp.Ok {
		t.Fatalf("e2e_test - create-element failed: %+v", resp.Error)
	}

	select {
	case event := <-received:
		if event.Op != handlers.OpCreateElement {
			t.Errorf("e2e_test - event op = %q, want %q", event.Op, handlers.OpCreateElement)
		}
		if event.Session != testSession {
			t.Errorf("e2e_test - event session = %q, want %q", event.Session, testSession)
		}
		if len(event.CreatedIDs) != 1 || event.CreatedIDs[0] != "evt" {
			t.Errorf("e2e_test - event createdIds = %v, want [evt]", event.CreatedIDs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("e2e_test - timeout waiting for change event")
	}
}

func TestE2E_ExecuteCode(t *testing.T) {
	env := setupE2E(t)

	resp := env.send(t, handlers.OpExecuteCode, map[string]interface{}{
		"code":      "var id = createElement('rect', {width: size}); id",
		"variables": map[string]interface{}{"size": 12},
	})
	if !resp.Ok {
		t.Fatalf("e2e_test - execute-code failed: %+v", resp.Error)
	}

	result, _ := json.Marshal(resp.Result)
	var execResult struct {
		ReturnValue interface{}            `json:"returnValue"`
		Variables   map[string]interface{} `json:"variables"`
	}
	if err := json.Unmarshal(result, &execResult); err != nil {
		t.Fatalf("e2e_test - failed to decode result: %v", err)
	}
	id, ok := execResult.ReturnValue.(string)
	if !ok || id == "" {
		t.Fatalf("e2e_test - returnValue = %v, want created id", execResult.ReturnValue)
	}

	resp = env.send(t, handlers.OpGetObjectProperty, map[string]interface{}{
		"id": id, "property": "width",
	})
	if !resp.Ok {
		t.Fatalf("e2e_test - get-object-property failed: %+v", resp.Error)
	}
	prop, _ := json.Marshal(resp.Result)
	var property struct {
		Value interface{} `json:"value"`
		Found bool        `json:"found"`
	}
	if err := json.Unmarshal(prop, &property); err != nil {
		t.Fatalf("e2e_test - failed to decode property: %v", err)
	}
	if !property.Found || property.Value != "12" {
		t.Errorf("e2e_test - width = %+v, want found 12", property)
	}
}

func TestE2E_SelectionFlow(t *testing.T) {
	env := setupE2E(t)

	for _, hint := range []string{"one", "two"} {
		resp := env.send(t, handlers.OpCreateElement, map[string]interface{}{
			"spec": map[string]interface{}{"tag": "rect", "idHint": hint},
		})
		if !resp.Ok {
			t.Fatalf("e2e_test - create-element %s failed: %+v", hint, resp.Error)
		}
	}

	resp := env.send(t, handlers.OpSelectObjects, map[string]interface{}{
		"ids": []string{"one", "two"},
	})
	if !resp.Ok {
		t.Fatalf("e2e_test - select-objects failed: %+v", resp.Error)
	}

	resp = env.send(t, handlers.OpGetSelectionInfo, nil)
	if !resp.Ok {
		t.Fatalf("e2e_test - get-selection-info failed: %+v", resp.Error)
	}
	info, _ := json.Marshal(resp.Result)
	var selection struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(info, &selection); err != nil {
		t.Fatalf("e2e_test - failed to decode selection info: %v", err)
	}
	if selection.Count != 2 {
		t.Errorf("e2e_test - selection count = %d, want 2", selection.Count)
	}

	resp = env.send(t, handlers.OpSelectObjects, map[string]interface{}{
		"ids": []string{"one", "ghost"},
	})
	if resp.Ok {
		t.Error("e2e_test - expected Ok=false for unknown selection target")
	} else if resp.Error.Kind != ops.KindTargetNotFound {
		t.Errorf("e2e_test - error kind = %q, want %q", resp.Error.Kind, ops.KindTargetNotFound)
	}
}

func TestE2E_MalformedRequestStillAnswered(t *testing.T) {
	env := setupE2E(t)

	msg, err := env.nc.Request(env.subject, []byte("{{{garbage"), 5*time.Second)
	if err != nil {
		t.Fatalf("e2e_test - request failed: %v", err)
	}
	var resp dispatcher.OperationResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("e2e_test - reply is not a response envelope: %v", err)
	}
	if resp.Ok {
		t.Error("e2e_test - expected Ok=false for malformed request")
	}
	if resp.Error == nil || resp.Error.Kind != ops.KindMalformedRequest {
		t.Errorf("e2e_test - error = %+v, want %s", resp.Error, ops.KindMalformedRequest)
	}
}
