// Package sandbox executes caller-supplied scripts against the live document
// through a fixed capability set: a document handle, element constructors,
// and the variables injected for this one call. Nothing else in the host
// process is reachable from the script, and no binding state survives the
// call. Exported results are filtered to transport-safe JSON values.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/inkbridge/inkbridge/pkg/document"
	"github.com/inkbridge/inkbridge/pkg/ops"
)

const logPrefix = "sandbox:execute"

// Result is the outcome of one script execution.
type Result struct {
	ReturnValue    interface{}            `json:"returnValue,omitempty"`
	Variables      map[string]interface{} `json:"variables"`
	Output         []string               `json:"output,omitempty"`
	ElementsBefore int                    `json:"elementsBefore"`
	ElementsAfter  int                    `json:"elementsAfter"`
}

// Execute runs source synchronously against the session. The caller holds
// the session lock; the script blocks the dispatcher for its whole run. The
// limit (and ctx cancellation) interrupt runaway scripts; an interrupted run
// reports EXECUTION_ERROR like any other script failure.
func Execute(ctx context.Context, session *document.Session, source string, injected map[string]interface{}, limit time.Duration) (*Result, error) {
	if source == "" {
		return nil, ops.NewOpError(ops.KindInvalidParameters, "no code provided")
	}

	vm := goja.New()
	res := &Result{
		Variables:      make(map[string]interface{}),
		ElementsBefore: session.CountElements(),
	}

	bindFixed(vm, session, res)

	// Everything set from here on is visible to the caller afterwards.
	baseline := make(map[string]bool)
	for _, key := range vm.GlobalObject().Keys() {
		baseline[key] = true
	}
	for name, value := range injected {
		if err := vm.Set(name, value); err != nil {
			return nil, &ops.OpError{
				Kind:    ops.KindInvalidParameters,
				Message: fmt.Sprintf("cannot inject variable %s", name),
				Details: map[string]interface{}{"variable": name, "error": err.Error()},
			}
		}
	}

	stop := armInterrupt(ctx, vm, limit)
	value, runErr := vm.RunString(source)
	stop()

	res.ElementsAfter = session.CountElements()

	if runErr != nil {
		return nil, &ops.OpError{
			Kind:    ops.KindExecutionError,
			Message: "code execution failed",
			Details: map[string]interface{}{
				"error":  runErr.Error(),
				"output": res.Output,
			},
		}
	}

	collectBindings(vm, baseline, res)

	// An explicit result binding wins over the script's completion value.
	if explicit, ok := res.Variables["result"]; ok {
		res.ReturnValue = explicit
	} else if value != nil && !goja.IsUndefined(value) && !goja.IsNull(value) {
		if plain, ok := jsonSafe(value.Export()); ok {
			res.ReturnValue = plain
		}
	}
	return res, nil
}

// armInterrupt wires the time limit and context cancellation to the VM
// interrupt. The returned stop function disarms both.
func armInterrupt(ctx context.Context, vm *goja.Runtime, limit time.Duration) func() {
	done := make(chan struct{})
	var timer *time.Timer
	if limit > 0 {
		timer = time.AfterFunc(limit, func() {
			vm.Interrupt("execution time limit exceeded")
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("request cancelled")
		case <-done:
		}
	}()
	return func() {
		close(done)
		if timer != nil {
			timer.Stop()
		}
	}
}

// collectBindings exports every global the script (or injection) introduced,
// keeping only JSON-serializable values. Host object handles and functions
// are silently omitted so the caller only receives transport-safe data.
func collectBindings(vm *goja.Runtime, baseline map[string]bool, res *Result) {
	global := vm.GlobalObject()
	for _, key := range global.Keys() {
		if baseline[key] {
			continue
		}
		value := global.Get(key)
		if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
			continue
		}
		if plain, ok := jsonSafe(value.Export()); ok {
			res.Variables[key] = plain
		}
	}
}

// jsonSafe round-trips v through JSON, returning the plain decoded form.
func jsonSafe(v interface{}) (interface{}, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var plain interface{}
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, false
	}
	return plain, true
}
