package ops

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/inkbridge/inkbridge/pkg/document"
)

const logPrefix = "ops:registry"

// Handler executes one operation against the live document. The caller holds
// the session lock for the duration of the call. A handler either returns a
// fully built result or a single error; returned *OpError values cross the
// wire unchanged, anything else is wrapped as HANDLER_ERROR.
type Handler func(ctx context.Context, session *document.Session, params map[string]interface{}) (interface{}, error)

// Operation is one registered operation.
type Operation struct {
	Name     string
	Schema   Schema
	Mutating bool
	Handler  Handler
}

// Registry maps operation names to handlers. Operations are registered once
// at startup; dispatch is read-only afterwards.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Operation
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Operation)}
}

// Register adds an operation to the registry. Duplicate names and nil
// handlers are registration bugs and fail loudly.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("%s - operation name is required", logPrefix)
	}
	if op.Handler == nil {
		return fmt.Errorf("%s - operation %s has no handler", logPrefix, op.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[op.Name]; exists {
		return fmt.Errorf("%s - operation %s already registered", logPrefix, op.Name)
	}
	r.ops[op.Name] = &op
	return nil
}

// Lookup returns the registered operation for name.
func (r *Registry) Lookup(name string) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered operation names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch resolves name, validates params against the declared schema, and
// runs the handler. Schema validation is a hard precondition: the handler is
// never invoked with params that fail it.
func (r *Registry) Dispatch(ctx context.Context, session *document.Session, name string, params map[string]interface{}) (interface{}, *OpError) {
	op, ok := r.Lookup(name)
	if !ok {
		return nil, NewOpError(KindUnknownOperation, fmt.Sprintf("unknown operation: %s", name))
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	if problems := op.Schema.Validate(params); len(problems) > 0 {
		return nil, &OpError{
			Kind:    KindInvalidParameters,
			Message: fmt.Sprintf("invalid parameters for %s", name),
			Details: map[string]interface{}{"fields": problems},
		}
	}

	result, err := safeCall(ctx, op, session, params)
	if err != nil {
		if opErr, ok := AsOpError(err); ok {
			return nil, opErr
		}
		slog.Error(fmt.Sprintf("%s - handler %s failed: %v", logPrefix, name, err))
		return nil, NewOpError(KindHandlerError, err.Error())
	}
	return result, nil
}

// safeCall runs the handler with panic containment so no handler-level fault
// can cross the process boundary unstructured.
func safeCall(ctx context.Context, op *Operation, session *document.Session, params map[string]interface{}) (result interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error(fmt.Sprintf("%s - handler %s panicked: %v", logPrefix, op.Name, rec))
			result = nil
			err = NewOpError(KindHandlerError, fmt.Sprintf("handler panic: %v", rec))
		}
	}()
	return op.Handler(ctx, session, params)
}
