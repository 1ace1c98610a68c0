package sandbox

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/inkbridge/inkbridge/pkg/document"
	"github.com/inkbridge/inkbridge/pkg/scene"
)

// bindFixed installs the fixed capability set: the doc handle, element
// constructors, and output capture. These names exist before the baseline
// snapshot is taken, so they never leak into the exported variables.
func bindFixed(vm *goja.Runtime, session *document.Session, res *Result) {
	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, fmt.Sprint(arg.Export()))
		}
		res.Output = append(res.Output, strings.Join(parts, " "))
		return goja.Undefined()
	}
	vm.Set("log", logFn)
	console := vm.NewObject()
	console.Set("log", logFn)
	vm.Set("console", console)

	doc := vm.NewObject()
	doc.Set("getElementById", func(id string) interface{} {
		el := session.ElementByID(id)
		if el == nil {
			return nil
		}
		info, _ := jsonSafe(document.Describe(el))
		return info
	})
	doc.Set("getAttribute", func(id, name string) interface{} {
		el := session.ElementByID(id)
		if el == nil {
			return nil
		}
		if attr := el.SelectAttr(name); attr != nil {
			return attr.Value
		}
		return nil
	})
	doc.Set("setAttribute", func(id, name, value string) bool {
		el := session.ElementByID(id)
		if el == nil {
			return false
		}
		el.CreateAttr(name, value)
		return true
	})
	doc.Set("remove", func(id string) bool {
		el := session.ElementByID(id)
		if el == nil || el.Parent() == nil {
			return false
		}
		el.Parent().RemoveChild(el)
		return true
	})
	doc.Set("info", func() interface{} {
		info, _ := jsonSafe(session.Info())
		return info
	})
	doc.Set("elementCount", func() int {
		return session.CountElements()
	})
	doc.Set("selection", func() []string {
		return session.Selection()
	})
	doc.Set("select", func(ids []string) (bool, error) {
		if missing := session.SetSelection(ids); len(missing) > 0 {
			return false, fmt.Errorf("unknown ids: %s", strings.Join(missing, ", "))
		}
		return true, nil
	})
	vm.Set("doc", doc)

	vm.Set("createElement", func(tag string, attrs map[string]interface{}) (string, error) {
		return buildOne(session, tag, attrs, "")
	})
	vm.Set("appendTo", func(parentID, tag string, attrs map[string]interface{}) (string, error) {
		return buildOne(session, tag, attrs, parentID)
	})
}

// buildOne funnels single-node construction through the scene builder so
// script-created elements get the same identifier-collision handling as
// declarative specs.
func buildOne(session *document.Session, tag string, attrs map[string]interface{}, parentID string) (string, error) {
	spec := &scene.ElementSpec{Tag: tag, Attributes: make(map[string]string, len(attrs))}
	for key, value := range attrs {
		spec.Attributes[key] = fmt.Sprint(value)
	}
	built, err := scene.Build(session, spec, parentID)
	if err != nil {
		return "", err
	}
	return built.RootID, nil
}
