package scene

import (
	"fmt"
	"sort"

	"github.com/beevik/etree"

	"github.com/inkbridge/inkbridge/pkg/document"
	"github.com/inkbridge/inkbridge/pkg/ops"
)

const logPrefix = "scene:build"

// Build materializes spec under the element identified by parentID, or under
// the document root (defs section for paint-server tags) when parentID is
// empty. Identifiers are resolved against a scan of the live tree taken at
// the start of this call plus the ids assigned earlier in the same batch.
//
// The subtree is assembled detached and attached to the parent only once
// every node succeeded; a failure partway through a batch leaves the
// document untouched.
func Build(session *document.Session, spec *ElementSpec, parentID string) (*BuildResult, error) {
	if spec == nil || spec.Tag == "" {
		return nil, ops.NewOpError(ops.KindInvalidParameters, "element spec requires a tag")
	}

	parent, err := resolveParent(session, spec.Tag, parentID)
	if err != nil {
		return nil, err
	}

	b := &builder{
		ids:      session.CollectIDs(),
		counters: make(map[string]int),
		result:   &BuildResult{IDMapping: make(map[string]string)},
	}

	el, err := b.create(spec)
	if err != nil {
		return nil, err
	}
	parent.AddChild(el)

	b.result.RootID = el.SelectAttrValue("id", "")
	if len(b.result.IDMapping) == 0 {
		b.result.IDMapping = nil
	}
	return b.result, nil
}

func resolveParent(session *document.Session, tag, parentID string) (*etree.Element, error) {
	if parentID == "" {
		if defsTags[tag] {
			return session.EnsureDefs(), nil
		}
		return session.Root(), nil
	}
	parent := session.ElementByID(parentID)
	if parent == nil {
		return nil, &ops.OpError{
			Kind:    ops.KindTargetNotFound,
			Message: fmt.Sprintf("parent element %s not found", parentID),
			Details: map[string]interface{}{"parentId": parentID},
		}
	}
	return parent, nil
}

// builder carries the per-batch identifier state: the scan taken at build
// start plus every id assigned within the batch.
type builder struct {
	ids      map[string]struct{}
	counters map[string]int
	result   *BuildResult
}

// create materializes one spec node and recurses into its children, with the
// new node as their parent.
func (b *builder) create(spec *ElementSpec) (*etree.Element, error) {
	if spec.Tag == "" {
		return nil, ops.NewOpError(ops.KindInvalidParameters, "child element spec requires a tag")
	}
	if !knownTags[spec.Tag] {
		return nil, &ops.OpError{
			Kind:    ops.KindInvalidParameters,
			Message: fmt.Sprintf("unknown element tag: %s", spec.Tag),
			Details: map[string]interface{}{"tag": spec.Tag},
		}
	}

	hint := spec.IDHint
	if hint == "" {
		hint = spec.Attributes["id"]
	}
	id, err := b.uniqueID(spec.Tag, hint)
	if err != nil {
		return nil, err
	}

	el := etree.NewElement(spec.Tag)
	el.CreateAttr("id", id)
	for _, key := range sortedKeys(spec.Attributes) {
		if key == "id" {
			continue
		}
		el.CreateAttr(key, spec.Attributes[key])
	}

	b.result.CreatedIDs = append(b.result.CreatedIDs, id)
	if hint != "" {
		// When a batch repeats a hint the last assignment wins; CreatedIDs
		// keeps every id in document order.
		b.result.IDMapping[hint] = id
	}

	for i := range spec.Children {
		child, err := b.create(&spec.Children[i])
		if err != nil {
			return nil, err
		}
		el.AddChild(child)
	}
	return el, nil
}

// uniqueID resolves a free identifier: the hint when unused, the hint with a
// numeric suffix on collision, or tag-N from a per-tag counter when no hint
// was given. The probe count is bounded by the live registry size at the
// time of the call, so ids taken earlier in the same batch widen the bound
// instead of starving later siblings.
func (b *builder) uniqueID(tag, hint string) (string, error) {
	// +1 so a fully dense identifier space still leaves one free candidate.
	bound := len(b.ids) + 1
	if hint != "" {
		if _, taken := b.ids[hint]; !taken {
			b.ids[hint] = struct{}{}
			return hint, nil
		}
		for n := 2; n <= bound+1; n++ {
			candidate := fmt.Sprintf("%s-%d", hint, n)
			if _, taken := b.ids[candidate]; !taken {
				b.ids[candidate] = struct{}{}
				return candidate, nil
			}
		}
		return "", exhausted(hint)
	}

	for probes := 0; probes < bound; probes++ {
		b.counters[tag]++
		candidate := fmt.Sprintf("%s-%d", tag, b.counters[tag])
		if _, taken := b.ids[candidate]; !taken {
			b.ids[candidate] = struct{}{}
			return candidate, nil
		}
	}
	return "", exhausted(tag)
}

func exhausted(prefix string) error {
	return ops.NewOpError(ops.KindIdentifierExhausted,
		fmt.Sprintf("no free identifier found for %q within probe bound", prefix))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
