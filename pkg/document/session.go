// Package document owns the live SVG document of a host session: the single
// active document slot, identifier scanning, element lookup, and selection
// state. The human user edits the same tree, so nothing here caches lookup
// results across calls.
package document

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/beevik/etree"
)

const logPrefix = "document:session"

const (
	// SVGNamespace is the XML namespace of SVG documents.
	SVGNamespace = "http://www.w3.org/2000/svg"
	// InkscapeNamespace is the vendor namespace carrying object labels.
	InkscapeNamespace = "http://www.inkscape.org/namespaces/inkscape"

	labelAttr = "inkscape:label"
)

// Session is the single-slot reference to the currently active document.
// Callers executing operations must hold the session lock for the whole
// operation; the document tree has no internal locking.
type Session struct {
	mu        sync.Mutex
	doc       *etree.Document
	path      string
	selection []string
}

// NewSession creates a session around a blank SVG document of the given size.
func NewSession(width, height string) *Session {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("svg")
	root.CreateAttr("xmlns", SVGNamespace)
	root.CreateAttr("xmlns:inkscape", InkscapeNamespace)
	root.CreateAttr("width", width)
	root.CreateAttr("height", height)
	root.CreateAttr("viewBox", fmt.Sprintf("0 0 %s %s", width, height))
	return &Session{doc: doc}
}

// LoadSession creates a session around an SVG document read from disk.
func LoadSession(path string) (*Session, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("%s - failed to read %s: %w", logPrefix, path, err)
	}
	if doc.Root() == nil || doc.Root().Tag != "svg" {
		return nil, fmt.Errorf("%s - %s is not an SVG document", logPrefix, path)
	}
	slog.Info(fmt.Sprintf("%s - Loaded document %s", logPrefix, path))
	return &Session{doc: doc, path: path}, nil
}

// Lock acquires exclusive access to the document for one full operation.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the operation lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Path returns the backing file of the document, empty for blank documents.
func (s *Session) Path() string { return s.path }

// Root returns the live <svg> element.
func (s *Session) Root() *etree.Element {
	return s.doc.Root()
}

// Walk visits every element of the tree depth-first, root included. It stops
// early when fn returns false.
func (s *Session) Walk(fn func(el *etree.Element) bool) {
	walk(s.doc.Root(), fn)
}

func walk(el *etree.Element, fn func(el *etree.Element) bool) bool {
	if el == nil {
		return true
	}
	if !fn(el) {
		return false
	}
	for _, child := range el.ChildElements() {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}

// ElementByID resolves an identifier against the current tree. Returns nil
// when no element carries the id.
func (s *Session) ElementByID(id string) *etree.Element {
	if id == "" {
		return nil
	}
	var found *etree.Element
	s.Walk(func(el *etree.Element) bool {
		if el.SelectAttrValue("id", "") == id {
			found = el
			return false
		}
		return true
	})
	return found
}

// ElementByLabel resolves an inkscape:label value to an element.
func (s *Session) ElementByLabel(label string) *etree.Element {
	if label == "" {
		return nil
	}
	var found *etree.Element
	s.Walk(func(el *etree.Element) bool {
		if el.SelectAttrValue(labelAttr, "") == label {
			found = el
			return false
		}
		return true
	})
	return found
}

// ElementsByTag returns all elements with the given local tag name in
// document order.
func (s *Session) ElementsByTag(tag string) []*etree.Element {
	var out []*etree.Element
	s.Walk(func(el *etree.Element) bool {
		if el.Tag == tag {
			out = append(out, el)
		}
		return true
	})
	return out
}

// CollectIDs scans the live tree and returns every identifier currently in
// use. The result is a fresh snapshot; it must not be reused across
// operations because the user may edit the document between calls.
func (s *Session) CollectIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	s.Walk(func(el *etree.Element) bool {
		if id := el.SelectAttrValue("id", ""); id != "" {
			ids[id] = struct{}{}
		}
		return true
	})
	return ids
}

// CountElements returns the number of elements in the tree, root included.
func (s *Session) CountElements() int {
	n := 0
	s.Walk(func(*etree.Element) bool {
		n++
		return true
	})
	return n
}

// EnsureDefs returns the document's <defs> section, creating it as the first
// child of the root when absent.
func (s *Session) EnsureDefs() *etree.Element {
	root := s.doc.Root()
	for _, child := range root.ChildElements() {
		if child.Tag == "defs" {
			return child
		}
	}
	defs := etree.NewElement("defs")
	root.InsertChildAt(0, defs)
	return defs
}

// Selection returns the ids of the currently selected elements.
func (s *Session) Selection() []string {
	return append([]string(nil), s.selection...)
}

// SetSelection replaces the selection. Every id must resolve against the
// current tree; the missing ids are returned without changing the selection.
func (s *Session) SetSelection(ids []string) []string {
	var missing []string
	for _, id := range ids {
		if s.ElementByID(id) == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return missing
	}
	s.selection = append([]string(nil), ids...)
	return nil
}

// Serialize renders the current document to SVG bytes.
func (s *Session) Serialize(pretty bool) ([]byte, error) {
	out := s.doc.Copy()
	if pretty {
		out.Indent(2)
	}
	data, err := out.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%s - failed to serialize document: %w", logPrefix, err)
	}
	return data, nil
}

// Save writes the serialized document to the given path.
func (s *Session) Save(path string) error {
	out := s.doc.Copy()
	out.Indent(2)
	if err := out.WriteToFile(path); err != nil {
		return fmt.Errorf("%s - failed to write %s: %w", logPrefix, path, err)
	}
	slog.Info(fmt.Sprintf("%s - Saved document to %s", logPrefix, path))
	return nil
}
