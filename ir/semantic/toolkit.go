package semantic

import "strings"

// DocumentRoot is the structure type of the single top-level element built
// by EnsureStructTree.
const DocumentRoot = "Document"

// NewElement creates a structure element of type s on page pg.
func NewElement(s string, pg int) *StructureElement {
	return &StructureElement{S: s, Pg: pg}
}

// Append adds a child element.
func (e *StructureElement) Append(child *StructureElement) {
	e.K = append(e.K, StructureItem{Element: child})
}

// AppendRef adds a reference to page content.
func (e *StructureElement) AppendRef(ref ContentRef) {
	r := ref
	e.K = append(e.K, StructureItem{Ref: &r})
}

// Children returns the nested elements in order.
func (e *StructureElement) Children() []*StructureElement {
	var out []*StructureElement
	for _, item := range e.K {
		if item.Element != nil {
			out = append(out, item.Element)
		}
	}
	return out
}

// Refs returns the content references in order.
func (e *StructureElement) Refs() []ContentRef {
	var out []ContentRef
	for _, item := range e.K {
		if item.Ref != nil {
			out = append(out, *item.Ref)
		}
	}
	return out
}

// SetAttr sets an attribute, allocating the map on first use.
func (e *StructureElement) SetAttr(key, value string) {
	if e.A == nil {
		e.A = make(Attributes)
	}
	e.A[key] = value
}

// AttachDescription sets the alternative text of the element.
func (e *StructureElement) AttachDescription(text string) {
	e.Alt = text
	e.Artifact = false
}

// MarkArtifact flags the element as decorative. Artifacts never carry
// alternative text.
func (e *StructureElement) MarkArtifact() {
	e.Artifact = true
	e.Alt = ""
}

// IsHeading reports whether s is H or H1..H6.
func IsHeading(s string) bool {
	if s == "H" {
		return true
	}
	return len(s) == 2 && s[0] == 'H' && s[1] >= '1' && s[1] <= '6'
}

// HeadingLevel returns the numeric level of an Hn type, or 0.
func HeadingLevel(s string) int {
	if len(s) == 2 && s[0] == 'H' && s[1] >= '1' && s[1] <= '6' {
		return int(s[1] - '0')
	}
	return 0
}

// EnsureStructTree returns the document root element, creating the tree and
// marking the document as tagged when needed.
func (d *Document) EnsureStructTree() *StructureElement {
	if d.StructTree == nil {
		d.StructTree = &StructureTree{}
	}
	d.Marked = true
	for _, k := range d.StructTree.K {
		if k != nil && k.S == DocumentRoot {
			return k
		}
	}
	root := NewElement(DocumentRoot, -1)
	d.StructTree.K = append(d.StructTree.K, root)
	return root
}

// SetLanguage sets the document's natural language.
func (d *Document) SetLanguage(tag string) {
	d.Lang = strings.TrimSpace(tag)
}

// SetTitle sets the document title and asks viewers to display it.
func (d *Document) SetTitle(title string) {
	if d.Info == nil {
		d.Info = &DocumentInfo{}
	}
	d.Info.Title = title
	d.DisplayDocTitle = title != ""
}

// Walk visits every element depth-first in document order. Returning false
// from fn skips the element's children.
func (t *StructureTree) Walk(fn func(e *StructureElement, depth int) bool) {
	if t == nil {
		return
	}
	var visit func(els []*StructureElement, depth int)
	visit = func(els []*StructureElement, depth int) {
		for _, e := range els {
			if e == nil {
				continue
			}
			if fn(e, depth) {
				visit(e.Children(), depth+1)
			}
		}
	}
	visit(t.K, 0)
}

// TagCounts returns the number of elements per structure type.
func (t *StructureTree) TagCounts() map[string]int {
	counts := make(map[string]int)
	t.Walk(func(e *StructureElement, _ int) bool {
		counts[e.S]++
		return true
	})
	return counts
}

// FindImage returns the Figure element referencing the given image, if any.
func (t *StructureTree) FindImage(page, index int) *StructureElement {
	var found *StructureElement
	t.Walk(func(e *StructureElement, _ int) bool {
		if found != nil {
			return false
		}
		for _, r := range e.Refs() {
			if r.Kind == ContentImage && r.Page == page && r.Index == index {
				found = e
				return false
			}
		}
		return true
	})
	return found
}

// FlattenOutlines returns outline titles with their depth in pre-order.
func FlattenOutlines(items []OutlineItem) []OutlineEntry {
	var out []OutlineEntry
	var walk func(items []OutlineItem, depth int)
	walk = func(items []OutlineItem, depth int) {
		for _, item := range items {
			out = append(out, OutlineEntry{Title: item.Title, Page: item.Page, Depth: depth})
			walk(item.Children, depth+1)
		}
	}
	walk(items, 0)
	return out
}

// OutlineEntry is a flattened outline item.
type OutlineEntry struct {
	Title string
	Page  int
	Depth int
}
