package semantic

// StructureTree is the root of the logical structure.
type StructureTree struct {
	K       []*StructureElement `json:"k,omitempty"`
	RoleMap RoleMap             `json:"role_map,omitempty"`
}

// StructureElement represents a node in the structure tree.
type StructureElement struct {
	S          string          `json:"s"` // Structure type (e.g., P, H1)
	ID         string          `json:"id,omitempty"`
	Pg         int             `json:"pg"` // Page index, -1 when the element spans pages
	K          []StructureItem `json:"k,omitempty"`
	A          Attributes      `json:"a,omitempty"`
	Title      string          `json:"title,omitempty"`
	Lang       string          `json:"lang,omitempty"`
	Alt        string          `json:"alt,omitempty"`
	ActualText string          `json:"actual_text,omitempty"`
	// Artifact marks the content as non-semantic (decorative).
	Artifact bool `json:"artifact,omitempty"`
}

// StructureItem is a child of a structure element: either a nested element
// or a reference to page content.
type StructureItem struct {
	Element *StructureElement `json:"element,omitempty"`
	Ref     *ContentRef       `json:"ref,omitempty"`
}

// ContentKind identifies what a ContentRef points at.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
	ContentLink  ContentKind = "link"
)

// ContentRef addresses one piece of page content: Runs, Images or Links
// entry Index on page Page.
type ContentRef struct {
	Kind  ContentKind `json:"kind"`
	Page  int         `json:"page"`
	Index int         `json:"index"`
}

// Attributes holds owner-qualified structure attributes such as
// "Table/Scope" or "Table/Headers".
type Attributes map[string]string

// RoleMap maps structure types to standard types.
type RoleMap map[string]string

// Standard attribute keys.
const (
	AttrScope   = "Table/Scope"
	AttrHeaders = "Table/Headers"
)
