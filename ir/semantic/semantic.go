package semantic

import "github.com/wudi/accesspdf/geo"

// Document is the semantic representation of a document: pages carrying
// positioned text, images, links and ruling lines, plus the document-level
// accessibility properties and an optional logical structure tree.
type Document struct {
	Name            string         `json:"name,omitempty"`
	Info            *DocumentInfo  `json:"info,omitempty"`
	Lang            string         `json:"lang,omitempty"`
	Marked          bool           `json:"marked,omitempty"`
	DisplayDocTitle bool           `json:"display_doc_title,omitempty"`
	Pages           []*Page        `json:"pages"`
	StructTree      *StructureTree `json:"struct_tree,omitempty"`
	Outlines        []OutlineItem  `json:"outlines,omitempty"`
}

type DocumentInfo struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Creator  string `json:"creator,omitempty"`
	Producer string `json:"producer,omitempty"`
	// ModDate is an RFC 3339 timestamp.
	ModDate string `json:"mod_date,omitempty"`
}

// Page models a single page.
type Page struct {
	Index    int              `json:"index"`
	MediaBox geo.BBox         `json:"media_box"`
	Runs     []TextRun        `json:"runs,omitempty"`
	Images   []Image          `json:"images,omitempty"`
	Links    []LinkAnnotation `json:"links,omitempty"`
	Rules    []geo.Line       `json:"rules,omitempty"`
	// Tabs is the annotation tab order; "S" follows the structure tree.
	Tabs string `json:"tabs,omitempty"`
}

// TextRun is a contiguous piece of text drawn with a single font.
type TextRun struct {
	Text       string   `json:"text"`
	BBox       geo.BBox `json:"bbox"`
	FontName   string   `json:"font_name,omitempty"`
	FontSize   float64  `json:"font_size"`
	Bold       bool     `json:"bold,omitempty"`
	Color      *Color   `json:"color,omitempty"`
	Background *Color   `json:"background,omitempty"`
}

// Color is an sRGB colour.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Image is an image placed on a page. Data holds the stream bytes exactly as
// stored: encoded bytes for DCTDecode/JPXDecode/PNG payloads, raw samples when
// Filter is empty.
type Image struct {
	ResourceName     string   `json:"resource_name"`
	BBox             geo.BBox `json:"bbox"`
	Width            int      `json:"width"`
	Height           int      `json:"height"`
	BitsPerComponent int      `json:"bits_per_component,omitempty"`
	ColorSpace       string   `json:"color_space,omitempty"`
	Filter           string   `json:"filter,omitempty"`
	Data             []byte   `json:"data"`
}

// LinkAnnotation is a clickable area pointing at a URI or an internal
// destination.
type LinkAnnotation struct {
	Rect     geo.BBox `json:"rect"`
	URI      string   `json:"uri,omitempty"`
	Dest     string   `json:"dest,omitempty"`
	Contents string   `json:"contents,omitempty"`
}

// OutlineItem is a bookmark entry. Page is zero-based; -1 means no target.
type OutlineItem struct {
	Title    string        `json:"title"`
	Page     int           `json:"page"`
	Children []OutlineItem `json:"children,omitempty"`
}

// Title returns the document title or "".
func (d *Document) Title() string {
	if d.Info == nil {
		return ""
	}
	return d.Info.Title
}

// Tagged reports whether the document carries logical structure.
func (d *Document) Tagged() bool {
	return d.Marked && d.StructTree != nil && len(d.StructTree.K) > 0
}
