package analyzer

import (
	"fmt"

	"github.com/wudi/accesspdf/geo"
	"github.com/wudi/accesspdf/ir/semantic"
)

// Result is the read-only output of an analysis pass. Processors read it and
// never modify it.
type Result struct {
	Source     string
	PageCount  int
	Tagged     bool
	Lang       string
	Title      string
	HasOutline bool
	// Runs lists non-blank text runs in document order; TextRun.Index is the
	// position in this slice.
	Runs     []TextRun
	Images   []ImageRef
	Links    []LinkRef
	Tables   []TableRegion
	Contrast []ContrastIssue
	Tags     []TagInfo
	Issues   []Issue
	// Warnings records sub-checks that could not complete.
	Warnings []string
}

// TextRun is a text run as seen by the processors.
type TextRun struct {
	Index    int
	Page     int
	Text     string
	BBox     geo.BBox
	FontName string
	FontSize float64
	Bold     bool
	// Ref addresses the run inside its page.
	Ref semantic.ContentRef
}

// ImageRef is a distinct image, identified by the hash of its bytes.
// Placements lists every page position showing those bytes.
type ImageRef struct {
	ID           string
	Hash         string
	Page         int
	BBox         geo.BBox
	Width        int
	Height       int
	ResourceName string
	Caption      string
	// Alt is the description already present in the input, if any.
	Alt        string
	Decorative bool
	Placements []semantic.ContentRef
}

// LinkRef is a link annotation.
type LinkRef struct {
	Page  int
	Index int
	Rect  geo.BBox
	URI   string
	Dest  string
}

// TableRegion is a candidate table found from ruling lines. Rows holds the
// rule positions from top to bottom, so row i spans Rows[i+1]..Rows[i].
// Columns holds the aligned left boundaries from left to right.
type TableRegion struct {
	Page    int
	BBox    geo.BBox
	Rows    []float64
	Columns []float64
	Runs    []int
}

// RowCount returns the number of rows bounded by the rules.
func (t TableRegion) RowCount() int {
	if len(t.Rows) < 2 {
		return 0
	}
	return len(t.Rows) - 1
}

// ContrastIssue is a text run whose colour contrast is below WCAG AA.
type ContrastIssue struct {
	Run        int
	Page       int
	Foreground semantic.Color
	Background semantic.Color
	Ratio      float64
	Required   float64
}

// TagInfo counts existing structure elements of one type.
type TagInfo struct {
	Type  string
	Count int
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is an accessibility problem found in the input.
type Issue struct {
	Rule     string
	Severity Severity
	Message  string
	// Page is zero-based, -1 for document-level issues.
	Page  int
	Count int
}

// Issue rule identifiers.
const (
	RuleTagged   = "tagged-pdf"
	RuleLang     = "document-lang"
	RuleTitle    = "document-title"
	RuleImageAlt = "image-alt-text"
	RuleContrast = "contrast"
	RuleTables   = "table-structure"
)

// AnalysisError reports a sub-check that failed. The analysis continues with
// that part of the result left empty.
type AnalysisError struct {
	Check string
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyze %s: %v", e.Check, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// ImagesMissingAlt counts distinct images without a description.
func (r *Result) ImagesMissingAlt() int {
	n := 0
	for _, img := range r.Images {
		if img.Alt == "" && !img.Decorative {
			n++
		}
	}
	return n
}

// ImageByID returns the image with the given ID.
func (r *Result) ImageByID(id string) (ImageRef, bool) {
	for _, img := range r.Images {
		if img.ID == id {
			return img, true
		}
	}
	return ImageRef{}, false
}

// HasTag reports whether the input already carries elements of type s.
func (r *Result) HasTag(s string) bool {
	for _, t := range r.Tags {
		if t.Type == s && t.Count > 0 {
			return true
		}
	}
	return false
}
