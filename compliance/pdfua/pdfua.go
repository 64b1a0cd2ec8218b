// Package pdfua checks the accessibility requirements this tool can repair.
package pdfua

import (
	"fmt"

	"github.com/wudi/accesspdf/compliance"
	"github.com/wudi/accesspdf/ir/semantic"
)

type Level int

const (
	PDFUA1 Level = iota
)

func (l Level) String() string {
	switch l {
	case PDFUA1:
		return "PDF/UA-1"
	default:
		return "Unknown"
	}
}

const (
	CodeMarked       = "UA001"
	CodeStructTree   = "UA002"
	CodeTitle        = "UA003"
	CodeLanguage     = "UA004"
	CodeTabOrder     = "UA005"
	CodeFigureAlt    = "UA006"
	CodeHeadingSkip  = "UA007"
	CodeTableHeaders = "UA008"
)

type validator struct{}

// NewValidator returns a PDF/UA-1 validator.
func NewValidator() compliance.Validator { return validator{} }

// Validate is a convenience wrapper around NewValidator().Validate.
func Validate(ctx compliance.Context, doc *semantic.Document) (*compliance.Report, error) {
	return validator{}.Validate(ctx, doc)
}

func (validator) Validate(ctx compliance.Context, doc *semantic.Document) (*compliance.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report := &compliance.Report{
		Standard:   PDFUA1.String(),
		Violations: []compliance.Violation{},
	}
	add := func(code, desc, loc string) {
		report.Violations = append(report.Violations, compliance.Violation{Code: code, Description: desc, Location: loc})
	}

	if !doc.Marked {
		add(CodeMarked, "Document must be marked (MarkInfo dictionary with Marked=true)", "Catalog")
	}
	if !doc.Tagged() {
		add(CodeStructTree, "Document must be tagged (StructTree missing or empty)", "Catalog")
	}
	if doc.Title() == "" {
		add(CodeTitle, "Document title is required", "Info Dictionary")
	} else if !doc.DisplayDocTitle {
		add(CodeTitle, "Viewer must display the document title (DisplayDocTitle)", "ViewerPreferences")
	}
	if doc.Lang == "" {
		add(CodeLanguage, "Document language is required", "Catalog")
	}
	for _, p := range doc.Pages {
		if len(p.Links) > 0 && p.Tabs != "S" {
			add(CodeTabOrder, "Pages with annotations must use structure tab order (Tabs=S)", pageLocation(p.Index))
		}
	}

	if doc.StructTree != nil {
		checkStructure(doc.StructTree, report)
	}

	report.Compliant = len(report.Violations) == 0
	return report, nil
}

func checkStructure(tree *semantic.StructureTree, report *compliance.Report) {
	last := 0
	tree.Walk(func(e *semantic.StructureElement, _ int) bool {
		switch {
		case e.S == "Figure" && !e.Artifact && e.Alt == "" && e.ActualText == "":
			report.Violations = append(report.Violations, compliance.Violation{
				Code:        CodeFigureAlt,
				Description: "Figure missing Alternative Text",
				Location:    elementLocation(e),
			})
		case semantic.IsHeading(e.S):
			level := semantic.HeadingLevel(e.S)
			if last > 0 && level > last+1 {
				report.Violations = append(report.Violations, compliance.Violation{
					Code:        CodeHeadingSkip,
					Description: fmt.Sprintf("Heading level skipped (H%d -> H%d)", last, level),
					Location:    elementLocation(e),
				})
			}
			last = level
		case e.S == "Table" && !hasHeaderCell(e):
			report.Violations = append(report.Violations, compliance.Violation{
				Code:        CodeTableHeaders,
				Description: "Table has no header cells (TH)",
				Location:    elementLocation(e),
			})
		}
		return true
	})
}

func hasHeaderCell(table *semantic.StructureElement) bool {
	found := false
	sub := &semantic.StructureTree{K: []*semantic.StructureElement{table}}
	sub.Walk(func(e *semantic.StructureElement, _ int) bool {
		if e.S == "TH" {
			found = true
		}
		return !found
	})
	return found
}

func pageLocation(index int) string { return fmt.Sprintf("Page %d", index+1) }

func elementLocation(e *semantic.StructureElement) string {
	if e.Pg >= 0 {
		return fmt.Sprintf("StructElem %s on page %d", e.S, e.Pg+1)
	}
	return "StructElem " + e.S
}
