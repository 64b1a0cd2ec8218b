package pdfua_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/wudi/accesspdf/compliance/pdfua"
	"github.com/wudi/accesspdf/ir/semantic"
)

func TestValidateEmptyDocument(t *testing.T) {
	rep, err := pdfua.Validate(context.Background(), &semantic.Document{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rep.Compliant {
		t.Fatal("expected non-compliant document")
	}
	want := []string{pdfua.CodeMarked, pdfua.CodeStructTree, pdfua.CodeTitle, pdfua.CodeLanguage}
	if got := rep.Codes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("codes = %v, want %v", got, want)
	}
}

func compliantDoc() *semantic.Document {
	doc := &semantic.Document{Lang: "en-US", Pages: []*semantic.Page{{Index: 0}}}
	doc.SetTitle("Test Document")
	root := doc.EnsureStructTree()
	root.Append(semantic.NewElement("H1", 0))
	root.Append(semantic.NewElement("P", 0))
	return doc
}

func TestValidateCompliant(t *testing.T) {
	rep, err := pdfua.NewValidator().Validate(context.Background(), compliantDoc())
	if err != nil {
		t.Fatalf("validate compliant: %v", err)
	}
	if !rep.Compliant {
		for _, v := range rep.Violations {
			t.Logf("Violation: %s %s", v.Code, v.Description)
		}
		t.Fatal("expected compliant document")
	}
}

func TestValidateStructure(t *testing.T) {
	doc := compliantDoc()
	root := doc.StructTree.K[0]

	fig := semantic.NewElement("Figure", 0)
	fig.AppendRef(semantic.ContentRef{Kind: semantic.ContentImage, Page: 0, Index: 0})
	root.Append(fig)

	decorative := semantic.NewElement("Figure", 0)
	decorative.MarkArtifact()
	root.Append(decorative)

	root.Append(semantic.NewElement("H3", 0))

	table := semantic.NewElement("Table", 0)
	tr := semantic.NewElement("TR", 0)
	tr.Append(semantic.NewElement("TD", 0))
	table.Append(tr)
	root.Append(table)

	doc.Pages[0].Links = []semantic.LinkAnnotation{{URI: "https://example.com"}}

	rep, err := pdfua.Validate(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{pdfua.CodeTabOrder, pdfua.CodeFigureAlt, pdfua.CodeHeadingSkip, pdfua.CodeTableHeaders}
	if got := rep.Codes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("codes = %v, want %v", got, want)
	}
	figures := 0
	for _, v := range rep.Violations {
		if v.Code == pdfua.CodeFigureAlt {
			figures++
		}
	}
	if figures != 1 {
		t.Fatalf("artifacts must not need alt text, got %d figure violations", figures)
	}

	fig.AttachDescription("Revenue chart")
	th := semantic.NewElement("TH", 0)
	tr.Append(th)
	doc.Pages[0].Tabs = "S"
	root.K = root.K[:len(root.K)-2]
	root.Append(table)
	rep, _ = pdfua.Validate(context.Background(), doc)
	if !rep.Compliant {
		t.Fatalf("expected compliant after fixes, got %v", rep.Codes())
	}
}

func TestValidateTitleMustBeDisplayed(t *testing.T) {
	doc := compliantDoc()
	doc.DisplayDocTitle = false
	rep, _ := pdfua.Validate(context.Background(), doc)
	if !rep.Has(pdfua.CodeTitle) {
		t.Fatalf("expected %s, got %v", pdfua.CodeTitle, rep.Codes())
	}
}

func TestValidateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pdfua.Validate(ctx, compliantDoc()); err == nil {
		t.Fatal("expected context error")
	}
}
