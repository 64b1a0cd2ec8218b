package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/wudi/accesspdf/alttext"
	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/compliance"
	"github.com/wudi/accesspdf/processors"
)

func sample() *Report {
	res := &analyzer.Result{
		Source:    "annual",
		PageCount: 2,
		Issues: []analyzer.Issue{
			{Rule: analyzer.RuleTagged, Severity: analyzer.SeverityError, Message: "document is not tagged", Page: -1},
			{Rule: analyzer.RuleImageAlt, Severity: analyzer.SeverityError, Message: "image img_abc123 has no description", Page: 1, Count: 1},
		},
		Warnings: []string{"contrast check skipped"},
	}
	r := New(ModeFix, "annual.json", res)
	r.Output = "annual_accessible.json"
	r.AddProcessors([]processors.Result{
		{Processor: "reading-order", Status: processors.StatusOK, Changes: 4},
		{Processor: "tables", Status: processors.StatusFailed, Warnings: []string{"tables failed: boom"}, Err: "processor tables: boom"},
	})
	sc := alttext.New("annual", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	sc.Images = []alttext.Entry{
		{ID: "img_abc123", Status: alttext.StatusNeedsReview},
		{ID: "img_def456", Status: alttext.StatusApproved, AltText: "Logo"},
	}
	r.SetAltText(sc, alttext.ReconcileReport{Added: []string{"img_abc123"}})
	r.Before = FromCompliance(&compliance.Report{Standard: "PDF/UA-1", Violations: []compliance.Violation{{Code: "UA002", Description: "no | structure"}}})
	r.After = FromCompliance(&compliance.Report{Standard: "PDF/UA-1", Compliant: true})
	return r
}

func TestNewConvertsIssues(t *testing.T) {
	r := sample()
	want := []Issue{
		{Rule: analyzer.RuleTagged, Severity: "error", Message: "document is not tagged"},
		{Rule: analyzer.RuleImageAlt, Severity: "error", Message: "image img_abc123 has no description", Page: 2, Count: 1},
	}
	if !reflect.DeepEqual(r.Issues, want) {
		t.Fatalf("issues = %+v, want %+v", r.Issues, want)
	}
	if want := []string{"contrast check skipped", "tables failed: boom"}; !reflect.DeepEqual(r.Warnings, want) {
		t.Fatalf("warnings = %v, want %v", r.Warnings, want)
	}
	if r.AltText.Images != 2 || r.AltText.NeedsReview != 1 || r.AltText.Approved != 1 {
		t.Fatalf("alt text summary = %+v", r.AltText)
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, FormatJSON, sample()); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["mode"] != "fix" || decoded["page_count"].(float64) != 2 {
		t.Fatalf("unexpected json: %s", buf.String())
	}
	if _, ok := decoded["generation"]; ok {
		t.Fatalf("empty generation should be omitted")
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := Markdown(sample())
	for _, want := range []string{
		"# Accessibility report: annual",
		"| error | image-alt-text | 2 | image img_abc123 has no description |",
		"| tables | failed | 0 | processor tables: boom |",
		"- Needs review: 1",
		`| UA002 | no \| structure |  |`,
		"PDF/UA-1: no violations.",
		"## Warnings",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, FormatHTML, sample()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"<title>Accessibility report: annual</title>", "<table>", "<h2>Issues</h2>"} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestGenerationSummary(t *testing.T) {
	r := New(ModeGenerate, "a.json", nil)
	r.SetGeneration("anthropic", "claude", alttext.GenerateReport{
		Generated: []string{"img_1"},
		Cached:    []string{"img_2", "img_3"},
		Failed:    []alttext.Failure{{ID: "img_4", Err: errors.New("timeout")}},
	})
	g := r.Generation
	if g.Generated != 1 || g.Cached != 2 || !reflect.DeepEqual(g.Failed, []string{"img_4: timeout"}) {
		t.Fatalf("generation = %+v", g)
	}
	if !strings.Contains(Markdown(r), "- From cache: 2") {
		t.Fatalf("generation not rendered")
	}
}

func TestRenderBatch(t *testing.T) {
	bad := New(ModeFix, "broken.json", nil)
	bad.Error = "load broken.json: unexpected EOF"
	b := &Batch{Documents: []*Report{sample(), bad}, Succeeded: 1, Failed: 1}
	md := BatchMarkdown(b)
	if !strings.Contains(md, "- Failed: 1") || !strings.Contains(md, "## Accessibility report: broken.json") {
		t.Fatalf("unexpected batch markdown:\n%s", md)
	}
	if !strings.Contains(md, "### Issues") {
		t.Fatalf("document sections not demoted:\n%s", md)
	}
	var buf bytes.Buffer
	if err := RenderBatch(&buf, FormatJSON, b); err != nil {
		t.Fatal(err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "md": FormatMarkdown, "JSON": FormatJSON, "html": FormatHTML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatal("expected error")
	}
}
