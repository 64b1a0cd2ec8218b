package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts the format names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(htmlrenderer.WithXHTML()),
)

// Render writes r in the given format.
func Render(w io.Writer, f Format, r *Report) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	case FormatHTML:
		return writeHTML(w, "Accessibility report: "+title(r), Markdown(r))
	}
	return fmt.Errorf("unknown report format %q", f)
}

// RenderBatch writes b in the given format.
func RenderBatch(w io.Writer, f Format, b *Batch) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, b)
	case FormatMarkdown:
		_, err := io.WriteString(w, BatchMarkdown(b))
		return err
	case FormatHTML:
		return writeHTML(w, "Accessibility batch report", BatchMarkdown(b))
	}
	return fmt.Errorf("unknown report format %q", f)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeHTML(w io.Writer, heading, md string) error {
	var body bytes.Buffer
	if err := markdownEngine.Convert([]byte(md), &body); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\" />\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(heading), body.String())
	return err
}

func title(r *Report) string {
	if r.Document != "" {
		return r.Document
	}
	return r.Input
}

// Markdown renders r as a Markdown document.
func Markdown(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Accessibility report: %s\n\n", cell(title(r)))
	writeSummary(&b, r)
	writeIssues(&b, r.Issues)
	writeProcessors(&b, r.Processors)
	writeAltText(&b, r)
	writeCompliance(&b, "Compliance before", r.Before)
	writeCompliance(&b, "Compliance after", r.After)
	writeGeneration(&b, r.Generation)
	if len(r.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "## Error\n\n%s\n", r.Error)
	}
	return b.String()
}

func writeSummary(b *strings.Builder, r *Report) {
	fmt.Fprintf(b, "- Mode: %s\n", r.Mode)
	fmt.Fprintf(b, "- Input: `%s`\n", r.Input)
	if r.Output != "" {
		fmt.Fprintf(b, "- Output: `%s`\n", r.Output)
	}
	if r.Sidecar != "" {
		fmt.Fprintf(b, "- Sidecar: `%s`\n", r.Sidecar)
	}
	fmt.Fprintf(b, "- Pages: %d\n", r.PageCount)
	fmt.Fprintf(b, "- Tagged: %s\n\n", yesNo(r.Tagged))
}

func writeIssues(b *strings.Builder, issues []Issue) {
	b.WriteString("## Issues\n\n")
	if len(issues) == 0 {
		b.WriteString("No issues found.\n\n")
		return
	}
	b.WriteString("| Severity | Rule | Page | Message |\n|---|---|---|---|\n")
	for _, is := range issues {
		page := "-"
		if is.Page > 0 {
			page = fmt.Sprint(is.Page)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", is.Severity, is.Rule, page, cell(is.Message))
	}
	b.WriteString("\n")
}

func writeProcessors(b *strings.Builder, procs []Processor) {
	if len(procs) == 0 {
		return
	}
	b.WriteString("## Processors\n\n| Processor | Status | Changes | Notes |\n|---|---|---|---|\n")
	for _, p := range procs {
		notes := p.Error
		if notes == "" {
			notes = strings.Join(p.Warnings, "; ")
		}
		fmt.Fprintf(b, "| %s | %s | %d | %s |\n", p.Name, p.Status, p.Changes, cell(notes))
	}
	b.WriteString("\n")
}

func writeAltText(b *strings.Builder, r *Report) {
	a := r.AltText
	if a.Images == 0 {
		return
	}
	b.WriteString("## Alt text\n\n")
	fmt.Fprintf(b, "- Images: %d\n- Approved: %d\n- Decorative: %d\n- Needs review: %d\n", a.Images, a.Approved, a.Decorative, a.NeedsReview)
	if len(a.Added) > 0 {
		fmt.Fprintf(b, "- New: %s\n", strings.Join(a.Added, ", "))
	}
	if len(a.Stale) > 0 {
		fmt.Fprintf(b, "- Stale: %s\n", strings.Join(a.Stale, ", "))
	}
	b.WriteString("\n")
}

func writeCompliance(b *strings.Builder, heading string, c *Compliance) {
	if c == nil {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	if c.Compliant {
		fmt.Fprintf(b, "%s: no violations.\n\n", c.Standard)
		return
	}
	fmt.Fprintf(b, "%s: %d violation(s).\n\n| Code | Description | Location |\n|---|---|---|\n", c.Standard, len(c.Violations))
	for _, v := range c.Violations {
		fmt.Fprintf(b, "| %s | %s | %s |\n", v.Code, cell(v.Description), cell(v.Location))
	}
	b.WriteString("\n")
}

func writeGeneration(b *strings.Builder, g *Generation) {
	if g == nil {
		return
	}
	b.WriteString("## Description generation\n\n")
	fmt.Fprintf(b, "- Provider: %s (%s)\n- Generated: %d\n- From cache: %d\n- Skipped: %d\n", g.Provider, g.Model, g.Generated, g.Cached, g.Skipped)
	for _, f := range g.Failed {
		fmt.Fprintf(b, "- Failed: %s\n", f)
	}
	if g.Canceled {
		b.WriteString("- Canceled before completion\n")
	}
	b.WriteString("\n")
}

// BatchMarkdown renders a batch summary followed by one section per
// document.
func BatchMarkdown(bt *Batch) string {
	var b strings.Builder
	b.WriteString("# Accessibility batch report\n\n")
	fmt.Fprintf(&b, "- Documents: %d\n- Succeeded: %d\n- Failed: %d\n- Canceled: %d\n\n", len(bt.Documents), bt.Succeeded, bt.Failed, bt.Canceled)
	b.WriteString("| Document | Output | Issues | Needs review | Result |\n|---|---|---|---|---|\n")
	for _, r := range bt.Documents {
		result := "ok"
		if r.Error != "" {
			result = cell(r.Error)
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %s |\n", cell(r.Input), cell(r.Output), len(r.Issues), r.AltText.NeedsReview, result)
	}
	b.WriteString("\n")
	for _, r := range bt.Documents {
		md := Markdown(r)
		// Demote each document's headings one level below the batch title.
		md = strings.ReplaceAll(md, "\n## ", "\n### ")
		b.WriteString("#" + md)
		b.WriteString("\n")
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
