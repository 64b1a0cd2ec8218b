// Package report holds the run report produced by check, fix and generate,
// and renders it as JSON, Markdown or HTML.
package report

import (
	"github.com/wudi/accesspdf/alttext"
	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/compliance"
	"github.com/wudi/accesspdf/processors"
)

type Mode string

const (
	ModeCheck    Mode = "check"
	ModeFix      Mode = "fix"
	ModeGenerate Mode = "generate"
)

// Report describes one document run.
type Report struct {
	Document   string      `json:"document"`
	Mode       Mode        `json:"mode"`
	Input      string      `json:"input"`
	Output     string      `json:"output,omitempty"`
	Sidecar    string      `json:"sidecar,omitempty"`
	PageCount  int         `json:"page_count"`
	Tagged     bool        `json:"tagged"`
	Issues     []Issue     `json:"issues"`
	Processors []Processor `json:"processors,omitempty"`
	AltText    AltText     `json:"alt_text"`
	Before     *Compliance `json:"before,omitempty"`
	After      *Compliance `json:"after,omitempty"`
	Generation *Generation `json:"generation,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type Issue struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	// Page is one-based, 0 for document-level issues.
	Page  int `json:"page,omitempty"`
	Count int `json:"count,omitempty"`
}

type Processor struct {
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Changes  int      `json:"changes"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// AltText summarises the sidecar after reconciliation.
type AltText struct {
	Images      int      `json:"images"`
	Approved    int      `json:"approved"`
	Decorative  int      `json:"decorative"`
	NeedsReview int      `json:"needs_review"`
	Added       []string `json:"added,omitempty"`
	Stale       []string `json:"stale,omitempty"`
}

type Compliance struct {
	Standard   string      `json:"standard"`
	Compliant  bool        `json:"compliant"`
	Violations []Violation `json:"violations,omitempty"`
}

type Violation struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

type Generation struct {
	Provider  string   `json:"provider"`
	Model     string   `json:"model"`
	Generated int      `json:"generated"`
	Cached    int      `json:"cached"`
	Skipped   int      `json:"skipped"`
	Failed    []string `json:"failed,omitempty"`
	Canceled  bool     `json:"canceled,omitempty"`
}

// New starts a report for the analysed input.
func New(mode Mode, input string, res *analyzer.Result) *Report {
	r := &Report{Mode: mode, Input: input, Issues: []Issue{}}
	if res == nil {
		return r
	}
	r.Document = res.Source
	r.PageCount = res.PageCount
	r.Tagged = res.Tagged
	for _, is := range res.Issues {
		page := 0
		if is.Page >= 0 {
			page = is.Page + 1
		}
		r.Issues = append(r.Issues, Issue{
			Rule:     is.Rule,
			Severity: string(is.Severity),
			Message:  is.Message,
			Page:     page,
			Count:    is.Count,
		})
	}
	r.Warnings = append(r.Warnings, res.Warnings...)
	return r
}

// Warn appends a warning.
func (r *Report) Warn(msg string) { r.Warnings = append(r.Warnings, msg) }

// AddProcessors records the pipeline results and their warnings.
func (r *Report) AddProcessors(results []processors.Result) {
	for _, pr := range results {
		r.Processors = append(r.Processors, Processor{
			Name:     pr.Processor,
			Status:   string(pr.Status),
			Changes:  pr.Changes,
			Warnings: pr.Warnings,
			Error:    pr.Err,
		})
		r.Warnings = append(r.Warnings, pr.Warnings...)
	}
}

// SetAltText summarises sc. rec may be the zero value when no
// reconciliation ran.
func (r *Report) SetAltText(sc *alttext.Sidecar, rec alttext.ReconcileReport) {
	if sc == nil {
		return
	}
	stats := sc.Stats()
	r.AltText = AltText{
		Images:      len(sc.Images),
		Approved:    stats[alttext.StatusApproved],
		Decorative:  stats[alttext.StatusDecorative],
		NeedsReview: stats[alttext.StatusNeedsReview],
		Added:       rec.Added,
		Stale:       rec.Stale,
	}
}

// SetGeneration records a description pass.
func (r *Report) SetGeneration(provider, model string, gen alttext.GenerateReport) {
	g := &Generation{
		Provider:  provider,
		Model:     model,
		Generated: len(gen.Generated),
		Cached:    len(gen.Cached),
		Skipped:   len(gen.Skipped),
		Canceled:  gen.Canceled,
	}
	for _, f := range gen.Failed {
		g.Failed = append(g.Failed, f.ID+": "+f.Err.Error())
	}
	r.Generation = g
}

// FromCompliance converts a validator report.
func FromCompliance(c *compliance.Report) *Compliance {
	if c == nil {
		return nil
	}
	out := &Compliance{Standard: c.Standard, Compliant: c.Compliant}
	for _, v := range c.Violations {
		out.Violations = append(out.Violations, Violation{Code: v.Code, Description: v.Description, Location: v.Location})
	}
	return out
}

// Batch aggregates the reports of a batch run.
type Batch struct {
	Documents []*Report `json:"documents"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Canceled  int       `json:"canceled"`
}
