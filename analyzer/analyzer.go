package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wudi/accesspdf/ir/semantic"
	"github.com/wudi/accesspdf/observability"
)

// DefaultTableTolerance is the distance in points within which rule
// positions and column boundaries are treated as aligned.
const DefaultTableTolerance = 3.0

// Analyzer inspects a document and produces a Result. It never modifies the
// document.
type Analyzer struct {
	tableTolerance float64
	logger         observability.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for degraded sub-checks.
func WithLogger(l observability.Logger) Option {
	return func(a *Analyzer) { a.logger = observability.OrNop(l) }
}

// WithTableTolerance overrides DefaultTableTolerance.
func WithTableTolerance(tol float64) Option {
	return func(a *Analyzer) {
		if tol > 0 {
			a.tableTolerance = tol
		}
	}
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{tableTolerance: DefaultTableTolerance, logger: observability.NopLogger{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scans doc. Sub-check failures degrade the affected field and are
// recorded in Result.Warnings; only a nil document or cancellation fail the
// call.
func (a *Analyzer) Analyze(ctx context.Context, doc *semantic.Document) (*Result, error) {
	if doc == nil {
		return nil, errors.New("analyze: nil document")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &Result{
		Source:     doc.Name,
		PageCount:  len(doc.Pages),
		Tagged:     doc.Tagged(),
		Lang:       doc.Lang,
		Title:      strings.TrimSpace(doc.Title()),
		HasOutline: len(doc.Outlines) > 0,
	}
	res.Runs = collectRuns(doc)
	res.Links = collectLinks(doc)

	a.check(res, "images", func() error {
		res.Images = collectImages(doc, res.Runs)
		return nil
	})
	a.check(res, "tables", func() error {
		for pi, page := range doc.Pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			res.Tables = append(res.Tables, detectTables(pi, pageRuns(res.Runs, pi), page.Rules, a.tableTolerance)...)
		}
		return nil
	})
	a.check(res, "contrast", func() error {
		res.Contrast = checkContrast(doc, res.Runs)
		return nil
	})
	a.check(res, "tags", func() error {
		res.Tags = tagInventory(doc.StructTree)
		return nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Issues = collectIssues(res)
	return res, nil
}

// check runs one sub-check, converting errors and panics into warnings.
func (a *Analyzer) check(res *Result, name string, fn func() error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = fn()
	}()
	if err == nil {
		return
	}
	aerr := &AnalysisError{Check: name, Err: err}
	res.Warnings = append(res.Warnings, aerr.Error())
	a.logger.Warn("analysis check degraded",
		observability.String(observability.KeyDocument, res.Source),
		observability.String("check", name),
		observability.Error("error", err))
}

func collectRuns(doc *semantic.Document) []TextRun {
	var runs []TextRun
	for pi, page := range doc.Pages {
		for ri, r := range page.Runs {
			if strings.TrimSpace(r.Text) == "" {
				continue
			}
			runs = append(runs, TextRun{
				Index:    len(runs),
				Page:     pi,
				Text:     r.Text,
				BBox:     r.BBox,
				FontName: r.FontName,
				FontSize: r.FontSize,
				Bold:     r.Bold || isBoldFont(r.FontName),
				Ref:      semantic.ContentRef{Kind: semantic.ContentText, Page: pi, Index: ri},
			})
		}
	}
	return runs
}

func isBoldFont(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "bold") || strings.Contains(n, "black") || strings.Contains(n, "heavy")
}

func pageRuns(runs []TextRun, page int) []TextRun {
	var out []TextRun
	for _, r := range runs {
		if r.Page == page {
			out = append(out, r)
		}
	}
	return out
}

func collectLinks(doc *semantic.Document) []LinkRef {
	var links []LinkRef
	for pi, page := range doc.Pages {
		for li, l := range page.Links {
			links = append(links, LinkRef{Page: pi, Index: li, Rect: l.Rect, URI: l.URI, Dest: l.Dest})
		}
	}
	return links
}

func tagInventory(tree *semantic.StructureTree) []TagInfo {
	if tree == nil {
		return nil
	}
	var tags []TagInfo
	for s, n := range tree.TagCounts() {
		tags = append(tags, TagInfo{Type: s, Count: n})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Type < tags[j].Type })
	return tags
}

func collectIssues(res *Result) []Issue {
	var issues []Issue
	if !res.Tagged {
		issues = append(issues, Issue{Rule: RuleTagged, Severity: SeverityError, Page: -1,
			Message: "Document is not tagged"})
	}
	if res.Lang == "" {
		issues = append(issues, Issue{Rule: RuleLang, Severity: SeverityError, Page: -1,
			Message: "Document language is not set"})
	}
	if res.Title == "" {
		issues = append(issues, Issue{Rule: RuleTitle, Severity: SeverityWarning, Page: -1,
			Message: "Document title is not set"})
	}
	if n := res.ImagesMissingAlt(); n > 0 {
		issues = append(issues, Issue{Rule: RuleImageAlt, Severity: SeverityError, Page: -1, Count: n,
			Message: fmt.Sprintf("%d image(s) missing alt text", n)})
	}
	if n := len(res.Contrast); n > 0 {
		issues = append(issues, Issue{Rule: RuleContrast, Severity: SeverityWarning, Page: -1, Count: n,
			Message: fmt.Sprintf("%d text run(s) below WCAG AA contrast", n)})
	}
	if !res.Tagged {
		for _, t := range res.Tables {
			issues = append(issues, Issue{Rule: RuleTables, Severity: SeverityInfo, Page: t.Page, Count: 1,
				Message: fmt.Sprintf("untagged table with %d rows and %d columns", t.RowCount(), len(t.Columns))})
		}
	}
	return issues
}
