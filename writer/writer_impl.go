package writer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wudi/accesspdf/alttext"
	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/ir/semantic"
	"github.com/wudi/accesspdf/observability"
	"github.com/wudi/accesspdf/plan"
)

type impl struct {
	interceptors []Interceptor
	cfg          Config
	now          func() time.Time
	logger       observability.Logger
}

func (w *impl) WriteFile(ctx context.Context, in, out string, doc *semantic.Document, res *analyzer.Result, p *plan.Plan, sc *alttext.Sidecar) (*semantic.Document, *Result, error) {
	if err := CheckPaths(in, out); err != nil {
		return nil, nil, err
	}
	fixed, result, err := w.Write(ctx, doc, res, p, sc)
	if err != nil {
		return nil, nil, err
	}
	if err := semantic.Save(out, fixed); err != nil {
		return nil, nil, fmt.Errorf("write %s: %w", out, err)
	}
	w.logger.Info("document written",
		observability.String(observability.KeyPath, out),
		observability.Int("elements", result.Elements),
		observability.Int("alt_injected", result.AltInjected))
	return fixed, result, nil
}

func (w *impl) Write(ctx context.Context, doc *semantic.Document, res *analyzer.Result, p *plan.Plan, sc *alttext.Sidecar) (*semantic.Document, *Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	out := doc.Clone()
	result := &Result{}
	b := &builder{ctx: ctx, w: w, doc: out, res: res, plan: p, sc: sc, result: result}

	var err error
	if p.BuildTree {
		err = b.buildTree()
	} else {
		err = b.augmentTree()
	}
	if err != nil {
		return nil, nil, err
	}
	b.applyMetadata()
	if len(p.Bookmarks) > 0 {
		out.Outlines = outlines(p.Bookmarks)
	}
	result.Warnings = append(result.Warnings, b.decisionWarnings()...)
	if out.StructTree != nil {
		for _, n := range out.StructTree.TagCounts() {
			result.Elements += n
		}
	}
	return out, result, nil
}

type builder struct {
	ctx    context.Context
	w      *impl
	doc    *semantic.Document
	res    *analyzer.Result
	plan   *plan.Plan
	sc     *alttext.Sidecar
	result *Result

	pending map[string]bool
	missing map[string]bool
}

func (b *builder) append(parent, child *semantic.StructureElement) error {
	for _, ic := range b.w.interceptors {
		if err := ic.BeforeAppend(b.ctx, parent, child); err != nil {
			return fmt.Errorf("interceptor: %w", err)
		}
	}
	parent.Append(child)
	return nil
}

func (b *builder) runRef(run int) (semantic.ContentRef, bool) {
	if run < 0 || run >= len(b.res.Runs) {
		return semantic.ContentRef{}, false
	}
	return b.res.Runs[run].Ref, true
}

// buildTree replaces the structure tree with one built from the plan.
func (b *builder) buildTree() error {
	b.doc.StructTree = &semantic.StructureTree{}
	root := b.doc.EnsureStructTree()
	b.result.TreeBuilt = true

	order := b.plan.ReadingOrder
	if len(order) == 0 {
		order = make([]int, len(b.res.Runs))
		for i := range order {
			order[i] = i
		}
	}
	byPage := make(map[int][]int)
	for _, run := range order {
		if run < 0 || run >= len(b.res.Runs) {
			continue
		}
		page := b.res.Runs[run].Page
		byPage[page] = append(byPage[page], run)
	}

	tableOf := make(map[int]int)
	for ti, t := range b.plan.Tables {
		for _, c := range t.Cells {
			for _, run := range c.Runs {
				tableOf[run] = ti
			}
		}
	}
	linkOf := make(map[int]int)
	for li, l := range b.plan.Links {
		for _, run := range l.Runs {
			linkOf[run] = li
		}
	}

	figures := b.figuresByPage()
	emittedTable := make(map[int]bool)
	emittedLink := make(map[int]bool)

	for page := range b.doc.Pages {
		if err := b.ctx.Err(); err != nil {
			return err
		}
		pending := figures[page]
		for _, run := range byPage[page] {
			top := b.res.Runs[run].BBox.Y1
			for len(pending) > 0 && pending[0].top >= top {
				if err := b.appendFigure(root, pending[0]); err != nil {
					return err
				}
				pending = pending[1:]
			}
			if ti, ok := tableOf[run]; ok {
				if !emittedTable[ti] {
					emittedTable[ti] = true
					if err := b.appendTable(root, ti); err != nil {
						return err
					}
				}
				continue
			}
			if li, ok := linkOf[run]; ok {
				if !emittedLink[li] {
					emittedLink[li] = true
					if err := b.appendLink(root, b.plan.Links[li]); err != nil {
						return err
					}
				}
				continue
			}
			if err := b.appendRun(root, run); err != nil {
				return err
			}
		}
		for _, f := range pending {
			if err := b.appendFigure(root, f); err != nil {
				return err
			}
		}
		for li, l := range b.plan.Links {
			if l.Page == page && !emittedLink[li] {
				emittedLink[li] = true
				if err := b.appendLink(root, l); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (b *builder) appendRun(parent *semantic.StructureElement, run int) error {
	ref, ok := b.runRef(run)
	if !ok {
		return nil
	}
	s := b.plan.Tags[run]
	if s == "" || s == "Link" || s == "TH" || s == "TD" {
		s = "P"
	}
	el := semantic.NewElement(s, ref.Page)
	el.AppendRef(ref)
	return b.append(parent, el)
}

func (b *builder) appendTable(parent *semantic.StructureElement, ti int) error {
	t := b.plan.Tables[ti]
	table := semantic.NewElement("Table", t.Page)
	cells := append([]plan.Cell(nil), t.Cells...)
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
	var tr *semantic.StructureElement
	row := -1
	for _, c := range cells {
		if c.Row != row {
			if tr != nil {
				if err := b.append(table, tr); err != nil {
					return err
				}
			}
			tr = semantic.NewElement("TR", t.Page)
			row = c.Row
		}
		s := "TD"
		if c.Header {
			s = "TH"
		}
		cell := semantic.NewElement(s, t.Page)
		if c.ID != "" {
			cell.ID = c.ID
		}
		if c.Scope != "" {
			cell.SetAttr(semantic.AttrScope, c.Scope)
		}
		if len(c.Headers) > 0 {
			cell.SetAttr(semantic.AttrHeaders, strings.Join(c.Headers, " "))
		}
		for _, run := range c.Runs {
			if ref, ok := b.runRef(run); ok {
				cell.AppendRef(ref)
			}
		}
		if err := b.append(tr, cell); err != nil {
			return err
		}
	}
	if tr != nil {
		if err := b.append(table, tr); err != nil {
			return err
		}
	}
	return b.append(parent, table)
}

func (b *builder) appendLink(parent *semantic.StructureElement, l plan.Link) error {
	el := semantic.NewElement("Link", l.Page)
	el.Alt = l.Alt
	for _, run := range l.Runs {
		if ref, ok := b.runRef(run); ok {
			el.AppendRef(ref)
		}
	}
	el.AppendRef(semantic.ContentRef{Kind: semantic.ContentLink, Page: l.Page, Index: l.Index})
	return b.append(parent, el)
}

// placedFigure is one placement of a planned figure.
type placedFigure struct {
	fig plan.Figure
	ref semantic.ContentRef
	top float64
}

// figuresByPage groups placements per page, topmost first.
func (b *builder) figuresByPage() map[int][]placedFigure {
	out := make(map[int][]placedFigure)
	for _, f := range b.plan.Figures {
		for _, ref := range f.Placements {
			if ref.Page < 0 || ref.Page >= len(b.doc.Pages) || ref.Index < 0 || ref.Index >= len(b.doc.Pages[ref.Page].Images) {
				continue
			}
			top := b.doc.Pages[ref.Page].Images[ref.Index].BBox.Y1
			out[ref.Page] = append(out[ref.Page], placedFigure{fig: f, ref: ref, top: top})
		}
	}
	for page := range out {
		figs := out[page]
		sort.SliceStable(figs, func(i, j int) bool { return figs[i].top > figs[j].top })
	}
	return out
}

func (b *builder) appendFigure(parent *semantic.StructureElement, f placedFigure) error {
	el := semantic.NewElement("Figure", f.ref.Page)
	el.AppendRef(f.ref)
	b.applyDecision(el, f.fig)
	return b.append(parent, el)
}

// applyDecision sets the figure's alternate text from the sidecar. Entries
// awaiting review leave the element untouched.
func (b *builder) applyDecision(el *semantic.StructureElement, f plan.Figure) {
	var entry *alttext.Entry
	if b.sc != nil {
		entry, _ = b.sc.ByHash(f.Hash)
	}
	switch {
	case entry == nil:
		if el.Alt == "" && !el.Artifact {
			b.markMissing(f.ImageID)
		}
	case entry.Status == alttext.StatusApproved:
		el.AttachDescription(entry.AltText)
		b.result.AltInjected++
	case entry.Status == alttext.StatusDecorative:
		el.MarkArtifact()
		b.result.Decorative++
	default:
		b.markPending(entry.ID)
	}
}

func (b *builder) markPending(id string) {
	if b.pending == nil {
		b.pending = make(map[string]bool)
	}
	if !b.pending[id] {
		b.pending[id] = true
		b.result.Pending++
	}
}

func (b *builder) markMissing(id string) {
	if b.missing == nil {
		b.missing = make(map[string]bool)
	}
	b.missing[id] = true
}

func (b *builder) decisionWarnings() []string {
	var out []string
	for _, id := range sortedKeys(b.pending) {
		out = append(out, fmt.Sprintf("%s needs review; alt text not injected", id))
	}
	for _, id := range sortedKeys(b.missing) {
		out = append(out, fmt.Sprintf("%s has no alt-text entry", id))
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// augmentTree keeps an existing structure tree and layers the plan on top:
// headings promote matching P elements, missing figures and links are added
// under the first top-level element.
func (b *builder) augmentTree() error {
	var root *semantic.StructureElement
	if b.doc.StructTree != nil && len(b.doc.StructTree.K) > 0 && b.doc.StructTree.K[0] != nil {
		root = b.doc.StructTree.K[0]
	} else {
		root = b.doc.EnsureStructTree()
	}
	tree := b.doc.StructTree

	if len(b.plan.Headings) > 0 {
		level := make(map[semantic.ContentRef]int, len(b.plan.Headings))
		for _, h := range b.plan.Headings {
			if ref, ok := b.runRef(h.Run); ok {
				level[ref] = h.Level
			}
		}
		tree.Walk(func(e *semantic.StructureElement, _ int) bool {
			if e.S != "P" {
				return true
			}
			refs := e.Refs()
			if len(refs) == 1 {
				if lv, ok := level[refs[0]]; ok {
					e.S = fmt.Sprintf("H%d", lv)
				}
			}
			return true
		})
	}

	for _, f := range b.plan.Figures {
		if err := b.ctx.Err(); err != nil {
			return err
		}
		for _, ref := range f.Placements {
			el := tree.FindImage(ref.Page, ref.Index)
			if el == nil {
				el = semantic.NewElement("Figure", ref.Page)
				el.AppendRef(ref)
				if err := b.append(root, el); err != nil {
					return err
				}
			}
			b.applyDecision(el, f)
		}
	}

	for _, l := range b.plan.Links {
		if err := b.appendLink(root, l); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) applyMetadata() {
	d := b.doc
	if b.plan.Marked {
		d.Marked = true
	}
	if b.plan.Lang != "" {
		d.SetLanguage(b.plan.Lang)
	}
	if b.plan.Title != "" {
		d.SetTitle(b.plan.Title)
	}
	if b.plan.DisplayDocTitle && d.Title() != "" {
		d.DisplayDocTitle = true
	}
	if b.plan.TabOrder != "" {
		for _, p := range d.Pages {
			p.Tabs = b.plan.TabOrder
		}
	}
	if !b.w.cfg.Deterministic {
		if d.Info == nil {
			d.Info = &semantic.DocumentInfo{}
		}
		d.Info.ModDate = b.w.now().UTC().Format(time.RFC3339)
	}
}

func outlines(items []plan.Bookmark) []semantic.OutlineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]semantic.OutlineItem, 0, len(items))
	for _, bm := range items {
		out = append(out, semantic.OutlineItem{
			Title:    bm.Title,
			Page:     bm.Page,
			Children: outlines(bm.Children),
		})
	}
	return out
}
