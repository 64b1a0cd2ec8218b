package processors

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/geo"
	"github.com/wudi/accesspdf/ir/semantic"
	"github.com/wudi/accesspdf/ir/semantic/semantictest"
	"github.com/wudi/accesspdf/plan"
)

func runDefault(t *testing.T, doc *semantic.Document) (*analyzer.Result, *plan.Plan, []Result) {
	t.Helper()
	res := analyze(t, doc)
	p := plan.New()
	results, err := NewPipeline(Default(DefaultConfig())).Run(context.Background(), res, p)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	for _, r := range results {
		if r.Status != StatusOK {
			t.Fatalf("%s failed: %s", r.Processor, r.Err)
		}
	}
	return res, p, results
}

func texts(res *analyzer.Result, order []int) []string {
	out := make([]string, len(order))
	for i, idx := range order {
		out[i] = res.Runs[idx].Text
	}
	return out
}

func TestReadingOrderTwoColumns(t *testing.T) {
	left := []string{"L1", "L2", "L3"}
	right := []string{"R1", "R2", "R3"}
	doc := semantictest.Doc("d", semantictest.TwoColumnPage(left, right))
	res, p, _ := runDefault(t, doc)

	got := texts(res, p.ReadingOrder)
	want := []string{"L1", "L2", "L3", "R1", "R2", "R3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reading order %v, want %v", got, want)
	}
}

func TestReadingOrderSpanningTitle(t *testing.T) {
	page := semantictest.TwoColumnPage([]string{"L1", "L2"}, []string{"R1", "R2"})
	page.Runs = append(page.Runs, semantictest.RunW("Full width title", 72, 740, 468, 20))
	res, p, _ := runDefault(t, semantictest.Doc("d", page))
	got := texts(res, p.ReadingOrder)
	want := []string{"Full width title", "L1", "L2", "R1", "R2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reading order %v, want %v", got, want)
	}
}

func TestReadingOrderWideColumnBesideSidebar(t *testing.T) {
	page := semantictest.Page(
		semantictest.RunW("B1", 420, 700, 60, 10),
		semantictest.RunW("A1 main text", 72, 660, 328, 10),
		semantictest.RunW("B2", 420, 680, 60, 10),
		semantictest.RunW("A2 main text", 72, 640, 328, 10),
		semantictest.RunW("A3 main text", 72, 620, 328, 10),
	)
	res, p, _ := runDefault(t, semantictest.Doc("d", page))
	got := texts(res, p.ReadingOrder)
	want := []string{"A1 main text", "A2 main text", "A3 main text", "B1", "B2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reading order %v, want %v", got, want)
	}
}

func TestReadingOrderHeadingOverGutter(t *testing.T) {
	page := semantictest.TwoColumnPage([]string{"L1", "L2"}, []string{"R1", "R2"})
	page.Runs = append(page.Runs, semantictest.RunW("Part two", 250, 740, 110, 12))
	res, p, _ := runDefault(t, semantictest.Doc("d", page))
	got := texts(res, p.ReadingOrder)
	want := []string{"Part two", "L1", "L2", "R1", "R2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reading order %v, want %v", got, want)
	}
}

func TestReadingOrderSingleRunPage(t *testing.T) {
	doc := semantictest.Doc("d",
		semantictest.Page(semantictest.Run("only", 72, 700, 12)),
		semantictest.Page(),
		semantictest.Page(semantictest.Run("b", 72, 100, 12), semantictest.Run("a", 72, 700, 12)),
	)
	res, p, _ := runDefault(t, doc)
	if got := texts(res, p.ReadingOrder); !reflect.DeepEqual(got, []string{"only", "a", "b"}) {
		t.Fatalf("reading order %v", got)
	}
}

func TestHeadingsSingleSizeYieldsNone(t *testing.T) {
	doc := semantictest.Doc("d", semantictest.Page(
		semantictest.Run("one", 72, 700, 11),
		semantictest.Run("two", 72, 680, 11),
	))
	_, p, _ := runDefault(t, doc)
	if len(p.Headings) != 0 {
		t.Fatalf("expected no headings, got %+v", p.Headings)
	}
}

func TestHeadingsLevelsAcrossPages(t *testing.T) {
	doc := semantictest.Doc("d",
		semantictest.Page(
			semantictest.Run("Title", 72, 740, 24),
			semantictest.Run("Section", 72, 700, 16),
			semantictest.Run("body a", 72, 680, 11),
			semantictest.Run("body b", 72, 660, 11),
		),
		semantictest.Page(
			semantictest.Run("Another section", 72, 740, 16.04),
			semantictest.Run("body c", 72, 700, 11),
		),
	)
	res, p, _ := runDefault(t, doc)
	levels := map[string]int{}
	for _, h := range p.Headings {
		levels[h.Text] = h.Level
	}
	want := map[string]int{"Title": 1, "Section": 2, "Another section": 2}
	if !reflect.DeepEqual(levels, want) {
		t.Fatalf("levels %v, want %v", levels, want)
	}
	for _, h := range p.Headings {
		if p.Tags[h.Run] != "H"+string(rune('0'+h.Level)) {
			t.Fatalf("run %q tagged %q", res.Runs[h.Run].Text, p.Tags[h.Run])
		}
	}
}

func TestHeadingsCollapseBeyondMaxLevel(t *testing.T) {
	var runs []semantic.TextRun
	sizes := []float64{30, 26, 22, 18, 16, 14, 13, 12.5}
	for i, s := range sizes {
		runs = append(runs, semantictest.Run("Heading", 72, 760-float64(i)*40, s))
	}
	for i := 0; i < 10; i++ {
		runs = append(runs, semantictest.Run("body", 72, 400-float64(i)*14, 10))
	}
	res := analyze(t, semantictest.Doc("d", semantictest.Page(runs...)))
	p := plan.New()
	h := &Headings{MaxLevel: 6}
	if _, err := h.Run(context.Background(), res, p); err != nil {
		t.Fatal(err)
	}
	var got []int
	for _, hd := range p.Headings {
		got = append(got, hd.Level)
	}
	if !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5, 6, 6, 6}) {
		t.Fatalf("levels %v", got)
	}

	p = plan.New()
	if _, err := (&Headings{MaxLevel: 3}).Run(context.Background(), res, p); err != nil {
		t.Fatal(err)
	}
	if last := p.Headings[len(p.Headings)-1].Level; last != 3 {
		t.Fatalf("expected collapse into H3, got H%d", last)
	}
}

func TestHeadingsBodyTieGoesToSmallerSize(t *testing.T) {
	doc := semantictest.Doc("d", semantictest.Page(
		semantictest.Run("big a", 72, 700, 14),
		semantictest.Run("big b", 72, 680, 14),
		semantictest.Run("small a", 72, 660, 10),
		semantictest.Run("small b", 72, 640, 10),
	))
	_, p, _ := runDefault(t, doc)
	if len(p.Headings) != 2 || p.Headings[0].Text != "big a" || p.Headings[0].Level != 1 {
		t.Fatalf("unexpected headings %+v", p.Headings)
	}
}

func TestHeadingsSkipDropCap(t *testing.T) {
	page := semantictest.Page(
		semantictest.RunW("T", 72, 660, 30, 40),
		semantictest.RunW("he quick brown fox jumps over the lazy dog.", 106, 688, 430, 11),
		semantictest.RunW("Second line of the paragraph continues.", 106, 674, 430, 11),
		semantictest.RunW("Third line of the paragraph is long.", 72, 660, 464, 11),
	)
	_, p, _ := runDefault(t, semantictest.Doc("d", page))
	if len(p.Headings) != 0 {
		t.Fatalf("drop cap must not become a heading: %+v", p.Headings)
	}
}

func TestHeadingsNestingWarning(t *testing.T) {
	doc := semantictest.Doc("d", semantictest.Page(
		semantictest.Run("Top", 72, 740, 30),
		semantictest.Run("Mid", 72, 600, 20),
		semantictest.Run("Deep", 72, 500, 14),
		semantictest.Run("Body", 72, 480, 10),
		semantictest.Run("Body", 72, 460, 10),
	))
	res := analyze(t, doc)
	p := plan.New()
	// Drop the middle heading from the logical order to force H1 -> H3.
	p.ReadingOrder = []int{0, 2, 3, 4, 1}
	if _, err := (&Headings{}).Run(context.Background(), res, p); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, w := range p.Warnings {
		if strings.Contains(w, "H1 -> H3") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected nesting warning, got %v", p.Warnings)
	}
}

func TestTablesHeaderRow(t *testing.T) {
	page := semantictest.Page()
	semantictest.Grid(page, 72, 600, 120, 20, [][]string{
		{"Name", "Qty", "Price"},
		{"Apples", "3", "1.20"},
		{"Pears", "5", "0.90"},
	})
	res, p, _ := runDefault(t, semantictest.Doc("d", page))
	if len(p.Tables) != 1 {
		t.Fatalf("expected one table, got %d", len(p.Tables))
	}
	tbl := p.Tables[0]
	if !tbl.HasHeader || tbl.Rows != 3 || tbl.Columns != 3 || len(tbl.Cells) != 9 {
		t.Fatalf("unexpected table %+v", tbl)
	}
	for _, c := range tbl.Cells {
		text := res.Runs[c.Runs[0]].Text
		switch {
		case c.Row == 0:
			if !c.Header || c.Scope != "Column" || c.ID != "t1_c"+string(rune('0'+c.Col)) {
				t.Fatalf("bad header cell %+v (%s)", c, text)
			}
		default:
			if c.Header || len(c.Headers) != 1 || c.Headers[0] != "t1_c"+string(rune('0'+c.Col)) {
				t.Fatalf("bad data cell %+v (%s)", c, text)
			}
		}
	}
	if text := res.Runs[tbl.Cells[5].Runs[0]].Text; text != "1.20" {
		t.Fatalf("cell (1,2) = %q", text)
	}
}

func TestTablesSparseRowDisablesHeader(t *testing.T) {
	page := semantictest.Page()
	semantictest.Grid(page, 72, 600, 120, 20, [][]string{
		{"a", "b", "c", "d"},
		{"1", "2", "3", "4"},
		{"x", "", "", ""},
	})
	_, p, results := runDefault(t, semantictest.Doc("d", page))
	if len(p.Tables) != 1 {
		t.Fatalf("table should still be built, got %d", len(p.Tables))
	}
	if p.Tables[0].HasHeader {
		t.Fatalf("header must not be marked")
	}
	for _, c := range p.Tables[0].Cells {
		if c.Header || len(c.Headers) != 0 {
			t.Fatalf("unexpected header wiring %+v", c)
		}
	}
	var warned bool
	for _, r := range results {
		if r.Processor == "tables" && len(r.Warnings) == 1 {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a tables warning")
	}
}

func TestMetadataKeepsExistingValues(t *testing.T) {
	doc := semantictest.Doc("d", semantictest.Page(semantictest.Run("Bonjour tout le monde", 72, 700, 12)))
	doc.Lang = "fr-CA"
	doc.SetTitle("Existing")
	_, p, _ := runDefault(t, doc)
	if p.Lang != "fr-CA" || p.Title != "Existing" || !p.DisplayDocTitle {
		t.Fatalf("unexpected metadata %q %q %v", p.Lang, p.Title, p.DisplayDocTitle)
	}
}

func TestMetadataDetectsAndDefaults(t *testing.T) {
	english := semantictest.Page(
		semantictest.Run("Quarterly Results", 72, 740, 20),
		semantictest.Run("The company reported strong growth in the third quarter of the year,", 72, 700, 11),
		semantictest.Run("driven by demand for its products and services across all regions.", 72, 686, 11),
	)
	_, p, _ := runDefault(t, semantictest.Doc("d", english))
	if p.Lang != "en-US" {
		t.Fatalf("detected %q, want en-US", p.Lang)
	}
	if p.Title != "Quarterly Results" || !p.DisplayDocTitle {
		t.Fatalf("title %q", p.Title)
	}

	short := semantictest.Page(semantictest.Run("Hi", 72, 700, 12))
	_, p, _ = runDefault(t, semantictest.Doc("d", short))
	if p.Lang != "en-US" {
		t.Fatalf("short text should fall back to en-US, got %q", p.Lang)
	}
	if p.Title != "" {
		t.Fatalf("title derived from too-short text: %q", p.Title)
	}

	res := analyze(t, semantictest.Doc("d", short))
	p = plan.New()
	if _, err := (&Metadata{DefaultLang: "de_DE"}).Run(context.Background(), res, p); err != nil {
		t.Fatal(err)
	}
	if p.Lang != "de-DE" {
		t.Fatalf("default language not canonicalised: %q", p.Lang)
	}
}

func TestLinksAltText(t *testing.T) {
	page := semantictest.Page(
		semantictest.Run("Visit our site", 72, 700, 12),
		semantictest.Run("See chapter 2", 72, 600, 12),
	)
	page.Links = []semantic.LinkAnnotation{
		{Rect: geo.Rect(70, 698, 170, 714), URI: "https://example.com"},
		{Rect: geo.Rect(70, 598, 170, 614), Dest: "chapter2"},
		{Rect: geo.Rect(300, 300, 320, 320)},
	}
	res, p, _ := runDefault(t, semantictest.Doc("d", page))
	if len(p.Links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(p.Links))
	}
	alts := []string{p.Links[0].Alt, p.Links[1].Alt, p.Links[2].Alt}
	if !reflect.DeepEqual(alts, []string{"https://example.com", "internal:chapter2", "Link"}) {
		t.Fatalf("alts %v", alts)
	}
	if len(p.Links[0].Runs) != 1 || res.Runs[p.Links[0].Runs[0]].Text != "Visit our site" {
		t.Fatalf("link runs %+v", p.Links[0].Runs)
	}
	if len(p.Links[2].Runs) != 0 {
		t.Fatalf("empty link area should have no runs")
	}
}

func TestBookmarksNesting(t *testing.T) {
	doc := semantictest.Doc("d",
		semantictest.Page(
			semantictest.Run("Guide", 72, 740, 24),
			semantictest.Run("Install", 72, 700, 16),
			semantictest.Run("body", 72, 680, 10),
			semantictest.Run("body", 72, 660, 10),
			semantictest.Run("body", 72, 640, 10),
		),
		semantictest.Page(
			semantictest.Run("Usage", 72, 740, 16),
			semantictest.Run("body", 72, 700, 10),
		),
	)
	_, p, _ := runDefault(t, doc)
	if len(p.Bookmarks) != 1 || p.Bookmarks[0].Title != "Guide" {
		t.Fatalf("unexpected roots %+v", p.Bookmarks)
	}
	kids := p.Bookmarks[0].Children
	if len(kids) != 2 || kids[0].Title != "Install" || kids[1].Title != "Usage" || kids[1].Page != 1 {
		t.Fatalf("unexpected children %+v", kids)
	}
}

func TestBookmarksSkippedWithExistingOutline(t *testing.T) {
	doc := semantictest.Doc("d", semantictest.Page(
		semantictest.Run("Guide", 72, 740, 24),
		semantictest.Run("body", 72, 700, 10),
	))
	doc.Outlines = []semantic.OutlineItem{{Title: "Existing", Page: 0}}
	_, p, _ := runDefault(t, doc)
	if len(p.Bookmarks) != 0 {
		t.Fatalf("existing outline must be kept")
	}
}

func TestProcessorsAreDeterministic(t *testing.T) {
	page := semantictest.TwoColumnPage([]string{"Alpha", "Beta"}, []string{"Gamma", "Delta"})
	page.Runs = append(page.Runs, semantictest.Run("Heading", 72, 760, 20))
	semantictest.Grid(page, 72, 500, 100, 20, [][]string{{"h1", "h2"}, {"1", "2"}})
	doc := semantictest.Doc("d", page)
	_, p1, _ := runDefault(t, doc)
	_, p2, _ := runDefault(t, doc)
	if !reflect.DeepEqual(p1, p2) {
		t.Fatalf("plans differ between runs")
	}
}
