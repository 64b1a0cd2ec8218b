package processors

import (
	"context"
	"math"
	"sort"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/plan"
)

// ReadingOrder infers the logical order of text runs. Runs are grouped into
// vertical column bands by their horizontal extent; bands are read left to
// right, runs top to bottom within a band. A run whose horizontal extent
// overlaps two or more bands of the other runs (a title or a full-width
// caption) spans the columns and splits the page into sections that are read
// in turn.
type ReadingOrder struct {
	// ColumnGap is the horizontal distance that separates two bands.
	ColumnGap float64
}

func (*ReadingOrder) Name() string  { return "reading-order" }
func (*ReadingOrder) Priority() int { return PriorityReadingOrder }

func (ro *ReadingOrder) Run(ctx context.Context, res *analyzer.Result, p *plan.Plan) (Result, error) {
	gap := ro.ColumnGap
	if gap <= 0 {
		gap = DefaultConfig().ColumnGap
	}
	order := make([]int, 0, len(res.Runs))
	for page := 0; page < res.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		var runs []analyzer.TextRun
		for _, r := range res.Runs {
			if r.Page == page {
				runs = append(runs, r)
			}
		}
		order = append(order, orderPage(runs, gap)...)
	}
	changes := 0
	for pos, idx := range order {
		if pos != idx {
			changes++
		}
	}
	p.ReadingOrder = order
	return Result{Changes: changes}, nil
}

func orderPage(runs []analyzer.TextRun, gap float64) []int {
	if len(runs) < 2 {
		out := make([]int, len(runs))
		for i, r := range runs {
			out[i] = r.Index
		}
		return out
	}
	spanning := spanningRuns(runs, gap)

	sorted := append([]analyzer.TextRun(nil), runs...)
	sort.SliceStable(sorted, func(i, j int) bool { return topFirst(sorted[i], sorted[j]) })

	var out, section []int
	byIndex := make(map[int]analyzer.TextRun, len(runs))
	for _, r := range runs {
		byIndex[r.Index] = r
	}
	flush := func() {
		out = append(out, orderSection(section, byIndex, gap)...)
		section = section[:0]
	}
	for _, r := range sorted {
		if spanning[r.Index] {
			flush()
			out = append(out, r.Index)
			continue
		}
		section = append(section, r.Index)
	}
	flush()
	return out
}

type band struct {
	x0, x1 float64
	runs   []analyzer.TextRun
}

// spanningRuns reports the runs that overlap two or more column bands built
// from the other runs. A run is first tested against the bands of the runs
// narrower than itself; the rest are then tested against the bands of every
// other non-spanning run until nothing changes.
func spanningRuns(runs []analyzer.TextRun, gap float64) map[int]bool {
	byX := append([]analyzer.TextRun(nil), runs...)
	sortByX(byX)
	spanning := map[int]bool{}
	for _, r := range runs {
		w := r.BBox.Width()
		bands := buildBands(byX, gap, func(o analyzer.TextRun) bool {
			return o.Index != r.Index && o.BBox.Width() < w
		})
		if overlapping(r, bands) >= 2 {
			spanning[r.Index] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for _, r := range runs {
			if spanning[r.Index] {
				continue
			}
			bands := buildBands(byX, gap, func(o analyzer.TextRun) bool {
				return o.Index != r.Index && !spanning[o.Index]
			})
			if overlapping(r, bands) >= 2 {
				spanning[r.Index] = true
				changed = true
			}
		}
	}
	return spanning
}

// buildBands groups the runs accepted by keep into bands. Runs must be sorted
// by their left edge; a run joins the last band when it starts within gap of
// the band's right edge.
func buildBands(byX []analyzer.TextRun, gap float64, keep func(analyzer.TextRun) bool) []*band {
	var bands []*band
	for _, r := range byX {
		if keep != nil && !keep(r) {
			continue
		}
		if n := len(bands); n > 0 && r.BBox.X0 <= bands[n-1].x1+gap {
			b := bands[n-1]
			b.x1 = math.Max(b.x1, r.BBox.X1)
			b.runs = append(b.runs, r)
			continue
		}
		bands = append(bands, &band{x0: r.BBox.X0, x1: r.BBox.X1, runs: []analyzer.TextRun{r}})
	}
	return bands
}

func overlapping(r analyzer.TextRun, bands []*band) int {
	n := 0
	for _, b := range bands {
		if r.BBox.X0 < b.x1 && r.BBox.X1 > b.x0 {
			n++
		}
	}
	return n
}

func sortByX(runs []analyzer.TextRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].BBox.X0 != runs[j].BBox.X0 {
			return runs[i].BBox.X0 < runs[j].BBox.X0
		}
		return runs[i].Index < runs[j].Index
	})
}

func orderSection(idx []int, byIndex map[int]analyzer.TextRun, gap float64) []int {
	if len(idx) == 0 {
		return nil
	}
	runs := make([]analyzer.TextRun, len(idx))
	for i, n := range idx {
		runs[i] = byIndex[n]
	}
	sortByX(runs)
	var out []int
	for _, b := range buildBands(runs, gap, nil) {
		sort.SliceStable(b.runs, func(i, j int) bool { return topFirst(b.runs[i], b.runs[j]) })
		for _, r := range b.runs {
			out = append(out, r.Index)
		}
	}
	return out
}

// topFirst orders runs top to bottom, then left to right, then by document
// order.
func topFirst(a, b analyzer.TextRun) bool {
	if a.BBox.Y1 != b.BBox.Y1 {
		return a.BBox.Y1 > b.BBox.Y1
	}
	if a.BBox.X0 != b.BBox.X0 {
		return a.BBox.X0 < b.BBox.X0
	}
	return a.Index < b.Index
}
