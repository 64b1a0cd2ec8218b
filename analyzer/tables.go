package analyzer

import (
	"math"
	"sort"

	"github.com/wudi/accesspdf/geo"
)

// Ruling lines thinner than ruleSlack and longer than ruleMinLen count as
// table rules.
const (
	ruleSlack  = 2.0
	ruleMinLen = 20.0
)

// clusterValues groups sorted values whose distance to the group's first
// member is within tol and returns one representative (the mean) per group.
func clusterValues(vals []float64, tol float64) []float64 {
	if len(vals) == 0 {
		return nil
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	var out []float64
	start, sum, n := sorted[0], 0.0, 0
	for _, v := range sorted {
		if v-start > tol {
			out = append(out, sum/float64(n))
			start, sum, n = v, 0, 0
		}
		sum += v
		n++
	}
	return append(out, sum/float64(n))
}

type tableRow struct {
	top, bottom float64
	runs        []int
	bounds      []float64
}

// detectTables finds candidate table regions on one page. runs are the
// page's runs from the analysis result.
func detectTables(page int, runs []TextRun, rules []geo.Line, tol float64) []TableRegion {
	var ys []float64
	var verticals []geo.Line
	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, l := range rules {
		switch {
		case l.IsHorizontal(ruleSlack, ruleMinLen):
			ys = append(ys, (l.Y0+l.Y1)/2)
			minX = math.Min(minX, math.Min(l.X0, l.X1))
			maxX = math.Max(maxX, math.Max(l.X0, l.X1))
		case l.IsVertical(ruleSlack, ruleMinLen):
			verticals = append(verticals, l)
		}
	}
	positions := clusterValues(ys, tol)
	if len(positions) < 3 {
		return nil
	}
	// Top to bottom.
	sort.Sort(sort.Reverse(sort.Float64Slice(positions)))

	rows := make([]tableRow, 0, len(positions)-1)
	for i := 0; i+1 < len(positions); i++ {
		row := tableRow{top: positions[i], bottom: positions[i+1]}
		var lefts, ruled []float64
		for _, seg := range rowSegments(runs, row.top, row.bottom, minX-tol, maxX+tol, tol) {
			lefts = append(lefts, seg.left)
			row.runs = append(row.runs, seg.runs...)
		}
		// Vertical rules crossing the row are the cell edges; the rightmost
		// rule closes the last cell and is not a boundary.
		for _, v := range verticals {
			b := v.Bounds()
			if b.Y0 <= row.bottom+tol && b.Y1 >= row.top-tol && b.X0 < maxX-tol {
				ruled = append(ruled, b.X0)
			}
		}
		if len(ruled) >= 2 {
			row.bounds = clusterValues(ruled, tol)
		} else {
			row.bounds = clusterValues(lefts, tol)
		}
		rows = append(rows, row)
	}

	var regions []TableRegion
	start := 0
	flush := func(end int) {
		if end-start >= 2 && aligned(rows[start:end], tol) {
			regions = append(regions, buildRegion(page, rows[start:end], runs, tol))
		}
	}
	acc := rows[0].bounds
	for i := 1; i < len(rows); i++ {
		if joins(acc, rows[i].bounds, tol) {
			acc = clusterValues(append(append([]float64(nil), acc...), rows[i].bounds...), tol)
			continue
		}
		flush(i)
		start = i
		acc = rows[i].bounds
	}
	flush(len(rows))
	return regions
}

// joins reports whether a row with boundaries b continues a region whose
// boundaries so far are acc: at least two aligned boundaries, or all of them
// when the row populates fewer than two cells.
func joins(acc, b []float64, tol float64) bool {
	if len(acc) < 2 || len(b) == 0 {
		return false
	}
	return sharedBounds(b, acc, tol) >= min(2, len(b))
}

// aligned reports whether two consecutive rows of a region share at least two
// column boundaries. Sparse rows may join a region but cannot found one.
func aligned(rows []tableRow, tol float64) bool {
	for i := 0; i+1 < len(rows); i++ {
		if sharedBounds(rows[i].bounds, rows[i+1].bounds, tol) >= 2 {
			return true
		}
	}
	return false
}

func buildRegion(page int, rows []tableRow, runs []TextRun, tol float64) TableRegion {
	region := TableRegion{Page: page}
	var bounds []float64
	region.Rows = append(region.Rows, rows[0].top)
	for _, r := range rows {
		region.Rows = append(region.Rows, r.bottom)
		bounds = append(bounds, r.bounds...)
		region.Runs = append(region.Runs, r.runs...)
	}
	region.Columns = clusterValues(bounds, tol)
	sort.Ints(region.Runs)
	for _, idx := range region.Runs {
		region.BBox = region.BBox.Union(runByIndex(runs, idx).BBox)
	}
	return region
}

func runByIndex(runs []TextRun, idx int) TextRun {
	for _, r := range runs {
		if r.Index == idx {
			return r
		}
	}
	return TextRun{}
}

type segment struct {
	left, right float64
	runs        []int
}

// rowSegments merges horizontally adjacent runs inside the row band into
// cell-sized segments so that word-level runs do not create extra columns.
func rowSegments(runs []TextRun, top, bottom, minX, maxX, tol float64) []segment {
	var members []TextRun
	for _, r := range runs {
		cy := r.BBox.CenterY()
		if cy < bottom || cy > top || r.BBox.X0 < minX || r.BBox.X0 > maxX {
			continue
		}
		members = append(members, r)
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].BBox.X0 < members[j].BBox.X0 })
	var segs []segment
	for _, r := range members {
		gap := math.Max(tol, 0.3*r.FontSize)
		if n := len(segs); n > 0 && r.BBox.X0-segs[n-1].right <= gap {
			segs[n-1].right = math.Max(segs[n-1].right, r.BBox.X1)
			segs[n-1].runs = append(segs[n-1].runs, r.Index)
			continue
		}
		segs = append(segs, segment{left: r.BBox.X0, right: r.BBox.X1, runs: []int{r.Index}})
	}
	return segs
}

func sharedBounds(a, b []float64, tol float64) int {
	n := 0
	for _, x := range a {
		for _, y := range b {
			if math.Abs(x-y) <= tol {
				n++
				break
			}
		}
	}
	return n
}
