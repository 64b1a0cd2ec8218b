package processors

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/plan"
)

// Headings infers heading levels from font sizes. The most frequent size is
// body text; every distinct size strictly larger than body*MinRatio is a
// heading size, ranked from largest (level 1) down. Ranks beyond MaxLevel
// collapse into MaxLevel.
type Headings struct {
	MaxLevel        int
	MinRatio        float64
	DropCapMaxRunes int
}

func (*Headings) Name() string  { return "headings" }
func (*Headings) Priority() int { return PriorityHeadings }

// sizeKey normalises a font size to 0.1pt.
func sizeKey(size float64) float64 {
	return math.Round(size*10) / 10
}

func (h *Headings) Run(ctx context.Context, res *analyzer.Result, p *plan.Plan) (Result, error) {
	cfg := Config{MaxHeadingLevel: h.MaxLevel, HeadingMinRatio: h.MinRatio, DropCapMaxRunes: h.DropCapMaxRunes}.normalize()
	if len(res.Runs) == 0 {
		return Result{}, nil
	}
	order := p.ReadingOrder
	if len(order) != len(res.Runs) {
		order = make([]int, len(res.Runs))
		for i := range order {
			order[i] = i
		}
	}
	dropCaps := findDropCaps(res, order, cfg.DropCapMaxRunes)

	body := bodySize(res.Runs)
	threshold := body * cfg.HeadingMinRatio
	distinct := map[float64]bool{}
	for _, r := range res.Runs {
		if s := sizeKey(r.FontSize); s > threshold && !dropCaps[r.Index] {
			distinct[s] = true
		}
	}
	if len(distinct) == 0 {
		return Result{}, nil
	}
	sizes := make([]float64, 0, len(distinct))
	for s := range distinct {
		sizes = append(sizes, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))
	levels := make(map[float64]int, len(sizes))
	for i, s := range sizes {
		levels[s] = min(i+1, cfg.MaxHeadingLevel)
	}

	changes := 0
	last := 0
	for _, idx := range order {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		r := res.Runs[idx]
		level, ok := levels[sizeKey(r.FontSize)]
		if !ok || dropCaps[idx] {
			continue
		}
		text := strings.Join(strings.Fields(r.Text), " ")
		p.Headings = append(p.Headings, plan.Heading{Run: idx, Page: r.Page, Level: level, Text: text})
		p.Tag(idx, fmt.Sprintf("H%d", level))
		changes++
		if last > 0 && level > last+1 {
			p.Warn(fmt.Sprintf("heading nesting skip: H%d -> H%d (%q)", last, level, text))
		}
		last = level
	}
	return Result{Changes: changes}, nil
}

// bodySize returns the most frequent normalised size; ties go to the
// smaller size.
func bodySize(runs []analyzer.TextRun) float64 {
	counts := map[float64]int{}
	for _, r := range runs {
		if r.FontSize > 0 {
			counts[sizeKey(r.FontSize)]++
		}
	}
	best, bestN := 0.0, 0
	for s, n := range counts {
		if n > bestN || (n == bestN && s < best) {
			best, bestN = s, n
		}
	}
	return best
}

// findDropCaps marks short runs immediately followed, in reading order on
// the same page, by a run that starts to their right and overlaps them
// vertically.
func findDropCaps(res *analyzer.Result, order []int, maxRunes int) map[int]bool {
	out := map[int]bool{}
	for pos, idx := range order {
		r := res.Runs[idx]
		n := utf8.RuneCountInString(strings.TrimSpace(r.Text))
		if n == 0 || n > maxRunes || pos+1 >= len(order) {
			continue
		}
		next := res.Runs[order[pos+1]]
		if next.Page != r.Page {
			continue
		}
		if next.BBox.X0 >= r.BBox.X1-1 && next.BBox.OverlapsY(r.BBox) {
			out[idx] = true
		}
	}
	return out
}
