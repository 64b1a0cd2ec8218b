package processors

import (
	"context"
	"fmt"
	"sort"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/plan"
)

// Tables plans table structure for candidate regions found by the analyzer.
// Every run is placed in the row band containing its vertical centre and in
// the column of the nearest boundary at or left of its left edge. The first
// row is the header row unless a later row populates materially fewer
// columns than the first (at most HeaderShortfall of it).
type Tables struct {
	Tolerance       float64
	HeaderShortfall float64
}

func (*Tables) Name() string  { return "tables" }
func (*Tables) Priority() int { return PriorityTables }

func (t *Tables) Run(ctx context.Context, res *analyzer.Result, p *plan.Plan) (Result, error) {
	cfg := Config{TableTolerance: t.Tolerance, HeaderShortfall: t.HeaderShortfall}.normalize()
	if len(res.Tables) == 0 {
		return Result{}, nil
	}
	if !p.BuildTree {
		p.Warn(fmt.Sprintf("%d candidate table(s) left untouched in an already tagged document", len(res.Tables)))
		return Result{}, nil
	}
	logical := p.LogicalIndex()
	changes := 0
	for _, region := range res.Tables {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		table, ok := buildTable(res, region, len(p.Tables)+1, cfg, logical, p)
		if !ok {
			continue
		}
		p.Tables = append(p.Tables, table)
		for _, cell := range table.Cells {
			s := "TD"
			if cell.Header {
				s = "TH"
			}
			for _, run := range cell.Runs {
				p.Tag(run, s)
			}
		}
		dropHeadings(p, table)
		p.Checkpoint()
		changes++
	}
	return Result{Changes: changes}, nil
}

func buildTable(res *analyzer.Result, region analyzer.TableRegion, n int, cfg Config, logical map[int]int, p *plan.Plan) (plan.Table, bool) {
	rows, cols := region.RowCount(), len(region.Columns)
	if rows < 2 || cols < 1 {
		return plan.Table{}, false
	}
	type key struct{ row, col int }
	cells := map[key][]int{}
	for _, idx := range region.Runs {
		r := res.Runs[idx]
		row := rowOf(region.Rows, r.BBox.CenterY())
		if row < 0 {
			continue
		}
		k := key{row, columnOf(region.Columns, r.BBox.X0, cfg.TableTolerance)}
		cells[k] = append(cells[k], idx)
	}

	populated := make([]int, rows)
	for k := range cells {
		populated[k.row]++
	}
	header := populated[0] > 0
	for row := 1; row < rows && header; row++ {
		if populated[row] < populated[0] && float64(populated[row]) <= float64(populated[0])*cfg.HeaderShortfall {
			header = false
			p.Warn(fmt.Sprintf("table %d on page %d: row %d populates %d of %d columns; no header row marked",
				n, region.Page+1, row+1, populated[row], populated[0]))
		}
	}

	table := plan.Table{Page: region.Page, Rows: rows, Columns: cols, HasHeader: header}
	headerIDs := map[int]string{}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			runs, ok := cells[key{row, col}]
			if !ok {
				continue
			}
			sort.SliceStable(runs, func(i, j int) bool { return before(logical, runs[i], runs[j]) })
			cell := plan.Cell{Row: row, Col: col, Runs: runs}
			if header && row == 0 {
				cell.Header = true
				cell.ID = fmt.Sprintf("t%d_c%d", n, col)
				cell.Scope = "Column"
				headerIDs[col] = cell.ID
			} else if id, ok := headerIDs[col]; ok {
				cell.Headers = []string{id}
			}
			table.Cells = append(table.Cells, cell)
		}
	}
	return table, true
}

func before(logical map[int]int, a, b int) bool {
	la, oka := logical[a]
	lb, okb := logical[b]
	if oka && okb {
		return la < lb
	}
	return a < b
}

// rowOf returns the row whose band contains y. bounds run top to bottom.
func rowOf(bounds []float64, y float64) int {
	for i := 0; i+1 < len(bounds); i++ {
		if y <= bounds[i] && y >= bounds[i+1] {
			return i
		}
	}
	return -1
}

// columnOf returns the column of the nearest boundary at or left of x.
func columnOf(cols []float64, x, tol float64) int {
	col := 0
	for i, c := range cols {
		if c <= x+tol {
			col = i
		}
	}
	return col
}

func dropHeadings(p *plan.Plan, table plan.Table) {
	inTable := map[int]bool{}
	for _, c := range table.Cells {
		for _, r := range c.Runs {
			inTable[r] = true
		}
	}
	kept := p.Headings[:0]
	for _, h := range p.Headings {
		if !inTable[h.Run] {
			kept = append(kept, h)
		}
	}
	p.Headings = kept
}
