// Package plan holds the remediation plan that processors fill in and the
// writer applies.
package plan

import "github.com/wudi/accesspdf/ir/semantic"

// Plan describes the edits to apply to a document. A plan is owned by one
// processor at a time; processors work on a draft obtained from Begin.
type Plan struct {
	BuildTree       bool
	Marked          bool
	Lang            string
	Title           string
	DisplayDocTitle bool
	TabOrder        string

	// ReadingOrder lists analysis run indices in logical order.
	ReadingOrder []int
	// Tags maps a run index to its structure type. Runs without an entry
	// are written as P.
	Tags      map[int]string
	Headings  []Heading
	Figures   []Figure
	Tables    []Table
	Links     []Link
	Bookmarks []Bookmark
	Warnings  []string

	checkpoint *Plan
}

type Heading struct {
	Run   int
	Page  int
	Level int
	Text  string
}

type Figure struct {
	ImageID    string
	Hash       string
	Caption    string
	Placements []semantic.ContentRef
}

type Table struct {
	Page      int
	Rows      int
	Columns   int
	HasHeader bool
	Cells     []Cell
}

// Cell is one populated table cell. Header cells carry an ID and a scope;
// data cells list the IDs of their header cells.
type Cell struct {
	Row     int
	Col     int
	Runs    []int
	Header  bool
	ID      string
	Scope   string
	Headers []string
}

type Link struct {
	Page  int
	Index int
	Alt   string
	// Runs are the text runs inside the link area.
	Runs []int
}

// Bookmark is an outline entry built from a heading.
type Bookmark struct {
	Title    string
	Page     int
	Run      int
	Level    int
	Children []Bookmark
}

func New() *Plan {
	return &Plan{Tags: make(map[int]string)}
}

// Warn records a warning for the report.
func (p *Plan) Warn(msg string) {
	p.Warnings = append(p.Warnings, msg)
}

// Tag assigns a structure type to a run.
func (p *Plan) Tag(run int, s string) {
	if p.Tags == nil {
		p.Tags = make(map[int]string)
	}
	p.Tags[run] = s
}

// LogicalIndex returns run position -> logical position. Runs missing from
// ReadingOrder are absent from the map.
func (p *Plan) LogicalIndex() map[int]int {
	idx := make(map[int]int, len(p.ReadingOrder))
	for pos, run := range p.ReadingOrder {
		idx[run] = pos
	}
	return idx
}

// Begin returns a draft copy for one processor to edit.
func (p *Plan) Begin() *Plan {
	d := p.clone()
	d.checkpoint = nil
	return d
}

// Checkpoint records the draft's current state as committed progress. If
// the processor fails later, only the state at the last checkpoint is kept.
func (p *Plan) Checkpoint() {
	p.checkpoint = p.clone()
	p.checkpoint.checkpoint = nil
}

// Commit adopts every edit of a finished draft.
func (p *Plan) Commit(d *Plan) {
	*p = *d.clone()
	p.checkpoint = nil
}

// CommitCheckpoint adopts the draft's last checkpoint, if any, and reports
// whether one existed.
func (p *Plan) CommitCheckpoint(d *Plan) bool {
	if d.checkpoint == nil {
		return false
	}
	p.Commit(d.checkpoint)
	return true
}

func (p *Plan) clone() *Plan {
	c := *p
	c.ReadingOrder = append([]int(nil), p.ReadingOrder...)
	c.Tags = make(map[int]string, len(p.Tags))
	for k, v := range p.Tags {
		c.Tags[k] = v
	}
	c.Headings = append([]Heading(nil), p.Headings...)
	c.Figures = make([]Figure, len(p.Figures))
	for i, f := range p.Figures {
		f.Placements = append([]semantic.ContentRef(nil), f.Placements...)
		c.Figures[i] = f
	}
	c.Tables = make([]Table, len(p.Tables))
	for i, t := range p.Tables {
		cells := make([]Cell, len(t.Cells))
		for j, cell := range t.Cells {
			cell.Runs = append([]int(nil), cell.Runs...)
			cell.Headers = append([]string(nil), cell.Headers...)
			cells[j] = cell
		}
		t.Cells = cells
		c.Tables[i] = t
	}
	c.Links = make([]Link, len(p.Links))
	for i, l := range p.Links {
		l.Runs = append([]int(nil), l.Runs...)
		c.Links[i] = l
	}
	c.Bookmarks = cloneBookmarks(p.Bookmarks)
	c.Warnings = append([]string(nil), p.Warnings...)
	return &c
}

func cloneBookmarks(items []Bookmark) []Bookmark {
	if items == nil {
		return nil
	}
	out := make([]Bookmark, len(items))
	for i, b := range items {
		b.Children = cloneBookmarks(b.Children)
		out[i] = b
	}
	return out
}
