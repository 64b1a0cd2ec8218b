package processors

import (
	"context"
	"sort"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/plan"
)

// Bookmarks builds an outline from the planned headings in reading order.
// Documents with an existing outline are left alone.
type Bookmarks struct{}

func (*Bookmarks) Name() string  { return "bookmarks" }
func (*Bookmarks) Priority() int { return PriorityBookmarks }

type bookmarkNode struct {
	b        plan.Bookmark
	children []*bookmarkNode
}

func (*Bookmarks) Run(ctx context.Context, res *analyzer.Result, p *plan.Plan) (Result, error) {
	if res.HasOutline || len(p.Headings) == 0 {
		return Result{}, nil
	}
	logical := p.LogicalIndex()
	headings := append([]plan.Heading(nil), p.Headings...)
	sort.SliceStable(headings, func(i, j int) bool { return before(logical, headings[i].Run, headings[j].Run) })

	var roots []*bookmarkNode
	var stack []*bookmarkNode
	count := 0
	for _, h := range headings {
		if h.Text == "" {
			continue
		}
		n := &bookmarkNode{b: plan.Bookmark{Title: h.Text, Page: h.Page, Run: h.Run, Level: h.Level}}
		for len(stack) > 0 && stack[len(stack)-1].b.Level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			top := stack[len(stack)-1]
			top.children = append(top.children, n)
		}
		stack = append(stack, n)
		count++
	}
	p.Bookmarks = flattenNodes(roots)
	return Result{Changes: count}, nil
}

func flattenNodes(nodes []*bookmarkNode) []plan.Bookmark {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]plan.Bookmark, len(nodes))
	for i, n := range nodes {
		b := n.b
		b.Children = flattenNodes(n.children)
		out[i] = b
	}
	return out
}
