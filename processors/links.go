package processors

import (
	"context"
	"strings"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/plan"
)

// Links plans a Link element for every link annotation. The alternate text
// is the target URI, "internal:<dest>" for in-document targets, or "Link".
// Text runs inside the link area become the link's content unless another
// processor already gave them a more specific role.
type Links struct{}

func (*Links) Name() string  { return "links" }
func (*Links) Priority() int { return PriorityLinks }

// linkSlack widens link rectangles to catch runs whose boxes are slightly
// larger than the annotation.
const linkSlack = 2.0

func (*Links) Run(ctx context.Context, res *analyzer.Result, p *plan.Plan) (Result, error) {
	if len(res.Links) == 0 {
		return Result{}, nil
	}
	if !p.BuildTree && res.HasTag("Link") {
		return Result{}, nil
	}
	changes := 0
	for _, l := range res.Links {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		link := plan.Link{Page: l.Page, Index: l.Index, Alt: linkAlt(l)}
		if p.BuildTree {
			rect := l.Rect
			rect.X0 -= linkSlack
			rect.Y0 -= linkSlack
			rect.X1 += linkSlack
			rect.Y1 += linkSlack
			for _, r := range res.Runs {
				if r.Page != l.Page || !rect.Contains((r.BBox.X0+r.BBox.X1)/2, r.BBox.CenterY()) {
					continue
				}
				if s := p.Tags[r.Index]; s != "" && s != "P" {
					continue
				}
				link.Runs = append(link.Runs, r.Index)
				p.Tag(r.Index, "Link")
			}
		}
		p.Links = append(p.Links, link)
		changes++
	}
	return Result{Changes: changes}, nil
}

func linkAlt(l analyzer.LinkRef) string {
	switch {
	case strings.TrimSpace(l.URI) != "":
		return strings.TrimSpace(l.URI)
	case l.Dest != "":
		return "internal:" + l.Dest
	default:
		return "Link"
	}
}
