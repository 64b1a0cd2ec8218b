package processors

import (
	"context"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/plan"
)

// Tagger plans the base structure: a P element per text run and a Figure
// per image. Documents that already carry a structure tree keep it; only
// figures for images without one are added.
type Tagger struct{}

func (*Tagger) Name() string  { return "tagger" }
func (*Tagger) Priority() int { return PriorityTagger }

func (*Tagger) Run(ctx context.Context, res *analyzer.Result, p *plan.Plan) (Result, error) {
	changes := 0
	if !p.Marked {
		p.Marked = true
		changes++
	}
	if p.TabOrder != "S" {
		p.TabOrder = "S"
		changes++
	}
	if res.Tagged {
		p.BuildTree = false
		p.Warn("document already has a structure tree; existing tags are kept")
	} else {
		p.BuildTree = true
		changes++
		for _, r := range res.Runs {
			p.Tag(r.Index, "P")
			changes++
		}
	}
	for _, img := range res.Images {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		p.Figures = append(p.Figures, plan.Figure{
			ImageID:    img.ID,
			Hash:       img.Hash,
			Caption:    img.Caption,
			Placements: img.Placements,
		})
		if p.BuildTree {
			changes++
		}
	}
	return Result{Changes: changes}, nil
}
