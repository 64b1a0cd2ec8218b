package remediate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/accesspdf/alttext"
	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/ir/semantic"
	"github.com/wudi/accesspdf/observability"
	"github.com/wudi/accesspdf/plan"
	"github.com/wudi/accesspdf/report"
	"github.com/wudi/accesspdf/writer"
)

// Check analyses the document at path and validates it. An existing sidecar
// is reconciled in memory, never written, and each entry awaiting review is
// reported as a warning.
func (e *Engine) Check(ctx context.Context, path string) (*report.Report, error) {
	log := e.logger.With(observability.String(observability.KeyPath, path))
	doc, res, err := e.load(ctx, path)
	if err != nil {
		return nil, err
	}
	rep := report.New(report.ModeCheck, path, res)
	before, err := e.validate(ctx, doc)
	if err != nil {
		return nil, err
	}
	rep.Before = report.FromCompliance(before)

	scPath := alttext.PathFor(path)
	sc, err := alttext.Load(scPath)
	switch {
	case err == nil:
		merged, rec := alttext.Reconcile(sc, res.Images)
		rep.Sidecar = scPath
		rep.SetAltText(merged, rec)
		for _, ent := range merged.NeedsReview() {
			rep.Warn(fmt.Sprintf("%s (page %d) needs review", ent.ID, ent.Page))
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	log.Info("checked",
		observability.Int("issues", len(rep.Issues)),
		observability.Bool("compliant", before.Compliant))
	return rep, nil
}

// Fix remediates one document: it runs the pipeline, reconciles and saves the
// sidecar, then writes the output and validates it. The output path is
// checked against the input before anything is written.
func (e *Engine) Fix(ctx context.Context, job Job) (*report.Report, error) {
	start := time.Now()
	out := job.Output
	if out == "" {
		out = e.OutputPath(job.Input)
	}
	if err := writer.CheckPaths(job.Input, out); err != nil {
		return nil, err
	}
	log := e.logger.With(observability.String(observability.KeyPath, job.Input))

	doc, res, err := e.load(ctx, job.Input)
	if err != nil {
		return nil, err
	}
	rep := report.New(report.ModeFix, job.Input, res)
	before, err := e.validate(ctx, doc)
	if err != nil {
		return nil, err
	}
	rep.Before = report.FromCompliance(before)

	p := plan.New()
	results, err := e.pipeline.Run(ctx, res, p)
	if err != nil {
		return nil, err
	}
	rep.AddProcessors(results)

	sc, scPath, rec, err := e.reconcile(job.Input, doc, res)
	if err != nil {
		return nil, err
	}
	if scPath != "" {
		rep.Sidecar = scPath
	}
	rep.SetAltText(sc, rec)

	fixed, wres, err := e.writer.WriteFile(ctx, job.Input, out, doc, res, p, sc)
	if err != nil {
		return nil, err
	}
	rep.Output = out
	for _, w := range wres.Warnings {
		rep.Warn(w)
	}
	after, err := e.validate(ctx, fixed)
	if err != nil {
		return nil, err
	}
	rep.After = report.FromCompliance(after)

	log.Info("fixed",
		observability.String("output", out),
		observability.Int("elements", wres.Elements),
		observability.Int("pending", wres.Pending),
		observability.Bool("compliant", after.Compliant),
		observability.Duration(observability.KeyElapsed, time.Since(start)))
	return rep, nil
}

// reconcile loads or creates the sidecar for the document at path and merges
// it with the current images. The file is written when it is new and has
// entries, or when entries were added. The returned path is empty when no
// sidecar exists on disk.
func (e *Engine) reconcile(path string, doc *semantic.Document, res *analyzer.Result) (*alttext.Sidecar, string, alttext.ReconcileReport, error) {
	scPath := alttext.PathFor(path)
	existing, found, err := alttext.LoadOrNew(scPath, doc.Name, e.now())
	if err != nil {
		return nil, "", alttext.ReconcileReport{}, err
	}
	merged, rec := alttext.Reconcile(existing, res.Images)
	if len(rec.Added) > 0 {
		if err := alttext.Save(scPath, merged); err != nil {
			return nil, "", rec, err
		}
		found = true
		e.logger.Debug("sidecar updated",
			observability.String(observability.KeyPath, scPath),
			observability.Int("added", len(rec.Added)))
	}
	if !found {
		scPath = ""
	}
	return merged, scPath, rec, nil
}

// Batch fixes jobs on a bounded pool of workers. A failing document is
// recorded in its report and does not stop the others. Once ctx is done no
// further document is started; the unstarted ones are reported as canceled
// and ctx.Err() is returned with the partial batch.
func (e *Engine) Batch(ctx context.Context, jobs []Job) (*report.Batch, error) {
	b := &report.Batch{Documents: make([]*report.Report, len(jobs))}
	canceled := make([]bool, len(jobs))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, job := range jobs {
		if ctx.Err() != nil {
			canceled[i] = true
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				canceled[i] = true
				return nil
			}
			rep, err := e.Fix(ctx, job)
			if err != nil {
				rep = report.New(report.ModeFix, job.Input, nil)
				rep.Output = job.Output
				rep.Error = err.Error()
				canceled[i] = isCanceled(err)
				if !canceled[i] {
					e.logger.Warn("document failed",
						observability.String(observability.KeyPath, job.Input),
						observability.Error("error", err))
				}
			}
			b.Documents[i] = rep
			return nil
		})
	}
	_ = g.Wait()

	for i, job := range jobs {
		switch {
		case canceled[i]:
			b.Canceled++
			if b.Documents[i] == nil {
				rep := report.New(report.ModeFix, job.Input, nil)
				rep.Output = job.Output
				rep.Error = "canceled before processing"
				b.Documents[i] = rep
			}
		case b.Documents[i].Error != "":
			b.Failed++
		default:
			b.Succeeded++
		}
	}
	e.logger.Info("batch done",
		observability.Int("succeeded", b.Succeeded),
		observability.Int("failed", b.Failed),
		observability.Int("canceled", b.Canceled))
	return b, ctx.Err()
}

// Generate drafts descriptions for the images of the document at path that
// still need review. The sidecar is saved with every draft committed before
// a failure or cancellation; the cancellation error is returned after the
// save.
func (e *Engine) Generate(ctx context.Context, path string, gen *alttext.Generator) (*report.Report, error) {
	doc, res, err := e.load(ctx, path)
	if err != nil {
		return nil, err
	}
	rep := report.New(report.ModeGenerate, path, res)
	sc, scPath, rec, err := e.reconcile(path, doc, res)
	if err != nil {
		return nil, err
	}

	genRep, genErr := gen.Generate(ctx, doc, res, sc)
	if genRep.Drafted() > 0 {
		scPath = alttext.PathFor(path)
		if err := alttext.Save(scPath, sc); err != nil {
			return nil, err
		}
	}
	rep.Sidecar = scPath
	rep.SetAltText(sc, rec)
	p := gen.Provider()
	rep.SetGeneration(p.Name(), p.Model(), genRep)
	for _, f := range genRep.Failed {
		rep.Warn(fmt.Sprintf("%s: description failed: %v", f.ID, f.Err))
	}
	e.logger.Info("descriptions drafted",
		observability.String(observability.KeyPath, path),
		observability.String(observability.KeyProvider, p.Name()),
		observability.Int("generated", len(genRep.Generated)),
		observability.Int("cached", len(genRep.Cached)),
		observability.Int("failed", len(genRep.Failed)))
	return rep, genErr
}
