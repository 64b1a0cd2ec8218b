package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wudi/accesspdf/alttext"
	"github.com/wudi/accesspdf/cache"
	"github.com/wudi/accesspdf/config"
	"github.com/wudi/accesspdf/observability"
	"github.com/wudi/accesspdf/providers"
	"github.com/wudi/accesspdf/remediate"
	"github.com/wudi/accesspdf/report"
)

type reportFlags struct {
	format string
	path   string
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "", "Report format: markdown, json or html (default from config)")
	cmd.Flags().StringVar(&f.path, "report", "", "Write the report to this file instead of stdout")
}

func newCheckCmd(a *app) *cobra.Command {
	var rf reportFlags
	cmd := &cobra.Command{
		Use:   "check <document>",
		Short: "Report accessibility issues without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format(rf.format)
			if err != nil {
				return err
			}
			rep, err := a.engine().Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(rf.path, func(w io.Writer) error { return report.Render(w, format, rep) })
		},
	}
	rf.register(cmd)
	return cmd
}

func newFixCmd(a *app) *cobra.Command {
	var (
		rf     reportFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "fix <document>",
		Short: "Write a tagged copy of a document",
		Long: `Fix analyses the document, plans its structure, reconciles the alt-text
sidecar and writes a tagged copy. Only approved sidecar entries are written as
image descriptions; decorative entries are marked as artifacts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format(rf.format)
			if err != nil {
				return err
			}
			rep, err := a.engine().Fix(cmd.Context(), remediate.Job{Input: args[0], Output: output})
			if err != nil {
				return err
			}
			return a.emit(rf.path, func(w io.Writer) error { return report.Render(w, format, rep) })
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: <name>_accessible.<ext>)")
	rf.register(cmd)
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		rf      reportFlags
		outDir  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "batch <document|directory>...",
		Short: "Fix many documents on a pool of workers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format(rf.format)
			if err != nil {
				return err
			}
			if workers > 0 {
				a.cfg.Batch.Workers = workers
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
			}
			e := a.engine()
			jobs, err := e.Jobs(args, outDir)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				return errors.New("no documents found")
			}
			b, runErr := e.Batch(cmd.Context(), jobs)
			if err := a.emit(rf.path, func(w io.Writer) error { return report.RenderBatch(w, format, b) }); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if b.Failed > 0 {
				return fmt.Errorf("%d of %d documents failed", b.Failed, len(jobs))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "output-dir", "", "Directory for the outputs (default: next to each input)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Documents processed at once (default from config, then CPU count)")
	rf.register(cmd)
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		rf       reportFlags
		provider string
		model    string
	)
	cmd := &cobra.Command{
		Use:   "generate <document>",
		Short: "Draft image descriptions into the alt-text sidecar",
		Long: `Generate asks a vision provider to draft a description for every image that
still needs review. Drafts are stored in the sidecar's ai_draft field and stay
in needs_review until a person approves them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format(rf.format)
			if err != nil {
				return err
			}
			creds, err := config.LoadCredentials(a.envFiles...)
			if err != nil {
				return fmt.Errorf("load credentials: %w", err)
			}
			p, err := providers.New(a.cfg.ProviderConfig(provider, model, creds))
			if err != nil {
				return err
			}
			if u, ok := p.(*providers.Unavailable); ok {
				a.logger.Warn("provider unavailable, images will be reported as failed",
					observability.String(observability.KeyProvider, u.Name()),
					observability.String("reason", u.Reason()))
			}

			store, err := cache.Open(cmd.Context(), a.cfg.CacheSettings())
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			c := cache.New(store, cache.WithLogger(a.logger))
			defer c.Close()

			gen := alttext.NewGenerator(p, c,
				alttext.WithLogger(a.logger),
				alttext.WithTimeout(a.cfg.AI.Timeout),
				alttext.WithMaxImageDim(a.cfg.AI.MaxImageDim),
			)
			rep, genErr := a.engine().Generate(cmd.Context(), args[0], gen)
			if rep != nil {
				if err := a.emit(rf.path, func(w io.Writer) error { return report.Render(w, format, rep) }); err != nil {
					return err
				}
			}
			return genErr
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider name (default from config)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default: the provider's default)")
	rf.register(cmd)
	return cmd
}

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the description providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := config.LoadCredentials(a.envFiles...)
			if err != nil {
				return fmt.Errorf("load credentials: %w", err)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDEFAULT MODEL\tCREDENTIAL\tSTATUS")
			for _, name := range providers.Names() {
				info, _ := providers.Lookup(name)
				status := "ready"
				key := "-"
				switch {
				case info.NeedsKey():
					key = info.KeyEnv
					if creds.Get(info.KeyEnv) == "" {
						status = "missing key"
					}
				case info.Local:
					status = "local"
				}
				model := info.DefaultModel
				if model == "" {
					model = "-"
				}
				if strings.EqualFold(name, a.cfg.AI.Provider) || (name == "noop" && a.cfg.AI.Provider == "none") {
					name += " (configured)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, model, key, status)
			}
			return tw.Flush()
		},
	}
}
