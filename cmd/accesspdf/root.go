package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/config"
	"github.com/wudi/accesspdf/observability"
	"github.com/wudi/accesspdf/processors"
	"github.com/wudi/accesspdf/remediate"
	"github.com/wudi/accesspdf/report"
)

// app carries the state shared by subcommands once the root has loaded the
// configuration.
type app struct {
	configPath string
	envFiles   []string
	verbose    bool
	quiet      bool

	cfg    *config.Config
	logger observability.Logger
	out    io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}
	root := &cobra.Command{
		Use:   "accesspdf",
		Short: "Analyse documents for accessibility problems and write tagged copies",
		Long: `accesspdf inspects a document, infers its reading order, headings, tables,
links and outline, and writes a tagged copy. Image descriptions are kept in a
sidecar file next to the document and only approved entries are written.

Usage:
  accesspdf check report.json
  accesspdf fix report.json -o report_tagged.json
  accesspdf generate report.json --provider anthropic
  accesspdf batch ./documents --output-dir ./out`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Configuration file (default: ./accesspdf.yaml, then ~/.config/accesspdf/accesspdf.yaml)")
	flags.StringSliceVar(&a.envFiles, "env-file", nil, "Files to read provider keys from (default: .env)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Only log warnings and errors")

	root.AddCommand(
		newCheckCmd(a),
		newFixCmd(a),
		newBatchCmd(a),
		newGenerateCmd(a),
		newProvidersCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	cfg, err := config.Find(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.logger == nil {
		l, err := observability.NewConsole(a.verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		if a.quiet {
			l = quietLogger{l}
		}
		a.logger = l
	}
	if cfg.Path != "" {
		a.logger.Debug("config loaded", observability.String(observability.KeyPath, cfg.Path))
	}
	return nil
}

func (a *app) engine() *remediate.Engine {
	cfg := a.cfg
	return remediate.New(
		remediate.WithLogger(a.logger),
		remediate.WithSuffix(cfg.Output.Suffix),
		remediate.WithWorkers(cfg.Batch.Workers),
		remediate.WithAnalyzer(analyzer.New(
			analyzer.WithLogger(a.logger),
			analyzer.WithTableTolerance(cfg.Tables.Tolerance),
		)),
		remediate.WithPipeline(processors.NewPipeline(
			processors.Default(cfg.Processors()),
			processors.WithLogger(a.logger),
		)),
	)
}

// format resolves the report format from the flag, falling back to the
// configuration.
func (a *app) format(flag string) (report.Format, error) {
	if flag == "" {
		flag = a.cfg.Output.ReportFormat
	}
	return report.ParseFormat(flag)
}

// emit renders rep to path, or to the command output when path is empty.
func (a *app) emit(path string, render func(io.Writer) error) error {
	if path == "" {
		return render(a.out)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.logger.Info("report written", observability.String(observability.KeyPath, path))
	return nil
}

// quietLogger drops debug and info messages.
type quietLogger struct {
	observability.Logger
}

func (quietLogger) Debug(string, ...observability.Field) {}
func (quietLogger) Info(string, ...observability.Field)  {}

func (q quietLogger) With(fields ...observability.Field) observability.Logger {
	return quietLogger{q.Logger.With(fields...)}
}
