package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/upsell/internal/config"
	"github.com/gyaneshwarpardhi/upsell/internal/detector"
	"github.com/gyaneshwarpardhi/upsell/internal/engine"
	"github.com/gyaneshwarpardhi/upsell/internal/report"
)

// All linker flags will be set at build time.
var version = "dev"

// app holds what every subcommand shares once flags are parsed.
type app struct {
	cfgPath  string
	logLevel string

	loader *config.Loader
	eng    *engine.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "upsell",
		Short:         "Find upsell opportunities in product-analytics events.",
		Long:          `upsell groups PostHog-style events by user and flags high-value views, premium feature power use, usage limits and multi-category engagement.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "Path to upsell YAML config (defaults apply when empty)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log_level)")

	root.AddCommand(newAnalyzeCmd(a), newFetchCmd(a))
	return root
}

func (a *app) init(logOut io.Writer) error {
	loader, err := config.NewLoader(a.cfgPath)
	if err != nil {
		return err
	}
	cfg := loader.Config()

	lvl := cfg.LogLevel
	if a.logLevel != "" {
		lvl = a.logLevel
	}
	level, err := config.ParseLevel(lvl)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))

	reg, err := detector.FromConfig(cfg.Rules)
	if err != nil {
		return err
	}
	a.loader = loader
	a.eng = engine.New(reg, cfg.Engine)
	return nil
}

// outputFlags are shared by every command that emits a report.
type outputFlags struct {
	format string
	out    string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", string(report.FormatText), "Output format: text, table or json")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Write the report to this file instead of stdout")
}

// emit writes r in the chosen format to stdout or the --out file.
func (o *outputFlags) emit(cmd *cobra.Command, r *report.Report) error {
	format, err := report.ParseFormat(o.format)
	if err != nil {
		return err
	}
	var w io.Writer = cmd.OutOrStdout()
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	if err := report.Write(w, r, format); err != nil {
		return err
	}
	if o.out != "" {
		slog.Info("report written", "path", o.out, "format", format, "opportunities", len(r.Opportunities))
	}
	return nil
}
