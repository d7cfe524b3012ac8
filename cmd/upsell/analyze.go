package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/upsell/internal/source"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		file string
		out  outputFlags
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze an exported event dump.",
		Long: `Analyze reads a JSON event dump (a bare array, {"results": [...]} or
{"events": [...]}) and reports one upsell opportunity per finding.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				file = a.loader.Config().PostHog.EventsFile
			}
			if file == "" {
				return errors.New("no events file: pass --file or set posthog.events_file")
			}
			raw, err := source.NewFile(file).Load(cmd.Context())
			if err != nil {
				return err
			}
			r := a.eng.Run(cmd.Context(), raw, a.loader.Thresholds())
			if !r.Success {
				return errors.New(r.Message)
			}
			return out.emit(cmd, r)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the JSON events file")
	out.register(cmd)
	return cmd
}
