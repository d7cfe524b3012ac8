package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/upsell/internal/source"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		limit int
		save  string
		out   outputFlags
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch recent events from PostHog and analyze them.",
		Long: `Fetch pulls the most recent events of the configured PostHog project
(posthog.project_id, with the key from posthog.api_key or UPSELL_POSTHOG_API_KEY)
and runs the same analysis as "analyze".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ph, err := source.NewPostHog(a.loader.Config().PostHog, nil)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("limit") {
				ph = ph.WithLimit(limit)
			}
			raw, err := ph.Load(cmd.Context())
			if err != nil {
				return err
			}
			if save != "" {
				if err := os.WriteFile(save, raw, 0o644); err != nil {
					return err
				}
				slog.Info("events saved", "path", save, "bytes", len(raw))
			}
			r := a.eng.Run(cmd.Context(), raw, a.loader.Thresholds())
			if !r.Success {
				return errors.New(r.Message)
			}
			return out.emit(cmd, r)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of events to fetch (overrides posthog.limit)")
	cmd.Flags().StringVar(&save, "save", "", "Also write the raw PostHog response to this file")
	out.register(cmd)
	return cmd
}
