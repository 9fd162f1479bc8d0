package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFilter string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue health and job list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				var filter []jobs.Status
				if statusFilter != "" {
					status, ok := jobs.ParseStatus(statusFilter)
					if !ok {
						return fmt.Errorf("unknown status %q", statusFilter)
					}
					filter = append(filter, status)
				}

				list, err := store.List(cmd.Context(), filter...)
				if err != nil {
					return err
				}
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd.OutOrStdout(), struct {
						Health jobs.HealthSummary `json:"health"`
						Jobs   []*jobs.Job        `json:"jobs"`
					}{health, list})
				}

				fmt.Fprintf(cmd.OutOrStdout(),
					"total %d | pending %d | processing %d | completed %d | duplicate %d | failed %d\n\n",
					health.Total, health.Pending, health.Processing, health.Completed, health.Duplicate, health.Failed)
				renderJobTable(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show jobs with this status")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func formatRelative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	delta := time.Since(t).Round(time.Second)
	if delta < 0 {
		return "in " + (-delta).String()
	}
	return delta.String() + " ago"
}
