package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/platform"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var urgent bool

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Queue a single video URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				priority := jobs.PriorityNormal
				if urgent {
					priority = jobs.PriorityUrgent
				}
				job, created, err := store.Ingest(cmd.Context(), args[0], platform.Detect(args[0]), priority)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "queued job %d (%s, %s)\n", job.ID, job.Platform, job.Priority)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "already known as job %d (status %s)\n", job.ID, job.Status)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&urgent, "urgent", false, "Claim before normal jobs and enable the vision pass")
	return cmd
}
