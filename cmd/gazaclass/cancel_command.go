package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Request cancellation of a queued or in-flight job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				flagged, err := store.RequestCancel(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !flagged {
					return fmt.Errorf("job %d not found or already terminal", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cancellation requested for job %d; it stops at the next stage boundary\n", id)
				return nil
			})
		},
	}
}
