package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/ingest"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/platform"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <url-file>",
		Short: "Queue every URL from a submission file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := ingest.ParseURLFile(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				created, existing := 0, 0
				for _, entry := range entries {
					_, isNew, err := store.Ingest(cmd.Context(), entry.URL, platform.Detect(entry.URL), entry.Priority)
					if err != nil {
						return fmt.Errorf("line %d: %w", entry.Line, err)
					}
					if isNew {
						created++
					} else {
						existing++
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued %d new jobs (%d already known)\n", created, existing)
				return nil
			})
		},
	}
}
