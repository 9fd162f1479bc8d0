package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/daemon"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process queued jobs",
		Long:  "Process queued jobs. By default runs as a daemon until interrupted; with --once, drains the queue and exits.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				manager := workflow.New(cfg, store, logger)

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				if once {
					if _, err := store.ResetStuckProcessing(runCtx); err != nil {
						return err
					}
					return manager.RunUntilIdle(runCtx)
				}

				d := daemon.New(cfg, store, manager, logger)
				if err := d.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "daemon running; press Ctrl-C to stop")
				<-runCtx.Done()
				d.Stop()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Drain the queue and exit instead of running as a daemon")
	return cmd
}
