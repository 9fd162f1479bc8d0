package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/fusion"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <job-id-or-url>",
		Short: "Show one job and its classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				job, err := lookupJob(cmd, store, args[0])
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd.OutOrStdout(), job)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "job %d\n", job.ID)
				fmt.Fprintf(out, "  url:        %s\n", job.URL)
				fmt.Fprintf(out, "  platform:   %s\n", job.Platform)
				fmt.Fprintf(out, "  status:     %s\n", job.Status)
				fmt.Fprintf(out, "  priority:   %s\n", job.Priority)
				fmt.Fprintf(out, "  attempts:   %d\n", job.Attempts)
				if job.ContentHash != "" {
					fmt.Fprintf(out, "  hash:       %s\n", job.ContentHash)
				}
				if job.Status == jobs.StatusDuplicate {
					fmt.Fprintf(out, "  duplicate of: job %d\n", job.DuplicateOf)
				}
				if job.LastError != "" {
					fmt.Fprintf(out, "  last error: [%s] %s\n", job.LastErrorKind, job.LastError)
				}
				if job.NextAttemptAt != nil {
					fmt.Fprintf(out, "  next attempt: %s\n", formatRelative(*job.NextAttemptAt))
				}

				if job.ResultJSON != "" {
					var classification fusion.Classification
					if err := json.Unmarshal([]byte(job.ResultJSON), &classification); err == nil {
						fmt.Fprintf(out, "  category:   %s (confidence %.2f, review %s)\n",
							classification.Category, classification.OverallConfidence, yesNo(classification.RequiresReview))
						if classification.ReviewReason != "" {
							fmt.Fprintf(out, "  review reason: %s\n", classification.ReviewReason)
						}
						for _, tag := range classification.Tags {
							fmt.Fprintf(out, "    tag %-22s %.2f (%s)\n",
								tag.Label, tag.Confidence, strings.Join(tag.Sources, "+"))
						}
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}

func lookupJob(cmd *cobra.Command, store *jobs.Store, key string) (*jobs.Job, error) {
	var (
		job *jobs.Job
		err error
	)
	if id, parseErr := strconv.ParseInt(key, 10, 64); parseErr == nil {
		job, err = store.GetByID(cmd.Context(), id)
	} else {
		job, err = store.GetByURL(cmd.Context(), key)
	}
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("no job found for %q", key)
	}
	return job, nil
}
