package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/fusion"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
)

// exportRecord is one line of the bulk classification export.
type exportRecord struct {
	JobID          int64                  `json:"job_id"`
	URL            string                 `json:"url"`
	Platform       string                 `json:"platform"`
	Status         string                 `json:"status"`
	DuplicateOf    int64                  `json:"duplicate_of,omitempty"`
	Classification *fusion.Classification `json:"classification,omitempty"`
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var includeDuplicates bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export classifications for all terminal jobs as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				statuses := []jobs.Status{jobs.StatusCompleted}
				if includeDuplicates {
					statuses = append(statuses, jobs.StatusDuplicate)
				}
				list, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}

				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetEscapeHTML(false)
				for _, job := range list {
					record := exportRecord{
						JobID:       job.ID,
						URL:         job.URL,
						Platform:    string(job.Platform),
						Status:      string(job.Status),
						DuplicateOf: job.DuplicateOf,
					}
					if job.ResultJSON != "" {
						var classification fusion.Classification
						if err := json.Unmarshal([]byte(job.ResultJSON), &classification); err == nil {
							record.Classification = &classification
						}
					}
					if err := encoder.Encode(record); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&includeDuplicates, "duplicates", false, "Include duplicate jobs in the export")
	return cmd
}
