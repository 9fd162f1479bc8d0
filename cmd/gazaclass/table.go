package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
)

func renderJobTable(w io.Writer, list []*jobs.Job) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Status", "Platform", "Priority", "Attempts", "Updated", "URL"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "URL", WidthMax: 60, WidthMaxEnforcer: text.Trim},
	})
	for _, job := range list {
		t.AppendRow(table.Row{
			job.ID,
			string(job.Status),
			string(job.Platform),
			string(job.Priority),
			job.Attempts,
			formatRelative(job.UpdatedAt),
			job.URL,
		})
	}
	t.Render()
}
