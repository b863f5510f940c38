package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"clipforge/internal/jobs"
)

func newJobsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List known jobs and their status",
		Args:  cobra.NoArgs,
		RunE:  runJobs,
	}
}

func runJobs(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := jobs.Open(cfg.JobDBPath(), log)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"ID", "Status", "Clips", "Source", "Created"})
	for _, job := range list {
		t.AppendRow(table.Row{
			job.ID,
			job.Status,
			len(job.Clips),
			job.SourcePath,
			job.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
	return nil
}
