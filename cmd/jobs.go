package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List batch jobs recorded in the job ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		provider, _ := cmd.Flags().GetString("provider")
		limit, _ := cmd.Flags().GetInt("limit")

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			Status:   model.JobStatus(status),
			Provider: provider,
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "jobs list")
		}

		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.")
			return nil
		}

		formatJobsList(os.Stdout, jobs)
		return nil
	},
}

func formatJobsList(out io.Writer, jobs []model.BatchJob) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROVIDER\tSTATUS\tREMOTE ID\tTASKS\tRESPONSES\tCREATED\tUPDATED\tERROR")
	for _, j := range jobs {
		id := j.ID
		if len(id) > 8 {
			id = id[:8]
		}
		errMsg := j.Error
		if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			id,
			j.Provider,
			j.Status,
			j.RemoteID,
			j.TaskCount,
			j.ResponseCount,
			j.CreatedAt.Format("2006-01-02 15:04"),
			j.UpdatedAt.Format("2006-01-02 15:04"),
			errMsg,
		)
	}
	_ = w.Flush()
}

func init() {
	jobsCmd.Flags().String("status", "", "filter by job status (created, submitted, completed, failed)")
	jobsCmd.Flags().String("provider", "", "filter by provider (openai, anthropic)")
	jobsCmd.Flags().Int("limit", 50, "max number of jobs to display")
	rootCmd.AddCommand(jobsCmd)
}
