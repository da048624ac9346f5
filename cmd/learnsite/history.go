// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/learnsite/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent runs, or the chapters of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 10, "number of runs to list")
	historyCmd.Flags().String("ledger", defaultLedger, "run history database")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := bindFlags(v, cmd, map[string]string{"ledger": keyLedgerPath}); err != nil {
		return err
	}

	l, err := ledger.Open(v.GetString(keyLedgerPath))
	if err != nil {
		return err
	}
	defer l.Close()

	if len(args) == 1 {
		jobs, err := l.Jobs(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printJobs(cmd.OutOrStdout(), jobs)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := l.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func printRuns(w io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tTOTAL\tDONE\tFAILED\tPUBLISHED")
	for _, r := range runs {
		published := "no"
		switch {
		case r.FinishedAt == nil:
			published = "-"
		case r.Published:
			published = "yes"
		case r.PublishError != "":
			published = "error: " + r.PublishError
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Total, r.Completed, r.Failed, published)
	}
	tw.Flush()
}

func printJobs(w io.Writer, jobs []ledger.JobOutcome) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No chapters recorded for this run.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSTATUS\tPAGE\tCONCEPTS\tMCQS\tSUBJECTIVE\tBACKFILLED\tDURATION")
	for _, j := range jobs {
		page := j.Page
		if j.Status == ledger.StatusFailed {
			page = j.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			j.Source, j.Status, page, j.Stats.TotalConcepts, j.Stats.TotalMCQs, j.Stats.TotalSubjective,
			j.Stats.BackfilledItems, j.Duration.Round(time.Millisecond))
	}
	tw.Flush()
}
