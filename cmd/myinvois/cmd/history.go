package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List submissions recorded in the local journal",
	Long: `Lists the submissions this machine has made, newest first, from the local
journal. The journal knows the status each submission last showed; run
"myinvois status <submissionUID>" to refresh one.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to list")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.ListRecent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No submissions recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBMITTED\tSUBMISSION UID\tDOCS\tACCEPTED\tREJECTED\tSTATUS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			e.SubmissionUID,
			e.DocumentCount, e.AcceptedCount, e.RejectedCount,
			e.Status,
		)
	}
	return tw.Flush()
}
