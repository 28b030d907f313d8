package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/merbau/myinvois/internal/journal"
	"github.com/merbau/myinvois/pkg/httpx"
	"github.com/merbau/myinvois/pkg/myinvois"
)

var (
	statusWatch    bool
	statusInterval time.Duration
	statusPage     int
	statusPageSize int
)

var statusCmd = &cobra.Command{
	Use:   "status <submissionUID>",
	Short: "Show the processing status of a submission",
	Long: `Fetches the processing status of a prior submission and its per-document
outcomes. With --watch the command polls until the authority reaches a
terminal status (valid, partially valid or invalid); Ctrl-C stops the watch.

The matching journal entry, when one exists, is updated with the latest
status.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Poll until the submission reaches a terminal status")
	statusCmd.Flags().DurationVar(&statusInterval, "interval", 5*time.Second, "Polling interval for --watch")
	statusCmd.Flags().IntVar(&statusPage, "page", 0, "Page of document summaries to fetch")
	statusCmd.Flags().IntVar(&statusPageSize, "page-size", 0, "Document summaries per page (max 100)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	submissionUID := args[0]

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	status, err := client.GetSubmissionStatus(ctx, submissionUID, statusPage, statusPageSize)
	if err != nil {
		return err
	}

	for statusWatch && status.InProgress() {
		if err := httpx.Sleep(ctx, statusInterval); err != nil {
			return err
		}

		status, err = client.GetSubmissionStatus(ctx, submissionUID, statusPage, statusPageSize)
		if err != nil {
			return err
		}
	}

	updateJournal(cmd, submissionUID, status.OverallStatus)

	if jsonOutput() {
		return printJSON(status)
	}
	return printStatusTable(status)
}

// updateJournal moves the journal entry along with the authority's status.
// Submissions made elsewhere have no entry here; that is not an error.
func updateJournal(cmd *cobra.Command, submissionUID, status string) {
	store, err := openJournal()
	if err != nil {
		logger.Warn("journal unavailable, status not recorded", "error", err)
		return
	}
	defer store.Close()

	err = store.UpdateStatus(cmd.Context(), submissionUID, status)
	switch {
	case errors.Is(err, journal.ErrNotFound):
		logger.Debug("submission not in local journal", "submission_uid", submissionUID)
	case err != nil:
		logger.Warn("failed to update journal entry",
			"error", err,
			"submission_uid", submissionUID,
		)
	}
}

func printStatusTable(status *myinvois.SubmissionStatus) error {
	fmt.Printf("Submission UID: %s\n", status.SubmissionUID)
	fmt.Printf("Status: %s\n", status.OverallStatus)
	fmt.Printf("Documents: %d\n", status.DocumentCount)
	fmt.Printf("Received: %s\n", status.DateTimeReceived.Format(time.RFC3339))

	if len(status.DocumentSummary) == 0 {
		return nil
	}

	fmt.Println()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tINTERNAL ID\tSTATUS\tTOTAL")
	for _, doc := range status.DocumentSummary {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", doc.UUID, doc.InternalID, doc.Status, doc.Total.String())
	}
	return tw.Flush()
}
