package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/merbau/myinvois/internal/journal"
	"github.com/merbau/myinvois/pkg/idx"
	"github.com/merbau/myinvois/pkg/myinvois"
)

var submitFormat string

var submitCmd = &cobra.Command{
	Use:   "submit <files...>",
	Short: "Submit e-invoice documents as one batch",
	Long: `Submits one or more document files as a single batch and records the
outcome in the local journal.

Each file becomes one document: its name without the extension is the
document's code number (INV-001.json is submitted as INV-001), and the format
follows the extension unless --format forces one.

Examples:
  myinvois submit INV-001.json
  myinvois submit --format xml invoices/*.xml
  myinvois submit INV-001.json INV-002.json --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(&submitFormat, "format", "", "Force document format: json or xml (default: by file extension)")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	docs := make([]myinvois.Document, 0, len(args))
	for _, path := range args {
		doc, err := loadDocument(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		docs = append(docs, doc)
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	result, err := client.SubmitDocuments(ctx, docs)
	if err != nil {
		return err
	}

	recordSubmission(ctx, client, result, len(docs))

	if jsonOutput() {
		return printJSON(result)
	}
	return printSubmissionTable(result)
}

func loadDocument(path string) (myinvois.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return myinvois.Document{}, err
	}

	codeNumber := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	format := submitFormat
	if format == "" {
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			format = "xml"
		} else {
			format = "json"
		}
	}

	switch strings.ToLower(format) {
	case "json":
		return myinvois.NewJSONDocument(codeNumber, content)
	case "xml":
		return myinvois.NewXMLDocument(codeNumber, content)
	default:
		return myinvois.Document{}, fmt.Errorf("unsupported format %q", format)
	}
}

// recordSubmission writes the outcome to the journal. Journal trouble must
// never fail a submission the authority already accepted, so errors are
// logged and swallowed.
func recordSubmission(ctx context.Context, client *myinvois.Client, result *myinvois.SubmissionResult, documentCount int) {
	store, err := openJournal()
	if err != nil {
		logger.Warn("journal unavailable, submission not recorded", "error", err)
		return
	}
	defer store.Close()

	entry := journal.Entry{
		ID:            idx.New(),
		SubmissionUID: result.SubmissionUID,
		OnBehalfOf:    client.OnBehalfOfTIN(),
		DocumentCount: documentCount,
		AcceptedCount: len(result.Accepted),
		RejectedCount: len(result.Rejected),
		Status:        myinvois.SubmissionInProgress,
	}
	if err := store.Record(ctx, entry); err != nil {
		logger.Warn("failed to record submission in journal",
			"error", err,
			"submission_uid", result.SubmissionUID,
		)
	}
}

func printSubmissionTable(result *myinvois.SubmissionResult) error {
	fmt.Printf("Submission UID: %s\n", result.SubmissionUID)
	fmt.Printf("Accepted: %d  Rejected: %d\n\n", len(result.Accepted), len(result.Rejected))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE NUMBER\tOUTCOME\tUUID / REASON")
	for _, doc := range result.Accepted {
		fmt.Fprintf(tw, "%s\taccepted\t%s\n", doc.CodeNumber, doc.UUID)
	}
	for _, doc := range result.Rejected {
		fmt.Fprintf(tw, "%s\trejected\t%s\n", doc.CodeNumber, doc.Error.Message)
	}
	return tw.Flush()
}
