package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/merbau/myinvois/pkg/myinvois"
)

var (
	documentDetails bool
	documentReason  string

	searchFilter filterFlags
	recentFilter filterFlags
)

// filterFlags collects the flag values backing a DocumentFilter. Dates are
// strings here; they accept plain dates or RFC3339 and parse on use.
type filterFlags struct {
	submissionFrom string
	submissionTo   string
	issueFrom      string
	issueTo        string
	direction      string
	status         string
	docType        string
	issuerTIN      string
	receiverTIN    string
	page           int
	pageSize       int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.submissionFrom, "submission-from", "", "Submission window start (2006-01-02 or RFC3339)")
	fl.StringVar(&f.submissionTo, "submission-to", "", "Submission window end")
	fl.StringVar(&f.issueFrom, "issue-from", "", "Issue date window start")
	fl.StringVar(&f.issueTo, "issue-to", "", "Issue date window end")
	fl.StringVar(&f.direction, "direction", "", "Filter by direction: Sent or Received")
	fl.StringVar(&f.status, "status", "", "Filter by document status (Submitted, Valid, Invalid, Cancelled)")
	fl.StringVar(&f.docType, "type", "", "Filter by invoice type code, e.g. 01")
	fl.StringVar(&f.issuerTIN, "issuer-tin", "", "Filter by issuer TIN")
	fl.StringVar(&f.receiverTIN, "receiver-tin", "", "Filter by receiver TIN")
	fl.IntVar(&f.page, "page", 0, "Page number (1-based)")
	fl.IntVar(&f.pageSize, "page-size", 0, "Results per page (max 100)")
}

func (f *filterFlags) build() (myinvois.DocumentFilter, error) {
	filter := myinvois.DocumentFilter{
		Direction:    f.direction,
		Status:       f.status,
		DocumentType: f.docType,
		IssuerTIN:    f.issuerTIN,
		ReceiverTIN:  f.receiverTIN,
		PageNo:       f.page,
		PageSize:     f.pageSize,
	}

	var err error
	if filter.SubmissionDateFrom, err = parseTimeFlag(f.submissionFrom); err != nil {
		return filter, err
	}
	if filter.SubmissionDateTo, err = parseTimeFlag(f.submissionTo); err != nil {
		return filter, err
	}
	if filter.IssueDateFrom, err = parseTimeFlag(f.issueFrom); err != nil {
		return filter, err
	}
	if filter.IssueDateTo, err = parseTimeFlag(f.issueTo); err != nil {
		return filter, err
	}
	return filter, nil
}

// parseTimeFlag accepts a plain date (taken as midnight UTC) or a full
// RFC3339 timestamp. Empty input is the zero time, meaning "not set".
func parseTimeFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want 2006-01-02 or RFC3339)", value)
}

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect and manage submitted documents",
}

var documentGetCmd = &cobra.Command{
	Use:   "get <uuid>",
	Short: "Fetch one document by UUID",
	Long: `Fetches a document as the authority stored it. By default the raw submitted
payload is returned alongside its metadata; --details swaps the payload for
the authority's validation results.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentGet,
}

var documentSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search submitted documents",
	Long: `Searches documents within a submission or issue date window of at most 31
days. One of the two windows is required.

Examples:
  myinvois document search --issue-from 2026-08-01 --issue-to 2026-08-25
  myinvois document search --submission-from 2026-08-18 --submission-to 2026-08-25 --status Valid`,
	Args: cobra.NoArgs,
	RunE: runDocumentSearch,
}

var documentRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently received or sent documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentRecent,
}

var documentCancelCmd = &cobra.Command{
	Use:   "cancel <uuid>",
	Short: "Cancel an issued document",
	Long: `Cancels a document this taxpayer issued. The authority allows cancellation
within 72 hours of validation; a reason is mandatory.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentCancel,
}

var documentRejectCmd = &cobra.Command{
	Use:   "reject <uuid>",
	Short: "Reject a received document",
	Long: `Requests rejection of a document issued to this taxpayer. Rejection asks the
issuer to cancel; a reason is mandatory.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentReject,
}

var documentTypesCmd = &cobra.Command{
	Use:   "types [id]",
	Short: "List the authority's document type catalogue",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDocumentTypes,
}

func init() {
	rootCmd.AddCommand(documentCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentSearchCmd)
	documentCmd.AddCommand(documentRecentCmd)
	documentCmd.AddCommand(documentCancelCmd)
	documentCmd.AddCommand(documentRejectCmd)
	documentCmd.AddCommand(documentTypesCmd)

	documentGetCmd.Flags().BoolVar(&documentDetails, "details", false, "Fetch validation details instead of the raw payload")
	searchFilter.register(documentSearchCmd)
	recentFilter.register(documentRecentCmd)
	documentCancelCmd.Flags().StringVar(&documentReason, "reason", "", "Reason for the state change (required, max 300 chars)")
	documentRejectCmd.Flags().StringVar(&documentReason, "reason", "", "Reason for the state change (required, max 300 chars)")
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	uuid := args[0]

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	if documentDetails {
		details, err := client.GetDocumentDetails(ctx, uuid)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(details)
		}
		return printDocumentDetails(details)
	}

	raw, err := client.GetDocument(ctx, uuid)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(raw)
	}

	printSummary(&raw.DocumentSummary)
	fmt.Println()
	fmt.Println(raw.Document)
	return nil
}

func runDocumentSearch(cmd *cobra.Command, _ []string) error {
	filter, err := searchFilter.build()
	if err != nil {
		return err
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	page, err := client.SearchDocuments(cmd.Context(), filter)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(page)
	}
	return printDocumentsPage(page)
}

func runDocumentRecent(cmd *cobra.Command, _ []string) error {
	filter, err := recentFilter.build()
	if err != nil {
		return err
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	page, err := client.GetRecentDocuments(cmd.Context(), filter)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(page)
	}
	return printDocumentsPage(page)
}

func runDocumentCancel(cmd *cobra.Command, args []string) error {
	return runStateChange(cmd, func(ctx context.Context, client *myinvois.Client) (*myinvois.StateChange, error) {
		return client.CancelDocument(ctx, args[0], documentReason)
	})
}

func runDocumentReject(cmd *cobra.Command, args []string) error {
	return runStateChange(cmd, func(ctx context.Context, client *myinvois.Client) (*myinvois.StateChange, error) {
		return client.RejectDocument(ctx, args[0], documentReason)
	})
}

func runStateChange(cmd *cobra.Command, change func(context.Context, *myinvois.Client) (*myinvois.StateChange, error)) error {
	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	result, err := change(cmd.Context(), client)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(result)
	}
	fmt.Printf("%s: %s\n", result.UUID, result.Status)
	return nil
}

func runDocumentTypes(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	if len(args) == 1 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid document type id %q", args[0])
		}

		docType, err := client.GetDocumentType(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(docType)
	}

	types, err := client.GetDocumentTypes(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(types)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tDESCRIPTION\tVERSIONS")
	for _, dt := range types {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\n", dt.ID, dt.InvoiceTypeCode, dt.Description, len(dt.Versions))
	}
	return tw.Flush()
}

func printSummary(doc *myinvois.DocumentSummary) {
	fmt.Printf("UUID: %s\n", doc.UUID)
	fmt.Printf("Internal ID: %s\n", doc.InternalID)
	fmt.Printf("Type: %s %s\n", doc.TypeName, doc.TypeVersionName)
	fmt.Printf("Issuer: %s (%s)\n", doc.IssuerName, doc.IssuerTIN)
	fmt.Printf("Status: %s\n", doc.Status)
	fmt.Printf("Total: %s\n", doc.Total.String())
}

func printDocumentDetails(details *myinvois.DocumentDetails) error {
	printSummary(&details.DocumentSummary)

	if details.ValidationResults == nil {
		fmt.Println("Validation: not yet run")
		return nil
	}

	fmt.Printf("Validation: %s\n\n", details.ValidationResults.Status)
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tSTATUS\tERROR")
	for _, step := range details.ValidationResults.ValidationSteps {
		msg := ""
		if step.Error != nil {
			msg = step.Error.Message
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", step.Name, step.Status, msg)
	}
	return tw.Flush()
}

func printDocumentsPage(page *myinvois.DocumentsPage) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tINTERNAL ID\tTYPE\tISSUER TIN\tSTATUS\tTOTAL")
	for _, doc := range page.Result {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			doc.UUID, doc.InternalID, doc.TypeName, doc.IssuerTIN, doc.Status, doc.Total.String())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nPage %d of %d (%d documents)\n",
		page.Metadata.PageNo, page.Metadata.TotalPages, page.Metadata.TotalCount)
	return nil
}
