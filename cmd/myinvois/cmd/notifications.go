package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/merbau/myinvois/pkg/myinvois"
)

var (
	notifyFrom     string
	notifyTo       string
	notifyType     string
	notifyLanguage string
	notifyStatus   string
	notifyChannel  string
	notifyPage     int
	notifyPageSize int
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List notifications the authority sent this taxpayer",
	Args:  cobra.NoArgs,
	RunE:  runNotifications,
}

func init() {
	rootCmd.AddCommand(notificationsCmd)

	fl := notificationsCmd.Flags()
	fl.StringVar(&notifyFrom, "from", "", "Window start (2006-01-02 or RFC3339)")
	fl.StringVar(&notifyTo, "to", "", "Window end")
	fl.StringVar(&notifyType, "type", "", "Filter by notification type ID")
	fl.StringVar(&notifyLanguage, "language", "", "Filter by language: ms or en")
	fl.StringVar(&notifyStatus, "status", "", "Filter by delivery status")
	fl.StringVar(&notifyChannel, "channel", "", "Filter by delivery channel, e.g. email")
	fl.IntVar(&notifyPage, "page", 0, "Page number (1-based)")
	fl.IntVar(&notifyPageSize, "page-size", 0, "Results per page (max 100)")
}

func runNotifications(cmd *cobra.Command, _ []string) error {
	filter := myinvois.NotificationFilter{
		Type:     notifyType,
		Language: notifyLanguage,
		Status:   notifyStatus,
		Channel:  notifyChannel,
		PageNo:   notifyPage,
		PageSize: notifyPageSize,
	}

	var err error
	if filter.DateFrom, err = parseTimeFlag(notifyFrom); err != nil {
		return err
	}
	if filter.DateTo, err = parseTimeFlag(notifyTo); err != nil {
		return err
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	page, err := client.GetNotifications(cmd.Context(), filter)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(page)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTYPE\tSUBJECT\tSTATUS")
	for _, n := range page.Result {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			n.CreatedDateTime.Format(time.RFC3339), n.TypeName, n.NotificationSubject, n.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nPage %d of %d (%d notifications)\n",
		page.Metadata.PageNo, page.Metadata.TotalPages, page.Metadata.TotalCount)
	return nil
}
