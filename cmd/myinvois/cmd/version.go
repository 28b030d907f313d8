package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/merbau/myinvois/internal/cli"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("myinvois %s (%s, %s/%s)\n",
			cli.BuildVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
