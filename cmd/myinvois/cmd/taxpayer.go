package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/merbau/myinvois/pkg/myinvois"
)

var (
	taxpayerIDType  string
	taxpayerIDValue string
)

var taxpayerCmd = &cobra.Command{
	Use:   "taxpayer",
	Short: "Taxpayer lookups",
}

var taxpayerValidateCmd = &cobra.Command{
	Use:   "validate <tin>",
	Short: "Check whether a TIN matches a registered taxpayer",
	Long: `Validates a TIN against the authority's register, cross-checked with a
second identifier (NRIC, passport, business registration or army number).

Example:
  myinvois taxpayer validate C2584563200 --id-type BRN --id-value 201901234567`,
	Args: cobra.ExactArgs(1),
	RunE: runTaxpayerValidate,
}

func init() {
	rootCmd.AddCommand(taxpayerCmd)
	taxpayerCmd.AddCommand(taxpayerValidateCmd)

	taxpayerValidateCmd.Flags().StringVar(&taxpayerIDType, "id-type", "", "Identifier type: NRIC, PASSPORT, BRN or ARMY (required)")
	taxpayerValidateCmd.Flags().StringVar(&taxpayerIDValue, "id-value", "", "Identifier value (required)")
	_ = taxpayerValidateCmd.MarkFlagRequired("id-type")
	_ = taxpayerValidateCmd.MarkFlagRequired("id-value")
}

func runTaxpayerValidate(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	valid, err := client.ValidateTaxpayerTIN(cmd.Context(),
		args[0], myinvois.TaxpayerIDType(taxpayerIDType), taxpayerIDValue)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(map[string]any{"tin": args[0], "valid": valid})
	}

	if valid {
		fmt.Printf("%s: valid\n", args[0])
	} else {
		fmt.Printf("%s: not found\n", args[0])
	}
	return nil
}
