package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/merbau/myinvois/pkg/cryptox"
	"github.com/merbau/myinvois/pkg/jwtx"
)

var tokenInspect bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Authenticate and print access token metadata",
	Long: `Performs the client credentials grant and prints metadata about the issued
token. The token itself is never printed; a fingerprint stands in for it so
terminals and shell histories stay free of live credentials.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().BoolVar(&tokenInspect, "inspect", false, "Decode the token's JWT claims (unverified)")
}

type tokenOutput struct {
	TokenType   string          `json:"tokenType"`
	Scopes      []string        `json:"scopes,omitempty"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	ExpiresIn   string          `json:"expiresIn"`
	Fingerprint string          `json:"fingerprint"`
	OnBehalfOf  string          `json:"onBehalfOf,omitempty"`
	Claims      *jwtx.TokenInfo `json:"claims,omitempty"`
}

func runToken(cmd *cobra.Command, _ []string) error {
	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	tok, err := client.Authenticate(cmd.Context())
	if err != nil {
		return err
	}

	out := tokenOutput{
		TokenType:   tok.TokenType,
		Scopes:      tok.Scopes,
		ExpiresAt:   tok.ExpiresAt,
		ExpiresIn:   time.Until(tok.ExpiresAt).Round(time.Second).String(),
		Fingerprint: cryptox.Fingerprint(tok.AccessToken),
		OnBehalfOf:  client.OnBehalfOfTIN(),
	}

	if tokenInspect {
		if info, err := jwtx.Introspect(tok.AccessToken); err == nil {
			out.Claims = info
		} else {
			logger.Warn("token is not a decodable JWT, nothing to inspect", "error", err)
		}
	}

	return printJSON(out)
}
