package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/merbau/myinvois/internal/cli"
	"github.com/merbau/myinvois/internal/journal"
	"github.com/merbau/myinvois/pkg/myinvois"
)

var (
	cfg    cli.Config
	logger *slog.Logger

	// Persistent flags. Environment variables (MYINVOIS_*) back every one;
	// a flag set on the command line wins.
	flagBaseURL         string
	flagClientID        string
	flagClientSecret    string
	flagTIN             string
	flagEnvFile         string
	flagTimeout         time.Duration
	flagCache           string
	flagCachePassphrase string
	flagJournal         string
	flagLogLevel        string
	flagLogFormat       string
	flagLogFile         string
	flagOutput          string
)

var rootCmd = &cobra.Command{
	Use:   "myinvois",
	Short: "Submit and track e-invoices with the MyInvois API",
	Long: `myinvois drives the Malaysian MyInvois e-invoicing API from the command
line: authenticate, submit document batches, poll processing status, search
submitted documents and validate taxpayer TINs.

Configuration comes from flags, MYINVOIS_* environment variables, or a .env
file, in that order of precedence.

Examples:
  # Authenticate against the sandbox and show token metadata
  myinvois token --client-id <id> --client-secret <secret>

  # Submit two invoices and record them in the local journal
  myinvois submit INV-001.json INV-002.json

  # Poll a submission until the authority finishes processing it
  myinvois status 01HV8Q2J9GXF4Z3YT0B5W6N7CD --watch

  # Search last week's documents
  myinvois document search --issue-from 2026-08-18 --issue-to 2026-08-25`,
	Version:       cli.BuildVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the command tree. The context is cancelled on SIGINT or
// SIGTERM so long-running commands like "status --watch" exit cleanly.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBaseURL, "base-url", "", "API base URL or preset: sandbox, production (env: MYINVOIS_BASE_URL)")
	pf.StringVar(&flagClientID, "client-id", "", "OAuth2 client ID (env: MYINVOIS_CLIENT_ID)")
	pf.StringVar(&flagClientSecret, "client-secret", "", "OAuth2 client secret (env: MYINVOIS_CLIENT_SECRET)")
	pf.StringVar(&flagTIN, "tin", "", "Act on behalf of this taxpayer TIN (env: MYINVOIS_TIN)")
	pf.StringVar(&flagEnvFile, "env-file", "", "Load environment from this file (default: .env when present)")
	pf.DurationVar(&flagTimeout, "timeout", 0, "Per-request timeout (env: MYINVOIS_TIMEOUT)")
	pf.StringVar(&flagCache, "cache", "", "Token cache backend: memory or a redis:// URL (env: MYINVOIS_CACHE)")
	pf.StringVar(&flagCachePassphrase, "cache-passphrase", "", "Encrypt cached tokens with this passphrase (env: MYINVOIS_CACHE_PASSPHRASE)")
	pf.StringVar(&flagJournal, "journal", "", "Path to the submission journal database (env: MYINVOIS_JOURNAL)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (env: MYINVOIS_LOG_LEVEL)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: json, text (env: MYINVOIS_LOG_FORMAT)")
	pf.StringVar(&flagLogFile, "log-file", "", "Rotate logs into this file instead of stderr (env: MYINVOIS_LOG_FILE)")
	pf.StringVar(&flagOutput, "output", "table", "Output format: table, json")

	rootCmd.PersistentPreRunE = initConfig
}

// initConfig resolves the effective configuration: .env file first, then
// environment, then any flags the user actually set.
func initConfig(cmd *cobra.Command, _ []string) error {
	if err := cli.LoadEnvFile(flagEnvFile); err != nil {
		return err
	}

	cfg = cli.LoadConfig()

	f := cmd.Flags()
	if f.Changed("base-url") {
		cfg.BaseURL = flagBaseURL
	}
	if f.Changed("client-id") {
		cfg.ClientID = flagClientID
	}
	if f.Changed("client-secret") {
		cfg.ClientSecret = flagClientSecret
	}
	if f.Changed("tin") {
		cfg.TIN = flagTIN
	}
	if f.Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if f.Changed("cache") {
		cfg.Cache = flagCache
	}
	if f.Changed("cache-passphrase") {
		cfg.CachePassphrase = flagCachePassphrase
	}
	if f.Changed("journal") {
		cfg.JournalFile = flagJournal
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = flagLogFormat
	}
	if f.Changed("log-file") {
		cfg.LogFile = flagLogFile
	}

	logger = cli.NewLogger(cfg)
	return nil
}

// newClient builds the API client for one command run.
func newClient(ctx context.Context) (*myinvois.Client, error) {
	return cli.NewClient(ctx, cfg, logger)
}

// openJournal opens the submission journal, migrating it when needed.
func openJournal() (journal.Store, error) {
	return cli.OpenJournal(cfg)
}

// jsonOutput reports whether --output json was requested.
func jsonOutput() bool {
	return flagOutput == "json"
}

// printJSON renders v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
