// Package cli assembles the CLI's collaborators from configuration: the
// structured logger, the token cache chain, the API client, and the
// submission journal. Commands call these constructors instead of wiring
// dependencies themselves.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/merbau/myinvois/internal/journal"
	"github.com/merbau/myinvois/internal/journal/sqlite"
	"github.com/merbau/myinvois/pkg/cachex"
	"github.com/merbau/myinvois/pkg/cryptox"
	"github.com/merbau/myinvois/pkg/httpx"
	"github.com/merbau/myinvois/pkg/myinvois"
	"github.com/merbau/myinvois/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// NewLogger builds the CLI logger. Logs go to stderr so stdout stays clean
// for command output; with LogFile set they go through a rotating file
// writer instead.
func NewLogger(cfg Config) *slog.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}

	return slogx.New(slogx.Config{
		Service: "myinvois-cli",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  out,
	})
}

// NewCache builds the token cache chain: memory by default, Redis when the
// config names a redis:// URL, and an encrypting wrapper around either when a
// passphrase is set.
func NewCache(ctx context.Context, cfg Config) (cachex.Cache, error) {
	var cache cachex.Cache

	switch {
	case cfg.Cache == "" || cfg.Cache == "memory":
		cache = cachex.NewMemory()
	case strings.HasPrefix(cfg.Cache, "redis://") || strings.HasPrefix(cfg.Cache, "rediss://"):
		r, err := cachex.NewRedisFromURL(ctx, cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		cache = r
	default:
		return nil, fmt.Errorf("cache: unsupported backend %q", cfg.Cache)
	}

	if cfg.CachePassphrase != "" {
		sealer, err := cryptox.NewSealerFromPassphrase(cfg.CachePassphrase)
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		cache = cachex.NewEncrypted(cache, sealer)
	}

	return cache, nil
}

// NewClient validates the config and builds an authenticated API client,
// switching it into intermediary mode when a TIN is configured.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (*myinvois.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := NewCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []myinvois.Option{
		myinvois.WithLogger(log),
		myinvois.WithCache(cache),
		myinvois.WithTimeout(cfg.Timeout),
		// The query profile is the only ceiling an interactive CLI can
		// realistically hit (status --watch); RATELIMIT_QUERY_* overrides it.
		myinvois.WithRateLimit(httpx.QueryLimit),
	}
	if cfg.RetryAttempts > 0 {
		policy := httpx.DefaultRetryPolicy()
		policy.MaxAttempts = cfg.RetryAttempts
		opts = append(opts, myinvois.WithRetryPolicy(policy))
	}

	client, err := myinvois.NewClient(cfg.ResolvedBaseURL(), cfg.ClientID, cfg.ClientSecret, opts...)
	if err != nil {
		return nil, err
	}

	if cfg.TIN != "" {
		if err := client.OnBehalfOf(ctx, cfg.TIN); err != nil {
			return nil, err
		}
	}

	return client, nil
}

// OpenJournal opens the submission journal and brings its schema up to date.
func OpenJournal(cfg Config) (journal.Store, error) {
	store, err := sqlite.NewStore(cfg.JournalFile)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	if err := store.ApplyMigrations(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}

	return store, nil
}
