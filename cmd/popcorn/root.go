package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/popcorn/internal/catalog"
	"github.com/Clark-Hu/popcorn/internal/logger"
)

type commandContext struct {
	url      string
	apiKey   string
	timeout  time.Duration
	logLevel string

	client catalog.Client
	logger *slog.Logger
}

func (c *commandContext) ensureClient(cmd *cobra.Command) (catalog.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, errors.New("catalog api key required (--api-key or CATALOG_API_KEY)")
	}
	client, err := catalog.NewHTTPClient(c.url, c.apiKey, c.timeout, c.log(cmd))
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

func (c *commandContext) log(cmd *cobra.Command) *slog.Logger {
	if c.logger == nil {
		c.logger = logger.New(logger.Config{
			Writer: cmd.ErrOrStderr(),
			Format: "text",
			Level:  c.logLevel,
		})
	}
	return c.logger
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "popcorn",
		Short:         "Search the movie catalog and build a rated watch list",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.url, "url", envOr("CATALOG_URL", "https://www.omdbapi.com/"), "Catalog base URL")
	flags.StringVar(&ctx.apiKey, "api-key", os.Getenv("CATALOG_API_KEY"), "Catalog API key")
	flags.DurationVar(&ctx.timeout, "timeout", 5*time.Second, "Per-request catalog timeout")
	flags.StringVar(&ctx.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newLookupCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
