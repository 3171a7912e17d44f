// Package cli provides the command-line interface for souqchat.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nfadel/souqchat-go/internal/config"
	"github.com/nfadel/souqchat-go/internal/db"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logger and db client
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	dbClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "souqchat",
	Short: "Conversational core for commerce chat",
	Long: `Souqchat is the conversational intelligence core behind a multi-tenant
commerce chat service: it keeps per-conversation memory, extracts order
details from Arabic and English messages, detects customer confirmation,
and generates replies through a pooled set of provider credentials.

Run 'souqchat serve' to start the full service, or use the keys,
patterns and chat subcommands to operate on a running deployment's
database directly.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// Load config
		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		logger, closeLog = config.NewLogger(cfg)

		// Connect to database
		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		// Initialize schema
		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(chatCmd)
}

// loadTenants reads the tenant settings file, tolerating a missing
// file so single-tenant setups can run on defaults alone.
func loadTenants() *config.Tenants {
	tenants, err := config.LoadTenants(cfg.TenantFile)
	if err != nil {
		logger.Warn("tenant file not loaded, using defaults", "file", cfg.TenantFile, "error", err)
		return config.NewTenants()
	}
	return tenants
}
