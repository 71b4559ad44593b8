package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/stampscan/internal/store"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for watch, match, and samples commands
type Options struct {
	SamplesDir string
	MaxDim     int
	NumEngines int
	Camera     int
	InputPath  string
	NthFrame   int
	Window     bool
	Top        int
}

var (
	// DB is the optional sighting store shared by subcommands. It is nil when no database is configured.
	DB *store.Store
	// dbURL is the connection string
	dbURL string
	// verbose enables debug logging
	verbose bool
	// logger is the structured logger for status and diagnostics
	logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo, TimeFormat: "15:04:05"}))
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "stampscan",
	Short:   "Live stamp pattern recognition against a gallery of reference images",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: "15:04:05"}))

		url := resolveDBURL()
		if url == "" {
			logger.Debug("no database configured, sightings will not be recorded")
			return nil
		}

		var err error
		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Debug("connected to sighting store")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			DB.Close()
		}
	},
}

// resolveDBURL returns the --db flag, or a connection string built from the
// POSTGRES_* environment, or "" when neither is present.
func resolveDBURL() string {
	if dbURL != "" {
		return dbURL
	}
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	user := os.Getenv("POSTGRES_USER")
	pass := os.Getenv("POSTGRES_PASSWORD")
	name := os.Getenv("POSTGRES_DB")
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
}

// requireDB fails commands that cannot run without the sighting store.
func requireDB() error {
	if DB == nil {
		return errors.New("this command needs a database: pass --db or set POSTGRES_HOST")
	}
	return nil
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string for recording sightings (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// addGalleryFlags registers the flags every gallery-building command shares.
func addGalleryFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.SamplesDir, "samples", "s", "", "Directory of reference images (.jpg, .jpeg, .png)")
	cmd.Flags().IntVarP(&opts.NumEngines, "engines", "e", 1, "Number of parallel extraction workers for the gallery")
	cmd.Flags().IntVar(&opts.MaxDim, "max-dim", 0, "Downscale reference images so the longest side is at most this many pixels (0 = off)")
	cmd.MarkFlagRequired("samples")
}
