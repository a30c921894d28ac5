package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/KaramelBytes/vidnarr-cli/internal/config"
	"github.com/KaramelBytes/vidnarr-cli/internal/observe"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
	// Structured logger for pipeline events (stderr).
	logger     = observe.Nop()
	syncLogger = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "vidnarr",
	Short: "vidnarr: reshape short-form video survey exports from wide to long format",
	Long: `vidnarr reads a wide survey export (one row per participant, one column group per video),
drops invalid sessions, stacks the per-video column groups into a long table (one row per
participant per video) and writes a data quality report next to it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		syncLogger()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.vidnarr/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() error {
	// .env in the working directory feeds VIDNARR_* and AWS_* variables.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to read .env: %v\n", err)
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	l, sync, err := observe.NewZap(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: logger setup failed: %v\n", err)
		return nil
	}
	logger, syncLogger = l, sync
	return nil
}
