package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/tack"
	"github.com/spf13/cobra"
)

var (
	verbose  bool
	dataDir  string
	readOnly bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tack",
	Short: "Sticky notes kept as plain JSON files",
	Long: `Tack stores rich text sticky notes, their window positions and the
set of open notes in a data directory. Writes are atomic and pasted
images are stored once per content.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (default: nearest .tack, $TACK_DATA_DIR or ~/.tack)")
	rootCmd.PersistentFlags().BoolVar(&readOnly, "read-only", false, "Never write to the data directory")
}

// resolveDir picks the data directory: the flag, then a .tack directory
// above the working directory. Empty leaves the choice to tack.Open.
func resolveDir() string {
	if dataDir != "" {
		return dataDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	root, err := tack.FindRoot(wd)
	if err != nil {
		return ""
	}
	return root
}

// openApp opens the data directory with immediate writes, since a command
// exits as soon as it is done.
func openApp(ctx context.Context, opts ...tack.Option) *tack.App {
	base := []tack.Option{
		tack.WithLogger(slog.Default()),
		tack.WithAutosave(false),
		tack.WithReadOnly(readOnly),
	}
	app, err := tack.Open(ctx, resolveDir(), append(base, opts...)...)
	if err != nil {
		fatal("Error opening data directory", err)
	}
	return app
}

func closeApp(ctx context.Context, app *tack.App) {
	if err := app.Close(ctx); err != nil {
		fatal("Error saving changes", err)
	}
}
