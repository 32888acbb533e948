package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/tack"
	"github.com/aretw0/tack/pkg/core"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the data directory open and reload external edits",
	Long: `Watch opens the data directory with autosave enabled and reloads
notes, positions and state when another process rewrites them. It runs
until interrupted, then writes any pending change.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app := openApp(ctx,
			tack.WithAutosave(true),
			tack.WithWatch(true),
			tack.WithWatcherErrorHandler(func(err error) {
				slog.Error("watcher error", "error", err)
			}),
			tack.WithChangeHandler(func(e core.Event) {
				fmt.Printf("%s %s\n", e.Timestamp.Format(time.TimeOnly), e)
			}),
		)
		slog.Info("watching", "path", app.Path)

		<-ctx.Done()
		slog.Info("shutting down")
		closeApp(context.Background(), app)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
