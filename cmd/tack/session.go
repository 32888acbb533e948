package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "List the notes open on the desktop",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		notes, err := app.OpenSession(ctx)
		if err != nil {
			fatal("Error restoring session", err)
		}
		for _, n := range notes {
			g, err := app.GetGeometry(ctx, n.ID)
			if err != nil {
				fatal("Error reading geometry", err)
			}
			fmt.Printf("%s  %s  @%d,%d %dx%d\n", n.ID, n.Title, g.X, g.Y, g.Width, g.Height)
		}
	},
}

var sessionOpenCmd = &cobra.Command{
	Use:   "open <id>...",
	Short: "Mark notes as open",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		for _, id := range args {
			if err := app.MarkOpen(ctx, id); err != nil {
				fatal("Error opening note", err)
			}
		}
	},
}

var sessionCloseCmd = &cobra.Command{
	Use:   "close <id>...",
	Short: "Mark notes as closed",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		for _, id := range args {
			if err := app.MarkClosed(ctx, id); err != nil {
				fatal("Error closing note", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionOpenCmd)
	sessionCmd.AddCommand(sessionCloseCmd)
}
