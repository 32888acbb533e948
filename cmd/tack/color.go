package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/tack/pkg/core"
	"github.com/spf13/cobra"
)

var colorCmd = &cobra.Command{
	Use:   "color <color> <id>...",
	Short: "Recolor one or more notes",
	Long: `Recolor notes. <color> is a palette name or its hex code:
Yellow, Blue, Green, Pink, Orange, Purple, Red, Cyan, Lime and so on.
Run "tack color list" to print the palette.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if args[0] == "list" && len(args) == 1 {
			for _, c := range core.Palette {
				fmt.Printf("%-8s %s\n", c.Name, c.Color)
			}
			return
		}
		if len(args) < 2 {
			fatal("Error", fmt.Errorf("no note ids given"))
		}
		color, err := core.ParseColor(args[0])
		if err != nil {
			fatal("Error", err)
		}

		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		if err := app.RecolorNotes(ctx, args[1:], color); err != nil {
			fatal("Error recoloring notes", err)
		}
	},
}

var opacityCmd = &cobra.Command{
	Use:   "opacity <id> <value>",
	Short: "Set a note's window opacity (0.2 to 1)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			fatal("Invalid opacity", err)
		}

		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		if _, err := app.SetOpacity(ctx, args[0], value); err != nil {
			fatal("Error setting opacity", err)
		}
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete notes along with their geometry and unused images",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		if err := app.DeleteNotes(ctx, args); err != nil {
			fatal("Error deleting notes", err)
		}
		for _, id := range args {
			fmt.Printf("Deleted %s\n", id)
		}
	},
}

func init() {
	rootCmd.AddCommand(colorCmd)
	rootCmd.AddCommand(opacityCmd)
	rootCmd.AddCommand(deleteCmd)
}
