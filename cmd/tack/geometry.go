package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/tack/pkg/core"
	"github.com/spf13/cobra"
)

var geometryPin string

var geometryCmd = &cobra.Command{
	Use:   "geometry <id> [x y width height]",
	Short: "Print or set a note's window geometry",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 && len(args) != 5 {
			return fmt.Errorf("accepts 1 or 5 args, received %d", len(args))
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		id := args[0]
		if len(args) == 5 {
			var v [4]int
			for i, s := range args[1:] {
				n, err := strconv.Atoi(s)
				if err != nil {
					fatal("Invalid geometry", err)
				}
				v[i] = n
			}
			current, err := app.GetGeometry(ctx, id)
			if err != nil {
				fatal("Error reading geometry", err)
			}
			g := core.Geometry{X: v[0], Y: v[1], Width: v[2], Height: v[3], Pinned: current.Pinned}
			if err := app.SetGeometry(ctx, id, g); err != nil {
				fatal("Error setting geometry", err)
			}
		}
		if cmd.Flags().Changed("pin") {
			pinned, err := strconv.ParseBool(geometryPin)
			if err != nil {
				fatal("Invalid --pin", err)
			}
			if err := app.SetPinned(ctx, id, pinned); err != nil {
				fatal("Error pinning note", err)
			}
		}

		g, err := app.GetGeometry(ctx, id)
		if err != nil {
			fatal("Error reading geometry", err)
		}
		fmt.Printf("%d %d %dx%d pinned=%v\n", g.X, g.Y, g.Width, g.Height, g.Pinned)
	},
}

func init() {
	rootCmd.AddCommand(geometryCmd)
	geometryCmd.Flags().StringVar(&geometryPin, "pin", "true", "Keep the window above others (true/false)")
	geometryCmd.Flags().Lookup("pin").NoOptDefVal = "true"
}
