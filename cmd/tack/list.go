package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/tack/pkg/core"
	"github.com/spf13/cobra"
)

var (
	listJSON bool
	listSort string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		order, err := core.ParseSortOrder(listSort)
		if err != nil {
			fatal("Error", err)
		}
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		notes, err := app.ListNotes(ctx, order)
		if err != nil {
			fatal("Error listing notes", err)
		}
		printNotes(notes)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "List notes whose title or text contains query",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		notes, err := app.SearchNotes(ctx, args[0])
		if err != nil {
			fatal("Error searching notes", err)
		}
		printNotes(notes)
	},
}

func printNotes(notes []core.Note) {
	if listJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(notes); err != nil {
			fatal("Error encoding JSON", err)
		}
		return
	}

	for _, note := range notes {
		fmt.Printf("%s  %-8s  %s\n", note.ID, note.Color.Name(), note.Title)
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	listCmd.Flags().StringVar(&listSort, "sort", "", "created_desc, created_asc, updated_desc or title")
	for _, c := range []*cobra.Command{listCmd, searchCmd} {
		c.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	}
}
