package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/tack/pkg/core"
	"github.com/spf13/cobra"
)

var (
	newColor string
	newText  string
	newQuick bool
)

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a note",
	Long: `Create a note with the given title. With --quick the title is taken
from the first line of --text.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		var (
			note core.Note
			err  error
		)
		if newQuick {
			note, err = app.QuickNote(ctx, newText)
		} else {
			note, err = app.CreateNote(ctx, strings.Join(args, " "), core.Color(newColor))
			if err == nil && newText != "" {
				note, err = app.UpdateNote(ctx, note.ID, func(n *core.Note) error {
					doc, err := n.Document.InsertText(0, newText)
					n.Document = doc
					return err
				})
			}
		}
		if err != nil {
			fatal("Error creating note", err)
		}
		fmt.Println(note.ID)
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVarP(&newColor, "color", "c", "", "Palette name or hex code (default Yellow)")
	newCmd.Flags().StringVarP(&newText, "text", "t", "", "Initial content")
	newCmd.Flags().BoolVarP(&newQuick, "quick", "q", false, "Derive the title from the content")
}
