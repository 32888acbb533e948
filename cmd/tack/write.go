package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/aretw0/tack/pkg/core"
	"github.com/aretw0/tack/pkg/document"
	"github.com/spf13/cobra"
)

var (
	writeAt     int
	writeAppend bool

	formatBold      string
	formatItalic    string
	formatUnderline string
	formatSize      int
	formatGrow      int

	imageAt int
)

var writeCmd = &cobra.Command{
	Use:   "write <id> <text>",
	Short: "Insert text into a note",
	Long: `Insert text at --at (in characters, an image counts as one).
The inserted text takes the format of the character before it.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		_, err := app.UpdateNote(ctx, args[0], func(n *core.Note) error {
			at := writeAt
			if writeAppend {
				at = n.Document.Len()
			}
			doc, err := n.Document.InsertText(at, args[1])
			n.Document = doc
			return err
		})
		if err != nil {
			fatal("Error writing note", err)
		}
	},
}

var formatCmd = &cobra.Command{
	Use:   "format <id> <start> <end>",
	Short: "Change the formatting of a range",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		start, err := strconv.Atoi(args[1])
		if err != nil {
			fatal("Invalid start", err)
		}
		end, err := strconv.Atoi(args[2])
		if err != nil {
			fatal("Invalid end", err)
		}
		changes, err := formatChanges(cmd)
		if err != nil {
			fatal("Error", err)
		}

		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		r := document.Range{Start: start, End: end}
		_, err = app.UpdateNote(ctx, args[0], func(n *core.Note) error {
			doc := n.Document
			for _, c := range changes {
				if doc, err = doc.Apply(r, c); err != nil {
					return err
				}
			}
			if formatGrow != 0 {
				if doc, err = doc.ResizeFont(r, formatGrow); err != nil {
					return err
				}
			}
			n.Document = doc
			return nil
		})
		if err != nil {
			fatal("Error formatting note", err)
		}
	},
}

// formatChanges turns the flags given on the command line into document
// changes, in a fixed order.
func formatChanges(cmd *cobra.Command) ([]document.Change, error) {
	var changes []document.Change
	flags := []struct {
		name string
		set  func(bool) document.Change
		val  string
	}{
		{"bold", document.SetBold, formatBold},
		{"italic", document.SetItalic, formatItalic},
		{"underline", document.SetUnderline, formatUnderline},
	}
	for _, f := range flags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		on, err := strconv.ParseBool(f.val)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", f.name, err)
		}
		changes = append(changes, f.set(on))
	}
	if cmd.Flags().Changed("size") {
		changes = append(changes, document.SetFontSize(formatSize))
	}
	if len(changes) == 0 && formatGrow == 0 {
		return nil, fmt.Errorf("nothing to change")
	}
	return changes, nil
}

var imageCmd = &cobra.Command{
	Use:   "image <id> <file>",
	Short: "Insert an image file into a note",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[1])
		if err != nil {
			fatal("Error reading image", err)
		}

		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		at := imageAt
		if at < 0 {
			note, err := app.GetNote(ctx, args[0])
			if err != nil {
				fatal("Error reading note", err)
			}
			at = note.Document.Len()
		}
		if _, err := app.InsertImage(ctx, args[0], at, data); err != nil {
			fatal("Error inserting image", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().IntVar(&writeAt, "at", 0, "Character offset")
	writeCmd.Flags().BoolVarP(&writeAppend, "append", "a", false, "Insert at the end")

	rootCmd.AddCommand(formatCmd)
	formatCmd.Flags().StringVar(&formatBold, "bold", "true", "Set bold (true/false)")
	formatCmd.Flags().StringVar(&formatItalic, "italic", "true", "Set italic (true/false)")
	formatCmd.Flags().StringVar(&formatUnderline, "underline", "true", "Set underline (true/false)")
	formatCmd.Flags().IntVar(&formatSize, "size", document.DefaultFontSize, "Set the font size in points")
	formatCmd.Flags().IntVar(&formatGrow, "grow", 0, "Grow (or shrink, if negative) the font size in points")
	formatCmd.Flags().Lookup("bold").NoOptDefVal = "true"
	formatCmd.Flags().Lookup("italic").NoOptDefVal = "true"
	formatCmd.Flags().Lookup("underline").NoOptDefVal = "true"

	rootCmd.AddCommand(imageCmd)
	imageCmd.Flags().IntVar(&imageAt, "at", -1, "Character offset (default: end of note)")
}
