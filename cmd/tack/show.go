package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/tack/pkg/core"
	"github.com/aretw0/tack/pkg/document"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var showFormat string

// noteView is the YAML shape of a note, with the document spelled out
// as runs.
type noteView struct {
	ID        string        `yaml:"id"`
	Title     string        `yaml:"title"`
	Color     string        `yaml:"color"`
	Opacity   float64       `yaml:"opacity"`
	CreatedAt time.Time     `yaml:"created_at"`
	UpdatedAt time.Time     `yaml:"updated_at"`
	Geometry  core.Geometry `yaml:"geometry"`
	Runs      []runView     `yaml:"runs"`
}

type runView struct {
	Text   string   `yaml:"text,omitempty"`
	Image  string   `yaml:"image,omitempty"`
	Styles []string `yaml:"styles,flow,omitempty"`
	Size   int      `yaml:"size,omitempty"`
}

func newNoteView(n core.Note, g core.Geometry) noteView {
	v := noteView{
		ID:        n.ID,
		Title:     n.Title,
		Color:     n.Color.Name(),
		Opacity:   n.Opacity,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		Geometry:  g,
	}
	for _, s := range n.Document.Segments() {
		if !s.IsText() {
			v.Runs = append(v.Runs, runView{Image: s.Image.ID})
			continue
		}
		r := runView{Text: s.Text, Size: s.Format.FontSize}
		for _, attr := range []document.Attr{document.AttrBold, document.AttrItalic, document.AttrUnderline} {
			if s.Format.Has(attr) {
				r.Styles = append(r.Styles, string(attr))
			}
		}
		v.Runs = append(v.Runs, r)
	}
	return v
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		note, err := app.GetNote(ctx, args[0])
		if err != nil {
			fatal("Error reading note", err)
		}

		switch strings.ToLower(showFormat) {
		case "json":
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(note); err != nil {
				fatal("Error encoding JSON", err)
			}
		case "yaml":
			geom, err := app.GetGeometry(ctx, note.ID)
			if err != nil {
				fatal("Error reading geometry", err)
			}
			encoder := yaml.NewEncoder(os.Stdout)
			encoder.SetIndent(2)
			if err := encoder.Encode(newNoteView(note, geom)); err != nil {
				fatal("Error encoding YAML", err)
			}
			encoder.Close()
		case "text", "":
			fmt.Printf("# %s\n\n%s\n", note.Title, note.PlainText())
		default:
			fatal("Error", fmt.Errorf("unknown format %q", showFormat))
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "text", "text, json or yaml")
}
