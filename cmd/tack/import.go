package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/aretw0/tack/internal/legacy"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var importCmd = &cobra.Command{
	Use:   "import <legacy-dir>",
	Short: "Import notes from an older sticky notes data directory",
	Long: `Import notes.json, positions.json and state.json from an older data
directory. Content may be a Tk text dump, Qt rich text HTML or plain text.
Notes whose id already exists are skipped, so importing twice is safe.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		report, err := legacy.New(app.Service, slog.Default()).Import(ctx, args[0])
		if err != nil {
			fatal("Error importing", err)
		}
		fmt.Printf("Imported %d notes, %d images, %d open\n", len(report.Notes), report.Images, report.Open)

		if len(report.Skipped) > 0 || len(report.Missing) > 0 {
			sort.Strings(report.Missing)
			encoder := yaml.NewEncoder(os.Stdout)
			encoder.SetIndent(2)
			if err := encoder.Encode(map[string]any{
				"skipped":        report.Skipped,
				"missing_images": report.Missing,
			}); err != nil {
				fatal("Error encoding report", err)
			}
			encoder.Close()
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
