package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var checkGC bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report dangling image references and orphaned files",
	Long: `Check reports notes that reference missing images, images no note
references, geometry kept for deleted notes and files quarantined as
corrupt. With --gc the orphaned images and geometry are removed.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx)
		defer closeApp(ctx, app)

		report, err := app.Check(ctx, checkGC)
		if err != nil {
			fatal("Error checking data directory", err)
		}

		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		if err := encoder.Encode(report); err != nil {
			fatal("Error encoding report", err)
		}
		encoder.Close()
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkGC, "gc", false, "Remove orphaned images and geometry")
}
