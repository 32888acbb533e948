package main

import (
	"fmt"

	"github.com/aretw0/tack"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Tack",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tack version %s\n", tack.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
