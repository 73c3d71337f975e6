package main

import (
	"fmt"

	"github.com/aretw0/openstars"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of OpenStars",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("openstars version %s\n", openstars.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
