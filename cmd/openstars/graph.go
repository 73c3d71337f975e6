package main

import (
	"fmt"

	"github.com/aretw0/openstars/internal/presentation/graph"
	"github.com/aretw0/openstars/internal/runtime"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the dialogue graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of every step Star can move through and the events that move it.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(graph.GenerateMermaid(runtime.NewEngine().Graph(), nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
