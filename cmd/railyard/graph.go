package main

import (
	"fmt"

	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/internal/presentation/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	graphCmd := &cobra.Command{
		Use:   "graph <layout>",
		Short: "Export the connection graph of a layout",
		Long:  `Outputs a Mermaid diagram (graph LR) of the items of a layout and their connections, one subgraph per connected group.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, _ := cmd.Flags().GetString("select")
			highlight, _ := cmd.Flags().GetStringSlice("highlight")

			engine, err := openEngine(cmd.Context(), cmd, logging.NewNop())
			if err != nil {
				return err
			}
			layout, err := loadLayout(cmd.Context(), cmd, args[0])
			if err != nil {
				return err
			}

			var overlay *graph.GraphOverlay
			if selected != "" || len(highlight) > 0 {
				overlay = &graph.GraphOverlay{Selected: selected, Highlight: highlight}
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(layout, engine.Catalog(), overlay))
			return nil
		},
	}
	graphCmd.Flags().String("select", "", "Item to mark as selected")
	graphCmd.Flags().StringSlice("highlight", nil, "Items to highlight")
	return graphCmd
}
