package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [component...]",
		Short: "Show the local geometry of catalog components",
		Long:  `Prints the connectors and path of each component as JSON. Without arguments every component of the catalog is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context(), cmd, logging.NewNop())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				for _, def := range engine.Catalog().Components {
					args = append(args, def.ID)
				}
			}

			type entry struct {
				ID         string                      `json:"id"`
				Connectors map[string]domain.Connector `json:"connectors"`
				PathD      string                      `json:"pathD"`
			}
			entries := make([]entry, 0, len(args))
			for _, id := range args {
				g, err := engine.Geometry(id)
				if err != nil {
					return err
				}
				entries = append(entries, entry{ID: id, Connectors: g.Connectors(), PathD: g.Path.String()})
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(entries); err != nil {
				return fmt.Errorf("failed to encode geometry: %w", err)
			}
			return nil
		},
	}
}
