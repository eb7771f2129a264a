package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/railyard"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of railyard",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "railyard version %s\n", strings.TrimSpace(railyard.Version))
		},
	}
}
