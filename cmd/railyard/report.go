package main

import (
	"fmt"
	"os"

	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report <layout>",
		Short: "Summarize a layout",
		Long:  `Prints the groups, items and free endpoints of a layout. Output is rendered for the terminal unless --raw is set or stdout is not a terminal.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")

			engine, err := openEngine(cmd.Context(), cmd, logging.NewNop())
			if err != nil {
				return err
			}
			layout, err := loadLayout(cmd.Context(), cmd, args[0])
			if err != nil {
				return err
			}
			md, err := tui.LayoutReport(layout, engine)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if raw || out != os.Stdout || !term.IsTerminal(int(os.Stdout.Fd())) {
				fmt.Fprint(out, md)
				return nil
			}

			width, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				width = 0
			}
			render, err := tui.NewRenderer(width)
			if err != nil {
				return err
			}
			rendered, err := render(md)
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
			return nil
		},
	}
	reportCmd.Flags().Bool("raw", false, "Print Markdown without terminal rendering")
	return reportCmd
}
