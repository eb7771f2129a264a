package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/railyard/internal/catalog"
	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/internal/validator"
	"github.com/spf13/cobra"
)

// errValidation is returned once every problem has been printed.
var errValidation = errors.New("validation failed")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [layout...]",
		Short: "Check the catalog and layouts for consistency",
		Long: `Evaluates every catalog definition and reports the ones that fall back to a
placeholder straight. Each layout argument (a .json file or a stored layout ID)
is checked against the catalog for dangling references, non-finite numbers and
broken connections.`,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	engine, err := openEngine(cmd.Context(), cmd, logging.NewNop())
	if err != nil {
		return err
	}

	failed := false
	cat := engine.Catalog()
	if problems := catalog.Check(cat); len(problems) > 0 {
		failed = true
		fmt.Fprintf(out, "Catalog %s has %d invalid definitions:\n", cat.ID, len(problems))
		for _, p := range problems {
			fmt.Fprintf(out, "  - %v\n", p)
		}
	} else {
		fmt.Fprintf(out, "Catalog %s is valid (%d components) ✅\n", cat.ID, len(cat.Components))
	}

	for _, arg := range args {
		layout, err := loadLayout(cmd.Context(), cmd, arg)
		if err != nil {
			return err
		}
		if err := validator.ValidateLayout(layout, cat); err != nil {
			failed = true
			fmt.Fprintf(out, "Layout %s is invalid:\n", arg)
			for _, p := range validator.ValidationErrors(err) {
				fmt.Fprintf(out, "  - %v\n", p)
			}
			continue
		}
		fmt.Fprintf(out, "Layout %s is valid (%d items, %d connections) ✅\n", arg, len(layout.Items), len(layout.Connections))
	}

	if failed {
		return errValidation
	}
	return nil
}
