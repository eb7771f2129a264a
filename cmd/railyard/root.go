package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/railyard"
	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "railyard",
		Short: "Railyard is a model railway layout engine",
		Long: `Railyard places catalog track pieces on a plane, snaps their endpoints together
and keeps connected groups rigid. It serves layouts over HTTP and MCP.`,
		SilenceUsage: true,
	}

	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("catalog", "catalog.yaml", "Catalog file (.yaml, .json) or Markdown catalog directory")
	flags.String("store", "file", "Layout store: memory, file, redis or sqlite")
	flags.String("store-path", "layouts", "Directory (file) or database file (sqlite) holding layouts")
	flags.String("redis-addr", "localhost:6379", "Redis address (redis store)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newValidateCmd(),
		newGraphCmd(),
		newReportCmd(),
		newInspectCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(cmd.ErrOrStderr(), level), nil
}

// openEngine loads the catalog named by --catalog.
func openEngine(ctx context.Context, cmd *cobra.Command, logger *slog.Logger, opts ...railyard.Option) (*railyard.Engine, error) {
	path, _ := cmd.Flags().GetString("catalog")
	opts = append([]railyard.Option{railyard.WithLogger(logger)}, opts...)
	eng, err := railyard.New(ctx, path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return eng, nil
}

// loadLayout reads a layout from a JSON file when arg names one, and from the
// configured store otherwise.
func loadLayout(ctx context.Context, cmd *cobra.Command, arg string) (domain.Layout, error) {
	if strings.EqualFold(filepath.Ext(arg), ".json") {
		return readLayoutFile(arg)
	}

	st, err := openStore(ctx, cmd)
	if err != nil {
		return domain.Layout{}, err
	}
	defer st.Close()

	l, err := st.Load(ctx, arg)
	if err != nil {
		return domain.Layout{}, err
	}
	if l == nil {
		return domain.Layout{}, fmt.Errorf("%w: %s", domain.ErrLayoutNotFound, arg)
	}
	return *l, nil
}

func readLayoutFile(path string) (domain.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Layout{}, err
	}
	var l domain.Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return domain.Layout{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidLayout, path, err)
	}
	if l.ID == "" {
		l.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return l, nil
}
