package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/railyard"
	"github.com/aretw0/railyard/internal/metrics"
	"github.com/aretw0/railyard/internal/presentation/tui"
	httpAdapter "github.com/aretw0/railyard/pkg/adapters/http"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/aretw0/railyard/pkg/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Starts the layout engine in server mode, exposing the JSON API described by
/openapi.yaml. The catalog is reloaded when its file changes.`,
		RunE: runServe,
	}
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")
	serveCmd.Flags().Bool("watch", true, "Reload the catalog when it changes")
	return serveCmd
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetString("port")
	withMetrics, _ := cmd.Flags().GetBool("metrics")
	watch, _ := cmd.Flags().GetBool("watch")

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	var engineOpts []railyard.Option
	if withMetrics {
		m = metrics.New()
		engineOpts = append(engineOpts, railyard.WithLifecycleHooks(m.Hooks(domain.LifecycleHooks{})))
	}

	engine, err := openEngine(ctx, cmd, logger, engineOpts...)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()
	if m != nil {
		st.LayoutStore = m.InstrumentStore()(st.LayoutStore)
	}

	sessions := session.NewManager(st, append(st.sessionOptions(), session.WithLogger(logger))...)

	handlerOpts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
	if m != nil {
		handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(m))
	}
	handler, err := httpAdapter.NewHandler(ctx, engine, sessions, handlerOpts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tui.PrintBanner(cmd.ErrOrStderr(), strings.TrimSpace(railyard.Version))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting Railyard server", "addr", srv.Addr, "catalog", engine.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "error", err)
			return srv.Close()
		}
		return nil
	})

	if watch {
		g.Go(func() error {
			events, err := engine.Watch(gctx)
			if err != nil {
				logger.Warn("catalog watching disabled", "error", err)
				return nil
			}
			for name := range events {
				logger.Info("catalog reloaded", "trigger", name)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Railyard server stopped gracefully")
	return nil
}
