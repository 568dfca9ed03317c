package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/way"
	"github.com/vango-dev/way/internal/config"
	"github.com/vango-dev/way/pkg/metrics"
	"github.com/vango-dev/way/pkg/reactive"
	"github.com/vango-dev/way/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		page       string
		host       string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the live preview server",
		Long: `Start a live preview of a page.

Every browser tab gets its own hydrated copy of the page. Clicks and input
are replayed on the server and the updated page is sent back. Saving the
page reloads connected browsers.

Examples:
  way serve
  way serve --page demo.html --port 8080
  way serve --config way.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if page != "" {
				cfg.Server.Page = page
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default way.json or way.yaml in the working directory)")
	cmd.Flags().StringVar(&page, "page", "", "Page to serve (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from config)")

	return cmd
}

// newServer builds the preview server described by cfg.
func newServer(cmd *cobra.Command, cfg *config.Config) (*server.Server, error) {
	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return nil, err
	}
	reactive.SetMaxFlushRounds(cfg.Runtime.MaxFlushRounds)

	scfg := server.DefaultConfig()
	scfg.Address = cfg.Address()
	scfg.Page = cfg.PagePath()
	scfg.Watch = cfg.Server.Watch

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithProps(cfg.Props),
		server.WithEngineOptions(way.WithExprCacheSize(cfg.Runtime.ExprCacheSize)),
		server.WithSetup(func(e *way.Engine) error {
			return registerForms(e, cfg)
		}),
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		c := metrics.New(
			metrics.WithRegistry(reg),
			metrics.WithNamespace(cfg.Metrics.Namespace),
		)
		opts = append(opts, server.WithMetrics(c, reg))
	}
	return server.New(scfg, opts...), nil
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	srv, err := newServer(cmd, cfg)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.PagePath()); err != nil {
		return fmt.Errorf("page %s: %w", cfg.PagePath(), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  Preview:    %s\n", cfg.URL())
	fmt.Fprintf(cmd.OutOrStdout(), "  Page:       %s\n", cfg.PagePath())
	if cfg.Metrics.Enabled {
		fmt.Fprintf(cmd.OutOrStdout(), "  Metrics:    %s/metrics\n", cfg.URL())
	}
	return srv.ListenAndServe(ctx)
}
