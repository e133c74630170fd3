package main

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hupe1980/genohdc"
	"github.com/hupe1980/genohdc/blobstore"
	"github.com/hupe1980/genohdc/config"
	"github.com/hupe1980/genohdc/server"
	"github.com/hupe1980/genohdc/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP",
		// Setup runs in RunE once the metrics collector exists.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			collector, err := telemetry.NewPrometheusCollector(prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			if err := a.setup(cmd, genohdc.WithMetricsCollector(collector)); err != nil {
				return err
			}
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			sc := a.cfg.Server

			store, closeStore, err := openStore(cmd.Context(), a.cfg.Storage, a.rc)
			if err != nil {
				return err
			}
			defer closeStore()

			srv := server.New(a.engine,
				server.WithStore(store, sc.Database),
				server.WithRateLimit(sc.RequestsPerSecond, sc.Burst),
				server.WithMetrics(collector, prometheus.DefaultGatherer),
				server.WithLogger(a.logger),
				server.WithMaxBodyBytes(sc.MaxBodyBytes),
				server.WithDefaultTopK(a.cfg.Search.TopK),
			)
			if _, err := srv.Reload(cmd.Context()); err != nil {
				if !errors.Is(err, blobstore.ErrNotFound) {
					return err
				}
				a.logger.Warn("database not found, serving an empty one", "name", sc.Database)
			}

			return srv.ListenAndServe(cmd.Context(), sc.Addr, sc.ReadTimeout, sc.WriteTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.Encode(cmd.OutOrStdout(), a.cfg)
		},
	}
}
