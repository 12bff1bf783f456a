package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bloomgate/go-bloomgate/api"
	"github.com/bloomgate/go-bloomgate/bloomjoin"
	"github.com/bloomgate/go-bloomgate/cmd"
	"github.com/bloomgate/go-bloomgate/metrics"
	"github.com/bloomgate/go-bloomgate/modlog"
	"github.com/bloomgate/go-bloomgate/sitesync"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the master site api",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logs.App()

	opts, err := cmd.ReconcilerOpts(cfg.Filter)
	if err != nil {
		return err
	}
	if cfg.CollectMetrics {
		opts = append(opts, bloomjoin.WithTracer(bloomjoin.MetricsTracer{}))
	}

	storeOpts := []bloomjoin.StoreOpt{
		bloomjoin.WithStoreLogger(a.module("filter-store", cfg.LOGGING.FilterStoreLoggerLevel)),
	}
	if cfg.CollectMetrics {
		storeOpts = append(storeOpts, bloomjoin.WithStoreMetrics("filters"))
	}
	store := bloomjoin.NewFilterStore(cfg.Store.Size, storeOpts...)
	mods := modlog.New(modlog.WithLogger(a.module("modlog", cfg.LOGGING.ModLogLoggerLevel)))
	syncer := sitesync.New(mods, store,
		sitesync.WithLogger(a.module("sitesync", cfg.LOGGING.SiteSyncLoggerLevel)),
		sitesync.WithReconcilerOptions(opts...),
	)
	reconciler := bloomjoin.New[bloomjoin.Document](append(opts,
		bloomjoin.WithLogger(a.module("reconciler", cfg.LOGGING.ReconcilerLoggerLevel)),
	)...)
	srv := api.New(cfg.API, reconciler, store, syncer,
		api.WithLogger(a.module("api", cfg.LOGGING.APILoggerLevel)),
	)

	logger.Info("starting bloomgate",
		zap.String("version", cmd.Version),
		zap.String("listen", cfg.API.Listen),
		zap.Uint32("filter size", cfg.Filter.Size),
		zap.Uint32("hash count", cfg.Filter.HashCount),
		zap.String("hash family", cfg.Filter.HashFamily),
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return srv.Run(ctx)
	})
	if cfg.CollectMetrics {
		eg.Go(func() error {
			return metrics.NewServer(cfg.MetricsAddress, logger.Named("metrics")).Run(ctx)
		})
	}
	if cfg.MetricsPush != "" {
		eg.Go(func() error {
			return metrics.Push(ctx, metrics.PushConfig{
				URL:      cfg.MetricsPush,
				Period:   cfg.MetricsPushPeriod,
				Instance: cfg.Instance,
			}, prometheus.DefaultGatherer, logger.Named("metrics"))
		})
	}
	err = eg.Wait()
	logger.Info("bloomgate stopped", zap.Error(err))
	return err
}
