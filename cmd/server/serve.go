package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/UkralStul/posts-service/internal/api"
	"github.com/UkralStul/posts-service/internal/config"
	"github.com/UkralStul/posts-service/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the userfacing, admin and metrics listeners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.HumanLogs, os.Stderr)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())
	meter := provider.Meter("posts-service")

	logger.Info("starting server", "storage", cfg.Storage.Backend)
	b, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			logger.Warn("failed to close storage", "error", err)
		}
	}()

	if b.stats != nil {
		if _, err := metrics.ObserveDBStats(meter, cfg.Storage.Backend, b.stats); err != nil {
			return err
		}
	}
	if cfg.Storage.Backend == config.BackendInMemory && cfg.SeedMockData {
		// Заполним данными для тестов
		if err := fillWithMockData(ctx, b.store, logger); err != nil {
			return err
		}
	}

	h := api.NewHandler(b.store,
		api.WithMetrics(metrics.NewOTelCollector(meter)),
		api.WithLogger(logger),
		api.WithMaxBodySize(cfg.MaxBodySize),
	)
	servers := []*http.Server{
		{Addr: cfg.UserfacingListenAddress, Handler: api.NewUserfacingRouter(h)},
		{Addr: cfg.AdminListenAddress, Handler: api.NewAdminRouter(h)},
		{Addr: cfg.MetricsAddress, Handler: api.NewMetricsRouter(reader, logger)},
	}

	errs := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errs:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("failed to shut down listener", "addr", srv.Addr, "error", shutdownErr)
		}
	}
	return err
}
