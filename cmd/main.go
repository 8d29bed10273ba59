package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/angeloszaimis/tcplb/config"
	"github.com/angeloszaimis/tcplb/internal/adminserver"
	"github.com/angeloszaimis/tcplb/internal/backend"
	"github.com/angeloszaimis/tcplb/internal/healthcheck"
	"github.com/angeloszaimis/tcplb/internal/metrics"
	"github.com/angeloszaimis/tcplb/internal/proxy"
	"github.com/angeloszaimis/tcplb/internal/routing"
	"github.com/angeloszaimis/tcplb/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	interval, err := cfg.HealthCheckInterval()
	if err != nil {
		log.Error("Invalid health check interval", slog.Any("err", err))
		os.Exit(1)
	}

	timeout, err := cfg.HealthCheckTimeout()
	if err != nil {
		log.Error("Invalid health check timeout", slog.Any("err", err))
		os.Exit(1)
	}

	targets, routes := buildTargets(cfg)

	registry := backend.NewRegistry(len(targets))
	router := routing.NewRouter(targets, routes, registry)

	collector := metrics.NewCollector(1000, log)
	collector.Start(ctx)

	monitor := healthcheck.NewMonitor(targets, registry, collector, interval, timeout, clockwork.NewRealClock(), log)
	go monitor.Run(ctx)

	srv, err := proxy.New(cfg.Server.Address, router, collector, log)
	if err != nil {
		log.Error("Failed to create listener", slog.Any("err", err))
		os.Exit(1)
	}

	if cfg.Admin.Enabled {
		admin, err := adminserver.New(cfg.Admin.Address, setupAdminRouter(collector))
		if err != nil {
			log.Error("Failed to create admin server", slog.Any("err", err))
			os.Exit(1)
		}

		go func() {
			if err := admin.Start(); err != nil {
				log.Error("Admin server failed", slog.Any("err", err))
			}
		}()
		go func() {
			<-ctx.Done()
			if err := admin.Shutdown(context.Background()); err != nil {
				log.Error("Error shutting down admin server", slog.Any("err", err))
			}
		}()
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error running load balancer", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// buildTargets maps the validated configuration into domain values. IDs are
// positions in the configured sequence and never change afterwards.
func buildTargets(cfg *config.Config) ([]backend.Backend, []backend.PathRoute) {
	targets := make([]backend.Backend, 0, len(cfg.Targets))
	for i, t := range cfg.Targets {
		targets = append(targets, backend.Backend{
			ID:              i,
			Address:         t.Address,
			HealthCheckPath: t.HealthCheckPath,
		})
	}

	routes := make([]backend.PathRoute, 0, len(cfg.PathRoutes))
	for _, r := range cfg.PathRoutes {
		routes = append(routes, backend.PathRoute{
			PathPrefix: r.PathPrefix,
			Address:    r.Address,
		})
	}

	return targets, routes
}
