package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/edge-router/config"
	"github.com/angeloszaimis/edge-router/internal/handler"
	"github.com/angeloszaimis/edge-router/internal/healthcheck"
	"github.com/angeloszaimis/edge-router/internal/httpserver"
	"github.com/angeloszaimis/edge-router/internal/metrics"
	"github.com/angeloszaimis/edge-router/internal/router"
	"github.com/angeloszaimis/edge-router/internal/store"
	"github.com/angeloszaimis/edge-router/pkg/logger"
)

const metricsBufferSize = 1000

func main() {
	path := config.Path()

	snap, err := config.LoadSnapshot(path)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", path), slog.Any("err", err))
		os.Exit(1)
	}

	global := snap.Global
	log := logger.New(global.LogLevel, true, global.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(metricsBufferSize, log)
	collector.Start(ctx)

	st := store.New(snap)
	reloader := store.NewReloader(st,
		func() (*config.Snapshot, error) { return config.LoadSnapshot(path) },
		store.WithLogger(log),
		store.WithEvents(collector.EventChannel()),
	)

	watcher, err := config.NewWatcher(path, func() { _ = reloader.Reload() }, config.WithLogger(log))
	if err != nil {
		log.Error("Failed to create config watcher", slog.Any("err", err))
		os.Exit(1)
	}
	if err := watcher.Start(ctx); err != nil {
		log.Error("Failed to start config watcher", slog.Any("err", err))
		os.Exit(1)
	}
	defer watcher.Stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reloadOnSignal(ctx, hup, reloader, log)

	checker := healthcheck.NewChecker(st,
		healthcheck.WithInterval(global.HealthCheck.Interval),
		healthcheck.WithTimeout(global.HealthCheck.Timeout),
		healthcheck.WithConcurrency(global.HealthCheck.Concurrency),
		healthcheck.WithLogger(log),
		healthcheck.WithEvents(collector.EventChannel()),
	)
	go checker.Run(ctx)

	decisionHandler := handler.NewDecisionHandler(log, router.New(st), collector.EventChannel())

	srv, err := newDecisionServer(global, setupRouter(decisionHandler))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	admin, err := httpserver.New(global.AdminAddress, setupAdminRouter(st, collector))
	if err != nil {
		log.Error("Failed to create admin server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 2)

	go func() {
		srvErrCh <- srv.Start()
	}()
	go func() {
		srvErrCh <- admin.Start()
	}()

	log.Info("Edge router started",
		slog.String("addr", srv.Addr()),
		slog.Bool("tls", srv.TLS()),
		slog.String("admin_addr", admin.Addr()),
		slog.Int("hosts", snap.Routes.Len()),
		slog.Int("upstreams", snap.Upstreams))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting edge router", slog.Any("err", err))
			cancel()
		}
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error("Error during shutdown", slog.Any("err", err))
	}
	if err := admin.Shutdown(context.Background()); err != nil {
		log.Error("Error during admin shutdown", slog.Any("err", err))
	}
}

// newDecisionServer listens on the global port, with TLS when the snapshot
// carries listener certificates.
func newDecisionServer(global config.GlobalSettings, h http.Handler) (*httpserver.Server, error) {
	var opts []httpserver.Option
	if global.TLS != nil {
		opts = append(opts, httpserver.WithTLS(global.TLS.Cert, global.TLS.Key, global.TLS.CA))
	}
	return httpserver.New(fmt.Sprintf(":%d", global.Port), h, opts...)
}

// reloadOnSignal reloads the configuration for every value received on sig
// until ctx is cancelled.
func reloadOnSignal(ctx context.Context, sig <-chan os.Signal, r *store.Reloader, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-sig:
			log.Info("Reload requested", slog.String("signal", s.String()))
			_ = r.Reload()
		}
	}
}
