package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/skillx/sessiongate"
	"github.com/skillx/sessiongate/httpapi"
	"github.com/skillx/sessiongate/internal/appconfig"
	"github.com/skillx/sessiongate/metrics/export/prometheus"
)

// app owns every long-lived resource of the server process.
type app struct {
	cfg    appconfig.Config
	log    *slog.Logger
	redis  *redis.Client
	users  appconfig.UserStore
	engine *sessiongate.Engine
	srv    *http.Server
}

func newApp(ctx context.Context, cfg appconfig.Config, log *slog.Logger) (*app, error) {
	engineCfg := cfg.EngineConfig()
	if err := engineCfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	rdb, err := appconfig.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	users, err := appconfig.OpenUserStore(ctx, engineCfg.Database, log)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	engine, err := sessiongate.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithLogger(log).
		WithAuditSink(sessiongate.NewSlogSink(log, slog.LevelInfo)).
		Build()
	if err != nil {
		users.Close()
		_ = rdb.Close()
		return nil, err
	}

	a := &app{cfg: cfg, log: log, redis: rdb, users: users, engine: engine}

	if cfg.SeedAdmin {
		created, err := engine.SeedUser(ctx, sessiongate.AdminSeed)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		log.Info("seed.admin", "created", created)
	}

	opts := []httpapi.Option{
		httpapi.WithLogger(log),
		httpapi.WithSecureCookies(cfg.SecureCookies),
	}
	if engineCfg.Metrics.Enabled {
		exporter := prometheus.NewExporter(engine)
		opts = append(opts, httpapi.WithMetricsHandler(exporter.Handler(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)))
	}

	a.srv = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           withRequestLogging(httpapi.New(engine, opts...), log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// serve blocks until ctx is cancelled or the listener fails, then shuts the
// server down gracefully.
func (a *app) serve(ctx context.Context) error {
	a.log.Info("server.start", "addr", a.srv.Addr, "user_store", a.cfg.UserStore)

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}
	a.log.Info("server.stopped")
	return nil
}

// close releases resources in reverse order of construction.
func (a *app) close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.users.Close != nil {
		a.users.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
