// Package server wires storage, services and transports together and runs
// the gRPC request API and the HTTP listener (live channel, health and
// metrics) until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/ratelimit"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/delivery"
	"github.com/dmitrijs2005/gophchat/internal/server/metrics"
	"github.com/dmitrijs2005/gophchat/internal/server/presence"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/dmitrijs2005/gophchat/internal/server/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gs "github.com/dmitrijs2005/gophchat/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	registry   *presence.Registry
	grpcServer *gs.GRPCServer
	httpServer *http.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogLevel, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, rm, err := openStorage(ctx, c)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	registry := presence.New(logger, m)
	router := delivery.NewRouter(registry, logger, m)
	gate := auth.NewGate(c.SecretKey)
	limiter := ratelimit.New(c.RateLimitWindow, c.RateLimitMaxRequests)

	ms := services.NewMessageService(db, rm, logger)
	us := services.NewUserService(db, rm, logger, c)

	grpcServer := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, gs.Deps{
		Users:     us,
		Messages:  ms,
		Messenger: services.NewMessenger(ms, router),
		Gate:      gate,
		Limiter:   limiter,
		Metrics:   m,
	})

	live := ws.NewHandler(gate, registry, router, limiter, m, logger, ws.Options{
		AllowedOrigins: c.AllowedOrigins,
		SendBuffer:     c.SendBufferSize,
	})

	app := &App{
		config:     c,
		logger:     logger,
		db:         db,
		registry:   registry,
		grpcServer: grpcServer,
	}
	app.httpServer = &http.Server{
		Addr:              c.EndpointAddrHTTP,
		Handler:           app.routes(live, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return app, nil
}

// openStorage returns a nil *sql.DB for the memory backend.
func openStorage(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	switch c.StorageBackend {
	case config.StorageMemory:
		return nil, repomanager.NewMemoryRepositoryManager(), nil
	case config.StoragePostgres:
		db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db init error: %w", err)
		}
		rm := repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migration error: %w", err)
		}
		return db, rm, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func (app *App) routes(live http.Handler, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", live)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", app.healthz)
	return mux
}

func (app *App) healthz(w http.ResponseWriter, r *http.Request) {
	if app.db != nil {
		if err := app.db.PingContext(r.Context()); err != nil {
			app.logger.Warn(r.Context(), "health check failed", "error", err)
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.httpServer.Addr)

	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a signal arrives or a listener fails.
// Live connections are closed after both servers have stopped.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.registry.Close()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close", "error", err)
		}
	}

	app.logger.Info(context.Background(), "App stopped")
}
