// Command cuemsd is the collaboration/library-management server: it serves
// the editor and upload WebSocket protocols, bridges engine RPC calls to the
// external playback engine process, and exposes health and metrics
// endpoints over HTTP.
//
// Configuration is loaded via internal/config's koanf layering (defaults,
// optional YAML file, environment variables). See internal/config for the
// full set of keys.
//
// Usage:
//
//	cuemsd
//	CONFIG_PATH=/etc/cuemsd/config.yaml cuemsd
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stagelab/cuems-core/internal/config"
	"github.com/stagelab/cuems-core/internal/engine"
	"github.com/stagelab/cuems-core/internal/library"
	"github.com/stagelab/cuems-core/internal/logging"
	"github.com/stagelab/cuems-core/internal/media"
	"github.com/stagelab/cuems-core/internal/middleware"
	"github.com/stagelab/cuems-core/internal/project"
	"github.com/stagelab/cuems-core/internal/script"
	"github.com/stagelab/cuems-core/internal/session"
	"github.com/stagelab/cuems-core/internal/store"
	"github.com/stagelab/cuems-core/internal/supervisor"
	"github.com/stagelab/cuems-core/internal/workpool"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	layout := library.NewLayout(cfg.Library.Path)
	if err := layout.Bootstrap(); err != nil {
		logging.Fatal().Err(err).Msg("failed to bootstrap library layout")
	}

	db, err := store.New(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open metadata store")
	}
	defer db.Close()

	if err := os.MkdirAll(cfg.Upload.TmpPath, 0o755); err != nil {
		logging.Fatal().Err(err).Msg("failed to create upload staging directory")
	}

	svc := session.Services{
		Projects: project.NewService(db, layout, script.XMLReaderWriter{}),
		Media:    media.NewService(db, layout, media.FFProbe{}, media.Derivatives{}),
		Engine:   engine.New(engine.Config(cfg.Engine)),
		Pool:     workpool.New(cfg.Server.DispatcherWorkers, 256),
	}
	defer svc.Pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLoggerWithLevel(cfg.Logging.Level)
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build supervisor tree")
	}

	hub := session.NewHub()
	timing := session.Timing{
		DispatcherWorkers: cfg.Server.DispatcherWorkers,
		WriteTimeout:      cfg.Server.WriteTimeout,
		PingInterval:      cfg.Server.PingInterval,
		PongTimeout:       cfg.Server.PongTimeout,
	}
	srv := session.NewServer(ctx, hub, svc, timing, cfg.Upload.TmpPath)

	tree.AddEngineService(engineService{bridge: svc.Engine})

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(chiMiddleware(middleware.RequestID))
	router.Use(chiMiddleware(middleware.PrometheusMetrics))

	router.Get("/", srv.ServeEditor)
	router.Get("/upload", srv.ServeUpload)
	router.Get("/healthz", healthz)
	router.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.WriteTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddSessionService(httpServerService{server: httpServer})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", cfg.Server.ListenAddr).Msg("starting cuemsd")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
	}

	logging.Info().Msg("cuemsd stopped gracefully")
}

// chiMiddleware adapts our http.HandlerFunc middleware to chi's
// func(http.Handler) http.Handler shape.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// engineService runs the engine bridge's request/response pump under the
// supervisor's engine layer.
type engineService struct {
	bridge *engine.Bridge
}

func (s engineService) Serve(ctx context.Context) error {
	return s.bridge.Run(ctx)
}

func (s engineService) String() string {
	return "engine-bridge"
}

// httpServerService runs the HTTP server under the supervisor's session
// layer and shuts it down gracefully when ctx is canceled.
type httpServerService struct {
	server *http.Server
}

func (s httpServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s httpServerService) String() string {
	return "http-server"
}
