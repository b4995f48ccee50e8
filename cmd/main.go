package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/mmo/internal/adapters/http/api"
	"github.com/okian/mmo/internal/adapters/http/site"
	"github.com/okian/mmo/internal/adapters/http/swagger"
	"github.com/okian/mmo/internal/adapters/repository"
	app "github.com/okian/mmo/internal/app"
	"github.com/okian/mmo/internal/auth"
	"github.com/okian/mmo/internal/config"
	"github.com/okian/mmo/internal/domain/ranking"
	"github.com/okian/mmo/internal/domain/scoring"
	"github.com/okian/mmo/pkg/logger"
	"github.com/okian/mmo/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr since logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "server exited", logger.Error(err))
		os.Exit(1)
	}
}

// run starts the service and serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	authn, closeAuth, err := newAuthenticator(cfg, log)
	if err != nil {
		return err
	}
	defer closeAuth()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, authn, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService builds the optimizer service from configuration. A history
// DSN selects the sqlite store; a model endpoint selects remote scoring.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithModelPath(cfg.ModelPath),
		app.WithModelCaching(cfg.CacheModel, cfg.WatchModel),
		app.WithTrainedVocabulary(cfg.Vocabulary == config.VocabularyTrained),
		app.WithRankingPolicy(ranking.Policy(cfg.RankingPolicy)),
		app.WithZeroSpend(ranking.ZeroSpend(cfg.ZeroSpend)),
		app.WithGuard(cfg.RecommendationGuard),
		app.WithMaxUploadBytes(cfg.MaxUploadBytes),
		app.WithHistoryLimit(cfg.HistoryLimit),
		app.WithDedupeSize(cfg.DedupeSize),
	}

	if cfg.ModelEndpoint != "" {
		features, version, err := remoteSchema(cfg)
		if err != nil {
			return nil, err
		}
		predictor := scoring.NewKServePredictor(cfg.ModelEndpoint, cfg.ModelName,
			scoring.WithFeatureNames(features...),
			scoring.WithVersion(version),
		)
		opts = append(opts, app.WithModelLoader(func(context.Context) (scoring.Predictor, error) {
			return predictor, nil
		}))
		log.Info(ctx, "scoring through remote model",
			logger.String("endpoint", cfg.ModelEndpoint),
			logger.String("model", cfg.ModelName),
			logger.Int("features", len(features)))
	}

	if cfg.HistoryDSN != "" {
		store, err := repository.NewSQLiteStore(ctx, cfg.HistoryDSN, repository.WithMaxRuns(cfg.HistoryLimit))
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithHistory(store))
		log.Info(ctx, "using sqlite run history", logger.String("dsn", cfg.HistoryDSN))
	}

	return app.New(opts...), nil
}

// remoteSchema returns the feature names a remote model expects, from
// model_features or else from the local artifact at model_path. Remote
// scoring without a schema is refused.
func remoteSchema(cfg *config.Config) ([]string, string, error) {
	if len(cfg.ModelFeatures) > 0 {
		return cfg.ModelFeatures, "", nil
	}
	m, err := scoring.LoadLinearModel(cfg.ModelPath)
	if err != nil {
		return nil, "", fmt.Errorf("%w: model_endpoint needs model_features or a readable model_path: %w", config.ErrInvalidConfig, err)
	}
	return m.Features, m.Version, nil
}

// newAuthenticator wires credentials, throttling and sessions. The returned
// func releases the session cache.
func newAuthenticator(cfg *config.Config, log logger.Logger) (*auth.Authenticator, func(), error) {
	sessions, err := auth.NewSessionStore(
		auth.WithTTL(time.Duration(cfg.SessionTTLSeconds)*time.Second),
		auth.WithCapacity(cfg.SessionCacheSize),
	)
	if err != nil {
		return nil, nil, err
	}
	verifier := auth.NewVerifier(cfg.Users)
	if verifier.Users() == 0 {
		log.Warn(context.Background(), "no users configured; every login will be rejected")
	}
	authn := auth.NewAuthenticator(verifier, auth.NewLimiter(cfg.LoginRatePerMinute), sessions, log.Named("auth"))
	return authn, sessions.Close, nil
}

// newMux registers every route: API, docs and assets.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, authn api.Authenticator, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, authn, svc,
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithLogger(log.Named("http")),
	)
	apiServer.Register(ctx, mux)

	assets, err := site.FS(cfg.AssetsDir)
	if err != nil {
		log.Warn(ctx, "chart assets unavailable", logger.String("assets_dir", cfg.AssetsDir), logger.Error(err))
		assets = nil
	}
	site.Register(ctx, mux, assets, func(next http.HandlerFunc) http.HandlerFunc {
		return api.MetricsMiddleware(apiServer.RequireSession(next), "assets")
	})
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.Global().RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes history gauges through GetStats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
