// Command eduguard serves the student risk API.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eduguard/eduguard/internal/adapters/datastore"
	"github.com/eduguard/eduguard/internal/adapters/http/api"
	"github.com/eduguard/eduguard/internal/adapters/http/swagger"
	service "github.com/eduguard/eduguard/internal/app"
	"github.com/eduguard/eduguard/internal/config"
	"github.com/eduguard/eduguard/internal/domain/homework"
	"github.com/eduguard/eduguard/internal/domain/risk"
	"github.com/eduguard/eduguard/pkg/logger"
	"github.com/eduguard/eduguard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Only the custom registry is exposed; drop the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Logger format comes from config, so config errors go to stderr.
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.InitWithOptions(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	app, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Fatal(ctx, "failed to start", logger.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error(ctx, "datastore close failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("backend", cfg.DatastoreBackend),
			logger.String("variant", cfg.RiskVariant),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
}

// app is the wired process: the datastore and the HTTP handler over it.
type app struct {
	store   datastore.Store
	svc     *service.Service
	handler http.Handler
}

// newApp builds the datastore, scoring engine, service and routes from cfg.
func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	engine, deriver, err := scoring(cfg)
	if err != nil {
		return nil, err
	}

	store, err := datastore.Open(ctx, datastore.Settings{
		Backend:         cfg.DatastoreBackend,
		SeedFile:        cfg.SeedFile,
		FirebaseURL:     cfg.FirebaseURL,
		FirebaseToken:   cfg.FirebaseToken,
		FirebaseTimeout: cfg.FirebaseTimeout(),
		RedisAddr:       cfg.RedisAddr,
		RedisPassword:   cfg.RedisPassword,
		RedisDB:         cfg.RedisDB,
		RedisPrefix:     cfg.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s datastore: %w", cfg.DatastoreBackend, err)
	}

	svc := service.New(
		service.WithStore(datastore.Instrument(store, nil)),
		service.WithEngine(engine),
		service.WithHomeworkDeriver(deriver),
		service.WithConcurrency(cfg.Concurrency),
		service.WithMaxClassSize(cfg.MaxClassSize),
		service.WithLogger(log.Named("service")),
	)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithLogger(log.Named("api"))).Register(ctx, mux)

	return &app{store: store, svc: svc, handler: api.RequestID(mux)}, nil
}

// Close releases the datastore.
func (a *app) Close() error { return a.store.Close() }

// scoring translates the scoring section of cfg.
func scoring(cfg *config.Config) (*risk.Engine, homework.Deriver, error) {
	variant, err := risk.ParseVariant(cfg.RiskVariant)
	if err != nil {
		return nil, homework.Deriver{}, err
	}
	policy, err := risk.ParseInputPolicy(cfg.InputPolicy)
	if err != nil {
		return nil, homework.Deriver{}, err
	}
	hwPolicy, err := homework.ParsePolicy(cfg.HomeworkPolicy)
	if err != nil {
		return nil, homework.Deriver{}, err
	}
	engine := risk.NewEngine(
		risk.WithDefaultVariant(variant),
		risk.WithEnginePolicy(policy),
		risk.WithMissingValues(cfg.LinearMissingValue, cfg.LogisticMissingValue),
	)
	return engine, homework.Deriver{Policy: hwPolicy, AssignedFallback: cfg.HomeworkFallback}, nil
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
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

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
