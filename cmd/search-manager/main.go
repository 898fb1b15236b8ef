// cmd/search-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-search/internal/common/camunda"
	"rental-search/internal/common/config"
	"rental-search/internal/common/database"
	"rental-search/internal/common/logger"
	"rental-search/internal/common/observability"

	psf "rental-search/internal/workers/search/parse-search-filters"
	ra "rental-search/internal/workers/search/rank-apartments"
	sl "rental-search/internal/workers/search/search-listings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.WithError(err).Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// loadConfig honours CONFIG_FILE for deployments that mount a single file.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	log.Info("starting search manager", map[string]interface{}{"environment": cfg.App.Environment})

	obs := observability.New("search-manager", log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	// --- Elasticsearch ---
	// The keyword retriever falls back to Postgres full-text search, so an
	// unreachable cluster at startup is not fatal.
	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("elasticsearch client config invalid", zap.Error(err))
	}
	if err := esClient.Ping(ctx); err != nil {
		log.Warn("elasticsearch unreachable, keyword search will use full-text fallback", map[string]interface{}{"error": err})
	}

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()

	// --- Qdrant (optional vector backend) ---
	var qd *database.QdrantClient
	if cfg.Search.VectorBackend == "qdrant" {
		qd, err = database.NewQdrant(cfg.Database.Qdrant)
		if err != nil {
			zapLog.Fatal("qdrant client failed", zap.Error(err))
		}
		defer qd.Close()
	}

	app := buildApp(cfg, clients{postgres: pg, elastic: esClient, redis: rdb, qdrant: qd}, log)

	// --- Workers ---
	zc := zeebe.GetClient()
	var workers []worker.JobWorker

	parseHandler := psf.NewHandler(psf.NewConfig(config.GetWorkerConfig(cfg, psf.TaskType)), log)
	workers = append(workers, camunda.StartWorker(zc, psf.TaskType, config.GetWorkerConfig(cfg, psf.TaskType),
		camunda.Instrument(psf.TaskType, obs, parseHandler.Handle), log))

	searchHandler := sl.NewHandler(sl.NewConfig(config.GetWorkerConfig(cfg, sl.TaskType)), app.service, log)
	workers = append(workers, camunda.StartWorker(zc, sl.TaskType, config.GetWorkerConfig(cfg, sl.TaskType),
		camunda.Instrument(sl.TaskType, obs, searchHandler.Handle), log))

	rankHandler := ra.NewHandler(ra.NewConfig(config.GetWorkerConfig(cfg, ra.TaskType)), app.service, log)
	workers = append(workers, camunda.StartWorker(zc, ra.TaskType, config.GetWorkerConfig(cfg, ra.TaskType),
		camunda.Instrument(ra.TaskType, obs, rankHandler.Handle), log))

	// --- Health / metrics ---
	readiness := map[string]database.Pinger{
		"zeebe":         zeebe,
		"postgres":      pg,
		"elasticsearch": esClient,
		"redis":         rdb,
	}
	if qd != nil {
		readiness["qdrant"] = qd
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := database.CheckAll(checkCtx, readiness); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{
			"status":       "ready",
			"weightsCache": app.engine.Weights().State().String(),
			"time":         time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err})
		}
	}()

	// SIGHUP drops the cached ranking weights so the next ranking reloads them.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig != syscall.SIGHUP {
			break
		}
		fields := map[string]interface{}{}
		if w, ok := app.engine.Weights().Snapshot(); ok {
			fields["previous"] = w
		}
		app.engine.InvalidateWeights()
		log.Info("ranking weights invalidated", fields)
	}

	log.Info("shutdown signal received, stopping workers", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		if w != nil {
			w.Close()
		}
	}
	if err := app.engine.Flush(shutdownCtx); err != nil {
		log.Warn("analytics writes still pending at shutdown", map[string]interface{}{"error": err})
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("health/metrics server shutdown failed", map[string]interface{}{"error": err})
	}

	log.Info("search manager stopped", nil)
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
