// cmd/worker-manager/main.go
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tourism-workers/internal/bootstrap"
	"tourism-workers/internal/common/camunda"
	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/database"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/common/observability"

	aq "tourism-workers/internal/workers/tourism/analyze-query"
	cd "tourism-workers/internal/workers/tourism/canonicalize-data"
)

type jobWorker interface {
	Register() error
	Close(ctx context.Context)
	GetTaskType() string
	IsEnabled() bool
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.FromConfig(cfg.Logging).With(
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()
	if err := obs.EnableTracing(cfg.App.Name, cfg.Tracing); err != nil {
		zapLog.Fatal("tracing setup failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully", zap.String("broker", cfg.Camunda.BrokerAddress))

	// --- Backends selected by the provider configuration ---
	var conns *database.Connections
	err = retryWithBackoff(func() error {
		var err error
		conns, err = database.Open(ctx, cfg, log)
		return err
	}, 10, 2*time.Second, zapLog, "Database connections")
	if err != nil {
		zapLog.Fatal("database connections failed after retries", zap.Error(err))
	}
	defer conns.Close()

	components, err := bootstrap.Build(ctx, cfg, conns, obs, log)
	if err != nil {
		zapLog.Fatal("pipeline assembly failed", zap.Error(err))
	}

	// --- Workers ---
	analyze, err := aq.NewHandler(aq.HandlerOptions{
		AppConfig: cfg,
		Camunda:   zeebe,
		Processor: components.Agent,
		Recorder:  obs,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create analyze-query handler", zap.Error(err))
	}

	canonicalize, err := cd.NewHandler(cd.HandlerOptions{
		AppConfig: cfg,
		Camunda:   zeebe,
		Recorder:  obs,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create canonicalize-data handler", zap.Error(err))
	}

	workers := []jobWorker{analyze, canonicalize}
	for _, w := range workers {
		if err := w.Register(); err != nil {
			zapLog.Fatal("failed to register worker", zap.String("taskType", w.GetTaskType()), zap.Error(err))
		}
		zapLog.Info("worker registration", zap.String("taskType", w.GetTaskType()), zap.Bool("enabled", w.IsEnabled()))
	}

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           newServerMux(zeebe, components),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func newServerMux(zeebe healthChecker, components *bootstrap.Components) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"time":            time.Now().Format(time.RFC3339),
			"catalogVersion":  components.Catalog.Version,
			"profilesVersion": components.Profiles.Version(),
			"generator":       components.Generator.Name(),
			"nlu":             components.NLU.Primary().Info(),
			"ner":             components.NER.Primary().Info(),
		}
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			body["status"] = "not_ready"
			body["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		writeJSON(w, http.StatusOK, body)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
