package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/ocr-backend/internal/bootstrap"
	"github.com/kirillkom/ocr-backend/internal/config"
	"github.com/kirillkom/ocr-backend/internal/core/domain"
	"github.com/kirillkom/ocr-backend/internal/observability/logging"
)

const service = "ocr-worker"

// taskTimeout bounds one whole job; individual executor calls are bounded
// separately by OCR_TIMEOUT_SECONDS.
const taskTimeout = 30 * time.Minute

func main() {
	cfg := config.Load()
	cfg.AsyncProcessing = true
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, service)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.PipelineMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeJobCreated(ctx, func(handlerCtx context.Context, task domain.JobTask) error {
		app.PipelineMetrics.ObserveQueueLag(time.Since(task.EnqueuedAt))

		processCtx, cancel := context.WithTimeout(handlerCtx, taskTimeout)
		defer cancel()

		err := app.ProcessUC.ProcessJob(processCtx, task.JobID, app.Storage.Path(task.SourceKey), task.Options)
		if removeErr := app.Storage.Remove(processCtx, task.SourceKey); removeErr != nil {
			slog.Warn("remove stored upload failed", "job_id", task.JobID, "error", removeErr)
		}
		return err
	})
	if err != nil {
		slog.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}
