package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/ocr-backend/internal/adapters/http"
	"github.com/kirillkom/ocr-backend/internal/bootstrap"
	"github.com/kirillkom/ocr-backend/internal/config"
	"github.com/kirillkom/ocr-backend/internal/observability/logging"
	"github.com/kirillkom/ocr-backend/internal/observability/metrics"
)

const service = "ocr-api"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, service)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.SubmitUC, app.QueryUC, app.Store, httpadapter.Options{
		Service:        service,
		APIKey:         cfg.APIKey,
		MaxFileSize:    cfg.MaxFileSizeBytes,
		RateLimitRPS:   float64(cfg.APIRateLimitRPS),
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxConcurrent:  cfg.APIMaxConcurrent,
		StoreBackend:   app.StoreBackend,
		StoreDegraded:  app.StoreDegraded,
		QueueEnabled:   app.Queue != nil,
		Metrics:        metrics.NewHTTPServerMetrics(service),
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort, "store", app.StoreBackend, "async", cfg.AsyncProcessing)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
