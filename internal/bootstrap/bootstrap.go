package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/ocr-backend/internal/config"
	"github.com/kirillkom/ocr-backend/internal/core/ports"
	"github.com/kirillkom/ocr-backend/internal/core/usecase"
	"github.com/kirillkom/ocr-backend/internal/infrastructure/executor/tesseract"
	"github.com/kirillkom/ocr-backend/internal/infrastructure/executor/vllm"
	"github.com/kirillkom/ocr-backend/internal/infrastructure/jobstore/memory"
	jobredis "github.com/kirillkom/ocr-backend/internal/infrastructure/jobstore/redis"
	"github.com/kirillkom/ocr-backend/internal/infrastructure/queue/nats"
	"github.com/kirillkom/ocr-backend/internal/infrastructure/rasterize/mupdf"
	"github.com/kirillkom/ocr-backend/internal/infrastructure/rasterize/pdfinfo"
	"github.com/kirillkom/ocr-backend/internal/infrastructure/render"
	"github.com/kirillkom/ocr-backend/internal/infrastructure/resilience"
	"github.com/kirillkom/ocr-backend/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/ocr-backend/internal/observability/metrics"
)

const (
	storePingTimeout = 3 * time.Second
	purgeInterval    = 10 * time.Minute
)

type App struct {
	Config config.Config

	Store         ports.JobStore
	StoreBackend  string
	StoreDegraded bool

	Storage ports.ObjectStorage
	Queue   ports.MessageQueue

	SubmitUC  ports.JobSubmitter
	ProcessUC ports.JobProcessor
	QueryUC   ports.JobQueryService

	PipelineMetrics *metrics.PipelineMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	app := &App{Config: cfg}
	retention := time.Duration(cfg.JobRetentionHours) * time.Hour

	closers := make([]func(), 0, 4)
	app.closeFn = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Redis is the primary job store. When it is unreachable at startup the
	// service still comes up on the in-memory store so single-node
	// deployments work without any backing services.
	if store, err := openRedisStore(ctx, cfg.RedisURL, retention); err != nil {
		slog.Warn("redis unavailable, falling back to in-memory job store", "error", err)
		memStore := memory.New()
		app.Store = memStore
		app.StoreBackend = "memory"
		app.StoreDegraded = true
		startPurgeLoop(ctx, memStore, retention)
	} else {
		app.Store = store
		app.StoreBackend = "redis"
		closers = append(closers, func() { _ = store.Close() })
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		app.closeFn()
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	app.Storage = storage

	resilienceExec := resilience.NewExecutor(resilience.DefaultConfig())

	ocrExec, err := buildExecutor(cfg, resilienceExec)
	if err != nil {
		app.closeFn()
		return nil, err
	}

	app.PipelineMetrics = metrics.NewPipelineMetrics(service)

	processUC := usecase.NewProcessJobUseCase(
		app.Store,
		mupdf.New(),
		pdfinfo.New(),
		ocrExec,
		render.New(),
		app.PipelineMetrics,
		time.Duration(cfg.OCRTimeoutSeconds)*time.Second,
	)
	app.ProcessUC = processUC

	if cfg.AsyncProcessing {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilienceExec,
		})
		if err != nil {
			app.closeFn()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		closers = append(closers, queue.Close)
	}

	app.SubmitUC = usecase.NewSubmitDocumentUseCase(
		app.Store,
		storage,
		app.Queue,
		processUC,
		cfg.MaxFileSizeBytes,
		cfg.AllowedTypes(),
	)
	app.QueryUC = usecase.NewJobQueryUseCase(app.Store)

	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func openRedisStore(ctx context.Context, url string, retention time.Duration) (*jobredis.Store, error) {
	store, err := jobredis.New(url, retention)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func buildExecutor(cfg config.Config, resilienceExec *resilience.Executor) (ports.OCRExecutor, error) {
	switch cfg.OCREngine {
	case "tesseract":
		return tesseract.New(cfg.Languages()...), nil
	case "vllm":
		return vllm.New(cfg.VLLMBaseURL, cfg.VLLMModel, cfg.VLLMAPIKey, resilienceExec), nil
	default:
		return nil, fmt.Errorf("unknown OCR_ENGINE %q", cfg.OCREngine)
	}
}

// startPurgeLoop expires old jobs from the in-memory store. The Redis store
// relies on key TTLs instead.
func startPurgeLoop(ctx context.Context, store ports.JobStore, retention time.Duration) {
	if retention <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := store.PurgeOlderThan(ctx, retention)
				if err != nil {
					slog.Warn("job purge failed", "error", err)
					continue
				}
				if purged > 0 {
					slog.Info("purged expired jobs", "count", purged)
				}
			}
		}
	}()
}
