package ports

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

// JobStore persists job records. Updates are read-modify-write by id; the
// store does not serialize concurrent updates to one id — the pipeline's
// single-writer-per-job discipline is the concurrency contract.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	Update(ctx context.Context, id string, mutate func(*domain.Job) error) error
	Delete(ctx context.Context, id string) error
	PurgeOlderThan(ctx context.Context, age time.Duration) (int, error)
	Ping(ctx context.Context) error
}

// ObjectStorage stores uploaded source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	Path(key string) string
}

// MessageQueue hands job tasks to workers when asynchronous processing is
// enabled.
type MessageQueue interface {
	PublishJobCreated(ctx context.Context, task domain.JobTask) error
	SubscribeJobCreated(ctx context.Context, handler func(context.Context, domain.JobTask) error) error
}

// OCRExecutor turns one decoded page raster into extracted text.
type OCRExecutor interface {
	Extract(ctx context.Context, img image.Image, opts domain.OCROptions) (string, error)
}

// PageRasterizer decodes source files into per-page rasters.
type PageRasterizer interface {
	RasterizePDF(ctx context.Context, path string) ([]image.Image, error)
	DecodeImage(ctx context.Context, path string) (image.Image, string, error)
}

// PDFProber inspects a PDF without rasterizing it.
type PDFProber interface {
	Probe(ctx context.Context, path string) (domain.PDFInfo, error)
}

// ResultRenderer converts assembled markdown into the requested output format.
type ResultRenderer interface {
	Render(markdown string, sections []domain.PageSection, format string) (string, error)
}

// PipelineObserver receives job lifecycle observations for metrics.
type PipelineObserver interface {
	JobStarted()
	JobFinished(status domain.JobStatus, duration time.Duration, pages int)
}
