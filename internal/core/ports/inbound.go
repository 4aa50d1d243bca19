package ports

import (
	"context"
	"io"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

// JobSubmitter is the inbound contract for accepting an upload and creating
// its job.
type JobSubmitter interface {
	Submit(ctx context.Context, upload domain.Upload, body io.Reader, opts domain.OCROptions, requestID string) (*domain.Job, error)
}

// JobProcessor runs the OCR pipeline for one job. No two invocations may ever
// share a job id; the processor is the sole writer of job status.
type JobProcessor interface {
	ProcessJob(ctx context.Context, jobID, sourcePath string, opts domain.OCROptions) error
}

// JobQueryService is the inbound read/delete surface over stored jobs.
type JobQueryService interface {
	Status(ctx context.Context, jobID string) (*domain.Job, error)
	Result(ctx context.Context, jobID string) (*domain.Job, error)
	Remove(ctx context.Context, jobID string) error
}
