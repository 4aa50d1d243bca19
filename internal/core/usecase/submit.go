package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
	"github.com/kirillkom/ocr-backend/internal/core/ports"
)

// SubmitDocumentUseCase accepts an upload, registers a job record and either
// runs the pipeline inline or hands the task to the queue. The stored copy of
// the upload is keyed by job id so a worker can find it by the task alone.
type SubmitDocumentUseCase struct {
	store        ports.JobStore
	storage      ports.ObjectStorage
	queue        ports.MessageQueue
	processor    ports.JobProcessor
	maxFileSize  int64
	allowedTypes map[string]struct{}
}

// NewSubmitDocumentUseCase builds the submit use case. queue may be nil, in
// which case every submission is processed synchronously before the response.
func NewSubmitDocumentUseCase(
	store ports.JobStore,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	processor ports.JobProcessor,
	maxFileSize int64,
	allowedTypes []string,
) *SubmitDocumentUseCase {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			allowed[t] = struct{}{}
		}
	}
	return &SubmitDocumentUseCase{
		store:        store,
		storage:      storage,
		queue:        queue,
		processor:    processor,
		maxFileSize:  maxFileSize,
		allowedTypes: allowed,
	}
}

func (uc *SubmitDocumentUseCase) Submit(
	ctx context.Context,
	upload domain.Upload,
	body io.Reader,
	opts domain.OCROptions,
	requestID string,
) (*domain.Job, error) {
	if err := uc.validateUpload(upload); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	job := domain.NewJob(requestID)
	sourceKey := job.ID + sourceExt(upload.Filename)

	if err := uc.storage.Save(ctx, sourceKey, body); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	if err := uc.store.Create(ctx, job); err != nil {
		uc.removeSource(ctx, job.ID, sourceKey)
		return nil, fmt.Errorf("create job record: %w", err)
	}
	slog.Info("job accepted",
		"job_id", job.ID,
		"request_id", requestID,
		"filename", upload.Filename,
		"size", upload.Size,
	)

	if uc.queue != nil {
		task := domain.JobTask{
			JobID:      job.ID,
			SourceKey:  sourceKey,
			Options:    opts,
			EnqueuedAt: time.Now().UTC(),
		}
		if err := uc.queue.PublishJobCreated(ctx, task); err != nil {
			// Roll the submission back entirely rather than leave a job
			// that no worker will ever pick up.
			uc.removeSource(ctx, job.ID, sourceKey)
			if delErr := uc.store.Delete(ctx, job.ID); delErr != nil {
				slog.Warn("rollback job record failed", "job_id", job.ID, "error", delErr)
			}
			return nil, fmt.Errorf("enqueue job task: %w", err)
		}
		return job, nil
	}

	// Synchronous mode: the pipeline runs to a terminal status before the
	// response. Pipeline failures land in the job record, not in the
	// submit response.
	defer uc.removeSource(ctx, job.ID, sourceKey)
	if err := uc.processor.ProcessJob(ctx, job.ID, uc.storage.Path(sourceKey), opts); err != nil {
		slog.Error("pipeline failed", "job_id", job.ID, "error", err)
	}
	return uc.store.Get(ctx, job.ID)
}

func (uc *SubmitDocumentUseCase) validateUpload(upload domain.Upload) error {
	if upload.Filename == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate upload", fmt.Errorf("missing filename"))
	}
	if uc.maxFileSize > 0 && upload.Size > uc.maxFileSize {
		return domain.WrapError(domain.ErrInvalidInput, "validate upload",
			fmt.Errorf("file size %d exceeds limit %d", upload.Size, uc.maxFileSize))
	}
	if len(uc.allowedTypes) > 0 {
		mediaType := upload.ContentType
		if i := strings.Index(mediaType, ";"); i >= 0 {
			mediaType = mediaType[:i]
		}
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
		if _, ok := uc.allowedTypes[mediaType]; !ok {
			return domain.WrapError(domain.ErrInvalidInput, "validate upload",
				fmt.Errorf("content type %q is not allowed", upload.ContentType))
		}
	}
	return nil
}

func (uc *SubmitDocumentUseCase) removeSource(ctx context.Context, jobID, sourceKey string) {
	if err := uc.storage.Remove(ctx, sourceKey); err != nil {
		slog.Warn("remove stored upload failed", "job_id", jobID, "source_key", sourceKey, "error", err)
	}
}

// sourceExt keeps only simple lowercase ASCII extensions; anything else gets
// the opaque fallback so attacker-controlled filenames never shape paths.
func sourceExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 8 {
		return ".bin"
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".bin"
		}
	}
	return ext
}
