package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
	"github.com/kirillkom/ocr-backend/internal/core/ports"
)

const pageSeparator = "\n\n---\n\n"

// terminalWriteTimeout bounds the status write that ends a job.
const terminalWriteTimeout = 5 * time.Second

// ProcessJobUseCase drives one job through the pipeline state machine:
// processing, then exactly one of completed or failed. It is the sole writer
// of job status; callers must never start two pipeline runs for one job id.
type ProcessJobUseCase struct {
	store      ports.JobStore
	rasterizer ports.PageRasterizer
	prober     ports.PDFProber
	executor   ports.OCRExecutor
	renderer   ports.ResultRenderer
	observer   ports.PipelineObserver
	timeout    time.Duration
}

func NewProcessJobUseCase(
	store ports.JobStore,
	rasterizer ports.PageRasterizer,
	prober ports.PDFProber,
	executor ports.OCRExecutor,
	renderer ports.ResultRenderer,
	observer ports.PipelineObserver,
	timeout time.Duration,
) *ProcessJobUseCase {
	return &ProcessJobUseCase{
		store:      store,
		rasterizer: rasterizer,
		prober:     prober,
		executor:   executor,
		renderer:   renderer,
		observer:   observer,
		timeout:    timeout,
	}
}

func (uc *ProcessJobUseCase) ProcessJob(ctx context.Context, jobID, sourcePath string, opts domain.OCROptions) error {
	start := time.Now()
	if uc.observer != nil {
		uc.observer.JobStarted()
	}

	if err := uc.markProcessing(ctx, jobID); err != nil {
		uc.observe(domain.StatusFailed, start, 0)
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, pages, err := uc.runPipeline(ctx, jobID, sourcePath, opts)
	if err != nil {
		uc.observe(domain.StatusFailed, start, pages)
		if failErr := uc.markFailed(ctx, jobID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markCompleted(ctx, jobID, result); err != nil {
		uc.observe(domain.StatusFailed, start, pages)
		return fmt.Errorf("set status=completed: %w", err)
	}
	uc.observe(domain.StatusCompleted, start, pages)
	return nil
}

// runPipeline converts failures of any kind, including panics from decoder
// internals, into an error so the job always reaches a terminal status.
func (uc *ProcessJobUseCase) runPipeline(
	ctx context.Context,
	jobID, sourcePath string,
	opts domain.OCROptions,
) (result *domain.OCRResult, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	// Unknown extensions get the best-effort single-image path; a decode
	// failure there fails the job, not the process.
	if strings.EqualFold(filepath.Ext(sourcePath), ".pdf") {
		return uc.processPDF(ctx, jobID, sourcePath, opts)
	}
	return uc.processImage(ctx, jobID, sourcePath, opts)
}

func (uc *ProcessJobUseCase) processImage(
	ctx context.Context,
	jobID, sourcePath string,
	opts domain.OCROptions,
) (*domain.OCRResult, int, error) {
	img, format, err := uc.rasterizer.DecodeImage(ctx, sourcePath)
	if err != nil {
		return nil, 0, fmt.Errorf("decode source image: %w", err)
	}

	text, err := uc.extract(ctx, img, opts)
	if err != nil {
		return nil, 0, err
	}

	sections := []domain.PageSection{{Page: 1, Content: text}}
	content, err := uc.renderer.Render(text, sections, opts.OutputFormat)
	if err != nil {
		return nil, 0, err
	}

	bounds := img.Bounds()
	result := &domain.OCRResult{
		Content: content,
		Metadata: map[string]any{
			"file_type": "image",
			"format":    format,
			"width":     bounds.Dx(),
			"height":    bounds.Dy(),
		},
	}
	if opts.IncludeImages {
		result.Images = []string{}
	}
	slog.Info("image processed", "job_id", jobID, "format", format)
	return result, 1, nil
}

func (uc *ProcessJobUseCase) processPDF(
	ctx context.Context,
	jobID, sourcePath string,
	opts domain.OCROptions,
) (*domain.OCRResult, int, error) {
	rasters, err := uc.rasterizer.RasterizePDF(ctx, sourcePath)
	if err != nil {
		return nil, 0, fmt.Errorf("rasterize pdf: %w", err)
	}
	if len(rasters) == 0 {
		return nil, 0, domain.WrapError(domain.ErrNoPages, "rasterize pdf", errors.New("no pages found"))
	}

	selected, err := domain.ParsePageRange(opts.PageRange, len(rasters))
	if err != nil {
		return nil, 0, err
	}

	// Pages are processed strictly in ascending order; the output preserves
	// that order regardless of the token order in the range expression.
	sections := make([]domain.PageSection, 0, len(selected))
	for i, pageNum := range selected {
		slog.Info("processing page",
			"job_id", jobID,
			"page", pageNum,
			"progress", fmt.Sprintf("%d/%d", i+1, len(selected)),
		)
		text, err := uc.extract(ctx, rasters[pageNum-1], opts)
		if err != nil {
			return nil, len(sections), fmt.Errorf("page %d: %w", pageNum, err)
		}
		sections = append(sections, domain.PageSection{Page: pageNum, Content: text})
	}

	content, err := uc.renderer.Render(joinSections(sections), sections, opts.OutputFormat)
	if err != nil {
		return nil, len(sections), err
	}

	metadata := map[string]any{
		"file_type":       "pdf",
		"total_pages":     len(rasters),
		"processed_pages": len(selected),
		"pages":           selected,
	}
	if uc.prober != nil {
		if info, probeErr := uc.prober.Probe(ctx, sourcePath); probeErr == nil {
			metadata["text_layer_pages"] = info.TextLayerPages
		} else {
			slog.Debug("pdf probe failed", "job_id", jobID, "error", probeErr)
		}
	}

	result := &domain.OCRResult{Content: content, Metadata: metadata}
	if opts.IncludeImages {
		result.Images = []string{}
	}
	slog.Info("pdf processed", "job_id", jobID, "pages", len(selected))
	return result, len(sections), nil
}

func (uc *ProcessJobUseCase) extract(ctx context.Context, img image.Image, opts domain.OCROptions) (string, error) {
	callCtx := ctx
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	text, err := uc.executor.Extract(callCtx, img, opts)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", errors.New("empty extraction result"))
	}
	return text, nil
}

func (uc *ProcessJobUseCase) markProcessing(ctx context.Context, jobID string) error {
	return uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		return job.Transition(domain.StatusProcessing, nil, "")
	})
}

func (uc *ProcessJobUseCase) markCompleted(ctx context.Context, jobID string, result *domain.OCRResult) error {
	writeCtx, cancel := terminalContext(ctx)
	defer cancel()
	return uc.store.Update(writeCtx, jobID, func(job *domain.Job) error {
		return job.Transition(domain.StatusCompleted, result, "")
	})
}

func (uc *ProcessJobUseCase) markFailed(ctx context.Context, jobID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	writeCtx, cancel := terminalContext(ctx)
	defer cancel()
	return uc.store.Update(writeCtx, jobID, func(job *domain.Job) error {
		return job.Transition(domain.StatusFailed, nil, processErr.Error())
	})
}

// terminalContext detaches the terminal status write from the pipeline
// context. A cancelled or expired job must still land in completed or failed
// rather than sit in processing until the retention window expires.
func terminalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
}

func (uc *ProcessJobUseCase) observe(status domain.JobStatus, start time.Time, pages int) {
	if uc.observer != nil {
		uc.observer.JobFinished(status, time.Since(start), pages)
	}
}

func joinSections(sections []domain.PageSection) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, fmt.Sprintf("# Page %d\n\n%s", s.Page, s.Content))
	}
	return strings.Join(parts, pageSeparator)
}
