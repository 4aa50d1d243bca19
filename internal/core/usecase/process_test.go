package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

func newPendingJob(t *testing.T) *domain.Job {
	t.Helper()
	return domain.NewJob("req-1")
}

func newProcessUC(store *storeFake, raster *rasterizerFake, prober *proberFake, exec *executorFake, obs *observerFake) *ProcessJobUseCase {
	return NewProcessJobUseCase(store, raster, prober, exec, &rendererFake{}, obs, time.Minute)
}

func TestProcessJobPDFAscendingPageOrder(t *testing.T) {
	job := newPendingJob(t)
	store := newStoreFake(job)
	exec := &executorFake{texts: []string{"first page", "third page"}}
	obs := &observerFake{}
	uc := newProcessUC(store, &rasterizerFake{pageCount: 3}, &proberFake{info: domain.PDFInfo{Pages: 3, TextLayerPages: 1}}, exec, obs)

	opts := domain.DefaultOCROptions()
	opts.PageRange = "3,1"
	if err := uc.ProcessJob(context.Background(), job.ID, "/uploads/"+job.ID+".pdf", opts); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}

	if len(store.statusSeq) != 2 || store.statusSeq[0] != domain.StatusProcessing || store.statusSeq[1] != domain.StatusCompleted {
		t.Fatalf("unexpected status sequence: %v", store.statusSeq)
	}

	final, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	content := final.Result.Content
	if !strings.Contains(content, "# Page 1\n\nfirst page") || !strings.Contains(content, "# Page 3\n\nthird page") {
		t.Fatalf("unexpected assembled content: %q", content)
	}
	if strings.Index(content, "# Page 1") > strings.Index(content, "# Page 3") {
		t.Fatalf("pages out of ascending order: %q", content)
	}
	if !strings.Contains(content, "\n\n---\n\n") {
		t.Fatalf("expected page separator in content: %q", content)
	}

	meta := final.Result.Metadata
	if meta["total_pages"] != 3 || meta["processed_pages"] != 2 {
		t.Fatalf("unexpected metadata: %v", meta)
	}
	if meta["text_layer_pages"] != 1 {
		t.Fatalf("expected probe result in metadata, got %v", meta)
	}

	if obs.started != 1 || len(obs.finished) != 1 || obs.finished[0] != domain.StatusCompleted || obs.pages[0] != 2 {
		t.Fatalf("unexpected observations: %+v", obs)
	}
}

func TestProcessJobFailsMidDocument(t *testing.T) {
	job := newPendingJob(t)
	store := newStoreFake(job)
	exec := &executorFake{failAt: 2, failErr: errors.New("ocr engine crashed")}
	uc := newProcessUC(store, &rasterizerFake{pageCount: 3}, &proberFake{}, exec, &observerFake{})

	err := uc.ProcessJob(context.Background(), job.ID, "/uploads/"+job.ID+".pdf", domain.DefaultOCROptions())
	if err == nil {
		t.Fatalf("expected pipeline error")
	}

	final, getErr := store.Get(context.Background(), job.ID)
	if getErr != nil {
		t.Fatalf("Get() error = %v", getErr)
	}
	if final.Status != domain.StatusFailed {
		t.Fatalf("expected failed job, got %s", final.Status)
	}
	if final.Error == "" || !strings.Contains(final.Error, "page 2") {
		t.Fatalf("expected failing page in error, got %q", final.Error)
	}
	if final.Result != nil {
		t.Fatalf("failed job must carry no result")
	}
}

func TestProcessJobEmptyPDFFails(t *testing.T) {
	job := newPendingJob(t)
	store := newStoreFake(job)
	uc := newProcessUC(store, &rasterizerFake{pageCount: 0}, &proberFake{}, &executorFake{}, &observerFake{})

	err := uc.ProcessJob(context.Background(), job.ID, "/x.pdf", domain.DefaultOCROptions())
	if !domain.IsKind(err, domain.ErrNoPages) {
		t.Fatalf("expected no-pages kind, got %v", err)
	}
	final, _ := store.Get(context.Background(), job.ID)
	if final.Status != domain.StatusFailed {
		t.Fatalf("expected failed job, got %s", final.Status)
	}
}

func TestProcessJobOutOfBoundsRangeFails(t *testing.T) {
	job := newPendingJob(t)
	store := newStoreFake(job)
	uc := newProcessUC(store, &rasterizerFake{pageCount: 2}, &proberFake{}, &executorFake{}, &observerFake{})

	opts := domain.DefaultOCROptions()
	opts.PageRange = "1-5"
	err := uc.ProcessJob(context.Background(), job.ID, "/x.pdf", opts)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
	final, _ := store.Get(context.Background(), job.ID)
	if final.Status != domain.StatusFailed || final.Error == "" {
		t.Fatalf("expected failed job with error, got %+v", final)
	}
}

func TestProcessJobImagePath(t *testing.T) {
	job := newPendingJob(t)
	store := newStoreFake(job)
	exec := &executorFake{texts: []string{"scanned text"}}
	uc := newProcessUC(store, &rasterizerFake{decodeFormat: "jpeg"}, &proberFake{}, exec, &observerFake{})

	if err := uc.ProcessJob(context.Background(), job.ID, "/uploads/"+job.ID+".jpg", domain.DefaultOCROptions()); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}

	final, _ := store.Get(context.Background(), job.ID)
	if final.Status != domain.StatusCompleted {
		t.Fatalf("expected completed job, got %s", final.Status)
	}
	if final.Result.Content != "scanned text" {
		t.Fatalf("unexpected content: %q", final.Result.Content)
	}
	if final.Result.Metadata["file_type"] != "image" || final.Result.Metadata["format"] != "jpeg" {
		t.Fatalf("unexpected metadata: %v", final.Result.Metadata)
	}
	if exec.calls != 1 {
		t.Fatalf("expected single extract call, got %d", exec.calls)
	}
}

func TestProcessJobRecoversFromPanic(t *testing.T) {
	job := newPendingJob(t)
	store := newStoreFake(job)
	exec := &executorFake{panicAt: 1}
	uc := newProcessUC(store, &rasterizerFake{pageCount: 1}, &proberFake{}, exec, &observerFake{})

	err := uc.ProcessJob(context.Background(), job.ID, "/x.pdf", domain.DefaultOCROptions())
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("expected recovered panic error, got %v", err)
	}
	final, _ := store.Get(context.Background(), job.ID)
	if final.Status != domain.StatusFailed || final.Error == "" {
		t.Fatalf("panic must land the job in failed, got %+v", final)
	}
}

func TestProcessJobReachesFailedWhenContextDiesMidPipeline(t *testing.T) {
	job := newPendingJob(t)
	store := newStoreFake(job)
	store.honorCtx = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec := &executorFake{failAt: 1, failErr: errors.New("inference aborted"), cancel: cancel}
	uc := newProcessUC(store, &rasterizerFake{pageCount: 1}, &proberFake{}, exec, &observerFake{})

	if err := uc.ProcessJob(ctx, job.ID, "/x.pdf", domain.DefaultOCROptions()); err == nil {
		t.Fatalf("expected pipeline error")
	}

	final, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if final.Status != domain.StatusFailed {
		t.Fatalf("job left in %q, want %q", final.Status, domain.StatusFailed)
	}
	if final.Error == "" {
		t.Fatalf("failed job expected an error message")
	}
}

func TestProcessJobCompletesWhenContextDiesAfterExtraction(t *testing.T) {
	job := newPendingJob(t)
	store := newStoreFake(job)
	store.honorCtx = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec := &executorFake{texts: []string{"scanned text"}, cancel: cancel}
	uc := newProcessUC(store, &rasterizerFake{pageCount: 1}, &proberFake{}, exec, &observerFake{})

	if err := uc.ProcessJob(ctx, job.ID, "/x.pdf", domain.DefaultOCROptions()); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}

	final, _ := store.Get(context.Background(), job.ID)
	if final.Status != domain.StatusCompleted {
		t.Fatalf("job left in %q, want %q", final.Status, domain.StatusCompleted)
	}
}

func TestProcessJobUnknownIDErrors(t *testing.T) {
	store := newStoreFake()
	uc := newProcessUC(store, &rasterizerFake{pageCount: 1}, &proberFake{}, &executorFake{}, &observerFake{})

	if err := uc.ProcessJob(context.Background(), "ghost", "/x.pdf", domain.DefaultOCROptions()); err == nil {
		t.Fatalf("expected error for unknown job id")
	}
}

func TestProcessJobEmptyExtractionFails(t *testing.T) {
	job := newPendingJob(t)
	store := newStoreFake(job)
	exec := &executorFake{texts: []string{"   "}}
	uc := newProcessUC(store, &rasterizerFake{pageCount: 1}, &proberFake{}, exec, &observerFake{})

	err := uc.ProcessJob(context.Background(), job.ID, "/x.pdf", domain.DefaultOCROptions())
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction kind, got %v", err)
	}
}
