package usecase

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

type storeFake struct {
	mu        sync.Mutex
	jobs      map[string]*domain.Job
	statusSeq []domain.JobStatus

	// honorCtx makes Update fail on a dead context, like the redis store.
	honorCtx bool

	createErr error
	getErr    error
	updateErr error
	deleteErr error
}

func newStoreFake(jobs ...*domain.Job) *storeFake {
	f := &storeFake{jobs: make(map[string]*domain.Job)}
	for _, j := range jobs {
		copyJob := *j
		f.jobs[j.ID] = &copyJob
	}
	return f
}

func (f *storeFake) Create(_ context.Context, job *domain.Job) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copyJob := *job
	f.jobs[job.ID] = &copyJob
	return nil
}

func (f *storeFake) Get(_ context.Context, id string) (*domain.Job, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", errJobMissing)
	}
	copyJob := *job
	return &copyJob, nil
}

func (f *storeFake) Update(ctx context.Context, id string, mutate func(*domain.Job) error) error {
	if f.honorCtx {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.WrapError(domain.ErrJobNotFound, "update job", errJobMissing)
	}
	if err := mutate(job); err != nil {
		return err
	}
	f.statusSeq = append(f.statusSeq, job.Status)
	return nil
}

func (f *storeFake) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
	return nil
}

func (f *storeFake) PurgeOlderThan(context.Context, time.Duration) (int, error) { return 0, nil }

func (f *storeFake) Ping(context.Context) error { return nil }

var errJobMissing = errors.New("job missing")

type rasterizerFake struct {
	pageCount    int
	rasterizeErr error
	decodeFormat string
	decodeErr    error
}

func (f *rasterizerFake) RasterizePDF(context.Context, string) ([]image.Image, error) {
	if f.rasterizeErr != nil {
		return nil, f.rasterizeErr
	}
	pages := make([]image.Image, f.pageCount)
	for i := range pages {
		pages[i] = image.NewRGBA(image.Rect(0, 0, 2, 2))
	}
	return pages, nil
}

func (f *rasterizerFake) DecodeImage(context.Context, string) (image.Image, string, error) {
	if f.decodeErr != nil {
		return nil, "", f.decodeErr
	}
	format := f.decodeFormat
	if format == "" {
		format = "png"
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 3)), format, nil
}

type proberFake struct {
	info domain.PDFInfo
	err  error
}

func (f *proberFake) Probe(context.Context, string) (domain.PDFInfo, error) {
	if f.err != nil {
		return domain.PDFInfo{}, f.err
	}
	return f.info, nil
}

// executorFake returns texts in call order; failAt (1-based) fails that call
// and panicAt panics instead. cancel, when set, is invoked on every call so
// tests can kill the job context mid-pipeline.
type executorFake struct {
	texts   []string
	failAt  int
	failErr error
	panicAt int
	cancel  context.CancelFunc
	calls   int
}

func (f *executorFake) Extract(context.Context, image.Image, domain.OCROptions) (string, error) {
	f.calls++
	if f.cancel != nil {
		f.cancel()
	}
	if f.panicAt > 0 && f.calls == f.panicAt {
		panic("executor blew up")
	}
	if f.failAt > 0 && f.calls == f.failAt {
		return "", f.failErr
	}
	if len(f.texts) == 0 {
		return "text", nil
	}
	idx := f.calls - 1
	if idx >= len(f.texts) {
		idx = len(f.texts) - 1
	}
	return f.texts[idx], nil
}

type rendererFake struct {
	err error
}

func (f *rendererFake) Render(markdown string, _ []domain.PageSection, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return markdown, nil
}

type observerFake struct {
	started  int
	finished []domain.JobStatus
	pages    []int
}

func (f *observerFake) JobStarted() { f.started++ }

func (f *observerFake) JobFinished(status domain.JobStatus, _ time.Duration, pages int) {
	f.finished = append(f.finished, status)
	f.pages = append(f.pages, pages)
}

type storageFake struct {
	saved   map[string][]byte
	removed []string
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{saved: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = content
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.saved[key])), nil
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

func (f *storageFake) Path(key string) string { return "/uploads/" + key }

type queueFake struct {
	published  []domain.JobTask
	publishErr error
}

func (f *queueFake) PublishJobCreated(_ context.Context, task domain.JobTask) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, task)
	return nil
}

func (f *queueFake) SubscribeJobCreated(context.Context, func(context.Context, domain.JobTask) error) error {
	return nil
}

type processorFake struct {
	calls []string
	paths []string
	err   error
}

func (f *processorFake) ProcessJob(_ context.Context, jobID, sourcePath string, _ domain.OCROptions) error {
	f.calls = append(f.calls, jobID)
	f.paths = append(f.paths, sourcePath)
	return f.err
}
