package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
	"github.com/kirillkom/ocr-backend/internal/core/ports"
)

// JobQueryUseCase serves the polling side of the job lifecycle.
type JobQueryUseCase struct {
	store ports.JobStore
}

func NewJobQueryUseCase(store ports.JobStore) *JobQueryUseCase {
	return &JobQueryUseCase{store: store}
}

// Status returns the job with result content elided to a size placeholder,
// so that polling stays cheap no matter how large the extraction is.
func (uc *JobQueryUseCase) Status(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := uc.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Summary(), nil
}

// Result returns the full job record, but only once the job has completed.
func (uc *JobQueryUseCase) Result(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := uc.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.StatusCompleted {
		return nil, domain.WrapError(domain.ErrNotCompleted, "fetch job result",
			fmt.Errorf("job status is %s", job.Status))
	}
	return job, nil
}

// Remove deletes a job record. Unknown ids surface as not-found rather than
// a silent no-op.
func (uc *JobQueryUseCase) Remove(ctx context.Context, jobID string) error {
	if _, err := uc.store.Get(ctx, jobID); err != nil {
		return err
	}
	return uc.store.Delete(ctx, jobID)
}
