package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

func TestCreateGetReturnsCopy(t *testing.T) {
	store := New()
	job := domain.NewJob("req-1")
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got.Status = domain.StatusFailed

	again, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.Status != domain.StatusPending {
		t.Fatalf("store handed out a shared pointer, got status %s", again.Status)
	}
}

func TestGetReturnsIsolatedResult(t *testing.T) {
	store := New()
	job := domain.NewJob("")
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := store.Update(context.Background(), job.ID, func(j *domain.Job) error {
		if err := j.Transition(domain.StatusProcessing, nil, ""); err != nil {
			return err
		}
		return j.Transition(domain.StatusCompleted, &domain.OCRResult{
			Content:  "text",
			Metadata: map[string]any{"total_pages": 3},
			Images:   []string{"p1.png"},
		}, "")
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got.Result.Content = "tampered"
	got.Result.Metadata["total_pages"] = 99
	got.Result.Images[0] = "tampered.png"

	again, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.Result.Content != "text" {
		t.Fatalf("stored result mutated through the returned copy: %q", again.Result.Content)
	}
	if pages, _ := again.Result.Metadata["total_pages"].(int); pages != 3 {
		t.Fatalf("stored metadata mutated through the returned copy: %v", again.Result.Metadata)
	}
	if again.Result.Images[0] != "p1.png" {
		t.Fatalf("stored images mutated through the returned copy: %v", again.Result.Images)
	}
}

func TestGetUnknownID(t *testing.T) {
	store := New()
	if _, err := store.Get(context.Background(), "ghost"); !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected not-found kind, got %v", err)
	}
}

func TestUpdateAppliesMutation(t *testing.T) {
	store := New()
	job := domain.NewJob("")
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := store.Update(context.Background(), job.ID, func(j *domain.Job) error {
		return j.Transition(domain.StatusProcessing, nil, "")
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := store.Get(context.Background(), job.ID)
	if got.Status != domain.StatusProcessing {
		t.Fatalf("expected processing, got %s", got.Status)
	}
}

func TestUpdateMutationErrorLeavesRecordUntouched(t *testing.T) {
	store := New()
	job := domain.NewJob("")
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := store.Update(context.Background(), job.ID, func(j *domain.Job) error {
		// Illegal: a pending job cannot complete.
		return j.Transition(domain.StatusCompleted, nil, "")
	})
	if err == nil {
		t.Fatalf("expected mutation error")
	}

	got, _ := store.Get(context.Background(), job.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("failed mutation must not persist, got %s", got.Status)
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	store := New()
	job := domain.NewJob("")
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Delete(context.Background(), job.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(context.Background(), job.ID); !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
}

func TestPurgeOlderThanDropsExpiredJobs(t *testing.T) {
	store := New()

	old := domain.NewJob("")
	old.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	fresh := domain.NewJob("")

	if err := store.Create(context.Background(), old); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Create(context.Background(), fresh); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	purged, err := store.PurgeOlderThan(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan() error = %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged job, got %d", purged)
	}
	if _, err := store.Get(context.Background(), old.ID); !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected old job purged, got %v", err)
	}
	if _, err := store.Get(context.Background(), fresh.ID); err != nil {
		t.Fatalf("fresh job must survive purge: %v", err)
	}
}
