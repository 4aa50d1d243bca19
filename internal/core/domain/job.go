package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a lifecycle sink.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one tracked unit of OCR work. Status moves monotonically along
// pending -> processing -> completed|failed; exactly one of Result/Error is
// set once the job is terminal.
type Job struct {
	ID        string     `json:"job_id"`
	Status    JobStatus  `json:"status"`
	Result    *OCRResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	RequestID string     `json:"request_id,omitempty"`
}

func NewJob(requestID string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		RequestID: requestID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition advances the job lifecycle one step along
// pending -> processing -> completed|failed. Terminal statuses are reachable
// only from processing and are sinks: any further transition attempt is
// rejected, as is re-entering pending.
func (j *Job) Transition(next JobStatus, result *OCRResult, errMessage string) error {
	if j.Status.Terminal() {
		return WrapError(ErrInvalidInput, "transition job", fmt.Errorf("job %s is already %s", j.ID, j.Status))
	}

	switch next {
	case StatusProcessing:
		if j.Status != StatusPending {
			return WrapError(ErrInvalidInput, "transition job", fmt.Errorf("cannot move %s job to processing", j.Status))
		}
	case StatusCompleted:
		if j.Status != StatusProcessing {
			return WrapError(ErrInvalidInput, "transition job", fmt.Errorf("cannot complete %s job", j.Status))
		}
		if result == nil || result.Content == "" {
			return WrapError(ErrInvalidInput, "transition job", fmt.Errorf("completed job requires non-empty result"))
		}
		j.Result = result
		j.Error = ""
	case StatusFailed:
		if j.Status != StatusProcessing {
			return WrapError(ErrInvalidInput, "transition job", fmt.Errorf("cannot fail %s job", j.Status))
		}
		if errMessage == "" {
			return WrapError(ErrInvalidInput, "transition job", fmt.Errorf("failed job requires an error message"))
		}
		j.Error = errMessage
		j.Result = nil
	default:
		return WrapError(ErrInvalidInput, "transition job", fmt.Errorf("illegal target status %q", next))
	}

	j.Status = next
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Summary returns a copy safe for status responses: result content is elided
// to a size descriptor so polling stays cheap.
func (j *Job) Summary() *Job {
	summary := *j
	if j.Result != nil {
		result := *j.Result
		result.Content = fmt.Sprintf("[%d characters]", utf8.RuneCountInString(j.Result.Content))
		summary.Result = &result
	}
	return &summary
}

// OCRResult is the extracted output of a completed job.
type OCRResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Images   []string       `json:"images,omitempty"`
}

// PageSection is one processed page of a multi-page document, kept in
// ascending page order.
type PageSection struct {
	Page    int    `json:"page"`
	Content string `json:"content"`
}

// PDFInfo is what the cheap pre-rasterization probe learns about a PDF.
type PDFInfo struct {
	Pages          int
	TextLayerPages int
}

// Upload describes an accepted multipart file before any job exists.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
}

// JobTask is the queue payload handed to a worker in asynchronous mode. It is
// consumed once and never persisted.
type JobTask struct {
	JobID      string     `json:"job_id"`
	SourceKey  string     `json:"source_key"`
	Options    OCROptions `json:"options"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}
