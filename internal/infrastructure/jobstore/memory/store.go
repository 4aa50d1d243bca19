// Package memory is the in-process job store used when redis is unreachable
// at startup. Behavior matches the durable backend except that nothing
// expires automatically; cleanup happens only through PurgeOlderThan.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

type Store struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

func New() *Store {
	return &Store{jobs: make(map[string]*domain.Job)}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = clone(job)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id %s", id))
	}
	return clone(job), nil
}

func (s *Store) Update(_ context.Context, id string, mutate func(*domain.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.WrapError(domain.ErrJobNotFound, "update job", fmt.Errorf("id %s", id))
	}
	copied := clone(job)
	if err := mutate(copied); err != nil {
		return err
	}
	s.jobs[id] = copied
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *Store) PurgeOlderThan(_ context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-age)
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

// clone deep-copies the record so callers never share the stored Result or
// its metadata map.
func clone(job *domain.Job) *domain.Job {
	copied := *job
	if job.Result != nil {
		result := *job.Result
		if job.Result.Metadata != nil {
			result.Metadata = make(map[string]any, len(job.Result.Metadata))
			for k, v := range job.Result.Metadata {
				result.Metadata[k] = v
			}
		}
		if job.Result.Images != nil {
			result.Images = append([]string(nil), job.Result.Images...)
		}
		copied.Result = &result
	}
	return &copied
}
