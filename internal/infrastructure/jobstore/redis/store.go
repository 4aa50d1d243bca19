// Package redis implements the durable job store. Every write serializes the
// full job record and resets its TTL to the retention window, so expiry is
// owned entirely by the server.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(url string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Store{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "redis ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func jobKey(id string) string {
	return "job:" + id
}

func (s *Store) Create(ctx context.Context, job *domain.Job) error {
	return s.save(ctx, job)
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id %s", id))
		}
		return nil, domain.WrapError(domain.ErrTemporary, "get job", err)
	}

	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job record: %w", err)
	}
	return &job, nil
}

// Update is read-modify-write; callers guarantee a single writer per job id.
func (s *Store) Update(ctx context.Context, id string, mutate func(*domain.Job) error) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(job); err != nil {
		return err
	}
	return s.save(ctx, job)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, jobKey(id)).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "delete job", err)
	}
	return nil
}

// PurgeOlderThan is a no-op for the redis backend: per-key TTL already
// enforces the retention window.
func (s *Store) PurgeOlderThan(context.Context, time.Duration) (int, error) {
	return 0, nil
}

func (s *Store) save(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), data, s.ttl).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "save job", err)
	}
	return nil
}
