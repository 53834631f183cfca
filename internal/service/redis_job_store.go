package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/videodub/api/internal/model"
)

// RedisJobStore keeps job records as JSON under job:{id} with a TTL.
type RedisJobStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisJobStore(redisClient *redis.Client, ttl time.Duration) *RedisJobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisJobStore{redis: redisClient, ttl: ttl}
}

func (s *RedisJobStore) Create(ctx context.Context, job *model.DubbingJob) error {
	stored := *job
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	return s.save(ctx, &stored)
}

// Update is a read-merge-write. Each job has a single writer, so no
// transaction is used.
func (s *RedisJobStore) Update(ctx context.Context, jobID string, update model.JobUpdate) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	update.Apply(job)
	job.UpdatedAt = time.Now()
	return s.save(ctx, job)
}

func (s *RedisJobStore) Get(ctx context.Context, jobID string) (*model.DubbingJob, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	var job model.DubbingJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

func (s *RedisJobStore) save(ctx context.Context, job *model.DubbingJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := s.redis.Set(ctx, jobKey(job.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}
