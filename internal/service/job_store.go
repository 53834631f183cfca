package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/videodub/api/internal/model"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// JobStore keeps dubbing job status records
type JobStore interface {
	Create(ctx context.Context, job *model.DubbingJob) error
	Update(ctx context.Context, jobID string, update model.JobUpdate) error
	Get(ctx context.Context, jobID string) (*model.DubbingJob, error)
}

// MemoryJobStore is the default in-process job store. Records live until
// the process exits or the retention sweep removes them.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.DubbingJob
	now  func() time.Time
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]*model.DubbingJob),
		now:  time.Now,
	}
}

func (s *MemoryJobStore) Create(_ context.Context, job *model.DubbingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *job
	now := s.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.jobs[job.ID] = &stored
	return nil
}

func (s *MemoryJobStore) Update(_ context.Context, jobID string, update model.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	update.Apply(job)
	job.UpdatedAt = s.now()
	return nil
}

// Get returns a copy of the stored job.
func (s *MemoryJobStore) Get(_ context.Context, jobID string) (*model.DubbingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// DeleteTerminalBefore removes completed and failed jobs last updated
// before cutoff and returns how many were removed.
func (s *MemoryJobStore) DeleteTerminalBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.Status.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored jobs.
func (s *MemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
