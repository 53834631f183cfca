package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/videodub/api/internal/model"
)

// ErrUnsupportedLanguage is returned when the target language is not configured.
var ErrUnsupportedLanguage = errors.New("unsupported target language")

const jobStartedMessage = "Dubbing job started"

// Dispatcher starts background processing of a job.
type Dispatcher interface {
	Dispatch(jobID string, payload model.DubJobPayload)
}

// LanguageChecker reports whether a target language is accepted.
type LanguageChecker interface {
	IsSupported(code string) bool
}

// JobService handles dubbing job management
type JobService struct {
	store      JobStore
	dispatcher Dispatcher
	languages  LanguageChecker
	logger     *slog.Logger
}

func NewJobService(store JobStore, dispatcher Dispatcher, languages LanguageChecker, logger *slog.Logger) *JobService {
	return &JobService{
		store:      store,
		dispatcher: dispatcher,
		languages:  languages,
		logger:     logger.With("component", "jobs"),
	}
}

// Submit records a new job and hands it to the dispatcher. It returns as
// soon as the job is recorded.
func (s *JobService) Submit(ctx context.Context, req *model.DubRequest) (*model.DubStartResponse, error) {
	if !s.languages.IsSupported(req.TargetLanguage) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, req.TargetLanguage)
	}

	jobID := uuid.New().String()
	now := time.Now()

	job := &model.DubbingJob{
		ID:        jobID,
		Status:    model.JobStatusStarted,
		Progress:  0,
		Message:   jobStartedMessage,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	s.dispatcher.Dispatch(jobID, req.Payload())
	s.logger.Info("dubbing job started", "job_id", jobID, "target_language", req.TargetLanguage, "clone_voice", req.CloneVoice)

	return &model.DubStartResponse{
		JobID:   jobID,
		Status:  model.JobStatusStarted,
		Message: jobStartedMessage,
	}, nil
}

// Status returns the current job record.
func (s *JobService) Status(ctx context.Context, jobID string) (*model.DubbingJob, error) {
	return s.store.Get(ctx, jobID)
}
