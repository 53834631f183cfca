package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/videodub/api/internal/model"
	"github.com/videodub/api/internal/service"
)

const demoModeNote = " (demo mode: original video returned, synthesis unavailable)"

// Dubber runs the dubbing pipeline for one job
type Dubber interface {
	DubVideo(ctx context.Context, req model.DubJobPayload, progress service.ProgressFunc) (*model.DubbingResult, error)
	CleanupTempFiles(paths ...string)
}

// DubbingWorker processes dubbing jobs and reports their progress
type DubbingWorker struct {
	store  service.JobStore
	dubber Dubber
	logger *slog.Logger
}

// NewDubbingWorker creates a new dubbing worker
func NewDubbingWorker(store service.JobStore, dubber Dubber, logger *slog.Logger) *DubbingWorker {
	return &DubbingWorker{
		store:  store,
		dubber: dubber,
		logger: logger.With("component", "worker"),
	}
}

// Process runs one job to completion. Every outcome is written to the store.
func (w *DubbingWorker) Process(ctx context.Context, jobID string, payload model.DubJobPayload) {
	log := w.logger.With("job_id", jobID)
	start := time.Now()
	log.Info("starting dubbing job", "target_language", payload.TargetLanguage)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("dubbing job panicked", "panic", rec)
			w.failJob(ctx, jobID, fmt.Errorf("internal error: %v", rec), roundSeconds(time.Since(start)))
		}
	}()

	w.updateJobStatus(ctx, jobID, model.JobStatusProcessing, model.StageUploading)

	result, err := w.dubber.DubVideo(ctx, payload, func(stage model.Stage) {
		w.updateJobStatus(ctx, jobID, model.JobStatusProcessing, stage)
	})
	elapsed := roundSeconds(time.Since(start))

	if err != nil {
		log.Error("dubbing job failed", "error", err, "elapsed", elapsed)
		w.failJob(ctx, jobID, err, elapsed)
		return
	}

	result.ProcessingTime = elapsed
	w.completeJob(ctx, jobID, result)
	log.Info("dubbing job completed", "elapsed", elapsed, "demo_mode", result.DemoMode)

	if result.AudioFilePath != "" {
		w.dubber.CleanupTempFiles(result.AudioFilePath)
	}
}

func (w *DubbingWorker) updateJobStatus(ctx context.Context, jobID string, status model.JobStatus, stage model.Stage) {
	progress := stage.Progress()
	message := stage.Message()
	update := model.JobUpdate{
		Status:   &status,
		Progress: &progress,
		Message:  &message,
		Stage:    &stage,
	}
	if err := w.store.Update(ctx, jobID, update); err != nil {
		w.logger.Warn("failed to update job", "job_id", jobID, "stage", stage, "error", err)
	}
}

func (w *DubbingWorker) completeJob(ctx context.Context, jobID string, result *model.DubbingResult) {
	status := model.JobStatusCompleted
	stage := model.StageCompleted
	progress := stage.Progress()
	message := stage.Message()
	if result.DemoMode {
		message += demoModeNote
	}
	update := model.JobUpdate{
		Status:         &status,
		Progress:       &progress,
		Message:        &message,
		Stage:          &stage,
		Result:         result,
		ProcessingTime: &result.ProcessingTime,
	}
	if err := w.store.Update(ctx, jobID, update); err != nil {
		w.logger.Error("failed to complete job", "job_id", jobID, "error", err)
	}
}

func (w *DubbingWorker) failJob(ctx context.Context, jobID string, cause error, elapsed float64) {
	status := model.JobStatusFailed
	stage := model.StageFailed
	progress := stage.Progress()
	message := fmt.Sprintf("Dubbing failed: %v", cause)
	errMsg := cause.Error()
	update := model.JobUpdate{
		Status:         &status,
		Progress:       &progress,
		Message:        &message,
		Stage:          &stage,
		Error:          &errMsg,
		ProcessingTime: &elapsed,
	}
	if err := w.store.Update(ctx, jobID, update); err != nil {
		w.logger.Error("failed to mark job failed", "job_id", jobID, "error", err)
	}
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
