package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/videodub/api/internal/model"
)

// Processor runs a single job.
type Processor interface {
	Process(ctx context.Context, jobID string, payload model.DubJobPayload)
}

// Runner starts one goroutine per job. Jobs outlive the request that
// created them and cannot be cancelled.
type Runner struct {
	ctx       context.Context
	processor Processor
	wg        sync.WaitGroup
	logger    *slog.Logger
}

func NewRunner(ctx context.Context, processor Processor, logger *slog.Logger) *Runner {
	return &Runner{
		ctx:       context.WithoutCancel(ctx),
		processor: processor,
		logger:    logger.With("component", "runner"),
	}
}

// Dispatch implements service.Dispatcher.
func (r *Runner) Dispatch(jobID string, payload model.DubJobPayload) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.logger.Debug("job dispatched", "job_id", jobID)
		r.processor.Process(r.ctx, jobID, payload)
	}()
}

// Wait blocks until all running jobs return or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
