// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"tourism-workers/internal/common/logger"
)

// JobHandler completes or fails the job itself through client.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, log logger.Logger) *CamundaWorker {
	builder := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(handler.Handle).
		MaxJobsActive(opts.MaxJobsActive)
	if opts.Timeout > 0 {
		builder = builder.Timeout(opts.Timeout)
	}

	return &CamundaWorker{
		worker:   builder.Open(),
		logger:   log.With(map[string]interface{}{"taskType": opts.TaskType}),
		taskType: opts.TaskType,
	}
}

func (w *CamundaWorker) TaskType() string { return w.taskType }

func (w *CamundaWorker) Start() {
	w.logger.Info("worker started", nil)
}

// Stop closes the job worker; the shared client is closed by its owner.
func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", nil)
	done := make(chan struct{})
	go func() {
		w.worker.Close()
		w.worker.AwaitClose()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker did not stop before deadline", nil)
	}
}
