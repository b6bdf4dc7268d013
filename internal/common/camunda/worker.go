// internal/common/camunda/worker.go
package camunda

import (
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"skymodel-workers/internal/common/logger"
)

// JobHandler is the shape every worker handler exposes to the manager.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
	GetTaskType() string
	IsEnabled() bool
}

// WorkerOptions are the per-worker polling settings.
type WorkerOptions struct {
	Name          string
	MaxJobsActive int
	Timeout       time.Duration
}

// StartWorker opens a job worker for handler. It returns nil when the
// handler is disabled.
func StartWorker(client zbc.Client, handler JobHandler, opts WorkerOptions, log logger.Logger) worker.JobWorker {
	log = logger.OrNoOp(log)
	taskType := handler.GetTaskType()

	if !handler.IsEnabled() {
		log.Info("Worker disabled, not polling", map[string]interface{}{"taskType": taskType})
		return nil
	}

	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s-worker", taskType)
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Name(name).
		Open()

	log.Info("Worker started", map[string]interface{}{
		"taskType":      taskType,
		"name":          name,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})
	return jw
}
