// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"report-workers/internal/common/config"
	"report-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Worker is an opened Zeebe job worker for one task type.
type Worker struct {
	jobWorker worker.JobWorker
	logger    logger.Logger
	taskType  string
}

// StartWorker opens a job worker with the per-task settings. Disabled workers return nil.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, log logger.Logger) *Worker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	if !wcfg.Enabled {
		log.Info("worker disabled", nil)
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return &Worker{jobWorker: jobWorker, logger: log, taskType: taskType}
}

// Stop closes the worker and waits for in-flight jobs up to the given grace period.
func (w *Worker) Stop(grace time.Duration) {
	if w == nil {
		return
	}
	w.logger.Info("stopping worker", nil)
	w.jobWorker.Close()

	done := make(chan struct{})
	go func() {
		w.jobWorker.AwaitClose()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		w.logger.Warn("worker did not drain in time", map[string]interface{}{"grace": grace.String()})
	}
}
