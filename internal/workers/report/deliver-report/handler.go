// internal/workers/report/deliver-report/handler.go
package deliverreport

import (
	"context"
	"errors"
	"time"

	"report-workers/internal/common/camunda"
	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"
	"report-workers/internal/models"
	"report-workers/internal/report/delivery"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "deliver-report"

// Coordinator runs a delivery job to completion.
type Coordinator interface {
	Deliver(ctx context.Context, req delivery.Request) (*models.DeliveryJob, error)
}

type Handler struct {
	config       *Config
	coordinator  Coordinator
	schema       map[string]interface{}
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, coordinator Coordinator, schema map[string]interface{}, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		coordinator:  coordinator,
		schema:       schema,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	var input Input
	if err := camunda.DecodeVariables(job, TaskType, h.schema, &input); err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.GetKey(), "error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// Execute delivers synchronously. A retried task with the same jobId replaces the failed
// attempt; the idempotency key keeps a retried success from mailing twice.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	job, err := h.coordinator.Deliver(ctx, delivery.Request{
		JobID:     input.JobID,
		Recipient: input.Recipient,
		Language:  input.Lang,
		HTML:      input.HTML,
		Payload:   input.Payload,
	})
	if err != nil {
		return nil, apperrors.NewDeliveryFailedError(input.JobID, err)
	}

	if job.Status == models.JobError {
		if job.Error == delivery.ErrUnresolvedTemplate.Error() {
			return nil, apperrors.NewUnresolvedTemplateError(delivery.ErrUnresolvedTemplate)
		}
		return nil, apperrors.NewDeliveryFailedError(job.ID, errors.New(job.Error))
	}

	output := &Output{
		JobID:        job.ID,
		Status:       string(job.Status),
		Deduplicated: job.Deduplicated,
	}
	if job.Outcome != nil {
		output.PDFBytes = job.Outcome.PDFBytes
		output.UserMailed = job.Outcome.UserMailed
		output.AdminMailed = job.Outcome.AdminMailed
		output.MailErrors = job.Outcome.MailErrors
	}
	if len(output.MailErrors) > 0 {
		h.logger.Warn("report delivered with mail errors", map[string]interface{}{
			"jobId":      job.ID,
			"mailErrors": output.MailErrors,
		})
	}
	return output, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
