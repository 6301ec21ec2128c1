// internal/workers/report/validate-report/handler.go
package validatereport

import (
	"context"
	"fmt"
	"time"

	"report-workers/internal/common/camunda"
	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"
	"report-workers/internal/models"
	"report-workers/internal/report/quality"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "validate-report"

type Reviewer interface {
	Review(ctx context.Context, rc *models.ReportContext) *models.QualityVerdict
}

type Handler struct {
	config       *Config
	validator    *quality.Validator
	reviewer     Reviewer
	schema       map[string]interface{}
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, validator *quality.Validator, reviewer Reviewer, schema map[string]interface{}, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	if validator == nil {
		validator = quality.NewValidator()
	}
	return &Handler{
		config:       config,
		validator:    validator,
		reviewer:     reviewer,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	rc := input.ReportContext
	if rc == nil {
		return nil, apperrors.NewContextInvalidError("reportContext is missing")
	}
	rc.Language = models.NormalizeLanguage(rc.Language)

	var verdict *models.QualityVerdict
	if h.reviewer != nil && (input.Remediate == nil || *input.Remediate) {
		verdict = h.reviewer.Review(ctx, rc)
	} else {
		verdict = h.validator.Validate(rc)
		rc.QualityBadge = verdict.Badge()
	}

	if h.config.RequirePassed && !verdict.Passed {
		return nil, apperrors.NewQualityGateFailedError(
			fmt.Sprintf("level %s, score %.1f, %d critical issues", verdict.Level, verdict.Score, len(verdict.CriticalIssues)))
	}

	return &Output{
		Verdict:          verdict,
		ReadyForDelivery: verdict.ReadyForDelivery,
		QualityLevel:     string(verdict.Level),
		QualityScore:     verdict.Score,
		ReportContext:    rc,
	}, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
