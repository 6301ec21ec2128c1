// internal/workers/report/generate-report/handler.go
package generatereport

import (
	"context"
	"time"

	"report-workers/internal/common/camunda"
	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"
	"report-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "generate-report"

type Assembler interface {
	Assemble(ctx context.Context, b *models.Briefing, lang string) (*models.ReportContext, error)
}

type Handler struct {
	config       *Config
	assembler    Assembler
	schema       map[string]interface{}
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, assembler Assembler, schema map[string]interface{}, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		assembler:    assembler,
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

// Execute parses the briefing and assembles the report context. Chapter failures do not fail
// the job; they are listed in FailedChapters and left to the quality gate.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	b, err := models.ParseBriefing(input.Briefing)
	if err != nil {
		return nil, apperrors.NewBriefingInvalidError(err.Error())
	}

	lang := input.Lang
	if lang == "" {
		if _, ok := input.Briefing["sprache"]; !ok {
			if _, ok := input.Briefing["lang"]; !ok {
				lang = h.config.DefaultLanguage
			}
		}
	}

	rc, err := h.assembler.Assemble(ctx, b, lang)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewLLMTimeoutError(err)
		}
		return nil, apperrors.NewLLMSynthesisFailedError(err)
	}

	failed := make([]string, 0)
	for _, ch := range rc.FailedChapters() {
		failed = append(failed, string(ch))
	}
	if len(failed) > 0 {
		h.logger.Warn("report assembled with failed chapters", map[string]interface{}{"chapters": failed})
	}

	return &Output{
		ReportContext:  rc,
		ScorePercent:   rc.ScorePercent,
		ReadinessLevel: rc.ReadinessLevel,
		Language:       rc.Language,
		FailedChapters: failed,
	}, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
