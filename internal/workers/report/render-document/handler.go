// internal/workers/report/render-document/handler.go
package renderdocument

import (
	"context"
	"fmt"
	"time"

	"report-workers/internal/common/camunda"
	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"
	"report-workers/internal/models"
	"report-workers/internal/report/archive"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "render-document"

type Renderer interface {
	Render(rc *models.ReportContext, lang string) (string, error)
}

type Handler struct {
	config       *Config
	renderer     Renderer
	archive      archive.Archive
	schema       map[string]interface{}
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

// NewHandler accepts a nil archive; archive requests are then ignored.
func NewHandler(config *Config, renderer Renderer, arch archive.Archive, schema map[string]interface{}, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		renderer:     renderer,
		archive:      arch,
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
	if input.ReportID == "" {
		input.ReportID = fmt.Sprintf("%d", job.GetProcessInstanceKey())
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

// Execute renders the document. Archiving is best-effort and never fails the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	rc := input.ReportContext
	if rc == nil {
		return nil, apperrors.NewContextInvalidError("reportContext is missing")
	}

	lang := input.Lang
	if lang == "" {
		lang = rc.Language
	}
	lang = models.NormalizeLanguage(lang)

	html, err := h.renderer.Render(rc, lang)
	if err != nil {
		return nil, apperrors.NewRenderFailedError(err)
	}

	output := &Output{HTML: html, Language: lang, ReportID: input.ReportID}
	if input.Archive && h.archive != nil && input.ReportID != "" {
		output.Archived = h.index(ctx, input.ReportID, rc)
	}
	return output, nil
}

func (h *Handler) index(ctx context.Context, id string, rc *models.ReportContext) bool {
	ctx, cancel := context.WithTimeout(ctx, h.config.ArchiveTimeout)
	defer cancel()

	if err := h.archive.Index(ctx, id, rc); err != nil {
		h.logger.Warn("archiving report failed", map[string]interface{}{"reportId": id, "error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
