// cmd/worker-manager/api.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/models"
	"report-workers/internal/report/archive"
	"report-workers/internal/report/delivery"
	"report-workers/internal/report/pipeline"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type reportService interface {
	Build(ctx context.Context, raw map[string]interface{}, lang string) (*pipeline.Report, error)
	Submit(ctx context.Context, raw map[string]interface{}, lang string) (*pipeline.Report, *models.DeliveryJob, error)
}

type jobStatusSource interface {
	Status(ctx context.Context, id string) (*models.DeliveryJob, error)
}

// readinessCheck pings one dependency; a non-nil error marks the manager as not ready.
type readinessCheck func(ctx context.Context) error

type apiServer struct {
	reports       reportService
	jobs          jobStatusSource
	archive       archive.Archive
	checks        map[string]readinessCheck
	reportTimeout time.Duration
	logger        logger.Logger
}

type reportRequest struct {
	Briefing map[string]interface{} `json:"briefing"`
	Lang     string                 `json:"lang,omitempty"`
	Deliver  bool                   `json:"deliver"`
}

type reportResponse struct {
	ReportID         string              `json:"reportId"`
	Language         string              `json:"language"`
	QualityLevel     string              `json:"qualityLevel"`
	QualityScore     float64             `json:"qualityScore"`
	ReadyForDelivery bool                `json:"readyForDelivery"`
	Archived         bool                `json:"archived"`
	HTML             string              `json:"html,omitempty"`
	Job              *models.DeliveryJob `json:"job,omitempty"`
}

func newRouter(s *apiServer) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.HandleFunc("/ready", s.ready).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/reports", s.createReport).Methods(http.MethodPost)
	router.HandleFunc("/jobs/{id}", s.jobStatus).Methods(http.MethodGet)
	router.HandleFunc("/archive", s.searchArchive).Methods(http.MethodGet)
	return router
}

func (s *apiServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *apiServer) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failures := make(map[string]string)
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"failures": failures})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "failures": failures})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// createReport runs the pipeline synchronously. With deliver set the delivery is queued and the
// job snapshot is returned with 202 Accepted.
func (s *apiServer) createReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewBriefingInvalidError("request body is not valid JSON"))
		return
	}
	if req.Briefing == nil {
		writeError(w, apperrors.NewBriefingInvalidError("briefing: required"))
		return
	}

	ctx := r.Context()
	if s.reportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.reportTimeout)
		defer cancel()
	}

	var (
		report *pipeline.Report
		job    *models.DeliveryJob
		err    error
	)
	if req.Deliver {
		report, job, err = s.reports.Submit(ctx, req.Briefing, req.Lang)
	} else {
		report, err = s.reports.Build(ctx, req.Briefing, req.Lang)
	}
	if err != nil {
		s.logger.Error("report request failed", map[string]interface{}{"error": err.Error(), "deliver": req.Deliver})
		writeError(w, err)
		return
	}

	resp := reportResponse{
		ReportID: report.ID,
		Language: report.Context.Language,
		Archived: report.Archived,
		Job:      job,
	}
	if report.Verdict != nil {
		resp.QualityLevel = string(report.Verdict.Level)
		resp.QualityScore = report.Verdict.Score
		resp.ReadyForDelivery = report.Verdict.ReadyForDelivery
	}
	if job != nil {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	resp.HTML = report.HTML
	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) jobStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := s.jobs.Status(r.Context(), id)
	if errors.Is(err, delivery.ErrJobNotFound) {
		writeError(w, apperrors.NewJobNotFoundError(id, err))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) searchArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "report archive is disabled"})
		return
	}
	size := 20
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "size must be between 1 and 100"})
			return
		}
		size = n
	}

	docs, err := s.archive.Search(r.Context(), r.URL.Query().Get("industry"), size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeBriefingInvalid, apperrors.ErrCodeInputSchemaMismatch, apperrors.ErrCodeContextInvalid:
		return http.StatusBadRequest
	case apperrors.ErrCodeJobNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeQualityGateFailed, apperrors.ErrCodeUnresolvedTemplate:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeLLMSynthesisFailed, apperrors.ErrCodeLLMUnavailable, apperrors.ErrCodePDFRenderFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.AsStandardError(err)
	writeJSON(w, statusFor(stdErr.Code), map[string]interface{}{
		"code":      stdErr.Code,
		"message":   stdErr.Message,
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
