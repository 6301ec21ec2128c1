package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/models"
	"report-workers/internal/report/archive"
	"report-workers/internal/report/delivery"
	"report-workers/internal/report/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Build(ctx context.Context, raw map[string]interface{}, lang string) (*pipeline.Report, error) {
	args := m.Called(ctx, raw, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Report), args.Error(1)
}

func (m *MockReportService) Submit(ctx context.Context, raw map[string]interface{}, lang string) (*pipeline.Report, *models.DeliveryJob, error) {
	args := m.Called(ctx, raw, lang)
	var (
		report *pipeline.Report
		job    *models.DeliveryJob
	)
	if args.Get(0) != nil {
		report = args.Get(0).(*pipeline.Report)
	}
	if args.Get(1) != nil {
		job = args.Get(1).(*models.DeliveryJob)
	}
	return report, job, args.Error(2)
}

type MockJobs struct {
	mock.Mock
}

func (m *MockJobs) Status(ctx context.Context, id string) (*models.DeliveryJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryJob), args.Error(1)
}

type stubArchive struct {
	docs     []archive.Document
	industry string
	size     int
}

func (a *stubArchive) Index(context.Context, string, *models.ReportContext) error { return nil }

func (a *stubArchive) Search(_ context.Context, industry string, size int) ([]archive.Document, error) {
	a.industry = industry
	a.size = size
	return a.docs, nil
}

func sampleReport() *pipeline.Report {
	return &pipeline.Report{
		ID:      "rep-1",
		Context: &models.ReportContext{Language: "de"},
		Verdict: &models.QualityVerdict{Score: 88, Level: models.QualityLevel("GOOD"), ReadyForDelivery: true},
		HTML:    "<!DOCTYPE html><html><body>Bericht</body></html>",
	}
}

func newTestServer(t *testing.T, reports reportService, jobs jobStatusSource, arch archive.Archive) http.Handler {
	return newRouter(&apiServer{
		reports: reports,
		jobs:    jobs,
		archive: arch,
		checks:  map[string]readinessCheck{},
		logger:  logger.NewTestLogger(t),
	})
}

func doRequest(h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := doRequest(newTestServer(t, nil, nil, nil), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestReady(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		w := doRequest(newTestServer(t, nil, nil, nil), http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("failing dependency", func(t *testing.T) {
		h := newRouter(&apiServer{
			checks: map[string]readinessCheck{
				"zeebe": func(context.Context) error { return nil },
				"redis": func(context.Context) error { return errors.New("connection refused") },
			},
			logger: logger.NewTestLogger(t),
		})
		w := doRequest(h, http.MethodGet, "/ready", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
		assert.NotContains(t, w.Body.String(), "zeebe")
	})
}

func TestCreateReport_Build(t *testing.T) {
	reports := new(MockReportService)
	briefing := map[string]interface{}{"branche": "it", "unternehmensgroesse": "klein"}
	reports.On("Build", mock.Anything, briefing, "de").Return(sampleReport(), nil)

	w := doRequest(newTestServer(t, reports, nil, nil), http.MethodPost, "/reports",
		map[string]interface{}{"briefing": briefing, "lang": "de"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp reportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rep-1", resp.ReportID)
	assert.Equal(t, "GOOD", resp.QualityLevel)
	assert.True(t, resp.ReadyForDelivery)
	assert.Contains(t, resp.HTML, "Bericht")
	assert.Nil(t, resp.Job)
	reports.AssertExpectations(t)
}

func TestCreateReport_Deliver(t *testing.T) {
	reports := new(MockReportService)
	briefing := map[string]interface{}{"branche": "it", "email": "kunde@example.de"}
	job := &models.DeliveryJob{ID: "rep-1", Status: models.JobQueued}
	reports.On("Submit", mock.Anything, briefing, "").Return(sampleReport(), job, nil)

	w := doRequest(newTestServer(t, reports, nil, nil), http.MethodPost, "/reports",
		map[string]interface{}{"briefing": briefing, "deliver": true})

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp reportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Job)
	assert.Equal(t, "rep-1", resp.Job.ID)
	assert.Equal(t, models.JobQueued, resp.Job.Status)
	assert.Empty(t, resp.HTML)
}

func TestCreateReport_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing briefing",
			body:       map[string]interface{}{"lang": "de"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BRIEFING_INVALID",
		},
		{
			name:       "invalid briefing",
			body:       map[string]interface{}{"briefing": map[string]interface{}{}},
			err:        apperrors.NewBriefingInvalidError("briefing.branche: branche is required"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "BRIEFING_INVALID",
		},
		{
			name:       "quality gate",
			body:       map[string]interface{}{"briefing": map[string]interface{}{}, "deliver": true},
			err:        apperrors.NewQualityGateFailedError("missing sections: roadmap"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "QUALITY_GATE_FAILED",
		},
		{
			name:       "unexpected error",
			body:       map[string]interface{}{"briefing": map[string]interface{}{}},
			err:        errors.New("assemble report: boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := new(MockReportService)
			reports.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			reports.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil, tt.err)

			w := doRequest(newTestServer(t, reports, nil, nil), http.MethodPost, "/reports", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp["code"])
		})
	}
}

func TestJobStatus(t *testing.T) {
	jobs := new(MockJobs)
	jobs.On("Status", mock.Anything, "job-1").Return(&models.DeliveryJob{ID: "job-1", Status: models.JobDone}, nil)
	jobs.On("Status", mock.Anything, "missing").Return(nil, delivery.ErrJobNotFound)
	h := newTestServer(t, nil, jobs, nil)

	w := doRequest(h, http.MethodGet, "/jobs/job-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var job models.DeliveryJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, models.JobDone, job.Status)

	w = doRequest(h, http.MethodGet, "/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "JOB_NOT_FOUND")
}

func TestSearchArchive(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		w := doRequest(newTestServer(t, nil, nil, nil), http.MethodGet, "/archive", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("search", func(t *testing.T) {
		arch := &stubArchive{docs: []archive.Document{{ID: "rep-1", Industry: "it"}}}
		w := doRequest(newTestServer(t, nil, nil, arch), http.MethodGet, "/archive?industry=it&size=5", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "it", arch.industry)
		assert.Equal(t, 5, arch.size)
		assert.Contains(t, w.Body.String(), `"count":1`)
	})

	t.Run("bad size", func(t *testing.T) {
		arch := &stubArchive{}
		w := doRequest(newTestServer(t, nil, nil, arch), http.MethodGet, "/archive?size=0", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
