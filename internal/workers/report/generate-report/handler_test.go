// internal/workers/report/generate-report/handler_test.go
package generatereport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"report-workers/internal/common/camunda"
	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/models"
	"report-workers/internal/report/assembler"
	"report-workers/internal/report/sections"
	"report-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks & Helpers
// ==========================

type MockAssembler struct {
	mock.Mock
}

func (m *MockAssembler) Assemble(ctx context.Context, b *models.Briefing, lang string) (*models.ReportContext, error) {
	args := m.Called(ctx, b, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportContext), args.Error(1)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "ki-statusbericht",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func inputSchema(t *testing.T) map[string]interface{} {
	t.Helper()
	reg, err := registry.Load()
	require.NoError(t, err)
	schema, err := reg.InputSchema(TaskType)
	require.NoError(t, err)
	return schema
}

func createTestHandler(t *testing.T, asm Assembler) *Handler {
	return NewHandler(LoadConfig(), asm, inputSchema(t), logger.NewTestLogger(t))
}

func briefing() map[string]interface{} {
	return map[string]interface{}{
		"branche":             "Handel",
		"unternehmensgroesse": "kmu",
		"sprache":             "de",
	}
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_WithoutLLM(t *testing.T) {
	prompts, err := sections.NewPromptLoader("")
	require.NoError(t, err)
	industries, err := sections.LoadIndustries()
	require.NoError(t, err)
	log := logger.NewTestLogger(t)
	gen := sections.NewGenerator(nil, prompts, industries, sections.Options{}, log)
	asm := assembler.New(gen, assembler.Options{ChapterConcurrency: 1}, nil, log)

	h := createTestHandler(t, asm)
	output, err := h.Execute(context.Background(), &Input{Briefing: briefing()})
	require.NoError(t, err)

	require.NotNil(t, output.ReportContext)
	assert.Equal(t, "de", output.Language)
	assert.Equal(t, "handel", output.ReportContext.Industry)
	assert.NotEmpty(t, output.ReadinessLevel)
	assert.Empty(t, output.FailedChapters)
	assert.NotEmpty(t, output.ReportContext.Sections[models.KeyExecSummary])
}

func TestHandler_Execute_LanguageSelection(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		wantLang string
	}{
		{
			name:     "explicit lang wins",
			input:    &Input{Briefing: briefing(), Lang: "en"},
			wantLang: "en",
		},
		{
			name:     "briefing language is kept",
			input:    &Input{Briefing: briefing()},
			wantLang: "",
		},
		{
			name:     "default language without any hint",
			input:    &Input{Briefing: map[string]interface{}{"branche": "it", "unternehmensgroesse": "kmu"}},
			wantLang: "de",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asm := &MockAssembler{}
			asm.On("Assemble", mock.Anything, mock.Anything, tt.wantLang).
				Return(models.NewReportContext("de"), nil).Once()

			h := createTestHandler(t, asm)
			_, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			asm.AssertExpectations(t)
		})
	}
}

func TestHandler_Execute_ReportsFailedChapters(t *testing.T) {
	rc := models.NewReportContext("de")
	rc.Chapters = []models.ChapterResult{
		models.ChapterOK(models.ChapterExecutiveSummary, "<p>ok</p>"),
		models.ChapterFailed(models.ChapterTools, errors.New("timeout")),
	}
	asm := &MockAssembler{}
	asm.On("Assemble", mock.Anything, mock.Anything, "de").Return(rc, nil)

	h := createTestHandler(t, asm)
	output, err := h.Execute(context.Background(), &Input{Briefing: briefing(), Lang: "de"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tools"}, output.FailedChapters)
}

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("empty briefing", func(t *testing.T) {
		h := createTestHandler(t, &MockAssembler{})
		_, err := h.Execute(context.Background(), &Input{})

		var stdErr *apperrors.StandardError
		require.True(t, errors.As(err, &stdErr))
		assert.Equal(t, apperrors.ErrCodeBriefingInvalid, stdErr.Code)
	})

	t.Run("assembler failure", func(t *testing.T) {
		asm := &MockAssembler{}
		asm.On("Assemble", mock.Anything, mock.Anything, "de").Return(nil, errors.New("boom"))

		h := createTestHandler(t, asm)
		_, err := h.Execute(context.Background(), &Input{Briefing: briefing(), Lang: "de"})

		var stdErr *apperrors.StandardError
		require.True(t, errors.As(err, &stdErr))
		assert.Equal(t, apperrors.ErrCodeLLMSynthesisFailed, stdErr.Code)
		assert.True(t, stdErr.Retryable)
	})
}

// ==========================
// Input decoding
// ==========================

func TestDecodeInput(t *testing.T) {
	schema := inputSchema(t)

	var input Input
	job := createMockJob(1, map[string]interface{}{"briefing": briefing(), "lang": "en"})
	require.NoError(t, camunda.DecodeVariables(job, TaskType, schema, &input))
	assert.Equal(t, "en", input.Lang)
	assert.Equal(t, "Handel", input.Briefing["branche"])

	job = createMockJob(2, map[string]interface{}{"briefing": map[string]interface{}{"branche": "Handel"}})
	err := camunda.DecodeVariables(job, TaskType, schema, &input)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeInputSchemaMismatch, stdErr.Code)
	assert.Contains(t, stdErr.Details, "briefing.unternehmensgroesse")
}
