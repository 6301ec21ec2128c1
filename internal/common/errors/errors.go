// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeBriefingInvalid ErrorCode = "BRIEFING_INVALID"
	ErrCodeContextInvalid  ErrorCode = "REPORT_CONTEXT_INVALID"

	ErrCodePromptMissing      ErrorCode = "PROMPT_MISSING"
	ErrCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed ErrorCode = "LLM_SYNTHESIS_FAILED"
	ErrCodeLLMUnavailable     ErrorCode = "LLM_UNAVAILABLE"

	ErrCodeQualityGateFailed ErrorCode = "QUALITY_GATE_FAILED"

	ErrCodeRenderFailed        ErrorCode = "RENDER_FAILED"
	ErrCodeUnresolvedTemplate  ErrorCode = "UNRESOLVED_TEMPLATE"
	ErrCodePDFRenderFailed     ErrorCode = "PDF_RENDER_FAILED"
	ErrCodeMailSendFailed      ErrorCode = "MAIL_SEND_FAILED"
	ErrCodeAlertPublishFailed  ErrorCode = "ALERT_PUBLISH_FAILED"
	ErrCodeJobNotFound         ErrorCode = "JOB_NOT_FOUND"
	ErrCodeIdempotencyStore    ErrorCode = "IDEMPOTENCY_STORE_FAILED"
	ErrCodeDeliveryFailed      ErrorCode = "DELIVERY_FAILED"
	ErrCodeArchiveIndexFailed  ErrorCode = "ARCHIVE_INDEX_FAILED"
	ErrCodeInputSchemaMismatch ErrorCode = "INPUT_SCHEMA_MISMATCH"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is keeps working on sentinels.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, retryable bool, cause error, details string) *StandardError {
	if details == "" && cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewBriefingInvalidError creates a non-retryable validation error for questionnaire input.
func NewBriefingInvalidError(details string) *StandardError {
	return newError(ErrCodeBriefingInvalid, "Briefing failed validation", false, nil, details)
}

// NewContextInvalidError creates a non-retryable error for a malformed report context.
func NewContextInvalidError(details string) *StandardError {
	return newError(ErrCodeContextInvalid, "Report context is malformed", false, nil, details)
}

// NewInputSchemaMismatchError is returned when job variables do not match the activity schema.
func NewInputSchemaMismatchError(taskType, details string) *StandardError {
	return newError(ErrCodeInputSchemaMismatch, "Job variables do not match input schema", false, nil,
		fmt.Sprintf("taskType: %s, %s", taskType, details))
}

// NewPromptMissingError creates a non-retryable error naming the missing prompt.
func NewPromptMissingError(chapter, lang string) *StandardError {
	return newError(ErrCodePromptMissing, "Prompt template not found", false, nil,
		fmt.Sprintf("chapter: %s, lang: %s", chapter, lang))
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError(cause error) *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM request timed out", true, cause, "")
}

// NewLLMSynthesisFailedError creates a retryable LLM failure error.
func NewLLMSynthesisFailedError(cause error) *StandardError {
	return newError(ErrCodeLLMSynthesisFailed, "LLM synthesis failed", true, cause, "")
}

// NewQualityGateFailedError marks a report that may not be delivered as assembled.
func NewQualityGateFailedError(details string) *StandardError {
	return newError(ErrCodeQualityGateFailed, "Report failed the quality gate", false, nil, details)
}

// NewRenderFailedError creates a non-retryable template rendering error.
func NewRenderFailedError(cause error) *StandardError {
	return newError(ErrCodeRenderFailed, "Report rendering failed", false, cause, "")
}

// NewUnresolvedTemplateError is raised when rendered HTML still carries template markers.
func NewUnresolvedTemplateError(cause error) *StandardError {
	return newError(ErrCodeUnresolvedTemplate, "Rendered HTML contains unresolved template markers", false, cause, "")
}

// NewPDFRenderFailedError creates a retryable PDF service error.
func NewPDFRenderFailedError(cause error) *StandardError {
	return newError(ErrCodePDFRenderFailed, "PDF service failed to render report", true, cause, "")
}

// NewMailSendFailedError creates a retryable mail transport error.
func NewMailSendFailedError(recipient string, cause error) *StandardError {
	return newError(ErrCodeMailSendFailed, "Mail delivery failed", true, cause, "").
		WithMetadata("recipient", recipient)
}

// NewJobNotFoundError creates a non-retryable unknown-job error.
func NewJobNotFoundError(jobID string, cause error) *StandardError {
	return newError(ErrCodeJobNotFound, "Delivery job not found", false, cause,
		fmt.Sprintf("jobId: %s", jobID))
}

// NewDeliveryFailedError wraps a failed delivery run.
func NewDeliveryFailedError(jobID string, cause error) *StandardError {
	return newError(ErrCodeDeliveryFailed, "Report delivery failed", true, cause, "").
		WithMetadata("jobId", jobID)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(cause error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", true, cause, "")
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, cause error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error", true, cause,
		fmt.Sprintf("operation: %s, error: %v", operation, cause))
}

// NewInternalError wraps an unexpected error.
func NewInternalError(cause error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", false, cause, "")
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes modelled in the BPMN diagrams.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeBriefingInvalid:     "BRIEFING_INVALID",
	ErrCodeContextInvalid:      "REPORT_CONTEXT_INVALID",
	ErrCodeInputSchemaMismatch: "BRIEFING_INVALID",
	ErrCodePromptMissing:       "PROMPT_MISSING",
	ErrCodeLLMTimeout:          "LLM_TIMEOUT",
	ErrCodeLLMSynthesisFailed:  "LLM_SYNTHESIS_FAILED",
	ErrCodeLLMUnavailable:      "LLM_SYNTHESIS_FAILED",
	ErrCodeQualityGateFailed:   "QUALITY_GATE_FAILED",
	ErrCodeRenderFailed:        "RENDER_FAILED",
	ErrCodeUnresolvedTemplate:  "UNRESOLVED_TEMPLATE",
	ErrCodePDFRenderFailed:     "DELIVERY_FAILED",
	ErrCodeMailSendFailed:      "DELIVERY_FAILED",
	ErrCodeDeliveryFailed:      "DELIVERY_FAILED",
	ErrCodeJobNotFound:         "JOB_NOT_FOUND",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeIdempotencyStore,
		ErrCodeArchiveIndexFailed,
		ErrCodeMailSendFailed,
		ErrCodeLLMSynthesisFailed:
		return 3

	case ErrCodePDFRenderFailed,
		ErrCodeDeliveryFailed:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err into a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "BRIEFING"), strings.Contains(codeStr, "SCHEMA"), strings.Contains(codeStr, "CONTEXT"):
		return "VALIDATION"
	case strings.Contains(codeStr, "LLM"), strings.Contains(codeStr, "PROMPT"):
		return "AI"
	case strings.Contains(codeStr, "QUALITY"):
		return "QUALITY"
	case strings.Contains(codeStr, "RENDER"), strings.Contains(codeStr, "TEMPLATE"):
		return "RENDERING"
	case strings.Contains(codeStr, "MAIL"), strings.Contains(codeStr, "DELIVERY"), strings.Contains(codeStr, "JOB"), strings.Contains(codeStr, "ALERT"):
		return "DELIVERY"
	case strings.Contains(codeStr, "DATABASE"), strings.Contains(codeStr, "QUERY"), strings.Contains(codeStr, "STORE"), strings.Contains(codeStr, "ARCHIVE"):
		return "STORAGE"
	default:
		return "OTHER"
	}
}
