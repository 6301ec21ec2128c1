// internal/workers/report/generate-report/models.go
package generatereport

import "report-workers/internal/models"

type Input struct {
	Briefing map[string]interface{} `json:"briefing"`
	Lang     string                 `json:"lang,omitempty"`
}

// Output is stored as process variables; the context is handed to validate-report.
type Output struct {
	ReportContext  *models.ReportContext `json:"reportContext"`
	ScorePercent   float64               `json:"scorePercent"`
	ReadinessLevel string                `json:"readinessLevel"`
	Language       string                `json:"language"`
	FailedChapters []string              `json:"failedChapters"`
}
