// internal/workers/report/validate-report/models.go
package validatereport

import "report-workers/internal/models"

type Input struct {
	ReportContext *models.ReportContext `json:"reportContext"`
	// Remediate defaults to true; false only scores the context.
	Remediate *bool `json:"remediate,omitempty"`
}

type Output struct {
	Verdict          *models.QualityVerdict `json:"verdict"`
	ReadyForDelivery bool                   `json:"readyForDelivery"`
	QualityLevel     string                 `json:"qualityLevel"`
	QualityScore     float64                `json:"qualityScore"`
	ReportContext    *models.ReportContext  `json:"reportContext"`
}
