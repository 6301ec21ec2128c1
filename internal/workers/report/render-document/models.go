// internal/workers/report/render-document/models.go
package renderdocument

import "report-workers/internal/models"

type Input struct {
	ReportContext *models.ReportContext `json:"reportContext"`
	Lang          string                `json:"lang,omitempty"`
	Archive       bool                  `json:"archive,omitempty"`
	ReportID      string                `json:"reportId,omitempty"`
}

type Output struct {
	HTML     string `json:"html"`
	Language string `json:"language"`
	Archived bool   `json:"archived"`
	ReportID string `json:"reportId,omitempty"`
}
