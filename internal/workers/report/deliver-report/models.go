// internal/workers/report/deliver-report/models.go
package deliverreport

type Input struct {
	JobID     string                 `json:"jobId,omitempty"`
	Recipient string                 `json:"recipient"`
	HTML      string                 `json:"html"`
	Lang      string                 `json:"lang,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

type Output struct {
	JobID        string   `json:"jobId"`
	Status       string   `json:"status"`
	Deduplicated bool     `json:"deduplicated"`
	PDFBytes     int      `json:"pdfBytes"`
	UserMailed   bool     `json:"userMailed"`
	AdminMailed  bool     `json:"adminMailed"`
	MailErrors   []string `json:"mailErrors,omitempty"`
}
