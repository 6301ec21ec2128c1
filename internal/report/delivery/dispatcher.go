package delivery

import (
	"context"
	"fmt"
	"html"
	"time"

	"report-workers/internal/common/logger"
	"report-workers/internal/common/mail"
	"report-workers/internal/common/pdf"
	"report-workers/internal/models"
)

// Dispatcher performs the external side effects of one delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *models.DeliveryJob) (*models.DeliveryOutcome, error)
}

// MailSettings are the sender, admin copy address and localized subjects.
type MailSettings struct {
	From       string
	AdminEmail string
	Subjects   map[string]string
	Filename   string
}

var mailBodies = map[string]string{
	"de": "<p>Guten Tag,</p><p>im Anhang finden Sie Ihren persönlichen KI-Statusbericht als PDF.</p><p>Viele Grüße</p>",
	"en": "<p>Hello,</p><p>please find your personal AI status report attached as a PDF.</p><p>Kind regards</p>",
}

// ReportDispatcher renders the PDF and mails it to the recipient and the admin copy address.
// PDF failures are returned; mail failures are recorded in the outcome.
type ReportDispatcher struct {
	pdf      pdf.Renderer
	mailer   mail.Mailer
	settings MailSettings
	logger   logger.Logger
	now      func() time.Time
}

func NewReportDispatcher(renderer pdf.Renderer, mailer mail.Mailer, settings MailSettings, log logger.Logger) *ReportDispatcher {
	if settings.Filename == "" {
		settings.Filename = "ki-statusbericht.pdf"
	}
	return &ReportDispatcher{
		pdf:      renderer,
		mailer:   mailer,
		settings: settings,
		logger:   log.WithFields(map[string]interface{}{"component": "report-dispatcher"}),
		now:      time.Now,
	}
}

func (d *ReportDispatcher) Dispatch(ctx context.Context, job *models.DeliveryJob) (*models.DeliveryOutcome, error) {
	doc, err := d.pdf.Render(ctx, job.HTML, d.settings.Filename)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	outcome := &models.DeliveryOutcome{PDFBytes: len(doc)}
	attachment := mail.Attachment{Filename: d.settings.Filename, ContentType: "application/pdf", Data: doc}
	subject := d.subject(job.Language)

	if job.Recipient != "" {
		err := d.mailer.Send(ctx, &mail.Message{
			From:        d.settings.From,
			To:          []string{job.Recipient},
			Subject:     subject,
			HTML:        body(job.Language),
			Attachments: []mail.Attachment{attachment},
		})
		if err != nil {
			outcome.MailErrors = append(outcome.MailErrors, "user: "+err.Error())
			d.logger.Error("User mail failed", map[string]interface{}{"jobId": job.ID, "error": err.Error()})
		} else {
			outcome.UserMailed = true
		}
	}

	if d.settings.AdminEmail != "" {
		err := d.mailer.Send(ctx, &mail.Message{
			From:    d.settings.From,
			To:      []string{d.settings.AdminEmail},
			Subject: fmt.Sprintf("[Kopie] %s – %s", subject, job.Recipient),
			HTML: fmt.Sprintf("<p>Job %s, Empfänger %s</p>",
				html.EscapeString(job.ID), html.EscapeString(job.Recipient)),
			Attachments: []mail.Attachment{
				attachment,
				{Filename: "report.html", ContentType: "text/html; charset=utf-8", Data: []byte(job.HTML)},
			},
		})
		if err != nil {
			outcome.MailErrors = append(outcome.MailErrors, "admin: "+err.Error())
			d.logger.Error("Admin mail failed", map[string]interface{}{"jobId": job.ID, "error": err.Error()})
		} else {
			outcome.AdminMailed = true
		}
	}

	outcome.CompletedAt = d.now().UTC()
	return outcome, nil
}

func (d *ReportDispatcher) subject(lang string) string {
	if s, ok := d.settings.Subjects[lang]; ok && s != "" {
		return s
	}
	return d.settings.Subjects["de"]
}

func body(lang string) string {
	if b, ok := mailBodies[lang]; ok {
		return b
	}
	return mailBodies["de"]
}
