// Package pipeline chains the report stages for callers outside Zeebe: briefing validation,
// assembly, the quality gate, rendering, archiving and delivery.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/validation"
	"report-workers/internal/models"
	"report-workers/internal/report/archive"
	"report-workers/internal/report/assembler"
	"report-workers/internal/report/delivery"

	"github.com/google/uuid"
)

type Assembler interface {
	Assemble(ctx context.Context, b *models.Briefing, lang string) (*models.ReportContext, error)
}

type Reviewer interface {
	Review(ctx context.Context, rc *models.ReportContext) *models.QualityVerdict
}

type Renderer interface {
	Render(rc *models.ReportContext, lang string) (string, error)
}

type Deliverer interface {
	Submit(ctx context.Context, req delivery.Request) (*models.DeliveryJob, error)
}

// Dependencies lists the stages. Archive and Deliverer are optional.
type Dependencies struct {
	Assembler Assembler
	Reviewer  Reviewer
	Renderer  Renderer
	Deliverer Deliverer
	Archive   archive.Archive
}

type Options struct {
	// BriefingSchema is the JSON schema raw briefings are checked against; nil skips the check.
	BriefingSchema map[string]interface{}
	ArchiveTimeout time.Duration
}

// Report is one finished pipeline run.
type Report struct {
	ID       string                 `json:"id"`
	Context  *models.ReportContext  `json:"context"`
	Verdict  *models.QualityVerdict `json:"verdict"`
	HTML     string                 `json:"html"`
	Archived bool                   `json:"archived"`
}

type Pipeline struct {
	deps   Dependencies
	opts   Options
	logger logger.Logger
	newID  func() string
}

func New(deps Dependencies, opts Options, log logger.Logger) *Pipeline {
	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = 10 * time.Second
	}
	return &Pipeline{
		deps:   deps,
		opts:   opts,
		logger: log.WithFields(map[string]interface{}{"component": "report-pipeline"}),
		newID:  uuid.NewString,
	}
}

// ParseBriefing validates the raw answers against the briefing schema and parses them.
func (p *Pipeline) ParseBriefing(raw map[string]interface{}) (*models.Briefing, error) {
	if p.opts.BriefingSchema != nil {
		result, err := validation.ValidateInput(raw, p.opts.BriefingSchema)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if !result.Valid {
			return nil, apperrors.NewBriefingInvalidError(strings.Join(result.GetErrorMessages(), "; "))
		}
	}
	b, err := models.ParseBriefing(raw)
	if err != nil {
		return nil, apperrors.NewBriefingInvalidError(err.Error())
	}
	return b, nil
}

// Build runs every stage up to the rendered document. Archiving failures are logged only.
func (p *Pipeline) Build(ctx context.Context, raw map[string]interface{}, lang string) (*Report, error) {
	b, err := p.ParseBriefing(raw)
	if err != nil {
		return nil, err
	}

	rc, err := p.deps.Assembler.Assemble(ctx, b, lang)
	if err != nil {
		return nil, fmt.Errorf("assemble report: %w", err)
	}

	verdict := p.deps.Reviewer.Review(ctx, rc)

	html, err := p.deps.Renderer.Render(rc, rc.Language)
	if err != nil {
		return nil, apperrors.NewRenderFailedError(err)
	}

	report := &Report{ID: p.newID(), Context: rc, Verdict: verdict, HTML: html}
	report.Archived = p.archive(ctx, report)

	p.logger.Info("Report built", map[string]interface{}{
		"reportId":     report.ID,
		"language":     rc.Language,
		"industry":     rc.Industry,
		"qualityLevel": string(verdict.Level),
		"htmlBytes":    len(html),
	})
	return report, nil
}

// Submit builds the report and queues its delivery to the briefing's e-mail address. The
// delivery job reuses the report ID.
func (p *Pipeline) Submit(ctx context.Context, raw map[string]interface{}, lang string) (*Report, *models.DeliveryJob, error) {
	if p.deps.Deliverer == nil {
		return nil, nil, apperrors.NewInternalError(fmt.Errorf("delivery is not configured"))
	}

	report, err := p.Build(ctx, raw, lang)
	if err != nil {
		return nil, nil, err
	}

	rc := report.Context
	if rc.Briefing == nil || rc.Briefing.Email == "" {
		return report, nil, apperrors.NewBriefingInvalidError("email: required for delivery")
	}
	if missing := MissingSections(rc); len(missing) > 0 {
		return report, nil, apperrors.NewQualityGateFailedError("missing sections: " + strings.Join(missing, ", "))
	}
	if !report.Verdict.ReadyForDelivery {
		p.logger.Warn("Delivering report below the ready threshold", map[string]interface{}{
			"reportId":     report.ID,
			"qualityLevel": string(report.Verdict.Level),
			"score":        report.Verdict.Score,
		})
	}

	job, err := p.deps.Deliverer.Submit(ctx, delivery.Request{
		JobID:     report.ID,
		Recipient: rc.Briefing.Email,
		Language:  rc.Language,
		HTML:      report.HTML,
		Payload:   rc.Briefing.Values(),
	})
	if err != nil {
		return report, nil, err
	}
	return report, job, nil
}

// MissingSections lists required section keys that are absent, blank or a chapter error marker.
func MissingSections(rc *models.ReportContext) []string {
	var missing []string
	for _, key := range models.RequiredSections {
		html, ok := rc.Section(key)
		if !ok || strings.TrimSpace(html) == "" || assembler.IsErrorMarker(html) {
			missing = append(missing, key)
		}
	}
	return missing
}

func (p *Pipeline) archive(ctx context.Context, report *Report) bool {
	if p.deps.Archive == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, p.opts.ArchiveTimeout)
	defer cancel()

	if err := p.deps.Archive.Index(ctx, report.ID, report.Context); err != nil {
		p.logger.Warn("Archiving report failed", map[string]interface{}{
			"reportId": report.ID,
			"error":    err.Error(),
		})
		return false
	}
	return true
}
