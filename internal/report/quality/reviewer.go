package quality

import (
	"context"

	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"
	"report-workers/internal/models"
	"report-workers/internal/report/scoring"
	"report-workers/internal/report/textclean"
)

// SectionRegenerator re-runs the producer of a section key.
type SectionRegenerator interface {
	Regenerate(ctx context.Context, rc *models.ReportContext, key string) error
}

type fixer func(ctx context.Context, rc *models.ReportContext, issue models.QualityCheck) bool

type reviewState int

const (
	stateValidate reviewState = iota
	stateRemediate
	stateRevalidate
	stateDone
)

// Reviewer validates a context, remediates critical issues at most once and attaches the final
// verdict as the quality badge.
type Reviewer struct {
	validator *Validator
	regen     SectionRegenerator
	fixers    map[models.CheckKind]fixer
	logger    logger.Logger
}

// NewReviewer accepts a nil regenerator; missing sections are then left as they are.
func NewReviewer(validator *Validator, regen SectionRegenerator, log logger.Logger) *Reviewer {
	if validator == nil {
		validator = NewValidator()
	}
	r := &Reviewer{
		validator: validator,
		regen:     regen,
		logger:    log.WithFields(map[string]interface{}{"component": "quality-gate"}),
	}
	r.fixers = map[models.CheckKind]fixer{
		models.KindROI:            fixROI,
		models.KindEncoding:       fixEncoding,
		models.KindMissingSection: r.fixMissingSection,
	}
	return r
}

// Review runs validate, remediate, validate. The second validation is final.
func (r *Reviewer) Review(ctx context.Context, rc *models.ReportContext) *models.QualityVerdict {
	var (
		verdict    *models.QualityVerdict
		attempts   int
		remediated bool
	)

	state := stateValidate
	for state != stateDone {
		switch state {
		case stateValidate:
			verdict = r.validator.Validate(rc)
			attempts++
			if verdict.Passed && len(verdict.CriticalIssues) == 0 {
				state = stateDone
				continue
			}
			state = stateRemediate

		case stateRemediate:
			applied := r.remediate(ctx, rc, verdict.CriticalIssues)
			remediated = applied > 0
			if !remediated {
				state = stateDone
				continue
			}
			state = stateRevalidate

		case stateRevalidate:
			verdict = r.validator.Validate(rc)
			attempts++
			state = stateDone
		}
	}

	verdict.Attempts = attempts
	verdict.Remediated = remediated
	rc.QualityBadge = verdict.Badge()

	metrics.QualityScore.WithLabelValues(rc.Language).Observe(verdict.Score)
	r.logger.Info("Quality gate finished", map[string]interface{}{
		"score":            verdict.Score,
		"level":            string(verdict.Level),
		"passed":           verdict.Passed,
		"readyForDelivery": verdict.ReadyForDelivery,
		"criticalIssues":   len(verdict.CriticalIssues),
		"attempts":         attempts,
	})
	return verdict
}

func (r *Reviewer) remediate(ctx context.Context, rc *models.ReportContext, issues []models.QualityCheck) int {
	applied := 0
	for _, issue := range issues {
		fix, ok := r.fixers[issue.Kind]
		if !ok {
			continue
		}
		if fix(ctx, rc, issue) {
			applied++
			metrics.QualityRemediations.WithLabelValues(string(issue.Kind)).Inc()
			r.logger.Info("Applied quality fix", map[string]interface{}{
				"check": issue.Name,
				"fixer": string(issue.Kind),
				"field": issue.Field,
			})
		}
	}
	return applied
}

func fixROI(_ context.Context, rc *models.ReportContext, _ models.QualityCheck) bool {
	expected := scoring.PaybackMonths(rc.BusinessCase)
	if expected == 0 || rc.KPI.ROIMonths == expected {
		return false
	}
	rc.KPI.ROIMonths = expected
	return true
}

func fixEncoding(_ context.Context, rc *models.ReportContext, _ models.QualityCheck) bool {
	changed := false
	repair := func(s *string) {
		if fixed := textclean.Repair(*s); fixed != *s {
			*s = fixed
			changed = true
		}
	}
	for k, v := range rc.Sections {
		repair(&v)
		rc.Sections[k] = v
	}
	repair(&rc.PrefaceHTML)
	repair(&rc.SectionsHTML)
	repair(&rc.ReadinessLevel)
	repair(&rc.Industry)
	repair(&rc.CompanySize)
	for _, m := range []map[string]interface{}{rc.IndustryDefaults, rc.Extras} {
		for k, v := range m {
			if s, ok := v.(string); ok {
				repair(&s)
				m[k] = s
			}
		}
	}
	return changed
}

func (r *Reviewer) fixMissingSection(ctx context.Context, rc *models.ReportContext, issue models.QualityCheck) bool {
	if r.regen == nil || issue.Field == "" {
		return false
	}
	if err := r.regen.Regenerate(ctx, rc, issue.Field); err != nil {
		r.logger.Warn("Section regeneration failed", map[string]interface{}{
			"field": issue.Field,
			"error": err.Error(),
		})
		return false
	}
	return true
}
