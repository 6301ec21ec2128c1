// Package assembler turns a briefing into a complete report context: readiness score,
// business case, generated chapters, distilled views and the composed HTML aggregates.
package assembler

import (
	"context"
	"fmt"
	"time"

	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"
	"report-workers/internal/common/observability"
	"report-workers/internal/models"
	"report-workers/internal/report/scoring"
	"report-workers/internal/report/sections"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Options bound the assembly. ChapterConcurrency below 1 is treated as 1.
type Options struct {
	ChapterConcurrency int
	DistillTimeout     time.Duration
}

type Assembler struct {
	gen    *sections.Generator
	opts   Options
	obs    *observability.Observability
	logger logger.Logger
}

func New(gen *sections.Generator, opts Options, obs *observability.Observability, log logger.Logger) *Assembler {
	if opts.ChapterConcurrency < 1 {
		opts.ChapterConcurrency = 1
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Assembler{
		gen:    gen,
		opts:   opts,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"component": "report-assembler"}),
	}
}

// Assemble builds the report context. A failing chapter is replaced by an inline error marker;
// assembly itself only fails on a nil briefing.
func (a *Assembler) Assemble(ctx context.Context, b *models.Briefing, lang string) (*models.ReportContext, error) {
	if b == nil {
		return nil, fmt.Errorf("briefing is required")
	}
	if lang == "" {
		lang = b.Sprache
	}
	start := time.Now()

	rc := a.newContext(b, lang)
	ctx, span := a.obs.StartSpan(ctx, "report.assemble",
		attribute.String("language", rc.Language),
		attribute.String("industry", rc.Industry),
	)
	defer span.End()

	log := a.logger.WithFields(map[string]interface{}{
		"industry": rc.Industry,
		"lang":     rc.Language,
	})
	log.Info("Assembling report", map[string]interface{}{
		"score":          rc.ScorePercent,
		"readinessLevel": rc.ReadinessLevel,
		"selfEmployed":   rc.IsSelfEmployed,
	})

	chapters := SelectChapters(b)
	rc.Chapters = a.generateChapters(ctx, rc, chapters)
	for _, res := range rc.Chapters {
		if res.Failed() {
			rc.SetSection(res.Chapter.HTMLKey(), errorMarker(res.Chapter, rc.Language))
			continue
		}
		rc.SetSection(res.Chapter.HTMLKey(), res.HTML)
	}

	a.distill(ctx, rc)

	rc.PrefaceHTML = preface(rc)
	rc.SectionsHTML = composeSections(rc)

	failed := rc.FailedChapters()
	if len(failed) > 0 {
		span.SetAttributes(attribute.Int("chapters.failed", len(failed)))
	}
	a.obs.RecordReportDuration(ctx, time.Since(start), rc.Language)
	log.Info("Report assembled", map[string]interface{}{
		"chapters":       len(rc.Chapters),
		"failedChapters": len(failed),
		"duration":       time.Since(start).String(),
	})
	return rc, nil
}

// SelectChapters returns the chapters in display order; funding only on interest.
func SelectChapters(b *models.Briefing) []models.Chapter {
	out := []models.Chapter{models.ChapterExecutiveSummary, models.ChapterTools}
	if scoring.WantsFunding(b) {
		out = append(out, models.ChapterFunding)
	}
	return append(out, models.ChapterRoadmap, models.ChapterCompliance, models.ChapterCaseStudy)
}

func (a *Assembler) newContext(b *models.Briefing, lang string) *models.ReportContext {
	rc := models.NewReportContext(lang)
	rc.Briefing = b
	rc.Industry = b.Branche
	if rc.Industry == "" {
		rc.Industry = "default"
	}
	rc.CompanySize = b.Unternehmensgroesse
	if inds := a.gen.Industries(); inds != nil {
		rc.IndustryDefaults = inds.Lookup(rc.Industry).Vars(rc.Language)
	}
	rc.IsSelfEmployed = sections.IsSelfEmployed(b)
	rc.ScorePercent = scoring.ReadinessScore(b)
	rc.ReadinessLevel = scoring.ReadinessLevel(rc.ScorePercent, rc.Language)
	rc.BusinessCase = scoring.BusinessCase(b, rc.ScorePercent)
	rc.KPI = scoring.KPIs(b, rc.BusinessCase)
	rc.HasDataProtectionOfficer = scoring.HasDataProtectionOfficer(b)
	return rc
}

// facts are the computed values offered to every prompt.
func facts(rc *models.ReportContext) map[string]interface{} {
	return map[string]interface{}{
		"score_percent":    rc.ScorePercent,
		"readiness_level":  rc.ReadinessLevel,
		"investment":       scoring.FormatEuro(rc.BusinessCase.Investment, rc.Language),
		"annual_saving":    scoring.FormatEuro(rc.BusinessCase.AnnualSaving, rc.Language),
		"roi_months":       rc.KPI.ROIMonths,
		"efficiency_gain":  rc.KPI.EfficiencyGainPercent,
		"compliance_score": rc.KPI.ComplianceScore,
		"automation_level": rc.KPI.AutomationLevel,
	}
}

// generateChapters runs chapters under the concurrency limit. Results are slotted by index so
// the order matches the input regardless of completion order.
func (a *Assembler) generateChapters(ctx context.Context, rc *models.ReportContext, chapters []models.Chapter) []models.ChapterResult {
	results := make([]models.ChapterResult, len(chapters))
	f := facts(rc)

	var g errgroup.Group
	g.SetLimit(a.opts.ChapterConcurrency)
	for i, ch := range chapters {
		i, ch := i, ch
		g.Go(func() error {
			results[i] = a.generateChapter(ctx, rc, ch, f)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *Assembler) generateChapter(ctx context.Context, rc *models.ReportContext, ch models.Chapter, f map[string]interface{}) models.ChapterResult {
	ctx, span := a.obs.StartSpan(ctx, "report.chapter", attribute.String("chapter", string(ch)))
	defer span.End()

	res, err := a.gen.Generate(ctx, sections.Request{
		Briefing: rc.Briefing,
		Industry: rc.Industry,
		Chapter:  ch,
		Language: rc.Language,
		Facts:    f,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chapter generation failed")
		metrics.ChaptersGenerated.WithLabelValues(string(ch), "error").Inc()
		a.logger.Error("Chapter generation failed", map[string]interface{}{
			"chapter": string(ch),
			"error":   err.Error(),
		})
		return models.ChapterFailed(ch, err)
	}

	outcome := "ok"
	if res.Fallback || res.PromptMissing {
		outcome = "fallback"
	}
	metrics.ChaptersGenerated.WithLabelValues(string(ch), outcome).Inc()

	out := models.ChapterOK(ch, res.HTML)
	out.Fallback = res.Fallback || res.PromptMissing
	return out
}

// Regenerate re-runs whatever produced a section key: its chapter, or its distillation.
// The context is only updated on success.
func (a *Assembler) Regenerate(ctx context.Context, rc *models.ReportContext, key string) error {
	if rc.Briefing == nil {
		return fmt.Errorf("regenerate %s: report context carries no briefing", key)
	}

	if ch, ok := models.ChapterForKey(key); ok {
		res := a.generateChapter(ctx, rc, ch, facts(rc))
		if res.Failed() {
			return fmt.Errorf("regenerate %s: %s", key, res.Error)
		}
		rc.SetSection(key, res.HTML)
		replaced := false
		for i := range rc.Chapters {
			if rc.Chapters[i].Chapter == ch {
				rc.Chapters[i] = res
				replaced = true
			}
		}
		if !replaced {
			rc.Chapters = append(rc.Chapters, res)
		}
		rc.SectionsHTML = composeSections(rc)
		return nil
	}

	for _, d := range distillations {
		if d.key != key {
			continue
		}
		html, err := a.runDistillation(ctx, rc, d)
		if err != nil {
			return fmt.Errorf("regenerate %s: %w", key, err)
		}
		rc.SetSection(key, html)
		return nil
	}
	return fmt.Errorf("regenerate %s: unknown section", key)
}
