package assembler

import (
	"context"
	"sync"

	"report-workers/internal/common/metrics"
	"report-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// distillation is a follow-up prompt over already generated chapters.
type distillation struct {
	key    string
	prompt string
	inputs []string
	// fallback is used when the call fails.
	fallback func(rc *models.ReportContext) string
}

func empty(*models.ReportContext) string { return "" }

var distillations = []distillation{
	{
		key:      models.KeyQuickWins,
		prompt:   "quick_wins",
		inputs:   []string{models.KeyExecSummary, models.KeyRoadmap},
		fallback: empty,
	},
	{
		key:      models.KeyRisks,
		prompt:   "risks",
		inputs:   []string{models.KeyExecSummary, models.KeyRoadmap},
		fallback: empty,
	},
	{
		key:    models.KeyRecommendations,
		prompt: "recommendations",
		inputs: []string{models.KeyRoadmap, models.KeyCompliance},
		fallback: func(rc *models.ReportContext) string {
			html, _ := rc.Section(models.KeyRoadmap)
			return html
		},
	},
}

// distill runs after every chapter is in place. The calls are independent of each other.
func (a *Assembler) distill(ctx context.Context, rc *models.ReportContext) {
	var (
		mu  sync.Mutex
		out = make(map[string]string, len(distillations))
	)

	var g errgroup.Group
	g.SetLimit(a.opts.ChapterConcurrency)
	for _, d := range distillations {
		d := d
		g.Go(func() error {
			html, err := a.runDistillation(ctx, rc, d)
			if err != nil {
				metrics.DistillationFallbacks.WithLabelValues(d.key).Inc()
				a.logger.Warn("Distillation failed, using fallback", map[string]interface{}{
					"section": d.key,
					"error":   err.Error(),
				})
				html = d.fallback(rc)
			}
			mu.Lock()
			out[d.key] = html
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for key, html := range out {
		rc.SetSection(key, html)
	}
}

func (a *Assembler) runDistillation(ctx context.Context, rc *models.ReportContext, d distillation) (string, error) {
	ctx, span := a.obs.StartSpan(ctx, "report.distill", attribute.String("section", d.key))
	defer span.End()

	vars := a.gen.PromptVars(rc.Briefing, rc.Industry, rc.Language, facts(rc))
	for _, in := range d.inputs {
		html, _ := rc.Section(in)
		vars[in] = html
	}
	html, err := a.gen.Distill(ctx, d.prompt, rc.Language, vars, a.opts.DistillTimeout)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return html, nil
}
