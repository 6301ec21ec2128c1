// Package render merges a report context into the localized HTML document.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"time"

	"report-workers/internal/models"
	"report-workers/internal/report/scoring"
)

//go:embed templates/*.html
var templateFS embed.FS

var dateLayouts = map[string]string{
	"de": "02.01.2006",
	"en": "2 January 2006",
}

var kpiLabels = map[string][4]string{
	"de": {"Investition", "Amortisation", "Effizienzgewinn", "Compliance"},
	"en": {"Investment", "Payback", "Efficiency gain", "Compliance"},
}

type kpiView struct {
	Label string
	Value string
}

type badgeView struct {
	Level      string
	Score      string
	Class      string
	Remediated bool
}

type view struct {
	Industry        string
	CompanySize     string
	Date            string
	Score           string
	Level           string
	Preface         template.HTML
	ExecSummary     template.HTML
	QuickWins       template.HTML
	Risks           template.HTML
	Roadmap         template.HTML
	Recommendations template.HTML
	Sections        template.HTML
	KPIs            []kpiView
	Badge           *badgeView
}

// Renderer holds the parsed templates; it is safe for concurrent use.
type Renderer struct {
	templates map[string]*template.Template
	now       func() time.Time
}

func New() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template), now: time.Now}
	for _, lang := range []string{"de", "en"} {
		name := "templates/report_" + lang + ".html"
		tmpl, err := template.ParseFS(templateFS, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.templates[lang] = tmpl
	}
	return r, nil
}

// Render produces the final document. Section HTML is inserted verbatim; an empty lang uses
// the context language and unknown languages use German.
func (r *Renderer) Render(rc *models.ReportContext, lang string) (string, error) {
	if rc == nil {
		return "", fmt.Errorf("render report: context is nil")
	}
	if lang == "" {
		lang = rc.Language
	}
	tmpl, ok := r.templates[lang]
	if !ok {
		lang = "de"
		tmpl = r.templates[lang]
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r.view(rc, lang)); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) view(rc *models.ReportContext, lang string) view {
	section := func(key string) template.HTML {
		html, _ := rc.Section(key)
		return template.HTML(html)
	}

	industry := rc.Industry
	if label, ok := rc.IndustryDefaults["branchen_label"].(string); ok && label != "" {
		industry = label
	}

	v := view{
		Industry:        industry,
		CompanySize:     rc.CompanySize,
		Date:            r.now().Format(dateLayouts[lang]),
		Score:           formatNumber(rc.ScorePercent),
		Level:           rc.ReadinessLevel,
		Preface:         template.HTML(rc.PrefaceHTML),
		ExecSummary:     section(models.KeyExecSummary),
		QuickWins:       section(models.KeyQuickWins),
		Risks:           section(models.KeyRisks),
		Roadmap:         section(models.KeyRoadmap),
		Recommendations: section(models.KeyRecommendations),
		Sections:        template.HTML(rc.SectionsHTML),
		KPIs:            kpis(rc, lang),
	}

	if b := rc.QualityBadge; b != nil {
		class := "review"
		if b.ReadyForDelivery {
			class = "ready"
		}
		v.Badge = &badgeView{
			Level:      string(b.Level),
			Score:      strconv.FormatFloat(b.Score, 'f', 0, 64),
			Class:      class,
			Remediated: b.Remediated,
		}
	}
	return v
}

func kpis(rc *models.ReportContext, lang string) []kpiView {
	labels := kpiLabels[lang]
	months := "Monate"
	if lang == "en" {
		months = "months"
	}

	var out []kpiView
	if rc.BusinessCase.Investment > 0 {
		out = append(out, kpiView{labels[0], scoring.FormatEuro(rc.BusinessCase.Investment, lang) + " €"})
	}
	if rc.KPI.ROIMonths > 0 {
		out = append(out, kpiView{labels[1], formatNumber(rc.KPI.ROIMonths) + " " + months})
	}
	out = append(out,
		kpiView{labels[2], formatNumber(rc.KPI.EfficiencyGainPercent) + " %"},
		kpiView{labels[3], formatNumber(rc.KPI.ComplianceScore) + " / 100"},
	)
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(math.Round(f*10)/10, 'f', -1, 64)
}
