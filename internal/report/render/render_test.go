package render

import (
	"strings"
	"testing"
	"time"

	"report-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContext(lang string) *models.ReportContext {
	rc := models.NewReportContext(lang)
	rc.Industry = "beratung"
	rc.IndustryDefaults = map[string]interface{}{"branchen_label": "Beratung & Dienstleistungen"}
	rc.CompanySize = "kmu"
	rc.ScorePercent = 64
	rc.ReadinessLevel = "Fortgeschritten"
	rc.BusinessCase = models.BusinessCase{Investment: 6000, AnnualSaving: 10200}
	rc.KPI = models.KPI{ROIMonths: 7, EfficiencyGainPercent: 16, ComplianceScore: 80}
	rc.PrefaceHTML = `<p class="preface">Vorwort</p>`
	rc.SetSection(models.KeyExecSummary, "<p>Zusammenfassung</p>")
	rc.SetSection(models.KeyQuickWins, "<ul><li>ChatGPT Team testen</li></ul>")
	rc.SetSection(models.KeyRisks, "<ul><li>Datenqualität</li></ul>")
	rc.SetSection(models.KeyRoadmap, "<ul><li>0–3 Monate: Pilot</li></ul>")
	rc.SetSection(models.KeyRecommendations, "<ol><li>Pilot starten</li></ol>")
	rc.SectionsHTML = `<section class="chapter" id="tools"><h2>Empfohlene KI-Tools</h2><p>Tools</p></section>`
	return rc
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC) }
	return r
}

func TestRender_German(t *testing.T) {
	r := newRenderer(t)
	rc := sampleContext("de")
	rc.QualityBadge = &models.QualityBadge{Level: models.LevelGood, Score: 81.4, ReadyForDelivery: true}

	html, err := r.Render(rc, "de")
	require.NoError(t, err)

	assert.Greater(t, len(html), 1000)
	assert.Contains(t, html, `<html lang="de">`)
	assert.Contains(t, html, "<h2>Sichere Sofortschritte</h2>")
	assert.Contains(t, html, "<h2>Roadmap</h2>")
	assert.Contains(t, html, "<ul><li>ChatGPT Team testen</li></ul>")
	assert.Contains(t, html, "Beratung &amp; Dienstleistungen")
	assert.Contains(t, html, "Stand 09.03.2026")
	assert.Contains(t, html, `class="badge ready"`)
	assert.Contains(t, html, "Qualitätsprüfung: GOOD (81 / 100)")
	assert.Contains(t, html, "6.000 €")
	assert.Contains(t, html, "7 Monate")
	assert.Contains(t, html, `<section class="chapter" id="tools">`)
	assert.False(t, strings.Contains(html[:400], "{{"))
}

func TestRender_EnglishAndFallbackLanguage(t *testing.T) {
	r := newRenderer(t)
	rc := sampleContext("en")

	html, err := r.Render(rc, "")
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>Secure quick steps</h2>")
	assert.Contains(t, html, "<h2>Roadmap</h2>")
	assert.Contains(t, html, "as of 9 March 2026")
	assert.Contains(t, html, "6,000 €")
	assert.NotContains(t, html, `class="badge`)

	html, err = r.Render(rc, "fr")
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>Sichere Sofortschritte</h2>")
}

func TestRender_NilContext(t *testing.T) {
	_, err := newRenderer(t).Render(nil, "de")
	assert.Error(t, err)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "7", formatNumber(7))
	assert.Equal(t, "17.1", formatNumber(10000/(7000/12.0)))
	assert.Equal(t, "64", formatNumber(64.04))
}
