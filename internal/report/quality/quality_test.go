package quality

import (
	"context"
	"errors"
	"testing"

	"report-workers/internal/common/logger"
	"report-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	goodExecSummary = "<p>Ihr Unternehmen nutzt bereits digitale Werkzeuge in vielen Bereichen des täglichen Geschäfts. " +
		"Jetzt sollten Sie einen klar umrissenen Pilotfall mit messbarem Nutzen auswählen und starten.</p>"
	goodQuickWins       = "<ul><li>ChatGPT Team für Angebotsentwürfe einführen: 2 Tage Aufwand, 25 € pro Monat.</li></ul>"
	goodRoadmap         = "<h3>Roadmap</h3><ul><li>0–3 Monate: Pilot mit einem Budget von 6.000 € starten.</li></ul>"
	goodRisks           = "<ul><li>Datenqualität: unvollständige Daten führen zu falschen Ergebnissen.</li></ul>"
	goodRecommendations = "<ol><li>Benennen Sie eine verantwortliche Person für KI.</li><li>Starten Sie den Pilot.</li></ol>"
)

func goodContext() *models.ReportContext {
	rc := models.NewReportContext("de")
	rc.Industry = "beratung"
	rc.ScorePercent = 72
	rc.ReadinessLevel = "Reif"
	rc.BusinessCase = models.BusinessCase{Investment: 6000, AnnualSaving: 10200}
	rc.KPI = models.KPI{ROIMonths: 7, EfficiencyGainPercent: 16, ComplianceScore: 80, AutomationLevel: 60}
	rc.HasDataProtectionOfficer = true
	rc.PrefaceHTML = "<p>Vorwort</p>"
	rc.SetSection(models.KeyExecSummary, goodExecSummary)
	rc.SetSection(models.KeyQuickWins, goodQuickWins)
	rc.SetSection(models.KeyRoadmap, goodRoadmap)
	rc.SetSection(models.KeyRisks, goodRisks)
	rc.SetSection(models.KeyRecommendations, goodRecommendations)
	return rc
}

func findCheck(t *testing.T, checks []models.QualityCheck, name string) models.QualityCheck {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c
		}
	}
	require.Failf(t, "check not found", "no check named %q", name)
	return models.QualityCheck{}
}

func TestValidate_GoodReportIsReady(t *testing.T) {
	verdict := NewValidator().Validate(goodContext())

	for _, c := range verdict.Checks {
		assert.True(t, c.Passed, "%s: %s", c.Name, c.Message)
	}
	assert.Equal(t, 100.0, verdict.Score)
	assert.Equal(t, models.LevelGoldStandard, verdict.Level)
	assert.True(t, verdict.Passed)
	assert.True(t, verdict.ReadyForDelivery)
	assert.Empty(t, verdict.CriticalIssues)
	assert.Empty(t, verdict.Suggestions)
}

func TestChecks(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(rc *models.ReportContext)
		check    CheckFunc
		checkFor string
		passed   bool
		severity models.Severity
		kind     models.CheckKind
	}{
		{
			name:     "roi drift above two months",
			mutate:   func(rc *models.ReportContext) { rc.KPI.ROIMonths = 10 },
			check:    DataIntegrity,
			checkFor: "ROI-Berechnung konsistent",
			severity: models.SeverityMajor,
			kind:     models.KindROI,
		},
		{
			name:     "roi drift above six months is critical",
			mutate:   func(rc *models.ReportContext) { rc.KPI.ROIMonths = 15 },
			check:    DataIntegrity,
			checkFor: "ROI-Berechnung konsistent",
			severity: models.SeverityCritical,
			kind:     models.KindROI,
		},
		{
			name: "roi drift just below two months against fractional payback",
			mutate: func(rc *models.ReportContext) {
				rc.BusinessCase = models.BusinessCase{Investment: 10000, AnnualSaving: 7000}
				rc.KPI.ROIMonths = 19.1
			},
			check:    DataIntegrity,
			checkFor: "ROI-Berechnung konsistent",
			passed:   true,
			severity: models.SeverityMajor,
			kind:     models.KindROI,
		},
		{
			name: "roi drift just above two months against fractional payback",
			mutate: func(rc *models.ReportContext) {
				rc.BusinessCase = models.BusinessCase{Investment: 10000, AnnualSaving: 7000}
				rc.KPI.ROIMonths = 19.2
			},
			check:    DataIntegrity,
			checkFor: "ROI-Berechnung konsistent",
			severity: models.SeverityMajor,
			kind:     models.KindROI,
		},
		{
			name: "roi drift just below six months stays major",
			mutate: func(rc *models.ReportContext) {
				rc.BusinessCase = models.BusinessCase{Investment: 10000, AnnualSaving: 7000}
				rc.KPI.ROIMonths = 23.1
			},
			check:    DataIntegrity,
			checkFor: "ROI-Berechnung konsistent",
			severity: models.SeverityMajor,
			kind:     models.KindROI,
		},
		{
			name: "roi drift just above six months is critical",
			mutate: func(rc *models.ReportContext) {
				rc.BusinessCase = models.BusinessCase{Investment: 10000, AnnualSaving: 7000}
				rc.KPI.ROIMonths = 23.2
			},
			check:    DataIntegrity,
			checkFor: "ROI-Berechnung konsistent",
			severity: models.SeverityCritical,
			kind:     models.KindROI,
		},
		{
			name:     "mojibake is critical",
			mutate:   func(rc *models.ReportContext) { rc.SetSection(models.KeyRisks, "<p>GeschÃ¤ftsfÃ¼hrung</p>") },
			check:    DataIntegrity,
			checkFor: "Zeichenkodierung korrekt",
			severity: models.SeverityCritical,
			kind:     models.KindEncoding,
		},
		{
			name:     "readiness label mismatch",
			mutate:   func(rc *models.ReportContext) { rc.ReadinessLevel = "Führend" },
			check:    Consistency,
			checkFor: "Reifegrad passt zum Score",
			severity: models.SeverityMajor,
			kind:     models.KindConsistency,
		},
		{
			name:     "investment absent from roadmap",
			mutate:   func(rc *models.ReportContext) { rc.SetSection(models.KeyRoadmap, "<p>Ein Pilotprojekt im ersten Quartal starten und auswerten.</p>") },
			check:    Consistency,
			checkFor: "Investition in Roadmap genannt",
			severity: models.SeverityMinor,
			kind:     models.KindConsistency,
		},
		{
			name:     "english investment spelling counts",
			mutate:   func(rc *models.ReportContext) { rc.SetSection(models.KeyRoadmap, "<p>Budget: EUR 6,000 for the pilot in the first quarter.</p>") },
			check:    Consistency,
			checkFor: "Investition in Roadmap genannt",
			passed:   true,
			severity: models.SeverityMinor,
			kind:     models.KindConsistency,
		},
		{
			name:     "roi factor above five is critical",
			mutate:   func(rc *models.ReportContext) { rc.BusinessCase.AnnualSaving = 36000 },
			check:    Plausibility,
			checkFor: "ROI-Faktor plausibel",
			severity: models.SeverityCritical,
			kind:     models.KindPlausibility,
		},
		{
			name:     "roi factor of exactly five is major",
			mutate:   func(rc *models.ReportContext) { rc.BusinessCase.AnnualSaving = 30000 },
			check:    Plausibility,
			checkFor: "ROI-Faktor plausibel",
			severity: models.SeverityMajor,
			kind:     models.KindPlausibility,
		},
		{
			name:     "roi factor below half",
			mutate:   func(rc *models.ReportContext) { rc.BusinessCase.AnnualSaving = 2400 },
			check:    Plausibility,
			checkFor: "ROI-Faktor plausibel",
			severity: models.SeverityMajor,
			kind:     models.KindPlausibility,
		},
		{
			name:     "efficiency gain beyond headroom",
			mutate:   func(rc *models.ReportContext) { rc.KPI.EfficiencyGainPercent = 50 },
			check:    Plausibility,
			checkFor: "Effizienzgewinn realistisch",
			severity: models.SeverityMajor,
			kind:     models.KindPlausibility,
		},
		{
			name:     "missing section is critical",
			mutate:   func(rc *models.ReportContext) { delete(rc.Sections, models.KeyRisks) },
			check:    Completeness,
			checkFor: "Abschnitt vorhanden: risks_html",
			severity: models.SeverityCritical,
			kind:     models.KindMissingSection,
		},
		{
			name:     "chapter error marker counts as missing",
			mutate:   func(rc *models.ReportContext) { rc.SetSection(models.KeyRoadmap, `<div class="chapter-error" data-chapter="roadmap"><p>Das Kapitel konnte nicht erstellt werden.</p></div>`) },
			check:    Completeness,
			checkFor: "Abschnitt vorhanden: roadmap_html",
			severity: models.SeverityCritical,
			kind:     models.KindMissingSection,
		},
		{
			name:     "empty section is major",
			mutate:   func(rc *models.ReportContext) { rc.SetSection(models.KeyQuickWins, "") },
			check:    Completeness,
			checkFor: "Abschnitt vorhanden: quick_wins_html",
			severity: models.SeverityMajor,
			kind:     models.KindShortSection,
		},
		{
			name: "long sentences",
			mutate: func(rc *models.ReportContext) {
				rc.SetSection(models.KeyExecSummary, "<p>Ihr Unternehmen nutzt bereits digitale Werkzeuge in vielen Bereichen des täglichen Geschäfts "+
					"und sollte deshalb jetzt einen klar umrissenen Pilotfall mit messbarem Nutzen auswählen und diesen konsequent starten.</p>")
			},
			check:    LanguageQuality,
			checkFor: "Satzlänge angemessen",
			severity: models.SeverityMinor,
			kind:     models.KindLanguage,
		},
		{
			name: "passive voice",
			mutate: func(rc *models.ReportContext) {
				rc.SetSection(models.KeyExecSummary, "<p>Der Prozess wird digitalisiert und danach wird er geprüft. "+
					"Die Daten werden bereinigt, sie wurden bisher kaum gepflegt und sind nie geprüft worden.</p>")
			},
			check:    LanguageQuality,
			checkFor: "Aktive Formulierungen",
			severity: models.SeverityMinor,
			kind:     models.KindLanguage,
		},
		{
			name: "low compliance without officer is critical",
			mutate: func(rc *models.ReportContext) {
				rc.KPI.ComplianceScore = 40
				rc.HasDataProtectionOfficer = false
			},
			check:    Compliance,
			checkFor: "Datenschutz-Risiken adressiert",
			severity: models.SeverityCritical,
			kind:     models.KindCompliance,
		},
		{
			name:     "low compliance with officer passes",
			mutate:   func(rc *models.ReportContext) { rc.KPI.ComplianceScore = 40 },
			check:    Compliance,
			checkFor: "Datenschutz-Risiken adressiert",
			passed:   true,
			severity: models.SeverityCritical,
			kind:     models.KindCompliance,
		},
		{
			name:     "vague quick wins",
			mutate:   func(rc *models.ReportContext) { rc.SetSection(models.KeyQuickWins, "<ul><li>Einfach loslegen und ausprobieren.</li></ul>") },
			check:    Actionability,
			checkFor: "Sofortschritte umsetzbar",
			severity: models.SeverityMajor,
			kind:     models.KindActionability,
		},
		{
			name:     "two of three signals suffice",
			mutate:   func(rc *models.ReportContext) { rc.SetSection(models.KeyQuickWins, "<ul><li>DeepL für Übersetzungen testen, in 3 Wochen auswerten.</li></ul>") },
			check:    Actionability,
			checkFor: "Sofortschritte umsetzbar",
			passed:   true,
			severity: models.SeverityMajor,
			kind:     models.KindActionability,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := goodContext()
			tt.mutate(rc)

			c := findCheck(t, tt.check(rc), tt.checkFor)
			assert.Equal(t, tt.passed, c.Passed, c.Message)
			assert.Equal(t, tt.severity, c.Severity)
			assert.Equal(t, tt.kind, c.Kind)
		})
	}
}

func TestAggregate(t *testing.T) {
	checks := []models.QualityCheck{
		{Name: "a", Passed: true, Score: 100, Severity: models.SeverityCritical},
		{Name: "b", Passed: false, Score: 0, Severity: models.SeverityMajor, Kind: models.KindShortSection},
		{Name: "c", Passed: true, Score: 100, Severity: models.SeverityMinor},
	}
	verdict := Aggregate(checks, "en")

	assert.InDelta(t, 66.67, verdict.Score, 0.01)
	assert.Equal(t, models.LevelAcceptable, verdict.Level)
	assert.True(t, verdict.Passed)
	assert.False(t, verdict.ReadyForDelivery)
	assert.Equal(t, []string{"Expand sections that are too short."}, verdict.Suggestions)
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  models.QualityLevel
	}{
		{0, models.LevelFailed},
		{49.9, models.LevelFailed},
		{50, models.LevelPoor},
		{65, models.LevelAcceptable},
		{75, models.LevelGood},
		{85, models.LevelExcellent},
		{95, models.LevelGoldStandard},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.score), "score %v", tt.score)
	}
}

type fakeRegenerator struct {
	err   error
	keys  []string
	write string
}

func (f *fakeRegenerator) Regenerate(ctx context.Context, rc *models.ReportContext, key string) error {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return f.err
	}
	rc.SetSection(key, f.write)
	return nil
}

func TestReview_PassesWithoutRemediation(t *testing.T) {
	rc := goodContext()
	verdict := NewReviewer(nil, nil, logger.NewTestLogger(t)).Review(context.Background(), rc)

	assert.Equal(t, 1, verdict.Attempts)
	assert.False(t, verdict.Remediated)
	require.NotNil(t, rc.QualityBadge)
	assert.True(t, rc.QualityBadge.ReadyForDelivery)
}

func TestReview_RecomputesROI(t *testing.T) {
	rc := goodContext()
	rc.KPI.ROIMonths = 20

	verdict := NewReviewer(nil, nil, logger.NewTestLogger(t)).Review(context.Background(), rc)

	assert.InDelta(t, 6000/850.0, rc.KPI.ROIMonths, 1e-9)
	assert.Equal(t, 2, verdict.Attempts)
	assert.True(t, verdict.Remediated)
	assert.True(t, verdict.ReadyForDelivery)
	assert.True(t, rc.QualityBadge.Remediated)
}

func TestReview_RepairsEncoding(t *testing.T) {
	rc := goodContext()
	rc.SetSection(models.KeyRisks, "<ul><li>Die GeschÃ¤ftsfÃ¼hrung muss Datenqualität und Zuständigkeiten früh klären.</li></ul>")

	verdict := NewReviewer(nil, nil, logger.NewTestLogger(t)).Review(context.Background(), rc)

	risks, _ := rc.Section(models.KeyRisks)
	assert.Contains(t, risks, "Geschäftsführung")
	assert.True(t, verdict.ReadyForDelivery)
	assert.Equal(t, 2, verdict.Attempts)
}

func TestReview_RegeneratesMissingSection(t *testing.T) {
	rc := goodContext()
	delete(rc.Sections, models.KeyRisks)
	regen := &fakeRegenerator{write: goodRisks}

	verdict := NewReviewer(nil, regen, logger.NewTestLogger(t)).Review(context.Background(), rc)

	assert.Equal(t, []string{models.KeyRisks}, regen.keys)
	assert.True(t, verdict.ReadyForDelivery)
	assert.Equal(t, 2, verdict.Attempts)
}

func TestReview_FailedRemediationStillAttachesBadge(t *testing.T) {
	rc := goodContext()
	delete(rc.Sections, models.KeyRisks)
	regen := &fakeRegenerator{err: errors.New("llm down")}

	verdict := NewReviewer(nil, regen, logger.NewTestLogger(t)).Review(context.Background(), rc)

	assert.False(t, verdict.Remediated)
	assert.Equal(t, 1, verdict.Attempts)
	assert.False(t, verdict.ReadyForDelivery)
	require.NotNil(t, rc.QualityBadge)
	assert.Equal(t, 1, rc.QualityBadge.CriticalIssues)
}

func TestReview_NoFixerForCompliance(t *testing.T) {
	rc := goodContext()
	rc.KPI.ComplianceScore = 30
	rc.HasDataProtectionOfficer = false

	verdict := NewReviewer(nil, nil, logger.NewNoOpLogger()).Review(context.Background(), rc)

	assert.Equal(t, 1, verdict.Attempts)
	assert.False(t, verdict.ReadyForDelivery)
	require.Len(t, verdict.CriticalIssues, 1)
	assert.Equal(t, models.KindCompliance, verdict.CriticalIssues[0].Kind)
}
