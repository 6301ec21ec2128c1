// Package quality scores an assembled report against a fixed rubric and applies one bounded
// remediation pass before delivery.
package quality

import (
	"report-workers/internal/models"
)

var suggestions = map[models.CheckKind]map[string]string{
	models.KindEncoding: {
		"de": "Zeichenkodierung der Abschnitte reparieren.",
		"en": "Repair the character encoding of the sections.",
	},
	models.KindROI: {
		"de": "ROI-Angabe aus Investition und Einsparung neu berechnen.",
		"en": "Recompute the ROI from investment and saving.",
	},
	models.KindConsistency: {
		"de": "Reifegrad und Investitionssumme im Text an die Kennzahlen angleichen.",
		"en": "Align readiness level and investment figure in the text with the KPIs.",
	},
	models.KindPlausibility: {
		"de": "Einsparungs- und Effizienzannahmen realistisch ansetzen.",
		"en": "Use realistic saving and efficiency assumptions.",
	},
	models.KindMissingSection: {
		"de": "Fehlende Pflichtabschnitte neu generieren.",
		"en": "Regenerate missing required sections.",
	},
	models.KindShortSection: {
		"de": "Zu kurze Abschnitte ausführlicher formulieren.",
		"en": "Expand sections that are too short.",
	},
	models.KindLanguage: {
		"de": "Kürzere, aktive Sätze verwenden.",
		"en": "Use shorter sentences in active voice.",
	},
	models.KindCompliance: {
		"de": "Datenschutzbeauftragten benennen und DSGVO-Maßnahmen priorisieren.",
		"en": "Appoint a data protection officer and prioritise GDPR measures.",
	},
	models.KindActionability: {
		"de": "Sofortschritte mit Tool, Zeitrahmen und Kosten konkretisieren.",
		"en": "Name a tool, time frame and cost for every quick step.",
	},
}

// Validator runs check groups and aggregates them into a verdict.
type Validator struct {
	checks []CheckFunc
}

// NewValidator uses DefaultChecks when none are given.
func NewValidator(checks ...CheckFunc) *Validator {
	if len(checks) == 0 {
		checks = DefaultChecks
	}
	return &Validator{checks: checks}
}

// Validate scores the context. It never modifies it.
func (v *Validator) Validate(rc *models.ReportContext) *models.QualityVerdict {
	var all []models.QualityCheck
	for _, check := range v.checks {
		all = append(all, check(rc)...)
	}
	return Aggregate(all, rc.Language)
}

// Aggregate weighs each check score by severity and maps the result to a level.
func Aggregate(checks []models.QualityCheck, lang string) *models.QualityVerdict {
	verdict := &models.QualityVerdict{
		Checks:         checks,
		CriticalIssues: []models.QualityCheck{},
		Suggestions:    []string{},
	}

	var weighted, total float64
	seen := make(map[models.CheckKind]bool)
	for _, c := range checks {
		w := c.Severity.Weight()
		weighted += c.Score * w
		total += w
		if c.Passed {
			continue
		}
		if c.Severity == models.SeverityCritical {
			verdict.CriticalIssues = append(verdict.CriticalIssues, c)
		}
		if !seen[c.Kind] {
			seen[c.Kind] = true
			if s := suggestion(c.Kind, lang); s != "" {
				verdict.Suggestions = append(verdict.Suggestions, s)
			}
		}
	}

	verdict.Score = 100
	if total > 0 {
		verdict.Score = weighted / total
	}
	verdict.Level = LevelFor(verdict.Score)
	verdict.Passed = verdict.Level.AtLeast(models.LevelAcceptable)
	verdict.ReadyForDelivery = verdict.Level.AtLeast(models.LevelGood) && len(verdict.CriticalIssues) == 0
	return verdict
}

// LevelFor maps a 0–100 score: <50 FAILED, <65 POOR, <75 ACCEPTABLE, <85 GOOD, <95 EXCELLENT.
func LevelFor(score float64) models.QualityLevel {
	switch {
	case score < 50:
		return models.LevelFailed
	case score < 65:
		return models.LevelPoor
	case score < 75:
		return models.LevelAcceptable
	case score < 85:
		return models.LevelGood
	case score < 95:
		return models.LevelExcellent
	default:
		return models.LevelGoldStandard
	}
}

func suggestion(kind models.CheckKind, lang string) string {
	byLang, ok := suggestions[kind]
	if !ok {
		return ""
	}
	if s, ok := byLang[lang]; ok {
		return s
	}
	return byLang["de"]
}
