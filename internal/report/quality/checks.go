package quality

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"report-workers/internal/models"
	"report-workers/internal/report/scoring"
	"report-workers/internal/report/textclean"
)

// MinSectionLength is the minimum length of a required section, in characters.
const MinSectionLength = 50

const (
	roiDriftMajor    = 2.0
	roiDriftCritical = 6.0
	roiFactorMin     = 0.5
	roiFactorMax     = 4.0
	roiFactorCrit    = 5.0
	headroomShare    = 0.8
	complianceFloor  = 60.0
	actionableFloor  = 66.0
	passiveLimit     = 5
	minSentenceWords = 10.0
	maxSentenceWords = 20.0
)

// CheckFunc is one check group.
type CheckFunc func(rc *models.ReportContext) []models.QualityCheck

// DefaultChecks are the seven check groups in evaluation order.
var DefaultChecks = []CheckFunc{
	DataIntegrity,
	Consistency,
	Plausibility,
	Completeness,
	LanguageQuality,
	Compliance,
	Actionability,
}

func pass(name string, kind models.CheckKind, sev models.Severity) models.QualityCheck {
	return models.QualityCheck{Name: name, Kind: kind, Passed: true, Score: 100, Severity: sev}
}

func fail(name string, kind models.CheckKind, sev models.Severity, score float64, msg string) models.QualityCheck {
	return models.QualityCheck{
		Name:     name,
		Kind:     kind,
		Passed:   false,
		Score:    math.Max(0, math.Min(100, score)),
		Severity: sev,
		Message:  msg,
	}
}

// StringEntries lists every string-valued context entry keyed by a field path.
func StringEntries(rc *models.ReportContext) map[string]string {
	out := map[string]string{
		"preface_html":    rc.PrefaceHTML,
		"sections_html":   rc.SectionsHTML,
		"readiness_level": rc.ReadinessLevel,
		"industry":        rc.Industry,
		"company_size":    rc.CompanySize,
	}
	for k, v := range rc.Sections {
		out["sections."+k] = v
	}
	for k, v := range rc.IndustryDefaults {
		if s, ok := v.(string); ok {
			out["industry_defaults."+k] = s
		}
	}
	for k, v := range rc.Extras {
		if s, ok := v.(string); ok {
			out["extras."+k] = s
		}
	}
	return out
}

// DataIntegrity scans for mojibake and recomputes the ROI payback period.
func DataIntegrity(rc *models.ReportContext) []models.QualityCheck {
	const encName = "Zeichenkodierung korrekt"
	var broken []string
	for field, value := range StringEntries(rc) {
		if len(textclean.FindMojibake(value)) > 0 {
			broken = append(broken, field)
		}
	}
	sort.Strings(broken)

	checks := make([]models.QualityCheck, 0, 2)
	if len(broken) == 0 {
		checks = append(checks, pass(encName, models.KindEncoding, models.SeverityCritical))
	} else {
		c := fail(encName, models.KindEncoding, models.SeverityCritical, 0,
			fmt.Sprintf("mis-encoded characters in %s", strings.Join(broken, ", ")))
		c.Field = broken[0]
		checks = append(checks, c)
	}

	return append(checks, roiCheck(rc))
}

func roiCheck(rc *models.ReportContext) models.QualityCheck {
	const name = "ROI-Berechnung konsistent"
	expected := scoring.PaybackMonths(rc.BusinessCase)
	if expected == 0 {
		return pass(name, models.KindROI, models.SeverityMajor)
	}

	drift := math.Abs(rc.KPI.ROIMonths - expected)
	switch {
	case drift > roiDriftCritical:
		return fail(name, models.KindROI, models.SeverityCritical, 100-drift*10,
			fmt.Sprintf("claimed ROI of %.1f months differs from computed %.1f months", rc.KPI.ROIMonths, expected))
	case drift > roiDriftMajor:
		return fail(name, models.KindROI, models.SeverityMajor, 100-drift*10,
			fmt.Sprintf("claimed ROI of %.1f months differs from computed %.1f months", rc.KPI.ROIMonths, expected))
	default:
		return pass(name, models.KindROI, models.SeverityMajor)
	}
}

// Consistency compares the readiness label with the score and looks for the investment figure
// in the roadmap.
func Consistency(rc *models.ReportContext) []models.QualityCheck {
	checks := make([]models.QualityCheck, 0, 2)

	const levelName = "Reifegrad passt zum Score"
	expected := scoring.ReadinessLevel(rc.ScorePercent, rc.Language)
	if strings.EqualFold(strings.TrimSpace(rc.ReadinessLevel), expected) {
		checks = append(checks, pass(levelName, models.KindConsistency, models.SeverityMajor))
	} else {
		checks = append(checks, fail(levelName, models.KindConsistency, models.SeverityMajor, 0,
			fmt.Sprintf("readiness level %q does not match score %.0f (expected %q)", rc.ReadinessLevel, rc.ScorePercent, expected)))
	}

	const investName = "Investition in Roadmap genannt"
	if rc.BusinessCase.Investment <= 0 {
		return append(checks, pass(investName, models.KindConsistency, models.SeverityMinor))
	}
	roadmap, _ := rc.Section(models.KeyRoadmap)
	for _, variant := range scoring.EuroVariants(rc.BusinessCase.Investment) {
		if strings.Contains(roadmap, variant) {
			return append(checks, pass(investName, models.KindConsistency, models.SeverityMinor))
		}
	}
	c := fail(investName, models.KindConsistency, models.SeverityMinor, 40,
		fmt.Sprintf("roadmap does not mention the investment of %s EUR", scoring.FormatEuro(rc.BusinessCase.Investment, rc.Language)))
	c.Field = models.KeyRoadmap
	return append(checks, c)
}

// Plausibility flags unrealistic ROI factors and efficiency gains.
func Plausibility(rc *models.ReportContext) []models.QualityCheck {
	checks := make([]models.QualityCheck, 0, 2)

	const factorName = "ROI-Faktor plausibel"
	if rc.BusinessCase.Investment > 0 {
		factor := scoring.ROIFactor(rc.BusinessCase)
		switch {
		case factor > roiFactorCrit:
			checks = append(checks, fail(factorName, models.KindPlausibility, models.SeverityCritical, 0,
				fmt.Sprintf("annual saving is %.1fx the investment", factor)))
		case factor < roiFactorMin || factor > roiFactorMax:
			checks = append(checks, fail(factorName, models.KindPlausibility, models.SeverityMajor, 40,
				fmt.Sprintf("ROI factor %.1f outside %.1f–%.1f", factor, roiFactorMin, roiFactorMax)))
		default:
			checks = append(checks, pass(factorName, models.KindPlausibility, models.SeverityMajor))
		}
	}

	const gainName = "Effizienzgewinn realistisch"
	limit := scoring.EfficiencyHeadroom(rc.KPI.AutomationLevel) * headroomShare
	if rc.KPI.EfficiencyGainPercent > limit {
		checks = append(checks, fail(gainName, models.KindPlausibility, models.SeverityMajor, 30,
			fmt.Sprintf("efficiency gain %.0f%% exceeds realistic headroom of %.0f%%", rc.KPI.EfficiencyGainPercent, limit)))
	} else {
		checks = append(checks, pass(gainName, models.KindPlausibility, models.SeverityMajor))
	}
	return checks
}

// Completeness requires every required section to be present and substantive. A chapter error
// marker counts as missing.
func Completeness(rc *models.ReportContext) []models.QualityCheck {
	checks := make([]models.QualityCheck, 0, len(models.RequiredSections))
	for _, key := range models.RequiredSections {
		name := "Abschnitt vorhanden: " + key
		html, ok := rc.Section(key)
		switch {
		case !ok || strings.Contains(html, `class="chapter-error"`):
			c := fail(name, models.KindMissingSection, models.SeverityCritical, 0, key+" is missing")
			c.Field = key
			checks = append(checks, c)
		case utf8.RuneCountInString(strings.TrimSpace(html)) < MinSectionLength:
			c := fail(name, models.KindShortSection, models.SeverityMajor, 30,
				fmt.Sprintf("%s has fewer than %d characters", key, MinSectionLength))
			c.Field = key
			checks = append(checks, c)
		default:
			c := pass(name, models.KindMissingSection, models.SeverityCritical)
			c.Field = key
			checks = append(checks, c)
		}
	}
	return checks
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	passiveWords  = map[string]map[string]bool{
		"de": {"wird": true, "werden": true, "wurde": true, "wurden": true, "worden": true},
		"en": {"was": true, "were": true, "been": true, "being": true},
	}
)

// LanguageQuality measures sentence length and passive voice in the executive summary.
func LanguageQuality(rc *models.ReportContext) []models.QualityCheck {
	html, _ := rc.Section(models.KeyExecSummary)
	text := textclean.StripHTML(html)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	checks := make([]models.QualityCheck, 0, 2)

	const lengthName = "Satzlänge angemessen"
	var sentences, words int
	for _, s := range sentenceSplit.Split(text, -1) {
		n := len(strings.Fields(s))
		if n == 0 {
			continue
		}
		sentences++
		words += n
	}
	avg := 0.0
	if sentences > 0 {
		avg = float64(words) / float64(sentences)
	}
	if avg < minSentenceWords || avg > maxSentenceWords {
		checks = append(checks, fail(lengthName, models.KindLanguage, models.SeverityMinor, 60,
			fmt.Sprintf("average sentence length %.1f words, expected %.0f–%.0f", avg, minSentenceWords, maxSentenceWords)))
	} else {
		checks = append(checks, pass(lengthName, models.KindLanguage, models.SeverityMinor))
	}

	const passiveName = "Aktive Formulierungen"
	indicators := passiveWords[rc.Language]
	if indicators == nil {
		indicators = passiveWords["de"]
	}
	passive := 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if indicators[strings.Trim(w, ".,;:!?()\"'„“”")] {
			passive++
		}
	}
	if passive >= passiveLimit {
		checks = append(checks, fail(passiveName, models.KindLanguage, models.SeverityMinor, 60,
			fmt.Sprintf("%d passive voice indicators", passive)))
	} else {
		checks = append(checks, pass(passiveName, models.KindLanguage, models.SeverityMinor))
	}
	return checks
}

// Compliance flags a low compliance score without a data protection officer.
func Compliance(rc *models.ReportContext) []models.QualityCheck {
	const name = "Datenschutz-Risiken adressiert"
	if rc.KPI.ComplianceScore < complianceFloor && !rc.HasDataProtectionOfficer {
		return []models.QualityCheck{fail(name, models.KindCompliance, models.SeverityCritical, 20,
			fmt.Sprintf("compliance score %.0f without a data protection officer", rc.KPI.ComplianceScore))}
	}
	return []models.QualityCheck{pass(name, models.KindCompliance, models.SeverityCritical)}
}

var (
	toolVocabulary = []string{
		"chatgpt", "copilot", "deepl", "notion", "zapier", "make.com", "n8n", "canva",
		"hubspot", "power automate", "claude", "gemini", "perplexity", "tl;dv", "fireflies",
		"personio", "lexoffice", "datev", "midjourney", "langdock",
	}
	timeFrame = regexp.MustCompile(`(?i)\b\d+\s*(-\s*\d+\s*)?(stunden?|std|tage?n?|wochen?|monate?n?|hours?|days?|weeks?|months?)\b`)
	costFigure = regexp.MustCompile(`(?i)(\d[\d.,]*\s*(€|eur\b|euro\b)|€\s*\d)`)
)

// Actionability looks for concrete tools, time frames and costs in the quick wins.
func Actionability(rc *models.ReportContext) []models.QualityCheck {
	const name = "Sofortschritte umsetzbar"
	html, _ := rc.Section(models.KeyQuickWins)
	text := textclean.StripHTML(html)
	lower := strings.ToLower(text)

	present := 0
	var missing []string
	hasTool := false
	for _, tool := range toolVocabulary {
		if strings.Contains(lower, tool) {
			hasTool = true
			break
		}
	}
	if hasTool {
		present++
	} else {
		missing = append(missing, "tools")
	}
	if timeFrame.MatchString(text) {
		present++
	} else {
		missing = append(missing, "time frames")
	}
	if costFigure.MatchString(text) {
		present++
	} else {
		missing = append(missing, "costs")
	}

	score := float64(present) / 3 * 100
	if score < actionableFloor {
		c := fail(name, models.KindActionability, models.SeverityMajor, score,
			"quick wins lack "+strings.Join(missing, ", "))
		c.Field = models.KeyQuickWins
		return []models.QualityCheck{c}
	}
	c := pass(name, models.KindActionability, models.SeverityMajor)
	c.Score = score
	return []models.QualityCheck{c}
}
