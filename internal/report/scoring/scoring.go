// Package scoring derives the readiness score, readiness level and business-case KPIs from a
// briefing. The quality gate recomputes the same figures to detect drift.
package scoring

import (
	"math"
	"strconv"
	"strings"

	"report-workers/internal/models"
)

// MaxRawScore is the weighted maximum of the five readiness signals.
const MaxRawScore = 35.0

var (
	automationScale = map[string]float64{
		"sehr_niedrig": 0,
		"eher_niedrig": 1,
		"mittel":       3,
		"eher_hoch":    4,
		"sehr_hoch":    5,
	}
	paperlessScale = map[string]float64{
		"0-20":   1,
		"21-50":  2,
		"51-80":  4,
		"81-100": 5,
	}
	knowHowScale = map[string]float64{
		"keine":           0,
		"grundkenntnisse": 1,
		"mittel":          3,
		"fortgeschritten": 4,
		"expertenwissen":  5,
	}
	budgetBuckets = map[string]float64{
		"unter_2000":  1500,
		"2000_10000":  6000,
		"10000_50000": 30000,
		"ueber_50000": 75000,
	}
	yesValues = map[string]bool{
		"ja": true, "yes": true, "true": true, "intern": true, "extern": true,
		"alle": true, "all": true,
	}
)

// ReadinessScore weighs digitalisation (x2), automation (x2), paperless processes, AI
// know-how and risk appetite, then scales the sum to a 0–100 percentage.
func ReadinessScore(b *models.Briefing) float64 {
	digital := clamp(number(b, "digitalisierungsgrad"), 0, 5)
	automation := scaled(b, "automatisierungsgrad", automationScale)
	paperless := scaled(b, "prozesse_papierlos", paperlessScale)
	knowHow := scaled(b, "ki_knowhow", knowHowScale)
	risk := clamp(number(b, "risikofreude"), 0, 5)

	raw := digital*2 + automation*2 + paperless + knowHow + risk
	return clamp(math.Round(raw/MaxRawScore*100), 0, 100)
}

// ReadinessLevel returns the localized label for a score: ≥85, ≥70, ≥50, ≥30, below.
func ReadinessLevel(score float64, lang string) string {
	labels := []string{"Führend", "Reif", "Fortgeschritten", "Grundlegend", "Einsteiger"}
	if lang == "en" {
		labels = []string{"Leading", "Mature", "Advanced", "Basic", "Beginner"}
	}
	switch {
	case score >= 85:
		return labels[0]
	case score >= 70:
		return labels[1]
	case score >= 50:
		return labels[2]
	case score >= 30:
		return labels[3]
	default:
		return labels[4]
	}
}

// AutomationLevel maps the automation answer to a 0–100 percentage.
func AutomationLevel(b *models.Briefing) float64 {
	return scaled(b, "automatisierungsgrad", automationScale) * 20
}

// WantsFunding is true when the respondent answered yes or unsure to funding interest.
func WantsFunding(b *models.Briefing) bool {
	for _, key := range []string{"foerderung_interesse", "interesse_foerderung", "foerderbedarf"} {
		switch strings.ToLower(b.String(key)) {
		case "ja", "yes", "true", "unsicher", "unsure", "vielleicht", "maybe":
			return true
		}
	}
	return false
}

// HasDataProtectionOfficer reads the DPO answer.
func HasDataProtectionOfficer(b *models.Briefing) bool {
	return yesValues[strings.ToLower(b.String("datenschutzbeauftragter"))]
}

// BusinessCase derives investment and expected annual saving. Unknown investment stays 0.
func BusinessCase(b *models.Briefing, score float64) models.BusinessCase {
	investment, ok := b.Number("investitionsbudget")
	if !ok || investment <= 0 {
		investment = budgetBuckets[strings.ToLower(b.String("budget"))]
	}

	saving, ok := b.Number("jaehrliche_einsparung")
	if !ok || saving <= 0 {
		saving = math.Round(investment * (1.2 + score/100))
	}
	return models.BusinessCase{Investment: investment, AnnualSaving: saving}
}

// PaybackMonths is investment / (annual saving / 12); 0 when it cannot be computed.
func PaybackMonths(bc models.BusinessCase) float64 {
	if bc.Investment <= 0 || bc.AnnualSaving <= 0 {
		return 0
	}
	return bc.Investment / (bc.AnnualSaving / 12)
}

// ROIMonths is the payback period rounded to whole months for display.
func ROIMonths(bc models.BusinessCase) float64 {
	return math.Round(PaybackMonths(bc))
}

// ROIFactor is annual saving divided by investment.
func ROIFactor(bc models.BusinessCase) float64 {
	if bc.Investment <= 0 {
		return 0
	}
	return bc.AnnualSaving / bc.Investment
}

// EfficiencyHeadroom is the share of work not yet automated.
func EfficiencyHeadroom(automationLevel float64) float64 {
	return clamp(100-automationLevel, 0, 100)
}

// ComplianceScore rates the DSGVO answers on a 0–100 scale.
func ComplianceScore(b *models.Briefing) float64 {
	score := 20.0
	if HasDataProtectionOfficer(b) {
		score += 30
	}
	switch strings.ToLower(b.String("technische_massnahmen")) {
	case "alle", "all":
		score += 20
	case "teilweise", "some":
		score += 10
	}
	if yesValues[strings.ToLower(b.String("folgenabschaetzung"))] {
		score += 15
	}
	if yesValues[strings.ToLower(b.String("richtlinien_governance"))] {
		score += 15
	}
	return clamp(score, 0, 100)
}

// KPIs computes all derived figures at once.
func KPIs(b *models.Briefing, bc models.BusinessCase) models.KPI {
	automation := AutomationLevel(b)
	return models.KPI{
		ROIMonths:             ROIMonths(bc),
		EfficiencyGainPercent: math.Round(EfficiencyHeadroom(automation) * 0.4),
		ComplianceScore:       ComplianceScore(b),
		AutomationLevel:       automation,
	}
}

// FormatEuro renders an amount without decimals using the language's thousands separator.
func FormatEuro(amount float64, lang string) string {
	digits := strconv.FormatInt(int64(math.Round(amount)), 10)
	sep := "."
	if lang == "en" {
		sep = ","
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 && r != '-' && digits[i-1] != '-' {
			b.WriteString(sep)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EuroVariants lists the spellings an amount may appear under in generated text.
func EuroVariants(amount float64) []string {
	plain := strconv.FormatInt(int64(math.Round(amount)), 10)
	return []string{FormatEuro(amount, "de"), FormatEuro(amount, "en"), plain}
}

func number(b *models.Briefing, key string) float64 {
	n, _ := b.Number(key)
	return n
}

// scaled accepts either a categorical answer or a numeric 0–5 answer.
func scaled(b *models.Briefing, key string, scale map[string]float64) float64 {
	if n, ok := b.Number(key); ok {
		return clamp(n, 0, 5)
	}
	return scale[strings.ToLower(b.String(key))]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
