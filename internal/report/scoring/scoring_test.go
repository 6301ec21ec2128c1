package scoring

import (
	"testing"

	"report-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw map[string]interface{}) *models.Briefing {
	t.Helper()
	b, err := models.ParseBriefing(raw)
	require.NoError(t, err)
	return b
}

func TestReadinessScore(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want float64
	}{
		{"empty briefing", map[string]interface{}{}, 0},
		{
			name: "all maximum",
			raw: map[string]interface{}{
				"digitalisierungsgrad": 5.0,
				"automatisierungsgrad": "sehr_hoch",
				"prozesse_papierlos":   "81-100",
				"ki_knowhow":           "expertenwissen",
				"risikofreude":         5.0,
			},
			want: 100,
		},
		{
			name: "mixed answers",
			raw: map[string]interface{}{
				"digitalisierungsgrad": "3",
				"automatisierungsgrad": "mittel",
				"prozesse_papierlos":   "21-50",
				"ki_knowhow":           "grundkenntnisse",
				"risikofreude":         2.0,
			},
			// (3*2 + 3*2 + 2 + 1 + 2) / 35 = 17/35
			want: 49,
		},
		{
			name: "out of range values are clamped",
			raw: map[string]interface{}{
				"digitalisierungsgrad": 11.0,
				"risikofreude":         -4.0,
			},
			// 5*2 / 35
			want: 29,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadinessScore(parse(t, tt.raw)))
		})
	}
}

func TestReadinessLevel(t *testing.T) {
	assert.Equal(t, "Führend", ReadinessLevel(85, "de"))
	assert.Equal(t, "Reif", ReadinessLevel(84.9, "de"))
	assert.Equal(t, "Fortgeschritten", ReadinessLevel(50, "de"))
	assert.Equal(t, "Grundlegend", ReadinessLevel(30, "de"))
	assert.Equal(t, "Einsteiger", ReadinessLevel(29, "de"))
	assert.Equal(t, "Mature", ReadinessLevel(70, "en"))
}

func TestBusinessCaseAndROI(t *testing.T) {
	b := parse(t, map[string]interface{}{"budget": "2000_10000"})
	bc := BusinessCase(b, 50)
	assert.Equal(t, 6000.0, bc.Investment)
	assert.Equal(t, 10200.0, bc.AnnualSaving)
	assert.Equal(t, 7.0, ROIMonths(bc))
	assert.InDelta(t, 1.7, ROIFactor(bc), 0.001)

	explicit := parse(t, map[string]interface{}{"investitionsbudget": 12000.0, "jaehrliche_einsparung": "24000"})
	bc = BusinessCase(explicit, 0)
	assert.Equal(t, 6.0, ROIMonths(bc))

	assert.Equal(t, 0.0, ROIMonths(models.BusinessCase{}))

	fractional := models.BusinessCase{Investment: 10000, AnnualSaving: 7000}
	assert.InDelta(t, 17.142857, PaybackMonths(fractional), 1e-6)
	assert.Equal(t, 17.0, ROIMonths(fractional))
	assert.Equal(t, 0.0, PaybackMonths(models.BusinessCase{Investment: 5000}))
}

func TestComplianceScoreAndDPO(t *testing.T) {
	none := parse(t, map[string]interface{}{})
	assert.Equal(t, 20.0, ComplianceScore(none))
	assert.False(t, HasDataProtectionOfficer(none))

	full := parse(t, map[string]interface{}{
		"datenschutzbeauftragter": "ja",
		"technische_massnahmen":   "alle",
		"folgenabschaetzung":      "ja",
		"richtlinien_governance":  "ja",
	})
	assert.Equal(t, 100.0, ComplianceScore(full))
	assert.True(t, HasDataProtectionOfficer(full))
}

func TestWantsFunding(t *testing.T) {
	assert.True(t, WantsFunding(parse(t, map[string]interface{}{"foerderung_interesse": "unsicher"})))
	assert.True(t, WantsFunding(parse(t, map[string]interface{}{"interesse_foerderung": "Ja"})))
	assert.False(t, WantsFunding(parse(t, map[string]interface{}{"foerderung_interesse": "nein"})))
	assert.False(t, WantsFunding(parse(t, map[string]interface{}{})))
}

func TestFormatEuro(t *testing.T) {
	assert.Equal(t, "6.000", FormatEuro(6000, "de"))
	assert.Equal(t, "1,234,567", FormatEuro(1234567, "en"))
	assert.Equal(t, "950", FormatEuro(950, "de"))
	assert.Equal(t, []string{"12.000", "12,000", "12000"}, EuroVariants(12000))
}
