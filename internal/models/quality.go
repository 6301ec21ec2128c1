package models

// Severity weights: critical 3, major 2, minor 1.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityMajor:
		return 2
	default:
		return 1
	}
}

// QualityLevel is ordered: FAILED < POOR < ACCEPTABLE < GOOD < EXCELLENT < GOLD_STANDARD.
type QualityLevel string

const (
	LevelFailed       QualityLevel = "FAILED"
	LevelPoor         QualityLevel = "POOR"
	LevelAcceptable   QualityLevel = "ACCEPTABLE"
	LevelGood         QualityLevel = "GOOD"
	LevelExcellent    QualityLevel = "EXCELLENT"
	LevelGoldStandard QualityLevel = "GOLD_STANDARD"
)

var levelRank = map[QualityLevel]int{
	LevelFailed:       0,
	LevelPoor:         1,
	LevelAcceptable:   2,
	LevelGood:         3,
	LevelExcellent:    4,
	LevelGoldStandard: 5,
}

// AtLeast reports whether l ranks at or above other.
func (l QualityLevel) AtLeast(other QualityLevel) bool {
	return levelRank[l] >= levelRank[other]
}

// CheckKind tells the remediation step which fixer applies to a failed check.
type CheckKind string

const (
	KindEncoding       CheckKind = "encoding"
	KindROI            CheckKind = "roi"
	KindConsistency    CheckKind = "consistency"
	KindPlausibility   CheckKind = "plausibility"
	KindMissingSection CheckKind = "missing_section"
	KindShortSection   CheckKind = "short_section"
	KindLanguage       CheckKind = "language"
	KindCompliance     CheckKind = "compliance"
	KindActionability  CheckKind = "actionability"
)

type QualityCheck struct {
	Name     string    `json:"name"`
	Kind     CheckKind `json:"kind"`
	Field    string    `json:"field,omitempty"`
	Passed   bool      `json:"passed"`
	Score    float64   `json:"score"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message,omitempty"`
}

// QualityVerdict is the quality gate's report card.
type QualityVerdict struct {
	Score            float64        `json:"score"`
	Level            QualityLevel   `json:"level"`
	Passed           bool           `json:"passed"`
	ReadyForDelivery bool           `json:"ready_for_delivery"`
	Checks           []QualityCheck `json:"checks"`
	CriticalIssues   []QualityCheck `json:"critical_issues"`
	Suggestions      []string       `json:"suggestions"`
	Remediated       bool           `json:"remediated"`
	Attempts         int            `json:"attempts"`
}

// Badge condenses the verdict for display.
func (v *QualityVerdict) Badge() *QualityBadge {
	return &QualityBadge{
		Level:            v.Level,
		Score:            v.Score,
		Passed:           v.Passed,
		ReadyForDelivery: v.ReadyForDelivery,
		CriticalIssues:   len(v.CriticalIssues),
		Remediated:       v.Remediated,
	}
}
