package models

// Chapter identifies one LLM-generated report chapter.
type Chapter string

const (
	ChapterExecutiveSummary Chapter = "executive_summary"
	ChapterTools            Chapter = "tools"
	ChapterFunding          Chapter = "foerderprogramme"
	ChapterRoadmap          Chapter = "roadmap"
	ChapterCompliance       Chapter = "compliance"
	ChapterCaseStudy        Chapter = "praxisbeispiel"
)

// Section keys in ReportContext.Sections.
const (
	KeyExecSummary     = "exec_summary_html"
	KeyTools           = "tools_html"
	KeyFunding         = "foerderprogramme_html"
	KeyRoadmap         = "roadmap_html"
	KeyCompliance      = "compliance_html"
	KeyCaseStudy       = "praxisbeispiel_html"
	KeyQuickWins       = "quick_wins_html"
	KeyRisks           = "risks_html"
	KeyRecommendations = "recommendations_html"
)

// RequiredSections must be present and substantive before a report is deliverable.
var RequiredSections = []string{KeyExecSummary, KeyQuickWins, KeyRoadmap, KeyRisks, KeyRecommendations}

// HTMLKey returns the context key the chapter's HTML is stored under.
func (c Chapter) HTMLKey() string {
	if c == ChapterExecutiveSummary {
		return KeyExecSummary
	}
	return string(c) + "_html"
}

// ChapterForKey is the inverse of HTMLKey for chapter-owned keys.
func ChapterForKey(key string) (Chapter, bool) {
	for _, c := range []Chapter{ChapterExecutiveSummary, ChapterTools, ChapterFunding, ChapterRoadmap, ChapterCompliance, ChapterCaseStudy} {
		if c.HTMLKey() == key {
			return c, true
		}
	}
	return "", false
}

// ChapterResult is the outcome of generating one chapter: HTML on success, an error message
// otherwise. Fallback marks static content used while the LLM was unavailable.
type ChapterResult struct {
	Chapter  Chapter `json:"chapter"`
	HTML     string  `json:"html,omitempty"`
	Error    string  `json:"error,omitempty"`
	Fallback bool    `json:"fallback,omitempty"`
}

func ChapterOK(c Chapter, html string) ChapterResult {
	return ChapterResult{Chapter: c, HTML: html}
}

func ChapterFailed(c Chapter, err error) ChapterResult {
	return ChapterResult{Chapter: c, Error: err.Error()}
}

func (r ChapterResult) Failed() bool {
	return r.Error != ""
}

// BusinessCase holds the figures the ROI KPI is derived from.
type BusinessCase struct {
	Investment   float64 `json:"investment"`
	AnnualSaving float64 `json:"annual_saving"`
}

type KPI struct {
	ROIMonths             float64 `json:"roi_months"`
	EfficiencyGainPercent float64 `json:"efficiency_gain_percent"`
	ComplianceScore       float64 `json:"compliance_score"`
	AutomationLevel       float64 `json:"automation_level"`
}

// QualityBadge summarises the final quality verdict on the rendered report.
type QualityBadge struct {
	Level            QualityLevel `json:"level"`
	Score            float64      `json:"score"`
	Passed           bool         `json:"passed"`
	ReadyForDelivery bool         `json:"ready_for_delivery"`
	CriticalIssues   int          `json:"critical_issues"`
	Remediated       bool         `json:"remediated"`
}

// ReportContext is the working state of one assembly run. It is owned by a single run and
// must not be shared between concurrent requests.
type ReportContext struct {
	Language                 string                 `json:"language"`
	Industry                 string                 `json:"industry"`
	CompanySize              string                 `json:"company_size"`
	IndustryDefaults         map[string]interface{} `json:"industry_defaults,omitempty"`
	IsSelfEmployed           bool                   `json:"is_self_employed"`
	ScorePercent             float64                `json:"score_percent"`
	ReadinessLevel           string                 `json:"readiness_level"`
	Sections                 map[string]string      `json:"sections"`
	PrefaceHTML              string                 `json:"preface_html"`
	SectionsHTML             string                 `json:"sections_html"`
	Chapters                 []ChapterResult        `json:"chapters"`
	BusinessCase             BusinessCase           `json:"business_case"`
	KPI                      KPI                    `json:"kpi"`
	HasDataProtectionOfficer bool                   `json:"has_data_protection_officer"`
	QualityBadge             *QualityBadge          `json:"quality_badge,omitempty"`
	Briefing                 *Briefing              `json:"briefing,omitempty"`
	Extras                   map[string]interface{} `json:"extras,omitempty"`
}

func NewReportContext(lang string) *ReportContext {
	return &ReportContext{
		Language: NormalizeLanguage(lang),
		Sections: make(map[string]string),
		Extras:   make(map[string]interface{}),
	}
}

// Section returns a section's HTML and whether the key is present at all.
func (rc *ReportContext) Section(key string) (string, bool) {
	html, ok := rc.Sections[key]
	return html, ok
}

func (rc *ReportContext) SetSection(key, html string) {
	if rc.Sections == nil {
		rc.Sections = make(map[string]string)
	}
	rc.Sections[key] = html
}

// FailedChapters lists chapters whose generation raised an error.
func (rc *ReportContext) FailedChapters() []Chapter {
	var out []Chapter
	for _, r := range rc.Chapters {
		if r.Failed() {
			out = append(out, r.Chapter)
		}
	}
	return out
}
