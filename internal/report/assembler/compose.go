package assembler

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"report-workers/internal/models"
)

var chapterHeadings = map[string]map[models.Chapter]string{
	"de": {
		models.ChapterTools:      "Empfohlene KI-Tools",
		models.ChapterFunding:    "Förderprogramme",
		models.ChapterCompliance: "Compliance & Datenschutz",
		models.ChapterCaseStudy:  "Praxisbeispiel",
	},
	"en": {
		models.ChapterTools:      "Recommended AI tools",
		models.ChapterFunding:    "Funding programmes",
		models.ChapterCompliance: "Compliance & data protection",
		models.ChapterCaseStudy:  "Case study",
	},
}

// composedChapters are the optional chapters collected into sections_html, in order.
var composedChapters = []models.Chapter{
	models.ChapterTools,
	models.ChapterFunding,
	models.ChapterCompliance,
	models.ChapterCaseStudy,
}

var selfEmployedFundingNote = map[string]string{
	"de": "Hinweis: Viele Programme richten sich an Unternehmen mit Beschäftigten. Als Solo-Selbstständige prüfen Sie vor allem Beratungs- und Digitalisierungszuschüsse, die ohne Mitarbeitende beantragt werden können.",
	"en": "Note: many programmes target companies with employees. As a self-employed person focus on consulting and digitalisation grants that can be claimed without staff.",
}

func errorMarker(ch models.Chapter, lang string) string {
	name := html.EscapeString(string(ch))
	msg := fmt.Sprintf("Das Kapitel „%s“ konnte nicht erstellt werden.", name)
	if lang == "en" {
		msg = fmt.Sprintf("The chapter “%s” could not be generated.", name)
	}
	return fmt.Sprintf(`<div class="chapter-error" data-chapter="%s"><p>%s</p></div>`, name, msg)
}

// IsErrorMarker reports whether a section holds the inline chapter error fragment.
func IsErrorMarker(fragment string) bool {
	return strings.Contains(fragment, `class="chapter-error"`)
}

func preface(rc *models.ReportContext) string {
	score := strconv.FormatFloat(rc.ScorePercent, 'f', -1, 64)
	label := html.EscapeString(industryLabel(rc))
	level := html.EscapeString(rc.ReadinessLevel)
	if rc.Language == "en" {
		return fmt.Sprintf(`<p class="preface">This report summarises the AI readiness of your company in the %s sector. `+
			`With a readiness score of <strong>%s %%</strong> your company is at the <strong>%s</strong> level. `+
			`The following chapters set out priorities, secure quick steps, key risks and a roadmap for the next twelve months.</p>`,
			label, score, level)
	}
	return fmt.Sprintf(`<p class="preface">Dieser Bericht fasst den KI-Reifegrad Ihres Unternehmens in der Branche %s zusammen. `+
		`Mit einem Score von <strong>%s %%</strong> liegt Ihr Unternehmen auf der Stufe <strong>%s</strong>. `+
		`Die folgenden Kapitel zeigen Prioritäten, sichere Sofortschritte, zentrale Risiken und eine Roadmap für die nächsten zwölf Monate.</p>`,
		label, score, level)
}

func industryLabel(rc *models.ReportContext) string {
	if v, ok := rc.IndustryDefaults["branchen_label"].(string); ok && v != "" {
		return v
	}
	return rc.Industry
}

// composeSections concatenates the optional chapters that are present under localized headings.
func composeSections(rc *models.ReportContext) string {
	headings := chapterHeadings[rc.Language]
	if headings == nil {
		headings = chapterHeadings["de"]
	}

	var b strings.Builder
	for _, ch := range composedChapters {
		body, ok := rc.Section(ch.HTMLKey())
		if !ok || strings.TrimSpace(body) == "" {
			continue
		}
		fmt.Fprintf(&b, `<section class="chapter" id="%s"><h2>%s</h2>`, ch, html.EscapeString(headings[ch]))
		if ch == models.ChapterFunding && rc.IsSelfEmployed {
			fmt.Fprintf(&b, `<p class="note">%s</p>`, html.EscapeString(selfEmployedFundingNote[rc.Language]))
		}
		b.WriteString(body)
		b.WriteString("</section>\n")
	}
	return b.String()
}
