package sections

import (
	"fmt"

	"report-workers/internal/models"
)

// staticFallback is served when no LLM is configured, so a report can still be rendered.
var staticFallback = map[string]map[models.Chapter]string{
	"de": {
		models.ChapterExecutiveSummary: `<p>Ihr Unternehmen hat erste Grundlagen für den Einsatz von KI geschaffen. Die folgenden Kapitel zeigen, welche Schritte jetzt den größten Nutzen bringen und wie Sie Risiken im Blick behalten.</p>`,
		models.ChapterTools:            `<p>Starten Sie mit etablierten Werkzeugen wie ChatGPT Team, Microsoft Copilot oder DeepL. Prüfen Sie vor der Einführung Datenschutz, Kosten und Integration in bestehende Abläufe.</p>`,
		models.ChapterFunding:          `<p>Bund und Länder fördern Digitalisierungsprojekte kleiner und mittlerer Unternehmen. Prüfen Sie insbesondere Landesprogramme zur Digitalisierung und Beratungsförderungen.</p>`,
		models.ChapterRoadmap:          `<h3>Roadmap</h3><ul><li>0–3 Monate: Pilotprojekt mit einem klaren Anwendungsfall starten.</li><li>3–6 Monate: Ergebnisse messen und Prozesse anpassen.</li><li>6–12 Monate: Erfolgreiche Anwendungen ausrollen und Mitarbeitende schulen.</li></ul>`,
		models.ChapterCompliance:       `<p>Regeln Sie den KI-Einsatz in einer internen Richtlinie, dokumentieren Sie Verarbeitungstätigkeiten und prüfen Sie die Pflichten aus DSGVO und EU AI Act.</p>`,
		models.ChapterCaseStudy:        `<p>Ein vergleichbares Unternehmen hat mit einem KI-gestützten Angebotsprozess die Bearbeitungszeit deutlich reduziert und die Qualität der Unterlagen verbessert.</p>`,
	},
	"en": {
		models.ChapterExecutiveSummary: `<p>Your organisation has laid the first foundations for using AI. The following chapters show which steps now deliver the most value and how to keep risks under control.</p>`,
		models.ChapterTools:            `<p>Start with established tools such as ChatGPT Team, Microsoft Copilot or DeepL. Check data protection, cost and integration into existing workflows before rollout.</p>`,
		models.ChapterFunding:          `<p>Federal and state programmes support digitalisation projects of small and medium-sized companies. Review regional digitalisation grants and consulting subsidies.</p>`,
		models.ChapterRoadmap:          `<h3>Roadmap</h3><ul><li>0–3 months: start a pilot with one clear use case.</li><li>3–6 months: measure results and adapt processes.</li><li>6–12 months: roll out successful applications and train staff.</li></ul>`,
		models.ChapterCompliance:       `<p>Govern AI use with an internal policy, document processing activities and review your obligations under the GDPR and the EU AI Act.</p>`,
		models.ChapterCaseStudy:        `<p>A comparable company introduced an AI-assisted quoting process, cut turnaround time significantly and improved the quality of its documents.</p>`,
	},
}

func fallbackHTML(chapter models.Chapter, lang string) string {
	if html, ok := staticFallback[lang][chapter]; ok {
		return html
	}
	return staticFallback["de"][chapter]
}

// missingPromptHTML is rendered in place of a chapter whose prompt template is absent.
func missingPromptHTML(name, lang string) string {
	if lang == "en" {
		return fmt.Sprintf(`<p class="prompt-missing">[Prompt missing: %s (%s)]</p>`, name, lang)
	}
	return fmt.Sprintf(`<p class="prompt-missing">[Prompt fehlt: %s (%s)]</p>`, name, lang)
}
