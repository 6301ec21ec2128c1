package sections

import (
	"strings"

	"report-workers/internal/models"
)

var selfEmploymentKeywords = []string{
	"selbstständig", "selbststaendig", "selbständig", "selbstaendig",
	"freelancer", "freelance", "freiberuf", "solo", "einzelunternehm",
	"self-employed", "self employed", "sole trader", "sole proprietor",
}

var roleFields = []string{"beschaeftigungsform", "rolle", "position", "taetigkeit", "unternehmensform"}

var headcountFields = []string{"mitarbeiterzahl", "mitarbeiter", "employees"}

// IsSelfEmployed infers a one-person business from role answers, headcount and company size.
func IsSelfEmployed(b *models.Briefing) bool {
	if b == nil {
		return false
	}
	if b.Unternehmensgroesse == "solo" {
		return true
	}
	for _, field := range roleFields {
		value := strings.ToLower(b.String(field))
		if value == "" {
			continue
		}
		for _, kw := range selfEmploymentKeywords {
			if strings.Contains(value, kw) {
				return true
			}
		}
	}
	for _, field := range headcountFields {
		if n, ok := b.Number(field); ok {
			return n <= 1
		}
	}
	return false
}
