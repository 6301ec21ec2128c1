package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Briefing is a parsed questionnaire submission. Known fields are typed; every other answer
// is kept in Additional. It is not mutated after ParseBriefing.
type Briefing struct {
	Branche             string `json:"branche"`
	Unternehmensgroesse string `json:"unternehmensgroesse"`
	Bundesland          string `json:"bundesland,omitempty"`
	Sprache             string `json:"sprache"`
	Email               string `json:"email,omitempty"`

	Additional map[string]interface{} `json:"-"`
}

var knownBriefingKeys = map[string]bool{
	"branche":             true,
	"unternehmensgroesse": true,
	"bundesland":          true,
	"sprache":             true,
	"lang":                true,
	"email":               true,
}

// ParseBriefing converts a raw answer map. Only non-map input is rejected; semantic validation
// happens against the activity input schema.
func ParseBriefing(raw map[string]interface{}) (*Briefing, error) {
	if raw == nil {
		return nil, fmt.Errorf("briefing is empty")
	}

	b := &Briefing{Additional: make(map[string]interface{}, len(raw))}
	for k, v := range raw {
		if !knownBriefingKeys[k] {
			b.Additional[k] = v
		}
	}

	b.Branche = strings.ToLower(strings.TrimSpace(stringify(raw["branche"])))
	b.Unternehmensgroesse = strings.ToLower(strings.TrimSpace(stringify(raw["unternehmensgroesse"])))
	b.Bundesland = strings.TrimSpace(stringify(raw["bundesland"]))
	b.Email = strings.TrimSpace(stringify(raw["email"]))

	lang := stringify(raw["sprache"])
	if lang == "" {
		lang = stringify(raw["lang"])
	}
	b.Sprache = NormalizeLanguage(lang)

	return b, nil
}

// UnmarshalJSON accepts the flat questionnaire object.
func (b *Briefing) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseBriefing(raw)
	if err != nil {
		return err
	}
	*b = *parsed
	return nil
}

// MarshalJSON writes the flat questionnaire object back.
func (b Briefing) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Values())
}

// Values returns the flat answer map, typed fields included.
func (b *Briefing) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(b.Additional)+5)
	for k, v := range b.Additional {
		out[k] = v
	}
	out["branche"] = b.Branche
	out["unternehmensgroesse"] = b.Unternehmensgroesse
	out["sprache"] = b.Sprache
	if b.Bundesland != "" {
		out["bundesland"] = b.Bundesland
	}
	if b.Email != "" {
		out["email"] = b.Email
	}
	return out
}

// Get looks a key up among typed fields and additional answers.
func (b *Briefing) Get(key string) (interface{}, bool) {
	switch key {
	case "branche":
		return b.Branche, b.Branche != ""
	case "unternehmensgroesse":
		return b.Unternehmensgroesse, b.Unternehmensgroesse != ""
	case "bundesland":
		return b.Bundesland, b.Bundesland != ""
	case "sprache", "lang":
		return b.Sprache, true
	case "email":
		return b.Email, b.Email != ""
	}
	v, ok := b.Additional[key]
	return v, ok && v != nil
}

// String returns the answer as trimmed text; lists are joined with ", ".
func (b *Briefing) String(key string) string {
	v, ok := b.Get(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(stringify(v))
}

// Number parses numeric answers, including numeric strings with a decimal comma.
func (b *Briefing) Number(key string) (float64, bool) {
	v, ok := b.Get(key)
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// List returns list answers; a scalar answer becomes a one-element list.
func (b *Briefing) List(key string) []string {
	v, ok := b.Get(key)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(stringify(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	default:
		if s := strings.TrimSpace(stringify(v)); s != "" {
			return []string{s}
		}
		return nil
	}
}

// NormalizeLanguage maps any input to "de" or "en"; German is the default.
func NormalizeLanguage(lang string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(lang)), "en") {
		return "en"
	}
	return "de"
}

// ToFloat converts JSON numbers and numeric strings.
func ToFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
