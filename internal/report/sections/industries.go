package sections

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed industries.yaml
var industriesYAML []byte

// Industry holds per-industry defaults exposed to prompt templates.
type Industry struct {
	LabelDE    string   `yaml:"label_de"`
	LabelEN    string   `yaml:"label_en"`
	Tools      []string `yaml:"tools"`
	UseCasesDE []string `yaml:"use_cases_de"`
	UseCasesEN []string `yaml:"use_cases_en"`
	Benchmark  float64  `yaml:"benchmark_score"`
}

type Industries struct {
	byKey map[string]Industry
}

// LoadIndustries parses the embedded defaults. The "default" entry is mandatory.
func LoadIndustries() (*Industries, error) {
	return ParseIndustries(industriesYAML)
}

func ParseIndustries(raw []byte) (*Industries, error) {
	var byKey map[string]Industry
	if err := yaml.Unmarshal(raw, &byKey); err != nil {
		return nil, fmt.Errorf("parse industries: %w", err)
	}
	if _, ok := byKey["default"]; !ok {
		return nil, fmt.Errorf("industries: missing default entry")
	}
	return &Industries{byKey: byKey}, nil
}

// Lookup returns the industry's defaults, falling back to "default".
func (i *Industries) Lookup(key string) Industry {
	if ind, ok := i.byKey[strings.ToLower(strings.TrimSpace(key))]; ok {
		return ind
	}
	return i.byKey["default"]
}

// Vars exposes the defaults as prompt variables for lang.
func (ind Industry) Vars(lang string) map[string]interface{} {
	label, useCases := ind.LabelDE, ind.UseCasesDE
	if lang == "en" {
		label, useCases = ind.LabelEN, ind.UseCasesEN
	}
	return map[string]interface{}{
		"branchen_label":     label,
		"branchen_tools":     ind.Tools,
		"branchen_usecases":  useCases,
		"branchen_benchmark": ind.Benchmark,
	}
}
