// Package sections turns a briefing into chapter HTML through prompt templates and an LLM.
package sections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"report-workers/internal/common/genai"
	"report-workers/internal/common/logger"
	"report-workers/internal/models"
	"report-workers/internal/report/textclean"
)

var systemPersona = map[string]string{
	"de": "Du bist ein TÜV-zertifizierter KI-Manager, KI-Strategieberater sowie Datenschutz- und Fördermittel-Experte. " +
		"Du schreibst für Geschäftsführungen kleiner und mittlerer Unternehmen. Antworte ausschließlich auf Deutsch.",
	"en": "You are a TÜV-certified AI manager, AI strategy consultant and expert for data protection and public funding. " +
		"You write for owners and managing directors of small and medium-sized companies. Answer in English only.",
}

var styleSuffix = map[string]string{
	"de": "\n\n---\nFormatiere die Antwort ausschließlich als valides HTML (h3, p, ul, li, strong, table), " +
		"ohne Markdown, ohne Codeblöcke und ohne <html>- oder <body>-Tags. " +
		"Gliedere jede Empfehlung nach: Was? Warum? Nächste Schritte. " +
		"Schreibe kurze, aktive Sätze mit 10 bis 20 Wörtern.",
	"en": "\n\n---\nFormat the answer as valid HTML only (h3, p, ul, li, strong, table), " +
		"without Markdown, code fences or <html>/<body> tags. " +
		"Structure every recommendation as: What? Why? Next steps. " +
		"Write short, active sentences of 10 to 20 words.",
}

var selfEmployedSuffix = map[string]string{
	"de": "\n\nWichtig: Die Person ist solo-selbstständig bzw. freiberuflich tätig. Empfiehl nur Maßnahmen, Tools und " +
		"Förderprogramme, die ohne Mitarbeitende umsetzbar und für Solo-Selbstständige zugänglich sind.",
	"en": "\n\nImportant: the respondent is self-employed without staff. Only recommend measures, tools and funding " +
		"programmes that work without employees and are open to sole proprietors.",
}

// Request describes one chapter to generate. Facts are computed values (score, readiness
// level, KPIs) made available to the prompt next to the briefing answers.
type Request struct {
	Briefing *models.Briefing
	Industry string
	Chapter  models.Chapter
	Language string
	Facts    map[string]interface{}
}

// Result is the chapter HTML. Fallback and PromptMissing flag content not written by the LLM.
type Result struct {
	HTML          string
	Fallback      bool
	PromptMissing bool
}

type Options struct {
	ExecutiveSummaryModel string
	Timeout               time.Duration
}

type Generator struct {
	llm        genai.LLM
	prompts    *PromptLoader
	industries *Industries
	opts       Options
	logger     logger.Logger
}

func NewGenerator(llm genai.LLM, prompts *PromptLoader, industries *Industries, opts Options, log logger.Logger) *Generator {
	return &Generator{
		llm:        llm,
		prompts:    prompts,
		industries: industries,
		opts:       opts,
		logger:     log.WithFields(map[string]interface{}{"component": "section-generator"}),
	}
}

// Industries exposes the industry defaults used for prompt variables.
func (g *Generator) Industries() *Industries {
	return g.industries
}

// Generate produces one chapter. A missing prompt yields a visible placeholder and no LLM
// call; an unconfigured LLM yields static fallback text. Other LLM errors are returned.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	lang := models.NormalizeLanguage(req.Language)
	name := string(req.Chapter)

	tmpl, err := g.prompts.Load(name, lang)
	if err != nil {
		g.logger.Warn("Prompt template missing", map[string]interface{}{
			"chapter": name,
			"lang":    lang,
			"error":   err.Error(),
		})
		return &Result{HTML: missingPromptHTML(name, lang), PromptMissing: true}, nil
	}

	prompt := g.BuildPrompt(tmpl, req.Briefing, req.Industry, lang, req.Facts)

	model := ""
	if req.Chapter == models.ChapterExecutiveSummary {
		model = g.opts.ExecutiveSummaryModel
	}

	raw, err := g.complete(ctx, lang, prompt, model, g.opts.Timeout)
	if errors.Is(err, genai.ErrLLMUnavailable) {
		return &Result{HTML: fallbackHTML(req.Chapter, lang), Fallback: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", name, err)
	}
	return &Result{HTML: ToHTML(textclean.Clean(raw))}, nil
}

// Distill runs a named follow-up prompt (quick wins, risks, recommendations) over already
// generated chapter HTML passed in vars.
func (g *Generator) Distill(ctx context.Context, name, lang string, vars map[string]interface{}, timeout time.Duration) (string, error) {
	lang = models.NormalizeLanguage(lang)
	tmpl, err := g.prompts.Load(name, lang)
	if err != nil {
		return "", err
	}
	raw, err := g.complete(ctx, lang, Substitute(tmpl, vars)+styleSuffix[lang], "", timeout)
	if err != nil {
		return "", fmt.Errorf("distill %s: %w", name, err)
	}
	return ToHTML(textclean.Clean(raw)), nil
}

// BuildPrompt fills the template and appends the style and self-employment instructions.
func (g *Generator) BuildPrompt(tmpl string, b *models.Briefing, industry, lang string, facts map[string]interface{}) string {
	vars := g.PromptVars(b, industry, lang, facts)
	prompt := Substitute(tmpl, vars) + styleSuffix[lang]
	if IsSelfEmployed(b) {
		prompt += selfEmployedSuffix[lang]
	}
	return prompt
}

// PromptVars merges briefing answers, industry defaults and computed facts; facts win.
func (g *Generator) PromptVars(b *models.Briefing, industry, lang string, facts map[string]interface{}) map[string]interface{} {
	vars := make(map[string]interface{})
	if b != nil {
		for k, v := range b.Values() {
			vars[k] = v
		}
	}
	if g.industries != nil {
		for k, v := range g.industries.Lookup(industry).Vars(lang) {
			vars[k] = v
		}
	}
	vars["branche"] = industry
	vars["sprache"] = lang
	vars["is_self_employed"] = IsSelfEmployed(b)
	for k, v := range facts {
		vars[k] = v
	}
	return vars
}

func (g *Generator) complete(ctx context.Context, lang, prompt, model string, timeout time.Duration) (string, error) {
	if g.llm == nil {
		return "", genai.ErrLLMUnavailable
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return g.llm.Complete(ctx, genai.Request{
		System: systemPersona[lang],
		Prompt: prompt,
		Model:  model,
	})
}
