package sections

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)

	bulletLine  = regexp.MustCompile(`^(?:[-*•–]|\d+[.)])\s+(.*)$`)
	headingLine = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)
	deepHeading = regexp.MustCompile(`^#{4,}\s*`)
)

// LooksLikeHTML reports whether text already carries markup and must not be converted.
func LooksLikeHTML(text string) bool {
	return strings.Contains(text, "<") && strings.Contains(text, ">")
}

// ToHTML converts plain model output to HTML. Every non-empty line becomes its own block:
// bullet lines form lists, one to three leading # form headings, anything else a paragraph.
func ToHTML(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || LooksLikeHTML(text) {
		return text
	}

	var md strings.Builder
	inList := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := bulletLine.FindStringSubmatch(line); m != nil {
			if !inList && md.Len() > 0 {
				md.WriteString("\n")
			}
			md.WriteString("- " + m[1] + "\n")
			inList = true
			continue
		}

		if md.Len() > 0 {
			md.WriteString("\n")
		}
		inList = false

		switch {
		case headingLine.MatchString(line):
			md.WriteString(line + "\n")
		case deepHeading.MatchString(line):
			md.WriteString(escapeMarkdown(deepHeading.ReplaceAllString(line, "")) + "\n")
		default:
			md.WriteString(escapeMarkdown(line) + "\n")
		}
	}

	var out bytes.Buffer
	if err := markdown.Convert([]byte(md.String()), &out); err != nil {
		return "<p>" + text + "</p>"
	}
	return strings.TrimSpace(out.String())
}

// escapeMarkdown keeps paragraph lines from being read as list items or rules.
func escapeMarkdown(line string) string {
	if strings.HasPrefix(line, "#") || strings.HasPrefix(line, ">") || strings.HasPrefix(line, "+") || strings.HasPrefix(line, "=") {
		return `\` + line
	}
	return line
}
