// Package textclean repairs encoding artifacts in LLM output and extracts plain text from HTML.
package textclean

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Mojibake sequences produced when UTF-8 text is decoded as Latin-1/CP1252, mapped to the
// intended characters. Longer sequences come first so they win over their prefixes.
var mojibake = []struct{ bad, good string }{
	{"â€ž", "„"},
	{"â€œ", "“"},
	{"â€\u009d", "”"},
	{"â€™", "’"},
	{"â€˜", "‘"},
	{"â€“", "–"},
	{"â€”", "—"},
	{"â€¦", "…"},
	{"â€¢", "•"},
	{"â‚¬", "€"},
	{"Ã¤", "ä"},
	{"Ã¶", "ö"},
	{"Ã¼", "ü"},
	{"Ã„", "Ä"},
	{"Ã–", "Ö"},
	{"Ãœ", "Ü"},
	{"ÃŸ", "ß"},
	{"Ã©", "é"},
	{"Ã¨", "è"},
	{"Â§", "§"},
	{"Â°", "°"},
	{"\u00c2\u00a0", " "},
	{"\ufffd", ""},
}

var (
	repairer = func() *strings.Replacer {
		pairs := make([]string, 0, len(mojibake)*2)
		for _, m := range mojibake {
			pairs = append(pairs, m.bad, m.good)
		}
		return strings.NewReplacer(pairs...)
	}()

	typography = strings.NewReplacer(
		"\u00a0", " ",
		"\u200b", "",
		"\ufeff", "",
		"\u00ad", "",
	)

	codeFence = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
)

// FindMojibake returns the distinct corrupted sequences present in s.
func FindMojibake(s string) []string {
	var found []string
	for _, m := range mojibake {
		if m.bad == "\ufffd" {
			continue
		}
		if strings.Contains(s, m.bad) {
			found = append(found, m.bad)
		}
	}
	return found
}

// Repair replaces mojibake sequences and invisible typographic characters.
func Repair(s string) string {
	return typography.Replace(repairer.Replace(s))
}

// Clean repairs encoding and strips markdown code fences the model wraps its answer in.
func Clean(s string) string {
	s = codeFence.ReplaceAllString(Repair(s), "")
	return strings.TrimSpace(s)
}

// StripHTML returns the visible text of an HTML fragment, block elements separated by spaces.
func StripHTML(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}
