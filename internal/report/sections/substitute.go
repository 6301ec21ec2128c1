package sections

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// placeholder matches {{key}} and {{key | join(', ')}}.
var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*(?:\|\s*join\(\s*['"]([^'"]*)['"]\s*\)\s*)?\}\}`)

// Substitute fills placeholders from vars. Lists are joined with the requested separator,
// or ", " without a join filter. Unknown keys become empty strings.
func Substitute(tmpl string, vars map[string]interface{}) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		groups := placeholder.FindStringSubmatch(match)
		key := groups[1]
		sep := ", "
		if strings.Contains(match, "join(") {
			sep = groups[2]
		}
		v, ok := vars[key]
		if !ok || v == nil {
			return ""
		}
		return render(v, sep)
	})
}

func render(v interface{}, sep string) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, sep)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, render(item, sep))
		}
		return strings.Join(parts, sep)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "ja"
		}
		return "nein"
	default:
		return fmt.Sprint(t)
	}
}
