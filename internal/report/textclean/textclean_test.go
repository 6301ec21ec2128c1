package textclean

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"umlauts", "GeschÃ¤ftsfÃ¼hrer fÃ¶rdert StraÃŸe", "Geschäftsführer fördert Straße"},
		{"quotes and dashes", "â€žKIâ€œ â€“ jetzt", "„KI“ – jetzt"},
		{"euro", "5.000 â‚¬", "5.000 €"},
		{"nbsp", "10\u00a0%", "10 %"},
		{"clean text untouched", "Größe und Maß", "Größe und Maß"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Repair(tt.in))
		})
	}
}

func TestFindMojibake(t *testing.T) {
	assert.Empty(t, FindMojibake("Alles in Ordnung, Müller"))
	assert.ElementsMatch(t, []string{"Ã¼", "â€“"}, FindMojibake("MÃ¼ller â€“ Bericht"))
}

func TestClean_StripsFences(t *testing.T) {
	in := "```html\n<p>Hallo</p>\n```"
	assert.Equal(t, "<p>Hallo</p>", Clean(in))
}

func TestStripHTML(t *testing.T) {
	in := `<h2>Titel</h2><p>Erster Satz.<br/>Zweiter <strong>Satz</strong>.</p><style>p{}</style>`
	assert.Equal(t, "Titel Erster Satz. Zweiter Satz .", StripHTML(in))
}
