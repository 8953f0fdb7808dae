package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown(t *testing.T) {
	e := NewMarkdownExporter()

	tests := []struct {
		name     string
		in       string
		contains []string
	}{
		{"heading", "<h1>Titre</h1><p>texte</p>", []string{"# Titre", "texte"}},
		{"marks", "<p><strong>gras</strong> et <em>italique</em></p>", []string{"**gras**", "*italique*"}},
		{"list", "<ul><li>un</li><li>deux</li></ul>", []string{"- un", "- deux"}},
		{"link", `<p><a href="https://djofo.bj">djofo</a></p>`, []string{"[djofo](https://djofo.bj)"}},
		{"youtube", `<div class="video-container"><iframe src="https://www.youtube.com/embed/abc123"></iframe></div>`,
			[]string{"[Vidéo](https://www.youtube.com/watch?v=abc123)"}},
		{"video link", `<div class="video-link"><p><a href="https://example.com/page">x</a></p></div>`,
			[]string{"[Lien vidéo](https://example.com/page)"}},
		{"table", "<table><tbody><tr><th>A</th><th>B</th></tr><tr><td>1</td><td>2</td></tr></tbody></table>",
			[]string{"| A", "| 1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := e.Markdown(tt.in)
			require.NoError(t, err)
			for _, c := range tt.contains {
				assert.Contains(t, md, c)
			}
			assert.NotContains(t, md, "<iframe")
		})
	}

	md, err := e.Markdown("")
	require.NoError(t, err)
	assert.Empty(t, md)
}
