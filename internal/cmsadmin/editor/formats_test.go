package editor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveFormats(t *testing.T) {
	tests := []struct {
		name string
		html string
		sel  Selection
		want []string
	}{
		{"empty document", "", Caret(Pos{}), []string{"left"}},
		{"plain", "<p>abc</p>", Caret(Pos{Offset: 1}), []string{"left"}},
		{"italic in numbered list", "<ol><li><em>x</em></li></ol>", Caret(Pos{Offset: 1}), []string{"italic", "ol", "left"}},
		{"caret at block start takes next text", "<p><u>ab</u></p>", Caret(Pos{}), []string{"underline", "left"}},
		{"centered bold", `<p style="text-align:center"><b>a</b></p>`, Caret(Pos{Offset: 1}), []string{"bold", "center"}},
		{"selection common marks", "<p><b><i>a</i></b><b>b</b></p>", sel(0, 0, 0, 2), []string{"bold", "left"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := stateOf(t, tt.html, tt.sel)
			assert.Equal(t, tt.want, ActiveFormats(st).Names())
		})
	}
}

func TestFormatSetJSON(t *testing.T) {
	data, err := json.Marshal(FormatSet(Bold | AlignRight))
	require.NoError(t, err)
	assert.JSONEq(t, `["bold","right"]`, string(data))

	f, ok := ParseFormat("ul")
	assert.True(t, ok)
	assert.Equal(t, BulletList, f)

	_, ok = ParseFormat("strike")
	assert.False(t, ok)
}
