package policy

import (
	"testing"

	"github.com/djofo/cmsadmin/internal/cmsadmin/editor"
	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareStripsUnsafeMarkup(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		missing []string
	}{
		{
			name:    "script",
			in:      `<p>hi<script>alert(1)</script></p>`,
			want:    "<p>hi</p>",
			missing: []string{"script", "alert"},
		},
		{
			name:    "event handler",
			in:      `<p onclick="steal()"><strong>b</strong></p>`,
			want:    "<p><strong>b</strong></p>",
			missing: []string{"onclick"},
		},
		{
			name:    "foreign iframe",
			in:      `<div class="video-container"><iframe src="https://evil.example/embed/x"></iframe></div><p>a</p>`,
			want:    "<p>a</p>",
			missing: []string{"iframe", "evil"},
		},
		{
			name:    "javascript link",
			in:      `<p><a href="javascript:alert(1)">x</a></p>`,
			missing: []string{"javascript"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Prepare(tt.in, false)
			require.NoError(t, err)
			if tt.want != "" {
				assert.Equal(t, tt.want, out)
			}
			for _, m := range tt.missing {
				assert.NotContains(t, out, m)
			}
		})
	}
}

func TestPrepareKeepsEditorMarkup(t *testing.T) {
	s := surface.New("", surface.Options{})
	s.Type("Titre")
	s.ApplyFormat(surface.FormatHeading, "2")
	s.Enter()
	s.ApplyFormat(surface.FormatFontName, "Times New Roman")
	s.ApplyFormat(surface.FormatFontSize, "18px")
	s.Type("corps")
	s.ApplyFormat(surface.FormatJustifyRight, "")
	s.InsertEmbed(surface.EmbedVideo, "https://youtu.be/dQw4w9WgXcQ")
	s.InsertEmbed(surface.EmbedVideo, "https://cdn.djofo.bj/clip.webm")
	s.InsertEmbed(surface.EmbedVideo, "https://example.com/page")
	s.InsertEmbed(surface.EmbedImage, "https://cdn.djofo.bj/a.png")
	s.ApplyFormat(surface.FormatTable, "")

	out, err := Prepare(s.Value(), false)
	require.NoError(t, err)
	assert.Equal(t, s.Value(), out)
}

func TestPrepareKeepsShortLinkWithTrailingSlash(t *testing.T) {
	for _, u := range []string{"https://youtu.be/dQw4w9WgXcQ/", "https://www.youtube.com/watch?v=dQw4w9WgXcQ/"} {
		s := surface.New("", surface.Options{})
		require.True(t, s.InsertEmbed(surface.EmbedVideo, u), u)

		out, err := Prepare(s.Value(), false)
		require.NoError(t, err)
		assert.Contains(t, out, `src="https://www.youtube.com/embed/dQw4w9WgXcQ"`, u)
	}
}

func TestPrepareMinified(t *testing.T) {
	in := "<p>a</p>\n\n   <p>b   c</p>"
	out, err := Prepare(in, true)
	require.NoError(t, err)
	assert.Equal(t, "<p>a</p><p>b c</p>", out)

	empty, err := Prepare("  ", true)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Actualité", StripTags(" <b>Actualité</b> "))
	assert.Equal(t, "", StripTags("<script>x</script>"))
}

func TestNormalize(t *testing.T) {
	out, err := Normalize(`<b>loose</b> text`)
	require.NoError(t, err)
	assert.Equal(t, "<p><strong>loose</strong> text</p>", out)

	doc, err := editor.ParseString(out)
	require.NoError(t, err)
	assert.Len(t, doc.Elements, 1)
}
