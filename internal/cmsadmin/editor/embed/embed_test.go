package embed

import (
	"testing"

	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/edtypes"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		url  string
		kind Kind
		id   string
		ext  string
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", YouTube, "dQw4w9WgXcQ", ""},
		{"youtube watch with params", "https://www.youtube.com/watch?v=abc123&t=42s", YouTube, "abc123", ""},
		{"youtube v not first", "https://www.youtube.com/watch?feature=share&v=xyz789", YouTube, "xyz789", ""},
		{"youtube short", "https://youtu.be/abc-DEF_1?si=foo", YouTube, "abc-DEF_1", ""},
		{"youtube short trailing slash", "https://youtu.be/abc123/", YouTube, "abc123", ""},
		{"youtube watch trailing slash", "https://www.youtube.com/watch?v=abc123/", YouTube, "abc123", ""},
		{"youtube v not first trailing slash", "https://www.youtube.com/watch?t=1&v=xyz789/", YouTube, "xyz789", ""},
		{"vimeo", "https://vimeo.com/76979871", Vimeo, "76979871", ""},
		{"mp4", "https://cdn.example.com/clip.mp4", DirectVideo, "", "mp4"},
		{"webm upper", "https://cdn.example.com/CLIP.WEBM", DirectVideo, "", "webm"},
		{"ogg with query", "https://cdn.example.com/clip.ogg?token=1", DirectVideo, "", "ogg"},
		{"unknown", "https://dailymotion.com/video/x7", Unknown, "", ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			src := Classify(c.url)
			assert.Equal(t, c.kind, src.Kind)
			assert.Equal(t, c.id, src.ID)
			assert.Equal(t, c.ext, src.Ext)
			assert.False(t, src.Malformed)
		})
	}
}

func TestClassifyMalformed(t *testing.T) {
	for _, raw := range []string{
		"https://www.youtube.com/watch?v=",
		"https://www.youtube.com/watch?list=PL1",
		"https://www.youtube.com/watch?t=1&v=a%20b",
		"https://vimeo.com/channels/staffpicks",
	} {
		src := Classify(raw)
		assert.Equal(t, Unknown, src.Kind, raw)
		assert.True(t, src.Malformed, raw)
		assert.Equal(t, raw, src.URL)
	}
}

func TestEmbedURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/embed/abc", Classify("https://youtu.be/abc").EmbedURL())
	assert.Equal(t, "https://player.vimeo.com/video/42", Classify("https://vimeo.com/42").EmbedURL())
	assert.Equal(t, "https://x.org/a.mp4", Classify("https://x.org/a.mp4").EmbedURL())
}

func TestNode(t *testing.T) {
	n := Classify("https://x.org/a.webm").Node()
	assert.Equal(t, edtypes.EmbedVideoFile, n.Kind)
	assert.Equal(t, "webm", n.MimeSubtype)

	n = Classify("https://example.com/page").Node()
	assert.Equal(t, edtypes.EmbedLink, n.Kind)
	assert.Equal(t, "https://example.com/page", n.URL)
}

func TestFromEmbedSrc(t *testing.T) {
	src, ok := FromEmbedSrc("https://www.youtube.com/embed/abc")
	assert.True(t, ok)
	assert.Equal(t, YouTube, src.Kind)
	assert.Equal(t, "abc", src.ID)

	src, ok = FromEmbedSrc("https://player.vimeo.com/video/42")
	assert.True(t, ok)
	assert.Equal(t, Vimeo, src.Kind)

	_, ok = FromEmbedSrc("https://evil.example/embed")
	assert.False(t, ok)
}
