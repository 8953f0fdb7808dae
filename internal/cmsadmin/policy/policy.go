// Политики очистки html контента перед отправкой в API djofo.
//
// Prepare прогоняет документ через bluemonday, затем через модель редактора (разбор и повторная сериализация),
// поэтому в API уходит только разметка, которую умеет строить редактор. Минификация опциональна.
package policy

import (
	"regexp"
	"strings"

	"github.com/djofo/cmsadmin/internal/cmsadmin/editor"
	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/embed"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
)

var StripTagsPolicy *bluemonday.Policy = bluemonday.StrictPolicy()
var UgcPolicy *bluemonday.Policy = bluemonday.UGCPolicy()

var minifier *minify.M = minify.New()

func init() {
	sizeRegexp := regexp.MustCompile(`^\d{1,3}px$`)
	fontRegexp := regexp.MustCompile(`^[\w\s,'"-]{1,64}$`)
	markRegexp := regexp.MustCompile(`^(bold|700|italic|underline)$`)
	embedSrcRegexp := regexp.MustCompile(`^(` + regexp.QuoteMeta(embed.YouTubeEmbedBase) + `|` + regexp.QuoteMeta(embed.VimeoPlayerBase) + `)[\w-]+$`)
	embedClassRegexp := regexp.MustCompile(`^(video-container|video-link)$`)
	videoTypeRegexp := regexp.MustCompile(`^video/[a-z0-9]+$`)

	UgcPolicy.AllowAttrs("class").Matching(embedClassRegexp).OnElements("div")
	UgcPolicy.AllowAttrs("src").Matching(embedSrcRegexp).OnElements("iframe")
	UgcPolicy.AllowAttrs("allowfullscreen").OnElements("iframe")
	UgcPolicy.AllowAttrs("controls").OnElements("video")
	UgcPolicy.AllowAttrs("src").OnElements("video", "source")
	UgcPolicy.AllowAttrs("type").Matching(videoTypeRegexp).OnElements("source")
	UgcPolicy.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	UgcPolicy.AllowAttrs("border").Matching(regexp.MustCompile(`^\d$`)).OnElements("table")
	UgcPolicy.AllowAttrs("style").OnElements("span", "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "td", "th")

	UgcPolicy.AllowStyles("font-size").Matching(sizeRegexp).Globally()
	UgcPolicy.AllowStyles("font-family").Matching(fontRegexp).Globally()
	UgcPolicy.AllowStyles("text-align").Matching(bluemonday.CellAlign).Globally()
	UgcPolicy.AllowStyles("font-weight", "font-style", "text-decoration", "text-decoration-line").Matching(markRegexp).Globally()

	minifier.Add("text/html", &minhtml.Minifier{
		KeepEndTags:         true,
		KeepDocumentTags:    true,
		KeepDefaultAttrVals: true,
		KeepQuotes:          true,
	})
}

// Sanitize убирает все, чего нет в политике редактора
func Sanitize(content string) string {
	return UgcPolicy.Sanitize(content)
}

// StripTags оставляет только текст, для заголовков и тегов
func StripTags(s string) string {
	return strings.TrimSpace(StripTagsPolicy.Sanitize(s))
}

// Normalize приводит разметку к виду, который строит редактор
func Normalize(content string) (string, error) {
	doc, err := editor.ParseString(content)
	if err != nil {
		return "", err
	}
	return editor.RenderHTML(doc), nil
}

// Prepare - очистка, нормализация и, если minified, минификация
func Prepare(content string, minified bool) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	out, err := Normalize(Sanitize(content))
	if err != nil {
		return "", err
	}
	if !minified {
		return out, nil
	}
	return minifier.String("text/html", out)
}
