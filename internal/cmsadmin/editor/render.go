package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/edtypes"
	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/embed"
	"golang.org/x/net/html"
)

const (
	videoContainerStyle = "position: relative; padding-bottom: 56.25%; height: 0; overflow: hidden; max-width: 100%; margin: 16px 0;"
	videoFrameStyle     = "position: absolute; top: 0; left: 0; width: 100%; height: 100%; border: 0;"
	videoStyle          = "width: 100%; max-width: 100%; height: auto; margin: 16px 0; border-radius: 8px;"
	videoLinkStyle      = "padding: 16px; background: var(--background-secondary); border-radius: 8px; margin: 16px 0; text-align: center;"
	videoLinkTextStyle  = "margin: 0; color: var(--text-secondary);"
	videoLinkAStyle     = "color: var(--button-primary-bg); text-decoration: none;"

	VideoFallbackText = "Your browser does not support the video tag."
	VideoLinkLabel    = "📹 Video: "
)

// RenderHTML сериализует документ в HTML.
// Разметка строится деревом html.Node, поэтому незакрытых тегов в результате не бывает.
func RenderHTML(doc *Document) string {
	var sb strings.Builder
	if doc == nil {
		return ""
	}
	for _, el := range doc.Elements {
		node := renderBlock(el)
		if node == nil {
			continue
		}
		// strings.Builder не возвращает ошибок записи
		_ = html.Render(&sb, node)
	}
	return sb.String()
}

// RenderEmbed - html-фрагмент одного встроенного блока
func RenderEmbed(e *Embed) string {
	var sb strings.Builder
	if node := renderEmbed(e); node != nil {
		_ = html.Render(&sb, node)
	}
	return sb.String()
}

func renderBlock(el any) *html.Node {
	switch e := el.(type) {
	case *Paragraph:
		return renderTextBlock("p", e.Align, e.Content)
	case *Heading:
		level := min(max(e.Level, 1), 6)
		return renderTextBlock("h"+strconv.Itoa(level), e.Align, e.Content)
	case *List:
		return renderList(e)
	case *Table:
		return renderTable(e)
	case *Embed:
		return renderEmbed(e)
	}
	return nil
}

func renderTextBlock(tag string, align TextAlign, content []any) *html.Node {
	n := element(tag)
	if align != LeftAlign {
		setAttr(n, "style", "text-align: "+align.String()+";")
	}
	appendInlines(n, content)
	return n
}

func appendInlines(n *html.Node, content []any) {
	if len(content) == 0 {
		n.AppendChild(element("br"))
		return
	}
	for _, c := range content {
		switch v := c.(type) {
		case Text:
			n.AppendChild(renderText(v))
		case *Image:
			img := element("img")
			if v.Src != nil {
				setAttr(img, "src", v.Src.String())
			}
			if v.Alt != "" {
				setAttr(img, "alt", v.Alt)
			}
			n.AppendChild(img)
		case *HardBreak:
			n.AppendChild(element("br"))
		}
	}
}

// renderText - вложенность a > strong > em > u > span(style) > text
func renderText(t Text) *html.Node {
	node := &html.Node{Type: html.TextNode, Data: t.Content}

	var styles []string
	if t.Font != "" {
		styles = append(styles, "font-family: "+t.Font+";")
	}
	if t.Size > 0 {
		styles = append(styles, fmt.Sprintf("font-size: %dpx;", t.Size))
	}
	if len(styles) > 0 {
		span := element("span")
		setAttr(span, "style", strings.Join(styles, " "))
		node = wrap(span, node)
	}
	if t.Underlined {
		node = wrap(element("u"), node)
	}
	if t.Italic {
		node = wrap(element("em"), node)
	}
	if t.Strong {
		node = wrap(element("strong"), node)
	}
	if t.URL != nil {
		a := element("a")
		setAttr(a, "href", t.URL.String())
		node = wrap(a, node)
	}
	return node
}

func renderList(l *List) *html.Node {
	tag := "ul"
	if l.Numbered {
		tag = "ol"
	}
	n := element(tag)
	for _, li := range l.Elements {
		liNode := element("li")
		appendParagraphs(liNode, li.Content)
		n.AppendChild(liNode)
	}
	return n
}

func renderTable(t *Table) *html.Node {
	n := element("table")
	setAttr(n, "border", "1")
	tbody := element("tbody")
	for _, row := range t.Rows {
		tr := element("tr")
		for _, cell := range row {
			tag := "td"
			if cell.Header {
				tag = "th"
			}
			td := element(tag)
			appendParagraphs(td, cell.Content)
			tr.AppendChild(td)
		}
		tbody.AppendChild(tr)
	}
	n.AppendChild(tbody)
	return n
}

// appendParagraphs - единственный параграф без выравнивания пишется без обертки <p>
func appendParagraphs(n *html.Node, ps []Paragraph) {
	if len(ps) == 1 && ps[0].Align == LeftAlign {
		appendInlines(n, ps[0].Content)
		return
	}
	for _, p := range ps {
		n.AppendChild(renderTextBlock("p", p.Align, p.Content))
	}
}

func renderEmbed(e *Embed) *html.Node {
	switch e.Kind {
	case edtypes.EmbedYouTube, edtypes.EmbedVimeo:
		src := embed.YouTubeEmbedBase + e.ID
		if e.Kind == edtypes.EmbedVimeo {
			src = embed.VimeoPlayerBase + e.ID
		}
		div := element("div")
		setAttr(div, "class", "video-container")
		setAttr(div, "style", videoContainerStyle)
		iframe := element("iframe")
		setAttr(iframe, "src", src)
		setAttr(iframe, "style", videoFrameStyle)
		setAttr(iframe, "allowfullscreen", "")
		div.AppendChild(iframe)
		return div
	case edtypes.EmbedVideoFile:
		video := element("video")
		setAttr(video, "controls", "")
		setAttr(video, "style", videoStyle)
		source := element("source")
		setAttr(source, "src", e.URL)
		setAttr(source, "type", "video/"+e.MimeSubtype)
		video.AppendChild(source)
		video.AppendChild(&html.Node{Type: html.TextNode, Data: VideoFallbackText})
		return video
	case edtypes.EmbedLink:
		div := element("div")
		setAttr(div, "class", "video-link")
		setAttr(div, "style", videoLinkStyle)
		p := element("p")
		setAttr(p, "style", videoLinkTextStyle)
		p.AppendChild(&html.Node{Type: html.TextNode, Data: VideoLinkLabel})
		a := element("a")
		setAttr(a, "href", e.URL)
		setAttr(a, "target", "_blank")
		setAttr(a, "style", videoLinkAStyle)
		a.AppendChild(&html.Node{Type: html.TextNode, Data: e.URL})
		p.AppendChild(a)
		div.AppendChild(p)
		return div
	}
	return nil
}

func element(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag}
}

func setAttr(n *html.Node, key, val string) {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func wrap(parent, child *html.Node) *html.Node {
	parent.AppendChild(child)
	return parent
}
