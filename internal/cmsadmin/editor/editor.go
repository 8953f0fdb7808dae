// Пакет editor - модель документа редактора контента.
//
// Основные возможности:
//   - Парсинг HTML (значение поля content записи) в дерево узлов edtypes.
//   - Сериализация дерева обратно в HTML через html.Render, результат всегда корректная разметка.
//   - Выделение (Selection) поверх плоского списка текстовых блоков документа.
//   - Команды форматирования и вставки как чистая функция Apply(state, command).
//   - Вычисление активных форматов для подсветки кнопок панели инструментов.
package editor

import (
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/edtypes"
	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/embed"
	"golang.org/x/net/html"
)

// Размеры шрифта для уровней 1..7 (<font size="N">, команда fontSize браузера)
var legacyFontSizes = []int{10, 13, 16, 18, 24, 32, 48}

// FontSizeFromLevel переводит уровень размера шрифта 1..7 в px. Для неверного уровня возвращает 0.
func FontSizeFromLevel(level int) int {
	if level < 1 || level > len(legacyFontSizes) {
		return 0
	}
	return legacyFontSizes[level-1]
}

func ParseString(s string) (*Document, error) {
	return ParseDocument(strings.NewReader(s))
}

func ParseDocument(r io.Reader) (*Document, error) {
	rootNode, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	document := Document{Elements: make([]any, 0)}
	body := getBody(rootNode)
	if body == nil {
		return &document, nil
	}
	document.Elements = parseBlocks(body)
	return &document, nil
}

// parseBlocks разбирает детей контейнера в блоки. Строчное содержимое вне блоков собирается в параграф.
func parseBlocks(root *html.Node) []any {
	var res []any
	var pending []any

	flush := func() {
		pending = normalizeInlines(pending)
		if !blankInlines(pending) {
			res = append(res, &Paragraph{Content: pending})
		}
		pending = nil
	}

	for el := root.FirstChild; el != nil; el = el.NextSibling {
		if el.Type == html.TextNode {
			pending = append(pending, Text{Content: el.Data})
			continue
		}
		if el.Type != html.ElementNode {
			continue
		}

		switch el.Data {
		case "p", "blockquote", "pre":
			flush()
			res = append(res, parseParagraph(el))
		case "h1", "h2", "h3", "h4", "h5", "h6":
			flush()
			level, _ := strconv.Atoi(el.Data[1:])
			res = append(res, &Heading{
				Level:   level,
				Align:   blockAlign(el),
				Content: parseInlineContent(el),
			})
		case "ul", "ol":
			flush()
			res = append(res, parseList(el))
		case "table":
			flush()
			res = append(res, parseTable(el))
		case "video":
			flush()
			if e := parseVideo(el); e != nil {
				res = append(res, e)
			}
		case "iframe":
			flush()
			if src, ok := embed.FromEmbedSrc(getAttrValue("src", el.Attr)); ok {
				res = append(res, src.Node())
			}
		case "div":
			flush()
			res = append(res, parseDiv(el)...)
		default:
			// строчные элементы верхнего уровня (contenteditable пишет текст прямо в корень)
			parseInlines(el, Marks{}, &pending)
		}
	}
	flush()

	return res
}

func parseDiv(el *html.Node) []any {
	switch {
	case hasClass(el, "video-container"):
		if iframe := findElementByTagName(el, "iframe"); iframe != nil {
			if src, ok := embed.FromEmbedSrc(getAttrValue("src", iframe.Attr)); ok {
				return []any{src.Node()}
			}
		}
		return nil
	case hasClass(el, "video-link"):
		if a := findElementByTagName(el, "a"); a != nil {
			return []any{&Embed{Kind: edtypes.EmbedLink, URL: getAttrValue("href", a.Attr)}}
		}
		return nil
	}

	if containsBlock(el) {
		return parseBlocks(el)
	}
	p := &Paragraph{Align: blockAlign(el), Content: parseInlineContent(el)}
	return []any{p}
}

func parseVideo(el *html.Node) *Embed {
	src := getAttrValue("src", el.Attr)
	subtype := ""
	if source := findElementByTagName(el, "source"); source != nil {
		src = getAttrValue("src", source.Attr)
		subtype = strings.TrimPrefix(getAttrValue("type", source.Attr), "video/")
	}
	if src == "" {
		return nil
	}
	if subtype == "" {
		if s := embed.Classify(src); s.Kind == embed.DirectVideo {
			subtype = s.Ext
		}
	}
	return &Embed{Kind: edtypes.EmbedVideoFile, URL: src, MimeSubtype: strings.ToLower(subtype)}
}

func parseParagraph(root *html.Node) *Paragraph {
	return &Paragraph{
		Align:   blockAlign(root),
		Content: parseInlineContent(root),
	}
}

func parseInlineContent(root *html.Node) []any {
	var content []any
	for el := root.FirstChild; el != nil; el = el.NextSibling {
		parseInlines(el, Marks{}, &content)
	}
	return dropLoneBreak(normalizeInlines(content))
}

// dropLoneBreak - <p><br></p> это пустой параграф contenteditable
func dropLoneBreak(content []any) []any {
	if len(content) == 1 {
		if _, ok := content[0].(*HardBreak); ok {
			return []any{}
		}
	}
	return content
}

func parseInlines(el *html.Node, marks Marks, out *[]any) {
	switch el.Type {
	case html.TextNode:
		*out = append(*out, Text{Content: el.Data, Marks: marks.Clone()})
		return
	case html.ElementNode:
	default:
		return
	}

	switch el.Data {
	case "br":
		*out = append(*out, &HardBreak{})
		return
	case "img":
		if img := getImage(el); img != nil {
			*out = append(*out, img)
		}
		return
	case "b", "strong":
		marks.Strong = true
	case "i", "em":
		marks.Italic = true
	case "u":
		marks.Underlined = true
	case "a":
		if u, err := url.Parse(getAttrValue("href", el.Attr)); err == nil && u.String() != "" {
			marks.URL = u
		}
	case "font":
		if face := getAttrValue("face", el.Attr); face != "" {
			marks.Font = face
		}
		if lvl, err := strconv.Atoi(getAttrValue("size", el.Attr)); err == nil {
			marks.Size = FontSizeFromLevel(lvl)
		}
	case "script", "style":
		return
	}
	parseTextStyles(el, &marks)

	for c := el.FirstChild; c != nil; c = c.NextSibling {
		parseInlines(c, marks, out)
	}
}

func parseTextStyles(node *html.Node, marks *Marks) {
	for _, style := range parseStyles(getAttrValue("style", node.Attr)) {
		if style.Val == "inherit" {
			continue
		}

		switch style.Key {
		case "font-size":
			size, err := strconv.Atoi(strings.TrimSuffix(style.Val, "px"))
			if err == nil {
				marks.Size = size
			} else {
				slog.Debug("Parse font size", "input", style.Val, "err", err)
			}
		case "font-family":
			marks.Font = strings.Trim(style.Val, `'"`)
		case "font-weight":
			if style.Val == "bold" || style.Val == "700" {
				marks.Strong = true
			}
		case "font-style":
			if style.Val == "italic" {
				marks.Italic = true
			}
		case "text-decoration", "text-decoration-line":
			if strings.Contains(style.Val, "underline") {
				marks.Underlined = true
			}
		}
	}
}

func parseList(root *html.Node) *List {
	list := &List{Numbered: root.Data == "ol"}

	for li := root.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		list.Elements = append(list.Elements, ListElement{Content: parseContainerParagraphs(li)})
	}

	return list
}

func parseTable(root *html.Node) *Table {
	table := &Table{}

	iterNodes(root, func(tr *html.Node) bool {
		if tr.Type != html.ElementNode || tr.Data != "tr" {
			return false
		}
		var row []TableCell
		for td := tr.FirstChild; td != nil; td = td.NextSibling {
			if td.Type != html.ElementNode || (td.Data != "td" && td.Data != "th") {
				continue
			}
			row = append(row, TableCell{
				Header:  td.Data == "th",
				Content: parseContainerParagraphs(td),
			})
		}
		table.Rows = append(table.Rows, row)
		return true
	})

	return table
}

// parseContainerParagraphs - содержимое li/td: либо набор <p>, либо строчное содержимое одним параграфом.
// Вложенные списки разворачиваются в параграфы элемента.
func parseContainerParagraphs(root *html.Node) []Paragraph {
	var res []Paragraph
	var pending []any

	flush := func(force bool) {
		pending = dropLoneBreak(normalizeInlines(pending))
		if force || !blankInlines(pending) {
			res = append(res, Paragraph{Content: pending})
		}
		pending = nil
	}

	for el := root.FirstChild; el != nil; el = el.NextSibling {
		if el.Type == html.ElementNode {
			switch el.Data {
			case "p", "div":
				flush(false)
				res = append(res, *parseParagraph(el))
				continue
			case "ul", "ol":
				flush(false)
				for _, li := range parseList(el).Elements {
					res = append(res, li.Content...)
				}
				continue
			}
		}
		parseInlines(el, Marks{}, &pending)
	}
	flush(len(res) == 0)

	for i := range res {
		if res[i].Content == nil {
			res[i].Content = []any{}
		}
	}
	return res
}

func blockAlign(el *html.Node) TextAlign {
	if a := getAttrValue("align", el.Attr); a != "" {
		return edtypes.ParseTextAlign(a)
	}
	for _, style := range parseStyles(getAttrValue("style", el.Attr)) {
		if style.Key == "text-align" {
			return edtypes.ParseTextAlign(style.Val)
		}
	}
	return LeftAlign
}

func containsBlock(el *html.Node) bool {
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "p", "div", "ul", "ol", "table", "h1", "h2", "h3", "h4", "h5", "h6", "video", "iframe", "blockquote", "pre":
			return true
		}
	}
	return false
}

func getImage(el *html.Node) *Image {
	raw := getAttrValue("src", el.Attr)
	if raw == "" {
		return nil
	}
	imgUrl, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return &Image{Src: imgUrl, Alt: getAttrValue("alt", el.Attr)}
}

func findElementByTagName(rootNode *html.Node, tagName string) *html.Node {
	var el *html.Node
	iterNodes(rootNode, func(child *html.Node) bool {
		if el != nil {
			return true
		}
		if child.Type == html.ElementNode && child.Data == tagName {
			el = child
			return true
		}
		return false
	})
	return el
}

func getBody(rootNode *html.Node) *html.Node {
	return findElementByTagName(rootNode, "body")
}

func iterNodes(node *html.Node, f func(child *html.Node) bool) {
	if f(node) {
		return
	}
	for p := node.FirstChild; p != nil; p = p.NextSibling {
		iterNodes(p, f)
	}
}

func getAttrValue(key string, attrs []html.Attribute) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasClass(el *html.Node, class string) bool {
	return slices.Contains(strings.Fields(getAttrValue("class", el.Attr)), class)
}

func parseStyles(raw string) []html.Attribute {
	var res []html.Attribute
	for styleRaw := range strings.SplitSeq(raw, ";") {
		k, v, ok := strings.Cut(styleRaw, ":")
		if !ok {
			continue
		}
		res = append(res, html.Attribute{
			Key: strings.ToLower(strings.TrimSpace(k)),
			Val: strings.TrimSpace(v),
		})
	}
	return res
}

func blankInlines(content []any) bool {
	for _, c := range content {
		t, ok := c.(Text)
		if !ok || strings.TrimSpace(t.Content) != "" {
			return false
		}
	}
	return true
}
