// Экспорт документа редактора в Markdown.
//
// Встроенные видео в Markdown не переносятся, вместо них пишется ссылка на исходный адрес.
// Распознанное видео подписывается "Vidéo", нераспознанное "Lien vidéo".
package export

import (
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/djofo/cmsadmin/internal/cmsadmin/editor"
	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/edtypes"
)

const (
	videoLabel = "Vidéo"
	linkLabel  = "Lien vidéo"
)

type MarkdownExporter struct {
	conv *converter.Converter
}

func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Markdown конвертирует сериализованный документ
func (e *MarkdownExporter) Markdown(content string) (string, error) {
	doc, err := editor.ParseString(content)
	if err != nil {
		return "", err
	}
	return e.Document(doc)
}

func (e *MarkdownExporter) Document(doc *editor.Document) (string, error) {
	if doc == nil {
		return "", nil
	}
	flat := &editor.Document{Elements: make([]any, 0, len(doc.Elements))}
	for _, el := range doc.Elements {
		if emb, ok := el.(*editor.Embed); ok {
			if p := embedParagraph(emb); p != nil {
				flat.Elements = append(flat.Elements, p)
			}
			continue
		}
		flat.Elements = append(flat.Elements, el)
	}

	md, err := e.conv.ConvertString(editor.RenderHTML(flat))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}

func embedParagraph(e *editor.Embed) *editor.Paragraph {
	u, err := url.Parse(e.URL)
	if err != nil || e.URL == "" {
		return nil
	}
	label := videoLabel
	if e.Kind == edtypes.EmbedLink {
		label = linkLabel
	}
	return &editor.Paragraph{Content: []any{
		editor.Text{Content: label, Marks: editor.Marks{URL: u}},
	}}
}
