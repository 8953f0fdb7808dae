package editor

import (
	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/edtypes"
)

// Реэкспорт типов из edtypes
type (
	TextAlign   = edtypes.TextAlign
	Document    = edtypes.Document
	Paragraph   = edtypes.Paragraph
	Heading     = edtypes.Heading
	Text        = edtypes.Text
	Marks       = edtypes.Marks
	HardBreak   = edtypes.HardBreak
	Image       = edtypes.Image
	ListElement = edtypes.ListElement
	List        = edtypes.List
	Table       = edtypes.Table
	TableCell   = edtypes.TableCell
	Embed       = edtypes.Embed
	EmbedKind   = edtypes.EmbedKind
)

const (
	LeftAlign   = edtypes.LeftAlign
	CenterAlign = edtypes.CenterAlign
	RightAlign  = edtypes.RightAlign
)

func init() {
	edtypes.HTMLParser = ParseString
	edtypes.HTMLRenderer = func(d *Document) (string, error) {
		return RenderHTML(d), nil
	}
}
