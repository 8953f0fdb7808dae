// Пакет edtypes содержит типы узлов дерева документа редактора.
//
// Документ состоит из блоков верхнего уровня (*Paragraph, *Heading, *List, *Embed, *Table).
// Внутри параграфов и заголовков лежит строчное содержимое: Text, *Image, *HardBreak.
package edtypes

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type TextAlign int

const (
	LeftAlign TextAlign = iota
	CenterAlign
	RightAlign
)

func (a TextAlign) String() string {
	switch a {
	case CenterAlign:
		return "center"
	case RightAlign:
		return "right"
	}
	return "left"
}

// ParseTextAlign - значение css text-align в TextAlign, неизвестные значения дают LeftAlign
func ParseTextAlign(raw string) TextAlign {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "center":
		return CenterAlign
	case "right":
		return RightAlign
	}
	return LeftAlign
}

// HTMLParser - функция для парсинга HTML в Document, устанавливается из пакета editor
var HTMLParser func(string) (*Document, error)

// HTMLRenderer - функция для сериализации Document в HTML, устанавливается из пакета editor
var HTMLRenderer func(*Document) (string, error)

type Document struct {
	Elements []any
}

// Value реализует интерфейс driver.Valuer, документ хранится в базе как сериализованный HTML.
func (d Document) Value() (driver.Value, error) {
	if HTMLRenderer == nil {
		return nil, errors.New("HTMLRenderer not registered, import editor package to enable HTML serialization")
	}
	return HTMLRenderer(&d)
}

// Scan реализует интерфейс sql.Scanner.
func (d *Document) Scan(value interface{}) error {
	if value == nil {
		*d = Document{Elements: make([]any, 0)}
		return nil
	}
	if HTMLParser == nil {
		return errors.New("HTMLParser not registered, import editor package to enable HTML parsing")
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return errors.New(fmt.Sprint("Failed to scan document value:", value))
	}

	doc, err := HTMLParser(raw)
	if err != nil {
		return err
	}
	d.Elements = doc.Elements
	return nil
}

// GormDataType указывает GORM хранить документ в текстовой колонке.
func (Document) GormDataType() string {
	return "text"
}

// Clone - глубокая копия документа. Команды редактора работают только с копией.
func (d *Document) Clone() *Document {
	res := &Document{Elements: make([]any, 0, len(d.Elements))}
	for _, el := range d.Elements {
		if c := cloneBlock(el); c != nil {
			res.Elements = append(res.Elements, c)
		}
	}
	return res
}

type Paragraph struct {
	Content []any
	Align   TextAlign
}

type Heading struct {
	Level   int
	Content []any
	Align   TextAlign
}

// Marks - строчное форматирование участка текста
type Marks struct {
	Strong     bool
	Italic     bool
	Underlined bool

	Font string
	Size int // px, 0 - размер по умолчанию

	URL *url.URL
}

func (m Marks) Equal(o Marks) bool {
	if m.Strong != o.Strong || m.Italic != o.Italic || m.Underlined != o.Underlined {
		return false
	}
	if m.Font != o.Font || m.Size != o.Size {
		return false
	}
	if (m.URL == nil) != (o.URL == nil) {
		return false
	}
	return m.URL == nil || m.URL.String() == o.URL.String()
}

func (m Marks) Clone() Marks {
	if m.URL != nil {
		u := *m.URL
		m.URL = &u
	}
	return m
}

type Text struct {
	Content string
	Marks
}

type HardBreak struct {
	// Пустая структура для представления переноса строки <br>
}

type Image struct {
	Src *url.URL
	Alt string
}

type ListElement struct {
	Content []Paragraph
}

type List struct {
	Elements []ListElement
	Numbered bool
}

type TableCell struct {
	Content []Paragraph
	Header  bool
}

type Table struct {
	Rows [][]TableCell
}

// EmbedKind - вид встроенного медиа-блока
type EmbedKind int

const (
	EmbedLink EmbedKind = iota // блок со ссылкой на нераспознанное видео
	EmbedYouTube
	EmbedVimeo
	EmbedVideoFile
)

func (k EmbedKind) String() string {
	switch k {
	case EmbedYouTube:
		return "youtube"
	case EmbedVimeo:
		return "vimeo"
	case EmbedVideoFile:
		return "video"
	}
	return "link"
}

// Embed - встроенный медиа-блок.
// ID заполнен для YouTube и Vimeo, MimeSubtype для прямой ссылки на видеофайл, URL - исходный адрес.
type Embed struct {
	Kind        EmbedKind
	ID          string
	MimeSubtype string
	URL         string
}

func cloneBlock(el any) any {
	switch e := el.(type) {
	case *Paragraph:
		p := cloneParagraph(*e)
		return &p
	case *Heading:
		return &Heading{Level: e.Level, Align: e.Align, Content: CloneInlines(e.Content)}
	case *List:
		l := &List{Numbered: e.Numbered, Elements: make([]ListElement, len(e.Elements))}
		for i, li := range e.Elements {
			l.Elements[i] = ListElement{Content: cloneParagraphs(li.Content)}
		}
		return l
	case *Table:
		t := &Table{Rows: make([][]TableCell, len(e.Rows))}
		for i, row := range e.Rows {
			t.Rows[i] = make([]TableCell, len(row))
			for j, cell := range row {
				t.Rows[i][j] = TableCell{Header: cell.Header, Content: cloneParagraphs(cell.Content)}
			}
		}
		return t
	case *Embed:
		em := *e
		return &em
	}
	return nil
}

func cloneParagraph(p Paragraph) Paragraph {
	return Paragraph{Align: p.Align, Content: CloneInlines(p.Content)}
}

func cloneParagraphs(ps []Paragraph) []Paragraph {
	res := make([]Paragraph, len(ps))
	for i, p := range ps {
		res[i] = cloneParagraph(p)
	}
	return res
}

// CloneInlines копирует строчное содержимое блока
func CloneInlines(in []any) []any {
	res := make([]any, 0, len(in))
	for _, c := range in {
		switch v := c.(type) {
		case Text:
			res = append(res, Text{Content: v.Content, Marks: v.Marks.Clone()})
		case *Image:
			img := &Image{Alt: v.Alt}
			if v.Src != nil {
				u := *v.Src
				img.Src = &u
			}
			res = append(res, img)
		case *HardBreak:
			res = append(res, &HardBreak{})
		}
	}
	return res
}
