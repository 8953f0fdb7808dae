package editor

import (
	"encoding/json"
)

// Format - флаг активного формата для подсветки кнопки панели
type Format uint16

const (
	Bold Format = 1 << iota
	Italic
	Underline
	BulletList
	NumberedList
	AlignLeft
	AlignCenter
	AlignRight
)

var formatNames = []struct {
	f    Format
	name string
}{
	{Bold, "bold"},
	{Italic, "italic"},
	{Underline, "underline"},
	{BulletList, "ul"},
	{NumberedList, "ol"},
	{AlignLeft, "left"},
	{AlignCenter, "center"},
	{AlignRight, "right"},
}

// FormatSet - набор активных форматов
type FormatSet Format

func (s FormatSet) Has(f Format) bool {
	return Format(s)&f == f
}

func (s FormatSet) Names() []string {
	res := make([]string, 0, len(formatNames))
	for _, fn := range formatNames {
		if s.Has(fn.f) {
			res = append(res, fn.name)
		}
	}
	return res
}

func (s FormatSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON принимает список имен, неизвестные имена пропускаются
func (s *FormatSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var f Format
	for _, name := range names {
		if v, ok := ParseFormat(name); ok {
			f |= v
		}
	}
	*s = FormatSet(f)
	return nil
}

// ParseFormat - имя формата в Format, для неизвестного имени false
func ParseFormat(name string) (Format, bool) {
	for _, fn := range formatNames {
		if fn.name == name {
			return fn.f, true
		}
	}
	return 0, false
}

// ActiveFormats вычисляет форматы в позиции каретки (Head выделения).
// Отложенное форматирование каретки имеет приоритет над форматированием текста.
func ActiveFormats(st State) FormatSet {
	if st.Doc == nil {
		st.Doc = &Document{Elements: make([]any, 0)}
	}
	blocks := textBlocks(st.Doc)

	var marks Marks
	switch {
	case st.Stored != nil:
		marks = *st.Stored
	case len(blocks) > 0:
		h := clampPos(st.Sel.Head, blocks)
		if st.Sel.IsEmpty() {
			marks = marksAt(*blocks[h.Block].content, h.Offset)
		} else {
			from, to := st.Sel.Range()
			marks = selectionMarks(blocks, from, to)
		}
	}

	var f Format
	if marks.Strong {
		f |= Bold
	}
	if marks.Italic {
		f |= Italic
	}
	if marks.Underlined {
		f |= Underline
	}

	if len(blocks) == 0 {
		return FormatSet(f | AlignLeft)
	}
	b := blocks[clampPos(st.Sel.Head, blocks).Block]
	if l, ok := st.Doc.Elements[b.top].(*List); ok {
		if l.Numbered {
			f |= NumberedList
		} else {
			f |= BulletList
		}
	}
	switch *b.align {
	case CenterAlign:
		f |= AlignCenter
	case RightAlign:
		f |= AlignRight
	default:
		f |= AlignLeft
	}
	return FormatSet(f)
}

// selectionMarks - общее форматирование всего текста выделения
func selectionMarks(blocks []textBlock, from, to Pos) Marks {
	var res Marks
	first := true
	segments(blocks, from, to, func(b textBlock, a, e int) {
		_, mid, _ := splitRange(*b.content, a, e)
		for _, c := range mid {
			t, ok := c.(Text)
			if !ok {
				continue
			}
			if first {
				res = t.Marks.Clone()
				first = false
				continue
			}
			res.Strong = res.Strong && t.Strong
			res.Italic = res.Italic && t.Italic
			res.Underlined = res.Underlined && t.Underlined
		}
	})
	return res
}
