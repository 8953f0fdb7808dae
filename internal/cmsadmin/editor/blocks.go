package editor

import (
	"unicode/utf8"
)

// textBlock - текстовый блок в плоском представлении документа.
// Параграфы и заголовки верхнего уровня, параграфы элементов списков и ячеек таблиц идут в порядке документа.
type textBlock struct {
	top  int // индекс в Document.Elements
	item int // элемент списка или строка таблицы, -1 для блока верхнего уровня
	cell int // столбец таблицы, -1 вне таблицы
	para int // параграф внутри элемента списка или ячейки

	content *[]any
	align   *TextAlign
}

func (b textBlock) topLevel() bool {
	return b.item < 0
}

func textBlocks(doc *Document) []textBlock {
	var res []textBlock
	for i, el := range doc.Elements {
		switch e := el.(type) {
		case *Paragraph:
			res = append(res, textBlock{top: i, item: -1, cell: -1, para: -1, content: &e.Content, align: &e.Align})
		case *Heading:
			res = append(res, textBlock{top: i, item: -1, cell: -1, para: -1, content: &e.Content, align: &e.Align})
		case *List:
			for j := range e.Elements {
				li := &e.Elements[j]
				for k := range li.Content {
					p := &li.Content[k]
					res = append(res, textBlock{top: i, item: j, cell: -1, para: k, content: &p.Content, align: &p.Align})
				}
			}
		case *Table:
			for r := range e.Rows {
				for c := range e.Rows[r] {
					cell := &e.Rows[r][c]
					for k := range cell.Content {
						p := &cell.Content[k]
						res = append(res, textBlock{top: i, item: r, cell: c, para: k, content: &p.Content, align: &p.Align})
					}
				}
			}
		}
	}
	return res
}

// inlineLen - длина строчного содержимого в единицах выделения: руны текста, картинка и перенос строки по одной
func inlineLen(content []any) int {
	n := 0
	for _, c := range content {
		switch v := c.(type) {
		case Text:
			n += utf8.RuneCountInString(v.Content)
		case *Image, *HardBreak:
			n++
		}
	}
	return n
}

// splitInlines делит содержимое по смещению, текстовый участок на границе режется.
func splitInlines(content []any, off int) (left, right []any) {
	left = make([]any, 0, len(content))
	right = make([]any, 0, len(content))
	pos := 0
	for _, c := range content {
		switch v := c.(type) {
		case Text:
			runes := []rune(v.Content)
			switch {
			case pos+len(runes) <= off:
				left = append(left, v)
			case pos >= off:
				right = append(right, v)
			default:
				cut := off - pos
				left = append(left, Text{Content: string(runes[:cut]), Marks: v.Marks.Clone()})
				right = append(right, Text{Content: string(runes[cut:]), Marks: v.Marks.Clone()})
			}
			pos += len(runes)
		default:
			if pos < off {
				left = append(left, c)
			} else {
				right = append(right, c)
			}
			pos++
		}
	}
	return left, right
}

// splitRange делит содержимое на участки [0,from) [from,to) [to,len)
func splitRange(content []any, from, to int) (before, mid, after []any) {
	before, rest := splitInlines(content, from)
	mid, after = splitInlines(rest, to-from)
	return before, mid, after
}

func joinInlines(parts ...[]any) []any {
	var res []any
	for _, p := range parts {
		res = append(res, p...)
	}
	return normalizeInlines(res)
}

// normalizeInlines склеивает соседние участки текста с одинаковым форматированием и убирает пустые
func normalizeInlines(content []any) []any {
	res := make([]any, 0, len(content))
	for _, c := range content {
		t, ok := c.(Text)
		if !ok {
			res = append(res, c)
			continue
		}
		if t.Content == "" {
			continue
		}
		if len(res) > 0 {
			if prev, ok := res[len(res)-1].(Text); ok && prev.Marks.Equal(t.Marks) {
				prev.Content += t.Content
				res[len(res)-1] = prev
				continue
			}
		}
		res = append(res, t)
	}
	return res
}

// marksAt - форматирование текста перед кареткой, в начале блока - после нее
func marksAt(content []any, off int) Marks {
	pos := 0
	var after *Marks
	for _, c := range content {
		var n int
		t, isText := c.(Text)
		if isText {
			n = utf8.RuneCountInString(t.Content)
		} else {
			n = 1
		}
		if isText {
			if off > pos && off <= pos+n {
				return t.Marks.Clone()
			}
			if after == nil && pos >= off {
				m := t.Marks.Clone()
				after = &m
			}
		}
		pos += n
	}
	if off == 0 && after != nil {
		return *after
	}
	// каретка после картинки или в конце: ищем ближайший текст слева
	pos = 0
	var last *Marks
	for _, c := range content {
		if pos >= off {
			break
		}
		if t, ok := c.(Text); ok {
			m := t.Marks.Clone()
			last = &m
			pos += utf8.RuneCountInString(t.Content)
		} else {
			pos++
		}
	}
	if last != nil {
		return *last
	}
	return Marks{}
}

// eachText вызывает f для каждого текстового участка содержимого
func eachText(content []any, f func(t *Text)) []any {
	res := make([]any, len(content))
	for i, c := range content {
		if t, ok := c.(Text); ok {
			f(&t)
			res[i] = t
		} else {
			res[i] = c
		}
	}
	return res
}
