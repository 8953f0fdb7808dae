package editor

import (
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyURL   = errors.New("empty url")
	ErrInvalidURL = errors.New("invalid url")

	// ErrNoChange - команда неприменима в текущей позиции, документ не изменился
	ErrNoChange = errors.New("nothing changed")
)

// Command - команда редактора. Применяется только через Apply.
type Command interface {
	Name() string
	apply(st *State) error
}

// Apply применяет команду к копии состояния и возвращает новое состояние.
// Исходное состояние не изменяется. При ошибке возвращается исходное состояние.
func Apply(st State, cmd Command) (State, error) {
	if st.Doc == nil {
		st.Doc = &Document{Elements: make([]any, 0)}
	}
	ns := State{Doc: st.Doc.Clone()}
	ns.Sel = ClampSelection(ns.Doc, st.Sel)
	if st.Stored != nil {
		m := st.Stored.Clone()
		ns.Stored = &m
	}

	if err := cmd.apply(&ns); err != nil {
		return st, err
	}
	ns.Sel = ClampSelection(ns.Doc, ns.Sel)
	return ns, nil
}

type Mark int

const (
	MarkBold Mark = iota
	MarkItalic
	MarkUnderline
)

func (m Mark) String() string {
	switch m {
	case MarkItalic:
		return "italic"
	case MarkUnderline:
		return "underline"
	}
	return "bold"
}

func (m Mark) has(ms Marks) bool {
	switch m {
	case MarkItalic:
		return ms.Italic
	case MarkUnderline:
		return ms.Underlined
	}
	return ms.Strong
}

func (m Mark) set(ms *Marks, v bool) {
	switch m {
	case MarkItalic:
		ms.Italic = v
	case MarkUnderline:
		ms.Underlined = v
	default:
		ms.Strong = v
	}
}

// ToggleMark - жирный, курсив, подчеркивание.
// Для каретки меняет отложенное форматирование, которое применится к набираемому тексту.
type ToggleMark struct {
	Mark Mark
}

func (c ToggleMark) Name() string { return c.Mark.String() }

func (c ToggleMark) apply(st *State) error {
	blocks := textBlocks(st.Doc)
	if len(blocks) == 0 || st.Sel.IsEmpty() {
		base := st.caretMarks(blocks)
		c.Mark.set(&base, !c.Mark.has(base))
		st.Stored = &base
		return nil
	}

	from, to := st.Sel.Range()
	all := allInRange(blocks, from, to, c.Mark.has)
	updateRange(blocks, from, to, func(t *Text) {
		c.Mark.set(&t.Marks, !all)
	})
	st.Stored = nil
	return nil
}

type SetFont struct {
	Font string
}

func (c SetFont) Name() string { return "fontName" }

func (c SetFont) apply(st *State) error {
	font := strings.TrimSpace(c.Font)
	return applyMarks(st, func(m *Marks) { m.Font = font })
}

// SetSize - размер шрифта в px, 0 сбрасывает размер
type SetSize struct {
	Px int
}

func (c SetSize) Name() string { return "fontSize" }

func (c SetSize) apply(st *State) error {
	size := max(c.Px, 0)
	return applyMarks(st, func(m *Marks) { m.Size = size })
}

func applyMarks(st *State, f func(m *Marks)) error {
	blocks := textBlocks(st.Doc)
	if len(blocks) == 0 || st.Sel.IsEmpty() {
		base := st.caretMarks(blocks)
		f(&base)
		st.Stored = &base
		return nil
	}
	from, to := st.Sel.Range()
	updateRange(blocks, from, to, func(t *Text) { f(&t.Marks) })
	st.Stored = nil
	return nil
}

type Align struct {
	Align TextAlign
}

func (c Align) Name() string {
	switch c.Align {
	case CenterAlign:
		return "justifyCenter"
	case RightAlign:
		return "justifyRight"
	}
	return "justifyLeft"
}

func (c Align) apply(st *State) error {
	blocks := st.ensureBlocks()
	from, to := st.Sel.Range()
	for i := from.Block; i <= to.Block; i++ {
		*blocks[i].align = c.Align
	}
	return nil
}

// SetHeading превращает затронутые блоки верхнего уровня в заголовки уровня Level.
// Повторная команда с тем же уровнем возвращает параграфы.
type SetHeading struct {
	Level int
}

func (c SetHeading) Name() string { return "heading" }

func (c SetHeading) apply(st *State) error {
	blocks := st.ensureBlocks()
	tops := touchedTops(blocks, st.Sel)
	if len(tops) == 0 {
		return ErrNoChange
	}

	allSame := true
	for _, top := range tops {
		if h, ok := st.Doc.Elements[top].(*Heading); !ok || h.Level != c.Level {
			allSame = false
			break
		}
	}

	for _, top := range tops {
		content, align, _ := textOf(st.Doc.Elements[top])
		if allSame || c.Level <= 0 {
			st.Doc.Elements[top] = &Paragraph{Content: content, Align: align}
		} else {
			st.Doc.Elements[top] = &Heading{Level: min(c.Level, 6), Content: content, Align: align}
		}
	}
	return nil
}

// ToggleList - маркированный или нумерованный список.
type ToggleList struct {
	Numbered bool
}

func (c ToggleList) Name() string {
	if c.Numbered {
		return "insertOrderedList"
	}
	return "insertUnorderedList"
}

func (c ToggleList) apply(st *State) error {
	blocks := st.ensureBlocks()
	hb := blocks[st.Sel.Head.Block]

	if l, ok := st.Doc.Elements[hb.top].(*List); ok {
		if l.Numbered != c.Numbered {
			l.Numbered = c.Numbered
			return nil
		}
		var paras []any
		for _, li := range l.Elements {
			for _, p := range li.Content {
				pp := p
				paras = append(paras, &pp)
			}
		}
		st.Doc.Elements = splice(st.Doc.Elements, hb.top, 1, paras...)
		return nil
	}
	// списки внутри ячеек таблицы не поддерживаются
	if hb.cell >= 0 {
		return ErrNoChange
	}

	from, to := st.Sel.Range()
	fromTop, toTop := blocks[from.Block].top, blocks[to.Block].top

	out := make([]any, 0, len(st.Doc.Elements))
	out = append(out, st.Doc.Elements[:fromTop]...)
	var cur *List
	for i := fromTop; i <= toTop; i++ {
		el := st.Doc.Elements[i]
		content, align, ok := textOf(el)
		if !ok {
			cur = nil
			out = append(out, el)
			continue
		}
		if cur == nil {
			cur = &List{Numbered: c.Numbered}
			out = append(out, cur)
		}
		cur.Elements = append(cur.Elements, ListElement{Content: []Paragraph{{Content: content, Align: align}}})
	}
	out = append(out, st.Doc.Elements[toTop+1:]...)
	st.Doc.Elements = out
	return nil
}

// InsertText - ввод текста пользователем, \n разбивает блок
type InsertText struct {
	Text string
}

func (c InsertText) Name() string { return "insertText" }

func (c InsertText) apply(st *State) error {
	text := strings.ReplaceAll(c.Text, "\r\n", "\n")
	if text == "" {
		return ErrNoChange
	}
	st.ensureBlocks()
	if !st.Sel.IsEmpty() {
		st.deleteRange()
	}

	marks := st.caretMarks(textBlocks(st.Doc))
	if st.Stored == nil {
		marks.URL = nil
	}

	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			st.splitBlock()
		}
		if line == "" {
			continue
		}
		blocks := textBlocks(st.Doc)
		h := st.Sel.Head
		b := blocks[h.Block]
		left, right := splitInlines(*b.content, h.Offset)
		*b.content = joinInlines(left, []any{Text{Content: line, Marks: marks.Clone()}}, right)
		st.Sel = Caret(Pos{Block: h.Block, Offset: h.Offset + utf8.RuneCountInString(line)})
	}
	st.Stored = nil
	return nil
}

// SplitBlock - Enter
type SplitBlock struct{}

func (SplitBlock) Name() string { return "insertParagraph" }

func (SplitBlock) apply(st *State) error {
	st.ensureBlocks()
	if !st.Sel.IsEmpty() {
		st.deleteRange()
	}
	st.splitBlock()
	return nil
}

// DeleteBackward - Backspace
type DeleteBackward struct{}

func (DeleteBackward) Name() string { return "delete" }

func (DeleteBackward) apply(st *State) error {
	blocks := textBlocks(st.Doc)
	if len(blocks) == 0 {
		return ErrNoChange
	}
	if !st.Sel.IsEmpty() {
		st.deleteRange()
		return nil
	}

	h := st.Sel.Head
	b := blocks[h.Block]
	st.Stored = nil
	if h.Offset > 0 {
		before, _, after := splitRange(*b.content, h.Offset-1, h.Offset)
		*b.content = joinInlines(before, after)
		st.Sel = Caret(Pos{Block: h.Block, Offset: h.Offset - 1})
		return nil
	}

	switch {
	case !b.topLevel() && b.cell < 0 && b.para == 0:
		st.liftListItem(b)
		return nil
	case b.topLevel() && b.top > 0:
		switch st.Doc.Elements[b.top-1].(type) {
		case *Embed:
			st.Doc.Elements = splice(st.Doc.Elements, b.top-1, 1)
			return nil
		case *Paragraph, *Heading:
			prev := blocks[h.Block-1]
			plen := inlineLen(*prev.content)
			*prev.content = joinInlines(*prev.content, *b.content)
			st.Doc.Elements = splice(st.Doc.Elements, b.top, 1)
			st.Sel = Caret(Pos{Block: h.Block - 1, Offset: plen})
			return nil
		}
	}
	// начало документа, первая строка ячейки или блок после списка/таблицы
	return ErrNoChange
}

// InsertLink оборачивает выделение ссылкой, для каретки вставляет сам адрес ссылкой
type InsertLink struct {
	URL string
}

func (c InsertLink) Name() string { return "createLink" }

func (c InsertLink) apply(st *State) error {
	raw, u, err := parseURL(c.URL)
	if err != nil {
		return err
	}
	blocks := st.ensureBlocks()

	if !st.Sel.IsEmpty() {
		from, to := st.Sel.Range()
		updateRange(blocks, from, to, func(t *Text) {
			link := *u
			t.URL = &link
		})
		st.Stored = nil
		return nil
	}

	h := st.Sel.Head
	b := blocks[h.Block]
	marks := st.caretMarks(blocks)
	marks.URL = u
	left, right := splitInlines(*b.content, h.Offset)
	*b.content = joinInlines(left, []any{Text{Content: raw, Marks: marks}}, right)
	st.Sel = Caret(Pos{Block: h.Block, Offset: h.Offset + utf8.RuneCountInString(raw)})
	st.Stored = nil
	return nil
}

type InsertImage struct {
	URL string
}

func (c InsertImage) Name() string { return "insertImage" }

func (c InsertImage) apply(st *State) error {
	_, u, err := parseURL(c.URL)
	if err != nil {
		return err
	}
	st.ensureBlocks()
	if !st.Sel.IsEmpty() {
		st.deleteRange()
	}

	blocks := textBlocks(st.Doc)
	h := st.Sel.Head
	b := blocks[h.Block]
	left, right := splitInlines(*b.content, h.Offset)
	*b.content = joinInlines(left, []any{&Image{Src: u}}, right)
	st.Sel = Caret(Pos{Block: h.Block, Offset: h.Offset + 1})
	return nil
}

// InsertEmbed вставляет медиа-блок в позицию каретки
type InsertEmbed struct {
	Embed *Embed
}

func (c InsertEmbed) Name() string { return "insertHTML" }

func (c InsertEmbed) apply(st *State) error {
	if c.Embed == nil || (strings.TrimSpace(c.Embed.URL) == "" && c.Embed.ID == "") {
		return ErrEmptyURL
	}
	st.ensureBlocks()
	if !st.Sel.IsEmpty() {
		st.deleteRange()
	}

	e := *c.Embed
	at := st.insertBlock(&e)
	st.Sel = Caret(firstBlockAfter(st.Doc, at))
	return nil
}

// InsertTable - таблица Rows x Cols с пустыми ячейками, по умолчанию 1x2
type InsertTable struct {
	Rows int
	Cols int
}

func (c InsertTable) Name() string { return "insertTable" }

func (c InsertTable) apply(st *State) error {
	rows, cols := c.Rows, c.Cols
	if rows <= 0 || cols <= 0 {
		rows, cols = 1, 2
	}
	t := &Table{Rows: make([][]TableCell, rows)}
	for i := range t.Rows {
		t.Rows[i] = make([]TableCell, cols)
		for j := range t.Rows[i] {
			t.Rows[i][j] = TableCell{Content: []Paragraph{{Content: []any{}}}}
		}
	}

	st.ensureBlocks()
	if !st.Sel.IsEmpty() {
		st.deleteRange()
	}
	at := st.insertBlock(t)
	for i, b := range textBlocks(st.Doc) {
		if b.top == at {
			st.Sel = Caret(Pos{Block: i})
			break
		}
	}
	return nil
}

// ensureBlocks гарантирует наличие хотя бы одного текстового блока
func (st *State) ensureBlocks() []textBlock {
	blocks := textBlocks(st.Doc)
	if len(blocks) > 0 {
		return blocks
	}
	st.Doc.Elements = append(st.Doc.Elements, &Paragraph{Content: []any{}})
	blocks = textBlocks(st.Doc)
	st.Sel = Caret(Pos{Block: len(blocks) - 1})
	return blocks
}

func (st *State) caretMarks(blocks []textBlock) Marks {
	if st.Stored != nil {
		return st.Stored.Clone()
	}
	if len(blocks) == 0 {
		return Marks{}
	}
	h := clampPos(st.Sel.Head, blocks)
	return marksAt(*blocks[h.Block].content, h.Offset)
}

func (st *State) deleteRange() {
	blocks := textBlocks(st.Doc)
	from, to := st.Sel.Range()
	st.Sel = Caret(from)
	st.Stored = nil
	if from == to || len(blocks) == 0 {
		return
	}

	fb, tb := blocks[from.Block], blocks[to.Block]
	if from.Block == to.Block {
		before, _, after := splitRange(*fb.content, from.Offset, to.Offset)
		*fb.content = joinInlines(before, after)
		return
	}

	head, _ := splitInlines(*fb.content, from.Offset)
	_, tail := splitInlines(*tb.content, to.Offset)
	for i := from.Block + 1; i < to.Block; i++ {
		*blocks[i].content = []any{}
	}
	if fb.topLevel() && tb.topLevel() {
		*fb.content = joinInlines(head, tail)
		st.Doc.Elements = splice(st.Doc.Elements, fb.top+1, tb.top-fb.top)
		return
	}
	*fb.content = normalizeInlines(head)
	*tb.content = normalizeInlines(tail)
}

// splitBlock делит блок под кареткой. Enter в пустом элементе списка выводит его из списка.
func (st *State) splitBlock() {
	blocks := textBlocks(st.Doc)
	h := st.Sel.Head
	b := blocks[h.Block]
	left, right := splitInlines(*b.content, h.Offset)
	left, right = normalizeInlines(left), normalizeInlines(right)

	switch {
	case b.topLevel():
		var first, second any
		switch e := st.Doc.Elements[b.top].(type) {
		case *Heading:
			first = &Heading{Level: e.Level, Align: e.Align, Content: left}
			if len(right) == 0 {
				second = &Paragraph{Content: right}
			} else {
				second = &Heading{Level: e.Level, Align: e.Align, Content: right}
			}
		case *Paragraph:
			first = &Paragraph{Align: e.Align, Content: left}
			second = &Paragraph{Align: e.Align, Content: right}
		}
		st.Doc.Elements = splice(st.Doc.Elements, b.top, 1, first, second)
	case b.cell >= 0:
		cell := &st.Doc.Elements[b.top].(*Table).Rows[b.item][b.cell]
		align := cell.Content[b.para].Align
		cell.Content = splice(cell.Content, b.para, 1,
			Paragraph{Align: align, Content: left},
			Paragraph{Align: align, Content: right})
	default:
		l := st.Doc.Elements[b.top].(*List)
		li := l.Elements[b.item]
		if len(li.Content) == 1 && len(left) == 0 && len(right) == 0 {
			st.liftListItem(b)
			return
		}
		align := li.Content[b.para].Align
		firstItem := ListElement{Content: append(append([]Paragraph(nil), li.Content[:b.para]...), Paragraph{Align: align, Content: left})}
		secondItem := ListElement{Content: append([]Paragraph{{Align: align, Content: right}}, li.Content[b.para+1:]...)}
		l.Elements = splice(l.Elements, b.item, 1, firstItem, secondItem)
	}
	st.Sel = Caret(Pos{Block: h.Block + 1})
}

// liftListItem выносит элемент списка в параграфы верхнего уровня, список делится на две части.
// Порядок текстовых блоков не меняется, выделение остается валидным.
func (st *State) liftListItem(b textBlock) {
	l := st.Doc.Elements[b.top].(*List)
	item := l.Elements[b.item]

	var repl []any
	if b.item > 0 {
		repl = append(repl, &List{Numbered: l.Numbered, Elements: append([]ListElement(nil), l.Elements[:b.item]...)})
	}
	for _, p := range item.Content {
		pp := p
		repl = append(repl, &pp)
	}
	if b.item+1 < len(l.Elements) {
		repl = append(repl, &List{Numbered: l.Numbered, Elements: append([]ListElement(nil), l.Elements[b.item+1:]...)})
	}
	st.Doc.Elements = splice(st.Doc.Elements, b.top, 1, repl...)
}

// insertBlock вставляет блок в позицию каретки и возвращает его индекс в Document.Elements.
// Блок верхнего уровня делится кареткой, из списка или таблицы блок вставляется после контейнера.
func (st *State) insertBlock(el any) int {
	blocks := st.ensureBlocks()
	h := st.Sel.Head
	b := blocks[h.Block]

	if !b.topLevel() {
		st.Doc.Elements = splice(st.Doc.Elements, b.top+1, 0, el, any(&Paragraph{Content: []any{}}))
		return b.top + 1
	}

	left, right := splitInlines(*b.content, h.Offset)
	orig := st.Doc.Elements[b.top]
	at := b.top
	var ins []any
	if len(normalizeInlines(left)) > 0 {
		ins = append(ins, withContent(orig, normalizeInlines(left)))
		at++
	}
	ins = append(ins, el, withContent(orig, normalizeInlines(right)))
	st.Doc.Elements = splice(st.Doc.Elements, b.top, 1, ins...)
	return at
}

func firstBlockAfter(doc *Document, at int) Pos {
	for i, b := range textBlocks(doc) {
		if b.top > at {
			return Pos{Block: i}
		}
	}
	return End(doc)
}

func touchedTops(blocks []textBlock, sel Selection) []int {
	from, to := sel.Range()
	var tops []int
	for i := from.Block; i <= to.Block && i < len(blocks); i++ {
		if blocks[i].topLevel() {
			tops = append(tops, blocks[i].top)
		}
	}
	return tops
}

func textOf(el any) (content []any, align TextAlign, ok bool) {
	switch e := el.(type) {
	case *Paragraph:
		return e.Content, e.Align, true
	case *Heading:
		return e.Content, e.Align, true
	}
	return nil, LeftAlign, false
}

func withContent(el any, content []any) any {
	if h, ok := el.(*Heading); ok {
		return &Heading{Level: h.Level, Align: h.Align, Content: content}
	}
	_, align, _ := textOf(el)
	return &Paragraph{Align: align, Content: content}
}

// segments обходит участки выделения по блокам: [a, b) в блоке i
func segments(blocks []textBlock, from, to Pos, f func(b textBlock, a, e int)) {
	for i := from.Block; i <= to.Block && i < len(blocks); i++ {
		a, e := 0, inlineLen(*blocks[i].content)
		if i == from.Block {
			a = from.Offset
		}
		if i == to.Block {
			e = to.Offset
		}
		if a < e {
			f(blocks[i], a, e)
		}
	}
}

func updateRange(blocks []textBlock, from, to Pos, f func(t *Text)) {
	segments(blocks, from, to, func(b textBlock, a, e int) {
		before, mid, after := splitRange(*b.content, a, e)
		*b.content = joinInlines(before, eachText(mid, f), after)
	})
}

func allInRange(blocks []textBlock, from, to Pos, pred func(Marks) bool) bool {
	found, all := false, true
	segments(blocks, from, to, func(b textBlock, a, e int) {
		_, mid, _ := splitRange(*b.content, a, e)
		for _, c := range mid {
			if t, ok := c.(Text); ok {
				found = true
				if !pred(t.Marks) {
					all = false
				}
			}
		}
	})
	return found && all
}

func parseURL(raw string) (string, *url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, ErrEmptyURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, ErrInvalidURL
	}
	return raw, u, nil
}

func splice[T any](s []T, at, del int, ins ...T) []T {
	res := make([]T, 0, len(s)-del+len(ins))
	res = append(res, s[:at]...)
	res = append(res, ins...)
	return append(res, s[at+del:]...)
}
