package editor

// Pos указывает в документ: индекс текстового блока и смещение внутри него.
type Pos struct {
	Block  int `json:"block"`
	Offset int `json:"offset"`
}

// Selection - выделение от Anchor до Head. Пустое выделение - каретка.
type Selection struct {
	Anchor Pos `json:"anchor"`
	Head   Pos `json:"head"`
}

func Caret(p Pos) Selection {
	return Selection{Anchor: p, Head: p}
}

func ComparePos(a, b Pos) int {
	if a.Block < b.Block {
		return -1
	}
	if a.Block > b.Block {
		return 1
	}
	if a.Offset < b.Offset {
		return -1
	}
	if a.Offset > b.Offset {
		return 1
	}
	return 0
}

func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Head
}

// Range возвращает границы выделения в порядке документа
func (s Selection) Range() (from, to Pos) {
	if ComparePos(s.Anchor, s.Head) <= 0 {
		return s.Anchor, s.Head
	}
	return s.Head, s.Anchor
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampPos(p Pos, blocks []textBlock) Pos {
	if len(blocks) == 0 {
		return Pos{}
	}
	p.Block = clampInt(p.Block, 0, len(blocks)-1)
	p.Offset = clampInt(p.Offset, 0, inlineLen(*blocks[p.Block].content))
	return p
}

// ClampSelection приводит выделение к границам документа
func ClampSelection(doc *Document, s Selection) Selection {
	blocks := textBlocks(doc)
	return Selection{Anchor: clampPos(s.Anchor, blocks), Head: clampPos(s.Head, blocks)}
}

// State - состояние редактора: дерево, выделение и отложенное форматирование для набираемого текста.
type State struct {
	Doc    *Document
	Sel    Selection
	Stored *Marks
}

func NewState(doc *Document) State {
	if doc == nil {
		doc = &Document{Elements: make([]any, 0)}
	}
	return State{Doc: doc}
}

// End - позиция в конце документа
func End(doc *Document) Pos {
	blocks := textBlocks(doc)
	if len(blocks) == 0 {
		return Pos{}
	}
	last := len(blocks) - 1
	return Pos{Block: last, Offset: inlineLen(*blocks[last].content)}
}

// TextBlockCount - число текстовых блоков документа
func TextBlockCount(doc *Document) int {
	return len(textBlocks(doc))
}
