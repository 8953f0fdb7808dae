// Пакет taginput - поле ввода тегов.
//
// Теги хранятся в порядке добавления без повторов, пустые и состоящие из пробелов строки не добавляются.
package taginput

import (
	"slices"
	"strings"
)

const (
	KeyEnter     = "Enter"
	KeyComma     = ","
	KeyBackspace = "Backspace"
)

type Input struct {
	tags []string
	text string

	// OnChange вызывается после каждого изменения списка тегов
	OnChange func(tags []string)
}

func New(tags []string) *Input {
	in := &Input{}
	for _, t := range tags {
		in.add(t)
	}
	return in
}

// Tags возвращает копию списка тегов
func (in *Input) Tags() []string {
	return slices.Clone(in.tags)
}

func (in *Input) Text() string {
	return in.text
}

func (in *Input) SetText(text string) {
	in.text = text
}

// Add добавляет тег. Повтор или пустая строка игнорируются.
func (in *Input) Add(tag string) bool {
	if !in.add(tag) {
		return false
	}
	in.changed()
	return true
}

func (in *Input) add(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || slices.Contains(in.tags, tag) {
		return false
	}
	in.tags = append(in.tags, tag)
	return true
}

// Remove удаляет тег по значению, порядок остальных сохраняется
func (in *Input) Remove(tag string) bool {
	i := slices.Index(in.tags, tag)
	if i < 0 {
		return false
	}
	in.tags = slices.Delete(in.tags, i, i+1)
	in.changed()
	return true
}

func (in *Input) RemoveLast() bool {
	if len(in.tags) == 0 {
		return false
	}
	in.tags = in.tags[:len(in.tags)-1]
	in.changed()
	return true
}

// KeyDown обрабатывает нажатие клавиши в поле ввода. Возвращает true, если нажатие обработано.
// Enter и запятая добавляют набранный текст, Backspace в пустом поле удаляет последний тег.
// Если тег уже есть, набранный текст остается в поле.
func (in *Input) KeyDown(key string) bool {
	switch key {
	case KeyEnter, KeyComma:
		if in.Add(in.text) {
			in.text = ""
		}
		return true
	case KeyBackspace:
		if in.text == "" {
			return in.RemoveLast()
		}
	}
	return false
}

// Blur добавляет набранный текст при потере фокуса
func (in *Input) Blur() {
	if strings.TrimSpace(in.text) == "" {
		return
	}
	if in.Add(in.text) {
		in.text = ""
	}
}

func (in *Input) changed() {
	if in.OnChange != nil {
		in.OnChange(in.Tags())
	}
}
