// Пакет surface - поверхность редактирования контента.
//
// Surface владеет документом после создания: начальное значение разбирается один раз, дальнейшие
// внешние значения не синхронизируются. Для загрузки другого документа создается новая Surface.
// Каждое успешное изменение сериализует документ целиком и передает его в Options.OnChange.
package surface

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/djofo/cmsadmin/internal/cmsadmin/editor"
	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/embed"
)

var ErrUnknownFormat = errors.New("unknown format")

// FormatKind - команда панели инструментов, имена совпадают с командами contenteditable
type FormatKind string

const (
	FormatBold          FormatKind = "bold"
	FormatItalic        FormatKind = "italic"
	FormatUnderline     FormatKind = "underline"
	FormatJustifyLeft   FormatKind = "justifyLeft"
	FormatJustifyCenter FormatKind = "justifyCenter"
	FormatJustifyRight  FormatKind = "justifyRight"
	FormatBulletList    FormatKind = "insertUnorderedList"
	FormatNumberedList  FormatKind = "insertOrderedList"
	FormatFontName      FormatKind = "fontName"
	FormatFontSize      FormatKind = "fontSize"
	FormatHeading       FormatKind = "heading"
	FormatTable         FormatKind = "insertTable"
)

// Шрифты панели инструментов
var Fonts = []string{"Arial", "Times New Roman", "Helvetica", "Georgia"}

// CommandFor переводит команду панели в команду редактора.
// Для fontSize value - уровень 1..7 или размер в px ("18px"), для heading - уровень заголовка.
func CommandFor(kind FormatKind, value string) (editor.Command, error) {
	switch kind {
	case FormatBold:
		return editor.ToggleMark{Mark: editor.MarkBold}, nil
	case FormatItalic:
		return editor.ToggleMark{Mark: editor.MarkItalic}, nil
	case FormatUnderline:
		return editor.ToggleMark{Mark: editor.MarkUnderline}, nil
	case FormatJustifyLeft:
		return editor.Align{Align: editor.LeftAlign}, nil
	case FormatJustifyCenter:
		return editor.Align{Align: editor.CenterAlign}, nil
	case FormatJustifyRight:
		return editor.Align{Align: editor.RightAlign}, nil
	case FormatBulletList:
		return editor.ToggleList{}, nil
	case FormatNumberedList:
		return editor.ToggleList{Numbered: true}, nil
	case FormatFontName:
		return editor.SetFont{Font: value}, nil
	case FormatFontSize:
		if px, ok := strings.CutSuffix(value, "px"); ok {
			size, err := strconv.Atoi(strings.TrimSpace(px))
			if err != nil {
				return nil, err
			}
			return editor.SetSize{Px: size}, nil
		}
		level, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		return editor.SetSize{Px: editor.FontSizeFromLevel(level)}, nil
	case FormatHeading:
		level, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		return editor.SetHeading{Level: level}, nil
	case FormatTable:
		return editor.InsertTable{}, nil
	}
	return nil, ErrUnknownFormat
}

// EmbedKind - вид вставки через модальное окно
type EmbedKind string

const (
	EmbedVideo EmbedKind = "video"
	EmbedLink  EmbedKind = "link"
	EmbedImage EmbedKind = "image"
)

func (k EmbedKind) Valid() bool {
	return k == EmbedVideo || k == EmbedLink || k == EmbedImage
}

// EmbedRequest - открытый запрос на вставку, живет пока открыто модальное окно
type EmbedRequest struct {
	Kind EmbedKind `json:"kind"`
	URL  string    `json:"url"`
}

type Options struct {
	ReadOnly bool
	OnChange func(value string)
	Logger   *slog.Logger
}

type Surface struct {
	st       editor.State
	value    string
	readOnly bool
	onChange func(string)
	log      *slog.Logger

	modal *EmbedRequest
}

func New(initial string, opts Options) *Surface {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	doc, err := editor.ParseString(initial)
	if err != nil {
		log.Warn("Parse initial document", "err", err)
		doc = nil
	}
	st := editor.NewState(doc)
	st.Sel = editor.Caret(editor.End(st.Doc))

	return &Surface{
		st:       st,
		value:    editor.RenderHTML(st.Doc),
		readOnly: opts.ReadOnly,
		onChange: opts.OnChange,
		log:      log,
	}
}

// Value - сериализованный документ
func (s *Surface) Value() string {
	return s.value
}

func (s *Surface) State() editor.State {
	return s.st
}

func (s *Surface) Selection() editor.Selection {
	return s.st.Sel
}

func (s *Surface) ReadOnly() bool {
	return s.readOnly
}

// SetReadOnly включает режим только для чтения. Открытое модальное окно закрывается.
func (s *Surface) SetReadOnly(ro bool) {
	s.readOnly = ro
	if ro {
		s.modal = nil
	}
}

func (s *Surface) ActiveFormats() editor.FormatSet {
	return editor.ActiveFormats(s.st)
}

// Select меняет выделение. Документ не меняется, onChange не вызывается.
func (s *Surface) Select(sel editor.Selection) {
	s.st.Sel = editor.ClampSelection(s.st.Doc, sel)
	s.st.Stored = nil
}

// ApplyFormat применяет команду панели. Возвращает false в режиме только для чтения или для неверной команды.
func (s *Surface) ApplyFormat(kind FormatKind, value string) bool {
	cmd, err := CommandFor(kind, value)
	if err != nil {
		s.log.Debug("Unsupported format", "kind", kind, "value", value, "err", err)
		return false
	}
	return s.Exec(cmd)
}

func (s *Surface) Type(text string) bool {
	return s.Exec(editor.InsertText{Text: text})
}

func (s *Surface) Enter() bool {
	return s.Exec(editor.SplitBlock{})
}

func (s *Surface) Backspace() bool {
	return s.Exec(editor.DeleteBackward{})
}

// Exec применяет команду редактора и отдает новое значение в onChange
func (s *Surface) Exec(cmd editor.Command) bool {
	if s.readOnly {
		return false
	}
	st, err := editor.Apply(s.st, cmd)
	if errors.Is(err, editor.ErrNoChange) {
		return false
	}
	if err != nil {
		s.log.Debug("Editor command rejected", "command", cmd.Name(), "err", err)
		return false
	}
	s.st = st
	s.value = editor.RenderHTML(st.Doc)
	if s.onChange != nil {
		s.onChange(s.value)
	}
	return true
}

// Modal - текущий запрос на вставку, если модальное окно открыто
func (s *Surface) Modal() (EmbedRequest, bool) {
	if s.modal == nil {
		return EmbedRequest{}, false
	}
	return *s.modal, true
}

// OpenEmbed открывает модальное окно. Повторное открытие заменяет вид вставки.
func (s *Surface) OpenEmbed(kind EmbedKind) bool {
	if s.readOnly || !kind.Valid() {
		return false
	}
	s.modal = &EmbedRequest{Kind: kind}
	return true
}

func (s *Surface) CancelEmbed() {
	s.modal = nil
}

// ConfirmEmbed вставляет адрес из модального окна. При пустом адресе окно остается открытым.
func (s *Surface) ConfirmEmbed(rawURL string) bool {
	if s.modal == nil {
		return false
	}
	s.modal.URL = rawURL
	if !s.InsertEmbed(s.modal.Kind, rawURL) {
		return false
	}
	s.modal = nil
	return true
}

// InsertEmbed вставляет видео, ссылку или картинку в позицию каретки
func (s *Surface) InsertEmbed(kind EmbedKind, rawURL string) bool {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return false
	}

	switch kind {
	case EmbedVideo:
		src := embed.Classify(rawURL)
		if src.Malformed {
			s.log.Info("Video id not found, inserting link block", "url", rawURL)
		}
		return s.Exec(editor.InsertEmbed{Embed: src.Node()})
	case EmbedLink:
		return s.Exec(editor.InsertLink{URL: rawURL})
	case EmbedImage:
		return s.Exec(editor.InsertImage{URL: rawURL})
	}
	return false
}
