// Пакет embed классифицирует ссылки на видео для вставки в документ.
//
// Classify - чистая функция: по адресу возвращает вариант источника (YouTube, Vimeo, видеофайл или
// нераспознанный источник). Нераспознанный источник вставляется в документ блоком со ссылкой.
package embed

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/edtypes"
)

const (
	YouTubeEmbedBase = "https://www.youtube.com/embed/"
	VimeoPlayerBase  = "https://player.vimeo.com/video/"
)

var (
	youtubeRe     = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#/]+)`)
	// id должен пройти правило src iframe в policy, иначе ролик пропадет при сохранении
	youtubeIDRe   = regexp.MustCompile(`^[\w-]+$`)
	vimeoRe       = regexp.MustCompile(`vimeo\.com/(\d+)`)
	videoFileRe   = regexp.MustCompile(`(?i)\.(mp4|webm|ogg)$`)
	videoSubtypes = map[string]struct{}{"mp4": {}, "webm": {}, "ogg": {}}
)

type Kind int

const (
	Unknown Kind = iota
	YouTube
	Vimeo
	DirectVideo
)

func (k Kind) String() string {
	switch k {
	case YouTube:
		return "youtube"
	case Vimeo:
		return "vimeo"
	case DirectVideo:
		return "video"
	}
	return "unknown"
}

// Source - результат классификации.
//
// ID заполнен для YouTube и Vimeo, Ext для DirectVideo.
// Malformed выставлен, когда хост распознан, но идентификатор извлечь не удалось; такой адрес
// классифицируется как Unknown.
type Source struct {
	Kind      Kind
	URL       string
	ID        string
	Ext       string
	Malformed bool
}

func Classify(raw string) Source {
	raw = strings.TrimSpace(raw)
	src := Source{Kind: Unknown, URL: raw}

	switch {
	case strings.Contains(raw, "youtube.com/watch") || strings.Contains(raw, "youtu.be/"):
		if id := youtubeID(raw); id != "" {
			src.Kind = YouTube
			src.ID = id
		} else {
			src.Malformed = true
		}
	case strings.Contains(raw, "vimeo.com/"):
		if m := vimeoRe.FindStringSubmatch(raw); len(m) == 2 {
			src.Kind = Vimeo
			src.ID = m[1]
		} else {
			src.Malformed = true
		}
	default:
		if ext := videoExt(raw); ext != "" {
			src.Kind = DirectVideo
			src.Ext = ext
		}
	}
	return src
}

// youtubeID извлекает идентификатор ролика. Если v= стоит не первым параметром, берется из query.
func youtubeID(raw string) string {
	id := ""
	if m := youtubeRe.FindStringSubmatch(raw); len(m) == 2 {
		id = m[1]
	} else if u, err := url.Parse(raw); err == nil && strings.Contains(u.Host, "youtube.com") && u.Path == "/watch" {
		id = strings.TrimSuffix(u.Query().Get("v"), "/")
	}
	if !youtubeIDRe.MatchString(id) {
		return ""
	}
	return id
}

func videoExt(raw string) string {
	if m := videoFileRe.FindStringSubmatch(raw); len(m) == 2 {
		return strings.ToLower(m[1])
	}
	// Ссылки на файлы часто несут query (?token=...), расширение смотрим по пути
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if _, ok := videoSubtypes[ext]; ok {
		return ext
	}
	return ""
}

// EmbedURL - адрес, на который указывает итоговый фрагмент
func (s Source) EmbedURL() string {
	switch s.Kind {
	case YouTube:
		return YouTubeEmbedBase + s.ID
	case Vimeo:
		return VimeoPlayerBase + s.ID
	}
	return s.URL
}

// Node - узел документа для вставки. Все варианты обрабатываются явно.
func (s Source) Node() *edtypes.Embed {
	switch s.Kind {
	case YouTube:
		return &edtypes.Embed{Kind: edtypes.EmbedYouTube, ID: s.ID, URL: s.URL}
	case Vimeo:
		return &edtypes.Embed{Kind: edtypes.EmbedVimeo, ID: s.ID, URL: s.URL}
	case DirectVideo:
		return &edtypes.Embed{Kind: edtypes.EmbedVideoFile, MimeSubtype: s.Ext, URL: s.URL}
	case Unknown:
		return &edtypes.Embed{Kind: edtypes.EmbedLink, URL: s.URL}
	}
	return nil
}

// FromEmbedSrc восстанавливает источник по src готового iframe (используется при разборе HTML).
func FromEmbedSrc(src string) (Source, bool) {
	switch {
	case strings.HasPrefix(src, YouTubeEmbedBase):
		id := strings.TrimPrefix(src, YouTubeEmbedBase)
		if id == "" {
			return Source{}, false
		}
		return Source{Kind: YouTube, ID: id, URL: "https://www.youtube.com/watch?v=" + id}, true
	case strings.HasPrefix(src, VimeoPlayerBase):
		id := strings.TrimPrefix(src, VimeoPlayerBase)
		if id == "" {
			return Source{}, false
		}
		return Source{Kind: Vimeo, ID: id, URL: "https://vimeo.com/" + id}, true
	}
	return Source{}, false
}
