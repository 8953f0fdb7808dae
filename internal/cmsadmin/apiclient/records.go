package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Scalar - идентификатор записи. Сервер отдает id то числом, то строкой.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*s = Scalar(n.String())
	return nil
}

// MarshalJSON отдает числовые id числом, остальные строкой
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(s), 10, 64); err == nil {
		return []byte(s), nil
	}
	return json.Marshal(string(s))
}

func (s Scalar) String() string {
	return string(s)
}

// ContentType - вид публикации
type ContentType int

const (
	ContentBlog      ContentType = 1
	ContentVideo     ContentType = 2
	ContentPodcast   ContentType = 3
	ContentAnimation ContentType = 4
)

var contentTypeNames = map[ContentType]string{
	ContentBlog:      "blog",
	ContentVideo:     "video",
	ContentPodcast:   "podcast",
	ContentAnimation: "animation",
}

func (t ContentType) Valid() bool {
	_, ok := contentTypeNames[t]
	return ok
}

func (t ContentType) String() string {
	if name, ok := contentTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

type Content struct {
	ID      Scalar      `json:"id,omitempty"`
	Title   string      `json:"title" validate:"required"`
	Content string      `json:"content"`
	Type    ContentType `json:"type" validate:"contentType"`
	Tags    []string    `json:"tags" validate:"dive,tag"`
	Files   []string    `json:"files"`
}

type Podcast struct {
	ID            Scalar      `json:"id,omitempty"`
	Type          ContentType `json:"type" validate:"contentType"`
	Title         string      `json:"title" validate:"required"`
	Description   string      `json:"description"`
	Podcast       string      `json:"podcast"`
	EpisodeNumber *int        `json:"episodeNumber,omitempty"`
	Duration      string      `json:"duration,omitempty"`
	PublishDate   string      `json:"publishDate,omitempty"`
	Tags          []string    `json:"tags" validate:"dive,tag"`
	Files         []string    `json:"files"`
}

type MediaFile struct {
	ID         Scalar `json:"id"`
	URL        string `json:"url"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploadedAt"`
}

type Formation struct {
	ID          Scalar   `json:"id,omitempty"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Level       string   `json:"level"`
	Hours       string   `json:"hours"`
	Object      []string `json:"object"`
	Tags        []string `json:"tags" validate:"dive,tag"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

type Course struct {
	ID        Scalar   `json:"id,omitempty"`
	Title     string   `json:"title" validate:"required"`
	Content   string   `json:"content"`
	Videos    []string `json:"videos"`
	Images    []string `json:"images"`
	URLs      []string `json:"urls"`
	Formation int      `json:"formation" validate:"required"`
	CreatedAt string   `json:"created_at,omitempty"`
}

type Subscriber struct {
	ID        Scalar `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at"`
	Status    string `json:"status,omitempty"`
}

type Survey struct {
	ID     Scalar      `json:"id"`
	Title  string      `json:"title"`
	Type   ContentType `json:"type"`
	Tags   []string    `json:"tags"`
	Files  []string    `json:"files"`
	Survey string      `json:"survey"`
}

type Investigation struct {
	ID            Scalar      `json:"id"`
	Title         string      `json:"title"`
	Type          ContentType `json:"type"`
	Tags          []string    `json:"tags"`
	Files         []string    `json:"files"`
	Investigation string      `json:"investigation"`
}

// Tokens - ответ /login
type Tokens struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// decodeList принимает массив или объект {"results": [...]}
func decodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []T{}, nil
	}

	var list []T
	if data[0] == '[' {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []T{}, nil
	}
	return page.Results, nil
}
