// Пакет apiclient - клиент REST API djofo (публикации, подкасты, медиа, формации, курсы, подписчики).
//
// Каждый запрос, кроме входа, несет заголовок Authorization: Bearer <token>. Токен берется из TokenSource
// перед отправкой, при его отсутствии возвращается ErrLoginRequired без обращения к сети.
// GET, PUT и DELETE повторяются при сетевых ошибках и 5xx, POST не повторяется.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
)

const maxResponseSize = 10 << 20

var (
	ErrLoginRequired = errors.New("login required")
	ErrNoUploadURL   = errors.New("upload response has no url")
)

// TokenSource отдает текущий токен доступа. Пустая строка означает, что вход не выполнен.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken - токен, заданный конфигурацией
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// APIError - ответ сервера с кодом вне 2xx
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("djofo api: %d %s", e.StatusCode, e.Detail)
}

type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Logger       *slog.Logger
	HTTPClient   *http.Client
}

type Client struct {
	base   *url.URL
	tokens TokenSource
	http   *retryablehttp.Client
	log    *slog.Logger

	requests *prometheus.CounterVec
}

type noRetryKey struct{}

func New(base *url.URL, tokens TokenSource, opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	cl := retryablehttp.NewClient()
	cl.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		cl.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		cl.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.HTTPClient != nil {
		cl.HTTPClient = opts.HTTPClient
	}
	cl.Logger = log
	cl.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Value(noRetryKey{}) != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	// тело ответа нужно для разбора ошибки
	cl.ErrorHandler = retryablehttp.PassthroughErrorHandler

	b := *base
	b.Path = strings.TrimSuffix(b.Path, "/")

	return &Client{
		base:   &b,
		tokens: tokens,
		http:   cl,
		log:    log,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "djofo_api_requests_total",
			Help: "Total count of requests to djofo API by endpoint and status code",
		}, []string{"endpoint", "code"}),
	}
}

// Collector - счетчик запросов для регистрации в prometheus
func (c *Client) Collector() prometheus.Collector {
	return c.requests
}

func (c *Client) Login(ctx context.Context, email, password string) (Tokens, error) {
	var t Tokens
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "login", nil, body, &t, false); err != nil {
		return Tokens{}, err
	}
	if t.Access == "" {
		return Tokens{}, &APIError{StatusCode: http.StatusBadGateway, Detail: "empty access token"}
	}
	return t, nil
}

func (c *Client) ListContents(ctx context.Context) ([]Content, error) {
	return getList[Content](ctx, c, "pubs", nil)
}

func (c *Client) CreateContent(ctx context.Context, content Content) (Content, error) {
	content.ID = ""
	return c.create(ctx, "pubs", content)
}

func (c *Client) UpdateContent(ctx context.Context, id string, content Content) (Content, error) {
	content.ID = Scalar(id)
	var out Content
	if err := c.do(ctx, http.MethodPut, "pubs/"+url.PathEscape(id), nil, content, &out, true); err != nil {
		return Content{}, err
	}
	if out.ID == "" {
		return content, nil
	}
	return out, nil
}

func (c *Client) DeleteContent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "pubs/"+url.PathEscape(id), nil, nil, nil, true)
}

func (c *Client) CreatePodcast(ctx context.Context, p Podcast) (Podcast, error) {
	var out Podcast
	if err := c.do(ctx, http.MethodPost, "podcasts", nil, p, &out, true); err != nil {
		return Podcast{}, err
	}
	if out.Title == "" {
		out = p
	}
	return out, nil
}

func (c *Client) ListMedia(ctx context.Context) ([]MediaFile, error) {
	return getList[MediaFile](ctx, c, "media", nil)
}

// Upload загружает файл полем "file" и возвращает его адрес (url или files[0].url ответа)
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	var resp struct {
		URL   string `json:"url"`
		Files []struct {
			URL string `json:"url"`
		} `json:"files"`
	}
	if err := c.send(ctx, http.MethodPost, "upload", nil, w.FormDataContentType(), buf.Bytes(), &resp, true); err != nil {
		return "", err
	}
	switch {
	case resp.URL != "":
		return resp.URL, nil
	case len(resp.Files) > 0 && resp.Files[0].URL != "":
		return resp.Files[0].URL, nil
	}
	return "", ErrNoUploadURL
}

func (c *Client) ListFormations(ctx context.Context, q string) ([]Formation, error) {
	return getList[Formation](ctx, c, "formation", search(q))
}

func (c *Client) CreateFormation(ctx context.Context, f Formation) (Formation, error) {
	f.ID = ""
	var out Formation
	if err := c.do(ctx, http.MethodPost, "formation", nil, f, &out, true); err != nil {
		return Formation{}, err
	}
	if out.Title == "" {
		out = f
	}
	return out, nil
}

func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	return getList[Course](ctx, c, "cours", nil)
}

func (c *Client) CreateCourse(ctx context.Context, course Course) (Course, error) {
	course.ID = ""
	var out Course
	if err := c.do(ctx, http.MethodPost, "cours", nil, course, &out, true); err != nil {
		return Course{}, err
	}
	if out.Title == "" {
		out = course
	}
	return out, nil
}

func (c *Client) ListSubscribers(ctx context.Context, q string) ([]Subscriber, error) {
	return getList[Subscriber](ctx, c, "sub", search(q))
}

func (c *Client) ListSurveys(ctx context.Context) ([]Survey, error) {
	return getList[Survey](ctx, c, "surveys", nil)
}

func (c *Client) ListInvestigations(ctx context.Context) ([]Investigation, error) {
	return getList[Investigation](ctx, c, "investigations", nil)
}

func search(q string) url.Values {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	return url.Values{"q": {q}}
}

func (c *Client) create(ctx context.Context, endpoint string, content Content) (Content, error) {
	var out Content
	if err := c.do(ctx, http.MethodPost, endpoint, nil, content, &out, true); err != nil {
		return Content{}, err
	}
	if out.Title == "" {
		out = content
	}
	return out, nil
}

func getList[T any](ctx context.Context, c *Client, endpoint string, query url.Values) ([]T, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, endpoint, query, nil, &raw, true); err != nil {
		return nil, err
	}
	list, err := decodeList[T](raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return list, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, in, out any, auth bool) error {
	var body []byte
	contentType := ""
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return err
		}
		contentType = "application/json"
	}
	return c.send(ctx, method, endpoint, query, contentType, body, out, auth)
}

func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values, contentType string, body []byte, out any, auth bool) error {
	var token string
	if auth {
		var err error
		token, err = c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		if token == "" {
			return ErrLoginRequired
		}
	}

	u := c.base.JoinPath(endpoint)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	if method == http.MethodPost {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
	}

	var reqBody any
	if body != nil {
		reqBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.requests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()
	c.requests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(data)}
		if apiErr.Detail == "" {
			apiErr.Detail = http.StatusText(resp.StatusCode)
		}
		c.log.Warn("djofo api error", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "detail", apiErr.Detail)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func errorDetail(data []byte) string {
	var body struct {
		Detail  any `json:"detail"`
		Message any `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	for _, v := range []any{body.Detail, body.Message} {
		switch v := v.(type) {
		case string:
			if v != "" {
				return v
			}
		case nil:
		default:
			if b, err := json.Marshal(v); err == nil {
				return string(b)
			}
		}
	}
	return ""
}
