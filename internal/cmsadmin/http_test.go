package cmsadmin

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/djofo/cmsadmin/internal/cmsadmin/apierrors"
	"github.com/djofo/cmsadmin/internal/cmsadmin/config"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeAPI - сервер djofo для тестов, ответы задаются по "METHOD /path"
type fakeAPI struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
	bodies   map[string][]byte
}

func (f *fakeAPI) on(route string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[route] = h
}

func (f *fakeAPI) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *fakeAPI) body(route string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[route]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
	data, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls[route]++
	f.bodies[route] = data
	h, ok := f.handlers[route]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"Not found."}`)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	h(w, r)
}

type testServer struct {
	*Services
	e   *echo.Echo
	api *fakeAPI

	// токен клиента панели, уходит в Authorization
	token string
}

func newTestServer(t *testing.T, token string) *testServer {
	t.Helper()

	api := &fakeAPI{
		handlers: map[string]http.HandlerFunc{},
		calls:    map[string]int{},
		bodies:   map[string][]byte{},
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	apiURL, err := url.Parse(srv.URL + "/api")
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	s, err := NewServices(db, &config.Config{
		APIURL:                  apiURL,
		APIToken:                token,
		EditorSessionTTLMinutes: 60,
		DraftsRetentionDays:     30,
	}, "test")
	require.NoError(t, err)
	s.registry = prometheus.NewRegistry()

	return &testServer{Services: s, e: s.Echo(), api: api, token: token}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return ts.serve(req)
}

func (ts *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	if ts.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertDefined(t *testing.T, rec *httptest.ResponseRecorder, want apierrors.DefinedError) {
	t.Helper()
	assert.Equal(t, want.StatusCode, rec.Code, rec.Body.String())
	got := decode[apierrors.DefinedError](t, rec)
	assert.Equal(t, want.Code, got.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, "")

	assertDefined(t, ts.do(t, http.MethodGet, "/api/contents/", nil), apierrors.ErrLoginRequired)
	assertDefined(t, ts.do(t, http.MethodPost, "/api/editor/", map[string]any{}), apierrors.ErrLoginRequired)
	assert.Zero(t, ts.api.count("GET /pubs"))

	rec := ts.do(t, http.MethodGet, "/api/_health/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "djofo-cmsadmin", rec.Header().Get(echo.HeaderServer))
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, "")
	ts.api.on("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail":"No active account found with the given credentials"}`)
			return
		}
		io.WriteString(w, `{"access":"tok","refresh":"ref","data":{"name":"Awa"}}`)
	})
	ts.api.on("GET /pubs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		io.WriteString(w, `[{"id":1,"title":"Élections","type":1,"tags":[],"files":[]}]`)
	})

	t.Run("missing credentials", func(t *testing.T) {
		assertDefined(t, ts.do(t, http.MethodPost, "/api/login/", LoginRequest{Email: "a@djofo.bj"}), apierrors.ErrLoginCredentialsRequired)
		assertDefined(t, ts.do(t, http.MethodPost, "/api/login/", LoginRequest{Email: "nope", Password: "x"}), apierrors.ErrLoginCredentialsRequired)
		assert.Zero(t, ts.api.count("POST /login"))
	})

	t.Run("wrong password", func(t *testing.T) {
		assertDefined(t, ts.do(t, http.MethodPost, "/api/login/", LoginRequest{Email: "a@djofo.bj", Password: "bad"}), apierrors.ErrFailedLogin)
	})

	t.Run("success", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/login/", LoginRequest{Email: " A@Djofo.bj ", Password: "secret"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"email":"a@djofo.bj","data":{"name":"Awa"},"access_token":"tok"}`, rec.Body.String())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "access_token", cookies[0].Name)
		assert.Equal(t, "tok", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)

		anonymous := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/me/", nil))
		assert.Equal(t, false, anonymous["logged_in"])
		assert.Equal(t, "", anonymous["email"])

		ts.token = "tok"
		me := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/me/", nil))
		assert.Equal(t, true, me["logged_in"])
		assert.Equal(t, "a@djofo.bj", me["email"])

		rec = ts.do(t, http.MethodGet, "/api/contents/", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `[{"id":1,"title":"Élections","content":"","type":1,"tags":[],"files":[]}]`, rec.Body.String())
	})

	t.Run("logout", func(t *testing.T) {
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/logout/", nil).Code)
		me := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/me/", nil))
		assert.Equal(t, false, me["logged_in"])
		assertDefined(t, ts.do(t, http.MethodGet, "/api/contents/", nil), apierrors.ErrLoginRequired)
	})
}

func TestAnonymousClientAfterLogin(t *testing.T) {
	ts := newTestServer(t, "")
	ts.api.on("POST /login", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"access":"staff-tok","refresh":"ref","data":{}}`)
	})
	ts.api.on("GET /pubs", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})

	rec := ts.do(t, http.MethodPost, "/api/login/", LoginRequest{Email: "a@djofo.bj", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assertDefined(t, ts.do(t, http.MethodGet, "/api/contents/", nil), apierrors.ErrLoginRequired)
	assertDefined(t, ts.do(t, http.MethodPost, "/api/logout/", nil), apierrors.ErrLoginRequired)

	ts.token = "guess"
	assertDefined(t, ts.do(t, http.MethodGet, "/api/contents/", nil), apierrors.ErrLoginRequired)
	assert.Zero(t, ts.api.count("GET /pubs"))
	assert.Equal(t, "a@djofo.bj", ts.tokens.Email())

	t.Run("cookie", func(t *testing.T) {
		ts.token = ""
		req := httptest.NewRequest(http.MethodGet, "/api/contents/", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: "staff-tok"})
		rec := ts.serve(req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("websocket protocol", func(t *testing.T) {
		ts.token = ""
		req := httptest.NewRequest(http.MethodGet, "/api/contents/", nil)
		req.Header.Set("Sec-WebSocket-Protocol", "Bearer, staff-tok")
		assert.Equal(t, http.StatusOK, ts.serve(req).Code)

		req = httptest.NewRequest(http.MethodGet, "/api/contents/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Basic staff-tok")
		assertDefined(t, ts.serve(req), apierrors.ErrLoginRequired)
	})
}

func TestEditorSession(t *testing.T) {
	ts := newTestServer(t, "tok")

	rec := ts.do(t, http.MethodPost, "/api/editor/", CreateEditorRequest{Initial: "<p>hello</p>"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[EditorResponse](t, rec)
	assert.Equal(t, "<p>hello</p>", created.Value)
	assert.False(t, created.ReadOnly)
	assert.Nil(t, created.Modal)
	path := "/api/editor/" + created.ID.String()

	t.Run("input", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, path+"/input/", InputRequest{Op: "text", Text: " world"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[EditorResponse](t, rec)
		assert.True(t, resp.Changed)
		assert.Equal(t, "<p>hello world</p>", resp.Value)

		rec = ts.do(t, http.MethodPost, path+"/input/", InputRequest{Op: "text"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp = decode[EditorResponse](t, rec)
		assert.False(t, resp.Changed)
		assert.Equal(t, "<p>hello world</p>", resp.Value)

		assertDefined(t, ts.do(t, http.MethodPost, path+"/input/", InputRequest{Op: "paste"}), apierrors.ErrInvalidInputOp)
	})

	t.Run("unknown format", func(t *testing.T) {
		assertDefined(t, ts.do(t, http.MethodPost, path+"/format/", FormatRequest{Format: "strikeThrough"}), apierrors.ErrUnknownFormat)
	})

	t.Run("embed", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, path+"/embed/", map[string]string{"kind": "video"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[EditorResponse](t, rec)
		require.NotNil(t, resp.Modal)
		assert.Equal(t, "video", string(resp.Modal.Kind))

		assertDefined(t, ts.do(t, http.MethodPost, path+"/embed/confirm/", map[string]string{"url": "  "}), apierrors.ErrEmptyEmbedURL)

		rec = ts.do(t, http.MethodPost, path+"/embed/confirm/", map[string]string{"url": "https://youtu.be/dQw4w9WgXcQ"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp = decode[EditorResponse](t, rec)
		assert.Nil(t, resp.Modal)
		assert.True(t, resp.Changed)
		assert.Contains(t, resp.Value, `src="https://www.youtube.com/embed/dQw4w9WgXcQ"`)

		assertDefined(t, ts.do(t, http.MethodPost, path+"/embed/confirm/", map[string]string{"url": "https://youtu.be/x"}), apierrors.ErrEmbedModalClosed)
		assertDefined(t, ts.do(t, http.MethodPost, path+"/embed/", map[string]string{"kind": "audio"}), apierrors.ErrInvalidEmbedKind)
	})

	t.Run("markdown", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, path+"/markdown/", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		md := decode[map[string]string](t, rec)["markdown"]
		assert.Contains(t, md, "hello world")
		assert.Contains(t, md, "[Vidéo](https://www.youtube.com/watch?v=dQw4w9WgXcQ)")
	})

	t.Run("read-only", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, path+"/read-only/", map[string]bool{"read_only": true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, decode[EditorResponse](t, rec).ReadOnly)

		assertDefined(t, ts.do(t, http.MethodPost, path+"/input/", InputRequest{Op: "text", Text: "x"}), apierrors.ErrEditorReadOnly)
		assertDefined(t, ts.do(t, http.MethodPost, path+"/format/", FormatRequest{Format: "bold"}), apierrors.ErrEditorReadOnly)
	})

	t.Run("delete", func(t *testing.T) {
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, path+"/", nil).Code)
		assertDefined(t, ts.do(t, http.MethodGet, path+"/", nil), apierrors.ErrEditorSessionNotFound)
		assertDefined(t, ts.do(t, http.MethodGet, "/api/editor/not-a-uuid/", nil), apierrors.ErrInvalidID)
	})
}

func TestCreateContent(t *testing.T) {
	ts := newTestServer(t, "tok")
	ts.api.on("POST /pubs", func(w http.ResponseWriter, r *http.Request) {
		var c map[string]any
		json.NewDecoder(r.Body).Decode(&c)
		c["id"] = 42
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(c)
	})

	rec := ts.do(t, http.MethodPost, "/api/contents/", map[string]any{
		"title":   "<b>Élections</b> 2026",
		"content": `<p onclick="x()">Résultats<script>alert(1)</script></p>`,
		"type":    1,
		"tags":    []string{"politique", " politique ", "<i>bénin</i>"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(42), decode[map[string]any](t, rec)["id"])

	sent := map[string]any{}
	require.NoError(t, json.Unmarshal(ts.api.body("POST /pubs"), &sent))
	assert.Equal(t, "Élections 2026", sent["title"])
	assert.Equal(t, "<p>Résultats</p>", sent["content"])
	assert.Equal(t, []any{"politique", "bénin"}, sent["tags"])
	assert.Equal(t, []any{}, sent["files"])

	t.Run("validation", func(t *testing.T) {
		assertDefined(t, ts.do(t, http.MethodPost, "/api/contents/", map[string]any{"title": "A", "type": 9}), apierrors.ErrValidation)
		assertDefined(t, ts.do(t, http.MethodPost, "/api/contents/", map[string]any{"type": 1}), apierrors.ErrValidation)
		assertDefined(t, ts.do(t, http.MethodPost, "/api/contents/", map[string]any{"title": "A", "type": 1, "tags": []string{"a,b"}}), apierrors.ErrValidation)
		assert.Equal(t, 1, ts.api.count("POST /pubs"))
	})
}

func TestFailedSubmissionKeepsDraft(t *testing.T) {
	ts := newTestServer(t, "tok")
	ts.api.on("POST /pubs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"detail":"maintenance"}`)
	})

	rec := ts.do(t, http.MethodPost, "/api/contents/", map[string]any{
		"title":   "Brouillon",
		"content": "<p>texte</p>",
		"type":    2,
		"tags":    []string{"vidéo"},
	})
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	failure := decode[struct {
		Code    int    `json:"code"`
		Error   string `json:"error"`
		DraftID string `json:"draft_id"`
	}](t, rec)
	assert.Equal(t, apierrors.ErrRemoteAPI.Code, failure.Code)
	assert.Contains(t, failure.Error, "maintenance")
	require.NotEmpty(t, failure.DraftID)
	assert.Equal(t, 1, ts.api.count("POST /pubs"))

	draftPath := "/api/drafts/" + failure.DraftID + "/"

	rec = ts.do(t, http.MethodGet, draftPath, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	draft := decode[map[string]any](t, rec)
	assert.Equal(t, "content", draft["kind"])
	assert.Equal(t, "Brouillon", draft["title"])
	assert.Equal(t, "<p>texte</p>", draft["content"])
	assert.Contains(t, draft["last_error"], "maintenance")

	page := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/drafts/?kind=content", nil))
	assert.Equal(t, float64(1), page["count"])
	page = decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/drafts/?kind=course", nil))
	assert.Equal(t, float64(0), page["count"])

	t.Run("editor from draft", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/editor/", map[string]any{"draft_id": failure.DraftID})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "<p>texte</p>", decode[EditorResponse](t, rec).Value)
	})

	t.Run("retry fails again", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, draftPath+"retry/", nil)
		require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), failure.DraftID)

		page := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/drafts/", nil))
		assert.Equal(t, float64(1), page["count"])
	})

	t.Run("retry succeeds", func(t *testing.T) {
		ts.api.on("POST /pubs", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id":"abc","title":"Brouillon","type":2}`)
		})
		rec := ts.do(t, http.MethodPost, draftPath+"retry/", nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		sent := map[string]any{}
		require.NoError(t, json.Unmarshal(ts.api.body("POST /pubs"), &sent))
		assert.Equal(t, "<p>texte</p>", sent["content"])
		assert.Equal(t, []any{"vidéo"}, sent["tags"])

		assertDefined(t, ts.do(t, http.MethodGet, draftPath, nil), apierrors.ErrDraftNotFound)
	})

	t.Run("unknown draft", func(t *testing.T) {
		assertDefined(t, ts.do(t, http.MethodGet, "/api/drafts/bad/", nil), apierrors.ErrInvalidID)
		assertDefined(t, ts.do(t, http.MethodDelete, draftPath, nil), apierrors.ErrDraftNotFound)
	})
}

func TestUpdateContentKeepsRecordID(t *testing.T) {
	ts := newTestServer(t, "tok")
	ts.api.on("PUT /pubs/7", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	rec := ts.do(t, http.MethodPut, "/api/contents/7/", map[string]any{"title": "Modifié", "type": 1})
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	id := decode[map[string]any](t, rec)["draft_id"].(string)

	draft := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/drafts/"+id+"/", nil))
	assert.Equal(t, "7", draft["record_id"])

	ts.api.on("PUT /pubs/7", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":7,"title":"Modifié","type":1}`)
	})
	rec = ts.do(t, http.MethodPost, "/api/drafts/"+id+"/retry/", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, ts.api.count("PUT /pubs/7"))
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t, "tok")
	ts.api.on("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		_, fh, err := r.FormFile("file")
		if assert.NoError(t, err) {
			assert.Equal(t, "photo.png", fh.Filename)
		}
		io.WriteString(w, `{"files":[{"url":"https://cdn.djofo.bj/photo.png"}]}`)
	})

	upload := func(field string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile(field, "photo.png")
		require.NoError(t, err)
		part.Write([]byte("png"))
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/upload/", &buf)
		req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
		return ts.serve(req)
	}

	rec := upload("file")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"url":"https://cdn.djofo.bj/photo.png"}`, rec.Body.String())

	assertDefined(t, upload("image"), apierrors.ErrUploadFileRequired)
	assert.Equal(t, 1, ts.api.count("POST /upload"))
}

func TestListProxies(t *testing.T) {
	ts := newTestServer(t, "tok")
	ts.api.on("GET /sub", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "awa", r.URL.Query().Get("q"))
		io.WriteString(w, `{"results":[{"id":3,"email":"awa@djofo.bj","created_at":"2026-01-02"}]}`)
	})
	ts.api.on("GET /formation", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		io.WriteString(w, `[]`)
	})

	rec := ts.do(t, http.MethodGet, "/api/subscribers/?q=awa", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	subs := decode[[]map[string]any](t, rec)
	require.Len(t, subs, 1)
	assert.Equal(t, "awa@djofo.bj", subs[0]["email"])

	rec = ts.do(t, http.MethodGet, "/api/formations/", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[]`, rec.Body.String())

	assertDefined(t, ts.do(t, http.MethodGet, "/api/surveys/", nil), apierrors.ErrContentNotFound)
}
