package cmsadmin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/djofo/cmsadmin/internal/cmsadmin/apierrors"
	"github.com/djofo/cmsadmin/internal/cmsadmin/dao"
	"github.com/djofo/cmsadmin/internal/cmsadmin/editor"
	sessions "github.com/djofo/cmsadmin/internal/cmsadmin/editor-sessions"
	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/surface"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func (s *Services) AddEditorServices(g *echo.Group) {
	g.POST("editor/", s.createEditorSession)

	editorGroup := g.Group("editor/:sessionId", s.EditorSessionMiddleware)
	editorGroup.GET("/", s.getEditorSession)
	editorGroup.DELETE("/", s.deleteEditorSession)
	editorGroup.POST("/select/", s.editorSelect)
	editorGroup.POST("/format/", s.editorFormat)
	editorGroup.POST("/input/", s.editorInput)
	editorGroup.POST("/read-only/", s.editorReadOnly)
	editorGroup.POST("/embed/", s.editorOpenEmbed)
	editorGroup.POST("/embed/confirm/", s.editorConfirmEmbed)
	editorGroup.POST("/embed/cancel/", s.editorCancelEmbed)
	editorGroup.GET("/markdown/", s.editorMarkdown)
}

type EditorResponse struct {
	ID        uuid.UUID             `json:"id"`
	Value     string                `json:"value"`
	Formats   editor.FormatSet      `json:"formats"`
	Selection editor.Selection      `json:"selection"`
	ReadOnly  bool                  `json:"read_only"`
	Modal     *surface.EmbedRequest `json:"modal"`
	DraftID   *uuid.UUID            `json:"draft_id,omitempty"`
	Changed   bool                  `json:"changed"`
	Fonts     []string              `json:"fonts"`
}

func editorSnapshot(sess *sessions.Session, sf *surface.Surface, changed bool) EditorResponse {
	resp := EditorResponse{
		ID:        sess.ID,
		Value:     sf.Value(),
		Formats:   sf.ActiveFormats(),
		Selection: sf.Selection(),
		ReadOnly:  sf.ReadOnly(),
		DraftID:   sess.DraftID,
		Changed:   changed,
		Fonts:     surface.Fonts,
	}
	if req, ok := sf.Modal(); ok {
		resp.Modal = &req
	}
	return resp
}

// editorDo выполняет fn под блокировкой сессии и отдает состояние редактора.
// fn возвращает признак изменения документа.
func (s *Services) editorDo(c echo.Context, fn func(sf *surface.Surface) (bool, error)) error {
	sess := c.(EditorContext).Session

	var resp EditorResponse
	err := sess.Do(func(sf *surface.Surface) error {
		changed, err := fn(sf)
		if err != nil {
			return err
		}
		resp = editorSnapshot(sess, sf, changed)
		return nil
	})
	if err != nil {
		if errors.Is(err, sessions.ErrSessionClosed) {
			return EErrorDefined(c, apierrors.ErrEditorSessionNotFound)
		}
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

type CreateEditorRequest struct {
	Initial  string     `json:"initial"`
	ReadOnly bool       `json:"read_only"`
	DraftID  *uuid.UUID `json:"draft_id"`
}

// createEditorSession открывает редактор. Если указан черновик, начальное значение берется из него.
func (s *Services) createEditorSession(c echo.Context) error {
	var req CreateEditorRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	if req.DraftID != nil {
		draft, err := dao.GetDraft(s.db, *req.DraftID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrDraftNotFound)
			}
			return EError(c, err)
		}
		req.Initial = draft.ContentHTML
	}

	sess := s.editors.Create(sessions.Options{
		InitialValue: req.Initial,
		ReadOnly:     req.ReadOnly,
		DraftID:      req.DraftID,
	})

	var resp EditorResponse
	sess.Do(func(sf *surface.Surface) error {
		resp = editorSnapshot(sess, sf, false)
		return nil
	})
	return c.JSON(http.StatusCreated, resp)
}

func (s *Services) getEditorSession(c echo.Context) error {
	return s.editorDo(c, func(*surface.Surface) (bool, error) {
		return false, nil
	})
}

func (s *Services) deleteEditorSession(c echo.Context) error {
	s.editors.Delete(c.(EditorContext).Session.ID)
	return c.NoContent(http.StatusOK)
}

func (s *Services) editorSelect(c echo.Context) error {
	var sel editor.Selection
	if err := c.Bind(&sel); err != nil {
		return EError(c, err)
	}
	return s.editorDo(c, func(sf *surface.Surface) (bool, error) {
		sf.Select(sel)
		return false, nil
	})
}

type FormatRequest struct {
	Format surface.FormatKind `json:"format"`
	Value  string             `json:"value"`
}

func (s *Services) editorFormat(c echo.Context) error {
	var req FormatRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if _, err := surface.CommandFor(req.Format, req.Value); err != nil {
		return EErrorDefined(c, apierrors.ErrUnknownFormat.WithFormattedMessage(string(req.Format)))
	}
	return s.editorDo(c, func(sf *surface.Surface) (bool, error) {
		if sf.ReadOnly() {
			return false, apierrors.ErrEditorReadOnly
		}
		return sf.ApplyFormat(req.Format, req.Value), nil
	})
}

type InputRequest struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

const (
	inputText      = "text"
	inputEnter     = "enter"
	inputBackspace = "backspace"
)

func (s *Services) editorInput(c echo.Context) error {
	var req InputRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	switch req.Op {
	case inputText, inputEnter, inputBackspace:
	default:
		return EErrorDefined(c, apierrors.ErrInvalidInputOp)
	}

	return s.editorDo(c, func(sf *surface.Surface) (bool, error) {
		if sf.ReadOnly() {
			return false, apierrors.ErrEditorReadOnly
		}
		switch req.Op {
		case inputText:
			return sf.Type(req.Text), nil
		case inputEnter:
			return sf.Enter(), nil
		}
		return sf.Backspace(), nil
	})
}

func (s *Services) editorReadOnly(c echo.Context) error {
	var req struct {
		ReadOnly bool `json:"read_only"`
	}
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	return s.editorDo(c, func(sf *surface.Surface) (bool, error) {
		sf.SetReadOnly(req.ReadOnly)
		return false, nil
	})
}

func (s *Services) editorOpenEmbed(c echo.Context) error {
	var req surface.EmbedRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if !req.Kind.Valid() {
		return EErrorDefined(c, apierrors.ErrInvalidEmbedKind)
	}
	return s.editorDo(c, func(sf *surface.Surface) (bool, error) {
		if !sf.OpenEmbed(req.Kind) {
			return false, apierrors.ErrEditorReadOnly
		}
		return false, nil
	})
}

// editorConfirmEmbed вставляет адрес из открытого модального окна. При пустом адресе окно остается открытым.
func (s *Services) editorConfirmEmbed(c echo.Context) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	return s.editorDo(c, func(sf *surface.Surface) (bool, error) {
		if _, open := sf.Modal(); !open {
			return false, apierrors.ErrEmbedModalClosed
		}
		if sf.ConfirmEmbed(req.URL) {
			return true, nil
		}
		if strings.TrimSpace(req.URL) == "" {
			return false, apierrors.ErrEmptyEmbedURL
		}
		return false, apierrors.ErrValidation.WithFormattedMessage("url")
	})
}

func (s *Services) editorCancelEmbed(c echo.Context) error {
	return s.editorDo(c, func(sf *surface.Surface) (bool, error) {
		sf.CancelEmbed()
		return false, nil
	})
}

func (s *Services) editorMarkdown(c echo.Context) error {
	var value string
	if err := c.(EditorContext).Session.Do(func(sf *surface.Surface) error {
		value = sf.Value()
		return nil
	}); err != nil {
		return EErrorDefined(c, apierrors.ErrEditorSessionNotFound)
	}

	md, err := s.markdown.Markdown(value)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"markdown": md})
}
