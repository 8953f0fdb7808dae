package cmsadmin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/djofo/cmsadmin/internal/cmsadmin/apierrors"
	sessions "github.com/djofo/cmsadmin/internal/cmsadmin/editor-sessions"
	"github.com/djofo/cmsadmin/internal/cmsadmin/tokenstore"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
)

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "djofo-cmsadmin")
		return next(c)
	}
}

type AuthContext struct {
	echo.Context
	Email string
}

func (a AuthContext) UserEmail() string {
	return a.Email
}

// callerToken достает токен клиента: протокол вебсокета "Bearer,<token>",
// заголовок Authorization или cookie access_token
func callerToken(c echo.Context) string {
	schema, token, ok := strings.Cut(c.Request().Header.Get("Sec-WebSocket-Protocol"), ",")
	if !ok {
		schema, token, ok = strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
	}
	if ok {
		if strings.TrimSpace(schema) != "Bearer" {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if cookie, err := c.Cookie(accessCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthMiddleware пропускает запрос, только если клиент предъявил токен доступа к API djofo,
// полученный при входе (или DJOFO_API_TOKEN)
func (s *Services) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Method == http.MethodOptions {
			return c.NoContent(http.StatusOK)
		}

		token := callerToken(c)
		if token == "" {
			return EErrorDefined(c, apierrors.ErrLoginRequired)
		}
		if err := s.tokens.Authorize(token); err != nil {
			if errors.Is(err, tokenstore.ErrTokenExpired) {
				return EErrorDefined(c, apierrors.ErrTokenExpired)
			}
			return EErrorDefined(c, apierrors.ErrLoginRequired)
		}
		return next(AuthContext{c, s.tokens.Email()})
	}
}

type EditorContext struct {
	AuthContext
	Session *sessions.Session
}

func (s *Services) EditorSessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := uuid.FromString(c.Param("sessionId"))
		if err != nil {
			return EErrorDefined(c, apierrors.ErrInvalidID)
		}
		sess, ok := s.editors.Get(id)
		if !ok {
			return EErrorDefined(c, apierrors.ErrEditorSessionNotFound)
		}
		return next(EditorContext{c.(AuthContext), sess})
	}
}
