package cmsadmin

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/djofo/cmsadmin/internal/cmsadmin/apiclient"
	"github.com/djofo/cmsadmin/internal/cmsadmin/apierrors"
	"github.com/djofo/cmsadmin/internal/cmsadmin/notifications"
	"github.com/djofo/cmsadmin/internal/cmsadmin/tokenstore"
	"github.com/labstack/echo/v4"
)

const accessCookieName = "access_token"

func (s *Services) AddAuthenticationServices(g *echo.Group, authGroup *echo.Group) {
	g.POST("login/", s.login)
	g.GET("me/", s.me)

	authGroup.POST("logout/", s.logout)
}

func setAccessCookie(c echo.Context, token string, expiresAt *time.Time) {
	cookie := new(http.Cookie)
	cookie.Name = accessCookieName
	cookie.Value = token
	cookie.HttpOnly = true
	cookie.Secure = c.IsTLS()
	cookie.Path = "/"
	cookie.SameSite = http.SameSiteStrictMode
	if expiresAt != nil {
		cookie.Expires = *expiresAt
	}
	c.SetCookie(cookie)
}

func clearAccessCookie(c echo.Context) {
	cookie := new(http.Cookie)
	cookie.Name = accessCookieName
	cookie.Value = ""
	cookie.HttpOnly = true
	cookie.Secure = c.IsTLS()
	cookie.Path = "/"
	cookie.SameSite = http.SameSiteStrictMode
	cookie.MaxAge = -1
	c.SetCookie(cookie)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login - вход в API djofo, токены сохраняются локально
func (s *Services) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return EErrorDefined(c, apierrors.ErrLoginCredentialsRequired)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return EErrorDefined(c, apierrors.ErrLoginCredentialsRequired)
	}

	tokens, err := s.api.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			notifications.Error(s.notify, apierrors.ErrFailedLogin.FrErr)
			return EErrorDefined(c, apierrors.ErrFailedLogin)
		}
		de := remoteError(err)
		notifications.Error(s.notify, de.FrErr)
		return EErrorDefined(c, de)
	}

	if err := s.tokens.Save(req.Email, tokens); err != nil {
		return EError(c, err)
	}
	notifications.Success(s.notify, "Connexion réussie")

	setAccessCookie(c, tokens.Access, tokenstore.ExpiresAt(tokens.Access))
	return c.JSON(http.StatusOK, map[string]any{
		"email":        req.Email,
		"data":         tokens.Data,
		"access_token": tokens.Access,
	})
}

func (s *Services) logout(c echo.Context) error {
	if err := s.tokens.Clear(); err != nil {
		return EError(c, err)
	}
	s.hub.CloseAll()
	clearAccessCookie(c)
	return c.NoContent(http.StatusOK)
}

// me - состояние входа текущего клиента панели
func (s *Services) me(c echo.Context) error {
	loggedIn := s.tokens.Authorize(callerToken(c)) == nil
	email := ""
	if loggedIn {
		email = s.tokens.Email()
	}
	return c.JSON(http.StatusOK, map[string]any{
		"email":     email,
		"logged_in": loggedIn,
	})
}
