// Ответы с ошибками API и их логирование.
package cmsadmin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/djofo/cmsadmin/internal/cmsadmin/apiclient"
	"github.com/djofo/cmsadmin/internal/cmsadmin/apierrors"
	errStack "github.com/djofo/cmsadmin/internal/cmsadmin/stack-error"
	"github.com/djofo/cmsadmin/internal/cmsadmin/tokenstore"
	"github.com/labstack/echo/v4"
)

// Возврат ошибки 400 с универсальным сообщением
func EError(c echo.Context, err error) error {
	if customErr, ok := apierrors.AsDefined(err); ok {
		return EErrorDefined(c, customErr)
	}
	var te *errStack.TrackerError
	if errors.As(err, &te) {
		errStack.GetError(c, te)
		return EErrorDefined(c, apierrors.ErrGeneric)
	}
	if err == nil {
		slog.Error("Unknown API error",
			"method", c.Request().Method,
			"url", c.Request().URL,
			"user", userEmail(c),
			getCallerFile(),
		)
	} else {
		slog.Error("API error",
			"err", err,
			"method", c.Request().Method,
			"url", c.Request().URL,
			"user", userEmail(c),
			getCallerFile(),
		)
	}
	return EErrorDefined(c, apierrors.ErrGeneric)
}

// Возврат ошибки <status> с сообщением ошибки, 404 не логируется
func EErrorMsgStatus(c echo.Context, err error, status int) error {
	if status == http.StatusRequestEntityTooLarge {
		return EErrorDefined(c, apierrors.ErrEntityToLarge)
	}

	er := apierrors.ErrGeneric
	er.StatusCode = status
	if err == nil {
		slog.Error("Unknown API error",
			"method", c.Request().Method,
			slog.Int("status", status),
			"url", c.Request().URL,
			getCallerFile(),
		)
		return EErrorDefined(c, er)
	}

	if status != http.StatusNotFound {
		slog.Error("API error",
			"err", err,
			"method", c.Request().Method,
			slog.Int("status", status),
			"url", c.Request().URL,
			getCallerFile(),
		)
	}
	er.Err = err.Error()
	return EErrorDefined(c, er)
}

// EErrorDefined возвращает JSON с кодом статуса ошибки. Для неизвестного кода используется 400 Bad Request.
func EErrorDefined(c echo.Context, err apierrors.DefinedError) error {
	if http.StatusText(err.StatusCode) == "" {
		err.StatusCode = http.StatusBadRequest
	}
	return c.JSON(err.StatusCode, err)
}

// remoteError переводит ошибку обращения к API djofo в ошибку панели
func remoteError(err error) apierrors.DefinedError {
	if de, ok := apierrors.AsDefined(err); ok {
		return de
	}

	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, apiclient.ErrLoginRequired):
		return apierrors.ErrLoginRequired
	case errors.Is(err, tokenstore.ErrTokenExpired):
		return apierrors.ErrTokenExpired
	case errors.As(err, &apiErr):
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return apierrors.ErrLoginRequired
		case http.StatusNotFound:
			return apierrors.ErrContentNotFound
		}
		return apierrors.ErrRemoteAPI.WithFormattedMessage(apiErr.Detail)
	case errors.Is(err, context.Canceled):
		return apierrors.ErrGeneric
	}
	return apierrors.ErrRemoteAPIUnavailable
}

// getCallerFile - файл и строка вызова обработчика для лога
func getCallerFile() slog.Attr {
	_, path, no, ok := runtime.Caller(2)
	if !ok {
		return slog.Attr{}
	}
	_, file := filepath.Split(path)
	return slog.String("caller", fmt.Sprintf("%s:%d", file, no))
}

func userEmail(c echo.Context) string {
	if ctx, ok := c.(interface{ UserEmail() string }); ok {
		return ctx.UserEmail()
	}
	return ""
}
