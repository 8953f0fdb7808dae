// Пакет stack_error копит места вызова и данные отправки формы в djofo для ошибки обработчика
// и пишет их в лог одной записью.
package stack_error

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/djofo/cmsadmin/internal/cmsadmin/apiclient"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
)

type TrackerError struct {
	Context map[string]any
	// "файл:строка ошибка", от места возникновения к обработчику
	Trace []string
	cause error
}

// TrackErrorStack оборачивает ошибку и добавляет в трассу место вызова.
// Уже обернутая ошибка дополняется, а не оборачивается повторно.
func TrackErrorStack(err error) *TrackerError {
	var te *TrackerError
	if !errors.As(err, &te) {
		te = &TrackerError{Context: map[string]any{}, cause: err}
	}
	te.Trace = append(te.Trace, caller(err))
	return te
}

// AddContext не перезаписывает ключ, заданный ближе к месту ошибки
func (te *TrackerError) AddContext(k string, v any) *TrackerError {
	if _, ok := te.Context[k]; !ok {
		te.Context[k] = v
	}
	return te
}

// AddDraft помечает ошибку видом формы и черновиком, если он есть
func (te *TrackerError) AddDraft(kind string, draftID *uuid.UUID) *TrackerError {
	te.AddContext("kind", kind)
	if draftID != nil {
		te.AddContext("draftId", draftID.String())
	}
	return te
}

// AddErr добавляет сопутствующую ошибку в трассу. Для ответа API djofo в контекст попадают код и detail.
func (te *TrackerError) AddErr(err error) *TrackerError {
	te.Trace = append(te.Trace, caller(err))
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		te.AddContext("djofoStatus", apiErr.StatusCode)
		te.AddContext("djofoDetail", apiErr.Detail)
	}
	return te
}

// GetError пишет ошибку в лог вместе с трассой, контекстом и запросом панели
func GetError(c echo.Context, err error) {
	var te *TrackerError
	var attrs []any
	if errors.As(err, &te) {
		attrs = append(te.attrs(), slog.Any("trace", te.Trace))
	} else {
		attrs = []any{slog.String("raw_error", err.Error())}
	}

	if c != nil {
		attrs = append(attrs,
			slog.String("method", c.Request().Method),
			slog.String("url", c.Request().URL.String()))
		if u, ok := c.(interface{ UserEmail() string }); ok {
			attrs = append(attrs, slog.String("user", u.UserEmail()))
		}
	}

	slog.With(attrs...).Error("stack error")
}

func (te *TrackerError) Error() string {
	if te.cause != nil {
		return te.cause.Error()
	}
	return "TrackerError"
}

func (te *TrackerError) Unwrap() error {
	return te.cause
}

func (te *TrackerError) attrs() []any {
	keys := make([]string, 0, len(te.Context))
	for k := range te.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := make([]any, 0, len(keys))
	for _, k := range keys {
		res = append(res, slog.Any(k, te.Context[k]))
	}
	return res
}

func caller(err error) string {
	_, path, no, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	return fmt.Sprintf("%s:%d %s", filepath.Base(path), no, msg)
}
