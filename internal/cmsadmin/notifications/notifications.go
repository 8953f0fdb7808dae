// Уведомления для сотрудника: всплывающие сообщения (toast) об успехе, ошибке или долгой операции.
//
// Sink принимает пары (вид, сообщение). LogSink пишет их в slog, Hub рассылает открытым вебсокетам,
// Multi объединяет несколько приемников.
package notifications

import (
	"log/slog"
	"time"

	"github.com/gofrs/uuid"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindLoading Kind = "loading"
)

type Toast struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func NewToast(kind Kind, message string) Toast {
	return Toast{
		ID:        uuid.Must(uuid.NewV4()),
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

type Sink interface {
	Notify(t Toast)
}

// Success, Error и Loading - короткие формы для отправки в Sink
func Success(s Sink, message string) { s.Notify(NewToast(KindSuccess, message)) }
func Error(s Sink, message string)   { s.Notify(NewToast(KindError, message)) }
func Loading(s Sink, message string) { s.Notify(NewToast(KindLoading, message)) }

type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Notify(t Toast) {
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}
	if t.Kind == KindError {
		log.Warn("Toast", "kind", t.Kind, "message", t.Message)
		return
	}
	log.Info("Toast", "kind", t.Kind, "message", t.Message)
}

type multi []Sink

func (m multi) Notify(t Toast) {
	for _, s := range m {
		s.Notify(t)
	}
}

func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}
