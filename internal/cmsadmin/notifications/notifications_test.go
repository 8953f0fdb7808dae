package notifications

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	toasts []Toast
}

func (r *recorder) Notify(t Toast) {
	r.toasts = append(r.toasts, t)
}

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	rec := &recorder{}
	sink := Multi(LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}, rec)

	Success(sink, "Contenu créé")
	Error(sink, "Échec de l'envoi")
	Loading(sink, "Téléversement")

	require.Len(t, rec.toasts, 3)
	assert.Equal(t, []Kind{KindSuccess, KindError, KindLoading},
		[]Kind{rec.toasts[0].Kind, rec.toasts[1].Kind, rec.toasts[2].Kind})
	assert.NotEqual(t, rec.toasts[0].ID, rec.toasts[1].ID)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Equal(t, 2, strings.Count(out, "level=INFO"))
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.Handle))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	a, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer a.CloseNow()
	b, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer b.CloseNow()

	require.Eventually(t, func() bool { return hub.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	Error(hub, "API indisponible")

	for _, c := range []*websocket.Conn{a, b} {
		var got Toast
		require.NoError(t, wsjson.Read(ctx, c, &got))
		assert.Equal(t, KindError, got.Kind)
		assert.Equal(t, "API indisponible", got.Message)
	}

	a.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.CloseAll()
	assert.Equal(t, 0, hub.Len())
}
