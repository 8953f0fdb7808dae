package notifications

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	pingPeriod = time.Second * 20
	timeout    = time.Minute
)

// Hub рассылает уведомления всем открытым вебсокетам панели
type Hub struct {
	sessions map[uuid.UUID]*websocket.Conn
	mutex    sync.RWMutex

	originPatterns []string
	sent           *prometheus.CounterVec
}

func NewHub(originPatterns ...string) *Hub {
	return &Hub{
		sessions:       make(map[uuid.UUID]*websocket.Conn),
		originPatterns: originPatterns,
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toasts_total",
			Help: "Total count of toast notifications by kind",
		}, []string{"kind"}),
	}
}

func (h *Hub) Collector() prometheus.Collector {
	return h.sent
}

// Handle держит соединение до закрытия клиентом
func (h *Hub) Handle(w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
		// клиент передает токен вторым протоколом: "Bearer, <token>"
		Subprotocols: []string{"Bearer"},
	})
	if err != nil {
		slog.Error("Open websocket connection", "err", err)
		return
	}
	defer c.CloseNow()

	conId := uuid.Must(uuid.NewV4())

	h.mutex.Lock()
	h.sessions[conId] = c
	h.mutex.Unlock()

	go h.pingLoop(conId, c)

	ctx := c.CloseRead(req.Context())
	<-ctx.Done()

	h.remove(conId)
	c.Close(websocket.StatusNormalClosure, "")
}

func (h *Hub) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions)
}

func (h *Hub) Notify(t Toast) {
	h.sent.WithLabelValues(string(t.Kind)).Inc()

	h.mutex.RLock()
	cons := make([]*websocket.Conn, 0, len(h.sessions))
	for _, c := range h.sessions {
		cons = append(cons, c)
	}
	h.mutex.RUnlock()

	for _, c := range cons {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := wsjson.Write(ctx, c, t); err != nil {
			slog.Error("Write toast to websocket", "err", err)
		}
		cancel()
	}
}

// CloseAll закрывает все соединения, например при выходе сотрудника
func (h *Hub) CloseAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for id, c := range h.sessions {
		c.Close(websocket.StatusNormalClosure, "logged out")
		delete(h.sessions, id)
	}
}

func (h *Hub) remove(id uuid.UUID) {
	h.mutex.Lock()
	delete(h.sessions, id)
	h.mutex.Unlock()
}

func (h *Hub) pingLoop(id uuid.UUID, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := conn.Ping(ctx)
		cancel()
		if err != nil {
			slog.Debug("Ping to websocket failed", "conId", id, "err", err)
			h.remove(id)
			conn.Close(websocket.StatusNormalClosure, "Ping failed, connection closed")
			return
		}
	}
}
