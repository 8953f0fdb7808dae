// Реестр сессий редактора.
//
// Каждая сессия владеет одной Surface. Реестр защищен своим мьютексом, у сессии собственный мьютекс,
// поэтому одновременно поверхность меняет только один запрос. Сессии без обращений дольше ttl удаляются ExpireIdle.
package sessions

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/surface"
	"github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var ErrSessionClosed = errors.New("editor session closed")

type Session struct {
	ID        uuid.UUID
	DraftID   *uuid.UUID
	CreatedAt time.Time

	mu       sync.Mutex
	surface  *surface.Surface
	lastUsed time.Time
	changes  int
	closed   bool
	now      func() time.Time
}

// Do выполняет fn с эксклюзивным доступом к поверхности
func (s *Session) Do(fn func(sf *surface.Surface) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.lastUsed = s.now()
	return fn(s.surface)
}

// Changes - число изменений документа за время сессии
func (s *Session) Changes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changes
}

type Options struct {
	InitialValue string
	ReadOnly     bool
	DraftID      *uuid.UUID
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	now      func() time.Time

	active  prometheus.Gauge
	changes prometheus.Counter
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		now:      time.Now,
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "editor_sessions_active",
			Help: "Count of open editor sessions",
		}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_changes_total",
			Help: "Total count of document changes made in editor sessions",
		}),
	}
}

func (m *Manager) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.active, m.changes}
}

func (m *Manager) Create(opts Options) *Session {
	s := &Session{
		ID:        uuid.Must(uuid.NewV4()),
		DraftID:   opts.DraftID,
		CreatedAt: m.now(),
		now:       m.now,
	}
	s.lastUsed = s.CreatedAt
	s.surface = surface.New(opts.InitialValue, surface.Options{
		ReadOnly: opts.ReadOnly,
		Logger:   slog.Default().With("session", s.ID.String()),
		// вызывается под s.mu из Do
		OnChange: func(string) {
			s.changes++
			m.changes.Inc()
		},
	})

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.active.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Delete(id uuid.UUID) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.active.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()

	if ok {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	}
	return ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ExpireIdle удаляет сессии без обращений дольше ttl. Возвращает число удаленных.
func (m *Manager) ExpireIdle() int {
	if m.ttl <= 0 {
		return 0
	}
	deadline := m.now().Add(-m.ttl)

	m.mu.RLock()
	var idle []uuid.UUID
	for id, s := range m.sessions {
		s.mu.Lock()
		if s.lastUsed.Before(deadline) {
			idle = append(idle, id)
		}
		s.mu.Unlock()
	}
	m.mu.RUnlock()

	for _, id := range idle {
		m.Delete(id)
	}
	if len(idle) > 0 {
		slog.Info("Expired idle editor sessions", "count", len(idle))
	}
	return len(idle)
}
