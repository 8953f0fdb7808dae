package sessions

import (
	"sync"
	"testing"
	"time"

	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/surface"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGetDelete(t *testing.T) {
	m := NewManager(time.Hour)
	s := m.Create(Options{InitialValue: "<p>a</p>"})

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())

	var value string
	require.NoError(t, got.Do(func(sf *surface.Surface) error {
		sf.Type("b")
		value = sf.Value()
		return nil
	}))
	assert.Equal(t, "<p>ab</p>", value)
	assert.Equal(t, 1, s.Changes())

	assert.True(t, m.Delete(s.ID))
	assert.False(t, m.Delete(s.ID))
	_, ok = m.Get(s.ID)
	assert.False(t, ok)

	err := s.Do(func(*surface.Surface) error { return nil })
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestReadOnlySession(t *testing.T) {
	m := NewManager(time.Hour)
	draft := uuid.Must(uuid.NewV4())
	s := m.Create(Options{InitialValue: "<p>a</p>", ReadOnly: true, DraftID: &draft})

	require.NoError(t, s.Do(func(sf *surface.Surface) error {
		assert.False(t, sf.Type("x"))
		return nil
	}))
	assert.Equal(t, 0, s.Changes())
	assert.Equal(t, draft, *s.DraftID)
}

func TestExpireIdle(t *testing.T) {
	now := time.Now()
	m := NewManager(30 * time.Minute)
	m.now = func() time.Time { return now }

	idle := m.Create(Options{})
	active := m.Create(Options{})

	now = now.Add(20 * time.Minute)
	require.NoError(t, active.Do(func(*surface.Surface) error { return nil }))

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, m.ExpireIdle())

	_, ok := m.Get(idle.ID)
	assert.False(t, ok)
	_, ok = m.Get(active.ID)
	assert.True(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	m := NewManager(time.Hour)
	s := m.Create(Options{})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Do(func(sf *surface.Surface) error {
				sf.Type("x")
				return nil
			})
		}()
	}
	wg.Wait()

	var value string
	s.Do(func(sf *surface.Surface) error {
		value = sf.Value()
		return nil
	})
	assert.Equal(t, "<p>xxxxxxxxxxxxxxxxxxxx</p>", value)
	assert.Equal(t, 20, s.Changes())
}
