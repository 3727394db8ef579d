package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/popcorn/internal/domain"
)

func TestRegistryOpen(t *testing.T) {
	r := NewRegistry(newFakeCatalog(), testOptions())

	s := r.Open(context.Background(), "")
	_, err := uuid.Parse(s.ID())
	require.NoError(t, err)

	again := r.Open(context.Background(), s.ID())
	assert.Same(t, s, again)

	other := r.Open(context.Background(), "not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", other.ID())
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get(s.ID())
	assert.True(t, ok)
	assert.Same(t, s, got)
}

func TestRegistryOpenRestoresKnownID(t *testing.T) {
	mirror := newFakeMirror()
	id := uuid.NewString()
	mirror.saved[id] = []domain.WatchedEntry{{MovieDetail: movie("tt1", "One", "6")}}
	opts := testOptions()
	opts.Mirror = mirror

	r := NewRegistry(newFakeCatalog(), opts)
	s := r.Open(context.Background(), id)

	assert.Equal(t, id, s.ID())
	assert.Len(t, s.Watched(), 1)
}

func TestRegistrySweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	opts := testOptions()
	opts.Now = func() time.Time { return now }
	r := NewRegistry(newFakeCatalog(), opts)

	old := r.Open(context.Background(), "")
	now = now.Add(time.Hour)
	fresh := r.Open(context.Background(), "")

	removed := r.Sweep(30 * time.Minute)
	assert.Equal(t, 1, removed)
	_, ok := r.Get(old.ID())
	assert.False(t, ok)
	_, ok = r.Get(fresh.ID())
	assert.True(t, ok)
}

// gatedMirror holds Load until release is closed.
type gatedMirror struct {
	*fakeMirror
	loading chan struct{}
	release chan struct{}
	once    sync.Once
}

func (m *gatedMirror) Load(ctx context.Context, owner string) ([]domain.WatchedEntry, error) {
	m.once.Do(func() { close(m.loading) })
	<-m.release
	return m.fakeMirror.Load(ctx, owner)
}

func TestRegistryOpenWaitsForRestore(t *testing.T) {
	id := uuid.NewString()
	mirror := &gatedMirror{fakeMirror: newFakeMirror(), loading: make(chan struct{}), release: make(chan struct{})}
	mirror.saved[id] = []domain.WatchedEntry{{MovieDetail: movie("tt1", "One", "6")}}
	opts := testOptions()
	opts.Mirror = mirror

	r := NewRegistry(newFakeCatalog(movie("tt2", "Two", "8")), opts)

	first := make(chan *Session, 1)
	go func() { first <- r.Open(context.Background(), id) }()
	<-mirror.loading

	_, visible := r.Get(id)
	assert.False(t, visible, "session must not be visible while restoring")

	second := make(chan *Session, 1)
	go func() {
		s := r.Open(context.Background(), id)
		<-s.Select("tt2")
		s.Close(context.Background())
		second <- s
	}()

	select {
	case <-second:
		t.Fatal("second open must wait for the restore")
	case <-time.After(50 * time.Millisecond):
	}
	close(mirror.release)

	a, b := <-first, <-second
	require.Same(t, a, b)

	got := a.Watched()
	require.Len(t, got, 2)
	assert.Equal(t, "tt1", got[0].ID)
	assert.Equal(t, "tt2", got[1].ID)

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	assert.Len(t, mirror.saved[id], 2)
}
