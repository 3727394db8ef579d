package selection

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/popcorn/internal/catalog"
	"github.com/Clark-Hu/popcorn/internal/domain"
)

type lookupReply struct {
	detail domain.MovieDetail
	err    error
}

// fakeLooker parks each lookup until the test answers it.
type fakeLooker struct {
	mu      sync.Mutex
	replies map[string]chan lookupReply
	calls   chan string
}

func newFakeLooker() *fakeLooker {
	return &fakeLooker{replies: make(map[string]chan lookupReply), calls: make(chan string, 8)}
}

func (f *fakeLooker) reply(id string) chan lookupReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.replies[id]
	if !ok {
		ch = make(chan lookupReply, 1)
		f.replies[id] = ch
	}
	return ch
}

func (f *fakeLooker) Lookup(ctx context.Context, id string) (domain.MovieDetail, error) {
	f.calls <- id
	select {
	case r := <-f.reply(id):
		return r.detail, r.err
	case <-ctx.Done():
		return domain.MovieDetail{}, ctx.Err()
	}
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lookup did not settle")
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func detail(id, title string) domain.MovieDetail {
	return domain.MovieDetail{ID: id, Title: title}
}

func TestSelectLoadsDetail(t *testing.T) {
	f := newFakeLooker()
	var titles []string
	c := New(f, quietLogger(), WithTitleObserver(func(s string) { titles = append(titles, s) }))

	assert.Equal(t, DefaultTitle, c.Title())

	done := c.Select("tt0100")
	assert.True(t, c.State().Loading)
	f.reply("tt0100") <- lookupReply{detail: detail("tt0100", "Example")}
	wait(t, done)

	s := c.State()
	assert.Equal(t, "tt0100", s.ID)
	require.NotNil(t, s.Detail)
	assert.Equal(t, "Example", s.Detail.Title)
	assert.False(t, s.Loading)
	assert.Equal(t, "Movie: Example", c.Title())
	assert.Equal(t, []string{"Movie: Example"}, titles)
}

func TestSelectSameIDIsNoop(t *testing.T) {
	f := newFakeLooker()
	c := New(f, quietLogger())

	done := c.Select("tt1")
	f.reply("tt1") <- lookupReply{detail: detail("tt1", "One")}
	wait(t, done)
	<-f.calls

	wait(t, c.Select("tt1"))
	select {
	case id := <-f.calls:
		t.Fatalf("unexpected second lookup for %s", id)
	default:
	}
}

func TestLookupFailureKeepsPreviousDetail(t *testing.T) {
	f := newFakeLooker()
	c := New(f, quietLogger())

	done := c.Select("tt1")
	f.reply("tt1") <- lookupReply{detail: detail("tt1", "One")}
	wait(t, done)

	done = c.Select("tt2")
	f.reply("tt2") <- lookupReply{err: catalog.ErrNotFound}
	wait(t, done)

	s := c.State()
	assert.Equal(t, "tt2", s.ID)
	require.NotNil(t, s.Detail)
	assert.Equal(t, "One", s.Detail.Title)
	assert.False(t, s.Loading)
}

func TestCloseSkipsDetailOfEarlierSelection(t *testing.T) {
	f := newFakeLooker()
	c := New(f, quietLogger())

	done := c.Select("tt1")
	f.reply("tt1") <- lookupReply{detail: detail("tt1", "One")}
	wait(t, done)

	done = c.Select("tt2")
	f.reply("tt2") <- lookupReply{err: catalog.ErrNetwork}
	wait(t, done)

	var archived []domain.MovieDetail
	ok := c.Close(func(d domain.MovieDetail) { archived = append(archived, d) })

	assert.False(t, ok)
	assert.Empty(t, archived)
	assert.Equal(t, State{}, c.State())
	assert.Equal(t, DefaultTitle, c.Title())
}

func TestStaleDetailIsDiscarded(t *testing.T) {
	f := newFakeLooker()
	c := New(f, quietLogger())

	first := c.Select("tt1")
	second := c.Select("tt2")

	f.reply("tt2") <- lookupReply{detail: detail("tt2", "Two")}
	wait(t, second)
	f.reply("tt1") <- lookupReply{detail: detail("tt1", "One")}
	wait(t, first)

	s := c.State()
	assert.Equal(t, "tt2", s.ID)
	require.NotNil(t, s.Detail)
	assert.Equal(t, "Two", s.Detail.Title)
}

func TestCloseArchivesAndClears(t *testing.T) {
	f := newFakeLooker()
	var titles []string
	c := New(f, quietLogger(), WithTitleObserver(func(s string) { titles = append(titles, s) }))

	done := c.Select("tt1")
	f.reply("tt1") <- lookupReply{detail: detail("tt1", "One")}
	wait(t, done)

	var archived []domain.MovieDetail
	ok := c.Close(func(d domain.MovieDetail) { archived = append(archived, d) })

	assert.True(t, ok)
	require.Len(t, archived, 1)
	assert.Equal(t, "tt1", archived[0].ID)
	assert.False(t, c.Active())
	assert.Nil(t, c.State().Detail)
	assert.Equal(t, DefaultTitle, c.Title())
	assert.Equal(t, []string{"Movie: One", DefaultTitle}, titles)
}

func TestCloseWithoutSelection(t *testing.T) {
	c := New(newFakeLooker(), quietLogger())
	called := false
	assert.False(t, c.Escape(func(domain.MovieDetail) { called = true }))
	assert.False(t, called)
}

func TestCloseBeforeDetailArrives(t *testing.T) {
	f := newFakeLooker()
	c := New(f, quietLogger())

	done := c.Select("tt1")
	called := false
	assert.False(t, c.Close(func(domain.MovieDetail) { called = true }))
	assert.False(t, called)

	f.reply("tt1") <- lookupReply{detail: detail("tt1", "One")}
	wait(t, done)
	assert.Nil(t, c.State().Detail, "a lookup that settles after close must not reopen the view")
}

func TestLookupTimeout(t *testing.T) {
	f := newFakeLooker()
	c := New(f, quietLogger(), WithLookupTimeout(10*time.Millisecond))

	wait(t, c.Select("tt-slow"))
	s := c.State()
	assert.False(t, s.Loading)
	assert.Nil(t, s.Detail)
	assert.Equal(t, "tt-slow", s.ID)
}
