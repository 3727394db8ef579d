// Package app holds the per-browser application state: one Session owns the
// search, selection, rating and watched-list slices, each behind its own
// controller.
package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Clark-Hu/popcorn/internal/catalog"
	"github.com/Clark-Hu/popcorn/internal/domain"
	"github.com/Clark-Hu/popcorn/internal/rating"
	"github.com/Clark-Hu/popcorn/internal/search"
	"github.com/Clark-Hu/popcorn/internal/selection"
	"github.com/Clark-Hu/popcorn/internal/watchlist"
)

// DefaultRatingMax matches the ten-star control in the detail view.
const DefaultRatingMax = 10

// ErrNoSelection is returned by rating operations when no detail is open.
var ErrNoSelection = errors.New("app: no movie selected")

// Mirror persists a session's watched list outside the process.
type Mirror interface {
	Save(ctx context.Context, owner string, entries []domain.WatchedEntry) error
	Load(ctx context.Context, owner string) ([]domain.WatchedEntry, error)
}

// Options configures sessions created by a Registry.
type Options struct {
	MinQueryLength int
	SearchTimeout  time.Duration
	LookupTimeout  time.Duration
	RatingMax      int
	RatingCaptions bool
	Mirror         Mirror
	MirrorTimeout  time.Duration
	Logger         *slog.Logger
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.RatingMax <= 0 {
		o.RatingMax = DefaultRatingMax
	}
	if o.MinQueryLength <= 0 {
		o.MinQueryLength = search.DefaultMinQueryLength
	}
	if o.MirrorTimeout <= 0 {
		o.MirrorTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Snapshot is everything the rendering surface needs to paint one frame.
type Snapshot struct {
	Title     string                `json:"title"`
	Search    domain.SearchState    `json:"search"`
	Selection selection.State       `json:"selection"`
	Rating    *rating.State         `json:"rating,omitempty"`
	Watched   []domain.WatchedEntry `json:"watched"`
	Summary   *domain.Summary       `json:"summary,omitempty"`
}

// Session is the application state of one browser.
type Session struct {
	id     string
	opts   Options
	logger *slog.Logger

	search    *search.Controller
	selection *selection.Controller
	watched   *watchlist.List

	persistMu sync.Mutex

	mu       sync.Mutex
	rating   *rating.Widget
	title    string
	lastSeen time.Time
}

// NewSession builds a Session backed by client.
func NewSession(id string, client catalog.Client, opts Options) *Session {
	opts = opts.withDefaults()
	logger := opts.Logger.With("session", id)

	s := &Session{
		id:       id,
		opts:     opts,
		logger:   logger,
		watched:  watchlist.New(),
		rating:   rating.New(opts.RatingMax, 0),
		title:    selection.DefaultTitle,
		lastSeen: opts.Now(),
	}
	s.search = search.New(client, logger,
		search.WithMinQueryLength(opts.MinQueryLength),
		search.WithTimeout(opts.SearchTimeout),
	)
	s.selection = selection.New(client, logger,
		selection.WithLookupTimeout(opts.LookupTimeout),
		selection.WithTitleObserver(s.setTitle),
	)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) setTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.opts.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SetQuery forwards a query box change to the search controller.
func (s *Session) SetQuery(query string) <-chan struct{} {
	s.touch()
	return s.search.SetQuery(query)
}

// Select opens id in the detail view. Any pending search is abandoned so its
// results cannot repaint the list behind the detail view.
func (s *Session) Select(id string) <-chan struct{} {
	s.touch()
	s.search.Cancel()

	if s.selection.State().ID != strings.TrimSpace(id) {
		s.mu.Lock()
		s.rating = rating.New(s.opts.RatingMax, 0)
		s.mu.Unlock()
	}
	return s.selection.Select(id)
}

// Close archives the open movie, with its rating, into the watched list and
// clears the selection. It reports whether anything was archived.
func (s *Session) Close(ctx context.Context) bool {
	s.touch()

	s.mu.Lock()
	point := s.rating.Point()
	s.mu.Unlock()

	archived := s.selection.Close(func(detail domain.MovieDetail) {
		s.watched.Add(domain.WatchedEntry{
			MovieDetail: detail,
			UserRating:  point,
			AddedAt:     s.opts.Now().UTC(),
		})
	})
	if archived {
		s.persist(ctx)
	}
	return archived
}

// Escape handles the Escape key; it behaves like Close.
func (s *Session) Escape(ctx context.Context) bool {
	if !s.selection.Active() {
		return false
	}
	return s.Close(ctx)
}

// Remove drops id from the watched list.
func (s *Session) Remove(ctx context.Context, id string) bool {
	s.touch()
	removed := s.watched.Remove(id)
	if removed {
		s.persist(ctx)
	}
	return removed
}

// Rate commits a rating for the open movie.
func (s *Session) Rate(point int) error {
	return s.withRating(func(w *rating.Widget) { w.SetPoint(point) })
}

// Hover previews a rating for the open movie.
func (s *Session) Hover(point int) error {
	return s.withRating(func(w *rating.Widget) { w.HoverEnter(point) })
}

// Unhover drops the rating preview.
func (s *Session) Unhover() error {
	return s.withRating(func(w *rating.Widget) { w.HoverLeave() })
}

func (s *Session) withRating(fn func(*rating.Widget)) error {
	s.touch()
	if !s.selection.Active() {
		return ErrNoSelection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.rating)
	return nil
}

// Watched returns the watched list in order.
func (s *Session) Watched() []domain.WatchedEntry {
	return s.watched.Entries()
}

// Snapshot captures the current state of every slice.
func (s *Session) Snapshot() Snapshot {
	sel := s.selection.State()

	s.mu.Lock()
	snap := Snapshot{
		Title:     s.title,
		Search:    s.search.State(),
		Selection: sel,
		Watched:   s.watched.Entries(),
	}
	if sel.ID != "" {
		r := s.rating.Snapshot(s.opts.RatingCaptions)
		snap.Rating = &r
	}
	s.mu.Unlock()

	if summary, ok := watchlist.Summarize(snap.Watched); ok {
		snap.Summary = &summary
	}
	return snap
}

// Restore loads the watched list from the mirror, if one is configured.
func (s *Session) Restore(ctx context.Context) error {
	if s.opts.Mirror == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.MirrorTimeout)
	defer cancel()

	entries, err := s.opts.Mirror.Load(ctx, s.id)
	if err != nil {
		return err
	}
	s.watched.Replace(entries)
	return nil
}

func (s *Session) persist(ctx context.Context) {
	if s.opts.Mirror == nil {
		return
	}
	// The snapshot is taken under persistMu so saves land in list order.
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.MirrorTimeout)
	defer cancel()

	if err := s.opts.Mirror.Save(ctx, s.id, s.watched.Entries()); err != nil {
		s.logger.Warn("watched list mirror save failed", "error", err)
	}
}

// Shutdown abandons any in-flight search.
func (s *Session) Shutdown() {
	s.search.Cancel()
}
