// Package search keeps the results pane in sync with the query box.
//
// Every query change supersedes the previous one: the in-flight request is
// cancelled at the transport and its response, should it still arrive, is
// dropped. Queries shorter than the minimum length never reach the catalog.
// Queries are NFC-normalized first, so "é" typed as e plus a combining accent
// counts as one character.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/Clark-Hu/popcorn/internal/catalog"
	"github.com/Clark-Hu/popcorn/internal/domain"
)

// DefaultMinQueryLength is the shortest query sent to the catalog.
const DefaultMinQueryLength = 3

// Phase is the controller's position in Idle → Loading → Success|Failed.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Controller owns the search slice of a session.
type Controller struct {
	searcher catalog.Searcher
	minLen   int
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	state  domain.SearchState
	phase  Phase
	gen    uint64
	cancel context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithMinQueryLength overrides DefaultMinQueryLength.
func WithMinQueryLength(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.minLen = n
		}
	}
}

// WithTimeout bounds each search request. Zero means no bound beyond the
// catalog client's own.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New constructs a Controller in the idle phase.
func New(searcher catalog.Searcher, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		searcher: searcher,
		minLen:   DefaultMinQueryLength,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetQuery replaces the current query. The returned channel is closed once
// this query has settled: applied, failed, superseded, or suppressed for
// being too short.
func (c *Controller) SetQuery(query string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	query = norm.NFC.String(query)
	c.cancelLocked()
	c.gen++
	done := make(chan struct{})

	if utf8.RuneCountInString(query) < c.minLen {
		c.phase = PhaseIdle
		c.state = domain.SearchState{Query: query}
		close(done)
		return done
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	c.cancel = cancel
	c.phase = PhaseLoading
	c.state = domain.SearchState{Query: query, IsLoading: true}

	go c.run(ctx, cancel, c.gen, query, done)
	return done
}

// Cancel abandons the in-flight search, if any. Results are left empty and
// the loading flag cleared; no error is recorded.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return
	}
	c.cancelLocked()
	c.gen++
	if c.phase == PhaseLoading {
		c.phase = PhaseIdle
		c.state.IsLoading = false
	}
}

func (c *Controller) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, gen uint64, query string, done chan struct{}) {
	defer close(done)
	defer cancel()

	results, err := c.searcher.Search(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.logger.Debug("search superseded", "query", query)
		return
	}
	if errors.Is(err, catalog.ErrCanceled) {
		return
	}
	c.cancel = nil

	if err != nil {
		c.logger.Info("search failed", "query", query, "error", err)
		c.phase = PhaseFailed
		c.state = domain.SearchState{Query: query, Error: Message(err)}
		return
	}
	c.phase = PhaseSuccess
	c.state = domain.SearchState{Query: query, Results: results}
}

// State returns a copy of the current search state.
func (c *Controller) State() domain.SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if c.state.Results != nil {
		s.Results = make([]domain.SearchResult, len(c.state.Results))
		copy(s.Results, c.state.Results)
	}
	return s
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Message converts a catalog failure into the text shown in the results pane.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, catalog.ErrNotFound):
		return "Movie not found"
	case errors.Is(err, catalog.ErrNetwork):
		return "Network error, try again"
	case errors.Is(err, catalog.ErrMalformed):
		return "Unexpected response from catalog"
	default:
		return err.Error()
	}
}
