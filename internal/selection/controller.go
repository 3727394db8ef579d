// Package selection tracks which search result is open in the detail view.
package selection

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Clark-Hu/popcorn/internal/catalog"
	"github.com/Clark-Hu/popcorn/internal/domain"
)

// DefaultTitle is the page title when no movie is open.
const DefaultTitle = "usePopcorn"

const defaultLookupTimeout = 10 * time.Second

// State is a snapshot of the selection slice.
type State struct {
	ID      string              `json:"id,omitempty"`
	Detail  *domain.MovieDetail `json:"detail,omitempty"`
	Loading bool                `json:"loading"`
}

// Controller owns the selected identifier and its detail record.
type Controller struct {
	looker  catalog.Looker
	timeout time.Duration
	logger  *slog.Logger
	onTitle func(string)

	mu      sync.Mutex
	id      string
	detail  *domain.MovieDetail
	gen     uint64
	pending bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLookupTimeout bounds each detail lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTitleObserver registers fn to receive the page title whenever it
// changes.
func WithTitleObserver(fn func(string)) Option {
	return func(c *Controller) {
		c.onTitle = fn
	}
}

// New constructs a Controller with nothing selected.
func New(looker catalog.Looker, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		looker:  looker,
		timeout: defaultLookupTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Select makes id the active selection and fetches its detail. Selecting the
// already active id does nothing. The returned channel closes once the
// lookup has settled.
func (c *Controller) Select(id string) <-chan struct{} {
	id = strings.TrimSpace(id)
	done := make(chan struct{})

	c.mu.Lock()
	defer c.mu.Unlock()

	if id == "" || id == c.id {
		close(done)
		return done
	}
	c.id = id
	c.gen++
	c.pending = true

	go c.lookup(c.gen, id, done)
	return done
}

func (c *Controller) lookup(gen uint64, id string, done chan struct{}) {
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	detail, err := c.looker.Lookup(ctx, id)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale detail", "id", id)
		return
	}
	c.pending = false
	if err != nil {
		c.mu.Unlock()
		c.logger.Error("detail lookup failed", "id", id, "error", err)
		return
	}
	c.detail = &detail
	title := c.titleLocked()
	c.mu.Unlock()

	c.notify(title)
}

// Close hands the open detail to archive, then clears the selection. A detail
// left over from an earlier selection whose own lookup failed is not
// archived. It reports whether a detail was archived. archive runs under the
// controller's lock and must not call back into it.
func (c *Controller) Close(archive func(domain.MovieDetail)) bool {
	c.mu.Lock()
	if c.id == "" {
		c.mu.Unlock()
		return false
	}
	detail := c.detail
	archived := false
	if detail != nil && detail.ID == c.id && archive != nil {
		archive(*detail)
		archived = true
	}
	c.id = ""
	c.detail = nil
	c.pending = false
	c.gen++
	c.mu.Unlock()

	c.notify(DefaultTitle)
	return archived
}

// Escape is the keyboard shortcut for Close.
func (c *Controller) Escape(archive func(domain.MovieDetail)) bool {
	return c.Close(archive)
}

// Active reports whether a detail view is open.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id != ""
}

// State returns a snapshot of the selection.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{ID: c.id, Loading: c.pending}
	if c.detail != nil {
		d := *c.detail
		s.Detail = &d
	}
	return s
}

// Title returns the page title for the current selection.
func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.titleLocked()
}

func (c *Controller) titleLocked() string {
	if c.detail != nil && c.detail.Title != "" {
		return "Movie: " + c.detail.Title
	}
	return DefaultTitle
}

func (c *Controller) notify(title string) {
	if c.onTitle != nil {
		c.onTitle(title)
	}
}
