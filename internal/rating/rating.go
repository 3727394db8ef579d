// Package rating implements the star rating control shown in the detail view.
package rating

import (
	"strconv"
	"sync"
)

// DefaultMax is the scale used when none is configured.
const DefaultMax = 5

var captions = map[int]string{
	1: "Terrible",
	2: "Not that good",
	3: "Conventional",
	4: "Fine",
	5: "Excellent",
}

// Widget holds a committed point and a transient hover preview.
type Widget struct {
	mu    sync.Mutex
	max   int
	point int
	hover int
}

// State is a snapshot for rendering.
type State struct {
	Max       int    `json:"max"`
	Point     int    `json:"point"`
	Displayed int    `json:"displayed"`
	Label     string `json:"label"`
	Stars     []bool `json:"stars"`
}

// New returns a widget on a 1..max scale starting at defaultPoint.
func New(max, defaultPoint int) *Widget {
	if max <= 0 {
		max = DefaultMax
	}
	w := &Widget{max: max}
	w.point = w.clamp(defaultPoint)
	return w
}

func (w *Widget) clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > w.max {
		return w.max
	}
	return n
}

// Max returns the scale size.
func (w *Widget) Max() int {
	return w.max
}

// SetPoint commits n as the rating.
func (w *Widget) SetPoint(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.point = w.clamp(n)
	w.hover = 0
}

// HoverEnter previews n without committing it.
func (w *Widget) HoverEnter(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hover = w.clamp(n)
}

// HoverLeave drops the preview; the committed point is displayed again.
func (w *Widget) HoverLeave() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hover = 0
}

// Point returns the committed rating (0 when unrated).
func (w *Widget) Point() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.point
}

// Displayed returns the hover preview if any, else the committed point.
func (w *Widget) Displayed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.displayed()
}

func (w *Widget) displayed() int {
	if w.hover > 0 {
		return w.hover
	}
	return w.point
}

// Label renders the committed point; a hover preview only moves the stars.
// Captions only apply to a 5-point scale.
func (w *Widget) Label(withCaption bool) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return label(w.max, w.point, withCaption)
}

func label(max, point int, withCaption bool) string {
	if withCaption && max == 5 {
		return captions[point]
	}
	if point == 0 {
		return ""
	}
	return strconv.Itoa(point)
}

// Snapshot returns the render state.
func (w *Widget) Snapshot(withCaption bool) State {
	w.mu.Lock()
	defer w.mu.Unlock()

	shown := w.displayed()
	stars := make([]bool, w.max)
	for i := range stars {
		stars[i] = shown >= i+1
	}
	return State{
		Max:       w.max,
		Point:     w.point,
		Displayed: shown,
		Label:     label(w.max, w.point, withCaption),
		Stars:     stars,
	}
}
