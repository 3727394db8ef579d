package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHoverLeaveRevertsToCommittedPoint(t *testing.T) {
	w := New(5, 0)
	w.HoverEnter(4)
	assert.Equal(t, 4, w.Displayed())

	w.HoverLeave()
	assert.Equal(t, 0, w.Displayed())

	w.SetPoint(2)
	w.HoverEnter(5)
	w.HoverLeave()
	assert.Equal(t, 2, w.Displayed())
	assert.Equal(t, 2, w.Point())
}

func TestSetPointClamps(t *testing.T) {
	w := New(10, 0)
	w.SetPoint(42)
	assert.Equal(t, 10, w.Point())
	w.SetPoint(-3)
	assert.Equal(t, 0, w.Point())
}

func TestDefaults(t *testing.T) {
	w := New(0, 3)
	assert.Equal(t, DefaultMax, w.Max())
	assert.Equal(t, 3, w.Point())
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		point   int
		caption bool
		want    string
	}{
		{"five point caption", 5, 5, true, "Excellent"},
		{"five point terrible", 5, 1, true, "Terrible"},
		{"five point unrated", 5, 0, true, ""},
		{"ten point ignores caption", 10, 4, true, "4"},
		{"numeric", 5, 3, false, "3"},
		{"numeric unrated", 10, 0, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(tt.max, tt.point)
			assert.Equal(t, tt.want, w.Label(tt.caption))
		})
	}
}

func TestSnapshotStars(t *testing.T) {
	w := New(5, 2)
	w.HoverEnter(3)

	s := w.Snapshot(false)
	assert.Equal(t, []bool{true, true, true, false, false}, s.Stars)
	assert.Equal(t, 3, s.Displayed)
	assert.Equal(t, 2, s.Point)
	assert.Equal(t, "2", s.Label)
}

func TestLabelIgnoresHover(t *testing.T) {
	w := New(5, 0)
	w.HoverEnter(4)
	assert.Equal(t, "", w.Label(true))
	assert.Equal(t, "", w.Snapshot(true).Label)

	w.SetPoint(2)
	w.HoverEnter(5)
	assert.Equal(t, "Not that good", w.Label(true))
	assert.Equal(t, 5, w.Displayed())
}
