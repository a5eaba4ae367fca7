package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type moveRecorder struct {
	calls [][2]int
}

func (m *moveRecorder) apply(from, to int) {
	m.calls = append(m.calls, [2]int{from, to})
}

func TestReorderSession_FullGesture(t *testing.T) {
	s := NewReorderSession()
	rec := &moveRecorder{}

	s.DragStart(0)
	assert.True(t, s.Active())
	s.DragOver(1)
	s.DragOver(2)
	s.DragEnd(rec.apply)

	assert.Equal(t, [][2]int{{0, 2}}, rec.calls)
	assert.False(t, s.Active())
	assert.Equal(t, -1, s.Source())
	assert.Equal(t, -1, s.Hover())
}

func TestReorderSession_DropOnSelfIsCancel(t *testing.T) {
	s := NewReorderSession()
	rec := &moveRecorder{}

	s.DragStart(1)
	s.DragOver(1)
	s.DragEnd(rec.apply)

	assert.Empty(t, rec.calls)
	assert.False(t, s.Active())
}

func TestReorderSession_EndWithoutHoverIsNoOp(t *testing.T) {
	s := NewReorderSession()
	rec := &moveRecorder{}

	s.DragStart(2)
	s.DragEnd(rec.apply)

	assert.Empty(t, rec.calls)
}

func TestReorderSession_EndWithoutStartIsNoOp(t *testing.T) {
	s := NewReorderSession()
	rec := &moveRecorder{}

	s.DragOver(1)
	s.DragEnd(rec.apply)

	assert.Empty(t, rec.calls)
}

func TestReorderSession_LeaveClearsHoverOnly(t *testing.T) {
	s := NewReorderSession()
	rec := &moveRecorder{}

	s.DragStart(0)
	s.DragOver(2)
	s.DragLeave()
	assert.True(t, s.Active())
	assert.Equal(t, -1, s.Hover())

	// A later hover still completes the drag.
	s.DragOver(3)
	s.DragEnd(rec.apply)
	assert.Equal(t, [][2]int{{0, 3}}, rec.calls)
}

func TestReorderSession_LeaveThenEndIsCancel(t *testing.T) {
	s := NewReorderSession()
	rec := &moveRecorder{}

	s.DragStart(0)
	s.DragOver(2)
	s.DragLeave()
	s.DragEnd(rec.apply)

	assert.Empty(t, rec.calls)
}
