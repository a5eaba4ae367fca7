package gallery

// ReorderSession folds low-level drag gesture events into at most one move
// commit at gesture end. It is ephemeral state owned by one view; nothing in
// it is ever persisted.
//
// The caller is responsible for only starting drags while the gallery is
// editable — non-editable items are simply not draggable.
type ReorderSession struct {
	source int
	hover  int
}

// NewReorderSession returns an idle session.
func NewReorderSession() *ReorderSession {
	return &ReorderSession{source: -1, hover: -1}
}

// DragStart records the index of the item being picked up.
func (s *ReorderSession) DragStart(index int) {
	s.source = index
	s.hover = -1
}

// DragOver records the index currently under the pointer. Called many times
// per gesture; each call overwrites the previous hover.
func (s *ReorderSession) DragOver(index int) {
	s.hover = index
}

// DragLeave clears the hover target only. The gesture stays alive: a later
// DragOver on a valid target still completes the drag.
func (s *ReorderSession) DragLeave() {
	s.hover = -1
}

// DragEnd finishes the gesture. If a source and a distinct hover target are
// both set, apply is invoked exactly once with (source, hover); otherwise
// the gesture is a pure cancellation. Either way the session resets to idle.
func (s *ReorderSession) DragEnd(apply func(from, to int)) {
	src, hov := s.source, s.hover
	s.source = -1
	s.hover = -1

	if src < 0 || hov < 0 || src == hov {
		return
	}
	apply(src, hov)
}

// Active reports whether a drag is in progress.
func (s *ReorderSession) Active() bool {
	return s.source >= 0
}

// Source returns the dragged index, or -1.
func (s *ReorderSession) Source() int {
	return s.source
}

// Hover returns the current drop target index, or -1.
func (s *ReorderSession) Hover() int {
	return s.hover
}
