package board

// ControlPoint is a user-placed handle that reshapes a string. Visibility is
// owned by the parent Connection; the point itself only tracks position,
// drag state, and whether it has ever been deliberately moved.
type ControlPoint struct {
	Pos Vec

	// Moved becomes true once the point is displaced more than the tuning
	// epsilon from its creation position, or immediately when the point was
	// created by an insert-and-drag gesture. Unmoved points are reclaimed by
	// idle cleanup.
	Moved bool

	origin     Vec // creation position, reference for the Moved epsilon
	seq        int // insertion sequence, breaks ties in clustering cleanup
	dragging   bool
	grabOffset Vec // point position minus pointer at grab time
}

// Dragging reports whether the point is the active drag target.
func (cp *ControlPoint) Dragging() bool { return cp.dragging }

// StartDrag begins a drag with the pointer at p. The grab offset keeps the
// point from jumping under the cursor.
func (cp *ControlPoint) StartDrag(p Vec) {
	cp.dragging = true
	cp.grabOffset = cp.Pos.Sub(p)
}

// DragTo tracks the pointer during a drag, clamped to the board rectangle.
func (cp *ControlPoint) DragTo(p Vec, bounds Vec, epsilon float64) {
	if !cp.dragging {
		return
	}
	cp.Pos = clampVec(p.Add(cp.grabOffset), bounds.X, bounds.Y)
	if !cp.Moved && cp.Pos.Dist(cp.origin) > epsilon {
		cp.Moved = true
	}
}

// EndDrag releases the point unconditionally.
func (cp *ControlPoint) EndDrag() {
	cp.dragging = false
}
