package board

import (
	"image/color"
	"math"
	"sort"
)

// anchorTrigger says why an anchor re-selection is being evaluated. The
// reshape trigger uses the stricter distance threshold so the anchor does
// not flap while the user is actively dragging a control point.
type anchorTrigger int

const (
	triggerEntityMove anchorTrigger = iota
	triggerReshape
)

// defaultStringColor is the classic red yarn.
var defaultStringColor = color.RGBA{R: 200, G: 40, B: 40, A: 255}

// Connection is one string between two cards: the curve engine. It owns an
// ordered point sequence (source anchor, control points, target anchor), the
// cached polyline sampled from it, and the interaction state around it.
type Connection struct {
	mgr    *Manager
	source AnchorProvider
	target AnchorProvider

	// Chosen candidate indices, not positions: the actual anchor points are
	// re-derived from the entities' current geometry on every access, so the
	// curve's endpoints can never go stale.
	srcIdx int
	dstIdx int

	points   []*ControlPoint
	polyline []Vec

	Color color.RGBA

	hovered   bool
	active    *ControlPoint // current drag target, nil when idle
	idleTicks int
	nextSeq   int
}

func newConnection(mgr *Manager, source, target AnchorProvider) *Connection {
	c := &Connection{
		mgr:    mgr,
		source: source,
		target: target,
		Color:  defaultStringColor,
	}
	c.srcIdx = closestAnchorIndex(source, target.Center())
	c.dstIdx = closestAnchorIndex(target, source.Center())
	c.refit()
	return c
}

// Source and Target expose the connected entities.
func (c *Connection) Source() AnchorProvider { return c.source }
func (c *Connection) Target() AnchorProvider { return c.target }

// Polyline returns the cached sampled curve. Callers must not mutate it.
func (c *Connection) Polyline() []Vec { return c.polyline }

// ControlPoints returns the ordered control points. Callers must not
// mutate the slice.
func (c *Connection) ControlPoints() []*ControlPoint { return c.points }

// references reports whether the connection touches the given entity.
func (c *Connection) references(id string) bool {
	return c.source.ID() == id || c.target.ID() == id
}

// srcAnchor and dstAnchor derive the current endpoint positions from the
// chosen candidate indices. Indices are clamped defensively in case an
// entity ever changes its candidate count.
func (c *Connection) srcAnchor() Vec { return anchorAt(c.source, c.srcIdx) }
func (c *Connection) dstAnchor() Vec { return anchorAt(c.target, c.dstIdx) }

func anchorAt(e AnchorProvider, idx int) Vec {
	anchors := e.Anchors()
	if idx < 0 || idx >= len(anchors) {
		idx = 0
	}
	return anchors[idx]
}

// sequence builds the full ordered point list: source anchor, control
// points, target anchor.
func (c *Connection) sequence() []Vec {
	seq := make([]Vec, 0, len(c.points)+2)
	seq = append(seq, c.srcAnchor())
	for _, cp := range c.points {
		seq = append(seq, cp.Pos)
	}
	seq = append(seq, c.dstAnchor())
	return seq
}

// --- Fitting pipeline ---

// refit re-sorts the control points along the baseline, fits and samples the
// curve, then runs the two geometric repairs. It is the single path through
// which the cached polyline changes.
func (c *Connection) refit() {
	c.sortPoints()
	c.resample()
	if c.fixSharpAngles() {
		c.resample()
	}
	c.repairSelfIntersections()
	c.mgr.requestRedraw()
}

func (c *Connection) resample() {
	c.polyline = sampleCurve(c.sequence(), c.mgr.tuning.SampleSegments)
}

// sortPoints keeps the control points ordered by their projection onto the
// source→target baseline, regardless of insertion order.
func (c *Connection) sortPoints() {
	a, b := c.srcAnchor(), c.dstAnchor()
	sort.SliceStable(c.points, func(i, j int) bool {
		return projectParam(c.points[i].Pos, a, b) < projectParam(c.points[j].Pos, a, b)
	})
}

// fixSharpAngles relocates any control point whose incoming and outgoing
// directions meet at a cusp sharper than the tuning threshold. The point
// moves to the prev/next midpoint, offset perpendicular to the prev→next
// chord on the side away from the cusp.
func (c *Connection) fixSharpAngles() bool {
	if len(c.points) == 0 {
		return false
	}
	seq := c.sequence()
	limit := c.mgr.tuning.SharpAngleDeg * math.Pi / 180
	changed := false
	for i, cp := range c.points {
		prev := seq[i]   // seq[i] precedes control point i (seq[i+1])
		next := seq[i+2] // and seq[i+2] follows it
		toPrev := prev.Sub(cp.Pos)
		toNext := next.Sub(cp.Pos)
		if angleBetween(toPrev, toNext) >= limit {
			continue
		}
		chord := next.Sub(prev)
		perp := dirOrFallback(chord).Perp()
		mid := lerp(prev, next, 0.5)
		// Move to the opposite side of the chord from the cusp.
		side := 1.0
		if cp.Pos.Sub(prev).Dot(perp) > 0 {
			side = -1
		}
		cp.Pos = clampVec(mid.Add(perp.Mul(side*c.mgr.tuning.SharpAngleOffset)), c.mgr.bounds.X, c.mgr.bounds.Y)
		seq[i+1] = cp.Pos
		changed = true
	}
	return changed
}

// repairSelfIntersections scans the polyline for crossing segment pairs and
// relocates the control point responsible, re-fitting between passes. The
// loop is bounded: a pathological configuration may stay imperfectly
// resolved, which is accepted.
func (c *Connection) repairSelfIntersections() {
	if len(c.points) == 0 {
		return
	}
	for pass := 0; pass < c.mgr.tuning.MaxRepairPasses; pass++ {
		i, j, found := firstSelfIntersection(c.polyline)
		if !found {
			return
		}
		cp := c.pointNearSampleRange(i, j)
		if cp == nil {
			return
		}
		cp.Pos = c.safePosition(cp.Pos)
		c.sortPoints()
		c.resample()
	}
}

// pointNearSampleRange maps an offending sample index range back to the
// control point whose span of the curve contains its midpoint.
func (c *Connection) pointNearSampleRange(i, j int) *ControlPoint {
	if len(c.points) == 0 || len(c.polyline) < 2 {
		return nil
	}
	mid := float64(i+j+1) / 2
	// Sample index → sequence position: samples are spread uniformly over
	// the len(seq)-1 spans of the point sequence.
	spans := len(c.points) + 1
	u := mid / float64(len(c.polyline)-1) * float64(spans)
	idx := int(math.Round(u)) - 1 // interior sequence index → points index
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.points) {
		idx = len(c.points) - 1
	}
	return c.points[idx]
}

// safePosition recomputes a non-crossing position for a control point:
// project onto the baseline, displace perpendicular by at least
// max(floor, frac × baseline length), then push further until the point
// clears the endpoint clamp distance from both anchors.
func (c *Connection) safePosition(p Vec) Vec {
	t := c.mgr.tuning
	a, b := c.srcAnchor(), c.dstAnchor()
	base := b.Sub(a)
	length := base.Len()
	perp := dirOrFallback(base).Perp()

	proj, _ := projectOnSegment(p, a, b)
	offset := math.Max(t.BaselineOffsetFloor, t.BaselineOffsetFrac*length)
	side := 1.0
	if p.Sub(proj).Dot(perp) < 0 {
		side = -1
	}
	pos := proj.Add(perp.Mul(side * offset))

	// Clamp distance to each endpoint: push further along the perpendicular
	// while too close. Bounded, the step always increases separation.
	for step := 0; step < 8 && (pos.Dist(a) < t.EndpointClamp || pos.Dist(b) < t.EndpointClamp); step++ {
		pos = pos.Add(perp.Mul(side * t.EndpointClamp * 0.5))
	}
	return clampVec(pos, c.mgr.bounds.X, c.mgr.bounds.Y)
}

// --- Anchor re-selection ---

// updateAnchors re-evaluates both endpoint anchors against the curve's end
// tangents. A candidate replaces the current anchor only when it is both
// meaningfully far from it and meaningfully better aligned, which keeps
// anchors from oscillating between near-equal candidates.
func (c *Connection) updateAnchors(trigger anchorTrigger) {
	threshold := c.mgr.tuning.AnchorMoveThreshold
	if trigger == triggerReshape {
		threshold = c.mgr.tuning.AnchorReshapeThreshold
	}
	changed := false
	if c.updateAnchorEnd(c.source, &c.srcIdx, c.endTangent(true), threshold) {
		changed = true
	}
	if c.updateAnchorEnd(c.target, &c.dstIdx, c.endTangent(false), threshold) {
		changed = true
	}
	if changed {
		c.refit()
	}
}

// endTangent estimates the curve's outgoing direction at one end from the
// nearest polyline samples, falling back to the straight centre-to-centre
// direction when too few samples exist.
func (c *Connection) endTangent(atSource bool) Vec {
	k := c.mgr.tuning.EndTangentSamples
	if len(c.polyline) <= k {
		if atSource {
			return dirOrFallback(c.target.Center().Sub(c.source.Center()))
		}
		return dirOrFallback(c.source.Center().Sub(c.target.Center()))
	}
	var d Vec
	if atSource {
		d = c.polyline[k-1].Sub(c.polyline[0])
	} else {
		n := len(c.polyline)
		d = c.polyline[n-k].Sub(c.polyline[n-1])
	}
	if d.Len() < 1e-9 {
		if atSource {
			return dirOrFallback(c.target.Center().Sub(c.source.Center()))
		}
		return dirOrFallback(c.source.Center().Sub(c.target.Center()))
	}
	return d.Normalized()
}

// updateAnchorEnd applies the two-part acceptance gate for one end.
func (c *Connection) updateAnchorEnd(e AnchorProvider, idx *int, desired Vec, threshold float64) bool {
	ideal := e.Center().Add(desired.Mul(c.mgr.tuning.AnchorProbeDistance))
	cand := closestAnchorIndex(e, ideal)
	if cand == *idx {
		return false
	}
	anchors := e.Anchors()
	if cand < 0 || cand >= len(anchors) || *idx < 0 || *idx >= len(anchors) {
		return false
	}
	candPos, curPos := anchors[cand], anchors[*idx]
	if candPos.Dist(curPos) <= threshold {
		return false
	}
	if anchorScore(candPos, e.Center(), desired) <= anchorScore(curPos, e.Center(), desired)+c.mgr.tuning.AnchorQualityMargin {
		return false
	}
	*idx = cand
	return true
}

// anchorScore rates how well an anchor faces the desired direction:
// (dot+1)/2 over the centre→anchor unit vector, range [0,1].
func anchorScore(anchor, center, desired Vec) float64 {
	dir := anchor.Sub(center).Normalized()
	if dir == (Vec{}) {
		return 0
	}
	return (dir.Dot(desired) + 1) / 2
}

// --- Hit-testing ---

// SelfIntersecting reports whether the cached polyline still crosses
// itself. Repair is best-effort, so this can stay true for pathological
// shapes.
func (c *Connection) SelfIntersecting() bool {
	_, _, found := firstSelfIntersection(c.polyline)
	return found
}

// Length returns the polyline arc length.
func (c *Connection) Length() float64 {
	total := 0.0
	for i := 0; i+1 < len(c.polyline); i++ {
		total += c.polyline[i].Dist(c.polyline[i+1])
	}
	return total
}

// DistanceTo returns the distance from p to the cached polyline.
func (c *Connection) DistanceTo(p Vec) float64 {
	return polylineDist(c.polyline, p)
}

// HitTest reports whether p counts as "on the string": within stroke width
// plus margin of the polyline.
func (c *Connection) HitTest(p Vec) bool {
	return c.DistanceTo(p) <= c.mgr.tuning.StrokeWidth+c.mgr.tuning.HitMargin
}

// pointHandleRadius is the pick radius around a control point handle.
const pointHandleRadius = 10.0

// pointAt returns the control point under p, or nil.
func (c *Connection) pointAt(p Vec) *ControlPoint {
	var best *ControlPoint
	bestD := pointHandleRadius
	for _, cp := range c.points {
		if d := cp.Pos.Dist(p); d <= bestD {
			bestD = d
			best = cp
		}
	}
	return best
}

// --- Control-point insertion & removal ---

// InsertPoint creates a control point where the string was clicked. The
// click is snapped to the nearest polyline sample, then refined by
// projecting onto the segment between that sample's neighbours when the
// refinement does not land meaningfully farther from the click. The new
// point enters the sequence at its baseline-sorted position. With dragNow
// the point immediately becomes the active drag target and is marked Moved
// so idle cleanup cannot reclaim it while the user is still positioning it.
func (c *Connection) InsertPoint(click Vec, dragNow bool) *ControlPoint {
	if len(c.polyline) < 2 {
		return nil
	}
	idx := nearestPolylineIndex(c.polyline, click)
	pos := c.polyline[idx]
	rawD := click.Dist(pos)
	if idx > 0 && idx < len(c.polyline)-1 {
		q, _ := projectOnSegment(click, c.polyline[idx-1], c.polyline[idx+1])
		if click.Dist(q) <= rawD*c.mgr.tuning.RefineTolerance {
			pos = q
		}
	}
	pos = clampVec(pos, c.mgr.bounds.X, c.mgr.bounds.Y)

	cp := &ControlPoint{Pos: pos, origin: pos, seq: c.nextSeq, Moved: dragNow}
	c.nextSeq++

	a, b := c.srcAnchor(), c.dstAnchor()
	t := projectParam(pos, a, b)
	at := len(c.points)
	for i, other := range c.points {
		if projectParam(other.Pos, a, b) > t {
			at = i
			break
		}
	}
	c.points = append(c.points, nil)
	copy(c.points[at+1:], c.points[at:])
	c.points[at] = cp

	if dragNow {
		cp.StartDrag(click)
		c.active = cp
	}
	c.touch()
	c.refit()
	return cp
}

// RemovePointAt deletes the control point under p, if any.
func (c *Connection) RemovePointAt(p Vec) bool {
	cp := c.pointAt(p)
	if cp == nil {
		return false
	}
	c.removePoint(cp)
	c.touch()
	c.refit()
	return true
}

func (c *Connection) removePoint(cp *ControlPoint) {
	for i, other := range c.points {
		if other == cp {
			c.points = append(c.points[:i], c.points[i+1:]...)
			return
		}
	}
}

// --- Drag lifecycle ---

// StartPointDrag begins dragging the control point under p. Returns false
// if no handle is there.
func (c *Connection) StartPointDrag(p Vec) bool {
	cp := c.pointAt(p)
	if cp == nil {
		return false
	}
	cp.StartDrag(p)
	c.active = cp
	c.touch()
	return true
}

// DragTo tracks the pointer for the active drag, re-fitting the curve and
// re-evaluating anchors with the conservative reshape threshold.
func (c *Connection) DragTo(p Vec) {
	if c.active == nil {
		return
	}
	c.active.DragTo(p, c.mgr.bounds, c.mgr.tuning.MovedEpsilon)
	c.touch()
	c.refit()
	c.updateAnchors(triggerReshape)
}

// EndPointDrag releases the active drag unconditionally and runs clustering
// cleanup.
func (c *Connection) EndPointDrag() {
	if c.active == nil {
		return
	}
	c.active.EndDrag()
	c.active = nil
	c.touch()
	c.clusterCleanup()
}

// Manipulating reports whether a control point drag is in progress.
func (c *Connection) Manipulating() bool { return c.active != nil }

// SetHovered records pointer hover; hover keeps the idle timer from firing
// and makes the handles visible.
func (c *Connection) SetHovered(h bool) {
	if h {
		c.touch()
	}
	c.hovered = h
}

// Hovered reports the current hover state.
func (c *Connection) Hovered() bool { return c.hovered }

// ShowPoints reports whether the control point handles should render:
// only while hovered or being manipulated.
func (c *Connection) ShowPoints() bool { return c.hovered || c.active != nil }

// --- Cleanup ---

// clusterCleanup removes the later-inserted point of any pair closer than
// the minimum separation, then re-fits if anything was culled.
func (c *Connection) clusterCleanup() {
	minSep := c.mgr.tuning.MinPointSeparation
	removed := false
	for {
		victim := (*ControlPoint)(nil)
		for i := 0; i < len(c.points) && victim == nil; i++ {
			for j := i + 1; j < len(c.points); j++ {
				if c.points[i].Pos.Dist(c.points[j].Pos) >= minSep {
					continue
				}
				victim = c.points[j]
				if c.points[i].seq > c.points[j].seq {
					victim = c.points[i]
				}
				break
			}
		}
		if victim == nil {
			break
		}
		c.removePoint(victim)
		removed = true
	}
	if removed {
		c.refit()
	}
}

// touch resets the idle timer; any interaction with the connection counts.
func (c *Connection) touch() { c.idleTicks = 0 }

// tick advances the idle timer one frame. When the timer lapses with no
// hover and no drag, every control point that was never deliberately moved
// is reclaimed.
func (c *Connection) tick(timeoutTicks int) {
	if c.hovered || c.active != nil {
		c.idleTicks = 0
		return
	}
	c.idleTicks++
	if c.idleTicks < timeoutTicks {
		return
	}
	c.idleTicks = 0
	kept := c.points[:0]
	removed := false
	for _, cp := range c.points {
		if cp.Moved {
			kept = append(kept, cp)
		} else {
			removed = true
		}
	}
	c.points = kept
	if removed {
		c.refit()
	}
}

// onEntityMoved handles a move notification for either endpoint. The anchor
// positions re-derive from the stored candidate indices, so the first refit
// brings the polyline up to date; anchor re-selection then reads fresh end
// tangents and refits again only if a candidate actually changed. Running
// this twice for the same move yields the same state.
func (c *Connection) onEntityMoved() {
	c.refit()
	c.updateAnchors(triggerEntityMove)
}

// Label is the hover tooltip text.
func (c *Connection) Label() string {
	s, t := "?", "?"
	if src, ok := c.source.(*Card); ok {
		s = src.Title
	}
	if dst, ok := c.target.(*Card); ok {
		t = dst.Title
	}
	return s + " <-> " + t
}
