package board

import (
	"math"

	"github.com/google/uuid"
)

// AnchorProvider is what the string engine needs from a connectable entity:
// a stable identity, a centre, and a fixed candidate set of attachment
// points on its boundary. Move/delete notifications arrive via the Bus, not
// through this interface.
type AnchorProvider interface {
	ID() string
	Center() Vec
	// Anchors returns the candidate attachment points in a fixed order. The
	// slice contents are derived from the current position and size; indices
	// stay valid across moves.
	Anchors() []Vec
	// ClosestAnchor returns the candidate minimizing Euclidean distance to
	// target.
	ClosestAnchor(target Vec) Vec
}

// anchorsPerSide is the number of candidate points on each edge of a card
// (quarter, mid, three-quarter), 12 candidates total.
const anchorsPerSide = 3

// Card is an evidence card pinned to the board. It implements
// AnchorProvider and publishes its own move/delete events.
type Card struct {
	id    string
	pos   Vec // top-left, board space
	size  Vec
	Title string

	bus *Bus
}

// NewCard creates a card and registers nothing: callers add it to a Manager
// explicitly.
func NewCard(bus *Bus, title string, pos, size Vec) *Card {
	return &Card{
		id:    uuid.NewString(),
		pos:   pos,
		size:  size,
		Title: title,
		bus:   bus,
	}
}

// newCardWithID restores a card with a known identity (load path).
func newCardWithID(bus *Bus, id, title string, pos, size Vec) *Card {
	c := NewCard(bus, title, pos, size)
	c.id = id
	return c
}

func (c *Card) ID() string  { return c.id }
func (c *Card) Pos() Vec    { return c.pos }
func (c *Card) Size() Vec   { return c.size }
func (c *Card) Center() Vec { return c.pos.Add(c.size.Mul(0.5)) }

// Contains reports whether p falls inside the card rectangle.
func (c *Card) Contains(p Vec) bool {
	return p.X >= c.pos.X && p.X <= c.pos.X+c.size.X &&
		p.Y >= c.pos.Y && p.Y <= c.pos.Y+c.size.Y
}

// Anchors returns the 12 candidate attachment points: quarter, mid and
// three-quarter positions along each edge, ordered top, right, bottom, left.
func (c *Card) Anchors() []Vec {
	out := make([]Vec, 0, 4*anchorsPerSide)
	fr := [anchorsPerSide]float64{0.25, 0.5, 0.75}
	for _, f := range fr { // top edge
		out = append(out, Vec{c.pos.X + c.size.X*f, c.pos.Y})
	}
	for _, f := range fr { // right edge
		out = append(out, Vec{c.pos.X + c.size.X, c.pos.Y + c.size.Y*f})
	}
	for _, f := range fr { // bottom edge
		out = append(out, Vec{c.pos.X + c.size.X*f, c.pos.Y + c.size.Y})
	}
	for _, f := range fr { // left edge
		out = append(out, Vec{c.pos.X, c.pos.Y + c.size.Y*f})
	}
	return out
}

// ClosestAnchor returns the candidate anchor nearest to target.
func (c *Card) ClosestAnchor(target Vec) Vec {
	anchors := c.Anchors()
	best := anchors[0]
	bestD := math.Inf(1)
	for _, a := range anchors {
		if d := a.Dist(target); d < bestD {
			bestD = d
			best = a
		}
	}
	return best
}

// MoveTo repositions the card and publishes the move after the position is
// final, so every subscriber sees the settled state.
func (c *Card) MoveTo(pos Vec) {
	c.pos = pos
	c.bus.Publish(Event{Kind: EventMoved, EntityID: c.id, Position: pos})
}

// MoveBy shifts the card by delta.
func (c *Card) MoveBy(delta Vec) {
	c.MoveTo(c.pos.Add(delta))
}

// Delete publishes the card's removal. The owning session drops its
// reference afterwards.
func (c *Card) Delete() {
	c.bus.Publish(Event{Kind: EventDeleted, EntityID: c.id})
}

// closestAnchorIndex returns the index into e.Anchors() of the candidate
// nearest to target. Used internally so a chosen anchor can be re-derived
// from the entity's current geometry instead of going stale.
func closestAnchorIndex(e AnchorProvider, target Vec) int {
	anchors := e.Anchors()
	best := 0
	bestD := math.Inf(1)
	for i, a := range anchors {
		if d := a.Dist(target); d < bestD {
			bestD = d
			best = i
		}
	}
	return best
}
