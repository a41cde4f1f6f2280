package board

import (
	"fmt"
	"image/color"
)

// Manager owns the set of live connections: it enforces pair uniqueness,
// relays entity move/delete events to the affected connections, and
// converts between live connections and their persistence records.
// Connections get a direct reference to their Manager at construction; no
// runtime parent lookup exists.
type Manager struct {
	bus    *Bus
	tuning *Tuning
	bounds Vec // board rectangle is (0,0)-(bounds.X,bounds.Y)

	registry map[string]AnchorProvider
	conns    []*Connection
	unsubs   map[string]func()

	redraw bool
}

// NewManager creates a connection manager for a board of the given size.
func NewManager(bus *Bus, tuning *Tuning, bounds Vec) *Manager {
	return &Manager{
		bus:      bus,
		tuning:   tuning,
		bounds:   bounds,
		registry: make(map[string]AnchorProvider),
		unsubs:   make(map[string]func()),
	}
}

// Tuning exposes the active tuning to collaborators.
func (m *Manager) Tuning() *Tuning { return m.tuning }

// Bounds returns the board rectangle extent.
func (m *Manager) Bounds() Vec { return m.bounds }

// Connections returns the live connections. Callers must not mutate the
// slice.
func (m *Manager) Connections() []*Connection { return m.conns }

// Entity resolves a registered entity by id.
func (m *Manager) Entity(id string) (AnchorProvider, bool) {
	e, ok := m.registry[id]
	return e, ok
}

// AddEntity registers a connectable entity and subscribes to its events.
func (m *Manager) AddEntity(e AnchorProvider) {
	id := e.ID()
	if _, ok := m.registry[id]; ok {
		return
	}
	m.registry[id] = e
	m.unsubs[id] = m.bus.Subscribe(id, m.onEvent)
}

// Connect creates a connection between a and b, or returns the existing one
// for the unordered pair. Self-connections are rejected.
func (m *Manager) Connect(a, b AnchorProvider) *Connection {
	if a == nil || b == nil || a.ID() == b.ID() {
		return nil
	}
	if c := m.Find(a.ID(), b.ID()); c != nil {
		return c
	}
	m.AddEntity(a)
	m.AddEntity(b)
	c := newConnection(m, a, b)
	m.conns = append(m.conns, c)
	m.requestRedraw()
	return c
}

// Find returns the connection for the unordered pair {aID, bID}, or nil.
func (m *Manager) Find(aID, bID string) *Connection {
	for _, c := range m.conns {
		if (c.source.ID() == aID && c.target.ID() == bID) ||
			(c.source.ID() == bID && c.target.ID() == aID) {
			return c
		}
	}
	return nil
}

// Remove destroys a single connection.
func (m *Manager) Remove(conn *Connection) {
	for i, c := range m.conns {
		if c == conn {
			m.conns = append(m.conns[:i], m.conns[i+1:]...)
			m.requestRedraw()
			return
		}
	}
}

// RemoveEntity unregisters an entity and destroys every connection that
// references it. Connections between other entities are untouched.
func (m *Manager) RemoveEntity(id string) {
	if unsub, ok := m.unsubs[id]; ok {
		unsub()
		delete(m.unsubs, id)
	}
	delete(m.registry, id)

	kept := m.conns[:0]
	for _, c := range m.conns {
		if !c.references(id) {
			kept = append(kept, c)
		}
	}
	if len(kept) != len(m.conns) {
		m.requestRedraw()
	}
	m.conns = kept
}

// onEvent relays a bus event to the affected connections. Delivery order
// across connections is unspecified; each handler is idempotent so the
// final state does not depend on it.
func (m *Manager) onEvent(ev Event) {
	switch ev.Kind {
	case EventMoved:
		for _, c := range m.conns {
			if c.references(ev.EntityID) {
				c.onEntityMoved()
			}
		}
	case EventDeleted:
		m.RemoveEntity(ev.EntityID)
	}
}

// ConnectionAt returns the connection whose curve is under p, preferring
// the closest when several overlap.
func (m *Manager) ConnectionAt(p Vec) *Connection {
	var best *Connection
	bestD := m.tuning.StrokeWidth + m.tuning.HitMargin
	for _, c := range m.conns {
		if d := c.DistanceTo(p); d <= bestD {
			bestD = d
			best = c
		}
	}
	return best
}

// Tick advances every connection's idle timer by one frame at the given
// tick rate.
func (m *Manager) Tick(tps int) {
	timeout := m.tuning.IdleTimeoutTicks(tps)
	for _, c := range m.conns {
		c.tick(timeout)
	}
}

// requestRedraw flags that the cached geometry changed since the last draw.
func (m *Manager) requestRedraw() { m.redraw = true }

// ConsumeRedraw reports and clears the pending redraw flag.
func (m *Manager) ConsumeRedraw() bool {
	r := m.redraw
	m.redraw = false
	return r
}

// --- Persistence records ---

// ColorRecord is the serialized string colour.
type ColorRecord struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// ConnectionRecord is the persistence form of one connection. Loading a
// just-saved record reproduces the same endpoint ids, colour, and ordered
// control-point positions.
type ConnectionRecord struct {
	SourceID      string      `json:"source_id"`
	TargetID      string      `json:"target_id"`
	Color         ColorRecord `json:"color"`
	ControlPoints []Vec       `json:"control_points"`
}

// Records serializes every live connection.
func (m *Manager) Records() []ConnectionRecord {
	out := make([]ConnectionRecord, 0, len(m.conns))
	for _, c := range m.conns {
		rec := ConnectionRecord{
			SourceID: c.source.ID(),
			TargetID: c.target.ID(),
			Color:    ColorRecord{R: c.Color.R, G: c.Color.G, B: c.Color.B, A: c.Color.A},
		}
		for _, cp := range c.points {
			rec.ControlPoints = append(rec.ControlPoints, cp.Pos)
		}
		out = append(out, rec)
	}
	return out
}

// Restore rebuilds connections from records against the live entity
// registry. A record whose endpoint cannot be resolved is skipped, not
// fatal; each skip is reported in the returned messages. Restored control
// points count as deliberately moved so idle cleanup cannot reclaim them.
func (m *Manager) Restore(recs []ConnectionRecord) (loaded int, skipped []string) {
	for _, rec := range recs {
		src, okS := m.registry[rec.SourceID]
		dst, okT := m.registry[rec.TargetID]
		if !okS || !okT {
			missing := rec.SourceID
			if okS {
				missing = rec.TargetID
			}
			skipped = append(skipped, fmt.Sprintf("connection %s -> %s: unknown entity %s", rec.SourceID, rec.TargetID, missing))
			continue
		}
		c := m.Connect(src, dst)
		if c == nil {
			skipped = append(skipped, fmt.Sprintf("connection %s -> %s: rejected", rec.SourceID, rec.TargetID))
			continue
		}
		c.Color = color.RGBA{R: rec.Color.R, G: rec.Color.G, B: rec.Color.B, A: rec.Color.A}
		c.points = c.points[:0]
		for _, p := range rec.ControlPoints {
			cp := &ControlPoint{Pos: p, origin: p, seq: c.nextSeq, Moved: true}
			c.nextSeq++
			c.points = append(c.points, cp)
		}
		// Sort and resample only: the saved shape is reproduced exactly, so
		// the repair heuristics must not get a chance to move points that a
		// best-effort save left imperfect.
		c.sortPoints()
		c.resample()
		m.requestRedraw()
		loaded++
	}
	return loaded, skipped
}
