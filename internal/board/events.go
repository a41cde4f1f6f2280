package board

// Typed observer bus for entity lifecycle events. Delivery is synchronous
// and single-threaded; handlers must be idempotent because the same update
// may be re-broadcast. No ordering is guaranteed across subscribers, but an
// event always carries the entity's final state for that change.

// EventKind identifies what happened to an entity.
type EventKind int

const (
	EventMoved   EventKind = iota // entity position changed; Position holds the new top-left
	EventDeleted                  // entity removed from the board
)

func (k EventKind) String() string {
	switch k {
	case EventMoved:
		return "moved"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is a single entity notification.
type Event struct {
	Kind     EventKind
	EntityID string
	Position Vec // final position for EventMoved; zero otherwise
}

// Handler receives events for one subscribed entity.
type Handler func(Event)

// Bus routes entity events to per-entity subscribers.
type Bus struct {
	subs   map[string]map[int]Handler
	nextID int
}

// NewBus returns an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for events about entityID and returns a
// function that removes the subscription.
func (b *Bus) Subscribe(entityID string, h Handler) func() {
	m, ok := b.subs[entityID]
	if !ok {
		m = make(map[int]Handler)
		b.subs[entityID] = m
	}
	id := b.nextID
	b.nextID++
	m[id] = h
	return func() { delete(m, id) }
}

// Publish delivers ev to every subscriber of its entity, synchronously.
func (b *Bus) Publish(ev Event) {
	for _, h := range b.subs[ev.EntityID] {
		h(ev)
	}
}

// SubscriberCount returns the number of live subscriptions for entityID.
func (b *Bus) SubscriberCount(entityID string) int {
	return len(b.subs[entityID])
}
