package board

import (
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// ticksPerSecond is Ebiten's default tick rate; idle timers count in it.
const ticksPerSecond = 60

// cardDragThreshold is how far (screen px) the pointer must travel while
// held on a card before the press counts as a drag rather than a select.
const cardDragThreshold = 4.0

// Session is the board controller: the explicit owner of all per-board
// state, created on board open and discarded on close. It implements
// ebiten.Game.
type Session struct {
	tuning *Tuning
	bus    *Bus
	mgr    *Manager
	cards  []*Card

	width  int // window size
	height int

	// Camera pan + zoom over the board rectangle.
	camX    float64
	camY    float64
	camZoom float64

	// Two-step connect gesture: first selected card, nil when none.
	pendingSource *Card

	hoverConn *Connection
	tooltip   string

	// Card drag-in-progress state.
	dragCard   *Card
	dragOffset Vec
	dragMoved  bool
	pressPos   Vec

	// Connection whose control point is being dragged (exclusive modal).
	dragConn *Connection

	prevKeys       map[ebiten.Key]bool
	prevMouseLeft  bool
	prevMouseRight bool

	status    string // transient status line (save/load/export results)
	boardFile string
	slotPath  string
}

// NewSession creates a board session over a boardW×boardH board rendered in
// a width×height window.
func NewSession(tuning *Tuning, width, height int, boardW, boardH float64) *Session {
	bus := NewBus()
	s := &Session{
		tuning:   tuning,
		bus:      bus,
		mgr:      NewManager(bus, tuning, Vec{boardW, boardH}),
		width:    width,
		height:   height,
		camX:     boardW / 2,
		camY:     boardH / 2,
		camZoom:  0.8,
		prevKeys: make(map[ebiten.Key]bool),
	}
	return s
}

// SetBoardFile sets the JSON path used by the save/load keys.
func (s *Session) SetBoardFile(path string) { s.boardFile = path }

// SetSlotPath sets the SQLite slot database path.
func (s *Session) SetSlotPath(path string) { s.slotPath = path }

// Manager exposes the connection manager (headless tools drive it
// directly).
func (s *Session) Manager() *Manager { return s.mgr }

// Bus exposes the session event bus.
func (s *Session) Bus() *Bus { return s.bus }

// Cards returns the live cards.
func (s *Session) Cards() []*Card { return s.cards }

// AddCard creates a card on the board and registers it with the manager.
func (s *Session) AddCard(title string, pos, size Vec) *Card {
	c := NewCard(s.bus, title, pos, size)
	s.cards = append(s.cards, c)
	s.mgr.AddEntity(c)
	return c
}

// DeleteCard removes a card: the deletion event cascades through the
// manager, destroying every connection that touches it.
func (s *Session) DeleteCard(c *Card) {
	c.Delete()
	for i, other := range s.cards {
		if other == c {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			break
		}
	}
	if s.pendingSource == c {
		s.pendingSource = nil
	}
}

// cardAt returns the topmost card under the board-space point.
func (s *Session) cardAt(p Vec) *Card {
	for i := len(s.cards) - 1; i >= 0; i-- {
		if s.cards[i].Contains(p) {
			return s.cards[i]
		}
	}
	return nil
}

// worldPos converts window coordinates to board space (inverse of the Draw
// camera transform).
func (s *Session) worldPos(mx, my int) Vec {
	return Vec{
		X: (float64(mx)-float64(s.width)/2)/s.camZoom + s.camX,
		Y: (float64(my)-float64(s.height)/2)/s.camZoom + s.camY,
	}
}

// Update implements ebiten.Game: one cooperative frame of input handling
// and idle bookkeeping. None of the curve math blocks or yields.
func (s *Session) Update() error {
	s.handleKeys()
	s.handlePointer()
	s.mgr.Tick(ticksPerSecond)
	return nil
}

// handleKeys processes camera and command keys (edge-triggered, the same
// scheme for every toggle).
func (s *Session) handleKeys() {
	currentKeys := map[ebiten.Key]bool{}
	pressed := func(k ebiten.Key) bool {
		currentKeys[k] = ebiten.IsKeyPressed(k)
		return currentKeys[k] && !s.prevKeys[k]
	}

	// Camera pan: WASD or arrows.
	panSpeed := 8.0 / s.camZoom
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		s.camY -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		s.camY += panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		s.camX -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		s.camX += panSpeed
	}

	// Zoom: wheel or =/-.
	const zoomMin, zoomMax = 0.25, 3.0
	_, wy := ebiten.Wheel()
	if wy != 0 {
		s.camZoom *= math.Pow(1.12, wy)
	}
	if pressed(ebiten.KeyEqual) {
		s.camZoom *= 1.25
	}
	if pressed(ebiten.KeyMinus) {
		s.camZoom /= 1.25
	}
	if s.camZoom < zoomMin {
		s.camZoom = zoomMin
	}
	if s.camZoom > zoomMax {
		s.camZoom = zoomMax
	}

	// Clamp camera to the board rectangle.
	halfW := float64(s.width) / 2 / s.camZoom
	halfH := float64(s.height) / 2 / s.camZoom
	s.camX = math.Max(math.Min(s.camX, s.mgr.bounds.X-halfW), halfW)
	s.camY = math.Max(math.Min(s.camY, s.mgr.bounds.Y-halfH), halfH)

	// F5/F9: save/load board file. F6: export PNG. C: clipboard report.
	if pressed(ebiten.KeyF5) && s.boardFile != "" {
		if err := SaveDocument(s.boardFile, s.Snapshot()); err != nil {
			s.status = "save failed: " + err.Error()
		} else {
			s.status = "saved " + s.boardFile
		}
	}
	if pressed(ebiten.KeyF9) && s.boardFile != "" {
		doc, err := LoadDocument(s.boardFile)
		if err != nil {
			s.status = "load failed: " + err.Error()
		} else {
			skipped := s.RestoreSnapshot(doc)
			s.status = fmt.Sprintf("loaded %s (%d skipped)", s.boardFile, len(skipped))
		}
	}
	// F7/F8: quicksave/quickload through the slot store.
	if pressed(ebiten.KeyF7) && s.slotPath != "" {
		s.status = s.saveSlot("quick")
	}
	if pressed(ebiten.KeyF8) && s.slotPath != "" {
		s.status = s.loadSlot("quick")
	}
	if pressed(ebiten.KeyF6) {
		if err := ExportPNG("board.png", s); err != nil {
			s.status = "export failed: " + err.Error()
		} else {
			s.status = "exported board.png"
		}
	}
	if pressed(ebiten.KeyC) {
		if err := CopyReport(s); err != nil {
			s.status = "clipboard failed: " + err.Error()
		} else {
			s.status = "report copied"
		}
	}
	// Escape cancels the pending connect selection and any drag.
	if pressed(ebiten.KeyEscape) {
		s.pendingSource = nil
		if s.dragConn != nil {
			s.dragConn.EndPointDrag()
			s.dragConn = nil
		}
		s.dragCard = nil
	}

	s.prevKeys = currentKeys
}

// handlePointer runs the pointer gesture state machine: hover, the two-step
// connect gesture, card dragging, string clicking, and the exclusive
// control-point drag.
func (s *Session) handlePointer() {
	mx, my := ebiten.CursorPosition()
	world := s.worldPos(mx, my)

	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)

	// Hover tracking; suppressed while a drag is in flight.
	if s.dragConn == nil && s.dragCard == nil {
		hover := s.mgr.ConnectionAt(world)
		if hover != s.hoverConn && s.hoverConn != nil {
			s.hoverConn.SetHovered(false)
		}
		s.hoverConn = hover
		s.tooltip = ""
		if hover != nil {
			hover.SetHovered(true)
			s.tooltip = hover.Label()
		}
	}

	switch {
	case left && !s.prevMouseLeft:
		s.onPrimaryDown(world)
	case left:
		s.onPrimaryHold(world)
	case s.prevMouseLeft:
		s.onPrimaryUp(world)
	}

	if right && !s.prevMouseRight {
		s.onSecondaryDown(world)
	}

	s.prevMouseLeft = left
	s.prevMouseRight = right
}

func (s *Session) onPrimaryDown(world Vec) {
	s.pressPos = world
	s.dragMoved = false

	// A visible control point handle wins over everything under it.
	if s.hoverConn != nil && s.hoverConn.StartPointDrag(world) {
		s.dragConn = s.hoverConn
		return
	}
	// Clicking the string itself inserts a point and drags it immediately.
	if s.hoverConn != nil {
		s.hoverConn.InsertPoint(world, true)
		s.dragConn = s.hoverConn
		return
	}
	if card := s.cardAt(world); card != nil {
		s.dragCard = card
		s.dragOffset = card.Pos().Sub(world)
	}
}

func (s *Session) onPrimaryHold(world Vec) {
	if s.dragConn != nil {
		s.dragConn.DragTo(world)
		return
	}
	if s.dragCard != nil {
		if !s.dragMoved && world.Dist(s.pressPos)*s.camZoom > cardDragThreshold {
			s.dragMoved = true
		}
		if s.dragMoved {
			pos := world.Add(s.dragOffset)
			pos = clampVec(pos, s.mgr.bounds.X-s.dragCard.Size().X, s.mgr.bounds.Y-s.dragCard.Size().Y)
			s.dragCard.MoveTo(pos)
		}
	}
}

func (s *Session) onPrimaryUp(world Vec) {
	if s.dragConn != nil {
		s.dragConn.EndPointDrag()
		s.dragConn = nil
		return
	}
	card := s.dragCard
	s.dragCard = nil
	if card == nil || s.dragMoved {
		// A drag is not a selection. Clicking empty space clears the
		// pending source.
		if card == nil {
			s.pendingSource = nil
		}
		return
	}
	// Click (no drag): the two-step connect gesture.
	switch {
	case s.pendingSource == nil:
		s.pendingSource = card
	case s.pendingSource == card:
		s.pendingSource = nil
	default:
		s.mgr.Connect(s.pendingSource, card)
		s.pendingSource = nil
	}
}

func (s *Session) onSecondaryDown(world Vec) {
	// Secondary on a handle deletes the point; on the string, the whole
	// connection; on a card, the card (cascading through its connections).
	if s.hoverConn != nil {
		if s.hoverConn.RemovePointAt(world) {
			return
		}
		s.mgr.Remove(s.hoverConn)
		s.hoverConn = nil
		return
	}
	if card := s.cardAt(world); card != nil {
		s.DeleteCard(card)
	}
}

// saveSlot stores the current board under a named slot and returns a status
// line.
func (s *Session) saveSlot(name string) string {
	store, err := OpenSlotStore(s.slotPath)
	if err != nil {
		return "slot save failed: " + err.Error()
	}
	defer store.Close()
	if err := store.Save(name, s.Snapshot()); err != nil {
		return "slot save failed: " + err.Error()
	}
	return "saved slot " + name
}

// loadSlot restores a named slot and returns a status line.
func (s *Session) loadSlot(name string) string {
	store, err := OpenSlotStore(s.slotPath)
	if err != nil {
		return "slot load failed: " + err.Error()
	}
	defer store.Close()
	doc, err := store.Load(name)
	if err != nil {
		return "slot load failed: " + err.Error()
	}
	skipped := s.RestoreSnapshot(doc)
	return fmt.Sprintf("loaded slot %s (%d skipped)", name, len(skipped))
}

// Snapshot captures the full board as a document.
func (s *Session) Snapshot() Document {
	doc := Document{Connections: s.mgr.Records()}
	for _, c := range s.cards {
		doc.Cards = append(doc.Cards, CardRecord{
			ID:    c.ID(),
			Title: c.Title,
			Pos:   c.Pos(),
			Size:  c.Size(),
		})
	}
	return doc
}

// RestoreSnapshot replaces the board contents with the document's. Returns
// the skip reports for connections whose endpoints did not resolve.
func (s *Session) RestoreSnapshot(doc Document) []string {
	// Teardown: drop all live state, then rebuild.
	for _, c := range s.cards {
		s.mgr.RemoveEntity(c.ID())
	}
	s.cards = nil
	s.pendingSource = nil
	s.hoverConn = nil
	s.dragConn = nil
	s.dragCard = nil

	for _, rec := range doc.Cards {
		c := newCardWithID(s.bus, rec.ID, rec.Title, rec.Pos, rec.Size)
		s.cards = append(s.cards, c)
		s.mgr.AddEntity(c)
	}
	_, skipped := s.mgr.Restore(doc.Connections)
	return skipped
}

// Layout implements ebiten.Game.
func (s *Session) Layout(_, _ int) (int, int) {
	return s.width, s.height
}
