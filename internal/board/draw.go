package board

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

var (
	corkColor       = color.RGBA{R: 82, G: 58, B: 36, A: 255}
	boardEdgeColor  = color.RGBA{R: 46, G: 32, B: 20, A: 255}
	cardFillColor   = color.RGBA{R: 236, G: 226, B: 198, A: 255}
	cardEdgeColor   = color.RGBA{R: 90, G: 78, B: 54, A: 255}
	cardPinColor    = color.RGBA{R: 190, G: 40, B: 40, A: 255}
	selectEdgeColor = color.RGBA{R: 250, G: 210, B: 80, A: 255}
	handleFillColor = color.RGBA{R: 245, G: 245, B: 245, A: 255}
	handleEdgeColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

// Draw implements ebiten.Game: cork background, strings underneath, cards
// on top, HUD last.
func (s *Session) Draw(screen *ebiten.Image) {
	s.mgr.ConsumeRedraw()
	screen.Fill(boardEdgeColor)

	// Board rectangle in screen space.
	bx, by := s.toScreen(Vec{0, 0})
	bw := float32(s.mgr.bounds.X * s.camZoom)
	bh := float32(s.mgr.bounds.Y * s.camZoom)
	vector.FillRect(screen, bx, by, bw, bh, corkColor, false)

	for _, c := range s.mgr.conns {
		s.drawConnection(screen, c)
	}
	for _, c := range s.cards {
		s.drawCard(screen, c)
	}
	s.drawHUD(screen)
}

// toScreen applies the camera transform.
func (s *Session) toScreen(p Vec) (float32, float32) {
	x := (p.X-s.camX)*s.camZoom + float64(s.width)/2
	y := (p.Y-s.camY)*s.camZoom + float64(s.height)/2
	return float32(x), float32(y)
}

func (s *Session) drawConnection(screen *ebiten.Image, c *Connection) {
	poly := c.Polyline()
	if len(poly) < 2 {
		return
	}
	width := float32(s.tuning.StrokeWidth * s.camZoom)
	if width < 1 {
		width = 1
	}
	col := c.Color
	if c.Hovered() {
		col = color.RGBA{R: col.R, G: col.G, B: col.B, A: 255}
		width += 1
	}
	for i := 0; i+1 < len(poly); i++ {
		x0, y0 := s.toScreen(poly[i])
		x1, y1 := s.toScreen(poly[i+1])
		vector.StrokeLine(screen, x0, y0, x1, y1, width, col, true)
	}
	if !c.ShowPoints() {
		return
	}
	r := float32(pointHandleRadius * s.camZoom * 0.5)
	if r < 3 {
		r = 3
	}
	for _, cp := range c.ControlPoints() {
		hx, hy := s.toScreen(cp.Pos)
		vector.FillCircle(screen, hx, hy, r, handleFillColor, true)
		vector.StrokeCircle(screen, hx, hy, r, 1.5, handleEdgeColor, true)
	}
}

func (s *Session) drawCard(screen *ebiten.Image, c *Card) {
	x, y := s.toScreen(c.Pos())
	w := float32(c.Size().X * s.camZoom)
	h := float32(c.Size().Y * s.camZoom)
	vector.FillRect(screen, x, y, w, h, cardFillColor, false)
	edge := cardEdgeColor
	edgeW := float32(1.5)
	if c == s.pendingSource {
		edge = selectEdgeColor
		edgeW = 3
	}
	vector.StrokeRect(screen, x, y, w, h, edgeW, edge, false)
	// Pin at the top centre.
	vector.FillCircle(screen, x+w/2, y+4, 4, cardPinColor, true)
	ebitenutil.DebugPrintAt(screen, c.Title, int(x)+6, int(y)+8)
}

func (s *Session) drawHUD(screen *ebiten.Image) {
	line := "click card: select | click 2nd card: connect | drag string: reshape | right-click: delete"
	ebitenutil.DebugPrintAt(screen, line, 8, s.height-36)
	if s.pendingSource != nil {
		ebitenutil.DebugPrintAt(screen, "connecting from: "+s.pendingSource.Title, 8, s.height-52)
	}
	if s.tooltip != "" {
		mx, my := ebiten.CursorPosition()
		vector.FillRect(screen, float32(mx)+12, float32(my)-8, float32(8*len(s.tooltip)+8), 18,
			color.RGBA{R: 20, G: 20, B: 20, A: 220}, false)
		ebitenutil.DebugPrintAt(screen, s.tooltip, mx+16, my-6)
	}
	if s.status != "" {
		ebitenutil.DebugPrintAt(screen, s.status, 8, s.height-20)
	}
}
