package board

import (
	"fmt"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// exportPad is the margin in board units around the exported content.
const exportPad = 60.0

// ExportPNG renders the board (cards and strings, no HUD) to a PNG file at
// 1:1 board scale, cropped to the content bounds.
func ExportPNG(path string, s *Session) error {
	if len(s.cards) == 0 && len(s.mgr.conns) == 0 {
		return fmt.Errorf("nothing to export")
	}

	minX, minY, maxX, maxY := contentBounds(s)
	minX -= exportPad
	minY -= exportPad
	maxX += exportPad
	maxY += exportPad

	dc := gg.NewContext(int(maxX-minX), int(maxY-minY))
	dc.SetRGB255(int(corkColor.R), int(corkColor.G), int(corkColor.B))
	dc.Clear()

	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    14,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	dc.SetFontFace(face)

	// Strings underneath, cards on top, same as the live renderer.
	for _, c := range s.mgr.conns {
		drawConnectionGG(dc, c, minX, minY, s.tuning.StrokeWidth)
	}
	for _, c := range s.cards {
		drawCardGG(dc, c, minX, minY)
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save png: %w", err)
	}
	return nil
}

func contentBounds(s *Session) (minX, minY, maxX, maxY float64) {
	first := true
	grow := func(p Vec) {
		if first {
			minX, minY, maxX, maxY = p.X, p.Y, p.X, p.Y
			first = false
			return
		}
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	for _, c := range s.cards {
		grow(c.Pos())
		grow(c.Pos().Add(c.Size()))
	}
	for _, c := range s.mgr.conns {
		for _, p := range c.Polyline() {
			grow(p)
		}
	}
	return minX, minY, maxX, maxY
}

func drawConnectionGG(dc *gg.Context, c *Connection, minX, minY, width float64) {
	poly := c.Polyline()
	if len(poly) < 2 {
		return
	}
	dc.SetRGBA255(int(c.Color.R), int(c.Color.G), int(c.Color.B), int(c.Color.A))
	dc.SetLineWidth(width)
	dc.MoveTo(poly[0].X-minX, poly[0].Y-minY)
	for _, p := range poly[1:] {
		dc.LineTo(p.X-minX, p.Y-minY)
	}
	dc.Stroke()
}

func drawCardGG(dc *gg.Context, c *Card, minX, minY float64) {
	x := c.Pos().X - minX
	y := c.Pos().Y - minY
	w := c.Size().X
	h := c.Size().Y

	dc.SetRGB255(int(cardFillColor.R), int(cardFillColor.G), int(cardFillColor.B))
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()
	dc.SetRGB255(int(cardEdgeColor.R), int(cardEdgeColor.G), int(cardEdgeColor.B))
	dc.SetLineWidth(1.5)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()

	dc.SetRGB255(int(cardPinColor.R), int(cardPinColor.G), int(cardPinColor.B))
	dc.DrawCircle(x+w/2, y+5, 4)
	dc.Fill()

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(c.Title, x+8, y+20, 0, 0)
}
