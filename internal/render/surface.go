// Package render draws a board onto an abstract 2D surface, and provides a
// raster surface backed by an RGBA image.
package render

import (
	"strconv"

	"github.com/talgya/hexboard/internal/geom"
	"github.com/talgya/hexboard/internal/world"
)

// Surface is the drawing target: fill polygon, draw text, clear.
type Surface interface {
	Clear()
	FillPolygon(pts []geom.Point, color string)
	DrawText(text string, center geom.Point, color string)
}

// Glyph sizes for structures, in surface units.
const (
	citySize     = 7.0
	buildingSize = 9.0
)

// Draw repaints the whole board: tile fills, number labels, then structures.
func Draw(s Surface, b *world.Board) {
	s.Clear()

	for _, t := range b.Tiles {
		s.FillPolygon(t.Polygon[:], t.FillColor)
		if t.HasNumber() {
			s.DrawText(strconv.Itoa(t.Number), t.Center, "black")
		}
	}

	// Shared corners hold one copy per tile; draw each structure once.
	drawn := make(map[geom.Key]bool)
	for _, t := range b.Tiles {
		for _, st := range t.Structures() {
			k := geom.KeyOf(st.Position)
			if drawn[k] {
				continue
			}
			drawn[k] = true
			s.FillPolygon(Glyph(st), st.Owner)
		}
	}
}

// Glyph returns the outline of a structure marker centered on its corner:
// a diamond for cities and a house for buildings.
func Glyph(st world.Structure) []geom.Point {
	p := st.Position
	if st.Tier == world.TierBuilding {
		h := buildingSize
		return []geom.Point{
			{X: p.X - h, Y: p.Y + h},
			{X: p.X - h, Y: p.Y - h/3},
			{X: p.X, Y: p.Y - h},
			{X: p.X + h, Y: p.Y - h/3},
			{X: p.X + h, Y: p.Y + h},
		}
	}
	c := citySize
	return []geom.Point{
		{X: p.X, Y: p.Y - c},
		{X: p.X + c, Y: p.Y},
		{X: p.X, Y: p.Y + c},
		{X: p.X - c, Y: p.Y},
	}
}

// Size returns the surface extent needed to hold the board with a margin on
// every side.
func Size(b *world.Board) (w, h int) {
	var maxX, maxY float64
	for _, t := range b.Tiles {
		_, hi := geom.Polygon(t.Polygon[:]).BoundingBox()
		if hi.X > maxX {
			maxX = hi.X
		}
		if hi.Y > maxY {
			maxY = hi.Y
		}
	}
	return int(maxX + geom.Margin + 1), int(maxY + geom.Margin + 1)
}
