// Package spatial translates surface points into board entities: the tile
// under a point and the corner whose proximity zone contains it.
package spatial

import (
	"github.com/talgya/hexboard/internal/geom"
	"github.com/talgya/hexboard/internal/world"
)

// ZoneRadius is the radius of the clickable zone around every corner.
const ZoneRadius = 10.0

type tileShape struct {
	tile *world.Tile
	poly geom.Polygon
}

// Index holds hit-testable shapes derived from a board.
// The vertex set never changes after generation, so an Index is built once;
// occupancy lives in the board, not here.
type Index struct {
	tiles []tileShape
	zones []geom.Circle // One per tile corner; shared corners repeat
}

// Build derives the index from a generated board.
func Build(b *world.Board) *Index {
	idx := &Index{
		tiles: make([]tileShape, 0, len(b.Tiles)),
		zones: make([]geom.Circle, 0, len(b.Tiles)*6),
	}
	for _, t := range b.Tiles {
		idx.tiles = append(idx.tiles, tileShape{tile: t, poly: geom.Polygon(t.Polygon[:])})
		for _, c := range t.Polygon {
			idx.zones = append(idx.zones, geom.Circle{Center: c, Radius: ZoneRadius})
		}
	}
	return idx
}

// FindTileAt returns the tile whose polygon contains p, or nil.
func (idx *Index) FindTileAt(p geom.Point) *world.Tile {
	for _, s := range idx.tiles {
		if s.poly.Contains(p) {
			return s.tile
		}
	}
	return nil
}

// FindVertexAt returns the corner whose zone contains p.
// Duplicate zones are harmless: all matches at one corner are identical.
func (idx *Index) FindVertexAt(p geom.Point) (geom.Point, bool) {
	for _, z := range idx.zones {
		if z.Contains(p) {
			return z.Center, true
		}
	}
	return geom.Point{}, false
}

// ZoneCount returns the number of proximity zones, duplicates included.
func (idx *Index) ZoneCount() int {
	return len(idx.zones)
}
