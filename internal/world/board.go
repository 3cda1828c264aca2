package world

import (
	"errors"
	"fmt"

	"github.com/talgya/hexboard/internal/geom"
)

var (
	// ErrInvalidNumber is returned when a production number is outside 2..12.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrInvalidLayout is returned for row widths or radius that cannot form a board.
	ErrInvalidLayout = errors.New("invalid layout")
	// ErrUnknownTier is returned when a tier name is not city or building.
	ErrUnknownTier = errors.New("unknown tier")
)

// Board holds every tile of one editing session.
type Board struct {
	Tiles    []*Tile     `json:"tiles"`
	Layout   geom.Layout `json:"-"`
	Revision uint64      `json:"revision"` // Bumped by every effective mutation

	corners map[geom.Key][]*Tile
}

// NewBoard wraps tiles and indexes their corners.
func NewBoard(layout geom.Layout, tiles []*Tile) *Board {
	b := &Board{
		Tiles:   tiles,
		Layout:  layout,
		corners: make(map[geom.Key][]*Tile),
	}
	for _, t := range tiles {
		for _, c := range t.Polygon {
			k := geom.KeyOf(c)
			if !containsTile(b.corners[k], t) {
				b.corners[k] = append(b.corners[k], t)
			}
		}
	}
	return b
}

// Tile returns the tile with the given ID, or nil.
func (b *Board) Tile(id int) *Tile {
	if id < 0 || id >= len(b.Tiles) {
		return nil
	}
	return b.Tiles[id]
}

// TileCount returns the number of tiles on the board.
func (b *Board) TileCount() int {
	return len(b.Tiles)
}

// Vertices returns every distinct corner of the board.
func (b *Board) Vertices() []geom.Point {
	seen := make(map[geom.Key]bool, len(b.corners))
	var out []geom.Point
	for _, t := range b.Tiles {
		for _, c := range t.Polygon {
			k := geom.KeyOf(c)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, c)
		}
	}
	return out
}

// TilesAt returns every tile with a corner at v, at most three.
func (b *Board) TilesAt(v geom.Point) []*Tile {
	var out []*Tile
	for _, t := range b.corners[geom.KeyOf(v)] {
		if t.HasCorner(v) {
			out = append(out, t)
		}
	}
	return out
}

// StructureAt returns the structure occupying v, if any.
func (b *Board) StructureAt(v geom.Point) (Structure, bool) {
	for _, t := range b.TilesAt(v) {
		for _, s := range t.Structures() {
			if geom.Same(s.Position, v) {
				return s, true
			}
		}
	}
	return Structure{}, false
}

// SetMaterial paints a tile.
func (b *Board) SetMaterial(t *Tile, material Material, color string) {
	if material == "" {
		material = MaterialNone
	}
	if color == "" {
		color = DefaultFillColor
	}
	t.Material = material
	t.FillColor = color
	b.Revision++
}

// SetNumber assigns a production number. The board is unchanged on error.
func (b *Board) SetNumber(t *Tile, n int) error {
	if err := ValidateNumber(n); err != nil {
		return err
	}
	t.Number = n
	b.Revision++
	return nil
}

// ClearNumber removes a tile's production number.
func (b *Board) ClearNumber(t *Tile) {
	if t.Number == 0 {
		return
	}
	t.Number = 0
	b.Revision++
}

// ValidateNumber checks that n is a valid production number.
func ValidateNumber(n int) error {
	if n < MinNumber || n > MaxNumber {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidNumber, n, MinNumber, MaxNumber)
	}
	return nil
}

// AttachStructure pushes a copy of s into the tier list of every tile with a
// corner at s.Position. Returns the tiles that received it.
func (b *Board) AttachStructure(s Structure) []*Tile {
	tiles := b.TilesAt(s.Position)
	for _, t := range tiles {
		list := t.tierList(s.Tier)
		*list = append(*list, s)
	}
	if len(tiles) > 0 {
		b.Revision++
	}
	return tiles
}

// DetachStructuresAt removes every structure at v, from every tile and in
// either tier, and returns what was removed (one entry per tile copy).
func (b *Board) DetachStructuresAt(v geom.Point) []Structure {
	var removed []Structure
	for _, t := range b.Tiles {
		for _, tier := range []Tier{TierCity, TierBuilding} {
			list := t.tierList(tier)
			if !hasStructureAt(*list, v) {
				continue
			}
			kept := (*list)[:0]
			for _, s := range *list {
				if geom.Same(s.Position, v) {
					removed = append(removed, s)
					continue
				}
				kept = append(kept, s)
			}
			*list = kept
		}
	}
	if len(removed) > 0 {
		b.Revision++
	}
	return removed
}

func hasStructureAt(list []Structure, v geom.Point) bool {
	for _, s := range list {
		if geom.Same(s.Position, v) {
			return true
		}
	}
	return false
}

func containsTile(list []*Tile, t *Tile) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

// String returns a summary of the board.
func (b *Board) String() string {
	return fmt.Sprintf("Board(rows=%d, tiles=%d, rev=%d)", b.Layout.Rows(), b.TileCount(), b.Revision)
}
