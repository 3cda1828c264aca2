// Package engine owns the board for one editing session and applies user
// intent to it: painting, numbering, structure placement and yield tallies.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/hexboard/internal/geom"
	"github.com/talgya/hexboard/internal/spatial"
	"github.com/talgya/hexboard/internal/world"
)

// Event is a notable change to the board.
type Event struct {
	Revision    uint64 `json:"revision" db:"revision"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "paint", "number", "structure"
}

// Outcome describes what a structure toggle did.
type Outcome uint8

const (
	OutcomePlaced   Outcome = iota // Empty corner, structure placed
	OutcomeRemoved                 // Same owner clicked again, structure removed
	OutcomeReplaced                // Other owner's structure removed, new one placed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePlaced:
		return "placed"
	case OutcomeRemoved:
		return "removed"
	case OutcomeReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(b []byte) error {
	for _, c := range []Outcome{OutcomePlaced, OutcomeRemoved, OutcomeReplaced} {
		if c.String() == string(b) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// Toggle reports the effect of ToggleStructure.
type Toggle struct {
	Vertex    geom.Point        `json:"vertex"`
	Outcome   Outcome           `json:"outcome"`
	Structure *world.Structure  `json:"structure,omitempty"` // Placed structure
	Removed   []world.Structure `json:"removed,omitempty"`   // One entry per tile copy
	Tiles     []int             `json:"tiles,omitempty"`     // Tiles holding the new structure
}

// Editor holds the board and its spatial index and is the only writer of
// board state. It is not safe for concurrent use: callers serialize actions.
type Editor struct {
	Board  *world.Board
	Index  *spatial.Index
	Events []Event // Recent events (trimmed to MaxEvents)

	// MaxEvents bounds the in-memory event log. Zero means unbounded.
	MaxEvents int

	// OnChange runs after every effective mutation, e.g. to request a redraw.
	OnChange func(rev uint64)
}

// NewEditor creates an Editor over a generated board and builds its index.
func NewEditor(b *world.Board) *Editor {
	return &Editor{
		Board:     b,
		Index:     spatial.Build(b),
		MaxEvents: 1000,
	}
}

// NewEditorFromConfig generates a board and wraps it in an Editor.
func NewEditorFromConfig(cfg world.GenConfig) (*Editor, error) {
	b, err := world.Generate(cfg)
	if err != nil {
		return nil, fmt.Errorf("generate board: %w", err)
	}
	slog.Info("board generated",
		"rows", b.Layout.Rows(),
		"tiles", b.TileCount(),
		"corners", len(b.Vertices()),
		"radius", cfg.Radius,
	)
	return NewEditor(b), nil
}

// Revision returns the current board revision.
func (e *Editor) Revision() uint64 {
	return e.Board.Revision
}

// FindTileAt returns the tile under p, or nil.
func (e *Editor) FindTileAt(p geom.Point) *world.Tile {
	return e.Index.FindTileAt(p)
}

// FindVertexAt returns the corner whose zone contains p.
func (e *Editor) FindVertexAt(p geom.Point) (geom.Point, bool) {
	return e.Index.FindVertexAt(p)
}

// PaintTile sets the material and fill color of the tile under p.
// Returns nil when no tile is under p; the board is then untouched.
func (e *Editor) PaintTile(p geom.Point, material world.Material, color string) *world.Tile {
	t := e.Index.FindTileAt(p)
	if t == nil {
		return nil
	}
	e.Board.SetMaterial(t, material, color)
	e.record("paint", fmt.Sprintf("tile %d painted %s", t.ID, t.Material))
	return t
}

// SetTileNumber assigns a production number to a tile.
// Returns world.ErrInvalidNumber (board unchanged) if n is outside 2..12.
func (e *Editor) SetTileNumber(t *world.Tile, n int) error {
	if err := e.Board.SetNumber(t, n); err != nil {
		return err
	}
	e.record("number", fmt.Sprintf("tile %d numbered %d", t.ID, n))
	return nil
}

// SetNumberAt resolves the tile under p and numbers it. The number is
// validated first, so an invalid number fails even off the board.
// A nil tile with a nil error means nothing was under p.
func (e *Editor) SetNumberAt(p geom.Point, n int) (*world.Tile, error) {
	if err := world.ValidateNumber(n); err != nil {
		return nil, err
	}
	t := e.Index.FindTileAt(p)
	if t == nil {
		return nil, nil
	}
	if err := e.SetTileNumber(t, n); err != nil {
		return nil, err
	}
	return t, nil
}

// ToggleStructure places, removes or replaces the structure at the corner
// under p. Returns nil when no corner zone contains p.
//
// A structure of the same owner at the corner (either tier) is removed and
// nothing is placed. A structure of another owner is removed and the new one
// placed in its stead.
func (e *Editor) ToggleStructure(p geom.Point, tier world.Tier, owner string) *Toggle {
	v, ok := e.Index.FindVertexAt(p)
	if !ok {
		return nil
	}

	res := &Toggle{Vertex: v, Outcome: OutcomePlaced}

	if existing, occupied := e.Board.StructureAt(v); occupied {
		res.Removed = e.Board.DetachStructuresAt(v)
		if existing.Owner == owner {
			res.Outcome = OutcomeRemoved
			e.record("structure", fmt.Sprintf("%s %s removed at (%.2f, %.2f)", owner, existing.Tier, v.X, v.Y))
			return res
		}
		res.Outcome = OutcomeReplaced
	}

	s := world.Structure{
		ID:       uuid.New(),
		Position: v,
		Tier:     tier,
		Owner:    owner,
	}
	for _, t := range e.Board.AttachStructure(s) {
		res.Tiles = append(res.Tiles, t.ID)
	}
	res.Structure = &s

	e.record("structure", fmt.Sprintf("%s %s %s at (%.2f, %.2f)", owner, tier, res.Outcome, v.X, v.Y))
	return res
}

// Scatter repaints and renumbers the whole board from seed.
// Structures are left in place.
func (e *Editor) Scatter(seed int64) {
	world.Scatter(e.Board, seed)
	counts := world.MaterialCounts(e.Board)
	slog.Info("board scattered", "seed", seed, "materials", len(counts))
	e.record("paint", fmt.Sprintf("board scattered with seed %d", seed))
}

// record appends an event and fires OnChange.
func (e *Editor) record(category, desc string) {
	rev := e.Board.Revision
	e.Events = append(e.Events, Event{
		Revision:    rev,
		Description: desc,
		Category:    category,
	})
	if e.MaxEvents > 0 && len(e.Events) > e.MaxEvents {
		e.Events = e.Events[len(e.Events)-e.MaxEvents:]
	}
	slog.Debug("board changed", "rev", rev, "category", category, "event", desc)
	if e.OnChange != nil {
		e.OnChange(rev)
	}
}

// DrainEvents returns the events recorded since the last drain and clears the log.
func (e *Editor) DrainEvents() []Event {
	out := e.Events
	e.Events = nil
	return out
}
