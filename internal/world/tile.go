// Package world provides the board model: tiles, their corners and the
// structures placed on them.
package world

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/hexboard/internal/geom"
)

// Material is a free-form terrain tag painted onto a tile.
type Material string

// Standard materials of a resource board.
const (
	MaterialNone   Material = "none"
	MaterialWood   Material = "wood"
	MaterialBrick  Material = "brick"
	MaterialWool   Material = "wool"
	MaterialGrain  Material = "grain"
	MaterialOre    Material = "ore"
	MaterialDesert Material = "desert"
)

// DefaultFillColor is the placeholder color of an unpainted tile.
const DefaultFillColor = "gray"

// MaterialColors maps standard materials to their fill colors.
var MaterialColors = map[Material]string{
	MaterialWood:   "#2e7d32",
	MaterialBrick:  "#b5532c",
	MaterialWool:   "#9ccc65",
	MaterialGrain:  "#f2c94c",
	MaterialOre:    "#78818c",
	MaterialDesert: "#e8d8a8",
}

// Production number bounds (two six-sided dice).
const (
	MinNumber = 2
	MaxNumber = 12
)

// Tier is the category of a structure.
type Tier uint8

const (
	TierCity     Tier = iota // Yields one card per matching tile
	TierBuilding             // Yields two
)

// Weight returns the number of cards a structure of this tier earns per tile.
func (t Tier) Weight() int {
	if t == TierBuilding {
		return 2
	}
	return 1
}

func (t Tier) String() string {
	switch t {
	case TierCity:
		return "city"
	case TierBuilding:
		return "building"
	default:
		return "unknown"
	}
}

// ParseTier converts "city" or "building" (plural accepted) into a Tier.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "city", "cities":
		return TierCity, nil
	case "building", "buildings":
		return TierBuilding, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
}

// Structure is a city or building standing on a corner.
// Every tile touching the corner holds its own copy; copies share an ID.
type Structure struct {
	ID       uuid.UUID  `json:"id"`
	Position geom.Point `json:"position"`
	Tier     Tier       `json:"tier"`
	Owner    string     `json:"owner"` // Color standing in for a player
}

// Tile is one hexagonal cell of the board.
type Tile struct {
	ID  int `json:"id"`
	Row int `json:"row"`
	Col int `json:"col"`

	// Corners, computed once at generation.
	Polygon [6]geom.Point `json:"polygon"`
	Center  geom.Point    `json:"center"` // Number label anchor

	Material  Material `json:"material"`
	FillColor string   `json:"fill_color"`
	Number    int      `json:"number,omitempty"` // 0 = unset, otherwise 2..12

	Cities    []Structure `json:"cities"`
	Buildings []Structure `json:"buildings"`
}

// HasNumber reports whether a production number is assigned.
func (t *Tile) HasNumber() bool {
	return t.Number != 0
}

// HasCorner reports whether v is one of the tile's corners.
func (t *Tile) HasCorner(v geom.Point) bool {
	for _, c := range t.Polygon {
		if geom.Same(c, v) {
			return true
		}
	}
	return false
}

// Structures returns cities followed by buildings.
func (t *Tile) Structures() []Structure {
	out := make([]Structure, 0, len(t.Cities)+len(t.Buildings))
	out = append(out, t.Cities...)
	return append(out, t.Buildings...)
}

func (t *Tile) tierList(tier Tier) *[]Structure {
	if tier == TierBuilding {
		return &t.Buildings
	}
	return &t.Cities
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
