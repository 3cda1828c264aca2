// Board generation: lays out the hexagon silhouette, and optionally scatters
// materials with layered simplex noise and deals production numbers.
package world

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hexboard/internal/geom"
)

// GenConfig holds board generation parameters.
type GenConfig struct {
	MinRowWidth int     // Tiles in the first and last row
	MaxRowWidth int     // Tiles in the middle row
	Radius      float64 // Hexagon circumradius in surface units
}

// DefaultGenConfig returns the classic 3..6 silhouette (30 tiles).
func DefaultGenConfig() GenConfig {
	return GenConfig{
		MinRowWidth: 3,
		MaxRowWidth: 6,
		Radius:      50,
	}
}

// Validate checks that the config describes a drawable board.
func (c GenConfig) Validate() error {
	if c.MinRowWidth < 1 {
		return fmt.Errorf("%w: min row width %d", ErrInvalidLayout, c.MinRowWidth)
	}
	if c.MaxRowWidth < c.MinRowWidth {
		return fmt.Errorf("%w: max row width %d below min %d", ErrInvalidLayout, c.MaxRowWidth, c.MinRowWidth)
	}
	if c.Radius <= 0 || math.IsNaN(c.Radius) || math.IsInf(c.Radius, 0) {
		return fmt.Errorf("%w: radius %v", ErrInvalidLayout, c.Radius)
	}
	return nil
}

// Layout returns the geometry layout for this config.
func (c GenConfig) Layout() geom.Layout {
	return geom.Layout{
		MinRowWidth: c.MinRowWidth,
		MaxRowWidth: c.MaxRowWidth,
		Radius:      c.Radius,
	}
}

// Generate creates a blank board: every tile unpainted, unnumbered, empty.
func Generate(cfg GenConfig) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout := cfg.Layout()

	var tiles []*Tile
	for row, anchors := range layout.Anchors() {
		for col, anchor := range anchors {
			poly := geom.HexVertices(anchor, cfg.Radius)
			tiles = append(tiles, &Tile{
				ID:        len(tiles),
				Row:       row,
				Col:       col,
				Polygon:   poly,
				Center:    geom.Center(poly),
				Material:  MaterialNone,
				FillColor: DefaultFillColor,
			})
		}
	}

	return NewBoard(layout, tiles), nil
}

// numberPool is the standard production number distribution.
var numberPool = []int{2, 3, 3, 4, 4, 5, 5, 6, 6, 8, 8, 9, 9, 10, 10, 11, 11, 12}

// Scatter paints every tile with a noise-derived material and deals
// production numbers from the standard pool. Deserts get no number.
// The same seed always yields the same board.
func Scatter(b *Board, seed int64) {
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed + 300))

	// Two independent layers, sampled at tile centers.
	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)

	scale := b.Layout.Radius * 2
	if scale <= 0 {
		scale = 1
	}

	for _, t := range b.Tiles {
		x := t.Center.X / scale
		y := t.Center.Y / scale
		elev := octaveNoise(elevNoise, x, y, 3, 0.9, 0.5)
		rain := octaveNoise(rainNoise, x, y, 2, 0.7, 0.5)

		m := deriveMaterial(elev, rain)
		b.SetMaterial(t, m, MaterialColors[m])
	}

	pool := make([]int, len(numberPool))
	copy(pool, numberPool)
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	next := 0
	for _, t := range b.Tiles {
		if t.Material == MaterialDesert {
			b.ClearNumber(t)
			continue
		}
		// Pool values are always in range.
		_ = b.SetNumber(t, pool[next%len(pool)])
		next++
	}
}

// deriveMaterial picks a material from environmental noise.
func deriveMaterial(elev, rain float64) Material {
	switch {
	case elev > 0.68:
		return MaterialOre
	case elev < 0.28 && rain < 0.35:
		return MaterialDesert
	case rain > 0.6:
		return MaterialWood
	case elev > 0.55:
		return MaterialBrick
	case rain > 0.45:
		return MaterialWool
	default:
		return MaterialGrain
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// MaterialCounts returns a summary of material distribution.
func MaterialCounts(b *Board) map[Material]int {
	counts := make(map[Material]int)
	for _, t := range b.Tiles {
		counts[t.Material]++
	}
	return counts
}

// NumberedTiles returns the tiles carrying production number n.
func NumberedTiles(b *Board, n int) []*Tile {
	var out []*Tile
	for _, t := range b.Tiles {
		if t.Number == n {
			out = append(out, t)
		}
	}
	return out
}
