// Site scoring: ranks free corners by how much they would produce.
package world

import (
	"sort"

	"github.com/talgya/hexboard/internal/geom"
)

// Site is a corner with its production desirability.
type Site struct {
	Position  geom.Point `json:"position"`
	Score     float64    `json:"score"`
	Pips      int        `json:"pips"`      // Sum of dice combinations over adjacent tiles
	Materials int        `json:"materials"` // Distinct materials touched
	Tiles     []int      `json:"tiles"`
}

// Pips returns the number of two-dice combinations that roll n (0 when unset).
func Pips(n int) int {
	if n < MinNumber || n > MaxNumber {
		return 0
	}
	d := n - 7
	if d < 0 {
		d = -d
	}
	return 6 - d
}

// RankSites scores every unoccupied corner and returns them best first.
// Corners with no numbered neighbour are omitted.
func RankSites(b *Board) []Site {
	var sites []Site
	for _, v := range b.Vertices() {
		if _, occupied := b.StructureAt(v); occupied {
			continue
		}
		s := siteScore(b, v)
		if s.Pips > 0 {
			sites = append(sites, s)
		}
	}

	sort.SliceStable(sites, func(i, j int) bool {
		if sites[i].Score != sites[j].Score {
			return sites[i].Score > sites[j].Score
		}
		if sites[i].Position.Y != sites[j].Position.Y {
			return sites[i].Position.Y < sites[j].Position.Y
		}
		return sites[i].Position.X < sites[j].Position.X
	})
	return sites
}

// siteScore prefers high pip totals, with a bonus for material diversity.
func siteScore(b *Board, v geom.Point) Site {
	site := Site{Position: v}
	materials := make(map[Material]bool)
	for _, t := range b.TilesAt(v) {
		site.Tiles = append(site.Tiles, t.ID)
		p := Pips(t.Number)
		if p == 0 || t.Material == MaterialNone || t.Material == MaterialDesert {
			continue
		}
		site.Pips += p
		materials[t.Material] = true
	}
	site.Materials = len(materials)
	site.Score = float64(site.Pips) + float64(site.Materials)*0.5
	return site
}
