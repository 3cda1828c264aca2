package autoplay

import (
	"sort"

	"github.com/talgya/hexboard/internal/geom"
	"github.com/talgya/hexboard/internal/world"
)

// Holding is one structure of an owner with the pips its corner touches.
type Holding struct {
	Position geom.Point
	Tier     world.Tier
	Pips     int
}

// Standing summarizes one owner's position on the board.
type Standing struct {
	Owner     string
	Cities    int
	Buildings int
	Holdings  []Holding // Best corner first
	// Expected cards per 36 rolls: pips weighted by tier.
	Production int
}

// Triage derives per-owner standings from a snapshot's board.
// Runs before deciding; deterministic and free.
func Triage(b *world.Board) map[string]*Standing {
	// Every structure is copied onto each tile at its corner; fold the copies.
	type corner struct {
		s    world.Structure
		pips int
	}
	corners := make(map[geom.Key]*corner)
	for _, t := range b.Tiles {
		for _, s := range t.Structures() {
			k := geom.KeyOf(s.Position)
			c := corners[k]
			if c == nil {
				c = &corner{s: s}
				corners[k] = c
			}
			c.pips += world.Pips(t.Number)
		}
	}

	standings := make(map[string]*Standing)
	for _, c := range corners {
		st := standings[c.s.Owner]
		if st == nil {
			st = &Standing{Owner: c.s.Owner}
			standings[c.s.Owner] = st
		}
		switch c.s.Tier {
		case world.TierCity:
			st.Cities++
		case world.TierBuilding:
			st.Buildings++
		}
		st.Holdings = append(st.Holdings, Holding{Position: c.s.Position, Tier: c.s.Tier, Pips: c.pips})
		st.Production += c.pips * c.s.Tier.Weight()
	}

	for _, st := range standings {
		sort.Slice(st.Holdings, func(i, j int) bool {
			hi, hj := st.Holdings[i], st.Holdings[j]
			if hi.Pips != hj.Pips {
				return hi.Pips > hj.Pips
			}
			if hi.Position.Y != hj.Position.Y {
				return hi.Position.Y < hj.Position.Y
			}
			return hi.Position.X < hj.Position.X
		})
	}
	return standings
}

// occupied lists every corner holding a structure.
func occupied(b *world.Board) []geom.Point {
	seen := make(map[geom.Key]bool)
	var out []geom.Point
	for _, t := range b.Tiles {
		for _, s := range t.Structures() {
			k := geom.KeyOf(s.Position)
			if !seen[k] {
				seen[k] = true
				out = append(out, s.Position)
			}
		}
	}
	return out
}

// edgeLength is the distance between adjacent corners of the board's tiles.
func edgeLength(b *world.Board) float64 {
	if len(b.Tiles) == 0 {
		return 0
	}
	p := b.Tiles[0].Polygon
	return p[0].Distance(p[1])
}
