package autoplay

import (
	"fmt"

	"github.com/talgya/hexboard/internal/geom"
	"github.com/talgya/hexboard/internal/world"
)

// Actions a decision can take.
const (
	ActionNone    = "none"
	ActionClaim   = "claim"   // Place a city on a free corner
	ActionUpgrade = "upgrade" // Turn one of the owner's cities into a building
)

// Policy bounds how much each owner builds.
type Policy struct {
	Owners       []string
	MaxHoldings  int // Corners an owner may hold in total
	MaxBuildings int
}

// DefaultPolicy returns the policy used by the autoplay command.
func DefaultPolicy() Policy {
	return Policy{
		Owners:       []string{"red", "blue", "orange", "white"},
		MaxHoldings:  3,
		MaxBuildings: 2,
	}
}

// Decision is the move chosen for one owner in one cycle.
type Decision struct {
	Action    string     `json:"action"`
	Owner     string     `json:"owner"`
	Position  geom.Point `json:"position"`
	Rationale string     `json:"rationale"`
}

// Decide picks the owner's next move. Claims come first, best ranked site
// that does not touch another structure; once the owner holds enough
// corners its most productive city is upgraded.
func Decide(p Policy, snap *Snapshot, owner string) *Decision {
	st := Triage(&snap.Board)[owner]
	holdings, buildings := 0, 0
	if st != nil {
		holdings = len(st.Holdings)
		buildings = st.Buildings
	}

	if holdings < p.MaxHoldings {
		taken := occupied(&snap.Board)
		// Adjacent corners are one edge apart; allow for rounding.
		minGap := edgeLength(&snap.Board) * 1.01
		for _, site := range snap.Sites {
			if crowded(site.Position, taken, minGap) {
				continue
			}
			return &Decision{
				Action:    ActionClaim,
				Owner:     owner,
				Position:  site.Position,
				Rationale: fmt.Sprintf("best free site: %d pips over %d materials", site.Pips, site.Materials),
			}
		}
	}

	if st != nil && buildings < p.MaxBuildings {
		for _, h := range st.Holdings {
			if h.Tier == world.TierCity {
				return &Decision{
					Action:    ActionUpgrade,
					Owner:     owner,
					Position:  h.Position,
					Rationale: fmt.Sprintf("upgrade city on %d pips", h.Pips),
				}
			}
		}
	}

	return &Decision{Action: ActionNone, Owner: owner, Rationale: "nothing left to build"}
}

func crowded(p geom.Point, taken []geom.Point, minGap float64) bool {
	for _, q := range taken {
		if p.Distance(q) <= minGap {
			return true
		}
	}
	return false
}
