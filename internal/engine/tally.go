// Yield tallies: which owner collects which materials on a dice roll.
package engine

import (
	"sort"

	"github.com/talgya/hexboard/internal/world"
)

// Yield maps owner color to material to card count.
type Yield map[string]map[world.Material]int

// ComputeYield tallies the cards every owner receives when dice is rolled.
// Each tile numbered dice credits its material once per city and twice per
// building standing on its corners. A corner shared by several matching
// tiles produces from each of them.
func (e *Editor) ComputeYield(dice int) Yield {
	return ComputeYield(e.Board, dice)
}

// ComputeYield is the board-level tally behind Editor.ComputeYield.
// A dice value outside 2..12 matches no tile.
func ComputeYield(b *world.Board, dice int) Yield {
	y := make(Yield)
	if world.ValidateNumber(dice) != nil {
		return y
	}
	for _, t := range world.NumberedTiles(b, dice) {
		for _, s := range t.Cities {
			y.credit(s.Owner, t.Material, s.Tier.Weight())
		}
		for _, s := range t.Buildings {
			y.credit(s.Owner, t.Material, s.Tier.Weight())
		}
	}
	return y
}

func (y Yield) credit(owner string, m world.Material, n int) {
	cards, ok := y[owner]
	if !ok {
		cards = make(map[world.Material]int)
		y[owner] = cards
	}
	cards[m] += n
}

// Owners returns the owners in the tally, sorted.
func (y Yield) Owners() []string {
	owners := make([]string, 0, len(y))
	for o := range y {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return owners
}

// Total returns the number of cards an owner receives.
func (y Yield) Total(owner string) int {
	n := 0
	for _, c := range y[owner] {
		n += c
	}
	return n
}

// Row is one owner/material line of a tally.
type Row struct {
	Owner    string         `json:"owner" db:"owner"`
	Material world.Material `json:"material" db:"material"`
	Count    int            `json:"count" db:"count"`
}

// Rows flattens the tally in owner then material order.
func (y Yield) Rows() []Row {
	var rows []Row
	for _, o := range y.Owners() {
		mats := make([]string, 0, len(y[o]))
		for m := range y[o] {
			mats = append(mats, string(m))
		}
		sort.Strings(mats)
		for _, m := range mats {
			rows = append(rows, Row{Owner: o, Material: world.Material(m), Count: y[o][world.Material(m)]})
		}
	}
	return rows
}
