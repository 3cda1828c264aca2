package autoplay

import (
	"fmt"
	"log/slog"
)

// Player runs observe, decide, act cycles against one server.
type Player struct {
	Policy   Policy
	Observer *Observer
	Actor    *Actor
	Memory   *Memory
}

// NewPlayer creates a player for the API at baseURL.
func NewPlayer(baseURL string, p Policy, mem *Memory) *Player {
	return &Player{
		Policy:   p,
		Observer: NewObserver(baseURL),
		Actor:    NewActor(baseURL),
		Memory:   mem,
	}
}

// Cycle plays one turn: the owner whose turn it is builds, then the dice
// are rolled. Returns the record of the turn.
func (pl *Player) Cycle() (*TurnRecord, error) {
	snap, err := pl.Observer.Observe()
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	if snap.Status.Numbered == 0 {
		return nil, fmt.Errorf("board has no numbered tiles; scatter it first")
	}

	owner := pl.Memory.NextOwner(pl.Policy.Owners)
	d := Decide(pl.Policy, snap, owner)
	slog.Info("decision made", "owner", owner, "action", d.Action, "rationale", d.Rationale)

	if err := pl.Actor.Apply(d); err != nil {
		return nil, fmt.Errorf("%s %s: %w", owner, d.Action, err)
	}

	roll, err := pl.Actor.Roll()
	if err != nil {
		return nil, fmt.Errorf("roll: %w", err)
	}
	cards := 0
	for _, o := range roll.Yield.Owners() {
		cards += roll.Yield.Total(o)
	}

	rec := TurnRecord{
		Owner:    owner,
		Action:   d.Action,
		Position: d.Position,
		Dice:     roll.Dice,
		Cards:    cards,
		Revision: roll.Revision,
	}
	pl.Memory.Record(rec)
	pl.Memory.Save()
	rec.Turn = pl.Memory.Turns

	slog.Info("turn complete", "turn", rec.Turn, "owner", owner, "dice", roll.Dice, "cards", cards)
	return &rec, nil
}
