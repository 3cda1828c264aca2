package autoplay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/hexboard/internal/engine"
	"github.com/talgya/hexboard/internal/geom"
	"github.com/talgya/hexboard/internal/world"
)

// ToggleResult mirrors the response of POST /api/v1/structure.
type ToggleResult struct {
	Hit      bool           `json:"hit"`
	Toggle   *engine.Toggle `json:"toggle"`
	Revision uint64         `json:"revision"`
}

// RollResult mirrors the response of POST /api/v1/roll.
type RollResult struct {
	Dice     int          `json:"dice"`
	Revision uint64       `json:"revision"`
	Yield    engine.Yield `json:"yield"`
	RollID   string       `json:"roll_id,omitempty"`
}

// Actor executes moves via the mutation API.
type Actor struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL.
func NewActor(baseURL string) *Actor {
	return &Actor{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Toggle clicks a structure of the given tier onto the corner at p.
func (a *Actor) Toggle(p geom.Point, tier world.Tier, owner string) (*ToggleResult, error) {
	var res ToggleResult
	err := a.post("/api/v1/structure", map[string]any{
		"x":     p.X,
		"y":     p.Y,
		"tier":  tier.String(),
		"owner": owner,
	}, &res)
	if err != nil {
		return nil, err
	}
	if !res.Hit {
		return nil, fmt.Errorf("no corner at (%.2f, %.2f)", p.X, p.Y)
	}
	return &res, nil
}

// Roll asks the server to roll the dice and tally the cards.
func (a *Actor) Roll() (*RollResult, error) {
	var res RollResult
	if err := a.post("/api/v1/roll", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Apply carries out a decision: a claim is one toggle, an upgrade removes
// the city and places a building on the same corner.
//
// An upgrade is two requests and is not atomic. Another client can take the
// corner between them; the building then replaces that structure and Apply
// reports the upgrade as failed.
func (a *Actor) Apply(d *Decision) error {
	switch d.Action {
	case ActionClaim:
		_, err := a.Toggle(d.Position, world.TierCity, d.Owner)
		return err
	case ActionUpgrade:
		res, err := a.Toggle(d.Position, world.TierCity, d.Owner)
		if err != nil {
			return err
		}
		if res.Toggle == nil || res.Toggle.Outcome != engine.OutcomeRemoved {
			return fmt.Errorf("upgrade at (%.2f, %.2f): city not removed", d.Position.X, d.Position.Y)
		}
		res, err = a.Toggle(d.Position, world.TierBuilding, d.Owner)
		if err != nil {
			return err
		}
		if res.Toggle == nil || res.Toggle.Outcome != engine.OutcomePlaced {
			return fmt.Errorf("upgrade at (%.2f, %.2f): corner changed hands mid-upgrade", d.Position.X, d.Position.Y)
		}
		return nil
	default:
		return nil
	}
}

func (a *Actor) post(path string, payload any, target any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest("POST", a.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POST %s failed (%d): %s", path, resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
