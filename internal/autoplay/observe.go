// Package autoplay drives a board server from the outside: it observes the
// board over the API, decides where each owner builds next, and acts through
// the mutation endpoints before rolling the dice.
package autoplay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/hexboard/internal/world"
)

// Snapshot holds all data collected during an observation cycle.
type Snapshot struct {
	Status BoardStatus  `json:"status"`
	Board  world.Board  `json:"board"`
	Sites  []world.Site `json:"sites"`
}

// BoardStatus mirrors GET /api/v1/status.
type BoardStatus struct {
	Name     string `json:"name"`
	Session  string `json:"session"`
	Revision uint64 `json:"revision"`
	Rows     int    `json:"rows"`
	Tiles    int    `json:"tiles"`
	Corners  int    `json:"corners"`
	Numbered int    `json:"numbered"`
	Journal  bool   `json:"journal"`
}

// Observer fetches board state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches status, board and ranked sites.
func (o *Observer) Observe() (*Snapshot, error) {
	snap := &Snapshot{}

	if err := o.fetchJSON("/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON("/api/v1/board", &snap.Board); err != nil {
		return nil, fmt.Errorf("fetch board: %w", err)
	}
	if err := o.fetchJSON("/api/v1/sites?limit=50", &snap.Sites); err != nil {
		return nil, fmt.Errorf("fetch sites: %w", err)
	}

	return snap, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(path string, target any) error {
	resp, err := o.HTTPClient.Get(o.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
