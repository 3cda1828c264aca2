package autoplay

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/talgya/hexboard/internal/geom"
)

const maxRecords = 50

// TurnRecord captures what happened in a single cycle.
type TurnRecord struct {
	Turn     int        `json:"turn"`
	Owner    string     `json:"owner"`
	Action   string     `json:"action"`
	Position geom.Point `json:"position"`
	Dice     int        `json:"dice"`
	Cards    int        `json:"cards"` // Cards the roll dealt to all owners
	Revision uint64     `json:"revision"`
}

// Memory keeps recent turns across restarts so owners keep rotating.
type Memory struct {
	Path    string       `json:"-"`
	Turns   int          `json:"turns"`
	Records []TurnRecord `json:"records"`
}

// LoadMemory reads the memory file from disk. Returns empty memory if not found.
func LoadMemory(path string) *Memory {
	mem := &Memory{Path: path}
	if path == "" {
		return mem
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mem
	}
	if err := json.Unmarshal(data, mem); err != nil {
		slog.Warn("autoplay memory corrupted, starting fresh", "error", err)
		return &Memory{Path: path}
	}
	return mem
}

// Save writes the memory to disk. A memory without a path lives in RAM only.
func (m *Memory) Save() {
	if m.Path == "" {
		return
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Error("failed to marshal autoplay memory", "error", err)
		return
	}
	if err := os.WriteFile(m.Path, data, 0644); err != nil {
		slog.Error("failed to write autoplay memory", "error", err)
	}
}

// NextOwner returns whose turn it is.
func (m *Memory) NextOwner(owners []string) string {
	if len(owners) == 0 {
		return ""
	}
	return owners[m.Turns%len(owners)]
}

// Record adds a turn record, trimming to maxRecords.
func (m *Memory) Record(r TurnRecord) {
	m.Turns++
	r.Turn = m.Turns
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}
