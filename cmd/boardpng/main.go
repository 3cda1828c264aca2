// Command boardpng renders a generated, scattered board to a PNG file.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexboard/internal/config"
	"github.com/talgya/hexboard/internal/engine"
	"github.com/talgya/hexboard/internal/render"
	"github.com/talgya/hexboard/internal/world"
)

func main() {
	configPath := flag.String("config", "hexboard.yaml", "YAML config file (optional)")
	out := flag.String("o", "board.png", "output file")
	seed := flag.Int64("seed", 0, "scatter seed (0 = config seed)")
	blank := flag.Bool("blank", false, "render the unpainted board")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, logCloser := cfg.NewLogger()
	defer logCloser.Close()
	slog.SetDefault(logger)

	editor, err := engine.NewEditorFromConfig(cfg.GenConfig())
	if err != nil {
		slog.Error("failed to generate board", "error", err)
		os.Exit(1)
	}

	if !*blank {
		s := *seed
		if s == 0 {
			s = cfg.Board.Seed
		}
		editor.Scatter(s)

		// Show where the strongest corners are.
		sites := world.RankSites(editor.Board)
		owners := []string{"red", "blue", "orange"}
		for i := 0; i < len(sites) && i < len(owners); i++ {
			editor.ToggleStructure(sites[i].Position, world.TierCity, owners[i])
		}
	}

	var buf bytes.Buffer
	if err := render.RenderPNG(&buf, editor.Board); err != nil {
		slog.Error("render failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0644); err != nil {
		slog.Error("write failed", "path", *out, "error", err)
		os.Exit(1)
	}

	w, h := render.Size(editor.Board)
	slog.Info("board rendered",
		"path", *out,
		"width", w,
		"height", h,
		"size", humanize.Bytes(uint64(buf.Len())),
		"revision", editor.Revision(),
	)
}
