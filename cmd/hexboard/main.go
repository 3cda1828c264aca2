// Command hexboard serves an editable hex resource board over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hexboard/internal/api"
	"github.com/talgya/hexboard/internal/config"
	"github.com/talgya/hexboard/internal/engine"
	"github.com/talgya/hexboard/internal/entropy"
	"github.com/talgya/hexboard/internal/persistence"
	"github.com/talgya/hexboard/internal/world"
)

func main() {
	configPath := flag.String("config", "hexboard.yaml", "YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, logCloser := cfg.NewLogger()
	defer logCloser.Close()
	slog.SetDefault(logger)

	session := uuid.NewString()
	slog.Info("hexboard starting", "session", session, "config", *configPath)

	// ── Board ─────────────────────────────────────────────────────────
	editor, err := engine.NewEditorFromConfig(cfg.GenConfig())
	if err != nil {
		slog.Error("failed to generate board", "error", err)
		os.Exit(1)
	}
	if cfg.Board.Scatter {
		editor.Scatter(cfg.Board.Seed)
		for m, c := range world.MaterialCounts(editor.Board) {
			slog.Info("material", "type", m, "count", c)
		}
		// Scatter events belong to setup, not to the session journal.
		editor.DrainEvents()
	}

	// ── Journal ───────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.DBPath != "" {
		if err := ensureDataDir(cfg.DBPath); err != nil {
			slog.Error("failed to create data directory", "error", err)
			os.Exit(1)
		}
		db, err = persistence.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("journal opened", "path", cfg.DBPath)
	} else {
		slog.Warn("db_path empty, roll history disabled")
	}

	// ── Dice ──────────────────────────────────────────────────────────
	dice := entropy.NewClient(cfg.Server.RandomOrgKey)
	if dice.Enabled() {
		slog.Info("random.org dice enabled")
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Server.AdminKey == "" {
		slog.Warn("HEXBOARD_ADMIN_KEY not set, admin POST endpoints disabled")
	}

	apiServer := &api.Server{
		Editor:        editor,
		DB:            db,
		Dice:          dice,
		Session:       session,
		Port:          cfg.Server.Port,
		AdminKey:      cfg.Server.AdminKey,
		MutationLimit: cfg.Server.MutationLimit,
		CORSOrigins:   cfg.Server.CORSOrigins,
		TrustProxy:    cfg.Server.TrustProxy,
	}
	if err := apiServer.Init(); err != nil {
		slog.Error("failed to init API", "error", err)
		os.Exit(1)
	}
	srv := apiServer.Start()

	fmt.Printf("\nBoard ready: %d tiles, %d corners.\n", editor.Board.TileCount(), len(editor.Board.Vertices()))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Server.Port)
	fmt.Println("Serving... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx, srv); err != nil {
		slog.Error("shutdown failed", "error", err)
	}

	fmt.Println("Board server stopped.")
}

// ensureDataDir creates the directory holding the journal file.
func ensureDataDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("data dir %s: %w", dir, err)
	}
	return nil
}
