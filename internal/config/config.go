// Package config loads runtime settings: defaults, then an optional YAML
// file, then HEXBOARD_* environment variables (a .env file is honoured).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/talgya/hexboard/internal/world"
)

// Config holds every runtime setting of the board server.
type Config struct {
	Board  BoardConfig  `yaml:"board"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`

	DBPath string `yaml:"db_path"` // Empty disables the journal
}

// BoardConfig describes the generated board.
type BoardConfig struct {
	MinRowWidth int     `yaml:"min_row_width"`
	MaxRowWidth int     `yaml:"max_row_width"`
	Radius      float64 `yaml:"radius"`
	Seed        int64   `yaml:"seed"`    // Scatter seed when Scatter is set
	Scatter     bool    `yaml:"scatter"` // Pre-paint the board with noise materials
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port          int      `yaml:"port"`
	MutationLimit int      `yaml:"mutation_limit"` // Mutations per client per minute
	CORSOrigins   []string `yaml:"cors_origins"`
	TrustProxy    bool     `yaml:"trust_proxy"` // Honour X-Forwarded-For for rate limits
	AdminKey      string   `yaml:"-"` // HEXBOARD_ADMIN_KEY only; never read from the file
	RandomOrgKey  string   `yaml:"-"` // RANDOM_ORG_API_KEY; empty rolls with crypto/rand
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	File       string `yaml:"file"`  // Empty logs to stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the built-in configuration.
func Default() Config {
	gen := world.DefaultGenConfig()
	return Config{
		Board: BoardConfig{
			MinRowWidth: gen.MinRowWidth,
			MaxRowWidth: gen.MaxRowWidth,
			Radius:      gen.Radius,
			Seed:        42,
		},
		Server: ServerConfig{
			Port:          8080,
			MutationLimit: 600,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
		},
		DBPath: "data/hexboard.db",
	}
}

// GenConfig returns the board generation parameters.
func (c Config) GenConfig() world.GenConfig {
	return world.GenConfig{
		MinRowWidth: c.Board.MinRowWidth,
		MaxRowWidth: c.Board.MaxRowWidth,
		Radius:      c.Board.Radius,
	}
}

// Load builds the configuration. A missing file at path is not an error;
// an empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	// .env is optional; variables already set win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf(".env: %w", err)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.GenConfig().Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{"HEXBOARD_MIN_ROW_WIDTH", &c.Board.MinRowWidth},
		{"HEXBOARD_MAX_ROW_WIDTH", &c.Board.MaxRowWidth},
		{"HEXBOARD_PORT", &c.Server.Port},
		{"HEXBOARD_MUTATION_LIMIT", &c.Server.MutationLimit},
	}
	for _, e := range ints {
		if v := os.Getenv(e.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	if v := os.Getenv("HEXBOARD_RADIUS"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("HEXBOARD_RADIUS: %w", err)
		}
		c.Board.Radius = r
	}
	if v := os.Getenv("HEXBOARD_SEED"); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("HEXBOARD_SEED: %w", err)
		}
		c.Board.Seed = s
	}
	if v := os.Getenv("HEXBOARD_SCATTER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HEXBOARD_SCATTER: %w", err)
		}
		c.Board.Scatter = b
	}
	if v := os.Getenv("HEXBOARD_TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HEXBOARD_TRUST_PROXY: %w", err)
		}
		c.Server.TrustProxy = b
	}
	if v, ok := os.LookupEnv("HEXBOARD_DB_PATH"); ok {
		c.DBPath = v
	}
	if v := os.Getenv("HEXBOARD_ADMIN_KEY"); v != "" {
		c.Server.AdminKey = v
	}
	if v := os.Getenv("RANDOM_ORG_API_KEY"); v != "" {
		c.Server.RandomOrgKey = v
	}
	if v := os.Getenv("HEXBOARD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv("HEXBOARD_LOG_FILE"); ok {
		c.Log.File = v
	}
	if v := os.Getenv("HEXBOARD_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, origin)
			}
		}
	}
	return nil
}
