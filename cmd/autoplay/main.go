// Command autoplay plays a hexboard server on its own: each cycle one owner
// claims or upgrades a corner, then the dice are rolled.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/talgya/hexboard/internal/autoplay"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	apiURL := envOrDefault("HEXBOARD_API_URL", "http://localhost:8080")
	memoryPath := envOrDefault("AUTOPLAY_MEMORY", "autoplay_memory.json")
	intervalSec := envIntOrDefault("AUTOPLAY_INTERVAL", 10)
	maxTurns := envIntOrDefault("AUTOPLAY_TURNS", 0)

	policy := autoplay.DefaultPolicy()
	if v := os.Getenv("AUTOPLAY_OWNERS"); v != "" {
		policy.Owners = strings.Split(v, ",")
	}

	interval := time.Duration(intervalSec) * time.Second
	slog.Info("autoplay starting",
		"api_url", apiURL,
		"interval", interval,
		"owners", strings.Join(policy.Owners, ","),
	)

	player := autoplay.NewPlayer(apiURL, policy, autoplay.LoadMemory(memoryPath))

	slog.Info("waiting for hexboard API...")
	waitForAPI(apiURL)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for turns := 0; maxTurns == 0 || turns < maxTurns; turns++ {
		if _, err := player.Cycle(); err != nil {
			slog.Error("cycle failed", "error", err)
		}
		select {
		case <-ticker.C:
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			fmt.Println("Autoplay stopped.")
			return
		}
	}
	fmt.Println("Autoplay finished.")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Exits after 5 minutes if the API never becomes ready.
func waitForAPI(apiURL string) {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		resp, err := http.Get(apiURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("hexboard API is ready")
				return
			}
		}
		if time.Now().After(deadline) {
			slog.Error("hexboard API did not become ready within 5 minutes")
			os.Exit(1)
		}
		slog.Info("hexboard not ready, retrying...", "backoff", backoff)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
