// Package entropy supplies dice for production rolls: true randomness from
// random.org when an API key is configured, crypto/rand otherwise.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"
)

const (
	randomOrgURL = "https://api.random.org/json-rpc/4/invoke"
	poolLow      = 10
	poolBatch    = 100
)

// Client hands out die faces from a pool filled by random.org.
// A nil *Client is valid and rolls with crypto/rand.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client

	mu   sync.Mutex
	pool []int
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: randomOrgURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Die returns one face in 1..6.
func (c *Client) Die() int {
	if !c.Enabled() {
		return cryptoDie()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) < poolLow {
		if err := c.refill(); err != nil {
			slog.Debug("random.org refill failed", "error", err)
		}
	}
	if len(c.pool) == 0 {
		return cryptoDie()
	}

	face := c.pool[0]
	c.pool = c.pool[1:]
	return face
}

// Roll returns the sum of two dice, a production number in 2..12.
func (c *Client) Roll() int {
	return c.Die() + c.Die()
}

// Seed returns a random non-zero seed for board scattering.
func (c *Client) Seed() int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return time.Now().UnixNano()
	}
	return n.Int64() + 1
}

func (c *Client) refill() error {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateIntegers",
		"params": map[string]any{
			"apiKey":      c.apiKey,
			"n":           poolBatch,
			"min":         1,
			"max":         6,
			"replacement": true,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	resp, err := c.client.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var result struct {
		Result struct {
			Random struct {
				Data []int `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if result.Error != nil {
		return fmt.Errorf("api: %s", result.Error.Message)
	}

	added := 0
	for _, face := range result.Result.Random.Data {
		// Never trust the wire with a die face.
		if face >= 1 && face <= 6 {
			c.pool = append(c.pool, face)
			added++
		}
	}
	slog.Debug("random.org pool refilled", "count", added)
	return nil
}

func cryptoDie() int {
	n, err := rand.Int(rand.Reader, big.NewInt(6))
	if err != nil {
		// crypto/rand does not fail on supported platforms.
		return int(time.Now().UnixNano()%6) + 1
	}
	return int(n.Int64()) + 1
}
