// Package api provides the HTTP surface of the board editor.
// GET endpoints are read-only queries; POST endpoints mutate the board and
// are rate limited per client. All editor calls are serialized so every
// action completes before the next one starts.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dustin/go-humanize"

	"github.com/talgya/hexboard/internal/engine"
	"github.com/talgya/hexboard/internal/entropy"
	"github.com/talgya/hexboard/internal/geom"
	"github.com/talgya/hexboard/internal/persistence"
	"github.com/talgya/hexboard/internal/render"
	"github.com/talgya/hexboard/internal/world"
)

const yieldCacheTTL = 10 * time.Minute

// Server serves one editing session over HTTP.
type Server struct {
	Editor        *engine.Editor
	DB            *persistence.DB // Optional journal. Nil disables roll history.
	Dice          *entropy.Client // Nil rolls with crypto/rand
	Session       string          // Journal key for this process
	Port          int
	AdminKey      string // Bearer token for scatter. Empty = scatter disabled.
	MutationLimit int    // Mutations per client per minute. Zero = unlimited.
	CORSOrigins   []string
	TrustProxy    bool // Key rate limits by X-Forwarded-For. Only behind a trusted proxy.

	mu      sync.Mutex // Serializes every editor call
	hub     *Hub
	yields  *ristretto.Cache[string, engine.Yield]
	started time.Time
}

// Init wires the server into the editor. Call once before Handler or Start.
func (s *Server) Init() error {
	cache, err := ristretto.NewCache[string, engine.Yield](&ristretto.Config[string, engine.Yield]{
		NumCounters: 1000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return fmt.Errorf("yield cache: %w", err)
	}
	s.yields = cache
	s.hub = NewHub()
	s.started = time.Now()

	// Re-render request: tell every connected renderer about the new revision.
	s.Editor.OnChange = func(rev uint64) {
		s.hub.Broadcast(StreamMessage{Type: "changed", Revision: rev})
	}
	return nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	limiter := NewRateLimiter(s.MutationLimit, time.Minute)
	limiter.TrustProxy = s.TrustProxy

	mux := http.NewServeMux()

	// Queries.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/board", s.handleBoard)
	mux.HandleFunc("GET /api/v1/board.png", s.handleBoardPNG)
	mux.HandleFunc("GET /api/v1/hit", s.handleHit)
	mux.HandleFunc("GET /api/v1/yield", s.handleYield)
	mux.HandleFunc("GET /api/v1/sites", s.handleSites)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/rolls", s.handleRolls)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	// Mutations.
	mux.HandleFunc("POST /api/v1/paint", RateLimitMiddleware(limiter, s.handlePaint))
	mux.HandleFunc("POST /api/v1/number", RateLimitMiddleware(limiter, s.handleNumber))
	mux.HandleFunc("POST /api/v1/structure", RateLimitMiddleware(limiter, s.handleStructure))
	mux.HandleFunc("POST /api/v1/roll", RateLimitMiddleware(limiter, s.handleRoll))
	mux.HandleFunc("POST /api/v1/scatter", s.adminOnly(s.handleScatter))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start begins serving in a goroutine and returns the server for shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "journal", s.DB != nil, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// Shutdown stops the HTTP server and flushes pending journal events.
func (s *Server) Shutdown(ctx context.Context, srv *http.Server) error {
	err := srv.Shutdown(ctx)
	s.mu.Lock()
	s.flushEvents()
	s.mu.Unlock()
	if s.yields != nil {
		s.yields.Close()
	}
	return err
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, o := range origins {
		allowedOrigins[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no HEXBOARD_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// ── Queries ───────────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b := s.Editor.Board
	status := map[string]any{
		"name":     "hexboard",
		"session":  s.Session,
		"revision": b.Revision,
		"rows":     b.Layout.Rows(),
		"tiles":    b.TileCount(),
		"corners":  len(b.Vertices()),
		"numbered": countNumbered(b),
	}
	s.mu.Unlock()

	status["started"] = humanize.Time(s.started)
	status["journal"] = s.DB != nil
	status["true_random"] = s.Dice.Enabled()
	status["stream_clients"] = s.hub.ClientCount()
	writeJSON(w, status)
}

func countNumbered(b *world.Board) int {
	n := 0
	for _, t := range b.Tiles {
		if t.HasNumber() {
			n++
		}
	}
	return n
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.Editor.Board)
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.RenderPNG(w, s.Editor.Board); err != nil {
		slog.Error("board render failed", "error", err)
	}
}

// hitResponse describes what lies under a point. Nil fields mean nothing.
type hitResponse struct {
	Point     geom.Point       `json:"point"`
	Tile      *world.Tile      `json:"tile"`
	Vertex    *geom.Point      `json:"vertex"`
	Structure *world.Structure `json:"structure"`
}

func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	p, err := queryPoint(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := hitResponse{Point: p, Tile: s.Editor.FindTileAt(p)}
	if v, ok := s.Editor.FindVertexAt(p); ok {
		resp.Vertex = &v
		if st, occupied := s.Editor.Board.StructureAt(v); occupied {
			resp.Structure = &st
		}
	}
	writeJSON(w, resp)
}

func (s *Server) handleYield(w http.ResponseWriter, r *http.Request) {
	dice, err := strconv.Atoi(r.URL.Query().Get("dice"))
	if err != nil {
		http.Error(w, "dice must be an integer", http.StatusBadRequest)
		return
	}
	if err := world.ValidateNumber(dice); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	rev := s.Editor.Revision()
	y, cached := s.cachedYield(rev, dice)
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"dice":     dice,
		"revision": rev,
		"yield":    y,
		"cached":   cached,
	})
}

// cachedYield returns the tally for dice at rev, computing it on a miss.
// Keys carry the revision, so a mutation never serves a stale tally.
// Called with s.mu held.
func (s *Server) cachedYield(rev uint64, dice int) (engine.Yield, bool) {
	key := fmt.Sprintf("%d|%d", rev, dice)
	if y, ok := s.yields.Get(key); ok {
		return y, true
	}
	y := s.Editor.ComputeYield(dice)
	cost := int64(1 + len(y))
	s.yields.SetWithTTL(key, y, cost, yieldCacheTTL)
	s.yields.Wait()
	return y, false
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)

	s.mu.Lock()
	sites := world.RankSites(s.Editor.Board)
	s.mu.Unlock()

	if limit > 0 && len(sites) > limit {
		sites = sites[:limit]
	}
	writeJSON(w, sites)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	s.mu.Lock()
	s.flushEvents()
	pending := append([]engine.Event(nil), s.Editor.Events...)
	s.mu.Unlock()

	if s.DB == nil {
		// Newest first, matching the journal.
		for i, j := 0, len(pending)-1; i < j; i, j = i+1, j-1 {
			pending[i], pending[j] = pending[j], pending[i]
		}
		if limit > 0 && len(pending) > limit {
			pending = pending[:limit]
		}
		writeJSON(w, pending)
		return
	}

	events, err := s.DB.RecentEvents(s.Session, limit)
	if err != nil {
		slog.Error("load events failed", "error", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleRolls(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "journal not available", http.StatusServiceUnavailable)
		return
	}
	rolls, err := s.DB.RecentRolls(s.Session, queryInt(r, "limit", 20))
	if err != nil {
		slog.Error("load rolls failed", "error", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	totals, err := s.DB.Totals(s.Session)
	if err != nil {
		slog.Error("load totals failed", "error", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"rolls":  rolls,
		"totals": totals,
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rev := s.Editor.Revision()
	s.mu.Unlock()
	s.hub.Serve(w, r, StreamMessage{Type: "hello", Revision: rev})
}

// ── Mutations ─────────────────────────────────────────────────────────

type paintRequest struct {
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Material world.Material `json:"material"`
	Color    string         `json:"color"`
}

func (s *Server) handlePaint(w http.ResponseWriter, r *http.Request) {
	var req paintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Color == "" {
		req.Color = world.MaterialColors[req.Material]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.Editor.PaintTile(geom.Pt(req.X, req.Y), req.Material, req.Color)
	s.flushEvents()
	writeJSON(w, map[string]any{
		"hit":      t != nil,
		"tile":     t,
		"revision": s.Editor.Revision(),
	})
}

type numberRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	TileID *int    `json:"tile_id,omitempty"` // Takes precedence over x/y
	Number int     `json:"number"`
}

func (s *Server) handleNumber(w http.ResponseWriter, r *http.Request) {
	var req numberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		t   *world.Tile
		err error
	)
	if req.TileID != nil {
		t = s.Editor.Board.Tile(*req.TileID)
		if t == nil {
			http.Error(w, "tile not found", http.StatusNotFound)
			return
		}
		err = s.Editor.SetTileNumber(t, req.Number)
	} else {
		t, err = s.Editor.SetNumberAt(geom.Pt(req.X, req.Y), req.Number)
	}
	if errors.Is(err, world.ErrInvalidNumber) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.flushEvents()
	writeJSON(w, map[string]any{
		"hit":      t != nil,
		"tile":     t,
		"revision": s.Editor.Revision(),
	})
}

type structureRequest struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Tier  string  `json:"tier"`
	Owner string  `json:"owner"`
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	var req structureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tier, err := world.ParseTier(req.Tier)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Owner == "" {
		http.Error(w, "owner is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.Editor.ToggleStructure(geom.Pt(req.X, req.Y), tier, req.Owner)
	s.flushEvents()
	writeJSON(w, map[string]any{
		"hit":      res != nil,
		"toggle":   res,
		"revision": s.Editor.Revision(),
	})
}

type rollRequest struct {
	Dice int `json:"dice"` // Zero rolls two dice
}

func (s *Server) handleRoll(w http.ResponseWriter, r *http.Request) {
	var req rollRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Dice == 0 {
		req.Dice = s.Dice.Roll()
	}
	if err := world.ValidateNumber(req.Dice); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rev := s.Editor.Revision()
	y, _ := s.cachedYield(rev, req.Dice)
	resp := map[string]any{
		"dice":     req.Dice,
		"revision": rev,
		"yield":    y,
	}

	if s.DB != nil {
		roll, err := s.DB.RecordRoll(s.Session, req.Dice, rev, y)
		if err != nil {
			slog.Error("record roll failed", "error", err)
			http.Error(w, "journal unavailable", http.StatusInternalServerError)
			return
		}
		resp["roll_id"] = roll.ID
	}
	slog.Info("dice rolled", "dice", req.Dice, "owners", len(y))
	writeJSON(w, resp)
}

func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed int64 `json:"seed"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Seed == 0 {
		req.Seed = s.Dice.Seed()
	}
	s.Editor.Scatter(req.Seed)
	s.flushEvents()
	writeJSON(w, map[string]any{
		"seed":      req.Seed,
		"revision":  s.Editor.Revision(),
		"materials": world.MaterialCounts(s.Editor.Board),
	})
}

// flushEvents moves pending editor events into the journal.
// Without a journal events stay in the editor's bounded log.
// Called with s.mu held.
func (s *Server) flushEvents() {
	if s.DB == nil || len(s.Editor.Events) == 0 {
		return
	}
	events := s.Editor.DrainEvents()
	if err := s.DB.SaveEvents(s.Session, events); err != nil {
		slog.Error("journal events failed", "error", err, "events", len(events))
	}
}

// ── Helpers ───────────────────────────────────────────────────────────

func queryPoint(r *http.Request) (geom.Point, error) {
	q := r.URL.Query()
	x, err := strconv.ParseFloat(q.Get("x"), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("x must be a number")
	}
	y, err := strconv.ParseFloat(q.Get("y"), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("y must be a number")
	}
	return geom.Pt(x, y), nil
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
