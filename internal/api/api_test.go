package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/hexboard/internal/engine"
	"github.com/talgya/hexboard/internal/persistence"
	"github.com/talgya/hexboard/internal/world"
)

func newTestServer(t *testing.T, journal bool) *Server {
	t.Helper()
	e, err := engine.NewEditorFromConfig(world.DefaultGenConfig())
	if err != nil {
		t.Fatalf("NewEditorFromConfig: %v", err)
	}
	s := &Server{Editor: e, Session: "test", AdminKey: "secret"}
	if journal {
		db, err := persistence.Open(filepath.Join(t.TempDir(), "journal.db"))
		if err != nil {
			t.Fatalf("persistence.Open: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		s.DB = db
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { s.yields.Close() })
	return s
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

// setupTile0 paints tile 0 wood, numbers it 8 and puts a red city on its
// corner shared with tiles 3 and 4.
func setupTile0(t *testing.T, h http.Handler) {
	t.Helper()
	decode(t, do(t, h, "POST", "/api/v1/paint", paintRequest{X: 189.9, Y: 60, Material: world.MaterialWood}), &map[string]any{})
	decode(t, do(t, h, "POST", "/api/v1/number", map[string]any{"tile_id": 0, "number": 8}), &map[string]any{})
	decode(t, do(t, h, "POST", "/api/v1/structure", structureRequest{X: 191, Y: 111, Tier: "city", Owner: "red"}), &map[string]any{})
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, false)
	var got map[string]any
	decode(t, do(t, s.Handler(), "GET", "/api/v1/status", nil), &got)

	if got["tiles"] != float64(30) {
		t.Errorf("tiles = %v, want 30", got["tiles"])
	}
	if got["corners"] != float64(80) {
		t.Errorf("corners = %v, want 80", got["corners"])
	}
	if got["rows"] != float64(7) {
		t.Errorf("rows = %v, want 7", got["rows"])
	}
	if got["journal"] != false {
		t.Errorf("journal = %v, want false", got["journal"])
	}
}

func TestHit(t *testing.T) {
	s := newTestServer(t, false)
	h := s.Handler()

	var got hitResponse
	decode(t, do(t, h, "GET", "/api/v1/hit?x=191&y=111", nil), &got)
	if got.Vertex == nil || got.Vertex.X != 189.9 || got.Vertex.Y != 110 {
		t.Errorf("vertex = %v, want (189.9, 110)", got.Vertex)
	}
	if got.Structure != nil {
		t.Errorf("structure on empty corner = %v", got.Structure)
	}

	got = hitResponse{}
	decode(t, do(t, h, "GET", "/api/v1/hit?x=0&y=0", nil), &got)
	if got.Tile != nil || got.Vertex != nil {
		t.Errorf("off-board hit = %+v, want nothing", got)
	}

	if rec := do(t, h, "GET", "/api/v1/hit?x=abc&y=1", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad x status = %d, want 400", rec.Code)
	}
}

func TestMutationsAndYield(t *testing.T) {
	s := newTestServer(t, false)
	h := s.Handler()
	setupTile0(t, h)

	if rev := s.Editor.Revision(); rev != 3 {
		t.Errorf("revision = %d, want 3", rev)
	}

	var first struct {
		Yield  map[string]map[string]int `json:"yield"`
		Cached bool                      `json:"cached"`
	}
	decode(t, do(t, h, "GET", "/api/v1/yield?dice=8", nil), &first)
	if first.Yield["red"]["wood"] != 1 || len(first.Yield) != 1 {
		t.Errorf("yield = %v, want red: wood 1", first.Yield)
	}
	if first.Cached {
		t.Error("first yield reported cached")
	}

	var second struct {
		Cached bool `json:"cached"`
	}
	decode(t, do(t, h, "GET", "/api/v1/yield?dice=8", nil), &second)
	if !second.Cached {
		t.Error("second yield at same revision not cached")
	}

	// Upgrading to a building bumps the revision, so the tally is recomputed.
	decode(t, do(t, h, "POST", "/api/v1/structure", structureRequest{X: 191, Y: 111, Tier: "building", Owner: "blue"}), &map[string]any{})
	var third struct {
		Yield  map[string]map[string]int `json:"yield"`
		Cached bool                      `json:"cached"`
	}
	decode(t, do(t, h, "GET", "/api/v1/yield?dice=8", nil), &third)
	if third.Cached {
		t.Error("yield after mutation served from cache")
	}
	if third.Yield["blue"]["wood"] != 2 || third.Yield["red"] != nil {
		t.Errorf("yield = %v, want blue: wood 2", third.Yield)
	}
}

func TestNumberValidation(t *testing.T) {
	s := newTestServer(t, false)
	h := s.Handler()

	for _, n := range []int{0, 1, 13} {
		rec := do(t, h, "POST", "/api/v1/number", numberRequest{X: 189.9, Y: 60, Number: n})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("number %d: status %d, want 400", n, rec.Code)
		}
	}
	if rev := s.Editor.Revision(); rev != 0 {
		t.Errorf("revision after rejected numbers = %d, want 0", rev)
	}

	if rec := do(t, h, "POST", "/api/v1/number", map[string]any{"tile_id": 99, "number": 5}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown tile status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, "GET", "/api/v1/yield?dice=13", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("yield dice 13 status = %d, want 400", rec.Code)
	}
}

func TestNoOpMutations(t *testing.T) {
	s := newTestServer(t, false)
	h := s.Handler()

	var paint map[string]any
	decode(t, do(t, h, "POST", "/api/v1/paint", paintRequest{X: 0, Y: 0, Material: world.MaterialOre}), &paint)
	if paint["hit"] != false {
		t.Errorf("off-board paint hit = %v", paint["hit"])
	}

	var toggle map[string]any
	decode(t, do(t, h, "POST", "/api/v1/structure", structureRequest{X: 0, Y: 0, Tier: "city", Owner: "red"}), &toggle)
	if toggle["hit"] != false {
		t.Errorf("off-board toggle hit = %v", toggle["hit"])
	}

	if rev := s.Editor.Revision(); rev != 0 {
		t.Errorf("revision after no-ops = %d, want 0", rev)
	}
}

func TestStructureValidation(t *testing.T) {
	s := newTestServer(t, false)
	h := s.Handler()

	if rec := do(t, h, "POST", "/api/v1/structure", structureRequest{X: 191, Y: 111, Tier: "castle", Owner: "red"}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown tier status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, "POST", "/api/v1/structure", structureRequest{X: 191, Y: 111, Tier: "city"}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing owner status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, "POST", "/api/v1/paint", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("empty paint body status = %d, want 400", rec.Code)
	}
}

func TestRollJournal(t *testing.T) {
	s := newTestServer(t, true)
	h := s.Handler()
	setupTile0(t, h)

	var roll map[string]any
	decode(t, do(t, h, "POST", "/api/v1/roll", rollRequest{Dice: 8}), &roll)
	if roll["roll_id"] == nil {
		t.Error("roll not journaled")
	}
	decode(t, do(t, h, "POST", "/api/v1/roll", rollRequest{Dice: 8}), &roll)

	var hist struct {
		Rolls  []persistence.Roll        `json:"rolls"`
		Totals map[string]map[string]int `json:"totals"`
	}
	decode(t, do(t, h, "GET", "/api/v1/rolls", nil), &hist)
	if len(hist.Rolls) != 2 {
		t.Fatalf("rolls = %d, want 2", len(hist.Rolls))
	}
	if hist.Totals["red"]["wood"] != 2 {
		t.Errorf("totals = %v, want red: wood 2", hist.Totals)
	}

	// Mutations were flushed to the journal.
	var events []engine.Event
	decode(t, do(t, h, "GET", "/api/v1/events", nil), &events)
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].Category != "structure" {
		t.Errorf("newest event = %+v, want structure", events[0])
	}
	if len(s.Editor.Events) != 0 {
		t.Errorf("editor still holds %d events", len(s.Editor.Events))
	}
}

func TestRandomRoll(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest("POST", "/api/v1/roll", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var roll struct {
		Dice int `json:"dice"`
	}
	decode(t, rec, &roll)
	if roll.Dice < world.MinNumber || roll.Dice > world.MaxNumber {
		t.Errorf("random dice = %d, want 2..12", roll.Dice)
	}
}

func TestRollsWithoutJournal(t *testing.T) {
	s := newTestServer(t, false)
	if rec := do(t, s.Handler(), "GET", "/api/v1/rolls", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestEventsWithoutJournal(t *testing.T) {
	s := newTestServer(t, false)
	h := s.Handler()
	setupTile0(t, h)

	var events []engine.Event
	decode(t, do(t, h, "GET", "/api/v1/events?limit=2", nil), &events)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Revision != 3 || events[1].Revision != 2 {
		t.Errorf("events not newest first: %+v", events)
	}
}

func TestScatterRequiresAdmin(t *testing.T) {
	s := newTestServer(t, false)
	h := s.Handler()

	if rec := do(t, h, "POST", "/api/v1/scatter", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest("POST", "/api/v1/scatter", strings.NewReader(`{"seed": 7}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var got struct {
		Seed      int64          `json:"seed"`
		Materials map[string]int `json:"materials"`
	}
	decode(t, rec, &got)
	if got.Seed != 7 {
		t.Errorf("seed = %d, want 7", got.Seed)
	}
	total := 0
	for _, n := range got.Materials {
		total += n
	}
	if total != 30 {
		t.Errorf("scattered tiles = %d, want 30", total)
	}

	s.AdminKey = ""
	if rec := do(t, s.Handler(), "POST", "/api/v1/scatter", nil); rec.Code != http.StatusForbidden {
		t.Errorf("disabled admin status = %d, want 403", rec.Code)
	}
}

func TestMutationRateLimit(t *testing.T) {
	s := newTestServer(t, false)
	s.MutationLimit = 2
	h := s.Handler()

	for i := 0; i < 2; i++ {
		if rec := do(t, h, "POST", "/api/v1/paint", paintRequest{X: 189.9, Y: 60}); rec.Code != http.StatusOK {
			t.Fatalf("paint %d status = %d", i, rec.Code)
		}
	}
	rec := do(t, h, "POST", "/api/v1/paint", paintRequest{X: 189.9, Y: 60})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third paint status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// Queries are never limited.
	if rec := do(t, h, "GET", "/api/v1/board", nil); rec.Code != http.StatusOK {
		t.Errorf("board status = %d", rec.Code)
	}
}

func TestBoardPNG(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s.Handler(), "GET", "/api/v1/board.png", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, false)
	s.CORSOrigins = []string{"https://board.example"}
	h := s.Handler()

	req := httptest.NewRequest("OPTIONS", "/api/v1/paint", nil)
	req.Header.Set("Origin", "https://board.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://board.example" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest("GET", "/api/v1/status", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin allowed: %q", got)
	}
}

func TestStream(t *testing.T) {
	s := newTestServer(t, false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello StreamMessage
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "hello" || hello.Revision != 0 {
		t.Errorf("hello = %+v", hello)
	}
	if n := s.hub.ClientCount(); n != 1 {
		t.Errorf("clients = %d, want 1", n)
	}

	body := strings.NewReader(`{"x": 189.9, "y": 60, "material": "ore"}`)
	resp, err := http.Post(srv.URL+"/api/v1/paint", "application/json", body)
	if err != nil {
		t.Fatalf("paint: %v", err)
	}
	resp.Body.Close()

	var changed StreamMessage
	if err := conn.ReadJSON(&changed); err != nil {
		t.Fatalf("read change: %v", err)
	}
	if changed.Type != "changed" || changed.Revision != 1 {
		t.Errorf("change = %+v, want changed at revision 1", changed)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") {
		t.Fatal("first request denied")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("second request allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other client denied")
	}
	if got := rl.RetryAfter("1.2.3.4"); got != 61 {
		t.Errorf("RetryAfter = %d, want 61", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("request denied after window reset")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(req, false); got != "10.0.0.1" {
		t.Errorf("clientIP = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req, false); got != "10.0.0.1" {
		t.Errorf("untrusted XFF honoured: %q", got)
	}
	if got := clientIP(req, true); got != "203.0.113.9" {
		t.Errorf("clientIP with trusted XFF = %q", got)
	}
	req.Header.Set("X-Forwarded-For", " , 10.0.0.2")
	if got := clientIP(req, true); got != "10.0.0.1" {
		t.Errorf("blank first hop = %q, want remote addr", got)
	}
}

func paintFrom(t *testing.T, h http.Handler, xff string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/paint", strings.NewReader(`{"x": 189.9, "y": 60, "material": "ore"}`))
	req.RemoteAddr = "198.51.100.7:4000"
	req.Header.Set("X-Forwarded-For", xff)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRotatingForwardedForCannotDodgeLimit(t *testing.T) {
	s := newTestServer(t, false)
	s.MutationLimit = 2
	h := s.Handler()

	codes := []int{
		paintFrom(t, h, "203.0.113.1"),
		paintFrom(t, h, "203.0.113.2"),
		paintFrom(t, h, "203.0.113.3"),
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("first paints = %v", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third paint from same peer = %d, want 429", codes[2])
	}
}

func TestTrustedProxyKeysByForwardedFor(t *testing.T) {
	s := newTestServer(t, false)
	s.MutationLimit = 1
	s.TrustProxy = true
	h := s.Handler()

	if code := paintFrom(t, h, "203.0.113.1"); code != http.StatusOK {
		t.Fatalf("first client = %d", code)
	}
	if code := paintFrom(t, h, "203.0.113.2"); code != http.StatusOK {
		t.Errorf("second client behind proxy = %d, want 200", code)
	}
	if code := paintFrom(t, h, "203.0.113.1, 10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("repeat client = %d, want 429", code)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("1.1.1.1")
	rl.Allow("2.2.2.2")
	if n := len(rl.buckets); n != 2 {
		t.Fatalf("buckets = %d, want 2", n)
	}

	// Within a window a new client does not trigger another scan.
	now = now.Add(30 * time.Second)
	rl.Allow("3.3.3.3")
	if n := len(rl.buckets); n != 3 {
		t.Fatalf("buckets = %d, want 3", n)
	}

	now = now.Add(3 * time.Minute)
	rl.Allow("4.4.4.4")
	if n := len(rl.buckets); n != 1 {
		t.Errorf("buckets after sweep = %d, want 1", n)
	}
	if _, ok := rl.buckets["4.4.4.4"]; !ok {
		t.Error("fresh bucket swept")
	}
}
