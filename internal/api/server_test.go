package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/tribe-world/internal/engine"
	"github.com/talgya/tribe-world/internal/persistence"
	"github.com/talgya/tribe-world/internal/world"
)

func newTestServer(t *testing.T, adminKey string) (*Server, http.Handler) {
	t.Helper()
	sim := engine.NewSimulation(engine.Config{
		World:         world.GenConfig{Width: 20, Height: 16, Seed: "api"},
		InitialAgents: 30,
	})
	for i := 0; i < 5; i++ {
		sim.Advance()
	}
	s := &Server{Sim: sim, Eng: engine.NewEngine(sim), AdminKey: adminKey}
	return s, s.Handler()
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.7:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestReadEndpoints(t *testing.T) {
	_, h := newTestServer(t, "")
	for _, path := range []string{
		"/api/v1/status",
		"/api/v1/stats",
		"/api/v1/stats/history?limit=3",
		"/api/v1/tribes?members=1",
		"/api/v1/agents?limit=5",
		"/api/v1/map?tiles=1",
		"/api/v1/interactions",
	} {
		rec := do(h, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		if !json.Valid(rec.Body.Bytes()) {
			t.Fatalf("%s: invalid json %q", path, rec.Body.String())
		}
	}
}

func TestStatusAndHistory(t *testing.T) {
	_, h := newTestServer(t, "")

	var status map[string]any
	if err := json.Unmarshal(do(h, http.MethodGet, "/api/v1/status", "", "").Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status["tick"].(float64) != 5 || status["seed"] != "api" {
		t.Fatalf("status = %v", status)
	}

	var hist []engine.Stats
	if err := json.Unmarshal(do(h, http.MethodGet, "/api/v1/stats/history?limit=3", "", "").Body.Bytes(), &hist); err != nil {
		t.Fatal(err)
	}
	if len(hist) != 3 || hist[0].Tick != 3 || hist[2].Tick != 5 {
		t.Fatalf("history = %+v", hist)
	}
}

func TestAgentsPagination(t *testing.T) {
	s, h := newTestServer(t, "")
	var page []map[string]any
	if err := json.Unmarshal(do(h, http.MethodGet, "/api/v1/agents?limit=4&offset=2", "", "").Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	all := s.Sim.Agents()
	if len(page) != 4 {
		t.Fatalf("page size %d", len(page))
	}
	if uint64(page[0]["id"].(float64)) != uint64(all[2].ID) {
		t.Fatalf("offset ignored: first id %v, want %d", page[0]["id"], all[2].ID)
	}
}

func TestMapBiomes(t *testing.T) {
	_, h := newTestServer(t, "")
	var resp struct {
		Width  int            `json:"width"`
		Height int            `json:"height"`
		Biomes map[string]int `json:"biomes"`
		Tiles  [][]string     `json:"tiles"`
	}
	if err := json.Unmarshal(do(h, http.MethodGet, "/api/v1/map?tiles=1", "", "").Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, n := range resp.Biomes {
		total += n
	}
	if resp.Width != 20 || resp.Height != 16 || total != 320 {
		t.Fatalf("map %dx%d with %d tiles counted", resp.Width, resp.Height, total)
	}
	if len(resp.Tiles) != 16 || len(resp.Tiles[0]) != 20 {
		t.Fatal("tile grid has wrong shape")
	}
}

func TestAdminAuth(t *testing.T) {
	_, disabled := newTestServer(t, "")
	if rec := do(disabled, http.MethodPost, "/api/v1/speed", "x", `{"speed":2}`); rec.Code != http.StatusForbidden {
		t.Fatalf("no admin key: status %d, want 403", rec.Code)
	}

	s, h := newTestServer(t, "k")
	if rec := do(h, http.MethodPost, "/api/v1/speed", "wrong", `{"speed":2}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/speed", "k", `{"speed":2000}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("out of range speed: status %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/speed", "k", `{"speed":2.5}`); rec.Code != http.StatusOK {
		t.Fatalf("speed: status %d", rec.Code)
	}
	if s.Eng.Speed() != 2.5 {
		t.Fatalf("speed = %v", s.Eng.Speed())
	}
	if rec := do(h, http.MethodGet, "/api/v1/speed", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("GET speed should be public: %d", rec.Code)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	s, h := newTestServer(t, "k")
	if rec := do(h, http.MethodPost, "/api/v1/snapshot", "k", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("without db: status %d", rec.Code)
	}

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s.DB = db

	if rec := do(h, http.MethodGet, "/api/v1/snapshot", "", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET snapshot: status %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/snapshot", "k", ""); rec.Code != http.StatusOK {
		t.Fatalf("snapshot: status %d body %s", rec.Code, rec.Body)
	}
	snap, err := db.LatestSnapshot()
	if err != nil || snap.Tick != 5 {
		t.Fatalf("stored snapshot tick %d, err %v", snap.Tick, err)
	}

	var rows []engine.Stats
	if err := json.Unmarshal(do(h, http.MethodGet, "/api/v1/stats/history?source=db", "", "").Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Fatalf("stored history rows = %d, want 5", len(rows))
	}
}

func TestMapRateLimited(t *testing.T) {
	_, h := newTestServer(t, "")
	var last *httptest.ResponseRecorder
	for i := 0; i < 61; i++ {
		last = do(h, http.MethodGet, "/api/v1/map", "", "")
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("61st request: status %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	if !rl.Allow("a") || !rl.Allow("a") || rl.Allow("a") {
		t.Fatal("expected two requests then a refusal")
	}
	if !rl.Allow("b") {
		t.Fatal("clients are limited independently")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Fatalf("retry after = %d, want 61", got)
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("window should reset")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.3:4242"
	if ip := clientIP(r); ip != "198.51.100.3" {
		t.Fatalf("ip = %q", ip)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := clientIP(r); ip != "203.0.113.9" {
		t.Fatalf("forwarded ip = %q", ip)
	}
}

func TestStreamSendsTickStats(t *testing.T) {
	s, h := newTestServer(t, "")
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	s.Sim.Advance()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var st engine.Stats
	if err := json.Unmarshal(msg, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Tick != 6 {
		t.Fatalf("streamed tick %d, want 6", st.Tick)
	}
}
