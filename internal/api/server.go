// Package api provides the HTTP API for observing a running world.
// GET endpoints are public and read-only. POST endpoints require a bearer
// token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/engine"
	"github.com/talgya/tribe-world/internal/persistence"
	"github.com/talgya/tribe-world/internal/social"
)

const (
	maxStreamConns = 8
	maxSpeed       = 1000
)

// Server serves one simulation over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine   // optional; speed control is unavailable without it
	DB       *persistence.DB  // optional; snapshots and stored history need it
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	streamConns int32
	upgrader    websocket.Upgrader
	httpServer  *http.Server
}

// Handler builds the API routes.
func (s *Server) Handler() http.Handler {
	mapLimiter := NewRateLimiter(60, time.Minute)
	snapshotLimiter := NewRateLimiter(6, time.Minute)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("/api/v1/tribes", s.handleTribes)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/map", RateLimitMiddleware(mapLimiter, s.handleMap))
	mux.HandleFunc("/api/v1/interactions", s.handleInteractions)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(RateLimitMiddleware(snapshotLimiter, s.handleSnapshot)))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
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

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no WORLDSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tick := s.Sim.Tick()
	latest := s.Sim.Latest()
	status := map[string]any{
		"name":         "tribe-world",
		"seed":         s.Sim.Seed(),
		"tick":         tick,
		"simTime":      engine.SimTime(tick),
		"season":       latest.SeasonName,
		"year":         latest.Year,
		"population":   latest.Population,
		"tribes":       latest.Tribes,
		"births":       latest.Births,
		"deaths":       latest.Deaths,
		"activeEvents": latest.ActiveEventsCount,
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
	}
	writeJSON(w, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Latest())
}

// handleStatsHistory serves the in-memory ring, or the stored history when
// called with source=db.
func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 10000 {
			limit = v
		}
	}

	if r.URL.Query().Get("source") == "db" {
		if s.DB == nil {
			http.Error(w, "database not available", http.StatusServiceUnavailable)
			return
		}
		rows, err := s.DB.StatsHistory(limit)
		if err != nil {
			slog.Error("stats history query failed", "error", err)
			writeJSON(w, []engine.Stats{})
			return
		}
		writeJSON(w, rows)
		return
	}

	hist := s.Sim.History()
	if len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	writeJSON(w, hist)
}

func (s *Server) handleTribes(w http.ResponseWriter, r *http.Request) {
	type tribeSummary struct {
		ID         social.TribeID         `json:"id"`
		Size       int                    `json:"size"`
		CenterX    float64                `json:"centerX"`
		CenterY    float64                `json:"centerY"`
		Stability  float64                `json:"stability"`
		Dominant   social.Axis            `json:"dominantAxis"`
		Culture    social.Culture         `json:"culture"`
		Shared     social.Stock           `json:"sharedResources"`
		Beliefs    []social.Belief        `json:"beliefs"`
		TechLevel  int                    `json:"globalTechLevel"`
		Techs      []*social.Technology   `json:"technologies"`
		Effects    social.TechEffects     `json:"techEffects"`
		Modifiers  social.BeliefModifiers `json:"beliefModifiers"`
		MemberIDs  []agents.AgentID       `json:"members,omitempty"`
	}

	withMembers := r.URL.Query().Get("members") == "1"
	tribes := s.Sim.Tribes()
	result := make([]tribeSummary, 0, len(tribes))
	for _, t := range tribes {
		techs := make([]*social.Technology, 0, len(t.Techs))
		for _, tech := range t.Techs {
			techs = append(techs, tech)
		}
		sort.Slice(techs, func(i, j int) bool { return techs[i].ID < techs[j].ID })

		ts := tribeSummary{
			ID:        t.ID,
			Size:      t.Size(),
			CenterX:   t.CenterX,
			CenterY:   t.CenterY,
			Stability: t.Stability,
			Dominant:  t.Culture.Dominant(),
			Culture:   t.Culture,
			Shared:    t.Shared,
			Beliefs:   t.Beliefs,
			TechLevel: t.GlobalTechLevel,
			Techs:     techs,
			Effects:   t.Effects(),
			Modifiers: t.Modifiers(),
		}
		if withMembers {
			ts.MemberIDs = t.Members
		}
		result = append(result, ts)
	}
	writeJSON(w, result)
}

// handleAgents lists agents. Optional filters: tribe=<id>, limit, offset.
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	type agentSummary struct {
		ID     agents.AgentID `json:"id"`
		X      int            `json:"x"`
		Y      int            `json:"y"`
		Energy float64        `json:"energy"`
		Health float64        `json:"health"`
		Age    int            `json:"age"`
		Traits agents.Traits  `json:"traits"`
		Tribe  social.TribeID `json:"tribe,omitempty"`
		Alive  bool           `json:"isAlive"`
	}

	q := r.URL.Query()
	limit, offset := 200, 0
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 5000 {
		limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	var tribeFilter social.TribeID
	if v, err := strconv.ParseUint(q.Get("tribe"), 10, 64); err == nil {
		tribeFilter = social.TribeID(v)
	}

	membership := map[agents.AgentID]social.TribeID{}
	for _, t := range s.Sim.Tribes() {
		for _, m := range t.Members {
			membership[m] = t.ID
		}
	}

	result := []agentSummary{}
	skipped := 0
	for _, a := range s.Sim.Agents() {
		tribe := membership[a.ID]
		if tribeFilter != 0 && tribe != tribeFilter {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(result) >= limit {
			break
		}
		result = append(result, agentSummary{
			ID:     a.ID,
			X:      a.X,
			Y:      a.Y,
			Energy: a.Energy,
			Health: a.Health,
			Age:    a.Age,
			Traits: a.Traits,
			Tribe:  tribe,
			Alive:  a.Alive,
		})
	}
	writeJSON(w, result)
}

// handleMap returns the map size and biome counts. tiles=1 adds the biome
// grid as one row of biome names per y.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	width, height, counts := s.Sim.MapSummary()
	biomes := make(map[string]int, len(counts))
	for b, n := range counts {
		biomes[b.String()] = n
	}
	resp := map[string]any{
		"width":  width,
		"height": height,
		"biomes": biomes,
	}
	if r.URL.Query().Get("tiles") == "1" {
		m := s.Sim.Snapshot().World
		rows := make([][]string, m.Height)
		for y := 0; y < m.Height; y++ {
			rows[y] = make([]string, m.Width)
			for x := 0; x < m.Width; x++ {
				rows[y][x] = m.At(x, y).Biome.String()
			}
		}
		resp["tiles"] = rows
	}
	writeJSON(w, resp)
}

func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	events := s.Sim.Interactions()
	if events == nil {
		events = []engine.InteractionEvent{}
	}
	writeJSON(w, map[string]any{
		"tick":         s.Sim.Tick(),
		"interactions": events,
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not running", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > maxSpeed {
			http.Error(w, fmt.Sprintf("speed must be 0-%d", maxSpeed), http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	id, err := s.DB.SaveSimulation(s.Sim)
	if err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"id":      id,
		"tick":    s.Sim.Tick(),
		"message": "snapshot saved",
	})
}

// handleStream upgrades to a websocket and sends one JSON stats message per tick.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	current := atomic.AddInt32(&s.streamConns, 1)
	defer atomic.AddInt32(&s.streamConns, -1)
	if current > maxStreamConns {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}

	// Subscribe before the upgrade so no tick after the handshake is missed.
	ch, unsubscribe := s.Sim.Subscribe()
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	slog.Info("stream client connected", "remote", clientIP(r))

	// Reader: the client sends nothing, but reading surfaces the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return
			}
			b, err := json.Marshal(st)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		case <-done:
			slog.Info("stream client disconnected", "remote", clientIP(r))
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
