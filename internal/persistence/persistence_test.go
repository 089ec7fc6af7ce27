package persistence

import (
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/talgya/tribe-world/internal/engine"
	"github.com/talgya/tribe-world/internal/social"
	"github.com/talgya/tribe-world/internal/world"
)

func runSim(t *testing.T, ticks int) *engine.Simulation {
	t.Helper()
	sim := engine.NewSimulation(engine.Config{
		World:         world.GenConfig{Width: 24, Height: 18, Seed: "persist", Noise: world.NoiseValue},
		InitialAgents: 40,
	})
	for i := 0; i < ticks; i++ {
		sim.Advance()
	}
	return sim
}

func TestRoundTripResumesIdentically(t *testing.T) {
	sim := runSim(t, 60)
	view := sim.Snapshot()

	data, err := Marshal(FromView(view, time.Unix(1700000000, 0)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	snap, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if snap.World.Width != 24 || snap.World.Height != 18 {
		t.Fatalf("world %dx%d, want 24x18", snap.World.Width, snap.World.Height)
	}
	if len(snap.Agents) != len(view.Agents) {
		t.Fatalf("agents = %d, want %d", len(snap.Agents), len(view.Agents))
	}
	if snap.Tick != 60 || snap.Seed != "persist" {
		t.Fatalf("tick %d seed %q", snap.Tick, snap.Seed)
	}
	if len(snap.State.Tribes) != len(view.State.Tribes) {
		t.Fatalf("tribes = %d, want %d", len(snap.State.Tribes), len(view.State.Tribes))
	}
	if !snap.SavedAt.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("savedAt = %v", snap.SavedAt)
	}

	restored := engine.Restore(snap.Seed, snap.World, snap.Agents, snap.State, snap.Tick, social.Policy{})
	got := restored.Advance()
	want := sim.Advance()

	if math.IsNaN(got.AverageTribeSize) || math.IsNaN(got.MeanTrustScore) {
		t.Fatal("restored tick produced NaN stats")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("restored run diverged:\n got %+v\nwant %+v", got, want)
	}
}

func TestEncodeSanitizesNonFinite(t *testing.T) {
	view := runSim(t, 1).Snapshot()
	view.World.Tiles[0].Resources.Food = math.NaN()
	view.Agents[0].Energy = math.Inf(1)

	data, err := Marshal(FromView(view, time.Now()))
	if err != nil {
		t.Fatalf("marshal with NaN: %v", err)
	}
	snap, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.World.Tiles[0].Resources.Food != 0 {
		t.Fatalf("food = %v, want 0", snap.World.Tiles[0].Resources.Food)
	}
	if snap.Agents[0].Energy != 0 {
		t.Fatalf("energy = %v, want 0", snap.Agents[0].Energy)
	}
}

func TestDecodeLenientDefaults(t *testing.T) {
	memory := make([]any, 15)
	for i := range memory {
		memory[i] = "note"
	}
	snap, err := Decode(map[string]any{
		"world": map[string]any{"width": 3.0, "height": 2.0},
		"agents": []any{
			map[string]any{"id": 4.0, "x": 99.0, "y": -3.0, "memory": memory},
			map[string]any{"id": 4.0},
			map[string]any{"x": 1.0},
		},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Version != Version {
		t.Fatalf("version = %d", snap.Version)
	}
	if len(snap.Agents) != 1 {
		t.Fatalf("agents = %d, want 1 (duplicate and id-less dropped)", len(snap.Agents))
	}
	a := snap.Agents[0]
	if !a.Alive {
		t.Fatal("missing isAlive should default to alive")
	}
	if a.X != 2 || a.Y != 0 {
		t.Fatalf("position (%d,%d), want clamped (2,0)", a.X, a.Y)
	}
	if len(a.Memory) != 10 {
		t.Fatalf("memory = %d, want 10", len(a.Memory))
	}
	if len(snap.State.Tribes) != 0 || snap.State.NextTribeID != 1 || snap.State.NextAgentID != 1 {
		t.Fatalf("missing state should decode fresh: %+v", snap.State)
	}
	tile := snap.World.At(2, 1)
	if tile.X != 2 || tile.Y != 1 {
		t.Fatalf("missing tile coordinates = (%d,%d)", tile.X, tile.Y)
	}
}

func TestDecodeStateRepairs(t *testing.T) {
	st := DecodeState(map[string]any{
		"tribes": []any{
			map[string]any{"id": 2.0, "members": []any{5.0, 6.0, 5.0}, "stability": -9.0},
			map[string]any{"id": 1.0, "members": []any{7.0, 8.0}},
			map[string]any{"id": 3.0, "members": []any{5.0, 9.0}},
		},
		"proximityCounters": map[string]any{"1|2": 3.0, "garbage": 4.0},
		"interactionMemory": map[string]any{
			"1|2": map[string]any{"lastActions": map[string]any{"a": "trade", "b": "dance"}, "trustScore": 4.0},
		},
		"environmentState": map[string]any{
			"activeEvents": []any{
				map[string]any{"type": "drought", "remainingTicks": 5.0, "intensity": 1.0},
				map[string]any{"type": "meteor", "remainingTicks": 5.0},
				map[string]any{"type": "flood", "remainingTicks": 0.0},
			},
		},
	})

	if len(st.Tribes) != 3 || st.Tribes[0].ID != 1 {
		t.Fatalf("tribes not sorted: %v", st.Tribes)
	}
	if got := st.Tribes[1].Members; len(got) != 2 {
		t.Fatalf("tribe 2 members = %v, want deduplicated", got)
	}
	if st.Tribes[2].HasMember(5) {
		t.Fatal("agent 5 should belong to only one tribe")
	}
	if st.Tribes[1].Stability != 0 {
		t.Fatalf("stability = %v, want clamped to 0", st.Tribes[1].Stability)
	}
	if st.NextTribeID != 4 {
		t.Fatalf("nextTribeId = %d, want 4", st.NextTribeID)
	}
	if len(st.Proximity) != 1 {
		t.Fatalf("proximity = %v", st.Proximity)
	}
	var rec social.MemoryRecord
	for _, r := range st.Memory {
		rec = r
	}
	if len(st.Memory) != 1 || rec.LastActions.B != social.ActionAvoid || rec.Trust != 1 || rec.LastTick != -1 {
		t.Fatalf("memory = %+v", st.Memory)
	}
	if len(st.Environment.Events) != 1 {
		t.Fatalf("events = %+v, want only the valid live one", st.Environment.Events)
	}
}

func TestUnmarshalZeroesMalformedNumbers(t *testing.T) {
	data := []byte(`{
		"tick": null,
		"world": {"width": 2, "height": 1, "tiles": [
			{"biome": "plains", "resources": {"food": null, "wood": "lots", "water": 12}, "resourceCaps": {"food": 100, "wood": 40, "water": 60, "materials": 50}},
			{"biome": "forest", "resources": null}
		]},
		"agents": [{"id": 3, "energy": null, "health": "full", "x": "0", "y": null}]
	}`)
	snap, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.Tick != 0 {
		t.Fatalf("tick = %d, want 0", snap.Tick)
	}
	r := snap.World.At(0, 0).Resources
	if r.Food != 0 || r.Wood != 0 || r.Water != 12 {
		t.Fatalf("resources = %+v, want food 0, wood 0, water 12", r)
	}
	if len(snap.Agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(snap.Agents))
	}
	a := snap.Agents[0]
	if a.Energy != 0 || a.Health != 0 || a.X != 0 || a.Y != 0 {
		t.Fatalf("agent = %+v, want zeroed energy, health and position", a)
	}
}

func TestUnmarshalRejects(t *testing.T) {
	cases := map[string]struct {
		data string
		want error
	}{
		"not json":      {`{`, ErrMalformed},
		"missing world": {`{"agents":[]}`, ErrSchema},
		"bad width":     {`{"world":{"width":"wide","height":2}}`, ErrSchema},
		"future":        {`{"version":2,"world":{"width":2,"height":2}}`, ErrVersion},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tc.data))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if _, err := Decode(map[string]any{}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("decode without world: %v", err)
	}
}

func TestSnapshotFile(t *testing.T) {
	sim := runSim(t, 10)
	path := filepath.Join(t.TempDir(), "saves", "world.json.zst")
	if err := WriteFile(path, FromView(sim.Snapshot(), time.Now())); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Tick != 10 || len(snap.Agents) != len(sim.Agents()) {
		t.Fatalf("tick %d agents %d", snap.Tick, len(snap.Agents))
	}
}

func TestDBSnapshotsAndStats(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.LatestSnapshot(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("empty store: %v", err)
	}

	sim := runSim(t, 5)
	first, err := db.SaveSimulation(sim)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	for i := 0; i < 5; i++ {
		sim.Advance()
	}
	if _, err := db.SaveSimulation(sim); err != nil {
		t.Fatalf("save: %v", err)
	}

	latest, err := db.LatestSnapshot()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Tick != 10 {
		t.Fatalf("latest tick = %d, want 10", latest.Tick)
	}
	older, err := db.LoadSnapshot(first)
	if err != nil || older.Tick != 5 {
		t.Fatalf("load %s: tick %d err %v", first, older.Tick, err)
	}

	hist, err := db.StatsHistory(3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 || hist[0].Tick != 8 || hist[2].Tick != 10 {
		t.Fatalf("history ticks = %v", hist)
	}

	if v, err := db.GetMeta("last_tick"); err != nil || v != "10" {
		t.Fatalf("last_tick = %q, %v", v, err)
	}

	removed, err := db.PruneSnapshots(1)
	if err != nil || removed != 1 {
		t.Fatalf("prune removed %d, %v", removed, err)
	}
	list, err := db.Snapshots(10)
	if err != nil || len(list) != 1 || list[0].Tick != 10 {
		t.Fatalf("snapshots = %+v, %v", list, err)
	}
}
