package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/social"
	"github.com/talgya/tribe-world/internal/world"
)

func newTestRun(t *testing.T, seed string, n int) (*world.Map, []*agents.Agent, *State) {
	t.Helper()
	cfg := world.SmallTestConfig()
	cfg.Seed = seed
	m := world.Generate(cfg)
	sp := agents.NewSpawner(seed, m.Width, m.Height, 1)
	roster := sp.SpawnPopulation(n)
	st := NewState()
	st.NextAgentID = sp.NextID()
	return m, roster, st
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkWorld(t *testing.T, tick uint64, m *world.Map) {
	t.Helper()
	const eps = 1e-9
	for _, tile := range m.Tiles {
		r, c := tile.Resources, tile.Caps
		for _, pair := range [][2]float64{{r.Food, c.Food}, {r.Wood, c.Wood}, {r.Water, c.Water}, {r.Materials, c.Materials}} {
			if !finite(pair[0]) || pair[0] < 0 || pair[0] > pair[1]+eps {
				t.Fatalf("tick %d tile (%d,%d): resource %v outside [0,%v]", tick, tile.X, tile.Y, pair[0], pair[1])
			}
		}
	}
}

func checkAgents(t *testing.T, tick uint64, m *world.Map, roster []*agents.Agent) {
	t.Helper()
	seen := map[agents.AgentID]bool{}
	for _, a := range roster {
		if !a.Alive {
			t.Fatalf("tick %d: dead agent %d returned", tick, a.ID)
		}
		if seen[a.ID] {
			t.Fatalf("tick %d: duplicate agent id %d", tick, a.ID)
		}
		seen[a.ID] = true
		if a.X < 0 || a.X >= m.Width || a.Y < 0 || a.Y >= m.Height {
			t.Fatalf("tick %d: agent %d at (%d,%d) off map", tick, a.ID, a.X, a.Y)
		}
		if !finite(a.Energy) || !finite(a.Health) || a.Age < 0 {
			t.Fatalf("tick %d: agent %d has bad fields %+v", tick, a.ID, a)
		}
		if len(a.Memory) > agents.MaxMemories {
			t.Fatalf("tick %d: agent %d memory %d", tick, a.ID, len(a.Memory))
		}
	}
}

func checkTribes(t *testing.T, tick uint64, tribes []*social.Tribe, roster []*agents.Agent) {
	t.Helper()
	live := map[agents.AgentID]bool{}
	for _, a := range roster {
		live[a.ID] = true
	}
	owner := map[agents.AgentID]social.TribeID{}
	for _, tr := range tribes {
		if tr.Size() < social.MinMembers {
			t.Fatalf("tick %d: tribe %d has %d members", tick, tr.ID, tr.Size())
		}
		if tr.Stability < 0 || !finite(tr.Stability) {
			t.Fatalf("tick %d: tribe %d stability %v", tick, tr.ID, tr.Stability)
		}
		if len(tr.Beliefs) > social.MaxBeliefs {
			t.Fatalf("tick %d: tribe %d holds %d beliefs", tick, tr.ID, len(tr.Beliefs))
		}
		for _, a := range social.Axes {
			if v := tr.Culture.Get(a); v < 0 || v > 1 {
				t.Fatalf("tick %d: tribe %d culture %s = %v", tick, tr.ID, a, v)
			}
		}
		fx := tr.Effects()
		for _, v := range []float64{fx.Efficiency, fx.Storage, fx.Movement, fx.Defense, fx.Trade} {
			if v < 0 || v > social.MaxBonus {
				t.Fatalf("tick %d: tribe %d bonus %v", tick, tr.ID, v)
			}
		}
		for _, m := range tr.Members {
			if !live[m] {
				t.Fatalf("tick %d: tribe %d keeps dead member %d", tick, tr.ID, m)
			}
			if other, dup := owner[m]; dup {
				t.Fatalf("tick %d: agent %d in tribes %d and %d", tick, m, other, tr.ID)
			}
			owner[m] = tr.ID
		}
	}
}

func TestStepLongRunInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("long run")
	}
	m, roster, st := newTestRun(t, "long-run", 120)
	p := NewPipeline()
	var maxTribes, interactions int
	for tick := uint64(1); tick <= 1000; tick++ {
		res := p.Step(m, roster, tick, "long-run", st)
		m, roster, st = res.World, res.Agents, res.State

		checkWorld(t, tick, m)
		checkAgents(t, tick, m, roster)
		checkTribes(t, tick, res.Tribes, roster)

		if s := st.Environment.Climate; math.Abs(s.TempShift) > 0.36 || math.Abs(s.HumidityShift) > 0.36 {
			t.Fatalf("tick %d: climate drifted to %+v", tick, s)
		}
		for _, ev := range st.Environment.Events {
			if ev.RemainingTicks <= 0 {
				t.Fatalf("tick %d: event %s lingers with %d remaining", tick, ev.ID, ev.RemainingTicks)
			}
		}
		for k, rec := range st.Memory {
			if rec.Trust < -1 || rec.Trust > 1 {
				t.Fatalf("tick %d: trust for %s = %v", tick, k, rec.Trust)
			}
		}
		if res.Stats.Population != len(roster) {
			t.Fatalf("tick %d: stats population %d, roster %d", tick, res.Stats.Population, len(roster))
		}
		maxTribes = max(maxTribes, len(res.Tribes))
		interactions += len(res.Interactions)
		if len(roster) == 0 {
			break
		}
	}
	if maxTribes == 0 {
		t.Fatal("no tribe formed in 1000 ticks")
	}
	if interactions == 0 {
		t.Fatal("no tribe interaction resolved in 1000 ticks")
	}
	t.Logf("max tribes seen: %d, interactions: %d", maxTribes, interactions)
}

func TestStepDeterministic(t *testing.T) {
	run := func() (Stats, []*agents.Agent) {
		m, roster, st := newTestRun(t, "det", 80)
		var res Result
		for tick := uint64(1); tick <= 120; tick++ {
			res = Step(m, roster, tick, "det", st)
			m, roster, st = res.World, res.Agents, res.State
		}
		return res.Stats, res.Agents
	}
	s1, a1 := run()
	s2, a2 := run()
	if s1.Population != s2.Population || s1.Tribes != s2.Tribes || s1.TotalTechLevels != s2.TotalTechLevels {
		t.Fatalf("runs diverged: %+v vs %+v", s1, s2)
	}
	if len(a1) != len(a2) {
		t.Fatalf("roster sizes differ: %d vs %d", len(a1), len(a2))
	}
	for i := range a1 {
		if a1[i].ID != a2[i].ID || a1[i].X != a2[i].X || a1[i].Energy != a2[i].Energy {
			t.Fatalf("agent %d differs: %+v vs %+v", i, a1[i], a2[i])
		}
	}
}

func TestStepDoesNotMutateInputs(t *testing.T) {
	m, roster, st := newTestRun(t, "immutable", 40)
	before := world.Signature(m)
	food := m.Tiles[0].Resources.Food
	x, energy := roster[0].X, roster[0].Energy
	next := st.NextAgentID

	Step(m, roster, 1, "immutable", st)

	if world.Signature(m) != before || m.Tiles[0].Resources.Food != food {
		t.Fatal("world was modified")
	}
	if roster[0].X != x || roster[0].Energy != energy {
		t.Fatal("agent was modified")
	}
	if st.NextAgentID != next || len(st.Proximity) != 0 {
		t.Fatal("state was modified")
	}
}

func TestTribesFormFromBondedPair(t *testing.T) {
	m, _, st := newTestRun(t, "bond", 0)
	tile := m.At(5, 5)
	tile.Resources.Food, tile.Resources.Water = tile.Caps.Food, tile.Caps.Water
	rich := &agents.Agent{ID: 1, X: 5, Y: 5, Energy: 110, Health: 100, Alive: true}
	poor := &agents.Agent{ID: 2, X: 5, Y: 5, Energy: 60, Health: 100, Alive: true}
	rich.Traits.Prudence, poor.Traits.Prudence = 1, 1
	st.Proximity[agents.NewPairKey(1, 2)] = FormationTicks
	st.NextAgentID = 3

	r := &tickRun{
		policy:   social.DefaultPolicy(),
		seed:     "bond",
		tick:     1,
		prev:     st,
		events:   map[social.TribeID][]social.TribeEvent{},
		positive: map[social.TribeID]int{},
		deathsBy: map[social.TribeID]int{},
		nextTID:  st.NextTribeID,
	}
	r.world = m
	r.snapshotTribes([]*agents.Agent{rich, poor})
	r.merged = r.roster
	r.liveIndex()
	r.updateProximity()
	r.shareEnergy()
	r.formTribes()

	if len(r.tribes) != 1 {
		t.Fatalf("tribes = %d, want 1", len(r.tribes))
	}
	tr := r.tribes[0]
	if !tr.HasMember(1) || !tr.HasMember(2) || tr.ID != 1 {
		t.Fatalf("unexpected tribe %+v", tr)
	}
	if r.nextTID != 2 {
		t.Fatalf("next tribe id = %d, want 2", r.nextTID)
	}
}

func TestCasualtiesSpareLastMember(t *testing.T) {
	weak := &agents.Agent{ID: 1, Energy: 10, Alive: true}
	strong := &agents.Agent{ID: 2, Energy: 90, Alive: true}
	r := &tickRun{live: map[agents.AgentID]*agents.Agent{1: weak, 2: strong}}
	tr := &social.Tribe{ID: 1, Members: []agents.AgentID{1, 2}}
	if n := r.casualties(tr, 5, 0); n != 1 {
		t.Fatalf("killed %d, want 1", n)
	}
	if weak.Alive || !strong.Alive {
		t.Fatal("weakest member should fall first and the last should survive")
	}
	if n := r.casualties(tr, 2, 0.5); n != 0 {
		t.Fatalf("killed %d after defense with one survivor left", n)
	}
}

func TestSimulationHistoryAndSubscribe(t *testing.T) {
	cfg := Config{World: world.SmallTestConfig(), InitialAgents: 30}
	sim := NewSimulation(cfg)
	ch, cancel := sim.Subscribe()
	defer cancel()

	sim.Advance()
	select {
	case st := <-ch:
		if st.Tick != 1 {
			t.Fatalf("published tick %d, want 1", st.Tick)
		}
	default:
		t.Fatal("subscriber should receive the tick's stats")
	}

	for i := 0; i < HistorySize+20; i++ {
		sim.Advance()
	}
	h := sim.History()
	if len(h) != HistorySize {
		t.Fatalf("history = %d, want %d", len(h), HistorySize)
	}
	if h[len(h)-1].Tick != sim.Tick() || h[0].Tick != sim.Tick()-HistorySize+1 {
		t.Fatalf("history spans %d..%d at tick %d", h[0].Tick, h[len(h)-1].Tick, sim.Tick())
	}
}

func TestEngineRunStopsAtMaxTicks(t *testing.T) {
	sim := NewSimulation(Config{World: world.SmallTestConfig(), InitialAgents: 20})
	eng := NewEngine(sim)
	eng.Interval = time.Microsecond
	eng.MaxTicks = 60
	seasons := 0
	eng.OnSeason = func(uint64) { seasons++ }

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := eng.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sim.Tick() != 60 {
		t.Fatalf("tick = %d, want 60", sim.Tick())
	}
	if seasons != 1 {
		t.Fatalf("season callbacks = %d, want 1", seasons)
	}
}

func TestEngineRunHonorsCancel(t *testing.T) {
	sim := NewSimulation(Config{World: world.SmallTestConfig(), InitialAgents: 10})
	eng := NewEngine(sim)
	eng.SetSpeed(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := eng.Run(ctx); err == nil {
		t.Fatal("cancelled run should return the context error")
	}
}

func TestSimTime(t *testing.T) {
	if got := SimTime(0); got != "spring Day 1, Year 1" {
		t.Fatalf("SimTime(0) = %q", got)
	}
	if got := SimTime(260); got != "summer Day 11, Year 2" {
		t.Fatalf("SimTime(260) = %q", got)
	}
}
