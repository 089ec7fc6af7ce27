// Simulation owns one world instance and serializes ticks against readers.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/social"
	"github.com/talgya/tribe-world/internal/weather"
	"github.com/talgya/tribe-world/internal/world"
)

// HistorySize is how many per-tick stats the simulation keeps.
const HistorySize = 500

// DefaultInitialAgents is the starting population when none is configured.
const DefaultInitialAgents = 120

// Config describes a new simulation.
type Config struct {
	World         world.GenConfig
	InitialAgents int
	Policy        social.Policy
}

// Simulation holds the complete state of one world and runs it tick by tick.
// Ticks take the write lock; every accessor returns copies under the read lock.
type Simulation struct {
	mu sync.RWMutex

	seed     string
	pipeline *Pipeline
	world    *world.Map
	agents   []*agents.Agent
	state    *State
	tick     uint64

	latest       Stats
	interactions []InteractionEvent
	history      []Stats // ring buffer, oldest first once full
	historyStart int

	subMu  sync.Mutex
	subs   map[int]chan Stats
	nextID int
}

// NewSimulation generates a world and spawns its first population.
func NewSimulation(cfg Config) *Simulation {
	m := world.Generate(cfg.World)
	n := cfg.InitialAgents
	if n <= 0 {
		n = DefaultInitialAgents
	}
	sp := agents.NewSpawner(m.Seed, m.Width, m.Height, 1)
	roster := sp.SpawnPopulation(n)
	st := NewState()
	st.NextAgentID = sp.NextID()

	slog.Info("world generated",
		"seed", m.Seed,
		"width", m.Width,
		"height", m.Height,
		"agents", len(roster),
	)
	return Restore(m.Seed, m, roster, st, 0, cfg.Policy)
}

// Restore resumes a simulation from saved components.
func Restore(seed string, m *world.Map, roster []*agents.Agent, st *State, tick uint64, policy social.Policy) *Simulation {
	if st == nil {
		st = NewState()
	}
	if policy == (social.Policy{}) {
		policy = social.DefaultPolicy()
	}
	st = st.Clone()
	st.normalize(roster)
	return &Simulation{
		seed:     seed,
		pipeline: &Pipeline{Policy: policy},
		world:    m.Clone(),
		agents:   agents.CloneAll(roster),
		state:    st,
		tick:     tick,
		subs:     map[int]chan Stats{},
	}
}

// Advance runs one tick and returns its statistics.
func (s *Simulation) Advance() Stats {
	s.mu.Lock()
	next := s.tick + 1
	res := s.pipeline.Step(s.world, s.agents, next, s.seed, s.state)
	s.world = res.World
	s.agents = res.Agents
	s.state = res.State
	s.tick = next
	s.latest = res.Stats
	s.interactions = res.Interactions
	s.record(res.Stats)
	s.mu.Unlock()

	if next%weather.TicksPerYear == 0 {
		s.yearlyReport(res.Stats)
	}
	s.publish(res.Stats)
	return res.Stats
}

func (s *Simulation) record(st Stats) {
	if len(s.history) < HistorySize {
		s.history = append(s.history, st)
		return
	}
	s.history[s.historyStart] = st
	s.historyStart = (s.historyStart + 1) % HistorySize
}

func (s *Simulation) yearlyReport(st Stats) {
	slog.Info("yearly report",
		"tick", st.Tick,
		"time", SimTime(st.Tick),
		"population", st.Population,
		"tribes", st.Tribes,
		"avg_tribe_size", fmt.Sprintf("%.2f", st.AverageTribeSize),
		"mean_tech", fmt.Sprintf("%.2f", st.MeanGlobalTechLevel),
		"beliefs", st.TotalBeliefs,
		"mean_trust", fmt.Sprintf("%.3f", st.MeanTrustScore),
		"temp_shift", fmt.Sprintf("%.3f", st.GlobalTempShift),
		"active_events", st.ActiveEventsCount,
	)
}

// Subscribe returns a channel receiving each tick's stats and a function that
// unsubscribes. Slow subscribers miss ticks rather than block the simulation.
func (s *Simulation) Subscribe() (<-chan Stats, func()) {
	ch := make(chan Stats, 16)
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Simulation) publish(st Stats) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
		}
	}
}

// Tick returns the most recently processed tick number.
func (s *Simulation) Tick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// Seed returns the simulation seed.
func (s *Simulation) Seed() string {
	return s.seed
}

// Latest returns the stats of the most recent tick.
func (s *Simulation) Latest() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// History returns up to the last HistorySize stats, oldest first.
func (s *Simulation) History() []Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Stats, 0, len(s.history))
	out = append(out, s.history[s.historyStart:]...)
	out = append(out, s.history[:s.historyStart]...)
	return out
}

// Interactions returns the last tick's interaction events.
func (s *Simulation) Interactions() []InteractionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]InteractionEvent(nil), s.interactions...)
}

// View is a consistent copy of a simulation at one tick.
type View struct {
	Seed   string
	Tick   uint64
	World  *world.Map
	Agents []*agents.Agent
	State  *State
}

// Snapshot copies the full simulation state.
func (s *Simulation) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Seed:   s.seed,
		Tick:   s.tick,
		World:  s.world.Clone(),
		Agents: agents.CloneAll(s.agents),
		State:  s.state.Clone(),
	}
}

// Tribes returns copies of the current tribes.
func (s *Simulation) Tribes() []*social.Tribe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return social.CloneTribes(s.state.Tribes)
}

// Agents returns copies of the live agents.
func (s *Simulation) Agents() []*agents.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return agents.CloneAll(s.agents)
}

// MapSummary reports the map dimensions and biome counts.
func (s *Simulation) MapSummary() (width, height int, biomes map[world.Biome]int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.world.Width, s.world.Height, world.BiomeCounts(s.world)
}
