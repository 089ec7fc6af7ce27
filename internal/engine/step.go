package engine

import (
	"sort"

	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/social"
	"github.com/talgya/tribe-world/internal/weather"
	"github.com/talgya/tribe-world/internal/world"
)

// Point is a position on the map.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// InteractionEvent describes one resolved tribe-pair interaction.
type InteractionEvent struct {
	TribeA    social.TribeID `json:"tribeA"`
	TribeB    social.TribeID `json:"tribeB"`
	From      Point          `json:"from"`
	To        Point          `json:"to"`
	ActionA   social.Action  `json:"actionA"`
	ActionB   social.Action  `json:"actionB"`
	EventType string         `json:"eventType"`
}

// Result is the output of one tick.
type Result struct {
	World        *world.Map         `json:"world"`
	Agents       []*agents.Agent    `json:"agents"`
	Tribes       []*social.Tribe    `json:"tribes"`
	Interactions []InteractionEvent `json:"interactionEvents"`
	State        *State             `json:"simulationState"`
	Stats        Stats              `json:"stats"`
}

// Pipeline runs ticks under a decision policy.
type Pipeline struct {
	Policy social.Policy
}

// NewPipeline returns a pipeline with the default policy.
func NewPipeline() *Pipeline {
	return &Pipeline{Policy: social.DefaultPolicy()}
}

// Step advances one tick with the default policy.
func Step(w *world.Map, roster []*agents.Agent, tick uint64, seed string, st *State) Result {
	return NewPipeline().Step(w, roster, tick, seed, st)
}

// Step advances the simulation by one tick. Inputs are not modified; the
// result holds fresh copies. The same inputs always give the same result.
func (p *Pipeline) Step(w *world.Map, roster []*agents.Agent, tick uint64, seed string, st *State) Result {
	if st == nil {
		st = NewState()
	}
	prev := st.Clone()
	prev.normalize(roster)

	r := &tickRun{
		policy:   p.Policy,
		seed:     seed,
		tick:     tick,
		prev:     prev,
		events:   map[social.TribeID][]social.TribeEvent{},
		positive: map[social.TribeID]int{},
		deathsBy: map[social.TribeID]int{},
		nextTID:  prev.NextTribeID,
	}

	r.advanceEnvironment(w)
	r.snapshotTribes(roster)
	r.runAgents()
	r.mergeRoster()
	r.updateProximity()
	r.shareEnergy()
	r.formTribes()
	r.supportTribes()
	r.environmentTribeEvents()
	r.resolveInteractions()
	r.processBeliefs()
	r.updateTechnology()
	r.prune()

	for _, t := range r.tribes {
		t.Sanitize()
	}
	survivors := make([]*agents.Agent, 0, len(r.merged))
	for _, a := range r.merged {
		if a.Alive {
			survivors = append(survivors, a)
		}
	}

	next := &State{
		Tribes:      social.CloneTribes(r.tribes),
		Proximity:   r.proximity,
		Memory:      r.memory,
		Environment: r.env.Clone(),
		NextAgentID: r.spawner.NextID(),
		NextTribeID: r.nextTID,
	}
	return Result{
		World:        r.world,
		Agents:       survivors,
		Tribes:       r.tribes,
		Interactions: r.interactions,
		State:        next,
		Stats:        r.stats(survivors),
	}
}

// tickRun is the scratch state of one tick, threaded through the stages in order.
type tickRun struct {
	policy social.Policy
	seed   string
	tick   uint64
	prev   *State

	env   weather.Environment
	world *world.Map

	roster   []*agents.Agent
	merged   []*agents.Agent
	live     map[agents.AgentID]*agents.Agent
	spawner  *agents.Spawner
	births   []birth
	newborns []*agents.Agent

	tribes     []*social.Tribe
	byID       map[social.TribeID]*social.Tribe
	memberOf   map[agents.AgentID]social.TribeID
	beliefMods map[social.TribeID]social.BeliefModifiers
	techFx     map[social.TribeID]social.TechEffects
	nextTID    social.TribeID

	proximity map[agents.PairKey]int
	exchanges map[agents.PairKey]bool

	energyDeaths int
	combatDeaths int
	deathsBy     map[social.TribeID]int
	dissolved    int

	events       map[social.TribeID][]social.TribeEvent
	positive     map[social.TribeID]int
	memory       map[social.PairKey]social.MemoryRecord
	interactions []InteractionEvent
	breakdown    Breakdown
}

type birth struct {
	child   agents.AgentID
	tribe   social.TribeID
	inTribe bool
}

func (r *tickRun) addEvent(id social.TribeID, kind social.EventKind, intensity float64) {
	r.events[id] = append(r.events[id], social.TribeEvent{Kind: kind, Intensity: intensity})
}

func (r *tickRun) tribeOf(id agents.AgentID) (*social.Tribe, bool) {
	tid, ok := r.memberOf[id]
	if !ok {
		return nil, false
	}
	t, ok := r.byID[tid]
	return t, ok
}

// index rebuilds the tribe lookup and membership maps from r.tribes.
func (r *tickRun) index() {
	social.SortTribes(r.tribes)
	r.byID = make(map[social.TribeID]*social.Tribe, len(r.tribes))
	r.memberOf = map[agents.AgentID]social.TribeID{}
	for _, t := range r.tribes {
		r.byID[t.ID] = t
		for _, m := range t.Members {
			r.memberOf[m] = t.ID
		}
	}
}

// snapshotTribes clones the agents and previous tribes and derives the belief
// and technology modifiers that steer this tick's agent turns.
func (r *tickRun) snapshotTribes(roster []*agents.Agent) {
	r.roster = agents.CloneAll(roster)
	r.spawner = agents.NewSpawner(r.seed, r.world.Width, r.world.Height, r.prev.NextAgentID)

	r.tribes = social.CloneTribes(r.prev.Tribes)
	r.index()
	r.beliefMods = make(map[social.TribeID]social.BeliefModifiers, len(r.tribes))
	r.techFx = make(map[social.TribeID]social.TechEffects, len(r.tribes))
	for _, t := range r.tribes {
		r.beliefMods[t.ID] = t.Modifiers()
		r.techFx[t.ID] = t.Effects()
	}
}

// sortedPairKeys returns proximity keys in (A, B) order.
func sortedPairKeys(m map[agents.PairKey]int) []agents.PairKey {
	keys := make([]agents.PairKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
	return keys
}

// liveIndex maps ids to live agents of the merged roster.
func (r *tickRun) liveIndex() {
	r.live = make(map[agents.AgentID]*agents.Agent, len(r.merged))
	for _, a := range r.merged {
		if a.Alive {
			r.live[a.ID] = a
		}
	}
}
