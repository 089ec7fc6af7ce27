// Agent spawning: creates the initial population and children from two parents.
// Ids come from an allocator owned by the simulation instance.
package agents

import (
	"fmt"

	"github.com/talgya/tribe-world/internal/entropy"
	"github.com/talgya/tribe-world/internal/mathx"
)

// Reproduction parameters.
const (
	MutationSpan      = 0.12 // full width of the per-trait mutation window
	MinMutationScale  = 0.4
	ChildEnergy       = 50.0
	ParentEnergyCost  = 25.0
	PartnerEnergyCost = 20.0
)

// Spawner creates agents for one simulation instance.
type Spawner struct {
	seed   string
	width  int
	height int
	nextID AgentID
}

// NewSpawner creates a spawner. nextID is the first id it will issue; zero means 1.
func NewSpawner(seed string, width, height int, nextID AgentID) *Spawner {
	if nextID == 0 {
		nextID = 1
	}
	return &Spawner{seed: seed, width: width, height: height, nextID: nextID}
}

// NextID returns the id the spawner will issue next (persisted with the state).
func (s *Spawner) NextID() AgentID {
	return s.nextID
}

// SetNextID moves the allocator forward; it never moves backwards.
func (s *Spawner) SetNextID(id AgentID) {
	if id > s.nextID {
		s.nextID = id
	}
}

func (s *Spawner) allocate() AgentID {
	id := s.nextID
	s.nextID++
	return id
}

// SpawnPopulation creates count agents at seeded positions with seeded traits.
func (s *Spawner) SpawnPopulation(count int) []*Agent {
	out := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, s.spawnOne(i))
	}
	return out
}

func (s *Spawner) spawnOne(i int) *Agent {
	var traits Traits
	for _, name := range TraitNames {
		traits.Set(name, mathx.Clamp01(entropy.Value(s.seed, "spawn", i, "trait", name)))
	}
	return &Agent{
		ID:     s.allocate(),
		X:      entropy.Index(entropy.Value(s.seed, "spawn", i, "x"), s.width),
		Y:      entropy.Index(entropy.Value(s.seed, "spawn", i, "y"), s.height),
		Energy: 60 + entropy.Value(s.seed, "spawn", i, "energy")*30,
		Health: 100,
		Traits: traits,
		Memory: []string{"spawn"},
		Alive:  true,
	}
}

// MutationScale shrinks mutation for more educated tribes.
func MutationScale(education float64) float64 {
	return max(MinMutationScale, 1-mathx.Clamp01(education)*0.5)
}

// Reproduce creates a child of a and b next to a, and charges both parents.
// Child traits are the parental average plus a mutation of at most
// ±MutationSpan/2 scaled by education.
func (s *Spawner) Reproduce(a, b *Agent, tick uint64, education float64) *Agent {
	key := fmt.Sprintf("child|%d|%d|%d", a.ID, b.ID, tick)
	scale := MutationScale(education)

	var traits Traits
	for _, name := range TraitNames {
		avg := (a.Traits.Get(name) + b.Traits.Get(name)) / 2
		m := (entropy.Value(s.seed, key, "mutation", name) - 0.5) * MutationSpan * scale
		traits.Set(name, mathx.Clamp01(avg+m))
	}

	dx := entropy.Index(entropy.Value(s.seed, tick, a.ID, "cx"), 3) - 1
	dy := entropy.Index(entropy.Value(s.seed, tick, a.ID, "cy"), 3) - 1
	child := &Agent{
		ID:     s.allocate(),
		X:      clampInt(a.X+dx, 0, s.width-1),
		Y:      clampInt(a.Y+dy, 0, s.height-1),
		Energy: ChildEnergy,
		Health: 100,
		Traits: traits,
		Memory: []string{fmt.Sprintf("born:%d+%d", a.ID, b.ID)},
		Alive:  true,
	}

	a.Energy -= ParentEnergyCost
	b.Energy -= PartnerEnergyCost
	a.Remember(fmt.Sprintf("reproduce:%d", child.ID))
	b.Remember(fmt.Sprintf("reproduce:%d", child.ID))
	return child
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return mathx.Clamp(v, lo, hi)
}
