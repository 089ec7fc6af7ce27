// Package social provides tribes and the systems that act on them:
// culture, beliefs, technology and tribe-to-tribe interaction.
package social

import (
	"sort"
	"strconv"

	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/mathx"
)

// TribeID is a unique identifier for a tribe.
type TribeID uint64

// String formats the id for keys and logs.
func (id TribeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Tribe membership limits.
const (
	MinMembers = 2
	MaxSpread  = 12
	MaxSize    = 64
)

// Stock is a tribe's shared resource pool.
type Stock struct {
	Food      float64 `json:"food"`
	Wood      float64 `json:"wood"`
	Materials float64 `json:"materials"`
}

// Tribe is a persistent group of agents.
type Tribe struct {
	ID        TribeID                `json:"id"`
	Members   []agents.AgentID       `json:"members"`
	Shared    Stock                  `json:"sharedResources"`
	CenterX   float64                `json:"centerX"`
	CenterY   float64                `json:"centerY"`
	Stability float64                `json:"stability"`
	Culture   Culture                `json:"culture"`
	Beliefs   []Belief               `json:"beliefs"`
	Techs     map[string]*Technology `json:"technologies"`

	TechProgressRate float64 `json:"techProgressRate"`
	GlobalTechLevel  int     `json:"globalTechLevel"`
}

// NewTribe founds a tribe from its first members.
func NewTribe(id TribeID, founders []*agents.Agent) *Tribe {
	t := &Tribe{
		ID:        id,
		Shared:    Stock{Food: 8},
		Stability: 1,
		Culture:   FounderCulture(founders),
		Beliefs:   []Belief{},
		Techs:     map[string]*Technology{},
	}
	for _, a := range founders {
		t.AddMember(a.ID)
	}
	return t
}

// Clone returns a deep copy.
func (t *Tribe) Clone() *Tribe {
	out := *t
	out.Members = append([]agents.AgentID(nil), t.Members...)
	out.Beliefs = append([]Belief(nil), t.Beliefs...)
	out.Techs = make(map[string]*Technology, len(t.Techs))
	for id, tech := range t.Techs {
		c := *tech
		out.Techs[id] = &c
	}
	return &out
}

// CloneTribes deep-copies a tribe list.
func CloneTribes(list []*Tribe) []*Tribe {
	out := make([]*Tribe, len(list))
	for i, t := range list {
		out[i] = t.Clone()
	}
	return out
}

// HasMember reports whether id belongs to the tribe.
func (t *Tribe) HasMember(id agents.AgentID) bool {
	for _, m := range t.Members {
		if m == id {
			return true
		}
	}
	return false
}

// AddMember appends id unless already present.
func (t *Tribe) AddMember(id agents.AgentID) bool {
	if t.HasMember(id) {
		return false
	}
	t.Members = append(t.Members, id)
	return true
}

// Size returns the member count.
func (t *Tribe) Size() int {
	return len(t.Members)
}

// Center returns the tribe's center position.
func (t *Tribe) Center() (float64, float64) {
	return t.CenterX, t.CenterY
}

// RefreshCenter sets the center to the mean position of live members.
// With no live members the center falls back to the origin.
func (t *Tribe) RefreshCenter(live map[agents.AgentID]*agents.Agent) {
	var sx, sy float64
	n := 0
	for _, id := range t.Members {
		a, ok := live[id]
		if !ok {
			continue
		}
		sx += float64(a.X)
		sy += float64(a.Y)
		n++
	}
	if n == 0 {
		t.CenterX, t.CenterY = 0, 0
		return
	}
	t.CenterX = sx / float64(n)
	t.CenterY = sy / float64(n)
}

// Spread is the Chebyshev distance from the tribe center to a.
func (t *Tribe) Spread(a *agents.Agent) float64 {
	return mathx.Chebyshev(float64(a.X), float64(a.Y), t.CenterX, t.CenterY)
}

// DistanceTo is the Chebyshev distance between two tribe centers.
func (t *Tribe) DistanceTo(o *Tribe) float64 {
	return mathx.Chebyshev(t.CenterX, t.CenterY, o.CenterX, o.CenterY)
}

// Prune drops dead and over-spread members and refreshes the center.
// It reports whether the tribe still has enough members to exist.
func (t *Tribe) Prune(live map[agents.AgentID]*agents.Agent) bool {
	kept := t.Members[:0]
	for _, id := range t.Members {
		if _, ok := live[id]; ok {
			kept = append(kept, id)
		}
	}
	t.Members = kept
	t.RefreshCenter(live)

	kept = t.Members[:0]
	for _, id := range t.Members {
		if t.Spread(live[id]) <= MaxSpread {
			kept = append(kept, id)
		}
	}
	t.Members = kept
	if len(t.Members) < MinMembers {
		return false
	}
	t.RefreshCenter(live)
	return true
}

// AddStability shifts stability; it never drops below zero.
func (t *Tribe) AddStability(d float64) {
	t.Stability = mathx.NonNeg(t.Stability + d)
}

// Sanitize repairs non-finite or out-of-range fields.
func (t *Tribe) Sanitize() {
	t.Stability = mathx.NonNeg(t.Stability)
	t.Shared.Food = mathx.NonNeg(t.Shared.Food)
	t.Shared.Wood = mathx.NonNeg(t.Shared.Wood)
	t.Shared.Materials = mathx.NonNeg(t.Shared.Materials)
	t.CenterX = mathx.Finite(t.CenterX, 0)
	t.CenterY = mathx.Finite(t.CenterY, 0)
	t.Culture.Clamp()
	t.TechProgressRate = mathx.NonNeg(t.TechProgressRate)
	if t.GlobalTechLevel < 0 {
		t.GlobalTechLevel = 0
	}
	if t.Techs == nil {
		t.Techs = map[string]*Technology{}
	}
	for _, tech := range t.Techs {
		tech.sanitize()
	}
	for i := range t.Beliefs {
		t.Beliefs[i].Strength = mathx.Clamp01(t.Beliefs[i].Strength)
		if t.Beliefs[i].Age < 0 {
			t.Beliefs[i].Age = 0
		}
	}
}

// SortTribes orders tribes by id.
func SortTribes(list []*Tribe) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}
