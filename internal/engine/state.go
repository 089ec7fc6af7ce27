package engine

import (
	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/social"
	"github.com/talgya/tribe-world/internal/weather"
)

// State is everything a simulation carries between ticks besides the
// world and the agent roster.
type State struct {
	Tribes      []*social.Tribe                        `json:"tribes"`
	Proximity   map[agents.PairKey]int                 `json:"proximityCounters"`
	Memory      map[social.PairKey]social.MemoryRecord `json:"interactionMemory"`
	Environment weather.Environment                    `json:"environmentState"`
	NextAgentID agents.AgentID                         `json:"nextAgentId"`
	NextTribeID social.TribeID                         `json:"nextTribeId"`
}

// NewState returns the state of a fresh simulation.
func NewState() *State {
	return &State{
		Tribes:      []*social.Tribe{},
		Proximity:   map[agents.PairKey]int{},
		Memory:      map[social.PairKey]social.MemoryRecord{},
		Environment: weather.NewEnvironment(),
		NextAgentID: 1,
		NextTribeID: 1,
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := &State{
		Tribes:      social.CloneTribes(s.Tribes),
		Proximity:   make(map[agents.PairKey]int, len(s.Proximity)),
		Memory:      make(map[social.PairKey]social.MemoryRecord, len(s.Memory)),
		Environment: s.Environment.Clone(),
		NextAgentID: s.NextAgentID,
		NextTribeID: s.NextTribeID,
	}
	for k, v := range s.Proximity {
		out.Proximity[k] = v
	}
	for k, v := range s.Memory {
		out.Memory[k] = v
	}
	return out
}

// normalize fills nil collections and repairs the id allocators so that they
// never reissue an id already in use.
func (s *State) normalize(roster []*agents.Agent) {
	if s.Tribes == nil {
		s.Tribes = []*social.Tribe{}
	}
	if s.Proximity == nil {
		s.Proximity = map[agents.PairKey]int{}
	}
	if s.Memory == nil {
		s.Memory = map[social.PairKey]social.MemoryRecord{}
	}
	if s.Environment.Events == nil {
		s.Environment.Events = []weather.Event{}
	}
	for _, a := range roster {
		if a.ID >= s.NextAgentID {
			s.NextAgentID = a.ID + 1
		}
	}
	for _, t := range s.Tribes {
		if t.ID >= s.NextTribeID {
			s.NextTribeID = t.ID + 1
		}
	}
	if s.NextAgentID == 0 {
		s.NextAgentID = 1
	}
	if s.NextTribeID == 0 {
		s.NextTribeID = 1
	}
}
