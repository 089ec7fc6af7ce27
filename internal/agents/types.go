// Package agents provides the agent data model, its lifecycle rules,
// and the id allocator used for spawning and reproduction.
package agents

import (
	"fmt"
	"strconv"
)

// AgentID is a unique identifier for an agent.
type AgentID uint64

// String formats the id for keys and logs.
func (id AgentID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Traits are heritable behavioral scalars, each in [0, 1].
type Traits struct {
	Curiosity        float64 `json:"curiosite"`
	Intelligence     float64 `json:"intelligence"`
	Aggression       float64 `json:"agressivite"`
	Prudence         float64 `json:"prudence"`
	Patience         float64 `json:"patience"`
	EcoConsciousness float64 `json:"conscience_ecologique"`
}

// TraitNames lists the trait keys in canonical order.
var TraitNames = []string{"curiosite", "intelligence", "agressivite", "prudence", "patience", "conscience_ecologique"}

// Get returns a trait by key.
func (t Traits) Get(name string) float64 {
	switch name {
	case "curiosite":
		return t.Curiosity
	case "intelligence":
		return t.Intelligence
	case "agressivite":
		return t.Aggression
	case "prudence":
		return t.Prudence
	case "patience":
		return t.Patience
	case "conscience_ecologique":
		return t.EcoConsciousness
	}
	return 0
}

// Set assigns a trait by key. Unknown keys are ignored.
func (t *Traits) Set(name string, v float64) {
	switch name {
	case "curiosite":
		t.Curiosity = v
	case "intelligence":
		t.Intelligence = v
	case "agressivite":
		t.Aggression = v
	case "prudence":
		t.Prudence = v
	case "patience":
		t.Patience = v
	case "conscience_ecologique":
		t.EcoConsciousness = v
	}
}

// Agent is one individual in the simulation.
type Agent struct {
	ID     AgentID  `json:"id"`
	X      int      `json:"x"`
	Y      int      `json:"y"`
	Energy float64  `json:"energy"`
	Health float64  `json:"health"`
	Age    int      `json:"age"`
	Traits Traits   `json:"traits"`
	Memory []string `json:"memory"`
	Alive  bool     `json:"isAlive"`
}

// Clone returns a deep copy.
func (a *Agent) Clone() *Agent {
	out := *a
	out.Memory = append([]string(nil), a.Memory...)
	return &out
}

// Kill marks the agent dead. It never revives.
func (a *Agent) Kill(reason string) {
	if !a.Alive {
		return
	}
	a.Alive = false
	a.Energy = 0
	a.Health = 0
	a.Remember("dead:" + reason)
}

// String returns a short description for logs.
func (a *Agent) String() string {
	return fmt.Sprintf("agent %d at (%d,%d) energy=%.1f age=%d", a.ID, a.X, a.Y, a.Energy, a.Age)
}

// CloneAll deep-copies a roster.
func CloneAll(list []*Agent) []*Agent {
	out := make([]*Agent, len(list))
	for i, a := range list {
		out[i] = a.Clone()
	}
	return out
}

// PairKey identifies an unordered pair of agents. A is always the smaller id.
type PairKey struct {
	A, B AgentID
}

// NewPairKey orders the two ids.
func NewPairKey(a, b AgentID) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// String encodes the pair as "a|b".
func (k PairKey) String() string {
	return k.A.String() + "|" + k.B.String()
}

// ParsePairKey decodes "a|b".
func ParsePairKey(s string) (PairKey, error) {
	var a, b uint64
	if _, err := fmt.Sscanf(s, "%d|%d", &a, &b); err != nil {
		return PairKey{}, fmt.Errorf("parse pair key %q: %w", s, err)
	}
	return NewPairKey(AgentID(a), AgentID(b)), nil
}

// MarshalText lets pair keys index JSON objects.
func (k PairKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the "a|b" form.
func (k *PairKey) UnmarshalText(b []byte) error {
	p, err := ParsePairKey(string(b))
	if err != nil {
		return err
	}
	*k = p
	return nil
}
