// Culture: the six-axis tribe profile and its per-tick evolution.
package social

import (
	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/entropy"
	"github.com/talgya/tribe-world/internal/mathx"
)

// Axis names a culture dimension.
type Axis string

const (
	AxisTech         Axis = "tech"
	AxisWar          Axis = "war"
	AxisEducation    Axis = "education"
	AxisTrade        Axis = "trade"
	AxisEcology      Axis = "ecology"
	AxisSpirituality Axis = "spirituality"
)

// Axes lists culture axes in canonical order. Dominance ties go to the earlier axis.
var Axes = []Axis{AxisTech, AxisWar, AxisEducation, AxisTrade, AxisEcology, AxisSpirituality}

// Culture axis values, each in [0, 1].
type Culture struct {
	Tech         float64 `json:"tech"`
	War          float64 `json:"war"`
	Education    float64 `json:"education"`
	Trade        float64 `json:"trade"`
	Ecology      float64 `json:"ecology"`
	Spirituality float64 `json:"spirituality"`
}

// NeutralCulture has every axis at 0.5.
func NeutralCulture() Culture {
	return Culture{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
}

func (c *Culture) ref(a Axis) *float64 {
	switch a {
	case AxisTech:
		return &c.Tech
	case AxisWar:
		return &c.War
	case AxisEducation:
		return &c.Education
	case AxisTrade:
		return &c.Trade
	case AxisEcology:
		return &c.Ecology
	case AxisSpirituality:
		return &c.Spirituality
	}
	return nil
}

// Get returns one axis.
func (c Culture) Get(a Axis) float64 {
	if p := c.ref(a); p != nil {
		return *p
	}
	return 0
}

// Add shifts one axis and clamps it to [0, 1].
func (c *Culture) Add(a Axis, d float64) {
	if p := c.ref(a); p != nil {
		*p = mathx.Clamp01(*p + d)
	}
}

// Set assigns one axis, clamped.
func (c *Culture) Set(a Axis, v float64) {
	if p := c.ref(a); p != nil {
		*p = mathx.Clamp01(v)
	}
}

// Clamp bounds every axis to [0, 1].
func (c *Culture) Clamp() {
	for _, a := range Axes {
		c.Set(a, c.Get(a))
	}
}

// Dominant returns the highest axis.
func (c Culture) Dominant() Axis {
	best := Axes[0]
	for _, a := range Axes[1:] {
		if c.Get(a) > c.Get(best) {
			best = a
		}
	}
	return best
}

// FounderCulture derives a starting culture from the founders' traits.
func FounderCulture(founders []*agents.Agent) Culture {
	if len(founders) == 0 {
		return NeutralCulture()
	}
	avg := func(f func(agents.Traits) float64) float64 {
		sum := 0.0
		for _, a := range founders {
			sum += f(a.Traits)
		}
		return mathx.Clamp01(sum / float64(len(founders)))
	}
	return Culture{
		Tech:         avg(func(t agents.Traits) float64 { return t.Intelligence }),
		War:          avg(func(t agents.Traits) float64 { return t.Aggression }),
		Education:    avg(func(t agents.Traits) float64 { return 1 - t.Curiosity*0.5 + t.Patience*0.5 }),
		Trade:        avg(func(t agents.Traits) float64 { return 0.5 + (t.Curiosity-t.Aggression)*0.4 }),
		Ecology:      avg(func(t agents.Traits) float64 { return t.EcoConsciousness }),
		Spirituality: avg(func(t agents.Traits) float64 { return 0.4 + t.Prudence*0.6 }),
	}
}

// CultureContext summarizes the pressures that push a tribe's culture this tick.
type CultureContext struct {
	Surplus       float64
	Deaths        int
	OveruseRatio  float64
	CloseExternal int
}

// Culture evolution constants.
const (
	CultureDecay     = 0.001
	cultureDriftSpan = 0.004
)

// EvolveCulture nudges axes from the tick's pressures, then decays every axis.
func EvolveCulture(t *Tribe, ctx CultureContext, seed string, tick uint64) {
	nudge := func(a Axis, d float64) {
		drift := (entropy.Value(seed, "culture", t.ID, tick, string(a)) - 0.5) * cultureDriftSpan
		t.Culture.Add(a, d+drift)
	}
	if ctx.Surplus > 14 {
		if entropy.Value(seed, "culture-surplus", t.ID, tick) > 0.5 {
			nudge(AxisTech, 0.01)
		} else {
			nudge(AxisEducation, 0.01)
		}
	}
	if ctx.Deaths > 0 {
		if entropy.Value(seed, "culture-loss", t.ID, tick) > 0.5 {
			nudge(AxisWar, 0.012)
		} else {
			nudge(AxisSpirituality, 0.012)
		}
	}
	if ctx.OveruseRatio > 0.35 {
		nudge(AxisEcology, 0.012)
	}
	if ctx.CloseExternal > 0 {
		nudge(AxisTrade, 0.006*float64(ctx.CloseExternal))
	}
	for _, a := range Axes {
		t.Culture.Add(a, -CultureDecay)
	}
}
