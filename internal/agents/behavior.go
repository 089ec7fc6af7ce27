// Per-tick agent rules: movement, harvesting, aging and reproduction eligibility.
package agents

import (
	"fmt"
	"math"

	"github.com/talgya/tribe-world/internal/entropy"
	"github.com/talgya/tribe-world/internal/mathx"
	"github.com/talgya/tribe-world/internal/weather"
	"github.com/talgya/tribe-world/internal/world"
)

// Behavior thresholds.
const (
	PoorFood        = 18.0
	PoorWater       = 14.0
	PoorMigrateBias = 0.65
	RichMigrateBias = 0.15
	CautiousAbove   = 0.7

	MaxEnergy          = 120.0
	HarvestEnergyRatio = 1.8
	TribeContribution  = 0.35

	ReproduceEnergy = 95.0
	PartnerEnergy   = 85.0
	ReproduceAge    = 20
)

// Context carries the tribe-derived modifiers for one agent's turn.
// The zero value plus BeliefHarvest=1 describes an unaffiliated agent.
type Context struct {
	InTribe          bool
	CenterX, CenterY float64
	Leash            float64 // spread beyond which a member heads home

	TechCulture      float64
	EcologyCulture   float64
	WarCulture       float64
	EducationCulture float64

	BeliefHarvest   float64
	EfficiencyBonus float64
	MovementBonus   float64
}

// LoneContext is the context of an agent outside any tribe.
func LoneContext() Context {
	return Context{BeliefHarvest: 1}
}

// MaxStep is how far an agent may move per tick.
func MaxStep(movementBonus float64) int {
	return 1 + int(math.Floor(mathx.ClampF(movementBonus, 0, 0.5)*2))
}

// Move applies one tick of the movement policy.
func Move(a *Agent, m *world.Map, env weather.Environment, ctx Context, seed string, tick uint64) {
	step := MaxStep(ctx.MovementBonus)
	key := fmt.Sprintf("move|%d|%d", a.ID, tick)

	if ctx.InTribe {
		dx := int(math.Round(ctx.CenterX - float64(a.X)))
		dy := int(math.Round(ctx.CenterY - float64(a.Y)))
		if float64(max(mathx.Abs(dx), mathx.Abs(dy))) > ctx.Leash {
			a.X = m.ClampX(a.X + mathx.Sign(dx)*min(step, mathx.Abs(dx)))
			a.Y = m.ClampY(a.Y + mathx.Sign(dy)*min(step, mathx.Abs(dy)))
			return
		}
	}

	bias := RichMigrateBias
	if t := m.At(a.X, a.Y); t != nil && (t.Resources.Food < PoorFood || t.Resources.Water < PoorWater) {
		bias = PoorMigrateBias
	}
	if entropy.Value(seed, key, "migrate") < bias {
		a.X, a.Y = bestLocalMove(m, env, a.X, a.Y, step)
		return
	}

	if a.Traits.Prudence > CautiousAbove {
		return
	}
	span := step*2 + 1
	driftX := entropy.Index(entropy.Value(seed, key, "dx"), span) - step
	driftY := entropy.Index(entropy.Value(seed, key, "dy"), span) - step
	a.X = m.ClampX(a.X + driftX)
	a.Y = m.ClampY(a.Y + driftY)
}

// TileDanger weighs the hazards an agent avoids.
func TileDanger(env weather.Environment, x, y int) float64 {
	fx, fy := float64(x), float64(y)
	return env.Intensity(weather.Wildfire, fx, fy)*14 +
		env.Intensity(weather.Flood, fx, fy)*8 +
		env.Intensity(weather.ColdSnap, fx, fy)*6
}

// bestLocalMove scans the step-radius square and picks the richest, safest tile.
// Ties keep the first candidate in row-major scan order.
func bestLocalMove(m *world.Map, env weather.Environment, x, y, step int) (int, int) {
	bx, by := x, y
	best := math.Inf(-1)
	for dy := -step; dy <= step; dy++ {
		for dx := -step; dx <= step; dx++ {
			nx, ny := m.ClampX(x+dx), m.ClampY(y+dy)
			t := m.At(nx, ny)
			score := t.Resources.Food*1.2 + t.Resources.Water*1.1 + t.Resources.Wood*0.2 - TileDanger(env, nx, ny)
			if score > best {
				best = score
				bx, by = nx, ny
			}
		}
	}
	return bx, by
}

// HarvestYield is the food an agent takes from a tile holding available food.
func HarvestYield(available, intelligence float64, ctx Context) float64 {
	belief := ctx.BeliefHarvest
	if belief == 0 {
		belief = 1
	}
	desired := (1.5 + 2*intelligence) *
		(1 + 0.18*ctx.TechCulture) *
		(1 - 0.15*ctx.EcologyCulture) *
		belief *
		(1 + mathx.ClampF(ctx.EfficiencyBonus, 0, 0.5))
	return mathx.ClampF(desired, 0, mathx.NonNeg(available))
}

// Harvest takes food from t, feeds the agent, and returns the tribe's share.
func Harvest(a *Agent, t *world.Tile, ctx Context) (taken, contributed float64) {
	taken = HarvestYield(t.Resources.Food, a.Traits.Intelligence, ctx)
	t.Resources.Food = mathx.ClampF(t.Resources.Food-taken, 0, t.Caps.Food)

	kept := taken
	if ctx.InTribe {
		contributed = taken * TribeContribution
		kept = taken - contributed
	}
	a.Energy = min(MaxEnergy, a.Energy+kept*HarvestEnergyRatio)
	if taken > 0 {
		a.Remember(fmt.Sprintf("harvest:%.2f", taken))
	}
	return taken, contributed
}

// ApplyLifeCosts burns energy, ages the agent, and reports whether it died.
func ApplyLifeCosts(a *Agent) bool {
	a.Energy -= 1 + min(0.8, float64(a.Age)*0.001)
	a.Age++
	if a.Energy <= 0 {
		a.Kill("energy")
		return true
	}
	return false
}

// CanReproduce reports whether a may initiate reproduction.
func CanReproduce(a *Agent) bool {
	return a.Alive && a.Energy >= ReproduceEnergy && a.Age >= ReproduceAge
}

// CanPartner reports whether a may be chosen as a partner.
func CanPartner(a *Agent) bool {
	return a.Alive && a.Energy >= PartnerEnergy && a.Age >= ReproduceAge
}

// ReproductionChance is the per-tick probability an eligible agent tries to reproduce.
func ReproductionChance(a *Agent, warCulture float64) float64 {
	return 0.02 + a.Traits.Patience*0.02 + warCulture*0.01
}

// Adjacent reports Chebyshev distance ≤ 1.
func Adjacent(a, b *Agent) bool {
	return mathx.Chebyshev(a.X, a.Y, b.X, b.Y) <= 1
}
