// Resource regeneration under seasonal, climate and hazard modifiers.
package world

import (
	"github.com/talgya/tribe-world/internal/mathx"
	"github.com/talgya/tribe-world/internal/weather"
)

// Multipliers scales per-resource regeneration on one tile.
type Multipliers struct {
	Food, Wood, Water, Materials float64
}

// HazardMultipliers combines the season profile with hazard intensities at (x, y).
func HazardMultipliers(env weather.Environment, x, y int) Multipliers {
	fx, fy := float64(x), float64(y)
	drought := env.Intensity(weather.Drought, fx, fy)
	flood := env.Intensity(weather.Flood, fx, fy)
	fire := env.Intensity(weather.Wildfire, fx, fy)
	cold := env.Intensity(weather.ColdSnap, fx, fy)
	bloom := env.Intensity(weather.ResourceBloom, fx, fy)
	season := env.Profile()

	return Multipliers{
		Food:      max(0.1, season.Food*(1-drought*0.35)*(1-fire*0.45)*(1-cold*0.3)*(1+bloom*0.4)),
		Wood:      max(0.1, season.Wood*(1-fire*0.5)*(1-drought*0.2)*(1+bloom*0.25)),
		Water:     max(0.1, season.Water*(1-drought*0.5)*(1+flood*0.55)),
		Materials: max(0.1, (1+flood*0.15)*(1-fire*0.1)),
	}
}

// EffectiveCaps adjusts biome caps for the global climate shift. With no
// shift the caps equal the biome profile. Caps are recomputed from the
// profile every tick so drift never compounds.
func EffectiveCaps(b Biome, tempShift, humidityShift float64) Resources {
	base := BaseCaps(b)
	return Resources{
		Food:      mathx.NonNeg(base.Food * (1 + humidityShift*0.08 - tempShift*0.06)),
		Wood:      mathx.NonNeg(base.Wood * (1 + humidityShift*0.04 - tempShift*0.04)),
		Water:     mathx.NonNeg(base.Water * (1 + humidityShift*0.12 - tempShift*0.08)),
		Materials: base.Materials,
	}
}

// Regenerate returns a new map advanced by ticks of regeneration under env.
// The input map is not modified.
func Regenerate(m *Map, env weather.Environment, ticks int) *Map {
	out := m.Clone()
	season := env.Profile()
	n := float64(max(ticks, 0))

	for i := range out.Tiles {
		t := &out.Tiles[i]
		t.Temperature = mathx.Clamp01(t.BaseTemperature + season.TempShift + env.Climate.TempShift)
		t.Humidity = mathx.Clamp01(t.BaseHumidity + season.HumidityShift + env.Climate.HumidityShift)
		t.Caps = EffectiveCaps(t.Biome, env.Climate.TempShift, env.Climate.HumidityShift)

		rate := RegenRates(t.Biome)
		mul := HazardMultipliers(env, t.X, t.Y)
		t.Resources = Resources{
			Food:      regrow(t.Resources.Food, rate.Food*mul.Food*n, t.Caps.Food),
			Wood:      regrow(t.Resources.Wood, rate.Wood*mul.Wood*n, t.Caps.Wood),
			Water:     regrow(t.Resources.Water, rate.Water*mul.Water*n, t.Caps.Water),
			Materials: regrow(t.Resources.Materials, rate.Materials*mul.Materials*n, t.Caps.Materials),
		}
	}
	return out
}

func regrow(current, amount, limit float64) float64 {
	return mathx.ClampF(current+amount, 0, limit)
}

// Sanitize clamps every tile's resources into [0, cap] and repairs non-finite fields.
func Sanitize(m *Map) {
	for i := range m.Tiles {
		t := &m.Tiles[i]
		t.Altitude = mathx.Clamp01(t.Altitude)
		t.Temperature = mathx.Clamp01(t.Temperature)
		t.Humidity = mathx.Clamp01(t.Humidity)
		t.BaseTemperature = mathx.Clamp01(t.BaseTemperature)
		t.BaseHumidity = mathx.Clamp01(t.BaseHumidity)
		t.Caps = Resources{
			Food:      mathx.NonNeg(t.Caps.Food),
			Wood:      mathx.NonNeg(t.Caps.Wood),
			Water:     mathx.NonNeg(t.Caps.Water),
			Materials: mathx.NonNeg(t.Caps.Materials),
		}
		t.Resources = Resources{
			Food:      mathx.ClampF(t.Resources.Food, 0, t.Caps.Food),
			Wood:      mathx.ClampF(t.Resources.Wood, 0, t.Caps.Wood),
			Water:     mathx.ClampF(t.Resources.Water, 0, t.Caps.Water),
			Materials: mathx.ClampF(t.Resources.Materials, 0, t.Caps.Materials),
		}
	}
}
