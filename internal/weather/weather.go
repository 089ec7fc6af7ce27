// Package weather provides the simulation environment: the season cycle,
// slow global climate drift, and transient hazard events.
package weather

import (
	"github.com/talgya/tribe-world/internal/entropy"
	"github.com/talgya/tribe-world/internal/mathx"
)

// Climate drift parameters.
const (
	DefaultDriftRate = 0.0006
	MaxClimateShift  = 0.35
)

// Climate is the slow seeded random walk applied on top of seasons.
type Climate struct {
	TempShift     float64 `json:"globalTempShift"`
	HumidityShift float64 `json:"globalHumidityShift"`
	DriftRate     float64 `json:"driftRate"`
}

// Environment is the full environmental state carried between ticks.
type Environment struct {
	Season  SeasonState `json:"seasonState"`
	Climate Climate     `json:"globalClimateState"`
	Events  []Event     `json:"activeEvents"`
}

// NewEnvironment returns the state at tick zero.
func NewEnvironment() Environment {
	return Environment{
		Season:  SeasonAt(0),
		Climate: Climate{DriftRate: DefaultDriftRate},
		Events:  []Event{},
	}
}

// Clone returns a deep copy.
func (e Environment) Clone() Environment {
	out := e
	out.Events = append([]Event(nil), e.Events...)
	return out
}

// Advance returns the environment for the given tick. The receiver is not modified.
func (e Environment) Advance(seed string, tick uint64, width, height int) Environment {
	next := e.Clone()
	next.Season = SeasonAt(tick)
	next.Climate = e.Climate.drift(seed, tick)
	next.Events = maybeSpawn(countDown(e.Events), seed, tick, width, height)
	return next
}

// Intensity is IntensityAt over the environment's active events.
func (e Environment) Intensity(t EventType, x, y float64) float64 {
	return IntensityAt(e.Events, t, x, y)
}

// Profile returns the current season's multipliers.
func (e Environment) Profile() SeasonProfile {
	return Profile(e.Season.Index)
}

// MeanIntensity averages intensity over active events.
func (e Environment) MeanIntensity() float64 {
	if len(e.Events) == 0 {
		return 0
	}
	sum := 0.0
	for _, ev := range e.Events {
		sum += ev.Intensity
	}
	return sum / float64(len(e.Events))
}

func (c Climate) drift(seed string, tick uint64) Climate {
	rate := mathx.Finite(c.DriftRate, 0)
	if rate <= 0 {
		rate = DefaultDriftRate
	}
	dt := (entropy.Value(seed, "drift-temp", tick) - 0.5) * rate
	dh := (entropy.Value(seed, "drift-humidity", tick) - 0.5) * rate
	return Climate{
		TempShift:     mathx.ClampF(c.TempShift+dt, -MaxClimateShift, MaxClimateShift),
		HumidityShift: mathx.ClampF(c.HumidityShift+dh, -MaxClimateShift, MaxClimateShift),
		DriftRate:     rate,
	}
}
