// Hazard events: transient, spatially localized disturbances.
package weather

import (
	"fmt"

	"github.com/talgya/tribe-world/internal/entropy"
	"github.com/talgya/tribe-world/internal/mathx"
)

// EventType names a hazard kind.
type EventType string

const (
	Drought       EventType = "drought"
	Flood         EventType = "flood"
	Wildfire      EventType = "wildfire"
	ColdSnap      EventType = "coldSnap"
	ResourceBloom EventType = "resourceBloom"
)

// EventTypes lists hazard kinds in spawn-roll order.
var EventTypes = []EventType{Drought, Flood, Wildfire, ColdSnap, ResourceBloom}

// Hazard spawning parameters.
const (
	EventCheckEvery  = 25
	EventSpawnChance = 0.08
	MaxIntensity     = 2.0
)

// Event is an active hazard counting down to removal.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	X              int       `json:"x"`
	Y              int       `json:"y"`
	Radius         int       `json:"radius"`
	Intensity      float64   `json:"intensity"`
	DurationTicks  int       `json:"durationTicks"`
	RemainingTicks int       `json:"remainingTicks"`
	StartedAtTick  uint64    `json:"startedAtTick"`
}

// ValidEventType reports whether t is a known hazard kind.
func ValidEventType(t EventType) bool {
	for _, k := range EventTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Influence returns this event's contribution at (x, y).
func (e Event) Influence(x, y float64) float64 {
	r := float64(max(1, e.Radius))
	d := mathx.Euclid(x, y, float64(e.X), float64(e.Y))
	if d > float64(e.Radius) {
		return 0
	}
	return e.Intensity * max(0, 1-d/r)
}

// IntensityAt sums the influence of all events of type t at (x, y), clamped to [0, 2].
func IntensityAt(events []Event, t EventType, x, y float64) float64 {
	total := 0.0
	for _, e := range events {
		if e.Type != t {
			continue
		}
		total += e.Influence(x, y)
	}
	return mathx.ClampF(total, 0, MaxIntensity)
}

// countDown decrements every event and drops the ones that reach zero.
func countDown(events []Event) []Event {
	next := make([]Event, 0, len(events))
	for _, e := range events {
		e.RemainingTicks--
		if e.RemainingTicks > 0 {
			next = append(next, e)
		}
	}
	return next
}

// maybeSpawn rolls for a new hazard on check ticks.
func maybeSpawn(events []Event, seed string, tick uint64, width, height int) []Event {
	if tick%EventCheckEvery != 0 {
		return events
	}
	if entropy.Value(seed, "env-event-prob", tick) >= EventSpawnChance {
		return events
	}

	kind := EventTypes[entropy.Index(entropy.Value(seed, "env-event-type", tick), len(EventTypes))]
	duration := 25 + int(entropy.Value(seed, "env-event-duration", tick)*70)
	e := Event{
		ID:             fmt.Sprintf("%s-%d-%d", kind, tick, len(events)+1),
		Type:           kind,
		X:              entropy.Index(entropy.Value(seed, "env-event-x", tick), width),
		Y:              entropy.Index(entropy.Value(seed, "env-event-y", tick), height),
		Radius:         5 + int(entropy.Value(seed, "env-event-radius", tick)*9),
		Intensity:      mathx.ClampF(0.25+entropy.Value(seed, "env-event-intensity", tick)*0.65, 0.2, 1),
		DurationTicks:  duration,
		RemainingTicks: duration,
		StartedAtTick:  tick,
	}
	return append(events, e)
}
