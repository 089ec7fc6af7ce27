// Environment stages: season/climate/hazard advance, regeneration, and the
// hazard-driven tribe events.
package engine

import (
	"github.com/talgya/tribe-world/internal/mathx"
	"github.com/talgya/tribe-world/internal/social"
	"github.com/talgya/tribe-world/internal/weather"
	"github.com/talgya/tribe-world/internal/world"
)

// hazardReach is how far beyond an event's radius a tribe center still feels it.
const hazardReach = 2.0

// advanceEnvironment moves the environment to this tick and regrows the world under it.
func (r *tickRun) advanceEnvironment(w *world.Map) {
	r.env = r.prev.Environment.Advance(r.seed, r.tick, w.Width, w.Height)
	r.world = world.Regenerate(w, r.env, 1)
}

func catastrophic(t weather.EventType) bool {
	return t == weather.Drought || t == weather.ColdSnap || t == weather.Wildfire
}

// environmentTribeEvents turns nearby destructive hazards into catastrophe
// events and nudges the affected tribes toward ecology and spirituality.
func (r *tickRun) environmentTribeEvents() {
	for _, t := range r.tribes {
		for _, ev := range r.env.Events {
			if !catastrophic(ev.Type) {
				continue
			}
			if mathx.Euclid(t.CenterX, t.CenterY, float64(ev.X), float64(ev.Y)) > float64(ev.Radius)+hazardReach {
				continue
			}
			r.addEvent(t.ID, social.EventCatastrophe, ev.Intensity)
			t.Culture.Add(social.AxisEcology, 0.003*ev.Intensity)
			t.Culture.Add(social.AxisSpirituality, 0.003*ev.Intensity)
		}
	}
}
