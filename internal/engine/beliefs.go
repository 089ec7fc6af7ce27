package engine

import (
	"github.com/talgya/tribe-world/internal/entropy"
	"github.com/talgya/tribe-world/internal/social"
)

// processBeliefs turns this tick's tribe events into beliefs, ages every
// belief, then applies belief culture effects once.
func (r *tickRun) processBeliefs() {
	for _, t := range r.tribes {
		for i, ev := range r.events[t.ID] {
			roll := entropy.Value(r.seed, "belief-create", t.ID, r.tick, i, "roll")
			if b, ok := social.BeliefFromEvent(t, ev, r.tick, roll); ok {
				t.AddBelief(b)
			}
		}
		t.AgeBeliefs(social.BeliefFeedback(t.Stability))
		t.ApplyBeliefCulture()
	}
}
