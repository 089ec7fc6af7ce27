package engine

import (
	"github.com/talgya/tribe-world/internal/mathx"
	"github.com/talgya/tribe-world/internal/social"
)

// upkeepPerMember is the food each member is assumed to need before the
// remainder counts as research surplus.
const upkeepPerMember = 2.0

// updateTechnology advances every tribe's focus technology.
func (r *tickRun) updateTechnology() {
	for _, t := range r.tribes {
		surplus := mathx.NonNeg(t.Shared.Food - float64(t.Size())*upkeepPerMember)
		social.UpdateTechnology(t, surplus, r.positive[t.ID])
	}
}
