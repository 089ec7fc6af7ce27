// Agent relationships: proximity counters and local energy sharing.
package engine

import (
	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/mathx"
)

// Relationship distances and thresholds.
const (
	NearDistance  = 2
	ShareDistance = 1
	ShareMinTicks = 2
)

// updateProximity counts consecutive ticks each live pair spends within
// NearDistance. A pair that separates loses its counter.
func (r *tickRun) updateProximity() {
	r.proximity = map[agents.PairKey]int{}
	for i, a := range r.merged {
		for _, b := range r.merged[i+1:] {
			if mathx.Chebyshev(a.X, a.Y, b.X, b.Y) > NearDistance {
				continue
			}
			k := agents.NewPairKey(a.ID, b.ID)
			r.proximity[k] = r.prev.Proximity[k] + 1
		}
	}
}

// shareEnergy lets a well-fed agent pass energy to a hungry neighbor it has
// stayed close to. The gap required grows with the pair's war culture.
func (r *tickRun) shareEnergy() {
	r.exchanges = map[agents.PairKey]bool{}
	p := r.policy
	for i, a := range r.merged {
		for _, b := range r.merged[i+1:] {
			k := agents.NewPairKey(a.ID, b.ID)
			if r.proximity[k] < ShareMinTicks || mathx.Chebyshev(a.X, a.Y, b.X, b.Y) > ShareDistance {
				continue
			}
			war := 0.0
			if t, ok := r.tribeOf(a.ID); ok {
				war = max(war, t.Culture.War)
			}
			if t, ok := r.tribeOf(b.ID); ok {
				war = max(war, t.Culture.War)
			}
			donor, receiver := b, a
			if a.Energy > b.Energy {
				donor, receiver = a, b
			}
			if donor.Energy-receiver.Energy > p.ShareThreshold(war) && donor.Energy > p.ShareDonorMin {
				donor.Energy -= p.ShareAmount
				receiver.Energy = min(agents.MaxEnergy, receiver.Energy+p.ShareAmount)
				r.exchanges[k] = true
			}
		}
	}
}
