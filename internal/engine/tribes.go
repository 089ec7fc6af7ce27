// Tribe stages: formation, newborn assignment, recruitment, pruning and
// per-tick upkeep.
package engine

import (
	"sort"

	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/social"
)

// Tribe formation and upkeep thresholds.
const (
	FormationTicks   = 6
	RecruitMinTicks  = 2
	RecruitMinScore  = 2.0
	ExchangeSupport  = 2
	StarvingEnergy   = 30.0
	SupportGrant     = 4.0
	SupportReserve   = 2.0
	SupportRatio     = 1.6
	DepletedRatio    = 0.25
	CatastropheRatio = 0.5
	NeighborDistance = 10.0
)

// formTribes founds tribes from bonded loner pairs, places newborns, recruits
// loners into nearby tribes, then prunes.
func (r *tickRun) formTribes() {
	keys := sortedPairKeys(r.proximity)
	for _, k := range keys {
		if r.proximity[k] < FormationTicks || !r.exchanges[k] {
			continue
		}
		if _, ok := r.memberOf[k.A]; ok {
			continue
		}
		if _, ok := r.memberOf[k.B]; ok {
			continue
		}
		a, b := r.live[k.A], r.live[k.B]
		if a == nil || b == nil {
			continue
		}
		t := social.NewTribe(r.nextTID, []*agents.Agent{a, b})
		r.nextTID++
		t.RefreshCenter(r.live)
		r.tribes = append(r.tribes, t)
		r.byID[t.ID] = t
		r.memberOf[a.ID] = t.ID
		r.memberOf[b.ID] = t.ID
	}

	r.assignNewborns()
	r.recruit(keys)
	r.prune()
}

func (r *tickRun) assignNewborns() {
	for _, b := range r.births {
		if !b.inTribe {
			continue
		}
		if _, ok := r.memberOf[b.child]; ok {
			continue
		}
		t, ok := r.byID[b.tribe]
		if !ok || t.Size() >= social.MaxSize {
			continue
		}
		t.AddMember(b.child)
		r.memberOf[b.child] = t.ID
	}
}

// recruit scores each loner's support from tribe members it has stayed near
// and adds it to the best-scoring tribe in range.
func (r *tickRun) recruit(keys []agents.PairKey) {
	support := map[agents.AgentID]map[social.TribeID]float64{}
	add := func(loner agents.AgentID, tid social.TribeID, score float64) {
		if support[loner] == nil {
			support[loner] = map[social.TribeID]float64{}
		}
		support[loner][tid] += score
	}
	for _, k := range keys {
		ticks := r.proximity[k]
		if ticks < RecruitMinTicks {
			continue
		}
		score := float64(ticks)
		if r.exchanges[k] {
			score += ExchangeSupport
		}
		ta, okA := r.memberOf[k.A]
		tb, okB := r.memberOf[k.B]
		if okA && !okB {
			add(k.B, ta, score)
		}
		if okB && !okA {
			add(k.A, tb, score)
		}
	}

	loners := make([]agents.AgentID, 0, len(support))
	for id := range support {
		loners = append(loners, id)
	}
	sort.Slice(loners, func(i, j int) bool { return loners[i] < loners[j] })

	for _, id := range loners {
		if _, ok := r.memberOf[id]; ok {
			continue
		}
		a := r.live[id]
		if a == nil {
			continue
		}
		var best *social.Tribe
		bestScore := 0.0
		for _, t := range r.tribes {
			s, ok := support[id][t.ID]
			if !ok || t.Size() >= social.MaxSize {
				continue
			}
			spread := t.Spread(a)
			if spread > social.MaxSpread {
				continue
			}
			score := s - spread*0.75 + t.Stability*0.3
			if best == nil || score > bestScore {
				best, bestScore = t, score
			}
		}
		if best == nil || bestScore < RecruitMinScore {
			continue
		}
		best.AddMember(id)
		r.memberOf[id] = best.ID
	}
}

// prune drops dead and over-spread members, dissolves tribes under the
// minimum size, and rebuilds the membership index.
func (r *tickRun) prune() {
	r.liveIndex()
	kept := r.tribes[:0]
	for _, t := range r.tribes {
		if !t.Prune(r.live) {
			r.dissolved++
			continue
		}
		kept = append(kept, t)
	}
	r.tribes = kept
	r.index()
}

// supportTribes feeds starving members from shared stock, records famine and
// mortality, applies storage caps and evolves culture.
func (r *tickRun) supportTribes() {
	for _, t := range r.tribes {
		deaths := r.deathsBy[t.ID]
		helped := 0
		for _, id := range t.Members {
			a := r.live[id]
			if a == nil {
				continue
			}
			if a.Energy < StarvingEnergy && t.Shared.Food > SupportReserve {
				grant := min(SupportGrant, t.Shared.Food)
				t.Shared.Food -= grant
				a.Energy = min(agents.MaxEnergy, a.Energy+grant*SupportRatio)
				helped++
			}
		}

		if helped > 0 && deaths == 0 {
			t.AddStability(0.03 * float64(helped))
		}
		if helped == 0 && t.Shared.Food < 1 {
			t.AddStability(-0.05)
			r.addEvent(t.ID, social.EventFamine, 0.7)
		}
		if deaths > 0 {
			t.AddStability(-0.08 * float64(deaths))
			r.addEvent(t.ID, social.EventMortality, min(1, float64(deaths)*0.12))
		}

		t.ApplyStorageCap(t.Effects().Storage)

		ctx := r.cultureContext(t, deaths)
		if ctx.OveruseRatio > CatastropheRatio {
			r.addEvent(t.ID, social.EventCatastrophe, 0.6)
		}
		social.EvolveCulture(t, ctx, r.seed, r.tick)
	}
}

// cultureContext measures the pressures on a tribe this tick.
func (r *tickRun) cultureContext(t *social.Tribe, deaths int) social.CultureContext {
	var energy float64
	n, depleted := 0, 0
	for _, id := range t.Members {
		a := r.live[id]
		if a == nil {
			continue
		}
		n++
		energy += a.Energy
		tile := r.world.At(a.X, a.Y)
		ratio := 1.0
		if tile.Caps.Food > 0 {
			ratio = tile.Resources.Food / tile.Caps.Food
		}
		if ratio < DepletedRatio {
			depleted++
		}
	}
	ctx := social.CultureContext{Surplus: t.Shared.Food, Deaths: deaths}
	if n > 0 {
		avg := energy / float64(n)
		ctx.Surplus += max(0, avg-70) * float64(n) * 0.05
		ctx.OveruseRatio = float64(depleted) / float64(n)
	}
	for _, o := range r.tribes {
		if o.ID != t.ID && t.DistanceTo(o) <= NeighborDistance {
			ctx.CloseExternal++
		}
	}
	return ctx
}
