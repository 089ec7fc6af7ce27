// Agent turns: movement, harvesting, life costs and reproduction.
package engine

import (
	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/entropy"
	"github.com/talgya/tribe-world/internal/social"
)

// leashRatio is the share of MaxSpread a member may stray before heading home.
const leashRatio = 0.6

// agentContext builds the tribe-derived modifiers for one agent.
func (r *tickRun) agentContext(a *agents.Agent) agents.Context {
	t, ok := r.tribeOf(a.ID)
	if !ok {
		return agents.LoneContext()
	}
	mods := r.beliefMods[t.ID]
	fx := r.techFx[t.ID]
	return agents.Context{
		InTribe:          true,
		CenterX:          t.CenterX,
		CenterY:          t.CenterY,
		Leash:            social.MaxSpread * leashRatio,
		TechCulture:      t.Culture.Tech,
		EcologyCulture:   t.Culture.Ecology,
		WarCulture:       t.Culture.War,
		EducationCulture: t.Culture.Education,
		BeliefHarvest:    mods.Harvest,
		EfficiencyBonus:  fx.Efficiency,
		MovementBonus:    fx.Movement,
	}
}

// runAgents gives every live agent its turn in roster order.
func (r *tickRun) runAgents() {
	for _, a := range r.roster {
		if !a.Alive {
			continue
		}
		ctx := r.agentContext(a)
		agents.Move(a, r.world, r.env, ctx, r.seed, r.tick)

		tile := r.world.At(a.X, a.Y)
		_, contributed := agents.Harvest(a, tile, ctx)
		if t, ok := r.tribeOf(a.ID); ok {
			t.Shared.Food += contributed
		}

		if agents.ApplyLifeCosts(a) {
			r.energyDeaths++
			if tid, ok := r.memberOf[a.ID]; ok {
				r.deathsBy[tid]++
			}
			continue
		}
		r.maybeReproduce(a, ctx)
	}
}

// maybeReproduce rolls for a birth and finds an adjacent partner,
// preferring one from the same tribe (or another loner, for a loner).
func (r *tickRun) maybeReproduce(a *agents.Agent, ctx agents.Context) {
	if !agents.CanReproduce(a) {
		return
	}
	roll := entropy.Value(r.seed, "repro", a.ID, r.tick, "chance")
	if roll > agents.ReproductionChance(a, ctx.WarCulture) {
		return
	}

	ownTribe, ownOK := r.memberOf[a.ID]
	eligible := func(c *agents.Agent) bool {
		return c.ID != a.ID && agents.CanPartner(c) && agents.Adjacent(a, c)
	}
	var partner *agents.Agent
	for _, c := range r.roster {
		if !eligible(c) {
			continue
		}
		if tid, ok := r.memberOf[c.ID]; ok == ownOK && tid == ownTribe {
			partner = c
			break
		}
	}
	if partner == nil {
		for _, c := range r.roster {
			if eligible(c) {
				partner = c
				break
			}
		}
	}
	if partner == nil {
		return
	}

	child := r.spawner.Reproduce(a, partner, r.tick, ctx.EducationCulture)
	r.newborns = append(r.newborns, child)

	b := birth{child: child.ID}
	if tid, ok := r.memberOf[a.ID]; ok {
		b.tribe, b.inTribe = tid, true
	} else if tid, ok := r.memberOf[partner.ID]; ok {
		b.tribe, b.inTribe = tid, true
	}
	r.births = append(r.births, b)
}

// mergeRoster joins survivors and newborns into the roster for the social stages.
func (r *tickRun) mergeRoster() {
	r.merged = make([]*agents.Agent, 0, len(r.roster)+len(r.newborns))
	for _, a := range r.roster {
		if a.Alive {
			r.merged = append(r.merged, a)
		}
	}
	r.merged = append(r.merged, r.newborns...)
	r.liveIndex()
}
