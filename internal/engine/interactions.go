// Tribe interactions: pair selection, decisions, payoffs, casualties and
// the trust memory.
package engine

import (
	"sort"

	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/entropy"
	"github.com/talgya/tribe-world/internal/mathx"
	"github.com/talgya/tribe-world/internal/social"
)

// Breakdown counts chosen actions across a tick's interactions.
type Breakdown struct {
	Trade     int `json:"trade"`
	Cooperate int `json:"cooperate"`
	Betray    int `json:"betray"`
	Attack    int `json:"attack"`
	Avoid     int `json:"avoid"`
}

// Add counts one action.
func (b *Breakdown) Add(a social.Action) {
	switch a {
	case social.ActionTrade:
		b.Trade++
	case social.ActionCooperate:
		b.Cooperate++
	case social.ActionBetray:
		b.Betray++
	case social.ActionAttack:
		b.Attack++
	case social.ActionAvoid:
		b.Avoid++
	}
}

type tribePair struct {
	a, b *social.Tribe
	dist float64
}

// candidatePairs lists tribe pairs within range, nearest first.
func (r *tickRun) candidatePairs() []tribePair {
	var pairs []tribePair
	for i, a := range r.tribes {
		for _, b := range r.tribes[i+1:] {
			if d := a.DistanceTo(b); d < r.policy.InteractionRange {
				pairs = append(pairs, tribePair{a: a, b: b, dist: d})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].dist < pairs[j].dist })
	if len(pairs) > r.policy.MaxInteractions {
		pairs = pairs[:max(0, r.policy.MaxInteractions)]
	}
	return pairs
}

// resolveInteractions plays out the nearest tribe pairs.
func (r *tickRun) resolveInteractions() {
	r.memory = make(map[social.PairKey]social.MemoryRecord, len(r.prev.Memory))
	for k, v := range r.prev.Memory {
		r.memory[k] = v
	}
	r.interactions = []InteractionEvent{}
	for _, pr := range r.candidatePairs() {
		r.interact(pr.a, pr.b)
	}
}

func (r *tickRun) modifiers(id social.TribeID) social.BeliefModifiers {
	if m, ok := r.beliefMods[id]; ok {
		return m
	}
	return social.NeutralModifiers()
}

func (r *tickRun) interact(ta, tb *social.Tribe) {
	p := r.policy
	key := social.NewPairKey(ta.ID, tb.ID)
	mem, ok := r.memory[key]
	if !ok {
		mem = social.NewMemoryRecord()
	}
	mem = mem.Normalize()
	// Records are keyed smaller id first; view them from each side.
	memA := mem
	if ta.ID != key.A {
		memA.LastActions = mem.LastActions.Swapped()
	}
	memB := memA
	memB.LastActions = memA.LastActions.Swapped()

	recent := mem.RecentConflict(r.tick, p)
	modA, modB := r.modifiers(ta.ID), r.modifiers(tb.ID)
	fxA, fxB := ta.Effects(), tb.Effects()

	rollA := entropy.Value(r.seed, "interaction", r.tick, key, "a")
	rollB := entropy.Value(r.seed, "interaction", r.tick, key, "b")
	actA := p.Decide(ta, tb, memA, social.Bias{Peace: modA.PeaceBias, Conflict: modA.ConflictBias}, rollA)
	actB := p.Decide(tb, ta, memB, social.Bias{Peace: modB.PeaceBias, Conflict: modB.ConflictBias}, rollB)
	actA, actB = social.Cooldown(actA, actB, recent)

	out := p.Resolve(ta, tb, actA, actB, (rollA+rollB)/2)
	killedA := r.casualties(ta, out.DeadA, fxA.Defense)
	killedB := r.casualties(tb, out.DeadB, fxB.Defense)
	r.combatDeaths += killedA + killedB

	delta := out.TrustDelta*(1+max(fxA.Trade, fxB.Trade)) + (modA.TrustGain+modB.TrustGain)*0.5
	first, second := actA, actB
	if ta.ID != key.A {
		first, second = actB, actA
	}
	updated := social.UpdateMemory(mem, first, second, delta, r.tick)
	r.memory[key] = updated

	social.Diffuse(ta, tb, updated.Trust, entropy.Value(r.seed, "belief-diffuse", r.tick, key, "ab"))
	social.Diffuse(tb, ta, updated.Trust, entropy.Value(r.seed, "belief-diffuse", r.tick, key, "ba"))

	switch {
	case actA == social.ActionTrade && actB == social.ActionTrade:
		r.addEvent(ta.ID, social.EventSuccessTrade, 0.6)
		r.addEvent(tb.ID, social.EventSuccessTrade, 0.6)
		r.positive[ta.ID]++
		r.positive[tb.ID]++
	case actA == social.ActionCooperate && actB == social.ActionCooperate:
		r.positive[ta.ID]++
		r.positive[tb.ID]++
	case actA == social.ActionAttack || actB == social.ActionAttack:
		if killedB > killedA {
			r.addEvent(ta.ID, social.EventVictoryAttack, 0.7)
		}
		if killedA > killedB {
			r.addEvent(tb.ID, social.EventVictoryAttack, 0.7)
		}
	}

	r.breakdown.Add(actA)
	r.breakdown.Add(actB)
	r.interactions = append(r.interactions, InteractionEvent{
		TribeA:    ta.ID,
		TribeB:    tb.ID,
		From:      Point{X: ta.CenterX, Y: ta.CenterY},
		To:        Point{X: tb.CenterX, Y: tb.CenterY},
		ActionA:   actA,
		ActionB:   actB,
		EventType: out.EventType,
	})
}

// casualties kills up to count members, weakest first, reduced by defense.
// The last live member always survives.
func (r *tickRun) casualties(t *social.Tribe, count int, defense float64) int {
	adjusted := int(float64(count) * (1 - mathx.ClampF(defense, 0, social.MaxBonus)))
	if adjusted <= 0 {
		return 0
	}
	members := make([]*agents.Agent, 0, t.Size())
	for _, id := range t.Members {
		if a := r.live[id]; a != nil && a.Alive {
			members = append(members, a)
		}
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].Energy < members[j].Energy })
	n := min(adjusted, max(0, len(members)-1))
	for _, a := range members[:n] {
		a.Kill("combat")
		delete(r.live, a.ID)
	}
	return n
}
