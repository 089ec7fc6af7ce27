// Beliefs: tribe-held modifiers born from notable events.
package social

import (
	"fmt"
	"sort"

	"github.com/talgya/tribe-world/internal/mathx"
)

// EventKind names a tribe-scoped event that can seed a belief.
type EventKind string

const (
	EventFamine        EventKind = "famine"
	EventMortality     EventKind = "mortality"
	EventVictoryAttack EventKind = "victory_attack"
	EventSuccessTrade  EventKind = "success_trade"
	EventCatastrophe   EventKind = "catastrophe"
)

// TribeEvent is one event recorded for a tribe during a tick.
type TribeEvent struct {
	Kind      EventKind `json:"type"`
	Intensity float64   `json:"intensity"`
}

// Belief limits.
const (
	MaxBeliefs       = 5
	BeliefDecay      = 0.01
	BeliefFloor      = 0.06
	DiffusedStrength = 0.7
)

// BeliefEffect is the fixed set of modifiers a belief can carry.
// A zero HarvestMultiplier means neutral (1).
type BeliefEffect struct {
	HarvestMultiplier float64 `json:"harvestMultiplier,omitempty"`
	TrustGainBonus    float64 `json:"trustGainBonus,omitempty"`
	PeaceBias         float64 `json:"peaceBias,omitempty"`
	ConflictBias      float64 `json:"conflictBias,omitempty"`
	StabilityBonus    float64 `json:"stabilityBonus,omitempty"`
	WarShift          float64 `json:"warShift,omitempty"`
	TradeShift        float64 `json:"tradeShift,omitempty"`
	EcologyShift      float64 `json:"ecologyShift,omitempty"`
	SacrificeChance   float64 `json:"sacrificeChance,omitempty"`
}

// Harvest returns the harvest multiplier with the neutral default applied.
func (e BeliefEffect) Harvest() float64 {
	if e.HarvestMultiplier == 0 {
		return 1
	}
	return e.HarvestMultiplier
}

// Belief is one tribe-held belief.
type Belief struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Trigger  string       `json:"trigger"`
	Effect   BeliefEffect `json:"effect"`
	Strength float64      `json:"strength"`
	Age      int          `json:"age"`
}

// BeliefTemplate maps an event kind to the belief it can create.
type BeliefTemplate struct {
	Type    string
	Trigger string
	Effect  BeliefEffect
}

var beliefTemplates = map[EventKind]BeliefTemplate{
	EventFamine:        {Type: "survival", Trigger: "famine_severe", Effect: BeliefEffect{HarvestMultiplier: 0.9, StabilityBonus: 0.02}},
	EventMortality:     {Type: "ritual", Trigger: "sacrifice_rite", Effect: BeliefEffect{SacrificeChance: 0.015, StabilityBonus: 0.03}},
	EventVictoryAttack: {Type: "war", Trigger: "war_destiny", Effect: BeliefEffect{ConflictBias: 0.12, WarShift: 0.012}},
	EventSuccessTrade:  {Type: "trade", Trigger: "trader_path", Effect: BeliefEffect{PeaceBias: 0.1, TrustGainBonus: 0.04, TradeShift: 0.01}},
	EventCatastrophe:   {Type: "ecology", Trigger: "sacred_forest", Effect: BeliefEffect{HarvestMultiplier: 0.85, EcologyShift: 0.015}},
}

// TemplateFor returns the belief template for an event kind.
func TemplateFor(kind EventKind) (BeliefTemplate, bool) {
	tpl, ok := beliefTemplates[kind]
	return tpl, ok
}

// CreationProbability is the chance an event turns into a belief.
func CreationProbability(spirituality, intensity, roll float64) float64 {
	return mathx.ClampF(0.05+spirituality*0.25+intensity*0.35+roll*0.05, 0, 0.65)
}

// BeliefFromEvent creates a belief for ev, or reports false when the roll rejects it.
func BeliefFromEvent(t *Tribe, ev TribeEvent, tick uint64, roll float64) (Belief, bool) {
	tpl, ok := TemplateFor(ev.Kind)
	if !ok {
		return Belief{}, false
	}
	if roll > CreationProbability(t.Culture.Spirituality, ev.Intensity, roll) {
		return Belief{}, false
	}
	return Belief{
		ID:       fmt.Sprintf("%d-%s-%d-%d", t.ID, tpl.Trigger, tick, int(roll*10000)),
		Type:     tpl.Type,
		Trigger:  tpl.Trigger,
		Effect:   tpl.Effect,
		Strength: mathx.Clamp01(0.25 + ev.Intensity*0.5 + t.Culture.Spirituality*0.2),
	}, true
}

// HasTrigger reports whether the tribe already holds a belief with this trigger.
func (t *Tribe) HasTrigger(trigger string) bool {
	for _, b := range t.Beliefs {
		if b.Trigger == trigger {
			return true
		}
	}
	return false
}

// AddBelief prepends b unless its trigger is already held, keeping at most MaxBeliefs.
func (t *Tribe) AddBelief(b Belief) bool {
	if t.HasTrigger(b.Trigger) {
		return false
	}
	b.Strength = mathx.Clamp01(b.Strength)
	next := make([]Belief, 0, len(t.Beliefs)+1)
	next = append(next, b)
	next = append(next, t.Beliefs...)
	if len(next) > MaxBeliefs {
		next = next[:MaxBeliefs]
	}
	t.Beliefs = next
	return true
}

// BeliefFeedback is +0.4 for a stable tribe and -0.2 otherwise.
func BeliefFeedback(stability float64) float64 {
	if stability > 1 {
		return 0.4
	}
	return -0.2
}

// AgeBeliefs applies one tick of growth or decay and drops faded beliefs.
func (t *Tribe) AgeBeliefs(feedback float64) {
	next := make([]Belief, 0, len(t.Beliefs))
	for _, b := range t.Beliefs {
		b.Strength = mathx.Clamp01(b.Strength + feedback*0.04 - BeliefDecay)
		b.Age++
		if b.Strength >= BeliefFloor {
			next = append(next, b)
		}
	}
	if len(next) > MaxBeliefs {
		next = next[:MaxBeliefs]
	}
	t.Beliefs = next
}

// BeliefModifiers is the aggregate effect of a tribe's beliefs.
type BeliefModifiers struct {
	Harvest      float64
	TrustGain    float64
	PeaceBias    float64
	ConflictBias float64
}

// NeutralModifiers is the aggregate of no beliefs.
func NeutralModifiers() BeliefModifiers {
	return BeliefModifiers{Harvest: 1}
}

// Modifiers aggregates belief effects weighted by strength.
func (t *Tribe) Modifiers() BeliefModifiers {
	m := NeutralModifiers()
	for _, b := range t.Beliefs {
		w := b.Strength
		m.Harvest *= 1 + (b.Effect.Harvest()-1)*w
		m.TrustGain += b.Effect.TrustGainBonus * w
		m.PeaceBias += b.Effect.PeaceBias * w
		m.ConflictBias += b.Effect.ConflictBias * w
	}
	m.Harvest = mathx.ClampF(m.Harvest, 0.65, 1.2)
	return m
}

// ApplyBeliefCulture applies belief culture shifts and stability bonuses.
func (t *Tribe) ApplyBeliefCulture() {
	for _, b := range t.Beliefs {
		w := b.Strength
		t.Culture.Add(AxisWar, b.Effect.WarShift*w)
		t.Culture.Add(AxisTrade, b.Effect.TradeShift*w)
		t.Culture.Add(AxisEcology, b.Effect.EcologyShift*w)
		t.AddStability(b.Effect.StabilityBonus * w)
	}
}

// DiffusionChance is the probability a source's strongest belief spreads.
func DiffusionChance(trust, strength float64) float64 {
	return mathx.ClampF(0.02+max(0, trust)*0.25+strength*0.25, 0, 0.45)
}

// Diffuse may copy from's first belief onto to at reduced strength.
// It reports whether a belief was added.
func Diffuse(from, to *Tribe, trust, roll float64) bool {
	if len(from.Beliefs) == 0 {
		return false
	}
	src := from.Beliefs[0]
	if roll > DiffusionChance(trust, src.Strength) {
		return false
	}
	cp := src
	cp.ID = fmt.Sprintf("%d-diff-%s-%d", to.ID, src.Trigger, int(roll*10000))
	cp.Strength = mathx.Clamp01(src.Strength * DiffusedStrength)
	cp.Age = 0
	return to.AddBelief(cp)
}

// TriggerStrength is one row of the belief leaderboard.
type TriggerStrength struct {
	Trigger  string  `json:"trigger"`
	Strength float64 `json:"strength"`
}

// BeliefSummary aggregates beliefs across tribes.
type BeliefSummary struct {
	Total int               `json:"totalBeliefs"`
	Top   []TriggerStrength `json:"topBeliefs"`
}

// SummarizeBeliefs counts beliefs and ranks the top three triggers by summed strength.
func SummarizeBeliefs(tribes []*Tribe) BeliefSummary {
	totals := map[string]float64{}
	count := 0
	for _, t := range tribes {
		for _, b := range t.Beliefs {
			totals[b.Trigger] += b.Strength
			count++
		}
	}
	rows := make([]TriggerStrength, 0, len(totals))
	for trig, s := range totals {
		rows = append(rows, TriggerStrength{Trigger: trig, Strength: s})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Strength != rows[j].Strength {
			return rows[i].Strength > rows[j].Strength
		}
		return rows[i].Trigger < rows[j].Trigger
	})
	if len(rows) > 3 {
		rows = rows[:3]
	}
	for i := range rows {
		rows[i].Strength = mathx.Round2(rows[i].Strength)
	}
	return BeliefSummary{Total: count, Top: rows}
}
