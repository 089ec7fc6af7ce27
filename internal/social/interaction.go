// Interaction: tribe-to-tribe decisions, payoffs and the trust memory.
package social

import (
	"fmt"
	"math"

	"github.com/talgya/tribe-world/internal/mathx"
)

// Action is a tribe's choice toward another tribe for one tick.
type Action string

const (
	ActionTrade     Action = "trade"
	ActionCooperate Action = "cooperate"
	ActionBetray    Action = "betray"
	ActionAttack    Action = "attack"
	ActionAvoid     Action = "avoid"
)

// Actions lists every action in tally order.
var Actions = []Action{ActionTrade, ActionCooperate, ActionBetray, ActionAttack, ActionAvoid}

// PairKey is the unordered key of two tribes, smaller id first.
type PairKey struct {
	A, B TribeID
}

// NewPairKey orders the ids.
func NewPairKey(a, b TribeID) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// String formats the key as "a|b".
func (k PairKey) String() string {
	return fmt.Sprintf("%d|%d", k.A, k.B)
}

// ParsePairKey reverses String.
func ParsePairKey(s string) (PairKey, error) {
	var a, b uint64
	if _, err := fmt.Sscanf(s, "%d|%d", &a, &b); err != nil {
		return PairKey{}, fmt.Errorf("parse tribe pair %q: %w", s, err)
	}
	return NewPairKey(TribeID(a), TribeID(b)), nil
}

// MarshalText lets pair keys index JSON objects.
func (k PairKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the "a|b" form.
func (k *PairKey) UnmarshalText(b []byte) error {
	p, err := ParsePairKey(string(b))
	if err != nil {
		return err
	}
	*k = p
	return nil
}

// LastActions records each side's previous action.
type LastActions struct {
	A Action `json:"a"`
	B Action `json:"b"`
}

// Swapped returns the record from B's point of view.
func (l LastActions) Swapped() LastActions {
	return LastActions{A: l.B, B: l.A}
}

// MemoryRecord is the persistent interaction history of a tribe pair.
type MemoryRecord struct {
	LastActions       LastActions `json:"lastActions"`
	Trust             float64     `json:"trustScore"`
	LastTick          int64       `json:"lastTick"`
	TotalTrades       int         `json:"totalTrades"`
	TotalCooperations int         `json:"totalCooperations"`
	TotalBetrays      int         `json:"totalBetrays"`
	TotalAttacks      int         `json:"totalAttacks"`
	TotalAvoids       int         `json:"totalAvoids"`
}

// NewMemoryRecord is the record of a pair that has never met.
func NewMemoryRecord() MemoryRecord {
	return MemoryRecord{
		LastActions: LastActions{A: ActionAvoid, B: ActionAvoid},
		LastTick:    -1,
	}
}

// Normalize fills missing actions and clamps trust.
func (m MemoryRecord) Normalize() MemoryRecord {
	if m.LastActions.A == "" {
		m.LastActions.A = ActionAvoid
	}
	if m.LastActions.B == "" {
		m.LastActions.B = ActionAvoid
	}
	m.Trust = mathx.ClampF(m.Trust, -1, 1)
	if m.LastTick < -1 {
		m.LastTick = -1
	}
	return m
}

// RecentConflict reports whether the pair fought bitterly within the cooldown window.
func (m MemoryRecord) RecentConflict(tick uint64, p Policy) bool {
	if m.LastTick < 0 || uint64(m.LastTick) > tick {
		return false
	}
	return tick-uint64(m.LastTick) <= p.CooldownTicks && m.Trust < p.CooldownTrust
}

// UpdateMemory records one resolved interaction. Trust stays in [-1, 1].
func UpdateMemory(m MemoryRecord, a, b Action, trustDelta float64, tick uint64) MemoryRecord {
	next := m.Normalize()
	next.LastActions = LastActions{A: a, B: b}
	next.LastTick = int64(tick)
	next.Trust = mathx.ClampF(next.Trust+mathx.Finite(trustDelta, 0), -1, 1)
	for _, act := range []Action{a, b} {
		switch act {
		case ActionTrade:
			next.TotalTrades++
		case ActionCooperate:
			next.TotalCooperations++
		case ActionBetray:
			next.TotalBetrays++
		case ActionAttack:
			next.TotalAttacks++
		case ActionAvoid:
			next.TotalAvoids++
		}
	}
	return next
}

// Power scores a tribe's strength from size, stability and food.
func Power(t *Tribe) float64 {
	return float64(t.Size())*(0.8+t.Stability*0.3) + t.Shared.Food*0.03
}

// Bias is the belief-driven shift applied to a decision.
type Bias struct {
	Peace    float64
	Conflict float64
}

// Decide picks self's action toward other. mem is from self's point of view:
// LastActions.B is what other did last.
func (p Policy) Decide(self, other *Tribe, mem MemoryRecord, bias Bias, roll float64) Action {
	mem = mem.Normalize()
	powSelf, powOther := Power(self), Power(other)
	rel := 1.0
	if powOther > 0 {
		rel = powSelf / powOther
	}

	c := self.Culture
	peace := c.Trade*0.35 + c.Education*0.2 + c.Ecology*0.12 + c.Spirituality*0.12 + (mem.Trust+1)*0.15
	conflict := c.War*0.45 + (1-mem.Trust)*0.2
	if mem.LastActions.B == ActionAttack || mem.LastActions.B == ActionBetray {
		conflict += 0.15
	}
	if rel > 1.2 {
		conflict += 0.1
	}

	vulnerable := rel < p.VulnerablePower || self.Stability < p.VulnerableStability
	noise := (roll - 0.5) * (p.NoiseSpan * (1 - c.Education))
	peace += bias.Peace + noise
	conflict += bias.Conflict - noise

	switch {
	case vulnerable && mem.Trust < p.AvoidTrust && conflict > p.AvoidConflict:
		return ActionAvoid
	case conflict > p.AttackConflict && rel > p.AttackPower:
		return ActionAttack
	case conflict > peace+p.BetrayMargin:
		return ActionBetray
	case peace > p.TradePeace:
		return ActionTrade
	case peace > p.CooperatePeace:
		return ActionCooperate
	}
	return ActionAvoid
}

// Cooldown downgrades attacks to avoid when the pair is in recent conflict.
func Cooldown(a, b Action, recent bool) (Action, Action) {
	if !recent {
		return a, b
	}
	if a == ActionAttack {
		a = ActionAvoid
	}
	if b == ActionAttack {
		b = ActionAvoid
	}
	return a, b
}

// Outcome is the result of resolving one action pair.
type Outcome struct {
	EventType  string
	DeadA      int
	DeadB      int
	TrustDelta float64
}

// EventType names an action pair: the action itself when both match, else "a-b".
func EventType(a, b Action) string {
	if a == b {
		return string(a)
	}
	return string(a) + "-" + string(b)
}

func stealFood(from, to *Tribe, amount float64) float64 {
	amt := mathx.ClampF(amount, 0, from.Shared.Food)
	from.Shared.Food = mathx.Round2(from.Shared.Food - amt)
	to.Shared.Food = mathx.Round2(to.Shared.Food + amt)
	return amt
}

func settle(t *Tribe) {
	t.Shared.Food = mathx.NonNeg(mathx.Round2(t.Shared.Food))
	t.Shared.Wood = mathx.NonNeg(mathx.Round2(t.Shared.Wood))
	t.Shared.Materials = mathx.NonNeg(mathx.Round2(t.Shared.Materials))
	t.Stability = mathx.NonNeg(mathx.Round2(t.Stability))
}

// Resolve applies the payoff table for actions a and b to both tribes.
// Casualty counts are proposed; the caller removes the agents.
func (p Policy) Resolve(ta, tb *Tribe, a, b Action, roll float64) Outcome {
	out := Outcome{EventType: EventType(a, b)}
	switch {
	case a == ActionTrade && b == ActionTrade:
		unit := min(3, ta.Shared.Food, tb.Shared.Food)
		gain := 1 + unit*0.15
		ta.Shared.Food += gain
		tb.Shared.Food += gain
		ta.AddStability(p.TradeStability)
		tb.AddStability(p.TradeStability)
		out.TrustDelta = p.TradeTrust
	case a == ActionCooperate && b == ActionCooperate:
		support := min(2, ta.Shared.Food*0.1, tb.Shared.Food*0.1)
		ta.Shared.Food += support
		tb.Shared.Food += support
		ta.AddStability(p.CoopStability)
		tb.AddStability(p.CoopStability)
		out.TrustDelta = p.CoopTrust
	case a == ActionBetray && b != ActionAttack:
		out.TrustDelta = p.betray(ta, tb, roll)
	case b == ActionBetray && a != ActionAttack:
		out.TrustDelta = p.betray(tb, ta, roll)
	case a == ActionAttack || b == ActionAttack:
		intensity := 0.5 + math.Abs(ta.Culture.War-tb.Culture.War)*0.5 + roll*0.3
		pa, pb := Power(ta), Power(tb)
		total := max(1, pa+pb)
		lossA := int(math.Floor(pb / total * intensity * 2))
		lossB := int(math.Floor(pa / total * intensity * 2))
		out.DeadA = mathx.Clamp(lossA, 0, max(0, ta.Size()-1))
		out.DeadB = mathx.Clamp(lossB, 0, max(0, tb.Size()-1))
		switch {
		case pa > pb:
			stealFood(tb, ta, 3+roll*2)
		case pb > pa:
			stealFood(ta, tb, 3+roll*2)
		}
		ta.AddStability(-(p.AttackPenalty + float64(out.DeadA)*0.04))
		tb.AddStability(-(p.AttackPenalty + float64(out.DeadB)*0.04))
		out.TrustDelta = p.AttackTrust
	case a == ActionAvoid && b == ActionAvoid:
		ta.AddStability(-0.01)
		tb.AddStability(-0.01)
		out.TrustDelta = -0.01
	default:
		ta.AddStability(-0.005)
		tb.AddStability(-0.005)
		out.TrustDelta = p.MismatchTrust
	}
	settle(ta)
	settle(tb)
	return out
}

func (p Policy) betray(thief, victim *Tribe, roll float64) float64 {
	stolen := stealFood(victim, thief, p.BetrayTheft+roll*2)
	thief.AddStability(0.01)
	victim.AddStability(-p.BetrayPenalty)
	if stolen > 0 {
		return -2 * p.BetrayPenalty
	}
	return -p.BetrayPenalty
}
