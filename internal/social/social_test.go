package social

import (
	"math"
	"testing"

	"github.com/talgya/tribe-world/internal/agents"
)

func agentAt(id, x, y int) *agents.Agent {
	return &agents.Agent{ID: agents.AgentID(id), X: x, Y: y, Energy: 60, Health: 100, Alive: true}
}

func liveMap(list ...*agents.Agent) map[agents.AgentID]*agents.Agent {
	m := make(map[agents.AgentID]*agents.Agent, len(list))
	for _, a := range list {
		m[a.ID] = a
	}
	return m
}

func testTribe(id TribeID, size int) *Tribe {
	t := &Tribe{
		ID:        id,
		Shared:    Stock{Food: 8},
		Stability: 1,
		Culture:   NeutralCulture(),
		Techs:     map[string]*Technology{},
	}
	for i := 0; i < size; i++ {
		t.Members = append(t.Members, agents.AgentID(int(id)*100+i))
	}
	return t
}

func TestNewTribeFounderCulture(t *testing.T) {
	a := agentAt(1, 4, 4)
	b := agentAt(2, 5, 4)
	a.Traits.Intelligence, b.Traits.Intelligence = 0.8, 0.4
	a.Traits.Aggression, b.Traits.Aggression = 0.2, 0.6
	tr := NewTribe(1, []*agents.Agent{a, b})
	if tr.AddMember(a.ID) || tr.Size() != 2 {
		t.Fatalf("duplicate member should be ignored, size = %d", tr.Size())
	}
	if math.Abs(tr.Culture.Tech-0.6) > 1e-9 {
		t.Errorf("tech = %v, want mean intelligence 0.6", tr.Culture.Tech)
	}
	if math.Abs(tr.Culture.War-0.4) > 1e-9 {
		t.Errorf("war = %v, want mean aggression 0.4", tr.Culture.War)
	}
	if tr.Shared.Food != 8 || tr.Stability != 1 {
		t.Errorf("unexpected founding stock %+v stability %v", tr.Shared, tr.Stability)
	}
}

func TestPruneDropsDeadAndStragglers(t *testing.T) {
	a, b, c := agentAt(1, 10, 10), agentAt(2, 11, 10), agentAt(3, 40, 10)
	tr := &Tribe{ID: 1, Members: []agents.AgentID{1, 2, 3, 4}}
	if !tr.Prune(liveMap(a, b, c)) {
		t.Fatal("tribe with two close members should survive")
	}
	if tr.HasMember(3) || tr.HasMember(4) {
		t.Fatalf("members = %v, want straggler and dead agent removed", tr.Members)
	}
	if tr.CenterX != 10.5 || tr.CenterY != 10 {
		t.Errorf("center = (%v,%v), want (10.5,10)", tr.CenterX, tr.CenterY)
	}

	solo := &Tribe{ID: 2, Members: []agents.AgentID{1, 9}}
	if solo.Prune(liveMap(a)) {
		t.Fatal("tribe with one live member should dissolve")
	}
}

func TestStabilityNeverNegative(t *testing.T) {
	tr := testTribe(1, 2)
	tr.AddStability(-5)
	if tr.Stability != 0 {
		t.Fatalf("stability = %v, want 0", tr.Stability)
	}
	tr.AddStability(10)
	if tr.Stability != 10 {
		t.Fatalf("stability = %v, want 10 with no upper bound", tr.Stability)
	}
}

func TestEvolveCultureStaysInRange(t *testing.T) {
	tr := testTribe(1, 4)
	tr.Culture = Culture{Tech: 1, War: 0, Education: 1, Trade: 1, Ecology: 0.999, Spirituality: 0}
	ctx := CultureContext{Surplus: 50, Deaths: 3, OveruseRatio: 0.9, CloseExternal: 4}
	for tick := uint64(0); tick < 500; tick++ {
		EvolveCulture(tr, ctx, "culture", tick)
		for _, a := range Axes {
			v := tr.Culture.Get(a)
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Fatalf("tick %d axis %s = %v", tick, a, v)
			}
		}
	}
}

func TestDominantTieGoesToFirstAxis(t *testing.T) {
	if d := NeutralCulture().Dominant(); d != AxisTech {
		t.Fatalf("dominant = %s, want tech", d)
	}
	c := NeutralCulture()
	c.Trade = 0.9
	if d := c.Dominant(); d != AxisTrade {
		t.Fatalf("dominant = %s, want trade", d)
	}
}

func TestBeliefCreationAndDedupe(t *testing.T) {
	tr := testTribe(1, 3)
	tr.Culture.Spirituality = 1
	b, ok := BeliefFromEvent(tr, TribeEvent{Kind: EventSuccessTrade, Intensity: 0.6}, 7, 0.1)
	if !ok {
		t.Fatal("low roll should create a belief")
	}
	if b.Trigger != "trader_path" || b.Strength <= 0 || b.Strength > 1 {
		t.Fatalf("unexpected belief %+v", b)
	}
	if !tr.AddBelief(b) {
		t.Fatal("first belief should be added")
	}
	if tr.AddBelief(b) {
		t.Fatal("duplicate trigger should be rejected")
	}
	if _, ok := BeliefFromEvent(tr, TribeEvent{Kind: EventFamine, Intensity: 0}, 7, 0.99); ok {
		t.Fatal("roll above the creation probability should be rejected")
	}
}

func TestBeliefCapKeepsNewest(t *testing.T) {
	tr := testTribe(1, 2)
	for i := 0; i < 7; i++ {
		tr.AddBelief(Belief{Trigger: string(rune('a' + i)), Strength: 0.5})
	}
	if len(tr.Beliefs) != MaxBeliefs {
		t.Fatalf("beliefs = %d, want %d", len(tr.Beliefs), MaxBeliefs)
	}
	if tr.Beliefs[0].Trigger != "g" {
		t.Fatalf("newest belief should be first, got %q", tr.Beliefs[0].Trigger)
	}
}

func TestWeakBeliefDecaysAway(t *testing.T) {
	tr := testTribe(1, 2)
	tr.Stability = 0.5
	tr.Beliefs = []Belief{{Trigger: "war_destiny", Strength: 0.07}, {Trigger: "trader_path", Strength: 0.9}}
	tr.AgeBeliefs(BeliefFeedback(tr.Stability))
	if len(tr.Beliefs) != 1 || tr.Beliefs[0].Trigger != "trader_path" {
		t.Fatalf("beliefs = %+v, want only the strong one", tr.Beliefs)
	}
	if tr.Beliefs[0].Age != 1 {
		t.Errorf("age = %d, want 1", tr.Beliefs[0].Age)
	}
}

func TestDiffusionCopiesOneBelief(t *testing.T) {
	from := testTribe(1, 3)
	to := testTribe(2, 3)
	from.Beliefs = []Belief{{ID: "x", Type: "trade", Trigger: "trader_path", Strength: 0.9}}
	if !Diffuse(from, to, 1, 0) {
		t.Fatal("favorable trust and roll should diffuse")
	}
	if len(to.Beliefs) != 1 {
		t.Fatalf("receiver has %d beliefs, want 1", len(to.Beliefs))
	}
	if got := to.Beliefs[0].Strength; math.Abs(got-0.63) > 1e-9 {
		t.Errorf("diffused strength = %v, want 0.63", got)
	}
	if Diffuse(from, to, 1, 0) {
		t.Fatal("second diffusion of the same trigger should be rejected")
	}
	if Diffuse(to, testTribe(3, 2), -1, 0.99) {
		t.Fatal("hostile roll should not diffuse")
	}
}

func TestModifiersHarvestBounded(t *testing.T) {
	tr := testTribe(1, 2)
	for _, trig := range []string{"a", "b", "c", "d", "e"} {
		tr.Beliefs = append(tr.Beliefs, Belief{Trigger: trig, Strength: 1, Effect: BeliefEffect{HarvestMultiplier: 0.5}})
	}
	m := tr.Modifiers()
	if m.Harvest != 0.65 {
		t.Fatalf("harvest = %v, want clamped 0.65", m.Harvest)
	}
	if NeutralModifiers().Harvest != (&Tribe{}).Modifiers().Harvest {
		t.Fatal("no beliefs should give neutral modifiers")
	}
}

func TestSummarizeBeliefsTopThree(t *testing.T) {
	a := testTribe(1, 2)
	b := testTribe(2, 2)
	a.Beliefs = []Belief{{Trigger: "x", Strength: 0.5}, {Trigger: "y", Strength: 0.2}}
	b.Beliefs = []Belief{{Trigger: "x", Strength: 0.333}, {Trigger: "z", Strength: 0.4}, {Trigger: "w", Strength: 0.1}}
	s := SummarizeBeliefs([]*Tribe{a, b})
	if s.Total != 5 || len(s.Top) != 3 {
		t.Fatalf("summary = %+v", s)
	}
	if s.Top[0].Trigger != "x" || s.Top[0].Strength != 0.83 {
		t.Fatalf("top = %+v, want x at 0.83", s.Top[0])
	}
}

func TestTechnologyLevelsUp(t *testing.T) {
	tr := testTribe(1, 10)
	tr.Stability = 1.5
	for i := 0; i < 40 && tr.GlobalTechLevel == 0; i++ {
		UpdateTechnology(tr, 40, 3)
	}
	if tr.GlobalTechLevel == 0 {
		t.Fatal("tech level should rise under surplus and positive interactions")
	}
	tech := tr.Techs[TechID(AxisTech)]
	if tech == nil || tech.Cost <= EmergentCost || tech.Progress >= tech.Cost {
		t.Fatalf("unexpected tech state %+v", tech)
	}
	for i := 0; i < 500; i++ {
		UpdateTechnology(tr, 200, 10)
	}
	for _, e := range []TechEffects{tr.Effects(), tech.Effects} {
		for _, v := range []float64{e.Efficiency, e.Storage, e.Movement, e.Defense, e.Trade} {
			if v < 0 || v > MaxBonus {
				t.Fatalf("bonus %v outside [0, %v]", v, MaxBonus)
			}
		}
	}
}

func TestFocusSwitchKeepsOldEntry(t *testing.T) {
	tr := testTribe(1, 4)
	UpdateTechnology(tr, 10, 0)
	tr.Culture.War = 0.9
	UpdateTechnology(tr, 10, 0)
	if len(tr.Techs) != 2 {
		t.Fatalf("techs = %d, want entries for tech and war", len(tr.Techs))
	}
	if tr.Techs[TechID(AxisWar)].Progress == 0 {
		t.Fatal("new focus should accrue progress")
	}
}

func TestStorageCapNeverShrinks(t *testing.T) {
	for _, bonus := range []float64{0, 0.2, 0.5, 3, -1} {
		if StorageCap(BaseStorageCap, bonus) < BaseStorageCap {
			t.Fatalf("bonus %v lowered the cap", bonus)
		}
	}
	tr := testTribe(1, 2)
	tr.Shared.Food = 1000
	tr.ApplyStorageCap(0.5)
	if tr.Shared.Food != 330 {
		t.Fatalf("food = %v, want 330", tr.Shared.Food)
	}
}

func TestDecideIsMemorySensitive(t *testing.T) {
	p := DefaultPolicy()
	a := testTribe(1, 6)
	b := testTribe(2, 6)
	hostile := NewMemoryRecord()
	hostile.Trust = -0.9
	hostile.LastActions = LastActions{A: ActionAttack, B: ActionAttack}
	friendly := NewMemoryRecord()
	friendly.Trust = 0.9
	friendly.LastActions = LastActions{A: ActionTrade, B: ActionTrade}

	got1 := p.Decide(a, b, hostile, Bias{}, 0.5)
	got2 := p.Decide(a, b, friendly, Bias{}, 0.5)
	if got1 == got2 {
		t.Fatalf("opposite memories gave the same action %s", got1)
	}
	if got1 != ActionAttack {
		t.Errorf("hostile memory gave %s, want attack", got1)
	}
	if got2 != ActionCooperate {
		t.Errorf("friendly memory gave %s, want cooperate", got2)
	}
}

func TestCooldown(t *testing.T) {
	p := DefaultPolicy()
	m := NewMemoryRecord()
	m.Trust = -0.8
	m.LastTick = 10
	if !m.RecentConflict(14, p) {
		t.Fatal("fight four ticks ago should be recent")
	}
	if m.RecentConflict(15, p) {
		t.Fatal("fight five ticks ago should not be recent")
	}
	a, b := Cooldown(ActionAttack, ActionTrade, true)
	if a != ActionAvoid || b != ActionTrade {
		t.Fatalf("cooldown gave %s/%s", a, b)
	}
}

func TestResolveTrade(t *testing.T) {
	p := DefaultPolicy()
	a, b := testTribe(1, 3), testTribe(2, 3)
	out := p.Resolve(a, b, ActionTrade, ActionTrade, 0.5)
	if out.EventType != "trade" || out.TrustDelta != p.TradeTrust {
		t.Fatalf("outcome = %+v", out)
	}
	if a.Shared.Food != 9.45 || b.Shared.Food != 9.45 {
		t.Fatalf("food after trade = %v/%v, want 9.45", a.Shared.Food, b.Shared.Food)
	}
}

func TestResolveAttackSparesLastMember(t *testing.T) {
	p := DefaultPolicy()
	big, small := testTribe(1, 30), testTribe(2, 2)
	big.Culture.War, small.Culture.War = 1, 0
	out := p.Resolve(big, small, ActionAttack, ActionAvoid, 1)
	if out.EventType != "attack-avoid" {
		t.Fatalf("event type = %q", out.EventType)
	}
	if out.DeadB > small.Size()-1 {
		t.Fatalf("dead = %d would wipe out the tribe", out.DeadB)
	}
	if small.Stability < 0 || big.Shared.Food < 8 {
		t.Fatalf("unexpected state: stability %v, food %v", small.Stability, big.Shared.Food)
	}
}

func TestResolveBetrayStealsFood(t *testing.T) {
	p := DefaultPolicy()
	a, b := testTribe(1, 3), testTribe(2, 3)
	out := p.Resolve(a, b, ActionCooperate, ActionBetray, 0)
	if out.TrustDelta != -0.16 {
		t.Fatalf("trust delta = %v, want -0.16", out.TrustDelta)
	}
	if a.Shared.Food != 4 || b.Shared.Food != 12 {
		t.Fatalf("food = %v/%v, want 4/12", a.Shared.Food, b.Shared.Food)
	}
}

func TestUpdateMemoryTrustBounded(t *testing.T) {
	m := NewMemoryRecord()
	for _, d := range []float64{5, -9, math.NaN(), 0.3} {
		m = UpdateMemory(m, ActionAttack, ActionAvoid, d, 3)
		if m.Trust < -1 || m.Trust > 1 || math.IsNaN(m.Trust) {
			t.Fatalf("trust = %v", m.Trust)
		}
	}
	if m.TotalAttacks != 4 || m.TotalAvoids != 4 || m.LastTick != 3 {
		t.Fatalf("tallies = %+v", m)
	}
}

func TestPairKeyRoundTrip(t *testing.T) {
	k := NewPairKey(9, 3)
	if k.A != 3 || k.B != 9 {
		t.Fatalf("key not ordered: %+v", k)
	}
	back, err := ParsePairKey(k.String())
	if err != nil || back != k {
		t.Fatalf("round trip gave %+v, %v", back, err)
	}
	if _, err := ParsePairKey("nope"); err == nil {
		t.Fatal("malformed key should fail")
	}
}
