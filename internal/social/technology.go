// Technology: emergent per-axis techs and their bonuses.
package social

import (
	"sort"
	"strconv"

	"github.com/talgya/tribe-world/internal/mathx"
)

// Technology limits.
const (
	MaxBonus        = 0.5
	EmergentCost    = 18.0
	CostGrowth      = 1.5
	LevelSlowdown   = 0.35
	BaseStorageCap  = 220.0
	emergentPrefix  = "emergent-"
	progressEpsilon = 1e-6
)

// TechEffects are the bonuses a technology grants, each in [0, MaxBonus].
type TechEffects struct {
	Efficiency float64 `json:"efficiencyBonus"`
	Storage    float64 `json:"storageBonus"`
	Movement   float64 `json:"movementBonus"`
	Defense    float64 `json:"defenseBonus"`
	Trade      float64 `json:"tradeBonus"`
}

// Clamp bounds every bonus to [0, MaxBonus].
func (e *TechEffects) Clamp() {
	e.Efficiency = mathx.ClampF(e.Efficiency, 0, MaxBonus)
	e.Storage = mathx.ClampF(e.Storage, 0, MaxBonus)
	e.Movement = mathx.ClampF(e.Movement, 0, MaxBonus)
	e.Defense = mathx.ClampF(e.Defense, 0, MaxBonus)
	e.Trade = mathx.ClampF(e.Trade, 0, MaxBonus)
}

// Technology is one tribe technology entry.
type Technology struct {
	ID       string      `json:"id"`
	Axis     Axis        `json:"axis"`
	Level    int         `json:"level"`
	Progress float64     `json:"progress"`
	Cost     float64     `json:"cost"`
	Effects  TechEffects `json:"effects"`
}

func (t *Technology) sanitize() {
	if t.Level < 0 {
		t.Level = 0
	}
	t.Progress = mathx.NonNeg(t.Progress)
	t.Cost = mathx.Finite(t.Cost, EmergentCost)
	if t.Cost < 1 {
		t.Cost = 1
	}
	t.Effects.Clamp()
}

// TechID is the id of the emergent technology for an axis.
func TechID(a Axis) string {
	return emergentPrefix + string(a)
}

// ComputeEffects derives bonuses from level, culture and the focus axis.
func ComputeEffects(level int, c Culture, focus Axis) TechEffects {
	lvl := float64(max(0, level))
	base := min(MaxBonus, 0.02*lvl+c.Education*0.08+c.Tech*0.08)
	weight := func(a Axis, on, off float64) float64 {
		if focus == a {
			return on
		}
		return off
	}
	e := TechEffects{
		Efficiency: base*weight(AxisTech, 1.2, 0.7) + c.Tech*0.1,
		Storage:    base*weight(AxisEcology, 1.0, 0.7) + c.Ecology*0.08,
		Movement:   base*weight(AxisWar, 1.0, 0.6) + c.War*0.06,
		Defense:    base*weight(AxisWar, 1.2, 0.6) + c.Spirituality*0.05,
		Trade:      base*weight(AxisTrade, 1.3, 0.7) + c.Trade*0.1,
	}
	e.Clamp()
	return e
}

// ensureFocusTech returns the technology for the tribe's dominant axis, creating it at level 0.
// Entries for previously dominant axes stay but stop accruing.
func (t *Tribe) ensureFocusTech() *Technology {
	if t.Techs == nil {
		t.Techs = map[string]*Technology{}
	}
	focus := t.Culture.Dominant()
	id := TechID(focus)
	tech, ok := t.Techs[id]
	if !ok {
		tech = &Technology{
			ID:      id,
			Axis:    focus,
			Cost:    EmergentCost,
			Effects: ComputeEffects(0, t.Culture, focus),
		}
		t.Techs[id] = tech
	}
	return tech
}

// ProgressRate is the undiminished per-tick progress for a tribe.
func ProgressRate(t *Tribe, surplus float64, positive int) float64 {
	size := min(1.2, float64(t.Size())/25)
	stab := mathx.ClampF(t.Stability/2, 0.2, 1.2)
	surp := mathx.ClampF(surplus/35, 0, 1.4)
	inter := min(0.8, float64(positive)*0.18)
	rate := 0.06 +
		t.Culture.Tech*0.22 +
		t.Culture.Education*0.18 +
		size*0.07 +
		stab*0.08 +
		surp*0.09 +
		inter
	return mathx.NonNeg(rate)
}

// UpdateTechnology advances the focus technology one tick and levels it up
// while progress covers the cost.
func UpdateTechnology(t *Tribe, surplus float64, positive int) {
	tech := t.ensureFocusTech()
	tech.sanitize()

	rate := ProgressRate(t, surplus, positive) / (1 + float64(tech.Level)*LevelSlowdown)
	tech.Progress += rate
	for tech.Progress >= tech.Cost {
		tech.Progress -= tech.Cost
		tech.Level++
		tech.Cost *= CostGrowth
		tech.Effects = ComputeEffects(tech.Level, t.Culture, tech.Axis)
	}
	tech.Progress = mathx.ClampF(tech.Progress, 0, tech.Cost-progressEpsilon)

	t.TechProgressRate = rate
	total := 0
	for _, id := range t.techIDs() {
		total += t.Techs[id].Level
	}
	t.GlobalTechLevel = total
}

func (t *Tribe) techIDs() []string {
	ids := make([]string, 0, len(t.Techs))
	for id := range t.Techs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Effects is the clamped sum of every technology's bonuses.
func (t *Tribe) Effects() TechEffects {
	var sum TechEffects
	for _, id := range t.techIDs() {
		e := t.Techs[id].Effects
		sum.Efficiency += e.Efficiency
		sum.Storage += e.Storage
		sum.Movement += e.Movement
		sum.Defense += e.Defense
		sum.Trade += e.Trade
	}
	sum.Clamp()
	return sum
}

// StorageCap is the shared-stock ceiling for a storage bonus.
func StorageCap(base, bonus float64) float64 {
	return mathx.NonNeg(base * (1 + mathx.ClampF(bonus, 0, MaxBonus)))
}

// ApplyStorageCap trims shared stock to the tribe's storage ceiling.
func (t *Tribe) ApplyStorageCap(bonus float64) {
	limit := StorageCap(BaseStorageCap, bonus)
	t.Shared.Food = mathx.ClampF(t.Shared.Food, 0, limit)
	t.Shared.Wood = mathx.ClampF(t.Shared.Wood, 0, limit)
	t.Shared.Materials = mathx.ClampF(t.Shared.Materials, 0, limit)
}

// TechSummary aggregates tech levels across tribes.
type TechSummary struct {
	Mean         float64        `json:"meanGlobalTechLevel"`
	Total        int            `json:"totalTechLevels"`
	Distribution map[string]int `json:"levelDistribution"`
}

// SummarizeTech reports mean and total global tech level with a level histogram.
func SummarizeTech(tribes []*Tribe) TechSummary {
	s := TechSummary{Distribution: map[string]int{}}
	if len(tribes) == 0 {
		return s
	}
	for _, t := range tribes {
		lvl := max(0, t.GlobalTechLevel)
		s.Total += lvl
		s.Distribution[strconv.Itoa(lvl)]++
	}
	s.Mean = float64(s.Total) / float64(len(tribes))
	return s
}
