// Per-tick aggregate statistics.
package engine

import (
	"sort"

	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/mathx"
	"github.com/talgya/tribe-world/internal/social"
)

// Stats is the read-only summary of one tick.
type Stats struct {
	Tick             uint64         `json:"tick"`
	Population       int            `json:"population"`
	Births           int            `json:"births"`
	Deaths           int            `json:"deaths"`
	Tribes           int            `json:"tribes"`
	AverageTribeSize float64        `json:"averageTribeSize"`
	DissolvedTribes  int            `json:"dissolvedTribes"`
	CultureAverage   social.Culture `json:"cultureAverage"`

	InteractionsThisTick int       `json:"interactionsThisTick"`
	InteractionBreakdown Breakdown `json:"interactionBreakdown"`
	MeanTrustScore       float64   `json:"meanTrustScore"`

	TotalBeliefs          int                      `json:"totalBeliefs"`
	TopBeliefs            []social.TriggerStrength `json:"topBeliefs"`
	MeanGlobalTechLevel   float64                  `json:"meanGlobalTechLevel"`
	TotalTechLevels       int                      `json:"totalTechLevels"`
	TechLevelDistribution map[string]int           `json:"techLevelDistribution"`

	SeasonName          string  `json:"seasonName"`
	Year                int     `json:"year"`
	GlobalTempShift     float64 `json:"globalTempShift"`
	GlobalHumidityShift float64 `json:"globalHumidityShift"`
	ActiveEventsCount   int     `json:"activeEventsCount"`
	MeanEventIntensity  float64 `json:"meanEventIntensity"`
}

func (r *tickRun) stats(survivors []*agents.Agent) Stats {
	s := Stats{
		Tick:                 r.tick,
		Population:           len(survivors),
		Births:               len(r.newborns),
		Deaths:               r.energyDeaths + r.combatDeaths,
		Tribes:               len(r.tribes),
		DissolvedTribes:      r.dissolved,
		InteractionsThisTick: len(r.interactions),
		InteractionBreakdown: r.breakdown,
		SeasonName:           r.env.Season.Name,
		Year:                 r.env.Season.Year,
		GlobalTempShift:      r.env.Climate.TempShift,
		GlobalHumidityShift:  r.env.Climate.HumidityShift,
		ActiveEventsCount:    len(r.env.Events),
		MeanEventIntensity:   r.env.MeanIntensity(),
	}

	if n := len(r.tribes); n > 0 {
		members := 0
		for _, t := range r.tribes {
			members += t.Size()
			for _, a := range social.Axes {
				s.CultureAverage.Add(a, t.Culture.Get(a)/float64(n))
			}
		}
		s.AverageTribeSize = float64(members) / float64(n)
	}

	s.MeanTrustScore = meanTrust(r.memory)

	beliefs := social.SummarizeBeliefs(r.tribes)
	s.TotalBeliefs = beliefs.Total
	s.TopBeliefs = beliefs.Top

	tech := social.SummarizeTech(r.tribes)
	s.MeanGlobalTechLevel = tech.Mean
	s.TotalTechLevels = tech.Total
	s.TechLevelDistribution = tech.Distribution
	return s
}

// meanTrust averages trust over the memory map in key order.
func meanTrust(memory map[social.PairKey]social.MemoryRecord) float64 {
	keys := make([]social.PairKey, 0, len(memory))
	for k := range memory {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
	vals := make([]float64, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, mathx.Finite(memory[k].Trust, 0))
	}
	return mathx.Mean(vals)
}
