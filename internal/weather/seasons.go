// Seasons: the 200-tick year split into four quadrants.
package weather

// TicksPerYear is the length of one simulated year.
const TicksPerYear = 200

// SeasonCount is the number of seasons per year.
const SeasonCount = 4

// Season indices.
const (
	SeasonSpring = 0
	SeasonSummer = 1
	SeasonAutumn = 2
	SeasonWinter = 3
)

// SeasonState locates a tick within the year.
type SeasonState struct {
	Index     int    `json:"seasonIndex"`
	Name      string `json:"seasonName"`
	Year      int    `json:"year"`
	DayInYear int    `json:"dayInYear"`
}

// SeasonProfile holds a season's ambient shift and regeneration multipliers.
type SeasonProfile struct {
	TempShift     float64
	HumidityShift float64
	Food          float64
	Wood          float64
	Water         float64
}

var seasonNames = [SeasonCount]string{"spring", "summer", "autumn", "winter"}

var seasonProfiles = [SeasonCount]SeasonProfile{
	SeasonSpring: {TempShift: 0.04, HumidityShift: 0.06, Food: 1.08, Wood: 1.05, Water: 1.04},
	SeasonSummer: {TempShift: 0.09, HumidityShift: -0.04, Food: 1.02, Wood: 0.98, Water: 0.95},
	SeasonAutumn: {TempShift: -0.01, HumidityShift: 0.02, Food: 1.0, Wood: 1.02, Water: 1.01},
	SeasonWinter: {TempShift: -0.1, HumidityShift: -0.02, Food: 0.86, Wood: 0.92, Water: 0.97},
}

// SeasonAt is a pure function of the tick.
func SeasonAt(tick uint64) SeasonState {
	day := int(tick % TicksPerYear)
	idx := day * SeasonCount / TicksPerYear
	return SeasonState{
		Index:     idx,
		Name:      seasonNames[idx],
		Year:      int(tick / TicksPerYear),
		DayInYear: day,
	}
}

// SeasonName returns the name for a season index.
func SeasonName(idx int) string {
	if idx < 0 || idx >= SeasonCount {
		return "unknown"
	}
	return seasonNames[idx]
}

// Profile returns the season's multipliers. Out-of-range indices get neutral values.
func Profile(idx int) SeasonProfile {
	if idx < 0 || idx >= SeasonCount {
		return SeasonProfile{Food: 1, Wood: 1, Water: 1}
	}
	return seasonProfiles[idx]
}
