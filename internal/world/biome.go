// Biomes: classification and per-biome resource profiles.
package world

import "strings"

// Biome classifies a tile.
type Biome uint8

const (
	BiomeOcean Biome = iota
	BiomePlains
	BiomeForest
	BiomeDesert
	BiomeMountain
	BiomeTaiga
)

// AllBiomes lists every biome in declaration order.
var AllBiomes = []Biome{BiomeOcean, BiomePlains, BiomeForest, BiomeDesert, BiomeMountain, BiomeTaiga}

var biomeNames = map[Biome]string{
	BiomeOcean:    "ocean",
	BiomePlains:   "plains",
	BiomeForest:   "forest",
	BiomeDesert:   "desert",
	BiomeMountain: "mountain",
	BiomeTaiga:    "taiga",
}

// String returns the lowercase biome name.
func (b Biome) String() string {
	if n, ok := biomeNames[b]; ok {
		return n
	}
	return "unknown"
}

// MarshalText encodes a biome by name.
func (b Biome) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText decodes a biome name; unknown names become plains.
func (b *Biome) UnmarshalText(text []byte) error {
	*b = ParseBiome(string(text))
	return nil
}

// ParseBiome maps a name to a biome, defaulting to plains.
func ParseBiome(name string) Biome {
	name = strings.ToLower(strings.TrimSpace(name))
	for b, n := range biomeNames {
		if n == name {
			return b
		}
	}
	return BiomePlains
}

// Classification thresholds.
const (
	OceanBelow    = 0.28
	MountainAbove = 0.82
)

// Classify is the biome decision tree over altitude, temperature and humidity.
func Classify(altitude, temperature, humidity float64) Biome {
	switch {
	case altitude < OceanBelow:
		return BiomeOcean
	case altitude > MountainAbove:
		return BiomeMountain
	case temperature > 0.72 && humidity < 0.35:
		return BiomeDesert
	case temperature < 0.28 && humidity >= 0.45:
		return BiomeTaiga
	case humidity > 0.68:
		return BiomeForest
	default:
		return BiomePlains
	}
}

var biomeCaps = map[Biome]Resources{
	BiomeOcean:    {Food: 60, Wood: 0, Water: 100, Materials: 10},
	BiomePlains:   {Food: 100, Wood: 40, Water: 60, Materials: 50},
	BiomeForest:   {Food: 80, Wood: 100, Water: 70, Materials: 40},
	BiomeDesert:   {Food: 25, Wood: 10, Water: 20, Materials: 70},
	BiomeMountain: {Food: 20, Wood: 15, Water: 45, Materials: 100},
	BiomeTaiga:    {Food: 50, Wood: 75, Water: 65, Materials: 60},
}

var biomeRegen = map[Biome]Resources{
	BiomeOcean:    {Food: 0.8, Wood: 0, Water: 1.2, Materials: 0.2},
	BiomePlains:   {Food: 1, Wood: 0.3, Water: 0.5, Materials: 0.3},
	BiomeForest:   {Food: 0.6, Wood: 1.2, Water: 0.5, Materials: 0.2},
	BiomeDesert:   {Food: 0.1, Wood: 0.05, Water: 0.1, Materials: 0.5},
	BiomeMountain: {Food: 0.1, Wood: 0.1, Water: 0.2, Materials: 1},
	BiomeTaiga:    {Food: 0.4, Wood: 0.9, Water: 0.4, Materials: 0.5},
}

// BaseCaps returns the biome's resource cap profile.
func BaseCaps(b Biome) Resources {
	if c, ok := biomeCaps[b]; ok {
		return c
	}
	return biomeCaps[BiomePlains]
}

// RegenRates returns the biome's per-tick regeneration profile.
func RegenRates(b Biome) Resources {
	if r, ok := biomeRegen[b]; ok {
		return r
	}
	return biomeRegen[BiomePlains]
}
