// World generation using layered fractal noise.
// Generates altitude, temperature and humidity fields, then derives biomes and resources.
package world

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/talgya/tribe-world/internal/entropy"
	"github.com/talgya/tribe-world/internal/mathx"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width  int
	Height int
	Seed   string
	Noise  NoiseKind
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:  64,
		Height: 48,
		Seed:   "tribe-world",
		Noise:  NoiseValue,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:  24,
		Height: 18,
		Seed:   "small",
		Noise:  NoiseValue,
	}
}

// Generate creates a complete world map. The same config always yields the same tiles.
func Generate(cfg GenConfig) *Map {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		d := DefaultGenConfig()
		cfg.Width, cfg.Height = d.Width, d.Height
	}

	seed := cfg.Seed
	altitude := newField(cfg.Noise, seed+":altitude", FBMParams{Octaves: 5, BaseScale: 40})
	detail := newField(cfg.Noise, seed+":altitudeDetail", FBMParams{Octaves: 2, BaseScale: 10})
	temperature := newField(cfg.Noise, seed+":temp", FBMParams{Octaves: 4, BaseScale: 32})
	humidity := newField(cfg.Noise, seed+":humidity", FBMParams{Octaves: 4, BaseScale: 28})

	m := NewMap(cfg.Width, cfg.Height, seed)
	for y := 0; y < cfg.Height; y++ {
		lat := latitude(y, cfg.Height)
		for x := 0; x < cfg.Width; x++ {
			fx, fy := float64(x), float64(y)

			alt := mathx.Clamp01(altitude(fx, fy)*0.8 + detail(fx, fy)*0.2)
			temp := mathx.Clamp01(lat*0.7 + temperature(fx, fy)*0.3 - alt*0.25)
			hum := humidity(fx, fy) * 0.85
			if alt < 0.35 {
				hum += 0.15
			}
			hum = mathx.Clamp01(hum)

			biome := Classify(alt, temp, hum)
			caps := BaseCaps(biome)
			m.Tiles[m.Index(x, y)] = Tile{
				X:               x,
				Y:               y,
				Altitude:        alt,
				Temperature:     temp,
				Humidity:        hum,
				BaseTemperature: temp,
				BaseHumidity:    hum,
				Biome:           biome,
				Caps:            caps,
				Resources:       initialFill(seed, x, y, caps),
			}
		}
	}
	return m
}

// latitude is 1 at the equator row and 0 at the poles.
func latitude(y, height int) float64 {
	if height <= 1 {
		return 1
	}
	return 1 - math.Abs(float64(y)/float64(height-1)*2-1)
}

// initialFill stocks a tile to 60–100% of each cap so early turns see scarcity.
func initialFill(seed string, x, y int, caps Resources) Resources {
	fill := func(kind string, c float64) float64 {
		return math.Round(c * (0.6 + 0.4*entropy.Value(seed, "resourceFill", kind, x, y)))
	}
	return Resources{
		Food:      fill("food", caps.Food),
		Wood:      fill("wood", caps.Wood),
		Water:     fill("water", caps.Water),
		Materials: fill("materials", caps.Materials),
	}
}

// Signature fingerprints the generated terrain of a map.
func Signature(m *Map) string {
	h := fnv.New64a()
	for _, t := range m.Tiles {
		fmt.Fprintf(h, "%s|%.3f|%.3f|%.3f;", t.Biome, t.Altitude, t.BaseTemperature, t.BaseHumidity)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// BiomeCounts returns a summary of biome distribution.
func BiomeCounts(m *Map) map[Biome]int {
	counts := make(map[Biome]int)
	for _, t := range m.Tiles {
		counts[t.Biome]++
	}
	return counts
}
