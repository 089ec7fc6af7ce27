// Fractal noise: smooth scalar fields for terrain and climate.
package world

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/tribe-world/internal/entropy"
)

// NoiseKind selects the lattice noise behind fbm fields.
type NoiseKind string

const (
	NoiseValue   NoiseKind = "value"
	NoiseSimplex NoiseKind = "simplex"
)

// FBMParams controls fractal layering.
type FBMParams struct {
	Octaves     int
	Persistence float64
	Lacunarity  float64
	BaseScale   float64
}

// DefaultFBM returns the default fractal parameters.
func DefaultFBM() FBMParams {
	return FBMParams{Octaves: 4, Persistence: 0.5, Lacunarity: 2, BaseScale: 24}
}

func (p FBMParams) normalized() FBMParams {
	d := DefaultFBM()
	if p.Octaves <= 0 {
		p.Octaves = d.Octaves
	}
	if p.Persistence <= 0 {
		p.Persistence = d.Persistence
	}
	if p.Lacunarity <= 0 {
		p.Lacunarity = d.Lacunarity
	}
	if p.BaseScale <= 0 {
		p.BaseScale = d.BaseScale
	}
	return p
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// ValueNoise samples smoothly interpolated lattice noise at (x, y) with the given cell scale.
func ValueNoise(seed string, x, y, scale float64) float64 {
	gx := x / scale
	gy := y / scale
	x0 := math.Floor(gx)
	y0 := math.Floor(gy)
	tx := smoothstep(gx - x0)
	ty := smoothstep(gy - y0)

	ix, iy := int64(x0), int64(y0)
	v00 := entropy.Value(seed, ix, iy)
	v10 := entropy.Value(seed, ix+1, iy)
	v01 := entropy.Value(seed, ix, iy+1)
	v11 := entropy.Value(seed, ix+1, iy+1)

	return lerp(lerp(v00, v10, tx), lerp(v01, v11, tx), ty)
}

// FBM sums octaves of value noise normalized by total amplitude. Result is in [0, 1).
func FBM(seed string, x, y float64, p FBMParams) float64 {
	p = p.normalized()
	total, norm := 0.0, 0.0
	amplitude := 1.0
	scale := p.BaseScale
	for i := 0; i < p.Octaves; i++ {
		total += ValueNoise(fmt.Sprintf("%s:o%d", seed, i), x, y, math.Max(scale, 1e-6)) * amplitude
		norm += amplitude
		amplitude *= p.Persistence
		scale /= p.Lacunarity
	}
	if norm == 0 {
		return 0
	}
	return total / norm
}

// field samples one named noise layer.
type field func(x, y float64) float64

// newField builds a sampler for one layer. Simplex layers pre-build their
// octave generators so sampling a whole grid stays cheap.
func newField(kind NoiseKind, seed string, p FBMParams) field {
	p = p.normalized()
	if kind != NoiseSimplex {
		return func(x, y float64) float64 { return FBM(seed, x, y, p) }
	}

	octaves := make([]opensimplex.Noise, p.Octaves)
	for i := range octaves {
		octaves[i] = opensimplex.NewNormalized(entropy.Seed64(fmt.Sprintf("%s:o%d", seed, i)))
	}
	return func(x, y float64) float64 {
		return octaveNoise(octaves, x, y, p)
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(octaves []opensimplex.Noise, x, y float64, p FBMParams) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	frequency := 1 / p.BaseScale

	for _, n := range octaves {
		total += n.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= p.Persistence
		frequency *= p.Lacunarity
	}

	return total / maxVal
}
