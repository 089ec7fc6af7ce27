// Package mathx holds small numeric helpers shared by the simulation packages.
package mathx

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Clamp bounds v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Finite returns v, or def when v is NaN or infinite.
func Finite(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// ClampF sanitizes v to a finite value and bounds it to [lo, hi].
// NaN collapses to lo.
func ClampF(v, lo, hi float64) float64 {
	return Clamp(Finite(v, lo), lo, hi)
}

// Clamp01 bounds v to [0, 1], mapping NaN to 0.
func Clamp01(v float64) float64 {
	return ClampF(v, 0, 1)
}

// NonNeg bounds v to [0, +inf), mapping NaN to 0.
func NonNeg(v float64) float64 {
	v = Finite(v, 0)
	if v < 0 {
		return 0
	}
	return v
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Abs returns |v| for signed numbers.
func Abs[T constraints.Signed | constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// Sign returns -1, 0 or 1.
func Sign[T constraints.Signed | constraints.Float](v T) T {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Chebyshev is the king-move distance between two grid points.
func Chebyshev[T constraints.Signed | constraints.Float](ax, ay, bx, by T) T {
	return max(Abs(ax-bx), Abs(ay-by))
}

// Euclid is the straight-line distance between two points.
func Euclid(ax, ay, bx, by float64) float64 {
	return math.Hypot(ax-bx, ay-by)
}

// Mean returns the arithmetic mean of xs, or 0 when empty.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
