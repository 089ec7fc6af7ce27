// Package entropy provides the deterministic value source that all simulation
// randomness flows through. Values are content-addressed: the same seed and
// key parts always produce the same number, so no generator state exists.
package entropy

import (
	"hash/fnv"
	"math"
	"reflect"
	"strconv"
)

// separator delimits key parts so ("ab","c") and ("a","bc") hash differently.
const separator = '|'

// Hash returns the mixed 64-bit hash of a seed and an ordered tuple of key parts.
func Hash(seed string, parts ...any) uint64 {
	h := fnv.New64a()
	buf := make([]byte, 0, 64)
	buf = append(buf, seed...)
	for _, p := range parts {
		buf = append(buf, separator)
		buf = appendPart(buf, p)
	}
	h.Write(buf)
	return mix64(h.Sum64())
}

// Value maps (seed, parts...) to a float64 in [0, 1).
func Value(seed string, parts ...any) float64 {
	// Use only 53 bits for a uniform float64 in [0, 1).
	return float64(Hash(seed, parts...)>>11) / float64(1<<53)
}

// Range maps a value in [0, 1) onto [lo, hi).
func Range(v, lo, hi float64) float64 {
	return lo + v*(hi-lo)
}

// Index maps a value in [0, 1) onto [0, n). Returns 0 when n <= 0.
func Index(v float64, n int) int {
	if n <= 0 {
		return 0
	}
	i := int(math.Floor(v * float64(n)))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Seed64 derives a numeric seed for libraries that need one.
func Seed64(seed string) int64 {
	return int64(Hash(seed, "seed64") >> 1)
}

// mix64 is the splitmix64 finalizer; it spreads FNV's weak low bits.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func appendPart(buf []byte, p any) []byte {
	switch v := p.(type) {
	case string:
		return append(buf, v...)
	case int:
		return strconv.AppendInt(buf, int64(v), 10)
	case int64:
		return strconv.AppendInt(buf, v, 10)
	case int32:
		return strconv.AppendInt(buf, int64(v), 10)
	case uint64:
		return strconv.AppendUint(buf, v, 10)
	case uint32:
		return strconv.AppendUint(buf, uint64(v), 10)
	case uint:
		return strconv.AppendUint(buf, uint64(v), 10)
	case float64:
		return strconv.AppendFloat(buf, v, 'g', -1, 64)
	case bool:
		return strconv.AppendBool(buf, v)
	case interface{ String() string }:
		return append(buf, v.String()...)
	default:
		return appendKind(buf, reflect.ValueOf(p))
	}
}

// appendKind handles named types (ids, enums) by their underlying kind.
func appendKind(buf []byte, rv reflect.Value) []byte {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(buf, rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.AppendUint(buf, rv.Uint(), 10)
	case reflect.String:
		return append(buf, rv.String()...)
	case reflect.Float32, reflect.Float64:
		return strconv.AppendFloat(buf, rv.Float(), 'g', -1, 64)
	default:
		return append(buf, '?')
	}
}
